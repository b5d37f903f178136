package services

import (
	"net/url"
	"strings"
)

const (
	CourierTCS      = "tcs"
	CourierLeopards = "leopards"
	CourierMP       = "mp"
	CourierDHL      = "dhl"
)

// NormalizeCourierProvider returns a canonical provider key for known couriers.
func NormalizeCourierProvider(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	replacer := strings.NewReplacer(" ", "", "-", "", "_", "", "&", "")
	normalized = replacer.Replace(normalized)

	switch normalized {
	case "tcs", "tcsexpress":
		return CourierTCS
	case "leopards", "leopardscourier", "lcs":
		return CourierLeopards
	case "mp", "mpcourier", "muller&phippsco", "mullerphipps":
		return CourierMP
	case "dhl", "dhlexpress":
		return CourierDHL
	default:
		return ""
	}
}

// CanonicalCourierName maps a provider key to the display name.
func CanonicalCourierName(provider string) string {
	switch NormalizeCourierProvider(provider) {
	case CourierTCS:
		return "TCS"
	case CourierLeopards:
		return "Leopards Courier"
	case CourierMP:
		return "M&P Courier"
	case CourierDHL:
		return "DHL"
	default:
		return ""
	}
}

// NormalizeCourierName keeps custom couriers untouched and normalizes known ones.
func NormalizeCourierName(courier string) string {
	trimmed := strings.TrimSpace(courier)
	if trimmed == "" {
		return ""
	}
	if canonical := CanonicalCourierName(trimmed); canonical != "" {
		return canonical
	}
	return trimmed
}

// BuildTrackingURL returns a courier-specific tracking URL. Unknown couriers return empty.
func BuildTrackingURL(courier, trackingNumber string) string {
	number := strings.TrimSpace(trackingNumber)
	if number == "" {
		return ""
	}

	escaped := url.QueryEscape(number)
	switch NormalizeCourierProvider(courier) {
	case CourierTCS:
		return "https://www.tcsexpress.com/track/" + escaped
	case CourierLeopards:
		return "https://www.leopardscourier.com/tracking?cn=" + escaped
	case CourierDHL:
		return "https://www.dhl.com/pk-en/home/tracking.html?tracking-id=" + escaped
	default:
		return ""
	}
}
