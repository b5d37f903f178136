package catalog

// Package catalog provides price calculation functionality.

import (
	"errors"
	"fmt"
	"strings"

	"github.com/luxecraft/atelier/internal/models"
)

var ErrUnknownPromo = errors.New("unknown or inactive promo code")

// Pricer computes order pricing deterministically from the rate sheet.
// Client-submitted totals are never an input.
type Pricer struct {
	sheet *RateSheet
}

func NewPricer(sheet *RateSheet) *Pricer {
	return &Pricer{sheet: sheet}
}

// Quote prices an order: subtotal from the item snapshots, shipping by
// destination city, tax percent on the subtotal, minus a validated promo
// discount. Total always satisfies subtotal + shipping + tax - discount.
func (p *Pricer) Quote(items []models.OrderItem, destinationCity, promoCode string) (models.Pricing, error) {
	var subtotal int64
	for _, item := range items {
		subtotal += item.UnitPricePaisa * int64(item.Quantity)
	}

	shipping := p.ShippingPaisa(destinationCity)
	tax := roundPercent(subtotal, p.sheet.TaxPercent)

	discount, err := p.discountPaisa(subtotal, promoCode)
	if err != nil {
		return models.Pricing{}, err
	}
	if discount > subtotal {
		discount = subtotal
	}

	return models.Pricing{
		SubtotalPaisa: subtotal,
		ShippingPaisa: shipping,
		DiscountPaisa: discount,
		TaxPaisa:      tax,
		TotalPaisa:    subtotal + shipping + tax - discount,
	}, nil
}

// ShippingPaisa looks up the zone rate for a city, falling back to the
// default rate.
func (p *Pricer) ShippingPaisa(city string) int64 {
	key := strings.ToLower(strings.TrimSpace(city))
	if rate, ok := p.sheet.Shipping.Zones[key]; ok {
		return rate
	}
	return p.sheet.Shipping.DefaultPaisa
}

func (p *Pricer) discountPaisa(subtotal int64, promoCode string) (int64, error) {
	code := strings.ToUpper(strings.TrimSpace(promoCode))
	if code == "" {
		return 0, nil
	}

	for _, promo := range p.sheet.Promos {
		if strings.ToUpper(strings.TrimSpace(promo.Code)) != code {
			continue
		}
		if !promo.Active {
			break
		}
		if subtotal < promo.MinSubtotalPaisa {
			return 0, fmt.Errorf("%w: %s requires a minimum subtotal", ErrUnknownPromo, code)
		}
		if promo.Type == "percent" {
			return roundPercent(subtotal, int(promo.Value)), nil
		}
		return promo.Value, nil
	}

	return 0, fmt.Errorf("%w: %s", ErrUnknownPromo, code)
}

// roundPercent computes amount*percent/100 in integer paisa, rounding half up.
func roundPercent(amount int64, percent int) int64 {
	return (amount*int64(percent) + 50) / 100
}
