package catalog

// Package catalog provides rate-sheet parsing and validation.

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// RateSheet is the pricing configuration loaded at startup: shipping zones,
// tax rate, and promo codes. All amounts are integer paisa.
type RateSheet struct {
	Currency   string        `yaml:"currency"`
	TaxPercent int           `yaml:"tax_percent"`
	Shipping   ShippingRates `yaml:"shipping"`
	Promos     []Promo       `yaml:"promos"`
}

type ShippingRates struct {
	DefaultPaisa int64            `yaml:"default_paisa"`
	Zones        map[string]int64 `yaml:"zones"`
}

type Promo struct {
	Code             string `yaml:"code"`
	Type             string `yaml:"type"` // percent or fixed
	Value            int64  `yaml:"value"`
	MinSubtotalPaisa int64  `yaml:"min_subtotal_paisa"`
	Active           bool   `yaml:"active"`
}

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Parse(content []byte) (*RateSheet, error) {
	var sheet RateSheet
	if err := yaml.Unmarshal(content, &sheet); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return &sheet, nil
}

func (p *Parser) ParseFile(path string) (*RateSheet, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rate sheet: %w", err)
	}
	return p.Parse(content)
}

type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

func (v *Validator) Validate(sheet *RateSheet) error {
	if sheet == nil {
		return fmt.Errorf("rate sheet is required")
	}

	if !strings.EqualFold(sheet.Currency, "pkr") {
		return fmt.Errorf("only PKR currency is supported")
	}

	if sheet.TaxPercent < 0 || sheet.TaxPercent > 100 {
		return fmt.Errorf("tax percent must be between 0 and 100")
	}

	if sheet.Shipping.DefaultPaisa < 0 {
		return fmt.Errorf("default shipping rate must be zero or positive")
	}
	for zone, rate := range sheet.Shipping.Zones {
		if strings.TrimSpace(zone) == "" {
			return fmt.Errorf("shipping zone name must not be empty")
		}
		if rate < 0 {
			return fmt.Errorf("shipping rate for zone %s must be zero or positive", zone)
		}
	}

	codes := make(map[string]bool)
	for i, promo := range sheet.Promos {
		if err := v.validatePromo(&promo); err != nil {
			return fmt.Errorf("promo %d validation failed: %w", i, err)
		}

		code := strings.ToUpper(strings.TrimSpace(promo.Code))
		if codes[code] {
			return fmt.Errorf("duplicate promo code: %s", promo.Code)
		}
		codes[code] = true
	}

	return nil
}

func (v *Validator) validatePromo(promo *Promo) error {
	if strings.TrimSpace(promo.Code) == "" {
		return fmt.Errorf("promo code is required")
	}

	switch promo.Type {
	case "percent":
		if promo.Value <= 0 || promo.Value > 100 {
			return fmt.Errorf("percent promo value must be between 1 and 100")
		}
	case "fixed":
		if promo.Value <= 0 {
			return fmt.Errorf("fixed promo value must be positive")
		}
	default:
		return fmt.Errorf("promo type must be percent or fixed")
	}

	if promo.MinSubtotalPaisa < 0 {
		return fmt.Errorf("promo minimum subtotal must be zero or positive")
	}

	return nil
}
