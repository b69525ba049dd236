// Package invoice implements the totals calculation core: a pure,
// deterministic function from a validated request to a totals breakdown.
// All monetary arithmetic uses exact decimals; nothing in this package
// performs I/O or holds state across calls.
package invoice

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/invoice-api/internal/currency"
)

// Discount policy kinds.
const (
	DiscountNone        = "none"
	DiscountPercentage  = "percentage"
	DiscountFixedAmount = "fixed_amount"
)

// Tax policy kinds.
const (
	TaxFlat        = "flat"
	TaxPerCategory = "per_category"
)

// Tax modes.
const (
	TaxExclusive = "exclusive"
	TaxInclusive = "inclusive"
)

// Shipping policy kinds.
const (
	ShippingNone        = "none"
	ShippingFixedAmount = "fixed_amount"
)

// Warning flags surfaced on a successful result when a policy clamp fired.
const (
	WarnDiscountClamped   = "discount_clamped"
	WarnGrandTotalFloored = "grand_total_floored"
)

// LineItemInput is one billable entry as submitted by the caller.
type LineItemInput struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	TaxCategory *string         `json:"taxCategory,omitempty"`
}

// DiscountInput selects the discount policy for the request.
type DiscountInput struct {
	Type  string           `json:"type"`
	Rate  *decimal.Decimal `json:"rate,omitempty"`
	Value *decimal.Decimal `json:"value,omitempty"`
}

// TaxInput selects the tax policy for the request.
type TaxInput struct {
	Type        string                     `json:"type"`
	Mode        string                     `json:"mode,omitempty"`
	Rate        *decimal.Decimal           `json:"rate,omitempty"`
	Rates       map[string]decimal.Decimal `json:"rates,omitempty"`
	DefaultRate *decimal.Decimal           `json:"defaultRate,omitempty"`
	TaxShipping bool                       `json:"taxShipping,omitempty"`
}

// ShippingInput selects the shipping policy for the request.
type ShippingInput struct {
	Type   string           `json:"type"`
	Amount *decimal.Decimal `json:"amount,omitempty"`
}

// Request is the raw calculation payload before validation.
type Request struct {
	Currency  string          `json:"currency" validate:"required"`
	LineItems []LineItemInput `json:"lineItems" validate:"min=1"`
	Discount  *DiscountInput  `json:"discount,omitempty"`
	Tax       *TaxInput       `json:"tax,omitempty"`
	Shipping  *ShippingInput  `json:"shipping,omitempty"`
}

// LineItem is a validated line entry.
type LineItem struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	TaxCategory *string         `json:"taxCategory,omitempty"`
}

// DiscountPolicy is the normalized discount configuration.
type DiscountPolicy struct {
	Kind  string          `json:"type"`
	Rate  decimal.Decimal `json:"rate"`
	Value decimal.Decimal `json:"value"`
}

// TaxPolicy is the normalized tax configuration.
type TaxPolicy struct {
	Kind        string                     `json:"type"`
	Mode        string                     `json:"mode"`
	Rate        decimal.Decimal            `json:"rate"`
	Rates       map[string]decimal.Decimal `json:"rates,omitempty"`
	DefaultRate decimal.Decimal            `json:"defaultRate"`
	TaxShipping bool                       `json:"taxShipping"`
}

// RateFor resolves the tax rate applicable to a line's tax category.
func (p TaxPolicy) RateFor(category *string) decimal.Decimal {
	if p.Kind != TaxPerCategory {
		return p.Rate
	}
	if category != nil {
		if rate, ok := p.Rates[strings.TrimSpace(*category)]; ok {
			return rate
		}
	}
	return p.DefaultRate
}

// ShippingPolicy is the normalized shipping configuration.
type ShippingPolicy struct {
	Kind   string          `json:"type"`
	Amount decimal.Decimal `json:"amount"`
}

// NormalizedRequest is a validated request with all optional fields filled
// with explicit defaults. It is the only input Calculate accepts.
type NormalizedRequest struct {
	Currency  currency.Currency `json:"currency"`
	LineItems []LineItem        `json:"lineItems"`
	Discount  DiscountPolicy    `json:"discount"`
	Tax       TaxPolicy         `json:"tax"`
	Shipping  ShippingPolicy    `json:"shipping"`
}

// TotalsResult is the immutable output of a calculation. Amounts are rounded
// to the currency minor unit, half away from zero, exactly once each.
type TotalsResult struct {
	Subtotal      decimal.Decimal
	DiscountTotal decimal.Decimal
	TaxableBase   decimal.Decimal
	TaxTotal      decimal.Decimal
	ShippingTotal decimal.Decimal
	GrandTotal    decimal.Decimal
	Currency      currency.Currency
	Warnings      []string
}

// TotalsPayload is the wire representation of a TotalsResult. All amounts are
// fixed-point decimal strings; binary floats never appear on the wire.
type TotalsPayload struct {
	Subtotal      string `json:"subtotal"`
	DiscountTotal string `json:"discountTotal"`
	TaxableBase   string `json:"taxableBase"`
	TaxTotal      string `json:"taxTotal"`
	ShippingTotal string `json:"shippingTotal"`
	GrandTotal    string `json:"grandTotal"`
	Currency      string `json:"currency"`
}

// Payload formats the result for the response body.
func (t TotalsResult) Payload() TotalsPayload {
	exp := t.Currency.Exponent
	return TotalsPayload{
		Subtotal:      t.Subtotal.StringFixed(exp),
		DiscountTotal: t.DiscountTotal.StringFixed(exp),
		TaxableBase:   t.TaxableBase.StringFixed(exp),
		TaxTotal:      t.TaxTotal.StringFixed(exp),
		ShippingTotal: t.ShippingTotal.StringFixed(exp),
		GrandTotal:    t.GrandTotal.StringFixed(exp),
		Currency:      t.Currency.Code,
	}
}
