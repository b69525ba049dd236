package invoice

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/invoice-api/internal/currency"
)

func usd(t *testing.T) currency.Currency {
	t.Helper()
	cur, ok := currency.Lookup("USD")
	if !ok {
		t.Fatalf("USD missing from currency table")
	}
	return cur
}

func dec(t *testing.T, value string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(value)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", value, err)
	}
	return d
}

func twoLines(t *testing.T) []LineItem {
	return []LineItem{
		{Description: "design work", Quantity: dec(t, "2"), UnitPrice: dec(t, "10.00")},
		{Description: "hosting", Quantity: dec(t, "1"), UnitPrice: dec(t, "5.00")},
	}
}

func TestCalculateFlatExclusiveNoDiscount(t *testing.T) {
	res := Calculate(NormalizedRequest{
		Currency:  usd(t),
		LineItems: twoLines(t),
		Discount:  DiscountPolicy{Kind: DiscountNone},
		Tax:       TaxPolicy{Kind: TaxFlat, Mode: TaxExclusive, Rate: dec(t, "0.08")},
		Shipping:  ShippingPolicy{Kind: ShippingNone},
	})
	payload := res.Payload()
	require.Equal(t, "25.00", payload.Subtotal)
	require.Equal(t, "0.00", payload.DiscountTotal)
	require.Equal(t, "25.00", payload.TaxableBase)
	require.Equal(t, "2.00", payload.TaxTotal)
	require.Equal(t, "0.00", payload.ShippingTotal)
	require.Equal(t, "27.00", payload.GrandTotal)
	require.Equal(t, "USD", payload.Currency)
	require.Empty(t, res.Warnings)
}

func TestCalculatePercentageDiscount(t *testing.T) {
	res := Calculate(NormalizedRequest{
		Currency:  usd(t),
		LineItems: twoLines(t),
		Discount:  DiscountPolicy{Kind: DiscountPercentage, Rate: dec(t, "0.10")},
		Tax:       TaxPolicy{Kind: TaxFlat, Mode: TaxExclusive, Rate: dec(t, "0.08")},
		Shipping:  ShippingPolicy{Kind: ShippingNone},
	})
	payload := res.Payload()
	require.Equal(t, "25.00", payload.Subtotal)
	require.Equal(t, "2.50", payload.DiscountTotal)
	require.Equal(t, "22.50", payload.TaxableBase)
	require.Equal(t, "1.80", payload.TaxTotal)
	require.Equal(t, "24.30", payload.GrandTotal)
	require.Empty(t, res.Warnings)
}

func TestCalculateFixedDiscountClamped(t *testing.T) {
	res := Calculate(NormalizedRequest{
		Currency: usd(t),
		LineItems: []LineItem{
			{Description: "consulting", Quantity: dec(t, "1"), UnitPrice: dec(t, "100.00")},
		},
		Discount: DiscountPolicy{Kind: DiscountFixedAmount, Value: dec(t, "150.00")},
		Tax:      TaxPolicy{Kind: TaxFlat, Mode: TaxExclusive, Rate: dec(t, "0.08")},
		Shipping: ShippingPolicy{Kind: ShippingNone},
	})
	payload := res.Payload()
	require.Equal(t, "100.00", payload.DiscountTotal)
	require.Equal(t, "0.00", payload.GrandTotal)
	require.Contains(t, res.Warnings, WarnDiscountClamped)
}

func TestCalculateFixedDiscountProportionalDistribution(t *testing.T) {
	// 30.00 discount over lines of 20.00 and 10.00 should land 20.00/10.00
	// when tax rates differ per line, the per-line attribution matters.
	standard := "standard"
	reduced := "reduced"
	res := Calculate(NormalizedRequest{
		Currency: usd(t),
		LineItems: []LineItem{
			{Description: "hardware", Quantity: dec(t, "2"), UnitPrice: dec(t, "10.00"), TaxCategory: &standard},
			{Description: "books", Quantity: dec(t, "1"), UnitPrice: dec(t, "10.00"), TaxCategory: &reduced},
		},
		Discount: DiscountPolicy{Kind: DiscountFixedAmount, Value: dec(t, "3.00")},
		Tax: TaxPolicy{
			Kind: TaxPerCategory,
			Mode: TaxExclusive,
			Rates: map[string]decimal.Decimal{
				standard: dec(t, "0.20"),
				reduced:  dec(t, "0.05"),
			},
		},
		Shipping: ShippingPolicy{Kind: ShippingNone},
	})
	payload := res.Payload()
	// discount splits 2.00/1.00, bases 18.00/9.00, tax 3.60 + 0.45
	require.Equal(t, "3.00", payload.DiscountTotal)
	require.Equal(t, "27.00", payload.TaxableBase)
	require.Equal(t, "4.05", payload.TaxTotal)
	require.Equal(t, "31.05", payload.GrandTotal)
}

func TestCalculatePerCategoryDefaultRate(t *testing.T) {
	unknown := "unknown-category"
	res := Calculate(NormalizedRequest{
		Currency: usd(t),
		LineItems: []LineItem{
			{Description: "untagged", Quantity: dec(t, "1"), UnitPrice: dec(t, "10.00")},
			{Description: "mistagged", Quantity: dec(t, "1"), UnitPrice: dec(t, "10.00"), TaxCategory: &unknown},
		},
		Discount: DiscountPolicy{Kind: DiscountNone},
		Tax: TaxPolicy{
			Kind:        TaxPerCategory,
			Mode:        TaxExclusive,
			Rates:       map[string]decimal.Decimal{"standard": dec(t, "0.20")},
			DefaultRate: dec(t, "0.10"),
		},
		Shipping: ShippingPolicy{Kind: ShippingNone},
	})
	require.Equal(t, "2.00", res.Payload().TaxTotal)
}

func TestCalculateInclusiveExtractsTax(t *testing.T) {
	res := Calculate(NormalizedRequest{
		Currency: usd(t),
		LineItems: []LineItem{
			{Description: "subscription", Quantity: dec(t, "1"), UnitPrice: dec(t, "108.00")},
		},
		Discount: DiscountPolicy{Kind: DiscountNone},
		Tax:      TaxPolicy{Kind: TaxFlat, Mode: TaxInclusive, Rate: dec(t, "0.08")},
		Shipping: ShippingPolicy{Kind: ShippingNone},
	})
	payload := res.Payload()
	require.Equal(t, "108.00", payload.Subtotal)
	require.Equal(t, "100.00", payload.TaxableBase)
	require.Equal(t, "8.00", payload.TaxTotal)
	require.Equal(t, "108.00", payload.GrandTotal)
}

func TestCalculateTaxModeEquivalence(t *testing.T) {
	rate := dec(t, "0.08")
	exclusive := Calculate(NormalizedRequest{
		Currency:  usd(t),
		LineItems: twoLines(t),
		Discount:  DiscountPolicy{Kind: DiscountNone},
		Tax:       TaxPolicy{Kind: TaxFlat, Mode: TaxExclusive, Rate: rate},
		Shipping:  ShippingPolicy{Kind: ShippingNone},
	})
	// Same pre-tax prices quoted tax-inclusive: unit price times 1.08.
	inclusive := Calculate(NormalizedRequest{
		Currency: usd(t),
		LineItems: []LineItem{
			{Description: "design work", Quantity: dec(t, "2"), UnitPrice: dec(t, "10.80")},
			{Description: "hosting", Quantity: dec(t, "1"), UnitPrice: dec(t, "5.40")},
		},
		Discount: DiscountPolicy{Kind: DiscountNone},
		Tax:      TaxPolicy{Kind: TaxFlat, Mode: TaxInclusive, Rate: rate},
		Shipping: ShippingPolicy{Kind: ShippingNone},
	})

	diff := exclusive.GrandTotal.Sub(inclusive.GrandTotal).Abs()
	require.True(t, diff.LessThanOrEqual(dec(t, "0.01")),
		"grand totals diverged across tax modes: %s vs %s", exclusive.GrandTotal, inclusive.GrandTotal)
	require.Equal(t, exclusive.TaxTotal.String(), inclusive.TaxTotal.String())
	require.Equal(t, exclusive.TaxableBase.String(), inclusive.TaxableBase.String())
}

func TestCalculateShippingPassThrough(t *testing.T) {
	res := Calculate(NormalizedRequest{
		Currency:  usd(t),
		LineItems: twoLines(t),
		Discount:  DiscountPolicy{Kind: DiscountNone},
		Tax:       TaxPolicy{Kind: TaxFlat, Mode: TaxExclusive, Rate: dec(t, "0.10")},
		Shipping:  ShippingPolicy{Kind: ShippingFixedAmount, Amount: dec(t, "4.99")},
	})
	payload := res.Payload()
	// shipping is tax exempt: tax applies to the 25.00 of goods only
	require.Equal(t, "2.50", payload.TaxTotal)
	require.Equal(t, "4.99", payload.ShippingTotal)
	require.Equal(t, "32.49", payload.GrandTotal)
}

func TestCalculateTaxedShippingOptIn(t *testing.T) {
	res := Calculate(NormalizedRequest{
		Currency:  usd(t),
		LineItems: twoLines(t),
		Discount:  DiscountPolicy{Kind: DiscountNone},
		Tax:       TaxPolicy{Kind: TaxFlat, Mode: TaxExclusive, Rate: dec(t, "0.10"), TaxShipping: true},
		Shipping:  ShippingPolicy{Kind: ShippingFixedAmount, Amount: dec(t, "10.00")},
	})
	payload := res.Payload()
	require.Equal(t, "3.50", payload.TaxTotal)
	require.Equal(t, "38.50", payload.GrandTotal)
}

func TestCalculateIdempotent(t *testing.T) {
	req := NormalizedRequest{
		Currency:  usd(t),
		LineItems: twoLines(t),
		Discount:  DiscountPolicy{Kind: DiscountPercentage, Rate: dec(t, "0.10")},
		Tax:       TaxPolicy{Kind: TaxFlat, Mode: TaxExclusive, Rate: dec(t, "0.08")},
		Shipping:  ShippingPolicy{Kind: ShippingFixedAmount, Amount: dec(t, "3.50")},
	}
	first := Calculate(req).Payload()
	second := Calculate(req).Payload()
	require.Equal(t, first, second)
}

func TestCalculateInvariants(t *testing.T) {
	cases := []struct {
		name     string
		discount DiscountPolicy
		tax      TaxPolicy
		shipping ShippingPolicy
	}{
		{"no policies", DiscountPolicy{Kind: DiscountNone}, TaxPolicy{Kind: TaxFlat, Mode: TaxExclusive}, ShippingPolicy{Kind: ShippingNone}},
		{"full discount", DiscountPolicy{Kind: DiscountPercentage, Rate: dec(t, "1")}, TaxPolicy{Kind: TaxFlat, Mode: TaxExclusive, Rate: dec(t, "0.2")}, ShippingPolicy{Kind: ShippingNone}},
		{"oversized fixed discount", DiscountPolicy{Kind: DiscountFixedAmount, Value: dec(t, "9999")}, TaxPolicy{Kind: TaxFlat, Mode: TaxExclusive, Rate: dec(t, "0.2")}, ShippingPolicy{Kind: ShippingFixedAmount, Amount: dec(t, "1.25")}},
		{"inclusive with discount", DiscountPolicy{Kind: DiscountFixedAmount, Value: dec(t, "5")}, TaxPolicy{Kind: TaxFlat, Mode: TaxInclusive, Rate: dec(t, "0.25")}, ShippingPolicy{Kind: ShippingNone}},
		{"zero price lines", DiscountPolicy{Kind: DiscountFixedAmount, Value: dec(t, "1")}, TaxPolicy{Kind: TaxFlat, Mode: TaxExclusive, Rate: dec(t, "0.1")}, ShippingPolicy{Kind: ShippingNone}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			lines := twoLines(t)
			if tc.name == "zero price lines" {
				lines = []LineItem{{Description: "freebie", Quantity: dec(t, "3"), UnitPrice: dec(t, "0")}}
			}
			res := Calculate(NormalizedRequest{
				Currency:  usd(t),
				LineItems: lines,
				Discount:  tc.discount,
				Tax:       tc.tax,
				Shipping:  tc.shipping,
			})
			require.False(t, res.GrandTotal.IsNegative(), "grand total went negative: %s", res.GrandTotal)
			require.True(t, res.DiscountTotal.LessThanOrEqual(res.Subtotal),
				"discount %s exceeded subtotal %s", res.DiscountTotal, res.Subtotal)
		})
	}
}

func TestCalculateAggregateRoundingStability(t *testing.T) {
	// 7 lines of 0.10 at 7% tax: per-line tax 0.007 rounds to 0.01 each,
	// but the aggregate 0.049 rounds once to 0.05.
	lines := make([]LineItem, 7)
	for i := range lines {
		lines[i] = LineItem{Description: "penny line", Quantity: dec(t, "1"), UnitPrice: dec(t, "0.10")}
	}
	rate := dec(t, "0.07")
	res := Calculate(NormalizedRequest{
		Currency:  usd(t),
		LineItems: lines,
		Discount:  DiscountPolicy{Kind: DiscountNone},
		Tax:       TaxPolicy{Kind: TaxFlat, Mode: TaxExclusive, Rate: rate},
		Shipping:  ShippingPolicy{Kind: ShippingNone},
	})
	require.Equal(t, "0.05", res.Payload().TaxTotal)

	perLineRoundedSum := decimal.Zero
	for _, li := range lines {
		perLineRoundedSum = perLineRoundedSum.Add(li.Quantity.Mul(li.UnitPrice).Mul(rate).Round(2))
	}
	drift := perLineRoundedSum.Sub(res.TaxTotal).Abs()
	bound := dec(t, "0.01").Mul(decimal.NewFromInt(int64(len(lines))))
	require.True(t, drift.LessThanOrEqual(bound), "rounding drift %s exceeds bound %s", drift, bound)
}

func TestCalculateZeroMinorUnitCurrency(t *testing.T) {
	jpy, ok := currency.Lookup("JPY")
	require.True(t, ok)
	res := Calculate(NormalizedRequest{
		Currency: jpy,
		LineItems: []LineItem{
			{Description: "ticket", Quantity: dec(t, "3"), UnitPrice: dec(t, "1000")},
		},
		Discount: DiscountPolicy{Kind: DiscountNone},
		Tax:      TaxPolicy{Kind: TaxFlat, Mode: TaxExclusive, Rate: dec(t, "0.10")},
		Shipping: ShippingPolicy{Kind: ShippingNone},
	})
	payload := res.Payload()
	require.Equal(t, "3000", payload.Subtotal)
	require.Equal(t, "300", payload.TaxTotal)
	require.Equal(t, "3300", payload.GrandTotal)
}
