package invoice

import "github.com/shopspring/decimal"

// Calculate computes the totals breakdown for a normalized request. It never
// fails: every remaining edge case is resolved by policy and surfaced through
// the result's warning flags. Per-line amounts are carried at full precision;
// rounding happens once per aggregate, half away from zero, at the currency
// minor unit.
func Calculate(n NormalizedRequest) TotalsResult {
	warnings := make([]string, 0, 2)

	subs := make([]decimal.Decimal, len(n.LineItems))
	subtotal := decimal.Zero
	for i, li := range n.LineItems {
		subs[i] = li.Quantity.Mul(li.UnitPrice)
		subtotal = subtotal.Add(subs[i])
	}

	discounts, clamped := distributeDiscount(n.Discount, subs, subtotal)
	if clamped {
		warnings = append(warnings, WarnDiscountClamped)
	}

	discountTotal := decimal.Zero
	taxableBase := decimal.Zero
	taxTotal := decimal.Zero
	for i := range subs {
		discountTotal = discountTotal.Add(discounts[i])
		post := subs[i].Sub(discounts[i])
		rate := n.Tax.RateFor(n.LineItems[i].TaxCategory)
		base, tax := splitTax(post, rate, n.Tax.Mode)
		taxableBase = taxableBase.Add(base)
		taxTotal = taxTotal.Add(tax)
	}

	shipping := decimal.Zero
	if n.Shipping.Kind == ShippingFixedAmount {
		shipping = n.Shipping.Amount
	}
	// Shipping is tax-exempt unless the policy opts in.
	if n.Tax.TaxShipping && shipping.IsPositive() {
		shipBase, shipTax := splitTax(shipping, n.Tax.RateFor(nil), n.Tax.Mode)
		taxTotal = taxTotal.Add(shipTax)
		if n.Tax.Mode == TaxInclusive {
			shipping = shipBase
		}
	}

	exp := n.Currency.Exponent
	result := TotalsResult{
		Subtotal:      subtotal.Round(exp),
		DiscountTotal: discountTotal.Round(exp),
		TaxableBase:   taxableBase.Round(exp),
		TaxTotal:      taxTotal.Round(exp),
		ShippingTotal: shipping.Round(exp),
		Currency:      n.Currency,
	}

	// taxable base + tax + shipping equals subtotal - discount + tax +
	// shipping in exclusive mode, and the post-discount gross in inclusive
	// mode, which keeps the grand total invariant across tax modes.
	grand := result.TaxableBase.Add(result.TaxTotal).Add(result.ShippingTotal)
	if grand.IsNegative() {
		grand = decimal.Zero
		warnings = append(warnings, WarnGrandTotalFloored)
	}
	result.GrandTotal = grand
	result.Warnings = warnings
	return result
}

// distributeDiscount allocates the discount across lines at full precision.
// Percentage discounts scale every line by the rate, preserving per-line tax
// base attribution. Fixed amounts are split in proportion to each line's
// share of the subtotal, with the final line absorbing the residual so the
// allocations sum exactly; amounts exceeding the subtotal are clamped.
func distributeDiscount(policy DiscountPolicy, subs []decimal.Decimal, subtotal decimal.Decimal) ([]decimal.Decimal, bool) {
	discounts := make([]decimal.Decimal, len(subs))
	switch policy.Kind {
	case DiscountPercentage:
		for i := range subs {
			discounts[i] = subs[i].Mul(policy.Rate)
		}
		return discounts, false
	case DiscountFixedAmount:
		value := policy.Value
		clamped := false
		if value.GreaterThan(subtotal) {
			value = subtotal
			clamped = true
		}
		if !subtotal.IsPositive() {
			return discounts, clamped
		}
		allocated := decimal.Zero
		for i := range subs {
			if i == len(subs)-1 {
				discounts[i] = value.Sub(allocated)
				break
			}
			share := value.Mul(subs[i]).Div(subtotal)
			discounts[i] = share
			allocated = allocated.Add(share)
		}
		return discounts, clamped
	default:
		return discounts, false
	}
}

// splitTax resolves a post-discount amount into its taxable base and tax
// portion. Exclusive mode adds tax on top of the amount; inclusive mode
// extracts the tax already contained in it, so base + tax reproduces the
// amount exactly.
func splitTax(amount, rate decimal.Decimal, mode string) (base, tax decimal.Decimal) {
	if mode == TaxInclusive {
		tax = amount.Mul(rate).Div(one.Add(rate))
		base = amount.Sub(tax)
		return base, tax
	}
	base = amount
	tax = amount.Mul(rate)
	return base, tax
}
