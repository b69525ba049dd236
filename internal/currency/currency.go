// Package currency maps ISO 4217 currency codes to their minor-unit
// exponent. Monetary rounding throughout the calculator targets this
// granularity.
package currency

import (
	"sort"
	"strings"
)

// Currency describes a supported currency.
type Currency struct {
	Code     string `json:"code"`
	Exponent int32  `json:"exponent"`
}

// exponents lists recognized codes with their ISO 4217 minor-unit exponent.
var exponents = map[string]int32{
	"AED": 2,
	"AUD": 2,
	"BDT": 2,
	"BHD": 3,
	"BIF": 0,
	"BRL": 2,
	"CAD": 2,
	"CHF": 2,
	"CLP": 0,
	"CNY": 2,
	"CZK": 2,
	"DKK": 2,
	"EGP": 2,
	"EUR": 2,
	"GBP": 2,
	"HKD": 2,
	"HUF": 2,
	"IDR": 2,
	"ILS": 2,
	"INR": 2,
	"ISK": 0,
	"JOD": 3,
	"JPY": 0,
	"KES": 2,
	"KRW": 0,
	"KWD": 3,
	"LKR": 2,
	"MXN": 2,
	"MYR": 2,
	"NGN": 2,
	"NOK": 2,
	"NZD": 2,
	"OMR": 3,
	"PHP": 2,
	"PKR": 2,
	"PLN": 2,
	"PYG": 0,
	"RWF": 0,
	"SAR": 2,
	"SEK": 2,
	"SGD": 2,
	"THB": 2,
	"TND": 3,
	"TRY": 2,
	"TWD": 2,
	"UGX": 0,
	"USD": 2,
	"VND": 0,
	"XAF": 0,
	"XOF": 0,
	"XPF": 0,
	"ZAR": 2,
}

// Lookup resolves a currency code (case-insensitive) to its definition.
func Lookup(code string) (Currency, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	exp, ok := exponents[normalized]
	if !ok {
		return Currency{}, false
	}
	return Currency{Code: normalized, Exponent: exp}, true
}

// List returns all supported currencies sorted by code.
func List() []Currency {
	out := make([]Currency, 0, len(exponents))
	for code, exp := range exponents {
		out = append(out, Currency{Code: code, Exponent: exp})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
