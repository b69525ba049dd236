package invoice

import (
	"fmt"
	"reflect"
	"strings"

	validator "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/invoice-api/internal/currency"
)

// FieldError describes a single validation violation.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError aggregates every violation found in a request. Violations
// are collected exhaustively so callers can fix all problems in one round
// trip.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return "invalid request"
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Reason)
	}
	return "invalid request: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, reason string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Reason: reason})
}

// Validator normalizes raw requests and enforces structural and business
// rules. It is safe for concurrent use.
type Validator struct {
	validate     *validator.Validate
	maxLineItems int
}

// NewValidator constructs a Validator with the given upper bound on line
// item count. A non-positive bound disables the check.
func NewValidator(maxLineItems int) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{validate: v, maxLineItems: maxLineItems}
}

var one = decimal.NewFromInt(1)

// Validate checks the raw request and returns its normalized form, or a
// *ValidationError listing every violation found.
func (v *Validator) Validate(req Request) (NormalizedRequest, error) {
	verr := &ValidationError{}

	if err := v.validate.Struct(req); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range fieldErrs {
				verr.add(fieldPath(fe), tagReason(fe))
			}
		} else {
			verr.add("request", err.Error())
		}
	}

	cur, curOK := currency.Lookup(req.Currency)
	if req.Currency != "" && !curOK {
		verr.add("currency", "unrecognized currency code")
	}

	if v.maxLineItems > 0 && len(req.LineItems) > v.maxLineItems {
		verr.add("lineItems", fmt.Sprintf("must not exceed %d items", v.maxLineItems))
	}

	items := make([]LineItem, 0, len(req.LineItems))
	for i, li := range req.LineItems {
		prefix := fmt.Sprintf("lineItems[%d]", i)
		description := strings.TrimSpace(li.Description)
		if description == "" {
			verr.add(prefix+".description", "must not be empty")
		}
		if !li.Quantity.IsPositive() {
			verr.add(prefix+".quantity", "must be greater than zero")
		}
		if li.UnitPrice.IsNegative() {
			verr.add(prefix+".unitPrice", "must not be negative")
		}
		var category *string
		if li.TaxCategory != nil {
			if trimmed := strings.TrimSpace(*li.TaxCategory); trimmed != "" {
				category = &trimmed
			}
		}
		items = append(items, LineItem{
			Description: description,
			Quantity:    li.Quantity,
			UnitPrice:   li.UnitPrice,
			TaxCategory: category,
		})
	}

	discount := v.normalizeDiscount(req.Discount, verr)
	tax := v.normalizeTax(req.Tax, verr)
	shipping := v.normalizeShipping(req.Shipping, verr)

	if len(verr.Fields) > 0 {
		return NormalizedRequest{}, verr
	}
	return NormalizedRequest{
		Currency:  cur,
		LineItems: items,
		Discount:  discount,
		Tax:       tax,
		Shipping:  shipping,
	}, nil
}

func (v *Validator) normalizeDiscount(in *DiscountInput, verr *ValidationError) DiscountPolicy {
	if in == nil {
		return DiscountPolicy{Kind: DiscountNone}
	}
	switch in.Type {
	case DiscountNone, "":
		return DiscountPolicy{Kind: DiscountNone}
	case DiscountPercentage:
		if in.Rate == nil {
			verr.add("discount.rate", "is required for percentage discounts")
			return DiscountPolicy{Kind: DiscountPercentage}
		}
		if !rateInRange(*in.Rate) {
			verr.add("discount.rate", "must be between 0 and 1")
		}
		return DiscountPolicy{Kind: DiscountPercentage, Rate: *in.Rate}
	case DiscountFixedAmount:
		if in.Value == nil {
			verr.add("discount.value", "is required for fixed amount discounts")
			return DiscountPolicy{Kind: DiscountFixedAmount}
		}
		if in.Value.IsNegative() {
			verr.add("discount.value", "must not be negative")
		}
		return DiscountPolicy{Kind: DiscountFixedAmount, Value: *in.Value}
	default:
		verr.add("discount.type", "must be one of none, percentage, fixed_amount")
		return DiscountPolicy{Kind: DiscountNone}
	}
}

func (v *Validator) normalizeTax(in *TaxInput, verr *ValidationError) TaxPolicy {
	if in == nil {
		return TaxPolicy{Kind: TaxFlat, Mode: TaxExclusive}
	}
	mode := strings.TrimSpace(in.Mode)
	switch mode {
	case "":
		mode = TaxExclusive
	case TaxExclusive, TaxInclusive:
	default:
		verr.add("tax.mode", "must be exclusive or inclusive")
		mode = TaxExclusive
	}
	policy := TaxPolicy{Mode: mode, TaxShipping: in.TaxShipping}
	switch in.Type {
	case TaxFlat, "":
		policy.Kind = TaxFlat
		if in.Rate != nil {
			if !rateInRange(*in.Rate) {
				verr.add("tax.rate", "must be between 0 and 1")
			}
			policy.Rate = *in.Rate
		}
	case TaxPerCategory:
		policy.Kind = TaxPerCategory
		rates := make(map[string]decimal.Decimal, len(in.Rates))
		for key, rate := range in.Rates {
			name := strings.TrimSpace(key)
			if name == "" {
				verr.add("tax.rates", "mapping keys must not be empty")
				continue
			}
			if !rateInRange(rate) {
				verr.add("tax.rates."+name, "must be between 0 and 1")
			}
			rates[name] = rate
		}
		policy.Rates = rates
		if in.DefaultRate != nil {
			if !rateInRange(*in.DefaultRate) {
				verr.add("tax.defaultRate", "must be between 0 and 1")
			}
			policy.DefaultRate = *in.DefaultRate
		}
	default:
		verr.add("tax.type", "must be flat or per_category")
		policy.Kind = TaxFlat
	}
	return policy
}

func (v *Validator) normalizeShipping(in *ShippingInput, verr *ValidationError) ShippingPolicy {
	if in == nil {
		return ShippingPolicy{Kind: ShippingNone}
	}
	switch in.Type {
	case ShippingNone, "":
		return ShippingPolicy{Kind: ShippingNone}
	case ShippingFixedAmount:
		if in.Amount == nil {
			verr.add("shipping.amount", "is required for fixed amount shipping")
			return ShippingPolicy{Kind: ShippingFixedAmount}
		}
		if in.Amount.IsNegative() {
			verr.add("shipping.amount", "must not be negative")
		}
		return ShippingPolicy{Kind: ShippingFixedAmount, Amount: *in.Amount}
	default:
		verr.add("shipping.type", "must be none or fixed_amount")
		return ShippingPolicy{Kind: ShippingNone}
	}
}

func rateInRange(rate decimal.Decimal) bool {
	return !rate.IsNegative() && rate.LessThanOrEqual(one)
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return ns
}

func tagReason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must contain at least " + fe.Param() + " item"
	default:
		return "failed validation rule " + fe.Tag()
	}
}
