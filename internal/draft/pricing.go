package draft

import "github.com/shopspring/decimal"

// Pricing holds the rates applied to a draft. Rates are fractions:
// 0.07 is seven percent.
type Pricing struct {
	TaxRate      decimal.Decimal
	DiscountRate decimal.Decimal
}

func DefaultPricing() Pricing {
	return NewPricing(0.07, 0.10)
}

func NewPricing(taxRate float64, discountRate float64) Pricing {
	return Pricing{
		TaxRate:      decimal.NewFromFloat(taxRate),
		DiscountRate: decimal.NewFromFloat(discountRate),
	}
}

// Totals of a draft in cents. Discount is a client-side preview of a
// flat coupon rate, so Estimated is set whenever a discount is shown;
// the backend decides the real discount at finalize.
type Totals struct {
	SubtotalCents int64
	TaxCents      int64
	DiscountCents int64
	TotalCents    int64
	Estimated     bool
}

func (p Pricing) Compute(subtotalCents int64, couponApplied bool) Totals {
	t := Totals{
		SubtotalCents: subtotalCents,
		TaxCents:      applyRate(subtotalCents, p.TaxRate),
	}
	if couponApplied {
		t.DiscountCents = applyRate(subtotalCents, p.DiscountRate)
		t.Estimated = true
	}
	t.TotalCents = t.SubtotalCents + t.TaxCents - t.DiscountCents
	return t
}

// applyRate rounds half away from zero to whole cents.
func applyRate(cents int64, rate decimal.Decimal) int64 {
	return decimal.NewFromInt(cents).Mul(rate).Round(0).IntPart()
}
