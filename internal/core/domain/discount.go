package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const NoDiscountCode = "NONE"

type DiscountSource string

const (
	DiscountSourceNone   DiscountSource = "none"
	DiscountSourceCoupon DiscountSource = "coupon"
	DiscountSourceSpin   DiscountSource = "spin"
)

// DiscountResult is resolved once per checkout attempt and never mutated.
type DiscountResult struct {
	Rate   decimal.Decimal
	Code   string
	Source DiscountSource
}

func NoDiscount() DiscountResult {
	return DiscountResult{Rate: decimal.Zero, Code: NoDiscountCode, Source: DiscountSourceNone}
}

// ValidRate reports whether rate lies in [0, 1).
func ValidRate(rate decimal.Decimal) bool {
	return !rate.IsNegative() && rate.LessThan(decimal.NewFromInt(1))
}

type Coupon struct {
	Code      string
	Rate      decimal.Decimal
	Active    bool
	ExpiresAt *time.Time
}

// Redeemable reports whether the coupon can be applied at now.
func (c Coupon) Redeemable(now time.Time) bool {
	if !c.Active || !ValidRate(c.Rate) {
		return false
	}
	if c.ExpiresAt != nil && !now.Before(*c.ExpiresAt) {
		return false
	}
	return true
}
