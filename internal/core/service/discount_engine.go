package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/tshirt-checkout/internal/core/domain"
	"github.com/rl1809/tshirt-checkout/internal/port"
)

// RandomSource drives the spin. *rand.Rand from math/rand/v2 satisfies it.
type RandomSource interface {
	IntN(n int) int
}

func NewSeededSource(seed uint64) RandomSource {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

type SpinTier struct {
	Rate   decimal.Decimal
	Weight int
}

func DefaultSpinTiers() []SpinTier {
	return []SpinTier{
		{Rate: decimal.Zero, Weight: 50},
		{Rate: decimal.RequireFromString("0.05"), Weight: 30},
		{Rate: decimal.RequireFromString("0.10"), Weight: 15},
		{Rate: decimal.RequireFromString("0.20"), Weight: 5},
	}
}

type DiscountEngine struct {
	coupons port.CouponRepository
	tiers   []SpinTier
	total   int
	now     func() time.Time

	mu  sync.Mutex
	rng RandomSource
}

func NewDiscountEngine(coupons port.CouponRepository, tiers []SpinTier, rng RandomSource) (*DiscountEngine, error) {
	if len(tiers) == 0 {
		return nil, fmt.Errorf("spin tiers: at least one tier required")
	}
	total := 0
	for i, t := range tiers {
		if !domain.ValidRate(t.Rate) {
			return nil, fmt.Errorf("spin tier %d: rate %s outside [0, 1)", i, t.Rate)
		}
		if t.Weight <= 0 {
			return nil, fmt.Errorf("spin tier %d: weight must be positive", i)
		}
		total += t.Weight
	}
	return &DiscountEngine{
		coupons: coupons,
		tiers:   append([]SpinTier(nil), tiers...),
		total:   total,
		now:     time.Now,
		rng:     rng,
	}, nil
}

// ResolveCoupon never fails on an unusable code: it resolves to NONE. Only a
// failing coupon lookup is an error.
func (e *DiscountEngine) ResolveCoupon(ctx context.Context, code string) (domain.DiscountResult, error) {
	code = NormalizeCouponCode(code)
	if code == "" || code == domain.NoDiscountCode {
		return domain.NoDiscount(), nil
	}

	coupon, err := e.coupons.FindCoupon(ctx, code)
	if err != nil {
		return domain.NoDiscount(), storageFault("find coupon", err)
	}
	if coupon == nil || !coupon.Redeemable(e.now()) {
		return domain.NoDiscount(), nil
	}

	return domain.DiscountResult{Rate: coupon.Rate, Code: coupon.Code, Source: domain.DiscountSourceCoupon}, nil
}

// Spin draws one tier from the weighted distribution.
func (e *DiscountEngine) Spin() domain.DiscountResult {
	e.mu.Lock()
	n := e.rng.IntN(e.total)
	e.mu.Unlock()

	tier := e.tiers[len(e.tiers)-1]
	for _, t := range e.tiers {
		if n < t.Weight {
			tier = t
			break
		}
		n -= t.Weight
	}

	if tier.Rate.IsZero() {
		return domain.NoDiscount()
	}
	return domain.DiscountResult{
		Rate:   tier.Rate,
		Code:   "SPIN-" + tier.Rate.Shift(2).String(),
		Source: domain.DiscountSourceSpin,
	}
}

func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
