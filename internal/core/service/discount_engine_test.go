package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/tshirt-checkout/internal/adapter/storage"
	"github.com/rl1809/tshirt-checkout/internal/core/domain"
)

type failingCoupons struct{}

func (failingCoupons) FindCoupon(ctx context.Context, code string) (*domain.Coupon, error) {
	return nil, errDiskGone
}

func (failingCoupons) UpsertCoupon(ctx context.Context, c domain.Coupon) error {
	return errDiskGone
}

func TestSpin_WeightedTiers(t *testing.T) {
	rng := &stubRand{}
	engine, err := NewDiscountEngine(storage.NewMemoryLedger(), DefaultSpinTiers(), rng)
	require.NoError(t, err)

	tests := []struct {
		draw int
		code string
		rate string
	}{
		{0, "NONE", "0"},
		{49, "NONE", "0"},
		{50, "SPIN-5", "0.05"},
		{79, "SPIN-5", "0.05"},
		{80, "SPIN-10", "0.1"},
		{94, "SPIN-10", "0.1"},
		{95, "SPIN-20", "0.2"},
		{99, "SPIN-20", "0.2"},
	}
	for _, tt := range tests {
		rng.set(tt.draw)
		res := engine.Spin()
		assert.Equal(t, tt.code, res.Code, "draw %d", tt.draw)
		assert.Equal(t, tt.rate, res.Rate.String(), "draw %d", tt.draw)
	}
	assert.Equal(t, 100, rng.bound)
}

func TestSpin_ZeroTierIsNoDiscount(t *testing.T) {
	engine, err := NewDiscountEngine(storage.NewMemoryLedger(), DefaultSpinTiers(), &stubRand{n: 10})
	require.NoError(t, err)

	assert.Equal(t, domain.NoDiscount(), engine.Spin())
}

func TestSpin_SeededSourceIsDeterministic(t *testing.T) {
	a, err := NewDiscountEngine(storage.NewMemoryLedger(), DefaultSpinTiers(), NewSeededSource(42))
	require.NoError(t, err)
	b, err := NewDiscountEngine(storage.NewMemoryLedger(), DefaultSpinTiers(), NewSeededSource(42))
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		assert.Equal(t, a.Spin(), b.Spin())
	}
}

func TestNewDiscountEngine_RejectsBadTiers(t *testing.T) {
	coupons := storage.NewMemoryLedger()
	rng := &stubRand{}

	_, err := NewDiscountEngine(coupons, nil, rng)
	assert.Error(t, err)

	_, err = NewDiscountEngine(coupons, []SpinTier{{Rate: decimal.NewFromInt(1), Weight: 1}}, rng)
	assert.ErrorContains(t, err, "outside [0, 1)")

	_, err = NewDiscountEngine(coupons, []SpinTier{{Rate: decimal.Zero, Weight: 0}}, rng)
	assert.ErrorContains(t, err, "weight")
}

func TestResolveCoupon(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	coupons := storage.NewMemoryLedger()
	for _, c := range []domain.Coupon{
		{Code: "SAVE10", Rate: decimal.RequireFromString("0.10"), Active: true},
		{Code: "OFF", Rate: decimal.RequireFromString("0.10"), Active: false},
		{Code: "OLD", Rate: decimal.RequireFromString("0.10"), Active: true, ExpiresAt: &past},
		{Code: "SOON", Rate: decimal.RequireFromString("0.25"), Active: true, ExpiresAt: &future},
	} {
		require.NoError(t, coupons.UpsertCoupon(ctx, c))
	}

	engine, err := NewDiscountEngine(coupons, DefaultSpinTiers(), &stubRand{})
	require.NoError(t, err)
	engine.now = func() time.Time { return now }

	tests := []struct {
		code string
		want string
		rate string
	}{
		{"SAVE10", "SAVE10", "0.1"},
		{"  save10 ", "SAVE10", "0.1"},
		{"SOON", "SOON", "0.25"},
		{"OFF", "NONE", "0"},
		{"OLD", "NONE", "0"},
		{"UNKNOWN", "NONE", "0"},
		{"", "NONE", "0"},
		{"none", "NONE", "0"},
	}
	for _, tt := range tests {
		res, err := engine.ResolveCoupon(ctx, tt.code)
		require.NoError(t, err, tt.code)
		assert.Equal(t, tt.want, res.Code, tt.code)
		assert.Equal(t, tt.rate, res.Rate.String(), tt.code)
	}
}

func TestResolveCoupon_LookupFailure(t *testing.T) {
	engine, err := NewDiscountEngine(failingCoupons{}, DefaultSpinTiers(), &stubRand{})
	require.NoError(t, err)

	res, err := engine.ResolveCoupon(context.Background(), "SAVE10")
	assert.ErrorIs(t, err, domain.ErrStorageFault)
	assert.Equal(t, domain.NoDiscountCode, res.Code)

	// NONE never reaches the repository
	_, err = engine.ResolveCoupon(context.Background(), "NONE")
	assert.NoError(t, err)
}
