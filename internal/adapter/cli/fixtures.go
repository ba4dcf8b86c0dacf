package cli

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rl1809/tshirt-checkout/internal/core/domain"
	"github.com/rl1809/tshirt-checkout/internal/port"
)

type catalogSeeder interface {
	port.CatalogRepository
	port.CouponRepository
}

var demoItems = []domain.InventoryItem{
	{Ref: "TEE-M", ProductRef: "Basic Tee", Size: "M", UnitPrice: decimal.RequireFromString("25.00"), UnitCost: decimal.RequireFromString("10.00"), Stock: 5},
	{Ref: "NAVY-TEE-M", ProductRef: "Classic Navy Tee", Size: "M", UnitPrice: decimal.RequireFromString("24.99"), UnitCost: decimal.RequireFromString("9.80"), Stock: 40},
	{Ref: "VNECK-S", ProductRef: "Summer V-Neck", Size: "S", UnitPrice: decimal.RequireFromString("19.50"), UnitCost: decimal.RequireFromString("7.25"), Stock: 30},
	{Ref: "HOODIE-L", ProductRef: "Oversized Black Hoodie", Size: "L", UnitPrice: decimal.RequireFromString("49.99"), UnitCost: decimal.RequireFromString("21.00"), Stock: 15},
	{Ref: "STRIPED-XL", ProductRef: "Striped Casual Shirt", Size: "XL", UnitPrice: decimal.RequireFromString("35.00"), UnitCost: decimal.RequireFromString("14.50"), Stock: 20},
}

var demoCoupons = []domain.Coupon{
	{Code: "SAVE10", Rate: decimal.RequireFromString("0.10"), Active: true},
	{Code: "WELCOME15", Rate: decimal.RequireFromString("0.15"), Active: true},
	{Code: "SUMMER20", Rate: decimal.RequireFromString("0.20"), Active: false},
}

// seedCatalog writes the demo items and coupons. Existing rows are
// overwritten, so running it twice restores the demo stock.
func seedCatalog(ctx context.Context, repo catalogSeeder) (int, error) {
	for _, item := range demoItems {
		if err := repo.UpsertItem(ctx, item); err != nil {
			return 0, fmt.Errorf("seed item %s: %w", item.Ref, err)
		}
	}
	for _, c := range demoCoupons {
		if err := repo.UpsertCoupon(ctx, c); err != nil {
			return 0, fmt.Errorf("seed coupon %s: %w", c.Code, err)
		}
	}
	return len(demoItems) + len(demoCoupons), nil
}
