package port

import (
	"context"

	"github.com/rl1809/tshirt-checkout/internal/core/domain"
)

type LedgerRepository interface {
	// GetItems returns the items found among refs; missing refs are absent from the map
	GetItems(ctx context.Context, refs []domain.ItemRef) (map[domain.ItemRef]domain.InventoryItem, error)

	// DecrementStock applies guarded decrements to every line or to none
	DecrementStock(ctx context.Context, lines []domain.StockLine) error

	// CommitOrder decrements stock for every line and inserts the order with its
	// lines in one transaction; nothing persists on error
	CommitOrder(ctx context.Context, order domain.Order) error

	// GetOrder retrieves an order with its lines, nil if absent
	GetOrder(ctx context.Context, id domain.OrderID) (*domain.Order, error)
}

type CatalogRepository interface {
	// UpsertItem creates or replaces a catalog row (fixtures and catalog sync only)
	UpsertItem(ctx context.Context, item domain.InventoryItem) error
}

type CouponRepository interface {
	// FindCoupon returns the coupon for a normalized code, nil if absent
	FindCoupon(ctx context.Context, code string) (*domain.Coupon, error)

	UpsertCoupon(ctx context.Context, coupon domain.Coupon) error
}
