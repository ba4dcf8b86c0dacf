package port

import (
	"context"

	"github.com/rl1809/tshirt-checkout/internal/core/domain"
)

type CacheRepository interface {
	// SetStock mirrors the stock level of an item observed at version; an older
	// version never overwrites a newer one. Returns false when skipped
	SetStock(ctx context.Context, item domain.ItemRef, quantity, version int) (bool, error)

	// GetStock returns the mirrored stock level, false if never mirrored
	GetStock(ctx context.Context, item domain.ItemRef) (int, bool, error)

	// SetIdempotency sets a key for idempotency check, returns false if already exists
	SetIdempotency(ctx context.Context, key string) (bool, error)

	// ReleaseIdempotency removes a key so a failed request can be resubmitted
	ReleaseIdempotency(ctx context.Context, key string) error
}
