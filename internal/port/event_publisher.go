package port

import (
	"context"

	"github.com/rl1809/tshirt-checkout/internal/core/domain"
)

type EventPublisher interface {
	// PublishOrderPlaced announces a committed order to downstream consumers
	PublishOrderPlaced(ctx context.Context, order domain.Order) error
}
