package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/tshirt-checkout/internal/core/domain"
	"github.com/rl1809/tshirt-checkout/internal/port"
)

var ErrInvalidDiscount = errors.New("invalid discount rate")

type PlaceOrderRequest struct {
	// RequestID makes a submission idempotent; empty disables the check
	RequestID   string
	CustomerRef string
	Lines       []domain.CartLine
	Discount    domain.DiscountResult
	Shipping    domain.ShippingInfo
}

// OrderService is the only writer of stock and orders.
type OrderService struct {
	store *InventoryStore
	cache port.CacheRepository
	log   *slog.Logger

	now   func() time.Time
	newID func() domain.OrderID

	mu         sync.Mutex
	closed     bool
	orderQueue chan domain.Order
}

func NewOrderService(store *InventoryStore, cache port.CacheRepository, queueSize int, log *slog.Logger) *OrderService {
	return &OrderService{
		store:      store,
		cache:      cache,
		log:        log,
		now:        time.Now,
		newID:      func() domain.OrderID { return domain.OrderID(uuid.NewString()) },
		orderQueue: make(chan domain.Order, queueSize),
	}
}

func (s *OrderService) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*domain.Order, error) {
	lines, err := domain.NormalizeCart(req.Lines)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, domain.ErrEmptyCart
	}
	if !domain.ValidRate(req.Discount.Rate) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidDiscount, req.Discount.Rate)
	}

	idempotencyKey := ""
	if req.RequestID != "" {
		idempotencyKey = "order:" + req.RequestID
		ok, err := s.cache.SetIdempotency(ctx, idempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("idempotency check failed: %w", err)
		}
		if !ok {
			return nil, domain.ErrDuplicateRequest
		}
	}

	order, err := s.commit(ctx, req, lines)
	if err != nil {
		if idempotencyKey != "" {
			if relErr := s.cache.ReleaseIdempotency(context.WithoutCancel(ctx), idempotencyKey); relErr != nil {
				s.log.Error("release idempotency key", "key", idempotencyKey, "err", relErr)
			}
		}
		s.logFailure(req, err)
		return nil, err
	}

	s.log.Info("order placed",
		"order_id", order.ID,
		"customer", order.CustomerRef,
		"subtotal", order.Subtotal.StringFixed(2),
		"discount_code", order.DiscountCode,
		"final_total", order.FinalTotal.StringFixed(2),
	)
	s.enqueue(order)

	return &order, nil
}

func (s *OrderService) commit(ctx context.Context, req PlaceOrderRequest, lines []domain.CartLine) (domain.Order, error) {
	refs := domain.CartRefs(lines)

	// Prices come from the catalog, never from the cart.
	priced, err := s.store.Snapshot(ctx, refs)
	if err != nil {
		return domain.Order{}, err
	}

	stock := make([]domain.StockLine, len(lines))
	for i, l := range lines {
		stock[i] = domain.StockLine{Item: l.Item, Quantity: l.Quantity}
	}

	var order domain.Order
	err = s.store.WithWriteLock(ctx, func(tx *StoreTx) error {
		items, err := tx.Items(refs)
		if err != nil {
			return err
		}
		if err := verifyStock(stock, items); err != nil {
			return err
		}

		orderLines := make([]domain.OrderLine, len(lines))
		for i, l := range lines {
			orderLines[i] = domain.OrderLine{
				Item:            l.Item,
				Quantity:        l.Quantity,
				UnitPriceAtSale: priced[l.Item].UnitPrice,
				UnitCostAtSale:  items[l.Item].UnitCost,
			}
		}
		order = domain.NewOrder(s.newID(), req.CustomerRef, orderLines, req.Discount, req.Shipping.Address, s.now())

		return tx.Commit(order)
	})
	return order, err
}

func (s *OrderService) GetOrder(ctx context.Context, id domain.OrderID) (*domain.Order, error) {
	return s.store.GetOrder(ctx, id)
}

func (s *OrderService) logFailure(req PlaceOrderRequest, err error) {
	switch {
	case errors.Is(err, domain.ErrStorageFault):
		s.log.Error("order commit rolled back", "customer", req.CustomerRef, "request_id", req.RequestID, "err", err)
	case errors.Is(err, domain.ErrBusy):
		s.log.Warn("order rejected, inventory busy", "customer", req.CustomerRef, "request_id", req.RequestID)
	default:
		s.log.Info("order rejected", "customer", req.CustomerRef, "request_id", req.RequestID, "reason", err)
	}
}

// enqueue hands a placed order to the dispatcher without blocking checkout.
func (s *OrderService) enqueue(order domain.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	select {
	case s.orderQueue <- order:
	default:
		s.log.Warn("order queue full, notification dropped", "order_id", order.ID)
	}
}

func (s *OrderService) GetOrderQueue() <-chan domain.Order {
	return s.orderQueue
}

func (s *OrderService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.orderQueue)
	}
}
