package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rl1809/tshirt-checkout/internal/core/domain"
	"github.com/rl1809/tshirt-checkout/internal/port"
)

// Dispatcher drains placed orders: it mirrors the touched stock levels into
// the cache and announces the order. Nothing here writes to the ledger.
type Dispatcher struct {
	store   *InventoryStore
	cache   port.CacheRepository
	events  port.EventPublisher
	log     *slog.Logger
	timeout time.Duration
}

// NewDispatcher accepts a nil publisher when no broker is configured.
func NewDispatcher(store *InventoryStore, cache port.CacheRepository, events port.EventPublisher, log *slog.Logger) *Dispatcher {
	return &Dispatcher{
		store:   store,
		cache:   cache,
		events:  events,
		log:     log,
		timeout: 5 * time.Second,
	}
}

// Start runs workers until queue is closed and drained. The returned func
// blocks until they exit.
func (d *Dispatcher) Start(workers int, queue <-chan domain.Order) (wait func()) {
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			d.workerLoop(id, queue)
		}(i)
	}
	d.log.Info("dispatcher started", "workers", workers)
	return wg.Wait
}

func (d *Dispatcher) workerLoop(id int, queue <-chan domain.Order) {
	for order := range queue {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		d.handle(ctx, id, order)
		cancel()
	}
}

func (d *Dispatcher) handle(ctx context.Context, worker int, order domain.Order) {
	refs := make([]domain.ItemRef, len(order.Lines))
	for i, l := range order.Lines {
		refs[i] = l.Item
	}
	items, err := d.store.Snapshot(ctx, refs)
	if err != nil {
		d.log.Error("read stock for mirror", "worker", worker, "order_id", order.ID, "err", err)
	}
	for _, ref := range refs {
		item, ok := items[ref]
		if !ok {
			continue
		}
		if _, err := d.cache.SetStock(ctx, ref, item.Stock, item.Version); err != nil {
			d.log.Error("mirror stock", "worker", worker, "order_id", order.ID, "item", ref, "err", err)
		}
	}

	if d.events == nil {
		return
	}
	if err := d.events.PublishOrderPlaced(ctx, order); err != nil {
		d.log.Error("publish order placed", "worker", worker, "order_id", order.ID, "err", err)
		return
	}
	d.log.Debug("order published", "worker", worker, "order_id", order.ID)
}
