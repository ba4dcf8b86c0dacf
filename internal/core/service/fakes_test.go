package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/tshirt-checkout/internal/adapter/storage"
	"github.com/rl1809/tshirt-checkout/internal/core/domain"
	"github.com/rl1809/tshirt-checkout/internal/logging"
)

var errDiskGone = errors.New("disk gone")

func tee(ref domain.ItemRef, stock int) domain.InventoryItem {
	return domain.InventoryItem{
		Ref:        ref,
		ProductRef: "classic-tee",
		Size:       "M",
		UnitPrice:  decimal.RequireFromString("25.00"),
		UnitCost:   decimal.RequireFromString("10.00"),
		Stock:      stock,
	}
}

func newLedger(t *testing.T, items ...domain.InventoryItem) *storage.MemoryLedger {
	t.Helper()
	ledger := storage.NewMemoryLedger()
	for _, item := range items {
		require.NoError(t, ledger.UpsertItem(context.Background(), item))
	}
	return ledger
}

func fastStoreConfig() StoreConfig {
	return StoreConfig{LockTimeout: time.Second, LockRetries: 0}
}

func stockOf(t *testing.T, store *InventoryStore, ref domain.ItemRef) int {
	t.Helper()
	n, err := store.GetStock(context.Background(), ref)
	require.NoError(t, err)
	return n
}

// faultyLedger fails writes with err while it is set.
type faultyLedger struct {
	*storage.MemoryLedger

	mu  sync.Mutex
	err error
}

func (f *faultyLedger) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *faultyLedger) fault() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *faultyLedger) DecrementStock(ctx context.Context, lines []domain.StockLine) error {
	if err := f.fault(); err != nil {
		return err
	}
	return f.MemoryLedger.DecrementStock(ctx, lines)
}

func (f *faultyLedger) CommitOrder(ctx context.Context, order domain.Order) error {
	if err := f.fault(); err != nil {
		return err
	}
	return f.MemoryLedger.CommitOrder(ctx, order)
}

// blockingLedger parks CommitOrder until release is closed.
type blockingLedger struct {
	*storage.MemoryLedger
	entered chan struct{}
	release chan struct{}
}

func newBlockingLedger(base *storage.MemoryLedger) *blockingLedger {
	return &blockingLedger{MemoryLedger: base, entered: make(chan struct{}, 1), release: make(chan struct{})}
}

func (b *blockingLedger) CommitOrder(ctx context.Context, order domain.Order) error {
	b.entered <- struct{}{}
	<-b.release
	return b.MemoryLedger.CommitOrder(ctx, order)
}

// countingLock reports ErrBusy for the first busy acquisitions.
type countingLock struct {
	mu       sync.Mutex
	busy     int
	calls    int
	released int
}

func (l *countingLock) Acquire(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.calls <= l.busy {
		return domain.ErrBusy
	}
	return nil
}

func (l *countingLock) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.released++
}

// stubRand returns n for every draw and records the bound it was asked for.
type stubRand struct {
	mu    sync.Mutex
	n     int
	bound int
}

func (s *stubRand) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bound = n
	return s.n
}

func (s *stubRand) set(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n = n
}

type recordingPublisher struct {
	mu     sync.Mutex
	orders []domain.Order
	err    error
}

func (p *recordingPublisher) PublishOrderPlaced(ctx context.Context, order domain.Order) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.orders = append(p.orders, order)
	return nil
}

func (p *recordingPublisher) published() []domain.Order {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.Order(nil), p.orders...)
}

func newOrderService(t *testing.T, store *InventoryStore, cache *storage.MemoryCache, drain bool) *OrderService {
	t.Helper()
	svc := NewOrderService(store, cache, 100, logging.Discard())
	t.Cleanup(svc.Close)
	if drain {
		go func() {
			for range svc.GetOrderQueue() {
			}
		}()
	}
	return svc
}
