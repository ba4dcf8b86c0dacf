package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/tshirt-checkout/internal/core/domain"
	"github.com/rl1809/tshirt-checkout/internal/port"
)

type StoreConfig struct {
	LockTimeout  time.Duration
	LockRetries  int
	RetryBackoff time.Duration
}

func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		LockTimeout:  30 * time.Second,
		LockRetries:  1,
		RetryBackoff: 50 * time.Millisecond,
	}
}

// InventoryStore serializes every mutation behind one writer lock. Reads share
// an RWMutex with the writer, so they run together but wait behind a commit.
type InventoryStore struct {
	ledger port.LedgerRepository
	lock   writerLock
	mu     sync.RWMutex
	log    *slog.Logger
}

func NewInventoryStore(ledger port.LedgerRepository, cfg StoreConfig, log *slog.Logger) *InventoryStore {
	return &InventoryStore{
		ledger: ledger,
		lock:   withRetry(newSemaphoreLock(cfg.LockTimeout), cfg.LockRetries, cfg.RetryBackoff),
		log:    log,
	}
}

// Snapshot reads refs consistently. Unknown refs are reported as ItemNotFoundError.
func (s *InventoryStore) Snapshot(ctx context.Context, refs []domain.ItemRef) (map[domain.ItemRef]domain.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items, err := s.ledger.GetItems(ctx, refs)
	if err != nil {
		return nil, storageFault("read items", err)
	}
	for _, ref := range refs {
		if _, ok := items[ref]; !ok {
			return nil, &domain.ItemNotFoundError{Item: ref}
		}
	}
	return items, nil
}

func (s *InventoryStore) GetStock(ctx context.Context, ref domain.ItemRef) (int, error) {
	items, err := s.Snapshot(ctx, []domain.ItemRef{ref})
	if err != nil {
		return 0, err
	}
	return items[ref].Stock, nil
}

// CurrentStock is the catalog-facing name of GetStock.
func (s *InventoryStore) CurrentStock(ctx context.Context, ref domain.ItemRef) (int, error) {
	return s.GetStock(ctx, ref)
}

func (s *InventoryStore) CurrentPrice(ctx context.Context, ref domain.ItemRef) (decimal.Decimal, error) {
	items, err := s.Snapshot(ctx, []domain.ItemRef{ref})
	if err != nil {
		return decimal.Zero, err
	}
	return items[ref].UnitPrice, nil
}

func (s *InventoryStore) GetOrder(ctx context.Context, id domain.OrderID) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, err := s.ledger.GetOrder(ctx, id)
	if err != nil {
		return nil, storageFault("read order", err)
	}
	return order, nil
}

// ReserveAndDecrement decrements every line or none of them.
func (s *InventoryStore) ReserveAndDecrement(ctx context.Context, lines []domain.StockLine) error {
	return s.WithWriteLock(ctx, func(tx *StoreTx) error {
		items, err := tx.Items(stockRefs(lines))
		if err != nil {
			return err
		}
		if err := verifyStock(lines, items); err != nil {
			return err
		}
		return tx.Decrement(lines)
	})
}

// WithWriteLock runs fn as the only writer. Once the lock is held fn runs on a
// context detached from the caller, so a commit cannot be cancelled halfway.
func (s *InventoryStore) WithWriteLock(ctx context.Context, fn func(tx *StoreTx) error) error {
	if err := s.lock.Acquire(ctx); err != nil {
		if errors.Is(err, domain.ErrBusy) {
			s.log.Warn("inventory writer lock timed out")
		}
		return err
	}
	defer s.lock.Release()

	s.mu.Lock()
	defer s.mu.Unlock()

	return fn(&StoreTx{ctx: context.WithoutCancel(ctx), ledger: s.ledger})
}

// StoreTx is the store as seen by the current writer.
type StoreTx struct {
	ctx    context.Context
	ledger port.LedgerRepository
}

func (tx *StoreTx) Items(refs []domain.ItemRef) (map[domain.ItemRef]domain.InventoryItem, error) {
	items, err := tx.ledger.GetItems(tx.ctx, refs)
	if err != nil {
		return nil, storageFault("read items", err)
	}
	return items, nil
}

func (tx *StoreTx) Decrement(lines []domain.StockLine) error {
	if err := tx.ledger.DecrementStock(tx.ctx, lines); err != nil {
		return ledgerError("decrement stock", err)
	}
	return nil
}

func (tx *StoreTx) Commit(order domain.Order) error {
	if err := tx.ledger.CommitOrder(tx.ctx, order); err != nil {
		return ledgerError("commit order", err)
	}
	return nil
}

// verifyStock reports the first line, in order, that cannot be served.
func verifyStock(lines []domain.StockLine, items map[domain.ItemRef]domain.InventoryItem) error {
	for _, l := range lines {
		item, ok := items[l.Item]
		if !ok {
			return &domain.ItemNotFoundError{Item: l.Item}
		}
		if item.Stock < l.Quantity {
			return &domain.InsufficientStockError{Item: l.Item, Requested: l.Quantity, Available: item.Stock}
		}
	}
	return nil
}

func stockRefs(lines []domain.StockLine) []domain.ItemRef {
	refs := make([]domain.ItemRef, len(lines))
	for i, l := range lines {
		refs[i] = l.Item
	}
	return refs
}

// ledgerError keeps business outcomes reported by the ledger's own guards and
// turns everything else into a storage fault.
func ledgerError(op string, err error) error {
	if errors.Is(err, domain.ErrInsufficientStock) || errors.Is(err, domain.ErrItemNotFound) {
		return err
	}
	return storageFault(op, err)
}

func storageFault(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrStorageFault, op, err)
}
