package storage

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rl1809/tshirt-checkout/internal/core/domain"
)

// MemoryLedger is an in-process ledger for single-binary runs and tests.
type MemoryLedger struct {
	mu      sync.RWMutex
	items   map[domain.ItemRef]domain.InventoryItem
	orders  map[domain.OrderID]domain.Order
	coupons map[string]domain.Coupon
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		items:   make(map[domain.ItemRef]domain.InventoryItem),
		orders:  make(map[domain.OrderID]domain.Order),
		coupons: make(map[string]domain.Coupon),
	}
}

func (m *MemoryLedger) GetItems(ctx context.Context, refs []domain.ItemRef) (map[domain.ItemRef]domain.InventoryItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[domain.ItemRef]domain.InventoryItem, len(refs))
	for _, ref := range refs {
		if item, ok := m.items[ref]; ok {
			out[ref] = item
		}
	}
	return out, nil
}

func (m *MemoryLedger) DecrementStock(ctx context.Context, lines []domain.StockLine) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.decrementLocked(lines)
}

func (m *MemoryLedger) CommitOrder(ctx context.Context, order domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.orders[order.ID]; exists {
		return fmt.Errorf("insert order: duplicate id %s", order.ID)
	}
	lines := make([]domain.StockLine, len(order.Lines))
	for i, l := range order.Lines {
		lines[i] = domain.StockLine{Item: l.Item, Quantity: l.Quantity}
	}
	if err := m.decrementLocked(lines); err != nil {
		return err
	}

	order.Lines = slices.Clone(order.Lines)
	m.orders[order.ID] = order
	return nil
}

// decrementLocked validates every line before touching any of them.
func (m *MemoryLedger) decrementLocked(lines []domain.StockLine) error {
	need := make(map[domain.ItemRef]int, len(lines))
	for _, l := range lines {
		need[l.Item] += l.Quantity
	}
	for _, l := range lines {
		item, ok := m.items[l.Item]
		if !ok {
			return &domain.ItemNotFoundError{Item: l.Item}
		}
		if item.Stock < need[l.Item] {
			return &domain.InsufficientStockError{Item: l.Item, Requested: need[l.Item], Available: item.Stock}
		}
	}

	now := time.Now().UTC()
	for _, l := range lines {
		item := m.items[l.Item]
		item.Stock -= l.Quantity
		item.Version++
		item.UpdatedAt = now
		m.items[l.Item] = item
	}
	return nil
}

func (m *MemoryLedger) GetOrder(ctx context.Context, id domain.OrderID) (*domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	order, ok := m.orders[id]
	if !ok {
		return nil, nil
	}
	order.Lines = slices.Clone(order.Lines)
	return &order, nil
}

// Orders lists every committed order.
func (m *MemoryLedger) Orders() []domain.Order {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Order, 0, len(m.orders))
	for _, o := range m.orders {
		o.Lines = slices.Clone(o.Lines)
		out = append(out, o)
	}
	return out
}

func (m *MemoryLedger) UpsertItem(ctx context.Context, item domain.InventoryItem) error {
	if err := item.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	// the version only moves forward, like the SQL upsert
	if cur, ok := m.items[item.Ref]; ok {
		item.Version = cur.Version
	}
	item.UpdatedAt = time.Now().UTC()
	m.items[item.Ref] = item
	return nil
}

func (m *MemoryLedger) FindCoupon(ctx context.Context, code string) (*domain.Coupon, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.coupons[code]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *MemoryLedger) UpsertCoupon(ctx context.Context, coupon domain.Coupon) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.coupons[coupon.Code] = coupon
	return nil
}
