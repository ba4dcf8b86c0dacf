package storage

import (
	"context"
	"sync"

	"github.com/rl1809/tshirt-checkout/internal/core/domain"
)

type mirroredStock struct {
	quantity int
	version  int
}

// MemoryCache stands in for Redis when no address is configured.
// Idempotency keys never expire.
type MemoryCache struct {
	mu    sync.Mutex
	stock map[domain.ItemRef]mirroredStock
	keys  map[string]struct{}
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		stock: make(map[domain.ItemRef]mirroredStock),
		keys:  make(map[string]struct{}),
	}
}

func (c *MemoryCache) SetStock(ctx context.Context, item domain.ItemRef, quantity, version int) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cur, ok := c.stock[item]; ok && cur.version >= version {
		return false, nil
	}
	c.stock[item] = mirroredStock{quantity: quantity, version: version}
	return true, nil
}

func (c *MemoryCache) GetStock(ctx context.Context, item domain.ItemRef) (int, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur, ok := c.stock[item]
	return cur.quantity, ok, nil
}

func (c *MemoryCache) SetIdempotency(ctx context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.keys[key]; ok {
		return false, nil
	}
	c.keys[key] = struct{}{}
	return true, nil
}

func (c *MemoryCache) ReleaseIdempotency(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.keys, key)
	return nil
}
