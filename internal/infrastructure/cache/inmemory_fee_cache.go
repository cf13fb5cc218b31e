package cache

import (
	"context"
	"sync"
	"time"

	"github.com/kotek/backend/internal/domain/shipping"
)

// InMemoryFeeCache caches the carrier fee table in process memory.
// Suitable for single-instance deployments and tests.
type InMemoryFeeCache struct {
	provider shipping.Provider
	ttl      time.Duration

	mu        sync.RWMutex
	table     shipping.FeeTable
	fetchedAt time.Time
}

// NewInMemoryFeeCache creates an in-memory fee cache
func NewInMemoryFeeCache(provider shipping.Provider, ttl time.Duration) *InMemoryFeeCache {
	if ttl <= 0 {
		ttl = defaultFeeTTL
	}
	return &InMemoryFeeCache{
		provider: provider,
		ttl:      ttl,
	}
}

// Fees returns the cached fee table, refetching from the carrier once the
// TTL has passed
func (c *InMemoryFeeCache) Fees(ctx context.Context) (shipping.FeeTable, error) {
	c.mu.RLock()
	table, fetchedAt := c.table, c.fetchedAt
	c.mu.RUnlock()

	if table != nil && time.Since(fetchedAt) < c.ttl {
		return table, nil
	}

	fresh, err := c.provider.GetDeliveryFees(ctx)
	if err != nil {
		// serve a stale table over an error when one exists
		if table != nil {
			return table, nil
		}
		return nil, err
	}

	c.mu.Lock()
	c.table = fresh
	c.fetchedAt = time.Now()
	c.mu.Unlock()
	return fresh, nil
}

// Invalidate drops the cached table
func (c *InMemoryFeeCache) Invalidate() {
	c.mu.Lock()
	c.table = nil
	c.mu.Unlock()
}
