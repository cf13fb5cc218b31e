// Package cache holds the caching layer in front of slow carrier lookups.
// The delivery fee table changes rarely but is needed on every address
// selection, so it is cached aggressively.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kotek/backend/internal/domain/shipping"
)

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// defaultFeeTTL is how long a fetched fee table stays fresh
const defaultFeeTTL = 24 * time.Hour

// feeTableKey is the Redis key the serialized fee table lives under
const feeTableKey = "noest:fees"

// RedisFeeCache caches the carrier fee table in Redis, suitable for
// distributed deployments where multiple instances share the cache.
// On a miss or a Redis outage it falls through to the carrier API.
type RedisFeeCache struct {
	client   *redis.Client
	provider shipping.Provider
	ttl      time.Duration
}

// NewRedisFeeCache creates a fee cache backed by a new Redis connection
func NewRedisFeeCache(cfg RedisConfig, provider shipping.Provider) (*RedisFeeCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisFeeCache{
		client:   client,
		provider: provider,
		ttl:      defaultFeeTTL,
	}, nil
}

// NewRedisFeeCacheWithClient creates a fee cache with an existing Redis
// client, useful for testing or when sharing a client across components
func NewRedisFeeCacheWithClient(client *redis.Client, provider shipping.Provider, ttl time.Duration) *RedisFeeCache {
	if ttl <= 0 {
		ttl = defaultFeeTTL
	}
	return &RedisFeeCache{
		client:   client,
		provider: provider,
		ttl:      ttl,
	}
}

// Fees returns the carrier fee table, from Redis when fresh, from the
// carrier otherwise. A Redis read failure degrades to a carrier fetch
// rather than failing the caller.
func (c *RedisFeeCache) Fees(ctx context.Context) (shipping.FeeTable, error) {
	cached, err := c.client.Get(ctx, feeTableKey).Bytes()
	if err == nil {
		var table shipping.FeeTable
		if jsonErr := json.Unmarshal(cached, &table); jsonErr == nil && len(table) > 0 {
			return table, nil
		}
	} else if !errors.Is(err, redis.Nil) && ctx.Err() != nil {
		return nil, ctx.Err()
	}

	table, err := c.provider.GetDeliveryFees(ctx)
	if err != nil {
		return nil, err
	}

	if encoded, jsonErr := json.Marshal(table); jsonErr == nil {
		// best effort, a failed write only costs the next caller a fetch
		c.client.Set(ctx, feeTableKey, encoded, c.ttl)
	}
	return table, nil
}

// Invalidate drops the cached table so the next caller refetches
func (c *RedisFeeCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, feeTableKey).Err()
}

// Close closes the Redis client
func (c *RedisFeeCache) Close() error {
	return c.client.Close()
}
