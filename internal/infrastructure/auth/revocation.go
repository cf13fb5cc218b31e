package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenRevoker invalidates issued tokens before their natural expiration,
// for example when a back-office user logs out.
type TokenRevoker interface {
	// Revoke marks a token's JTI as revoked. ttl should be the remaining
	// time until the token expires.
	Revoke(ctx context.Context, jti string, ttl time.Duration) error

	// IsRevoked reports whether a token's JTI has been revoked.
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

const revocationKeyPrefix = "token:revoked:"

// RedisTokenRevoker implements TokenRevoker using Redis
type RedisTokenRevoker struct {
	client *redis.Client
}

// NewRedisTokenRevoker creates a token revoker with an existing Redis client
func NewRedisTokenRevoker(client *redis.Client) *RedisTokenRevoker {
	return &RedisTokenRevoker{client: client}
}

func (r *RedisTokenRevoker) key(jti string) string {
	return revocationKeyPrefix + jti
}

// Revoke marks a token's JTI as revoked with a TTL matching its remaining life
func (r *RedisTokenRevoker) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.key(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether a token's JTI has been revoked
func (r *RedisTokenRevoker) IsRevoked(ctx context.Context, jti string) (bool, error) {
	exists, err := r.client.Exists(ctx, r.key(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	return exists > 0, nil
}

var _ TokenRevoker = (*RedisTokenRevoker)(nil)

// InMemoryTokenRevoker provides an in-memory implementation for tests and
// single-instance deployments.
type InMemoryTokenRevoker struct {
	mu      sync.Mutex
	revoked map[string]time.Time // JTI -> expiration of the revocation entry
}

// NewInMemoryTokenRevoker creates a new in-memory token revoker
func NewInMemoryTokenRevoker() *InMemoryTokenRevoker {
	return &InMemoryTokenRevoker{revoked: make(map[string]time.Time)}
}

// Revoke marks a token's JTI as revoked
func (r *InMemoryTokenRevoker) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revoked[jti] = time.Now().Add(ttl)
	return nil
}

// IsRevoked reports whether a token's JTI is revoked and the entry not expired
func (r *InMemoryTokenRevoker) IsRevoked(_ context.Context, jti string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	expiration, exists := r.revoked[jti]
	if !exists {
		return false, nil
	}
	if time.Now().After(expiration) {
		delete(r.revoked, jti)
		return false, nil
	}
	return true, nil
}

var _ TokenRevoker = (*InMemoryTokenRevoker)(nil)
