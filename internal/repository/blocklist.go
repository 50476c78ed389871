package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const blocklistPrefix = "blocklist:"

// RedisBlocklist stores revoked token IDs in Redis until their token would have expired.
type RedisBlocklist struct {
	client *redis.Client
}

// NewRedisBlocklist creates a Redis-backed blocklist.
func NewRedisBlocklist(client *redis.Client) *RedisBlocklist {
	return &RedisBlocklist{client: client}
}

// Revoke marks jti as revoked for ttl.
func (b *RedisBlocklist) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := b.client.Set(ctx, blocklistPrefix+jti, "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether jti has been revoked.
func (b *RedisBlocklist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	err := b.client.Get(ctx, blocklistPrefix+jti).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check token revocation: %w", err)
	}
	return true, nil
}

// MemoryBlocklist keeps revoked token IDs in process memory. Expired entries
// are ignored on lookup and removed by Prune.
type MemoryBlocklist struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemoryBlocklist creates an empty in-memory blocklist.
func NewMemoryBlocklist() *MemoryBlocklist {
	return &MemoryBlocklist{entries: make(map[string]time.Time), now: time.Now}
}

// Revoke marks jti as revoked for ttl.
func (b *MemoryBlocklist) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	b.mu.Lock()
	b.entries[jti] = b.now().Add(ttl)
	b.mu.Unlock()
	return nil
}

// IsRevoked reports whether jti is revoked and not yet expired.
func (b *MemoryBlocklist) IsRevoked(_ context.Context, jti string) (bool, error) {
	b.mu.RLock()
	expiry, ok := b.entries[jti]
	b.mu.RUnlock()
	return ok && b.now().Before(expiry), nil
}

// Prune drops expired entries and returns how many were removed.
func (b *MemoryBlocklist) Prune() int {
	now := b.now()
	b.mu.Lock()
	defer b.mu.Unlock()
	removed := 0
	for jti, expiry := range b.entries {
		if !now.Before(expiry) {
			delete(b.entries, jti)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked entries, expired or not.
func (b *MemoryBlocklist) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}
