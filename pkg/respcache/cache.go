// Package respcache memoizes read-endpoint responses by key and TTL. It is
// a generic collaborator of the portal's read handlers, distinct from the
// RBAC decision cache (which has the same shape but its own lifecycle).
package respcache

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
)

// Stats is a point-in-time snapshot of the cache counters, rendered by the
// cache monitor screen.
type Stats struct {
	Hits          int64   `json:"hits"`
	Misses        int64   `json:"misses"`
	Sets          int64   `json:"sets"`
	Invalidations int64   `json:"invalidations"`
	HitRate       float64 `json:"hit_rate"`
}

// Cache is a Redis-backed response cache shared across portal instances.
type Cache struct {
	redis      *redis.Client
	prefix     string
	defaultTTL time.Duration

	hits          atomic.Int64
	misses        atomic.Int64
	sets          atomic.Int64
	invalidations atomic.Int64
}

// NewCache creates a response cache using the given Redis client. prefix
// namespaces the portal's keys; defaultTTL applies when Set is called with
// ttl <= 0.
func NewCache(client *redis.Client, prefix string, defaultTTL time.Duration) *Cache {
	if prefix == "" {
		prefix = "respcache"
	}
	if defaultTTL <= 0 {
		defaultTTL = time.Minute
	}
	return &Cache{
		redis:      client,
		prefix:     prefix,
		defaultTTL: defaultTTL,
	}
}

func (c *Cache) key(key string) string {
	return fmt.Sprintf("%s:%s", c.prefix, key)
}

// Get returns the cached payload for key. ok is false on miss; a Redis
// error is returned as a miss plus the error so callers degrade to the
// uncached path.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.redis.Get(ctx, c.key(key)).Bytes()
	if err == redis.Nil {
		c.misses.Add(1)
		return nil, false, nil
	}
	if err != nil {
		c.misses.Add(1)
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	c.hits.Add(1)
	return val, true, nil
}

// Set stores a payload under key with the given TTL.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	if err := c.redis.Set(ctx, c.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	c.sets.Add(1)
	return nil
}

// Invalidate removes every key under the given pattern (cache keys only,
// the prefix is prepended). Returns the number of keys removed.
func (c *Cache) Invalidate(ctx context.Context, pattern string) (int, error) {
	var removed int
	var cursor uint64
	match := c.key(pattern)

	for {
		keys, next, err := c.redis.Scan(ctx, cursor, match, 100).Result()
		if err != nil {
			return removed, fmt.Errorf("redis scan: %w", err)
		}
		if len(keys) > 0 {
			n, err := c.redis.Del(ctx, keys...).Result()
			if err != nil {
				return removed, fmt.Errorf("redis del: %w", err)
			}
			removed += int(n)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	c.invalidations.Add(1)
	return removed, nil
}

// Stats returns the hit/miss counters.
func (c *Cache) Stats() Stats {
	s := Stats{
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		Sets:          c.sets.Load(),
		Invalidations: c.invalidations.Load(),
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	return s
}
