// Package cache is a thin JSON cache over Redis for the report endpoints.
// Settlement and dashboard windows for past dates never change, so short
// TTL caching keeps repeated report loads off the database.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrMiss is returned when a key is absent or the cache is disabled.
var ErrMiss = errors.New("cache miss")

// Cache wraps a Redis client. A nil *Cache is valid and behaves as a
// permanent miss, so callers need no branching when Redis is not configured.
type Cache struct {
	rdb *redis.Client
}

// New connects to Redis at addr. Returns nil when addr is empty so the
// server runs fine without a cache.
func New(addr, password string) *Cache {
	if addr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Printf("WARN: redis unreachable at %s, report caching disabled: %v", addr, err)
		return nil
	}
	return &Cache{rdb: rdb}
}

// Get unmarshals the cached value for key into dest. Returns ErrMiss when
// the key is absent; any other Redis failure is also reported as a miss
// after logging, because the cache must never fail a report request.
func (c *Cache) Get(ctx context.Context, key string, dest any) error {
	if c == nil {
		return ErrMiss
	}
	raw, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("ERROR: cache get %s: %v", key, err)
		}
		return ErrMiss
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		log.Printf("ERROR: cache decode %s: %v", key, err)
		return ErrMiss
	}
	return nil
}

// Set stores value under key for ttl. Failures are logged and swallowed.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		log.Printf("ERROR: cache encode %s: %v", key, err)
		return
	}
	if err := c.rdb.Set(ctx, key, raw, ttl).Err(); err != nil {
		log.Printf("ERROR: cache set %s: %v", key, err)
	}
}
