// Package cache is a JSON value cache on top of Redis.
//
// A nil or disconnected Store is valid: reads miss and writes are no-ops, so
// callers never need to branch on whether Redis is configured.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shashiranjanraj/storefront/config"
	"github.com/shashiranjanraj/storefront/pkg/metrics"
)

// Connect builds a Redis client from config and verifies it with a ping.
// It returns (nil, nil) when REDIS_ADDR is empty.
func Connect(ctx context.Context) (*redis.Client, error) {
	addr := config.RedisAddr()
	if addr == "" {
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: config.RedisPassword(),
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("cache: redis ping: %w", err)
	}
	return rdb, nil
}

// Store caches JSON-encoded values under a key prefix.
type Store struct {
	rdb    *redis.Client
	prefix string
}

func New(rdb *redis.Client, prefix string) *Store {
	return &Store{rdb: rdb, prefix: prefix}
}

func (s *Store) enabled() bool { return s != nil && s.rdb != nil }

// Get unmarshals the cached value into dest and reports a hit.
func (s *Store) Get(ctx context.Context, key string, dest any) bool {
	if !s.enabled() {
		return false
	}

	val, err := s.rdb.Get(ctx, s.prefix+key).Bytes()
	if err != nil || json.Unmarshal(val, dest) != nil {
		metrics.CacheMisses.WithLabelValues("redis").Inc()
		return false
	}
	metrics.CacheHits.WithLabelValues("redis").Inc()
	return true
}

func (s *Store) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if !s.enabled() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.prefix+key, data, ttl).Err()
}

func (s *Store) Del(ctx context.Context, keys ...string) error {
	if !s.enabled() || len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.prefix + k
	}
	return s.rdb.Del(ctx, full...).Err()
}

// Remember returns the cached value for key, or runs load, caches its result
// and leaves it in dest. Cache write failures are ignored.
func (s *Store) Remember(ctx context.Context, key string, ttl time.Duration, dest any, load func() error) error {
	if s.Get(ctx, key, dest) {
		return nil
	}
	if err := load(); err != nil {
		return err
	}
	_ = s.Set(ctx, key, dest, ttl)
	return nil
}
