// Package cache is the get/set-with-expiry layer in front of Redis. Eviction is
// left to Redis; this package only builds keys and encodes values.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"movie-recommendation-backend/internal/metrics"
)

// Store is a key/value cache with per-entry expiry.
type Store interface {
	// Get decodes the value at key into dest. It reports false on a miss.
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Key builds a cache key from an endpoint name and its parameters. String
// parameters are trimmed and lower-cased so equivalent queries share an entry.
func Key(endpoint string, params ...any) string {
	var b strings.Builder
	b.WriteString(endpoint)
	for _, p := range params {
		b.WriteByte(':')
		switch v := p.(type) {
		case string:
			b.WriteString(normalize(v))
		default:
			b.WriteString(normalize(fmt.Sprint(v)))
		}
	}
	return b.String()
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	// collapse inner whitespace so "the  matrix" and "the matrix" collide
	return strings.Join(strings.Fields(s), " ")
}

// RedisStore is a Store backed by Redis.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore wraps a Redis client. A nil client yields a store whose reads
// always miss and whose writes are dropped.
func NewRedisStore(rdb *redis.Client) Store {
	if rdb == nil {
		return noopStore{}
	}
	return &RedisStore{rdb: rdb}
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, key string, dest any) (bool, error) {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.CacheOperations.WithLabelValues("get", "miss").Inc()
		return false, nil
	}
	if err != nil {
		metrics.CacheOperations.WithLabelValues("get", "error").Inc()
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		metrics.CacheOperations.WithLabelValues("get", "error").Inc()
		// a corrupt entry is as good as a miss
		s.rdb.Del(ctx, key)
		return false, fmt.Errorf("cache decode %s: %w", key, err)
	}
	metrics.CacheOperations.WithLabelValues("get", "hit").Inc()
	slog.Debug("cache hit", "key", key)
	return true, nil
}

// Set implements Store.
func (s *RedisStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	if err := s.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
		metrics.CacheOperations.WithLabelValues("set", "error").Inc()
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	metrics.CacheOperations.WithLabelValues("set", "ok").Inc()
	return nil
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

type noopStore struct{}

func (noopStore) Get(context.Context, string, any) (bool, error) {
	return false, nil
}

func (noopStore) Set(context.Context, string, any, time.Duration) error {
	return nil
}

func (noopStore) Delete(context.Context, ...string) error {
	return nil
}
