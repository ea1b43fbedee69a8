package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"stock-hub/observability"
)

// Store is a read-through JSON cache over Redis. All operations fail open:
// a Redis outage degrades the service to uncached upstream calls instead
// of taking it down. Callers must treat a nil Store as "no cache".
type Store struct {
	client *redis.Client
}

// NewStore connects to Redis using a redis:// URL and verifies the
// connection with a ping. Returns nil (not an error) when the URL is empty
// or the server is unreachable, so the caller can run cacheless.
func NewStore(ctx context.Context, redisURL string) *Store {
	if redisURL == "" {
		observability.Warn("Redis URL not configured, running without cache")
		return nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		observability.WithError(err).Warn("Invalid Redis URL, running without cache")
		return nil
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		observability.WithError(err).Warn("Redis unreachable, running without cache")
		_ = client.Close()
		return nil
	}

	observability.Info("Connected to Redis")
	return &Store{client: client}
}

// NewStoreWithClient wraps an existing Redis client. Used by tests.
func NewStoreWithClient(client *redis.Client) *Store {
	return &Store{client: client}
}

// Get retrieves a cached value into dest. Returns false on a miss, an
// expired entry, or any Redis error.
func (s *Store) Get(ctx context.Context, kind, key string, dest interface{}) bool {
	if s == nil {
		return false
	}

	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		observability.GetMetrics().RecordCacheMiss(kind)
		return false
	}
	if err != nil {
		observability.WithError(err).Warn("Cache read failed", "key", key)
		observability.GetMetrics().RecordCacheMiss(kind)
		return false
	}

	if err := json.Unmarshal(data, dest); err != nil {
		observability.WithError(err).Warn("Cache entry corrupt, dropping", "key", key)
		_ = s.client.Del(ctx, key).Err()
		observability.GetMetrics().RecordCacheMiss(kind)
		return false
	}

	observability.GetMetrics().RecordCacheHit(kind)
	return true
}

// Set stores a value as JSON with the TTL for its kind. Errors are logged
// and swallowed.
func (s *Store) Set(ctx context.Context, kind, key string, value interface{}) {
	if s == nil {
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		observability.WithError(err).Warn("Cache marshal failed", "key", key)
		return
	}

	if err := s.client.Set(ctx, key, data, TTLFor(kind)).Err(); err != nil {
		observability.WithError(err).Warn("Cache write failed", "key", key)
	}
}

// Delete removes a cache entry.
func (s *Store) Delete(ctx context.Context, key string) {
	if s == nil {
		return
	}
	if err := s.client.Del(ctx, key).Err(); err != nil {
		observability.WithError(err).Warn("Cache delete failed", "key", key)
	}
}

// SetNX sets a key only if it does not exist. Returns true when the key
// was set. Used for advisory throttle markers.
func (s *Store) SetNX(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if s == nil {
		return false, fmt.Errorf("cache not configured")
	}
	return s.client.SetNX(ctx, key, "1", ttl).Result()
}

// Healthy reports whether Redis answers a ping.
func (s *Store) Healthy(ctx context.Context) bool {
	if s == nil {
		return false
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.client.Ping(pingCtx).Err() == nil
}

// Close releases the underlying Redis connection.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.client.Close()
}
