package middleware

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisRateLimitStore implements RateLimitStore backed by Redis.
// It uses a fixed window counter (INCR + EXPIRE), so limits are shared
// across all server processes pointing at the same Redis.
// On Redis errors the store fails open: requests are allowed rather than
// blocked when the limiter backend is unavailable.
type RedisRateLimitStore struct {
	client  *redis.Client
	metrics *Metrics
}

// NewRedisRateLimitStore creates a Redis-backed rate limit store.
func NewRedisRateLimitStore(client *redis.Client) *RedisRateLimitStore {
	return &RedisRateLimitStore{client: client}
}

// WithMetrics attaches middleware metrics so fail-open events are counted.
func (s *RedisRateLimitStore) WithMetrics(m *Metrics) *RedisRateLimitStore {
	s.metrics = m
	return s
}

// Allow checks if a request from the given key should be allowed.
// Implements the RateLimitStore interface.
func (s *RedisRateLimitStore) Allow(ctx context.Context, key string, config RateLimitConfig) (bool, int) {
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	// Set the expiry only when the key is newly created so the window
	// is anchored at the first request.
	pipe.ExpireNX(ctx, key, config.WindowDuration)
	if _, err := pipe.Exec(ctx); err != nil {
		// Fail open: Redis being down should not take the API down with it.
		if s.metrics != nil {
			s.metrics.IncRateLimitRedisErrors()
		}
		return true, 0
	}

	count := incr.Val()
	if count <= int64(config.RequestsPerWindow) {
		return true, 0
	}

	retryAfter := int(config.WindowDuration.Seconds())
	if ttl, err := s.client.TTL(ctx, key).Result(); err == nil && ttl > 0 {
		retryAfter = int(ttl.Seconds())
	}
	if retryAfter <= 0 {
		retryAfter = 1
	}
	return false, retryAfter
}
