package currency

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores the last good rate for a bounded time.
type Cache interface {
	Get(ctx context.Context) (float64, bool)
	Set(ctx context.Context, rate float64, ttl time.Duration)
}

// MemoryCache keeps the rate in process memory.
type MemoryCache struct {
	mu      sync.Mutex
	now     func() time.Time
	rate    float64
	expires time.Time
}

// NewMemoryCache creates an empty in-process cache.
func NewMemoryCache(now func() time.Time) *MemoryCache {
	return &MemoryCache{now: now}
}

func (m *MemoryCache) Get(context.Context) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rate <= 0 || !m.now().Before(m.expires) {
		return 0, false
	}
	return m.rate, true
}

func (m *MemoryCache) Set(_ context.Context, rate float64, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rate = rate
	m.expires = m.now().Add(ttl)
}

// RedisKey holds the cached USD to INR rate.
const RedisKey = "conference:fx:usd_inr"

// RedisCache shares the rate across server instances.
type RedisCache struct {
	client *redis.Client
	key    string
}

// NewRedisCache wraps an existing client.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client, key: RedisKey}
}

// Get treats any Redis failure as a miss so the converter can refetch.
func (r *RedisCache) Get(ctx context.Context) (float64, bool) {
	rate, err := r.client.Get(ctx, r.key).Float64()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("fx_cache_get_failed", "error", err.Error())
		}
		return 0, false
	}
	return rate, rate > 0
}

func (r *RedisCache) Set(ctx context.Context, rate float64, ttl time.Duration) {
	if err := r.client.Set(ctx, r.key, rate, ttl).Err(); err != nil {
		slog.Warn("fx_cache_set_failed", "error", err.Error())
	}
}
