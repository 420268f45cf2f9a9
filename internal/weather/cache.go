package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Cache stores conditions by coordinate key.
type Cache interface {
	Get(ctx context.Context, key string) (Conditions, bool)
	Set(ctx context.Context, key string, c Conditions, ttl time.Duration)
}

type memoryEntry struct {
	value   Conditions
	expires time.Time
}

// MemoryCache is an in-process Cache. Expired entries are dropped on read.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryCache returns an empty in-process cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry), now: time.Now}
}

// Get implements Cache.
func (m *MemoryCache) Get(_ context.Context, key string) (Conditions, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return Conditions{}, false
	}
	if !m.now().Before(e.expires) {
		delete(m.entries, key)
		return Conditions{}, false
	}
	return e.value, true
}

// Set implements Cache.
func (m *MemoryCache) Set(_ context.Context, key string, c Conditions, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry{value: c, expires: m.now().Add(ttl)}
}

const redisKeyPrefix = "lantern:weather:"

// RedisCache shares cached conditions between instances. Redis errors are logged and
// treated as misses.
type RedisCache struct {
	rdb *goredis.Client
}

// NewRedisCache connects to the Redis server at redisURL (redis://host:port/db) and
// pings it.
func NewRedisCache(ctx context.Context, redisURL string) (*RedisCache, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = 5 * time.Second
	}
	rdb := goredis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisCache{rdb: rdb}, nil
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(rdb *goredis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

// Get implements Cache.
func (r *RedisCache) Get(ctx context.Context, key string) (Conditions, bool) {
	raw, err := r.rdb.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			slog.Warn("RedisCache.Get: redis error, treating as miss", "key", key, "error", err)
		}
		return Conditions{}, false
	}
	var c Conditions
	if err := json.Unmarshal(raw, &c); err != nil {
		slog.Warn("RedisCache.Get: corrupt cache entry", "key", key, "error", err)
		return Conditions{}, false
	}
	return c, true
}

// Set implements Cache.
func (r *RedisCache) Set(ctx context.Context, key string, c Conditions, ttl time.Duration) {
	raw, err := json.Marshal(c)
	if err != nil {
		slog.Warn("RedisCache.Set: failed to encode conditions", "key", key, "error", err)
		return
	}
	if err := r.rdb.Set(ctx, redisKeyPrefix+key, raw, ttl).Err(); err != nil {
		slog.Warn("RedisCache.Set: redis error", "key", key, "error", err)
	}
}

// Close closes the Redis connection.
func (r *RedisCache) Close() error {
	return r.rdb.Close()
}
