package oracle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores predictions keyed by Features.Key.
type Cache interface {
	Get(ctx context.Context, key string) (float64, bool, error)
	Set(ctx context.Context, key string, price float64, ttl time.Duration) error
}

type cacheEntry struct {
	value     float64
	expiresAt time.Time
}

const (
	defaultMaxEntries = 10000
	defaultSweepEvery = time.Minute
)

// MemoryCache is a process-local TTL cache. Expired entries are swept on
// write at most once per sweepEvery, and when the cache is full the entry
// closest to expiry is evicted.
type MemoryCache struct {
	mu         sync.RWMutex
	entries    map[string]cacheEntry
	now        func() time.Time
	maxEntries int
	sweepEvery time.Duration
	nextSweep  time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries:    make(map[string]cacheEntry),
		now:        time.Now,
		maxEntries: defaultMaxEntries,
		sweepEvery: defaultSweepEvery,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) (float64, bool, error) {
	c.mu.RLock()
	ce, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return 0, false, nil
	}
	if !c.now().Before(ce.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return 0, false, nil
	}
	return ce.value, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, price float64, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	_, exists := c.entries[key]
	full := !exists && len(c.entries) >= c.maxEntries
	if full || !now.Before(c.nextSweep) {
		c.sweepLocked(now)
		c.nextSweep = now.Add(c.sweepEvery)
	}
	if !exists && len(c.entries) >= c.maxEntries {
		c.evictSoonestLocked()
	}
	c.entries[key] = cacheEntry{value: price, expiresAt: now.Add(ttl)}
	return nil
}

func (c *MemoryCache) sweepLocked(now time.Time) {
	for k, ce := range c.entries {
		if !now.Before(ce.expiresAt) {
			delete(c.entries, k)
		}
	}
}

func (c *MemoryCache) evictSoonestLocked() {
	var (
		victim string
		first  time.Time
		found  bool
	)
	for k, ce := range c.entries {
		if !found || ce.expiresAt.Before(first) {
			victim, first, found = k, ce.expiresAt, true
		}
	}
	if found {
		delete(c.entries, victim)
	}
}

// RedisCache shares predictions between service replicas.
type RedisCache struct {
	rdb    redis.UniversalClient
	prefix string
}

func NewRedisCache(rdb redis.UniversalClient) *RedisCache {
	return &RedisCache{rdb: rdb, prefix: "airfare:quote:"}
}

func (c *RedisCache) Get(ctx context.Context, key string) (float64, bool, error) {
	s, err := c.rdb.Get(ctx, c.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("redis cache get: %w", err)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, fmt.Errorf("redis cache get: bad value %q: %w", s, err)
	}
	return v, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, price float64, ttl time.Duration) error {
	v := strconv.FormatFloat(price, 'g', -1, 64)
	if err := c.rdb.Set(ctx, c.prefix+key, v, ttl).Err(); err != nil {
		return fmt.Errorf("redis cache set: %w", err)
	}
	return nil
}

// Cached memoizes an Oracle. Cache failures are logged and bypassed.
type Cached struct {
	next  Oracle
	cache Cache
	ttl   time.Duration
}

func NewCached(next Oracle, cache Cache, ttl time.Duration) *Cached {
	return &Cached{next: next, cache: cache, ttl: ttl}
}

func (c *Cached) Predict(ctx context.Context, f Features) (float64, error) {
	key := f.Key()
	if v, ok, err := c.cache.Get(ctx, key); err != nil {
		slog.WarnContext(ctx, "quote cache read failed", "key", key, "error", err)
	} else if ok {
		return v, nil
	}

	v, err := c.next.Predict(ctx, f)
	if err != nil {
		return 0, err
	}

	if err := c.cache.Set(ctx, key, v, c.ttl); err != nil {
		slog.WarnContext(ctx, "quote cache write failed", "key", key, "error", err)
	}
	return v, nil
}
