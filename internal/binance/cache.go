package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TickerKey is the redis hash holding the latest ticker per symbol.
const TickerKey = "tickers"

// TickerCache keeps the most recent 24h tickers pushed by the stream.
type TickerCache interface {
	Store(ctx context.Context, tickers []Ticker24h) error
	Load(ctx context.Context) ([]Ticker24h, error)
}

// RedisTickerCache stores tickers in a redis hash that expires when the
// stream stops refreshing it.
type RedisTickerCache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

// NewRedisTickerCache creates a redis-backed cache.
func NewRedisTickerCache(rdb redis.Cmdable, ttl time.Duration) *RedisTickerCache {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &RedisTickerCache{rdb: rdb, ttl: ttl}
}

// Store writes tickers into the hash and refreshes its TTL.
func (c *RedisTickerCache) Store(ctx context.Context, tickers []Ticker24h) error {
	if len(tickers) == 0 {
		return nil
	}

	pipe := c.rdb.Pipeline()
	for _, t := range tickers {
		buf, err := json.Marshal(t)
		if err != nil {
			continue
		}
		pipe.HSet(ctx, TickerKey, t.Symbol, string(buf))
	}
	pipe.Expire(ctx, TickerKey, c.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store tickers: %w", err)
	}
	return nil
}

// Load returns every cached ticker. An expired hash yields an empty slice.
func (c *RedisTickerCache) Load(ctx context.Context) ([]Ticker24h, error) {
	raw, err := c.rdb.HGetAll(ctx, TickerKey).Result()
	if err != nil {
		return nil, fmt.Errorf("load tickers: %w", err)
	}

	tickers := make([]Ticker24h, 0, len(raw))
	for _, v := range raw {
		var t Ticker24h
		if err := json.Unmarshal([]byte(v), &t); err != nil {
			continue
		}
		tickers = append(tickers, t)
	}
	return tickers, nil
}

// MemoryTickerCache is the in-process fallback used when redis is not
// configured.
type MemoryTickerCache struct {
	mu      sync.RWMutex
	tickers map[string]Ticker24h
	updated time.Time
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryTickerCache creates an in-memory cache.
func NewMemoryTickerCache(ttl time.Duration) *MemoryTickerCache {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &MemoryTickerCache{
		tickers: make(map[string]Ticker24h),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Store merges tickers into the cache.
func (c *MemoryTickerCache) Store(_ context.Context, tickers []Ticker24h) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range tickers {
		c.tickers[t.Symbol] = t
	}
	c.updated = c.now()
	return nil
}

// Load returns cached tickers, or nothing once the cache is stale.
func (c *MemoryTickerCache) Load(_ context.Context) ([]Ticker24h, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.updated.IsZero() || c.now().Sub(c.updated) > c.ttl {
		return nil, nil
	}
	tickers := make([]Ticker24h, 0, len(c.tickers))
	for _, t := range c.tickers {
		tickers = append(tickers, t)
	}
	return tickers, nil
}
