// Package quote provides a cached, rate-limited front for external quote
// lookups. The cache and throttle are injected collaborators rather than
// module-level state, so nothing here leaks global mutable state into the
// engine.
package quote

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Quote is the latest known price for a symbol.
type Quote struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
	AsOf   time.Time       `json:"asOf"`
	Source string          `json:"source"`
}

// Fetcher is the upstream quote source.
type Fetcher interface {
	FetchQuote(ctx context.Context, symbol string) (Quote, error)
}

// Cache is the injected cache contract: get, set, evict.
type Cache interface {
	Get(key string) (Quote, bool)
	Set(key string, q Quote)
	Evict(key string)
}

// TTLCache is an in-memory Cache whose entries expire after a fixed TTL.
type TTLCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]ttlEntry
	now     func() time.Time
}

type ttlEntry struct {
	quote    Quote
	storedAt time.Time
}

// NewTTLCache creates a cache with the given entry lifetime.
func NewTTLCache(ttl time.Duration) *TTLCache {
	return &TTLCache{
		ttl:     ttl,
		entries: make(map[string]ttlEntry),
		now:     time.Now,
	}
}

// Get returns the cached quote for key if it exists and has not expired.
func (c *TTLCache) Get(key string) (Quote, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return Quote{}, false
	}
	if c.now().Sub(entry.storedAt) > c.ttl {
		delete(c.entries, key)
		return Quote{}, false
	}
	return entry.quote, true
}

// Set stores a quote under key.
func (c *TTLCache) Set(key string, q Quote) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = ttlEntry{quote: q, storedAt: c.now()}
}

// Evict removes key from the cache.
func (c *TTLCache) Evict(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Throttle enforces a fixed minimum interval between upstream calls.
type Throttle struct {
	mu          sync.Mutex
	minInterval time.Duration
	last        time.Time
	now         func() time.Time
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewThrottle creates a throttle with the given minimum call interval.
func NewThrottle(minInterval time.Duration) *Throttle {
	return &Throttle{
		minInterval: minInterval,
		now:         time.Now,
		sleep:       sleepCtx,
	}
}

// Wait blocks until the minimum interval since the previous call has elapsed,
// or the context is cancelled.
func (t *Throttle) Wait(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.last.IsZero() {
		if wait := t.minInterval - t.now().Sub(t.last); wait > 0 {
			if err := t.sleep(ctx, wait); err != nil {
				return err
			}
		}
	}
	t.last = t.now()
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Client composes a fetcher with the injected cache and throttle: cache hits
// bypass the upstream entirely, misses pay the fixed delay.
type Client struct {
	logger   *zap.Logger
	fetcher  Fetcher
	cache    Cache
	throttle *Throttle
}

// NewClient creates a quote client.
func NewClient(logger *zap.Logger, fetcher Fetcher, cache Cache, throttle *Throttle) *Client {
	return &Client{
		logger:   logger,
		fetcher:  fetcher,
		cache:    cache,
		throttle: throttle,
	}
}

// GetQuote returns the quote for symbol, served from cache when possible.
func (c *Client) GetQuote(ctx context.Context, symbol string) (Quote, error) {
	if q, ok := c.cache.Get(symbol); ok {
		return q, nil
	}

	if err := c.throttle.Wait(ctx); err != nil {
		return Quote{}, err
	}

	q, err := c.fetcher.FetchQuote(ctx, symbol)
	if err != nil {
		return Quote{}, err
	}

	c.cache.Set(symbol, q)
	c.logger.Debug("quote fetched",
		zap.String("symbol", symbol),
		zap.String("price", q.Price.String()),
	)
	return q, nil
}

// Invalidate evicts symbol from the cache, forcing the next lookup upstream.
func (c *Client) Invalidate(symbol string) {
	c.cache.Evict(symbol)
}
