// Package quote_test provides tests for the cached quote client.
package quote_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/marketdash/backtest-backend/internal/quote"
)

// countingFetcher records how often the upstream is hit.
type countingFetcher struct {
	mu    sync.Mutex
	calls int
	price decimal.Decimal
}

func (f *countingFetcher) FetchQuote(ctx context.Context, symbol string) (quote.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return quote.Quote{
		Symbol: symbol,
		Price:  f.price,
		AsOf:   time.Now(),
		Source: "test",
	}, nil
}

func (f *countingFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestClientServesFromCache(t *testing.T) {
	fetcher := &countingFetcher{price: decimal.NewFromInt(42)}
	client := quote.NewClient(zap.NewNop(), fetcher,
		quote.NewTTLCache(time.Minute), quote.NewThrottle(0))

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		q, err := client.GetQuote(ctx, "ACME")
		if err != nil {
			t.Fatalf("GetQuote failed: %v", err)
		}
		if !q.Price.Equal(decimal.NewFromInt(42)) {
			t.Errorf("Price incorrect: %s", q.Price)
		}
	}

	if got := fetcher.count(); got != 1 {
		t.Errorf("Upstream should be hit once, got %d calls", got)
	}
}

func TestClientInvalidateForcesRefetch(t *testing.T) {
	fetcher := &countingFetcher{price: decimal.NewFromInt(42)}
	client := quote.NewClient(zap.NewNop(), fetcher,
		quote.NewTTLCache(time.Minute), quote.NewThrottle(0))

	ctx := context.Background()
	if _, err := client.GetQuote(ctx, "ACME"); err != nil {
		t.Fatalf("GetQuote failed: %v", err)
	}
	client.Invalidate("ACME")
	if _, err := client.GetQuote(ctx, "ACME"); err != nil {
		t.Fatalf("GetQuote failed: %v", err)
	}

	if got := fetcher.count(); got != 2 {
		t.Errorf("Expected 2 upstream calls after invalidation, got %d", got)
	}
}

func TestTTLCacheExpiry(t *testing.T) {
	cache := quote.NewTTLCache(50 * time.Millisecond)
	cache.Set("ACME", quote.Quote{Symbol: "ACME", Price: decimal.NewFromInt(7)})

	if _, ok := cache.Get("ACME"); !ok {
		t.Fatal("Fresh entry should be present")
	}

	time.Sleep(80 * time.Millisecond)

	if _, ok := cache.Get("ACME"); ok {
		t.Error("Expired entry should be gone")
	}
}

func TestThrottleEnforcesMinInterval(t *testing.T) {
	throttle := quote.NewThrottle(40 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := throttle.Wait(ctx); err != nil {
			t.Fatalf("Wait failed: %v", err)
		}
	}
	elapsed := time.Since(start)

	// Two enforced gaps between three calls.
	if elapsed < 80*time.Millisecond {
		t.Errorf("Throttle too permissive: 3 calls in %s", elapsed)
	}
}

func TestThrottleRespectsCancellation(t *testing.T) {
	throttle := quote.NewThrottle(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	if err := throttle.Wait(ctx); err != nil {
		t.Fatalf("First wait should not block: %v", err)
	}

	cancel()
	if err := throttle.Wait(ctx); err == nil {
		t.Error("Cancelled wait should return an error")
	}
}
