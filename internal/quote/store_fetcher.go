package quote

import (
	"context"
	"fmt"

	"github.com/marketdash/backtest-backend/internal/data"
)

// StoreFetcher serves the most recent stored close as the "quote" for a
// symbol. It stands in for a real market-data provider in deployments that
// run purely off synced or synthetic history.
type StoreFetcher struct {
	store *data.Store
}

// NewStoreFetcher creates a fetcher backed by the price store.
func NewStoreFetcher(store *data.Store) *StoreFetcher {
	return &StoreFetcher{store: store}
}

// FetchQuote returns the last stored close for symbol.
func (f *StoreFetcher) FetchQuote(ctx context.Context, symbol string) (Quote, error) {
	meta, ok := f.store.Metadata(symbol)
	if !ok {
		return Quote{}, fmt.Errorf("no price history for %s", symbol)
	}

	points, err := f.store.GetClosePrices(ctx, symbol, meta.EndDate, meta.EndDate)
	if err != nil {
		return Quote{}, err
	}
	if len(points) == 0 {
		return Quote{}, fmt.Errorf("no price history for %s", symbol)
	}

	last := points[len(points)-1]
	return Quote{
		Symbol: symbol,
		Price:  last.Close,
		AsOf:   last.Date,
		Source: "store",
	}, nil
}

var _ Fetcher = (*StoreFetcher)(nil)
