package data

import (
	"fmt"

	"github.com/marketdash/backtest-backend/pkg/types"
)

// ValidateSeries checks the invariants the engine assumes of a price series:
// strictly ascending dates (no duplicates) and strictly positive closes.
func ValidateSeries(points []types.PricePoint) error {
	for i, p := range points {
		if !p.Close.IsPositive() {
			return fmt.Errorf("point %d (%s): close %s is not positive", i, p.Date.Format("2006-01-02"), p.Close)
		}
		if i == 0 {
			continue
		}
		prev := points[i-1]
		if !p.Date.After(prev.Date) {
			return fmt.Errorf("point %d (%s): date not after previous point (%s)",
				i, p.Date.Format("2006-01-02"), prev.Date.Format("2006-01-02"))
		}
	}
	return nil
}
