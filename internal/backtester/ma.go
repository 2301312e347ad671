package backtester

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ComputeSMA computes the trailing simple moving average of closes. The
// returned slice is parallel to the input: entries before index period-1 are
// nil because no full window exists yet.
//
// A period outside (0, len(closes)] is a configuration error: the engine must
// refuse to run rather than silently average over a short window.
func ComputeSMA(closes []decimal.Decimal, period int) ([]*decimal.Decimal, error) {
	if period <= 0 {
		return nil, &ConfigurationError{Field: "maPeriod", Reason: fmt.Sprintf("must be positive, got %d", period)}
	}
	if period > len(closes) {
		return nil, &ConfigurationError{Field: "maPeriod", Reason: fmt.Sprintf("%d exceeds series length %d", period, len(closes))}
	}

	out := make([]*decimal.Decimal, len(closes))
	divisor := decimal.NewFromInt(int64(period))

	var sum decimal.Decimal
	for i, c := range closes {
		sum = sum.Add(c)
		if i >= period {
			sum = sum.Sub(closes[i-period])
		}
		if i >= period-1 {
			avg := sum.Div(divisor)
			out[i] = &avg
		}
	}

	return out, nil
}
