package backtester

import (
	"github.com/shopspring/decimal"

	"github.com/marketdash/backtest-backend/pkg/types"
)

// SignalEngine maps one day's price/moving-average relationship to a trading
// signal under the single-position constraint. It holds no state of its own;
// the current position status is owned by the simulator and passed in.
type SignalEngine struct{}

// NewSignalEngine creates a new signal engine.
func NewSignalEngine() *SignalEngine {
	return &SignalEngine{}
}

// Evaluate returns the signal for one trading day. Days inside the warm-up
// period (ma == nil) and days where price equals the moving average exactly
// produce no signal.
func (se *SignalEngine) Evaluate(price decimal.Decimal, ma *decimal.Decimal, status types.PositionStatus) types.Signal {
	if ma == nil {
		return types.SignalNone
	}

	switch {
	case price.LessThan(*ma) && status == types.PositionNone:
		return types.SignalBuy
	case price.GreaterThan(*ma) && status == types.PositionLong:
		return types.SignalSell
	default:
		return types.SignalNone
	}
}
