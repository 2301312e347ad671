package backtester

import (
	"github.com/shopspring/decimal"

	"github.com/marketdash/backtest-backend/pkg/types"
)

var hundred = decimal.NewFromInt(100)

// Analyzer derives summary statistics from a completed simulation. It is a
// pure function of its inputs; calling Summarize twice on the same trace
// yields the same summary.
type Analyzer struct{}

// NewAnalyzer creates a new performance analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Summarize computes the run summary. firstUsablePrice is the close at the
// first day the moving average is defined (index period-1); the buy-and-hold
// baseline is measured from there to lastPrice so strategy and baseline cover
// the same tradeable window.
func (a *Analyzer) Summarize(
	trades []types.Trade,
	daily []types.DailyRecord,
	initialCapital decimal.Decimal,
	firstUsablePrice decimal.Decimal,
	lastPrice decimal.Decimal,
) types.BacktestSummary {
	summary := types.BacktestSummary{
		FinalValue: initialCapital,
	}

	if len(daily) > 0 {
		// Every run ends flat, so the final trace row's cash is the whole
		// portfolio.
		summary.FinalValue = daily[len(daily)-1].Cash
	}

	if !initialCapital.IsZero() {
		summary.TotalReturnPct = summary.FinalValue.Sub(initialCapital).Div(initialCapital).Mul(hundred)
	}

	wins, losses := a.classifyRoundTrips(trades)
	summary.TotalTrades = len(trades)
	summary.WinningTrades = wins
	summary.LosingTrades = losses

	// max(1, wins+losses) guards the zero-trades case without an error path.
	closed := wins + losses
	if closed < 1 {
		closed = 1
	}
	summary.WinRatePct = decimal.NewFromInt(int64(wins)).Div(decimal.NewFromInt(int64(closed))).Mul(hundred)

	summary.MaxDrawdownPct = a.maxDrawdown(daily)

	if !firstUsablePrice.IsZero() {
		summary.BuyHoldReturnPct = lastPrice.Sub(firstUsablePrice).Div(firstUsablePrice).Mul(hundred)
	}

	return summary
}

// classifyRoundTrips pairs each buy with its matching later sell and counts
// wins and losses. A flat zero-profit round trip counts as a loss.
func (a *Analyzer) classifyRoundTrips(trades []types.Trade) (wins, losses int) {
	var entry *types.Trade

	for i := range trades {
		trade := trades[i]
		switch trade.Type {
		case types.TradeTypeBuy:
			entry = &trades[i]
		case types.TradeTypeSell:
			if entry == nil {
				continue
			}
			profit := trade.CashValue.Sub(entry.CashValue)
			if profit.GreaterThan(decimal.Zero) {
				wins++
			} else {
				losses++
			}
			entry = nil
		}
	}

	return wins, losses
}

// maxDrawdown scans the trace with a running peak, including warm-up days.
func (a *Analyzer) maxDrawdown(daily []types.DailyRecord) decimal.Decimal {
	var maxDD decimal.Decimal
	if len(daily) == 0 {
		return maxDD
	}

	peak := daily[0].PortfolioValue
	for _, record := range daily {
		if record.PortfolioValue.GreaterThan(peak) {
			peak = record.PortfolioValue
		}
		if peak.IsZero() {
			continue
		}
		dd := peak.Sub(record.PortfolioValue).Div(peak).Mul(hundred)
		if dd.GreaterThan(maxDD) {
			maxDD = dd
		}
	}

	return maxDD
}
