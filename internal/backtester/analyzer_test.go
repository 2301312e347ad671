package backtester_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/marketdash/backtest-backend/internal/backtester"
	"github.com/marketdash/backtest-backend/pkg/types"
)

func day(i int) time.Time {
	return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
}

func record(i int, cash, value int64) types.DailyRecord {
	return types.DailyRecord{
		Date:           day(i),
		Cash:           decimal.NewFromInt(cash),
		PortfolioValue: decimal.NewFromInt(value),
		Signal:         types.SignalNone,
	}
}

func roundTrip(i int, buyPrice, sellPrice, shares int64) []types.Trade {
	return []types.Trade{
		{
			Date:      day(i),
			Type:      types.TradeTypeBuy,
			Price:     decimal.NewFromInt(buyPrice),
			Shares:    shares,
			CashValue: decimal.NewFromInt(buyPrice * shares),
		},
		{
			Date:      day(i + 1),
			Type:      types.TradeTypeSell,
			Price:     decimal.NewFromInt(sellPrice),
			Shares:    shares,
			CashValue: decimal.NewFromInt(sellPrice * shares),
		},
	}
}

func TestSummarizeWinLossClassification(t *testing.T) {
	analyzer := backtester.NewAnalyzer()

	trades := append(roundTrip(0, 10, 12, 5), roundTrip(2, 12, 11, 5)...)
	trades = append(trades, roundTrip(4, 11, 11, 5)...) // flat round trip: a loss

	daily := []types.DailyRecord{record(0, 50, 100), record(5, 95, 95)}

	summary := analyzer.Summarize(trades, daily, decimal.NewFromInt(100),
		decimal.NewFromInt(10), decimal.NewFromInt(11))

	if summary.TotalTrades != 6 {
		t.Errorf("Total trades incorrect: %d", summary.TotalTrades)
	}
	if summary.WinningTrades != 1 {
		t.Errorf("Winning trades incorrect: %d", summary.WinningTrades)
	}
	if summary.LosingTrades != 2 {
		t.Errorf("Losing trades incorrect: %d", summary.LosingTrades)
	}

	wantWinRate := decimal.NewFromInt(1).Div(decimal.NewFromInt(3)).Mul(decimal.NewFromInt(100))
	if !summary.WinRatePct.Equal(wantWinRate) {
		t.Errorf("Win rate incorrect: %s, want %s", summary.WinRatePct, wantWinRate)
	}
}

func TestSummarizeZeroTradesWinRate(t *testing.T) {
	analyzer := backtester.NewAnalyzer()

	daily := []types.DailyRecord{record(0, 1000, 1000), record(1, 1000, 1000)}
	summary := analyzer.Summarize(nil, daily, decimal.NewFromInt(1000),
		decimal.NewFromInt(10), decimal.NewFromInt(10))

	if !summary.WinRatePct.IsZero() {
		t.Errorf("Win rate with no trades should be zero, got %s", summary.WinRatePct)
	}
	if !summary.TotalReturnPct.IsZero() {
		t.Errorf("Total return should be zero, got %s", summary.TotalReturnPct)
	}
}

func TestSummarizeMaxDrawdown(t *testing.T) {
	analyzer := backtester.NewAnalyzer()

	// Peak 1200, trough 900: drawdown 25%.
	daily := []types.DailyRecord{
		record(0, 0, 1000),
		record(1, 0, 1200),
		record(2, 0, 900),
		record(3, 0, 1100),
		record(4, 1100, 1100),
	}

	summary := analyzer.Summarize(nil, daily, decimal.NewFromInt(1000),
		decimal.NewFromInt(10), decimal.NewFromInt(10))

	if !summary.MaxDrawdownPct.Equal(decimal.NewFromInt(25)) {
		t.Errorf("Max drawdown incorrect: %s", summary.MaxDrawdownPct)
	}
}

func TestSummarizeBuyHoldBaseline(t *testing.T) {
	analyzer := backtester.NewAnalyzer()

	daily := []types.DailyRecord{record(0, 1000, 1000)}
	summary := analyzer.Summarize(nil, daily, decimal.NewFromInt(1000),
		decimal.NewFromInt(80), decimal.NewFromInt(100))

	if !summary.BuyHoldReturnPct.Equal(decimal.NewFromInt(25)) {
		t.Errorf("Buy-and-hold return incorrect: %s", summary.BuyHoldReturnPct)
	}
}

func TestSummarizeIsIdempotent(t *testing.T) {
	analyzer := backtester.NewAnalyzer()

	trades := roundTrip(0, 10, 14, 100)
	daily := []types.DailyRecord{
		record(0, 0, 1000),
		record(1, 1400, 1400),
	}

	first := analyzer.Summarize(trades, daily, decimal.NewFromInt(1000),
		decimal.NewFromInt(10), decimal.NewFromInt(14))
	second := analyzer.Summarize(trades, daily, decimal.NewFromInt(1000),
		decimal.NewFromInt(10), decimal.NewFromInt(14))

	if !first.FinalValue.Equal(second.FinalValue) ||
		!first.TotalReturnPct.Equal(second.TotalReturnPct) ||
		!first.MaxDrawdownPct.Equal(second.MaxDrawdownPct) ||
		first.WinningTrades != second.WinningTrades {
		t.Error("Summarize must be a pure function of its inputs")
	}
}
