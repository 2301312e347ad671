// Package types provides shared type definitions for the backtest backend.
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Signal is the per-day output of the signal engine.
type Signal string

const (
	SignalBuy  Signal = "buy"
	SignalSell Signal = "sell"
	SignalNone Signal = "none"
)

// TradeType represents the direction of an executed trade.
type TradeType string

const (
	TradeTypeBuy  TradeType = "buy"
	TradeTypeSell TradeType = "sell"
)

// PositionStatus represents whether the simulated wallet holds shares.
type PositionStatus string

const (
	PositionNone PositionStatus = "none"
	PositionLong PositionStatus = "long"
)

// PricePoint is one end-of-day close for an instrument. Series are ordered
// ascending by date with no duplicate dates.
type PricePoint struct {
	Date  time.Time       `json:"date"`
	Close decimal.Decimal `json:"close"`
}

// PositionState describes the single position a run may hold. EntryPrice is
// meaningful only while Status is PositionLong.
type PositionState struct {
	Status     PositionStatus  `json:"status"`
	Shares     int64           `json:"shares"`
	EntryPrice decimal.Decimal `json:"entryPrice"`
}

// WalletState is the simulated wallet: free cash plus at most one position.
type WalletState struct {
	Cash     decimal.Decimal `json:"cash"`
	Position PositionState   `json:"position"`
}

// Trade is one immutable entry in the trade ledger.
type Trade struct {
	Date                time.Time       `json:"date"`
	Type                TradeType       `json:"type"`
	Price               decimal.Decimal `json:"price"`
	Shares              int64           `json:"shares"`
	CashValue           decimal.Decimal `json:"cashValue"`
	PortfolioValueAfter decimal.Decimal `json:"portfolioValueAfter"`
	Rationale           string          `json:"rationale"`
}

// DailyRecord is one row of the simulation trace; MovingAverage is nil during
// the warm-up period and Signal is SignalNone on days without a crossing.
type DailyRecord struct {
	Date           time.Time        `json:"date"`
	Price          decimal.Decimal  `json:"price"`
	MovingAverage  *decimal.Decimal `json:"movingAverage"`
	SharesHeld     int64            `json:"sharesHeld"`
	Cash           decimal.Decimal  `json:"cash"`
	PortfolioValue decimal.Decimal  `json:"portfolioValue"`
	Signal         Signal           `json:"signal"`
}

// BacktestSummary holds the derived performance statistics for one run.
// FinalValue is always pure cash: every run ends flat.
type BacktestSummary struct {
	FinalValue       decimal.Decimal `json:"finalValue"`
	TotalReturnPct   decimal.Decimal `json:"totalReturnPct"`
	TotalTrades      int             `json:"totalTrades"`
	WinningTrades    int             `json:"winningTrades"`
	LosingTrades     int             `json:"losingTrades"`
	WinRatePct       decimal.Decimal `json:"winRatePct"`
	MaxDrawdownPct   decimal.Decimal `json:"maxDrawdownPct"`
	BuyHoldReturnPct decimal.Decimal `json:"buyHoldReturnPct"`
}

// BacktestRequest is the engine invocation contract.
type BacktestRequest struct {
	Symbol         string          `json:"symbol"`
	Years          int             `json:"years"`
	MAPeriod       int             `json:"maPeriod"`
	InitialCapital decimal.Decimal `json:"initialCapital"`
}

// BacktestResult is everything one completed run produces.
type BacktestResult struct {
	ID          string          `json:"id"`
	Symbol      string          `json:"symbol"`
	MAPeriod    int             `json:"maPeriod"`
	StartDate   time.Time       `json:"startDate"`
	EndDate     time.Time       `json:"endDate"`
	TradingDays int             `json:"tradingDays"`
	Trades      []Trade         `json:"trades"`
	Daily       []DailyRecord   `json:"daily"`
	Summary     BacktestSummary `json:"summary"`
}

// StrategyInfo describes the strategy a run executed.
type StrategyInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	MAPeriod    int    `json:"maPeriod"`
}

// PeriodInfo describes the window a run covered.
type PeriodInfo struct {
	Years       int       `json:"years"`
	StartDate   time.Time `json:"startDate"`
	EndDate     time.Time `json:"endDate"`
	TradingDays int       `json:"tradingDays"`
}

// ResultsInfo is the flattened statistics block of a backtest report.
type ResultsInfo struct {
	InitialCapital decimal.Decimal `json:"initialCapital"`
	FinalValue     decimal.Decimal `json:"finalValue"`
	TotalReturn    decimal.Decimal `json:"totalReturn"`
	TotalTrades    int             `json:"totalTrades"`
	WinningTrades  int             `json:"winningTrades"`
	LosingTrades   int             `json:"losingTrades"`
	WinRate        decimal.Decimal `json:"winRate"`
	MaxDrawdown    decimal.Decimal `json:"maxDrawdown"`
	BuyHoldReturn  decimal.Decimal `json:"buyHoldReturn"`
	Outperformance decimal.Decimal `json:"outperformance"`
}

// BacktestReport is the caller-facing shape of a completed run.
type BacktestReport struct {
	ID        string        `json:"id"`
	Strategy  StrategyInfo  `json:"strategy"`
	Period    PeriodInfo    `json:"period"`
	Results   ResultsInfo   `json:"results"`
	Trades    []Trade       `json:"trades"`
	ChartData []DailyRecord `json:"chartData"`
}

// ResultRecord is one immutable persisted backtest outcome.
type ResultRecord struct {
	ID             int64           `json:"id"`
	Symbol         string          `json:"symbol"`
	StrategyName   string          `json:"strategyName"`
	StartDate      time.Time       `json:"startDate"`
	EndDate        time.Time       `json:"endDate"`
	InitialCapital decimal.Decimal `json:"initialCapital"`
	FinalValue     decimal.Decimal `json:"finalValue"`
	TotalReturn    decimal.Decimal `json:"totalReturn"`
	TotalTrades    int             `json:"totalTrades"`
	WinningTrades  int             `json:"winningTrades"`
	LosingTrades   int             `json:"losingTrades"`
	MaxDrawdown    decimal.Decimal `json:"maxDrawdown"`
	TradesJSON     string          `json:"tradesJson"`
	CreatedAt      time.Time       `json:"createdAt"`
}
