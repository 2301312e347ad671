// Package backtester provides the core backtesting engine.
package backtester

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/marketdash/backtest-backend/pkg/types"
)

// PriceProvider supplies the immutable close-price snapshot for a run. The
// returned series must be sorted ascending by date with no duplicate dates.
type PriceProvider interface {
	GetClosePrices(ctx context.Context, symbol string, start, end time.Time) ([]types.PricePoint, error)
}

// RunParams are the validated inputs of one backtest run.
type RunParams struct {
	Symbol         string
	Start          time.Time
	End            time.Time
	MAPeriod       int
	InitialCapital decimal.Decimal
}

// Engine composes the moving-average calculator, signal engine, portfolio
// simulator and analyzer into one run over a price window. A run is
// single-threaded and deterministic: identical inputs over an identical price
// series produce identical ledgers and summaries. Concurrent runs use
// independent Engine value state (the engine itself holds none).
type Engine struct {
	logger   *zap.Logger
	provider PriceProvider
	signals  *SignalEngine
	analyzer *Analyzer
}

// NewEngine creates a new backtesting engine.
func NewEngine(logger *zap.Logger, provider PriceProvider) *Engine {
	return &Engine{
		logger:   logger,
		provider: provider,
		signals:  NewSignalEngine(),
		analyzer: NewAnalyzer(),
	}
}

// Run executes one backtest. All three error kinds fire before any wallet
// mutation, so a partial trade ledger is never returned: a run either fully
// completes, including the forced end-of-window liquidation, or fails up
// front.
func (e *Engine) Run(ctx context.Context, params RunParams) (*types.BacktestResult, error) {
	if params.MAPeriod <= 0 {
		return nil, &ConfigurationError{Field: "maPeriod", Reason: "must be positive"}
	}
	if !params.InitialCapital.GreaterThan(decimal.Zero) {
		return nil, &ConfigurationError{Field: "initialCapital", Reason: "must be positive"}
	}

	prices, err := e.provider.GetClosePrices(ctx, params.Symbol, params.Start, params.End)
	if err != nil {
		return nil, &UpstreamDataError{Symbol: params.Symbol, Err: err}
	}
	if len(prices) == 0 {
		return nil, &UpstreamDataError{Symbol: params.Symbol}
	}
	if len(prices) < params.MAPeriod {
		return nil, &InsufficientDataError{
			Symbol:   params.Symbol,
			Found:    len(prices),
			Required: params.MAPeriod,
		}
	}

	closes := make([]decimal.Decimal, len(prices))
	for i, p := range prices {
		closes[i] = p.Close
	}

	ma, err := ComputeSMA(closes, params.MAPeriod)
	if err != nil {
		return nil, err
	}

	e.logger.Info("starting backtest",
		zap.String("symbol", params.Symbol),
		zap.Int("maPeriod", params.MAPeriod),
		zap.Int("tradingDays", len(prices)),
		zap.String("initialCapital", params.InitialCapital.String()),
	)

	sim := NewSimulator(e.logger, params.InitialCapital)
	lastIdx := len(prices) - 1

	for i, point := range prices {
		// Trading starts the day after the average first becomes defined;
		// the first defined day (index period-1) only charts.
		signal := types.SignalNone
		if i >= params.MAPeriod {
			signal = e.signals.Evaluate(point.Close, ma[i], sim.PositionStatus())
		}
		sim.ApplySignal(point.Date, point.Close, signal)
		if i == lastIdx {
			sim.ForceLiquidate(point.Date, point.Close)
		}
		sim.RecordDay(point.Date, point.Close, ma[i], signal)
	}

	firstUsablePrice := closes[params.MAPeriod-1]
	summary := e.analyzer.Summarize(sim.Trades(), sim.Daily(), params.InitialCapital, firstUsablePrice, closes[lastIdx])

	result := &types.BacktestResult{
		ID:          uuid.New().String(),
		Symbol:      params.Symbol,
		MAPeriod:    params.MAPeriod,
		StartDate:   prices[0].Date,
		EndDate:     prices[lastIdx].Date,
		TradingDays: len(prices),
		Trades:      sim.Trades(),
		Daily:       sim.Daily(),
		Summary:     summary,
	}

	e.logger.Info("backtest completed",
		zap.String("id", result.ID),
		zap.String("symbol", params.Symbol),
		zap.Int("trades", len(result.Trades)),
		zap.String("finalValue", summary.FinalValue.String()),
		zap.String("totalReturnPct", summary.TotalReturnPct.String()),
	)

	return result, nil
}
