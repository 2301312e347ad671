package backtester

import (
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/marketdash/backtest-backend/pkg/types"
)

const (
	rationaleBuy    = "price crossed below moving average"
	rationaleSell   = "price crossed above moving average"
	rationaleFinish = "end of backtest — closing position"
)

// Simulator is the trading state machine for one run. It owns the wallet,
// the trade ledger and the daily trace; there are exactly two firing
// transitions: flat--buy-->long and long--sell-->flat.
type Simulator struct {
	logger *zap.Logger
	wallet types.WalletState
	trades []types.Trade
	daily  []types.DailyRecord
}

// NewSimulator creates a simulator holding initialCapital in cash.
func NewSimulator(logger *zap.Logger, initialCapital decimal.Decimal) *Simulator {
	return &Simulator{
		logger: logger,
		wallet: types.WalletState{
			Cash: initialCapital,
			Position: types.PositionState{
				Status: types.PositionNone,
			},
		},
		trades: make([]types.Trade, 0),
		daily:  make([]types.DailyRecord, 0),
	}
}

// PositionStatus returns the current position status for signal evaluation.
func (s *Simulator) PositionStatus() types.PositionStatus {
	return s.wallet.Position.Status
}

// ApplySignal executes the day's signal against the wallet. A buy that cannot
// afford a single whole share is a no-op, as is any signal that does not match
// the current state (impossible by construction of the signal engine, handled
// defensively anyway).
func (s *Simulator) ApplySignal(date time.Time, price decimal.Decimal, signal types.Signal) {
	switch signal {
	case types.SignalBuy:
		if s.wallet.Position.Status != types.PositionNone {
			s.logger.Warn("buy signal while already long, ignoring",
				zap.Time("date", date),
				zap.String("price", price.String()),
			)
			return
		}
		s.buy(date, price)

	case types.SignalSell:
		if s.wallet.Position.Status != types.PositionLong {
			s.logger.Warn("sell signal while flat, ignoring",
				zap.Time("date", date),
				zap.String("price", price.String()),
			)
			return
		}
		s.sell(date, price, rationaleSell)
	}
}

// ForceLiquidate closes any open position at price, used on the final day of
// the window so every run ends flat and total return is well-defined.
func (s *Simulator) ForceLiquidate(date time.Time, price decimal.Decimal) {
	if s.wallet.Position.Status != types.PositionLong {
		return
	}
	s.sell(date, price, rationaleFinish)
}

// RecordDay appends one trace row reflecting the post-trade state of the day.
func (s *Simulator) RecordDay(date time.Time, price decimal.Decimal, ma *decimal.Decimal, signal types.Signal) {
	s.daily = append(s.daily, types.DailyRecord{
		Date:           date,
		Price:          price,
		MovingAverage:  ma,
		SharesHeld:     s.wallet.Position.Shares,
		Cash:           s.wallet.Cash,
		PortfolioValue: s.valueAt(price),
		Signal:         signal,
	})
}

// Wallet returns a copy of the current wallet state.
func (s *Simulator) Wallet() types.WalletState {
	return s.wallet
}

// Trades returns the ordered trade ledger.
func (s *Simulator) Trades() []types.Trade {
	return s.trades
}

// Daily returns the ordered simulation trace.
func (s *Simulator) Daily() []types.DailyRecord {
	return s.daily
}

func (s *Simulator) buy(date time.Time, price decimal.Decimal) {
	shares := s.wallet.Cash.Div(price).Floor().IntPart()
	if shares == 0 {
		s.logger.Debug("buy signal unaffordable, staying flat",
			zap.Time("date", date),
			zap.String("price", price.String()),
			zap.String("cash", s.wallet.Cash.String()),
		)
		return
	}

	cost := price.Mul(decimal.NewFromInt(shares))
	s.wallet.Cash = s.wallet.Cash.Sub(cost)
	s.wallet.Position = types.PositionState{
		Status:     types.PositionLong,
		Shares:     shares,
		EntryPrice: price,
	}

	s.trades = append(s.trades, types.Trade{
		Date:                date,
		Type:                types.TradeTypeBuy,
		Price:               price,
		Shares:              shares,
		CashValue:           cost,
		PortfolioValueAfter: s.valueAt(price),
		Rationale:           rationaleBuy,
	})
}

func (s *Simulator) sell(date time.Time, price decimal.Decimal, rationale string) {
	shares := s.wallet.Position.Shares
	proceeds := price.Mul(decimal.NewFromInt(shares))
	s.wallet.Cash = s.wallet.Cash.Add(proceeds)
	s.wallet.Position = types.PositionState{
		Status: types.PositionNone,
	}

	s.trades = append(s.trades, types.Trade{
		Date:                date,
		Type:                types.TradeTypeSell,
		Price:               price,
		Shares:              shares,
		CashValue:           proceeds,
		PortfolioValueAfter: s.wallet.Cash,
		Rationale:           rationale,
	})
}

// valueAt is cash plus the position marked at price.
func (s *Simulator) valueAt(price decimal.Decimal) decimal.Decimal {
	if s.wallet.Position.Shares == 0 {
		return s.wallet.Cash
	}
	return s.wallet.Cash.Add(price.Mul(decimal.NewFromInt(s.wallet.Position.Shares)))
}
