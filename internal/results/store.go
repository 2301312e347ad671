// Package results persists completed backtest outcomes.
package results

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"github.com/marketdash/backtest-backend/pkg/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS backtest_results (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	symbol          TEXT NOT NULL,
	strategy_name   TEXT NOT NULL,
	start_date      TEXT NOT NULL,
	end_date        TEXT NOT NULL,
	initial_capital TEXT NOT NULL,
	final_value     TEXT NOT NULL,
	total_return    TEXT NOT NULL,
	total_trades    INTEGER NOT NULL,
	winning_trades  INTEGER NOT NULL,
	losing_trades   INTEGER NOT NULL,
	max_drawdown    TEXT NOT NULL,
	trades_json     TEXT NOT NULL,
	created_at      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_backtest_results_symbol
	ON backtest_results (symbol, created_at DESC);
`

// Store is a SQLite-backed log of backtest result records. Records are
// insert-only; the engine never reads its own past results back.
type Store struct {
	logger *zap.Logger
	db     *sql.DB
}

// NewStore opens (or creates) the results database at dbPath.
func NewStore(logger *zap.Logger, dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open results db: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create results schema: %w", err)
	}

	return &Store{logger: logger, db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save inserts one immutable result record and returns its row id.
func (s *Store) Save(ctx context.Context, rec types.ResultRecord) (int64, error) {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO backtest_results (
			symbol, strategy_name, start_date, end_date,
			initial_capital, final_value, total_return,
			total_trades, winning_trades, losing_trades,
			max_drawdown, trades_json, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Symbol,
		rec.StrategyName,
		rec.StartDate.UTC().Format(time.RFC3339),
		rec.EndDate.UTC().Format(time.RFC3339),
		rec.InitialCapital.String(),
		rec.FinalValue.String(),
		rec.TotalReturn.String(),
		rec.TotalTrades,
		rec.WinningTrades,
		rec.LosingTrades,
		rec.MaxDrawdown.String(),
		rec.TradesJSON,
		createdAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert result record: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read inserted id: %w", err)
	}

	s.logger.Debug("saved backtest result",
		zap.Int64("id", id),
		zap.String("symbol", rec.Symbol),
	)

	return id, nil
}

// ListRecent returns up to limit records for symbol, newest first.
func (s *Store) ListRecent(ctx context.Context, symbol string, limit int) ([]types.ResultRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, symbol, strategy_name, start_date, end_date,
			initial_capital, final_value, total_return,
			total_trades, winning_trades, losing_trades,
			max_drawdown, trades_json, created_at
		FROM backtest_results
		WHERE symbol = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`,
		symbol, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query result records: %w", err)
	}
	defer rows.Close()

	var records []types.ResultRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

func scanRecord(rows *sql.Rows) (types.ResultRecord, error) {
	var (
		rec types.ResultRecord

		startDate, endDate, createdAt               string
		initialCapital, finalValue, totalReturn, dd string
	)

	if err := rows.Scan(
		&rec.ID, &rec.Symbol, &rec.StrategyName, &startDate, &endDate,
		&initialCapital, &finalValue, &totalReturn,
		&rec.TotalTrades, &rec.WinningTrades, &rec.LosingTrades,
		&dd, &rec.TradesJSON, &createdAt,
	); err != nil {
		return rec, fmt.Errorf("failed to scan result record: %w", err)
	}

	var err error
	if rec.StartDate, err = time.Parse(time.RFC3339, startDate); err != nil {
		return rec, fmt.Errorf("bad start_date in record %d: %w", rec.ID, err)
	}
	if rec.EndDate, err = time.Parse(time.RFC3339, endDate); err != nil {
		return rec, fmt.Errorf("bad end_date in record %d: %w", rec.ID, err)
	}
	if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return rec, fmt.Errorf("bad created_at in record %d: %w", rec.ID, err)
	}
	if rec.InitialCapital, err = decimal.NewFromString(initialCapital); err != nil {
		return rec, fmt.Errorf("bad initial_capital in record %d: %w", rec.ID, err)
	}
	if rec.FinalValue, err = decimal.NewFromString(finalValue); err != nil {
		return rec, fmt.Errorf("bad final_value in record %d: %w", rec.ID, err)
	}
	if rec.TotalReturn, err = decimal.NewFromString(totalReturn); err != nil {
		return rec, fmt.Errorf("bad total_return in record %d: %w", rec.ID, err)
	}
	if rec.MaxDrawdown, err = decimal.NewFromString(dd); err != nil {
		return rec, fmt.Errorf("bad max_drawdown in record %d: %w", rec.ID, err)
	}

	return rec, nil
}
