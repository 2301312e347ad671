// Package results_test provides tests for the results store.
package results_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/marketdash/backtest-backend/internal/results"
	"github.com/marketdash/backtest-backend/pkg/types"
)

func testRecord(symbol string, finalValue int64, createdAt time.Time) types.ResultRecord {
	return types.ResultRecord{
		Symbol:         symbol,
		StrategyName:   "ma_crossover",
		StartDate:      time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		InitialCapital: decimal.NewFromInt(100000),
		FinalValue:     decimal.NewFromInt(finalValue),
		TotalReturn:    decimal.NewFromFloat(3.5),
		TotalTrades:    8,
		WinningTrades:  3,
		LosingTrades:   1,
		MaxDrawdown:    decimal.NewFromFloat(12.25),
		TradesJSON:     `[]`,
		CreatedAt:      createdAt,
	}
}

func TestResultsSaveAndListRecent(t *testing.T) {
	store, err := results.NewStore(zap.NewNop(), filepath.Join(t.TempDir(), "results.db"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	base := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		rec := testRecord("ACME", 100000+int64(i), base.Add(time.Duration(i)*time.Minute))
		if _, err := store.Save(ctx, rec); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}
	if _, err := store.Save(ctx, testRecord("OTHER", 99000, base)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	records, err := store.ListRecent(ctx, "ACME", 2)
	if err != nil {
		t.Fatalf("ListRecent failed: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}
	// Newest first.
	if !records[0].FinalValue.Equal(decimal.NewFromInt(100002)) {
		t.Errorf("First record should be the newest: %s", records[0].FinalValue)
	}
	if !records[1].FinalValue.Equal(decimal.NewFromInt(100001)) {
		t.Errorf("Second record incorrect: %s", records[1].FinalValue)
	}
	for _, rec := range records {
		if rec.Symbol != "ACME" {
			t.Errorf("Record for wrong symbol: %s", rec.Symbol)
		}
	}
}

func TestResultsRoundTripFields(t *testing.T) {
	store, err := results.NewStore(zap.NewNop(), filepath.Join(t.TempDir(), "results.db"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	in := testRecord("ACME", 103500, time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC))
	id, err := store.Save(ctx, in)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if id == 0 {
		t.Error("Expected a non-zero row id")
	}

	records, err := store.ListRecent(ctx, "ACME", 1)
	if err != nil {
		t.Fatalf("ListRecent failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}

	got := records[0]
	if got.StrategyName != in.StrategyName {
		t.Errorf("StrategyName mismatch: %s", got.StrategyName)
	}
	if !got.StartDate.Equal(in.StartDate) || !got.EndDate.Equal(in.EndDate) {
		t.Error("Window dates did not round-trip")
	}
	if !got.MaxDrawdown.Equal(in.MaxDrawdown) {
		t.Errorf("MaxDrawdown mismatch: %s", got.MaxDrawdown)
	}
	if got.TotalTrades != in.TotalTrades || got.WinningTrades != in.WinningTrades || got.LosingTrades != in.LosingTrades {
		t.Error("Trade counts did not round-trip")
	}
}

func TestResultsListRecentEmpty(t *testing.T) {
	store, err := results.NewStore(zap.NewNop(), filepath.Join(t.TempDir(), "results.db"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	records, err := store.ListRecent(context.Background(), "NOPE", 5)
	if err != nil {
		t.Fatalf("ListRecent failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("Expected no records, got %d", len(records))
	}
}
