// Package data_test provides tests for the price store.
package data_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/marketdash/backtest-backend/internal/data"
	"github.com/marketdash/backtest-backend/pkg/types"
)

func point(day int, close float64) types.PricePoint {
	return types.PricePoint{
		Date:  time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, day),
		Close: decimal.NewFromFloat(close),
	}
}

func TestStoreSaveAndLoadRoundTrip(t *testing.T) {
	logger := zap.NewNop()
	store, err := data.NewStore(logger, t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	points := []types.PricePoint{point(0, 100), point(1, 101.5), point(2, 99.75)}
	if err := store.SavePrices("acme", points); err != nil {
		t.Fatalf("SavePrices failed: %v", err)
	}

	// Symbols are normalized to upper case.
	got, err := store.GetClosePrices(context.Background(), "ACME",
		point(0, 0).Date, point(2, 0).Date)
	if err != nil {
		t.Fatalf("GetClosePrices failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 points, got %d", len(got))
	}
	if !got[1].Close.Equal(decimal.NewFromFloat(101.5)) {
		t.Errorf("Close incorrect: %s", got[1].Close)
	}

	meta, ok := store.Metadata("acme")
	if !ok {
		t.Fatal("Metadata missing after save")
	}
	if meta.Points != 3 {
		t.Errorf("Metadata point count incorrect: %d", meta.Points)
	}
}

func TestStoreClipsToWindow(t *testing.T) {
	store, err := data.NewStore(zap.NewNop(), t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	points := []types.PricePoint{point(0, 10), point(1, 11), point(2, 12), point(3, 13), point(4, 14)}
	if err := store.SavePrices("ACME", points); err != nil {
		t.Fatalf("SavePrices failed: %v", err)
	}

	got, err := store.GetClosePrices(context.Background(), "ACME", point(1, 0).Date, point(3, 0).Date)
	if err != nil {
		t.Fatalf("GetClosePrices failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 points in window, got %d", len(got))
	}
	if !got[0].Date.Equal(point(1, 0).Date) || !got[2].Date.Equal(point(3, 0).Date) {
		t.Error("Window boundaries are inclusive")
	}
}

func TestStoreUnknownSymbolIsEmptyNotError(t *testing.T) {
	store, err := data.NewStore(zap.NewNop(), t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	got, err := store.GetClosePrices(context.Background(), "NOPE", point(0, 0).Date, point(9, 0).Date)
	if err != nil {
		t.Fatalf("Unknown symbol should not error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Expected empty series, got %d points", len(got))
	}
}

func TestStoreRejectsInvalidSeries(t *testing.T) {
	store, err := data.NewStore(zap.NewNop(), t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	dup := []types.PricePoint{point(0, 10), point(0, 11)}
	if err := store.SavePrices("DUP", dup); err == nil {
		t.Error("Duplicate dates must be rejected")
	}

	negative := []types.PricePoint{point(0, 10), point(1, -3)}
	if err := store.SavePrices("NEG", negative); err == nil {
		t.Error("Non-positive closes must be rejected")
	}
}

func TestSyntheticGeneratorIsStableAndValid(t *testing.T) {
	gen := data.NewSyntheticGenerator(zap.NewNop(), 42)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	first := gen.Generate("ACME", start, end)
	second := gen.Generate("ACME", start, end)

	if len(first) == 0 {
		t.Fatal("Generator produced no points")
	}
	if len(first) != len(second) {
		t.Fatalf("Generator is not stable: %d vs %d points", len(first), len(second))
	}
	for i := range first {
		if !first[i].Close.Equal(second[i].Close) {
			t.Fatalf("Generator is not stable at point %d", i)
		}
		if first[i].Date.Weekday() == time.Saturday || first[i].Date.Weekday() == time.Sunday {
			t.Errorf("Generator emitted a weekend point: %s", first[i].Date)
		}
	}

	if err := data.ValidateSeries(first); err != nil {
		t.Errorf("Generated series fails validation: %v", err)
	}
}
