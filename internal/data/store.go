// Package data provides daily close-price storage and loading.
package data

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/marketdash/backtest-backend/pkg/types"
)

// Store provides access to historical end-of-day close prices, one JSON file
// per symbol with an in-memory cache in front. Series handed out are always
// sorted ascending by date.
type Store struct {
	mu       sync.RWMutex
	logger   *zap.Logger
	dataDir  string
	cache    map[string][]types.PricePoint
	metadata map[string]*SymbolMetadata
}

// SymbolMetadata describes the stored range for a symbol.
type SymbolMetadata struct {
	Symbol    string    `json:"symbol"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	Points    int       `json:"points"`
}

// NewStore creates a price store rooted at dataDir.
func NewStore(logger *zap.Logger, dataDir string) (*Store, error) {
	store := &Store{
		logger:   logger,
		dataDir:  dataDir,
		cache:    make(map[string][]types.PricePoint),
		metadata: make(map[string]*SymbolMetadata),
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	if err := store.loadMetadata(); err != nil {
		logger.Warn("failed to load metadata", zap.Error(err))
	}

	return store, nil
}

// GetClosePrices returns the stored series for symbol clipped to [start, end].
// An unknown symbol yields an empty series, not an error; the engine treats
// that as unusable upstream data.
func (s *Store) GetClosePrices(ctx context.Context, symbol string, start, end time.Time) ([]types.PricePoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	symbol = normalizeSymbol(symbol)

	if cached, ok := s.cache[symbol]; ok {
		return filterByDateRange(cached, start, end), nil
	}

	raw, err := os.ReadFile(s.seriesPath(symbol))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read price file: %w", err)
	}

	var points []types.PricePoint
	if err := json.Unmarshal(raw, &points); err != nil {
		return nil, fmt.Errorf("failed to parse price file: %w", err)
	}

	sort.Slice(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})

	if err := ValidateSeries(points); err != nil {
		return nil, fmt.Errorf("stored series for %s is corrupt: %w", symbol, err)
	}

	s.cache[symbol] = points

	return filterByDateRange(points, start, end), nil
}

// SavePrices replaces the stored series for symbol. The input is sorted and
// validated before anything is written.
func (s *Store) SavePrices(symbol string, points []types.PricePoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	symbol = normalizeSymbol(symbol)

	sorted := make([]types.PricePoint, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	if err := ValidateSeries(sorted); err != nil {
		return fmt.Errorf("refusing to save series for %s: %w", symbol, err)
	}

	raw, err := json.MarshalIndent(sorted, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal series: %w", err)
	}

	if err := os.WriteFile(s.seriesPath(symbol), raw, 0644); err != nil {
		return fmt.Errorf("failed to write price file: %w", err)
	}

	s.cache[symbol] = sorted

	if len(sorted) > 0 {
		s.metadata[symbol] = &SymbolMetadata{
			Symbol:    symbol,
			StartDate: sorted[0].Date,
			EndDate:   sorted[len(sorted)-1].Date,
			Points:    len(sorted),
		}
	}

	if err := s.saveMetadata(); err != nil {
		s.logger.Warn("failed to save metadata", zap.Error(err))
	}

	return nil
}

// Symbols returns all symbols with stored history.
func (s *Store) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	symbols := make([]string, 0, len(s.metadata))
	for symbol := range s.metadata {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}

// Metadata returns the stored range for a symbol.
func (s *Store) Metadata(symbol string) (*SymbolMetadata, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	meta, ok := s.metadata[normalizeSymbol(symbol)]
	if !ok {
		return nil, false
	}
	copied := *meta
	return &copied, true
}

// ClearCache drops the in-memory cache.
func (s *Store) ClearCache() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache = make(map[string][]types.PricePoint)
}

func (s *Store) seriesPath(symbol string) string {
	return filepath.Join(s.dataDir, fmt.Sprintf("%s_daily.json", strings.ReplaceAll(symbol, "/", "_")))
}

func (s *Store) loadMetadata() error {
	raw, err := os.ReadFile(filepath.Join(s.dataDir, "metadata.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var metadata map[string]*SymbolMetadata
	if err := json.Unmarshal(raw, &metadata); err != nil {
		return err
	}

	s.metadata = metadata
	return nil
}

func (s *Store) saveMetadata() error {
	raw, err := json.MarshalIndent(s.metadata, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.dataDir, "metadata.json"), raw, 0644)
}

func filterByDateRange(points []types.PricePoint, start, end time.Time) []types.PricePoint {
	var filtered []types.PricePoint
	for _, p := range points {
		if p.Date.Before(start) || p.Date.After(end) {
			continue
		}
		filtered = append(filtered, p)
	}
	return filtered
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
