// Package api provides the HTTP and WebSocket server.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/marketdash/backtest-backend/internal/backtester"
	"github.com/marketdash/backtest-backend/internal/config"
	"github.com/marketdash/backtest-backend/internal/data"
	"github.com/marketdash/backtest-backend/internal/metrics"
	"github.com/marketdash/backtest-backend/internal/quote"
	"github.com/marketdash/backtest-backend/internal/results"
	"github.com/marketdash/backtest-backend/internal/workers"
	"github.com/marketdash/backtest-backend/pkg/types"
)

// Deps are the collaborators the server routes requests to.
type Deps struct {
	DataStore *data.Store
	Results   *results.Store
	Quotes    *quote.Client
	Synthetic *data.SyntheticGenerator
	Metrics   *metrics.Metrics
	Pool      *workers.Pool
}

// Server is the HTTP/WebSocket API server.
type Server struct {
	logger     *zap.Logger
	config     *config.Config
	router     *mux.Router
	httpServer *http.Server
	hub        *Hub
	deps       Deps

	// now is swappable for deterministic request windows in tests.
	now func() time.Time
}

// NewServer creates a new API server.
func NewServer(logger *zap.Logger, cfg *config.Config, deps Deps) *Server {
	server := &Server{
		logger: logger,
		config: cfg,
		router: mux.NewRouter(),
		hub:    NewHub(logger),
		deps:   deps,
		now:    time.Now,
	}

	server.setupRoutes()
	return server
}

func (s *Server) setupRoutes() {
	// Health check
	s.router.HandleFunc("/api/v1/health", s.handleHealth).Methods("GET")

	// Data endpoints
	s.router.HandleFunc("/api/v1/data/symbols", s.handleGetSymbols).Methods("GET")
	s.router.HandleFunc("/api/v1/data/history/{symbol}", s.handleGetHistory).Methods("GET")
	s.router.HandleFunc("/api/v1/data/sync/{symbol}", s.handleSyncData).Methods("POST")
	s.router.HandleFunc("/api/v1/data/quote/{symbol}", s.handleGetQuote).Methods("GET")

	// Backtest endpoints
	s.router.HandleFunc("/api/v1/backtest/run", s.handleRunBacktest).Methods("POST")
	s.router.HandleFunc("/api/v1/backtest/results/{symbol}", s.handleGetResults).Methods("GET")

	// Prometheus
	if s.config.Server.EnableMetrics {
		s.router.Handle("/metrics", s.deps.Metrics.Handler()).Methods("GET")
	}

	// WebSocket
	s.router.HandleFunc(s.config.Server.WebSocketPath, s.hub.HandleWS)
}

// Router exposes the configured route table.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)

	handler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(s.router)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
	}

	s.logger.Info("Starting API server", zap.String("addr", addr))

	return s.httpServer.ListenAndServe()
}

// Stop gracefully stops the server.
func (s *Server) Stop(ctx context.Context) error {
	s.hub.Close()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"symbols": len(s.deps.DataStore.Symbols()),
		"clients": s.hub.ClientCount(),
		"time":    time.Now().Unix(),
	})
}

func (s *Server) handleGetSymbols(w http.ResponseWriter, r *http.Request) {
	symbols := s.deps.DataStore.Symbols()
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"symbols": symbols,
		"count":   len(symbols),
	})
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	end := s.now()
	start := end.AddDate(-1, 0, 0)

	if v := r.URL.Query().Get("start"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid start date", nil)
			return
		}
		start = t
	}
	if v := r.URL.Query().Get("end"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid end date", nil)
			return
		}
		end = t
	}

	points, err := s.deps.DataStore.GetClosePrices(r.Context(), symbol, start, end)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	if len(points) == 0 {
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("no price history for %s", symbol),
			map[string]interface{}{"needsSync": true})
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"symbol": symbol,
		"points": points,
		"count":  len(points),
	})
}

func (s *Server) handleSyncData(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	years := s.config.Defaults.Years
	if v := r.URL.Query().Get("years"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.writeError(w, http.StatusBadRequest, "years must be a positive integer", nil)
			return
		}
		years = n
	}

	end := s.now()
	start := end.AddDate(-years, 0, 0)

	points := s.deps.Synthetic.Generate(symbol, start, end)
	if err := s.deps.DataStore.SavePrices(symbol, points); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	s.deps.Quotes.Invalidate(symbol)

	s.logger.Info("symbol data synced",
		zap.String("symbol", symbol),
		zap.Int("years", years),
		zap.Int("points", len(points)),
	)

	s.hub.Broadcast(EventDataSynced, map[string]interface{}{
		"symbol": symbol,
		"points": len(points),
	})

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"symbol": symbol,
		"points": len(points),
		"start":  start,
		"end":    end,
	})
}

func (s *Server) handleGetQuote(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	q, err := s.deps.Quotes.GetQuote(r.Context(), symbol)
	if err != nil {
		s.writeError(w, http.StatusNotFound, err.Error(),
			map[string]interface{}{"needsSync": true})
		return
	}

	s.writeJSON(w, http.StatusOK, q)
}

func (s *Server) handleRunBacktest(w http.ResponseWriter, r *http.Request) {
	var req types.BacktestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if req.Symbol == "" {
		s.writeError(w, http.StatusBadRequest, "symbol is required",
			map[string]interface{}{"needsSync": false})
		return
	}

	// Zero-valued request fields fall back to configured defaults.
	if req.Years <= 0 {
		req.Years = s.config.Defaults.Years
	}
	if req.MAPeriod == 0 {
		req.MAPeriod = s.config.Defaults.MAPeriod
	}
	if req.InitialCapital.IsZero() {
		req.InitialCapital = s.config.Defaults.InitialCapital
	}

	end := s.now()
	params := backtester.RunParams{
		Symbol:         req.Symbol,
		Start:          end.AddDate(-req.Years, 0, 0),
		End:            end,
		MAPeriod:       req.MAPeriod,
		InitialCapital: req.InitialCapital,
	}

	engine := backtester.NewEngine(s.logger, s.deps.DataStore)

	var result *types.BacktestResult
	started := time.Now()
	err := s.deps.Pool.Run(r.Context(), workers.TaskFunc(func() error {
		res, runErr := engine.Run(r.Context(), params)
		if runErr != nil {
			return runErr
		}
		result = res
		return nil
	}))
	if err != nil {
		s.observeRunError(err)
		s.writeBacktestError(w, req.Symbol, err)
		return
	}

	s.deps.Metrics.RunsTotal.WithLabelValues("completed").Inc()
	s.deps.Metrics.RunDuration.Observe(time.Since(started).Seconds())
	s.deps.Metrics.TradesPerRun.Observe(float64(len(result.Trades)))

	report := buildReport(result, req)
	s.persistResult(r.Context(), result, req)

	s.hub.Broadcast(EventBacktestComplete, map[string]interface{}{
		"id":          report.ID,
		"symbol":      result.Symbol,
		"finalValue":  result.Summary.FinalValue,
		"totalReturn": result.Summary.TotalReturnPct,
	})

	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleGetResults(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			s.writeError(w, http.StatusBadRequest, "limit must be between 1 and 100", nil)
			return
		}
		limit = n
	}

	records, err := s.deps.Results.ListRecent(r.Context(), symbol, limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error(), nil)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"symbol":  symbol,
		"results": records,
		"count":   len(records),
	})
}

// buildReport flattens a run result into the caller-facing report shape.
// Outperformance is derived here, not stored: it is always strategy return
// minus buy-and-hold return.
func buildReport(result *types.BacktestResult, req types.BacktestRequest) *types.BacktestReport {
	summary := result.Summary
	return &types.BacktestReport{
		ID: result.ID,
		Strategy: types.StrategyInfo{
			Name:        "ma-crossover",
			Description: fmt.Sprintf("%d-day moving average crossover", result.MAPeriod),
			MAPeriod:    result.MAPeriod,
		},
		Period: types.PeriodInfo{
			Years:       req.Years,
			StartDate:   result.StartDate,
			EndDate:     result.EndDate,
			TradingDays: result.TradingDays,
		},
		Results: types.ResultsInfo{
			InitialCapital: req.InitialCapital,
			FinalValue:     summary.FinalValue,
			TotalReturn:    summary.TotalReturnPct,
			TotalTrades:    summary.TotalTrades,
			WinningTrades:  summary.WinningTrades,
			LosingTrades:   summary.LosingTrades,
			WinRate:        summary.WinRatePct,
			MaxDrawdown:    summary.MaxDrawdownPct,
			BuyHoldReturn:  summary.BuyHoldReturnPct,
			Outperformance: summary.TotalReturnPct.Sub(summary.BuyHoldReturnPct),
		},
		Trades:    result.Trades,
		ChartData: result.Daily,
	}
}

// persistResult saves the completed run. Persistence failures are logged but
// never fail the request: the caller already has the full report.
func (s *Server) persistResult(ctx context.Context, result *types.BacktestResult, req types.BacktestRequest) {
	tradesJSON, err := json.Marshal(result.Trades)
	if err != nil {
		s.logger.Error("Failed to marshal trade ledger", zap.String("id", result.ID), zap.Error(err))
		return
	}

	rec := types.ResultRecord{
		Symbol:         result.Symbol,
		StrategyName:   "ma-crossover",
		StartDate:      result.StartDate,
		EndDate:        result.EndDate,
		InitialCapital: req.InitialCapital,
		FinalValue:     result.Summary.FinalValue,
		TotalReturn:    result.Summary.TotalReturnPct,
		TotalTrades:    result.Summary.TotalTrades,
		WinningTrades:  result.Summary.WinningTrades,
		LosingTrades:   result.Summary.LosingTrades,
		MaxDrawdown:    result.Summary.MaxDrawdownPct,
		TradesJSON:     string(tradesJSON),
	}

	if _, err := s.deps.Results.Save(ctx, rec); err != nil {
		s.logger.Error("Failed to persist backtest result",
			zap.String("id", result.ID),
			zap.String("symbol", result.Symbol),
			zap.Error(err),
		)
	}
}

func (s *Server) observeRunError(err error) {
	var insufficient *backtester.InsufficientDataError
	var upstream *backtester.UpstreamDataError
	var configErr *backtester.ConfigurationError

	switch {
	case errors.As(err, &insufficient):
		s.deps.Metrics.RunsTotal.WithLabelValues("insufficient_data").Inc()
	case errors.As(err, &upstream):
		s.deps.Metrics.RunsTotal.WithLabelValues("upstream_error").Inc()
	case errors.As(err, &configErr):
		s.deps.Metrics.RunsTotal.WithLabelValues("configuration_error").Inc()
	default:
		s.deps.Metrics.RunsTotal.WithLabelValues("error").Inc()
	}
}

// writeBacktestError maps engine errors onto HTTP responses. Data problems
// carry needsSync so the frontend can offer a sync instead of a dead end.
func (s *Server) writeBacktestError(w http.ResponseWriter, symbol string, err error) {
	var insufficient *backtester.InsufficientDataError
	var upstream *backtester.UpstreamDataError
	var configErr *backtester.ConfigurationError

	switch {
	case errors.As(err, &insufficient):
		s.writeError(w, http.StatusBadRequest, err.Error(), map[string]interface{}{
			"needsSync": true,
			"found":     insufficient.Found,
			"required":  insufficient.Required,
		})

	case errors.As(err, &upstream):
		s.logger.Error("Upstream data failure", zap.String("symbol", symbol), zap.Error(err))
		s.writeError(w, http.StatusBadGateway, err.Error(), map[string]interface{}{
			"needsSync": true,
		})

	case errors.As(err, &configErr):
		s.writeError(w, http.StatusBadRequest, err.Error(), map[string]interface{}{
			"needsSync": false,
		})

	default:
		s.logger.Error("Backtest failed", zap.String("symbol", symbol), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, err.Error(), nil)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string, extra map[string]interface{}) {
	body := map[string]interface{}{"error": msg}
	for k, v := range extra {
		body[k] = v
	}
	s.writeJSON(w, status, body)
}

func parseDate(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", v)
}
