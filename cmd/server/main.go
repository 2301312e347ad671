// Package main provides the entry point for the backtest backend server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/marketdash/backtest-backend/internal/api"
	"github.com/marketdash/backtest-backend/internal/config"
	"github.com/marketdash/backtest-backend/internal/data"
	"github.com/marketdash/backtest-backend/internal/metrics"
	"github.com/marketdash/backtest-backend/internal/quote"
	"github.com/marketdash/backtest-backend/internal/results"
	"github.com/marketdash/backtest-backend/internal/workers"
)

const maxConcurrentRuns = 4

func main() {
	configPath := flag.String("config", "", "Path to config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("Starting backtest backend",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.String("dataDir", cfg.Data.DataDir),
		zap.String("resultsDB", cfg.Data.ResultsDBPath),
	)

	dataStore, err := data.NewStore(logger, cfg.Data.DataDir)
	if err != nil {
		logger.Fatal("Failed to initialize data store", zap.Error(err))
	}

	resultsStore, err := results.NewStore(logger, cfg.Data.ResultsDBPath)
	if err != nil {
		logger.Fatal("Failed to initialize results store", zap.Error(err))
	}
	defer resultsStore.Close()

	quoteClient := quote.NewClient(logger,
		quote.NewStoreFetcher(dataStore),
		quote.NewTTLCache(cfg.Quote.CacheTTL),
		quote.NewThrottle(cfg.Quote.MinInterval),
	)

	server := api.NewServer(logger, cfg, api.Deps{
		DataStore: dataStore,
		Results:   resultsStore,
		Quotes:    quoteClient,
		Synthetic: data.NewSyntheticGenerator(logger, time.Now().UnixNano()),
		Metrics:   metrics.New(),
		Pool:      workers.NewPool(logger, "backtest", maxConcurrentRuns),
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.Start(); err != nil {
			logger.Error("Server error", zap.Error(err))
		}
	}()

	logger.Info("Server started successfully",
		zap.String("http", fmt.Sprintf("http://%s:%d/api/v1", cfg.Server.Host, cfg.Server.Port)),
		zap.String("ws", fmt.Sprintf("ws://%s:%d%s", cfg.Server.Host, cfg.Server.Port, cfg.Server.WebSocketPath)),
	)

	<-sigChan
	logger.Info("Shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Stop(shutdownCtx); err != nil {
		logger.Error("Error during server shutdown", zap.Error(err))
	}

	logger.Info("Server stopped")
}

func setupLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.Config{
		Level:       zap.NewAtomicLevelAt(zapLevel),
		Development: false,
		Encoding:    "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "time",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalColorLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := config.Build()
	if err != nil {
		panic(err)
	}

	return logger
}
