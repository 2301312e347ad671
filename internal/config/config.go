// Package config loads backend configuration from file and environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/marketdash/backtest-backend/pkg/types"
)

// Config is the full backend configuration.
type Config struct {
	Server   types.ServerConfig
	Data     types.DataConfig
	Quote    types.QuoteConfig
	Defaults types.BacktestDefaults
	LogLevel string
}

// Load reads configuration with precedence env > config file > defaults.
// Environment variables use the BACKTEST_ prefix with underscores, e.g.
// BACKTEST_SERVER_PORT.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.websocket_path", "/ws")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.enable_metrics", true)
	v.SetDefault("data.dir", "./data")
	v.SetDefault("data.results_db", "./data/results.db")
	v.SetDefault("quote.min_interval", "1s")
	v.SetDefault("quote.cache_ttl", "1m")
	v.SetDefault("defaults.years", 3)
	v.SetDefault("defaults.ma_period", 30)
	v.SetDefault("defaults.initial_capital", "100000")
	v.SetDefault("log_level", "info")

	v.SetEnvPrefix("BACKTEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	readTimeout, err := time.ParseDuration(v.GetString("server.read_timeout"))
	if err != nil {
		return nil, fmt.Errorf("invalid server.read_timeout: %w", err)
	}
	writeTimeout, err := time.ParseDuration(v.GetString("server.write_timeout"))
	if err != nil {
		return nil, fmt.Errorf("invalid server.write_timeout: %w", err)
	}
	minInterval, err := time.ParseDuration(v.GetString("quote.min_interval"))
	if err != nil {
		return nil, fmt.Errorf("invalid quote.min_interval: %w", err)
	}
	cacheTTL, err := time.ParseDuration(v.GetString("quote.cache_ttl"))
	if err != nil {
		return nil, fmt.Errorf("invalid quote.cache_ttl: %w", err)
	}
	initialCapital, err := decimal.NewFromString(v.GetString("defaults.initial_capital"))
	if err != nil {
		return nil, fmt.Errorf("invalid defaults.initial_capital: %w", err)
	}

	cfg := &Config{
		Server: types.ServerConfig{
			Host:          v.GetString("server.host"),
			Port:          v.GetInt("server.port"),
			WebSocketPath: v.GetString("server.websocket_path"),
			ReadTimeout:   readTimeout,
			WriteTimeout:  writeTimeout,
			EnableMetrics: v.GetBool("server.enable_metrics"),
		},
		Data: types.DataConfig{
			DataDir:       v.GetString("data.dir"),
			ResultsDBPath: v.GetString("data.results_db"),
		},
		Quote: types.QuoteConfig{
			MinInterval: minInterval,
			CacheTTL:    cacheTTL,
		},
		Defaults: types.BacktestDefaults{
			Years:          v.GetInt("defaults.years"),
			MAPeriod:       v.GetInt("defaults.ma_period"),
			InitialCapital: initialCapital,
		},
		LogLevel: v.GetString("log_level"),
	}

	if cfg.Defaults.MAPeriod <= 0 {
		return nil, fmt.Errorf("defaults.ma_period must be positive, got %d", cfg.Defaults.MAPeriod)
	}
	if !cfg.Defaults.InitialCapital.IsPositive() {
		return nil, fmt.Errorf("defaults.initial_capital must be positive, got %s", cfg.Defaults.InitialCapital)
	}

	return cfg, nil
}
