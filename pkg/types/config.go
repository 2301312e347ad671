// Package types provides configuration types for the backtest backend.
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// ServerConfig represents HTTP/WebSocket server configuration.
type ServerConfig struct {
	Host          string        `json:"host"`
	Port          int           `json:"port"`
	WebSocketPath string        `json:"websocketPath"`
	ReadTimeout   time.Duration `json:"readTimeout"`
	WriteTimeout  time.Duration `json:"writeTimeout"`
	EnableMetrics bool          `json:"enableMetrics"`
}

// BacktestDefaults are applied to request fields the caller leaves zero.
type BacktestDefaults struct {
	Years          int             `json:"years"`
	MAPeriod       int             `json:"maPeriod"`
	InitialCapital decimal.Decimal `json:"initialCapital"`
}

// DataConfig represents price store configuration.
type DataConfig struct {
	DataDir       string `json:"dataDir"`
	ResultsDBPath string `json:"resultsDbPath"`
}

// QuoteConfig configures the throttled quote collaborator.
type QuoteConfig struct {
	MinInterval time.Duration `json:"minInterval"`
	CacheTTL    time.Duration `json:"cacheTtl"`
}
