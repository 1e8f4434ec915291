// Package config loads collector configuration from the environment.
package config

import (
	"os"
	"time"

	"github.com/kimhsiao/fieldlog/internal/apperr"
)

// Config holds runtime configuration for both binaries. Values come from
// environment variables; cmd main loads a .env file first via godotenv.
type Config struct {
	// CollectorAddr is the listen address of the local capture API.
	CollectorAddr string
	// ServerAddr is the listen address of the acceptor stub.
	ServerAddr string
	// DataDir holds the SQLite queue and the acceptor's submission file.
	DataDir string
	// APIBaseURL is the remote acceptor base URL used by the sync engine.
	APIBaseURL string
	// HTTPTimeout bounds every request to the acceptor.
	HTTPTimeout time.Duration
	// SyncInterval is how often the scheduler triggers a sync run.
	SyncInterval time.Duration
	// LogLevel is the minimum log level (debug, info, warn, error).
	LogLevel string
}

// Load reads configuration from the environment, applying defaults.
func Load() (*Config, error) {
	timeout, err := time.ParseDuration(getEnv("HTTP_TIMEOUT", "10s"))
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrConfig, "invalid HTTP_TIMEOUT format", err)
	}

	interval, err := time.ParseDuration(getEnv("SYNC_INTERVAL", "15m"))
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrConfig, "invalid SYNC_INTERVAL format", err)
	}

	cfg := &Config{
		CollectorAddr: getEnv("COLLECTOR_ADDR", ":8090"),
		ServerAddr:    getEnv("SERVER_ADDR", ":5000"),
		DataDir:       getEnv("DATA_DIR", "data"),
		APIBaseURL:    getEnv("API_BASE_URL", "http://localhost:5000"),
		HTTPTimeout:   timeout,
		SyncInterval:  interval,
		LogLevel:      getEnv("LOG_LEVEL", "info"),
	}

	if cfg.SyncInterval <= 0 {
		return nil, apperr.New(apperr.ErrConfig, "SYNC_INTERVAL must be positive")
	}

	return cfg, nil
}

// Helper: get env with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
