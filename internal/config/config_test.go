package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kimhsiao/fieldlog/internal/apperr"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8090", cfg.CollectorAddr)
	assert.Equal(t, ":5000", cfg.ServerAddr)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, "http://localhost:5000", cfg.APIBaseURL)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 15*time.Minute, cfg.SyncInterval)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("COLLECTOR_ADDR", ":9999")
	t.Setenv("API_BASE_URL", "http://acceptor:5000")
	t.Setenv("SYNC_INTERVAL", "30s")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.CollectorAddr)
	assert.Equal(t, "http://acceptor:5000", cfg.APIBaseURL)
	assert.Equal(t, 30*time.Second, cfg.SyncInterval)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadInvalidDuration(t *testing.T) {
	t.Setenv("SYNC_INTERVAL", "often")

	_, err := Load()
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.ErrConfig))
}

func TestLoadNegativeInterval(t *testing.T) {
	t.Setenv("SYNC_INTERVAL", "-5m")

	_, err := Load()
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.ErrConfig))
}
