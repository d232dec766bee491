package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(MapEnv{"VERIFY_TOKEN": "tok"})
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.ServerAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 10*time.Second, cfg.BackendTimeout)
	assert.Equal(t, 60*time.Second, cfg.QueryTimeout)
	assert.Equal(t, 5*time.Second, cfg.HealthTimeout)
	assert.Equal(t, time.Hour, cfg.SessionIdleTTL)
	assert.Equal(t, 2*time.Second, cfg.RateLimitInterval)
	assert.Equal(t, 1000, cfg.DedupCapacity)
	assert.Equal(t, 100, cfg.SweepEvery)
	assert.Zero(t, cfg.SweepInterval)
	assert.False(t, cfg.TranslationEnabled())
	assert.False(t, cfg.PersistentAudit())
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg, err := LoadFrom(MapEnv{
		"VERIFY_TOKEN":        "tok",
		"BACKEND_URL":         "http://bank:9000/",
		"QUERY_TIMEOUT":       "90s",
		"SESSION_IDLE_TTL":    "30m",
		"DEDUP_CAPACITY":      "50",
		"SWEEP_INTERVAL":      "5m",
		"TRANSLATION_URL":     "http://translate:5000",
		"TRANSFER_POLICY":     "amount <= 1000",
		"DATABASE_URL":        "postgres://localhost/chat",
		"LOG_LEVEL":           "DEBUG",
		"RATE_LIMIT_INTERVAL": "not-a-duration",
		"SWEEP_EVERY":         "-4",
	})
	require.NoError(t, err)

	assert.Equal(t, "http://bank:9000", cfg.BackendURL)
	assert.Equal(t, 90*time.Second, cfg.QueryTimeout)
	assert.Equal(t, 30*time.Minute, cfg.SessionIdleTTL)
	assert.Equal(t, 50, cfg.DedupCapacity)
	assert.Equal(t, 5*time.Minute, cfg.SweepInterval)
	assert.Equal(t, "amount <= 1000", cfg.TransferPolicy)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 2*time.Second, cfg.RateLimitInterval)
	assert.Equal(t, 100, cfg.SweepEvery)
	assert.True(t, cfg.TranslationEnabled())
	assert.True(t, cfg.PersistentAudit())
}

func TestLoadFrom_VerifyTokenRequired(t *testing.T) {
	_, err := LoadFrom(MapEnv{})
	assert.ErrorIs(t, err, ErrMissingVerifyToken)

	_, err = LoadFrom(MapEnv{"ALLOW_NO_VERIFY_TOKEN": "true"})
	assert.NoError(t, err)
}
