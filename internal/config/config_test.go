package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.Backfill.BatchSize)
	assert.Equal(t, 500, cfg.Backfill.PauseMs)
	assert.Equal(t, 30, cfg.Nearby.LazyCap)
	assert.Equal(t, 700, cfg.Nearby.LazyPauseMs)
	assert.Equal(t, "https://nominatim.openstreetmap.org/search", cfg.Nominatim.BaseURL)
	assert.True(t, cfg.Geocode.CacheEnabled)
	assert.Empty(t, cfg.Google.APIKey)
	assert.Empty(t, cfg.Store.DatabaseURL)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("JOBGEO_STORE_DATABASE_URL", "postgres://localhost/jobgeo")
	t.Setenv("JOBGEO_GOOGLE_API_KEY", "test-key")
	t.Setenv("JOBGEO_BACKFILL_BATCH_SIZE", "25")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/jobgeo", cfg.Store.DatabaseURL)
	assert.Equal(t, "test-key", cfg.Google.APIKey)
	assert.Equal(t, 25, cfg.Backfill.BatchSize)
}

func TestInitLogger_BadLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "noisy", Format: "json"})
	require.Error(t, err)
}
