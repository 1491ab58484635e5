package config

import (
	"testing"
	"time"

	"catalog/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("TMDB_API_KEY", "key")

	cfg := Load()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "key", cfg.TMDBAPIKey)
	assert.Empty(t, cfg.TMDBBackupAPIKey)
	assert.Equal(t, services.DefaultBaseURL, cfg.TMDBBaseURL)
	assert.Equal(t, 30*time.Second, cfg.TMDBTimeout)
	assert.Equal(t, time.Second, cfg.TMDBFallbackDelay)
	assert.Equal(t, DriverSQLite, cfg.StoreDriver)
	assert.Equal(t, "catalog.db", cfg.DatabasePath)
	assert.Equal(t, "catalog", cfg.MongoDB)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.False(t, cfg.WarmOnStart)
	assert.Equal(t, 2, cfg.WarmConcurrency)
	assert.Equal(t, 30*24*time.Hour, cfg.RunRetention)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("TMDB_API_KEY", "primary")
	t.Setenv("TMDB_API_KEY_BACKUP", "backup")
	t.Setenv("TMDB_TIMEOUT", "5s")
	t.Setenv("TMDB_FALLBACK_DELAY", "250ms")
	t.Setenv("STORE_DRIVER", "MONGO")
	t.Setenv("MONGO_URL", "mongodb://localhost:27017")
	t.Setenv("WARM_ON_START", "true")
	t.Setenv("WARM_CONCURRENCY", "4")

	cfg := Load()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, DriverMongo, cfg.StoreDriver)
	assert.True(t, cfg.WarmOnStart)
	assert.Equal(t, 4, cfg.WarmConcurrency)

	tmdb := cfg.TMDB()
	assert.Equal(t, "primary", tmdb.APIKey)
	assert.Equal(t, "backup", tmdb.BackupAPIKey)
	assert.Equal(t, 5*time.Second, tmdb.Timeout)
	assert.Equal(t, 250*time.Millisecond, tmdb.FallbackDelay)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("TMDB_TIMEOUT", "soon")
	t.Setenv("WARM_CONCURRENCY", "many")
	t.Setenv("WARM_ON_START", "maybe")

	cfg := Load()
	assert.Equal(t, 30*time.Second, cfg.TMDBTimeout)
	assert.Equal(t, 2, cfg.WarmConcurrency)
	assert.False(t, cfg.WarmOnStart)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing api key", func(c *Config) { c.TMDBAPIKey = "" }, "TMDB_API_KEY"},
		{"zero timeout", func(c *Config) { c.TMDBTimeout = 0 }, "TMDB_TIMEOUT"},
		{"negative fallback delay", func(c *Config) { c.TMDBFallbackDelay = -time.Second }, "TMDB_FALLBACK_DELAY"},
		{"unknown driver", func(c *Config) { c.StoreDriver = "postgres" }, "STORE_DRIVER"},
		{"mongo without url", func(c *Config) { c.StoreDriver = DriverMongo }, "MONGO_URL"},
		{"no warm workers", func(c *Config) { c.WarmConcurrency = 0 }, "WARM_CONCURRENCY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TMDB_API_KEY", "key")
			cfg := Load()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
