// Package config loads service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"catalog/services"
)

// Supported mirror store drivers
const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

type Config struct {
	TMDBAPIKey        string
	TMDBBackupAPIKey  string
	TMDBBaseURL       string
	TMDBTimeout       time.Duration
	TMDBFallbackDelay time.Duration

	StoreDriver  string
	DatabasePath string
	MongoURL     string
	MongoDB      string

	ListenAddr string
	LogFile    string

	WarmOnStart     bool
	WarmConcurrency int
	RunRetention    time.Duration
}

func Load() *Config {
	return &Config{
		TMDBAPIKey:        env("TMDB_API_KEY", ""),
		TMDBBackupAPIKey:  env("TMDB_API_KEY_BACKUP", ""),
		TMDBBaseURL:       env("TMDB_BASE_URL", services.DefaultBaseURL),
		TMDBTimeout:       envDuration("TMDB_TIMEOUT", 30*time.Second),
		TMDBFallbackDelay: envDuration("TMDB_FALLBACK_DELAY", time.Second),
		StoreDriver:       strings.ToLower(env("STORE_DRIVER", DriverSQLite)),
		DatabasePath:      env("DATABASE_PATH", "catalog.db"),
		MongoURL:          env("MONGO_URL", ""),
		MongoDB:           env("MONGO_DB", "catalog"),
		ListenAddr:        env("LISTEN_ADDR", ":8080"),
		LogFile:           env("LOG_FILE", ""),
		WarmOnStart:       envBool("WARM_ON_START", false),
		WarmConcurrency:   envInt("WARM_CONCURRENCY", 2),
		RunRetention:      envDuration("SYNC_RUN_RETENTION", 30*24*time.Hour),
	}
}

// Validate reports every missing or invalid setting at once
func (c *Config) Validate() error {
	var errs []error

	if c.TMDBAPIKey == "" {
		errs = append(errs, errors.New("TMDB_API_KEY environment variable is required"))
	}
	if c.TMDBTimeout <= 0 {
		errs = append(errs, errors.New("TMDB_TIMEOUT must be positive"))
	}
	if c.TMDBFallbackDelay < 0 {
		errs = append(errs, errors.New("TMDB_FALLBACK_DELAY must not be negative"))
	}
	// The sync run log lives in SQLite whichever content store is used
	if c.DatabasePath == "" {
		errs = append(errs, errors.New("DATABASE_PATH is required"))
	}
	switch c.StoreDriver {
	case DriverSQLite:
	case DriverMongo:
		if c.MongoURL == "" {
			errs = append(errs, errors.New("MONGO_URL is required for the mongo store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}
	if c.WarmConcurrency < 1 {
		errs = append(errs, errors.New("WARM_CONCURRENCY must be at least 1"))
	}

	return errors.Join(errs...)
}

// TMDB returns the upstream client settings
func (c *Config) TMDB() services.TMDBConfig {
	return services.TMDBConfig{
		BaseURL:       c.TMDBBaseURL,
		APIKey:        c.TMDBAPIKey,
		BackupAPIKey:  c.TMDBBackupAPIKey,
		Timeout:       c.TMDBTimeout,
		FallbackDelay: c.TMDBFallbackDelay,
	}
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
