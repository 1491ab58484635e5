package services

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"catalog/models"
	"catalog/services/tmdbtest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	primaryKey = "primary-key"
	backupKey  = "backup-key"
)

func setupTestTMDB(t *testing.T) (*TMDBService, *tmdbtest.Server) {
	server := tmdbtest.NewServer()
	t.Cleanup(server.Close)

	svc := NewTMDBService(TMDBConfig{
		BaseURL:       server.URL,
		APIKey:        primaryKey,
		BackupAPIKey:  backupKey,
		Timeout:       2 * time.Second,
		FallbackDelay: 10 * time.Millisecond,
	})
	return svc, server
}

func TestFetch_UsesPrimaryKey(t *testing.T) {
	svc, server := setupTestTMDB(t)
	server.JSON("/movie/popular", tmdbtest.Listing(1, 2))

	doc, err := svc.Fetch(context.Background(), "/movie/popular", url.Values{"page": {"1"}})
	require.NoError(t, err)
	assert.Len(t, ListingItems(doc), 2)

	reqs := server.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, primaryKey, reqs[0].APIKey)
	assert.Equal(t, "1", reqs[0].Query.Get("page"))
	assert.False(t, svc.UsingBackup())
}

func TestFetch_FallsBackToBackupOnRateLimit(t *testing.T) {
	svc, server := setupTestTMDB(t)
	server.JSON("/movie/popular", tmdbtest.Listing(1))
	server.JSON("/tv/popular", tmdbtest.Listing(2))
	server.RateLimit(primaryKey)

	_, err := svc.Fetch(context.Background(), "/movie/popular", nil)
	require.NoError(t, err)

	reqs := server.Requests()
	require.Len(t, reqs, 2, "exactly one retry")
	assert.Equal(t, primaryKey, reqs[0].APIKey)
	assert.Equal(t, backupKey, reqs[1].APIKey)
	assert.Equal(t, reqs[0].Path, reqs[1].Path)
	assert.True(t, svc.UsingBackup())

	// The switch sticks even once the primary key recovers
	server.ClearRateLimit(primaryKey)
	_, err = svc.Fetch(context.Background(), "/tv/popular", nil)
	require.NoError(t, err)

	reqs = server.RequestsFor("/tv/popular")
	require.Len(t, reqs, 1)
	assert.Equal(t, backupKey, reqs[0].APIKey)
}

func TestFetch_WaitsBeforeFallbackRetry(t *testing.T) {
	server := tmdbtest.NewServer()
	defer server.Close()
	server.JSON("/movie/popular", tmdbtest.Listing(1))
	server.RateLimit(primaryKey)

	svc := NewTMDBService(TMDBConfig{
		BaseURL:       server.URL,
		APIKey:        primaryKey,
		BackupAPIKey:  backupKey,
		FallbackDelay: 100 * time.Millisecond,
	})

	start := time.Now()
	_, err := svc.Fetch(context.Background(), "/movie/popular", nil)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

func TestFetch_BothKeysRateLimited(t *testing.T) {
	svc, server := setupTestTMDB(t)
	server.JSON("/movie/popular", tmdbtest.Listing(1))
	server.RateLimit(primaryKey)
	server.RateLimit(backupKey)

	_, err := svc.Fetch(context.Background(), "/movie/popular", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRateLimited))
	assert.Len(t, server.Requests(), 2)

	// Already on backup: no further retry for the next call
	_, err = svc.Fetch(context.Background(), "/movie/popular", nil)
	assert.True(t, errors.Is(err, ErrRateLimited))
	assert.Len(t, server.Requests(), 3)
}

func TestFetch_RateLimitedWithoutBackupKey(t *testing.T) {
	server := tmdbtest.NewServer()
	defer server.Close()
	server.JSON("/movie/popular", tmdbtest.Listing(1))
	server.RateLimit(primaryKey)

	svc := NewTMDBService(TMDBConfig{BaseURL: server.URL, APIKey: primaryKey})

	_, err := svc.Fetch(context.Background(), "/movie/popular", nil)
	assert.True(t, errors.Is(err, ErrRateLimited))
	assert.Len(t, server.Requests(), 1)
	assert.False(t, svc.UsingBackup())
}

func TestFetch_ProviderErrorOnNon2xx(t *testing.T) {
	svc, server := setupTestTMDB(t)
	server.Respond("/movie/1", http.StatusInternalServerError, map[string]any{"status_message": "Internal error."})

	_, err := svc.Fetch(context.Background(), "/movie/1", nil)
	require.Error(t, err)

	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, http.StatusInternalServerError, perr.StatusCode)
	assert.Equal(t, "Internal error.", perr.Message)
	assert.False(t, errors.Is(err, ErrRateLimited))
	assert.Len(t, server.Requests(), 1, "no retry on non-429 failures")
}

func TestFetch_ProviderErrorOnNotFound(t *testing.T) {
	svc, _ := setupTestTMDB(t)

	_, err := svc.Fetch(context.Background(), "/movie/404", nil)

	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, http.StatusNotFound, perr.StatusCode)
	assert.Contains(t, perr.Error(), "404")
}

func TestFetch_ProviderErrorOnTimeout(t *testing.T) {
	server := tmdbtest.NewServer()
	defer server.Close()
	server.JSON("/movie/1", tmdbtest.MovieDetail(1, "Slow", 7))
	server.Delay("/movie/1", time.Second)

	svc := NewTMDBService(TMDBConfig{
		BaseURL: server.URL,
		APIKey:  primaryKey,
		Timeout: 50 * time.Millisecond,
	})

	_, err := svc.Fetch(context.Background(), "/movie/1", nil)

	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, 0, perr.StatusCode)
	assert.True(t, perr.Timeout)
	assert.NotContains(t, err.Error(), primaryKey)
}

func TestFetch_ProviderErrorOnTransportFailure(t *testing.T) {
	server := tmdbtest.NewServer()
	baseURL := server.URL
	server.Close()

	svc := NewTMDBService(TMDBConfig{BaseURL: baseURL, APIKey: primaryKey})

	_, err := svc.Fetch(context.Background(), "/movie/1", nil)

	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, 0, perr.StatusCode)
	assert.NotContains(t, err.Error(), primaryKey)
}

func TestFetch_ProviderErrorOnInvalidJSON(t *testing.T) {
	svc, server := setupTestTMDB(t)
	server.Raw("/movie/1", "{not json")

	_, err := svc.Fetch(context.Background(), "/movie/1", nil)

	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, 0, perr.StatusCode)
}

func TestFetch_CancelledContext(t *testing.T) {
	svc, server := setupTestTMDB(t)
	server.JSON("/movie/1", tmdbtest.MovieDetail(1, "Movie", 7))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Fetch(ctx, "/movie/1", nil)

	var perr *ProviderError
	assert.True(t, errors.As(err, &perr))
}

func TestEndpointHelpers(t *testing.T) {
	svc, server := setupTestTMDB(t)
	ctx := context.Background()
	for _, path := range []string{"/tv/popular", "/trending/all/day", "/search/movie", "/discover/movie", "/tv/5", "/movie/5/videos"} {
		server.JSON(path, tmdbtest.Listing())
	}

	_, err := svc.Popular(ctx, models.KindTV, 3)
	require.NoError(t, err)
	_, err = svc.Trending(ctx, "day")
	require.NoError(t, err)
	_, err = svc.Search(ctx, models.KindMovie, "star wars", 2)
	require.NoError(t, err)
	_, err = svc.Discover(ctx, models.KindMovie, 28, 1)
	require.NoError(t, err)
	_, err = svc.Details(ctx, models.KindTV, 5)
	require.NoError(t, err)
	_, err = svc.Videos(ctx, models.KindMovie, 5)
	require.NoError(t, err)

	assert.Equal(t, "3", server.RequestsFor("/tv/popular")[0].Query.Get("page"))

	search := server.RequestsFor("/search/movie")[0].Query
	assert.Equal(t, "star wars", search.Get("query"))
	assert.Equal(t, "2", search.Get("page"))

	discover := server.RequestsFor("/discover/movie")[0].Query
	assert.Equal(t, "28", discover.Get("with_genres"))
	assert.Equal(t, "popularity.desc", discover.Get("sort_by"))
}
