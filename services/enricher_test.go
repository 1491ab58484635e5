package services

import (
	"context"
	"net/http"
	"testing"

	"catalog/models"
	"catalog/services/tmdbtest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnrich_Movie(t *testing.T) {
	svc, server := setupTestTMDB(t)
	server.AddMovie(603, "The Matrix", 8.2)

	content := NewEnricher(svc).Enrich(context.Background(), models.KindMovie, 603)
	require.NotNil(t, content)

	assert.Equal(t, "The Matrix", content.Title)
	require.Len(t, content.Videos, 1)
	assert.Equal(t, "key603", content.Videos[0].Key)
	assert.Equal(t, models.RatingPG13, content.MaturityRating)

	assert.Len(t, server.RequestsFor("/movie/603"), 1)
	assert.Len(t, server.RequestsFor("/movie/603/videos"), 1)
}

func TestEnrich_Show(t *testing.T) {
	svc, server := setupTestTMDB(t)
	server.AddShow(1399, "Game of Thrones", 6.5)

	content := NewEnricher(svc).Enrich(context.Background(), models.KindTV, 1399)
	require.NotNil(t, content)
	assert.Equal(t, models.KindTV, content.Kind)
	assert.Equal(t, models.RatingPG, content.MaturityRating)
	assert.Empty(t, content.BackdropURL)
}

func TestEnrich_DetailFailureSkips(t *testing.T) {
	svc, server := setupTestTMDB(t)
	server.Respond("/movie/1", http.StatusInternalServerError, map[string]any{})
	server.JSON("/movie/1/videos", tmdbtest.Videos())

	assert.Nil(t, NewEnricher(svc).Enrich(context.Background(), models.KindMovie, 1))
	assert.Empty(t, server.RequestsFor("/movie/1/videos"), "videos are not fetched after a detail failure")
}

func TestEnrich_VideoFailureKeepsRecord(t *testing.T) {
	svc, server := setupTestTMDB(t)
	server.JSON("/movie/2", tmdbtest.MovieDetail(2, "No Videos", 6.1))
	server.Respond("/movie/2/videos", http.StatusBadGateway, map[string]any{})

	content := NewEnricher(svc).Enrich(context.Background(), models.KindMovie, 2)
	require.NotNil(t, content)
	assert.Empty(t, content.Videos)
	assert.Equal(t, "No Videos", content.Title)
}

func TestEnrich_NormalizationFailureSkips(t *testing.T) {
	svc, server := setupTestTMDB(t)
	server.JSON("/tv/3", map[string]any{"id": 3, "overview": "no name"})
	server.JSON("/tv/3/videos", tmdbtest.Videos())

	assert.Nil(t, NewEnricher(svc).Enrich(context.Background(), models.KindTV, 3))
}

func TestEnrich_RateLimitedDetailSkips(t *testing.T) {
	svc, server := setupTestTMDB(t)
	server.AddMovie(4, "Limited", 7)
	server.RateLimit(primaryKey)
	server.RateLimit(backupKey)

	assert.Nil(t, NewEnricher(svc).Enrich(context.Background(), models.KindMovie, 4))
}
