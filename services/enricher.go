package services

import (
	"context"
	"log"

	"catalog/models"
)

// Enricher turns a bare TMDB id into a fully normalized record
type Enricher struct {
	tmdb *TMDBService
}

// NewEnricher creates a new enricher backed by the TMDB service
func NewEnricher(tmdb *TMDBService) *Enricher {
	return &Enricher{tmdb: tmdb}
}

// Enrich fetches details and videos for one item and normalizes them. It returns
// nil when the item should be skipped: a failed detail fetch or a payload missing
// required fields. A failed video fetch only leaves the video list empty.
func (e *Enricher) Enrich(ctx context.Context, kind models.ContentKind, tmdbID int) *models.Content {
	detail, err := e.tmdb.Details(ctx, kind, tmdbID)
	if err != nil {
		log.Printf("Failed to fetch %s %d details: %v", kind, tmdbID, err)
		return nil
	}

	var videos []models.Video
	videosDoc, err := e.tmdb.Videos(ctx, kind, tmdbID)
	if err != nil {
		log.Printf("Failed to fetch %s %d videos, continuing without: %v", kind, tmdbID, err)
	} else {
		videos = TrustedVideos(videosDoc)
	}

	content, err := Normalize(kind, detail, videos)
	if err != nil {
		log.Printf("Failed to normalize %s %d: %v", kind, tmdbID, err)
		return nil
	}

	return content
}
