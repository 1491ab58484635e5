// Package jobs provides catalog sync operations and background job processing.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"catalog/models"
	"catalog/repository"
	"catalog/services"
)

// Limits shared by every sync entry point
const (
	MaxPage     = 10
	SearchLimit = 10

	DefaultTrendingWindow = "week"
)

// Validation errors returned before any upstream call
var (
	ErrInvalidPage   = fmt.Errorf("page must be between 1 and %d", MaxPage)
	ErrEmptyQuery    = errors.New("search query is required")
	ErrInvalidWindow = errors.New("trending window must be day or week")
	ErrInvalidGenre  = errors.New("genre id must be positive")
	ErrInvalidKind   = errors.New("content kind must be movie or tv")
)

// CatalogSync pulls listings from TMDB, enriches each item and mirrors it into
// the content store. Items are processed one at a time; an item that fails to
// enrich is skipped while a failed listing fetch fails the whole operation.
type CatalogSync struct {
	tmdb     *services.TMDBService
	enricher *services.Enricher
	store    repository.ContentStore
	runRepo  *repository.SyncRunRepository
}

// NewCatalogSync creates a new catalog sync. runRepo may be nil.
func NewCatalogSync(tmdb *services.TMDBService, store repository.ContentStore, runRepo *repository.SyncRunRepository) *CatalogSync {
	return &CatalogSync{
		tmdb:     tmdb,
		enricher: services.NewEnricher(tmdb),
		store:    store,
		runRepo:  runRepo,
	}
}

// SyncPopular mirrors one page of the popular listing for a content kind
func (s *CatalogSync) SyncPopular(ctx context.Context, kind models.ContentKind, page int) ([]models.Content, error) {
	if err := validateKind(kind); err != nil {
		return nil, err
	}
	if err := validatePage(page); err != nil {
		return nil, err
	}

	run := s.startRun(models.OpPopular)
	params := map[string]interface{}{"kind": kind, "page": page}

	listing, err := s.tmdb.Popular(ctx, kind, page)
	if err != nil {
		err = fmt.Errorf("failed to fetch popular %s: %w", kind, err)
		s.finishRun(ctx, run, params, err)
		return nil, err
	}

	items := services.ListingItems(listing)
	run.Fetched = len(items)

	contents := []models.Content{}
	for _, item := range items {
		if content := s.ingest(ctx, run, kind, item.TMDBID); content != nil {
			contents = append(contents, *content)
		}
	}

	s.finishRun(ctx, run, params, nil)
	return contents, nil
}

// SyncTrending mirrors the mixed trending listing, dispatching each item by its media type
func (s *CatalogSync) SyncTrending(ctx context.Context, window string) ([]models.Content, error) {
	if window == "" {
		window = DefaultTrendingWindow
	}
	if window != "day" && window != "week" {
		return nil, ErrInvalidWindow
	}

	run := s.startRun(models.OpTrending)
	params := map[string]interface{}{"window": window}

	listing, err := s.tmdb.Trending(ctx, window)
	if err != nil {
		err = fmt.Errorf("failed to fetch trending %s: %w", window, err)
		s.finishRun(ctx, run, params, err)
		return nil, err
	}

	items := services.ListingItems(listing)

	contents := []models.Content{}
	for _, item := range items {
		kind, err := models.ParseContentKind(item.MediaType)
		if err != nil {
			// people and other non-content entries
			continue
		}
		run.Fetched++
		if content := s.ingest(ctx, run, kind, item.TMDBID); content != nil {
			contents = append(contents, *content)
		}
	}

	s.finishRun(ctx, run, params, nil)
	return contents, nil
}

// SyncSearch searches both content kinds and mirrors up to SearchLimit results
// of each. TotalResults counts the records actually returned.
func (s *CatalogSync) SyncSearch(ctx context.Context, query string, page int) (*models.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if err := validatePage(page); err != nil {
		return nil, err
	}

	run := s.startRun(models.OpSearch)
	params := map[string]interface{}{"query": query, "page": page}

	movieListing, err := s.tmdb.Search(ctx, models.KindMovie, query, page)
	if err != nil {
		err = fmt.Errorf("failed to search movies: %w", err)
		s.finishRun(ctx, run, params, err)
		return nil, err
	}
	showListing, err := s.tmdb.Search(ctx, models.KindTV, query, page)
	if err != nil {
		err = fmt.Errorf("failed to search tv shows: %w", err)
		s.finishRun(ctx, run, params, err)
		return nil, err
	}

	result := &models.SearchResult{
		Movies: s.ingestAll(ctx, run, models.KindMovie, firstN(services.ListingItems(movieListing), SearchLimit)),
		Shows:  s.ingestAll(ctx, run, models.KindTV, firstN(services.ListingItems(showListing), SearchLimit)),
	}
	result.TotalResults = len(result.Movies) + len(result.Shows)

	s.finishRun(ctx, run, params, nil)
	return result, nil
}

// SyncByGenre mirrors one page of popular movies in a genre
func (s *CatalogSync) SyncByGenre(ctx context.Context, genreID, page int) ([]models.Content, error) {
	return s.SyncGenre(ctx, models.KindMovie, genreID, page)
}

// SyncGenre mirrors one page of the popularity-ranked discovery listing for a genre
func (s *CatalogSync) SyncGenre(ctx context.Context, kind models.ContentKind, genreID, page int) ([]models.Content, error) {
	if err := validateKind(kind); err != nil {
		return nil, err
	}
	if genreID <= 0 {
		return nil, ErrInvalidGenre
	}
	if err := validatePage(page); err != nil {
		return nil, err
	}

	run := s.startRun(models.OpGenre)
	params := map[string]interface{}{"kind": kind, "genre_id": genreID, "page": page}

	listing, err := s.tmdb.Discover(ctx, kind, genreID, page)
	if err != nil {
		err = fmt.Errorf("failed to discover %s for genre %d: %w", kind, genreID, err)
		s.finishRun(ctx, run, params, err)
		return nil, err
	}

	items := services.ListingItems(listing)
	contents := s.ingestAll(ctx, run, kind, items)

	s.finishRun(ctx, run, params, nil)
	return contents, nil
}

func (s *CatalogSync) ingestAll(ctx context.Context, run *models.SyncRun, kind models.ContentKind, items []services.ListingItem) []models.Content {
	run.Fetched += len(items)

	contents := []models.Content{}
	for _, item := range items {
		if content := s.ingest(ctx, run, kind, item.TMDBID); content != nil {
			contents = append(contents, *content)
		}
	}
	return contents
}

// ingest enriches one item and upserts it, returning the mirrored record or nil when skipped
func (s *CatalogSync) ingest(ctx context.Context, run *models.SyncRun, kind models.ContentKind, tmdbID int) *models.Content {
	if ctx.Err() != nil {
		run.Skipped++
		return nil
	}

	content := s.enricher.Enrich(ctx, kind, tmdbID)
	if content == nil {
		run.Skipped++
		return nil
	}

	stored, inserted, err := s.upsert(ctx, content)
	if err != nil {
		log.Printf("Failed to store %s %d: %v", kind, tmdbID, err)
		run.Skipped++
		return nil
	}

	if inserted {
		run.Inserted++
	} else {
		run.Existing++
	}
	return stored
}

// upsert inserts content unless its natural key is already mirrored. The first
// write wins: an existing record is returned unchanged and the new one discarded.
func (s *CatalogSync) upsert(ctx context.Context, content *models.Content) (*models.Content, bool, error) {
	existing, err := s.store.FindByTMDBID(ctx, content.Kind, content.TMDBID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	if err := s.store.Insert(ctx, content); err != nil {
		if !errors.Is(err, repository.ErrDuplicate) {
			return nil, false, err
		}
		// Lost a race with a concurrent writer; the store's record is authoritative
		existing, ferr := s.store.FindByTMDBID(ctx, content.Kind, content.TMDBID)
		if ferr != nil {
			return nil, false, ferr
		}
		if existing == nil {
			return nil, false, err
		}
		return existing, false, nil
	}

	return content, true, nil
}

func (s *CatalogSync) startRun(op models.SyncOperation) *models.SyncRun {
	return &models.SyncRun{Operation: op, StartedAt: time.Now().UTC()}
}

func (s *CatalogSync) finishRun(ctx context.Context, run *models.SyncRun, params map[string]interface{}, err error) {
	run.FinishedAt = time.Now().UTC()
	if err != nil {
		run.Error = err.Error()
		log.Printf("Sync %s failed: %v", run.Operation, err)
	} else {
		log.Printf("Sync %s completed: fetched=%d inserted=%d existing=%d skipped=%d",
			run.Operation, run.Fetched, run.Inserted, run.Existing, run.Skipped)
	}

	if s.runRepo == nil {
		return
	}
	// Record the run even when the caller has gone away
	if err := s.runRepo.Create(context.WithoutCancel(ctx), run, params); err != nil {
		log.Printf("Failed to record sync run: %v", err)
	}
}

func validateKind(kind models.ContentKind) error {
	if _, err := models.ParseContentKind(string(kind)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidKind, err)
	}
	return nil
}

func validatePage(page int) error {
	if page < 1 || page > MaxPage {
		return ErrInvalidPage
	}
	return nil
}

func firstN(items []services.ListingItem, n int) []services.ListingItem {
	if len(items) > n {
		return items[:n]
	}
	return items
}
