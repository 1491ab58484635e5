package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"catalog/database"
	"catalog/models"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
)

const contentColumns = `id, kind, tmdb_id, title, original_title, overview, original_language,
	poster_url, backdrop_url, release_date, first_air_date, last_air_date,
	vote_average, vote_count, popularity, adult, runtime, number_of_episodes, number_of_seasons,
	genres, production_companies, spoken_languages, videos, maturity_rating, created_at`

// ContentRepository is the SQLite-backed mirror store
type ContentRepository struct {
	db *database.DB
}

// NewContentRepository creates a new content repository
func NewContentRepository(db *database.DB) *ContentRepository {
	return &ContentRepository{db: db}
}

var _ ContentStore = (*ContentRepository)(nil)

// FindByTMDBID looks up a record by its natural key
func (r *ContentRepository) FindByTMDBID(ctx context.Context, kind models.ContentKind, tmdbID int) (*models.Content, error) {
	query := `SELECT ` + contentColumns + ` FROM contents WHERE kind = ? AND tmdb_id = ?`

	content, err := scanContent(r.db.QueryRowContext(ctx, query, string(kind), tmdbID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find %s %d: %w", kind, tmdbID, err)
	}
	return content, nil
}

// GetByID retrieves a record by its internal ID
func (r *ContentRepository) GetByID(ctx context.Context, id string) (*models.Content, error) {
	query := `SELECT ` + contentColumns + ` FROM contents WHERE id = ?`

	content, err := scanContent(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("content with id %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get content: %w", err)
	}
	return content, nil
}

// List returns records of one kind ordered by popularity
func (r *ContentRepository) List(ctx context.Context, kind models.ContentKind, limit, offset int) ([]models.Content, error) {
	query := `SELECT ` + contentColumns + ` FROM contents
		WHERE kind = ?
		ORDER BY popularity DESC, created_at DESC
		LIMIT ? OFFSET ?`

	rows, err := r.db.QueryContext(ctx, query, string(kind), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query contents: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Printf("Failed to close rows: %v", err)
		}
	}()

	contents := []models.Content{}
	for rows.Next() {
		content, err := scanContent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan content: %w", err)
		}
		contents = append(contents, *content)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over rows: %w", err)
	}

	return contents, nil
}

// Insert stores a new record. The internal ID and creation time are assigned
// when absent. A (kind, tmdb_id) conflict yields ErrDuplicate.
func (r *ContentRepository) Insert(ctx context.Context, content *models.Content) error {
	if content.ID == "" {
		content.ID = uuid.NewString()
	}
	if content.CreatedAt.IsZero() {
		content.CreatedAt = time.Now().UTC()
	}

	genres, err := json.Marshal(nonNil(content.Genres))
	if err != nil {
		return fmt.Errorf("failed to marshal genres: %w", err)
	}
	companies, err := json.Marshal(nonNil(content.Companies))
	if err != nil {
		return fmt.Errorf("failed to marshal companies: %w", err)
	}
	languages, err := json.Marshal(nonNil(content.Languages))
	if err != nil {
		return fmt.Errorf("failed to marshal languages: %w", err)
	}
	videos, err := json.Marshal(nonNil(content.Videos))
	if err != nil {
		return fmt.Errorf("failed to marshal videos: %w", err)
	}

	query := `INSERT INTO contents (` + contentColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		content.ID, string(content.Kind), content.TMDBID, content.Title,
		nullString(content.OriginalTitle), nullString(content.Overview), nullString(content.OriginalLanguage),
		nullString(content.PosterURL), nullString(content.BackdropURL),
		nullString(content.ReleaseDate), nullString(content.FirstAirDate), nullString(content.LastAirDate),
		content.VoteAverage, content.VoteCount, content.Popularity, content.Adult,
		nullInt(content.Runtime), nullInt(content.NumberOfEpisodes), nullInt(content.NumberOfSeasons),
		string(genres), string(companies), string(languages), string(videos),
		string(content.MaturityRating), content.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s %d: %w", content.Kind, content.TMDBID, ErrDuplicate)
		}
		return fmt.Errorf("failed to insert content: %w", err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContent(row rowScanner) (*models.Content, error) {
	var content models.Content
	var kind, rating string
	var originalTitle, overview, language, poster, backdrop sql.NullString
	var releaseDate, firstAir, lastAir sql.NullString
	var runtime, episodes, seasons sql.NullInt64
	var genres, companies, languages, videos string

	err := row.Scan(
		&content.ID, &kind, &content.TMDBID, &content.Title,
		&originalTitle, &overview, &language,
		&poster, &backdrop, &releaseDate, &firstAir, &lastAir,
		&content.VoteAverage, &content.VoteCount, &content.Popularity, &content.Adult,
		&runtime, &episodes, &seasons,
		&genres, &companies, &languages, &videos,
		&rating, &content.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	content.Kind = models.ContentKind(kind)
	content.MaturityRating = models.MaturityRating(rating)
	content.OriginalTitle = originalTitle.String
	content.Overview = overview.String
	content.OriginalLanguage = language.String
	content.PosterURL = poster.String
	content.BackdropURL = backdrop.String
	content.ReleaseDate = releaseDate.String
	content.FirstAirDate = firstAir.String
	content.LastAirDate = lastAir.String
	content.Runtime = int(runtime.Int64)
	content.NumberOfEpisodes = int(episodes.Int64)
	content.NumberOfSeasons = int(seasons.Int64)

	if err := json.Unmarshal([]byte(genres), &content.Genres); err != nil {
		return nil, fmt.Errorf("failed to decode genres: %w", err)
	}
	if err := json.Unmarshal([]byte(companies), &content.Companies); err != nil {
		return nil, fmt.Errorf("failed to decode companies: %w", err)
	}
	if err := json.Unmarshal([]byte(languages), &content.Languages); err != nil {
		return nil, fmt.Errorf("failed to decode languages: %w", err)
	}
	if err := json.Unmarshal([]byte(videos), &content.Videos); err != nil {
		return nil, fmt.Errorf("failed to decode videos: %w", err)
	}

	return &content, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// nonNil keeps empty lists encoded as [] rather than null
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// Helper functions for handling null values
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullInt(i int) sql.NullInt64 {
	if i == 0 {
		return sql.NullInt64{Valid: false}
	}
	return sql.NullInt64{Int64: int64(i), Valid: true}
}
