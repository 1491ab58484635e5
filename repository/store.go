// Package repository provides data access layer for the catalog mirror.
package repository

import (
	"context"
	"errors"

	"catalog/models"
)

var (
	// ErrDuplicate is returned by Insert when (kind, tmdb_id) already exists
	ErrDuplicate = errors.New("content already exists")
	// ErrNotFound is returned when a record does not exist
	ErrNotFound = errors.New("content not found")
)

// ContentStore is the mirror store used by catalog sync. Implementations must
// enforce uniqueness of (kind, tmdb_id) themselves.
type ContentStore interface {
	// FindByTMDBID returns (nil, nil) when no record exists for the natural key
	FindByTMDBID(ctx context.Context, kind models.ContentKind, tmdbID int) (*models.Content, error)
	Insert(ctx context.Context, content *models.Content) error
	GetByID(ctx context.Context, id string) (*models.Content, error)
	List(ctx context.Context, kind models.ContentKind, limit, offset int) ([]models.Content, error)
}
