package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"catalog/database"
	"catalog/models"
)

// SyncRunRepository handles the sync run log
type SyncRunRepository struct {
	db *database.DB
}

// NewSyncRunRepository creates a new sync run repository
func NewSyncRunRepository(db *database.DB) *SyncRunRepository {
	return &SyncRunRepository{db: db}
}

// Create appends a sync run. params is marshalled to JSON when non-nil.
func (r *SyncRunRepository) Create(ctx context.Context, run *models.SyncRun, params interface{}) error {
	if params != nil {
		paramsBytes, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("failed to marshal run params: %w", err)
		}
		run.Params = string(paramsBytes)
	}

	query := `INSERT INTO sync_runs (operation, params, fetched, inserted, existing, skipped, error, started_at, finished_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := r.db.ExecContext(ctx, query,
		string(run.Operation), nullString(run.Params),
		run.Fetched, run.Inserted, run.Existing, run.Skipped,
		nullString(run.Error), run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create sync run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	run.ID = int(id)
	return nil
}

// Recent returns the most recent runs, newest first
func (r *SyncRunRepository) Recent(ctx context.Context, limit int) ([]models.SyncRun, error) {
	query := `SELECT id, operation, params, fetched, inserted, existing, skipped, error, started_at, finished_at
			  FROM sync_runs
			  ORDER BY started_at DESC, id DESC
			  LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync runs: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			log.Printf("Failed to close rows: %v", cerr)
		}
	}()

	runs := []models.SyncRun{}
	for rows.Next() {
		var run models.SyncRun
		var operation string
		var params, runErr sql.NullString

		err := rows.Scan(&run.ID, &operation, &params,
			&run.Fetched, &run.Inserted, &run.Existing, &run.Skipped,
			&runErr, &run.StartedAt, &run.FinishedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync run: %w", err)
		}

		run.Operation = models.SyncOperation(operation)
		run.Params = params.String
		run.Error = runErr.String
		runs = append(runs, run)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sync runs: %w", err)
	}

	return runs, nil
}

// DeleteOlderThan removes runs started before the cutoff
func (r *SyncRunRepository) DeleteOlderThan(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	result, err := r.db.ExecContext(ctx, `DELETE FROM sync_runs WHERE started_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old sync runs: %w", err)
	}
	return result.RowsAffected()
}
