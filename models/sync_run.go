package models

import "time"

// SyncOperation names a catalog sync entry point
type SyncOperation string

const (
	OpPopular  SyncOperation = "popular"
	OpTrending SyncOperation = "trending"
	OpSearch   SyncOperation = "search"
	OpGenre    SyncOperation = "genre"
)

// SyncRun records the outcome of one sync operation
type SyncRun struct {
	ID         int           `json:"id"`
	Operation  SyncOperation `json:"operation"`
	Params     string        `json:"params,omitempty"` // JSON string of the call parameters
	Fetched    int           `json:"fetched"`
	Inserted   int           `json:"inserted"`
	Existing   int           `json:"existing"`
	Skipped    int           `json:"skipped"`
	Error      string        `json:"error,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
}

// Succeeded reports whether the run completed without an operation-level failure
func (r *SyncRun) Succeeded() bool {
	return r.Error == ""
}
