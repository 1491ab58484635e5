package main

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"catalog/jobs"
	"catalog/models"
	"catalog/repository"
	"catalog/services"

	"github.com/gorilla/mux"
)

// Paging bounds for mirror reads
const (
	defaultListLimit = 50
	maxListLimit     = 200
	defaultRunLimit  = 20
)

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		log.Printf("Failed to write response: %v", err)
	}
}

func (app *App) popularHandler(kind models.ContentKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, ok := pageParam(w, r)
		if !ok {
			return
		}

		contents, err := app.catalogSync.SyncPopular(r.Context(), kind, page)
		if err != nil {
			writeSyncError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, contents)
	}
}

func (app *App) trendingHandler(w http.ResponseWriter, r *http.Request) {
	contents, err := app.catalogSync.SyncTrending(r.Context(), r.URL.Query().Get("window"))
	if err != nil {
		writeSyncError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contents)
}

func (app *App) searchHandler(w http.ResponseWriter, r *http.Request) {
	page, ok := pageParam(w, r)
	if !ok {
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	result, err := app.catalogSync.SyncSearch(r.Context(), query, page)
	if err != nil {
		writeSyncError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (app *App) genreHandler(kind models.ContentKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		genreID, err := strconv.Atoi(mux.Vars(r)["genre_id"])
		if err != nil {
			http.Error(w, "Invalid genre ID", http.StatusBadRequest)
			return
		}
		page, ok := pageParam(w, r)
		if !ok {
			return
		}

		contents, err := app.catalogSync.SyncGenre(r.Context(), kind, genreID, page)
		if err != nil {
			writeSyncError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, contents)
	}
}

func (app *App) getContentHandler(w http.ResponseWriter, r *http.Request) {
	content, err := app.contentStore.GetByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, "Content not found", http.StatusNotFound)
			return
		}
		log.Printf("Error getting content by ID: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, content)
}

func (app *App) listContentHandler(kind models.ContentKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, ok := intParam(w, r, "limit", defaultListLimit)
		if !ok {
			return
		}
		offset, ok := intParam(w, r, "offset", 0)
		if !ok {
			return
		}
		if limit < 1 || limit > maxListLimit || offset < 0 {
			http.Error(w, "Invalid paging parameters", http.StatusBadRequest)
			return
		}

		contents, err := app.contentStore.List(r.Context(), kind, limit, offset)
		if err != nil {
			log.Printf("Error listing %s: %v", kind, err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, contents)
	}
}

func (app *App) syncRunsHandler(w http.ResponseWriter, r *http.Request) {
	limit, ok := intParam(w, r, "limit", defaultRunLimit)
	if !ok {
		return
	}
	if limit < 1 || limit > maxListLimit {
		http.Error(w, "Invalid limit", http.StatusBadRequest)
		return
	}

	runs, err := app.syncRunRepo.Recent(r.Context(), limit)
	if err != nil {
		log.Printf("Error getting sync runs: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// warmHandler runs one warm-up pass and waits for it
func (app *App) warmHandler(w http.ResponseWriter, r *http.Request) {
	if err := app.jobManager.Warm(r.Context()); err != nil {
		writeSyncError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeSyncError maps sync failures to HTTP statuses
func writeSyncError(w http.ResponseWriter, err error) {
	var perr *services.ProviderError
	switch {
	case errors.Is(err, jobs.ErrInvalidPage),
		errors.Is(err, jobs.ErrEmptyQuery),
		errors.Is(err, jobs.ErrInvalidWindow),
		errors.Is(err, jobs.ErrInvalidGenre),
		errors.Is(err, jobs.ErrInvalidKind):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, services.ErrRateLimited):
		http.Error(w, "TMDB rate limit exceeded", http.StatusTooManyRequests)
	case errors.As(err, &perr):
		log.Printf("Upstream failure: %v", err)
		http.Error(w, "TMDB request failed", http.StatusBadGateway)
	default:
		log.Printf("Sync failed: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

// pageParam reads ?page=, defaulting to 1. Range checks happen in the sync layer.
func pageParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	return intParam(w, r, "page", 1)
}

func intParam(w http.ResponseWriter, r *http.Request, name string, fallback int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		http.Error(w, "Invalid "+name+" parameter", http.StatusBadRequest)
		return 0, false
	}
	return v, true
}
