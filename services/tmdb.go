// Package services provides the TMDB integration: the upstream client, payload
// normalization and detail enrichment.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"catalog/models"

	"github.com/avast/retry-go/v4"
)

// DefaultBaseURL is the TMDB v3 API root
const DefaultBaseURL = "https://api.themoviedb.org/3"

// Document is a loosely-typed TMDB JSON payload. Only the normalizer reads its fields.
type Document map[string]any

type credential int32

const (
	credentialPrimary credential = iota
	credentialBackup
)

func (c credential) String() string {
	if c == credentialBackup {
		return "backup"
	}
	return "primary"
}

// credentialHolder tracks the active credential. Once switched to backup it stays there.
type credentialHolder struct {
	current atomic.Int32
}

func (h *credentialHolder) active() credential {
	return credential(h.current.Load())
}

// useBackup switches to the backup credential and reports whether this call made the switch
func (h *credentialHolder) useBackup() bool {
	return h.current.CompareAndSwap(int32(credentialPrimary), int32(credentialBackup))
}

// TMDBConfig configures a TMDBService
type TMDBConfig struct {
	BaseURL       string
	APIKey        string
	BackupAPIKey  string
	Timeout       time.Duration
	FallbackDelay time.Duration
}

// TMDBService handles interactions with The Movie Database API
type TMDBService struct {
	baseURL       string
	apiKey        string
	backupAPIKey  string
	fallbackDelay time.Duration
	creds         credentialHolder
	client        *http.Client
}

// NewTMDBService creates a new TMDB service instance
func NewTMDBService(cfg TMDBConfig) *TMDBService {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	delay := cfg.FallbackDelay
	if delay < 0 {
		delay = 0
	}

	return &TMDBService{
		baseURL:       strings.TrimRight(baseURL, "/"),
		apiKey:        cfg.APIKey,
		backupAPIKey:  cfg.BackupAPIKey,
		fallbackDelay: delay,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// UsingBackup reports whether the service has fallen back to the backup credential
func (t *TMDBService) UsingBackup() bool {
	return t.creds.active() == credentialBackup
}

func (t *TMDBService) key(c credential) string {
	if c == credentialBackup {
		return t.backupAPIKey
	}
	return t.apiKey
}

// Fetch performs a GET against endpoint with the active credential. A 429 on the
// primary credential switches to the backup, waits the fallback delay and retries
// exactly once. Any further 429 yields ErrRateLimited; other failures yield *ProviderError.
func (t *TMDBService) Fetch(ctx context.Context, endpoint string, params url.Values) (Document, error) {
	doc, err := retry.DoWithData(
		func() (Document, error) {
			return t.get(ctx, endpoint, params, t.creds.active())
		},
		retry.Context(ctx),
		retry.Attempts(2),
		retry.Delay(t.fallbackDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			var rle *rateLimitError
			return errors.As(err, &rle) && rle.cred == credentialPrimary && t.backupAPIKey != ""
		}),
		retry.OnRetry(func(_ uint, _ error) {
			if t.creds.useBackup() {
				log.Printf("TMDB rate limited on primary key, switching to backup key")
			}
		}),
	)
	if err == nil {
		return doc, nil
	}

	var rle *rateLimitError
	if errors.As(err, &rle) {
		log.Printf("Rate limited on all TMDB keys for %s", endpoint)
		return nil, fmt.Errorf("%s: %w", endpoint, ErrRateLimited)
	}
	var perr *ProviderError
	if errors.As(err, &perr) {
		return nil, perr
	}
	// Context cancelled while waiting for the fallback retry
	return nil, &ProviderError{Endpoint: endpoint, Err: err}
}

func (t *TMDBService) get(ctx context.Context, endpoint string, params url.Values, cred credential) (Document, error) {
	query := url.Values{}
	for k, v := range params {
		query[k] = v
	}
	query.Set("api_key", t.key(cred))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, &ProviderError{Endpoint: endpoint, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		// url.Error carries the full URL, api_key included
		perr := &ProviderError{Endpoint: endpoint, Err: err}
		var uerr *url.Error
		if errors.As(err, &uerr) {
			perr.Err = uerr.Err
			perr.Timeout = uerr.Timeout()
		}
		return nil, perr
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Printf("Failed to close response body: %v", err)
		}
	}()

	if resp.StatusCode == http.StatusTooManyRequests {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &rateLimitError{endpoint: endpoint, cred: cred}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		log.Printf("TMDB API error: %d - %s", resp.StatusCode, strings.TrimSpace(string(body)))
		return nil, &ProviderError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Message:    statusMessage(body),
		}
	}

	var doc Document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, &ProviderError{Endpoint: endpoint, Err: fmt.Errorf("failed to decode TMDB response: %w", err)}
	}
	if doc == nil {
		doc = Document{}
	}
	return doc, nil
}

// statusMessage extracts TMDB's status_message from an error body
func statusMessage(body []byte) string {
	var payload struct {
		StatusMessage string `json:"status_message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.StatusMessage != "" {
		return payload.StatusMessage
	}
	return ""
}

func pageParams(page int) url.Values {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	return params
}

// Popular fetches one page of /movie/popular or /tv/popular
func (t *TMDBService) Popular(ctx context.Context, kind models.ContentKind, page int) (Document, error) {
	return t.Fetch(ctx, fmt.Sprintf("/%s/popular", kind), pageParams(page))
}

// Trending fetches the mixed trending listing for a window (day or week)
func (t *TMDBService) Trending(ctx context.Context, window string) (Document, error) {
	return t.Fetch(ctx, "/trending/all/"+url.PathEscape(window), nil)
}

// Search fetches one page of /search/movie or /search/tv
func (t *TMDBService) Search(ctx context.Context, kind models.ContentKind, query string, page int) (Document, error) {
	params := pageParams(page)
	params.Set("query", query)
	return t.Fetch(ctx, fmt.Sprintf("/search/%s", kind), params)
}

// Discover fetches a popularity-ranked discovery listing filtered by genre
func (t *TMDBService) Discover(ctx context.Context, kind models.ContentKind, genreID, page int) (Document, error) {
	params := pageParams(page)
	params.Set("with_genres", strconv.Itoa(genreID))
	params.Set("sort_by", "popularity.desc")
	return t.Fetch(ctx, fmt.Sprintf("/discover/%s", kind), params)
}

// Details fetches the primary detail document of one item
func (t *TMDBService) Details(ctx context.Context, kind models.ContentKind, tmdbID int) (Document, error) {
	return t.Fetch(ctx, fmt.Sprintf("/%s/%d", kind, tmdbID), nil)
}

// Videos fetches the video list of one item
func (t *TMDBService) Videos(ctx context.Context, kind models.ContentKind, tmdbID int) (Document, error) {
	return t.Fetch(ctx, fmt.Sprintf("/%s/%d/videos", kind, tmdbID), nil)
}
