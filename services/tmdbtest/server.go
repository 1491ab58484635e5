// Package tmdbtest provides an in-process fake of the TMDB API for tests.
package tmdbtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"time"
)

// Request is a request received by the fake server
type Request struct {
	Path   string
	APIKey string
	Query  url.Values
}

type route struct {
	status int
	body   []byte
	delay  time.Duration
}

// Server is a fake TMDB API. Unregistered paths answer 404.
type Server struct {
	*httptest.Server

	mu          sync.Mutex
	routes      map[string]route
	limitedKeys map[string]bool
	requests    []Request
}

// NewServer starts a fake TMDB server. Callers must Close it.
func NewServer() *Server {
	s := &Server{
		routes:      make(map[string]route),
		limitedKeys: make(map[string]bool),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("api_key")

	s.mu.Lock()
	s.requests = append(s.requests, Request{Path: r.URL.Path, APIKey: key, Query: r.URL.Query()})
	rt, ok := s.routes[r.URL.Path]
	limited := s.limitedKeys[key]
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")

	if limited {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"status_code":25,"status_message":"Your request count is over the allowed limit."}`))
		return
	}

	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"status_code":34,"status_message":"The resource you requested could not be found."}`))
		return
	}

	if rt.delay > 0 {
		select {
		case <-time.After(rt.delay):
		case <-r.Context().Done():
			return
		}
	}

	w.WriteHeader(rt.status)
	_, _ = w.Write(rt.body)
}

// JSON registers a 200 response for path
func (s *Server) JSON(path string, body any) {
	s.Respond(path, http.StatusOK, body)
}

// Respond registers a response with an explicit status for path
func (s *Server) Respond(path string, status int, body any) {
	raw, err := json.Marshal(body)
	if err != nil {
		panic(fmt.Sprintf("tmdbtest: failed to marshal body for %s: %v", path, err))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rt := s.routes[path]
	rt.status = status
	rt.body = raw
	s.routes[path] = rt
}

// Raw registers a 200 response with a literal body
func (s *Server) Raw(path, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rt := s.routes[path]
	rt.status = http.StatusOK
	rt.body = []byte(body)
	s.routes[path] = rt
}

// Delay makes path wait before answering
func (s *Server) Delay(path string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rt := s.routes[path]
	rt.delay = d
	s.routes[path] = rt
}

// RateLimit makes every request authenticated with apiKey answer 429
func (s *Server) RateLimit(apiKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limitedKeys[apiKey] = true
}

// ClearRateLimit lifts a rate limit set with RateLimit
func (s *Server) ClearRateLimit(apiKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.limitedKeys, apiKey)
}

// Requests returns every request received so far
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// RequestsFor returns the requests received for one path
func (s *Server) RequestsFor(path string) []Request {
	var out []Request
	for _, r := range s.Requests() {
		if r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// AddMovie registers detail and video responses for a movie
func (s *Server) AddMovie(id int, title string, voteAverage float64) {
	s.JSON(fmt.Sprintf("/movie/%d", id), MovieDetail(id, title, voteAverage))
	s.JSON(fmt.Sprintf("/movie/%d/videos", id), Videos(Video(fmt.Sprintf("mv%d", id), fmt.Sprintf("key%d", id), "YouTube")))
}

// AddShow registers detail and video responses for a TV show
func (s *Server) AddShow(id int, name string, voteAverage float64) {
	s.JSON(fmt.Sprintf("/tv/%d", id), ShowDetail(id, name, voteAverage))
	s.JSON(fmt.Sprintf("/tv/%d/videos", id), Videos(Video(fmt.Sprintf("tv%d", id), fmt.Sprintf("tvkey%d", id), "YouTube")))
}

// MovieDetail builds a /movie/{id} payload
func MovieDetail(id int, title string, voteAverage float64) map[string]any {
	return map[string]any{
		"id":                id,
		"title":             title,
		"original_title":    title,
		"overview":          "Overview of " + title,
		"poster_path":       fmt.Sprintf("/poster%d.jpg", id),
		"backdrop_path":     fmt.Sprintf("/backdrop%d.jpg", id),
		"release_date":      "2020-01-01",
		"runtime":           120,
		"vote_average":      voteAverage,
		"vote_count":        1000,
		"popularity":        50.5,
		"adult":             false,
		"original_language": "en",
		"genres":            []any{map[string]any{"id": 28, "name": "Action"}},
		"production_companies": []any{
			map[string]any{"id": 1, "name": "Studio", "logo_path": "/logo.png"},
		},
		"spoken_languages": []any{map[string]any{"iso_639_1": "en", "name": "English"}},
	}
}

// ShowDetail builds a /tv/{id} payload
func ShowDetail(id int, name string, voteAverage float64) map[string]any {
	return map[string]any{
		"id":                 id,
		"name":               name,
		"original_name":      name,
		"overview":           "Overview of " + name,
		"poster_path":        fmt.Sprintf("/tvposter%d.jpg", id),
		"backdrop_path":      nil,
		"first_air_date":     "2019-05-01",
		"last_air_date":      "2021-06-01",
		"number_of_episodes": 20,
		"number_of_seasons":  2,
		"vote_average":       voteAverage,
		"vote_count":         300,
		"popularity":         12.5,
		"original_language":  "en",
		"genres":             []any{map[string]any{"id": 18, "name": "Drama"}},
		"spoken_languages":   []any{map[string]any{"iso_639_1": "en", "name": "English"}},
	}
}

// Video builds one entry of a videos payload
func Video(id, key, site string) map[string]any {
	return map[string]any{
		"id":       id,
		"key":      key,
		"name":     "Official Trailer",
		"site":     site,
		"type":     "Trailer",
		"official": true,
	}
}

// Videos builds a /{kind}/{id}/videos payload
func Videos(entries ...map[string]any) map[string]any {
	results := make([]any, 0, len(entries))
	for _, e := range entries {
		results = append(results, e)
	}
	return map[string]any{"results": results}
}

// Listing builds a listing payload (popular, search, discover) from ids
func Listing(ids ...int) map[string]any {
	results := make([]any, 0, len(ids))
	for _, id := range ids {
		results = append(results, map[string]any{"id": id})
	}
	return map[string]any{"page": 1, "results": results, "total_results": len(ids)}
}

// TrendingItem is one entry of a trending listing
type TrendingItem struct {
	ID        int
	MediaType string
}

// Trending builds a /trending/all/{window} payload
func Trending(items ...TrendingItem) map[string]any {
	results := make([]any, 0, len(items))
	for _, it := range items {
		results = append(results, map[string]any{"id": it.ID, "media_type": it.MediaType})
	}
	return map[string]any{"page": 1, "results": results}
}
