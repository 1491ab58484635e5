// Package models defines the data structures used throughout the application.
package models

import (
	"fmt"
	"time"
)

// ContentKind discriminates movies from TV shows
type ContentKind string

// Content kind constants
const (
	KindMovie ContentKind = "movie"
	KindTV    ContentKind = "tv"
)

// ParseContentKind converts a raw kind string into a ContentKind
func ParseContentKind(s string) (ContentKind, error) {
	switch ContentKind(s) {
	case KindMovie:
		return KindMovie, nil
	case KindTV:
		return KindTV, nil
	}
	return "", fmt.Errorf("unknown content kind %q", s)
}

// MaturityRating is the derived maturity classification of a content item
type MaturityRating string

// Maturity tiers, from least to most restrictive
const (
	RatingG    MaturityRating = "G"
	RatingPG   MaturityRating = "PG"
	RatingPG13 MaturityRating = "PG-13"
	RatingR    MaturityRating = "R"
)

// ClassifyMaturity derives a maturity tier from the adult flag and vote average.
// This is a heuristic, not a ratings board classification. Shows have no adult flag
// and are classified by vote average alone.
func ClassifyMaturity(adult bool, voteAverage float64, kind ContentKind) MaturityRating {
	switch {
	case adult && kind == KindMovie:
		return RatingR
	case voteAverage >= 8.0:
		return RatingPG13
	case voteAverage >= 6.0:
		return RatingPG
	default:
		return RatingG
	}
}

// MaxVideos bounds the number of promotional videos kept per record
const MaxVideos = 20

// TrustedVideoSite is the only video host whose entries are kept
const TrustedVideoSite = "YouTube"

// Genre is a classification reference
type Genre struct {
	ID   int    `json:"id" bson:"id"`
	Name string `json:"name" bson:"name"`
}

// Company is a production company reference
type Company struct {
	ID      int    `json:"id" bson:"id"`
	Name    string `json:"name" bson:"name"`
	LogoURL string `json:"logo_url,omitempty" bson:"logo_url,omitempty"`
}

// Language is a spoken language reference
type Language struct {
	ISO6391 string `json:"iso_639_1" bson:"iso_639_1"`
	Name    string `json:"name" bson:"name"`
}

// Video is a promotional video reference (trailer, teaser, ...)
type Video struct {
	ID       string `json:"id" bson:"id"`
	Key      string `json:"key" bson:"key"`
	Name     string `json:"name" bson:"name"`
	Site     string `json:"site" bson:"site"`
	Type     string `json:"type" bson:"type"`
	Official bool   `json:"official" bson:"official"`
}

// Content is a normalized movie or TV show mirrored from TMDB
type Content struct {
	ID               string         `json:"id" bson:"id"`
	TMDBID           int            `json:"tmdb_id" bson:"tmdb_id"`
	Kind             ContentKind    `json:"content_type" bson:"content_type"`
	Title            string         `json:"title" bson:"title"`
	OriginalTitle    string         `json:"original_title,omitempty" bson:"original_title,omitempty"`
	Overview         string         `json:"overview,omitempty" bson:"overview,omitempty"`
	OriginalLanguage string         `json:"original_language,omitempty" bson:"original_language,omitempty"`
	PosterURL        string         `json:"poster_url,omitempty" bson:"poster_url,omitempty"`
	BackdropURL      string         `json:"backdrop_url,omitempty" bson:"backdrop_url,omitempty"`
	ReleaseDate      string         `json:"release_date,omitempty" bson:"release_date,omitempty"`
	FirstAirDate     string         `json:"first_air_date,omitempty" bson:"first_air_date,omitempty"`
	LastAirDate      string         `json:"last_air_date,omitempty" bson:"last_air_date,omitempty"`
	VoteAverage      float64        `json:"vote_average" bson:"vote_average"`
	VoteCount        int            `json:"vote_count" bson:"vote_count"`
	Popularity       float64        `json:"popularity" bson:"popularity"`
	Adult            bool           `json:"adult,omitempty" bson:"adult,omitempty"`
	Runtime          int            `json:"runtime,omitempty" bson:"runtime,omitempty"` // in minutes, movies only
	NumberOfEpisodes int            `json:"number_of_episodes,omitempty" bson:"number_of_episodes,omitempty"`
	NumberOfSeasons  int            `json:"number_of_seasons,omitempty" bson:"number_of_seasons,omitempty"`
	Genres           []Genre        `json:"genres" bson:"genres"`
	Companies        []Company      `json:"production_companies" bson:"production_companies"`
	Languages        []Language     `json:"spoken_languages" bson:"spoken_languages"`
	Videos           []Video        `json:"videos" bson:"videos"`
	MaturityRating   MaturityRating `json:"maturity_rating" bson:"maturity_rating"`
	CreatedAt        time.Time      `json:"created_at" bson:"created_at"`
}

// SearchResult is the combined outcome of a search across both content kinds
type SearchResult struct {
	Movies       []Content `json:"movies"`
	Shows        []Content `json:"tv_shows"`
	TotalResults int       `json:"total_results"`
}
