package services

import (
	"math"
	"strings"

	"catalog/models"
)

// TMDB image host and size segments
const (
	ImageBaseURL = "https://image.tmdb.org/t/p/"
	PosterSize   = "w500"
	BackdropSize = "w1280"
)

// ListingItem is one entry of a popular/trending/search/discover listing
type ListingItem struct {
	TMDBID    int
	MediaType string // only set by mixed listings such as trending
}

// ListingItems extracts the result entries of a listing document. Entries
// without a usable id are dropped.
func ListingItems(doc Document) []ListingItem {
	var items []ListingItem
	for _, raw := range docList(doc, "results") {
		id, ok := docInt(raw, "id")
		if !ok {
			continue
		}
		items = append(items, ListingItem{TMDBID: id, MediaType: docString(raw, "media_type")})
	}
	return items
}

// Normalize maps a TMDB detail document and its trusted videos into a Content record.
// The id and the title (movies) or name (shows) are required.
func Normalize(kind models.ContentKind, detail Document, videos []models.Video) (*models.Content, error) {
	tmdbID, ok := docInt(detail, "id")
	if !ok {
		return nil, &NormalizationError{Field: "id"}
	}

	titleField, originalField := "title", "original_title"
	if kind == models.KindTV {
		titleField, originalField = "name", "original_name"
	}
	title := docString(detail, titleField)
	if title == "" {
		return nil, &NormalizationError{Field: titleField}
	}

	originalTitle := docString(detail, originalField)
	if originalTitle == "" {
		originalTitle = title
	}

	voteAverage := docFloat(detail, "vote_average")
	voteCount, _ := docInt(detail, "vote_count")

	content := &models.Content{
		TMDBID:           tmdbID,
		Kind:             kind,
		Title:            title,
		OriginalTitle:    originalTitle,
		Overview:         docString(detail, "overview"),
		OriginalLanguage: docString(detail, "original_language"),
		PosterURL:        imageURL(docString(detail, "poster_path"), PosterSize),
		BackdropURL:      imageURL(docString(detail, "backdrop_path"), BackdropSize),
		VoteAverage:      voteAverage,
		VoteCount:        voteCount,
		Popularity:       docFloat(detail, "popularity"),
		Genres:           normalizeGenres(detail),
		Companies:        normalizeCompanies(detail),
		Languages:        normalizeLanguages(detail),
		Videos:           dedupeVideos(videos),
	}

	switch kind {
	case models.KindTV:
		content.FirstAirDate = docString(detail, "first_air_date")
		content.LastAirDate = docString(detail, "last_air_date")
		content.NumberOfEpisodes, _ = docInt(detail, "number_of_episodes")
		content.NumberOfSeasons, _ = docInt(detail, "number_of_seasons")
	default:
		content.ReleaseDate = docString(detail, "release_date")
		content.Runtime, _ = docInt(detail, "runtime")
		content.Adult = docBool(detail, "adult")
	}

	content.MaturityRating = models.ClassifyMaturity(content.Adult, voteAverage, kind)

	return content, nil
}

// TrustedVideos keeps the entries of a videos document hosted on the trusted
// site. Entries missing a key are dropped.
func TrustedVideos(doc Document) []models.Video {
	var videos []models.Video
	for _, raw := range docList(doc, "results") {
		if docString(raw, "site") != models.TrustedVideoSite {
			continue
		}
		key := docString(raw, "key")
		if key == "" {
			continue
		}
		videos = append(videos, models.Video{
			ID:       docString(raw, "id"),
			Key:      key,
			Name:     docString(raw, "name"),
			Site:     models.TrustedVideoSite,
			Type:     docString(raw, "type"),
			Official: docBool(raw, "official"),
		})
	}
	return videos
}

// dedupeVideos drops repeated (site, key) pairs and caps the list at MaxVideos
func dedupeVideos(videos []models.Video) []models.Video {
	out := []models.Video{}
	seen := make(map[[2]string]bool, len(videos))
	for _, v := range videos {
		k := [2]string{v.Site, v.Key}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, v)
		if len(out) == models.MaxVideos {
			break
		}
	}
	return out
}

func imageURL(path, size string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return ImageBaseURL + size + path
}

func normalizeGenres(detail Document) []models.Genre {
	genres := []models.Genre{}
	for _, raw := range docList(detail, "genres") {
		id, ok := docInt(raw, "id")
		if !ok {
			continue
		}
		genres = append(genres, models.Genre{ID: id, Name: docString(raw, "name")})
	}
	return genres
}

func normalizeCompanies(detail Document) []models.Company {
	companies := []models.Company{}
	for _, raw := range docList(detail, "production_companies") {
		id, ok := docInt(raw, "id")
		if !ok {
			continue
		}
		companies = append(companies, models.Company{
			ID:      id,
			Name:    docString(raw, "name"),
			LogoURL: imageURL(docString(raw, "logo_path"), PosterSize),
		})
	}
	return companies
}

func normalizeLanguages(detail Document) []models.Language {
	languages := []models.Language{}
	for _, raw := range docList(detail, "spoken_languages") {
		code := docString(raw, "iso_639_1")
		if code == "" {
			continue
		}
		languages = append(languages, models.Language{ISO6391: code, Name: docString(raw, "name")})
	}
	return languages
}

// Field accessors. JSON numbers decode as float64; anything of the wrong type
// reads as the zero value.

func docString(doc Document, key string) string {
	s, _ := doc[key].(string)
	return s
}

func docFloat(doc Document, key string) float64 {
	f, _ := doc[key].(float64)
	return f
}

// docInt accepts only integral JSON numbers that fit an int
func docInt(doc Document, key string) (int, bool) {
	f, ok := doc[key].(float64)
	if !ok || f != math.Trunc(f) || f < math.MinInt || f >= math.MaxInt {
		return 0, false
	}
	return int(f), true
}

func docBool(doc Document, key string) bool {
	b, _ := doc[key].(bool)
	return b
}

func docList(doc Document, key string) []Document {
	raw, _ := doc[key].([]any)
	list := make([]Document, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]any); ok {
			list = append(list, Document(m))
		}
	}
	return list
}
