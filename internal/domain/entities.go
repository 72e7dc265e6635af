package domain

import (
	"fmt"
	"strings"
)

// UnrankedRank marks a movie that is cached but not part of the popular feed
// (e.g. a detail-only lookup). It always sorts before any valid rank but is
// excluded from catalog reads by IsRanked, never by sort position.
const UnrankedRank = -1

// MovieSummary is the list-level shape of a movie as returned by a feed page.
type MovieSummary struct {
	ID          int64
	Title       string
	ReleaseYear *int
	PosterURL   *string
	Rating      *float64 // 0-10 audience rating
}

// MovieDetail is the full shape of a movie as returned by a detail lookup.
type MovieDetail struct {
	MovieSummary
	Overview       *string
	RuntimeMinutes *int
	Genres         []string
}

// Page is one page of the popular-movies feed.
type Page struct {
	Page       int
	TotalPages int
	Results    []MovieSummary
}

// IsLast reports whether no further page follows this one.
func (p Page) IsLast() bool {
	return len(p.Results) == 0 || p.Page >= p.TotalPages
}

// MovieRecord is the persisted row for one movie.
type MovieRecord struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	ReleaseYear *int     `json:"release_year,omitempty"`
	PosterURL   *string  `json:"poster_url,omitempty"`
	Rating      *float64 `json:"rating,omitempty"`

	// Detail fields stay empty until a detail fetch completes
	Overview       *string  `json:"overview,omitempty"`
	RuntimeMinutes *int     `json:"runtime_minutes,omitempty"`
	Genres         []string `json:"genres,omitempty"`

	PopularRank     int    `json:"popular_rank"`
	DetailFetchedAt *int64 `json:"detail_fetched_at,omitempty"` // epoch millis
}

// IsRanked reports whether the row belongs to the visible catalog ordering.
func (r MovieRecord) IsRanked() bool {
	return r.PopularRank >= 0
}

// HasDetail reports whether detail-level fields have been populated.
// Rows written before detail timestamps existed count as detailed when their
// overview and runtime are both present.
func (r MovieRecord) HasDetail() bool {
	if r.DetailFetchedAt != nil {
		return true
	}
	return r.Overview != nil && r.RuntimeMinutes != nil
}

// WithListFields returns a copy of r with the list-level fields of s applied.
// Detail fields and the detail timestamp are left untouched.
func (r MovieRecord) WithListFields(s MovieSummary) MovieRecord {
	r.ID = s.ID
	r.Title = s.Title
	r.ReleaseYear = s.ReleaseYear
	r.PosterURL = s.PosterURL
	r.Rating = s.Rating
	return r
}

// WithDetail returns a copy of r with every field of d applied.
func (r MovieRecord) WithDetail(d MovieDetail, fetchedAt int64) MovieRecord {
	r = r.WithListFields(d.MovieSummary)
	r.Overview = d.Overview
	r.RuntimeMinutes = d.RuntimeMinutes
	r.Genres = d.Genres
	r.DetailFetchedAt = &fetchedAt
	return r
}

// Movie is a cached movie annotated with the user's favorite flag.
type Movie struct {
	MovieRecord
	IsFavorite bool
}

// FormattedRuntime returns the runtime in a human-readable format
func (m Movie) FormattedRuntime() string {
	if m.RuntimeMinutes == nil || *m.RuntimeMinutes <= 0 {
		return ""
	}
	h := *m.RuntimeMinutes / 60
	mins := *m.RuntimeMinutes % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, mins)
	}
	return fmt.Sprintf("%dm", mins)
}

// FormattedRating returns the rating with one decimal, or "" when unknown
func (m Movie) FormattedRating() string {
	if m.Rating == nil {
		return ""
	}
	return fmt.Sprintf("%.1f", *m.Rating)
}

// Year returns the release year as text, or "" when unknown
func (m Movie) Year() string {
	if m.ReleaseYear == nil || *m.ReleaseYear <= 0 {
		return ""
	}
	return fmt.Sprintf("%d", *m.ReleaseYear)
}

// GenreList joins the genres for display
func (m Movie) GenreList() string {
	return strings.Join(m.Genres, ", ")
}

// DetailResult is one emission of a movie detail stream: either a movie or an error.
type DetailResult struct {
	Movie *Movie
	Err   error
}

// PageKey records the neighbouring feed pages for a movie placed by a page fetch.
// A nil key means there is no such page.
type PageKey struct {
	MovieID int64 `json:"movie_id"`
	PrevKey *int  `json:"prev_key,omitempty"`
	NextKey *int  `json:"next_key,omitempty"`
}

// FavoriteRecord is one entry of the user's favorites set.
type FavoriteRecord struct {
	MovieID   int64
	CreatedAt int64 // epoch millis
}

// Metadata keys
const (
	MetaCatalogLastUpdated = "catalog_last_updated"
)
