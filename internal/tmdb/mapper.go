package tmdb

import (
	"strconv"
	"strings"

	"github.com/mmcdole/popcorn/internal/domain"
)

// MapPage converts a popular-movies response to a domain page
func MapPage(resp PopularResponse, imageBaseURL string) domain.Page {
	results := make([]domain.MovieSummary, 0, len(resp.Results))
	for _, m := range resp.Results {
		results = append(results, mapSummary(m, imageBaseURL))
	}
	return domain.Page{
		Page:       resp.Page,
		TotalPages: resp.TotalPages,
		Results:    results,
	}
}

// MapDetail converts a movie details response to a domain detail
func MapDetail(d MovieDetails, imageBaseURL string) domain.MovieDetail {
	detail := domain.MovieDetail{
		MovieSummary: mapSummary(d.MovieListing, imageBaseURL),
	}
	if d.Overview != "" {
		overview := d.Overview
		detail.Overview = &overview
	}
	if d.Runtime != nil && *d.Runtime > 0 {
		runtime := *d.Runtime
		detail.RuntimeMinutes = &runtime
	}
	for _, g := range d.Genres {
		if g.Name != "" {
			detail.Genres = append(detail.Genres, g.Name)
		}
	}
	return detail
}

func mapSummary(m MovieListing, imageBaseURL string) domain.MovieSummary {
	s := domain.MovieSummary{
		ID:          m.ID,
		Title:       m.Title,
		ReleaseYear: parseYear(m.ReleaseDate),
		PosterURL:   posterURL(imageBaseURL, m.PosterPath),
	}
	// TMDB reports 0 for movies nobody has voted on yet
	if m.VoteAverage != nil && (m.VoteCount > 0 || *m.VoteAverage > 0) {
		rating := *m.VoteAverage
		s.Rating = &rating
	}
	return s
}

// parseYear extracts the year from a YYYY-MM-DD release date
func parseYear(date string) *int {
	if len(date) < 4 {
		return nil
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil || year <= 0 {
		return nil
	}
	return &year
}

func posterURL(imageBaseURL, path string) *string {
	if path == "" {
		return nil
	}
	u := strings.TrimRight(imageBaseURL, "/") + "/" + strings.TrimLeft(path, "/")
	return &u
}
