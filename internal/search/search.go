// Package search matches movie titles in the cached catalog.
package search

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	sfuzzy "github.com/sahilm/fuzzy"

	"github.com/mmcdole/popcorn/internal/domain"
)

// Result is a matched movie
type Result struct {
	Movie          domain.Movie
	MatchedIndexes []int // title positions that matched, for highlighting
	Score          int   // Filter: higher is better; Rank: edit distance, lower is better
}

// Index holds movie titles for matching. It implements sahilm/fuzzy.Source.
type Index struct {
	movies      []domain.Movie
	lowerTitles []string // pre-computed at index time
}

// NewIndex builds an index over movies, keeping their order
func NewIndex(movies []domain.Movie) *Index {
	idx := &Index{
		movies:      movies,
		lowerTitles: make([]string, len(movies)),
	}
	for i, m := range movies {
		idx.lowerTitles[i] = strings.ToLower(m.Title)
	}
	return idx
}

// String returns the lowercase title at index i (implements fuzzy.Source)
func (idx *Index) String(i int) string { return idx.lowerTitles[i] }

// Len returns the number of movies (implements fuzzy.Source)
func (idx *Index) Len() int { return len(idx.movies) }

// Filter matches query against titles as the user types, best match first.
// Matched positions are returned for highlighting.
func (idx *Index) Filter(query string) []Result {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" || idx.Len() == 0 {
		return nil
	}

	matches := sfuzzy.FindFrom(query, idx)
	results := make([]Result, len(matches))
	for i, m := range matches {
		results[i] = Result{
			Movie:          idx.movies[m.Index],
			MatchedIndexes: m.MatchedIndexes,
			Score:          m.Score,
		}
	}
	return results
}

// Rank returns the movies whose title contains query's characters in order,
// closest title first. Ties keep catalog order.
func (idx *Index) Rank(query string) []Result {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" || idx.Len() == 0 {
		return nil
	}

	ranks := fuzzy.RankFindNormalizedFold(query, idx.lowerTitles)
	sort.SliceStable(ranks, func(i, j int) bool {
		if ranks[i].Distance != ranks[j].Distance {
			return ranks[i].Distance < ranks[j].Distance
		}
		return ranks[i].OriginalIndex < ranks[j].OriginalIndex
	})

	results := make([]Result, len(ranks))
	for i, r := range ranks {
		results[i] = Result{
			Movie: idx.movies[r.OriginalIndex],
			Score: r.Distance,
		}
	}
	return results
}
