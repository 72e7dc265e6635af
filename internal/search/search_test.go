package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/popcorn/internal/domain"
)

func movies(titles ...string) []domain.Movie {
	out := make([]domain.Movie, len(titles))
	for i, title := range titles {
		out[i] = domain.Movie{MovieRecord: domain.MovieRecord{ID: int64(i + 1), Title: title, PopularRank: i}}
	}
	return out
}

func titles(results []Result) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Movie.Title
	}
	return out
}

func TestIndex_EmptyQuery(t *testing.T) {
	idx := NewIndex(movies("Heat", "Alien"))
	assert.Nil(t, idx.Filter("  "))
	assert.Nil(t, idx.Rank(""))
}

func TestIndex_EmptyIndex(t *testing.T) {
	idx := NewIndex(nil)
	assert.Zero(t, idx.Len())
	assert.Nil(t, idx.Filter("heat"))
	assert.Nil(t, idx.Rank("heat"))
}

func TestIndex_Filter(t *testing.T) {
	idx := NewIndex(movies("The Dark Knight", "Alien", "Dark City", "Knives Out"))

	results := idx.Filter("DARK")
	require.Len(t, results, 2)
	assert.ElementsMatch(t, []string{"The Dark Knight", "Dark City"}, titles(results))

	for _, r := range results {
		assert.Len(t, r.MatchedIndexes, 4)
	}
}

func TestIndex_FilterHighlightPositions(t *testing.T) {
	idx := NewIndex(movies("Alien"))
	results := idx.Filter("aln")
	require.Len(t, results, 1)
	assert.Equal(t, []int{0, 1, 4}, results[0].MatchedIndexes)
}

func TestIndex_Rank(t *testing.T) {
	idx := NewIndex(movies("Alien: Romulus", "Alien", "Aliens", "Heat"))

	results := idx.Rank("alien")
	assert.Equal(t, []string{"Alien", "Aliens", "Alien: Romulus"}, titles(results))
	assert.Equal(t, 0, results[0].Score)
}

func TestIndex_RankIgnoresCaseAndAccents(t *testing.T) {
	idx := NewIndex(movies("Amélie", "Heat"))
	results := idx.Rank("AMELIE")
	require.Len(t, results, 1)
	assert.Equal(t, int64(1), results[0].Movie.ID)
}

func TestIndex_RankTiesKeepCatalogOrder(t *testing.T) {
	idx := NewIndex(movies("Cars 2", "Cars 3"))
	results := idx.Rank("cars")
	assert.Equal(t, []string{"Cars 2", "Cars 3"}, titles(results))
}
