package components

import (
	"fmt"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/popcorn/internal/domain"
)

func listOf(titles ...string) []domain.Movie {
	out := make([]domain.Movie, len(titles))
	for i, title := range titles {
		out[i] = domain.Movie{MovieRecord: domain.MovieRecord{ID: int64(i + 1), Title: title, PopularRank: i}}
	}
	return out
}

func numbered(n int) []domain.Movie {
	titles := make([]string, n)
	for i := range titles {
		titles[i] = fmt.Sprintf("Movie %d", i+1)
	}
	return listOf(titles...)
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestMovieList_Navigation(t *testing.T) {
	l := NewMovieList("Popular", "empty")
	l.SetSize(60, 15)
	l.SetMovies(numbered(50))

	l.Update(key("j"))
	l.Update(key("j"))
	assert.Equal(t, int64(3), l.Selected().ID)

	l.Update(key("G"))
	assert.Equal(t, int64(50), l.Selected().ID)

	l.Update(key("g"))
	assert.Equal(t, int64(1), l.Selected().ID)

	l.Update(key("k"))
	assert.Equal(t, int64(1), l.Selected().ID, "cursor stays at top")
}

func TestMovieList_SetMoviesKeepsSelection(t *testing.T) {
	l := NewMovieList("Popular", "empty")
	l.SetSize(60, 15)
	l.SetMovies(listOf("Alien", "Heat", "Jaws"))
	l.Update(key("j"))
	require.Equal(t, "Heat", l.Selected().Title)

	// Heat moves to the top of the new ordering
	reordered := []domain.Movie{
		{MovieRecord: domain.MovieRecord{ID: 2, Title: "Heat"}},
		{MovieRecord: domain.MovieRecord{ID: 4, Title: "Up"}},
		{MovieRecord: domain.MovieRecord{ID: 1, Title: "Alien"}},
	}
	l.SetMovies(reordered)

	assert.Equal(t, "Heat", l.Selected().Title)
	assert.Equal(t, 0, l.SelectedIndex())
}

func TestMovieList_SetMoviesClampsCursor(t *testing.T) {
	l := NewMovieList("Popular", "empty")
	l.SetSize(60, 15)
	l.SetMovies(numbered(10))
	l.Update(key("G"))

	l.SetMovies(listOf("Other"))

	assert.Equal(t, "Other", l.Selected().Title)
}

func TestMovieList_EmptyHasNoSelection(t *testing.T) {
	l := NewMovieList("Favorites", "No favorites yet")
	l.SetSize(60, 15)

	assert.Nil(t, l.Selected())
	assert.Nil(t, l.Last())
	assert.False(t, l.NearEnd(5))
	assert.Contains(t, l.View(), "No favorites yet")
}

func TestMovieList_NearEnd(t *testing.T) {
	l := NewMovieList("Popular", "empty")
	l.SetSize(60, 15)
	l.SetMovies(numbered(20))

	assert.False(t, l.NearEnd(5))
	for i := 0; i < 14; i++ {
		l.Update(key("j"))
	}
	assert.True(t, l.NearEnd(5))
	assert.Equal(t, int64(20), l.Last().ID)
}

func TestMovieList_Filter(t *testing.T) {
	l := NewMovieList("Popular", "empty")
	l.SetSize(60, 15)
	l.SetMovies(listOf("Alien", "Heat", "Aliens", "Jaws"))

	l.ToggleFilter()
	for _, r := range "alien" {
		l.Update(key(string(r)))
	}

	assert.True(t, l.IsFilterTyping())
	assert.Equal(t, 2, l.ItemCount())
	assert.Equal(t, 4, l.Len())
	assert.False(t, l.NearEnd(5), "no paging while filtering")

	// enter leaves typing mode but keeps results
	l.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, l.IsFilterTyping())
	assert.True(t, l.IsFiltering())
	l.Update(key("j"))
	assert.Equal(t, 2, l.ItemCount())

	selected := l.Selected().ID
	l.ClearFilter()
	assert.Equal(t, 4, l.ItemCount())
	assert.Equal(t, selected, l.Selected().ID, "selection survives clearing the filter")
}

func TestMovieList_FilterNoMatches(t *testing.T) {
	l := NewMovieList("Popular", "empty")
	l.SetSize(60, 15)
	l.SetMovies(listOf("Alien", "Heat"))

	l.ToggleFilter()
	l.Update(key("z"))
	l.Update(key("z"))

	assert.Equal(t, 0, l.ItemCount())
	assert.Nil(t, l.Selected())
	assert.Contains(t, l.View(), "No matches")
}

func TestMovieList_BackspaceOnEmptyFilterClears(t *testing.T) {
	l := NewMovieList("Popular", "empty")
	l.SetSize(60, 15)
	l.SetMovies(listOf("Alien", "Heat"))

	l.ToggleFilter()
	l.Update(tea.KeyMsg{Type: tea.KeyBackspace})

	assert.False(t, l.IsFiltering())
}

func TestHighlightParts(t *testing.T) {
	parts := highlightParts("Alien", []int{0, 1, 4}, false)

	var texts []string
	for _, p := range parts {
		texts = append(texts, p.Text)
	}
	assert.Equal(t, []string{"Al", "ie", "n"}, texts)
}

func TestRenderDetail(t *testing.T) {
	overview := "A crew meets a creature."
	runtime := 117
	year := 1979
	rating := 8.5
	m := &domain.Movie{
		MovieRecord: domain.MovieRecord{
			ID:             1,
			Title:          "Alien",
			ReleaseYear:    &year,
			Rating:         &rating,
			Overview:       &overview,
			RuntimeMinutes: &runtime,
			Genres:         []string{"Horror", "Science Fiction"},
			PopularRank:    0,
		},
	}

	out := RenderDetail(m, nil, false, 60)

	assert.Contains(t, out, "Alien")
	assert.Contains(t, out, "1979")
	assert.Contains(t, out, "1h 57m")
	assert.Contains(t, out, "8.5")
	assert.Contains(t, out, "Horror, Science Fiction")
	assert.Contains(t, out, "Popular #1")
	assert.Contains(t, out, "A crew meets a creature.")
}

func TestRenderDetail_States(t *testing.T) {
	assert.Contains(t, RenderDetail(nil, nil, true, 40), "Loading")
	assert.Contains(t, RenderDetail(nil, nil, false, 40), "No movie selected")
	assert.Contains(t, RenderDetail(nil, domain.ErrMovieNotFound, false, 40), "Movie not found")

	partial := &domain.Movie{MovieRecord: domain.MovieRecord{ID: 1, Title: "Heat", PopularRank: domain.UnrankedRank}}
	assert.Contains(t, RenderDetail(partial, nil, false, 40), "Details unavailable offline")
	assert.NotContains(t, RenderDetail(partial, nil, false, 40), "Popular #")
}

func TestDetailPane_ResetKeepsSameMovie(t *testing.T) {
	d := NewDetailPane()
	m := &domain.Movie{MovieRecord: domain.MovieRecord{ID: 1, Title: "Heat"}}
	d.SetResult(domain.DetailResult{Movie: m})

	d.Reset(1)
	assert.Equal(t, m, d.Movie())

	d.Reset(2)
	assert.Nil(t, d.Movie())
}

func TestWordWrap(t *testing.T) {
	assert.Equal(t, "one two\nthree", wordWrap("one two three", 8))
	assert.Equal(t, "text", wordWrap("text", 0))
}

func TestFormatAge(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)

	tests := []struct {
		age  time.Duration
		want string
	}{
		{0, "updated just now"},
		{30 * time.Second, "updated just now"},
		{5 * time.Minute, "updated 5m ago"},
		{3 * time.Hour, "updated 3h ago"},
		{50 * time.Hour, "updated 2d ago"},
		{-time.Minute, "updated just now"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatAge(now, now.Add(-tt.age).UnixMilli()))
		})
	}
}
