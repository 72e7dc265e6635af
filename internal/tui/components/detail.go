package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mmcdole/popcorn/internal/domain"
	"github.com/mmcdole/popcorn/internal/tui/styles"
)

// DetailPane shows the full record of the selected movie
type DetailPane struct {
	width   int
	height  int
	loading bool
	movie   *domain.Movie
	err     error
}

// NewDetailPane creates an empty detail pane
func NewDetailPane() *DetailPane {
	return &DetailPane{}
}

// SetSize sets the outer dimensions of the pane
func (d *DetailPane) SetSize(width, height int) {
	d.width = width
	d.height = height
}

// Reset clears the pane and shows a loading line until a result arrives.
// The previous movie stays visible when it has the same id.
func (d *DetailPane) Reset(id int64) {
	if d.movie != nil && d.movie.ID != id {
		d.movie = nil
	}
	d.err = nil
	d.loading = true
}

// Clear empties the pane
func (d *DetailPane) Clear() {
	d.movie = nil
	d.err = nil
	d.loading = false
}

// SetResult applies one emission of a detail stream
func (d *DetailPane) SetResult(res domain.DetailResult) {
	d.loading = false
	if res.Err != nil {
		d.err = res.Err
		d.movie = nil
		return
	}
	d.err = nil
	d.movie = res.Movie
}

// Done marks the detail stream as finished
func (d *DetailPane) Done() {
	d.loading = false
}

// Movie returns the movie on display, or nil
func (d *DetailPane) Movie() *domain.Movie {
	return d.movie
}

// Err returns the error on display, or nil
func (d *DetailPane) Err() error {
	return d.err
}

// View renders the pane inside a border
func (d *DetailPane) View() string {
	style := styles.InactiveBorder
	frameW, frameH := style.GetFrameSize()
	innerWidth := d.width - frameW
	if innerWidth < 10 {
		innerWidth = 10
	}
	return style.
		Width(d.width - frameW).
		Height(d.height - frameH).
		Render(styles.DetailStyle.Render(RenderDetail(d.movie, d.err, d.loading, innerWidth-2)))
}

// RenderDetail renders the detail body for a movie, an error or a loading state
func RenderDetail(m *domain.Movie, err error, loading bool, width int) string {
	switch {
	case err != nil:
		return styles.ErrorStyle.Render(wordWrap(domain.Describe(err), width))
	case m == nil && loading:
		return styles.DimStyle.Render("Loading...")
	case m == nil:
		return styles.DimStyle.Render("No movie selected")
	}

	var b strings.Builder

	title := m.Title
	if m.IsFavorite {
		title = styles.FavoriteHeart + " " + title
	}
	b.WriteString(styles.TitleStyle.Render(wordWrap(title, width)))
	b.WriteString("\n")

	var facts []string
	if y := m.Year(); y != "" {
		facts = append(facts, y)
	}
	if rt := m.FormattedRuntime(); rt != "" {
		facts = append(facts, rt)
	}
	if r := m.FormattedRating(); r != "" {
		facts = append(facts, styles.RatingStyle.Render(styles.RatingChar)+" "+r)
	}
	if len(facts) > 0 {
		b.WriteString(styles.SubtitleStyle.Render(strings.Join(facts, " · ")))
		b.WriteString("\n")
	}

	if g := m.GenreList(); g != "" {
		b.WriteString(styles.DimStyle.Render(wordWrap(g, width)))
		b.WriteString("\n")
	}

	if m.IsRanked() {
		b.WriteString(styles.DimStyle.Render(fmt.Sprintf("Popular #%d", m.PopularRank+1)))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch {
	case m.Overview != nil && *m.Overview != "":
		b.WriteString(styles.SubtitleStyle.Render(wordWrap(*m.Overview, width)))
	case !m.HasDetail() && loading:
		b.WriteString(styles.DimStyle.Render("Loading details..."))
	case !m.HasDetail():
		b.WriteString(styles.DimStyle.Render("Details unavailable offline"))
	}

	return lipgloss.NewStyle().Width(width).Render(b.String())
}

// wordWrap wraps text to the specified width
func wordWrap(text string, width int) string {
	if width <= 0 {
		return text
	}

	var result strings.Builder
	words := strings.Fields(text)
	lineLen := 0

	for i, word := range words {
		wordLen := lipgloss.Width(word)

		if lineLen+wordLen+1 > width && lineLen > 0 {
			result.WriteString("\n")
			lineLen = 0
		}

		if i > 0 && lineLen > 0 {
			result.WriteString(" ")
			lineLen++
		}

		result.WriteString(word)
		lineLen += wordLen
	}

	return result.String()
}
