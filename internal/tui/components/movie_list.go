package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mmcdole/popcorn/internal/domain"
	"github.com/mmcdole/popcorn/internal/search"
	"github.com/mmcdole/popcorn/internal/tui/styles"
)

// Layout constants
const (
	BorderWidth          = 2 // left + right border
	BorderHeight         = 2 // top + bottom border
	ScrollIndicatorLines = 2 // "↑ more" header + "↓ more" footer
)

// MovieList is a scrollable, filterable list of movies
type MovieList struct {
	title     string
	emptyText string
	movies    []domain.Movie
	index     *search.Index

	cursor     int
	offset     int
	width      int
	height     int
	maxVisible int
	focused    bool
	note       string // dim line under the list, e.g. "loading more..."

	// Filter state
	filterActive bool
	filterInput  textinput.Model
	filterQuery  string
	filtered     []search.Result
}

// NewMovieList creates an empty list with the given title
func NewMovieList(title, emptyText string) *MovieList {
	ti := textinput.New()
	ti.Placeholder = "type to filter..."
	ti.Prompt = "/ "
	ti.PromptStyle = styles.FilterPromptStyle
	ti.TextStyle = styles.FilterStyle

	return &MovieList{
		title:       title,
		emptyText:   emptyText,
		index:       search.NewIndex(nil),
		filterInput: ti,
	}
}

// SetMovies replaces the list contents. The cursor stays on the same movie
// when it is still present.
func (l *MovieList) SetMovies(movies []domain.Movie) {
	var selectedID int64
	hadSelection := false
	if sel := l.Selected(); sel != nil {
		selectedID = sel.ID
		hadSelection = true
	}

	l.movies = movies
	l.index = search.NewIndex(movies)
	if l.filterActive && l.filterQuery != "" {
		l.filtered = l.index.Filter(l.filterQuery)
	}

	if hadSelection {
		for i := 0; i < l.ItemCount(); i++ {
			if l.movieAt(i).ID == selectedID {
				l.cursor = i
				break
			}
		}
	}
	l.clampCursor()
	l.ensureVisible()
}

// Update handles a key press: filter typing first, then navigation
func (l *MovieList) Update(msg tea.KeyMsg) tea.Cmd {
	// Typing mode: keys go to the filter input
	if l.filterActive && l.filterInput.Focused() {
		switch msg.String() {
		case "esc":
			l.clearFilter()
			return nil
		case "enter":
			l.filterInput.Blur()
			return nil
		case "backspace":
			if l.filterInput.Value() == "" {
				l.clearFilter()
				return nil
			}
		}
		var cmd tea.Cmd
		l.filterInput, cmd = l.filterInput.Update(msg)
		l.applyFilter()
		return cmd
	}

	count := l.ItemCount()
	if count == 0 {
		return nil
	}

	switch msg.String() {
	case "j", "down":
		if l.cursor < count-1 {
			l.cursor++
		}
	case "k", "up":
		if l.cursor > 0 {
			l.cursor--
		}
	case "g", "home":
		l.cursor = 0
	case "G", "end":
		l.cursor = count - 1
	case "ctrl+d", "pgdown":
		l.cursor += l.halfPage()
	case "ctrl+u", "pgup":
		l.cursor -= l.halfPage()
	}
	l.clampCursor()
	l.ensureVisible()
	return nil
}

func (l *MovieList) halfPage() int {
	if l.maxVisible < 2 {
		return 1
	}
	return l.maxVisible / 2
}

// View renders the list inside a border
func (l *MovieList) View() string {
	style := styles.InactiveBorder
	if l.focused {
		style = styles.ActiveBorder
	}
	frameW, frameH := style.GetFrameSize()
	return style.
		Width(l.width - frameW).
		Height(l.height - frameH).
		Render(l.renderContent())
}

// SetSize sets the outer dimensions of the list
func (l *MovieList) SetSize(width, height int) {
	l.width = width
	l.height = height
	l.recalcMaxVisible()
	l.ensureVisible()
}

// SetFocused sets the border highlight
func (l *MovieList) SetFocused(focused bool) {
	l.focused = focused
}

// SetNote sets the dim line rendered under the items
func (l *MovieList) SetNote(note string) {
	if l.note == note {
		return
	}
	l.note = note
	l.recalcMaxVisible()
	l.ensureVisible()
}

// Title returns the list title
func (l *MovieList) Title() string {
	return l.title
}

// Selected returns the movie under the cursor, or nil
func (l *MovieList) Selected() *domain.Movie {
	if l.cursor < 0 || l.cursor >= l.ItemCount() {
		return nil
	}
	m := l.movieAt(l.cursor)
	return &m
}

// SelectedIndex returns the cursor position
func (l *MovieList) SelectedIndex() int {
	return l.cursor
}

// ItemCount returns the number of visible (filtered) items
func (l *MovieList) ItemCount() int {
	if l.filtered != nil {
		return len(l.filtered)
	}
	return len(l.movies)
}

// Len returns the number of movies, ignoring any filter
func (l *MovieList) Len() int {
	return len(l.movies)
}

// Last returns the last movie of the unfiltered list, or nil
func (l *MovieList) Last() *domain.Movie {
	if len(l.movies) == 0 {
		return nil
	}
	m := l.movies[len(l.movies)-1]
	return &m
}

// NearEnd reports whether the cursor is within threshold rows of the end of
// an unfiltered list.
func (l *MovieList) NearEnd(threshold int) bool {
	if l.filterActive || len(l.movies) == 0 {
		return false
	}
	return l.cursor >= len(l.movies)-1-threshold
}

// ToggleFilter activates the filter input
func (l *MovieList) ToggleFilter() {
	l.filterActive = true
	l.filterInput.Focus()
	l.recalcMaxVisible()
}

// IsFiltering returns true if filter mode is active
func (l *MovieList) IsFiltering() bool {
	return l.filterActive
}

// IsFilterTyping returns true if filter is active AND input is focused
func (l *MovieList) IsFilterTyping() bool {
	return l.filterActive && l.filterInput.Focused()
}

// ClearFilter deactivates the filter and shows all items
func (l *MovieList) ClearFilter() {
	l.clearFilter()
}

// Internal methods

func (l *MovieList) movieAt(i int) domain.Movie {
	if l.filtered != nil {
		return l.filtered[i].Movie
	}
	return l.movies[i]
}

func (l *MovieList) clampCursor() {
	count := l.ItemCount()
	if l.cursor >= count {
		l.cursor = count - 1
	}
	if l.cursor < 0 {
		l.cursor = 0
	}
}

func (l *MovieList) recalcMaxVisible() {
	// Interior height minus title line and scroll indicators
	l.maxVisible = l.height - BorderHeight - ScrollIndicatorLines - 1
	if l.filterActive {
		l.maxVisible--
	}
	if l.note != "" {
		l.maxVisible--
	}
	if l.maxVisible < 1 {
		l.maxVisible = 1
	}
}

func (l *MovieList) ensureVisible() {
	if l.maxVisible <= 0 {
		return
	}
	if l.cursor < l.offset {
		l.offset = l.cursor
	}
	if l.cursor >= l.offset+l.maxVisible {
		l.offset = l.cursor - l.maxVisible + 1
	}
	if l.offset < 0 {
		l.offset = 0
	}
}

func (l *MovieList) clearFilter() {
	var selectedID int64
	sel := l.Selected()
	if sel != nil {
		selectedID = sel.ID
	}

	l.filterActive = false
	l.filterQuery = ""
	l.filtered = nil
	l.filterInput.SetValue("")
	l.filterInput.Blur()
	l.recalcMaxVisible()

	// Keep the selected movie under the cursor in the full list
	if sel != nil {
		for i, m := range l.movies {
			if m.ID == selectedID {
				l.cursor = i
				break
			}
		}
	}
	l.clampCursor()
	l.ensureVisible()
}

func (l *MovieList) applyFilter() {
	query := l.filterInput.Value()
	l.filterQuery = query

	if strings.TrimSpace(query) == "" {
		l.filtered = nil
	} else {
		l.filtered = l.index.Filter(query)
		if l.filtered == nil {
			l.filtered = []search.Result{}
		}
	}

	l.cursor = 0
	l.offset = 0
}

// Rendering

func (l *MovieList) renderContent() string {
	itemWidth := l.width - BorderWidth
	if itemWidth < 10 {
		itemWidth = 10
	}

	titleLine := styles.AccentStyle.Render(styles.Truncate(l.title, itemWidth))

	count := l.ItemCount()
	if count == 0 {
		emptyMsg := styles.DimStyle.Render(l.emptyText)
		if l.filterActive && l.filterQuery != "" {
			emptyMsg = styles.DimStyle.Render("No matches")
		}
		content := titleLine + "\n" + " " + "\n" + emptyMsg + "\n" + " "
		if l.filterActive {
			content += "\n" + l.renderFilterBar()
		}
		return content
	}

	end := l.offset + l.maxVisible
	if end > count {
		end = count
	}

	lines := make([]string, 0, end-l.offset)
	for i := l.offset; i < end; i++ {
		var matched []int
		if l.filtered != nil {
			matched = l.filtered[i].MatchedIndexes
		}
		lines = append(lines, renderMovieRow(l.movieAt(i), matched, i == l.cursor, itemWidth))
	}

	// Always reserve the indicator lines to prevent layout shifts
	header := " "
	if l.offset > 0 {
		header = styles.DimStyle.Render("↑ more")
	}
	footer := " "
	if end < count {
		footer = styles.DimStyle.Render("↓ more")
	}

	content := titleLine + "\n" + header + "\n" + strings.Join(lines, "\n") + "\n" + footer
	if l.note != "" {
		content += "\n" + styles.DimStyle.Render(styles.Truncate(l.note, itemWidth))
	}
	if l.filterActive {
		content += "\n" + l.renderFilterBar()
	}
	return content
}

func renderMovieRow(m domain.Movie, matched []int, selected bool, width int) string {
	indicator := " "
	if m.IsFavorite {
		indicator = styles.FavoriteChar
	}

	rating := ""
	if r := m.FormattedRating(); r != "" {
		rating = styles.RatingChar + " " + r
	}

	title := m.Title
	if y := m.Year(); y != "" {
		title = fmt.Sprintf("%s (%s)", m.Title, y)
	}

	// Available space: indicator + space, margins, rating column
	available := width - 4 - lipgloss.Width(rating) - 1
	if available < 5 {
		available = 5
	}
	title = styles.Truncate(title, available)

	parts := []styles.RowPart{
		{Text: indicator, Style: styles.FavoriteStyle},
		{Text: " "},
	}
	parts = append(parts, highlightParts(title, matched, selected)...)

	if rating != "" {
		gap := width - 2 - 2 - lipgloss.Width(title) - lipgloss.Width(rating)
		if gap < 1 {
			gap = 1
		}
		parts = append(parts,
			styles.RowPart{Text: strings.Repeat(" ", gap)},
			styles.RowPart{Text: rating, Style: styles.RatingStyle},
		)
	}

	return styles.RenderListRow(parts, selected, width)
}

// highlightParts splits title into runs, bolding the matched byte positions
func highlightParts(title string, matched []int, selected bool) []styles.RowPart {
	if len(matched) == 0 {
		return []styles.RowPart{{Text: title}}
	}

	hl := styles.MatchHighlightStyle
	if selected {
		hl = styles.MatchHighlightSelectedStyle
	}
	isMatch := make(map[int]bool, len(matched))
	for _, i := range matched {
		isMatch[i] = true
	}

	var parts []styles.RowPart
	var run strings.Builder
	runMatched := false
	flush := func() {
		if run.Len() == 0 {
			return
		}
		part := styles.RowPart{Text: run.String()}
		if runMatched {
			part.Style = hl
		}
		parts = append(parts, part)
		run.Reset()
	}

	for i, r := range title {
		if isMatch[i] != runMatched {
			flush()
			runMatched = isMatch[i]
		}
		run.WriteRune(r)
	}
	flush()
	return parts
}

func (l *MovieList) renderFilterBar() string {
	input := l.filterInput.View()
	countStr := ""
	if l.filterQuery != "" {
		countStr = styles.DimStyle.Render(fmt.Sprintf(" [%d/%d]", l.ItemCount(), len(l.movies)))
	}
	return input + countStr
}
