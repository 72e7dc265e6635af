package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mmcdole/popcorn/internal/clock"
	"github.com/mmcdole/popcorn/internal/domain"
	"github.com/mmcdole/popcorn/internal/tui/styles"
)

// StatusBar renders refresh progress, freshness and transient messages
type StatusBar struct {
	clock   clock.Clock
	spinner spinner.Model
	width   int
	state   domain.RefreshState
	message string
	hint    string
}

// NewStatusBar creates a status bar reading ages from clk
func NewStatusBar(clk clock.Clock) *StatusBar {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.SpinnerStyle
	return &StatusBar{clock: clk, spinner: s}
}

// Init starts the spinner
func (s *StatusBar) Init() tea.Cmd {
	return s.spinner.Tick
}

// Update advances the spinner
func (s *StatusBar) Update(msg spinner.TickMsg) tea.Cmd {
	var cmd tea.Cmd
	s.spinner, cmd = s.spinner.Update(msg)
	return cmd
}

// SetWidth sets the rendered width
func (s *StatusBar) SetWidth(width int) {
	s.width = width
}

// SetState applies a refresh state emission
func (s *StatusBar) SetState(state domain.RefreshState) {
	s.state = state
}

// State returns the last applied refresh state
func (s *StatusBar) State() domain.RefreshState {
	return s.state
}

// SetMessage sets a transient message shown instead of the freshness text
func (s *StatusBar) SetMessage(msg string) {
	s.message = msg
}

// Message returns the transient message, if any
func (s *StatusBar) Message() string {
	return s.message
}

// SetHint sets the right-aligned key hint
func (s *StatusBar) SetHint(hint string) {
	s.hint = hint
}

// View renders the status line
func (s *StatusBar) View() string {
	var left string
	switch {
	case s.state.IsRefreshing:
		left = s.spinner.View() + " " + styles.AccentStyle.Render("Refreshing...")
	case s.message != "":
		left = styles.SubtitleStyle.Render(s.message)
	case s.state.LastError != nil:
		left = styles.ErrorStyle.Render(domain.Describe(s.state.LastError))
		if s.state.LastUpdated != nil {
			left += styles.DimStyle.Render(" · " + FormatAge(s.clock.Now(), *s.state.LastUpdated))
		}
	case s.state.LastUpdated != nil:
		left = styles.DimStyle.Render(FormatAge(s.clock.Now(), *s.state.LastUpdated))
	default:
		left = styles.DimStyle.Render("never updated")
	}

	right := styles.HelpDescStyle.Render(s.hint)
	gap := s.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return styles.StatusBarStyle.Render(left + strings.Repeat(" ", gap) + right)
}

// FormatAge renders how long ago lastUpdated (epoch millis) was, relative to now
func FormatAge(now time.Time, lastUpdated int64) string {
	age := now.Sub(time.UnixMilli(lastUpdated))
	switch {
	case age < time.Minute:
		return "updated just now"
	case age < time.Hour:
		return fmt.Sprintf("updated %dm ago", int(age.Minutes()))
	case age < 24*time.Hour:
		return fmt.Sprintf("updated %dh ago", int(age.Hours()))
	default:
		return fmt.Sprintf("updated %dd ago", int(age.Hours()/24))
	}
}
