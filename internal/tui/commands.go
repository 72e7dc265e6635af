package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/popcorn/internal/catalog"
)

// Command factories for async operations

// waitFor returns a command that blocks for the next value on ch and wraps it
// as a message. A closed channel yields closed(), or nil when closed is nil.
func waitFor[T any](ch <-chan T, wrap func(T) tea.Msg, closed func() tea.Msg) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		v, ok := <-ch
		if !ok {
			if closed == nil {
				return nil
			}
			return closed()
		}
		return wrap(v)
	}
}

// InitializeCmd asks the mediator whether a startup refresh is needed
func InitializeCmd(ctx context.Context, pager Pager) tea.Cmd {
	return func() tea.Msg {
		action, err := pager.Initialize(ctx)
		if err != nil {
			return ErrMsg{Err: err, Context: "reading cache"}
		}
		return InitializedMsg{Action: action}
	}
}

// RefreshCmd runs a catalog refresh through the repository
func RefreshCmd(ctx context.Context, cat Catalog, force bool) tea.Cmd {
	return func() tea.Msg {
		return RefreshDoneMsg{Err: cat.RefreshCatalog(ctx, force)}
	}
}

// LoadCmd runs one mediator load
func LoadCmd(ctx context.Context, pager Pager, loadType catalog.LoadType, state catalog.PagingState) tea.Cmd {
	return func() tea.Msg {
		res, err := pager.Load(ctx, loadType, state)
		return LoadDoneMsg{LoadType: loadType, Result: res, Err: err}
	}
}

// ToggleFavoriteCmd flips the favorite flag of a movie
func ToggleFavoriteCmd(ctx context.Context, cat Catalog, id int64) tea.Cmd {
	return func() tea.Msg {
		fav, err := cat.ToggleFavorite(ctx, id)
		if err != nil {
			return ErrMsg{Err: err, Context: "updating favorites"}
		}
		return FavoriteToggledMsg{ID: id, Favorite: fav}
	}
}

// OpenMovieCmd opens the movie's web page
func OpenMovieCmd(opener Opener, id int64) tea.Cmd {
	return func() tea.Msg {
		if err := opener.OpenMovie(id); err != nil {
			return ErrMsg{Err: err, Context: "opening browser"}
		}
		return nil
	}
}

// ClearStatusCmd returns a command that clears status after a delay
func ClearStatusCmd(delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(t time.Time) tea.Msg {
		return ClearStatusMsg{}
	})
}
