package tui

import (
	"github.com/mmcdole/popcorn/internal/catalog"
	"github.com/mmcdole/popcorn/internal/domain"
)

// Message types for the TUI

// ErrMsg represents an error
type ErrMsg struct {
	Err     error
	Context string
}

// Error implements the error interface
func (e ErrMsg) Error() string {
	if e.Context != "" {
		return e.Context + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

// CatalogMsg carries a new emission of the popular catalog stream
type CatalogMsg struct {
	Movies []domain.Movie
}

// FavoritesMsg carries a new emission of the favorites stream
type FavoritesMsg struct {
	Movies []domain.Movie
}

// RefreshStateMsg carries a new emission of the refresh state stream
type RefreshStateMsg struct {
	State domain.RefreshState
}

// DetailMsg carries one emission of a movie detail stream
type DetailMsg struct {
	Seq    uint64 // detail subscription the emission belongs to
	ID     int64
	Result domain.DetailResult
}

// DetailClosedMsg signals that a detail stream has ended
type DetailClosedMsg struct {
	Seq uint64
	ID  int64
}

// InitializedMsg reports the startup decision of the mediator
type InitializedMsg struct {
	Action catalog.InitializeAction
}

// RefreshDoneMsg signals that a catalog refresh attempt has finished
type RefreshDoneMsg struct {
	Err error
}

// LoadDoneMsg signals that a mediator load has finished
type LoadDoneMsg struct {
	LoadType catalog.LoadType
	Result   catalog.MediatorResult
	Err      error
}

// FavoriteToggledMsg signals that a favorite was added or removed
type FavoriteToggledMsg struct {
	ID       int64
	Favorite bool
}

// ClearStatusMsg signals to clear the status message
type ClearStatusMsg struct{}
