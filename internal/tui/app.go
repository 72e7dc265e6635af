package tui

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mmcdole/popcorn/internal/catalog"
	"github.com/mmcdole/popcorn/internal/clock"
	"github.com/mmcdole/popcorn/internal/domain"
	"github.com/mmcdole/popcorn/internal/tui/components"
	"github.com/mmcdole/popcorn/internal/tui/styles"
)

// Catalog is the repository surface the TUI reads and writes through
type Catalog interface {
	Catalog(ctx context.Context) <-chan []domain.Movie
	Favorites(ctx context.Context) <-chan []domain.Movie
	MovieDetail(ctx context.Context, id int64) <-chan domain.DetailResult
	CatalogRefreshState(ctx context.Context) <-chan domain.RefreshState
	RefreshCatalog(ctx context.Context, force bool) error
	ToggleFavorite(ctx context.Context, id int64) (bool, error)
}

// Pager drives incremental loading of the popular feed
type Pager interface {
	Initialize(ctx context.Context) (catalog.InitializeAction, error)
	Load(ctx context.Context, loadType catalog.LoadType, state catalog.PagingState) (catalog.MediatorResult, error)
}

// Opener opens a movie outside the terminal
type Opener interface {
	OpenMovie(id int64) error
}

// ApplicationState represents the current state of the application
type ApplicationState int

const (
	StateBrowsing ApplicationState = iota
	StateHelp
)

// Tab selects which list is on screen
type Tab int

const (
	TabPopular Tab = iota
	TabFavorites
)

// Layout
const (
	ListColumnPercent = 55
	MinColumnWidth    = 20

	// Vertical layout: tab line + status line
	ChromeHeight = 2

	// Rows from the end of the popular list at which the next page is fetched
	AppendThreshold = 5

	statusTimeout = 3 * time.Second
)

// Model is the main Bubble Tea model for the application
type Model struct {
	// Application state
	State     ApplicationState
	Ready     bool
	ActiveTab Tab

	// Dependencies
	Catalog Catalog
	Pager   Pager
	Opener  Opener
	Clock   clock.Clock
	Logger  *slog.Logger

	// UI Components
	Popular   *components.MovieList
	Favorites *components.MovieList
	Detail    *components.DetailPane
	Status    *components.StatusBar

	// Dimensions
	Width  int
	Height int

	// Subscriptions live until ctx is cancelled
	ctx         context.Context
	cancel      context.CancelFunc
	catalogCh   <-chan []domain.Movie
	favoritesCh <-chan []domain.Movie
	stateCh     <-chan domain.RefreshState

	// Detail subscription for the selected movie
	detailSeq    uint64
	detailID     int64
	detailCh     <-chan domain.DetailResult
	detailCancel context.CancelFunc

	// Append paging
	loadingMore  bool
	endReached   bool
	appendPaused bool // an append failed; cleared by a successful refresh
}

// NewModel creates the application model and subscribes to the catalog streams
func NewModel(
	ctx context.Context,
	cat Catalog,
	pager Pager,
	opener Opener,
	clk clock.Clock,
	logger *slog.Logger,
) Model {
	if logger == nil {
		logger = slog.Default()
	}
	if clk == nil {
		clk = clock.System{}
	}
	ctx, cancel := context.WithCancel(ctx)

	m := Model{
		State:     StateBrowsing,
		Catalog:   cat,
		Pager:     pager,
		Opener:    opener,
		Clock:     clk,
		Logger:    logger,
		Popular:   components.NewMovieList("Popular", "No movies cached yet. Press r to refresh."),
		Favorites: components.NewMovieList("Favorites", "No favorites yet. Press f on a movie."),
		Detail:    components.NewDetailPane(),
		Status:    components.NewStatusBar(clk),
		ctx:       ctx,
		cancel:    cancel,
	}
	m.Popular.SetFocused(true)
	m.Status.SetHint("? help · q quit")

	m.catalogCh = cat.Catalog(ctx)
	m.favoritesCh = cat.Favorites(ctx)
	m.stateCh = cat.CatalogRefreshState(ctx)
	return m
}

// Close cancels every subscription and in-flight command
func (m Model) Close() {
	if m.detailCancel != nil {
		m.detailCancel()
	}
	m.cancel()
}

// Init initializes the application
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.waitCatalog(),
		m.waitFavorites(),
		m.waitRefreshState(),
		InitializeCmd(m.ctx, m.Pager),
		m.Status.Init(),
	)
}

// Update handles all messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Ready = true
		m.updateLayout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case spinner.TickMsg:
		return m, m.Status.Update(msg)

	case CatalogMsg:
		m.Popular.SetMovies(msg.Movies)
		cmds := []tea.Cmd{m.waitCatalog()}
		if m.ActiveTab == TabPopular {
			cmds = append(cmds, m.syncDetail(), m.maybeAppend())
		}
		m.updateNotes()
		return m, tea.Batch(cmds...)

	case FavoritesMsg:
		m.Favorites.SetMovies(msg.Movies)
		cmds := []tea.Cmd{m.waitFavorites()}
		if m.ActiveTab == TabFavorites {
			cmds = append(cmds, m.syncDetail())
		}
		return m, tea.Batch(cmds...)

	case RefreshStateMsg:
		m.Status.SetState(msg.State)
		return m, m.waitRefreshState()

	case InitializedMsg:
		m.Logger.Debug("catalog initialize", "action", msg.Action)
		if msg.Action == catalog.LaunchInitialRefresh {
			return m, RefreshCmd(m.ctx, m.Catalog, true)
		}
		return m, nil

	case RefreshDoneMsg:
		return m.handleRefreshDone(msg.Err)

	case LoadDoneMsg:
		return m.handleLoadDone(msg)

	case DetailMsg:
		if msg.Seq != m.detailSeq {
			return m, nil
		}
		m.Detail.SetResult(msg.Result)
		return m, m.waitDetail()

	case DetailClosedMsg:
		if msg.Seq == m.detailSeq {
			m.Detail.Done()
		}
		return m, nil

	case FavoriteToggledMsg:
		if msg.Favorite {
			m.Status.SetMessage("Added to favorites")
		} else {
			m.Status.SetMessage("Removed from favorites")
		}
		return m, ClearStatusCmd(statusTimeout)

	case ErrMsg:
		if domain.IsCancellation(msg.Err) {
			return m, nil
		}
		m.Logger.Error("tui operation failed", "context", msg.Context, "error", msg.Err)
		m.Status.SetMessage(msg.Context + ": " + domain.Describe(msg.Err))
		return m, ClearStatusCmd(statusTimeout)

	case ClearStatusMsg:
		m.Status.SetMessage("")
		return m, nil
	}

	return m, nil
}

func (m Model) handleRefreshDone(err error) (tea.Model, tea.Cmd) {
	if err == nil {
		m.endReached = false
		m.appendPaused = false
		m.updateNotes()
		cmd := m.maybeAppend()
		return m, cmd
	}
	if domain.IsCancellation(err) {
		return m, nil
	}
	// The refresh state stream carries the error to the status bar
	m.Logger.Warn("catalog refresh failed", "error", err, "kind", domain.KindOf(err))
	return m, nil
}

func (m Model) handleLoadDone(msg LoadDoneMsg) (tea.Model, tea.Cmd) {
	if msg.LoadType == catalog.LoadAppend {
		m.loadingMore = false
	}

	if msg.Err != nil {
		if domain.IsCancellation(msg.Err) {
			m.updateNotes()
			return m, nil
		}
		m.Logger.Warn("catalog load failed", "load", msg.LoadType, "error", msg.Err)
		if msg.LoadType == catalog.LoadAppend {
			m.appendPaused = true
		}
		m.updateNotes()
		m.Status.SetMessage(domain.Describe(msg.Err))
		return m, ClearStatusCmd(statusTimeout)
	}

	switch msg.LoadType {
	case catalog.LoadAppend:
		m.endReached = msg.Result.EndOfPaginationReached
	case catalog.LoadRefresh:
		m.endReached = false
		m.appendPaused = false
		m.Status.SetMessage("Refreshed")
		m.updateNotes()
		return m, ClearStatusCmd(statusTimeout)
	}
	m.updateNotes()
	return m, nil
}

// handleKeyMsg handles keyboard input
func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.State == StateHelp {
		if key.Matches(msg, Keys.Escape, Keys.Help, Keys.Quit) {
			m.State = StateBrowsing
		}
		return m, nil
	}

	list := m.activeList()

	// Filter typing owns the keyboard
	if list.IsFilterTyping() {
		if msg.String() == "ctrl+c" {
			m.Close()
			return m, tea.Quit
		}
		cmd := tea.Batch(list.Update(msg), m.syncDetail())
		return m, cmd
	}

	switch {
	case key.Matches(msg, Keys.Quit):
		m.Close()
		return m, tea.Quit

	case key.Matches(msg, Keys.Help):
		m.State = StateHelp
		return m, nil

	case key.Matches(msg, Keys.Escape):
		if list.IsFiltering() {
			list.ClearFilter()
			cmd := tea.Batch(m.syncDetail(), m.maybeAppend())
			return m, cmd
		}
		return m, nil

	case key.Matches(msg, Keys.Filter):
		list.ToggleFilter()
		return m, nil

	case key.Matches(msg, Keys.NextTab):
		if m.ActiveTab == TabPopular {
			m.ActiveTab = TabFavorites
		} else {
			m.ActiveTab = TabPopular
		}
		m.Popular.SetFocused(m.ActiveTab == TabPopular)
		m.Favorites.SetFocused(m.ActiveTab == TabFavorites)
		cmd := tea.Batch(m.syncDetail(), m.maybeAppend())
		return m, cmd

	case key.Matches(msg, Keys.Refresh):
		m.appendPaused = false
		m.updateNotes()
		m.Status.SetMessage("")
		return m, RefreshCmd(m.ctx, m.Catalog, true)

	case key.Matches(msg, Keys.RefreshAround):
		state := catalog.PagingState{}
		if sel := m.Popular.Selected(); sel != nil {
			id := sel.ID
			state.AnchorID = &id
		}
		m.Status.SetMessage("Refreshing around selection...")
		return m, LoadCmd(m.ctx, m.Pager, catalog.LoadRefresh, state)

	case key.Matches(msg, Keys.Favorite):
		if sel := list.Selected(); sel != nil {
			return m, ToggleFavoriteCmd(m.ctx, m.Catalog, sel.ID)
		}
		return m, nil

	case key.Matches(msg, Keys.Open):
		if sel := list.Selected(); sel != nil && m.Opener != nil {
			return m, OpenMovieCmd(m.Opener, sel.ID)
		}
		return m, nil
	}

	cmd := tea.Batch(list.Update(msg), m.syncDetail(), m.maybeAppend())
	return m, cmd
}

func (m Model) activeList() *components.MovieList {
	if m.ActiveTab == TabFavorites {
		return m.Favorites
	}
	return m.Popular
}

// syncDetail points the detail subscription at the current selection
func (m *Model) syncDetail() tea.Cmd {
	sel := m.activeList().Selected()
	if sel == nil {
		if m.detailCancel != nil {
			m.detailCancel()
			m.detailCancel = nil
		}
		m.detailSeq++
		m.detailID = 0
		m.detailCh = nil
		m.Detail.Clear()
		return nil
	}
	if m.detailCancel != nil && sel.ID == m.detailID {
		return nil
	}

	if m.detailCancel != nil {
		m.detailCancel()
	}
	ctx, cancel := context.WithCancel(m.ctx)
	m.detailCancel = cancel
	m.detailSeq++
	m.detailID = sel.ID
	m.Detail.Reset(sel.ID)

	m.detailCh = m.Catalog.MovieDetail(ctx, sel.ID)
	return m.waitDetail()
}

func (m Model) waitDetail() tea.Cmd {
	seq, id := m.detailSeq, m.detailID
	return waitFor(m.detailCh,
		func(res domain.DetailResult) tea.Msg { return DetailMsg{Seq: seq, ID: id, Result: res} },
		func() tea.Msg { return DetailClosedMsg{Seq: seq, ID: id} },
	)
}

// maybeAppend fetches the next page when the cursor nears the end of the popular list
func (m *Model) maybeAppend() tea.Cmd {
	if m.ActiveTab != TabPopular || m.loadingMore || m.endReached || m.appendPaused {
		return nil
	}
	if m.Status.State().IsRefreshing || !m.Popular.NearEnd(AppendThreshold) {
		return nil
	}
	last := m.Popular.Last()
	if last == nil {
		return nil
	}
	id := last.ID
	m.loadingMore = true
	m.updateNotes()
	return LoadCmd(m.ctx, m.Pager, catalog.LoadAppend, catalog.PagingState{LastLoadedID: &id})
}

func (m *Model) updateNotes() {
	switch {
	case m.loadingMore:
		m.Popular.SetNote("Loading more...")
	case m.appendPaused:
		m.Popular.SetNote("Could not load more. Press r to retry.")
	case m.endReached && m.Popular.Len() > 0:
		m.Popular.SetNote("End of list")
	default:
		m.Popular.SetNote("")
	}
}

func (m Model) waitCatalog() tea.Cmd {
	return waitFor(m.catalogCh, func(v []domain.Movie) tea.Msg { return CatalogMsg{Movies: v} }, nil)
}

func (m Model) waitFavorites() tea.Cmd {
	return waitFor(m.favoritesCh, func(v []domain.Movie) tea.Msg { return FavoritesMsg{Movies: v} }, nil)
}

func (m Model) waitRefreshState() tea.Cmd {
	return waitFor(m.stateCh, func(v domain.RefreshState) tea.Msg { return RefreshStateMsg{State: v} }, nil)
}

func (m *Model) updateLayout() {
	contentHeight := m.Height - ChromeHeight
	if contentHeight < 3 {
		contentHeight = 3
	}

	listWidth := m.Width * ListColumnPercent / 100
	if listWidth < MinColumnWidth {
		listWidth = MinColumnWidth
	}
	detailWidth := m.Width - listWidth
	if detailWidth < 0 {
		detailWidth = 0
	}

	m.Popular.SetSize(listWidth, contentHeight)
	m.Favorites.SetSize(listWidth, contentHeight)
	m.Detail.SetSize(detailWidth, contentHeight)
	m.Status.SetWidth(m.Width)
}

// View renders the application
func (m Model) View() string {
	if !m.Ready {
		return "Loading..."
	}
	if m.State == StateHelp {
		return m.renderHelp()
	}

	content := lipgloss.JoinHorizontal(lipgloss.Top,
		m.activeList().View(),
		m.Detail.View(),
	)

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderTabs(),
		content,
		m.Status.View(),
	)
}

func (m Model) renderTabs() string {
	tabs := []struct {
		tab   Tab
		label string
	}{
		{TabPopular, "Popular"},
		{TabFavorites, "Favorites"},
	}

	var parts []string
	for _, t := range tabs {
		if t.tab == m.ActiveTab {
			parts = append(parts, styles.ActiveTabStyle.Render(t.label))
		} else {
			parts = append(parts, styles.InactiveTabStyle.Render(t.label))
		}
	}
	return styles.TitleStyle.Render("popcorn") + "  " + strings.Join(parts, " ")
}

// renderHelp renders the help screen
func (m Model) renderHelp() string {
	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render("Keys"))
	b.WriteString("\n\n")
	for _, binding := range Keys.HelpBindings() {
		h := binding.Help()
		b.WriteString(styles.HelpKeyStyle.Render(padRight(h.Key, 8)))
		b.WriteString(" ")
		b.WriteString(styles.HelpDescStyle.Render(h.Desc))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(styles.DimStyle.Render("Press ? or esc to return"))

	return lipgloss.Place(m.Width, m.Height,
		lipgloss.Center, lipgloss.Center,
		styles.ModalStyle.Render(b.String()))
}

func padRight(s string, width int) string {
	if n := width - lipgloss.Width(s); n > 0 {
		return s + strings.Repeat(" ", n)
	}
	return s
}
