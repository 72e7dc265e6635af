package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mmcdole/popcorn/internal/cachepolicy"
	"github.com/mmcdole/popcorn/internal/clock"
	"github.com/mmcdole/popcorn/internal/domain"
)

// LoadType is a paging engine's load intent.
type LoadType int

const (
	LoadRefresh LoadType = iota // full reload around the anchor
	LoadPrepend                 // load items before the first loaded one
	LoadAppend                  // load items after the last loaded one
)

func (t LoadType) String() string {
	switch t {
	case LoadRefresh:
		return "refresh"
	case LoadPrepend:
		return "prepend"
	case LoadAppend:
		return "append"
	default:
		return "unknown"
	}
}

// InitializeAction is the mediator's startup decision.
type InitializeAction int

const (
	LaunchInitialRefresh InitializeAction = iota
	SkipInitialRefresh
)

func (a InitializeAction) String() string {
	if a == SkipInitialRefresh {
		return "skip"
	}
	return "launch"
}

// PagingState is what the paging engine knows about the loaded window.
type PagingState struct {
	AnchorID     *int64 // item the user is looking at, if any
	LastLoadedID *int64 // last item of the loaded window, if any
}

// MediatorResult is the outcome of a successful load.
type MediatorResult struct {
	EndOfPaginationReached bool
}

// MediatorError wraps a failed load. It unwraps to the underlying remote error.
type MediatorError struct {
	LoadType LoadType
	Page     int
	Err      error
}

func (e *MediatorError) Error() string {
	return fmt.Sprintf("%s load of page %d failed: %v", e.LoadType, e.Page, e.Err)
}

func (e *MediatorError) Unwrap() error {
	return e.Err
}

// Mediator turns paging load intents into remote fetches and cache merges.
// It never retries; scheduling retries is the caller's job.
type Mediator struct {
	pager     *pager
	policy    cachepolicy.Policy
	onRefresh func(stampedAt int64)
	logger    *slog.Logger
}

// NewMediator creates a mediator over source and store.
func NewMediator(
	source domain.CatalogSource,
	store domain.CatalogStore,
	clk clock.Clock,
	opts Options,
	logger *slog.Logger,
) *Mediator {
	if logger == nil {
		logger = slog.Default()
	}
	if clk == nil {
		clk = clock.System{}
	}
	return &Mediator{
		pager: &pager{
			source:   source,
			store:    store,
			clock:    clk,
			pageSize: opts.pageSize(),
			logger:   logger,
		},
		policy: cachepolicy.New(opts.StaleAfter),
		logger: logger,
	}
}

// Initialize decides whether the paging engine should start with a full refresh.
func (m *Mediator) Initialize(ctx context.Context) (InitializeAction, error) {
	count, err := m.pager.store.CountRanked(ctx)
	if err != nil {
		return LaunchInitialRefresh, fmt.Errorf("failed to count catalog: %w", err)
	}
	if count == 0 {
		m.logger.Debug("catalog empty, launching refresh")
		return LaunchInitialRefresh, nil
	}

	last, err := m.pager.store.GetMetadata(ctx, domain.MetaCatalogLastUpdated)
	if err != nil {
		return LaunchInitialRefresh, fmt.Errorf("failed to read last refresh: %w", err)
	}
	if m.policy.IsStale(last, clock.NowMillis(m.pager.clock)) {
		m.logger.Debug("catalog stale, launching refresh", "count", count)
		return LaunchInitialRefresh, nil
	}

	m.logger.Debug("catalog fresh, skipping refresh", "count", count)
	return SkipInitialRefresh, nil
}

// Load performs one load intent.
func (m *Mediator) Load(ctx context.Context, loadType LoadType, state PagingState) (MediatorResult, error) {
	switch loadType {
	case LoadPrepend:
		// The feed has nothing newer than page 1.
		return MediatorResult{EndOfPaginationReached: true}, nil

	case LoadRefresh:
		page, err := m.anchorPage(ctx, state.AnchorID)
		if err != nil {
			return MediatorResult{}, err
		}
		return m.load(ctx, loadType, page)

	case LoadAppend:
		if state.LastLoadedID == nil {
			return MediatorResult{EndOfPaginationReached: true}, nil
		}
		key, err := m.pager.store.GetPageKey(ctx, *state.LastLoadedID)
		if err != nil {
			return MediatorResult{}, err
		}
		if key == nil || key.NextKey == nil {
			return MediatorResult{EndOfPaginationReached: true}, nil
		}
		return m.load(ctx, loadType, *key.NextKey)

	default:
		return MediatorResult{}, fmt.Errorf("unknown load type %d", loadType)
	}
}

func (m *Mediator) load(ctx context.Context, loadType LoadType, page int) (MediatorResult, error) {
	full := loadType == LoadRefresh

	res, err := m.pager.fetchAndMerge(ctx, page, full)
	if err != nil {
		if domain.IsCancellation(err) && ctx.Err() != nil {
			return MediatorResult{}, err
		}
		m.logger.Warn("failed to load page", "loadType", loadType, "page", page, "error", err)
		return MediatorResult{}, &MediatorError{LoadType: loadType, Page: page, Err: err}
	}

	if full && m.onRefresh != nil {
		m.onRefresh(res.stampedAt)
	}
	return MediatorResult{EndOfPaginationReached: res.page.IsLast()}, nil
}

// anchorPage resolves the feed page the anchor item was loaded from.
// Without an anchor or a page key for it, the feed starts over at page 1.
func (m *Mediator) anchorPage(ctx context.Context, anchorID *int64) (int, error) {
	if anchorID == nil {
		return 1, nil
	}
	key, err := m.pager.store.GetPageKey(ctx, *anchorID)
	if err != nil {
		return 0, err
	}
	switch {
	case key == nil:
		return 1, nil
	case key.NextKey != nil:
		return *key.NextKey - 1, nil
	case key.PrevKey != nil:
		return *key.PrevKey + 1, nil
	default:
		return 1, nil
	}
}
