package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mmcdole/popcorn/internal/cachepolicy"
	"github.com/mmcdole/popcorn/internal/clock"
	"github.com/mmcdole/popcorn/internal/domain"
	"github.com/mmcdole/popcorn/internal/stream"
	"golang.org/x/sync/singleflight"
)

// Repository is the presentation layer's entry point to the catalog.
// Reads come from the cache; the network only refreshes it.
type Repository struct {
	pager  *pager
	policy cachepolicy.Policy
	logger *slog.Logger

	state *stream.Value[domain.RefreshState]

	primeMu sync.Mutex
	primed  bool

	// refreshMu serializes the check-fetch-write span of a refresh;
	// group collapses concurrent callers onto one attempt.
	refreshMu sync.Mutex
	group     singleflight.Group
}

// NewRepository creates a repository over source and store.
func NewRepository(
	source domain.CatalogSource,
	store domain.CatalogStore,
	clk clock.Clock,
	opts Options,
	logger *slog.Logger,
) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	if clk == nil {
		clk = clock.System{}
	}
	return &Repository{
		pager: &pager{
			source:   source,
			store:    store,
			clock:    clk,
			pageSize: opts.pageSize(),
			logger:   logger,
		},
		policy: cachepolicy.New(opts.StaleAfter),
		logger: logger,
		state:  stream.NewValue(domain.RefreshState{}),
	}
}

// Mediator returns a mediator sharing this repository's source, store and
// clock. Its successful refresh loads advance the repository's refresh state.
func (r *Repository) Mediator() *Mediator {
	return &Mediator{
		pager:  r.pager,
		policy: r.policy,
		logger: r.logger,
		onRefresh: func(stampedAt int64) {
			r.state.Update(func(s domain.RefreshState) domain.RefreshState {
				s.LastUpdated = &stampedAt
				s.LastError = nil
				return s
			})
		},
	}
}

// === Catalog ===

// Catalog emits the ranked catalog, annotated with favorites, and again on
// every change. It never fetches; an empty cache stays empty until refreshed.
func (r *Repository) Catalog(ctx context.Context) <-chan []domain.Movie {
	return stream.Combine2(ctx,
		r.pager.store.ObserveRanked(ctx),
		r.pager.store.ObserveFavoriteIDs(ctx),
		annotate,
	)
}

// Snapshot returns the ranked catalog as currently cached.
func (r *Repository) Snapshot(ctx context.Context) ([]domain.Movie, error) {
	recs, err := r.pager.store.RankedMovies(ctx)
	if err != nil {
		return nil, err
	}
	favs, err := r.pager.store.Favorites(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read favorites: %w", err)
	}
	ids := make(map[int64]struct{}, len(favs))
	for _, f := range favs {
		ids[f.MovieID] = struct{}{}
	}
	return annotate(recs, ids), nil
}

func annotate(recs []domain.MovieRecord, favorites map[int64]struct{}) []domain.Movie {
	out := make([]domain.Movie, 0, len(recs))
	for _, rec := range recs {
		if !rec.IsRanked() {
			continue
		}
		_, fav := favorites[rec.ID]
		out = append(out, domain.Movie{MovieRecord: rec, IsFavorite: fav})
	}
	return out
}

// === Detail ===

// MovieDetail emits the movie with the given id, fetching its details first
// when the cache has no row or only a list row.
//
// If that fetch fails and nothing is cached, the error is emitted and the
// stream ends. If a list row is cached, the row is served and the error is
// dropped. Afterwards the stream follows the row and the favorites set; a
// row that disappears is emitted as ErrMovieNotFound.
func (r *Repository) MovieDetail(ctx context.Context, id int64) <-chan domain.DetailResult {
	out := make(chan domain.DetailResult)

	go func() {
		defer close(out)

		send := func(res domain.DetailResult) bool {
			select {
			case out <- res:
				return true
			case <-ctx.Done():
				return false
			}
		}

		rec, err := r.pager.store.GetMovie(ctx, id)
		if err != nil {
			if ctx.Err() == nil {
				send(domain.DetailResult{Err: err})
			}
			return
		}

		if rec == nil || !rec.HasDetail() {
			if err := r.fetchDetail(ctx, id); err != nil {
				if ctx.Err() != nil {
					return
				}
				if rec == nil {
					r.logger.Warn("failed to fetch movie detail", "movieID", id, "error", err)
					send(domain.DetailResult{Err: err})
					return
				}
				r.logger.Debug("detail fetch failed, serving cached row", "movieID", id, "error", err)
			}
		}

		joined := stream.Combine2(ctx,
			r.pager.store.ObserveMovie(ctx, id),
			r.pager.store.ObserveFavoriteIDs(ctx),
			func(rec *domain.MovieRecord, favorites map[int64]struct{}) domain.DetailResult {
				if rec == nil {
					return domain.DetailResult{Err: domain.ErrMovieNotFound}
				}
				_, fav := favorites[rec.ID]
				return domain.DetailResult{Movie: &domain.Movie{MovieRecord: *rec, IsFavorite: fav}}
			},
		)
		for res := range joined {
			if !send(res) {
				return
			}
		}
	}()

	return out
}

// fetchDetail fetches one movie's details and merges them into its row.
// A movie not yet cached is stored unranked so it stays out of the catalog.
func (r *Repository) fetchDetail(ctx context.Context, id int64) error {
	d, err := r.pager.source.MovieDetail(ctx, id)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}

	now := clock.NowMillis(r.pager.clock)
	return r.pager.store.InTx(ctx, func(tx domain.CatalogTx) error {
		existing, err := tx.GetMovie(id)
		if err != nil {
			return err
		}
		rec := domain.MovieRecord{ID: id, PopularRank: domain.UnrankedRank}
		if existing != nil {
			rec = *existing
		}
		rec = rec.WithDetail(d, now)
		rec.ID = id
		return tx.UpsertMovies(rec)
	})
}

// === Refresh ===

// RefreshCatalog refetches the first feed page when the cache is stale or
// force is set, and reports the attempt on CatalogRefreshState. Concurrent
// calls with the same force share one attempt.
func (r *Repository) RefreshCatalog(ctx context.Context, force bool) error {
	key := "catalog-refresh"
	if force {
		key += ":force"
	}
	_, err, shared := r.group.Do(key, func() (any, error) {
		return nil, r.refresh(ctx, force)
	})
	if shared {
		r.logger.Debug("joined in-flight refresh", "force", force)
	}
	return err
}

func (r *Repository) refresh(ctx context.Context, force bool) error {
	r.refreshMu.Lock()
	defer r.refreshMu.Unlock()

	r.prime(ctx)

	last, err := r.pager.store.GetMetadata(ctx, domain.MetaCatalogLastUpdated)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("failed to read last refresh: %w", err)
	}
	if !r.policy.ShouldRefresh(force, last, clock.NowMillis(r.pager.clock)) {
		r.logger.Debug("catalog fresh, skipping refresh")
		return nil
	}

	r.state.Update(func(s domain.RefreshState) domain.RefreshState {
		s.IsRefreshing = true
		return s
	})

	res, err := r.pager.fetchAndMerge(ctx, 1, true)
	if err != nil {
		if domain.IsCancellation(err) && ctx.Err() != nil {
			r.state.Update(func(s domain.RefreshState) domain.RefreshState {
				s.IsRefreshing = false
				return s
			})
			return err
		}
		r.logger.Warn("catalog refresh failed", "error", err)
		r.state.Update(func(s domain.RefreshState) domain.RefreshState {
			s.IsRefreshing = false
			s.LastError = err
			return s
		})
		return err
	}

	r.logger.Info("catalog refreshed", "count", len(res.page.Results), "totalPages", res.page.TotalPages)
	r.state.Update(func(s domain.RefreshState) domain.RefreshState {
		s.LastUpdated = &res.stampedAt
		s.IsRefreshing = false
		s.LastError = nil
		return s
	})
	return nil
}

// CatalogRefreshState emits the current refresh state and then every
// transition, in order.
func (r *Repository) CatalogRefreshState(ctx context.Context) <-chan domain.RefreshState {
	r.prime(ctx)
	return r.state.Subscribe(ctx)
}

// RefreshState returns the current refresh state.
func (r *Repository) RefreshState() domain.RefreshState {
	return r.state.Get()
}

// prime loads the persisted refresh time into the state once.
func (r *Repository) prime(ctx context.Context) {
	r.primeMu.Lock()
	defer r.primeMu.Unlock()
	if r.primed {
		return
	}

	last, err := r.pager.store.GetMetadata(ctx, domain.MetaCatalogLastUpdated)
	if err != nil {
		r.logger.Debug("failed to read last refresh", "error", err)
		return
	}
	r.primed = true
	if last == nil {
		return
	}
	r.state.Update(func(s domain.RefreshState) domain.RefreshState {
		if s.LastUpdated == nil {
			s.LastUpdated = last
		}
		return s
	})
}

// === Favorites ===

func (r *Repository) AddFavorite(ctx context.Context, id int64) error {
	return r.pager.store.AddFavorite(ctx, id, clock.NowMillis(r.pager.clock))
}

func (r *Repository) RemoveFavorite(ctx context.Context, id int64) error {
	return r.pager.store.RemoveFavorite(ctx, id)
}

// ToggleFavorite flips the favorite flag and returns the new value.
func (r *Repository) ToggleFavorite(ctx context.Context, id int64) (bool, error) {
	return r.pager.store.ToggleFavorite(ctx, id, clock.NowMillis(r.pager.clock))
}

// Favorites emits the favorited movies that are cached, newest favorite first.
func (r *Repository) Favorites(ctx context.Context) <-chan []domain.Movie {
	return stream.Map(ctx, r.pager.store.ObserveFavoriteMovies(ctx), func(recs []domain.MovieRecord) []domain.Movie {
		out := make([]domain.Movie, 0, len(recs))
		for _, rec := range recs {
			out = append(out, domain.Movie{MovieRecord: rec, IsFavorite: true})
		}
		return out
	})
}
