package catalog

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mmcdole/popcorn/internal/clock"
	"github.com/mmcdole/popcorn/internal/domain"
	"github.com/mmcdole/popcorn/internal/store"
	"github.com/stretchr/testify/require"
)

const (
	waitFor  = 2 * time.Second
	baseTime = int64(1_700_000_000_000)
)

var errOffline = &domain.RemoteError{Kind: domain.KindOffline, Err: errors.New("dial tcp: no route to host")}

// fakeSource serves canned pages and details and records every call.
type fakeSource struct {
	mu          sync.Mutex
	pages       map[int]domain.Page
	details     map[int64]domain.MovieDetail
	pageErr     error
	detailErr   error
	pageCalls   []int
	detailCalls []int64

	// When gate is set, PopularMovies signals started and blocks until gate
	// is closed or ctx is done.
	gate    chan struct{}
	started chan int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		pages:   make(map[int]domain.Page),
		details: make(map[int64]domain.MovieDetail),
	}
}

func (f *fakeSource) PopularMovies(ctx context.Context, page int) (domain.Page, error) {
	f.mu.Lock()
	f.pageCalls = append(f.pageCalls, page)
	gate, started := f.gate, f.started
	f.mu.Unlock()

	if gate != nil {
		if started != nil {
			started <- page
		}
		select {
		case <-gate:
		case <-ctx.Done():
			return domain.Page{}, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pageErr != nil {
		return domain.Page{}, f.pageErr
	}
	p, ok := f.pages[page]
	if !ok {
		return domain.Page{}, &domain.RemoteError{Kind: domain.KindHTTP, StatusCode: 404}
	}
	return p, nil
}

func (f *fakeSource) MovieDetail(ctx context.Context, id int64) (domain.MovieDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detailCalls = append(f.detailCalls, id)
	if err := ctx.Err(); err != nil {
		return domain.MovieDetail{}, err
	}
	if f.detailErr != nil {
		return domain.MovieDetail{}, f.detailErr
	}
	d, ok := f.details[id]
	if !ok {
		return domain.MovieDetail{}, &domain.RemoteError{Kind: domain.KindHTTP, StatusCode: 404}
	}
	return d, nil
}

func (f *fakeSource) setPageErr(err error) {
	f.mu.Lock()
	f.pageErr = err
	f.mu.Unlock()
}

func (f *fakeSource) setDetailErr(err error) {
	f.mu.Lock()
	f.detailErr = err
	f.mu.Unlock()
}

func (f *fakeSource) gated() (release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate = make(chan struct{})
	f.started = make(chan int, 16)
	gate := f.gate
	return func() { close(gate) }
}

func (f *fakeSource) pageCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pageCalls)
}

func (f *fakeSource) detailCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.detailCalls)
}

// summaries builds movies first..last titled "Movie <id>".
func summaries(first, last int64) []domain.MovieSummary {
	out := make([]domain.MovieSummary, 0, last-first+1)
	for id := first; id <= last; id++ {
		rating := float64(id%10) + 0.5
		out = append(out, domain.MovieSummary{ID: id, Title: fmt.Sprintf("Movie %d", id), Rating: &rating})
	}
	return out
}

func feedPage(n, total int, first, last int64) domain.Page {
	return domain.Page{Page: n, TotalPages: total, Results: summaries(first, last)}
}

type harness struct {
	source *fakeSource
	store  *store.CatalogStore
	clock  *clock.Manual
	repo   *Repository
	med    *Mediator
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "popcorn.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	src := newFakeSource()
	clk := clock.NewManualMillis(baseTime)
	repo := NewRepository(src, st, clk, Options{PageSize: 20, StaleAfter: time.Hour}, nil)
	return &harness{source: src, store: st, clock: clk, repo: repo, med: repo.Mediator()}
}

// cacheSnapshot captures everything a refresh may write.
type cacheSnapshot struct {
	Ranked      []domain.MovieRecord
	Keys        map[int64]*domain.PageKey
	LastUpdated *int64
}

func (h *harness) snapshot(t *testing.T, ids ...int64) cacheSnapshot {
	t.Helper()
	ctx := context.Background()
	ranked, err := h.store.RankedMovies(ctx)
	require.NoError(t, err)
	keys := make(map[int64]*domain.PageKey)
	for _, id := range ids {
		k, err := h.store.GetPageKey(ctx, id)
		require.NoError(t, err)
		keys[id] = k
	}
	last, err := h.store.GetMetadata(ctx, domain.MetaCatalogLastUpdated)
	require.NoError(t, err)
	return cacheSnapshot{Ranked: ranked, Keys: keys, LastUpdated: last}
}

func movieIDs(movies []domain.Movie) []int64 {
	out := make([]int64, 0, len(movies))
	for _, m := range movies {
		out = append(out, m.ID)
	}
	return out
}

func seq(first, last int64) []int64 {
	out := make([]int64, 0, last-first+1)
	for id := first; id <= last; id++ {
		out = append(out, id)
	}
	return out
}

func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		require.True(t, ok, "channel closed")
		return v
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for emission")
	}
	var zero T
	return zero
}

// recvUntil reads ch until match accepts a value.
func recvUntil[T any](t *testing.T, ch <-chan T, match func(T) bool) T {
	t.Helper()
	deadline := time.After(waitFor)
	for {
		select {
		case v, ok := <-ch:
			require.True(t, ok, "channel closed")
			if match(v) {
				return v
			}
		case <-deadline:
			t.Fatal("timed out waiting for matching emission")
			var zero T
			return zero
		}
	}
}

func ptr[T any](v T) *T { return &v }
