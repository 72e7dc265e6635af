package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mmcdole/popcorn/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMediator_Initialize(t *testing.T) {
	tests := []struct {
		name        string
		seed        bool
		lastUpdated *int64
		want        InitializeAction
	}{
		{name: "empty cache", want: LaunchInitialRefresh},
		{name: "rows without timestamp", seed: true, want: LaunchInitialRefresh},
		{name: "fresh", seed: true, lastUpdated: ptr(baseTime - 1000), want: SkipInitialRefresh},
		{name: "exactly stale", seed: true, lastUpdated: ptr(baseTime - time.Hour.Milliseconds()), want: LaunchInitialRefresh},
		{name: "empty but fresh timestamp", lastUpdated: ptr(baseTime), want: LaunchInitialRefresh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			ctx := context.Background()
			if tt.seed {
				require.NoError(t, h.store.UpsertMovie(ctx, domain.MovieRecord{ID: 1, Title: "One", PopularRank: 0}))
			}
			if tt.lastUpdated != nil {
				require.NoError(t, h.store.SetMetadata(ctx, domain.MetaCatalogLastUpdated, *tt.lastUpdated))
			}

			got, err := h.med.Initialize(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMediator_InitializeIgnoresUnrankedRows(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.store.UpsertMovie(ctx, domain.MovieRecord{ID: 99, Title: "Detail only", PopularRank: domain.UnrankedRank}))
	require.NoError(t, h.store.SetMetadata(ctx, domain.MetaCatalogLastUpdated, baseTime))

	got, err := h.med.Initialize(ctx)
	require.NoError(t, err)
	assert.Equal(t, LaunchInitialRefresh, got)
}

// E2E A: empty cache, single-page feed.
func TestMediator_RefreshSeedsEmptyCache(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.source.pages[1] = feedPage(1, 1, 1, 20)

	res, err := h.med.Load(ctx, LoadRefresh, PagingState{})
	require.NoError(t, err)
	assert.True(t, res.EndOfPaginationReached)

	got := recvUntil(t, h.repo.Catalog(ctx), func(m []domain.Movie) bool { return len(m) > 0 })
	assert.Equal(t, seq(1, 20), movieIDs(got))

	last, err := h.store.GetMetadata(ctx, domain.MetaCatalogLastUpdated)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, baseTime, *last)

	state := h.repo.RefreshState()
	require.NotNil(t, state.LastUpdated)
	assert.Equal(t, baseTime, *state.LastUpdated)
}

// P3: ranks are dense from (page-1)*pageSize.
func TestMediator_RefreshRanksAreDense(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.source.pages[1] = feedPage(1, 5, 1, 20)
	h.source.pages[3] = feedPage(3, 5, 41, 55)

	_, err := h.med.Load(ctx, LoadRefresh, PagingState{})
	require.NoError(t, err)

	// Anchor id 1 sits on page 1, so a refresh around it refetches page 1.
	_, err = h.med.Load(ctx, LoadRefresh, PagingState{AnchorID: ptr(int64(1))})
	require.NoError(t, err)

	// Point the anchor at page 3 and refresh around it.
	require.NoError(t, h.store.UpsertPageKeys(ctx, []domain.PageKey{{MovieID: 5, PrevKey: ptr(2), NextKey: ptr(4)}}))
	res, err := h.med.Load(ctx, LoadRefresh, PagingState{AnchorID: ptr(int64(5))})
	require.NoError(t, err)
	assert.False(t, res.EndOfPaginationReached)
	assert.Equal(t, []int{1, 1, 3}, h.source.pageCalls)

	ranked, err := h.store.RankedMovies(ctx)
	require.NoError(t, err)
	require.Len(t, ranked, 15)
	for i, rec := range ranked {
		assert.Equal(t, int64(41+i), rec.ID)
		assert.Equal(t, 40+i, rec.PopularRank)
	}

	key, err := h.store.GetPageKey(ctx, 41)
	require.NoError(t, err)
	require.NotNil(t, key)
	assert.Equal(t, 2, *key.PrevKey)
	assert.Equal(t, 4, *key.NextKey)

	// The full refresh cleared keys of rows from the previous ordering.
	key, err = h.store.GetPageKey(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, key)
}

func TestMediator_RefreshUnknownAnchorStartsAtPageOne(t *testing.T) {
	h := newHarness(t)
	h.source.pages[1] = feedPage(1, 2, 1, 20)

	_, err := h.med.Load(context.Background(), LoadRefresh, PagingState{AnchorID: ptr(int64(777))})
	require.NoError(t, err)
	assert.Equal(t, []int{1}, h.source.pageCalls)
}

// P4 / E2E C: list merges keep detail fields.
func TestMediator_RefreshPreservesDetailFields(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	fetched := baseTime - 5000
	require.NoError(t, h.store.UpsertMovie(ctx, domain.MovieRecord{
		ID:              7,
		Title:           "Old title",
		PopularRank:     123,
		Overview:        ptr("existing"),
		RuntimeMinutes:  ptr(99),
		Genres:          []string{"Drama"},
		DetailFetchedAt: &fetched,
	}))

	rating := 8.1
	h.source.pages[1] = domain.Page{Page: 1, TotalPages: 1, Results: []domain.MovieSummary{
		{ID: 3, Title: "Three"},
		{ID: 7, Title: "New title", Rating: &rating, ReleaseYear: ptr(2024), PosterURL: ptr("https://img/7.jpg")},
	}}

	_, err := h.med.Load(ctx, LoadRefresh, PagingState{})
	require.NoError(t, err)

	rec, err := h.store.GetMovie(ctx, 7)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "New title", rec.Title)
	assert.Equal(t, 8.1, *rec.Rating)
	assert.Equal(t, 2024, *rec.ReleaseYear)
	assert.Equal(t, "https://img/7.jpg", *rec.PosterURL)
	assert.Equal(t, 1, rec.PopularRank)
	assert.Equal(t, "existing", *rec.Overview)
	assert.Equal(t, 99, *rec.RuntimeMinutes)
	assert.Equal(t, []string{"Drama"}, rec.Genres)
	assert.Equal(t, fetched, *rec.DetailFetchedAt)
}

func TestMediator_RefreshUnranksRowsMissingFromNewFeed(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.store.UpsertMovies(ctx, []domain.MovieRecord{
		{ID: 100, Title: "Gone", PopularRank: 0},
		{ID: 101, Title: "Also gone", PopularRank: 1},
	}))
	h.source.pages[1] = feedPage(1, 1, 1, 3)

	_, err := h.med.Load(ctx, LoadRefresh, PagingState{})
	require.NoError(t, err)

	ranked, err := h.store.RankedMovies(ctx)
	require.NoError(t, err)
	assert.Len(t, ranked, 3)

	gone, err := h.store.GetMovie(ctx, 100)
	require.NoError(t, err)
	require.NotNil(t, gone, "rows are unranked, never deleted")
	assert.Equal(t, domain.UnrankedRank, gone.PopularRank)
}

// P6: a failed refresh changes nothing.
func TestMediator_RefreshFailureLeavesCacheUntouched(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.source.pages[1] = feedPage(1, 3, 1, 20)
	_, err := h.med.Load(ctx, LoadRefresh, PagingState{})
	require.NoError(t, err)

	before := h.snapshot(t, 1, 10, 20)
	h.clock.Advance(2 * time.Hour)
	h.source.setPageErr(errOffline)

	_, err = h.med.Load(ctx, LoadRefresh, PagingState{})
	require.Error(t, err)

	var medErr *MediatorError
	require.ErrorAs(t, err, &medErr)
	assert.Equal(t, LoadRefresh, medErr.LoadType)
	assert.Equal(t, 1, medErr.Page)
	assert.Equal(t, domain.KindOffline, domain.KindOf(err))

	assert.Equal(t, before, h.snapshot(t, 1, 10, 20))
}

// P7: append continues the ordering without touching page 1.
func TestMediator_AppendContinuesOrdering(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.source.pages[1] = feedPage(1, 3, 1, 20)
	h.source.pages[2] = feedPage(2, 3, 21, 40)
	h.source.pages[3] = feedPage(3, 3, 41, 45)

	res, err := h.med.Load(ctx, LoadRefresh, PagingState{})
	require.NoError(t, err)
	assert.False(t, res.EndOfPaginationReached)
	firstStamp, err := h.store.GetMetadata(ctx, domain.MetaCatalogLastUpdated)
	require.NoError(t, err)

	h.clock.Advance(time.Minute)
	res, err = h.med.Load(ctx, LoadAppend, PagingState{LastLoadedID: ptr(int64(20))})
	require.NoError(t, err)
	assert.False(t, res.EndOfPaginationReached)

	res, err = h.med.Load(ctx, LoadAppend, PagingState{LastLoadedID: ptr(int64(40))})
	require.NoError(t, err)
	assert.True(t, res.EndOfPaginationReached)

	got := recvUntil(t, h.repo.Catalog(ctx), func(m []domain.Movie) bool { return len(m) == 45 })
	assert.Equal(t, seq(1, 45), movieIDs(got))

	ranked, err := h.store.RankedMovies(ctx)
	require.NoError(t, err)
	for i, rec := range ranked {
		assert.Equal(t, i, rec.PopularRank)
	}

	// Appends do not restamp the refresh time.
	stamp, err := h.store.GetMetadata(ctx, domain.MetaCatalogLastUpdated)
	require.NoError(t, err)
	assert.Equal(t, firstStamp, stamp)

	// Page 1 keys survive the appends.
	key, err := h.store.GetPageKey(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, key)
	assert.Nil(t, key.PrevKey)
	assert.Equal(t, 2, *key.NextKey)

	key, err = h.store.GetPageKey(ctx, 45)
	require.NoError(t, err)
	require.NotNil(t, key)
	assert.Equal(t, 2, *key.PrevKey)
	assert.Nil(t, key.NextKey)
}

func TestMediator_AppendEndsWithoutFetch(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.source.pages[1] = feedPage(1, 1, 1, 5)
	_, err := h.med.Load(ctx, LoadRefresh, PagingState{})
	require.NoError(t, err)

	tests := []struct {
		name  string
		state PagingState
	}{
		{name: "no last item", state: PagingState{}},
		{name: "last item has no key", state: PagingState{LastLoadedID: ptr(int64(999))}},
		{name: "last page", state: PagingState{LastLoadedID: ptr(int64(5))}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := h.source.pageCallCount()
			res, err := h.med.Load(ctx, LoadAppend, tt.state)
			require.NoError(t, err)
			assert.True(t, res.EndOfPaginationReached)
			assert.Equal(t, calls, h.source.pageCallCount())
		})
	}
}

func TestMediator_PrependAlwaysEnds(t *testing.T) {
	h := newHarness(t)
	res, err := h.med.Load(context.Background(), LoadPrepend, PagingState{AnchorID: ptr(int64(1))})
	require.NoError(t, err)
	assert.True(t, res.EndOfPaginationReached)
	assert.Zero(t, h.source.pageCallCount())
}

func TestMediator_AppendFailureWrapsAndKeepsCache(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.source.pages[1] = feedPage(1, 2, 1, 20)
	_, err := h.med.Load(ctx, LoadRefresh, PagingState{})
	require.NoError(t, err)
	before := h.snapshot(t, 20)

	serverErr := &domain.RemoteError{Kind: domain.KindHTTP, StatusCode: 503}
	h.source.setPageErr(serverErr)
	_, err = h.med.Load(ctx, LoadAppend, PagingState{LastLoadedID: ptr(int64(20))})

	var medErr *MediatorError
	require.ErrorAs(t, err, &medErr)
	assert.Equal(t, LoadAppend, medErr.LoadType)
	assert.Equal(t, 2, medErr.Page)
	assert.True(t, errors.Is(err, serverErr))
	assert.Equal(t, before, h.snapshot(t, 20))
}

func TestMediator_CancelledLoadIsNotWrapped(t *testing.T) {
	h := newHarness(t)
	h.source.pages[1] = feedPage(1, 1, 1, 5)
	release := h.source.gated()
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := h.med.Load(ctx, LoadRefresh, PagingState{})
		done <- err
	}()

	recv(t, h.source.started)
	cancel()

	err := recv(t, done)
	assert.ErrorIs(t, err, context.Canceled)
	var medErr *MediatorError
	assert.False(t, errors.As(err, &medErr))

	n, err := h.store.CountRanked(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMediatorError_Message(t *testing.T) {
	err := &MediatorError{LoadType: LoadAppend, Page: 4, Err: errOffline}
	assert.Contains(t, err.Error(), "append load of page 4 failed")
	assert.Equal(t, domain.KindOffline, domain.KindOf(err))
}
