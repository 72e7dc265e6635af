package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mmcdole/popcorn/internal/clock"
	"github.com/mmcdole/popcorn/internal/domain"
)

// DefaultPageSize is the popular feed's page length.
const DefaultPageSize = 20

// Options configures the mediator and repository.
type Options struct {
	PageSize   int           // results per feed page, used for rank arithmetic
	StaleAfter time.Duration // cache age at which a refresh is due
}

func (o Options) pageSize() int {
	if o.PageSize <= 0 {
		return DefaultPageSize
	}
	return o.PageSize
}

// pager fetches feed pages and merges them into the store.
// It is shared by the mediator and the repository so both write pages the same way.
type pager struct {
	source   domain.CatalogSource
	store    domain.CatalogStore
	clock    clock.Clock
	pageSize int
	logger   *slog.Logger
}

// merged describes a page that was committed to the store.
type merged struct {
	page      domain.Page
	stampedAt int64 // catalog_last_updated written by a full refresh
}

// fetchAndMerge fetches page n and commits it. A full merge replaces the
// whole ordering and stamps the refresh time; otherwise the page extends it.
// Remote errors are returned as-is and leave the store untouched.
func (p *pager) fetchAndMerge(ctx context.Context, n int, full bool) (merged, error) {
	page, err := p.source.PopularMovies(ctx, n)
	if err != nil {
		if ctx.Err() != nil {
			return merged{}, ctx.Err()
		}
		return merged{}, err
	}
	if page.Page <= 0 {
		page.Page = n
	}

	now := clock.NowMillis(p.clock)
	if err := mergePage(ctx, p.store, page, p.pageSize, full, now); err != nil {
		if ctx.Err() != nil {
			return merged{}, ctx.Err()
		}
		return merged{}, fmt.Errorf("failed to merge page %d: %w", page.Page, err)
	}

	p.logger.Debug("merged page",
		"page", page.Page, "totalPages", page.TotalPages, "count", len(page.Results), "full", full)
	return merged{page: page, stampedAt: now}, nil
}

// mergePage writes one feed page in a single transaction.
//
// A full merge first clears every page key and unranks every row. Incoming
// rows take rank (page-1)*pageSize+index, keep any detail fields already
// cached for them and get page keys pointing at the neighbouring pages.
func mergePage(ctx context.Context, st domain.CatalogStore, page domain.Page, pageSize int, full bool, now int64) error {
	var prev, next *int
	if page.Page > 1 {
		v := page.Page - 1
		prev = &v
	}
	if !page.IsLast() {
		v := page.Page + 1
		next = &v
	}
	base := (page.Page - 1) * pageSize

	return st.InTx(ctx, func(tx domain.CatalogTx) error {
		if full {
			if err := tx.ClearPageKeys(); err != nil {
				return err
			}
			if err := tx.ResetRanks(); err != nil {
				return err
			}
		}

		recs := make([]domain.MovieRecord, 0, len(page.Results))
		keys := make([]domain.PageKey, 0, len(page.Results))
		for i, m := range page.Results {
			rec := domain.MovieRecord{ID: m.ID}
			existing, err := tx.GetMovie(m.ID)
			if err != nil {
				return err
			}
			if existing != nil {
				rec = *existing
			}
			rec = rec.WithListFields(m)
			rec.PopularRank = base + i

			recs = append(recs, rec)
			keys = append(keys, domain.PageKey{MovieID: m.ID, PrevKey: prev, NextKey: next})
		}

		if err := tx.UpsertMovies(recs...); err != nil {
			return err
		}
		if err := tx.UpsertPageKeys(keys...); err != nil {
			return err
		}
		if full {
			return tx.SetMetadata(domain.MetaCatalogLastUpdated, now)
		}
		return nil
	})
}
