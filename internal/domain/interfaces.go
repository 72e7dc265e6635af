package domain

import "context"

// CatalogSource fetches the popular feed and movie details from the network.
// Implementations never touch the cache. Failures are *RemoteError values;
// context cancellation is returned as ctx.Err().
type CatalogSource interface {
	PopularMovies(ctx context.Context, page int) (Page, error)
	MovieDetail(ctx context.Context, movieID int64) (MovieDetail, error)
}
