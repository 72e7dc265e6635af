package domain

import "context"

// CatalogStore is the persisted catalog cache (bbolt).
// All reads are consistent snapshots; all writes go through InTx.
type CatalogStore interface {
	// InTx runs fn inside one read-write transaction. Returning an error
	// from fn, or cancelling ctx before commit, rolls everything back.
	InTx(ctx context.Context, fn func(tx CatalogTx) error) error

	// === Movies ===
	GetMovie(ctx context.Context, id int64) (*MovieRecord, error) // nil when absent
	UpsertMovie(ctx context.Context, rec MovieRecord) error
	UpsertMovies(ctx context.Context, recs []MovieRecord) error
	RankedMovies(ctx context.Context) ([]MovieRecord, error)
	CountRanked(ctx context.Context) (int, error)
	ObserveMovie(ctx context.Context, id int64) <-chan *MovieRecord
	ObserveRanked(ctx context.Context) <-chan []MovieRecord

	// === Page keys ===
	GetPageKey(ctx context.Context, movieID int64) (*PageKey, error)
	UpsertPageKeys(ctx context.Context, keys []PageKey) error
	ClearPageKeys(ctx context.Context) error

	// === Metadata ===
	GetMetadata(ctx context.Context, key string) (*int64, error)
	SetMetadata(ctx context.Context, key string, value int64) error
	ObserveMetadata(ctx context.Context, key string) <-chan *int64

	// === Favorites ===
	AddFavorite(ctx context.Context, movieID, createdAt int64) error
	RemoveFavorite(ctx context.Context, movieID int64) error
	ToggleFavorite(ctx context.Context, movieID, createdAt int64) (bool, error)
	Favorites(ctx context.Context) ([]FavoriteRecord, error) // newest first
	ObserveFavoriteIDs(ctx context.Context) <-chan map[int64]struct{}
	ObserveFavoriteMovies(ctx context.Context) <-chan []MovieRecord

	// === Maintenance ===
	Clear(ctx context.Context) error
	Close() error
}

// CatalogTx is the write surface available inside InTx.
type CatalogTx interface {
	GetMovie(id int64) (*MovieRecord, error)
	UpsertMovies(recs ...MovieRecord) error
	ResetRanks() error
	ClearPageKeys() error
	UpsertPageKeys(keys ...PageKey) error
	SetMetadata(key string, value int64) error
}
