package store

import (
	"context"
	"fmt"

	"github.com/mmcdole/popcorn/internal/domain"
	bolt "go.etcd.io/bbolt"
)

// === Movies ===

func (s *CatalogStore) GetMovie(ctx context.Context, id int64) (*domain.MovieRecord, error) {
	var rec *domain.MovieRecord
	err := s.view(ctx, func(tx *bolt.Tx) error {
		var err error
		rec, err = getMovie(tx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get movie %d: %w", id, err)
	}
	return rec, nil
}

func (s *CatalogStore) UpsertMovie(ctx context.Context, rec domain.MovieRecord) error {
	return s.UpsertMovies(ctx, []domain.MovieRecord{rec})
}

func (s *CatalogStore) UpsertMovies(ctx context.Context, recs []domain.MovieRecord) error {
	return s.InTx(ctx, func(tx domain.CatalogTx) error {
		return tx.UpsertMovies(recs...)
	})
}

// RankedMovies returns every ranked row in rank order.
func (s *CatalogStore) RankedMovies(ctx context.Context) ([]domain.MovieRecord, error) {
	var out []domain.MovieRecord
	err := s.view(ctx, func(tx *bolt.Tx) error {
		var err error
		out, err = rankedMovies(tx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return out, nil
}

// CountRanked returns the number of rows in the visible catalog.
func (s *CatalogStore) CountRanked(ctx context.Context) (int, error) {
	var n int
	err := s.view(ctx, func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketRankIndex).Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			n++
		}
		return nil
	})
	return n, err
}

func (s *CatalogStore) ObserveMovie(ctx context.Context, id int64) <-chan *domain.MovieRecord {
	return observe(ctx, s, func(tx *bolt.Tx) (*domain.MovieRecord, error) {
		return getMovie(tx, id)
	})
}

func (s *CatalogStore) ObserveRanked(ctx context.Context) <-chan []domain.MovieRecord {
	return observe(ctx, s, rankedMovies)
}

// === Page keys ===

func (s *CatalogStore) GetPageKey(ctx context.Context, movieID int64) (*domain.PageKey, error) {
	var key *domain.PageKey
	err := s.view(ctx, func(tx *bolt.Tx) error {
		var err error
		key, err = getPageKey(tx, movieID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get page key %d: %w", movieID, err)
	}
	return key, nil
}

func (s *CatalogStore) UpsertPageKeys(ctx context.Context, keys []domain.PageKey) error {
	return s.InTx(ctx, func(tx domain.CatalogTx) error {
		return tx.UpsertPageKeys(keys...)
	})
}

func (s *CatalogStore) ClearPageKeys(ctx context.Context) error {
	return s.InTx(ctx, func(tx domain.CatalogTx) error {
		return tx.ClearPageKeys()
	})
}

// === Metadata ===

func (s *CatalogStore) GetMetadata(ctx context.Context, key string) (*int64, error) {
	var v *int64
	err := s.view(ctx, func(tx *bolt.Tx) error {
		v = getMetadata(tx, key)
		return nil
	})
	return v, err
}

func (s *CatalogStore) SetMetadata(ctx context.Context, key string, value int64) error {
	return s.InTx(ctx, func(tx domain.CatalogTx) error {
		return tx.SetMetadata(key, value)
	})
}

func (s *CatalogStore) ObserveMetadata(ctx context.Context, key string) <-chan *int64 {
	return observe(ctx, s, func(tx *bolt.Tx) (*int64, error) {
		return getMetadata(tx, key), nil
	})
}
