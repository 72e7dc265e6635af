package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/mmcdole/popcorn/internal/domain"
	bolt "go.etcd.io/bbolt"
)

// === Favorites ===

func (s *CatalogStore) AddFavorite(ctx context.Context, movieID, createdAt int64) error {
	err := s.update(ctx, func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketFavorites)
		if b.Get(itob(movieID)) != nil {
			return nil
		}
		return b.Put(itob(movieID), itob(createdAt))
	})
	if err != nil {
		return fmt.Errorf("failed to add favorite %d: %w", movieID, err)
	}
	return nil
}

func (s *CatalogStore) RemoveFavorite(ctx context.Context, movieID int64) error {
	err := s.update(ctx, func(tx *bolt.Tx) error {
		return tx.Bucket(bucketFavorites).Delete(itob(movieID))
	})
	if err != nil {
		return fmt.Errorf("failed to remove favorite %d: %w", movieID, err)
	}
	return nil
}

// ToggleFavorite flips membership and reports whether the movie is now a favorite.
func (s *CatalogStore) ToggleFavorite(ctx context.Context, movieID, createdAt int64) (bool, error) {
	var added bool
	err := s.update(ctx, func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketFavorites)
		if b.Get(itob(movieID)) != nil {
			return b.Delete(itob(movieID))
		}
		added = true
		return b.Put(itob(movieID), itob(createdAt))
	})
	if err != nil {
		return false, fmt.Errorf("failed to toggle favorite %d: %w", movieID, err)
	}
	return added, nil
}

// Favorites returns the favorites set, newest first.
func (s *CatalogStore) Favorites(ctx context.Context) ([]domain.FavoriteRecord, error) {
	var out []domain.FavoriteRecord
	err := s.view(ctx, func(tx *bolt.Tx) error {
		out = favorites(tx)
		return nil
	})
	return out, err
}

func (s *CatalogStore) ObserveFavoriteIDs(ctx context.Context) <-chan map[int64]struct{} {
	return observe(ctx, s, func(tx *bolt.Tx) (map[int64]struct{}, error) {
		ids := make(map[int64]struct{})
		err := tx.Bucket(bucketFavorites).ForEach(func(k, _ []byte) error {
			ids[btoi(k)] = struct{}{}
			return nil
		})
		return ids, err
	})
}

// ObserveFavoriteMovies emits the cached rows of favorited movies, newest
// favorite first. Favorites without a cached row are skipped.
func (s *CatalogStore) ObserveFavoriteMovies(ctx context.Context) <-chan []domain.MovieRecord {
	return observe(ctx, s, func(tx *bolt.Tx) ([]domain.MovieRecord, error) {
		out := []domain.MovieRecord{}
		for _, fav := range favorites(tx) {
			rec, err := getMovie(tx, fav.MovieID)
			if err != nil {
				return nil, err
			}
			if rec != nil {
				out = append(out, *rec)
			}
		}
		return out, nil
	})
}

func favorites(tx *bolt.Tx) []domain.FavoriteRecord {
	var out []domain.FavoriteRecord
	tx.Bucket(bucketFavorites).ForEach(func(k, v []byte) error {
		out = append(out, domain.FavoriteRecord{MovieID: btoi(k), CreatedAt: btoi(v)})
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].MovieID < out[j].MovieID
	})
	return out
}
