package store

import (
	"fmt"

	"github.com/mmcdole/popcorn/internal/domain"
	bolt "go.etcd.io/bbolt"
)

var _ domain.CatalogTx = (*catalogTx)(nil)

// catalogTx exposes the catalog write primitives over one bolt transaction.
type catalogTx struct {
	tx *bolt.Tx
}

func (t *catalogTx) GetMovie(id int64) (*domain.MovieRecord, error) {
	return getMovie(t.tx, id)
}

func (t *catalogTx) UpsertMovies(recs ...domain.MovieRecord) error {
	for _, rec := range recs {
		if err := putMovie(t.tx, rec); err != nil {
			return fmt.Errorf("failed to upsert movie %d: %w", rec.ID, err)
		}
	}
	return nil
}

// ResetRanks moves every ranked row to UnrankedRank. Rows are kept.
func (t *catalogTx) ResetRanks() error {
	movies := t.tx.Bucket(bucketMovies)
	index := t.tx.Bucket(bucketRankIndex)

	var ids []int64
	if err := index.ForEach(func(_, v []byte) error {
		ids = append(ids, btoi(v))
		return nil
	}); err != nil {
		return err
	}

	for _, id := range ids {
		var rec domain.MovieRecord
		ok, err := getJSON(movies, itob(id), &rec)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		rec.PopularRank = domain.UnrankedRank
		if err := putJSON(movies, itob(id), rec); err != nil {
			return err
		}
	}
	return resetBucket(t.tx, bucketRankIndex)
}

func (t *catalogTx) ClearPageKeys() error {
	return resetBucket(t.tx, bucketPageKeys)
}

func (t *catalogTx) UpsertPageKeys(keys ...domain.PageKey) error {
	b := t.tx.Bucket(bucketPageKeys)
	for _, k := range keys {
		if err := putJSON(b, itob(k.MovieID), k); err != nil {
			return fmt.Errorf("failed to upsert page key %d: %w", k.MovieID, err)
		}
	}
	return nil
}

func (t *catalogTx) SetMetadata(key string, value int64) error {
	return t.tx.Bucket(bucketMetadata).Put([]byte(key), itob(value))
}

// === Row helpers shared by the store and transactions ===

func getMovie(tx *bolt.Tx, id int64) (*domain.MovieRecord, error) {
	var rec domain.MovieRecord
	ok, err := getJSON(tx.Bucket(bucketMovies), itob(id), &rec)
	if err != nil || !ok {
		return nil, err
	}
	return &rec, nil
}

// putMovie writes rec and keeps the rank index consistent with it.
// A rank slot held by another movie is taken over and that movie becomes
// unranked, so ranks never tie.
func putMovie(tx *bolt.Tx, rec domain.MovieRecord) error {
	movies := tx.Bucket(bucketMovies)
	index := tx.Bucket(bucketRankIndex)

	if !rec.IsRanked() {
		rec.PopularRank = domain.UnrankedRank
	}

	old, err := getMovie(tx, rec.ID)
	if err != nil {
		return err
	}
	if old != nil && old.IsRanked() && old.PopularRank != rec.PopularRank {
		slot := itob(int64(old.PopularRank))
		if v := index.Get(slot); v != nil && btoi(v) == rec.ID {
			if err := index.Delete(slot); err != nil {
				return err
			}
		}
	}

	if rec.IsRanked() {
		slot := itob(int64(rec.PopularRank))
		if v := index.Get(slot); v != nil && btoi(v) != rec.ID {
			if err := demote(tx, btoi(v)); err != nil {
				return err
			}
		}
		if err := index.Put(slot, itob(rec.ID)); err != nil {
			return err
		}
	}

	return putJSON(movies, itob(rec.ID), rec)
}

// demote marks a movie unranked without touching the index slot it held.
func demote(tx *bolt.Tx, id int64) error {
	rec, err := getMovie(tx, id)
	if err != nil || rec == nil {
		return err
	}
	rec.PopularRank = domain.UnrankedRank
	return putJSON(tx.Bucket(bucketMovies), itob(id), rec)
}

// rankedMovies reads rows in rank order through the index.
func rankedMovies(tx *bolt.Tx) ([]domain.MovieRecord, error) {
	movies := tx.Bucket(bucketMovies)
	index := tx.Bucket(bucketRankIndex)

	var out []domain.MovieRecord
	c := index.Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		var rec domain.MovieRecord
		ok, err := getJSON(movies, v, &rec)
		if err != nil {
			return nil, err
		}
		if !ok || !rec.IsRanked() {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func getPageKey(tx *bolt.Tx, movieID int64) (*domain.PageKey, error) {
	var key domain.PageKey
	ok, err := getJSON(tx.Bucket(bucketPageKeys), itob(movieID), &key)
	if err != nil || !ok {
		return nil, err
	}
	return &key, nil
}

func getMetadata(tx *bolt.Tx, key string) *int64 {
	v := tx.Bucket(bucketMetadata).Get([]byte(key))
	if v == nil {
		return nil
	}
	n := btoi(v)
	return &n
}
