package store

import (
	"fmt"
	"log/slog"

	bolt "go.etcd.io/bbolt"
)

var keySchemaVersion = []byte("version")

// migration is one additive schema step. Steps only create buckets or add
// optional fields; they never rewrite or drop existing rows.
type migration struct {
	version int64
	name    string
	apply   func(tx *bolt.Tx) error
}

var migrations = []migration{
	{1, "movies and favorites", createBuckets(bucketMovies, bucketRankIndex, bucketFavorites)},
	{2, "cache metadata", createBuckets(bucketMetadata)},
	{3, "page keys", createBuckets(bucketPageKeys)},
	// Movie records gain the optional detail_fetched_at field. Existing rows
	// decode with it unset, so there is nothing to rewrite.
	{4, "detail fetch timestamp", func(*bolt.Tx) error { return nil }},
}

// SchemaVersion is the version a freshly migrated database is at.
func SchemaVersion() int64 {
	return migrations[len(migrations)-1].version
}

func createBuckets(names ...[]byte) func(tx *bolt.Tx) error {
	return func(tx *bolt.Tx) error {
		for _, name := range names {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	}
}

// migrate brings db to the latest schema, one transaction per step.
func migrate(db *bolt.DB, logger *slog.Logger) error {
	current, err := readSchemaVersion(db)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		err := db.Update(func(tx *bolt.Tx) error {
			if err := m.apply(tx); err != nil {
				return err
			}
			b, err := tx.CreateBucketIfNotExists(bucketSchema)
			if err != nil {
				return err
			}
			return b.Put(keySchemaVersion, itob(m.version))
		})
		if err != nil {
			return fmt.Errorf("failed to apply migration %d (%s): %w", m.version, m.name, err)
		}
		logger.Debug("applied migration", "version", m.version, "name", m.name)
	}
	return nil
}

func readSchemaVersion(db *bolt.DB) (int64, error) {
	var version int64
	err := db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSchema)
		if b == nil {
			return nil
		}
		if v := b.Get(keySchemaVersion); v != nil {
			version = btoi(v)
		}
		return nil
	})
	return version, err
}
