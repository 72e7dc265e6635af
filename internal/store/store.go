package store

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mmcdole/popcorn/internal/domain"
	"github.com/mmcdole/popcorn/internal/stream"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	bucketSchema    = []byte("schema")
	bucketMovies    = []byte("movies")
	bucketRankIndex = []byte("movies_by_rank")
	bucketFavorites = []byte("favorites")
	bucketMetadata  = []byte("metadata")
	bucketPageKeys  = []byte("page_keys")
)

const dbFileName = "popcorn.db"

var _ domain.CatalogStore = (*CatalogStore)(nil)

// CatalogStore implements domain.CatalogStore using BoltDB.
// Every committed write bumps the change notifier so observers re-query.
type CatalogStore struct {
	db      *bolt.DB
	changes *stream.Notifier
	logger  *slog.Logger
}

// NewCatalogStore opens (or creates) the cache database. When serverURL is
// set the database lives in a per-server subdirectory so switching API hosts
// never mixes catalogs.
func NewCatalogStore(baseCacheDir, serverURL string, logger *slog.Logger) (*CatalogStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if baseCacheDir == "" {
		return nil, errors.New("cache directory is required")
	}

	dir := baseCacheDir
	if serverURL != "" {
		dir = filepath.Join(baseCacheDir, hashServerURL(serverURL))
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	return Open(filepath.Join(dir, dbFileName), logger)
}

// Open opens the database file at path and migrates it to the current schema.
func Open(path string, logger *slog.Logger) (*CatalogStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	if err := migrate(db, logger); err != nil {
		db.Close()
		return nil, err
	}

	return &CatalogStore{db: db, changes: stream.NewNotifier(), logger: logger}, nil
}

func hashServerURL(serverURL string) string {
	normalized := strings.TrimRight(strings.ToLower(serverURL), "/")
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:6])
}

func (s *CatalogStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database file path.
func (s *CatalogStore) Path() string {
	return s.db.Path()
}

// === Transactions ===

func (s *CatalogStore) InTx(ctx context.Context, fn func(tx domain.CatalogTx) error) error {
	return s.update(ctx, func(tx *bolt.Tx) error {
		return fn(&catalogTx{tx: tx})
	})
}

// update runs fn in a read-write transaction and notifies observers after commit.
// A cancelled ctx is checked before starting and again before commit.
func (s *CatalogStore) update(ctx context.Context, fn func(tx *bolt.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		if err := fn(tx); err != nil {
			return err
		}
		return ctx.Err()
	})
	if err != nil {
		return err
	}
	s.changes.Notify()
	return nil
}

func (s *CatalogStore) view(ctx context.Context, fn func(tx *bolt.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(fn)
}

// === Generic helpers ===

func itob(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

func btoi(b []byte) int64 {
	return int64(binary.BigEndian.Uint64(b))
}

func getJSON(b *bolt.Bucket, key []byte, dest interface{}) (bool, error) {
	v := b.Get(key)
	if v == nil {
		return false, nil
	}
	if err := json.Unmarshal(v, dest); err != nil {
		return false, fmt.Errorf("failed to decode record %x: %w", key, err)
	}
	return true, nil
}

func putJSON(b *bolt.Bucket, key []byte, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return b.Put(key, data)
}

// resetBucket drops and recreates a bucket inside tx.
func resetBucket(tx *bolt.Tx, name []byte) error {
	if err := tx.DeleteBucket(name); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
		return err
	}
	_, err := tx.CreateBucket(name)
	return err
}

// === Maintenance ===

// Clear wipes cached movies, ranks, page keys and metadata. Favorites survive.
func (s *CatalogStore) Clear(ctx context.Context) error {
	err := s.update(ctx, func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketMovies, bucketRankIndex, bucketPageKeys, bucketMetadata} {
			if err := resetBucket(tx, name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	s.logger.Info("cleared catalog cache")
	return nil
}
