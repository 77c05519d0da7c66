// Package store implements the local store on BoltDB.
package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mmcdole/crate/internal/domain"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	bucketAlbums         = []byte("albums")             // id -> CatalogItem
	bucketFavorites      = []byte("favorites")          // userID/ -> albumID -> FavoriteRecord
	bucketFavoritesIndex = []byte("favorites_by_album") // albumID/ -> userID -> nil
	bucketSync           = []byte("sync")

	keySyncState = []byte("state")

	allBuckets = [][]byte{bucketAlbums, bucketFavorites, bucketFavoritesIndex, bucketSync}
)

// DBFile is the database file name inside the store directory.
const DBFile = "crate.db"

// LocalStore implements domain.LocalStore using BoltDB.
// Every mutation runs in one read-write transaction; when it returns the
// change is visible to all readers.
type LocalStore struct {
	db   *bolt.DB
	path string
}

var (
	_ domain.LocalStore = (*LocalStore)(nil)
	_ domain.Flusher    = (*LocalStore)(nil)
)

// Option configures Open.
type Option func(*bolt.Options, *LocalStore)

// WithDeferredFlush disables fsync on commit. Writes stay visible to readers
// immediately but reach disk only on Flush or Close.
func WithDeferredFlush() Option {
	return func(o *bolt.Options, _ *LocalStore) { o.NoSync = true }
}

// Open opens (or creates) the store under baseDir. A non-empty remoteURL
// selects a per-remote subdirectory so caches of different catalogs never mix.
func Open(baseDir, remoteURL string, opts ...Option) (*LocalStore, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("store directory is required")
	}

	dir := Dir(baseDir, remoteURL)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	s := &LocalStore{path: filepath.Join(dir, DBFile)}
	boltOpts := &bolt.Options{Timeout: 1 * time.Second}
	for _, opt := range opts {
		opt(boltOpts, s)
	}

	db, err := bolt.Open(s.path, 0600, boltOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	// Create buckets
	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	s.db = db
	return s, nil
}

// Dir returns the directory holding the cache for remoteURL under baseDir.
// A non-empty remoteURL gets its own hashed subdirectory.
func Dir(baseDir, remoteURL string) string {
	if remoteURL == "" {
		return baseDir
	}
	return filepath.Join(baseDir, hashRemoteURL(remoteURL))
}

func hashRemoteURL(remoteURL string) string {
	normalized := strings.TrimRight(strings.ToLower(remoteURL), "/")
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:6])
}

// Path returns the database file path.
func (s *LocalStore) Path() string { return s.path }

// Flush forces buffered pages to disk.
func (s *LocalStore) Flush() error {
	return domain.PersistenceError("flush", s.db.Sync())
}

func (s *LocalStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// === Generic helpers ===

func (s *LocalStore) view(op string, fn func(tx *bolt.Tx) error) error {
	return domain.PersistenceError(op, s.db.View(fn))
}

func (s *LocalStore) update(op string, fn func(tx *bolt.Tx) error) error {
	return domain.PersistenceError(op, s.db.Update(fn))
}

// get decodes the value at key into dest and reports whether it existed.
func get(b *bolt.Bucket, key []byte, dest any) (bool, error) {
	if b == nil {
		return false, nil
	}
	data := b.Get(key)
	if data == nil {
		return false, nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func put(b *bolt.Bucket, key []byte, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return b.Put(key, data)
}

// each decodes every value in b, skipping nested buckets.
func each[T any](b *bolt.Bucket, fn func(T) error) error {
	if b == nil {
		return nil
	}
	return b.ForEach(func(k, v []byte) error {
		if v == nil {
			return nil
		}
		var item T
		if err := json.Unmarshal(v, &item); err != nil {
			return fmt.Errorf("decode %s: %w", k, err)
		}
		return fn(item)
	})
}

// resetBucket drops and recreates a top-level bucket.
func resetBucket(tx *bolt.Tx, name []byte) error {
	if err := tx.DeleteBucket(name); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
		return err
	}
	_, err := tx.CreateBucket(name)
	return err
}
