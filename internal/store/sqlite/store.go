// Package sqlite implements the local store on SQLite.
package sqlite

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	msqlite "modernc.org/sqlite"

	"github.com/mmcdole/crate/internal/domain"
)

// DBFile is the database file name used by callers that pick a directory.
const DBFile = "crate.sqlite"

// unicode_lower lowercases text with Go's Unicode tables. SQLite's lower()
// only folds ASCII letters.
func init() {
	msqlite.MustRegisterDeterministicScalarFunction("unicode_lower", 1,
		func(_ *msqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			switch v := args[0].(type) {
			case string:
				return strings.ToLower(v), nil
			case []byte:
				return strings.ToLower(string(v)), nil
			default:
				return v, nil
			}
		})
}

// Store implements domain.LocalStore on a single SQLite connection.
type Store struct {
	db *sql.DB
}

var (
	_ domain.LocalStore = (*Store)(nil)
	_ domain.Flusher    = (*Store)(nil)
)

// Open opens or creates the database at path and applies migrations.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works best with a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Flush checkpoints the WAL into the main database file.
func (s *Store) Flush() error {
	_, err := s.db.Exec("PRAGMA wal_checkpoint(FULL)")
	return domain.PersistenceError("flush", err)
}

func (s *Store) migrate() error {
	version, err := s.schemaVersion()
	if err != nil {
		return err
	}
	if version >= currentSchemaVersion {
		return nil
	}

	return withTx(s.db, func(tx *sql.Tx) error {
		if version < 1 {
			if _, err := tx.Exec(schemaV1); err != nil {
				return fmt.Errorf("failed to apply schema v1: %w", err)
			}
			if _, err := tx.Exec(`INSERT INTO schema_version (version) VALUES (1)`); err != nil {
				return fmt.Errorf("failed to set schema version: %w", err)
			}
		}
		return nil
	})
}

func (s *Store) schemaVersion() (int, error) {
	var exists int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&exists)
	if err != nil || exists == 0 {
		return 0, err
	}

	var version sql.NullInt64
	if err := s.db.QueryRow(`SELECT MAX(version) FROM schema_version`).Scan(&version); err != nil {
		return 0, err
	}
	return int(version.Int64), nil
}

// withTx executes fn within a transaction.
// It handles Begin, Rollback on error, and Commit on success.
func withTx(db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	Query(query string, args ...any) (*sql.Rows, error)
}

func queryAlbums(q queryer, query string, args ...any) ([]domain.CatalogItem, error) {
	rows, err := q.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.CatalogItem
	for rows.Next() {
		var item domain.CatalogItem
		err := rows.Scan(&item.ID, &item.Title, &item.PrimaryArtist, &item.Year, &item.Genre,
			&item.CoverURL, &item.TrackCount, &item.ReleaseDate, &item.ExternalID,
			&item.AlbumType, &item.CachedAt)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func queryStrings(q queryer, query string, args ...any) ([]string, error) {
	rows, err := q.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
