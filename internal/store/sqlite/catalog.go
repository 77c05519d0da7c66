package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mmcdole/crate/internal/domain"
)

const albumColumns = `id, title, primary_artist, year, genre, cover_url, track_count,
	release_date, external_id, album_type, cached_at`

// UpsertAlbums overwrites rows in place with ON CONFLICT DO UPDATE.
// INSERT OR REPLACE would delete the old row and cascade to its favorites.
func (s *Store) UpsertAlbums(items []domain.CatalogItem) error {
	if len(items) == 0 {
		return nil
	}
	err := withTx(s.db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT INTO albums (` + albumColumns + `)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				title = excluded.title,
				primary_artist = excluded.primary_artist,
				year = excluded.year,
				genre = excluded.genre,
				cover_url = excluded.cover_url,
				track_count = excluded.track_count,
				release_date = excluded.release_date,
				external_id = excluded.external_id,
				album_type = excluded.album_type,
				cached_at = excluded.cached_at
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, item := range items {
			if item.ID == "" {
				return fmt.Errorf("album with empty id")
			}
			_, err := stmt.Exec(item.ID, item.Title, item.PrimaryArtist, item.Year, item.Genre,
				item.CoverURL, item.TrackCount, item.ReleaseDate, item.ExternalID,
				item.AlbumType, item.CachedAt)
			if err != nil {
				return err
			}
		}
		return nil
	})
	return domain.PersistenceError("upsert albums", err)
}

func (s *Store) Album(id string) (domain.CatalogItem, error) {
	items, err := queryAlbums(s.db, `SELECT `+albumColumns+` FROM albums WHERE id = ?`, id)
	if err != nil {
		return domain.CatalogItem{}, domain.PersistenceError("get album", err)
	}
	if len(items) == 0 {
		return domain.CatalogItem{}, fmt.Errorf("album %s: %w", id, domain.ErrNotFound)
	}
	return items[0], nil
}

func (s *Store) Albums() ([]domain.CatalogItem, error) {
	items, err := queryAlbums(s.db, `SELECT `+albumColumns+` FROM albums ORDER BY cached_at DESC, id ASC`)
	return items, domain.PersistenceError("list albums", err)
}

func (s *Store) AlbumsByIDs(ids []string) ([]domain.CatalogItem, error) {
	if len(ids) == 0 {
		return []domain.CatalogItem{}, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	rows, err := queryAlbums(s.db, `SELECT `+albumColumns+` FROM albums WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, domain.PersistenceError("get albums by ids", err)
	}

	byID := make(map[string]domain.CatalogItem, len(rows))
	for _, item := range rows {
		byID[item.ID] = item
	}
	items := make([]domain.CatalogItem, 0, len(rows))
	for _, id := range ids {
		if item, ok := byID[id]; ok {
			items = append(items, item)
			delete(byID, id)
		}
	}
	return items, nil
}

func (s *Store) SearchAlbums(query string) ([]domain.CatalogItem, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	items, err := queryAlbums(s.db, `
		SELECT `+albumColumns+` FROM albums
		WHERE ? = '' OR instr(unicode_lower(title), ?) > 0 OR instr(unicode_lower(primary_artist), ?) > 0
		ORDER BY cached_at DESC, id ASC
	`, q, q, q)
	return items, domain.PersistenceError("search albums", err)
}

func (s *Store) AlbumsByGenre(genre string) ([]domain.CatalogItem, error) {
	items, err := queryAlbums(s.db, `
		SELECT `+albumColumns+` FROM albums WHERE genre = ?
		ORDER BY year DESC, title ASC
	`, genre)
	return items, domain.PersistenceError("albums by genre", err)
}

func (s *Store) AlbumsByYear(year string) ([]domain.CatalogItem, error) {
	items, err := queryAlbums(s.db, `
		SELECT `+albumColumns+` FROM albums WHERE year = ?
		ORDER BY title ASC, id ASC
	`, year)
	return items, domain.PersistenceError("albums by year", err)
}

func (s *Store) Genres() ([]string, error) {
	genres, err := queryStrings(s.db, `SELECT DISTINCT genre FROM albums WHERE genre != '' ORDER BY genre`)
	return genres, domain.PersistenceError("list genres", err)
}

func (s *Store) Years() ([]string, error) {
	years, err := queryStrings(s.db, `SELECT DISTINCT year FROM albums WHERE year != ? ORDER BY year DESC`, domain.UnknownYear)
	return years, domain.PersistenceError("list years", err)
}

func (s *Store) CountAlbums() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM albums`).Scan(&n)
	return n, domain.PersistenceError("count albums", err)
}

// DeleteAlbum relies on the foreign key to remove favorites.
func (s *Store) DeleteAlbum(id string) error {
	_, err := s.db.Exec(`DELETE FROM albums WHERE id = ?`, id)
	return domain.PersistenceError("delete album", err)
}

func (s *Store) ClearAlbums() error {
	_, err := s.db.Exec(`DELETE FROM albums`)
	return domain.PersistenceError("clear albums", err)
}

// === Sync state ===

func (s *Store) SyncState() (domain.SyncState, error) {
	var state domain.SyncState
	err := s.db.QueryRow(`SELECT last_sync_at FROM sync_state WHERE id = 1`).Scan(&state.LastSyncAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.SyncState{}, nil
	}
	return state, domain.PersistenceError("get sync state", err)
}

func (s *Store) SaveSyncState(state domain.SyncState) error {
	_, err := s.db.Exec(`
		INSERT INTO sync_state (id, last_sync_at) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET last_sync_at = excluded.last_sync_at
	`, state.LastSyncAt)
	return domain.PersistenceError("save sync state", err)
}
