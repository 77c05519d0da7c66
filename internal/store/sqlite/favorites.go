package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/mmcdole/crate/internal/domain"
)

const favoriteColumns = `id, album_id, user_id, comment, rating, added_at`

func (s *Store) Favorite(userID, albumID string) (domain.FavoriteRecord, error) {
	recs, err := s.queryFavorites(`
		SELECT `+favoriteColumns+` FROM favorites WHERE user_id = ? AND album_id = ?
	`, userID, albumID)
	if err != nil {
		return domain.FavoriteRecord{}, domain.PersistenceError("get favorite", err)
	}
	if len(recs) == 0 {
		return domain.FavoriteRecord{}, fmt.Errorf("favorite %s/%s: %w", userID, albumID, domain.ErrNotFound)
	}
	return recs[0], nil
}

func (s *Store) SaveFavorite(rec *domain.FavoriteRecord) error {
	var rating sql.NullFloat64
	if v, ok := rec.Rating.Value(); ok {
		rating = sql.NullFloat64{Float64: v, Valid: true}
	}

	err := withTx(s.db, func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRow(`SELECT COUNT(*) FROM albums WHERE id = ?`, rec.AlbumID).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return fmt.Errorf("album %s: %w", rec.AlbumID, domain.ErrNotFound)
		}

		_, err := tx.Exec(`
			INSERT INTO favorites (album_id, user_id, comment, rating, added_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(album_id, user_id) DO UPDATE SET
				comment = excluded.comment,
				rating = excluded.rating,
				added_at = excluded.added_at
		`, rec.AlbumID, rec.UserID, rec.Comment, rating, rec.AddedAt)
		if err != nil {
			return err
		}

		return tx.QueryRow(`SELECT id FROM favorites WHERE album_id = ? AND user_id = ?`,
			rec.AlbumID, rec.UserID).Scan(&rec.RecordID)
	})
	if err != nil {
		return domain.PersistenceError("save favorite", err)
	}
	rec.IsFavorite = true
	return nil
}

func (s *Store) DeleteFavorite(userID, albumID string) error {
	_, err := s.db.Exec(`DELETE FROM favorites WHERE user_id = ? AND album_id = ?`, userID, albumID)
	return domain.PersistenceError("delete favorite", err)
}

func (s *Store) Favorites(userID string) ([]domain.FavoriteRecord, error) {
	recs, err := s.queryFavorites(`
		SELECT `+favoriteColumns+` FROM favorites WHERE user_id = ?
		ORDER BY added_at DESC, id DESC
	`, userID)
	return recs, domain.PersistenceError("list favorites", err)
}

func (s *Store) FavoriteAlbums(userID string) ([]domain.CatalogItem, error) {
	items, err := queryAlbums(s.db, `
		SELECT a.id, a.title, a.primary_artist, a.year, a.genre, a.cover_url, a.track_count,
			a.release_date, a.external_id, a.album_type, a.cached_at
		FROM albums a
		INNER JOIN favorites f ON a.id = f.album_id
		WHERE f.user_id = ?
		ORDER BY f.added_at DESC, f.id DESC
	`, userID)
	return items, domain.PersistenceError("list favorite albums", err)
}

func (s *Store) CountFavorites(userID string) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM favorites WHERE user_id = ?`, userID).Scan(&n)
	return n, domain.PersistenceError("count favorites", err)
}

func (s *Store) DeleteFavorites(userID string) error {
	_, err := s.db.Exec(`DELETE FROM favorites WHERE user_id = ?`, userID)
	return domain.PersistenceError("delete favorites", err)
}

func (s *Store) queryFavorites(query string, args ...any) ([]domain.FavoriteRecord, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []domain.FavoriteRecord
	for rows.Next() {
		var rec domain.FavoriteRecord
		var rating sql.NullFloat64
		if err := rows.Scan(&rec.RecordID, &rec.AlbumID, &rec.UserID, &rec.Comment, &rating, &rec.AddedAt); err != nil {
			return nil, err
		}
		if rating.Valid {
			r, err := domain.NewRating(rating.Float64)
			if err != nil {
				return nil, err
			}
			rec.Rating = r
		}
		rec.IsFavorite = true
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
