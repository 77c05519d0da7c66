package store

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/mmcdole/crate/internal/domain"
	bolt "go.etcd.io/bbolt"
)

// === Favorites (nested buckets: favorites/{userID}/{albumID}) ===

func (s *LocalStore) Favorite(userID, albumID string) (domain.FavoriteRecord, error) {
	var rec domain.FavoriteRecord
	var found bool
	err := s.view("get favorite", func(tx *bolt.Tx) error {
		var err error
		found, err = get(userFavorites(tx, userID), []byte(albumID), &rec)
		return err
	})
	if err != nil {
		return domain.FavoriteRecord{}, err
	}
	if !found {
		return domain.FavoriteRecord{}, fmt.Errorf("favorite %s/%s: %w", userID, albumID, domain.ErrNotFound)
	}
	return rec, nil
}

// SaveFavorite inserts or replaces the record for (rec.AlbumID, rec.UserID).
// An existing record keeps its RecordID.
func (s *LocalStore) SaveFavorite(rec *domain.FavoriteRecord) error {
	return s.update("save favorite", func(tx *bolt.Tx) error {
		if tx.Bucket(bucketAlbums).Get([]byte(rec.AlbumID)) == nil {
			return fmt.Errorf("album %s: %w", rec.AlbumID, domain.ErrNotFound)
		}

		favorites := tx.Bucket(bucketFavorites)
		ub, err := favorites.CreateBucketIfNotExists([]byte(rec.UserID))
		if err != nil {
			return err
		}

		var existing domain.FavoriteRecord
		found, err := get(ub, []byte(rec.AlbumID), &existing)
		if err != nil {
			return err
		}
		if found {
			rec.RecordID = existing.RecordID
		} else {
			seq, err := favorites.NextSequence()
			if err != nil {
				return err
			}
			rec.RecordID = int64(seq)
		}
		rec.IsFavorite = true

		if err := put(ub, []byte(rec.AlbumID), rec); err != nil {
			return err
		}

		users, err := tx.Bucket(bucketFavoritesIndex).CreateBucketIfNotExists([]byte(rec.AlbumID))
		if err != nil {
			return err
		}
		return users.Put([]byte(rec.UserID), []byte{})
	})
}

func (s *LocalStore) DeleteFavorite(userID, albumID string) error {
	return s.update("delete favorite", func(tx *bolt.Tx) error {
		if ub := userFavorites(tx, userID); ub != nil {
			if err := ub.Delete([]byte(albumID)); err != nil {
				return err
			}
		}
		if users := tx.Bucket(bucketFavoritesIndex).Bucket([]byte(albumID)); users != nil {
			return users.Delete([]byte(userID))
		}
		return nil
	})
}

func (s *LocalStore) Favorites(userID string) ([]domain.FavoriteRecord, error) {
	var records []domain.FavoriteRecord
	err := s.view("list favorites", func(tx *bolt.Tx) error {
		return each(userFavorites(tx, userID), func(rec domain.FavoriteRecord) error {
			records = append(records, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(records, byAddedAtDesc)
	return records, nil
}

func (s *LocalStore) FavoriteAlbums(userID string) ([]domain.CatalogItem, error) {
	var items []domain.CatalogItem
	err := s.view("list favorite albums", func(tx *bolt.Tx) error {
		var records []domain.FavoriteRecord
		err := each(userFavorites(tx, userID), func(rec domain.FavoriteRecord) error {
			records = append(records, rec)
			return nil
		})
		if err != nil {
			return err
		}
		slices.SortFunc(records, byAddedAtDesc)

		albums := tx.Bucket(bucketAlbums)
		for _, rec := range records {
			var item domain.CatalogItem
			found, err := get(albums, []byte(rec.AlbumID), &item)
			if err != nil {
				return err
			}
			if found {
				items = append(items, item)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *LocalStore) CountFavorites(userID string) (int, error) {
	var n int
	err := s.view("count favorites", func(tx *bolt.Tx) error {
		ub := userFavorites(tx, userID)
		if ub == nil {
			return nil
		}
		return ub.ForEach(func(_, _ []byte) error {
			n++
			return nil
		})
	})
	return n, err
}

// DeleteFavorites drops the user's bucket and their index entries.
func (s *LocalStore) DeleteFavorites(userID string) error {
	return s.update("delete favorites", func(tx *bolt.Tx) error {
		favorites := tx.Bucket(bucketFavorites)
		ub := favorites.Bucket([]byte(userID))
		if ub == nil {
			return nil
		}
		index := tx.Bucket(bucketFavoritesIndex)
		err := ub.ForEach(func(albumID, _ []byte) error {
			if users := index.Bucket(albumID); users != nil {
				return users.Delete([]byte(userID))
			}
			return nil
		})
		if err != nil {
			return err
		}
		return favorites.DeleteBucket([]byte(userID))
	})
}

func userFavorites(tx *bolt.Tx, userID string) *bolt.Bucket {
	return tx.Bucket(bucketFavorites).Bucket([]byte(userID))
}

func byAddedAtDesc(a, b domain.FavoriteRecord) int {
	if c := cmp.Compare(b.AddedAt, a.AddedAt); c != 0 {
		return c
	}
	return cmp.Compare(b.RecordID, a.RecordID)
}

// === Sync state ===

func (s *LocalStore) SyncState() (domain.SyncState, error) {
	var state domain.SyncState
	err := s.view("get sync state", func(tx *bolt.Tx) error {
		_, err := get(tx.Bucket(bucketSync), keySyncState, &state)
		return err
	})
	return state, err
}

func (s *LocalStore) SaveSyncState(state domain.SyncState) error {
	return s.update("save sync state", func(tx *bolt.Tx) error {
		return put(tx.Bucket(bucketSync), keySyncState, state)
	})
}
