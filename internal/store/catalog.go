package store

import (
	"fmt"
	"slices"
	"strings"

	"github.com/mmcdole/crate/internal/domain"
	bolt "go.etcd.io/bbolt"
)

// === Albums ===

func (s *LocalStore) UpsertAlbums(items []domain.CatalogItem) error {
	if len(items) == 0 {
		return nil
	}
	return s.update("upsert albums", func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketAlbums)
		for _, item := range items {
			if item.ID == "" {
				return fmt.Errorf("album with empty id")
			}
			if err := put(b, []byte(item.ID), item); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *LocalStore) Album(id string) (domain.CatalogItem, error) {
	var item domain.CatalogItem
	var found bool
	err := s.view("get album", func(tx *bolt.Tx) error {
		var err error
		found, err = get(tx.Bucket(bucketAlbums), []byte(id), &item)
		return err
	})
	if err != nil {
		return domain.CatalogItem{}, err
	}
	if !found {
		return domain.CatalogItem{}, fmt.Errorf("album %s: %w", id, domain.ErrNotFound)
	}
	return item, nil
}

func (s *LocalStore) Albums() ([]domain.CatalogItem, error) {
	items, err := s.scanAlbums("list albums", nil)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(items, byCachedAtDesc)
	return items, nil
}

func (s *LocalStore) AlbumsByIDs(ids []string) ([]domain.CatalogItem, error) {
	items := make([]domain.CatalogItem, 0, len(ids))
	err := s.view("get albums by ids", func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketAlbums)
		for _, id := range ids {
			var item domain.CatalogItem
			found, err := get(b, []byte(id), &item)
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

func (s *LocalStore) SearchAlbums(query string) ([]domain.CatalogItem, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	items, err := s.scanAlbums("search albums", func(item domain.CatalogItem) bool {
		return q == "" ||
			strings.Contains(strings.ToLower(item.Title), q) ||
			strings.Contains(strings.ToLower(item.PrimaryArtist), q)
	})
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(items, byCachedAtDesc)
	return items, nil
}

func (s *LocalStore) AlbumsByGenre(genre string) ([]domain.CatalogItem, error) {
	items, err := s.scanAlbums("albums by genre", func(item domain.CatalogItem) bool {
		return item.Genre == genre
	})
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(items, func(a, b domain.CatalogItem) int {
		if c := strings.Compare(b.Year, a.Year); c != 0 {
			return c
		}
		return strings.Compare(a.Title, b.Title)
	})
	return items, nil
}

func (s *LocalStore) AlbumsByYear(year string) ([]domain.CatalogItem, error) {
	items, err := s.scanAlbums("albums by year", func(item domain.CatalogItem) bool {
		return item.Year == year
	})
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(items, func(a, b domain.CatalogItem) int {
		if c := strings.Compare(a.Title, b.Title); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return items, nil
}

func (s *LocalStore) Genres() ([]string, error) {
	items, err := s.scanAlbums("list genres", nil)
	if err != nil {
		return nil, err
	}
	genres := distinct(items, func(item domain.CatalogItem) string { return item.Genre })
	slices.Sort(genres)
	return genres, nil
}

func (s *LocalStore) Years() ([]string, error) {
	items, err := s.scanAlbums("list years", func(item domain.CatalogItem) bool {
		return item.Year != domain.UnknownYear
	})
	if err != nil {
		return nil, err
	}
	years := distinct(items, func(item domain.CatalogItem) string { return item.Year })
	slices.Sort(years)
	slices.Reverse(years)
	return years, nil
}

func (s *LocalStore) CountAlbums() (int, error) {
	var n int
	err := s.view("count albums", func(tx *bolt.Tx) error {
		n = tx.Bucket(bucketAlbums).Stats().KeyN
		return nil
	})
	return n, err
}

// === Cascade deletion ===

// DeleteAlbum removes the album and, via the favorites index, every user's
// favorite for it.
func (s *LocalStore) DeleteAlbum(id string) error {
	return s.update("delete album", func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketAlbums).Delete([]byte(id)); err != nil {
			return err
		}
		return cascadeFavorites(tx, id)
	})
}

func (s *LocalStore) ClearAlbums() error {
	return s.update("clear albums", func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketAlbums, bucketFavorites, bucketFavoritesIndex} {
			if err := resetBucket(tx, name); err != nil {
				return err
			}
		}
		return nil
	})
}

func cascadeFavorites(tx *bolt.Tx, albumID string) error {
	index := tx.Bucket(bucketFavoritesIndex)
	users := index.Bucket([]byte(albumID))
	if users == nil {
		return nil
	}
	favorites := tx.Bucket(bucketFavorites)
	err := users.ForEach(func(userID, _ []byte) error {
		if ub := favorites.Bucket(userID); ub != nil {
			return ub.Delete([]byte(albumID))
		}
		return nil
	})
	if err != nil {
		return err
	}
	return index.DeleteBucket([]byte(albumID))
}

// scanAlbums decodes every album accepted by keep (nil keeps all).
func (s *LocalStore) scanAlbums(op string, keep func(domain.CatalogItem) bool) ([]domain.CatalogItem, error) {
	var items []domain.CatalogItem
	err := s.view(op, func(tx *bolt.Tx) error {
		return each(tx.Bucket(bucketAlbums), func(item domain.CatalogItem) error {
			if keep == nil || keep(item) {
				items = append(items, item)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func byCachedAtDesc(a, b domain.CatalogItem) int {
	switch {
	case a.CachedAt > b.CachedAt:
		return -1
	case a.CachedAt < b.CachedAt:
		return 1
	}
	return strings.Compare(a.ID, b.ID)
}

func distinct(items []domain.CatalogItem, key func(domain.CatalogItem) string) []string {
	seen := make(map[string]struct{}, len(items))
	out := []string{}
	for _, item := range items {
		k := key(item)
		if _, ok := seen[k]; ok || k == "" {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
