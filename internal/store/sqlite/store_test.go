package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/crate/internal/domain"
	"github.com/mmcdole/crate/internal/store/storetest"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), DBFile))
	require.NoError(t, err)
	return s
}

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) domain.LocalStore {
		return openTestStore(t)
	})
}

func TestMigrateIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", DBFile)

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.UpsertAlbums([]domain.CatalogItem{storetest.Album("a", "A", "X", "2020")}))
	require.NoError(t, s.Flush())
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	version, err := s.schemaVersion()
	require.NoError(t, err)
	assert.Equal(t, currentSchemaVersion, version)

	n, err := s.CountAlbums()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestUnratedFavoriteStoredAsNull(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()

	require.NoError(t, s.UpsertAlbums([]domain.CatalogItem{storetest.Album("a", "A", "X", "")}))
	require.NoError(t, s.SaveFavorite(&domain.FavoriteRecord{AlbumID: "a", UserID: "u1"}))

	var rating *float64
	require.NoError(t, s.db.QueryRow(`SELECT rating FROM favorites WHERE album_id = 'a'`).Scan(&rating))
	assert.Nil(t, rating)

	rec, err := s.Favorite("u1", "a")
	require.NoError(t, err)
	assert.False(t, rec.Rating.IsSet())
}
