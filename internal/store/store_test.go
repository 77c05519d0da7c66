package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/crate/internal/domain"
	"github.com/mmcdole/crate/internal/store/storetest"
)

func TestLocalStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) domain.LocalStore {
		s, err := Open(t.TempDir(), "")
		require.NoError(t, err)
		return s
	})
}

func TestLocalStore_DeferredFlush(t *testing.T) {
	storetest.Run(t, func(t *testing.T) domain.LocalStore {
		s, err := Open(t.TempDir(), "", WithDeferredFlush())
		require.NoError(t, err)
		return s
	})
}

func TestOpen_PerRemoteDirectory(t *testing.T) {
	dir := t.TempDir()

	a, err := Open(dir, "https://api.example.com/")
	require.NoError(t, err)
	defer a.Close()
	b, err := Open(dir, "https://other.example.com")
	require.NoError(t, err)
	defer b.Close()

	assert.NotEqual(t, a.Path(), b.Path())
	assert.Equal(t, hashRemoteURL("https://API.example.com"), hashRemoteURL("https://api.example.com/"))
}

func TestOpen_RequiresDirectory(t *testing.T) {
	_, err := Open("", "")
	assert.Error(t, err)
}

func TestReopenKeepsData(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir, "", WithDeferredFlush())
	require.NoError(t, err)
	require.NoError(t, s.UpsertAlbums([]domain.CatalogItem{storetest.Album("a", "A", "X", "2020")}))
	rec := &domain.FavoriteRecord{AlbumID: "a", UserID: "u1", Rating: storetest.Rating(t, 5)}
	require.NoError(t, s.SaveFavorite(rec))
	require.NoError(t, s.Flush())
	require.NoError(t, s.Close())

	s, err = Open(dir, "")
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Favorite("u1", "a")
	require.NoError(t, err)
	assert.Equal(t, rec.RecordID, got.RecordID)
}
