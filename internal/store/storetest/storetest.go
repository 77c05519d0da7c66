// Package storetest holds the behavior every domain.LocalStore must share.
package storetest

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/crate/internal/domain"
)

// Opener returns a fresh, empty store. The store is closed by the suite.
type Opener func(t *testing.T) domain.LocalStore

// Album builds a catalog item with derived fields filled in.
func Album(id, title, artist, releaseDate string) domain.CatalogItem {
	return domain.CatalogItem{
		ID:            id,
		Title:         title,
		PrimaryArtist: artist,
		ReleaseDate:   releaseDate,
		Year:          domain.DeriveYear(releaseDate),
		Genre:         domain.DefaultGenre,
		ExternalID:    id,
		TrackCount:    10,
		CachedAt:      1000,
	}
}

// Rating returns a set rating or fails the test.
func Rating(t *testing.T, v float64) domain.Rating {
	t.Helper()
	r, err := domain.NewRating(v)
	require.NoError(t, err)
	return r
}

// Run executes the suite against stores produced by open.
func Run(t *testing.T, open Opener) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s domain.LocalStore)
	}{
		{"UpsertReplaces", testUpsertReplaces},
		{"AlbumNotFound", testAlbumNotFound},
		{"AlbumsOrder", testAlbumsOrder},
		{"AlbumsByIDs", testAlbumsByIDs},
		{"Search", testSearch},
		{"GenreAndYearFilters", testFilters},
		{"GenresAndYears", testGenresAndYears},
		{"FavoriteUpsertInPlace", testFavoriteUpsertInPlace},
		{"FavoriteRequiresAlbum", testFavoriteRequiresAlbum},
		{"FavoritesOrderedAndScoped", testFavoritesScoped},
		{"DeleteFavoriteAbsent", testDeleteFavoriteAbsent},
		{"DeleteFavoritesScopedToUser", testDeleteFavoritesScoped},
		{"CascadeDelete", testCascadeDelete},
		{"ClearAlbumsCascades", testClearAlbums},
		{"UpsertKeepsFavorites", testUpsertKeepsFavorites},
		{"SyncStateIndependent", testSyncState},
		{"ConcurrentFavoriteWrites", testConcurrentFavorites},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := open(t)
			t.Cleanup(func() { s.Close() })
			tt.fn(t, s)
		})
	}
}

func seed(t *testing.T, s domain.LocalStore, items ...domain.CatalogItem) {
	t.Helper()
	require.NoError(t, s.UpsertAlbums(items))
}

func ids(items []domain.CatalogItem) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.ID
	}
	return out
}

func testUpsertReplaces(t *testing.T, s domain.LocalStore) {
	seed(t, s, Album("a", "Old", "X", "2001-01-01"))

	replaced := Album("a", "New", "Y", "")
	replaced.CoverURL = ""
	seed(t, s, replaced)

	got, err := s.Album("a")
	require.NoError(t, err)
	assert.Equal(t, replaced, got)

	n, err := s.CountAlbums()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func testAlbumNotFound(t *testing.T, s domain.LocalStore) {
	_, err := s.Album("missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NotErrorIs(t, err, domain.ErrPersistence)
}

func testAlbumsOrder(t *testing.T, s domain.LocalStore) {
	a, b, c := Album("a", "A", "X", ""), Album("b", "B", "X", ""), Album("c", "C", "X", "")
	a.CachedAt, b.CachedAt, c.CachedAt = 100, 300, 100
	seed(t, s, a, b, c)

	items, err := s.Albums()
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "c"}, ids(items))
}

func testAlbumsByIDs(t *testing.T, s domain.LocalStore) {
	seed(t, s, Album("a", "A", "X", ""), Album("b", "B", "X", ""))

	items, err := s.AlbumsByIDs([]string{"b", "zz", "a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, ids(items))
}

func testSearch(t *testing.T, s domain.LocalStore) {
	seed(t, s,
		Album("1", "Discovery", "Daft Punk", "2001-03-12"),
		Album("2", "Homework", "Daft Punk", "1997-01-20"),
		Album("3", "Random Access Memories", "Daft Punk", "2013-05-17"),
		Album("4", "Cross", "Justice", "2007-06-11"),
		Album("5", "Ágætis byrjun", "SIGUR RÓS", "1999-06-12"),
	)

	items, err := s.SearchAlbums("DAFT")
	require.NoError(t, err)
	assert.Len(t, items, 3)

	items, err = s.SearchAlbums("cover")
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, ids(items))

	for _, q := range []string{"sigur rós", "ÁGÆTIS", "Ágætis Byrjun"} {
		items, err = s.SearchAlbums(q)
		require.NoError(t, err)
		assert.Equal(t, []string{"5"}, ids(items), "query %q", q)
	}

	items, err = s.SearchAlbums("  ")
	require.NoError(t, err)
	assert.Len(t, items, 5)

	items, err = s.SearchAlbums("nothing like this")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func testFilters(t *testing.T, s domain.LocalStore) {
	rock := Album("r", "Zeta", "X", "1990-01-01")
	rock.Genre = "Rock"
	seed(t, s,
		Album("1", "Beta", "X", "2001-01-01"),
		Album("2", "Alpha", "X", "2001-05-01"),
		Album("3", "Gamma", "X", "2010-01-01"),
		rock,
	)

	byGenre, err := s.AlbumsByGenre(domain.DefaultGenre)
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "2", "1"}, ids(byGenre))

	byYear, err := s.AlbumsByYear("2001")
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "1"}, ids(byYear))

	none, err := s.AlbumsByGenre("rock")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testGenresAndYears(t *testing.T, s domain.LocalStore) {
	jazz := Album("j", "J", "X", "1959-08-17")
	jazz.Genre = "Jazz"
	seed(t, s, Album("1", "A", "X", "2001-01-01"), Album("2", "B", "X", "bad"), Album("3", "C", "X", "2001"), jazz)

	genres, err := s.Genres()
	require.NoError(t, err)
	assert.Equal(t, []string{domain.DefaultGenre, "Jazz"}, genres)

	years, err := s.Years()
	require.NoError(t, err)
	assert.Equal(t, []string{"2001", "1959"}, years)
}

func testFavoriteUpsertInPlace(t *testing.T, s domain.LocalStore) {
	seed(t, s, Album("a", "A", "X", ""))

	first := &domain.FavoriteRecord{AlbumID: "a", UserID: "u1", Comment: "x", Rating: Rating(t, 4), AddedAt: 10}
	require.NoError(t, s.SaveFavorite(first))
	assert.NotZero(t, first.RecordID)

	second := &domain.FavoriteRecord{AlbumID: "a", UserID: "u1", Comment: "y", Rating: Rating(t, 2.5), AddedAt: 20}
	require.NoError(t, s.SaveFavorite(second))
	assert.Equal(t, first.RecordID, second.RecordID)

	got, err := s.Favorite("u1", "a")
	require.NoError(t, err)
	assert.Equal(t, "y", got.Comment)
	assert.Equal(t, Rating(t, 2.5), got.Rating)
	assert.Equal(t, int64(20), got.AddedAt)
	assert.True(t, got.IsFavorite)

	n, err := s.CountFavorites("u1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func testFavoriteRequiresAlbum(t *testing.T, s domain.LocalStore) {
	err := s.SaveFavorite(&domain.FavoriteRecord{AlbumID: "ghost", UserID: "u1", Rating: Rating(t, 1)})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = s.Favorite("u1", "ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func testFavoritesScoped(t *testing.T, s domain.LocalStore) {
	seed(t, s, Album("a", "A", "X", ""), Album("b", "B", "X", ""), Album("c", "C", "X", ""))
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.SaveFavorite(&domain.FavoriteRecord{AlbumID: id, UserID: "u1", Rating: Rating(t, 3), AddedAt: int64(i)}))
	}
	require.NoError(t, s.SaveFavorite(&domain.FavoriteRecord{AlbumID: "a", UserID: "u2", Rating: Rating(t, 1), AddedAt: 99}))

	recs, err := s.Favorites("u1")
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "c", recs[0].AlbumID)
	assert.Equal(t, "a", recs[2].AlbumID)

	albums, err := s.FavoriteAlbums("u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, ids(albums))

	other, err := s.Favorites("u2")
	require.NoError(t, err)
	assert.Len(t, other, 1)

	empty, err := s.Favorites("nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func testDeleteFavoriteAbsent(t *testing.T, s domain.LocalStore) {
	assert.NoError(t, s.DeleteFavorite("u1", "never"))

	seed(t, s, Album("a", "A", "X", ""))
	require.NoError(t, s.SaveFavorite(&domain.FavoriteRecord{AlbumID: "a", UserID: "u1", Rating: Rating(t, 3)}))
	require.NoError(t, s.DeleteFavorite("u1", "a"))

	_, err := s.Favorite("u1", "a")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func testDeleteFavoritesScoped(t *testing.T, s domain.LocalStore) {
	seed(t, s, Album("a", "A", "X", ""), Album("b", "B", "X", ""))
	for _, user := range []string{"u1", "u2"} {
		for _, id := range []string{"a", "b"} {
			require.NoError(t, s.SaveFavorite(&domain.FavoriteRecord{AlbumID: id, UserID: user, Rating: Rating(t, 3)}))
		}
	}

	require.NoError(t, s.DeleteFavorites("u1"))
	require.NoError(t, s.DeleteFavorites("nobody"))

	n, err := s.CountFavorites("u1")
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = s.CountFavorites("u2")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func testCascadeDelete(t *testing.T, s domain.LocalStore) {
	seed(t, s, Album("a", "A", "X", ""), Album("b", "B", "X", ""))
	for _, user := range []string{"u1", "u2"} {
		require.NoError(t, s.SaveFavorite(&domain.FavoriteRecord{AlbumID: "a", UserID: user, Rating: Rating(t, 3)}))
	}
	require.NoError(t, s.SaveFavorite(&domain.FavoriteRecord{AlbumID: "b", UserID: "u1", Rating: Rating(t, 3)}))

	require.NoError(t, s.DeleteAlbum("a"))

	for _, user := range []string{"u1", "u2"} {
		_, err := s.Favorite(user, "a")
		assert.ErrorIs(t, err, domain.ErrNotFound, "user %s", user)
	}
	_, err := s.Favorite("u1", "b")
	assert.NoError(t, err)

	assert.NoError(t, s.DeleteAlbum("a"))
}

func testClearAlbums(t *testing.T, s domain.LocalStore) {
	seed(t, s, Album("a", "A", "X", ""))
	require.NoError(t, s.SaveFavorite(&domain.FavoriteRecord{AlbumID: "a", UserID: "u1", Rating: Rating(t, 3)}))
	require.NoError(t, s.SaveSyncState(domain.SyncState{LastSyncAt: 42}))

	require.NoError(t, s.ClearAlbums())

	n, err := s.CountAlbums()
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = s.CountFavorites("u1")
	require.NoError(t, err)
	assert.Zero(t, n)

	state, err := s.SyncState()
	require.NoError(t, err)
	assert.Equal(t, int64(42), state.LastSyncAt)
}

func testUpsertKeepsFavorites(t *testing.T, s domain.LocalStore) {
	seed(t, s, Album("a", "A", "X", ""))
	require.NoError(t, s.SaveFavorite(&domain.FavoriteRecord{AlbumID: "a", UserID: "u1", Rating: Rating(t, 3)}))

	seed(t, s, Album("a", "A (Remastered)", "X", ""))

	_, err := s.Favorite("u1", "a")
	assert.NoError(t, err)
}

func testSyncState(t *testing.T, s domain.LocalStore) {
	state, err := s.SyncState()
	require.NoError(t, err)
	assert.Zero(t, state.LastSyncAt)

	require.NoError(t, s.SaveSyncState(domain.SyncState{LastSyncAt: 1234}))
	seed(t, s, Album("a", "A", "X", ""))

	state, err = s.SyncState()
	require.NoError(t, err)
	assert.Equal(t, int64(1234), state.LastSyncAt)
}

func testConcurrentFavorites(t *testing.T, s domain.LocalStore) {
	const n = 8
	items := make([]domain.CatalogItem, n)
	for i := range items {
		items[i] = Album(fmt.Sprintf("a%d", i), "T", "X", "")
	}
	seed(t, s, items...)
	rating := Rating(t, 3)

	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := &domain.FavoriteRecord{AlbumID: items[i].ID, UserID: "u1", Rating: rating, AddedAt: int64(i)}
			assert.NoError(t, s.SaveFavorite(rec))
		}()
	}
	wg.Wait()

	count, err := s.CountFavorites("u1")
	require.NoError(t, err)
	assert.Equal(t, n, count)
}
