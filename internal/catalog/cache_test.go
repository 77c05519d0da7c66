package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/crate/internal/domain"
	"github.com/mmcdole/crate/internal/freshness"
	"github.com/mmcdole/crate/internal/store"
	"github.com/mmcdole/crate/internal/store/storetest"
	"github.com/mmcdole/crate/internal/task"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeRemote struct {
	mu       sync.Mutex
	albums   map[string]domain.CatalogItem
	releases []domain.CatalogItem
	err      error
	block    bool
	calls    atomic.Int32
}

func newFakeRemote(items ...domain.CatalogItem) *fakeRemote {
	r := &fakeRemote{albums: make(map[string]domain.CatalogItem)}
	for _, item := range items {
		r.albums[item.ID] = item
	}
	return r
}

func (r *fakeRemote) FetchByIDs(ctx context.Context, ids []string) (domain.CatalogPage, error) {
	r.calls.Add(1)
	r.mu.Lock()
	block, err := r.block, r.err
	r.mu.Unlock()
	if block {
		<-ctx.Done()
		return domain.CatalogPage{}, ctx.Err()
	}
	if err != nil {
		return domain.CatalogPage{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	var items []domain.CatalogItem
	for _, id := range ids {
		if item, ok := r.albums[id]; ok {
			items = append(items, item)
		}
	}
	if len(ids) == 1 && len(items) == 0 {
		return domain.CatalogPage{}, domain.ErrNotFound
	}
	return domain.CatalogPage{Items: items, Limit: len(ids), Total: len(items)}, nil
}

func (r *fakeRemote) FetchNewReleases(ctx context.Context, limit, offset int) (domain.CatalogPage, error) {
	r.calls.Add(1)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return domain.CatalogPage{}, r.err
	}
	end := min(offset+limit, len(r.releases))
	var items []domain.CatalogItem
	if offset < end {
		items = append(items, r.releases[offset:end]...)
	}
	return domain.CatalogPage{Items: items, Offset: offset, Limit: limit, Total: len(r.releases)}, nil
}

func (r *fakeRemote) Search(ctx context.Context, query, kind string, limit int) (domain.CatalogPage, error) {
	r.calls.Add(1)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return domain.CatalogPage{}, r.err
	}
	var items []domain.CatalogItem
	for _, item := range r.releases {
		if item.Title == query {
			items = append(items, item)
		}
	}
	return domain.CatalogPage{Items: items, Limit: limit, Total: len(items)}, nil
}

func (r *fakeRemote) setErr(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
}

type connectivity bool

func (c connectivity) Online(context.Context) bool { return bool(c) }

type session string

func (s session) UserID() string { return string(s) }

type fixture struct {
	cache  *Cache
	store  *store.LocalStore
	gate   *freshness.Gate
	pool   *task.Pool
	remote *fakeRemote
}

func newFixture(t *testing.T, remote *fakeRemote, online bool, opts ...Option) *fixture {
	t.Helper()
	s, err := store.Open(t.TempDir(), "http://catalog.test")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	pool := task.NewPool(4, 8, nil)
	t.Cleanup(pool.Close)

	clock := func() time.Time { return testNow }
	gate := freshness.New(s, 24*time.Hour, freshness.WithClock(clock))

	opts = append([]Option{WithDefaultIDs([]string{"a", "b", "c"}), WithClock(clock)}, opts...)
	return &fixture{
		cache:  New(remote, s, gate, connectivity(online), pool, opts...),
		store:  s,
		gate:   gate,
		pool:   pool,
		remote: remote,
	}
}

func (f *fixture) seed(t *testing.T, items ...domain.CatalogItem) {
	t.Helper()
	require.NoError(t, f.store.UpsertAlbums(items))
}

func collect[T any](t *testing.T, ch <-chan domain.Resource[T]) []domain.Resource[T] {
	t.Helper()
	var out []domain.Resource[T]
	timeout := time.After(5 * time.Second)
	for {
		select {
		case r, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, r)
		case <-timeout:
			t.Fatal("stream did not close")
			return out
		}
	}
}

func next[T any](t *testing.T, ch <-chan domain.Resource[T]) domain.Resource[T] {
	t.Helper()
	select {
	case r, ok := <-ch:
		require.True(t, ok, "stream closed early")
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("no state received")
		return nil
	}
}

func ids(t *testing.T, r domain.Resource[[]domain.CatalogItem]) []string {
	t.Helper()
	s, ok := r.(domain.Success[[]domain.CatalogItem])
	require.True(t, ok, "expected Success, got %T", r)
	out := make([]string, len(s.Data))
	for i, item := range s.Data {
		out[i] = item.ID
	}
	return out
}

func defaultAlbums() []domain.CatalogItem {
	return []domain.CatalogItem{
		storetest.Album("a", "Discovery", "Daft Punk", "2001-03-12"),
		storetest.Album("b", "Homework", "Daft Punk", "1997-01-20"),
		storetest.Album("c", "Random Access Memories", "Daft Punk", "2013-05-17"),
	}
}

func TestLoad_EmptyCacheOnline(t *testing.T) {
	f := newFixture(t, newFakeRemote(defaultAlbums()...), true)

	states := collect(t, f.cache.Load(context.Background()))
	require.Len(t, states, 2)
	assert.IsType(t, domain.Loading[[]domain.CatalogItem]{}, states[0])
	assert.Equal(t, []string{"a", "b", "c"}, ids(t, states[1]))

	last, err := f.gate.LastSync()
	require.NoError(t, err)
	assert.Equal(t, testNow.UnixMilli(), last.UnixMilli())

	item, err := f.store.Album("a")
	require.NoError(t, err)
	assert.Equal(t, testNow.UnixMilli(), item.CachedAt)
}

func TestLoad_EmptyCacheOffline(t *testing.T) {
	f := newFixture(t, newFakeRemote(defaultAlbums()...), false)

	states := collect(t, f.cache.Load(context.Background()))
	require.Len(t, states, 2)
	fail, ok := states[1].(domain.Failure[[]domain.CatalogItem])
	require.True(t, ok)
	assert.Equal(t, "No data available. Please connect to the internet.", fail.Message)
	assert.ErrorIs(t, fail.Err, domain.ErrNoData)
	assert.Zero(t, f.remote.calls.Load())
}

func TestLoad_CacheFirstWhileRemoteHangs(t *testing.T) {
	remote := newFakeRemote()
	remote.block = true
	f := newFixture(t, remote, true)
	f.seed(t, storetest.Album("x", "Cached", "Someone", "2020-01-01"))

	ctx, cancel := context.WithCancel(context.Background())
	ch := f.cache.Load(ctx)

	assert.IsType(t, domain.Loading[[]domain.CatalogItem]{}, next(t, ch))
	assert.Equal(t, []string{"x"}, ids(t, next(t, ch)))

	cancel()
	assert.Empty(t, collect(t, ch))
}

func TestLoad_FreshCacheSkipsRemote(t *testing.T) {
	f := newFixture(t, newFakeRemote(defaultAlbums()...), true)
	f.seed(t, storetest.Album("x", "Cached", "Someone", "2020-01-01"))
	require.NoError(t, f.gate.RecordSuccess())

	states := collect(t, f.cache.Load(context.Background()))
	require.Len(t, states, 2)
	assert.Equal(t, []string{"x"}, ids(t, states[1]))
	assert.Zero(t, f.remote.calls.Load())
}

func TestLoad_StaleCacheEmitsTwice(t *testing.T) {
	f := newFixture(t, newFakeRemote(defaultAlbums()...), true)
	f.seed(t, storetest.Album("x", "Cached", "Someone", "2020-01-01"))

	states := collect(t, f.cache.Load(context.Background()))
	require.Len(t, states, 3)
	assert.Equal(t, []string{"x"}, ids(t, states[1]))
	assert.Equal(t, []string{"a", "b", "c", "x"}, ids(t, states[2]))
}

func TestLoad_RefreshFailureAfterCacheIsSwallowed(t *testing.T) {
	remote := newFakeRemote()
	remote.setErr(domain.ErrNetworkUnavailable)
	f := newFixture(t, remote, true)
	f.seed(t, storetest.Album("x", "Cached", "Someone", "2020-01-01"))

	states := collect(t, f.cache.Load(context.Background()))
	require.Len(t, states, 2)
	assert.Equal(t, []string{"x"}, ids(t, states[1]))

	last, err := f.gate.LastSync()
	require.NoError(t, err)
	assert.True(t, last.IsZero())
}

func TestLoad_EmptyRemoteAnswerFails(t *testing.T) {
	f := newFixture(t, newFakeRemote(), true)

	states := collect(t, f.cache.Load(context.Background()))
	require.Len(t, states, 2)
	fail, ok := states[1].(domain.Failure[[]domain.CatalogItem])
	require.True(t, ok)
	assert.Equal(t, "no albums found", fail.Message)
}

func TestForceRefresh_OfflineServesCache(t *testing.T) {
	f := newFixture(t, newFakeRemote(defaultAlbums()...), false)
	for _, id := range []string{"1", "2", "3", "4", "5"} {
		f.seed(t, storetest.Album(id, "Album "+id, "Artist", "2020-01-01"))
	}

	states := collect(t, f.cache.ForceRefresh(context.Background()))
	require.Len(t, states, 2)
	assert.Len(t, ids(t, states[1]), 5)
	assert.Zero(t, f.remote.calls.Load())
}

func TestForceRefresh_IgnoresGate(t *testing.T) {
	f := newFixture(t, newFakeRemote(defaultAlbums()...), true)
	require.NoError(t, f.gate.RecordSuccess())

	states := collect(t, f.cache.ForceRefresh(context.Background()))
	require.Len(t, states, 2)
	assert.Equal(t, []string{"a", "b", "c"}, ids(t, states[1]))
}

func TestForceRefresh_Failure(t *testing.T) {
	t.Run("falls back to cache", func(t *testing.T) {
		remote := newFakeRemote()
		remote.setErr(domain.ErrNetworkUnavailable)
		f := newFixture(t, remote, true)
		f.seed(t, storetest.Album("x", "Cached", "Someone", "2020-01-01"))

		states := collect(t, f.cache.ForceRefresh(context.Background()))
		require.Len(t, states, 2)
		assert.Equal(t, []string{"x"}, ids(t, states[1]))
	})

	t.Run("fails without cache", func(t *testing.T) {
		remote := newFakeRemote()
		remote.setErr(domain.ErrNetworkUnavailable)
		f := newFixture(t, remote, true)

		states := collect(t, f.cache.ForceRefresh(context.Background()))
		require.Len(t, states, 2)
		fail, ok := states[1].(domain.Failure[[]domain.CatalogItem])
		require.True(t, ok)
		assert.ErrorIs(t, fail.Err, domain.ErrNetworkUnavailable)
	})
}

func TestLoadPaged_MergeIsIdempotent(t *testing.T) {
	remote := newFakeRemote()
	remote.releases = []domain.CatalogItem{
		storetest.Album("r1", "One", "A", "2024-01-01"),
		storetest.Album("r2", "Two", "B", "2024-01-02"),
		storetest.Album("r3", "Three", "C", "2024-01-03"),
	}
	f := newFixture(t, remote, true)
	ctx := context.Background()

	first := collect(t, f.cache.LoadPaged(ctx, 2, 0))
	again := collect(t, f.cache.LoadPaged(ctx, 2, 0))
	assert.Equal(t, ids(t, first[1]), ids(t, again[1]))
	assert.Len(t, ids(t, again[1]), 2)

	more := collect(t, f.cache.LoadPaged(ctx, 2, 2))
	assert.ElementsMatch(t, []string{"r1", "r2", "r3"}, ids(t, more[1]))

	n, err := f.store.CountAlbums()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestLoadPaged_OfflineWithoutCacheFails(t *testing.T) {
	f := newFixture(t, newFakeRemote(), false)

	states := collect(t, f.cache.LoadPaged(context.Background(), 0, 0))
	require.Len(t, states, 2)
	fail, ok := states[1].(domain.Failure[[]domain.CatalogItem])
	require.True(t, ok)
	assert.ErrorIs(t, fail.Err, domain.ErrNoData)
}

func TestAlbum(t *testing.T) {
	t.Run("cached", func(t *testing.T) {
		f := newFixture(t, newFakeRemote(), false)
		f.seed(t, storetest.Album("x", "Cached", "Someone", "2020-01-01"))

		states := collect(t, f.cache.Album(context.Background(), "x"))
		require.Len(t, states, 2)
		s, ok := states[1].(domain.Success[domain.CatalogItem])
		require.True(t, ok)
		assert.Equal(t, "Cached", s.Data.Title)
	})

	t.Run("fetched and cached", func(t *testing.T) {
		f := newFixture(t, newFakeRemote(defaultAlbums()...), true)

		states := collect(t, f.cache.Album(context.Background(), "b"))
		require.Len(t, states, 2)
		s, ok := states[1].(domain.Success[domain.CatalogItem])
		require.True(t, ok)
		assert.Equal(t, "Homework", s.Data.Title)

		_, err := f.store.Album("b")
		assert.NoError(t, err)
	})

	t.Run("missing everywhere", func(t *testing.T) {
		f := newFixture(t, newFakeRemote(), true)

		states := collect(t, f.cache.Album(context.Background(), "nope"))
		require.Len(t, states, 2)
		fail, ok := states[1].(domain.Failure[domain.CatalogItem])
		require.True(t, ok)
		assert.ErrorIs(t, fail.Err, domain.ErrNotFound)
		assert.Equal(t, "Album not found", fail.Message)
	})
}

func TestSearch_Ranking(t *testing.T) {
	f := newFixture(t, newFakeRemote(), false)
	f.seed(t,
		storetest.Album("1", "Around the World", "Daft Punk", "1997-01-01"),
		storetest.Album("2", "World", "Someone", "2000-01-01"),
		storetest.Album("3", "World Music", "Other", "2001-01-01"),
		storetest.Album("4", "Unrelated", "World Band", "2002-01-01"),
	)

	states := collect(t, f.cache.Search(context.Background(), "world"))
	require.Len(t, states, 2)
	assert.Equal(t, []string{"2", "3", "1", "4"}, ids(t, states[1]))
}

func TestSearch_BlankReturnsAll(t *testing.T) {
	f := newFixture(t, newFakeRemote(), false)
	f.seed(t, defaultAlbums()...)

	states := collect(t, f.cache.Search(context.Background(), "  "))
	require.Len(t, states, 2)
	assert.Len(t, ids(t, states[1]), 3)
}

func TestSearch_SupersededRequestIsDiscarded(t *testing.T) {
	s, err := store.Open(t.TempDir(), "http://catalog.test")
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.UpsertAlbums(defaultAlbums()))

	pool := task.NewPool(1, 4, nil)
	defer pool.Close()
	cache := New(newFakeRemote(), s, freshness.New(s, 0), connectivity(false), pool)

	// occupy the only worker so both searches queue
	started, release := make(chan struct{}), make(chan struct{})
	require.NoError(t, pool.Submit(context.Background(), task.Job{
		Name: "blocker",
		Run: func(context.Context) {
			close(started)
			<-release
		},
	}))
	<-started

	ctx := context.Background()
	stale := cache.Search(ctx, "Discovery")
	current := cache.Search(ctx, "Homework")
	close(release)

	staleStates := collect(t, stale)
	require.Len(t, staleStates, 1)
	assert.IsType(t, domain.Loading[[]domain.CatalogItem]{}, staleStates[0])

	currentStates := collect(t, current)
	require.Len(t, currentStates, 2)
	assert.Equal(t, []string{"b"}, ids(t, currentStates[1]))
}

func TestQueries_OtherKindsDoNotSupersede(t *testing.T) {
	s, err := store.Open(t.TempDir(), "http://catalog.test")
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.UpsertAlbums(defaultAlbums()))

	pool := task.NewPool(1, 4, nil)
	defer pool.Close()
	cache := New(newFakeRemote(), s, freshness.New(s, 0), connectivity(false), pool)

	started, release := make(chan struct{}), make(chan struct{})
	require.NoError(t, pool.Submit(context.Background(), task.Job{
		Name: "blocker",
		Run: func(context.Context) {
			close(started)
			<-release
		},
	}))
	<-started

	ctx := context.Background()
	search := cache.Search(ctx, "Homework")
	genre := cache.FilterByGenre(ctx, domain.DefaultGenre)
	year := cache.FilterByYear(ctx, "2001")
	close(release)

	searchStates := collect(t, search)
	require.Len(t, searchStates, 2)
	assert.Equal(t, []string{"b"}, ids(t, searchStates[1]))

	genreStates := collect(t, genre)
	require.Len(t, genreStates, 2)
	assert.Len(t, ids(t, genreStates[1]), 3)

	yearStates := collect(t, year)
	require.Len(t, yearStates, 2)
	assert.Equal(t, []string{"a"}, ids(t, yearStates[1]))
}

func TestFilters(t *testing.T) {
	f := newFixture(t, newFakeRemote(), false)
	f.seed(t, defaultAlbums()...)
	ctx := context.Background()

	genre := collect(t, f.cache.FilterByGenre(ctx, domain.DefaultGenre))
	assert.Equal(t, []string{"c", "a", "b"}, ids(t, genre[1]))

	year := collect(t, f.cache.FilterByYear(ctx, "2001"))
	assert.Equal(t, []string{"a"}, ids(t, year[1]))

	none := collect(t, f.cache.FilterByYear(ctx, "1850"))
	assert.Empty(t, ids(t, none[1]))
}

func TestSuggest(t *testing.T) {
	f := newFixture(t, newFakeRemote(), false)
	f.seed(t, defaultAlbums()...)
	ctx := context.Background()

	typo := collect(t, f.cache.Suggest(ctx, "Dicsovery", 5))
	require.Len(t, typo, 2)
	assert.Equal(t, "a", ids(t, typo[1])[0])

	byArtist := collect(t, f.cache.Suggest(ctx, "daft", 2))
	assert.Len(t, ids(t, byArtist[1]), 2)

	empty := collect(t, f.cache.Suggest(ctx, "", 5))
	assert.Empty(t, ids(t, empty[1]))
}

func TestDiscover(t *testing.T) {
	remote := newFakeRemote()
	remote.releases = []domain.CatalogItem{storetest.Album("d1", "Alive 2007", "Daft Punk", "2007-11-19")}
	f := newFixture(t, remote, true)

	states := collect(t, f.cache.Discover(context.Background(), "Alive 2007", 10))
	require.Len(t, states, 2)
	assert.Equal(t, []string{"d1"}, ids(t, states[1]))

	remote.setErr(domain.ErrNetworkUnavailable)
	states = collect(t, f.cache.Discover(context.Background(), "Alive", 10))
	assert.Equal(t, []string{"d1"}, ids(t, states[1]))
}

func TestBackfill(t *testing.T) {
	remote := newFakeRemote()
	for i := range 25 {
		id := string(rune('A' + i))
		remote.releases = append(remote.releases, storetest.Album(id, "Album "+id, "Artist", "2024-01-01"))
	}
	f := newFixture(t, remote, true, WithPageSize(10))

	var progress [][2]int
	var mu sync.Mutex
	states := collect(t, f.cache.Backfill(context.Background(), func(loaded, total int) {
		mu.Lock()
		progress = append(progress, [2]int{loaded, total})
		mu.Unlock()
	}))

	require.Len(t, states, 2)
	assert.Equal(t, domain.Success[int]{Data: 25}, states[1])
	assert.Equal(t, [][2]int{{10, 25}, {20, 25}, {25, 25}}, progress)

	n, err := f.store.CountAlbums()
	require.NoError(t, err)
	assert.Equal(t, 25, n)

	due, err := f.gate.NeedsSync()
	require.NoError(t, err)
	assert.False(t, due)
}

func TestBackfill_Offline(t *testing.T) {
	f := newFixture(t, newFakeRemote(), false)

	states := collect(t, f.cache.Backfill(context.Background(), nil))
	require.Len(t, states, 2)
	fail, ok := states[1].(domain.Failure[int])
	require.True(t, ok)
	assert.True(t, errors.Is(fail.Err, domain.ErrNetworkUnavailable))
}

func TestStatsAndClear(t *testing.T) {
	f := newFixture(t, newFakeRemote(), false, WithSession(session("u1")))
	f.seed(t, defaultAlbums()...)
	require.NoError(t, f.store.SaveFavorite(&domain.FavoriteRecord{
		AlbumID: "a", UserID: "u1", Rating: storetest.Rating(t, 4), AddedAt: 1, IsFavorite: true,
	}))
	require.NoError(t, f.gate.RecordSuccess())

	stats, err := f.cache.Stats()
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Albums)
	assert.Equal(t, 1, stats.Favorites)
	assert.Equal(t, testNow.UnixMilli(), stats.LastSync.UnixMilli())

	genres, err := f.cache.Genres()
	require.NoError(t, err)
	assert.Equal(t, []string{domain.DefaultGenre}, genres)

	years, err := f.cache.Years()
	require.NoError(t, err)
	assert.Equal(t, []string{"2013", "2001", "1997"}, years)

	require.NoError(t, f.cache.Evict("b"))
	require.NoError(t, f.cache.Clear())

	stats, err = f.cache.Stats()
	require.NoError(t, err)
	assert.Zero(t, stats.Albums)
	assert.Zero(t, stats.Favorites)
	assert.False(t, stats.LastSync.IsZero())
}
