// Package catalog serves the album catalog cache-first and refreshes it from
// the remote source when the sync gate allows.
package catalog

import (
	"log/slog"
	"time"

	"github.com/mmcdole/crate/internal/domain"
	"github.com/mmcdole/crate/internal/freshness"
	"github.com/mmcdole/crate/internal/task"
)

const defaultPageSize = 10

// Store is the slice of the local store the cache reads and writes.
type Store interface {
	domain.CatalogStore
	CountFavorites(userID string) (int, error)
}

// Cache is the catalog's single entry point. Network operations live in
// commands.go, local-only reads in queries.go.
type Cache struct {
	remote domain.RemoteSource
	store  Store
	gate   *freshness.Gate
	conn   domain.Connectivity
	pool   *task.Pool

	// one lane per query kind; a newer request supersedes only its own kind
	searches task.Lane
	genres   task.Lane
	years    task.Lane
	suggests task.Lane

	session    domain.Session
	defaultIDs []string
	pageSize   int
	now        func() time.Time
	logger     *slog.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithDefaultIDs sets the album ids fetched by Load and ForceRefresh.
func WithDefaultIDs(ids []string) Option {
	return func(c *Cache) { c.defaultIDs = append([]string(nil), ids...) }
}

// WithPageSize sets the page size used by Backfill and LoadPaged(0, ...).
func WithPageSize(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithSession lets Stats count the active user's favorites.
func WithSession(s domain.Session) Option {
	return func(c *Cache) { c.session = s }
}

// WithClock replaces time.Now for CachedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Cache.
func New(
	remote domain.RemoteSource,
	store Store,
	gate *freshness.Gate,
	conn domain.Connectivity,
	pool *task.Pool,
	opts ...Option,
) *Cache {
	c := &Cache{
		remote:   remote,
		store:    store,
		gate:     gate,
		conn:     conn,
		pool:     pool,
		pageSize: defaultPageSize,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// uniqueByID drops repeated ids, keeping the first occurrence.
func uniqueByID(items []domain.CatalogItem) []domain.CatalogItem {
	seen := make(map[string]struct{}, len(items))
	out := items[:0:0]
	for _, item := range items {
		if _, ok := seen[item.ID]; ok {
			continue
		}
		seen[item.ID] = struct{}{}
		out = append(out, item)
	}
	return out
}
