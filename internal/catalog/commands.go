package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/mmcdole/crate/internal/domain"
	"github.com/mmcdole/crate/internal/task"
)

var errNoAlbums = errors.New("no albums found")

// Load emits the cached catalog at once, then refreshes the default album
// set in the background when the sync gate says it is due. A failed refresh
// after a cache hit is logged and dropped.
func (c *Cache) Load(ctx context.Context) <-chan domain.Resource[[]domain.CatalogItem] {
	return task.Stream(ctx, c.pool, "load", func(ctx context.Context, emit *task.Emitter[[]domain.CatalogItem]) {
		cached, err := c.store.Albums()
		if err != nil {
			c.logger.Error("failed to read cached albums", "error", err)
			emit.Fail(err)
			return
		}
		if len(cached) > 0 {
			emit.Success(cached)
		}

		if !c.conn.Online(ctx) {
			if len(cached) == 0 {
				emit.Fail(domain.ErrNoData)
			}
			return
		}

		// An empty cache is refreshed regardless of the gate
		if len(cached) > 0 {
			due, err := c.gate.NeedsSync()
			if err != nil {
				c.logger.Warn("failed to check sync state", "error", err)
			}
			if !due {
				c.logger.Debug("cache fresh", "count", len(cached))
				return
			}
		}

		items, err := c.refresh(ctx)
		if err != nil {
			if len(cached) > 0 {
				c.logger.Warn("background refresh failed, keeping cache", "error", err, "count", len(cached))
				return
			}
			emit.Fail(err)
			return
		}
		emit.Success(items)
	})
}

// ForceRefresh fetches the default album set regardless of freshness.
// Offline, or when the fetch fails, it serves the cache instead.
func (c *Cache) ForceRefresh(ctx context.Context) <-chan domain.Resource[[]domain.CatalogItem] {
	return task.Stream(ctx, c.pool, "force-refresh", func(ctx context.Context, emit *task.Emitter[[]domain.CatalogItem]) {
		cached, err := c.store.Albums()
		if err != nil {
			c.logger.Error("failed to read cached albums", "error", err)
			emit.Fail(err)
			return
		}

		if !c.conn.Online(ctx) {
			c.logger.Debug("offline, serving cache", "count", len(cached))
			emit.Success(cached)
			return
		}

		items, err := c.refresh(ctx)
		if err != nil {
			c.serveFallback(emit, cached, err)
			return
		}
		emit.Success(items)
	})
}

// LoadPaged fetches one page of new releases, merges it into the store and
// emits the whole local catalog. A pageSize of 0 uses the configured size.
func (c *Cache) LoadPaged(ctx context.Context, pageSize, offset int) <-chan domain.Resource[[]domain.CatalogItem] {
	if pageSize <= 0 {
		pageSize = c.pageSize
	}
	if offset < 0 {
		offset = 0
	}
	name := fmt.Sprintf("load-page:%d", offset)
	return task.Stream(ctx, c.pool, name, func(ctx context.Context, emit *task.Emitter[[]domain.CatalogItem]) {
		if !c.conn.Online(ctx) {
			cached, err := c.store.Albums()
			if err != nil {
				emit.Fail(err)
				return
			}
			c.serveFallback(emit, cached, domain.ErrNoData)
			return
		}

		page, err := c.remote.FetchNewReleases(ctx, pageSize, offset)
		if err != nil {
			c.logger.Warn("failed to fetch page", "error", err, "offset", offset, "limit", pageSize)
			cached, readErr := c.store.Albums()
			if readErr != nil {
				emit.Fail(readErr)
				return
			}
			c.serveFallback(emit, cached, err)
			return
		}

		if err := c.save(page.Items); err != nil {
			emit.Fail(err)
			return
		}

		all, err := c.store.Albums()
		if err != nil {
			emit.Fail(err)
			return
		}
		c.logger.Debug("merged page", "offset", offset, "page", len(page.Items), "total", len(all))
		emit.Success(uniqueByID(all))
	})
}

// Album returns one album, fetching it when it is not cached.
// Missing locally and remotely yields a Failure wrapping domain.ErrNotFound.
func (c *Cache) Album(ctx context.Context, id string) <-chan domain.Resource[domain.CatalogItem] {
	return task.Stream(ctx, c.pool, "album:"+id, func(ctx context.Context, emit *task.Emitter[domain.CatalogItem]) {
		item, err := c.store.Album(id)
		if err == nil {
			emit.Success(item)
			return
		}
		if !errors.Is(err, domain.ErrNotFound) || !c.conn.Online(ctx) {
			emit.Fail(err)
			return
		}

		page, err := c.remote.FetchByIDs(ctx, []string{id})
		if err != nil {
			c.logger.Warn("failed to fetch album", "error", err, "albumID", id)
			emit.Fail(err)
			return
		}
		for _, fetched := range page.Items {
			if fetched.ID != id {
				continue
			}
			if err := c.save([]domain.CatalogItem{fetched}); err != nil {
				emit.Fail(err)
				return
			}
			item, err := c.store.Album(id)
			if err != nil {
				emit.Fail(err)
				return
			}
			emit.Success(item)
			return
		}
		emit.Fail(fmt.Errorf("album %s: %w", id, domain.ErrNotFound))
	})
}

// Discover searches the remote catalog, caches what it finds and emits the
// local matches.
func (c *Cache) Discover(ctx context.Context, query string, limit int) <-chan domain.Resource[[]domain.CatalogItem] {
	return task.Stream(ctx, c.pool, "discover", func(ctx context.Context, emit *task.Emitter[[]domain.CatalogItem]) {
		if c.conn.Online(ctx) {
			page, err := c.remote.Search(ctx, query, "album", limit)
			switch {
			case err != nil:
				c.logger.Warn("remote search failed, using cache", "error", err, "query", query)
			default:
				if err := c.save(page.Items); err != nil {
					emit.Fail(err)
					return
				}
			}
		}
		c.emitSearch(emit, query)
	})
}

// Backfill pages through all new releases, saving each page as it arrives,
// and emits the number of albums fetched.
func (c *Cache) Backfill(ctx context.Context, onProgress domain.ProgressFunc) <-chan domain.Resource[int] {
	return task.Stream(ctx, c.pool, "backfill", func(ctx context.Context, emit *task.Emitter[int]) {
		if !c.conn.Online(ctx) {
			emit.Fail(domain.ErrNetworkUnavailable)
			return
		}

		items, err := fetchAll(ctx, func(ctx context.Context, offset, limit int) ([]domain.CatalogItem, int, error) {
			page, err := c.remote.FetchNewReleases(ctx, limit, offset)
			if err != nil {
				return nil, 0, err
			}
			if err := c.save(page.Items); err != nil {
				return nil, 0, err
			}
			return page.Items, page.Total, nil
		}, c.pageSize, onProgress)
		if err != nil {
			c.logger.Error("backfill failed", "error", err)
			emit.Fail(err)
			return
		}

		if err := c.gate.RecordSuccess(); err != nil {
			c.logger.Warn("failed to record sync", "error", err)
		}
		emit.Success(len(items))
	})
}

// refresh fetches the default album set, upserts it and records the sync.
// The sync is recorded only after the upsert succeeded.
func (c *Cache) refresh(ctx context.Context) ([]domain.CatalogItem, error) {
	page, err := c.remote.FetchByIDs(ctx, c.defaultIDs)
	if err != nil {
		c.logger.Warn("failed to fetch albums", "error", err, "ids", len(c.defaultIDs))
		return nil, err
	}
	if len(page.Items) == 0 {
		return nil, errNoAlbums
	}

	if err := c.save(page.Items); err != nil {
		return nil, err
	}
	if err := c.gate.RecordSuccess(); err != nil {
		c.logger.Warn("failed to record sync", "error", err)
	}

	c.logger.Info("catalog refreshed", "count", len(page.Items))
	return c.store.Albums()
}

// save stamps CachedAt and upserts items.
func (c *Cache) save(items []domain.CatalogItem) error {
	if len(items) == 0 {
		return nil
	}
	ts := c.now().UnixMilli()
	stamped := make([]domain.CatalogItem, len(items))
	for i, item := range items {
		item.CachedAt = ts
		stamped[i] = item
	}
	if err := c.store.UpsertAlbums(stamped); err != nil {
		c.logger.Error("failed to save albums", "error", err, "count", len(items))
		return err
	}
	return nil
}

// serveFallback emits the cache when there is one, otherwise the error.
func (c *Cache) serveFallback(emit *task.Emitter[[]domain.CatalogItem], cached []domain.CatalogItem, err error) {
	if len(cached) > 0 {
		c.logger.Debug("serving cache after failure", "error", err, "count", len(cached))
		emit.Success(cached)
		return
	}
	emit.Fail(err)
}
