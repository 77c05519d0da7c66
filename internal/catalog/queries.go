package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/mmcdole/crate/internal/domain"
	"github.com/mmcdole/crate/internal/task"
)

// Search, FilterByGenre, FilterByYear and Suggest read the local store only.
// Each kind has its own lane: a newer search discards an older search still in
// flight, but leaves a running genre filter alone.

// Search matches query case-insensitively against title and primary artist.
// A blank query returns the whole catalog.
func (c *Cache) Search(ctx context.Context, query string) <-chan domain.Resource[[]domain.CatalogItem] {
	return task.Latest(ctx, c.pool, &c.searches, "search", func(ctx context.Context, emit *task.Emitter[[]domain.CatalogItem]) {
		c.emitSearch(emit, query)
	})
}

// FilterByGenre returns albums of genre, newest year first.
func (c *Cache) FilterByGenre(ctx context.Context, genre string) <-chan domain.Resource[[]domain.CatalogItem] {
	return task.Latest(ctx, c.pool, &c.genres, "genre", func(ctx context.Context, emit *task.Emitter[[]domain.CatalogItem]) {
		items, err := c.store.AlbumsByGenre(genre)
		if err != nil {
			c.logger.Error("genre filter failed", "error", err, "genre", genre)
			emit.Fail(err)
			return
		}
		emit.Success(items)
	})
}

// FilterByYear returns albums released in year, ordered by title.
func (c *Cache) FilterByYear(ctx context.Context, year string) <-chan domain.Resource[[]domain.CatalogItem] {
	return task.Latest(ctx, c.pool, &c.years, "year", func(ctx context.Context, emit *task.Emitter[[]domain.CatalogItem]) {
		items, err := c.store.AlbumsByYear(year)
		if err != nil {
			c.logger.Error("year filter failed", "error", err, "year", year)
			emit.Fail(err)
			return
		}
		emit.Success(items)
	})
}

// Suggest returns up to limit albums for a query that may contain typos.
func (c *Cache) Suggest(ctx context.Context, query string, limit int) <-chan domain.Resource[[]domain.CatalogItem] {
	return task.Latest(ctx, c.pool, &c.suggests, "suggest", func(ctx context.Context, emit *task.Emitter[[]domain.CatalogItem]) {
		items, err := c.store.Albums()
		if err != nil {
			emit.Fail(err)
			return
		}
		emit.Success(suggest(items, query, limit))
	})
}

func (c *Cache) emitSearch(emit *task.Emitter[[]domain.CatalogItem], query string) {
	items, err := c.store.SearchAlbums(strings.TrimSpace(query))
	if err != nil {
		c.logger.Error("search failed", "error", err, "query", query)
		emit.Fail(err)
		return
	}
	emit.Success(rankMatches(items, query))
}

// Genres returns the distinct genres in the cache.
func (c *Cache) Genres() ([]string, error) {
	return c.store.Genres()
}

// Years returns the distinct known years, newest first.
func (c *Cache) Years() ([]string, error) {
	return c.store.Years()
}

// Stats summarizes the cache.
func (c *Cache) Stats() (domain.Stats, error) {
	albums, err := c.store.CountAlbums()
	if err != nil {
		return domain.Stats{}, err
	}

	var favs int
	if c.session != nil {
		if user := c.session.UserID(); user != "" {
			if favs, err = c.store.CountFavorites(user); err != nil {
				return domain.Stats{}, err
			}
		}
	}

	last, err := c.gate.LastSync()
	if err != nil {
		return domain.Stats{}, err
	}

	return domain.Stats{Albums: albums, Favorites: favs, LastSync: last}, nil
}

// Evict removes one album and its favorites.
func (c *Cache) Evict(id string) error {
	if err := c.store.DeleteAlbum(id); err != nil {
		return fmt.Errorf("evict %s: %w", id, err)
	}
	return nil
}

// Clear removes every album and, with them, every favorite. Sync state is
// kept; reset the gate to force the next Load to fetch.
func (c *Cache) Clear() error {
	if err := c.store.ClearAlbums(); err != nil {
		return err
	}
	c.logger.Info("catalog cleared")
	return nil
}
