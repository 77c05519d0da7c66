package domain

import "io"

// CatalogStore persists catalog items keyed by ID.
// Every method is synchronous and safe for concurrent callers.
type CatalogStore interface {
	// UpsertAlbums writes items in one transaction, replacing any stored
	// record with the same ID. Favorites of replaced items are kept.
	UpsertAlbums(items []CatalogItem) error

	// Album returns the item with id, or ErrNotFound
	Album(id string) (CatalogItem, error)

	// Albums returns all items, newest CachedAt first, ties by ID
	Albums() ([]CatalogItem, error)

	// AlbumsByIDs returns the stored items among ids, in ids order
	AlbumsByIDs(ids []string) ([]CatalogItem, error)

	// SearchAlbums matches query case-insensitively against title and
	// primary artist. A blank query returns every item.
	SearchAlbums(query string) ([]CatalogItem, error)

	// AlbumsByGenre returns exact genre matches ordered by year descending
	AlbumsByGenre(genre string) ([]CatalogItem, error)

	// AlbumsByYear returns exact year matches ordered by title ascending
	AlbumsByYear(year string) ([]CatalogItem, error)

	Genres() ([]string, error)
	Years() ([]string, error)
	CountAlbums() (int, error)

	// DeleteAlbum removes an item and every favorite referencing it
	DeleteAlbum(id string) error

	// ClearAlbums removes all items and, by cascade, all favorites
	ClearAlbums() error
}

// FavoriteStore persists favorite records, one per (albumID, userID).
type FavoriteStore interface {
	// Favorite returns the record for the pair, or ErrNotFound
	Favorite(userID, albumID string) (FavoriteRecord, error)

	// SaveFavorite inserts the record or replaces the content of the existing
	// record for the same pair. The stored RecordID is written back to rec.
	SaveFavorite(rec *FavoriteRecord) error

	// DeleteFavorite removes the pair; deleting an absent pair is not an error
	DeleteFavorite(userID, albumID string) error

	// Favorites returns the user's records, newest AddedAt first
	Favorites(userID string) ([]FavoriteRecord, error)

	// FavoriteAlbums returns the user's favorite items, newest AddedAt first
	FavoriteAlbums(userID string) ([]CatalogItem, error)

	CountFavorites(userID string) (int, error)

	// DeleteFavorites removes every record of userID and nobody else's
	DeleteFavorites(userID string) error
}

// SyncStateStore persists freshness bookkeeping apart from catalog rows.
type SyncStateStore interface {
	SyncState() (SyncState, error)
	SaveSyncState(state SyncState) error
}

// LocalStore is the complete local persistence port.
type LocalStore interface {
	CatalogStore
	FavoriteStore
	SyncStateStore
	io.Closer
}

// Flusher is implemented by stores that can force buffered writes to disk.
type Flusher interface {
	Flush() error
}
