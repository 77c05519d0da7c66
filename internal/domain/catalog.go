package domain

import "time"

const (
	// UnknownYear is stored when a release date has no usable year prefix
	UnknownYear = "Unknown"

	// DefaultGenre is assigned to every item; the catalog API carries no genre
	DefaultGenre = "Electronic"

	// UnknownArtist is used when the remote record lists no artists
	UnknownArtist = "Unknown Artist"
)

// CatalogItem represents an album as cached locally
type CatalogItem struct {
	ID            string // Stable external key (primary key)
	Title         string // Album name
	PrimaryArtist string // First credited artist
	Year          string // 4-digit year or UnknownYear
	Genre         string // Genre label, DefaultGenre when absent
	CoverURL      string // First cover image URL
	TrackCount    int    // Number of tracks (>= 0)
	ReleaseDate   string // Raw release date as sent by the API
	ExternalID    string // Identifier in the remote catalog
	AlbumType     string // "album", "single", "compilation"
	CachedAt      int64  // Epoch millis when written to the local store
}

// DeriveYear returns the first four characters of a release date when they
// form a year, otherwise UnknownYear.
func DeriveYear(releaseDate string) string {
	if len(releaseDate) < 4 {
		return UnknownYear
	}
	for _, r := range releaseDate[:4] {
		if r < '0' || r > '9' {
			return UnknownYear
		}
	}
	return releaseDate[:4]
}

// CatalogPage is one response from the remote catalog
type CatalogPage struct {
	Items  []CatalogItem
	Offset int
	Limit  int
	Total  int
}

// HasMore reports whether another page exists after this one.
func (p CatalogPage) HasMore() bool {
	return len(p.Items) > 0 && p.Offset+len(p.Items) < p.Total
}

// SyncState holds freshness bookkeeping, stored apart from catalog rows
type SyncState struct {
	LastSyncAt int64 // Epoch millis of the last successful sync, 0 = never
}

// LastSync returns LastSyncAt as a time, or the zero time if never synced.
func (s SyncState) LastSync() time.Time {
	if s.LastSyncAt == 0 {
		return time.Time{}
	}
	return time.UnixMilli(s.LastSyncAt)
}

// Stats summarizes the local cache for display
type Stats struct {
	Albums    int       `json:"albums"`
	Favorites int       `json:"favorites"`
	LastSync  time.Time `json:"lastSync"`
}
