package domain

import "context"

// RemoteSource is the remote catalog API.
// Transport failures and non-success statuses wrap ErrNetworkUnavailable.
type RemoteSource interface {
	// FetchByIDs returns the albums for ids in the order given
	FetchByIDs(ctx context.Context, ids []string) (CatalogPage, error)

	// FetchNewReleases returns one page of new releases
	FetchNewReleases(ctx context.Context, limit, offset int) (CatalogPage, error)

	// Search queries the remote catalog; kind is the result type, e.g. "album"
	Search(ctx context.Context, query, kind string, limit int) (CatalogPage, error)
}

// Connectivity reports whether the network is usable right now.
type Connectivity interface {
	Online(ctx context.Context) bool
}

// Session identifies the active user. An empty ID means nobody is signed in.
type Session interface {
	UserID() string
}

// ProgressFunc reports pagination progress: (10, 50), (20, 50), ...
type ProgressFunc func(loaded, total int)
