package catalogapi

import (
	"strings"

	"github.com/mmcdole/crate/internal/domain"
)

// MapAlbums converts API albums to catalog items, skipping entries without an ID
func MapAlbums(dtos []AlbumDTO) []domain.CatalogItem {
	items := make([]domain.CatalogItem, 0, len(dtos))
	for _, d := range dtos {
		if d.ID == "" {
			continue
		}
		items = append(items, MapAlbum(d))
	}
	return items
}

// MapAlbum converts a single API album. CachedAt is left for the writer to stamp.
func MapAlbum(d AlbumDTO) domain.CatalogItem {
	item := domain.CatalogItem{
		ID:            d.ID,
		Title:         strings.TrimSpace(d.Name),
		PrimaryArtist: domain.UnknownArtist,
		Year:          domain.DeriveYear(d.ReleaseDate),
		Genre:         domain.DefaultGenre,
		TrackCount:    d.TotalTracks,
		ReleaseDate:   d.ReleaseDate,
		ExternalID:    d.ID,
		AlbumType:     d.AlbumType,
	}

	if len(d.Artists) > 0 && d.Artists[0].Name != "" {
		item.PrimaryArtist = d.Artists[0].Name
	}
	if len(d.Images) > 0 {
		item.CoverURL = d.Images[0].URL
	}
	if len(d.Genres) > 0 && d.Genres[0] != "" {
		item.Genre = d.Genres[0]
	}
	if item.TrackCount == 0 && d.Tracks != nil {
		item.TrackCount = d.Tracks.Total
	}
	if item.TrackCount < 0 {
		item.TrackCount = 0
	}
	return item
}
