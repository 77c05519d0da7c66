package catalogapi

import (
	"bytes"
	"encoding/json"
)

// AlbumDTO is an album as sent by the catalog API
type AlbumDTO struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	AlbumType   string         `json:"album_type,omitempty"`
	TotalTracks int            `json:"total_tracks"`
	ReleaseDate string         `json:"release_date,omitempty"`
	Images      []ImageDTO     `json:"images,omitempty"`
	Artists     []ArtistDTO    `json:"artists,omitempty"`
	Tracks      *TrackPageDTO  `json:"tracks,omitempty"`
	Genres      []string       `json:"genres,omitempty"`
	External    map[string]any `json:"external_urls,omitempty"`
}

// ImageDTO is a cover image
type ImageDTO struct {
	URL    string `json:"url"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// ArtistDTO is a credited artist
type ArtistDTO struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// TrackPageDTO is the embedded track listing of an album
type TrackPageDTO struct {
	Total int               `json:"total"`
	Items []json.RawMessage `json:"items,omitempty"`
}

// AlbumsResponse is returned by GET albums?ids= and GET search
type AlbumsResponse struct {
	Albums AlbumList `json:"albums"`
}

// NewReleasesResponse is returned by GET browse/new-releases
type NewReleasesResponse struct {
	Albums PagingDTO `json:"albums"`
}

// PagingDTO is a page of albums
type PagingDTO struct {
	Href   string     `json:"href,omitempty"`
	Items  []AlbumDTO `json:"items"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
	Total  int        `json:"total"`
}

// AlbumList decodes either a bare array of albums or a paging object.
// The mock catalog answers search with an array; the full API nests items.
type AlbumList []AlbumDTO

func (l *AlbumList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var page PagingDTO
		if err := json.Unmarshal(data, &page); err != nil {
			return err
		}
		*l = page.Items
		return nil
	}
	var items []AlbumDTO
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	*l = items
	return nil
}
