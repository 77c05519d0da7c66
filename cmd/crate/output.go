package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/term"

	"github.com/mmcdole/crate/internal/domain"
)

var stdout io.Writer = os.Stdout

// useJSON reports whether output should be JSON: when asked for, or when
// stdout is not a terminal.
func useJSON() bool {
	return jsonOutput || !term.IsTerminal(int(os.Stdout.Fd()))
}

// await drains a resource stream and returns the last Success. A Failure
// after a Success still wins, since it is the final word on the request.
func await[T any](ch <-chan domain.Resource[T]) (T, error) {
	var (
		data T
		err  error
		got  bool
	)
	for r := range ch {
		switch r := r.(type) {
		case domain.Loading[T]:
			if !useJSON() {
				fmt.Fprint(os.Stderr, "loading...\r")
			}
		case domain.Success[T]:
			data, err, got = r.Data, nil, true
		case domain.Failure[T]:
			err = failureError(r)
		}
	}
	if !useJSON() {
		fmt.Fprint(os.Stderr, "          \r")
	}
	if err == nil && !got {
		err = errors.New("request superseded")
	}
	return data, err
}

func failureError[T any](f domain.Failure[T]) error {
	if f.Err != nil {
		return fmt.Errorf("%s: %w", f.Message, f.Err)
	}
	return errors.New(f.Message)
}

func printJSON(v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printAlbums(items []domain.CatalogItem) error {
	if useJSON() {
		if items == nil {
			items = []domain.CatalogItem{}
		}
		return printJSON(items)
	}
	if len(items) == 0 {
		fmt.Fprintln(stdout, "No albums.")
		return nil
	}

	w := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tARTIST\tYEAR\tGENRE\tTRACKS\tCACHED")
	for _, item := range items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			item.ID, item.Title, item.PrimaryArtist, item.Year, item.Genre,
			item.TrackCount, cachedAgo(item.CachedAt))
	}
	return w.Flush()
}

func printAlbum(item domain.CatalogItem) error {
	if useJSON() {
		return printJSON(item)
	}
	w := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "ID:\t%s\n", item.ID)
	fmt.Fprintf(w, "Title:\t%s\n", item.Title)
	fmt.Fprintf(w, "Artist:\t%s\n", item.PrimaryArtist)
	fmt.Fprintf(w, "Released:\t%s (%s)\n", item.ReleaseDate, item.Year)
	fmt.Fprintf(w, "Genre:\t%s\n", item.Genre)
	fmt.Fprintf(w, "Type:\t%s\n", item.AlbumType)
	fmt.Fprintf(w, "Tracks:\t%d\n", item.TrackCount)
	fmt.Fprintf(w, "Cover:\t%s\n", item.CoverURL)
	fmt.Fprintf(w, "Cached:\t%s\n", cachedAgo(item.CachedAt))
	return w.Flush()
}

func printFavorites(recs []domain.FavoriteRecord) error {
	if useJSON() {
		if recs == nil {
			recs = []domain.FavoriteRecord{}
		}
		return printJSON(recs)
	}
	if len(recs) == 0 {
		fmt.Fprintln(stdout, "No favorites.")
		return nil
	}

	w := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ALBUM\tRATING\tADDED\tCOMMENT")
	for _, rec := range recs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			rec.AlbumID, rec.Rating, humanize.Time(time.UnixMilli(rec.AddedAt)), rec.Comment)
	}
	return w.Flush()
}

func printStrings(values []string) error {
	if useJSON() {
		if values == nil {
			values = []string{}
		}
		return printJSON(values)
	}
	for _, v := range values {
		fmt.Fprintln(stdout, v)
	}
	return nil
}

func cachedAgo(ms int64) string {
	if ms == 0 {
		return "never"
	}
	return humanize.Time(time.UnixMilli(ms))
}

func lastSyncText(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return fmt.Sprintf("%s (%s)", humanize.Time(t), t.Local().Format(time.DateTime))
}

func lastSyncJSON(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
