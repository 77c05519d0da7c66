package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	pageSize    int
	pageOffset  int
	resultLimit int
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Show the catalog, refreshing it when the last sync is stale",
	Args:  cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
		items, err := await(a.cache.Load(ctx))
		if err != nil {
			return err
		}
		return printAlbums(items)
	}),
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Fetch the default albums now, ignoring the sync interval",
	Args:  cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
		items, err := await(a.cache.ForceRefresh(ctx))
		if err != nil {
			return err
		}
		return printAlbums(items)
	}),
}

var pageCmd = &cobra.Command{
	Use:   "page",
	Short: "Fetch one page of new releases and show the merged catalog",
	Args:  cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
		items, err := await(a.cache.LoadPaged(ctx, pageSize, pageOffset))
		if err != nil {
			return err
		}
		return printAlbums(items)
	}),
}

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search cached albums by title or artist",
	Args:  cobra.ArbitraryArgs,
	RunE: withApp(func(ctx context.Context, a *app, args []string) error {
		items, err := await(a.cache.Search(ctx, strings.Join(args, " ")))
		if err != nil {
			return err
		}
		return printAlbums(items)
	}),
}

var suggestCmd = &cobra.Command{
	Use:   "suggest <query>",
	Short: "Find cached albums by a possibly misspelled query",
	Args:  cobra.MinimumNArgs(1),
	RunE: withApp(func(ctx context.Context, a *app, args []string) error {
		items, err := await(a.cache.Suggest(ctx, strings.Join(args, " "), resultLimit))
		if err != nil {
			return err
		}
		return printAlbums(items)
	}),
}

var discoverCmd = &cobra.Command{
	Use:   "discover <query>",
	Short: "Search the remote catalog and cache the results",
	Args:  cobra.MinimumNArgs(1),
	RunE: withApp(func(ctx context.Context, a *app, args []string) error {
		items, err := await(a.cache.Discover(ctx, strings.Join(args, " "), resultLimit))
		if err != nil {
			return err
		}
		return printAlbums(items)
	}),
}

var genreCmd = &cobra.Command{
	Use:   "genre [name]",
	Short: "List genres, or albums of one genre",
	Args:  cobra.MaximumNArgs(1),
	RunE: withApp(func(ctx context.Context, a *app, args []string) error {
		if len(args) == 0 {
			genres, err := a.cache.Genres()
			if err != nil {
				return err
			}
			return printStrings(genres)
		}
		items, err := await(a.cache.FilterByGenre(ctx, args[0]))
		if err != nil {
			return err
		}
		return printAlbums(items)
	}),
}

var yearCmd = &cobra.Command{
	Use:   "year [yyyy]",
	Short: "List release years, or albums of one year",
	Args:  cobra.MaximumNArgs(1),
	RunE: withApp(func(ctx context.Context, a *app, args []string) error {
		if len(args) == 0 {
			years, err := a.cache.Years()
			if err != nil {
				return err
			}
			return printStrings(years)
		}
		items, err := await(a.cache.FilterByYear(ctx, args[0]))
		if err != nil {
			return err
		}
		return printAlbums(items)
	}),
}

var albumCmd = &cobra.Command{
	Use:   "album <id>",
	Short: "Show one album, fetching it if it is not cached",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, a *app, args []string) error {
		item, err := await(a.cache.Album(ctx, args[0]))
		if err != nil {
			return err
		}
		return printAlbum(item)
	}),
}

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Page through all new releases into the cache",
	Args:  cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
		n, err := await(a.cache.Backfill(ctx, func(loaded, total int) {
			if !useJSON() {
				fmt.Fprintf(os.Stderr, "\rfetched %d of %d", loaded, total)
			}
		}))
		if !useJSON() {
			fmt.Fprintln(os.Stderr)
		}
		if err != nil {
			return err
		}
		if useJSON() {
			return printJSON(map[string]int{"fetched": n})
		}
		fmt.Fprintf(stdout, "Fetched %s albums.\n", humanize.Comma(int64(n)))
		return nil
	}),
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the local cache",
	Args:  cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
		stats, err := a.cache.Stats()
		if err != nil {
			return err
		}
		if useJSON() {
			return printJSON(stats)
		}
		fmt.Fprintf(stdout, "Albums:     %s\n", humanize.Comma(int64(stats.Albums)))
		fmt.Fprintf(stdout, "Favorites:  %s\n", humanize.Comma(int64(stats.Favorites)))
		fmt.Fprintf(stdout, "Last sync:  %s\n", lastSyncText(stats.LastSync))
		fmt.Fprintf(stdout, "Store:      %s (%s)\n", a.cfg.Storage.Dir, a.cfg.Storage.Driver)
		return nil
	}),
}

var evictCmd = &cobra.Command{
	Use:   "evict <id>...",
	Short: "Remove albums, and their favorites, from the cache",
	Args:  cobra.MinimumNArgs(1),
	RunE: withApp(func(ctx context.Context, a *app, args []string) error {
		for _, id := range args {
			if err := a.cache.Evict(id); err != nil {
				return err
			}
		}
		return nil
	}),
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached album and favorite",
	Args:  cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
		return a.cache.Clear()
	}),
}

func init() {
	pageCmd.Flags().IntVar(&pageSize, "limit", 0, "page size (default sync.page_size)")
	pageCmd.Flags().IntVar(&pageOffset, "offset", 0, "offset of the first release")
	suggestCmd.Flags().IntVarP(&resultLimit, "limit", "n", 10, "maximum results")
	discoverCmd.Flags().IntVarP(&resultLimit, "limit", "n", 10, "maximum results")

	rootCmd.AddCommand(
		loadCmd, refreshCmd, pageCmd, searchCmd, suggestCmd, discoverCmd,
		genreCmd, yearCmd, albumCmd, backfillCmd, statsCmd, evictCmd, clearCmd,
	)
}
