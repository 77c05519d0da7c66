package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mmcdole/crate/internal/domain"
)

var (
	favComment string
	favRating  float64
)

var favCmd = &cobra.Command{
	Use:     "fav",
	Aliases: []string{"favorites"},
	Short:   "Manage the active user's favorite albums",
}

var favAddCmd = &cobra.Command{
	Use:   "add <album-id>",
	Short: "Favorite an album with a rating and optional comment",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, a *app, args []string) error {
		rating, err := ratingFlag()
		if err != nil {
			return err
		}
		ok, err := a.ledger.Add(ctx, args[0], favComment, rating)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("favorite %s: %w", args[0], domain.ErrVerification)
		}
		fmt.Fprintf(stdout, "Added %s (%s)\n", args[0], rating)
		return nil
	}),
}

var favRemoveCmd = &cobra.Command{
	Use:     "rm <album-id>",
	Aliases: []string{"remove"},
	Short:   "Unfavorite an album",
	Args:    cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, a *app, args []string) error {
		ok, err := a.ledger.Remove(ctx, args[0])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("remove %s: %w", args[0], domain.ErrVerification)
		}
		fmt.Fprintf(stdout, "Removed %s\n", args[0])
		return nil
	}),
}

var favEditCmd = &cobra.Command{
	Use:   "edit <album-id>",
	Short: "Change the comment and, with --rating, the rating of a favorite",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, a *app, args []string) error {
		rating := domain.NoRating()
		if favRating != 0 {
			var err error
			if rating, err = domain.NewRating(favRating); err != nil {
				return err
			}
		}
		return a.ledger.Update(ctx, args[0], favComment, rating)
	}),
}

var favToggleCmd = &cobra.Command{
	Use:   "toggle <album-id>",
	Short: "Favorite an album, or unfavorite it if it already is one",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, a *app, args []string) error {
		rating := domain.NoRating()
		if favRating != 0 {
			var err error
			if rating, err = domain.NewRating(favRating); err != nil {
				return err
			}
		}
		now, err := a.ledger.Toggle(ctx, args[0], rating)
		if errors.Is(err, domain.ErrRatingRequired) {
			return fmt.Errorf("%w: pass --rating to add %s", err, args[0])
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%s favorite: %s\n", args[0], strconv.FormatBool(now))
		return nil
	}),
}

var favListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List favorites, newest first",
	Args:    cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
		if favAlbums {
			items, err := a.ledger.Albums(ctx)
			if err != nil {
				return err
			}
			return printAlbums(items)
		}
		recs, err := a.ledger.List(ctx)
		if err != nil {
			return err
		}
		return printFavorites(recs)
	}),
}

var favAlbums bool

var favClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every favorite of the active user",
	Args:  cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
		n, err := a.ledger.Count(ctx)
		if err != nil {
			return err
		}
		if err := a.ledger.ClearAll(ctx); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Removed %d favorites\n", n)
		return nil
	}),
}

func ratingFlag() (domain.Rating, error) {
	if favRating == 0 {
		return domain.NoRating(), domain.ErrRatingRequired
	}
	return domain.NewRating(favRating)
}

func init() {
	for _, c := range []*cobra.Command{favAddCmd, favEditCmd} {
		c.Flags().StringVarP(&favComment, "comment", "c", "", "comment")
	}
	for _, c := range []*cobra.Command{favAddCmd, favEditCmd, favToggleCmd} {
		c.Flags().Float64VarP(&favRating, "rating", "r", 0, fmt.Sprintf("rating in (0, %g]", domain.MaxRating))
	}
	favListCmd.Flags().BoolVar(&favAlbums, "albums", false, "show the favorite albums instead of the records")

	favCmd.AddCommand(favAddCmd, favRemoveCmd, favEditCmd, favToggleCmd, favListCmd, favClearCmd)
	rootCmd.AddCommand(favCmd)
}
