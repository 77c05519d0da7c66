package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mmcdole/crate/internal/adapter"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Inspect or reset sync bookkeeping",
}

var syncStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show when the catalog last synced and whether a sync is due",
	Args:  cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
		last, err := a.gate.LastSync()
		if err != nil {
			return err
		}
		due, err := a.gate.NeedsSync()
		if err != nil {
			return err
		}
		if useJSON() {
			return printJSON(struct {
				LastSync *time.Time `json:"lastSync"`
				Due      bool       `json:"due"`
				Interval string     `json:"interval"`
			}{lastSyncJSON(last), due, a.gate.Interval().String()})
		}
		fmt.Fprintf(stdout, "Last sync:  %s\n", lastSyncText(last))
		fmt.Fprintf(stdout, "Interval:   %s\n", a.gate.Interval())
		fmt.Fprintf(stdout, "Due:        %t\n", due)
		return nil
	}),
}

var syncResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Forget the last sync so the next load fetches",
	Args:  cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
		return a.gate.Reset()
	}),
}

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete the local store directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := adapter.ClearCache(cfg); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Removed %s\n", cfg.Storage.Dir)
		return nil
	},
}

func init() {
	syncCmd.AddCommand(syncStatusCmd, syncResetCmd)
	rootCmd.AddCommand(syncCmd, purgeCmd)
}
