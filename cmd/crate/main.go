package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags
var Version = "dev"

var (
	cfgFile    string
	jsonOutput bool
	offline    bool
	userID     string

	rootCmd = &cobra.Command{
		Use:   "crate",
		Short: "Offline-first album catalog",
		Long: `crate keeps a local copy of a remote album catalog and serves it
cache-first. Favorites with comments and ratings are stored per user and
survive catalog refreshes.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/crate/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print JSON instead of a table")
	rootCmd.PersistentFlags().BoolVar(&offline, "offline", false, "never contact the remote catalog")
	rootCmd.PersistentFlags().StringVar(&userID, "user", "", "active user (overrides session.user_id)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
