package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mmcdole/crate/internal/adapter"
	"github.com/mmcdole/crate/internal/adapter/source"
	"github.com/mmcdole/crate/internal/catalog"
	"github.com/mmcdole/crate/internal/domain"
	"github.com/mmcdole/crate/internal/favorites"
	"github.com/mmcdole/crate/internal/freshness"
	"github.com/mmcdole/crate/internal/task"
)

// app holds the wired components for one command invocation.
type app struct {
	cfg    *adapter.Config
	logger *slog.Logger

	store  domain.LocalStore
	pool   *task.Pool
	gate   *freshness.Gate
	cache  *catalog.Cache
	ledger *favorites.Ledger

	closers []io.Closer
}

func loadConfig() (*adapter.Config, error) {
	cfg, err := adapter.LoadConfig(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if offline {
		cfg.Network.Offline = true
	}
	if userID != "" {
		cfg.Session.UserID = userID
	}
	return cfg, nil
}

func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg}

	logger, logCloser, err := adapter.SetupLogger(&cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = adapter.NullLogger()
	} else {
		a.closers = append(a.closers, logCloser)
	}
	slog.SetDefault(logger)
	a.logger = logger

	logger.Info("starting crate", "version", Version, "driver", cfg.Storage.Driver)

	remote, err := source.NewClientFromConfig(cfg, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create catalog client: %w", err)
	}

	conn, err := adapter.NewConnectivity(cfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create connectivity probe: %w", err)
	}

	st, err := adapter.OpenStore(cfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	a.store = st
	a.closers = append(a.closers, st)

	session := adapter.StaticSession(cfg.Session.UserID)

	a.pool = task.NewPool(cfg.Workers.Size, cfg.Workers.Queue, logger)
	a.gate = freshness.New(st, cfg.Sync.Interval, freshness.WithLogger(logger))
	a.cache = catalog.New(remote, st, a.gate, conn, a.pool,
		catalog.WithDefaultIDs(cfg.Sync.DefaultIDs),
		catalog.WithPageSize(cfg.Sync.PageSize),
		catalog.WithSession(session),
		catalog.WithLogger(logger),
	)
	a.ledger = favorites.New(st, session, favorites.WithLogger(logger))

	return a, nil
}

// Close stops the pool before closing the store it writes to.
func (a *app) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil && a.logger != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
}

// withApp adapts a command body that needs the wired components.
func withApp(fn func(ctx context.Context, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd.Context(), a, args)
	}
}
