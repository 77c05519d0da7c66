// Package freshness decides when the local catalog is due for a refresh.
package freshness

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/mmcdole/crate/internal/domain"
)

// DefaultInterval is the maximum snapshot age before a non-forced refresh.
const DefaultInterval = 24 * time.Hour

// Gate compares the persisted last sync time against a freshness interval.
type Gate struct {
	store    domain.SyncStateStore
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// Option configures a Gate.
type Option func(*Gate)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// New creates a Gate. A non-positive interval falls back to DefaultInterval.
func New(store domain.SyncStateStore, interval time.Duration, opts ...Option) *Gate {
	if interval <= 0 {
		interval = DefaultInterval
	}
	g := &Gate{store: store, interval: interval, now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Interval returns the configured freshness interval.
func (g *Gate) Interval() time.Duration { return g.interval }

// NeedsSync reports whether now - lastSyncAt exceeds the interval.
// A catalog that was never synced always needs a sync.
func (g *Gate) NeedsSync() (bool, error) {
	state, err := g.store.SyncState()
	if err != nil {
		return true, fmt.Errorf("read sync state: %w", err)
	}
	if state.LastSyncAt == 0 {
		return true, nil
	}
	age := g.now().UnixMilli() - state.LastSyncAt
	return age > g.interval.Milliseconds(), nil
}

// RecordSuccess stamps the current time as the last successful sync.
func (g *Gate) RecordSuccess() error {
	ts := g.now().UnixMilli()
	if err := g.store.SaveSyncState(domain.SyncState{LastSyncAt: ts}); err != nil {
		return fmt.Errorf("save sync state: %w", err)
	}
	g.logger.Debug("recorded sync", "lastSyncAt", ts)
	return nil
}

// LastSync returns the last successful sync time, zero if never.
func (g *Gate) LastSync() (time.Time, error) {
	state, err := g.store.SyncState()
	if err != nil {
		return time.Time{}, fmt.Errorf("read sync state: %w", err)
	}
	return state.LastSync(), nil
}

// Reset forgets the last sync so the next check reports a refresh is due.
func (g *Gate) Reset() error {
	if err := g.store.SaveSyncState(domain.SyncState{}); err != nil {
		return fmt.Errorf("reset sync state: %w", err)
	}
	return nil
}
