// Package favorites records per-user favorite albums with a comment and a
// rating. Every mutation is read back from the store before it is reported
// as done.
package favorites

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mmcdole/crate/internal/domain"
)

// Ledger manages the active user's favorites.
type Ledger struct {
	store   domain.FavoriteStore
	session domain.Session
	locks   keyLocks
	now     func() time.Time
	logger  *slog.Logger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock replaces time.Now for AddedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New creates a Ledger. If store implements domain.Flusher it is flushed
// after every mutation.
func New(store domain.FavoriteStore, session domain.Session, opts ...Option) *Ledger {
	l := &Ledger{
		store:   store,
		session: session,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Add favorites albumID, or replaces the comment and rating of an existing
// favorite. It reports false with a nil error when the write could not be
// read back.
func (l *Ledger) Add(ctx context.Context, albumID, comment string, rating domain.Rating) (bool, error) {
	user, err := l.begin(ctx)
	if err != nil {
		return false, err
	}
	if !rating.IsSet() {
		return false, domain.ErrRatingRequired
	}

	unlock := l.locks.lock(pairKey(user, albumID))
	defer unlock()

	return l.add(user, albumID, comment, rating)
}

// Remove unfavorites albumID. Removing an absent favorite succeeds.
func (l *Ledger) Remove(ctx context.Context, albumID string) (bool, error) {
	user, err := l.begin(ctx)
	if err != nil {
		return false, err
	}

	unlock := l.locks.lock(pairKey(user, albumID))
	defer unlock()

	return l.remove(user, albumID)
}

// Update edits an existing favorite's comment and rating and refreshes its
// AddedAt. An unset rating keeps the stored one. Updating an absent
// favorite does nothing.
func (l *Ledger) Update(ctx context.Context, albumID, comment string, rating domain.Rating) error {
	user, err := l.begin(ctx)
	if err != nil {
		return err
	}

	unlock := l.locks.lock(pairKey(user, albumID))
	defer unlock()

	rec, err := l.store.Favorite(user, albumID)
	if errors.Is(err, domain.ErrNotFound) {
		l.logger.Info("favorite not found, nothing to update", "albumID", albumID, "userID", user)
		return nil
	}
	if err != nil {
		return err
	}

	rec.Comment = comment
	if rating.IsSet() {
		rec.Rating = rating
	}
	rec.AddedAt = l.now().UnixMilli()

	if err := l.store.SaveFavorite(&rec); err != nil {
		l.logger.Error("failed to update favorite", "error", err, "albumID", albumID, "userID", user)
		return err
	}
	l.flush()
	return nil
}

// Toggle adds albumID with rating when it is not a favorite and removes it
// otherwise. It returns whether the album is a favorite afterwards.
func (l *Ledger) Toggle(ctx context.Context, albumID string, rating domain.Rating) (bool, error) {
	user, err := l.begin(ctx)
	if err != nil {
		return false, err
	}

	unlock := l.locks.lock(pairKey(user, albumID))
	defer unlock()

	_, err = l.store.Favorite(user, albumID)
	switch {
	case err == nil:
		ok, err := l.remove(user, albumID)
		if err != nil {
			return true, err
		}
		if !ok {
			return true, fmt.Errorf("remove %s: %w", albumID, domain.ErrVerification)
		}
		return false, nil
	case errors.Is(err, domain.ErrNotFound):
		if !rating.IsSet() {
			return false, domain.ErrRatingRequired
		}
		ok, err := l.add(user, albumID, "", rating)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, fmt.Errorf("add %s: %w", albumID, domain.ErrVerification)
		}
		return true, nil
	default:
		return false, err
	}
}

// Get returns the active user's record for albumID, or domain.ErrNotFound.
func (l *Ledger) Get(ctx context.Context, albumID string) (domain.FavoriteRecord, error) {
	user, err := l.begin(ctx)
	if err != nil {
		return domain.FavoriteRecord{}, err
	}
	return l.store.Favorite(user, albumID)
}

// IsFavorite reports whether the active user favorited albumID.
func (l *Ledger) IsFavorite(ctx context.Context, albumID string) (bool, error) {
	_, err := l.Get(ctx, albumID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// List returns the active user's favorites, newest first.
func (l *Ledger) List(ctx context.Context) ([]domain.FavoriteRecord, error) {
	user, err := l.begin(ctx)
	if err != nil {
		return nil, err
	}
	return l.store.Favorites(user)
}

// Albums returns the active user's favorite albums, newest favorite first.
func (l *Ledger) Albums(ctx context.Context) ([]domain.CatalogItem, error) {
	user, err := l.begin(ctx)
	if err != nil {
		return nil, err
	}
	return l.store.FavoriteAlbums(user)
}

// Count returns the number of the active user's favorites.
func (l *Ledger) Count(ctx context.Context) (int, error) {
	user, err := l.begin(ctx)
	if err != nil {
		return 0, err
	}
	return l.store.CountFavorites(user)
}

// ClearAll removes every favorite of the active user.
func (l *Ledger) ClearAll(ctx context.Context) error {
	user, err := l.begin(ctx)
	if err != nil {
		return err
	}
	if err := l.store.DeleteFavorites(user); err != nil {
		l.logger.Error("failed to clear favorites", "error", err, "userID", user)
		return err
	}
	l.flush()
	l.logger.Info("favorites cleared", "userID", user)
	return nil
}

func (l *Ledger) begin(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if l.session == nil {
		return "", domain.ErrNoActiveUser
	}
	user := l.session.UserID()
	if user == "" {
		return "", domain.ErrNoActiveUser
	}
	return user, nil
}

// add and remove expect the pair lock to be held.

func (l *Ledger) add(user, albumID, comment string, rating domain.Rating) (bool, error) {
	rec := &domain.FavoriteRecord{
		AlbumID:    albumID,
		UserID:     user,
		Comment:    comment,
		Rating:     rating,
		AddedAt:    l.now().UnixMilli(),
		IsFavorite: true,
	}
	if err := l.store.SaveFavorite(rec); err != nil {
		l.logger.Error("failed to save favorite", "error", err, "albumID", albumID, "userID", user)
		return false, err
	}
	l.flush()

	got, err := l.store.Favorite(user, albumID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		l.logger.Warn("favorite missing after save", "albumID", albumID, "userID", user)
		return false, nil
	case err != nil:
		return false, err
	case got.Comment != comment || got.Rating != rating:
		l.logger.Warn("favorite differs after save", "albumID", albumID, "userID", user)
		return false, nil
	}

	l.logger.Debug("favorite saved", "albumID", albumID, "userID", user, "rating", rating)
	return true, nil
}

func (l *Ledger) remove(user, albumID string) (bool, error) {
	if err := l.store.DeleteFavorite(user, albumID); err != nil {
		l.logger.Error("failed to delete favorite", "error", err, "albumID", albumID, "userID", user)
		return false, err
	}
	l.flush()

	_, err := l.store.Favorite(user, albumID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return true, nil
	case err != nil:
		return false, err
	default:
		l.logger.Warn("favorite still present after delete", "albumID", albumID, "userID", user)
		return false, nil
	}
}

func (l *Ledger) flush() {
	f, ok := l.store.(domain.Flusher)
	if !ok {
		return
	}
	if err := f.Flush(); err != nil {
		l.logger.Warn("failed to flush store", "error", err)
	}
}
