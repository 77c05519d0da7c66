package domain

import (
	"context"
	"errors"
)

// Sentinel errors for domain operations
var (
	// ErrNotFound indicates the key is absent locally and remotely
	ErrNotFound = errors.New("item not found")

	// ErrNetworkUnavailable indicates the remote catalog could not be reached
	// or answered with a non-success status
	ErrNetworkUnavailable = errors.New("network unavailable")

	// ErrAuthFailed indicates the remote catalog rejected the token
	ErrAuthFailed = errors.New("authentication token is invalid")

	// ErrPersistence indicates a local read or write failed
	ErrPersistence = errors.New("local storage failure")

	// ErrVerification indicates a write did not take effect
	ErrVerification = errors.New("write verification failed")

	// ErrNoActiveUser indicates no user is signed in
	ErrNoActiveUser = errors.New("no active user")

	// ErrRatingRequired indicates a favorite was added without a rating
	ErrRatingRequired = errors.New("rating is required")

	// ErrInvalidRating indicates a rating outside (0, MaxRating]
	ErrInvalidRating = errors.New("invalid rating")

	// ErrNoData indicates nothing is cached and nothing could be fetched
	ErrNoData = errors.New("no data available")
)

// Message maps an error to the text shown in a Failure.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoData):
		return "No data available. Please connect to the internet."
	case errors.Is(err, ErrNotFound):
		return "Album not found"
	case errors.Is(err, ErrAuthFailed):
		return "Authentication failed"
	case errors.Is(err, ErrNetworkUnavailable):
		return "Network error: " + err.Error()
	case errors.Is(err, ErrPersistence):
		return "Storage error: " + err.Error()
	case errors.Is(err, ErrNoActiveUser):
		return "Please sign in first"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "Request cancelled"
	default:
		return err.Error()
	}
}

// StorageError wraps a local storage failure with the operation that hit it.
// It matches both ErrPersistence and the underlying cause under errors.Is.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *StorageError) Unwrap() []error { return []error{ErrPersistence, e.Err} }

// PersistenceError returns a StorageError for op, or nil if err is nil.
// ErrNotFound passes through unwrapped.
func PersistenceError(op string, err error) error {
	if err == nil || errors.Is(err, ErrNotFound) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
