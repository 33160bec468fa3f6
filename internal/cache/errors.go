package cache

import (
	"errors"
	"fmt"
)

var (
	// ErrNoDocument is returned when a fragment is resolved against a nil document.
	ErrNoDocument = errors.New("no fragment document")

	// ErrFragmentNameRequired is returned when a document holds several
	// fragments and no name picks one.
	ErrFragmentNameRequired = errors.New("document has several fragments, a fragment name is required")

	// ErrFragmentNotFound is returned when the named fragment is not in the document.
	ErrFragmentNotFound = errors.New("fragment not found")

	// ErrClosed is returned by writes after Close.
	ErrClosed = errors.New("cache is closed")
)

// BroadcastError reports a diff that failed while broadcasting an event.
//
// The event that triggered the broadcast and the watch being served are
// recorded for diagnostics. Unwrap returns the underlying diff error.
type BroadcastError struct {
	// Seq is the logical seq of the event being broadcast.
	Seq int64

	// WatchID identifies the watch whose diff failed.
	WatchID int64

	// RecordID is the root record the watch reads.
	RecordID string

	Err error
}

// Error implements the error interface.
func (e *BroadcastError) Error() string {
	return fmt.Sprintf("broadcast seq=%d watch=%d id=%s: %v", e.Seq, e.WatchID, e.RecordID, e.Err)
}

// Unwrap returns the underlying error.
func (e *BroadcastError) Unwrap() error {
	return e.Err
}

// IsBroadcastError returns true if err is or wraps a BroadcastError.
func IsBroadcastError(err error) bool {
	var be *BroadcastError
	return errors.As(err, &be)
}
