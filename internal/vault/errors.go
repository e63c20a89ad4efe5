package vault

import (
	"errors"
	"fmt"
)

// Sentinel errors for the two store-authoritative failure classes.
var (
	// ErrNotFound means the id no longer resolves (deleted, purged, or
	// never existed from the store's point of view).
	ErrNotFound = errors.New("entry not found")

	// ErrConflict means the expected (version, updated_at) pair presented
	// on a mutation did not match current server state.
	ErrConflict = errors.New("version conflict")

	// ErrMutationInFlight means a mutation for the same entry is still
	// outstanding. Callers treat it like a disabled control: the second
	// attempt is dropped, not queued.
	ErrMutationInFlight = errors.New("mutation already in flight for entry")
)

// TransportError wraps a network or server failure. Status is zero when the
// request never produced an HTTP response.
type TransportError struct {
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("transport error (status %d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ValidationError reports malformed local input, caught before any request
// is sent (or rejected by the server with a 400).
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
	}
	return e.Msg
}

// IsConflict reports whether err is (or wraps) a version conflict.
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

// IsNotFound reports whether err is (or wraps) a missing-entry failure.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
