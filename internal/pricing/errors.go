package pricing

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by stores when no record exists for a symbol.
	ErrNotFound = errors.New("price record not found")

	// ErrStaleObservation marks an observation older than the stored one when
	// stale observations are rejected.
	ErrStaleObservation = errors.New("observation is older than the stored price")
)

// StoreError reports a failed read or write against a Store.
type StoreError struct {
	Op     string // "find", "upsert", "delete", "list", "clear"
	Symbol string
	Err    error
}

func (e *StoreError) Error() string {
	if e.Symbol == "" {
		return fmt.Sprintf("store %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store %s %s: %v", e.Op, e.Symbol, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// PublishError reports a transport or broker failure while publishing.
type PublishError struct {
	Channel string
	Key     string
	Err     error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish to %s (key=%s): %v", e.Channel, e.Key, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// ValidationError reports input rejected before it reached the store.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is, or wraps, ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation reports whether err is, or wraps, a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
