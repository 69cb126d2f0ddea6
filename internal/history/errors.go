package history

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput reports a malformed series key, a non-finite or
	// negative sample value, or a disk mountpoint that does not exist.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmptySeries reports a span query against a series that has no
	// retained samples.
	ErrEmptySeries = errors.New("empty series")
)

// LoadError reports an I/O failure reading persisted history. A missing or
// malformed file is not a LoadError; those fall back to an empty store.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load history %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// SaveError reports a failure persisting the store. Saves are never
// best-effort; a failed save fails the run.
type SaveError struct {
	Path string
	Err  error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("save history %s: %v", e.Path, e.Err)
}

func (e *SaveError) Unwrap() error {
	return e.Err
}
