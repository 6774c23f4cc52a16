package corpus

import (
	"errors"
	"fmt"
)

// ErrNoRecords is returned when asked to write an empty corpus.
var ErrNoRecords = errors.New("refusing to write an empty corpus")

// PersistenceError reports a failure to write the corpus file.
// It is distinct from crawl errors: the crawl itself succeeded.
type PersistenceError struct {
	// Path is the corpus path being written.
	Path string
	// Op is the failed operation, e.g. "create temp file" or "rename".
	Op string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist corpus %s: %s: %v", e.Path, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *PersistenceError) Unwrap() error {
	return e.Err
}
