package extract

import "fmt"

// ParseError is returned when markup cannot be read into a document tree.
// The HTML5 parser accepts any byte sequence, so this only happens when the
// underlying reader fails. Callers treat it as empty text for that page.
type ParseError struct {
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse markup: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}
