package fetch

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrInvalidProxyAddress is returned when the proxy address format is invalid.
	// Expected format is "host:port".
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")

	// ErrRobotsDisallowed is returned when robots.txt forbids the URL for the
	// configured user agent.
	ErrRobotsDisallowed = errors.New("disallowed by robots.txt")

	// ErrDelayPastDeadline is returned when the crawl delay would end after
	// the context deadline. It matches context.DeadlineExceeded.
	ErrDelayPastDeadline = fmt.Errorf("crawl delay would pass the deadline: %w", context.DeadlineExceeded)
)

// TransportError is returned when no usable response was obtained: DNS
// failure, refused or reset connection, timeout, or a failed body read.
type TransportError struct {
	// URL is the requested URL.
	URL string
	// Err is the underlying error from net/http.
	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying error so that errors.Is can see
// context.DeadlineExceeded and friends.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// HTTPStatusError is returned when the server answered with a non-2xx status.
type HTTPStatusError struct {
	// URL is the requested URL.
	URL string
	// StatusCode is the HTTP status code of the final response.
	StatusCode int
}

// Error implements the error interface.
func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
}
