package crawler

import "errors"

var (
	// ErrUnsupportedScheme is returned when a URL is not http or https.
	ErrUnsupportedScheme = errors.New("unsupported URL scheme: only http and https can be crawled")

	// ErrRelativeURL is returned when a URL that must be absolute has no host.
	ErrRelativeURL = errors.New("URL is not absolute")
)
