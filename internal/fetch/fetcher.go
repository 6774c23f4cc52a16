package fetch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultMaxBodySize caps the bytes read from a single response.
const DefaultMaxBodySize = 5 * 1024 * 1024

// Result is a successfully retrieved response.
type Result struct {
	// URL is the requested URL.
	URL string

	// FinalURL is the URL of the last response after redirects.
	FinalURL string

	// StatusCode is the 2xx status of the final response.
	StatusCode int

	// ContentType is the raw Content-Type header.
	ContentType string

	// Body is the response body, at most the configured size cap.
	Body []byte

	// Truncated reports whether the body hit the size cap.
	Truncated bool

	// Duration is the time spent on the request, including the body read.
	Duration time.Duration
}

// IsHTML reports whether the response is an HTML document.
// A missing Content-Type is treated as HTML: many small sites omit it and
// the parser tolerates anything.
func (r *Result) IsHTML() bool {
	if r.ContentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(r.ContentType)
	if err != nil {
		return strings.Contains(strings.ToLower(r.ContentType), "html")
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

// Fetcher retrieves pages with the configured client and policies.
// A Fetcher is safe for concurrent use, though the crawler uses one per run.
type Fetcher struct {
	client      *http.Client
	userAgent   string
	maxBodySize int64
	limiter     *rate.Limiter
	robots      *robotsCache
	logger      *slog.Logger
}

// Option is a functional option for configuring the Fetcher.
type Option func(*Fetcher)

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithMaxBodySize sets the response size cap. Non-positive values keep the default.
func WithMaxBodySize(size int64) Option {
	return func(f *Fetcher) {
		if size > 0 {
			f.maxBodySize = size
		}
	}
}

// WithCrawlDelay spaces requests at least delay apart. Zero disables the delay.
func WithCrawlDelay(delay time.Duration) Option {
	return func(f *Fetcher) {
		if delay > 0 {
			f.limiter = rate.NewLimiter(rate.Every(delay), 1)
		} else {
			f.limiter = nil
		}
	}
}

// WithRobots enables robots.txt checks. The file is fetched once per host.
func WithRobots(enabled bool) Option {
	return func(f *Fetcher) {
		if enabled {
			f.robots = newRobotsCache()
		} else {
			f.robots = nil
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// New creates a Fetcher around the given client.
// If client is nil, an http.Client with a 10 second timeout is used.
func New(client *http.Client, opts ...Option) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	f := &Fetcher{
		client:      client,
		userAgent:   "Mozilla/5.0",
		maxBodySize: DefaultMaxBodySize,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch retrieves rawURL.
//
// It returns a *TransportError when no response could be read, a
// *HTTPStatusError for a non-2xx response and ErrRobotsDisallowed when the
// robots policy forbids the URL. ErrDelayPastDeadline means the crawl
// delay cannot elapse before ctx's deadline, so no request was sent.
// Cancellation of ctx surfaces as a *TransportError wrapping the context
// error.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	if f.robots != nil {
		allowed, err := f.robots.allowed(ctx, f.client, rawURL, f.userAgent)
		if err != nil {
			return nil, &TransportError{URL: rawURL, Err: err}
		}
		if !allowed {
			return nil, ErrRobotsDisallowed
		}
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			// Wait also refuses, without waiting, a delay that would end
			// after ctx's deadline. ctx is still live in that case.
			if ctx.Err() == nil {
				return nil, ErrDelayPastDeadline
			}
			return nil, &TransportError{URL: rawURL, Err: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &TransportError{URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &TransportError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little so the connection can be reused.
		_, _ = io.CopyN(io.Discard, resp.Body, 4096)
		return nil, &HTTPStatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	// Read one byte past the cap to detect truncation.
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize+1))
	if err != nil {
		return nil, &TransportError{URL: rawURL, Err: err}
	}
	truncated := false
	if int64(len(body)) > f.maxBodySize {
		body = body[:f.maxBodySize]
		truncated = true
		f.logger.Warn("response body truncated", "url", rawURL, "limit", f.maxBodySize)
	}

	result := &Result{
		URL:         rawURL,
		FinalURL:    resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
		Truncated:   truncated,
		Duration:    time.Since(start),
	}

	f.logger.Debug("fetched page",
		"url", rawURL,
		"status", resp.StatusCode,
		"bytes", len(body),
		"duration", result.Duration,
	)

	return result, nil
}

// IsTransport reports whether err is a *TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// StatusCode returns the status code carried by an *HTTPStatusError, or 0.
func StatusCode(err error) int {
	var se *HTTPStatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}
