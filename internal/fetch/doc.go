// Package fetch retrieves web pages over HTTP for the crawler.
//
// The Fetcher wraps an *http.Client built by NewHTTPClient with the
// per-request timeout, TLS policy, optional SOCKS5 proxy and per-site
// cookie and headers. On top of that it applies a response size cap, an
// optional politeness delay and an optional robots.txt policy.
//
// Fetch distinguishes three failure modes so the caller can classify pages
// without string matching:
//   - *TransportError: no usable response (DNS, connection, timeout, body read)
//   - *HTTPStatusError: a response arrived with a non-2xx status
//   - ErrRobotsDisallowed: the URL was not requested because robots.txt forbids it
//
// A 2xx response with an empty body is a success with an empty Body.
package fetch
