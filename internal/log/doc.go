// Package log provides secure logging functionality with automatic sanitization
// of sensitive information, built on top of the standard slog package.
//
// The crawler logs every URL it touches and the site configuration may carry
// cookies and authorization headers. SecureHandler masks:
//   - HTTP header and credential attributes (Authorization, Cookie, X-Api-Key)
//   - Values that look like bearer tokens, JWTs or private keys
//   - Secret query parameters and userinfo passwords inside logged URLs
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, true) // verbose=true
//	logger.Info("fetching page",
//	    "url", "https://example.com/download?token=abc", // token value is masked
//	    "cookie", "session=abc123",                       // fully masked
//	)
//	slog.SetDefault(logger)
package log
