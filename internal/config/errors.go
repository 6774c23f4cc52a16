package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages. Where a dynamic value helps (the offending URL
// or selector) Validate wraps the sentinel with fmt.Errorf and %w.
var (
	// ErrNoTarget is returned when no seed URL is given on the command line
	// and no site was selected from the configuration file.
	ErrNoTarget = errors.New("no target specified: provide a seed URL or use --site")

	// ErrInvalidSeedURL is returned when a seed is not an absolute http(s) URL.
	ErrInvalidSeedURL = errors.New("invalid seed URL: must be an absolute http or https URL")

	// ErrInvalidDepth is returned when the maximum crawl depth is negative.
	// Depth 0 is valid and fetches only the seed page.
	ErrInvalidDepth = errors.New("invalid max depth: must be non-negative")

	// ErrInvalidTimeout is returned when the fetch timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidRunTimeout is returned when the run deadline is negative.
	// Use 0 to disable the run deadline.
	ErrInvalidRunTimeout = errors.New("invalid run timeout: must be non-negative")

	// ErrInvalidMinLength is returned when either text length threshold is negative.
	ErrInvalidMinLength = errors.New("invalid minimum text length: must be non-negative")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidCrawlDelay is returned when the crawl delay is negative.
	// A negative delay is invalid; use 0 for no delay between requests.
	ErrInvalidCrawlDelay = errors.New("invalid crawl delay: must be non-negative")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	// A negative body size is invalid; use 0 to use the default limit.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidMaxPages is returned when the page cap is negative.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be non-negative")

	// ErrNoCorpusPath is returned when the corpus output path is empty.
	ErrNoCorpusPath = errors.New("no corpus path specified")

	// ErrInvalidSelector is returned when a boilerplate selector cannot be
	// compiled as a CSS selector.
	ErrInvalidSelector = errors.New("invalid boilerplate selector")

	// ErrInvalidPattern is returned when an ignore or follow pattern is not
	// a valid glob.
	ErrInvalidPattern = errors.New("invalid URL pattern")

	// ErrUnknownSite is returned when --site names a site that is not in the
	// configuration file.
	ErrUnknownSite = errors.New("site not found in configuration file")

	// ErrDuplicateCorpusPath is returned when two seeds resolve to the same
	// corpus file, such as two seeds on one host.
	ErrDuplicateCorpusPath = errors.New("two sites share a corpus path")
)
