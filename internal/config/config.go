package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/andybalholm/cascadia"
	"github.com/bmatcuk/doublestar/v4"
)

// Default configuration values.
// The crawl defaults are tuned for small marketing and content sites whose
// corpus feeds a retrieval service.
const (
	// DefaultMaxDepth bounds the traversal at two link hops from the seed.
	// Depth 0 is the seed page itself.
	DefaultMaxDepth = 2

	// DefaultTimeout is the per-request fetch timeout. Pages that take longer
	// are recorded as failed and the crawl moves on.
	DefaultTimeout = 10 * time.Second

	// DefaultRunTimeout bounds a whole crawl run. Without it a slow site with
	// a wide link graph could hold a run open indefinitely.
	DefaultRunTimeout = 10 * time.Minute

	// DefaultMinRawLength is the minimum length, in characters, of the
	// extracted text before cleaning. Shorter pages are skipped outright.
	DefaultMinRawLength = 30

	// DefaultMinContentLength is the minimum length, in characters, of the
	// cleaned text. Shorter results are discarded as boilerplate residue.
	DefaultMinContentLength = 100

	// DefaultBatchSize is the number of sites crawled concurrently when more
	// than one seed is given. Each site still crawls sequentially.
	DefaultBatchSize = 4

	// DefaultCorpusPath is the corpus file written when a single site is crawled.
	DefaultCorpusPath = "website_content.json"

	// AppName is the application name used for XDG directory paths.
	AppName = "sitecorpus"

	// DefaultCrawlDelay is the delay between requests. Zero means requests
	// are issued back to back.
	DefaultCrawlDelay = time.Duration(0)

	// DefaultUserAgent is sent with every request. Some sites refuse the Go
	// default User-Agent, so a generic browser token is used.
	DefaultUserAgent = "Mozilla/5.0"

	// DefaultMaxBodySize limits the maximum response body size to read.
	// 5MB is sufficient for most HTML pages while preventing memory exhaustion
	// from unexpectedly large responses.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB
)

// DefaultBoilerplateSelectors are CSS selectors for regions removed before
// text extraction: page chrome that repeats on every page of a site.
var DefaultBoilerplateSelectors = []string{
	"footer", "nav", "header",
	".footer", ".site-footer", ".nav-menu", ".header",
	"#footer", "#nav", "#header",
}

// DefaultBoilerplatePhrases drop any text fragment that contains one of
// them, compared case-insensitively.
var DefaultBoilerplatePhrases = []string{
	"follow us",
	"privacy policy",
	"©",
	"do not sell my information",
	"sign up",
	"newsletter",
	"about us",
}

// Config holds all configuration options for a crawl invocation.
// This struct is populated from CLI flags and the optional site file and is
// passed through the application rather than kept in global state.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., FetchConfig, ExtractConfig) for simplicity. Per-site overrides live
// in SiteConfig and are resolved into a Site by Config.Sites.
type Config struct {
	// Targets are seed URLs given on the command line.
	Targets []string

	// SiteNames select named sites from the configuration file.
	SiteNames []string

	// Domain restricts link following to this host. When empty the host of
	// each seed URL is used. Matching is exact; subdomains are not followed.
	Domain string

	// MaxDepth is the maximum link distance from the seed.
	MaxDepth int

	// Timeout is the per-request fetch timeout.
	Timeout time.Duration

	// RunTimeout bounds a whole crawl run. 0 disables the deadline.
	RunTimeout time.Duration

	// VerifyTLS enables TLS certificate verification. It is off by default
	// so sites with broken certificate chains can still be ingested. This is
	// unsafe outside of trusted networks and the CLI warns about it.
	VerifyTLS bool

	// MinRawLength is the minimum extracted text length before cleaning.
	MinRawLength int

	// MinContentLength is the minimum cleaned text length for a page to be
	// recorded.
	MinContentLength int

	// BoilerplateSelectors are removed from the document before extraction.
	BoilerplateSelectors []string

	// BoilerplatePhrases drop any text fragment containing them.
	BoilerplatePhrases []string

	// FollowLinksFromSkipped makes the crawler follow links found on pages
	// whose text was too short to record. Off by default: a page with no
	// content is treated as a dead end.
	FollowLinksFromSkipped bool

	// LinksFromBoilerplate extracts links before boilerplate removal so that
	// pages reachable only from the navigation or footer are still crawled.
	LinksFromBoilerplate bool

	// RespectRobots makes the fetcher honor robots.txt.
	RespectRobots bool

	// ProxyAddress is an optional SOCKS5 proxy in "host:port" format.
	ProxyAddress string

	// CorpusPath is the output file for a single-site crawl. With several
	// sites each one gets a file named after its host next to this path,
	// unless the site file sets its own path.
	CorpusPath string

	// Verbose enables detailed log output using slog.LevelDebug.
	Verbose bool

	// LogJSON switches log output to JSON lines.
	LogJSON bool

	// BatchSize is the number of sites crawled concurrently.
	BatchSize int

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .sitecorpus in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// SiteConfigs holds site-specific configurations loaded from the config file.
	SiteConfigs *File

	// JSONReport prints the run summary as JSON.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport prints the run summary as GitHub Flavored Markdown.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the run summary.
	// When set, the summary is written to this file instead of stdout.
	ReportFile string

	// DBDir is the directory holding the run history database.
	// Defaults to XDG data directory (~/.local/share/sitecorpus on Linux).
	DBDir string

	// SaveToDB records every run and its page outcomes in the database.
	SaveToDB bool

	// MetricsFile, when set, receives crawl metrics in the Prometheus text
	// exposition format after each run (for the node_exporter textfile collector).
	MetricsFile string

	// CrawlDelay is the delay between HTTP requests during crawling.
	CrawlDelay time.Duration

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	// Set to 0 to use the default (5MB).
	MaxBodySize int64

	// MaxPages caps the number of pages fetched per site. 0 means unlimited;
	// the depth bound still applies.
	MaxPages int
}

// NewConfig creates a new Config with default values.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (timeouts, thresholds,
// selector lists). This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		MaxDepth:             DefaultMaxDepth,
		Timeout:              DefaultTimeout,
		RunTimeout:           DefaultRunTimeout,
		MinRawLength:         DefaultMinRawLength,
		MinContentLength:     DefaultMinContentLength,
		BoilerplateSelectors: append([]string(nil), DefaultBoilerplateSelectors...),
		BoilerplatePhrases:   append([]string(nil), DefaultBoilerplatePhrases...),
		LinksFromBoilerplate: true,
		CorpusPath:           DefaultCorpusPath,
		BatchSize:            DefaultBatchSize,
		CrawlDelay:           DefaultCrawlDelay,
		UserAgent:            DefaultUserAgent,
		MaxBodySize:          DefaultMaxBodySize,
		SaveToDB:             true,
	}
}

// XDGDataDir returns the XDG data directory for sitecorpus.
// On Linux: ~/.local/share/sitecorpus
// On macOS: ~/Library/Application Support/sitecorpus
// On Windows: %LOCALAPPDATA%\sitecorpus
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for sitecorpus.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast, before any request is sent. The first error
// found is returned because fixing one often makes others irrelevant.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 && len(c.SiteNames) == 0 {
		return ErrNoTarget
	}

	for _, target := range c.Targets {
		if _, err := ParseSeedURL(target); err != nil {
			return err
		}
	}

	if c.MaxDepth < 0 {
		return ErrInvalidDepth
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.RunTimeout < 0 {
		return ErrInvalidRunTimeout
	}

	if c.MinRawLength < 0 || c.MinContentLength < 0 {
		return ErrInvalidMinLength
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	if c.CrawlDelay < 0 {
		return ErrInvalidCrawlDelay
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	if c.MaxPages < 0 {
		return ErrInvalidMaxPages
	}

	if strings.TrimSpace(c.CorpusPath) == "" {
		return ErrNoCorpusPath
	}

	if err := ValidateSelectors(c.BoilerplateSelectors); err != nil {
		return err
	}

	return nil
}

// ParseSeedURL parses a seed and checks that it is an absolute http(s) URL
// with a host.
func ParseSeedURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidSeedURL, raw, err)
	}
	scheme := strings.ToLower(u.Scheme)
	if (scheme != "http" && scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSeedURL, raw)
	}
	return u, nil
}

// ValidateSelectors compiles each selector and reports the first that fails.
func ValidateSelectors(selectors []string) error {
	for _, sel := range selectors {
		if _, err := cascadia.ParseGroup(sel); err != nil {
			return fmt.Errorf("%w: %q: %w", ErrInvalidSelector, sel, err)
		}
	}
	return nil
}

// ValidatePatterns checks that each ignore or follow pattern is a valid glob.
func ValidatePatterns(patterns []string) error {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("%w: %q", ErrInvalidPattern, p)
		}
	}
	return nil
}

// Site is the effective configuration for one seed after the site file has
// been merged over the command-line settings.
type Site struct {
	// Name is the key used in the site file, the seed host.
	Name string
	// SeedURL is the root of the traversal.
	SeedURL string
	// Domain is the host links must match to be followed.
	Domain string
	// CorpusPath is where this site's corpus is written.
	CorpusPath string
	// MaxDepth is the depth bound for this site.
	MaxDepth int
	// MinContentLength is the cleaned-text threshold for this site.
	MinContentLength int
	// Cookie and Headers are sent with every request to this site.
	Cookie  string
	Headers map[string]string
	// IgnorePatterns and FollowPatterns filter URL paths.
	IgnorePatterns []string
	FollowPatterns []string
	// BoilerplateSelectors and BoilerplatePhrases drive extraction.
	BoilerplateSelectors []string
	BoilerplatePhrases   []string
}

// Sites resolves every target and selected site name into a Site.
// Seeds from the command line are matched against the site file by host;
// names selected with --site must exist in the site file.
func (c *Config) Sites() ([]Site, error) {
	type seed struct {
		raw  string
		name string
		sc   SiteConfig
	}

	var seeds []seed
	for _, target := range c.Targets {
		u, err := ParseSeedURL(target)
		if err != nil {
			return nil, err
		}
		name := hostKey(u)
		seeds = append(seeds, seed{raw: target, name: name, sc: c.siteConfig(name)})
	}

	for _, name := range c.SiteNames {
		if c.SiteConfigs == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnknownSite, name)
		}
		if _, ok := c.SiteConfigs.Sites[name]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownSite, name)
		}
		sc := c.SiteConfigs.GetSiteConfig(name)
		raw := sc.Seed
		if raw == "" {
			raw = "https://" + name + "/"
		}
		if _, err := ParseSeedURL(raw); err != nil {
			return nil, err
		}
		seeds = append(seeds, seed{raw: raw, name: name, sc: sc})
	}

	sites := make([]Site, 0, len(seeds))
	for _, s := range seeds {
		site, err := c.resolve(s.raw, s.name, s.sc, len(seeds))
		if err != nil {
			return nil, err
		}
		sites = append(sites, site)
	}
	if err := CheckCorpusPaths(sites); err != nil {
		return nil, err
	}
	return sites, nil
}

// CheckCorpusPaths returns ErrDuplicateCorpusPath when two sites would
// write the same corpus file. Such runs would both pass the presence check
// and overwrite each other.
func CheckCorpusPaths(sites []Site) error {
	owner := make(map[string]string, len(sites))
	for _, site := range sites {
		key := filepath.Clean(site.CorpusPath)
		if prev, ok := owner[key]; ok {
			return fmt.Errorf("%w: %s (seeds %s and %s)", ErrDuplicateCorpusPath, site.CorpusPath, prev, site.SeedURL)
		}
		owner[key] = site.SeedURL
	}
	return nil
}

// hostKey is the lowercased host of u without the scheme's default port.
func hostKey(u *url.URL) string {
	host := strings.ToLower(u.Host)
	switch strings.ToLower(u.Scheme) {
	case "http":
		host = strings.TrimSuffix(host, ":80")
	case "https":
		host = strings.TrimSuffix(host, ":443")
	}
	return host
}

func (c *Config) siteConfig(name string) SiteConfig {
	if c.SiteConfigs == nil {
		return SiteConfig{}
	}
	return c.SiteConfigs.GetSiteConfig(name)
}

func (c *Config) resolve(raw, name string, sc SiteConfig, total int) (Site, error) {
	u, err := ParseSeedURL(raw)
	if err != nil {
		return Site{}, err
	}

	site := Site{
		Name:                 name,
		SeedURL:              u.String(),
		Domain:               hostKey(u),
		CorpusPath:           c.CorpusPath,
		MaxDepth:             c.MaxDepth,
		MinContentLength:     c.MinContentLength,
		Cookie:               sc.Cookie,
		Headers:              sc.Headers,
		IgnorePatterns:       sc.IgnorePatterns,
		FollowPatterns:       sc.FollowPatterns,
		BoilerplateSelectors: c.BoilerplateSelectors,
		BoilerplatePhrases:   c.BoilerplatePhrases,
	}

	switch {
	case sc.Domain != "":
		site.Domain = strings.ToLower(sc.Domain)
	case c.Domain != "":
		site.Domain = strings.ToLower(c.Domain)
	}

	switch {
	case sc.CorpusPath != "":
		site.CorpusPath = sc.CorpusPath
	case total > 1:
		site.CorpusPath = SiteCorpusPath(c.CorpusPath, name)
	}

	if sc.Depth != 0 {
		site.MaxDepth = sc.Depth
	}
	if sc.MinContentLength != 0 {
		site.MinContentLength = sc.MinContentLength
	}
	if len(sc.BoilerplateSelectors) > 0 {
		site.BoilerplateSelectors = sc.BoilerplateSelectors
	}
	if len(sc.BoilerplatePhrases) > 0 {
		site.BoilerplatePhrases = sc.BoilerplatePhrases
	}

	if err := ValidateSelectors(site.BoilerplateSelectors); err != nil {
		return Site{}, err
	}
	if err := ValidatePatterns(site.IgnorePatterns); err != nil {
		return Site{}, err
	}
	if err := ValidatePatterns(site.FollowPatterns); err != nil {
		return Site{}, err
	}
	return site, nil
}

// SiteCorpusPath derives a per-site corpus file from the shared corpus path:
// "out/website_content.json" and "example.com" give
// "out/example.com_website_content.json". Ports are kept with ':' replaced.
func SiteCorpusPath(corpusPath, host string) string {
	safeHost := strings.ReplaceAll(host, ":", "_")
	return filepath.Join(filepath.Dir(corpusPath), safeHost+"_"+filepath.Base(corpusPath))
}
