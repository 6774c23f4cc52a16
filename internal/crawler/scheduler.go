package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/sitecorpus/internal/extract"
	"github.com/nao1215/sitecorpus/internal/fetch"
	"github.com/nao1215/sitecorpus/internal/model"
)

// DefaultMaxDepth is the link distance from the seed crawled by default.
const DefaultMaxDepth = 2

// Fetcher retrieves one page. *fetch.Fetcher implements it.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*fetch.Result, error)
}

// Extractor turns a parsed document into cleaned content.
// *extract.Extractor implements it.
type Extractor interface {
	Extract(doc *goquery.Document) extract.Result
}

// Observer is notified of every page outcome as it happens.
type Observer interface {
	Observe(outcome model.PageOutcome)
}

// Result is everything one crawl produced.
type Result struct {
	// Records are the extracted pages in depth-first pre-order.
	Records []model.PageRecord

	// Outcomes lists every fetched task in processing order.
	Outcomes []model.PageOutcome

	// Stats aggregates Outcomes plus dropped tasks.
	Stats model.CrawlStats
}

// Scheduler drives a depth-bounded traversal of one site.
//
// Design decision: The worklist is an explicit LIFO stack rather than
// recursion. Children are pushed in reverse document order, so pages are
// still visited in depth-first pre-order, but a deep or wide site cannot
// grow the goroutine stack.
type Scheduler struct {
	fetcher   Fetcher
	extractor Extractor

	// domain is the host links must match. Empty means the seed host.
	domain string

	// maxDepth bounds the link distance from the seed.
	// 0 means only the seed page.
	maxDepth int

	// maxPages caps the number of fetches. 0 means unlimited.
	maxPages int

	// followLinksFromSkipped controls whether pages skipped for low
	// content still contribute their links.
	followLinksFromSkipped bool

	// linksFromBoilerplate controls whether links are collected before
	// boilerplate regions are removed.
	linksFromBoilerplate bool

	ignorePatterns []string
	followPatterns []string

	observer Observer
	logger   *slog.Logger
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithDomain sets the host that links must match.
func WithDomain(domain string) Option {
	return func(s *Scheduler) {
		s.domain = domain
	}
}

// WithMaxDepth sets the maximum crawl depth.
// 0 = only the seed page, 1 = seed plus linked pages, etc.
func WithMaxDepth(depth int) Option {
	return func(s *Scheduler) {
		if depth >= 0 {
			s.maxDepth = depth
		}
	}
}

// WithMaxPages caps the number of fetches per crawl.
func WithMaxPages(maxPages int) Option {
	return func(s *Scheduler) {
		if maxPages >= 0 {
			s.maxPages = maxPages
		}
	}
}

// WithFollowLinksFromSkipped makes pages skipped for too little text still
// schedule their links.
func WithFollowLinksFromSkipped(follow bool) Option {
	return func(s *Scheduler) {
		s.followLinksFromSkipped = follow
	}
}

// WithLinksFromBoilerplate controls whether links inside boilerplate
// regions such as footers and navigation are discovered.
func WithLinksFromBoilerplate(enabled bool) Option {
	return func(s *Scheduler) {
		s.linksFromBoilerplate = enabled
	}
}

// WithIgnorePatterns sets URL path patterns that are never crawled.
// Patterns use glob syntax (e.g., "/admin/*", "*.pdf", "/blog/**").
func WithIgnorePatterns(patterns []string) Option {
	return func(s *Scheduler) {
		s.ignorePatterns = patterns
	}
}

// WithFollowPatterns restricts crawling to URL paths matching at least one
// pattern. The seed is always fetched.
func WithFollowPatterns(patterns []string) Option {
	return func(s *Scheduler) {
		s.followPatterns = patterns
	}
}

// WithObserver sets an observer notified of each outcome.
func WithObserver(o Observer) Option {
	return func(s *Scheduler) {
		s.observer = o
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewScheduler creates a Scheduler.
//
// Design decision: The fetcher and extractor are interfaces so tests can
// drive the traversal with canned pages and count fetches exactly.
func NewScheduler(fetcher Fetcher, extractor Extractor, opts ...Option) *Scheduler {
	s := &Scheduler{
		fetcher:              fetcher,
		extractor:            extractor,
		maxDepth:             DefaultMaxDepth,
		linksFromBoilerplate: true,
		logger:               slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Crawl traverses the site reachable from seed and returns the extracted
// records with per-page outcomes.
//
// Per-page failures never abort the crawl. When ctx is canceled or its
// deadline passes, Crawl stops before the next fetch and returns the
// partial result together with ctx.Err().
func (s *Scheduler) Crawl(ctx context.Context, seed string) (*Result, error) {
	seedURL, err := Canonicalize(seed)
	if err != nil {
		return nil, fmt.Errorf("invalid seed URL: %w", err)
	}

	seedParsed, _ := url.Parse(seedURL)
	domain := seedParsed.Host
	if s.domain != "" {
		domain = CanonicalHost(seedParsed.Scheme, s.domain)
	}

	result := &Result{
		Records:  make([]model.PageRecord, 0),
		Outcomes: make([]model.PageOutcome, 0),
	}
	visited := NewVisitedSet()
	stack := []model.CrawlTask{{URL: seedURL, Depth: 0}}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if s.maxPages > 0 && result.Stats.Fetched >= s.maxPages {
			s.logger.Info("page limit reached", "limit", s.maxPages, "pending", len(stack))
			break
		}

		task := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if visited.Has(task.URL) {
			result.Stats.DroppedVisited++
			continue
		}
		if task.Depth > s.maxDepth {
			result.Stats.DroppedDepth++
			continue
		}
		visited.Add(task.URL)

		result.Stats.Fetched++
		outcome, links := s.visit(ctx, task, domain, visited)
		if outcome.Kind == model.OutcomeFailed {
			// The fetch was cut short by the run, not by the page.
			if err := ctx.Err(); err != nil {
				return result, err
			}
			if errors.Is(outcome.Err, fetch.ErrDelayPastDeadline) {
				return result, context.DeadlineExceeded
			}
		}

		children := s.schedule(links, task.Depth+1, visited, &result.Stats)
		outcome.LinksFound = len(children)
		// Reverse order so the first link in the document is popped first.
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}

		if outcome.Record != nil {
			result.Records = append(result.Records, *outcome.Record)
		}
		result.Outcomes = append(result.Outcomes, outcome)
		result.Stats.Observe(outcome)
		s.report(outcome)
	}

	return result, nil
}

// visit fetches and extracts one task. It returns the tagged outcome and the
// same-domain links that may be followed from the page.
func (s *Scheduler) visit(ctx context.Context, task model.CrawlTask, domain string, visited *VisitedSet) (model.PageOutcome, []string) {
	start := time.Now()
	outcome, links := s.process(ctx, task, domain, visited)
	outcome.Duration = time.Since(start)
	return outcome, links
}

func (s *Scheduler) process(ctx context.Context, task model.CrawlTask, domain string, visited *VisitedSet) (model.PageOutcome, []string) {
	res, err := s.fetcher.Fetch(ctx, task.URL)
	if err != nil {
		var statusErr *fetch.HTTPStatusError
		switch {
		case errors.Is(err, fetch.ErrRobotsDisallowed):
			return model.Skipped(task, 0, model.SkipRobots), nil
		case errors.As(err, &statusErr):
			return model.Skipped(task, statusErr.StatusCode, model.SkipHTTPStatus), nil
		default:
			return model.Failed(task, err), nil
		}
	}

	// Relative links resolve against the page that was actually served.
	base, err := url.Parse(task.URL)
	if err != nil {
		return model.Failed(task, err), nil
	}
	pageURL := task.URL
	if res.FinalURL != "" && res.FinalURL != task.URL {
		final, err := url.Parse(res.FinalURL)
		if err != nil {
			return model.Failed(task, err), nil
		}
		canonical, err := canonicalURL(final)
		if err != nil || canonical.Host != domain {
			return model.Skipped(task, res.StatusCode, model.SkipOffDomainRedirect), nil
		}
		pageURL = canonical.String()
		if pageURL != task.URL && !visited.Add(pageURL) {
			return model.Skipped(task, res.StatusCode, model.SkipRedirectVisited), nil
		}
		base = final
	}

	if !res.IsHTML() {
		return model.Skipped(task, res.StatusCode, model.SkipNotHTML), nil
	}

	doc, err := extract.ParseDocument(res.Body)
	if err != nil {
		return model.Failed(task, err), nil
	}

	// Extraction removes boilerplate from doc, so links inside it must be
	// collected first.
	var links []string
	if s.linksFromBoilerplate {
		links = SameDomainLinks(doc, base, domain)
	}
	extracted := s.extractor.Extract(doc)
	if !s.linksFromBoilerplate {
		links = SameDomainLinks(doc, base, domain)
	}

	if !extracted.OK() {
		if !s.followLinksFromSkipped {
			links = nil
		}
		return model.Skipped(task, res.StatusCode, extracted.Reason), links
	}

	record := model.PageRecord{URL: pageURL, Content: extracted.Content}
	return model.Extracted(task, res.StatusCode, record), links
}

// schedule turns links into tasks at depth, dropping those that are
// filtered, already visited or too deep.
func (s *Scheduler) schedule(links []string, depth int, visited *VisitedSet, stats *model.CrawlStats) []model.CrawlTask {
	tasks := make([]model.CrawlTask, 0, len(links))
	for _, link := range links {
		if !shouldCrawl(link, s.ignorePatterns, s.followPatterns) {
			stats.DroppedFiltered++
			continue
		}
		if visited.Has(link) {
			stats.DroppedVisited++
			continue
		}
		if depth > s.maxDepth {
			stats.DroppedDepth++
			continue
		}
		tasks = append(tasks, model.CrawlTask{URL: link, Depth: depth})
	}
	return tasks
}

func (s *Scheduler) report(o model.PageOutcome) {
	if s.observer != nil {
		s.observer.Observe(o)
	}

	switch o.Kind {
	case model.OutcomeExtracted:
		s.logger.Info("page extracted",
			"url", o.URL,
			"depth", o.Depth,
			"characters", o.Record.Length(),
			"links", o.LinksFound,
		)
	case model.OutcomeSkipped:
		s.logger.Info("page skipped",
			"url", o.URL,
			"depth", o.Depth,
			"reason", string(o.Reason),
			"status", o.StatusCode,
		)
	case model.OutcomeFailed:
		s.logger.Warn("page failed",
			"url", o.URL,
			"depth", o.Depth,
			"error", o.Error,
		)
	}
}
