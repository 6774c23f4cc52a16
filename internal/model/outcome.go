package model

import (
	"fmt"
	"time"
)

// OutcomeKind is the terminal state of a crawl task.
//
// Design decision: We use iota-based constants rather than string constants
// for cheap comparisons in the scheduler's hot loop. The String() and
// MarshalText() methods provide stable names for logs, reports and the
// history database.
type OutcomeKind int

const (
	// OutcomeExtracted means the page was fetched and produced a record.
	OutcomeExtracted OutcomeKind = iota

	// OutcomeSkipped means the page was fetched (or deliberately not
	// fetched) but produced no record: bad status, not HTML, too little text.
	OutcomeSkipped

	// OutcomeFailed means the fetch itself failed: DNS, connection, timeout.
	OutcomeFailed
)

// String returns the lowercase name of the outcome kind.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeExtracted:
		return "extracted"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k OutcomeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *OutcomeKind) UnmarshalText(text []byte) error {
	parsed, err := ParseOutcomeKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseOutcomeKind is the inverse of OutcomeKind.String.
func ParseOutcomeKind(s string) (OutcomeKind, error) {
	switch s {
	case "extracted":
		return OutcomeExtracted, nil
	case "skipped":
		return OutcomeSkipped, nil
	case "failed":
		return OutcomeFailed, nil
	default:
		return 0, fmt.Errorf("unknown outcome kind %q", s)
	}
}

// SkipReason explains why a page produced no record.
type SkipReason string

const (
	// SkipHTTPStatus is used for any non-2xx response.
	SkipHTTPStatus SkipReason = "http_status"

	// SkipNotHTML is used when the response is not an HTML document.
	SkipNotHTML SkipReason = "not_html"

	// SkipTooShort is used when the visible text before cleaning is below
	// the raw length threshold.
	SkipTooShort SkipReason = "too_short"

	// SkipBelowMinimum is used when the cleaned text is below the content
	// length threshold.
	SkipBelowMinimum SkipReason = "below_minimum"

	// SkipRobots is used when robots.txt disallows the URL.
	SkipRobots SkipReason = "robots_disallowed"

	// SkipOffDomainRedirect is used when a redirect ends on another host.
	SkipOffDomainRedirect SkipReason = "off_domain_redirect"

	// SkipRedirectVisited is used when a redirect ends on a page that was
	// already visited in this run.
	SkipRedirectVisited SkipReason = "redirect_visited"
)

// PageOutcome is the tagged result of processing one crawl task.
// Exactly one of Record (for OutcomeExtracted), Reason (for OutcomeSkipped)
// or Err (for OutcomeFailed) is meaningful.
type PageOutcome struct {
	// URL is the canonical URL of the task.
	URL string `json:"url"`

	// Depth is the task depth.
	Depth int `json:"depth"`

	// Kind is the terminal state.
	Kind OutcomeKind `json:"kind"`

	// Reason is set for skipped pages.
	Reason SkipReason `json:"reason,omitempty"`

	// StatusCode is the HTTP status, 0 when no response was received.
	StatusCode int `json:"status_code,omitempty"`

	// Record is the extracted page for OutcomeExtracted.
	Record *PageRecord `json:"-"`

	// Err is the fetch error for OutcomeFailed.
	Err error `json:"-"`

	// Error is Err rendered as text so it survives serialization.
	Error string `json:"error,omitempty"`

	// LinksFound is the number of same-domain links scheduled from this page.
	LinksFound int `json:"links_found"`

	// Duration is the wall time spent fetching and extracting.
	Duration time.Duration `json:"duration"`
}

// Extracted builds an OutcomeExtracted outcome.
func Extracted(task CrawlTask, status int, record PageRecord) PageOutcome {
	return PageOutcome{
		URL:        task.URL,
		Depth:      task.Depth,
		Kind:       OutcomeExtracted,
		StatusCode: status,
		Record:     &record,
	}
}

// Skipped builds an OutcomeSkipped outcome.
func Skipped(task CrawlTask, status int, reason SkipReason) PageOutcome {
	return PageOutcome{
		URL:        task.URL,
		Depth:      task.Depth,
		Kind:       OutcomeSkipped,
		Reason:     reason,
		StatusCode: status,
	}
}

// Failed builds an OutcomeFailed outcome.
func Failed(task CrawlTask, err error) PageOutcome {
	o := PageOutcome{
		URL:   task.URL,
		Depth: task.Depth,
		Kind:  OutcomeFailed,
		Err:   err,
	}
	if err != nil {
		o.Error = err.Error()
	}
	return o
}

// Describe returns a short human-readable explanation of the outcome,
// e.g. "skipped: http_status 404".
func (o PageOutcome) Describe() string {
	switch o.Kind {
	case OutcomeExtracted:
		if o.Record != nil {
			return fmt.Sprintf("extracted %d characters", o.Record.Length())
		}
		return "extracted"
	case OutcomeSkipped:
		if o.Reason == SkipHTTPStatus {
			return fmt.Sprintf("skipped: %s %d", o.Reason, o.StatusCode)
		}
		return fmt.Sprintf("skipped: %s", o.Reason)
	case OutcomeFailed:
		return fmt.Sprintf("failed: %s", o.Error)
	default:
		return o.Kind.String()
	}
}
