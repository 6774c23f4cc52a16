package model

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus is the final state of a crawl run.
type RunStatus string

const (
	// RunPending is the state before the pipeline has finished.
	RunPending RunStatus = "pending"

	// RunCompleted means the corpus was crawled and written.
	RunCompleted RunStatus = "completed"

	// RunSkippedExisting means a corpus already existed and no crawl happened.
	RunSkippedExisting RunStatus = "skipped_existing"

	// RunEmpty means the crawl finished but produced no records, so nothing
	// was written.
	RunEmpty RunStatus = "empty"

	// RunFailed means a run-fatal error occurred: persistence failure,
	// deadline, cancellation.
	RunFailed RunStatus = "failed"
)

// CrawlStats aggregates the outcomes of a run.
type CrawlStats struct {
	// Fetched counts tasks that reached the fetcher.
	Fetched int `json:"fetched"`

	// Extracted, Skipped and Failed count outcomes by kind.
	Extracted int `json:"extracted"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`

	// DroppedVisited counts tasks dropped because their URL was already visited.
	DroppedVisited int `json:"dropped_visited"`

	// DroppedDepth counts links not scheduled because they would exceed the
	// maximum depth.
	DroppedDepth int `json:"dropped_depth"`

	// DroppedFiltered counts links rejected by ignore/follow patterns.
	DroppedFiltered int `json:"dropped_filtered"`

	// MaxDepthReached is the deepest depth that was fetched.
	MaxDepthReached int `json:"max_depth_reached"`
}

// Observe folds one outcome into the stats.
func (s *CrawlStats) Observe(o PageOutcome) {
	switch o.Kind {
	case OutcomeExtracted:
		s.Extracted++
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeFailed:
		s.Failed++
	}
	if o.Depth > s.MaxDepthReached {
		s.MaxDepthReached = o.Depth
	}
}

// CrawlRun is one invocation of the crawl pipeline for one site.
// Pipeline steps fill it in as they execute.
type CrawlRun struct {
	// ID uniquely identifies the run in the history database.
	ID string `json:"id"`

	// Site is the site name, normally the seed host.
	Site string `json:"site"`

	// SeedURL is the root of the traversal.
	SeedURL string `json:"seed_url"`

	// Domain is the host links had to match.
	Domain string `json:"domain"`

	// CorpusPath is where the corpus is (or would be) written.
	CorpusPath string `json:"corpus_path"`

	// MaxDepth is the depth bound used for this run.
	MaxDepth int `json:"max_depth"`

	// StartedAt and FinishedAt bracket the run.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitzero"`

	// Status is the final state.
	Status RunStatus `json:"status"`

	// Records are the extracted pages in discovery order.
	Records []PageRecord `json:"-"`

	// Outcomes lists every processed task in processing order.
	Outcomes []PageOutcome `json:"outcomes,omitempty"`

	// Stats aggregates Outcomes plus dropped tasks.
	Stats CrawlStats `json:"stats"`

	// Err is the run-fatal error, if any.
	Err error `json:"-"`

	// ErrorMessage is Err rendered as text.
	ErrorMessage string `json:"error,omitempty"`
}

// NewCrawlRun creates a pending run with a fresh ID.
func NewCrawlRun(site, seedURL, domain, corpusPath string, maxDepth int) *CrawlRun {
	return &CrawlRun{
		ID:         uuid.NewString(),
		Site:       site,
		SeedURL:    seedURL,
		Domain:     domain,
		CorpusPath: corpusPath,
		MaxDepth:   maxDepth,
		StartedAt:  time.Now(),
		Status:     RunPending,
	}
}

// Fail marks the run as failed with the given error.
func (r *CrawlRun) Fail(err error) {
	r.Status = RunFailed
	r.Err = err
	if err != nil {
		r.ErrorMessage = err.Error()
	}
	r.finish()
}

// Complete marks the run with a non-failure terminal status.
func (r *CrawlRun) Complete(status RunStatus) {
	r.Status = status
	r.finish()
}

func (r *CrawlRun) finish() {
	if r.FinishedAt.IsZero() {
		r.FinishedAt = time.Now()
	}
}

// Duration returns how long the run took, or has taken so far.
func (r *CrawlRun) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// SeedOutcome returns the outcome of the seed task, if it was processed.
func (r *CrawlRun) SeedOutcome() (PageOutcome, bool) {
	for _, o := range r.Outcomes {
		if o.Depth == 0 {
			return o, true
		}
	}
	return PageOutcome{}, false
}

// TotalCharacters sums the content length of all records.
func (r *CrawlRun) TotalCharacters() int {
	total := 0
	for _, rec := range r.Records {
		total += rec.Length()
	}
	return total
}
