package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nao1215/sitecorpus/internal/corpus"
	"github.com/nao1215/sitecorpus/internal/crawler"
	"github.com/nao1215/sitecorpus/internal/database"
	"github.com/nao1215/sitecorpus/internal/metrics"
	"github.com/nao1215/sitecorpus/internal/model"
)

// Crawler is the traversal a CrawlStep runs. *crawler.Scheduler implements it.
type Crawler interface {
	Crawl(ctx context.Context, seed string) (*crawler.Result, error)
}

// CrawlStep traverses the site from the run's seed URL and stores the
// records, outcomes and stats on the run.
//
// Design decision: Crawling is separate from persisting because a crawl
// that ends early (deadline, cancellation, nothing extracted) must leave the
// disk untouched. The persist step only runs when this step succeeds.
type CrawlStep struct {
	crawler Crawler
	logger  *slog.Logger
}

// CrawlStepOption configures a CrawlStep.
type CrawlStepOption func(*CrawlStep)

// WithCrawlLogger sets a custom logger for the crawl step.
func WithCrawlLogger(logger *slog.Logger) CrawlStepOption {
	return func(s *CrawlStep) {
		s.logger = logger
	}
}

// NewCrawlStep creates a crawl step.
func NewCrawlStep(c Crawler, opts ...CrawlStepOption) *CrawlStep {
	s := &CrawlStep{
		crawler: c,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return "crawl"
}

// Do executes the crawl step.
func (s *CrawlStep) Do(ctx context.Context, run *model.CrawlRun) error {
	result, err := s.crawler.Crawl(ctx, run.SeedURL)
	if result != nil {
		run.Records = result.Records
		run.Outcomes = result.Outcomes
		run.Stats = result.Stats
	}
	if err != nil {
		if result == nil {
			return err
		}
		return fmt.Errorf("crawl interrupted after %d pages: %w", run.Stats.Fetched, err)
	}

	s.logger.Info("crawl finished",
		"site", run.Site,
		"fetched", run.Stats.Fetched,
		"extracted", run.Stats.Extracted,
		"skipped", run.Stats.Skipped,
		"failed", run.Stats.Failed,
	)

	if len(run.Records) == 0 {
		if seed, ok := run.SeedOutcome(); ok {
			return fmt.Errorf("%w: seed page %s", ErrEmptyCorpus, seed.Describe())
		}
		return ErrEmptyCorpus
	}
	return nil
}

// PersistStep writes the run's records to the corpus file.
type PersistStep struct {
	writer *corpus.Writer
	logger *slog.Logger
}

// NewPersistStep creates a persist step writing through w.
func NewPersistStep(w *corpus.Writer, logger *slog.Logger) *PersistStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &PersistStep{writer: w, logger: logger}
}

// Name returns the step name.
func (s *PersistStep) Name() string {
	return "persist"
}

// Do executes the persist step.
func (s *PersistStep) Do(_ context.Context, run *model.CrawlRun) error {
	if err := s.writer.Write(run.Records); err != nil {
		return err
	}
	s.logger.Info("corpus written",
		"site", run.Site,
		"path", s.writer.Path(),
		"pages", len(run.Records),
		"characters", run.TotalCharacters(),
	)
	return nil
}

// HistoryStep stores the finished run in the history database.
type HistoryStep struct {
	db *database.CrawlDB
}

// NewHistoryStep creates a history step.
func NewHistoryStep(db *database.CrawlDB) *HistoryStep {
	return &HistoryStep{db: db}
}

// Name returns the step name.
func (s *HistoryStep) Name() string {
	return "history"
}

// Do executes the history step.
func (s *HistoryStep) Do(ctx context.Context, run *model.CrawlRun) error {
	if err := s.db.SaveRun(ctx, run); err != nil {
		return fmt.Errorf("save run history: %w", err)
	}
	return nil
}

// MetricsStep records the finished run in the metrics registry and, when a
// textfile path is set, rewrites the textfile.
type MetricsStep struct {
	metrics  *metrics.Metrics
	textfile string
}

// NewMetricsStep creates a metrics step. textfile may be empty.
func NewMetricsStep(m *metrics.Metrics, textfile string) *MetricsStep {
	return &MetricsStep{metrics: m, textfile: textfile}
}

// Name returns the step name.
func (s *MetricsStep) Name() string {
	return "metrics"
}

// Do executes the metrics step.
func (s *MetricsStep) Do(_ context.Context, run *model.CrawlRun) error {
	s.metrics.ObserveRun(run)
	if s.textfile == "" {
		return nil
	}
	return s.metrics.WriteTextfile(s.textfile)
}

// isDeadline reports whether err came from a context deadline rather than
// an explicit cancellation.
func isDeadline(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
