package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nao1215/sitecorpus/internal/config"
	"github.com/nao1215/sitecorpus/internal/corpus"
	"github.com/nao1215/sitecorpus/internal/crawler"
	"github.com/nao1215/sitecorpus/internal/database"
	"github.com/nao1215/sitecorpus/internal/extract"
	"github.com/nao1215/sitecorpus/internal/fetch"
	"github.com/nao1215/sitecorpus/internal/metrics"
	"github.com/nao1215/sitecorpus/internal/model"
)

// Trigger runs the crawl pipeline for one site.
//
// Runs are idempotent by presence: if the site's corpus file exists, Run
// returns a skipped_existing run without fetching anything. Deleting the
// file is the only way to force a fresh crawl.
//
// Design decision: Runs of one Trigger are serialized. A second Run that
// starts while the first is still crawling waits, then sees the corpus the
// first one wrote and skips. Without the lock two overlapping runs would
// both crawl and race on the same file.
type Trigger struct {
	site       config.Site
	runTimeout time.Duration

	writer   *corpus.Writer
	crawl    *Pipeline
	recorder *Pipeline

	logger *slog.Logger
	mu     sync.Mutex
}

// TriggerOption configures a Trigger.
type TriggerOption func(*triggerOptions)

type triggerOptions struct {
	logger      *slog.Logger
	db          *database.CrawlDB
	metrics     *metrics.Metrics
	metricsFile string
	crawler     Crawler
}

// WithTriggerLogger sets the logger used by every component of the run.
func WithTriggerLogger(logger *slog.Logger) TriggerOption {
	return func(o *triggerOptions) {
		o.logger = logger
	}
}

// WithHistory records every run in db.
func WithHistory(db *database.CrawlDB) TriggerOption {
	return func(o *triggerOptions) {
		o.db = db
	}
}

// WithMetrics records page and run metrics in m. When textfile is not
// empty the registry is written there after each run.
func WithMetrics(m *metrics.Metrics, textfile string) TriggerOption {
	return func(o *triggerOptions) {
		o.metrics = m
		o.metricsFile = textfile
	}
}

// WithCrawler replaces the scheduler built from the configuration.
func WithCrawler(c Crawler) TriggerOption {
	return func(o *triggerOptions) {
		o.crawler = c
	}
}

// NewTrigger builds the fetcher, extractor and scheduler for site from cfg
// and assembles the pipeline.
func NewTrigger(cfg *config.Config, site config.Site, opts ...TriggerOption) (*Trigger, error) {
	o := &triggerOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	logger := o.logger.With("site", site.Name)

	c := o.crawler
	if c == nil {
		scheduler, err := newScheduler(cfg, site, o.metrics, logger)
		if err != nil {
			return nil, err
		}
		c = scheduler
	}

	t := &Trigger{
		site:       site,
		runTimeout: cfg.RunTimeout,
		writer:     corpus.NewWriter(site.CorpusPath),
		logger:     logger,
	}

	t.crawl = New(WithLogger(logger))
	t.crawl.AddSteps(
		NewCrawlStep(c, WithCrawlLogger(logger)),
		NewPersistStep(t.writer, logger),
	)

	t.recorder = New(WithLogger(logger), WithContinueOnError(true))
	if o.db != nil {
		t.recorder.AddStep(NewHistoryStep(o.db))
	}
	if o.metrics != nil {
		t.recorder.AddStep(NewMetricsStep(o.metrics, o.metricsFile))
	}

	return t, nil
}

func newScheduler(cfg *config.Config, site config.Site, m *metrics.Metrics, logger *slog.Logger) (*crawler.Scheduler, error) {
	client, err := fetch.NewHTTPClient(fetch.ClientConfig{
		Timeout:      cfg.Timeout,
		VerifyTLS:    cfg.VerifyTLS,
		ProxyAddress: cfg.ProxyAddress,
		Cookie:       site.Cookie,
		Headers:      site.Headers,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	fetcher := fetch.New(client,
		fetch.WithUserAgent(cfg.UserAgent),
		fetch.WithMaxBodySize(cfg.MaxBodySize),
		fetch.WithCrawlDelay(cfg.CrawlDelay),
		fetch.WithRobots(cfg.RespectRobots),
		fetch.WithLogger(logger),
	)

	extractor, err := extract.NewExtractor(
		site.BoilerplateSelectors,
		site.BoilerplatePhrases,
		extract.WithMinRawLength(cfg.MinRawLength),
		extract.WithMinContentLength(site.MinContentLength),
	)
	if err != nil {
		return nil, err
	}

	schedOpts := []crawler.Option{
		crawler.WithDomain(site.Domain),
		crawler.WithMaxDepth(site.MaxDepth),
		crawler.WithMaxPages(cfg.MaxPages),
		crawler.WithFollowLinksFromSkipped(cfg.FollowLinksFromSkipped),
		crawler.WithLinksFromBoilerplate(cfg.LinksFromBoilerplate),
		crawler.WithIgnorePatterns(site.IgnorePatterns),
		crawler.WithFollowPatterns(site.FollowPatterns),
		crawler.WithLogger(logger),
	}
	if m != nil {
		schedOpts = append(schedOpts, crawler.WithObserver(m.ForSite(site.Name)))
	}

	return crawler.NewScheduler(fetcher, extractor, schedOpts...), nil
}

// Site returns the site this trigger crawls.
func (t *Trigger) Site() config.Site {
	return t.site
}

// Run executes one crawl run and returns it with its final status.
//
// The returned error is nil for completed and skipped_existing runs. It
// wraps ErrEmptyCorpus when nothing was extracted, ErrRunDeadline when the
// run timeout expired, the context error on cancellation, and
// *corpus.PersistenceError when the corpus could not be written.
func (t *Trigger) Run(ctx context.Context) (*model.CrawlRun, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	run := model.NewCrawlRun(t.site.Name, t.site.SeedURL, t.site.Domain, t.site.CorpusPath, t.site.MaxDepth)
	err := t.execute(ctx, run)

	// Recorders see the final status even when the caller's context is done.
	if rerr := t.recorder.Execute(context.WithoutCancel(ctx), run); rerr != nil {
		t.logger.Warn("failed to record run", "run", run.ID, "error", rerr)
	}

	return run, err
}

func (t *Trigger) execute(ctx context.Context, run *model.CrawlRun) error {
	exists, err := t.writer.Exists()
	if err != nil {
		run.Fail(err)
		return err
	}
	if exists {
		t.logger.Info("corpus already present, skipping crawl", "path", t.writer.Path())
		run.Complete(model.RunSkippedExisting)
		return nil
	}

	if t.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.runTimeout)
		defer cancel()
	}

	if err := t.crawl.Execute(ctx, run); err != nil {
		switch {
		case errors.Is(err, ErrEmptyCorpus):
			run.Err = err
			run.ErrorMessage = err.Error()
			run.Complete(model.RunEmpty)
		case isDeadline(err):
			err = fmt.Errorf("%w (%s): %w", ErrRunDeadline, t.runTimeout, err)
			run.Fail(err)
		default:
			run.Fail(err)
		}
		return err
	}

	run.Complete(model.RunCompleted)
	t.logger.Info("crawl run completed",
		"run", run.ID,
		"pages", len(run.Records),
		"elapsed", run.Duration().Round(time.Millisecond),
	)
	return nil
}

// Start runs the trigger on its own goroutine and returns immediately.
func (t *Trigger) Start(ctx context.Context) *Job {
	j := &Job{done: make(chan struct{})}
	go func() {
		defer close(j.done)
		j.run, j.err = t.Run(ctx)
	}()
	return j
}

// Job is a crawl run started in the background.
type Job struct {
	done chan struct{}
	run  *model.CrawlRun
	err  error
}

// Done is closed when the run has finished.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the run has finished and returns Run's results.
func (j *Job) Wait() (*model.CrawlRun, error) {
	<-j.done
	return j.run, j.err
}
