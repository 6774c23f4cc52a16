package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/sitecorpus/internal/config"
	"github.com/nao1215/sitecorpus/internal/model"
	"golang.org/x/sync/errgroup"
)

// TriggerFactory builds the trigger for one site.
type TriggerFactory func(site config.Site) (*Trigger, error)

// BatchProcessor crawls several sites concurrently.
// It uses errgroup to manage goroutines and respect the concurrency limit.
//
// Design decision: We use a separate BatchProcessor rather than adding batch
// functionality to Trigger because:
// 1. It keeps the Trigger focused on a single site
// 2. Every site gets a fresh trigger, so no scheduler state is shared
type BatchProcessor struct {
	factory     TriggerFactory
	concurrency int
	logger      *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of sites crawled at once.
// Default is config.DefaultBatchSize if not specified.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(factory TriggerFactory, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		factory:     factory,
		concurrency: config.DefaultBatchSize,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch crawls every site and returns one run per site, in the order
// of sites.
//
// A failing site never stops the others; its error is recorded on its run.
// The returned error is non-nil when two sites share a corpus path, in which
// case nothing is crawled, or when ctx was cancelled before every site had
// started, in which case unstarted sites have no run (nil entry).
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, sites []config.Site) ([]*model.CrawlRun, error) {
	runs := make([]*model.CrawlRun, len(sites))
	err := bp.ProcessBatchWithCallback(ctx, sites, func(run *model.CrawlRun, index int) {
		// Each goroutine writes its own index.
		runs[index] = run
	})
	return runs, err
}

// ProcessBatchWithCallback crawls every site and calls callback as each run
// finishes. The callback is called from the goroutine that ran the site, so
// it must be safe for concurrent use.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	sites []config.Site,
	callback func(run *model.CrawlRun, index int),
) error {
	// Every trigger checks presence on its own, so two sites writing one
	// file would both crawl and the later rename would win.
	if err := config.CheckCorpusPaths(sites); err != nil {
		return err
	}

	bp.logger.Info("starting batch processing",
		"total_sites", len(sites),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, site := range sites {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			run := bp.runSite(gctx, site, i, len(sites))
			callback(run, i)

			// Site failures live on the run; returning them would cancel
			// the remaining sites.
			return nil
		})
	}

	err := g.Wait()

	bp.logger.Info("batch processing complete",
		"total_sites", len(sites),
		"elapsed", time.Since(startTime).Round(time.Millisecond),
	)

	return err
}

func (bp *BatchProcessor) runSite(ctx context.Context, site config.Site, index, total int) *model.CrawlRun {
	bp.logger.Info("crawling site",
		"site", site.Name,
		"index", index+1,
		"total", total,
	)

	trigger, err := bp.factory(site)
	if err != nil {
		run := model.NewCrawlRun(site.Name, site.SeedURL, site.Domain, site.CorpusPath, site.MaxDepth)
		run.Fail(err)
		bp.logger.Warn("site setup failed", "site", site.Name, "error", err)
		return run
	}

	run, err := trigger.Run(ctx)
	if err != nil {
		bp.logger.Warn("site run failed",
			"site", site.Name,
			"status", string(run.Status),
			"error", err,
		)
	}
	return run
}
