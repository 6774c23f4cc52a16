package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/sitecorpus/internal/config"
	"github.com/nao1215/sitecorpus/internal/crawler"
	"github.com/nao1215/sitecorpus/internal/model"
)

// TestBatchProcessorNew tests the BatchProcessor constructor.
func TestBatchProcessorNew(t *testing.T) {
	t.Parallel()

	factory := func(config.Site) (*Trigger, error) { return nil, nil }

	t.Run("creates processor with defaults", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(factory)

		if bp == nil {
			t.Fatal("expected non-nil processor")
		}
		if bp.concurrency != config.DefaultBatchSize {
			t.Errorf("expected default concurrency %d, got %d", config.DefaultBatchSize, bp.concurrency)
		}
		if bp.logger == nil {
			t.Error("expected default logger")
		}
	})

	t.Run("applies WithConcurrency option", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(factory, WithConcurrency(5))

		if bp.concurrency != 5 {
			t.Errorf("expected concurrency 5, got %d", bp.concurrency)
		}
	})

	t.Run("ignores non-positive concurrency", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(factory, WithConcurrency(0))

		if bp.concurrency != config.DefaultBatchSize {
			t.Errorf("expected default concurrency, got %d", bp.concurrency)
		}
	})

	t.Run("applies WithBatchLogger option", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(factory, WithBatchLogger(discardLogger))

		if bp.logger != discardLogger {
			t.Error("expected custom logger to be set")
		}
	})
}

// slowCrawler succeeds after a delay and tracks how many crawls overlap.
type slowCrawler struct {
	delay   time.Duration
	current *atomic.Int32
	peak    *atomic.Int32
}

func (c *slowCrawler) Crawl(ctx context.Context, seed string) (*crawler.Result, error) {
	n := c.current.Add(1)
	defer c.current.Add(-1)
	for {
		p := c.peak.Load()
		if n <= p || c.peak.CompareAndSwap(p, n) {
			break
		}
	}

	select {
	case <-time.After(c.delay):
	case <-ctx.Done():
		return &crawler.Result{}, ctx.Err()
	}

	record := model.PageRecord{URL: seed, Content: "content for " + seed}
	return resultWith([]model.PageRecord{record},
		model.Extracted(model.CrawlTask{URL: seed}, 200, record)), nil
}

func testSites(t *testing.T, n int) []config.Site {
	t.Helper()

	dir := t.TempDir()
	sites := make([]config.Site, n)
	for i := range sites {
		name := string(rune('a'+i)) + ".example.com"
		sites[i] = config.Site{
			Name:       name,
			SeedURL:    "https://" + name + "/",
			Domain:     name,
			CorpusPath: filepath.Join(dir, name+".json"),
			MaxDepth:   config.DefaultMaxDepth,
		}
	}
	return sites
}

// crawlerFactory builds triggers that use c instead of the network.
func crawlerFactory(c Crawler) TriggerFactory {
	return func(site config.Site) (*Trigger, error) {
		return NewTrigger(config.NewConfig(), site, WithCrawler(c), WithTriggerLogger(discardLogger))
	}
}

// TestBatchProcessorProcessBatch tests concurrent batch processing.
func TestBatchProcessorProcessBatch(t *testing.T) {
	t.Parallel()

	t.Run("processes all sites in order", func(t *testing.T) {
		t.Parallel()

		c := &slowCrawler{delay: 10 * time.Millisecond, current: &atomic.Int32{}, peak: &atomic.Int32{}}
		sites := testSites(t, 5)
		bp := NewBatchProcessor(crawlerFactory(c), WithBatchLogger(discardLogger))

		runs, err := bp.ProcessBatch(context.Background(), sites)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(runs) != len(sites) {
			t.Fatalf("expected %d runs, got %d", len(sites), len(runs))
		}
		for i, run := range runs {
			if run == nil {
				t.Fatalf("run %d is nil", i)
			}
			if run.Site != sites[i].Name {
				t.Errorf("run %d: expected site %s, got %s", i, sites[i].Name, run.Site)
			}
			if run.Status != model.RunCompleted {
				t.Errorf("run %d: expected completed, got %s", i, run.Status)
			}
		}
	})

	t.Run("respects concurrency limit", func(t *testing.T) {
		t.Parallel()

		c := &slowCrawler{delay: 30 * time.Millisecond, current: &atomic.Int32{}, peak: &atomic.Int32{}}
		bp := NewBatchProcessor(crawlerFactory(c), WithConcurrency(2), WithBatchLogger(discardLogger))

		if _, err := bp.ProcessBatch(context.Background(), testSites(t, 6)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if peak := c.peak.Load(); peak > 2 {
			t.Errorf("expected at most 2 concurrent crawls, got %d", peak)
		}
	})

	t.Run("continues after individual site failure", func(t *testing.T) {
		t.Parallel()

		errSetup := errors.New("bad site")
		c := &slowCrawler{delay: time.Millisecond, current: &atomic.Int32{}, peak: &atomic.Int32{}}
		sites := testSites(t, 3)

		factory := func(site config.Site) (*Trigger, error) {
			if site.Name == sites[1].Name {
				return nil, errSetup
			}
			return crawlerFactory(c)(site)
		}
		bp := NewBatchProcessor(factory, WithBatchLogger(discardLogger))

		runs, err := bp.ProcessBatch(context.Background(), sites)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if runs[1].Status != model.RunFailed || !errors.Is(runs[1].Err, errSetup) {
			t.Errorf("expected failed run carrying the setup error, got %+v", runs[1])
		}
		if runs[0].Status != model.RunCompleted || runs[2].Status != model.RunCompleted {
			t.Error("other sites should still complete")
		}
	})

	t.Run("handles context cancellation", func(t *testing.T) {
		t.Parallel()

		c := &slowCrawler{delay: time.Second, current: &atomic.Int32{}, peak: &atomic.Int32{}}
		bp := NewBatchProcessor(crawlerFactory(c), WithConcurrency(1), WithBatchLogger(discardLogger))

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		runs, err := bp.ProcessBatch(ctx, testSites(t, 3))
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("expected context deadline error, got %v", err)
		}
		if runs[0] == nil || runs[0].Status != model.RunFailed {
			t.Errorf("expected the started site to fail, got %+v", runs[0])
		}
	})

	t.Run("rejects sites sharing a corpus path before crawling", func(t *testing.T) {
		t.Parallel()

		sites := testSites(t, 3)
		sites[2].CorpusPath = sites[0].CorpusPath

		var built atomic.Int32
		c := &slowCrawler{delay: time.Millisecond, current: &atomic.Int32{}, peak: &atomic.Int32{}}
		factory := func(site config.Site) (*Trigger, error) {
			built.Add(1)
			return crawlerFactory(c)(site)
		}
		bp := NewBatchProcessor(factory, WithBatchLogger(discardLogger))

		_, err := bp.ProcessBatch(context.Background(), sites)
		if !errors.Is(err, config.ErrDuplicateCorpusPath) {
			t.Fatalf("expected ErrDuplicateCorpusPath, got %v", err)
		}
		if n := built.Load(); n != 0 {
			t.Errorf("expected no trigger to be built, got %d", n)
		}
	})
}

// TestBatchProcessorProcessBatchWithCallback tests streaming results.
func TestBatchProcessorProcessBatchWithCallback(t *testing.T) {
	t.Parallel()

	c := &slowCrawler{delay: time.Millisecond, current: &atomic.Int32{}, peak: &atomic.Int32{}}
	sites := testSites(t, 4)
	bp := NewBatchProcessor(crawlerFactory(c), WithBatchLogger(discardLogger))

	var mu sync.Mutex
	seen := make(map[int]string)

	err := bp.ProcessBatchWithCallback(context.Background(), sites, func(run *model.CrawlRun, index int) {
		mu.Lock()
		defer mu.Unlock()
		seen[index] = run.Site
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(seen) != len(sites) {
		t.Fatalf("expected %d callbacks, got %d", len(sites), len(seen))
	}
	for i, site := range sites {
		if seen[i] != site.Name {
			t.Errorf("callback %d: expected %s, got %s", i, site.Name, seen[i])
		}
	}
}
