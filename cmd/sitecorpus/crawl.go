package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/nao1215/sitecorpus/internal/config"
	"github.com/nao1215/sitecorpus/internal/database"
	"github.com/nao1215/sitecorpus/internal/log"
	"github.com/nao1215/sitecorpus/internal/metrics"
	"github.com/nao1215/sitecorpus/internal/model"
	"github.com/nao1215/sitecorpus/internal/pipeline"
	"github.com/nao1215/sitecorpus/internal/report"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [seed-url...]",
		Short: "Crawl one or more websites into corpus files",
		Long: `Crawl starts at each seed URL, follows same-domain links up to the maximum
depth, and writes the cleaned text of every page to a JSON corpus file.

If the corpus file already exists the site is not crawled again. A crawl that
produces no records writes no file and exits with an error.

TLS certificate verification is off by default so sites with broken
certificate chains can still be ingested. Use --verify-tls outside trusted
networks.

Examples:
  # Crawl a site into website_content.json
  sitecorpus crawl https://example.com/

  # Crawl deeper and write the corpus elsewhere
  sitecorpus crawl -d 3 -o corpora/example.json https://example.com/

  # Crawl several sites, two at a time (one corpus file per host)
  sitecorpus crawl -b 2 https://example.com/ https://example.org/

  # Crawl a site defined in .sitecorpus
  sitecorpus crawl --site example.com

  # Print the run summary as JSON
  sitecorpus crawl --json https://example.com/`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	// Traversal flags
	cmd.Flags().IntP("depth", "d", config.DefaultMaxDepth,
		"Maximum link distance from the seed page")
	cmd.Flags().IntP("max-pages", "p", 0,
		"Maximum number of pages to fetch per site (0 = unlimited)")
	cmd.Flags().String("domain", "",
		"Host that links must match to be followed (default: seed host)")
	cmd.Flags().Bool("follow-skipped", false,
		"Follow links found on pages with too little text to record")
	cmd.Flags().Bool("links-from-boilerplate", true,
		"Follow links found in navigation, header and footer regions")

	// Fetch flags
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request")
	cmd.Flags().Duration("run-timeout", config.DefaultRunTimeout,
		"Timeout for a whole site crawl (0 = none)")
	cmd.Flags().Duration("crawl-delay", config.DefaultCrawlDelay,
		"Delay between requests")
	cmd.Flags().Bool("verify-tls", false,
		"Verify TLS certificates")
	cmd.Flags().Bool("respect-robots", false,
		"Honor robots.txt")
	cmd.Flags().String("proxy", "",
		"SOCKS5 proxy address (e.g., 127.0.0.1:1080)")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with every request")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Maximum response body size in bytes")

	// Extraction flags
	cmd.Flags().Int("min-raw-length", config.DefaultMinRawLength,
		"Minimum page text length before cleaning")
	cmd.Flags().Int("min-content-length", config.DefaultMinContentLength,
		"Minimum page text length after cleaning")

	// Output flags
	cmd.Flags().StringP("output", "o", config.DefaultCorpusPath,
		"Corpus file path")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .sitecorpus in current or home directory, then the user config)")
	cmd.Flags().StringArrayP("site", "s", nil,
		"Crawl a site defined in the configuration file (repeatable)")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of sites crawled concurrently")

	// History and metrics flags
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the run history database")
	cmd.Flags().Bool("no-history", false,
		"Do not record the run in the history database")
	cmd.Flags().String("metrics-file", "",
		"Write Prometheus metrics to this file after each run")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON run summary (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown run summary (mutually exclusive with --json)")
	cmd.Flags().StringP("report-file", "r", "",
		"Write the run summary to this file instead of stdout")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd.ErrOrStderr(), cfg.Verbose, cfg.LogJSON)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Handle interrupt signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runCrawl(ctx, cfg, cmd.OutOrStdout(), cmd.ErrOrStderr(), logger)
}

// getBoolFlag retrieves a flag from the command or the root's persistent flags.
func getBoolFlag(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetBool(name)
		if err != nil {
			return false
		}
	}
	return v
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error

	if cfg.MaxDepth, err = flags.GetInt("depth"); err != nil {
		return nil, err
	}
	if cfg.MaxPages, err = flags.GetInt("max-pages"); err != nil {
		return nil, err
	}
	if cfg.Domain, err = flags.GetString("domain"); err != nil {
		return nil, err
	}
	if cfg.FollowLinksFromSkipped, err = flags.GetBool("follow-skipped"); err != nil {
		return nil, err
	}
	if cfg.LinksFromBoilerplate, err = flags.GetBool("links-from-boilerplate"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.RunTimeout, err = flags.GetDuration("run-timeout"); err != nil {
		return nil, err
	}
	if cfg.CrawlDelay, err = flags.GetDuration("crawl-delay"); err != nil {
		return nil, err
	}
	if cfg.VerifyTLS, err = flags.GetBool("verify-tls"); err != nil {
		return nil, err
	}
	if cfg.RespectRobots, err = flags.GetBool("respect-robots"); err != nil {
		return nil, err
	}
	if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.MaxBodySize, err = flags.GetInt64("max-body-size"); err != nil {
		return nil, err
	}
	if cfg.MinRawLength, err = flags.GetInt("min-raw-length"); err != nil {
		return nil, err
	}
	if cfg.MinContentLength, err = flags.GetInt("min-content-length"); err != nil {
		return nil, err
	}
	if cfg.CorpusPath, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if cfg.SiteNames, err = flags.GetStringArray("site"); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
		return nil, err
	}
	if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
		return nil, err
	}
	noHistory, err := flags.GetBool("no-history")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noHistory
	if cfg.MetricsFile, err = flags.GetString("metrics-file"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("report-file"); err != nil {
		return nil, err
	}
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}

	cfg.SiteConfigs, err = loadSiteConfigs(cfg.ConfigFilePath)
	if err != nil {
		return nil, err
	}

	cfg.Verbose = getBoolFlag(cmd, "verbose")
	cfg.LogJSON = getBoolFlag(cmd, "log-json")
	cfg.Targets = args

	return cfg, nil
}

// loadSiteConfigs loads the site file. If the user explicitly specified a
// path it must exist; otherwise a missing file yields an empty configuration.
func loadSiteConfigs(explicitPath string) (*config.File, error) {
	configPath := config.FindConfigFile(explicitPath)

	switch {
	case configPath != "":
		siteConfigs, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		return siteConfigs, nil
	case explicitPath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, explicitPath)
	default:
		return &config.File{Sites: make(map[string]config.SiteConfig)}, nil
	}
}

// setupLogger creates the redacting structured logger.
func setupLogger(w io.Writer, verbose, jsonFormat bool) *slog.Logger {
	if jsonFormat {
		return log.NewSecureJSONLogger(w, verbose)
	}
	return log.NewSecureLogger(w, verbose)
}

// runCrawl crawls every configured site and writes a summary per run.
// It returns an error when any site did not produce a corpus.
func runCrawl(ctx context.Context, cfg *config.Config, out, errOut io.Writer, logger *slog.Logger) error {
	sites, err := cfg.Sites()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	if !cfg.VerifyTLS {
		color.New(color.FgYellow, color.Bold).Fprintln(errOut,
			"Warning: TLS certificate verification is disabled (use --verify-tls to enable)")
	}

	logger.Info("starting crawl",
		"sites", len(sites),
		"batchSize", cfg.BatchSize,
		"saveToDB", cfg.SaveToDB,
	)

	// Open database connection if saving is enabled
	var db *database.CrawlDB
	if cfg.SaveToDB {
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "path", db.Path())
	}

	var m *metrics.Metrics
	if cfg.MetricsFile != "" {
		m = metrics.New()
	}

	output, closeOutput, err := openReportOutput(cfg.ReportFile, out)
	if err != nil {
		return err
	}
	defer closeOutput() //nolint:errcheck // Close error after a successful write is not actionable

	writer := newReportWriter(cfg, output, len(sites) > 1)
	factory := newTriggerFactory(cfg, db, m, logger)

	if len(sites) == 1 {
		return runSingleCrawl(ctx, factory, sites[0], writer, errOut)
	}
	return runBatchCrawl(ctx, cfg, factory, sites, writer, errOut, logger)
}

// newTriggerFactory returns a factory that builds a Trigger per site with
// the shared history database and metrics.
func newTriggerFactory(cfg *config.Config, db *database.CrawlDB, m *metrics.Metrics, logger *slog.Logger) pipeline.TriggerFactory {
	return func(site config.Site) (*pipeline.Trigger, error) {
		opts := []pipeline.TriggerOption{pipeline.WithTriggerLogger(logger)}
		if db != nil {
			opts = append(opts, pipeline.WithHistory(db))
		}
		if m != nil {
			opts = append(opts, pipeline.WithMetrics(m, cfg.MetricsFile))
		}
		return pipeline.NewTrigger(cfg, site, opts...)
	}
}

// runSingleCrawl runs one site in the foreground.
func runSingleCrawl(ctx context.Context, factory pipeline.TriggerFactory, site config.Site, writer report.Writer, errOut io.Writer) error {
	trigger, err := factory(site)
	if err != nil {
		return fmt.Errorf("failed to set up crawl for %s: %w", site.Name, err)
	}

	fmt.Fprintf(errOut, "Crawling %s...\n", site.SeedURL)

	run, runErr := trigger.Run(ctx)

	if _, err := writer.Write(run); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if runErr != nil {
		return fmt.Errorf("crawl %s: %w", site.Name, runErr)
	}
	return nil
}

// runBatchCrawl crawls several sites concurrently using BatchProcessor.
func runBatchCrawl(
	ctx context.Context,
	cfg *config.Config,
	factory pipeline.TriggerFactory,
	sites []config.Site,
	writer report.Writer,
	errOut io.Writer,
	logger *slog.Logger,
) error {
	fmt.Fprintf(errOut, "Starting batch crawl of %d sites (concurrency: %d)...\n\n",
		len(sites), cfg.BatchSize)

	startTime := time.Now()

	bp := pipeline.NewBatchProcessor(factory,
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)

	// Reports are written as runs finish; the mutex keeps them whole.
	var mu sync.Mutex
	var unsuccessful int
	err := bp.ProcessBatchWithCallback(ctx, sites, func(run *model.CrawlRun, index int) {
		mu.Lock()
		defer mu.Unlock()

		fmt.Fprintf(errOut, "[%d/%d] %s: %s\n", index+1, len(sites), run.Site, run.Status)
		if !succeeded(run) {
			unsuccessful++
		}

		if _, err := writer.Write(run); err != nil {
			logger.Error("report failed", "site", run.Site, "error", err)
		}
	})

	fmt.Fprintf(errOut, "\nBatch crawl completed in %s\n", time.Since(startTime).Round(time.Millisecond))

	if err != nil {
		return err
	}
	if unsuccessful > 0 {
		return fmt.Errorf("%d of %d sites did not produce a corpus", unsuccessful, len(sites))
	}
	return nil
}

// succeeded reports whether a run left a corpus in place.
func succeeded(run *model.CrawlRun) bool {
	return run.Status == model.RunCompleted || run.Status == model.RunSkippedExisting
}

// openReportOutput returns the destination for reports: path when set,
// otherwise stdout. The returned function closes the file.
func openReportOutput(path string, stdout io.Writer) (io.Writer, func() error, error) {
	if path == "" {
		return stdout, func() error { return nil }, nil
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create report file: %w", err)
	}
	return f, f.Close, nil
}

// newReportWriter picks the report format from cfg. With several sites the
// JSON summary is written one compact object per line.
func newReportWriter(cfg *config.Config, output io.Writer, batch bool) report.Writer {
	switch {
	case cfg.JSONReport:
		opts := []report.JSONWriterOption{report.WithVersion(getVersion())}
		if !batch {
			opts = append(opts, report.WithPrettyPrint())
		}
		return report.NewJSONWriter(output, opts...)
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(output)
	default:
		return report.NewSimpleWriter(output,
			report.WithVerbose(cfg.Verbose),
			report.WithColor(isTerminal(output)),
		)
	}
}

// isTerminal reports whether w is stdout and color output is allowed.
// fatih/color disables color when stdout is not a terminal or NO_COLOR is set.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && f == os.Stdout && !color.NoColor
}
