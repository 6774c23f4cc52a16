package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"

	"github.com/nao1215/sitecorpus/internal/config"
	"github.com/nao1215/sitecorpus/internal/database"
)

// NewHistoryCmd creates the history command.
// This command lists runs stored in the database and compares the pages
// extracted by two of them.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [site]",
		Short: "List recorded crawl runs and compare them",
		Long: `History lists the crawl runs recorded in the database, newest first.

Every run is recorded, including runs skipped because the corpus already
existed. With --diff the pages extracted by two completed runs are compared
by URL and content hash, which shows what changed on the site between crawls.
Only one of the two crawls can have produced the corpus file on disk; delete
the file before re-crawling to record a fresh run.

Examples:
  # List the runs of a site
  sitecorpus history example.com

  # List the runs of every site
  sitecorpus history

  # List all sites in the database
  sitecorpus history --list-domains

  # Compare the two latest completed runs of a site
  sitecorpus history --diff example.com

  # Compare two specific runs
  sitecorpus history --diff --old <run-id> --new <run-id>`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("list-domains", "L", false,
		"List all sites in the database")
	cmd.Flags().BoolP("diff", "D", false,
		"Compare the pages of two completed runs")
	cmd.Flags().String("old", "",
		"Run ID of the older run to compare (requires --new)")
	cmd.Flags().String("new", "",
		"Run ID of the newer run to compare (requires --old)")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the run history database")

	// Output format flags
	cmd.Flags().BoolP("json", "j", false,
		"Output in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output in Markdown format")

	return cmd
}

// historyOptions are the parsed flags of the history command.
type historyOptions struct {
	site           string
	listDomains    bool
	diff           bool
	oldRunID       string
	newRunID       string
	jsonOutput     bool
	markdownOutput bool
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	opts, err := parseHistoryOptions(cmd, args)
	if err != nil {
		return err
	}

	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}

	// Arguments are validated before the database is opened so that a
	// usage error never creates an empty database.
	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	return runHistory(cmd.Context(), db, cmd.OutOrStdout(), opts)
}

func parseHistoryOptions(cmd *cobra.Command, args []string) (*historyOptions, error) {
	opts := &historyOptions{}
	if len(args) > 0 {
		opts.site = strings.ToLower(args[0])
	}

	var err error
	flags := cmd.Flags()
	if opts.listDomains, err = flags.GetBool("list-domains"); err != nil {
		return nil, err
	}
	if opts.diff, err = flags.GetBool("diff"); err != nil {
		return nil, err
	}
	if opts.oldRunID, err = flags.GetString("old"); err != nil {
		return nil, err
	}
	if opts.newRunID, err = flags.GetString("new"); err != nil {
		return nil, err
	}
	if opts.jsonOutput, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if opts.markdownOutput, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}

	if opts.jsonOutput && opts.markdownOutput {
		return nil, config.ErrConflictingReportFormats
	}
	if (opts.oldRunID == "") != (opts.newRunID == "") {
		return nil, errors.New("--old and --new must be given together")
	}
	if opts.oldRunID != "" && !opts.diff {
		return nil, errors.New("--old and --new require --diff")
	}
	if opts.diff && opts.oldRunID == "" && opts.site == "" {
		return nil, errors.New("site is required for --diff (or give --old and --new)")
	}

	return opts, nil
}

// runHistory dispatches to the listing or comparison requested by opts.
func runHistory(ctx context.Context, db *database.CrawlDB, out io.Writer, opts *historyOptions) error {
	switch {
	case opts.listDomains:
		return listDomains(ctx, db, out, opts)
	case opts.diff:
		return diffRuns(ctx, db, out, opts)
	default:
		return listRuns(ctx, db, out, opts)
	}
}

// listDomains lists every site that has a recorded run.
func listDomains(ctx context.Context, db *database.CrawlDB, out io.Writer, opts *historyOptions) error {
	sites, err := db.ListSites(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sites: %w", err)
	}

	if opts.jsonOutput {
		if sites == nil {
			sites = []string{}
		}
		return writeIndentedJSON(out, sites)
	}

	if len(sites) == 0 {
		fmt.Fprintln(out, "No crawled sites found in the database.")
		fmt.Fprintln(out, "\nUse 'sitecorpus crawl <seed-url>' to crawl a site.")
		return nil
	}

	if opts.markdownOutput {
		md := markdown.NewMarkdown(out)
		md.H1("Crawled Sites")
		md.PlainText("")
		md.BulletList(sites...)
		return md.Build()
	}

	fmt.Fprintf(out, "Crawled sites (%d):\n\n", len(sites))
	for _, site := range sites {
		fmt.Fprintf(out, "  • %s\n", site)
	}
	fmt.Fprintln(out, "\nUse 'sitecorpus history <site>' to see the runs of a site.")

	return nil
}

// listRuns lists the runs of one site, or of every site when none is given.
func listRuns(ctx context.Context, db *database.CrawlDB, out io.Writer, opts *historyOptions) error {
	runs, err := db.ListRuns(ctx, opts.site)
	if err != nil {
		return fmt.Errorf("failed to get run history: %w", err)
	}

	if opts.jsonOutput {
		if runs == nil {
			runs = []database.RunSummary{}
		}
		return writeIndentedJSON(out, runs)
	}

	scope := opts.site
	if scope == "" {
		scope = "all sites"
	}

	if len(runs) == 0 {
		fmt.Fprintf(out, "No run history found for %s\n", scope)
		fmt.Fprintln(out, "\nUse 'sitecorpus crawl' to crawl a site.")
		return nil
	}

	if opts.markdownOutput {
		return writeRunsMarkdown(out, scope, runs)
	}

	fmt.Fprintf(out, "Run history for %s (%d runs):\n\n", scope, len(runs))
	fmt.Fprintf(out, "  %-36s  %-20s  %-24s  %-16s  %6s  %10s\n",
		"ID", "Site", "Started", "Status", "Pages", "Characters")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 124))

	for _, r := range runs {
		fmt.Fprintf(out, "  %-36s  %-20s  %-24s  %-16s  %6d  %10d\n",
			r.ID,
			truncate(r.Site, 20),
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Status,
			r.Pages,
			r.Characters,
		)
		if r.ErrorMessage != "" {
			fmt.Fprintf(out, "  %36s  %s\n", "", r.ErrorMessage)
		}
	}

	fmt.Fprintln(out, "\nUse 'sitecorpus history --diff <site>' to compare the latest two completed runs.")

	return nil
}

func writeRunsMarkdown(out io.Writer, scope string, runs []database.RunSummary) error {
	rows := make([][]string, len(runs))
	for i, r := range runs {
		rows[i] = []string{
			"`" + r.ID + "`",
			r.Site,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			string(r.Status),
			strconv.Itoa(r.Pages),
			strconv.Itoa(r.Characters),
			r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String(),
		}
	}

	md := markdown.NewMarkdown(out)
	md.H1("Run History: " + scope)
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"ID", "Site", "Started", "Status", "Pages", "Characters", "Duration"},
		Rows:   rows,
	})
	return md.Build()
}

// diffRuns compares two completed runs: the runs given with --old and --new,
// or the latest two completed runs of the site.
func diffRuns(ctx context.Context, db *database.CrawlDB, out io.Writer, opts *historyOptions) error {
	oldID, newID := opts.oldRunID, opts.newRunID

	if oldID == "" {
		runs, err := db.LatestCompletedRuns(ctx, opts.site, 2)
		if err != nil {
			return fmt.Errorf("failed to get run history: %w", err)
		}
		if len(runs) < 2 {
			return fmt.Errorf("at least 2 completed runs are required for comparison (found %d for %s)",
				len(runs), opts.site)
		}
		// Newest first
		oldID, newID = runs[1].ID, runs[0].ID
	} else {
		for _, id := range []string{oldID, newID} {
			run, err := db.GetRun(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to get run %s: %w", id, err)
			}
			if run == nil {
				return fmt.Errorf("run %s not found (use 'sitecorpus history' to see run IDs)", id)
			}
		}
	}

	diff, err := db.DiffRuns(ctx, oldID, newID)
	if err != nil {
		return fmt.Errorf("failed to compare runs: %w", err)
	}

	_, err = selectWriter(out, opts.jsonOutput, opts.markdownOutput).WriteDiff(diff)
	return err
}

func writeIndentedJSON(out io.Writer, v any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// truncate shortens s to n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
