package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/nao1215/sitecorpus/internal/database"
	"github.com/nao1215/sitecorpus/internal/model"
)

const ruleWidth = 70

// SimpleWriter outputs human-readable text reports for terminal display.
//
// Design decision: Output is plain text unless WithColor is set, so it can
// be piped to files or other tools. The CLI enables color only when stdout
// is a terminal.
type SimpleWriter struct {
	baseWriter

	// verbose adds per-page timing and link counts.
	verbose bool

	// color enables ANSI colors for status markers.
	color bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// WithColor enables colored status markers.
func WithColor(enabled bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.color = enabled
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// paint applies attrs to s when color is enabled.
func (w *SimpleWriter) paint(s string, attrs ...color.Attribute) string {
	if !w.color {
		return s
	}
	c := color.New(attrs...)
	c.EnableColor()
	return c.Sprint(s)
}

// Write outputs the run summary in human-readable format.
func (w *SimpleWriter) Write(run *model.CrawlRun) (int, error) {
	var sb strings.Builder

	w.writeBanner(&sb, "SITECORPUS CRAWL REPORT")
	w.writeHeader(&sb, run)

	if run.Status != model.RunSkippedExisting {
		w.writeStats(&sb, run)
		w.writePages(&sb, run)
	}

	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")

	return w.output.Write([]byte(sb.String()))
}

func (w *SimpleWriter) writeBanner(sb *strings.Builder, title string) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	pad := max((ruleWidth-len(title))/2, 0)
	sb.WriteString(strings.Repeat(" ", pad) + title + "\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n\n")
}

func (w *SimpleWriter) writeSection(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(title + "\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n\n")
}

// writeHeader writes the run identification and status.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, run *model.CrawlRun) {
	fmt.Fprintf(sb, "Site:       %s\n", run.Site)
	fmt.Fprintf(sb, "Seed URL:   %s\n", run.SeedURL)
	fmt.Fprintf(sb, "Corpus:     %s\n", run.CorpusPath)
	fmt.Fprintf(sb, "Started:    %s\n", run.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(sb, "Duration:   %s\n", run.Duration().Round(time.Millisecond))
	fmt.Fprintf(sb, "Status:     %s\n", w.paint(statusText(run), statusColor(run.Status)))
	sb.WriteString("\n")
}

func statusColor(status model.RunStatus) color.Attribute {
	switch status {
	case model.RunCompleted:
		return color.FgGreen
	case model.RunSkippedExisting:
		return color.FgCyan
	case model.RunEmpty:
		return color.FgYellow
	default:
		return color.FgRed
	}
}

// writeStats writes the crawl counters.
func (w *SimpleWriter) writeStats(sb *strings.Builder, run *model.CrawlRun) {
	w.writeSection(sb, "CRAWL SUMMARY")

	s := run.Stats
	fmt.Fprintf(sb, "  Fetched:    %d (max depth %d of %d)\n", s.Fetched, s.MaxDepthReached, run.MaxDepth)
	fmt.Fprintf(sb, "  Extracted:  %d\n", s.Extracted)
	fmt.Fprintf(sb, "  Skipped:    %d\n", s.Skipped)
	fmt.Fprintf(sb, "  Failed:     %d\n", s.Failed)
	fmt.Fprintf(sb, "  Dropped:    %d visited, %d too deep, %d filtered\n",
		s.DroppedVisited, s.DroppedDepth, s.DroppedFiltered)
	if len(run.Records) > 0 {
		fmt.Fprintf(sb, "  Characters: %d\n", run.TotalCharacters())
	}
	sb.WriteString("\n")
}

// writePages lists every page outcome in processing order.
func (w *SimpleWriter) writePages(sb *strings.Builder, run *model.CrawlRun) {
	if len(run.Outcomes) == 0 {
		return
	}

	w.writeSection(sb, "PAGES")

	for _, o := range run.Outcomes {
		fmt.Fprintf(sb, "  %s %s\n", w.outcomeMarker(o.Kind), o.URL)
		fmt.Fprintf(sb, "      depth %d, %s\n", o.Depth, o.Describe())
		if w.verbose {
			fmt.Fprintf(sb, "      %d links scheduled, %s\n", o.LinksFound, o.Duration.Round(time.Millisecond))
		}
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) outcomeMarker(kind model.OutcomeKind) string {
	switch kind {
	case model.OutcomeExtracted:
		return w.paint("[+]", color.FgGreen)
	case model.OutcomeSkipped:
		return w.paint("[-]", color.FgYellow)
	case model.OutcomeFailed:
		return w.paint("[!]", color.FgRed, color.Bold)
	default:
		return "[?]"
	}
}

// WriteCorpus outputs the corpus summary in human-readable format.
func (w *SimpleWriter) WriteCorpus(summary *CorpusSummary) (int, error) {
	var sb strings.Builder

	w.writeBanner(&sb, "SITECORPUS CORPUS")

	s := summary.Stats
	fmt.Fprintf(&sb, "File:              %s\n", summary.Path)
	fmt.Fprintf(&sb, "Pages:             %d\n", s.Pages)
	fmt.Fprintf(&sb, "Characters:        %d\n", s.Characters)
	fmt.Fprintf(&sb, "Shortest/Longest:  %d / %d\n", s.Shortest, s.Longest)
	fmt.Fprintf(&sb, "Estimated chunks:  %d (%d-character windows, %d overlap)\n",
		s.EstimatedChunks, summary.ChunkSize, summary.ChunkOverlap)
	sb.WriteString("\n")

	if len(summary.Pages) > 0 {
		w.writeSection(&sb, "PAGES")
		for _, p := range summary.Pages {
			fmt.Fprintf(&sb, "  %7d chars %4d chunks  %s\n", p.Characters, p.EstimatedChunks, p.URL)
		}
		sb.WriteString("\n")
	}

	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")

	return w.output.Write([]byte(sb.String()))
}

// WriteDiff outputs the run diff in human-readable format.
func (w *SimpleWriter) WriteDiff(diff *database.RunDiff) (int, error) {
	var sb strings.Builder

	w.writeBanner(&sb, "SITECORPUS RUN DIFF")

	fmt.Fprintf(&sb, "Previous run: %s\n", diff.OldRunID)
	fmt.Fprintf(&sb, "Current run:  %s\n\n", diff.NewRunID)

	fmt.Fprintf(&sb, "  Added:     %d\n", len(diff.Added))
	fmt.Fprintf(&sb, "  Removed:   %d\n", len(diff.Removed))
	fmt.Fprintf(&sb, "  Changed:   %d\n", len(diff.Changed))
	fmt.Fprintf(&sb, "  Unchanged: %d\n\n", diff.Unchanged)

	if !diff.HasChanges() {
		sb.WriteString("  No content changes between the two runs.\n\n")
	}

	w.writeURLList(&sb, "ADDED", w.paint("[+]", color.FgGreen), diff.Added)
	w.writeURLList(&sb, "REMOVED", w.paint("[-]", color.FgRed), diff.Removed)
	w.writeURLList(&sb, "CHANGED", w.paint("[~]", color.FgYellow), diff.Changed)

	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")

	return w.output.Write([]byte(sb.String()))
}

func (w *SimpleWriter) writeURLList(sb *strings.Builder, title, marker string, urls []string) {
	if len(urls) == 0 {
		return
	}
	w.writeSection(sb, title)
	for _, u := range urls {
		fmt.Fprintf(sb, "  %s %s\n", marker, u)
	}
	sb.WriteString("\n")
}
