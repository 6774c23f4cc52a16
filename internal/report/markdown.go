package report

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/sitecorpus/internal/database"
	"github.com/nao1215/sitecorpus/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing, for example as a
// CI job summary after a scheduled crawl.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the run summary in Markdown format.
func (w *MarkdownWriter) Write(run *model.CrawlRun) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, run)
	w.writeAlert(md, run)

	if run.Status != model.RunSkippedExisting {
		w.writeSummary(md, run)
		w.writePages(md, run)
	}

	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the run information table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, run *model.CrawlRun) {
	md.H1("Crawl Report: " + run.Site)
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Seed URL", "`" + run.SeedURL + "`"},
			{"Corpus", "`" + run.CorpusPath + "`"},
			{"Run ID", "`" + run.ID + "`"},
			{"Started", run.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", run.Duration().Round(time.Millisecond).String()},
			{"Status", statusText(run)},
		},
	})
	md.PlainText("")
}

// writeAlert writes an alert matching the run status.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, run *model.CrawlRun) {
	switch run.Status {
	case model.RunCompleted:
		md.Tipf("Corpus written with %d page(s).", len(run.Records))
	case model.RunSkippedExisting:
		md.Note("A corpus already exists for this site. Delete the file to crawl again.")
	case model.RunEmpty:
		md.Warningf("No page produced content: %s", run.ErrorMessage)
	default:
		md.Cautionf("Crawl failed: %s", run.ErrorMessage)
	}
	md.PlainText("")
}

// writeSummary writes the crawl counters and the outcome chart.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, run *model.CrawlRun) {
	s := run.Stats

	md.H2("Crawl Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Count"},
		Rows: [][]string{
			{"Fetched", strconv.Itoa(s.Fetched)},
			{"Extracted", strconv.Itoa(s.Extracted)},
			{"Skipped", strconv.Itoa(s.Skipped)},
			{"Failed", strconv.Itoa(s.Failed)},
			{"Dropped (visited)", strconv.Itoa(s.DroppedVisited)},
			{"Dropped (depth)", strconv.Itoa(s.DroppedDepth)},
			{"Dropped (filtered)", strconv.Itoa(s.DroppedFiltered)},
			{"Max depth reached", strconv.Itoa(s.MaxDepthReached) + " of " + strconv.Itoa(run.MaxDepth)},
			{"**Characters**", "**" + strconv.Itoa(run.TotalCharacters()) + "**"},
		},
	})
	md.PlainText("")

	if s.Fetched > 0 {
		w.writePieChart(md, s)
	}
}

// writePieChart writes a mermaid pie chart of page outcomes.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, s model.CrawlStats) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Page Outcomes"),
		piechart.WithShowData(true),
	)

	if s.Extracted > 0 {
		chart.LabelAndIntValue("Extracted", uint64(s.Extracted))
	}
	if s.Skipped > 0 {
		chart.LabelAndIntValue("Skipped", uint64(s.Skipped))
	}
	if s.Failed > 0 {
		chart.LabelAndIntValue("Failed", uint64(s.Failed))
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writePages writes one table row per processed page.
func (w *MarkdownWriter) writePages(md *markdown.Markdown, run *model.CrawlRun) {
	md.H2("Pages")
	md.PlainText("")

	if len(run.Outcomes) == 0 {
		md.PlainText("No pages were fetched.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(run.Outcomes))
	for i, o := range run.Outcomes {
		rows[i] = []string{
			truncateString(o.URL, 60),
			strconv.Itoa(o.Depth),
			o.Kind.String(),
			truncateString(o.Describe(), 60),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"URL", "Depth", "Outcome", "Detail"},
		Rows:   rows,
	})
	md.PlainText("")
}

// WriteCorpus outputs the corpus summary in Markdown format.
func (w *MarkdownWriter) WriteCorpus(summary *CorpusSummary) (int, error) {
	md := markdown.NewMarkdown(w.output)
	s := summary.Stats

	md.H1("Corpus: " + summary.Path)
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Pages", strconv.Itoa(s.Pages)},
			{"Characters", strconv.Itoa(s.Characters)},
			{"Shortest", strconv.Itoa(s.Shortest)},
			{"Longest", strconv.Itoa(s.Longest)},
			{"Estimated chunks", strconv.Itoa(s.EstimatedChunks)},
		},
	})
	md.PlainText("")
	md.Notef("Chunk estimate assumes %d-character windows with %d characters of overlap.",
		summary.ChunkSize, summary.ChunkOverlap)
	md.PlainText("")

	if len(summary.Pages) > 0 {
		md.H2("Pages")
		md.PlainText("")

		rows := make([][]string, len(summary.Pages))
		for i, p := range summary.Pages {
			rows[i] = []string{
				truncateString(p.URL, 70),
				strconv.Itoa(p.Characters),
				strconv.Itoa(p.EstimatedChunks),
			}
		}
		md.Table(markdown.TableSet{
			Header: []string{"URL", "Characters", "Chunks"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteDiff outputs the run diff in Markdown format.
func (w *MarkdownWriter) WriteDiff(diff *database.RunDiff) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Run Comparison")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Change", "Pages"},
		Rows: [][]string{
			{"Added", strconv.Itoa(len(diff.Added))},
			{"Removed", strconv.Itoa(len(diff.Removed))},
			{"Changed", strconv.Itoa(len(diff.Changed))},
			{"Unchanged", strconv.Itoa(diff.Unchanged)},
		},
	})
	md.PlainText("")
	md.PlainTextf("Previous run `%s`, current run `%s`.", diff.OldRunID, diff.NewRunID)
	md.PlainText("")

	if !diff.HasChanges() {
		md.Tip("No content changes between the two runs.")
		md.PlainText("")
	}

	for _, section := range []struct {
		title string
		urls  []string
	}{
		{"Added Pages", diff.Added},
		{"Removed Pages", diff.Removed},
		{"Changed Pages", diff.Changed},
	} {
		if len(section.urls) == 0 {
			continue
		}
		md.H2(section.title)
		md.PlainText("")
		md.BulletList(section.urls...)
		md.PlainText("")
	}

	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [sitecorpus](https://github.com/nao1215/sitecorpus)*")
}
