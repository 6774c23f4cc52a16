package report

import (
	"io"

	"github.com/nao1215/sitecorpus/internal/database"
	"github.com/nao1215/sitecorpus/internal/model"
)

// Writer defines the interface for report output.
// Implementations render crawl runs, corpus summaries and run diffs in
// various formats.
//
// Design decision: We use an interface to allow different output formats
// and destinations. This enables writing to files or stdout with the same
// API, and lets the CLI pick a format once per invocation.
type Writer interface {
	// Write outputs the summary of one crawl run.
	// Returns the number of bytes written and any error encountered.
	Write(run *model.CrawlRun) (int, error)

	// WriteCorpus outputs the summary of a corpus file.
	WriteCorpus(summary *CorpusSummary) (int, error)

	// WriteDiff outputs the comparison of two runs.
	WriteDiff(diff *database.RunDiff) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
//
// Design decision: We implement this as a separate type rather than
// using io.MultiWriter because each destination may want a different
// format, for example a colored summary on the terminal and JSON in a file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the run to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(run *model.CrawlRun) (int, error) {
	return m.each(func(w Writer) (int, error) { return w.Write(run) })
}

// WriteCorpus outputs the corpus summary to all configured Writers.
func (m *MultiWriter) WriteCorpus(summary *CorpusSummary) (int, error) {
	return m.each(func(w Writer) (int, error) { return w.WriteCorpus(summary) })
}

// WriteDiff outputs the diff to all configured Writers.
func (m *MultiWriter) WriteDiff(diff *database.RunDiff) (int, error) {
	return m.each(func(w Writer) (int, error) { return w.WriteDiff(diff) })
}

func (m *MultiWriter) each(write func(Writer) (int, error)) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := write(w)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// statusText describes a run's final state in one line.
func statusText(run *model.CrawlRun) string {
	switch run.Status {
	case model.RunCompleted:
		return "Completed"
	case model.RunSkippedExisting:
		return "Skipped (corpus already present)"
	case model.RunEmpty:
		return "Empty - " + run.ErrorMessage
	case model.RunFailed:
		return "Failed - " + run.ErrorMessage
	default:
		return string(run.Status)
	}
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
