package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/sitecorpus/internal/corpus"
	"github.com/nao1215/sitecorpus/internal/database"
	"github.com/nao1215/sitecorpus/internal/model"
)

// JSONWriter outputs reports in JSON format.
// This format is designed for tool integration and programmatic processing.
//
// Design decision: We use standard encoding/json rather than a third-party
// JSON library because the corpus itself is plain encoding/json output and
// both should follow the same field conventions.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	// When false, output is compact (no extra whitespace).
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string

	// version is recorded in run reports when set.
	version string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
// This is a convenience wrapper for WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// WithVersion records the tool version in run reports.
func WithVersion(version string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.version = version
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// RunReport wraps a run with output-only fields.
//
// Design decision: We wrap the run rather than adding fields to CrawlRun
// because the corpus statistics are derived data that the history database
// does not need to store.
type RunReport struct {
	// Version is the sitecorpus version that produced the report.
	Version string `json:"version,omitempty"`

	// Run is the crawl run, including per-page outcomes.
	Run *model.CrawlRun `json:"run"`

	// Corpus summarizes the records written, for completed runs only.
	Corpus *corpus.Stats `json:"corpus,omitempty"`
}

// NewRunReport wraps run for JSON output.
func NewRunReport(run *model.CrawlRun, version string) *RunReport {
	r := &RunReport{Version: version, Run: run}
	if run.Status == model.RunCompleted && len(run.Records) > 0 {
		stats := corpus.ComputeStats(run.Records)
		r.Corpus = &stats
	}
	return r
}

// Write outputs the run report in JSON format.
func (w *JSONWriter) Write(run *model.CrawlRun) (int, error) {
	return w.writeJSON(NewRunReport(run, w.version))
}

// WriteCorpus outputs the corpus summary in JSON format.
func (w *JSONWriter) WriteCorpus(summary *CorpusSummary) (int, error) {
	return w.writeJSON(summary)
}

// WriteDiff outputs the run diff in JSON format.
func (w *JSONWriter) WriteDiff(diff *database.RunDiff) (int, error) {
	return w.writeJSON(diff)
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return 0, err
	}

	// Add trailing newline for better terminal output
	data = append(data, '\n')

	return w.output.Write(data)
}
