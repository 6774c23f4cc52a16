// Package report renders crawl runs, corpus summaries and run comparisons.
//
// This package contains writers for different output formats:
//   - SimpleWriter: Human-readable text output for terminal display
//   - MarkdownWriter: GitHub Flavored Markdown for sharing
//   - JSONWriter: Structured JSON output for tool integration
//
// Design decision: We separate report writing from the data structures
// (which are in the model, corpus and database packages) so new output
// formats can be added without modifying them.
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output.
package report
