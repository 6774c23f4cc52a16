package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nao1215/sitecorpus/internal/config"
	"github.com/nao1215/sitecorpus/internal/corpus"
	"github.com/nao1215/sitecorpus/internal/report"
)

// errEmptyCorpusFile is returned when a corpus file holds no records.
var errEmptyCorpusFile = errors.New("corpus file contains no records")

// NewInspectCmd creates the inspect command.
func NewInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect [corpus-path]",
		Short: "Summarize a corpus file",
		Long: `Inspect reads a corpus file and prints its records with their lengths and
the number of 500-character chunks (50 characters of overlap) the downstream
indexer will cut them into.

Examples:
  # Inspect website_content.json in the current directory
  sitecorpus inspect

  # Inspect another corpus as JSON
  sitecorpus inspect --json corpora/example.com.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: runInspectCmd,
	}

	cmd.Flags().BoolP("json", "j", false,
		"Output summary in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output summary in Markdown format")

	return cmd
}

// runInspectCmd executes the inspect command.
func runInspectCmd(cmd *cobra.Command, args []string) error {
	path := config.DefaultCorpusPath
	if len(args) > 0 {
		path = args[0]
	}

	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	if jsonOutput && markdownOutput {
		return config.ErrConflictingReportFormats
	}

	return inspectCorpus(cmd.OutOrStdout(), path, selectWriter(cmd.OutOrStdout(), jsonOutput, markdownOutput))
}

// inspectCorpus loads the corpus at path and writes its summary.
func inspectCorpus(out io.Writer, path string, writer report.Writer) error {
	exists, err := corpus.Exists(path)
	if err != nil {
		return err
	}
	if !exists {
		fmt.Fprintf(out, "No corpus found at %s\n", path)
		fmt.Fprintln(out, "\nUse 'sitecorpus crawl <seed-url>' to create one.")
		return fmt.Errorf("corpus not found: %s", path)
	}

	records, err := corpus.Load(path)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("%w: %s", errEmptyCorpusFile, path)
	}

	_, err = writer.WriteCorpus(report.NewCorpusSummary(path, records))
	return err
}

// selectWriter returns the report writer for the output format flags.
func selectWriter(out io.Writer, jsonOutput, markdownOutput bool) report.Writer {
	switch {
	case jsonOutput:
		return report.NewJSONWriter(out, report.WithPrettyPrint())
	case markdownOutput:
		return report.NewMarkdownWriter(out)
	default:
		return report.NewSimpleWriter(out, report.WithColor(isTerminal(out)))
	}
}
