package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for sitecorpus.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sitecorpus",
		Short: "Crawl a website into a plain-text corpus",
		Long: `sitecorpus crawls a website from a seed URL, removes page chrome and
boilerplate phrases, and writes the cleaned text of every page as a JSON array
of {"url", "content"} records.

The corpus file doubles as the completion marker: when it already exists the
crawl is skipped. Delete the file to crawl the site again.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON lines")

	// Add subcommands
	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewInspectCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
