package main

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/sitecorpus/internal/config"
)

//go:embed templates/sitecorpus.yaml
var configTemplate []byte

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a .sitecorpus site configuration file",
		Long: `Init writes a commented site configuration file.

The file holds defaults shared by every site (depth, boilerplate selectors
and phrases, ignored paths) and a commented example site with its own seed,
corpus path, cookies and URL patterns.

By default the file is .sitecorpus in the current directory. With --global it
is written to the user configuration directory, which crawl reads when no
.sitecorpus is found in the current or home directory.

Examples:
  # Create .sitecorpus in the current directory
  sitecorpus init

  # Create the user-wide configuration
  sitecorpus init --global

  # Write to another path, replacing an existing file
  sitecorpus init -o sites.yaml -f`,
		Args: cobra.NoArgs,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")
	cmd.Flags().BoolP("global", "g", false,
		"Write the user-wide configuration ("+config.XDGConfigFile()+")")
	cmd.MarkFlagsMutuallyExclusive("output", "global")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()

	outputPath, err := flags.GetString("output")
	if err != nil {
		return err
	}
	force, err := flags.GetBool("force")
	if err != nil {
		return err
	}
	global, err := flags.GetBool("global")
	if err != nil {
		return err
	}
	if global {
		outputPath = config.XDGConfigFile()
	}

	if err := writeConfigTemplate(outputPath, force); err != nil {
		return err
	}

	printInitHints(cmd.OutOrStdout(), outputPath)
	return nil
}

// writeConfigTemplate writes the embedded template to path. Without force an
// existing file is left untouched and reported as an error.
func writeConfigTemplate(path string, force bool) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	flag := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if force {
		flag = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}

	// Site files may hold session cookies and auth headers.
	f, err := os.OpenFile(filepath.Clean(path), flag, 0600)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", path)
	}
	if err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}

	if _, err := f.Write(configTemplate); err != nil {
		f.Close() //nolint:errcheck,gosec // the write error is the one to report
		return fmt.Errorf("failed to write configuration file: %w", err)
	}
	return f.Close()
}

func printInitHints(out io.Writer, path string) {
	fmt.Fprintf(out, "Created configuration file: %s\n", path)
	fmt.Fprintln(out, "\nEdit this file to configure per-site settings such as:")
	fmt.Fprintln(out, "  - Seed URL, corpus path and crawl depth")
	fmt.Fprintln(out, "  - Cookies and headers for sites behind a login")
	fmt.Fprintln(out, "  - URL patterns to ignore or follow")
	fmt.Fprintln(out, "  - Boilerplate selectors and phrases")
	fmt.Fprintln(out, "\nThen crawl a configured site with: sitecorpus crawl --site <name>")
}
