// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/wxpipe/wxpipe/internal/issue"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// rootFlagValues holds the persistent flags shared by every command.
type rootFlagValues struct {
	// dir is the project root.
	dir string
	// configPath is the explicit --config value.
	configPath string
	verbose    bool
}

// NewRootCommand builds the full command tree around app.
func NewRootCommand(app *App, flags *rootFlagValues) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "wxpipe",
		Short: "Asset pipeline for mini-program projects",
		Long: TitleStyle.Render("wxpipe") + SubtitleStyle.Render(" - Asset pipeline for mini-program projects") + `

wxpipe routes the files under the source directory through their
category's processing and mirrors the results into the output directory.
Stylesheets are compiled to wxss, views are renamed to wxml, images are
optimized and the modules under npm/ are bundled into npm/index.js.

` + SubtitleStyle.Render("Examples:") + `
  wxpipe build              Run every category once
  wxpipe build --clean      Remove the output directory, then build
  wxpipe dev                Run every category and keep watching
  wxpipe less:watch         Recompile less stylesheets on change
  wxpipe routes             Show which files each category reads`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&flags.dir, "dir", "C", ".", "project root directory")
	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default is <dir>/wxpipe.cue)")
	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable verbose output")

	for _, c := range newCategoryCommands(app, flags) {
		rootCmd.AddCommand(c)
	}
	rootCmd.AddCommand(
		newBuildCommand(app, flags),
		newDevCommand(app, flags),
		newCleanCommand(app, flags),
		newRoutesCommand(app, flags),
		newConfigCommand(app, flags),
	)

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the command tree and exits with its status. It is called by
// main.main().
func Execute() {
	os.Exit(run())
}

// run executes the command tree and returns the process exit code.
func run() int {
	app, err := NewApp(Dependencies{})
	if err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error: ")+err.Error())
		return 1
	}

	flags := &rootFlagValues{}
	rootCmd := NewRootCommand(app, flags)

	// fang overrides rootCmd.Version, hence WithVersion.
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(func(w io.Writer, _ fang.Styles, err error) {
			renderError(w, err, flags.verbose)
		}),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return exitErr.Code
		}
		return 1
	}
	return 0
}

// renderError writes err to w. An ExitError without a cause was already
// reported and prints nothing.
func renderError(w io.Writer, err error, verbose bool) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Err == nil {
		return
	}
	fmt.Fprintln(w, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, verbose))
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
