// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"toolhost-cli/internal/issue"

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

// newRootCommand creates the command tree bound to app.
func newRootCommand(app *App) *cobra.Command {
	var (
		verbose bool
		cfgFile string
	)

	root := &cobra.Command{
		Use:   "toolhost",
		Short: "Run developer tools and turn their output into build reports",
		Long: TitleStyle.Render("toolhost") + SubtitleStyle.Render(" - run developer tools and report what they did") + `

toolhost runs compilers, package managers, and test runners as child
processes, on the host or inside a Docker/Podman container, and turns
their output into a structured build result: test outcomes from
##teamcity[...] service messages, compiler diagnostics, and stderr.

` + SubtitleStyle.Render("Examples:") + `
  toolhost run -- dotnet test App.sln           Run and summarize tests
  toolhost run --timeout 20m -- make check      Kill the tree after 20 minutes
  toolhost run --container mcr.microsoft.com/dotnet/sdk:8.0 -- dotnet build
  toolhost parse build.log                      Summarize captured output
  toolhost config show                          Show current configuration`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.load(cmd.Context(), cfgFile, verbose)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			app.close()
		},
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/toolhost/config.cue)")

	root.AddCommand(newRunCommand(app))
	root.AddCommand(newParseCommand(app))
	root.AddCommand(newConfigCommand(app))
	root.AddCommand(newVersionCommand(app))

	return root
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI and exits the process with the resulting code.
// This is called by main.main().
func Execute() {
	app := NewApp(Dependencies{})
	defer app.close()

	root := newRootCommand(app)
	if err := fang.Execute(
		context.Background(),
		root,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(app.handleError),
	); err != nil {
		app.close()
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		renderGuidance(app.stderr, err)
		os.Exit(1)
	}
}

// handleError prints err for the user. Errors carrying suggestions are shown
// with them; everything else gets fang's default rendering.
func (a *App) handleError(w io.Writer, styles fang.Styles, err error) {
	var ae *issue.ActionableError
	if !errors.As(err, &ae) || !ae.HasSuggestions() {
		fang.DefaultErrorHandler(w, styles, err)
		return
	}
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("Error:"), formatErrorForDisplay(err, a.verbose))
}

// formatErrorForDisplay formats an error for user display.
// ActionableErrors show their suggestions, and in verbose mode the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}

// renderGuidance prints the catalog entry attached to err, if any.
func renderGuidance(w io.Writer, err error) {
	iss, ok := issue.Guidance(err)
	if !ok {
		return
	}
	rendered, rerr := iss.Render("dark")
	if rerr != nil {
		return
	}
	fmt.Fprint(w, rendered)
}
