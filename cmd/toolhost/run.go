// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"toolhost-cli/internal/config"
	"toolhost-cli/internal/container"
	"toolhost-cli/internal/host"
	"toolhost-cli/internal/issue"
	"toolhost-cli/internal/report"
	"toolhost-cli/internal/runner"
	"toolhost-cli/pkg/command"

	"github.com/spf13/cobra"
)

type runFlags struct {
	timeout     time.Duration
	image       string
	containerID string
	mounts      []string
	env         []string
	properties  []string
	workDir     string
	format      string
	echo        bool
	keepUnknown bool
}

func newRunCommand(app *App) *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run [flags] -- <executable> [args...]",
		Short: "Run a tool and report its build and test results",
		Long: `Run a tool as a child process and aggregate its output.

Lines carrying ##teamcity[...] service messages drive the test report,
compiler diagnostics become warnings and failures with their location,
and every other line is kept as an informational or stderr message.

With --container the tool runs in a Docker or Podman container. The
working directory is mounted at container.workdir and the package cache
named by env.package_cache_var is mounted alongside it; absolute host
paths among the arguments are rewritten to their container locations.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTool(cmd, app, f, args)
		},
	}
	cmd.Flags().SetInterspersed(false)

	fl := cmd.Flags()
	fl.DurationVar(&f.timeout, "timeout", 0, "kill the process tree after this long (default runner.default_timeout)")
	fl.StringVar(&f.image, "container", "", "run in a fresh container of this image")
	fl.StringVar(&f.containerID, "exec", "", "run in this already running container")
	fl.StringArrayVar(&f.mounts, "mount", nil, "additional bind mount HOST:CONTAINER[:ro,z]")
	fl.StringArrayVarP(&f.env, "env", "e", nil, "set an environment variable NAME=VALUE")
	fl.StringArrayVarP(&f.properties, "property", "p", nil, "set a host property NAME=VALUE")
	fl.StringVarP(&f.workDir, "workdir", "C", "", "working directory (default current directory)")
	fl.StringVar(&f.format, "format", "", "report format: text, json, or yaml (default report.format)")
	fl.BoolVar(&f.echo, "echo", false, "stream tool output while it runs")
	fl.BoolVar(&f.keepUnknown, "keep-unknown", false, "keep unrecognized service messages in the report")
	cmd.MarkFlagsMutuallyExclusive("container", "exec")

	return cmd
}

func runTool(cmd *cobra.Command, app *App, f runFlags, args []string) error {
	format := config.ReportFormat(f.format)
	if format == "" {
		format = app.cfg.Report.Format
	}
	if err := format.Validate(); err != nil {
		return err
	}

	env, err := parsePairs("env", f.env)
	if err != nil {
		return err
	}
	props, err := parsePairs("property", f.properties)
	if err != nil {
		return err
	}

	workDir := f.workDir
	if workDir != "" {
		if workDir, err = filepath.Abs(workDir); err != nil {
			return err
		}
	}

	h, err := app.newHost(host.WithWorkDir(workDir), host.WithArgs(args...), host.WithProperties(props))
	if err != nil {
		return err
	}

	tool := buildCommand(args, env)

	opts := host.ExecuteOptions{Timeout: f.timeout}
	if f.keepUnknown {
		opts.Report = append(opts.Report, report.KeepUnknown())
	}
	if f.echo {
		var mu sync.Mutex
		opts.OnLine = func(l runner.Line) {
			mu.Lock()
			defer mu.Unlock()
			if l.Origin == runner.Stderr {
				fmt.Fprintln(app.stderr, l.Text)
				return
			}
			fmt.Fprintln(app.stdout, l.Text)
		}
	}
	if f.image != "" || f.containerID != "" {
		mounts := make([]container.VolumeMount, 0, len(f.mounts))
		for _, spec := range f.mounts {
			m, err := container.ParseVolumeMount(spec)
			if err != nil {
				return issue.NewErrorContext().
					WithOperation("parse mount").
					WithResource(spec).
					WithIssue(issue.InvalidMountId).
					Wrap(err).
					BuildError()
			}
			mounts = append(mounts, m)
		}
		opts.Container = &host.ContainerOptions{Image: f.image, ContainerID: f.containerID, Mounts: mounts}
	}

	emitter := h.Emitter(app.stdout)
	_ = emitter.Emit("blockOpened", "name", tool.DisplayName())
	res, err := h.Execute(cmd.Context(), tool, opts)
	_ = emitter.Emit("blockClosed", "name", tool.DisplayName())
	if err != nil {
		return err
	}

	if err := renderResult(app.stdout, res, format); err != nil {
		return err
	}
	return exitErrorFor(cmd, res)
}

// buildCommand turns the argument list into a command. Absolute paths become
// path arguments so that container runs rewrite them.
func buildCommand(args []string, env map[string]string) command.Command {
	tool := command.New(args[0])
	for _, a := range args[1:] {
		if filepath.IsAbs(a) {
			tool = tool.WithPathArg(a)
			continue
		}
		tool = tool.WithRawArg(a)
	}
	return tool.WithEnvMap(env).WithDisplayName(filepath.Base(args[0]))
}

// exitErrorFor maps an unsuccessful result to the process exit code.
func exitErrorFor(cmd *cobra.Command, res *report.BuildResult) error {
	err := res.EnsureSuccess()
	if err == nil {
		return nil
	}
	cmd.SilenceErrors = true
	code := 1
	switch {
	case res.ExitCode != nil:
		code = int(*res.ExitCode)
	case errors.Is(err, runner.ErrTimeoutExpired):
		code = ExitTimeout
	case errors.Is(err, runner.ErrCancelled):
		code = ExitCancelled
	}
	return &ExitError{Code: code, Err: err}
}

// parsePairs splits NAME=VALUE flag values.
func parsePairs(flag string, values []string) (map[string]string, error) {
	out := make(map[string]string, len(values))
	for _, v := range values {
		name, value, ok := strings.Cut(v, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("--%s %q: expected NAME=VALUE", flag, v)
		}
		out[name] = value
	}
	return out, nil
}
