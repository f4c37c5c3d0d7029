// SPDX-License-Identifier: MPL-2.0

package host

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"toolhost-cli/internal/container"
	"toolhost-cli/internal/issue"
	"toolhost-cli/internal/report"
	"toolhost-cli/internal/runner"
	"toolhost-cli/pkg/command"
)

const (
	// ContainerPackageCache is where the host package cache is mounted.
	ContainerPackageCache = "/root/.nuget/packages"
	// containerFallbackRoot holds one read-only mount per fallback folder.
	containerFallbackRoot = "/root/.nuget/fallback"
	// containerRemoveTimeout bounds the cleanup of a killed container.
	containerRemoveTimeout = 30 * time.Second
)

type (
	// ContainerOptions selects a containerized run.
	ContainerOptions struct {
		// Image runs the command in a fresh container of this image.
		Image string
		// ContainerID execs the command in a running container instead.
		ContainerID string
		// Mounts are added after the working directory and package cache mounts.
		Mounts []container.VolumeMount
		// Env is set in the container below the command's own variables.
		Env map[string]string
	}

	// ExecuteOptions configures one Execute call.
	ExecuteOptions struct {
		// Timeout overrides runner.default_timeout when positive.
		Timeout time.Duration
		// Container, when set, runs the command in a container.
		Container *ContainerOptions
		// OnLine is called for every output line after aggregation.
		OnLine runner.LineFunc
		// Report configures the aggregator.
		Report []report.Option
	}
)

// Execute runs cmd and returns the aggregated build result. Host-side paths in
// cmd are rewritten when the command runs in a container. The only errors are
// failures to start the process (or the container engine); a non-zero exit
// code is reported through the result.
func (c *Context) Execute(ctx context.Context, cmd command.Command, opts ExecuteOptions) (*report.BuildResult, error) {
	if cmd.WorkDir() == "" {
		cmd = cmd.WithWorkDir(c.workDir)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = c.cfg.Runner.DefaultTimeout
	}

	if opts.Container == nil {
		r := runner.New(
			runner.WithLogger(c.logger),
			runner.WithResolver(c.virtual),
			runner.WithKillGrace(c.cfg.Runner.KillGrace),
		)
		result, _, err := c.attempt(ctx, r, cmd, timeout, opts)
		return result, err
	}
	return c.executeInContainer(ctx, cmd, timeout, opts)
}

func (c *Context) executeInContainer(ctx context.Context, cmd command.Command, timeout time.Duration, opts ExecuteOptions) (*report.BuildResult, error) {
	engineType, err := container.ParseEngineType(string(c.cfg.Container.Engine))
	if err != nil {
		return nil, err
	}
	engine, err := c.engines(ctx, engineType)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("select container engine").
			WithResource(string(engineType)).
			WithSuggestions(
				"Install Docker or Podman and check that its daemon is running",
				"Set container.engine in the configuration to the engine you have",
			).
			WithIssue(issue.ContainerEngineNotFoundId).
			Wrap(err).
			BuildError()
	}

	session, err := container.NewSession(engine, c.virtual, c.sessionOptions(opts.Container))
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("prepare container").
			WithIssue(issue.InvalidMountId).
			Wrap(err).
			BuildError()
	}
	defer session.Close()

	// Wrapped commands are already resolved; resolving them again would
	// rewrite the host side of their -v arguments.
	r := runner.New(
		runner.WithLogger(c.logger),
		runner.WithKillGrace(c.cfg.Runner.KillGrace),
	)
	policy := container.RetryPolicy{
		Attempts: c.cfg.Container.Retries,
		Backoff:  c.cfg.Container.RetryBackoff,
	}

	var result *report.BuildResult
	_, err = container.RunWithRetry(ctx, policy, c.logger, func(ctx context.Context, _ int) (*runner.ExecutionOutcome, error) {
		inv := session.Prepare(cmd)
		c.logger.Debug("running in container", "engine", engine.Name(), "argv", inv.Command.String())

		res, outcome, err := c.attempt(ctx, r, inv.Command, timeout, opts)
		if err != nil {
			return nil, err
		}
		if outcome.Cause != runner.CauseExited && inv.Container != "" {
			c.removeContainer(ctx, r, session, inv.Container)
		}
		result = res
		return outcome, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// removeContainer force-removes a container whose client was killed. It runs
// detached from ctx, which is usually what ended the execution.
func (c *Context) removeContainer(ctx context.Context, r *runner.Runner, session *container.Session, name string) {
	rm := session.RemoveCommand(name)
	outcome, err := r.Run(context.WithoutCancel(ctx), rm, runner.RunOptions{Timeout: containerRemoveTimeout})
	switch {
	case err != nil:
		c.logger.Warn("failed to remove container", "container", name, "error", err)
	case !outcome.Succeeded():
		code, _ := outcome.Code()
		c.logger.Warn("failed to remove container", "container", name, "cause", outcome.Cause, "exit_code", code)
	default:
		c.logger.Debug("removed container", "container", name)
	}
}

// attempt runs one execution with a fresh aggregator, so a retried container
// run does not report the failed attempt's output.
func (c *Context) attempt(ctx context.Context, r *runner.Runner, cmd command.Command, timeout time.Duration, opts ExecuteOptions) (*report.BuildResult, *runner.ExecutionOutcome, error) {
	agg := report.New(append([]report.Option{report.WithLogger(c.logger)}, opts.Report...)...)
	parser := c.Parser()

	outcome, err := r.Run(ctx, cmd, runner.RunOptions{
		Timeout: timeout,
		OnLine: func(line runner.Line) {
			agg.ObserveLine(line, parser)
			if opts.OnLine != nil {
				opts.OnLine(line)
			}
		},
	})
	if err != nil {
		return nil, nil, startError(err)
	}
	if outcome.Err != nil {
		c.logger.Warn("output was not fully read", "command", outcome.Command, "error", outcome.Err)
	}
	return agg.FinishOutcome(outcome), outcome, nil
}

// sessionOptions mounts the working directory and the package folders, and
// points the package variables at their in-container locations.
func (c *Context) sessionOptions(o *ContainerOptions) container.SessionOptions {
	workDir := c.cfg.Container.WorkDir
	so := container.SessionOptions{
		Image:       o.Image,
		ContainerID: o.ContainerID,
		WorkDir:     workDir,
		Env:         make(map[string]string),
	}
	if o.ContainerID == "" {
		so.Volumes = append(so.Volumes, container.VolumeMount{HostPath: c.workDir, ContainerPath: workDir})
		if cache, ok := c.PackageCache(); ok {
			so.Volumes = append(so.Volumes, container.VolumeMount{HostPath: cache, ContainerPath: ContainerPackageCache})
			so.Env[c.cfg.Env.PackageCacheVar] = ContainerPackageCache
		}
		var fallback []string
		for i, dir := range c.FallbackPackages() {
			target := path.Join(containerFallbackRoot, strconv.Itoa(i))
			so.Volumes = append(so.Volumes, container.VolumeMount{HostPath: dir, ContainerPath: target, ReadOnly: true})
			fallback = append(fallback, target)
		}
		if len(fallback) > 0 {
			so.Env[c.cfg.Env.FallbackPackagesVar] = strings.Join(fallback, FallbackSeparator)
		}
	}
	so.Volumes = append(so.Volumes, o.Mounts...)
	for k, v := range o.Env {
		so.Env[k] = v
	}
	return so
}

// startError attaches catalog guidance to a process start failure.
func startError(err error) error {
	var pse *runner.ProcessStartError
	if !errors.As(err, &pse) {
		return err
	}
	ec := issue.NewErrorContext().
		WithOperation("start tool").
		WithResource(pse.Executable).
		Wrap(err)
	switch {
	case pse.NotFound():
		ec.WithIssue(issue.ExecutableNotFoundId).
			WithSuggestions(
				fmt.Sprintf("Check that %q is installed and on PATH", pse.Executable),
				"Pass the executable as an absolute path",
			)
	case pse.PermissionDenied():
		ec.WithIssue(issue.PermissionDeniedId).
			WithSuggestions(
				"Check the file's execute permission",
				"Check that the working directory is readable",
			)
	}
	return ec.BuildError()
}
