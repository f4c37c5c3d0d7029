// SPDX-License-Identifier: MPL-2.0

package container

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"maps"
	"os/exec"
	"slices"

	"toolhost-cli/pkg/command"
)

// ErrImageRequired is returned by RunOptions.Validate when no image is set.
var ErrImageRequired = errors.New("container image is required")

type (
	// ExecCommandFunc is the function signature for creating exec.Cmd.
	// This allows injection of mock implementations for testing.
	ExecCommandFunc func(ctx context.Context, name string, arg ...string) *exec.Cmd

	// VolumeFormatFunc formats a volume mount for the -v flag.
	// Podman uses this to add SELinux labels.
	VolumeFormatFunc func(volume VolumeMount) string

	// BaseCLIEngineOption configures a BaseCLIEngine.
	BaseCLIEngineOption func(*BaseCLIEngine)

	// BaseCLIEngine provides the argument construction shared by Docker and
	// Podman. Concrete engines embed it and add their probes.
	BaseCLIEngine struct {
		name            string
		binaryPath      string
		execCommand     ExecCommandFunc
		volumeFormatter VolumeFormatFunc
	}

	// RunOptions describes one container invocation.
	RunOptions struct {
		// Image is the image to run.
		Image string
		// Command is the argv run inside the container.
		Command []string
		// WorkDir is the working directory inside the container.
		WorkDir string
		// Env holds variables set inside the container.
		Env map[string]string
		// Volumes are bind mounts.
		Volumes []VolumeMount
		// Remove automatically removes the container after exit.
		Remove bool
		// Name is the container name.
		Name string
		// Interactive keeps stdin open.
		Interactive bool
		// ExtraHosts are additional host-to-IP mappings (e.g., "host.docker.internal:host-gateway").
		ExtraHosts []string
	}
)

// Validate returns an error if the options cannot produce a valid invocation.
func (o RunOptions) Validate() error {
	var errs []error
	if o.Image == "" {
		errs = append(errs, ErrImageRequired)
	}
	for _, v := range o.Volumes {
		if err := v.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WithName sets the engine name used in error messages.
func WithName(name string) BaseCLIEngineOption {
	return func(e *BaseCLIEngine) { e.name = name }
}

// WithBinaryPath overrides the binary found on PATH.
func WithBinaryPath(path string) BaseCLIEngineOption {
	return func(e *BaseCLIEngine) { e.binaryPath = path }
}

// WithExecCommand sets a custom exec command function for testing.
func WithExecCommand(fn ExecCommandFunc) BaseCLIEngineOption {
	return func(e *BaseCLIEngine) { e.execCommand = fn }
}

// WithVolumeFormatter sets a custom volume formatter function.
func WithVolumeFormatter(fn VolumeFormatFunc) BaseCLIEngineOption {
	return func(e *BaseCLIEngine) { e.volumeFormatter = fn }
}

// NewBaseCLIEngine creates a base engine with the given binary path.
func NewBaseCLIEngine(binaryPath string, opts ...BaseCLIEngineOption) *BaseCLIEngine {
	e := &BaseCLIEngine{
		binaryPath:      binaryPath,
		execCommand:     exec.CommandContext,
		volumeFormatter: VolumeMount.String,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// BinaryPath returns the path to the container engine binary.
func (e *BaseCLIEngine) BinaryPath() string {
	return e.binaryPath
}

// RunArgs constructs arguments for a container run command.
//
// Generated command: <binary> run [options] <image> [command...]
func (e *BaseCLIEngine) RunArgs(opts RunOptions) []string {
	args := []string{"run"}

	if opts.Remove {
		args = append(args, "--rm")
	}
	if opts.Name != "" {
		args = append(args, "--name", opts.Name)
	}
	if opts.WorkDir != "" {
		args = append(args, "-w", opts.WorkDir)
	}
	if opts.Interactive {
		args = append(args, "-i")
	}
	args = appendEnv(args, opts.Env)
	for _, v := range opts.Volumes {
		args = append(args, "-v", e.volumeFormatter(v))
	}
	for _, h := range opts.ExtraHosts {
		args = append(args, "--add-host", h)
	}

	args = append(args, opts.Image)
	return append(args, opts.Command...)
}

// ExecArgs constructs arguments for a container exec command.
//
// Generated command: <binary> exec [options] <container> <command...>
func (e *BaseCLIEngine) ExecArgs(containerID string, opts RunOptions) []string {
	args := []string{"exec"}

	if opts.Interactive {
		args = append(args, "-i")
	}
	if opts.WorkDir != "" {
		args = append(args, "-w", opts.WorkDir)
	}
	args = appendEnv(args, opts.Env)

	args = append(args, containerID)
	return append(args, opts.Command...)
}

// RemoveArgs constructs arguments for a container remove command.
func (e *BaseCLIEngine) RemoveArgs(containerID string, force bool) []string {
	args := []string{"rm"}
	if force {
		args = append(args, "-f")
	}
	return append(args, containerID)
}

// Command returns a command invoking the engine binary with args. Every
// argument is kept verbatim, including empty ones.
func (e *BaseCLIEngine) Command(args []string) command.Command {
	cmd := command.New(e.binaryPath).WithDisplayName(e.name)
	for _, a := range args {
		cmd = cmd.WithRawArg(a)
	}
	return cmd
}

// RunCommandWithOutput executes the engine binary with stdout captured.
func (e *BaseCLIEngine) RunCommandWithOutput(ctx context.Context, args ...string) (string, error) {
	cmd := e.execCommand(ctx, e.binaryPath, args...)
	var out bytes.Buffer
	cmd.Stdout = &out

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("command %s %v failed: %w", e.binaryPath, args, err)
	}
	return out.String(), nil
}

// appendEnv adds -e flags in name order so the argv is deterministic.
func appendEnv(args []string, env map[string]string) []string {
	for _, k := range slices.Sorted(maps.Keys(env)) {
		args = append(args, "-e", k+"="+env[k])
	}
	return args
}
