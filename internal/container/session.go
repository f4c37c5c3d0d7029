// SPDX-License-Identifier: MPL-2.0

package container

import (
	"errors"
	"fmt"
	"maps"
	"strings"
	"sync"

	"toolhost-cli/internal/vpath"
	"toolhost-cli/pkg/command"

	"github.com/google/uuid"
)

// containerNamePrefix starts the name of every container a Session runs.
const containerNamePrefix = "toolhost-"

// ErrNoTarget is returned by NewSession when neither an image nor a container is given.
var ErrNoTarget = errors.New("either an image or a container id is required")

type (
	// SessionOptions configures a Session.
	SessionOptions struct {
		// Image runs every command in a fresh container of this image.
		Image string
		// ContainerID, when set, execs every command in this running container
		// instead of starting new ones.
		ContainerID string
		// Volumes are bind mounts; each one also becomes a path mapping.
		Volumes []VolumeMount
		// WorkDir is the in-container working directory used when a command
		// does not set one.
		WorkDir string
		// Env is set in the container below each command's own variables.
		Env        map[string]string
		ExtraHosts []string
	}

	// Session runs commands in containers of one engine and image. The
	// session's mounts live on a fork of the parent virtual context, so host
	// paths inside wrapped commands resolve to container paths while other
	// executions resolving through the parent are unaffected.
	Session struct {
		engine  Engine
		opts    SessionOptions
		vctx    *vpath.Context
		handles []*vpath.Handle
		once    sync.Once
	}

	// Invocation is a command wrapped for the container engine.
	Invocation struct {
		// Command runs the engine client.
		Command command.Command
		// Container names the container started by Command. It is empty when
		// the session execs in an existing container, which it does not own.
		Container string
	}
)

// NewSession validates opts and forks parent into an active context holding a
// resolver for the volume mounts. parent itself is never modified. Close
// releases the fork.
func NewSession(engine Engine, parent *vpath.Context, opts SessionOptions) (*Session, error) {
	if opts.Image == "" && opts.ContainerID == "" {
		return nil, ErrNoTarget
	}
	var errs []error
	mounts := make([]vpath.Mount, 0, len(opts.Volumes))
	for _, v := range opts.Volumes {
		if err := v.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		mounts = append(mounts, v.Mount())
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("container session: %w", err)
	}

	vctx := parent.Fork()
	s := &Session{engine: engine, opts: opts, vctx: vctx}
	s.handles = append(s.handles, vctx.Activate())
	if len(mounts) > 0 {
		s.handles = append(s.handles, vctx.Register(vpath.NewMountResolver(mounts...)))
	}
	return s, nil
}

// Engine returns the session's engine.
func (s *Session) Engine() Engine { return s.engine }

// Resolve maps a host path to its in-container location.
func (s *Session) Resolve(path string) string { return s.vctx.Resolve(path) }

// Wrap returns the engine command that runs cmd in the container. See Prepare.
func (s *Session) Wrap(cmd command.Command) command.Command {
	return s.Prepare(cmd).Command
}

// Prepare wraps cmd for the engine. Paths in cmd are resolved through the
// session's context first. The wrapped command carries only raw arguments and
// must not be resolved again. Every call names a new container.
func (s *Session) Prepare(cmd command.Command) Invocation {
	inner := cmd.Resolve(s.vctx)

	workDir := inner.WorkDir()
	if workDir == "" {
		workDir = s.opts.WorkDir
	}
	env := maps.Clone(s.opts.Env)
	if env == nil {
		env = make(map[string]string)
	}
	maps.Copy(env, inner.Env())
	stdin, hasStdin := inner.Stdin()

	ro := RunOptions{
		Image:       s.opts.Image,
		Command:     inner.Argv(),
		WorkDir:     workDir,
		Env:         env,
		Volumes:     s.opts.Volumes,
		Remove:      true,
		Interactive: hasStdin,
		ExtraHosts:  s.opts.ExtraHosts,
	}

	var args []string
	if s.opts.ContainerID != "" {
		args = s.engine.ExecArgs(s.opts.ContainerID, ro)
	} else {
		ro.Name = newContainerName()
		args = s.engine.RunArgs(ro)
	}

	outer := s.engine.Command(args).WithDisplayName(inner.DisplayName())
	if hasStdin {
		outer = outer.WithStdin(stdin)
	}
	return Invocation{Command: outer, Container: ro.Name}
}

// RemoveCommand returns the engine command that force-removes the named
// container, killing it first if it still runs. Killing the engine client
// does not stop the container it started.
func (s *Session) RemoveCommand(name string) command.Command {
	return s.engine.Command(s.engine.RemoveArgs(name, true)).
		WithDisplayName(s.engine.Name() + " rm")
}

func newContainerName() string {
	return containerNamePrefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// Close unregisters the session's mounts and deactivates its context. It is
// safe to call more than once.
func (s *Session) Close() error {
	s.once.Do(func() {
		for i := len(s.handles) - 1; i >= 0; i-- {
			s.handles[i].Dispose()
		}
	})
	return nil
}
