// SPDX-License-Identifier: MPL-2.0

package command

import (
	"errors"
	"os"
	"runtime"
	"slices"
	"sort"
	"strings"

	"toolhost-cli/pkg/platform"
)

// ErrEmptyExecutable is returned by Validate when the executable path is empty.
var ErrEmptyExecutable = errors.New("executable path is empty")

// caseInsensitiveEnv reports whether environment variable names are compared
// case-insensitively on this host.
var caseInsensitiveEnv = runtime.GOOS == platform.Windows

type (
	// Command is an immutable description of a process invocation.
	// The zero value is not useful; construct with New.
	Command struct {
		executable  string
		args        []string
		pathArgs    []bool // parallel to args; true marks a host path
		env         map[string]envVar
		workDir     string
		stdin       *string
		displayName string
	}

	// PathResolver rewrites a host path into the path valid for the context the
	// command will run in.
	PathResolver interface {
		Resolve(path string) string
	}

	// envVar keeps the name as last written alongside the value so that folded
	// keys on Windows still render with the caller's spelling.
	envVar struct {
		name  string
		value string
	}
)

// New creates a Command for executable with the given arguments.
// Blank arguments are skipped, as with WithArgs.
func New(executable string, args ...string) Command {
	return Command{executable: executable}.WithArgs(args...)
}

// Executable returns the executable path.
func (c Command) Executable() string { return c.executable }

// Args returns a copy of the argument list.
func (c Command) Args() []string { return slices.Clone(c.args) }

// Argv returns the executable followed by the arguments.
func (c Command) Argv() []string {
	argv := make([]string, 0, len(c.args)+1)
	argv = append(argv, c.executable)
	return append(argv, c.args...)
}

// WorkDir returns the working directory, or "" to inherit the caller's.
func (c Command) WorkDir() string { return c.workDir }

// Stdin returns the standard input text and whether one was set.
func (c Command) Stdin() (string, bool) {
	if c.stdin == nil {
		return "", false
	}
	return *c.stdin, true
}

// DisplayName returns the display name, falling back to the executable's base name.
func (c Command) DisplayName() string {
	if c.displayName != "" {
		return c.displayName
	}
	name := c.executable
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// Env returns a copy of the command's environment overrides.
func (c Command) Env() map[string]string {
	out := make(map[string]string, len(c.env))
	for _, v := range c.env {
		out[v.name] = v.value
	}
	return out
}

// LookupEnv returns the value of an environment override.
func (c Command) LookupEnv(name string) (string, bool) {
	v, ok := c.env[envKey(name)]
	return v.value, ok
}

// WithArgs returns a copy with args appended in order. Empty and
// whitespace-only values are skipped.
func (c Command) WithArgs(args ...string) Command {
	out := c.clone()
	for _, a := range args {
		if strings.TrimSpace(a) == "" {
			continue
		}
		out.args = append(out.args, a)
		out.pathArgs = append(out.pathArgs, false)
	}
	return out
}

// WithRawArg returns a copy with arg appended even if it is empty. Use it for
// tools that give meaning to an explicit empty argument.
func (c Command) WithRawArg(arg string) Command {
	out := c.clone()
	out.args = append(out.args, arg)
	out.pathArgs = append(out.pathArgs, false)
	return out
}

// WithPathArg returns a copy with a host path appended. Path arguments are
// rewritten by Resolve; blank values are skipped.
func (c Command) WithPathArg(path string) Command {
	if strings.TrimSpace(path) == "" {
		return c
	}
	out := c.clone()
	out.args = append(out.args, path)
	out.pathArgs = append(out.pathArgs, true)
	return out
}

// WithEnv returns a copy with the variable set. A later write to the same
// name replaces the earlier value.
func (c Command) WithEnv(name, value string) Command {
	out := c.clone()
	out.env[envKey(name)] = envVar{name: name, value: value}
	return out
}

// WithEnvMap returns a copy with every entry of env set. Entries are applied
// in sorted name order so that names colliding under case folding resolve the
// same way on every run.
func (c Command) WithEnvMap(env map[string]string) Command {
	if len(env) == 0 {
		return c
	}
	names := make([]string, 0, len(env))
	for k := range env {
		names = append(names, k)
	}
	sort.Strings(names)

	out := c.clone()
	for _, k := range names {
		out.env[envKey(k)] = envVar{name: k, value: env[k]}
	}
	return out
}

// WithWorkDir returns a copy that runs in dir.
func (c Command) WithWorkDir(dir string) Command {
	out := c.clone()
	out.workDir = dir
	return out
}

// WithStdin returns a copy that feeds input to the process's standard input.
func (c Command) WithStdin(input string) Command {
	out := c.clone()
	out.stdin = &input
	return out
}

// WithDisplayName returns a copy with a human-readable name used in logs and reports.
func (c Command) WithDisplayName(name string) Command {
	out := c.clone()
	out.displayName = name
	return out
}

// WithExecutable returns a copy with a different executable path.
func (c Command) WithExecutable(executable string) Command {
	out := c.clone()
	out.executable = executable
	return out
}

// Resolve returns a copy with the executable, the working directory and every
// path argument passed through r. A nil resolver returns c unchanged.
func (c Command) Resolve(r PathResolver) Command {
	if r == nil {
		return c
	}
	out := c.clone()
	if looksLikePath(out.executable) {
		out.executable = r.Resolve(out.executable)
	}
	if out.workDir != "" {
		out.workDir = r.Resolve(out.workDir)
	}
	for i, isPath := range out.pathArgs {
		if isPath {
			out.args[i] = r.Resolve(out.args[i])
		}
	}
	return out
}

// Validate checks the invariants a command must hold before it can be spawned.
func (c Command) Validate() error {
	if strings.TrimSpace(c.executable) == "" {
		return ErrEmptyExecutable
	}
	return nil
}

// Environ returns base with the command's overrides applied, in KEY=VALUE form.
// A nil base means the current process environment.
func (c Command) Environ(base []string) []string {
	if base == nil {
		base = os.Environ()
	}
	out := make([]string, 0, len(base)+len(c.env))
	for _, kv := range base {
		name, _, ok := strings.Cut(kv, "=")
		if ok {
			if _, overridden := c.env[envKey(name)]; overridden {
				continue
			}
		}
		out = append(out, kv)
	}

	keys := make([]string, 0, len(c.env))
	for k := range c.env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := c.env[k]
		out = append(out, v.name+"="+v.value)
	}
	return out
}

// String renders the command line with the host's quoting rules.
func (c Command) String() string {
	return c.CommandLine(HostStyle())
}

func (c Command) clone() Command {
	out := c
	out.args = slices.Clone(c.args)
	out.pathArgs = slices.Clone(c.pathArgs)
	out.env = make(map[string]envVar, len(c.env)+1)
	for k, v := range c.env {
		out.env[k] = v
	}
	return out
}

func envKey(name string) string {
	if caseInsensitiveEnv {
		return strings.ToUpper(name)
	}
	return name
}

// looksLikePath reports whether an executable is given as a path rather than
// a bare name looked up in PATH. Bare names are never rewritten.
func looksLikePath(executable string) bool {
	return strings.ContainsAny(executable, `/\`)
}
