// SPDX-License-Identifier: MPL-2.0

package command

import (
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
)

const (
	// DefaultPropertyPrefix renders Settings.Properties in the MSBuild style (-p:Name=Value).
	DefaultPropertyPrefix = "-p:"
	// DefaultLogDirOption names the argument that carries Settings.LogDir.
	DefaultLogDirOption = "--log-dir"
)

var settingsValidator = validator.New(validator.WithRequiredStructEnabled())

type (
	// Settings is a plain configuration value describing one tool invocation.
	// It replaces a per-tool builder hierarchy: a wrapper for a specific tool
	// fills in the fields it needs and calls FromSettings.
	Settings struct {
		// Tool is the tool name or path used when ToolPath is empty.
		Tool string `validate:"required"`
		// ToolPath overrides Tool with an explicit installation path.
		ToolPath string
		// Verb holds the sub-command words (e.g. "nuget", "push").
		Verb []string
		// Positional arguments follow the verb.
		Positional []string
		// Options are rendered in order as name/value argument pairs.
		Options []Option `validate:"dive"`
		// Switches are flag arguments without a value.
		Switches []string
		// Properties are rendered sorted by name as PropertyPrefix+Name=Value.
		Properties map[string]string
		// PropertyPrefix defaults to DefaultPropertyPrefix.
		PropertyPrefix string
		// Env holds environment overrides.
		Env map[string]string
		// WorkDir is a host path; it is rewritten by Resolve.
		WorkDir string
		// LogDir is a host directory the tool writes logs to. It is passed
		// after the options as a path argument, so Resolve rewrites it.
		LogDir string
		// LogDirOption defaults to DefaultLogDirOption.
		LogDirOption string
		// DisplayName labels the command in logs and reports.
		DisplayName string
		// Stdin, when non-nil, is fed to the process.
		Stdin *string
	}

	// Option is a single name/value argument pair.
	Option struct {
		Name  string `validate:"required"`
		Value string
		// Path marks Value as a host path that must go through path resolution.
		Path bool
		// Joined renders the pair as one argument "Name=Value" instead of two.
		// It is ignored when Path is set.
		Joined bool
	}
)

// FromSettings validates s and builds the corresponding Command.
func FromSettings(s Settings) (Command, error) {
	if err := settingsValidator.Struct(s); err != nil {
		return Command{}, fmt.Errorf("invalid settings for %q: %w", s.Tool, err)
	}

	exe := s.Tool
	if s.ToolPath != "" {
		exe = s.ToolPath
	}

	cmd := New(exe, s.Verb...).WithArgs(s.Positional...)

	for _, opt := range s.Options {
		// Path wins over Joined: only a standalone argument can be rewritten.
		switch {
		case opt.Path:
			cmd = cmd.WithArgs(opt.Name).WithPathArg(opt.Value)
		case opt.Joined:
			cmd = cmd.WithArgs(opt.Name + "=" + opt.Value)
		default:
			cmd = cmd.WithArgs(opt.Name, opt.Value)
		}
	}

	if s.LogDir != "" {
		name := s.LogDirOption
		if name == "" {
			name = DefaultLogDirOption
		}
		cmd = cmd.WithArgs(name).WithPathArg(s.LogDir)
	}

	cmd = cmd.WithArgs(s.Switches...)

	if len(s.Properties) > 0 {
		prefix := s.PropertyPrefix
		if prefix == "" {
			prefix = DefaultPropertyPrefix
		}
		names := make([]string, 0, len(s.Properties))
		for k := range s.Properties {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			cmd = cmd.WithArgs(prefix + k + "=" + s.Properties[k])
		}
	}

	cmd = cmd.WithEnvMap(s.Env)
	if s.WorkDir != "" {
		cmd = cmd.WithWorkDir(s.WorkDir)
	}
	if s.DisplayName != "" {
		cmd = cmd.WithDisplayName(s.DisplayName)
	}
	if s.Stdin != nil {
		cmd = cmd.WithStdin(*s.Stdin)
	}
	return cmd, nil
}
