// SPDX-License-Identifier: MPL-2.0

package container

import (
	"toolhost-cli/pkg/command"
	"toolhost-cli/pkg/platform"
)

// SandboxAwareEngine wraps a container Engine to handle execution from within
// application sandboxes (Flatpak, Snap).
//
// Inside a sandbox the container engine still runs on the host, so the engine
// binary has to be started through the sandbox's host spawn mechanism
// (e.g., flatpak-spawn --host) for volume paths to resolve against the host
// filesystem.
type SandboxAwareEngine struct {
	Engine
	sandboxType platform.SandboxType
}

// NewSandboxAwareEngine wraps engine for the sandbox the process runs in.
// Outside a sandbox the engine is returned unwrapped.
func NewSandboxAwareEngine(engine Engine) Engine {
	return WrapForSandbox(engine, platform.DetectSandbox())
}

// WrapForSandbox wraps engine for sandbox type st.
func WrapForSandbox(engine Engine, st platform.SandboxType) Engine {
	if st == platform.SandboxNone {
		return engine
	}
	return &SandboxAwareEngine{Engine: engine, sandboxType: st}
}

// SandboxType returns the sandbox the engine spawns out of.
func (e *SandboxAwareEngine) SandboxType() platform.SandboxType {
	return e.sandboxType
}

// Command returns a command that runs the engine binary on the host through
// the sandbox's spawn helper.
func (e *SandboxAwareEngine) Command(args []string) command.Command {
	prefix := platform.SpawnPrefixFor(e.sandboxType)
	cmd := command.New(prefix[0]).WithDisplayName(e.Name())
	for _, a := range prefix[1:] {
		cmd = cmd.WithRawArg(a)
	}
	cmd = cmd.WithRawArg(e.BinaryPath())
	for _, a := range args {
		cmd = cmd.WithRawArg(a)
	}
	return cmd
}
