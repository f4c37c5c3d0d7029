// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// PodmanEngine implements the Engine interface using Podman CLI.
type PodmanEngine struct {
	*BaseCLIEngine
}

// NewPodmanEngine creates a new Podman engine.
// On Linux with SELinux enabled, volume mounts are automatically labeled with :z.
func NewPodmanEngine(opts ...BaseCLIEngineOption) *PodmanEngine {
	path, _ := exec.LookPath("podman")
	return NewPodmanEngineWithSELinux(path, isSELinuxEnabled, opts...)
}

// NewPodmanEngineWithSELinux creates a Podman engine for binary whose volume
// labeling depends on selinuxEnabled.
func NewPodmanEngineWithSELinux(binary string, selinuxEnabled func() bool, opts ...BaseCLIEngineOption) *PodmanEngine {
	label := func(v VolumeMount) string {
		if v.SELinux == SELinuxLabelNone && selinuxEnabled() {
			v.SELinux = SELinuxLabelShared
		}
		return v.String()
	}
	allOpts := append([]BaseCLIEngineOption{
		WithName(string(EngineTypePodman)),
		WithVolumeFormatter(label),
	}, opts...)
	return &PodmanEngine{
		BaseCLIEngine: NewBaseCLIEngine(binary, allOpts...),
	}
}

// Name returns the engine name.
func (e *PodmanEngine) Name() string {
	return string(EngineTypePodman)
}

// Available checks if Podman is available.
func (e *PodmanEngine) Available(ctx context.Context) bool {
	if e.BinaryPath() == "" {
		return false
	}
	_, err := e.Version(ctx)
	return err == nil
}

// Version returns the Podman version.
func (e *PodmanEngine) Version(ctx context.Context) (string, error) {
	out, err := e.RunCommandWithOutput(ctx, "version", "--format", "{{.Version}}")
	if err != nil {
		return "", fmt.Errorf("failed to get podman version: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// isSELinuxEnabled checks if SELinux is enforcing on the system.
func isSELinuxEnabled() bool {
	data, err := os.ReadFile("/sys/fs/selinux/enforce")
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(data)) == "1"
}
