// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"fmt"
	"strings"

	"toolhost-cli/pkg/command"
)

const (
	// EngineTypePodman selects the Podman CLI.
	EngineTypePodman EngineType = "podman"
	// EngineTypeDocker selects the Docker CLI.
	EngineTypeDocker EngineType = "docker"
	// EngineTypeAuto picks whichever engine is available, Podman first.
	EngineTypeAuto EngineType = "auto"
)

type (
	// Engine translates container operations into engine CLI commands.
	Engine interface {
		// Name returns the engine name (docker or podman).
		Name() string
		// BinaryPath returns the resolved engine binary, or "" when not installed.
		BinaryPath() string
		// Available checks if the engine is installed and its daemon answers.
		Available(ctx context.Context) bool
		// Version returns the engine version.
		Version(ctx context.Context) (string, error)
		// RunArgs builds the arguments of a run invocation.
		RunArgs(opts RunOptions) []string
		// ExecArgs builds the arguments of an exec invocation in a running container.
		ExecArgs(containerID string, opts RunOptions) []string
		// RemoveArgs builds the arguments of a container remove invocation.
		RemoveArgs(containerID string, force bool) []string
		// Command returns a command invoking the engine binary with args.
		Command(args []string) command.Command
	}

	// EngineType identifies the container engine type.
	EngineType string

	// ErrEngineNotAvailable is returned when a container engine is not available.
	ErrEngineNotAvailable struct {
		Engine string
		Reason string
	}
)

func (e *ErrEngineNotAvailable) Error() string {
	return fmt.Sprintf("container engine '%s' is not available: %s", e.Engine, e.Reason)
}

// ParseEngineType converts a configuration value into an EngineType. The
// empty string means auto detection.
func ParseEngineType(s string) (EngineType, error) {
	switch t := EngineType(strings.ToLower(strings.TrimSpace(s))); t {
	case EngineTypeDocker, EngineTypePodman, EngineTypeAuto:
		return t, nil
	case "":
		return EngineTypeAuto, nil
	default:
		return "", fmt.Errorf("unknown container engine type: %s", s)
	}
}

// NewEngine creates a container engine based on preference, falling back to
// the other engine when the preferred one is unavailable.
func NewEngine(ctx context.Context, preferredType EngineType) (Engine, error) {
	switch preferredType {
	case EngineTypePodman:
		if engine := NewPodmanEngine(); engine.Available(ctx) {
			return engine, nil
		}
		if engine := NewDockerEngine(); engine.Available(ctx) {
			return engine, nil
		}
		return nil, &ErrEngineNotAvailable{
			Engine: "podman",
			Reason: "podman is not installed or not accessible, and docker fallback is also not available",
		}

	case EngineTypeDocker:
		if engine := NewDockerEngine(); engine.Available(ctx) {
			return engine, nil
		}
		if engine := NewPodmanEngine(); engine.Available(ctx) {
			return engine, nil
		}
		return nil, &ErrEngineNotAvailable{
			Engine: "docker",
			Reason: "docker is not installed or not accessible, and podman fallback is also not available",
		}

	case EngineTypeAuto, "":
		return AutoDetectEngine(ctx)

	default:
		return nil, fmt.Errorf("unknown container engine type: %s", preferredType)
	}
}

// AutoDetectEngine tries to find an available container engine.
func AutoDetectEngine(ctx context.Context) (Engine, error) {
	// Podman first: more commonly available in rootless setups.
	if podman := NewPodmanEngine(); podman.Available(ctx) {
		return podman, nil
	}
	if docker := NewDockerEngine(); docker.Available(ctx) {
		return docker, nil
	}
	return nil, &ErrEngineNotAvailable{
		Engine: "any",
		Reason: "no container engine (podman or docker) is available on this system",
	}
}
