// SPDX-License-Identifier: MPL-2.0

package container

import (
	"strings"

	"toolhost-cli/internal/runner"
)

// engineFailureExitCode is what docker and podman return when the engine
// itself failed rather than the command in the container.
const engineFailureExitCode runner.ExitCode = 125

var transientMarkers = []string{
	// Rootless Podman race conditions and OCI runtime errors.
	"ping_group_range",
	"OCI runtime error",
	// Network errors during image pull.
	"Temporary failure resolving",
	"Could not resolve host",
	"connection timed out",
	"connection refused",
	"TLS handshake timeout",
	// Storage driver errors (overlay mount races on rootless Podman).
	"error creating overlay mount",
	"error mounting layer",
}

// IsTransientOutcome reports whether a container invocation failed in the
// engine for a reason that may go away on retry. Killed executions are never
// transient.
func IsTransientOutcome(o *runner.ExecutionOutcome) bool {
	code, ok := o.Code()
	if !ok || code != engineFailureExitCode {
		return false
	}
	for _, line := range o.Stderr() {
		for _, m := range transientMarkers {
			if strings.Contains(line, m) {
				return true
			}
		}
	}
	return false
}
