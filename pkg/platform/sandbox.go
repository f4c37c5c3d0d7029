// SPDX-License-Identifier: MPL-2.0

package platform

import (
	"os"
	"sync"
)

// Sandbox type constants.
const (
	// SandboxNone indicates no sandbox environment detected.
	SandboxNone SandboxType = ""
	// SandboxFlatpak indicates a Flatpak sandbox environment.
	SandboxFlatpak SandboxType = "flatpak"
	// SandboxSnap indicates a Snap sandbox environment.
	SandboxSnap SandboxType = "snap"
)

// detectOnce caches the sandbox detection result for the lifetime of the process.
//
// INVARIANT: DetectSandboxFrom MUST NOT panic; sync.OnceValue would replay the
// panic on every call.
var detectOnce = sync.OnceValue(func() SandboxType {
	return DetectSandboxFrom(os.Getenv, statFile)
})

// SandboxType identifies the type of application sandbox, if any.
type SandboxType string

// DetectSandbox returns the sandbox the current process runs in. The result
// is cached after the first call.
func DetectSandbox() SandboxType {
	return detectOnce()
}

// DetectSandboxFrom performs sandbox detection using the provided lookups.
//   - Flatpak: /.flatpak-info exists (takes precedence)
//   - Snap: SNAP_NAME is set
func DetectSandboxFrom(lookupEnv func(string) string, stat func(string) error) SandboxType {
	if err := stat("/.flatpak-info"); err == nil {
		return SandboxFlatpak
	}
	if lookupEnv("SNAP_NAME") != "" {
		return SandboxSnap
	}
	return SandboxNone
}

// SpawnPrefixFor returns the argv prefix that runs a program on the host from
// inside sandbox st, or nil when st is SandboxNone.
func SpawnPrefixFor(st SandboxType) []string {
	switch st {
	case SandboxFlatpak:
		return []string{"flatpak-spawn", "--host"}
	case SandboxSnap:
		return []string{"snap", "run", "--shell"}
	default:
		return nil
	}
}

func statFile(path string) error {
	_, err := os.Stat(path)
	return err
}
