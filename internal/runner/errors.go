// SPDX-License-Identifier: MPL-2.0

package runner

import (
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
)

var (
	// ErrTimeoutExpired is reported by ExecutionOutcome.CauseErr when the timeout killed the process.
	ErrTimeoutExpired = errors.New("timeout expired")
	// ErrCancelled is reported by ExecutionOutcome.CauseErr when cancellation killed the process.
	ErrCancelled = errors.New("operation cancelled")
)

// ProcessStartError is returned when a process could not be spawned at all.
// No ExecutionOutcome exists in that case.
type ProcessStartError struct {
	// Command is the display name of the command.
	Command string
	// Executable is the path that was (or would have been) spawned.
	Executable string
	Err        error
}

// Error implements the error interface.
func (e *ProcessStartError) Error() string {
	return fmt.Sprintf("failed to start %s (%s): %v", e.Command, e.Executable, e.Err)
}

// Unwrap returns the underlying spawn error.
func (e *ProcessStartError) Unwrap() error { return e.Err }

// NotFound reports whether the executable could not be located.
func (e *ProcessStartError) NotFound() bool {
	return errors.Is(e.Err, exec.ErrNotFound) || errors.Is(e.Err, fs.ErrNotExist)
}

// PermissionDenied reports whether the executable could not be run for lack of permission.
func (e *ProcessStartError) PermissionDenied() bool {
	return errors.Is(e.Err, fs.ErrPermission)
}
