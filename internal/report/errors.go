// SPDX-License-Identifier: MPL-2.0

package report

import (
	"fmt"

	"toolhost-cli/internal/runner"
)

// BuildFailedError is returned by BuildResult.EnsureSuccess. The captured
// result is attached for inspection.
type BuildFailedError struct {
	Result *BuildResult
}

// Error implements the error interface.
func (e *BuildFailedError) Error() string {
	name := e.Result.Command
	if name == "" {
		name = "command"
	}
	if e.Result.ExitCode == nil {
		return fmt.Sprintf("%s did not complete: %s", name, e.Result.Cause)
	}
	s := e.Result.Summary
	if s.Failed > 0 {
		return fmt.Sprintf("%s failed with exit code %s (%d of %d tests failed)", name, e.Result.ExitCode, s.Failed, s.Total)
	}
	return fmt.Sprintf("%s failed with exit code %s", name, e.Result.ExitCode)
}

// Unwrap returns runner.ErrTimeoutExpired or runner.ErrCancelled when the
// process was killed, and nil otherwise.
func (e *BuildFailedError) Unwrap() error {
	o := runner.ExecutionOutcome{Cause: e.Result.Cause}
	return o.CauseErr()
}
