// SPDX-License-Identifier: MPL-2.0

package runner

import (
	"strconv"
	"time"
)

const (
	// Stdout tags lines read from standard output.
	Stdout Origin = iota
	// Stderr tags lines read from standard error.
	Stderr
)

const (
	// CauseExited means the process exited on its own.
	CauseExited Cause = iota + 1
	// CauseTimedOut means the process tree was killed because the timeout elapsed.
	CauseTimedOut
	// CauseCancelled means the process tree was killed because the caller cancelled.
	CauseCancelled
)

type (
	// Origin identifies the stream a line was read from.
	Origin int

	// Cause records why an execution ended.
	Cause int

	// ExitCode represents a process exit status code. The zero value means success.
	// Codes above 255 occur on Windows (NTSTATUS values).
	ExitCode int

	// Line is one line of process output.
	Line struct {
		// Seq numbers lines in the order they were received across both streams.
		Seq    int
		Origin Origin
		Text   string
	}

	// ExecutionOutcome is the result of one process execution.
	ExecutionOutcome struct {
		// Command is the display name of the command that ran.
		Command string
		// ExitCode is nil when the process was killed by timeout or cancellation.
		ExitCode *ExitCode
		Duration time.Duration
		Lines    []Line
		Cause    Cause
		// Err holds I/O errors captured while draining the output streams.
		Err error
	}
)

// String returns "stdout" or "stderr".
func (o Origin) String() string {
	if o == Stderr {
		return "stderr"
	}
	return "stdout"
}

// String returns a lower-case name for the cause.
func (c Cause) String() string {
	switch c {
	case CauseExited:
		return "exited"
	case CauseTimedOut:
		return "timed out"
	case CauseCancelled:
		return "cancelled"
	default:
		return "running"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c Cause) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// IsSuccess returns true if the exit code indicates successful execution.
func (c ExitCode) IsSuccess() bool { return c == 0 }

// String returns the decimal string representation of the ExitCode.
func (c ExitCode) String() string { return strconv.Itoa(int(c)) }

// Code returns the exit code and whether the process exited on its own.
func (o *ExecutionOutcome) Code() (ExitCode, bool) {
	if o.ExitCode == nil {
		return 0, false
	}
	return *o.ExitCode, true
}

// Succeeded reports whether the process exited with code 0.
func (o *ExecutionOutcome) Succeeded() bool {
	code, ok := o.Code()
	return ok && code.IsSuccess()
}

// CauseErr returns ErrTimeoutExpired or ErrCancelled when the process was
// killed, and nil when it exited on its own.
func (o *ExecutionOutcome) CauseErr() error {
	switch o.Cause {
	case CauseTimedOut:
		return ErrTimeoutExpired
	case CauseCancelled:
		return ErrCancelled
	default:
		return nil
	}
}

// Stdout returns the text of every standard output line.
func (o *ExecutionOutcome) Stdout() []string {
	return o.texts(Stdout)
}

// Stderr returns the text of every standard error line.
func (o *ExecutionOutcome) Stderr() []string {
	return o.texts(Stderr)
}

func (o *ExecutionOutcome) texts(origin Origin) []string {
	var out []string
	for _, l := range o.Lines {
		if l.Origin == origin {
			out = append(out, l.Text)
		}
	}
	return out
}
