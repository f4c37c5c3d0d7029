// SPDX-License-Identifier: MPL-2.0

package report

import (
	"time"

	"toolhost-cli/internal/runner"
)

// Build message severities.
const (
	Informational Severity = iota
	Warning
	StdError
	Failure
)

type (
	// Severity classifies a BuildMessage.
	Severity int

	// BuildMessage is one entry of the build log.
	BuildMessage struct {
		Severity Severity `json:"severity" yaml:"severity"`
		Text     string   `json:"text" yaml:"text"`
		Details  string   `json:"details,omitempty" yaml:"details,omitempty"`
		File     string   `json:"file,omitempty" yaml:"file,omitempty"`
		Line     int      `json:"line,omitempty" yaml:"line,omitempty"`
		Column   int      `json:"column,omitempty" yaml:"column,omitempty"`
		Code     string   `json:"code,omitempty" yaml:"code,omitempty"`
		// Seq is the sequence number of the output line it came from.
		Seq int `json:"seq" yaml:"seq"`
	}

	// TestRecord is the final state of one test.
	TestRecord struct {
		ID       string        `json:"id" yaml:"id"`
		State    TestState     `json:"state" yaml:"state"`
		Duration time.Duration `json:"duration" yaml:"duration"`
		// Failure is the failure message; Details carries the stack trace or diff.
		Failure string   `json:"failure,omitempty" yaml:"failure,omitempty"`
		Details string   `json:"details,omitempty" yaml:"details,omitempty"`
		Output  []string `json:"output,omitempty" yaml:"output,omitempty"`
	}

	// Summary counts tests by final state.
	Summary struct {
		Total   int `json:"total" yaml:"total"`
		Passed  int `json:"passed" yaml:"passed"`
		Failed  int `json:"failed" yaml:"failed"`
		Ignored int `json:"ignored" yaml:"ignored"`
	}

	// Violation records a test event that would have made an illegal transition.
	Violation struct {
		Seq   int       `json:"seq" yaml:"seq"`
		Event string    `json:"event" yaml:"event"`
		Test  string    `json:"test" yaml:"test"`
		From  TestState `json:"from" yaml:"from"`
	}

	// BuildResult is the aggregated outcome of one execution. It is built once
	// by Aggregator.Finish and must be treated as read-only.
	BuildResult struct {
		Command string `json:"command,omitempty" yaml:"command,omitempty"`
		// ExitCode is nil when the process was killed before exiting.
		ExitCode   *runner.ExitCode  `json:"exit_code" yaml:"exit_code"`
		Cause      runner.Cause      `json:"cause" yaml:"cause"`
		Duration   time.Duration     `json:"duration" yaml:"duration"`
		Messages   []BuildMessage    `json:"messages" yaml:"messages"`
		Tests      []TestRecord      `json:"tests" yaml:"tests"`
		Summary    Summary           `json:"summary" yaml:"summary"`
		Parameters map[string]string `json:"parameters,omitempty" yaml:"parameters,omitempty"`
		Violations []Violation       `json:"violations,omitempty" yaml:"violations,omitempty"`
	}
)

// String returns the severity name.
func (s Severity) String() string {
	switch s {
	case Warning:
		return "warning"
	case StdError:
		return "stderr"
	case Failure:
		return "failure"
	default:
		return "info"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Passed reports whether the test finished without failing.
func (r TestRecord) Passed() bool { return r.State == Finished }

// Test returns the record for id.
func (r *BuildResult) Test(id string) (TestRecord, bool) {
	for _, t := range r.Tests {
		if t.ID == id {
			return t, true
		}
	}
	return TestRecord{}, false
}

// MessagesOf returns the messages with severity s.
func (r *BuildResult) MessagesOf(s Severity) []BuildMessage {
	var out []BuildMessage
	for _, m := range r.Messages {
		if m.Severity == s {
			out = append(out, m)
		}
	}
	return out
}

// Succeeded reports whether the process exited with code 0.
func (r *BuildResult) Succeeded() bool {
	return r.ExitCode != nil && r.ExitCode.IsSuccess()
}

// EnsureSuccess returns a *BuildFailedError carrying r when the process did
// not exit with code 0, and nil otherwise.
func (r *BuildResult) EnsureSuccess() error {
	if r.Succeeded() {
		return nil
	}
	return &BuildFailedError{Result: r}
}

func summarize(tests []TestRecord) Summary {
	s := Summary{Total: len(tests)}
	for _, t := range tests {
		switch t.State {
		case Finished:
			s.Passed++
		case Failed:
			s.Failed++
		case Ignored:
			s.Ignored++
		}
	}
	return s
}
