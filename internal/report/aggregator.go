// SPDX-License-Identifier: MPL-2.0

package report

import (
	"io"
	"maps"
	"strconv"
	"strings"
	"sync"
	"time"

	"toolhost-cli/internal/runner"
	"toolhost-cli/internal/servicemsg"

	"github.com/charmbracelet/log"
)

// TerminatedMidTest is the failure text of tests still open when the stream ends.
const TerminatedMidTest = "process terminated before test completed"

// Service message names the aggregator assigns meaning to.
const (
	msgTestStarted     = "testStarted"
	msgTestStdOut      = "testStdOut"
	msgTestStdErr      = "testStdErr"
	msgTestFinished    = "testFinished"
	msgTestFailed      = "testFailed"
	msgTestIgnored     = "testIgnored"
	msgMessage         = "message"
	msgBuildProblem    = "buildProblem"
	msgSetParameter    = "setParameter"
	msgProgressMessage = "progressMessage"
)

type (
	// Option configures an Aggregator.
	Option func(*Aggregator)

	// Aggregator accumulates output lines and service messages of one
	// execution. Observe may be called concurrently from both stream readers.
	Aggregator struct {
		logger      *log.Logger
		keepUnknown bool
		diagnostics bool
		finalizeAs  TestState

		mu         sync.Mutex
		messages   []BuildMessage
		tests      map[string]*TestRecord
		order      []string
		params     map[string]string
		violations []Violation
		result     *BuildResult
	}
)

// WithLogger sets the logger protocol violations are reported to.
func WithLogger(l *log.Logger) Option {
	return func(a *Aggregator) { a.logger = l }
}

// KeepUnknown retains messages with unrecognized names as Informational
// build messages instead of dropping them.
func KeepUnknown() Option {
	return func(a *Aggregator) { a.keepUnknown = true }
}

// WithoutDiagnostics disables compiler diagnostic recognition in plain lines.
func WithoutDiagnostics() Option {
	return func(a *Aggregator) { a.diagnostics = false }
}

// FinalizeAs sets the state tests still open at Finish end in. Only terminal
// states are accepted; anything else leaves the default, Failed.
func FinalizeAs(s TestState) Option {
	return func(a *Aggregator) {
		if s.Terminal() {
			a.finalizeAs = s
		}
	}
}

// New creates an Aggregator.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{
		diagnostics: true,
		finalizeAs:  Failed,
		tests:       make(map[string]*TestRecord),
		params:      make(map[string]string),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = log.New(io.Discard)
	}
	return a
}

// ObserveLine parses line with p and records it.
func (a *Aggregator) ObserveLine(line runner.Line, p *servicemsg.Parser) {
	msg, ok := p.Parse(line.Text)
	a.Observe(line, msg, ok)
}

// Observe records one output line. When ok is set, msg is the service message
// parsed from it; otherwise the line is plain output. Calls after Finish are
// ignored.
func (a *Aggregator) Observe(line runner.Line, msg servicemsg.Message, ok bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.result != nil {
		return
	}
	if !ok {
		a.observePlain(line)
		return
	}
	msg.Seq = line.Seq
	a.observeMessage(line, msg)
}

func (a *Aggregator) observePlain(line runner.Line) {
	if a.diagnostics {
		if bm, ok := parseDiagnostic(line.Text); ok {
			bm.Seq = line.Seq
			a.messages = append(a.messages, bm)
			return
		}
	}
	sev := Informational
	if line.Origin == runner.Stderr {
		sev = StdError
	}
	a.messages = append(a.messages, BuildMessage{Severity: sev, Text: line.Text, Seq: line.Seq})
}

func (a *Aggregator) observeMessage(line runner.Line, msg servicemsg.Message) {
	switch msg.Name {
	case msgTestStarted:
		a.transition(msg, Started, nil)
	case msgTestStdOut, msgTestStdErr:
		a.testOutput(msg)
	case msgTestFinished:
		a.testFinished(msg)
	case msgTestFailed:
		a.transition(msg, Failed, func(r *TestRecord) {
			r.Failure = msg.Attr("message")
			r.Details = msg.Attr("details")
		})
	case msgTestIgnored:
		a.transition(msg, Ignored, func(r *TestRecord) {
			r.Failure = msg.Attr("message")
		})
	case msgMessage:
		a.messages = append(a.messages, BuildMessage{
			Severity: statusSeverity(msg.Attr("status")),
			Text:     msg.Attr("text"),
			Details:  msg.Attr("errorDetails"),
			Seq:      msg.Seq,
		})
	case msgBuildProblem:
		a.messages = append(a.messages, BuildMessage{
			Severity: Failure,
			Text:     msg.Attr("description"),
			Code:     msg.Attr("identity"),
			Seq:      msg.Seq,
		})
	case msgSetParameter:
		if name := msg.Attr("name"); name != "" {
			a.params[name] = msg.Attr("value")
		}
	case msgProgressMessage:
		text := msg.Value
		if !msg.HasValue {
			text = msg.Attr("text")
		}
		a.messages = append(a.messages, BuildMessage{Severity: Informational, Text: text, Seq: msg.Seq})
	default:
		if a.keepUnknown {
			a.messages = append(a.messages, BuildMessage{Severity: Informational, Text: line.Text, Seq: msg.Seq})
		}
	}
}

// record returns the test id, creating it in NotStarted state.
func (a *Aggregator) record(id string) *TestRecord {
	r, ok := a.tests[id]
	if !ok {
		r = &TestRecord{ID: id}
		a.tests[id] = r
		a.order = append(a.order, id)
	}
	return r
}

// transition moves the test named by msg to next and applies update, or
// records a violation when the move is illegal.
func (a *Aggregator) transition(msg servicemsg.Message, next TestState, update func(*TestRecord)) {
	id := msg.Attr("name")
	if id == "" {
		a.violate(msg, id, NotStarted)
		return
	}
	current := NotStarted
	if r, ok := a.tests[id]; ok {
		current = r.State
	}
	if !current.CanTransition(next) {
		a.violate(msg, id, current)
		return
	}
	r := a.record(id)
	r.State = next
	if update != nil {
		update(r)
	}
}

func (a *Aggregator) testOutput(msg servicemsg.Message) {
	id := msg.Attr("name")
	r, ok := a.tests[id]
	if !ok || r.State.Terminal() {
		state := NotStarted
		if ok {
			state = r.State
		}
		a.violate(msg, id, state)
		return
	}
	r.State = Running
	if out := msg.Attr("out"); out != "" {
		r.Output = append(r.Output, strings.Split(strings.TrimSuffix(out, "\n"), "\n")...)
	}
}

func (a *Aggregator) testFinished(msg servicemsg.Message) {
	id := msg.Attr("name")
	duration := a.duration(msg)

	// Failed and ignored tests are closed by a testFinished too; it only
	// carries their duration.
	if r, ok := a.tests[id]; ok && (r.State == Failed || r.State == Ignored) {
		r.Duration = duration
		return
	}
	a.transition(msg, Finished, func(r *TestRecord) { r.Duration = duration })
}

func (a *Aggregator) duration(msg servicemsg.Message) time.Duration {
	raw, ok := msg.LookupAttr("duration")
	if !ok || raw == "" {
		return 0
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || ms < 0 {
		a.logger.Warn("ignoring invalid test duration", "test", msg.Attr("name"), "duration", raw, "seq", msg.Seq)
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}

func (a *Aggregator) violate(msg servicemsg.Message, id string, from TestState) {
	a.logger.Warn("test protocol violation", "event", msg.Name, "test", id, "state", from.String(), "seq", msg.Seq)
	a.violations = append(a.violations, Violation{Seq: msg.Seq, Event: msg.Name, Test: id, From: from})
}

// Finish closes the stream and builds the result. Tests still Started or
// Running are finalized (as Failed unless FinalizeAs says otherwise). Calling
// Finish again returns the same result.
func (a *Aggregator) Finish(exitCode *runner.ExitCode, cause runner.Cause) *BuildResult {
	return a.finish(exitCode, cause, "", 0)
}

// FinishOutcome is Finish taking the exit code, cause, command name, and
// duration from a finished execution.
func (a *Aggregator) FinishOutcome(o *runner.ExecutionOutcome) *BuildResult {
	return a.finish(o.ExitCode, o.Cause, o.Command, o.Duration)
}

func (a *Aggregator) finish(exitCode *runner.ExitCode, cause runner.Cause, command string, elapsed time.Duration) *BuildResult {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.result != nil {
		return a.result
	}

	tests := make([]TestRecord, 0, len(a.order))
	for _, id := range a.order {
		r := *a.tests[id]
		if !r.State.Terminal() {
			a.logger.Debug("finalizing open test", "test", id, "state", r.State.String(), "as", a.finalizeAs.String())
			r.State = a.finalizeAs
			if a.finalizeAs == Failed && r.Failure == "" {
				r.Failure = TerminatedMidTest
			}
		}
		tests = append(tests, r)
	}

	var code *runner.ExitCode
	if exitCode != nil {
		c := *exitCode
		code = &c
	}

	a.result = &BuildResult{
		Command:    command,
		ExitCode:   code,
		Duration:   elapsed,
		Cause:      cause,
		Messages:   a.messages,
		Tests:      tests,
		Summary:    summarize(tests),
		Parameters: maps.Clone(a.params),
		Violations: a.violations,
	}
	return a.result
}

// Aggregate replays a finished execution through a new Aggregator. A nil
// parser uses the zero Parser.
func Aggregate(outcome *runner.ExecutionOutcome, p *servicemsg.Parser, opts ...Option) *BuildResult {
	if p == nil {
		p = &servicemsg.Parser{}
	}
	a := New(opts...)
	for _, line := range outcome.Lines {
		a.ObserveLine(line, p)
	}
	return a.FinishOutcome(outcome)
}

func statusSeverity(status string) Severity {
	switch strings.ToUpper(status) {
	case "WARNING":
		return Warning
	case "FAILURE", "ERROR":
		return Failure
	default:
		return Informational
	}
}
