// SPDX-License-Identifier: MPL-2.0

package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"toolhost-cli/pkg/command"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

// DefaultKillGrace bounds how long output readers are waited for once the
// process has exited or been killed. Descendants that escaped the process
// group may keep the pipes open; after the grace period they are abandoned.
const DefaultKillGrace = 2 * time.Second

type (
	// LineFunc receives each output line. It is called synchronously from the
	// reader of the line's stream; a slow callback throttles only that stream.
	LineFunc func(Line)

	// RunOptions configures one execution.
	RunOptions struct {
		// OnLine, when set, is called for every output line.
		OnLine LineFunc
		// Timeout, when positive, kills the process tree after it elapses.
		Timeout time.Duration
	}

	// RunnerOption configures a Runner.
	RunnerOption func(*Runner)

	// Runner spawns commands. A Runner holds no per-execution state and is safe
	// for concurrent use.
	Runner struct {
		logger    *log.Logger
		resolver  command.PathResolver
		killGrace time.Duration
		baseEnv   []string
	}

	// Execution is a running (or finished) process started by RunAsync.
	Execution struct {
		cmd      command.Command
		proc     *exec.Cmd
		logger   *log.Logger
		onLine   LineFunc
		started  time.Time
		done     chan struct{}
		cancelCh chan struct{}
		cancelMu sync.Once
		cause    atomic.Int32

		mu      sync.Mutex
		seq     int
		lines   []Line
		outcome *ExecutionOutcome
	}
)

// WithLogger sets the logger used for execution lifecycle events.
func WithLogger(l *log.Logger) RunnerOption {
	return func(r *Runner) { r.logger = l }
}

// WithResolver rewrites every command's paths through res before spawning.
// Pass the virtual execution context here.
func WithResolver(res command.PathResolver) RunnerOption {
	return func(r *Runner) { r.resolver = res }
}

// WithKillGrace overrides DefaultKillGrace.
func WithKillGrace(d time.Duration) RunnerOption {
	return func(r *Runner) { r.killGrace = d }
}

// WithBaseEnv sets the environment commands inherit. Nil means the current
// process environment.
func WithBaseEnv(env []string) RunnerOption {
	return func(r *Runner) { r.baseEnv = env }
}

// New creates a Runner.
func New(opts ...RunnerOption) *Runner {
	r := &Runner{killGrace: DefaultKillGrace}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = log.New(io.Discard)
	}
	return r
}

// Run executes cmd and blocks until it exits, times out, or ctx is cancelled.
// A non-zero exit code is not an error; the only error is a *ProcessStartError.
func (r *Runner) Run(ctx context.Context, cmd command.Command, opts RunOptions) (*ExecutionOutcome, error) {
	e, err := r.RunAsync(ctx, cmd, opts)
	if err != nil {
		return nil, err
	}
	return e.Wait(), nil
}

// RunAsync spawns cmd and returns once the process has started. Cancelling
// ctx, or calling Execution.Cancel, kills the process tree and reports the
// outcome as cancelled.
func (r *Runner) RunAsync(ctx context.Context, cmd command.Command, opts RunOptions) (*Execution, error) {
	cmd = cmd.Resolve(r.resolver)
	if err := cmd.Validate(); err != nil {
		return nil, &ProcessStartError{Command: cmd.DisplayName(), Executable: cmd.Executable(), Err: err}
	}

	proc := exec.Command(cmd.Executable(), cmd.Args()...)
	proc.Dir = cmd.WorkDir()
	proc.Env = cmd.Environ(r.baseEnv)
	if in, ok := cmd.Stdin(); ok {
		proc.Stdin = strings.NewReader(in)
	}
	proc.WaitDelay = r.killGrace
	setProcessGroup(proc)

	e := &Execution{
		cmd:      cmd,
		proc:     proc,
		logger:   r.logger.With("command", cmd.DisplayName()),
		onLine:   opts.OnLine,
		done:     make(chan struct{}),
		cancelCh: make(chan struct{}),
	}

	stdoutR, stdoutW := io.Pipe()
	stderrR, stderrW := io.Pipe()
	proc.Stdout = stdoutW
	proc.Stderr = stderrW

	if err := proc.Start(); err != nil {
		_ = stdoutW.Close()
		_ = stderrW.Close()
		return nil, &ProcessStartError{Command: cmd.DisplayName(), Executable: cmd.Executable(), Err: err}
	}
	e.started = time.Now()
	e.logger.Debug("process started", "pid", proc.Process.Pid, "argv", cmd.String())

	var readers errgroup.Group
	readers.Go(func() error { return e.read(stdoutR, Stdout) })
	readers.Go(func() error { return e.read(stderrR, Stderr) })

	exited := make(chan struct{})
	go e.watch(ctx, opts.Timeout, exited)
	go func() {
		waitErr := proc.Wait()
		ended := time.Now()
		// Claim the exit before releasing the watcher so that a timer firing
		// after this point cannot relabel a normal exit.
		claimedExit := e.cause.CompareAndSwap(0, int32(CauseExited))
		close(exited)
		// Wait has returned, so nothing writes to the pipes anymore.
		_ = stdoutW.Close()
		_ = stderrW.Close()
		readErr := readers.Wait()
		e.finish(waitErr, readErr, claimedExit, ended.Sub(e.started))
	}()

	return e, nil
}

// Command returns the command as it was spawned (after path resolution).
func (e *Execution) Command() command.Command { return e.cmd }

// PID returns the process id.
func (e *Execution) PID() int { return e.proc.Process.Pid }

// Done is closed once the outcome is available.
func (e *Execution) Done() <-chan struct{} { return e.done }

// Wait blocks until the execution ends and returns its outcome.
func (e *Execution) Wait() *ExecutionOutcome {
	<-e.done
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.outcome
}

// Cancel kills the process tree and reports the outcome as cancelled, unless
// the process already exited or timed out.
func (e *Execution) Cancel() {
	e.cancelMu.Do(func() { close(e.cancelCh) })
}

// watch kills the process tree when the timeout elapses or cancellation is
// requested, whichever comes first, unless the process exits before either.
func (e *Execution) watch(ctx context.Context, timeout time.Duration, exited <-chan struct{}) {
	var timer <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timer = t.C
	}

	var cause Cause
	select {
	case <-exited:
		return
	case <-timer:
		cause = CauseTimedOut
	case <-ctx.Done():
		cause = CauseCancelled
	case <-e.cancelCh:
		cause = CauseCancelled
	}

	// Whichever of the kill decision and process exit claims the cause first
	// wins; a process exiting just after this point still reports the kill.
	if !e.cause.CompareAndSwap(0, int32(cause)) {
		return
	}
	e.logger.Debug("killing process tree", "pid", e.proc.Process.Pid, "cause", cause.String())
	if err := killProcessTree(e.proc); err != nil {
		e.logger.Warn("failed to kill process tree", "pid", e.proc.Process.Pid, "error", err)
	}
}

// read splits r into lines, records them, and forwards them to the callback.
// Lines may be arbitrarily long; a trailing line without newline is kept.
func (e *Execution) read(r *io.PipeReader, origin Origin) error {
	br := bufio.NewReader(r)
	for {
		text, err := br.ReadString('\n')
		if text != "" {
			e.deliver(origin, trimEOL(text))
		}
		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		// Keep the writer side unblocked so the process cannot stall on a full pipe.
		_, _ = io.Copy(io.Discard, r)
		return fmt.Errorf("read %s: %w", origin, err)
	}
}

func (e *Execution) deliver(origin Origin, text string) {
	e.mu.Lock()
	e.seq++
	line := Line{Seq: e.seq, Origin: origin, Text: text}
	e.lines = append(e.lines, line)
	e.mu.Unlock()

	if e.onLine != nil {
		e.onLine(line)
	}
}

func (e *Execution) finish(waitErr, readErr error, claimedExit bool, elapsed time.Duration) {
	cause := Cause(e.cause.Load())

	outcome := &ExecutionOutcome{
		Command:  e.cmd.DisplayName(),
		Duration: elapsed,
		Cause:    cause,
	}

	var errs []error
	if readErr != nil {
		errs = append(errs, readErr)
	}
	var exitErr *exec.ExitError
	switch {
	case waitErr == nil, errors.As(waitErr, &exitErr):
	case errors.Is(waitErr, exec.ErrWaitDelay):
		errs = append(errs, fmt.Errorf("output abandoned after %s: %w", e.proc.WaitDelay, waitErr))
	default:
		errs = append(errs, waitErr)
	}
	outcome.Err = errors.Join(errs...)

	if claimedExit && e.proc.ProcessState != nil {
		code := ExitCode(exitCodeOf(e.proc.ProcessState))
		outcome.ExitCode = &code
	}

	e.mu.Lock()
	outcome.Lines = e.lines
	e.outcome = outcome
	e.mu.Unlock()

	e.logger.Debug("process finished",
		"cause", cause.String(),
		"exit_code", exitCodeField(outcome.ExitCode),
		"duration", outcome.Duration,
		"lines", len(outcome.Lines))
	close(e.done)
}

func trimEOL(s string) string {
	s = strings.TrimSuffix(s, "\n")
	return strings.TrimSuffix(s, "\r")
}

func exitCodeField(c *ExitCode) string {
	if c == nil {
		return "none"
	}
	return c.String()
}
