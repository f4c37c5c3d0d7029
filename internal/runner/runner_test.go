// SPDX-License-Identifier: MPL-2.0

package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"toolhost-cli/pkg/command"
)

// skipOnWindows skips tests that rely on POSIX utilities.
func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("skipping: test uses POSIX shell utilities")
	}
}

func sh(script string) command.Command {
	return command.New("/bin/sh").WithArgs("-c", script)
}

type prefixResolver struct{ from, to string }

func (p prefixResolver) Resolve(path string) string {
	if rest, ok := strings.CutPrefix(path, p.from); ok {
		return p.to + rest
	}
	return path
}

func TestRunEcho(t *testing.T) {
	t.Parallel()
	skipOnWindows(t)

	out, err := New().Run(context.Background(), command.New("echo").WithArgs("hello"), RunOptions{})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	code, ok := out.Code()
	if !ok || code != 0 {
		t.Fatalf("exit code = %v (present=%v), want 0", code, ok)
	}
	if out.Cause != CauseExited {
		t.Errorf("Cause = %s, want exited", out.Cause)
	}
	if got := out.Stdout(); !slices.Equal(got, []string{"hello"}) {
		t.Errorf("Stdout() = %q, want [hello]", got)
	}
	if out.Err != nil {
		t.Errorf("Err = %v", out.Err)
	}
}

func TestRunNonZeroExitIsNotAnError(t *testing.T) {
	t.Parallel()
	skipOnWindows(t)

	out, err := New().Run(context.Background(), sh("exit 3"), RunOptions{})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	code, ok := out.Code()
	if !ok || code != 3 {
		t.Errorf("exit code = %v (present=%v), want 3", code, ok)
	}
	if out.Succeeded() {
		t.Error("Succeeded() = true for exit 3")
	}
	if out.CauseErr() != nil {
		t.Errorf("CauseErr() = %v, want nil", out.CauseErr())
	}
}

func TestRunTimeout(t *testing.T) {
	t.Parallel()
	skipOnWindows(t)

	const (
		timeout   = 200 * time.Millisecond
		killGrace = 500 * time.Millisecond
	)
	start := time.Now()
	out, err := New(WithKillGrace(killGrace)).Run(context.Background(), sh("sleep 5"), RunOptions{Timeout: timeout})
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if out.ExitCode != nil {
		t.Errorf("ExitCode = %v, want absent", *out.ExitCode)
	}
	if out.Cause != CauseTimedOut {
		t.Errorf("Cause = %s, want timed out", out.Cause)
	}
	if !errors.Is(out.CauseErr(), ErrTimeoutExpired) {
		t.Errorf("CauseErr() = %v, want ErrTimeoutExpired", out.CauseErr())
	}
	// The kill grace only bounds draining pipes after the tree is killed, so
	// it is the whole allowance past the deadline.
	if elapsed > timeout+killGrace {
		t.Errorf("Run() took %s, want at most %s", elapsed, timeout+killGrace)
	}
}

func TestRunKillsDescendants(t *testing.T) {
	t.Parallel()
	skipOnWindows(t)

	// The grandchild inherits the pipes; if it survived, readers would block
	// until the kill grace expired.
	start := time.Now()
	out, err := New(WithKillGrace(3*time.Second)).Run(context.Background(), sh("sleep 30 & sleep 30; wait"), RunOptions{Timeout: 100 * time.Millisecond})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if out.Cause != CauseTimedOut {
		t.Errorf("Cause = %s, want timed out", out.Cause)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Run() took %s, descendants were likely not killed", elapsed)
	}
}

func TestCancel(t *testing.T) {
	t.Parallel()
	skipOnWindows(t)

	e, err := New().RunAsync(context.Background(), sh("sleep 5"), RunOptions{})
	if err != nil {
		t.Fatalf("RunAsync() error: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	e.Cancel()
	e.Cancel()

	select {
	case <-e.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("execution did not end after Cancel")
	}
	out := e.Wait()
	if out.ExitCode != nil {
		t.Errorf("ExitCode = %v, want absent", *out.ExitCode)
	}
	if !errors.Is(out.CauseErr(), ErrCancelled) {
		t.Errorf("CauseErr() = %v, want ErrCancelled", out.CauseErr())
	}
}

func TestContextCancellation(t *testing.T) {
	t.Parallel()
	skipOnWindows(t)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	out, err := New().Run(ctx, sh("sleep 5"), RunOptions{})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if out.ExitCode != nil || out.Cause != CauseCancelled {
		t.Errorf("outcome = %+v, want cancelled with absent exit code", out)
	}
}

func TestCancelAfterExitKeepsExitCode(t *testing.T) {
	t.Parallel()
	skipOnWindows(t)

	e, err := New().RunAsync(context.Background(), sh("exit 4"), RunOptions{})
	if err != nil {
		t.Fatalf("RunAsync() error: %v", err)
	}
	out := e.Wait()
	e.Cancel()
	if code, ok := out.Code(); !ok || code != 4 {
		t.Errorf("exit code = %v (present=%v), want 4", code, ok)
	}
}

func TestStartFailure(t *testing.T) {
	t.Parallel()

	missing := filepath.Join(t.TempDir(), "does-not-exist")
	_, err := New().Run(context.Background(), command.New(missing), RunOptions{})

	var startErr *ProcessStartError
	if !errors.As(err, &startErr) {
		t.Fatalf("Run() error = %v, want *ProcessStartError", err)
	}
	if !startErr.NotFound() {
		t.Errorf("NotFound() = false for %v", startErr.Err)
	}
	if startErr.Executable != missing {
		t.Errorf("Executable = %q, want %q", startErr.Executable, missing)
	}
}

func TestStartFailureEmptyExecutable(t *testing.T) {
	t.Parallel()

	_, err := New().Run(context.Background(), command.New(""), RunOptions{})
	if !errors.Is(err, command.ErrEmptyExecutable) {
		t.Errorf("Run() error = %v, want ErrEmptyExecutable", err)
	}
}

func TestStartFailurePermissionDenied(t *testing.T) {
	t.Parallel()
	skipOnWindows(t)
	if os.Geteuid() == 0 {
		t.Skip("root can execute files without the execute bit")
	}

	path := filepath.Join(t.TempDir(), "script.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\necho hi\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := New().Run(context.Background(), command.New(path), RunOptions{})
	var startErr *ProcessStartError
	if !errors.As(err, &startErr) || !startErr.PermissionDenied() {
		t.Errorf("Run() error = %v, want permission denied", err)
	}
}

func TestOriginTaggingAndOrder(t *testing.T) {
	t.Parallel()
	skipOnWindows(t)

	var (
		mu       sync.Mutex
		callback []Line
	)
	out, err := New().Run(context.Background(),
		sh("echo o1; echo e1 >&2; echo o2; echo e2 >&2; printf tail"),
		RunOptions{OnLine: func(l Line) {
			mu.Lock()
			callback = append(callback, l)
			mu.Unlock()
		}})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if got := out.Stdout(); !slices.Equal(got, []string{"o1", "o2", "tail"}) {
		t.Errorf("Stdout() = %q", got)
	}
	if got := out.Stderr(); !slices.Equal(got, []string{"e1", "e2"}) {
		t.Errorf("Stderr() = %q", got)
	}
	if len(callback) != len(out.Lines) {
		t.Errorf("callback saw %d lines, outcome has %d", len(callback), len(out.Lines))
	}
	for i, l := range out.Lines {
		if l.Seq != i+1 {
			t.Errorf("Lines[%d].Seq = %d, want %d", i, l.Seq, i+1)
		}
	}
}

func TestStdinAndEnv(t *testing.T) {
	t.Parallel()
	skipOnWindows(t)

	cmd := sh(`read line; echo "$line-$GREETING"`).
		WithStdin("hello\n").
		WithEnv("GREETING", "world")
	out, err := New(WithBaseEnv([]string{"PATH=" + os.Getenv("PATH")})).Run(context.Background(), cmd, RunOptions{})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if got := out.Stdout(); !slices.Equal(got, []string{"hello-world"}) {
		t.Errorf("Stdout() = %q, want [hello-world]", got)
	}
}

func TestWorkDirAndResolver(t *testing.T) {
	t.Parallel()
	skipOnWindows(t)

	dir := t.TempDir()
	res := prefixResolver{from: "/virtual", to: dir}
	cmd := command.New("pwd").WithWorkDir("/virtual")

	out, err := New(WithResolver(res)).Run(context.Background(), cmd, RunOptions{})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	want, _ := filepath.EvalSymlinks(dir)
	got := out.Stdout()
	if len(got) != 1 {
		t.Fatalf("Stdout() = %q", got)
	}
	if resolved, _ := filepath.EvalSymlinks(got[0]); resolved != want {
		t.Errorf("pwd = %q, want %q", got[0], want)
	}
	if e := out.Command; e != "pwd" {
		t.Errorf("Command = %q, want pwd", e)
	}
}

func TestLongLine(t *testing.T) {
	t.Parallel()
	skipOnWindows(t)

	out, err := New().Run(context.Background(), sh("head -c 200000 /dev/zero | tr '\\0' x; echo"), RunOptions{})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	lines := out.Stdout()
	if len(lines) != 1 || len(lines[0]) != 200000 {
		t.Errorf("got %d lines, first of length %d", len(lines), len(lines[0]))
	}
}

func TestExitCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code    ExitCode
		success bool
		str     string
	}{
		{0, true, "0"},
		{1, false, "1"},
		{137, false, "137"},
	}
	for _, tt := range tests {
		if tt.code.IsSuccess() != tt.success {
			t.Errorf("ExitCode(%d).IsSuccess() = %v", tt.code, !tt.success)
		}
		if tt.code.String() != tt.str {
			t.Errorf("ExitCode(%d).String() = %q", tt.code, tt.code.String())
		}
	}
}
