// SPDX-License-Identifier: MPL-2.0

package container

import (
	"errors"
	"runtime"
	"slices"
	"strings"
	"testing"

	"toolhost-cli/internal/vpath"
	"toolhost-cli/pkg/command"
)

func newTestSession(t *testing.T, vctx *vpath.Context, opts SessionOptions) *Session {
	t.Helper()
	s, err := NewSession(NewDockerEngine(WithBinaryPath("docker")), vctx, opts)
	if err != nil {
		t.Fatalf("NewSession() error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSessionWrapRun(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("host paths below are POSIX")
	}

	vctx := vpath.NewContext()
	s := newTestSession(t, vctx, SessionOptions{
		Image:   "mcr.microsoft.com/dotnet/sdk:8.0",
		Volumes: []VolumeMount{{HostPath: "/home/ci/repo", ContainerPath: "/workspace"}},
		WorkDir: "/workspace",
		Env:     map[string]string{"DOTNET_NOLOGO": "1", "CONFIGURATION": "Debug"},
	})

	cmd := command.New("dotnet", "test").
		WithPathArg("/home/ci/repo/App.sln").
		WithRawArg("").
		WithEnv("CONFIGURATION", "Release").
		WithDisplayName("dotnet test")

	inv := s.Prepare(cmd)
	if !strings.HasPrefix(inv.Container, containerNamePrefix) || len(inv.Container) != len(containerNamePrefix)+12 {
		t.Fatalf("Container = %q", inv.Container)
	}
	if next := s.Prepare(cmd).Container; next == inv.Container {
		t.Errorf("Prepare() reused container name %q", next)
	}

	got := inv.Command
	want := []string{
		"docker", "run", "--rm", "--name", inv.Container, "-w", "/workspace",
		"-e", "CONFIGURATION=Release", "-e", "DOTNET_NOLOGO=1",
		"-v", "/home/ci/repo:/workspace",
		"mcr.microsoft.com/dotnet/sdk:8.0",
		"dotnet", "test", "/workspace/App.sln", "",
	}
	if !slices.Equal(got.Argv(), want) {
		t.Errorf("Wrap() argv =\n%q\nwant\n%q", got.Argv(), want)
	}
	if got.DisplayName() != "dotnet test" {
		t.Errorf("DisplayName() = %q", got.DisplayName())
	}
	if got.WorkDir() != "" {
		t.Errorf("outer WorkDir() = %q, want host default", got.WorkDir())
	}
	if s.Resolve("/home/ci/repo/logs") != "/workspace/logs" {
		t.Errorf("Resolve() = %q", s.Resolve("/home/ci/repo/logs"))
	}
}

func TestSessionWrapExecWithStdin(t *testing.T) {
	t.Parallel()

	s := newTestSession(t, vpath.NewContext(), SessionOptions{ContainerID: "c0ffee"})
	inv := s.Prepare(command.New("cat").WithStdin("data").WithWorkDir("/tmp"))
	if inv.Container != "" {
		t.Errorf("exec session should not own a container, got %q", inv.Container)
	}
	got := inv.Command

	want := []string{"docker", "exec", "-i", "-w", "/tmp", "c0ffee", "cat"}
	if !slices.Equal(got.Argv(), want) {
		t.Errorf("Wrap() argv = %q, want %q", got.Argv(), want)
	}
	if in, ok := got.Stdin(); !ok || in != "data" {
		t.Errorf("Stdin() = %q, %v", in, ok)
	}
}

func TestSessionLeavesParentContextUntouched(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("host paths below are POSIX")
	}

	parent := vpath.NewContext()
	defer parent.Register(vpath.NewMountResolver(vpath.Mount{HostPath: "/opt/tools", ContextPath: "/tools"})).Dispose()

	s, err := NewSession(NewDockerEngine(), parent, SessionOptions{
		Image:   "debian:stable-slim",
		Volumes: []VolumeMount{{HostPath: "/data", ContainerPath: "/mnt/data"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if parent.Active() || parent.Resolvers() != 1 {
		t.Fatalf("session modified parent: active=%v resolvers=%d", parent.Active(), parent.Resolvers())
	}

	tests := []struct {
		path string
		want string
	}{
		{"/data/in.txt", "/mnt/data/in.txt"},
		{"/opt/tools/dotnet", "/tools/dotnet"},
		{"/elsewhere", "/elsewhere"},
	}
	for _, tt := range tests {
		if got := s.Resolve(tt.path); got != tt.want {
			t.Errorf("session Resolve(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}

	func() {
		defer parent.Activate().Dispose()
		if got := parent.Resolve("/data/in.txt"); got != "/data/in.txt" {
			t.Errorf("parent Resolve() = %q, want session mounts invisible", got)
		}
	}()

	_ = s.Close()
	_ = s.Close()
	if got := s.Resolve("/data/in.txt"); got != "/data/in.txt" {
		t.Errorf("Resolve() after Close() = %q, want unchanged", got)
	}
}

func TestSessionResolvesSettingsLogDir(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("host paths below are POSIX")
	}

	s := newTestSession(t, vpath.NewContext(), SessionOptions{
		Image:   "mcr.microsoft.com/dotnet/sdk:8.0",
		Volumes: []VolumeMount{{HostPath: "/home/ci/repo", ContainerPath: "/workspace"}},
	})
	cmd, err := command.FromSettings(command.Settings{
		Tool:         "dotnet",
		Verb:         []string{"test"},
		LogDir:       "/home/ci/repo/artifacts/logs",
		LogDirOption: "--diag-dir",
	})
	if err != nil {
		t.Fatal(err)
	}

	argv := s.Wrap(cmd).Argv()
	idx := slices.Index(argv, "--diag-dir")
	if idx < 0 || idx+1 >= len(argv) || argv[idx+1] != "/workspace/artifacts/logs" {
		t.Errorf("Wrap() argv = %q, want the log directory mapped into the container", argv)
	}
}

func TestSessionRemoveCommand(t *testing.T) {
	t.Parallel()

	s := newTestSession(t, vpath.NewContext(), SessionOptions{Image: "img"})
	got := s.RemoveCommand("toolhost-abc")
	want := []string{"docker", "rm", "-f", "toolhost-abc"}
	if !slices.Equal(got.Argv(), want) {
		t.Errorf("RemoveCommand() argv = %q, want %q", got.Argv(), want)
	}
}

func TestNewSessionValidation(t *testing.T) {
	t.Parallel()

	vctx := vpath.NewContext()
	if _, err := NewSession(NewDockerEngine(), vctx, SessionOptions{}); !errors.Is(err, ErrNoTarget) {
		t.Errorf("NewSession() without target = %v, want ErrNoTarget", err)
	}
	_, err := NewSession(NewDockerEngine(), vctx, SessionOptions{
		Image:   "img",
		Volumes: []VolumeMount{{HostPath: "/a", ContainerPath: "relative"}},
	})
	if !errors.Is(err, ErrInvalidVolumeMount) {
		t.Errorf("NewSession() with bad volume = %v, want ErrInvalidVolumeMount", err)
	}
	if vctx.Active() || vctx.Resolvers() != 0 {
		t.Error("failed NewSession() touched the parent context")
	}
}
