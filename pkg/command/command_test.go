// SPDX-License-Identifier: MPL-2.0

package command

import (
	"errors"
	"runtime"
	"slices"
	"strings"
	"testing"

	"toolhost-cli/pkg/platform"
)

type prefixResolver struct {
	from, to string
}

func (r prefixResolver) Resolve(path string) string {
	if rest, ok := strings.CutPrefix(path, r.from); ok {
		return r.to + rest
	}
	return path
}

func TestNewSkipsBlankArgs(t *testing.T) {
	t.Parallel()

	cmd := New("dotnet", "build", "", "  ", "src/App.csproj")
	want := []string{"build", "src/App.csproj"}
	if got := cmd.Args(); !slices.Equal(got, want) {
		t.Errorf("Args() = %q, want %q", got, want)
	}
}

func TestWithArgsDoesNotMutateReceiver(t *testing.T) {
	t.Parallel()

	base := New("go", "test")
	unit := base.WithArgs("./internal/...")
	e2e := base.WithArgs("./tests/...").WithEnv("CGO_ENABLED", "0")

	if got := base.Args(); !slices.Equal(got, []string{"test"}) {
		t.Errorf("base.Args() = %q, want [test]", got)
	}
	if got := unit.Args(); !slices.Equal(got, []string{"test", "./internal/..."}) {
		t.Errorf("unit.Args() = %q", got)
	}
	if _, ok := unit.LookupEnv("CGO_ENABLED"); ok {
		t.Error("env written on a derived command leaked into a sibling")
	}
	if v, ok := e2e.LookupEnv("CGO_ENABLED"); !ok || v != "0" {
		t.Errorf("e2e.LookupEnv(CGO_ENABLED) = %q, %v", v, ok)
	}
}

func TestWithArgsIsAssociative(t *testing.T) {
	t.Parallel()

	a := New("tool").WithArgs("a", "b").WithArgs("c")
	b := New("tool").WithArgs("a").WithArgs("b", "c")
	if !slices.Equal(a.Argv(), b.Argv()) {
		t.Errorf("argv differ: %q vs %q", a.Argv(), b.Argv())
	}
}

func TestWithEnvLastWriteWins(t *testing.T) {
	t.Parallel()

	cmd := New("tool").
		WithEnv("CONFIGURATION", "Debug").
		WithEnvMap(map[string]string{"VERBOSITY": "minimal"}).
		WithEnv("CONFIGURATION", "Release")

	if v, _ := cmd.LookupEnv("CONFIGURATION"); v != "Release" {
		t.Errorf("CONFIGURATION = %q, want Release", v)
	}
	if got := len(cmd.Env()); got != 2 {
		t.Errorf("len(Env()) = %d, want 2", got)
	}
}

func TestWithEnvCaseFolding(t *testing.T) {
	t.Parallel()

	cmd := New("tool").WithEnv("Path", "a").WithEnv("PATH", "b")

	if runtime.GOOS == platform.Windows {
		if got := len(cmd.Env()); got != 1 {
			t.Fatalf("len(Env()) = %d, want 1 on windows", got)
		}
		if v, _ := cmd.LookupEnv("path"); v != "b" {
			t.Errorf("LookupEnv(path) = %q, want b", v)
		}
		return
	}
	if got := len(cmd.Env()); got != 2 {
		t.Errorf("len(Env()) = %d, want 2 on case-sensitive hosts", got)
	}
}

func TestEnvironOverridesBase(t *testing.T) {
	t.Parallel()

	cmd := New("tool").WithEnv("HOME", "/work").WithEnv("EXTRA", "1")
	env := cmd.Environ([]string{"HOME=/root", "PATH=/bin"})

	want := []string{"PATH=/bin", "EXTRA=1", "HOME=/work"}
	if !slices.Equal(env, want) {
		t.Errorf("Environ() = %q, want %q", env, want)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	if err := New("  ").Validate(); !errors.Is(err, ErrEmptyExecutable) {
		t.Errorf("Validate() = %v, want ErrEmptyExecutable", err)
	}
	if err := New("echo").Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestStdinAndDisplayName(t *testing.T) {
	t.Parallel()

	cmd := New("/usr/local/bin/dotnet")
	if _, ok := cmd.Stdin(); ok {
		t.Error("Stdin() reported input on a fresh command")
	}
	if got := cmd.DisplayName(); got != "dotnet" {
		t.Errorf("DisplayName() = %q, want dotnet", got)
	}

	cmd = cmd.WithStdin("").WithDisplayName("restore")
	if in, ok := cmd.Stdin(); !ok || in != "" {
		t.Errorf("Stdin() = %q, %v; want empty, true", in, ok)
	}
	if got := cmd.DisplayName(); got != "restore" {
		t.Errorf("DisplayName() = %q, want restore", got)
	}
}

func TestResolveRewritesOnlyPaths(t *testing.T) {
	t.Parallel()

	r := prefixResolver{from: "/home/ci/build", to: "/workspace"}
	cmd := New("/home/ci/build/tools/dotnet", "test").
		WithArgs("/home/ci/build/not-a-path-arg").
		WithPathArg("/home/ci/build/logs").
		WithWorkDir("/home/ci/build/src")

	got := cmd.Resolve(r)

	if got.Executable() != "/workspace/tools/dotnet" {
		t.Errorf("Executable() = %q", got.Executable())
	}
	if got.WorkDir() != "/workspace/src" {
		t.Errorf("WorkDir() = %q", got.WorkDir())
	}
	want := []string{"test", "/home/ci/build/not-a-path-arg", "/workspace/logs"}
	if !slices.Equal(got.Args(), want) {
		t.Errorf("Args() = %q, want %q", got.Args(), want)
	}
	if cmd.WorkDir() != "/home/ci/build/src" {
		t.Error("Resolve mutated the receiver")
	}
}

func TestResolveLeavesBareExecutable(t *testing.T) {
	t.Parallel()

	r := prefixResolver{from: "dotnet", to: "/opt/dotnet"}
	if got := New("dotnet").Resolve(r).Executable(); got != "dotnet" {
		t.Errorf("Executable() = %q, want dotnet", got)
	}
	if got := New("dotnet").Resolve(nil).Executable(); got != "dotnet" {
		t.Errorf("Resolve(nil).Executable() = %q", got)
	}
}
