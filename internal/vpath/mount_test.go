// SPDX-License-Identifier: MPL-2.0

package vpath

import (
	"errors"
	"path/filepath"
	"runtime"
	"testing"
)

func TestMountResolver(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("host paths below are POSIX")
	}

	r := NewMountResolver(
		Mount{HostPath: "/home/ci/repo", ContextPath: "/workspace"},
		Mount{HostPath: "/home/ci/repo/.nuget/", ContextPath: "/root/.nuget/packages"},
	)
	next := func(p string) string { return "next:" + p }

	tests := []struct {
		in   string
		want string
	}{
		{"/home/ci/repo", "/workspace"},
		{"/home/ci/repo/src/App.csproj", "/workspace/src/App.csproj"},
		{"/home/ci/repo/.nuget/newtonsoft.json", "/root/.nuget/packages/newtonsoft.json"},
		{"/home/ci/repository", "next:/home/ci/repository"},
		{"/tmp/x", "next:/tmp/x"},
		{"/home/ci/repo/../other", "next:/home/ci/repo/../other"},
	}

	for _, tt := range tests {
		if got := r.Resolve(tt.in, next); got != tt.want {
			t.Errorf("Resolve(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMountResolverOrder(t *testing.T) {
	t.Parallel()

	r := NewMountResolver(
		Mount{HostPath: filepath.FromSlash("/a"), ContextPath: "/x"},
		Mount{HostPath: filepath.FromSlash("/a/b/c"), ContextPath: "/y"},
	)
	mounts := r.Mounts()
	if mounts[0].ContextPath != "/y" {
		t.Errorf("longest host path should match first, got %+v", mounts)
	}
}

func TestParseMount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		spec    string
		want    Mount
		wantErr bool
	}{
		{spec: "/src:/workspace", want: Mount{HostPath: "/src", ContextPath: "/workspace"}},
		{spec: "/src:/workspace:ro", want: Mount{HostPath: "/src", ContextPath: "/workspace"}},
		{spec: `C:\src:/src`, want: Mount{HostPath: `C:\src`, ContextPath: "/src"}},
		{spec: "/src", wantErr: true},
		{spec: "/src:", wantErr: true},
		{spec: ":/x", wantErr: true},
		{spec: "/src:relative", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseMount(tt.spec)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidMount) {
				t.Errorf("ParseMount(%q) error = %v, want ErrInvalidMount", tt.spec, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseMount(%q) error: %v", tt.spec, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMount(%q) = %+v, want %+v", tt.spec, got, tt.want)
		}
	}
}
