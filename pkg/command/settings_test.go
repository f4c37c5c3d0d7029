// SPDX-License-Identifier: MPL-2.0

package command

import (
	"slices"
	"testing"
)

func TestFromSettings(t *testing.T) {
	t.Parallel()

	input := "y\n"
	cmd, err := FromSettings(Settings{
		Tool:       "dotnet",
		ToolPath:   "/opt/dotnet/dotnet",
		Verb:       []string{"test"},
		Positional: []string{"Tests.csproj"},
		Options: []Option{
			{Name: "--configuration", Value: "Release"},
			{Name: "--results-directory", Value: "/home/ci/out", Path: true},
			{Name: "--logger", Value: "trx", Joined: true},
			{Name: "--framework", Value: ""},
		},
		Switches:     []string{"--no-build"},
		Properties:   map[string]string{"Version": "1.2.3", "CI": "true"},
		Env:          map[string]string{"DOTNET_NOLOGO": "1"},
		WorkDir:      "/home/ci/src",
		LogDir:       "/home/ci/logs",
		LogDirOption: "--diag-dir",
		DisplayName:  "unit tests",
		Stdin:        &input,
	})
	if err != nil {
		t.Fatalf("FromSettings() error: %v", err)
	}

	wantArgv := []string{
		"/opt/dotnet/dotnet", "test", "Tests.csproj",
		"--configuration", "Release",
		"--results-directory", "/home/ci/out",
		"--logger=trx",
		"--framework",
		"--diag-dir", "/home/ci/logs",
		"--no-build",
		"-p:CI=true", "-p:Version=1.2.3",
	}
	if got := cmd.Argv(); !slices.Equal(got, wantArgv) {
		t.Errorf("Argv() =\n%q\nwant\n%q", got, wantArgv)
	}
	if v, _ := cmd.LookupEnv("DOTNET_NOLOGO"); v != "1" {
		t.Errorf("DOTNET_NOLOGO = %q", v)
	}
	if in, ok := cmd.Stdin(); !ok || in != input {
		t.Errorf("Stdin() = %q, %v", in, ok)
	}

	resolved := cmd.Resolve(prefixResolver{from: "/home/ci", to: "/ctx"})
	if got := resolved.Args()[5]; got != "/ctx/out" {
		t.Errorf("resolved results directory = %q, want /ctx/out", got)
	}
	if got := resolved.WorkDir(); got != "/ctx/src" {
		t.Errorf("resolved WorkDir() = %q, want /ctx/src", got)
	}
	if got := resolved.Args()[9]; got != "/ctx/logs" {
		t.Errorf("resolved log directory = %q, want /ctx/logs", got)
	}
}

func TestFromSettingsDefaultLogDirOption(t *testing.T) {
	t.Parallel()

	cmd, err := FromSettings(Settings{Tool: "make", LogDir: "/var/log/build", Switches: []string{"-k"}})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"make", DefaultLogDirOption, "/var/log/build", "-k"}
	if got := cmd.Argv(); !slices.Equal(got, want) {
		t.Errorf("Argv() = %q, want %q", got, want)
	}
}

func TestFromSettingsValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		settings Settings
	}{
		{name: "missing tool", settings: Settings{Verb: []string{"build"}}},
		{name: "option without name", settings: Settings{Tool: "npm", Options: []Option{{Value: "x"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := FromSettings(tt.settings); err == nil {
				t.Error("FromSettings() returned nil error")
			}
		})
	}
}

func TestFromSettingsCustomPropertyPrefix(t *testing.T) {
	t.Parallel()

	cmd, err := FromSettings(Settings{
		Tool:           "msbuild",
		Properties:     map[string]string{"Configuration": "Debug"},
		PropertyPrefix: "/p:",
	})
	if err != nil {
		t.Fatalf("FromSettings() error: %v", err)
	}
	if got := cmd.Args(); !slices.Equal(got, []string{"/p:Configuration=Debug"}) {
		t.Errorf("Args() = %q", got)
	}
}
