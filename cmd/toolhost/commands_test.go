// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"toolhost-cli/internal/config"
	"toolhost-cli/internal/report"
	"toolhost-cli/internal/runner"
	"toolhost-cli/internal/servicemsg"
	"toolhost-cli/internal/testutil"

	"gopkg.in/yaml.v3"
)

const sampleLog = `Restoring packages
##teamcity[testStarted name='Suite.A']
##teamcity[testFinished name='Suite.A' duration='5']
##teamcity[testStarted name='Suite.B']
##teamcity[testFailed name='Suite.B' message='expected 1, got 2']
##teamcity[testFinished name='Suite.B' duration='7']
##teamcity[setParameter name='coverage' value='81.5']
src/App.cs(3,7): warning CS0168: The variable 'x' is declared but never used
`

type jsonReport struct {
	ExitCode *int           `json:"exit_code"`
	Cause    string         `json:"cause"`
	Summary  report.Summary `json:"summary"`
	Tests    []struct {
		ID      string `json:"id"`
		State   string `json:"state"`
		Failure string `json:"failure"`
	} `json:"tests"`
	Messages []struct {
		Severity string `json:"severity"`
		File     string `json:"file"`
		Line     int    `json:"line"`
		Code     string `json:"code"`
	} `json:"messages"`
	Parameters map[string]string `json:"parameters"`
}

func TestParseCommandJSON(t *testing.T) {
	t.Parallel()

	out, _, err := executeCLI(t, &fakeConfigProvider{}, sampleLog, "parse", "--format", "json", "-")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	var got jsonReport
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if got.ExitCode == nil || *got.ExitCode != 0 {
		t.Errorf("exit_code = %v, want 0", got.ExitCode)
	}
	if got.Cause != "exited" {
		t.Errorf("cause = %q, want exited", got.Cause)
	}
	want := report.Summary{Total: 2, Passed: 1, Failed: 1}
	if got.Summary != want {
		t.Errorf("summary = %+v, want %+v", got.Summary, want)
	}
	if len(got.Tests) != 2 || got.Tests[1].State != "Failed" || got.Tests[1].Failure != "expected 1, got 2" {
		t.Errorf("tests = %+v", got.Tests)
	}
	if got.Parameters["coverage"] != "81.5" {
		t.Errorf("parameters = %v, want coverage=81.5", got.Parameters)
	}

	var warning bool
	for _, m := range got.Messages {
		if m.Severity == "warning" && m.File == "src/App.cs" && m.Line == 3 && m.Code == "CS0168" {
			warning = true
		}
	}
	if !warning {
		t.Errorf("messages = %+v, want the CS0168 warning", got.Messages)
	}
}

func TestParseCommandExitCode(t *testing.T) {
	t.Parallel()

	out, _, err := executeCLI(t, &fakeConfigProvider{}, sampleLog, "parse", "--exit-code", "3", "-")

	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("error = %v, want *ExitError", err)
	}
	if exitErr.Code != 3 {
		t.Errorf("exit code = %d, want 3", exitErr.Code)
	}
	var failed *report.BuildFailedError
	if !errors.As(err, &failed) {
		t.Errorf("error = %v, want it to wrap *report.BuildFailedError", err)
	}
	if !strings.Contains(out, "Suite.B") || !strings.Contains(out, "expected 1, got 2") {
		t.Errorf("text report is missing the failed test:\n%s", out)
	}
}

func TestParseCommandFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "build.log")
	testutil.MustWriteFile(t, path, []byte(sampleLog), 0o644)

	out, _, err := executeCLI(t, &fakeConfigProvider{}, "", "parse", "--format", "yaml", path)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	var got struct {
		Summary report.Summary `yaml:"summary"`
	}
	if err := yaml.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if got.Summary.Total != 2 {
		t.Errorf("summary = %+v, want 2 tests", got.Summary)
	}
}

func TestParseCommandMissingFile(t *testing.T) {
	t.Parallel()

	_, _, err := executeCLI(t, &fakeConfigProvider{}, "", "parse", filepath.Join(t.TempDir(), "missing.log"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error = %v, want os.ErrNotExist", err)
	}
}

func TestParseCommandRejectsFormat(t *testing.T) {
	t.Parallel()

	_, _, err := executeCLI(t, &fakeConfigProvider{}, sampleLog, "parse", "--format", "xml", "-")
	if !errors.Is(err, config.ErrInvalidReportFormat) {
		t.Errorf("error = %v, want ErrInvalidReportFormat", err)
	}
}

func TestRunCommand(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("uses a POSIX shell")
	}

	script := `echo "##teamcity[testStarted name='T1']"; ` +
		`echo "##teamcity[testFinished name='T1' duration='3']"; ` +
		`echo warn >&2; exit 0`
	out, _, err := executeCLI(t, &fakeConfigProvider{}, "", "run", "--format", "json", "-C", t.TempDir(), "--", "sh", "-c", script)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	var got jsonReport
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if got.Summary.Passed != 1 {
		t.Errorf("summary = %+v, want 1 passed", got.Summary)
	}
	var stderr bool
	for _, m := range got.Messages {
		if m.Severity == "stderr" {
			stderr = true
		}
	}
	if !stderr {
		t.Errorf("messages = %+v, want a stderr line", got.Messages)
	}
}

func TestRunCommandExitCode(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("uses a POSIX shell")
	}

	_, _, err := executeCLI(t, &fakeConfigProvider{}, "", "run", "--", "sh", "-c", "exit 7")
	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != 7 {
		t.Errorf("error = %v, want exit code 7", err)
	}
}

func TestRunCommandTimeout(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("uses a POSIX shell")
	}

	_, _, err := executeCLI(t, &fakeConfigProvider{}, "", "run", "--timeout", "200ms", "--", "sh", "-c", "sleep 30")
	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != ExitTimeout {
		t.Errorf("error = %v, want exit code %d", err, ExitTimeout)
	}
}

func TestRunCommandEcho(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("uses a POSIX shell")
	}

	out, _, err := executeCLI(t, &fakeConfigProvider{}, "", "run", "--echo", "--", "sh", "-c", "echo streamed-line")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out, "streamed-line") {
		t.Errorf("stdout = %q, want the echoed line", out)
	}
}

func TestRunCommandBadPairs(t *testing.T) {
	t.Parallel()

	_, _, err := executeCLI(t, &fakeConfigProvider{}, "", "run", "-e", "NOVALUE", "--", "true")
	if err == nil || !strings.Contains(err.Error(), "NAME=VALUE") {
		t.Errorf("error = %v, want NAME=VALUE complaint", err)
	}
}

func TestParsePairs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		values  []string
		want    map[string]string
		wantErr bool
	}{
		{name: "empty", want: map[string]string{}},
		{name: "simple", values: []string{"A=1", "B=two"}, want: map[string]string{"A": "1", "B": "two"}},
		{name: "value with equals", values: []string{"OPTS=-x=1"}, want: map[string]string{"OPTS": "-x=1"}},
		{name: "empty value", values: []string{"EMPTY="}, want: map[string]string{"EMPTY": ""}},
		{name: "missing equals", values: []string{"A"}, wantErr: true},
		{name: "blank name", values: []string{" =1"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := parsePairs("env", tt.values)
			if tt.wantErr {
				if err == nil {
					t.Errorf("parsePairs(%v) succeeded, want error", tt.values)
				}
				return
			}
			if err != nil {
				t.Fatalf("parsePairs(%v): %v", tt.values, err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("parsePairs(%v) = %v, want %v", tt.values, got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("parsePairs(%v)[%q] = %q, want %q", tt.values, k, got[k], v)
				}
			}
		})
	}
}

func TestBuildCommand(t *testing.T) {
	t.Parallel()

	abs := filepath.Join(t.TempDir(), "App.sln")
	cmd := buildCommand([]string{"/usr/bin/dotnet", "test", abs}, map[string]string{"CI": "1"})

	if got := cmd.DisplayName(); got != "dotnet" {
		t.Errorf("DisplayName() = %q, want dotnet", got)
	}
	args := cmd.Args()
	if len(args) != 2 || args[0] != "test" || args[1] != abs {
		t.Errorf("Args() = %v, want [test %s]", args, abs)
	}
	resolved := cmd.Resolve(prefixResolver("/ctx"))
	if got := resolved.Args()[1]; got != "/ctx"+abs {
		t.Errorf("absolute argument resolved to %q, want it rewritten", got)
	}
	if got := resolved.Args()[0]; got != "test" {
		t.Errorf("raw argument resolved to %q, want it untouched", got)
	}
}

type prefixResolver string

func (p prefixResolver) Resolve(path string) string { return string(p) + path }

func TestConfigShow(t *testing.T) {
	t.Parallel()

	out, errOut, err := executeCLI(t, &fakeConfigProvider{source: "/etc/toolhost.cue"}, "", "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if !strings.Contains(out, "engine = 'auto'") {
		t.Errorf("toml output missing container engine:\n%s", out)
	}
	if !strings.Contains(errOut, "/etc/toolhost.cue") {
		t.Errorf("stderr = %q, want the config source", errOut)
	}

	out, _, err = executeCLI(t, &fakeConfigProvider{}, "", "config", "show", "--format", "cue")
	if err != nil {
		t.Fatalf("config show --format cue: %v", err)
	}
	if !strings.Contains(out, "container: {") {
		t.Errorf("cue output missing container section:\n%s", out)
	}

	if _, _, err = executeCLI(t, &fakeConfigProvider{}, "", "config", "show", "--format", "ini"); err == nil {
		t.Error("config show --format ini succeeded, want error")
	}
}

func TestRenderText(t *testing.T) {
	t.Parallel()

	res := parseSample(t, 1)

	out := renderText(res)
	for _, want := range []string{"exited with code 1", "Suite.A", "Suite.B", "expected 1, got 2", "src/App.cs(3,7)", "CS0168", "coverage"} {
		if !strings.Contains(out, want) {
			t.Errorf("text report missing %q:\n%s", want, out)
		}
	}
	if n := strings.Count(out, "src/App.cs(3,7)"); n != 1 {
		t.Errorf("diagnostic location printed %d times, want once:\n%s", n, out)
	}
}

func parseSample(t *testing.T, code int) *report.BuildResult {
	t.Helper()

	res, err := parseLog(strings.NewReader(sampleLog), &servicemsg.Parser{}, runner.ExitCode(code))
	if err != nil {
		t.Fatalf("parseLog: %v", err)
	}
	return res
}
