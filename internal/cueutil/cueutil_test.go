// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

const testSchema = `
#Settings: {
	name:   string
	limit:  int & >0
	tags?: [...string]
}

#Partial: {
	name?:  string
	limit?: int
}
`

type settings struct {
	Name  string   `json:"name"`
	Limit int      `json:"limit"`
	Tags  []string `json:"tags,omitempty"`
}

func TestDecode(t *testing.T) {
	t.Parallel()

	got, err := Decode[settings](testSchema, []byte(`name: "build", limit: 3, tags: ["ci"]`), "#Settings")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Name != "build" || got.Limit != 3 || len(got.Tags) != 1 || got.Tags[0] != "ci" {
		t.Errorf("Decode = %+v", got)
	}
}

func TestDecodeErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
		opts []Option
		want []string
	}{
		{
			name: "syntax error names the file",
			data: `name: "build`,
			opts: []Option{WithFilename("settings.cue")},
			want: []string{"settings.cue"},
		},
		{
			name: "constraint violation names the field",
			data: `name: "build", limit: 0`,
			opts: []Option{WithFilename("settings.cue")},
			want: []string{"settings.cue", "limit"},
		},
		{
			name: "list element path uses index notation",
			data: `name: "build", limit: 1, tags: ["ok", 2]`,
			want: []string{"tags[1]"},
		},
		{
			name: "missing field fails when concrete",
			data: `limit: 1`,
			want: []string{"name"},
		},
		{
			name: "size limit",
			data: `name: "build", limit: 1`,
			opts: []Option{WithMaxFileSize(4)},
			want: []string{"exceeds maximum"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Decode[settings](testSchema, []byte(tt.data), "#Settings", tt.opts...)
			if err == nil {
				t.Fatal("Decode succeeded, want error")
			}
			for _, w := range tt.want {
				if !strings.Contains(err.Error(), w) {
					t.Errorf("error %q does not contain %q", err, w)
				}
			}
		})
	}
}

func TestDecodeNonConcrete(t *testing.T) {
	t.Parallel()

	got, err := Decode[map[string]any](testSchema, []byte(`limit: 2`), "#Partial", WithConcrete(false))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if _, ok := got["name"]; ok {
		t.Errorf("Decode = %v, want name left out", got)
	}
}

func TestDecodeUnknownDefinition(t *testing.T) {
	t.Parallel()

	_, err := Decode[settings](testSchema, []byte(`name: "x", limit: 1`), "#Missing")
	if err == nil || !strings.Contains(err.Error(), "#Missing") {
		t.Errorf("error = %v, want it to name the definition", err)
	}
}

func TestFormatError(t *testing.T) {
	t.Parallel()

	if FormatError(nil, "a.cue") != nil {
		t.Error("FormatError(nil) != nil")
	}
	plain := errors.New("boom")
	err := FormatError(plain, "a.cue")
	if !errors.Is(err, plain) || err.Error() != "a.cue: boom" {
		t.Errorf("FormatError(plain) = %v", err)
	}
	wrapped := FormatError(fmt.Errorf("read: %w", plain), "b.cue")
	if !errors.Is(wrapped, plain) || wrapped.Error() != "b.cue: read: boom" {
		t.Errorf("FormatError(wrapped) = %v", wrapped)
	}
}

func TestFormatErrorKeepsCUECause(t *testing.T) {
	t.Parallel()

	cueErr := cuecontext.New().CompileString(`limit: 1 & 2`).Validate()
	if cueErr == nil {
		t.Fatal("conflicting values should fail validation")
	}
	err := FormatError(cueErr, "c.cue")
	var ce cueerrors.Error
	if !errors.As(err, &ce) {
		t.Errorf("FormatError() = %v, want it to wrap the CUE error", err)
	}
	if !strings.HasPrefix(err.Error(), "c.cue: limit: ") {
		t.Errorf("FormatError() = %q, want file and field path first", err.Error())
	}
}

func TestFormatPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   []string
		want string
	}{
		{nil, ""},
		{[]string{"log"}, "log"},
		{[]string{"log", "level"}, "log.level"},
		{[]string{"servicemsg", "tools", "1"}, "servicemsg.tools[1]"},
		{[]string{"0"}, "0"},
	}
	for _, tt := range tests {
		if got := formatPath(tt.in); got != tt.want {
			t.Errorf("formatPath(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
