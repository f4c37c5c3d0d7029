// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	stderrors "errors"
	"fmt"
	"strings"

	"cuelang.org/go/cue/errors"
)

// formattedError carries a rewritten message and keeps the original error
// reachable through errors.Is and errors.As.
type formattedError struct {
	msg string
	err error
}

func (e *formattedError) Error() string { return e.msg }

func (e *formattedError) Unwrap() error { return e.err }

// FormatError rewrites a CUE error as "<file>: <field path>: <message>", one
// line per underlying error. Field paths use list index notation
// (servicemsg.tools[1]). Errors that are not CUE errors are only prefixed.
// The result always wraps err.
func FormatError(err error, filePath string) error {
	if err == nil {
		return nil
	}

	// errors.Errors promotes any error to a one-element list, so it cannot
	// tell CUE errors from others.
	var ce errors.Error
	if !stderrors.As(err, &ce) {
		return fmt.Errorf("%s: %w", filePath, err)
	}
	cueErrors := errors.Errors(err)

	lines := make([]string, 0, len(cueErrors))
	for _, e := range cueErrors {
		path := formatPath(errors.Path(e))
		msg := e.Error()
		if path == "" {
			lines = append(lines, msg)
			continue
		}
		// CUE sometimes repeats the path at the start of the message.
		msg = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(msg, path), ":"))
		lines = append(lines, path+": "+msg)
	}

	if len(lines) == 1 {
		return &formattedError{msg: filePath + ": " + lines[0], err: err}
	}
	return &formattedError{
		msg: fmt.Sprintf("%s: validation failed:\n  %s", filePath, strings.Join(lines, "\n  ")),
		err: err,
	}
}

func formatPath(path []string) string {
	var b strings.Builder
	for i, part := range path {
		switch {
		case i > 0 && isIndex(part):
			b.WriteString("[" + part + "]")
		case i > 0:
			b.WriteString("." + part)
		default:
			b.WriteString(part)
		}
	}
	return b.String()
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
