// SPDX-License-Identifier: MPL-2.0

package report

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	// path(line[,col[,endLine,endCol]]): error|warning CODE: text
	msbuildDiagnostic = regexp.MustCompile(`^\s*(.+?)\((\d+)(?:,(\d+))?(?:,\d+,\d+)?\)\s*:\s*(error|warning)\s+([A-Za-z]+\d+)\s*:\s*(.*)$`)
	// path:line[:col]: error|warning|fatal error: text
	// The path is a single token with a file extension, so timestamps and
	// bracketed log prefixes are not mistaken for one.
	gccDiagnostic = regexp.MustCompile(`^((?:[A-Za-z]:)?[^\s:\[\]()]*\.[A-Za-z0-9_]+):(\d+):(?:(\d+):)?\s*(error|warning|fatal error):\s*(.*)$`)
)

// parseDiagnostic recognizes compiler diagnostics in msbuild/csc and gcc/clang/go
// formats. Lines that are neither are reported as not ok. Text keeps the whole
// line; the location and code are extracted into their own fields.
func parseDiagnostic(line string) (BuildMessage, bool) {
	if m := msbuildDiagnostic.FindStringSubmatch(line); m != nil {
		return BuildMessage{
			Severity: diagnosticSeverity(m[4]),
			Text:     line,
			File:     strings.TrimSpace(m[1]),
			Line:     atoi(m[2]),
			Column:   atoi(m[3]),
			Code:     m[5],
		}, true
	}
	if m := gccDiagnostic.FindStringSubmatch(line); m != nil {
		return BuildMessage{
			Severity: diagnosticSeverity(m[4]),
			Text:     line,
			File:     m[1],
			Line:     atoi(m[2]),
			Column:   atoi(m[3]),
		}, true
	}
	return BuildMessage{}, false
}

func diagnosticSeverity(kind string) Severity {
	if kind == "warning" {
		return Warning
	}
	return Failure
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
