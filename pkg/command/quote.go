// SPDX-License-Identifier: MPL-2.0

package command

import (
	"fmt"
	"runtime"
	"strings"

	"toolhost-cli/pkg/platform"

	"mvdan.cc/sh/v3/shell"
	"mvdan.cc/sh/v3/syntax"
)

const (
	// StylePOSIX quotes arguments for a POSIX shell (single quotes, $'..' for control characters).
	StylePOSIX QuoteStyle = "posix"
	// StyleWindows quotes arguments so that CommandLineToArgvW recovers them.
	StyleWindows QuoteStyle = "windows"
)

// QuoteStyle selects the argument quoting rules used when rendering a command line.
type QuoteStyle string

// HostStyle returns the quoting style of the running platform.
func HostStyle() QuoteStyle {
	if runtime.GOOS == platform.Windows {
		return StyleWindows
	}
	return StylePOSIX
}

// Quote quotes a single argument for style. Arguments that need no quoting
// are returned unchanged; the empty string always renders as an explicit
// empty argument.
func Quote(style QuoteStyle, arg string) string {
	if style == StyleWindows {
		return QuoteWindows(arg)
	}
	return QuotePOSIX(arg)
}

// QuotePOSIX quotes arg for bash-compatible shells.
func QuotePOSIX(arg string) string {
	if arg == "" {
		return "''"
	}
	if isPOSIXSafe(arg) {
		return arg
	}
	quoted, err := syntax.Quote(arg, syntax.LangBash)
	if err != nil || quoted == arg {
		// syntax.Quote rejects invalid UTF-8 and NUL; single quotes keep the bytes intact.
		return "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
	}
	return quoted
}

// isPOSIXSafe reports whether arg survives a shell word split unquoted.
func isPOSIXSafe(arg string) bool {
	for _, r := range arg {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case strings.ContainsRune("_@%+=:,./-", r):
		default:
			return false
		}
	}
	return true
}

// QuoteWindows quotes arg following the MSVC runtime / CommandLineToArgvW rules:
// backslashes are literal unless they precede a double quote, in which case
// they are doubled and the quote itself is escaped.
func QuoteWindows(arg string) string {
	if arg == "" {
		return `""`
	}
	if !strings.ContainsAny(arg, " \t\n\v\"") {
		return arg
	}

	var b strings.Builder
	b.WriteByte('"')
	slashes := 0
	for i := 0; i < len(arg); i++ {
		c := arg[i]
		switch c {
		case '\\':
			slashes++
			continue
		case '"':
			b.WriteString(strings.Repeat(`\`, slashes*2+1))
			b.WriteByte('"')
		default:
			b.WriteString(strings.Repeat(`\`, slashes))
			b.WriteByte(c)
		}
		slashes = 0
	}
	b.WriteString(strings.Repeat(`\`, slashes*2))
	b.WriteByte('"')
	return b.String()
}

// CommandLine renders the executable and arguments as one string using style.
func (c Command) CommandLine(style QuoteStyle) string {
	argv := c.Argv()
	parts := make([]string, len(argv))
	for i, a := range argv {
		parts[i] = Quote(style, a)
	}
	return strings.Join(parts, " ")
}

// SplitCommandLine parses a command line rendered with style back into its
// argument vector. It is the inverse of CommandLine.
func SplitCommandLine(style QuoteStyle, line string) ([]string, error) {
	if style == StyleWindows {
		return splitWindows(line), nil
	}
	fields, err := shell.Fields(line, func(string) string { return "" })
	if err != nil {
		return nil, fmt.Errorf("failed to split command line: %w", err)
	}
	return fields, nil
}

// splitWindows follows the argument parsing of the Microsoft C runtime since
// 2008: backslashes are literal unless they precede a quote, and a doubled
// quote inside a quoted region yields one literal quote while the region stays
// open. CommandLineToArgvW differs in that last case by closing the region.
func splitWindows(line string) []string {
	var (
		args     []string
		cur      strings.Builder
		inArg    bool
		inQuotes bool
	)

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case (c == ' ' || c == '\t') && !inQuotes:
			if inArg {
				args = append(args, cur.String())
				cur.Reset()
				inArg = false
			}
		case c == '\\':
			inArg = true
			n := 0
			for i < len(line) && line[i] == '\\' {
				n++
				i++
			}
			if i < len(line) && line[i] == '"' {
				cur.WriteString(strings.Repeat(`\`, n/2))
				if n%2 == 1 {
					cur.WriteByte('"')
				} else {
					i-- // let the quote toggle on the next iteration
				}
			} else {
				cur.WriteString(strings.Repeat(`\`, n))
				i--
			}
		case c == '"':
			inArg = true
			if inQuotes && i+1 < len(line) && line[i+1] == '"' {
				cur.WriteByte('"')
				i++
				continue
			}
			inQuotes = !inQuotes
		default:
			inArg = true
			cur.WriteByte(c)
		}
	}
	if inArg {
		args = append(args, cur.String())
	}
	return args
}
