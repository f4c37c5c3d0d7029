// SPDX-License-Identifier: MPL-2.0

package servicemsg

import (
	"errors"
	"strconv"
	"strings"
)

var (
	errIllegalEscape = errors.New("illegal escape sequence")
	errDanglingPipe  = errors.New("escape character at end of value")

	escaper = strings.NewReplacer(
		"|", "||",
		"'", "|'",
		"\n", "|n",
		"\r", "|r",
		"[", "|[",
		"]", "|]",
		"\u0085", "|x",
		"\u2028", "|l",
		"\u2029", "|p",
	)
)

// Escape encodes s for use inside a quoted attribute value.
func Escape(s string) string {
	return escaper.Replace(s)
}

// Unescape decodes an attribute value. It fails on an unknown escape or a
// trailing lone |.
func Unescape(s string) (string, error) {
	if !strings.Contains(s, "|") {
		return s, nil
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '|' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(s) {
			return "", errDanglingPipe
		}
		switch s[i] {
		case '\'', '|', '[', ']':
			b.WriteByte(s[i])
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 'x':
			b.WriteRune('\u0085')
		case 'l':
			b.WriteRune('\u2028')
		case 'p':
			b.WriteRune('\u2029')
		case '0':
			// |0xNNNN
			if i+5 >= len(s) || s[i+1] != 'x' {
				return "", errIllegalEscape
			}
			code, err := strconv.ParseUint(s[i+2:i+6], 16, 32)
			if err != nil {
				return "", errIllegalEscape
			}
			b.WriteRune(rune(code))
			i += 5
		default:
			return "", errIllegalEscape
		}
	}
	return b.String(), nil
}
