// SPDX-License-Identifier: MPL-2.0

package servicemsg

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
)

const marker = "##"

var (
	errUnterminated  = errors.New("unterminated message")
	errMissingName   = errors.New("missing message name")
	errBadAttribute  = errors.New("malformed attribute")
	errUnknownTool   = errors.New("tool prefix not accepted")
	errMissingSpacer = errors.New("missing whitespace between attributes")
)

// Parser extracts service messages from output lines. The zero value accepts
// every tool prefix and logs nothing. A Parser is safe for concurrent use.
type Parser struct {
	// Tools restricts accepted prefixes (e.g. "teamcity", "tc"). Empty accepts all.
	Tools []string
	// Logger receives a debug entry for every malformed message. Nil discards.
	Logger *log.Logger
}

var discard = log.New(io.Discard)

// Parse extracts the first well-formed service message from line with the
// zero Parser.
func Parse(line string) (Message, bool) {
	var p Parser
	return p.Parse(line)
}

// Parse returns the first well-formed service message in line. A line without
// one, or whose candidates are all malformed, yields false.
func (p *Parser) Parse(line string) (Message, bool) {
	for start := 0; ; {
		idx := strings.Index(line[start:], marker)
		if idx < 0 {
			return Message{}, false
		}
		pos := start + idx
		msg, err := p.parseAt(line, pos+len(marker))
		if err == nil {
			return msg, true
		}
		if !errors.Is(err, errNotCandidate) {
			p.logger().Debug("ignoring malformed service message", "line", line, "offset", pos, "error", err)
		}
		start = pos + 1
	}
}

func (p *Parser) logger() *log.Logger {
	if p.Logger == nil {
		return discard
	}
	return p.Logger
}

// errNotCandidate marks a ## that is not followed by tool[ and is therefore
// ordinary text rather than a broken message.
var errNotCandidate = errors.New("not a service message")

// parseAt parses the message whose tool prefix starts at line[i].
func (p *Parser) parseAt(line string, i int) (Message, error) {
	s := scanner{src: line, pos: i}

	tool := s.ident()
	if tool == "" || !s.consume('[') {
		return Message{}, errNotCandidate
	}
	if len(p.Tools) > 0 && !slices.Contains(p.Tools, tool) {
		return Message{}, fmt.Errorf("%w: %q", errUnknownTool, tool)
	}

	s.skipSpace()
	name := s.ident()
	if name == "" {
		return Message{}, errMissingName
	}
	msg := Message{Tool: tool, Name: name, Attrs: map[string]string{}}

	spaced := s.skipSpace()
	if s.peek() == '\'' {
		if !spaced {
			return Message{}, errMissingSpacer
		}
		v, err := s.quoted()
		if err != nil {
			return Message{}, err
		}
		s.skipSpace()
		if !s.consume(']') {
			return Message{}, errUnterminated
		}
		msg.Value, msg.HasValue = v, true
		return msg, nil
	}

	for {
		if s.consume(']') {
			return msg, nil
		}
		if s.eof() {
			return Message{}, errUnterminated
		}
		if !spaced {
			return Message{}, errMissingSpacer
		}
		key := s.ident()
		if key == "" || !s.consume('=') {
			return Message{}, errBadAttribute
		}
		if s.peek() != '\'' {
			return Message{}, errBadAttribute
		}
		v, err := s.quoted()
		if err != nil {
			return Message{}, fmt.Errorf("attribute %s: %w", key, err)
		}
		msg.Attrs[key] = v
		spaced = s.skipSpace()
	}
}

type scanner struct {
	src string
	pos int
}

func (s *scanner) eof() bool { return s.pos >= len(s.src) }

func (s *scanner) peek() byte {
	if s.eof() {
		return 0
	}
	return s.src[s.pos]
}

func (s *scanner) consume(c byte) bool {
	if s.peek() == c && !s.eof() {
		s.pos++
		return true
	}
	return false
}

// skipSpace advances over blanks and reports whether any were skipped.
func (s *scanner) skipSpace() bool {
	start := s.pos
	for !s.eof() && (s.src[s.pos] == ' ' || s.src[s.pos] == '\t') {
		s.pos++
	}
	return s.pos > start
}

func (s *scanner) ident() string {
	start := s.pos
	for !s.eof() && isIdentByte(s.src[s.pos]) {
		s.pos++
	}
	return s.src[start:s.pos]
}

// quoted reads a '...' value starting at the opening quote and unescapes it.
func (s *scanner) quoted() (string, error) {
	s.pos++ // opening quote
	start := s.pos
	for !s.eof() {
		switch s.src[s.pos] {
		case '|':
			s.pos += 2
		case '\'':
			raw := s.src[start:s.pos]
			s.pos++
			return Unescape(raw)
		default:
			s.pos++
		}
	}
	return "", errUnterminated
}

func isIdentByte(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '_', c == '-', c == '.', c == ':':
		return true
	}
	return false
}
