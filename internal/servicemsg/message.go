// SPDX-License-Identifier: MPL-2.0

package servicemsg

import (
	"maps"
	"slices"
	"strings"
)

// Message is one parsed service message.
type Message struct {
	// Tool is the prefix between ## and [, e.g. "teamcity".
	Tool string
	// Name is the message name, e.g. "testStarted".
	Name string
	// Attrs holds named attributes with their values unescaped.
	Attrs map[string]string
	// Value is the unescaped value of the single-value form. Attrs is empty
	// when HasValue is set.
	Value    string
	HasValue bool
	// Seq is the sequence number of the output line the message came from,
	// filled in by the consumer that knows it.
	Seq int
}

// Attr returns the named attribute, or "" when absent.
func (m Message) Attr(name string) string {
	return m.Attrs[name]
}

// LookupAttr returns the named attribute and whether it is present.
func (m Message) LookupAttr(name string) (string, bool) {
	v, ok := m.Attrs[name]
	return v, ok
}

// String formats the message in wire syntax. Attributes are written in name
// order so that the output is deterministic.
func (m Message) String() string {
	var b strings.Builder
	b.WriteString("##")
	b.WriteString(m.Tool)
	b.WriteByte('[')
	b.WriteString(m.Name)
	if m.HasValue {
		b.WriteString(" '")
		b.WriteString(Escape(m.Value))
		b.WriteByte('\'')
	} else {
		for _, k := range slices.Sorted(maps.Keys(m.Attrs)) {
			b.WriteByte(' ')
			b.WriteString(k)
			b.WriteString("='")
			b.WriteString(Escape(m.Attrs[k]))
			b.WriteByte('\'')
		}
	}
	b.WriteByte(']')
	return b.String()
}

// Equal reports whether two messages carry the same tool, name, and payload.
// Seq is not compared.
func (m Message) Equal(o Message) bool {
	return m.Tool == o.Tool &&
		m.Name == o.Name &&
		m.HasValue == o.HasValue &&
		m.Value == o.Value &&
		maps.Equal(m.Attrs, o.Attrs)
}
