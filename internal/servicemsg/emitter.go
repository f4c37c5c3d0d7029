// SPDX-License-Identifier: MPL-2.0

package servicemsg

import (
	"fmt"
	"io"
	"sync"
)

const (
	// DefaultCIVar is the variable whose presence marks a run under a CI
	// orchestrator that consumes service messages.
	DefaultCIVar = "TEAMCITY_VERSION"
	// DefaultTool is the tool prefix that orchestrator expects.
	DefaultTool = "teamcity"
)

// CIEnabled reports whether the CI orchestrator variable is set. An empty
// name checks DefaultCIVar. The value does not matter, only its presence.
func CIEnabled(lookup func(string) (string, bool), name string) bool {
	if name == "" {
		name = DefaultCIVar
	}
	_, ok := lookup(name)
	return ok
}

// Emitter writes service messages, one per line. A disabled Emitter accepts
// every call and writes nothing, so callers need not check whether they run
// under CI. Emitter is safe for concurrent use.
type Emitter struct {
	mu      sync.Mutex
	w       io.Writer
	tool    string
	enabled bool
}

// NewEmitter returns an Emitter writing to w with the given tool prefix.
// An empty tool uses DefaultTool.
func NewEmitter(w io.Writer, tool string, enabled bool) *Emitter {
	if tool == "" {
		tool = DefaultTool
	}
	return &Emitter{w: w, tool: tool, enabled: enabled && w != nil}
}

// Enabled reports whether the emitter writes anything.
func (e *Emitter) Enabled() bool { return e != nil && e.enabled }

// Emit writes a message with named attributes given as alternating
// name/value pairs. A trailing name without value is an error.
func (e *Emitter) Emit(name string, kv ...string) error {
	if len(kv)%2 != 0 {
		return fmt.Errorf("emit %s: odd number of attribute arguments", name)
	}
	attrs := make(map[string]string, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		attrs[kv[i]] = kv[i+1]
	}
	return e.write(Message{Name: name, Attrs: attrs})
}

// EmitValue writes a single-value message.
func (e *Emitter) EmitValue(name, value string) error {
	return e.write(Message{Name: name, Value: value, HasValue: true})
}

// EmitMessage writes msg with the emitter's tool prefix.
func (e *Emitter) EmitMessage(msg Message) error {
	return e.write(msg)
}

func (e *Emitter) write(msg Message) error {
	if !e.Enabled() {
		return nil
	}
	msg.Tool = e.tool
	e.mu.Lock()
	defer e.mu.Unlock()
	_, err := io.WriteString(e.w, msg.String()+"\n")
	return err
}
