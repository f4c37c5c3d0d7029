// SPDX-License-Identifier: MPL-2.0

package report

import "slices"

// Test states.
const (
	NotStarted TestState = iota
	Started
	Running
	Finished
	Failed
	Ignored
)

// TestState is the lifecycle state of a single test.
type TestState int

var legalTransitions = map[TestState][]TestState{
	NotStarted: {Started},
	Started:    {Running, Finished, Failed, Ignored},
	Running:    {Finished, Failed, Ignored},
}

// String returns the state name.
func (s TestState) String() string {
	switch s {
	case NotStarted:
		return "NotStarted"
	case Started:
		return "Started"
	case Running:
		return "Running"
	case Finished:
		return "Finished"
	case Failed:
		return "Failed"
	case Ignored:
		return "Ignored"
	default:
		return "Unknown"
	}
}

// MarshalText implements encoding.TextMarshaler so reports carry state names.
func (s TestState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CanTransition reports whether moving from s to next is legal.
func (s TestState) CanTransition(next TestState) bool {
	return slices.Contains(legalTransitions[s], next)
}

// Terminal reports whether no further transition leaves s.
func (s TestState) Terminal() bool {
	return s == Finished || s == Failed || s == Ignored
}
