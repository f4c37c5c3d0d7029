// SPDX-License-Identifier: MPL-2.0

// Package runner spawns commands as child processes and streams their output.
//
// Each execution owns its process tree exclusively. Standard output and
// standard error are read by two independent goroutines; lines are delivered
// to the caller's callback in order per stream, with no ordering guarantee
// across streams. Timeout and cancellation kill the whole process group and
// yield an ExecutionOutcome without an exit code.
package runner
