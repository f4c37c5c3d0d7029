// SPDX-License-Identifier: MPL-2.0

// Package report turns the output of one command execution into a BuildResult:
// build messages, per-test records, and summary counts.
//
// Test lifecycle events drive an explicit state machine per test. Events that
// would make an illegal transition are protocol violations; they are logged
// and recorded on the result, never fatal.
package report
