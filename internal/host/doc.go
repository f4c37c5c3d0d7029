// SPDX-License-Identifier: MPL-2.0

// Package host ties the core together for one invocation: a Context carries the
// working directory, arguments, properties, configuration, logger, and virtual
// path context explicitly, and Execute runs a command on the host or in a
// container and aggregates its output into a report.BuildResult.
package host
