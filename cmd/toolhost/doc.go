// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the toolhost CLI commands.
//
// The CLI is a thin collaborator around internal/host: it loads configuration,
// builds a host.Context from the working directory, arguments, and properties it
// was given, runs the tool, and renders the resulting build report.
package cmd
