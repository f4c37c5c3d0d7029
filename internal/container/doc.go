// SPDX-License-Identifier: MPL-2.0

// Package container runs commands inside Docker or Podman containers.
//
// Engines do not execute anything themselves: they translate a command into
// the docker/podman argv that runs it in a container, and the result is
// executed by the regular process runner like any other command. A Session
// binds an engine, an image, and a set of volume mounts, and registers a path
// resolver for the mounts on its own fork of the virtual execution context so
// that host paths in the wrapped commands are rewritten into their
// in-container locations without affecting other executions.
//
// IMPORTANT: Only Linux containers are supported. Use debian:stable-slim as
// the reference container image in tests and examples.
package container
