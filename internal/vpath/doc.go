// SPDX-License-Identifier: MPL-2.0

// Package vpath rewrites host-visible paths into the paths valid inside an
// isolated execution context (a container, a remote agent, a sandbox).
//
// Resolvers are registered on a Context and consulted most-recently-registered
// first. Every registration returns a Handle; disposing the handle removes
// exactly that resolver, whatever else was registered or disposed in between.
// While the Context is inactive, Resolve returns its input unchanged.
package vpath
