// SPDX-License-Identifier: MPL-2.0

// Package command provides the immutable description of a single external process
// invocation and the platform quoting rules used to render it.
//
// Every With* method returns a new Command; the receiver is never mutated, so a
// Command value can be shared freely between goroutines and reused as a template:
//
//	base := command.New("dotnet", "test").WithEnv("DOTNET_NOLOGO", "1")
//	unit := base.WithArgs("tests/Unit.csproj")
//	e2e := base.WithArgs("tests/E2E.csproj").WithWorkDir("/src")
package command
