// SPDX-License-Identifier: MPL-2.0

// Package config handles toolhost configuration using Viper with CUE as the file format.
//
// Configuration is loaded from ~/.config/toolhost/config.cue (or the XDG equivalent on
// Linux, ~/Library/Application Support/toolhost/config.cue on macOS,
// %APPDATA%\toolhost\config.cue on Windows), falling back to .toolhost.cue in the
// working directory. Every key can be overridden from the environment with the
// TOOLHOST_ prefix, dots replaced by underscores (TOOLHOST_RUNNER_DEFAULT_TIMEOUT).
//
// Files are validated against the embedded #Config schema (config_schema.cue) before
// they are merged over the defaults.
package config
