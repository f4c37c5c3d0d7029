// SPDX-License-Identifier: MPL-2.0

package host

import (
	"strings"

	"toolhost-cli/internal/servicemsg"
)

// FallbackSeparator separates entries of the fallback package folder variable.
const FallbackSeparator = ";"

// PackageCache returns the shared package cache directory, if configured in
// the environment.
func (c *Context) PackageCache() (string, bool) {
	v, ok := c.lookupEnv(c.cfg.Env.PackageCacheVar)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

// FallbackPackages returns the fallback package folders in order. Blank
// entries are skipped.
func (c *Context) FallbackPackages() []string {
	v, _ := c.lookupEnv(c.cfg.Env.FallbackPackagesVar)
	var dirs []string
	for _, d := range strings.Split(v, FallbackSeparator) {
		if d = strings.TrimSpace(d); d != "" {
			dirs = append(dirs, d)
		}
	}
	return dirs
}

// CIEnabled reports whether the CI orchestrator variable is set.
func (c *Context) CIEnabled() bool {
	return servicemsg.CIEnabled(c.lookupEnv, c.cfg.Env.CIVar)
}
