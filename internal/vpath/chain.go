// SPDX-License-Identifier: MPL-2.0

package vpath

import (
	"slices"
	"sync"
	"sync/atomic"
)

type (
	// Resolver rewrites path or delegates to next. Returning next(path) passes
	// the decision to the resolver registered before this one.
	Resolver interface {
		Resolve(path string, next func(string) string) string
	}

	// ResolverFunc adapts a function to the Resolver interface.
	ResolverFunc func(path string, next func(string) string) string

	// Chain is an ordered set of resolvers. Mutations are serialized; Resolve
	// reads an immutable snapshot and takes no lock.
	Chain struct {
		mu      sync.Mutex
		entries atomic.Pointer[[]*entry]
	}

	// Handle removes the registration it was returned for. Dispose is
	// idempotent and safe for concurrent use.
	Handle struct {
		once    sync.Once
		dispose func()
	}

	// entry gives each registration its own identity, so registering the
	// same Resolver value twice yields two independently removable entries.
	entry struct {
		resolver Resolver
	}
)

// Resolve calls f(path, next).
func (f ResolverFunc) Resolve(path string, next func(string) string) string {
	return f(path, next)
}

// Register pushes r on top of the chain.
func (c *Chain) Register(r Resolver) *Handle {
	e := &entry{resolver: r}

	c.mu.Lock()
	next := append(slices.Clone(c.load()), e)
	c.entries.Store(&next)
	c.mu.Unlock()

	return newHandle(func() { c.remove(e) })
}

// Resolve walks the chain from the most recently registered resolver down.
// A path no resolver transforms is returned unchanged.
func (c *Chain) Resolve(path string) string {
	entries := c.load()
	var walk func(i int, p string) string
	walk = func(i int, p string) string {
		if i < 0 {
			return p
		}
		return entries[i].resolver.Resolve(p, func(q string) string { return walk(i-1, q) })
	}
	return walk(len(entries)-1, path)
}

// Len returns the number of registered resolvers.
func (c *Chain) Len() int {
	return len(c.load())
}

func (c *Chain) remove(e *entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur := c.load()
	idx := slices.Index(cur, e)
	if idx < 0 {
		return
	}
	next := slices.Delete(slices.Clone(cur), idx, idx+1)
	c.entries.Store(&next)
}

func (c *Chain) load() []*entry {
	if p := c.entries.Load(); p != nil {
		return *p
	}
	return nil
}

func newHandle(dispose func()) *Handle {
	return &Handle{dispose: dispose}
}

// Dispose removes the registration. Calls after the first are no-ops.
func (h *Handle) Dispose() {
	if h == nil {
		return
	}
	h.once.Do(h.dispose)
}

// Close implements io.Closer so handles can be deferred alongside other resources.
func (h *Handle) Close() error {
	h.Dispose()
	return nil
}
