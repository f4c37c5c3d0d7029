// SPDX-License-Identifier: MPL-2.0

package vpath

import "sync/atomic"

// Context is the virtual execution context: an activation flag plus the
// resolver chain. It implements command.PathResolver.
//
// A Context is owned by whoever sets up the execution environment (the host
// context of a script, a container session) and passed explicitly; there is
// no package-level instance.
type Context struct {
	activations atomic.Int32
	chain       Chain
}

// NewContext returns an inactive Context with an empty chain.
func NewContext() *Context {
	return &Context{}
}

// Fork returns an inactive Context whose chain falls through to c's
// resolvers. Registrations and activations on the fork are invisible to c, so
// an execution owning the fork can rewrite paths without affecting others
// that resolve through c.
func (c *Context) Fork() *Context {
	f := NewContext()
	if c != nil {
		f.chain.Register(ResolverFunc(func(p string, next func(string) string) string {
			return next(c.chain.Resolve(p))
		}))
	}
	return f
}

// Activate turns path virtualization on until the returned handle is
// disposed. Activations nest; the Context stays active while any activation
// handle is live.
func (c *Context) Activate() *Handle {
	c.activations.Add(1)
	return newHandle(func() { c.activations.Add(-1) })
}

// Active reports whether any activation handle is live.
func (c *Context) Active() bool {
	return c.activations.Load() > 0
}

// Register pushes r onto the chain. See Chain.Register.
func (c *Context) Register(r Resolver) *Handle {
	return c.chain.Register(r)
}

// Resolve rewrites path through the chain when the context is active and
// returns it unchanged otherwise. A nil Context resolves nothing.
func (c *Context) Resolve(path string) string {
	if c == nil || !c.Active() {
		return path
	}
	return c.chain.Resolve(path)
}

// Resolvers returns the number of registered resolvers.
func (c *Context) Resolvers() int {
	return c.chain.Len()
}

// Scope activates the context, registers resolvers in order, runs fn, and
// disposes everything it registered before returning fn's error.
func (c *Context) Scope(fn func() error, resolvers ...Resolver) error {
	handles := make([]*Handle, 0, len(resolvers)+1)
	handles = append(handles, c.Activate())
	for _, r := range resolvers {
		handles = append(handles, c.Register(r))
	}
	defer func() {
		for i := len(handles) - 1; i >= 0; i-- {
			handles[i].Dispose()
		}
	}()
	return fn()
}
