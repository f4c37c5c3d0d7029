// SPDX-License-Identifier: MPL-2.0

package host

import (
	"context"
	"io"
	"maps"
	"os"

	"toolhost-cli/internal/config"
	"toolhost-cli/internal/container"
	"toolhost-cli/internal/servicemsg"
	"toolhost-cli/internal/vpath"

	"github.com/charmbracelet/log"
)

type (
	// EngineFactory selects a container engine.
	EngineFactory func(ctx context.Context, t container.EngineType) (container.Engine, error)

	// Option configures a Context.
	Option func(*Context)

	// Context is the state one host invocation runs with. Nothing in it is
	// global: callers create one per invocation and pass it along.
	Context struct {
		workDir    string
		args       []string
		properties map[string]string
		cfg        *config.Config
		logger     *log.Logger
		virtual    *vpath.Context
		lookupEnv  func(string) (string, bool)
		engines    EngineFactory
	}
)

// WithWorkDir sets the host working directory. The default is the process
// working directory.
func WithWorkDir(dir string) Option {
	return func(c *Context) { c.workDir = dir }
}

// WithArgs records the caller's arguments.
func WithArgs(args ...string) Option {
	return func(c *Context) { c.args = append([]string(nil), args...) }
}

// WithProperties records caller-supplied properties.
func WithProperties(props map[string]string) Option {
	return func(c *Context) { c.properties = maps.Clone(props) }
}

// WithLogger sets the logger. Nil keeps the discard logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Context) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithLookupEnv replaces os.LookupEnv for the variables the host reads.
func WithLookupEnv(fn func(string) (string, bool)) Option {
	return func(c *Context) { c.lookupEnv = fn }
}

// WithEngineFactory replaces container engine detection.
func WithEngineFactory(f EngineFactory) Option {
	return func(c *Context) { c.engines = f }
}

// NewContext creates a Context. A nil cfg means config.DefaultConfig().
func NewContext(cfg *config.Config, opts ...Option) (*Context, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	c := &Context{
		cfg:       cfg,
		logger:    log.New(io.Discard),
		virtual:   vpath.NewContext(),
		lookupEnv: os.LookupEnv,
		engines:   detectEngine,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		c.workDir = wd
	}
	return c, nil
}

func (c *Context) WorkDir() string { return c.workDir }

func (c *Context) Args() []string { return append([]string(nil), c.args...) }

func (c *Context) Config() *config.Config { return c.cfg }

func (c *Context) Logger() *log.Logger { return c.logger }

// Virtual returns the virtual path context host executions resolve through.
// Container sessions fork it rather than registering on it.
func (c *Context) Virtual() *vpath.Context { return c.virtual }

// Property returns a caller-supplied property.
func (c *Context) Property(name string) (string, bool) {
	v, ok := c.properties[name]
	return v, ok
}

// Properties returns a copy of all caller-supplied properties.
func (c *Context) Properties() map[string]string { return maps.Clone(c.properties) }

// LookupEnv reads a variable from the host environment.
func (c *Context) LookupEnv(name string) (string, bool) { return c.lookupEnv(name) }

// Parser returns a service message parser restricted to the configured tools.
func (c *Context) Parser() *servicemsg.Parser {
	return &servicemsg.Parser{
		Tools:  append([]string(nil), c.cfg.ServiceMsg.Tools...),
		Logger: c.logger.WithPrefix("servicemsg"),
	}
}

// Emitter returns an emitter that writes service messages to w when the CI
// orchestrator is detected, and discards them otherwise.
func (c *Context) Emitter(w io.Writer) *servicemsg.Emitter {
	return servicemsg.NewEmitter(w, servicemsg.DefaultTool, c.CIEnabled())
}

func detectEngine(ctx context.Context, t container.EngineType) (container.Engine, error) {
	engine, err := container.NewEngine(ctx, t)
	if err != nil {
		return nil, err
	}
	return container.NewSandboxAwareEngine(engine), nil
}
