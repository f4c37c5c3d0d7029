// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"os"

	"toolhost-cli/internal/config"
	"toolhost-cli/internal/host"

	"github.com/charmbracelet/log"
)

type (
	// ConfigProvider loads configuration and reports which file it came from.
	ConfigProvider interface {
		LoadWithSource(ctx context.Context, opts config.LoadOptions) (*config.Config, string, error)
	}

	// Dependencies defines the injection points for building an App. Nil fields
	// are replaced with production defaults by NewApp.
	Dependencies struct {
		Config       ConfigProvider
		Stdout       io.Writer
		Stderr       io.Writer
		HostOptions  []host.Option
		LookupEnvVar func(string) (string, bool)
	}

	// App wires CLI services and per-invocation state. Cobra handlers receive
	// an App and never reach for package globals.
	App struct {
		Config      ConfigProvider
		stdout      io.Writer
		stderr      io.Writer
		hostOptions []host.Option
		lookupEnv   func(string) (string, bool)

		// Set by the root command before any subcommand runs.
		cfg       *config.Config
		cfgSource string
		logger    *log.Logger
		logCloser io.Closer
		verbose   bool
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.LookupEnvVar == nil {
		deps.LookupEnvVar = os.LookupEnv
	}
	return &App{
		Config:      deps.Config,
		stdout:      deps.Stdout,
		stderr:      deps.Stderr,
		hostOptions: deps.HostOptions,
		lookupEnv:   deps.LookupEnvVar,
		logger:      log.New(io.Discard),
	}
}

// load reads configuration and builds the logger. It is called once per
// invocation from the root command.
func (a *App) load(ctx context.Context, cfgFile string, verbose bool) error {
	cfg, source, err := a.Config.LoadWithSource(ctx, config.LoadOptions{ConfigFilePath: cfgFile})
	if err != nil {
		return err
	}
	logger, closer, err := host.NewLogger(a.stderr, cfg.Log, verbose)
	if err != nil {
		return err
	}
	a.cfg, a.cfgSource, a.logger, a.logCloser, a.verbose = cfg, source, logger, closer, verbose
	return nil
}

// close releases the log file, if any.
func (a *App) close() {
	if a.logCloser != nil {
		_ = a.logCloser.Close()
		a.logCloser = nil
	}
}

// newHost creates the host context for one run.
func (a *App) newHost(opts ...host.Option) (*host.Context, error) {
	all := append([]host.Option{
		host.WithLogger(a.logger),
		host.WithLookupEnv(a.lookupEnv),
	}, a.hostOptions...)
	return host.NewContext(a.cfg, append(all, opts...)...)
}
