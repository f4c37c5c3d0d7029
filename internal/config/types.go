// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	// EngineAuto picks Podman when available, otherwise Docker.
	EngineAuto ContainerEngine = "auto"
	// EnginePodman uses Podman as the container runtime.
	EnginePodman ContainerEngine = "podman"
	// EngineDocker uses Docker as the container runtime.
	EngineDocker ContainerEngine = "docker"

	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"

	// FormatText renders a human readable summary and test table.
	FormatText ReportFormat = "text"
	// FormatJSON renders the full build result as JSON.
	FormatJSON ReportFormat = "json"
	// FormatYAML renders the full build result as YAML.
	FormatYAML ReportFormat = "yaml"
)

var (
	// ErrInvalidContainerEngine is returned when a ContainerEngine value is not recognized.
	ErrInvalidContainerEngine = errors.New("invalid container engine")
	// ErrInvalidLogLevel is returned when a LogLevel value is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidReportFormat is returned when a ReportFormat value is not recognized.
	ErrInvalidReportFormat = errors.New("invalid report format")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")

	structValidator = validator.New(validator.WithRequiredStructEnabled())
)

type (
	// ContainerEngine specifies which container runtime to use.
	ContainerEngine string

	// LogLevel is the minimum level written by the logger.
	LogLevel string

	// ReportFormat selects how `toolhost run` renders the build result.
	ReportFormat string

	// InvalidValueError is returned when an enumerated setting holds an unknown value.
	// It wraps the setting's sentinel for errors.Is() compatibility.
	InvalidValueError struct {
		Value    string
		sentinel error
	}

	// InvalidConfigError aggregates field validation failures.
	InvalidConfigError struct {
		Errs []error
	}

	// LogConfig configures the application logger.
	LogConfig struct {
		Level LogLevel `mapstructure:"level" json:"level"`
		// File, when set, receives the log in addition to stderr and is rotated.
		File       string `mapstructure:"file" json:"file,omitempty"`
		MaxSizeMB  int    `mapstructure:"max_size_mb" json:"max_size_mb" validate:"gt=0"`
		MaxBackups int    `mapstructure:"max_backups" json:"max_backups" validate:"gte=0"`
		MaxAgeDays int    `mapstructure:"max_age_days" json:"max_age_days" validate:"gte=0"`
	}

	// RunnerConfig configures process execution.
	RunnerConfig struct {
		// DefaultTimeout applies when `run` gets no --timeout. Zero disables it.
		DefaultTimeout time.Duration `mapstructure:"default_timeout" json:"default_timeout" validate:"gte=0"`
		// KillGrace bounds how long output is drained after the process ends.
		KillGrace time.Duration `mapstructure:"kill_grace" json:"kill_grace" validate:"gte=0"`
	}

	// ContainerConfig configures containerized runs.
	ContainerConfig struct {
		Engine ContainerEngine `mapstructure:"engine" json:"engine"`
		// Retries is the number of attempts made when the engine reports a transient failure.
		Retries      int           `mapstructure:"retries" json:"retries" validate:"gte=1,lte=10"`
		RetryBackoff time.Duration `mapstructure:"retry_backoff" json:"retry_backoff" validate:"gte=0"`
		// WorkDir is where the host working directory is mounted.
		WorkDir string `mapstructure:"workdir" json:"workdir" validate:"startswith=/"`
	}

	// EnvConfig names the environment variables the host reads.
	EnvConfig struct {
		PackageCacheVar     string `mapstructure:"package_cache_var" json:"package_cache_var" validate:"required"`
		FallbackPackagesVar string `mapstructure:"fallback_packages_var" json:"fallback_packages_var" validate:"required"`
		CIVar               string `mapstructure:"ci_var" json:"ci_var" validate:"required"`
	}

	// ReportConfig configures result rendering.
	ReportConfig struct {
		Format ReportFormat `mapstructure:"format" json:"format"`
	}

	// ServiceMsgConfig configures the service message parser.
	ServiceMsgConfig struct {
		// Tools restricts accepted ##tool[...] prefixes. Empty accepts any tool.
		Tools []string `mapstructure:"tools" json:"tools"`
	}

	// Config is the complete toolhost configuration.
	Config struct {
		Log        LogConfig        `mapstructure:"log" json:"log"`
		Runner     RunnerConfig     `mapstructure:"runner" json:"runner"`
		Container  ContainerConfig  `mapstructure:"container" json:"container"`
		Env        EnvConfig        `mapstructure:"env" json:"env"`
		Report     ReportConfig     `mapstructure:"report" json:"report"`
		ServiceMsg ServiceMsgConfig `mapstructure:"servicemsg" json:"servicemsg"`
	}
)

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:      LogLevelInfo,
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Runner: RunnerConfig{
			KillGrace: 2 * time.Second,
		},
		Container: ContainerConfig{
			Engine:       EngineAuto,
			Retries:      3,
			RetryBackoff: time.Second,
			WorkDir:      "/workspace",
		},
		Env: EnvConfig{
			PackageCacheVar:     "NUGET_PACKAGES",
			FallbackPackagesVar: "NUGET_FALLBACK_PACKAGES",
			CIVar:               "TEAMCITY_VERSION",
		},
		Report: ReportConfig{
			Format: FormatText,
		},
		ServiceMsg: ServiceMsgConfig{
			Tools: []string{"teamcity"},
		},
	}
}

// Validate returns an error if the engine is not auto, docker, or podman.
func (e ContainerEngine) Validate() error {
	switch e {
	case EngineAuto, EngineDocker, EnginePodman:
		return nil
	default:
		return &InvalidValueError{Value: string(e), sentinel: ErrInvalidContainerEngine}
	}
}

// Validate returns an error if the level is not debug, info, warn, or error.
func (l LogLevel) Validate() error {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return nil
	default:
		return &InvalidValueError{Value: string(l), sentinel: ErrInvalidLogLevel}
	}
}

// Validate returns an error if the format is not text, json, or yaml.
func (f ReportFormat) Validate() error {
	switch f {
	case FormatText, FormatJSON, FormatYAML:
		return nil
	default:
		return &InvalidValueError{Value: string(f), sentinel: ErrInvalidReportFormat}
	}
}

// Error implements the error interface.
func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("%s: %q", e.sentinel, e.Value)
}

// Unwrap returns the sentinel for the invalid setting.
func (e *InvalidValueError) Unwrap() error { return e.sentinel }

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("%s: %v", ErrInvalidConfig, errors.Join(e.Errs...))
}

// Unwrap returns ErrInvalidConfig followed by the individual field errors.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.Errs...)
}

// Validate checks values that bypass the CUE schema, such as environment overrides.
func (c *Config) Validate() error {
	var errs []error
	for _, v := range []interface{ Validate() error }{c.Log.Level, c.Container.Engine, c.Report.Format} {
		if err := v.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := structValidator.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			errs = append(errs, fmt.Errorf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
		}
	}
	if len(errs) > 0 {
		return &InvalidConfigError{Errs: errs}
	}
	return nil
}
