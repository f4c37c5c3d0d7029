// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"toolhost-cli/internal/cueutil"
	"toolhost-cli/internal/issue"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "toolhost"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// LocalConfigFile is looked up in the working directory when the user file is absent.
	LocalConfigFile = ".toolhost.cue"
	// EnvPrefix prefixes environment overrides (TOOLHOST_LOG_LEVEL).
	EnvPrefix = "TOOLHOST"

	// maxConfigSize rejects files that cannot plausibly be configuration.
	maxConfigSize = 1 << 20
)

//go:embed config_schema.cue
var configSchema string

// ConfigDir returns the toolhost configuration directory using platform-specific
// conventions: Windows uses %APPDATA%, macOS uses ~/Library/Application Support,
// and Linux/others use $XDG_CONFIG_HOME (defaulting to ~/.config).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default:
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// newViper returns a Viper instance holding the defaults with environment
// overrides enabled.
func newViper() *viper.Viper {
	v := viper.New()

	d := DefaultConfig()
	v.SetDefault("log.level", string(d.Log.Level))
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.max_size_mb", d.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age_days", d.Log.MaxAgeDays)
	v.SetDefault("runner.default_timeout", d.Runner.DefaultTimeout.String())
	v.SetDefault("runner.kill_grace", d.Runner.KillGrace.String())
	v.SetDefault("container.engine", string(d.Container.Engine))
	v.SetDefault("container.retries", d.Container.Retries)
	v.SetDefault("container.retry_backoff", d.Container.RetryBackoff.String())
	v.SetDefault("container.workdir", d.Container.WorkDir)
	v.SetDefault("env.package_cache_var", d.Env.PackageCacheVar)
	v.SetDefault("env.fallback_packages_var", d.Env.FallbackPackagesVar)
	v.SetDefault("env.ci_var", d.Env.CIVar)
	v.SetDefault("report.format", string(d.Report.Format))
	v.SetDefault("servicemsg.tools", d.ServiceMsg.Tools)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// loadWithOptions performs option-driven config loading without mutating
// package-level state. It returns the path of the file that was merged, or ""
// when only defaults and environment overrides apply.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := newViper()

	path, err := resolveConfigPath(opts)
	if err != nil {
		return nil, "", err
	}
	if path != "" {
		if err := loadCUEIntoViper(v, path); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(path).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithSuggestion("Run 'toolhost config init' to write a fresh default file").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("parse configuration").
			WithResource(path).
			WithSuggestion("Durations use Go syntax such as 90s or 15m").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(err).
			BuildError()
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(path).
			WithSuggestion("Check " + EnvPrefix + "_* environment variables for typos").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(err).
			BuildError()
	}

	return &cfg, path, nil
}

// resolveConfigPath picks the file to load. An explicit path must exist; the
// user file and the working-directory file are optional.
func resolveConfigPath(opts LoadOptions) (string, error) {
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Use 'toolhost config show' to see the default configuration").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		return opts.ConfigFilePath, nil
	}

	cfgDir, err := configDirWithOverride(opts.ConfigDirPath)
	if err != nil {
		return "", err
	}
	if p := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt); fileExists(p) {
		return p, nil
	}
	if fileExists(LocalConfigFile) {
		return LocalConfigFile, nil
	}
	return "", nil
}

// configDirWithOverride resolves the configuration directory, honoring
// explicit provider options before platform defaults.
func configDirWithOverride(configDirPath string) (string, error) {
	if configDirPath != "" {
		return configDirPath, nil
	}

	return ConfigDir()
}

// loadCUEIntoViper parses a CUE file, validates it against the #Config schema,
// and merges its contents into Viper.
//
// The file decodes to map[string]any rather than Config so that Viper keeps
// precedence between file, environment, and defaults. Every field is optional,
// so values need not be concrete.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	configMap, err := cueutil.Decode[map[string]any](configSchema, data, "#Config",
		cueutil.WithFilename(path),
		cueutil.WithMaxFileSize(maxConfigSize),
		cueutil.WithConcrete(false),
	)
	if err != nil {
		return err
	}

	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}

	return nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// CreateDefaultConfig writes the default config file into dir (ConfigDir when
// empty) unless one already exists. It returns the file path and whether it
// was written.
func CreateDefaultConfig(dir string) (string, bool, error) {
	cfgDir, err := configDirWithOverride(dir)
	if err != nil {
		return "", false, err
	}

	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		return "", false, fmt.Errorf("failed to create config directory: %w", err)
	}

	cfgPath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)
	if _, err := os.Stat(cfgPath); err == nil {
		return cfgPath, false, nil
	}

	if err := os.WriteFile(cfgPath, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return "", false, fmt.Errorf("failed to write config file: %w", err)
	}

	return cfgPath, true, nil
}

// GenerateCUE generates a CUE representation of the configuration that
// validates against #Config.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// toolhost configuration file\n")
	sb.WriteString("// Every field is optional. Environment variables prefixed with TOOLHOST_ override it.\n\n")

	sb.WriteString("log: {\n")
	fmt.Fprintf(&sb, "\tlevel: %q\n", cfg.Log.Level)
	if cfg.Log.File != "" {
		fmt.Fprintf(&sb, "\tfile: %q\n", cfg.Log.File)
	}
	fmt.Fprintf(&sb, "\tmax_size_mb: %d\n", cfg.Log.MaxSizeMB)
	fmt.Fprintf(&sb, "\tmax_backups: %d\n", cfg.Log.MaxBackups)
	fmt.Fprintf(&sb, "\tmax_age_days: %d\n", cfg.Log.MaxAgeDays)
	sb.WriteString("}\n")

	sb.WriteString("\nrunner: {\n")
	fmt.Fprintf(&sb, "\tdefault_timeout: %q\n", cfg.Runner.DefaultTimeout.String())
	fmt.Fprintf(&sb, "\tkill_grace: %q\n", cfg.Runner.KillGrace.String())
	sb.WriteString("}\n")

	sb.WriteString("\ncontainer: {\n")
	fmt.Fprintf(&sb, "\tengine: %q\n", cfg.Container.Engine)
	fmt.Fprintf(&sb, "\tretries: %d\n", cfg.Container.Retries)
	fmt.Fprintf(&sb, "\tretry_backoff: %q\n", cfg.Container.RetryBackoff.String())
	fmt.Fprintf(&sb, "\tworkdir: %q\n", cfg.Container.WorkDir)
	sb.WriteString("}\n")

	sb.WriteString("\nenv: {\n")
	fmt.Fprintf(&sb, "\tpackage_cache_var: %q\n", cfg.Env.PackageCacheVar)
	fmt.Fprintf(&sb, "\tfallback_packages_var: %q\n", cfg.Env.FallbackPackagesVar)
	fmt.Fprintf(&sb, "\tci_var: %q\n", cfg.Env.CIVar)
	sb.WriteString("}\n")

	sb.WriteString("\nreport: {\n")
	fmt.Fprintf(&sb, "\tformat: %q\n", cfg.Report.Format)
	sb.WriteString("}\n")

	sb.WriteString("\nservicemsg: {\n")
	sb.WriteString("\ttools: [")
	for i, tool := range cfg.ServiceMsg.Tools {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%q", tool)
	}
	sb.WriteString("]\n")
	sb.WriteString("}\n")

	return sb.String()
}

// ToTOML renders the configuration as TOML, with durations in Go syntax.
func ToTOML(cfg *Config) ([]byte, error) {
	data, err := toml.Marshal(cfg.settings())
	if err != nil {
		return nil, fmt.Errorf("encode config as TOML: %w", err)
	}
	return data, nil
}

// settings returns the configuration as nested maps keyed like the CUE file.
func (c *Config) settings() map[string]any {
	return map[string]any{
		"log": map[string]any{
			"level":        string(c.Log.Level),
			"file":         c.Log.File,
			"max_size_mb":  c.Log.MaxSizeMB,
			"max_backups":  c.Log.MaxBackups,
			"max_age_days": c.Log.MaxAgeDays,
		},
		"runner": map[string]any{
			"default_timeout": c.Runner.DefaultTimeout.String(),
			"kill_grace":      c.Runner.KillGrace.String(),
		},
		"container": map[string]any{
			"engine":        string(c.Container.Engine),
			"retries":       c.Container.Retries,
			"retry_backoff": c.Container.RetryBackoff.String(),
			"workdir":       c.Container.WorkDir,
		},
		"env": map[string]any{
			"package_cache_var":     c.Env.PackageCacheVar,
			"fallback_packages_var": c.Env.FallbackPackagesVar,
			"ci_var":                c.Env.CIVar,
		},
		"report": map[string]any{
			"format": string(c.Report.Format),
		},
		"servicemsg": map[string]any{
			"tools": c.ServiceMsg.Tools,
		},
	}
}
