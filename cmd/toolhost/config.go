// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"path/filepath"

	"toolhost-cli/internal/config"

	"github.com/spf13/cobra"
)

// newConfigCommand creates the `toolhost config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage toolhost configuration",
		Long: `Manage toolhost configuration.

Configuration is read from the first of:
  - the file given with --config
  - Linux: ~/.config/toolhost/config.cue
    macOS: ~/Library/Application Support/toolhost/config.cue
    Windows: %APPDATA%\toolhost\config.cue
  - .toolhost.cue in the working directory

Environment variables prefixed with TOOLHOST_ override file values,
e.g. TOOLHOST_CONTAINER_ENGINE=podman or TOOLHOST_LOG_LEVEL=debug.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	var format string
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return showConfig(app, format)
		},
	}
	showCmd.Flags().StringVar(&format, "format", "toml", "output format: toml or cue")
	cfgCmd.AddCommand(showCmd)

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return initConfig(app)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return showConfigPath(app)
		},
	})

	return cfgCmd
}

func showConfig(app *App, format string) error {
	var body string
	switch format {
	case "toml":
		data, err := config.ToTOML(app.cfg)
		if err != nil {
			return err
		}
		body = string(data)
	case "cue":
		body = config.GenerateCUE(app.cfg)
	default:
		return fmt.Errorf("invalid --format %q: expected toml or cue", format)
	}

	source := SubtitleStyle.Render("(using defaults)")
	if app.cfgSource != "" {
		source = app.cfgSource
	}
	fmt.Fprintf(app.stderr, "%s: %s\n", CmdStyle.Render("Config file"), source)
	fmt.Fprint(app.stdout, body)
	return nil
}

func initConfig(app *App) error {
	path, created, err := config.CreateDefaultConfig("")
	if err != nil {
		return fmt.Errorf("failed to create config: %w", err)
	}
	if !created {
		fmt.Fprintf(app.stdout, "%s Configuration already exists at %s\n", WarningStyle.Render("!"), path)
		return nil
	}
	fmt.Fprintf(app.stdout, "%s Created default configuration at %s\n", SuccessStyle.Render("✓"), path)
	return nil
}

func showConfigPath(app *App) error {
	cfgDir, err := config.ConfigDir()
	if err != nil {
		return err
	}

	fmt.Fprintf(app.stdout, "Config directory: %s\n", cfgDir)
	fmt.Fprintf(app.stdout, "Config file: %s\n", filepath.Join(cfgDir, config.ConfigFileName+"."+config.ConfigFileExt))
	if app.cfgSource != "" {
		fmt.Fprintf(app.stdout, "Loaded from: %s\n", app.cfgSource)
	}
	return nil
}
