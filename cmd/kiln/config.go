// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kilnlauncher/kiln/internal/config"
)

const (
	formatCUE  = "cue"
	formatTOML = "toml"
)

func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage kiln configuration",
		Long: `Manage kiln configuration.

Configuration is read from config.cue in:
  - Linux: $XDG_CONFIG_HOME/kiln or ~/.config/kiln
  - macOS: ~/Library/Application Support/kiln
  - Windows: %APPDATA%\kiln

Every key can be overridden with a KILN_ environment variable, for
example KILN_JAVA_MAX_MEMORY_MB=4096 or KILN_DOWNLOAD_CONCURRENCY=64.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	var format string
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.fail(showConfig(cmd, app, format))
		},
	}
	show.Flags().StringVar(&format, "format", formatCUE, "output format: cue or toml")

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.fail(initConfig(cmd.OutOrStdout(), app, force))
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	path := &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := configPath(app)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), p)
			return nil
		},
	}

	cfgCmd.AddCommand(show, initCmd, path)
	return cfgCmd
}

func showConfig(cmd *cobra.Command, app *App, format string) error {
	loaded, err := app.loadConfig(cmd.Context())
	if err != nil {
		return err
	}

	var body []byte
	switch format {
	case formatCUE:
		body = []byte(config.GenerateCUE(loaded.Config))
	case formatTOML:
		body, err = config.ExportTOML(loaded.Config)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown format %q (want %s or %s)", format, formatCUE, formatTOML)
	}

	w := cmd.OutOrStdout()
	source := SubtitleStyle.Render("(defaults and environment)")
	if loaded.Path != "" {
		source = loaded.Path
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", KeyStyle.Render("Config file:"), source)
	_, err = w.Write(body)
	return err
}

func initConfig(w io.Writer, app *App, force bool) error {
	path, err := configPath(app)
	if err != nil {
		return err
	}
	wrote, err := config.CreateDefaultConfig(path, force)
	if err != nil {
		return fmt.Errorf("create config: %w", err)
	}
	if !wrote {
		fmt.Fprintf(w, "%s %s already exists (use --force to overwrite)\n", WarningStyle.Render("!"), path)
		return nil
	}
	fmt.Fprintf(w, "%s Created default configuration at %s\n", SuccessStyle.Render("✓"), path)
	return nil
}

func configPath(app *App) (string, error) {
	if app.configFile != "" {
		return app.configFile, nil
	}
	return config.ConfigFilePath()
}
