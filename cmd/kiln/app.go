// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/log"

	"github.com/kilnlauncher/kiln/internal/app/launcher"
	"github.com/kilnlauncher/kiln/internal/config"
	"github.com/kilnlauncher/kiln/pkg/types"
)

type (
	// App is the composition root of the CLI. Command handlers receive it
	// and reach configuration and the launcher through it.
	App struct {
		stdout io.Writer
		stderr io.Writer
		opts   []launcher.Option
		// style is the glamour style for issue documents.
		style string

		// Global flags, bound by NewRootCommand.
		configFile string
		gameDir    string
		verbose    bool
	}

	// Dependencies are the injection points of NewApp. Nil writers default
	// to the process streams.
	Dependencies struct {
		Stdout io.Writer
		Stderr io.Writer
		// LauncherOptions are appended to the options every launcher is
		// built with.
		LauncherOptions []launcher.Option
	}
)

// NewApp creates an App.
func NewApp(deps Dependencies) *App {
	a := &App{stdout: deps.Stdout, stderr: deps.Stderr, opts: deps.LauncherOptions, style: "auto"}
	if a.stdout == nil {
		a.stdout = os.Stdout
	}
	if a.stderr == nil {
		a.stderr = os.Stderr
	}
	return a
}

// loadConfig loads the configuration and applies the global flags on top.
func (a *App) loadConfig(ctx context.Context) (*config.Loaded, error) {
	loaded, err := config.LoadWithSource(ctx, config.LoadOptions{ConfigFilePath: types.FilesystemPath(a.configFile)})
	if err != nil {
		return nil, err
	}
	if a.gameDir != "" {
		loaded.GameDir = a.gameDir
	}
	if a.verbose {
		loaded.UI.Verbose = true
	}
	a.style = glamourStyle(loaded.Config)
	return loaded, nil
}

// fail classifies err for rendering. Errors that already are service or
// exit errors pass through.
func (a *App) fail(err error) error {
	var svcErr *ServiceError
	var exitErr *ExitError
	if err == nil || errors.As(err, &svcErr) || errors.As(err, &exitErr) {
		return err
	}
	id, msg := classifyError(err, a.verbose)
	return newServiceError(err, id, msg)
}

// logger writes to stderr through charmbracelet/log. Verbose mode forces
// debug level.
func (a *App) logger(cfg *config.Config) *slog.Logger {
	level := log.InfoLevel
	if parsed, err := log.ParseLevel(string(cfg.Log.Level)); err == nil {
		level = parsed
	}
	if cfg.UI.Verbose {
		level = log.DebugLevel
	}
	handler := log.NewWithOptions(a.stderr, log.Options{
		Prefix:          "kiln",
		Level:           level,
		ReportTimestamp: cfg.UI.Verbose,
	})
	return slog.New(handler)
}

// launcher builds a launcher for cfg. The caller closes it.
func (a *App) launcher(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...launcher.Option) (*launcher.Launcher, error) {
	all := append([]launcher.Option{launcher.WithLogger(logger)}, opts...)
	all = append(all, a.opts...)
	return launcher.New(ctx, cfg, all...)
}

// glamourStyle maps the configured color scheme to a glamour style.
func glamourStyle(cfg *config.Config) string {
	if cfg == nil {
		return "auto"
	}
	switch cfg.UI.ColorScheme {
	case config.ColorSchemeDark:
		return "dark"
	case config.ColorSchemeLight:
		return "light"
	default:
		return "auto"
	}
}
