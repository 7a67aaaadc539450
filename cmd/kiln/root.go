// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
)

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "kiln",
		Short: "A Minecraft launcher for the terminal",
		Long: TitleStyle.Render("kiln") + SubtitleStyle.Render(" - a Minecraft launcher for the terminal") + `

kiln downloads a game version with its libraries and assets, installs
mod loaders on top of it, and runs the game while watching for crashes.
Versions live in the game directory (~/.minecraft by default).

` + SubtitleStyle.Render("Examples:") + `
  kiln fetch 1.20.1                     Download everything 1.20.1 needs
  kiln install fabric 1.20.1 0.15.11    Install Fabric on top of 1.20.1
  kiln launch 1.20.1 --username Steve   Run the game
  kiln config init                      Write the default config.cue`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(app.stdout)
	root.SetErr(app.stderr)

	flags := root.PersistentFlags()
	flags.BoolVarP(&app.verbose, "verbose", "v", false, "enable debug logging and full error chains")
	flags.StringVar(&app.configFile, "config", "", "config file (default is <config dir>/kiln/config.cue)")
	flags.StringVar(&app.gameDir, "game-dir", "", "game directory (overrides game_dir)")

	root.AddCommand(
		newFetchCommand(app),
		newInstallCommand(app),
		newLaunchCommand(app),
		newConfigCommand(app),
	)
	return root
}

// Execute runs the CLI and exits the process with the game's exit code or 1
// on failure.
func Execute() {
	app := NewApp(Dependencies{})
	root := NewRootCommand(app)
	err := fang.Execute(
		context.Background(),
		root,
		fang.WithVersion(Version),
		fang.WithCommit(Commit),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(app.handleError),
	)
	if err == nil {
		return
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		os.Exit(exitErr.processCode())
	}
	os.Exit(1)
}

// handleError renders service errors with their guidance and defers the
// rest to fang.
func (a *App) handleError(w io.Writer, styles fang.Styles, err error) {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		renderServiceError(w, svcErr, a.style)
		return
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Err == nil {
		fmt.Fprintln(w, WarningStyle.Render(exitErr.Error()))
		return
	}
	fang.DefaultErrorHandler(w, styles, err)
}
