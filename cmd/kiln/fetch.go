// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/kilnlauncher/kiln/internal/app/launcher"
	"github.com/kilnlauncher/kiln/internal/download"
)

func newFetchCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch <version>",
		Short: "Download the libraries, client and assets of an installed version",
		Long: `Download everything an installed version needs to start: its libraries,
native jars, client jar, asset index and asset objects. Files already
present with the expected checksum are kept.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.fail(runFetch(cmd, app, args[0]))
		},
	}
}

func runFetch(cmd *cobra.Command, app *App, id string) error {
	ctx := cmd.Context()
	loaded, err := app.loadConfig(ctx)
	if err != nil {
		return err
	}

	logger := app.logger(loaded.Config)
	l, err := app.launcher(ctx, loaded.Config, logger, launcher.WithDownloadProgress(progressLogger(logger)))
	if err != nil {
		return err
	}
	defer func() { _ = l.Close() }()

	rep, err := l.Sync(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %d files, %d assets\n",
		SuccessStyle.Render("✓"), KeyStyle.Render(rep.Version.ID), rep.Elements, rep.Assets)
	return nil
}

// progressLogger logs every hundredth settled download and every failure.
func progressLogger(logger *slog.Logger) func(download.Progress) {
	return func(p download.Progress) {
		if p.Result.Err != nil {
			logger.Warn("download failed", "path", p.Result.Element.Path, "error", p.Result.Err)
		}
		if p.Done == p.Total || p.Done%100 == 0 {
			logger.Debug("download progress", "done", p.Done, "total", p.Total)
		}
	}
}
