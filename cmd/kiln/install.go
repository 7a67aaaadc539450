// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/kilnlauncher/kiln/internal/install"
)

func newInstallCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "install <forge|neoforge|fabric|quilt|optifine> <parent-version> <loader-version>",
		Short: "Install a mod loader on top of an installed version",
		Long: `Install a mod loader on top of an installed game version. The new
version is written next to its parent and can be fetched and launched
like any other.

` + SubtitleStyle.Render("Examples:") + `
  kiln install fabric 1.20.1 0.15.11
  kiln install forge 1.20.1 47.2.0
  kiln install optifine 1.20.1 HD_U_I6`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := install.ParseKind(args[0])
			if err != nil {
				return err
			}
			return app.fail(runInstall(cmd, app, kind, args[1], args[2]))
		},
	}
}

func runInstall(cmd *cobra.Command, app *App, kind install.Kind, parent, loader string) error {
	ctx := cmd.Context()
	loaded, err := app.loadConfig(ctx)
	if err != nil {
		return err
	}
	logger := app.logger(loaded.Config)
	l, err := app.launcher(ctx, loaded.Config, logger)
	if err != nil {
		return err
	}
	defer func() { _ = l.Close() }()

	lastPercent := -1
	g, err := l.Install(ctx, kind, parent, loader, func(p install.Progress) {
		percent := int(math.Floor(p.Fraction * 100))
		if percent/10 != lastPercent/10 {
			logger.Info("installing", "step", p.Step, "progress", fmt.Sprintf("%d%%", percent))
			lastPercent = percent
		}
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s installed %s\n", SuccessStyle.Render("✓"), KeyStyle.Render(g.ID))
	return nil
}
