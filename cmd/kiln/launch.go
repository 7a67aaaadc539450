// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"mvdan.cc/sh/v3/syntax"

	"github.com/kilnlauncher/kiln/internal/launch"
	"github.com/kilnlauncher/kiln/pkg/gameinfo"
)

type launchFlags struct {
	username string
	print    bool
	quiet    bool
}

func newLaunchCommand(app *App) *cobra.Command {
	var f launchFlags
	cmd := &cobra.Command{
		Use:   "launch <version>",
		Short: "Fetch, prepare and run an installed version",
		Long: `Fetch everything the version needs, extract its natives, and run the
game with an offline account. Game output is streamed to stdout. kiln
exits with the game's exit code; a crash is reported with guidance.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.fail(runLaunch(cmd, app, args[0], f))
		},
	}
	cmd.Flags().StringVarP(&f.username, "username", "u", "Player", "offline player name")
	cmd.Flags().BoolVar(&f.print, "print", false, "print the java command line instead of running it")
	cmd.Flags().BoolVarP(&f.quiet, "quiet", "q", false, "do not stream game output")
	return cmd
}

func runLaunch(cmd *cobra.Command, app *App, id string, f launchFlags) error {
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
	closeLauncher := sync.OnceValue(l.Close)
	defer func() { _ = closeLauncher() }()

	plan, err := l.Prepare(ctx, id, gameinfo.OfflineAccount(f.username))
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if f.print {
		line, err := commandLine(plan.Spec)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, line)
		return nil
	}

	sub, err := l.Controller().Subscribe()
	if err != nil {
		return err
	}
	streamed := make(chan struct{})
	go func() {
		defer close(streamed)
		for ev := range sub.C {
			switch {
			case ev.Kind == launch.EventOutput && !f.quiet:
				fmt.Fprintln(out, ev.Line)
			case ev.Kind == launch.EventTransition:
				logger.Debug("game state", "from", ev.From, "to", ev.To)
			}
		}
	}()

	s, err := l.Launch(ctx, plan.Spec)
	if err != nil {
		_ = closeLauncher()
		<-streamed
		return err
	}
	logger.Info("game started", "version", plan.Version.ID, "pid", s.PID())

	code, err := l.Wait(ctx, s)
	if errors.Is(err, context.Canceled) {
		logger.Info("interrupted, stopping the game")
		if termErr := l.Controller().Terminate(); termErr != nil {
			logger.Debug("terminate", "error", termErr)
		}
		code, err = l.Wait(context.Background(), s)
	}

	// Closing the hub delivers the remaining output before streamed closes.
	_ = closeLauncher()
	<-streamed

	if err != nil {
		return err
	}
	if !code.IsSuccess() {
		return &ExitError{Code: code}
	}
	return nil
}

// commandLine renders spec as one shell-quoted line.
func commandLine(spec launch.Spec) (string, error) {
	words := append([]string{spec.Java}, spec.Args...)
	quoted := make([]string, len(words))
	for i, w := range words {
		q, err := syntax.Quote(w, syntax.LangPOSIX)
		if err != nil {
			return "", fmt.Errorf("quote argument %d: %w", i, err)
		}
		quoted[i] = q
	}
	return strings.Join(quoted, " "), nil
}
