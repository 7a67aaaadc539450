// SPDX-License-Identifier: MPL-2.0

package launcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kilnlauncher/kiln/internal/config"
	"github.com/kilnlauncher/kiln/internal/download"
	"github.com/kilnlauncher/kiln/internal/install"
	"github.com/kilnlauncher/kiln/internal/launch"
	"github.com/kilnlauncher/kiln/pkg/gameinfo"
	"github.com/kilnlauncher/kiln/pkg/platform"
)

type (
	// Launcher owns the collaborators of one game directory. It is safe for
	// concurrent use; the controller allows one live game at a time.
	Launcher struct {
		cfg        *config.Config
		layout     gameinfo.Layout
		platform   platform.Platform
		logger     *slog.Logger
		fetcher    download.Fetcher
		router     *download.Router
		toolchain  install.Toolchain
		onProgress func(download.Progress)
		launchOpts []launch.Option
		controller *launch.Controller
	}

	// Option configures a Launcher.
	Option func(*Launcher)
)

// WithFetcher replaces the HTTP fetcher used as the mirror origin.
func WithFetcher(f download.Fetcher) Option {
	return func(l *Launcher) {
		l.fetcher = f
	}
}

// WithLogger sets the logger shared by every collaborator.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Launcher) {
		l.logger = logger
	}
}

// WithPlatform overrides the host platform used for rules and natives.
func WithPlatform(p platform.Platform) Option {
	return func(l *Launcher) {
		l.platform = p
	}
}

// WithToolchain replaces the java toolchain running loader processors.
func WithToolchain(t install.Toolchain) Option {
	return func(l *Launcher) {
		l.toolchain = t
	}
}

// WithDownloadProgress registers a callback for every settled download of
// Sync and Prepare.
func WithDownloadProgress(fn func(download.Progress)) Option {
	return func(l *Launcher) {
		l.onProgress = fn
	}
}

// WithControllerOptions appends options to the launch controller, after the
// ones derived from the configuration.
func WithControllerOptions(opts ...launch.Option) Option {
	return func(l *Launcher) {
		l.launchOpts = append(l.launchOpts, opts...)
	}
}

// New builds a Launcher from cfg. Configured mirrors are opened here and
// released by Close.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Launcher, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	root, err := cfg.ResolveGameDir()
	if err != nil {
		return nil, err
	}

	l := &Launcher{
		cfg:      cfg,
		layout:   gameinfo.Layout{Root: root},
		platform: platform.Current(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.fetcher == nil {
		l.fetcher = download.NewHTTPFetcher(download.WithUserAgent(cfg.Download.UserAgent))
	}

	if len(cfg.Mirrors) > 0 {
		mirrors := make([]download.Mirror, 0, len(cfg.Mirrors))
		for _, m := range cfg.Mirrors {
			mirror, err := download.OpenMirror(ctx, m.Prefix, m.URL)
			if err != nil {
				closeMirrors(mirrors)
				return nil, err
			}
			mirrors = append(mirrors, mirror)
		}
		l.router = download.NewRouter(l.fetcher, l.logger, mirrors...)
		l.fetcher = l.router
	}

	ctrlOpts, err := controllerOptions(cfg.Launch, l.logger)
	if err != nil {
		if l.router != nil {
			_ = l.router.Close()
		}
		return nil, err
	}
	l.controller = launch.NewController(append(ctrlOpts, l.launchOpts...)...)
	return l, nil
}

// Layout returns the game directory layout.
func (l *Launcher) Layout() gameinfo.Layout { return l.layout }

// Controller returns the launch controller, for subscriptions and Terminate.
func (l *Launcher) Controller() *launch.Controller { return l.controller }

// Close kills a live game, waits for it, and closes the mirrors.
func (l *Launcher) Close() error {
	err := l.controller.Close()
	if l.router != nil {
		err = errors.Join(err, l.router.Close())
	}
	return err
}

func (l *Launcher) downloadOptions() []download.Option {
	d := l.cfg.Download
	return []download.Option{
		download.WithConcurrency(d.Concurrency),
		download.WithAttempts(d.Attempts),
		download.WithAttemptTimeout(time.Duration(d.Timeout)),
	}
}

func (l *Launcher) manager() *download.Manager {
	opts := append(l.downloadOptions(), download.WithFetcher(l.fetcher), download.WithLogger(l.logger))
	if l.onProgress != nil {
		opts = append(opts, download.WithProgress(l.onProgress))
	}
	return download.NewManager(opts...)
}

func controllerOptions(c config.LaunchConfig, logger *slog.Logger) ([]launch.Option, error) {
	opts := []launch.Option{
		launch.WithLogger(logger),
		launch.WithOutputLines(c.OutputLines),
	}
	if c.CrashGracePeriod > 0 {
		opts = append(opts, launch.WithCrashGracePeriod(time.Duration(c.CrashGracePeriod)))
	}
	if len(c.CrashSignatures) > 0 {
		pairs := make([][2]string, len(c.CrashSignatures))
		for i, s := range c.CrashSignatures {
			pairs[i] = [2]string{s.Name, s.Pattern}
		}
		custom, err := launch.CompileSignatures(pairs...)
		if err != nil {
			return nil, fmt.Errorf("launch.crash_signatures: %w", err)
		}
		opts = append(opts, launch.WithSignatures(append(launch.DefaultSignatures(), custom...)))
	}
	return opts, nil
}

func closeMirrors(mirrors []download.Mirror) {
	for _, m := range mirrors {
		_ = m.Bucket.Close() // Nothing was read yet.
	}
}
