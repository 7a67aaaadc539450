// SPDX-License-Identifier: MPL-2.0

package launcher

import (
	"context"

	"github.com/kilnlauncher/kiln/internal/launch"
	"github.com/kilnlauncher/kiln/internal/launchargs"
	"github.com/kilnlauncher/kiln/internal/natives"
	"github.com/kilnlauncher/kiln/internal/resources"
	"github.com/kilnlauncher/kiln/pkg/gameinfo"
)

type (
	// Plan is a version ready to launch.
	Plan struct {
		// Version is the flattened descriptor.
		Version *gameinfo.GameInfo
		// Spec is handed to the controller by Launch.
		Spec    launch.Spec
		Natives *natives.Report
	}

	// SyncReport summarizes one Sync call.
	SyncReport struct {
		Version  *gameinfo.GameInfo
		Elements int
		Assets   int
	}
)

// Sync acquires everything version id needs: libraries, client jar, asset
// index and asset objects. A failed element aborts with the
// *download.IncompleteResourcesError of the batch it belonged to.
func (l *Launcher) Sync(ctx context.Context, id string) (*SyncReport, error) {
	g, err := gameinfo.Load(l.layout, id)
	if err != nil {
		return nil, err
	}
	flat, err := gameinfo.Flatten(g)
	if err != nil {
		return nil, err
	}
	return l.sync(ctx, flat)
}

func (l *Launcher) sync(ctx context.Context, flat *gameinfo.GameInfo) (*SyncReport, error) {
	elements, err := resources.Version(l.layout, flat, l.platform, nil)
	if err != nil {
		return nil, err
	}
	mgr := l.manager()
	if _, err := mgr.Acquire(ctx, elements); err != nil {
		return nil, err
	}
	rep := &SyncReport{Version: flat, Elements: len(elements)}

	if _, ok := resources.Index(l.layout, flat); !ok {
		l.logger.Debug("version has no asset index", "version", flat.ID)
		return rep, nil
	}
	idx, err := resources.LoadAssetIndex(l.layout, flat.AssetsID())
	if err != nil {
		return nil, err
	}
	objects := resources.Objects(l.layout, idx, l.cfg.Repositories.Assets)
	if _, err := mgr.Acquire(ctx, objects); err != nil {
		return nil, err
	}
	rep.Assets = len(objects)
	l.logger.Info("resources ready", "version", flat.ID, "files", rep.Elements, "assets", rep.Assets)
	return rep, nil
}

// Prepare syncs version id, extracts its natives and builds the command
// line for acct. Nothing is spawned; pass the plan to Launch.
func (l *Launcher) Prepare(ctx context.Context, id string, acct gameinfo.Account) (*Plan, error) {
	g, err := gameinfo.Load(l.layout, id)
	if err != nil {
		return nil, err
	}
	flat, err := gameinfo.Flatten(g)
	if err != nil {
		return nil, err
	}
	if _, err := l.sync(ctx, flat); err != nil {
		return nil, err
	}

	settings := l.settings(flat.ID)
	report, err := natives.Extract(ctx, flat.Libraries, natives.Options{
		Layout:    l.layout,
		Dir:       settings.NativesDir,
		VersionID: flat.ID,
		Platform:  l.platform,
		Logger:    l.logger,
	})
	if err != nil {
		return nil, err
	}

	args, err := launchargs.Build(g, acct, settings)
	if err != nil {
		return nil, err
	}
	client, err := resources.Client(l.layout, flat)
	if err != nil {
		return nil, err
	}

	return &Plan{
		Version: flat,
		Spec: launch.Spec{
			Java:          l.java(),
			Args:          args,
			Dir:           settings.GameDir,
			RequiredFiles: []string{client.Path},
		},
		Natives: report,
	}, nil
}

func (l *Launcher) settings(id string) launchargs.Settings {
	j, c := l.cfg.Java, l.cfg.Launch
	return launchargs.Settings{
		Layout:       l.layout,
		Platform:     l.platform,
		GameDir:      l.layout.Root,
		NativesDir:   l.layout.NativesDir(id),
		MinMemoryMB:  j.MinMemoryMB,
		MaxMemoryMB:  j.MaxMemoryMB,
		JVMArgs:      j.JVMArgs,
		GameArgs:     j.GameArgs,
		Width:        c.Width,
		Height:       c.Height,
		Fullscreen:   c.Fullscreen,
		LauncherName: c.LauncherName,
	}
}

func (l *Launcher) java() string {
	if p := l.cfg.Java.Path; p != "" {
		return p
	}
	return l.platform.JavaExecutable()
}
