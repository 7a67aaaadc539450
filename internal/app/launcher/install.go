// SPDX-License-Identifier: MPL-2.0

package launcher

import (
	"context"

	"github.com/kilnlauncher/kiln/internal/install"
	"github.com/kilnlauncher/kiln/pkg/gameinfo"
)

// Install runs the kind installer for loaderVersion on top of the installed
// version parentID and returns the new descriptor. onProgress, when set,
// receives every progress notification in order before Install returns.
func (l *Launcher) Install(ctx context.Context, kind install.Kind, parentID, loaderVersion string, onProgress func(install.Progress)) (*gameinfo.GameInfo, error) {
	parent, err := gameinfo.Load(l.layout, parentID)
	if err != nil {
		return nil, err
	}

	exec, err := install.New(kind, install.Params{
		Parent:        parent,
		LoaderVersion: loaderVersion,
		Repository:    l.repository(kind),
	}, install.Deps{
		Layout:          l.layout,
		Fetcher:         l.fetcher,
		DownloadOptions: l.downloadOptions(),
		Toolchain:       l.toolchain,
		Platform:        l.platform,
		Logger:          l.logger,
	})
	if err != nil {
		return nil, err
	}

	drained := make(chan struct{})
	if onProgress != nil {
		sub, err := exec.Subscribe()
		if err != nil {
			return nil, err
		}
		go func() {
			defer close(drained)
			for p := range sub.C {
				onProgress(p)
			}
		}()
	} else {
		close(drained)
	}

	l.logger.Info("installing loader", "kind", kind, "version", exec.AbsoluteID(), "parent", parentID)
	res, err := exec.Execute(ctx)
	<-drained
	if err != nil {
		return nil, err
	}
	if err := res.Err(); err != nil {
		return nil, err
	}
	return res.GameInfo, nil
}

func (l *Launcher) repository(kind install.Kind) string {
	r := l.cfg.Repositories
	switch kind {
	case install.KindFabric:
		return r.FabricMeta
	case install.KindQuilt:
		return r.QuiltMeta
	case install.KindForge:
		return r.Forge
	case install.KindNeoForge:
		return r.NeoForge
	case install.KindOptiFine:
		return r.OptiFine
	default:
		return ""
	}
}
