// SPDX-License-Identifier: MPL-2.0

package install

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/kilnlauncher/kiln/internal/download"
	"github.com/kilnlauncher/kiln/internal/resources"
	"github.com/kilnlauncher/kiln/pkg/gameinfo"
)

const (
	// DefaultOptiFineMirror serves OptiFine builds as
	// <mirror>/<game>/<type>/<patch>.
	DefaultOptiFineMirror = "https://bmclapi2.bangbang93.com/optifine/"

	launchWrapperName  = "net.minecraft:launchwrapper:1.12"
	launchWrapperMain  = "net.minecraft.launchwrapper.Launch"
	optiFinePatcher    = "optifine.Patcher"
	optiFineTweakClass = "optifine.OptiFineTweaker"
)

// optiFine patches the vanilla client jar with an OptiFine build and
// launches through launchwrapper.
type optiFine struct {
	params    Params
	mirror    string
	buildType string // e.g. "HD_U"
	patch     string // e.g. "I6"
	installer gameinfo.Coordinate
	patched   gameinfo.Coordinate
}

func newOptiFine(p Params) (*optiFine, error) {
	cut := strings.LastIndexByte(p.LoaderVersion, '_')
	if cut <= 0 || cut == len(p.LoaderVersion)-1 {
		return nil, gameinfo.NewConfigurationError(KindOptiFine.String(),
			fmt.Sprintf("loader version %q is not of the form <type>_<patch>", p.LoaderVersion), nil)
	}
	version := p.GameVersion + "_" + p.LoaderVersion
	patched := gameinfo.Coordinate{Group: "optifine", Artifact: "OptiFine", Version: version, Extension: "jar"}
	return &optiFine{
		params:    p,
		mirror:    orDefault(p.Repository, DefaultOptiFineMirror),
		buildType: p.LoaderVersion[:cut],
		patch:     p.LoaderVersion[cut+1:],
		installer: patched.WithClassifier("installer"),
		patched:   patched,
	}, nil
}

func (o *optiFine) absoluteID() string {
	return o.params.GameVersion + "-OptiFine_" + o.params.LoaderVersion
}

func (o *optiFine) resolve(_ context.Context, r *run) ([]download.Element, error) {
	layout := r.deps.Layout
	elems := []download.Element{{
		Path: layout.LibraryPath(o.installer.Path()),
		URL:  strings.TrimSuffix(o.mirror, "/") + "/" + o.params.GameVersion + "/" + o.buildType + "/" + o.patch,
	}}

	wrapper, err := resources.Library(layout, gameinfo.Library{Name: launchWrapperName}, r.deps.Platform, nil)
	if err != nil {
		return nil, err
	}
	elems = append(elems, wrapper...)

	// The patcher reads the vanilla jar. A parent without a client download
	// must already have it on disk.
	if client, err := resources.Client(layout, r.base); err == nil {
		elems = append(elems, client)
	}
	return elems, nil
}

func (o *optiFine) compile(ctx context.Context, r *run) error {
	layout := r.deps.Layout
	vanilla := r.vanillaJar()
	if _, err := os.Stat(vanilla); err != nil {
		return fmt.Errorf("vanilla client jar: %w", err)
	}

	installer := layout.LibraryPath(o.installer.Path())
	out := layout.LibraryPath(o.patched.Path())
	if err := compile(ctx, r.deps.Toolchain, Invocation{
		Name:      optiFinePatcher,
		Classpath: []string{installer},
		MainClass: optiFinePatcher,
		Args:      []string{vanilla, installer, out},
		Dir:       r.workDir,
	}); err != nil {
		return err
	}
	if _, err := os.Stat(out); err != nil {
		return fmt.Errorf("%s produced no output: %w", optiFinePatcher, err)
	}
	return nil
}

func (o *optiFine) descriptor(r *run) (*gameinfo.GameInfo, error) {
	g := &gameinfo.GameInfo{
		Type:      r.base.Type,
		MainClass: launchWrapperMain,
		Libraries: []gameinfo.Library{
			{
				Name:      o.patched.String(),
				Downloads: &gameinfo.LibraryDownloads{Artifact: &gameinfo.Artifact{Path: o.patched.Path()}},
			},
			{Name: launchWrapperName},
		},
	}
	// Legacy descriptors replace minecraftArguments wholesale, so the
	// inherited string is repeated with the tweaker appended.
	if r.base.Arguments != nil {
		g.Arguments = &gameinfo.Arguments{
			Game: gameinfo.PlainArguments("--tweakClass", optiFineTweakClass),
		}
	} else {
		g.MinecraftArguments = strings.TrimSpace(r.base.MinecraftArguments + " --tweakClass " + optiFineTweakClass)
	}
	return g, nil
}
