// SPDX-License-Identifier: MPL-2.0

package install

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/kilnlauncher/kiln/internal/download"
	"github.com/kilnlauncher/kiln/internal/resources"
	"github.com/kilnlauncher/kiln/pkg/gameinfo"
)

const (
	// DefaultForgeRepository is the Forge Maven repository.
	DefaultForgeRepository = "https://maven.minecraftforge.net/"
	// DefaultNeoForgeRepository is the NeoForge Maven repository.
	DefaultNeoForgeRepository = "https://maven.neoforged.net/releases/"

	installProfileEntry = "install_profile.json"
	defaultVersionEntry = "/version.json"
	clientSide          = "client"
)

type (
	// installProfile is install_profile.json. Modern installers (1.13+) fill
	// the processor fields; legacy ones carry VersionInfo and Install.
	installProfile struct {
		Spec       int                  `json:"spec,omitempty"`
		Path       string               `json:"path,omitempty"`
		Minecraft  string               `json:"minecraft,omitempty"`
		JSON       string               `json:"json,omitempty"`
		Data       map[string]sidedData `json:"data,omitempty"`
		Processors []processor          `json:"processors,omitempty"`
		Libraries  []gameinfo.Library   `json:"libraries,omitempty"`

		Install     *legacyInstall     `json:"install,omitempty"`
		VersionInfo *gameinfo.GameInfo `json:"versionInfo,omitempty"`
	}

	sidedData struct {
		Client string `json:"client"`
		Server string `json:"server"`
	}

	processor struct {
		Jar       string            `json:"jar"`
		Classpath []string          `json:"classpath,omitempty"`
		Args      []string          `json:"args,omitempty"`
		Outputs   map[string]string `json:"outputs,omitempty"`
		Sides     []string          `json:"sides,omitempty"`
	}

	legacyInstall struct {
		// Path is the coordinate of the universal jar.
		Path string `json:"path"`
		// FilePath is the universal jar's entry name inside the installer.
		FilePath string `json:"filePath"`
	}

	// processorInstaller installs loaders shipped as an installer jar whose
	// install profile lists libraries and client-side patch processors
	// (Forge, NeoForge).
	processorInstaller struct {
		params    Params
		id        string
		repo      string
		installer gameinfo.Coordinate
		// legacyGame marks game versions older than 1.13, whose installers
		// have no processors.
		legacyGame bool

		installerPath string
		profile       *installProfile
		version       *gameinfo.GameInfo
	}
)

func newForge(p Params) *processorInstaller {
	build := strings.TrimPrefix(p.LoaderVersion, p.GameVersion+"-")
	return &processorInstaller{
		params: p,
		id:     p.GameVersion + "-forge-" + build,
		repo:   orDefault(p.Repository, DefaultForgeRepository),
		installer: gameinfo.Coordinate{
			Group: "net.minecraftforge", Artifact: "forge",
			Version: p.GameVersion + "-" + build, Classifier: "installer", Extension: "jar",
		},
		legacyGame: olderThan(p.GameVersion, "1.13"),
	}
}

func newNeoForge(p Params) *processorInstaller {
	return &processorInstaller{
		params: p,
		id:     "neoforge-" + p.LoaderVersion,
		repo:   orDefault(p.Repository, DefaultNeoForgeRepository),
		installer: gameinfo.Coordinate{
			Group: "net.neoforged", Artifact: "neoforge",
			Version: p.LoaderVersion, Classifier: "installer", Extension: "jar",
		},
	}
}

// olderThan reports whether game is a release version below floor.
// Snapshots and other non-release IDs are never older.
func olderThan(game, floor string) bool {
	v := "v" + game
	if !semver.IsValid(v) {
		return false
	}
	return semver.Compare(v, "v"+floor) < 0
}

func (f *processorInstaller) absoluteID() string { return f.id }

func (f *processorInstaller) resolve(ctx context.Context, r *run) ([]download.Element, error) {
	layout := r.deps.Layout
	f.installerPath = layout.LibraryPath(f.installer.Path())
	if err := r.acquire(ctx, download.Element{
		Path: f.installerPath,
		URL:  strings.TrimSuffix(f.repo, "/") + "/" + f.installer.Path(),
	}); err != nil {
		return nil, err
	}

	zr, err := zip.OpenReader(f.installerPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open installer: %w", ErrMalformedInstaller, err)
	}
	defer func() { _ = zr.Close() }() // Read-only archive.

	data, err := readEntry(&zr.Reader, installProfileEntry)
	if err != nil {
		return nil, err
	}
	var profile installProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", ErrMalformedInstaller, installProfileEntry, err)
	}
	f.profile = &profile

	if f.legacyGame || profile.VersionInfo != nil {
		return f.resolveLegacy(r, &zr.Reader)
	}
	return f.resolveModern(r, &zr.Reader)
}

func (f *processorInstaller) resolveLegacy(r *run, zr *zip.Reader) ([]download.Element, error) {
	p := f.profile
	if p.VersionInfo == nil || p.Install == nil {
		return nil, fmt.Errorf("%w: legacy install profile without versionInfo", ErrMalformedInstaller)
	}
	universal, err := gameinfo.ParseCoordinate(p.Install.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedInstaller, err)
	}
	if err := extractEntry(zr, p.Install.FilePath, r.deps.Layout.LibraryPath(universal.Path())); err != nil {
		return nil, err
	}

	version := *p.VersionInfo
	version.Libraries = nil
	for _, lib := range p.VersionInfo.Libraries {
		if lib.Key() == universal.Key() {
			// Extracted above; keep it off the download list.
			lib = gameinfo.Library{
				Name:      lib.Name,
				Downloads: &gameinfo.LibraryDownloads{Artifact: &gameinfo.Artifact{Path: universal.Path()}},
			}
		}
		version.Libraries = append(version.Libraries, lib)
	}
	f.version = &version

	return f.elements(r, version.Libraries)
}

func (f *processorInstaller) resolveModern(r *run, zr *zip.Reader) ([]download.Element, error) {
	p := f.profile
	entry := p.JSON
	if entry == "" {
		entry = defaultVersionEntry
	}
	data, err := readEntry(zr, entry)
	if err != nil {
		return nil, err
	}
	version, err := gameinfo.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedInstaller, err)
	}
	if version.MainClass == "" {
		return nil, fmt.Errorf("%w: %s has no main class", ErrMalformedInstaller, entry)
	}
	f.version = version

	// Artifacts without a URL ship inside the installer under maven/.
	libs := slices.Concat(p.Libraries, version.Libraries)
	for _, lib := range libs {
		a, ok, err := lib.Artifact()
		if err != nil {
			return nil, err
		}
		if ok && a.URL == "" {
			if err := f.extractBundled(r, zr, a.Path); err != nil {
				return nil, err
			}
		}
	}
	if p.Path != "" {
		c, err := gameinfo.ParseCoordinate(p.Path)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedInstaller, err)
		}
		if hasEntry(zr, "maven/"+c.Path()) {
			if err := f.extractBundled(r, zr, c.Path()); err != nil {
				return nil, err
			}
		}
	}

	elems, err := f.elements(r, libs)
	if err != nil {
		return nil, err
	}
	// Processors read the vanilla jar.
	if client, err := resources.Client(r.deps.Layout, r.base); err == nil {
		elems = append(elems, client)
	}
	return elems, nil
}

func (f *processorInstaller) extractBundled(r *run, zr *zip.Reader, artifactPath string) error {
	return extractEntry(zr, "maven/"+artifactPath, r.deps.Layout.LibraryPath(artifactPath))
}

func (f *processorInstaller) elements(r *run, libs []gameinfo.Library) ([]download.Element, error) {
	return resources.Libraries(r.deps.Layout, libs, r.deps.Platform, nil)
}

func (f *processorInstaller) compile(ctx context.Context, r *run) error {
	procs := slices.DeleteFunc(slices.Clone(f.profile.Processors), func(p processor) bool {
		return len(p.Sides) > 0 && !slices.Contains(p.Sides, clientSide)
	})
	if len(procs) == 0 {
		return nil
	}

	zr, err := zip.OpenReader(f.installerPath)
	if err != nil {
		return fmt.Errorf("%w: open installer: %w", ErrMalformedInstaller, err)
	}
	defer func() { _ = zr.Close() }() // Read-only archive.

	vars, err := f.variables(r, &zr.Reader)
	if err != nil {
		return err
	}

	for i, proc := range procs {
		if err := f.runProcessor(ctx, r, proc, vars); err != nil {
			return err
		}
		r.progress.span(StepCompile, downloadEnd, compileEnd, i+1, len(procs))
	}
	return nil
}

// variables resolves the {KEY} substitutions of the processors. Data
// entries naming installer files are extracted into the work directory.
func (f *processorInstaller) variables(r *run, zr *zip.Reader) (map[string]string, error) {
	layout := r.deps.Layout
	vars := map[string]string{
		"SIDE":              clientSide,
		"MINECRAFT_JAR":     r.vanillaJar(),
		"MINECRAFT_VERSION": r.params.GameVersion,
		"ROOT":              layout.Root,
		"INSTALLER":         f.installerPath,
		"LIBRARY_DIR":       layout.LibrariesDir(),
	}
	for _, key := range slices.Sorted(maps.Keys(f.profile.Data)) {
		value := f.profile.Data[key].Client
		switch {
		case isCoordinateRef(value):
			path, err := libraryRef(layout, value)
			if err != nil {
				return nil, err
			}
			vars[key] = path
		case isLiteral(value):
			vars[key] = value[1 : len(value)-1]
		case strings.HasPrefix(value, "/"):
			dest := filepath.Join(r.workDir, filepath.FromSlash(strings.TrimPrefix(value, "/")))
			if err := extractEntry(zr, value, dest); err != nil {
				return nil, err
			}
			vars[key] = dest
		default:
			vars[key] = value
		}
	}
	return vars, nil
}

func (f *processorInstaller) runProcessor(ctx context.Context, r *run, proc processor, vars map[string]string) error {
	layout := r.deps.Layout
	jarPath, err := libraryRef(layout, "["+proc.Jar+"]")
	if err != nil {
		return err
	}

	outputs := make(map[string]download.Checksum, len(proc.Outputs))
	for k, v := range proc.Outputs {
		path, err := substitute(layout, k, vars)
		if err != nil {
			return err
		}
		sum, err := substitute(layout, v, vars)
		if err != nil {
			return err
		}
		outputs[path] = download.Checksum(sum)
	}
	if len(outputs) > 0 && outputsValid(outputs) == nil {
		r.logger.Debug("processor outputs up to date", "processor", proc.Jar)
		return nil
	}

	mainClass, err := manifestMainClass(jarPath)
	if err != nil {
		return err
	}
	classpath := []string{jarPath}
	for _, cp := range proc.Classpath {
		path, err := libraryRef(layout, "["+cp+"]")
		if err != nil {
			return err
		}
		classpath = append(classpath, path)
	}
	args := make([]string, 0, len(proc.Args))
	for _, a := range proc.Args {
		s, err := substitute(layout, a, vars)
		if err != nil {
			return err
		}
		args = append(args, s)
	}

	r.logger.Debug("running processor", "processor", proc.Jar, "main_class", mainClass)
	if err := compile(ctx, r.deps.Toolchain, Invocation{
		Name:      proc.Jar,
		Classpath: classpath,
		MainClass: mainClass,
		Args:      args,
		Dir:       r.workDir,
	}); err != nil {
		return err
	}
	if err := outputsValid(outputs); err != nil {
		return fmt.Errorf("processor %s: %w", proc.Jar, err)
	}
	return nil
}

func (f *processorInstaller) descriptor(*run) (*gameinfo.GameInfo, error) {
	g := *f.version
	g.Libraries = slices.Clone(f.version.Libraries)
	return &g, nil
}

func outputsValid(outputs map[string]download.Checksum) error {
	for _, path := range slices.Sorted(maps.Keys(outputs)) {
		if err := download.VerifyFile(path, outputs[path]); err != nil {
			return err
		}
	}
	return nil
}

// substitute expands one processor token: {KEY}, [coordinate] or 'literal'.
// Anything else is returned unchanged.
func substitute(layout gameinfo.Layout, token string, vars map[string]string) (string, error) {
	switch {
	case strings.HasPrefix(token, "{") && strings.HasSuffix(token, "}"):
		key := token[1 : len(token)-1]
		v, ok := vars[key]
		if !ok {
			return "", fmt.Errorf("%w: undefined processor variable %s", ErrMalformedInstaller, key)
		}
		return v, nil
	case isCoordinateRef(token):
		return libraryRef(layout, token)
	case isLiteral(token):
		return token[1 : len(token)-1], nil
	default:
		return token, nil
	}
}

func isCoordinateRef(s string) bool {
	return len(s) > 2 && strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]")
}

func isLiteral(s string) bool {
	return len(s) >= 2 && strings.HasPrefix(s, "'") && strings.HasSuffix(s, "'")
}

// libraryRef resolves "[group:artifact:version[:classifier][@ext]]" to its
// path under the libraries directory.
func libraryRef(layout gameinfo.Layout, ref string) (string, error) {
	c, err := gameinfo.ParseCoordinate(strings.TrimSuffix(strings.TrimPrefix(ref, "["), "]"))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformedInstaller, err)
	}
	return layout.LibraryPath(c.Path()), nil
}
