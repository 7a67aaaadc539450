// SPDX-License-Identifier: MPL-2.0

package install

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/kilnlauncher/kiln/internal/download"
	"github.com/kilnlauncher/kiln/internal/notify"
	"github.com/kilnlauncher/kiln/pkg/gameinfo"
	"github.com/kilnlauncher/kiln/pkg/platform"
)

// maxMetadataSize bounds loader metadata documents.
const maxMetadataSize = 8 << 20

type (
	// Executor installs one loader version on top of a parent version.
	Executor interface {
		Kind() Kind
		// AbsoluteID is the version ID of the descriptor the executor writes.
		AbsoluteID() string
		// Subscribe returns a subscription to progress notifications. It
		// fails with notify.ErrClosed once Execute has returned.
		Subscribe() (*notify.Subscription[Progress], error)
		// Execute runs the install. Expected failures (unavailable
		// artifacts, compile errors, cancellation) are reported in the
		// Result; the error return is reserved for misuse.
		Execute(ctx context.Context) (*Result, error)
	}

	// Params are the loader-specific inputs of an executor.
	Params struct {
		// Parent is the version the loader installs on top of.
		Parent *gameinfo.GameInfo
		// GameVersion defaults to the ID of the root of Parent's chain.
		GameVersion string
		// LoaderVersion is the loader build, e.g. "0.15.11" or "47.2.0".
		LoaderVersion string
		// Repository overrides the metadata service, Maven repository or
		// mirror the variant fetches from.
		Repository string
	}

	// Deps are the collaborators shared by executors.
	Deps struct {
		Layout gameinfo.Layout
		// Fetcher serves metadata and artifacts. Default: download.NewHTTPFetcher().
		Fetcher download.Fetcher
		// DownloadOptions configure the manager built for each run.
		DownloadOptions []download.Option
		// Toolchain runs patch processors. Default: JavaToolchain on PATH.
		Toolchain Toolchain
		Platform  platform.Platform
		Logger    *slog.Logger
	}

	// Result is the outcome of Execute. GameInfo is set only on success.
	Result struct {
		Success  bool
		GameInfo *gameinfo.GameInfo
		Errors   []error
	}

	// variant is the loader-specific part of an install.
	variant interface {
		absoluteID() string
		// resolve lists the artifacts to acquire.
		resolve(ctx context.Context, r *run) ([]download.Element, error)
		// compile runs local patch steps. Variants without any return nil.
		compile(ctx context.Context, r *run) error
		// descriptor builds the new version descriptor. ID and parent
		// linkage are filled in by the executor.
		descriptor(r *run) (*gameinfo.GameInfo, error)
	}

	// run carries the collaborators of one Execute call.
	run struct {
		deps     Deps
		params   Params
		base     *gameinfo.GameInfo // flattened Parent
		progress *reporter
		logger   *slog.Logger
		workDir  string
	}

	executor struct {
		kind   Kind
		v      variant
		params Params
		deps   Deps
		base   *gameinfo.GameInfo
		hub    *notify.Hub[Progress]

		mu      sync.Mutex
		running bool
		spent   bool
	}
)

// localLocks holds a one-slot semaphore per lock path where flock is
// unavailable.
var localLocks sync.Map

// New creates the executor for kind. Unknown kinds, a missing parent or
// loader version, and a parent with a broken inheritance chain return a
// *gameinfo.ConfigurationError.
func New(kind Kind, p Params, d Deps) (Executor, error) {
	if p.Parent == nil {
		return nil, gameinfo.NewConfigurationError(kind.String(), "no parent version", nil)
	}
	if p.LoaderVersion == "" {
		return nil, gameinfo.NewConfigurationError(kind.String(), "no loader version", nil)
	}
	if d.Layout.Root == "" {
		return nil, gameinfo.NewConfigurationError(kind.String(), "no game directory", nil)
	}
	base, err := gameinfo.Flatten(p.Parent)
	if err != nil {
		return nil, err
	}

	if p.GameVersion == "" {
		p.GameVersion = p.Parent.Root().ID
	}
	if d.Fetcher == nil {
		d.Fetcher = download.NewHTTPFetcher()
	}
	if d.Platform.OS == "" {
		d.Platform = platform.Current()
	}
	if d.Toolchain == nil {
		d.Toolchain = JavaToolchain{Platform: d.Platform}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}

	var v variant
	switch kind {
	case KindFabric:
		v = newFabric(p)
	case KindQuilt:
		v = newQuilt(p)
	case KindForge:
		v = newForge(p)
	case KindNeoForge:
		v = newNeoForge(p)
	case KindOptiFine:
		v, err = newOptiFine(p)
		if err != nil {
			return nil, err
		}
	default:
		return nil, gameinfo.NewConfigurationError(kind.String(), "unsupported loader kind", nil)
	}

	if err := gameinfo.ValidateID(v.absoluteID()); err != nil {
		return nil, gameinfo.NewConfigurationError(kind.String(), "loader parameters do not form a valid version id", err)
	}

	return &executor{
		kind:   kind,
		v:      v,
		params: p,
		deps:   d,
		base:   base,
		hub:    notify.NewHub[Progress](),
	}, nil
}

func (e *executor) Kind() Kind { return e.kind }

func (e *executor) AbsoluteID() string { return e.v.absoluteID() }

func (e *executor) Subscribe() (*notify.Subscription[Progress], error) {
	return e.hub.Subscribe()
}

func (e *executor) Execute(ctx context.Context) (*Result, error) {
	if err := e.begin(); err != nil {
		return nil, err
	}
	defer e.end()

	id := e.v.absoluteID()
	logger := e.deps.Logger.With("loader", e.kind.String(), "id", id)
	r := &run{
		deps:     e.deps,
		params:   e.params,
		base:     e.base,
		progress: &reporter{hub: e.hub},
		logger:   logger,
	}

	res := e.install(ctx, r)
	if res.Success {
		logger.Info("loader installed")
	} else {
		logger.Warn("loader install failed", "error", res.Err())
	}
	return res, nil
}

func (e *executor) begin() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return &AlreadyRunningError{Executor: e}
	}
	if e.spent {
		return ErrExecutorSpent
	}
	e.running = true
	return nil
}

func (e *executor) end() {
	e.mu.Lock()
	e.running = false
	e.spent = true
	e.mu.Unlock()
	e.hub.Close()
}

func (e *executor) install(ctx context.Context, r *run) *Result {
	id := e.v.absoluteID()
	layout := e.deps.Layout

	if err := os.MkdirAll(layout.VersionsDir(), 0o755); err != nil {
		return failed(fmt.Errorf("create versions directory: %w", err))
	}
	release, err := lockVersion(ctx, filepath.Join(layout.VersionsDir(), "."+id+".lock"))
	if err != nil {
		return failed(err)
	}
	defer release()

	workDir, err := os.MkdirTemp(layout.VersionsDir(), ".install-"+id+"-*")
	if err != nil {
		return failed(fmt.Errorf("create work directory: %w", err))
	}
	defer func() {
		// Scratch space only; a leftover directory is ignored by Load.
		_ = os.RemoveAll(workDir)
	}()
	r.workDir = workDir

	r.progress.report(StepResolve, 0)
	elements, err := e.v.resolve(ctx, r)
	if err != nil {
		return failed(err)
	}
	r.progress.report(StepResolve, resolveEnd)

	r.logger.Debug("acquiring loader artifacts", "count", len(elements))
	mgr := r.manager(func(p download.Progress) {
		r.progress.span(StepDownload, resolveEnd, downloadEnd, p.Done, p.Total)
	})
	if _, err := mgr.Acquire(ctx, elements); err != nil {
		return failed(err)
	}
	r.progress.report(StepDownload, downloadEnd)

	if err := ctx.Err(); err != nil {
		return failed(err)
	}
	if err := e.v.compile(ctx, r); err != nil {
		return failed(err)
	}
	r.progress.report(StepCompile, compileEnd)

	g, err := e.v.descriptor(r)
	if err != nil {
		return failed(err)
	}
	g.ID = id
	g.InheritsFrom = e.params.Parent.ID
	g.Parent = e.params.Parent
	r.progress.report(StepPersist, compileEnd)
	if err := gameinfo.Save(layout, g); err != nil {
		return failed(err)
	}

	r.progress.finish()
	return &Result{Success: true, GameInfo: g}
}

// Err joins the errors of a failed result. It returns nil on success.
func (r *Result) Err() error {
	return errors.Join(r.Errors...)
}

func failed(errs ...error) *Result {
	return &Result{Errors: errs}
}

// lockVersion serializes installs of one version ID across processes, or
// within the process where flock is unavailable. It gives up with ctx's
// error when ctx is done first.
func lockVersion(ctx context.Context, path string) (func(), error) {
	l, err := acquireInstallLock(ctx, path)
	if err == nil {
		return l.Release, nil
	}
	if !errors.Is(err, errFlockUnavailable) {
		return nil, err
	}
	v, _ := localLocks.LoadOrStore(path, make(chan struct{}, 1))
	sem := v.(chan struct{})
	select {
	case sem <- struct{}{}:
		return sync.OnceFunc(func() { <-sem }), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("wait for install lock %s: %w", path, ctx.Err())
	}
}

// manager builds a download manager for this run. onProgress may be nil.
func (r *run) manager(onProgress func(download.Progress)) *download.Manager {
	opts := []download.Option{download.WithFetcher(r.deps.Fetcher), download.WithLogger(r.logger)}
	opts = append(opts, r.deps.DownloadOptions...)
	if onProgress != nil {
		opts = append(opts, download.WithProgress(onProgress))
	}
	return download.NewManager(opts...)
}

// acquire fetches elements outside the download step, e.g. an installer
// archive needed to resolve the rest.
func (r *run) acquire(ctx context.Context, elements ...download.Element) error {
	_, err := r.manager(nil).Acquire(ctx, elements)
	return err
}

// fetchJSON decodes the document at rawURL into v.
func (r *run) fetchJSON(ctx context.Context, rawURL string, v any) error {
	body, err := r.deps.Fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer func() { _ = body.Close() }() // Read-only response body.

	data, err := io.ReadAll(io.LimitReader(body, maxMetadataSize+1))
	if err != nil {
		return fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	if len(data) > maxMetadataSize {
		return fmt.Errorf("%w: %s exceeds %d bytes", ErrMalformedInstaller, rawURL, maxMetadataSize)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: decode %s: %w", ErrMalformedInstaller, rawURL, err)
	}
	return nil
}

// vanillaJar is the client jar the parent chain launches with.
func (r *run) vanillaJar() string {
	return r.deps.Layout.ClientJarPath(r.base.Jar)
}
