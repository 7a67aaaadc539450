// SPDX-License-Identifier: MPL-2.0

// Package natives unpacks platform native libraries next to a version
// before launch.
package natives

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/kilnlauncher/kiln/pkg/gameinfo"
	"github.com/kilnlauncher/kiln/pkg/platform"
)

var (
	// ErrUnsafeEntry is returned for archive entries that would land outside
	// the natives directory.
	ErrUnsafeEntry = errors.New("unsafe archive entry")

	// ErrInvalidPattern is returned for malformed exclude globs.
	ErrInvalidPattern = errors.New("invalid exclude pattern")
)

type (
	// Options configure Extract.
	Options struct {
		Layout gameinfo.Layout
		// Dir is the destination. Default: Layout.NativesDir(VersionID).
		Dir       string
		VersionID string
		Platform  platform.Platform
		Features  map[string]bool
		Logger    *slog.Logger
	}

	// Report counts what Extract did.
	Report struct {
		Dir       string
		Archives  int
		Extracted int
		Unchanged int
		Excluded  int
	}
)

// Extract unpacks the natives jar of every library allowed on the platform.
// Entries matching the library's extract.exclude globs are skipped; a
// pattern ending in "/" excludes the whole directory. Files already present
// with the same size and CRC-32 are left alone, others are written through a
// temporary sibling and renamed into place. Native jars must already be
// present under the libraries directory.
func Extract(ctx context.Context, libs []gameinfo.Library, opts Options) (*Report, error) {
	if opts.Layout.Root == "" {
		return nil, gameinfo.NewConfigurationError("natives", "no game directory", nil)
	}
	dir := opts.Dir
	if dir == "" {
		if opts.VersionID == "" {
			return nil, gameinfo.NewConfigurationError("natives", "no natives directory or version", nil)
		}
		dir = opts.Layout.NativesDir(opts.VersionID)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	rep := &Report{Dir: dir}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create natives directory: %w", err)
	}

	for _, lib := range libs {
		if !lib.Rules.Allows(opts.Platform, opts.Features) {
			continue
		}
		a, ok, err := lib.NativeArtifact(opts.Platform)
		if err != nil {
			return rep, err
		}
		if !ok {
			continue
		}
		excludes, err := compilePatterns(lib.ExcludePatterns())
		if err != nil {
			return rep, fmt.Errorf("%s: %w", lib.Name, err)
		}

		jar := opts.Layout.LibraryPath(a.Path)
		logger.Debug("extracting natives", "library", lib.Name, "archive", jar)
		if err := extractArchive(ctx, jar, dir, excludes, rep); err != nil {
			return rep, fmt.Errorf("extract natives of %s: %w", lib.Name, err)
		}
		rep.Archives++
	}

	logger.Debug("natives ready", "dir", dir, "archives", rep.Archives,
		"extracted", rep.Extracted, "unchanged", rep.Unchanged)
	return rep, nil
}

func compilePatterns(patterns []string) ([]string, error) {
	out := make([]string, 0, len(patterns))
	for _, pat := range patterns {
		pat = strings.TrimPrefix(filepath.ToSlash(pat), "/")
		if strings.HasSuffix(pat, "/") {
			pat += "**"
		}
		if !doublestar.ValidatePattern(pat) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPattern, pat)
		}
		out = append(out, pat)
	}
	return out, nil
}

func excluded(name string, patterns []string) bool {
	for _, pat := range patterns {
		if matched, err := doublestar.Match(pat, name); err == nil && matched {
			return true
		}
	}
	return false
}

func extractArchive(ctx context.Context, jar, dir string, excludes []string, rep *Report) error {
	zr, err := zip.OpenReader(jar)
	if errors.Is(err, zip.ErrInsecurePath) {
		_ = zr.Close()
		return fmt.Errorf("%w: %s", ErrUnsafeEntry, jar)
	}
	if err != nil {
		return err
	}
	defer func() { _ = zr.Close() }() // Read-only archive.

	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		if f.FileInfo().IsDir() {
			continue
		}
		name := path.Clean(f.Name)
		if excluded(name, excludes) {
			rep.Excluded++
			continue
		}
		if !filepath.IsLocal(filepath.FromSlash(name)) {
			return fmt.Errorf("%w: %s", ErrUnsafeEntry, f.Name)
		}

		dest := filepath.Join(dir, filepath.FromSlash(name))
		if unchanged(dest, f) {
			rep.Unchanged++
			continue
		}
		if err := writeEntry(f, dest); err != nil {
			return err
		}
		rep.Extracted++
	}
	return nil
}

// unchanged reports whether dest already holds the entry's contents.
func unchanged(dest string, f *zip.File) bool {
	info, err := os.Stat(dest)
	if err != nil || !info.Mode().IsRegular() || uint64(info.Size()) != f.UncompressedSize64 {
		return false
	}
	file, err := os.Open(dest)
	if err != nil {
		return false
	}
	defer func() { _ = file.Close() }() // Read-only comparison.

	h := crc32.NewIEEE()
	if _, err := io.Copy(h, file); err != nil {
		return false
	}
	return h.Sum32() == f.CRC32
}

func writeEntry(f *zip.File, dest string) (err error) {
	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer func() { _ = src.Close() }() // Read-only archive entry.

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*.part")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name()) // Best-effort cleanup of a failed write.
		}
	}()

	if _, err = io.Copy(tmp, src); err != nil {
		return fmt.Errorf("extract %s: %w", f.Name, err)
	}
	if err = tmp.Chmod(0o755); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dest)
}
