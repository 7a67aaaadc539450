// SPDX-License-Identifier: MPL-2.0

package natives

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilnlauncher/kiln/pkg/gameinfo"
	"github.com/kilnlauncher/kiln/pkg/platform"
)

var linux = platform.Platform{OS: platform.Linux, Arch: "amd64"}

const lwjglPath = "org/lwjgl/lwjgl/lwjgl-platform/2.9.4/lwjgl-platform-2.9.4-natives-linux.jar"

func lwjgl(excludes ...string) gameinfo.Library {
	lib := gameinfo.Library{
		Name:    "org.lwjgl.lwjgl:lwjgl-platform:2.9.4",
		Natives: map[string]string{"linux": "natives-linux", "windows": "natives-windows"},
		Downloads: &gameinfo.LibraryDownloads{Classifiers: map[string]gameinfo.Artifact{
			"natives-linux": {Path: lwjglPath, URL: "https://libraries.minecraft.net/" + lwjglPath},
		}},
	}
	if len(excludes) > 0 {
		lib.Extract = &gameinfo.ExtractRules{Exclude: excludes}
	}
	return lib
}

func writeJar(t *testing.T, dest string, entries map[string]string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(dest), 0o755))
	f, err := os.Create(dest)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, body := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func newLayout(t *testing.T) gameinfo.Layout {
	t.Helper()
	l := gameinfo.Layout{Root: t.TempDir()}
	writeJar(t, l.LibraryPath(lwjglPath), map[string]string{
		"liblwjgl64.so":         "lwjgl",
		"libopenal64.so":        "openal",
		"META-INF/MANIFEST.MF":  "Manifest-Version: 1.0\n",
		"META-INF/LWJGL.SF":     "sig",
		"linux/x64/libglfw.so":  "glfw",
		"linux/x64/libglfw.sha": "hash",
	})
	return l
}

func TestExtractHonorsExcludes(t *testing.T) {
	t.Parallel()

	l := newLayout(t)
	rep, err := Extract(context.Background(), []gameinfo.Library{lwjgl("META-INF/", "**/*.sha")}, Options{
		Layout: l, VersionID: "1.8.9", Platform: linux,
	})
	require.NoError(t, err)

	dir := l.NativesDir("1.8.9")
	assert.Equal(t, dir, rep.Dir)
	assert.Equal(t, 1, rep.Archives)
	assert.Equal(t, 3, rep.Extracted)
	assert.Equal(t, 3, rep.Excluded)

	data, err := os.ReadFile(filepath.Join(dir, "liblwjgl64.so"))
	require.NoError(t, err)
	assert.Equal(t, "lwjgl", string(data))
	assert.FileExists(t, filepath.Join(dir, "linux", "x64", "libglfw.so"))
	assert.NoFileExists(t, filepath.Join(dir, "linux", "x64", "libglfw.sha"))
	assert.NoDirExists(t, filepath.Join(dir, "META-INF"))

	parts, err := filepath.Glob(filepath.Join(dir, ".*.part"))
	require.NoError(t, err)
	assert.Empty(t, parts)
}

func TestExtractSkipsUnchangedFiles(t *testing.T) {
	t.Parallel()

	l := newLayout(t)
	opts := Options{Layout: l, Dir: filepath.Join(l.Root, "natives"), Platform: linux}
	libs := []gameinfo.Library{lwjgl("META-INF/")}

	_, err := Extract(context.Background(), libs, opts)
	require.NoError(t, err)

	stale := filepath.Join(opts.Dir, "libopenal64.so")
	require.NoError(t, os.WriteFile(stale, []byte("OPENAL"), 0o644))
	old := time.Now().Add(-time.Hour)
	kept := filepath.Join(opts.Dir, "liblwjgl64.so")
	require.NoError(t, os.Chtimes(kept, old, old))

	rep, err := Extract(context.Background(), libs, opts)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Extracted, "only the modified file is rewritten")
	assert.Equal(t, 3, rep.Unchanged)

	data, err := os.ReadFile(stale)
	require.NoError(t, err)
	assert.Equal(t, "openal", string(data))

	info, err := os.Stat(kept)
	require.NoError(t, err)
	assert.WithinDuration(t, old, info.ModTime(), time.Second)
}

func TestExtractFollowsPlatformAndRules(t *testing.T) {
	t.Parallel()

	l := newLayout(t)
	osxOnly := lwjgl()
	osxOnly.Rules = gameinfo.Rules{{Action: gameinfo.ActionAllow, OS: &gameinfo.OSRule{Name: "osx"}}}
	plain := gameinfo.Library{Name: "com.mojang:brigadier:1.1.8"}

	rep, err := Extract(context.Background(), []gameinfo.Library{osxOnly, plain}, Options{
		Layout: l, VersionID: "1.8.9", Platform: linux,
	})
	require.NoError(t, err)
	assert.Zero(t, rep.Archives)

	windows := platform.Platform{OS: platform.Windows, Arch: "amd64"}
	_, err = Extract(context.Background(), []gameinfo.Library{lwjgl()}, Options{
		Layout: l, VersionID: "1.8.9", Platform: windows,
	})
	require.Error(t, err, "the windows natives jar was never downloaded")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestExtractRejectsUnsafeEntries(t *testing.T) {
	t.Parallel()

	l := gameinfo.Layout{Root: t.TempDir()}
	writeJar(t, l.LibraryPath(lwjglPath), map[string]string{"../../escape.so": "x"})

	_, err := Extract(context.Background(), []gameinfo.Library{lwjgl()}, Options{
		Layout: l, VersionID: "1.8.9", Platform: linux,
	})
	require.ErrorIs(t, err, ErrUnsafeEntry)
	assert.NoFileExists(t, filepath.Join(l.VersionsDir(), "escape.so"))
}

func TestExtractRejectsInvalidPattern(t *testing.T) {
	t.Parallel()

	_, err := Extract(context.Background(), []gameinfo.Library{lwjgl("[unclosed")}, Options{
		Layout: newLayout(t), VersionID: "1.8.9", Platform: linux,
	})
	require.ErrorIs(t, err, ErrInvalidPattern)
}

func TestExtractCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Extract(ctx, []gameinfo.Library{lwjgl()}, Options{
		Layout: newLayout(t), VersionID: "1.8.9", Platform: linux,
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestExtractNeedsDestination(t *testing.T) {
	t.Parallel()

	_, err := Extract(context.Background(), nil, Options{Layout: gameinfo.Layout{Root: t.TempDir()}})
	require.ErrorIs(t, err, gameinfo.ErrConfiguration)

	_, err = Extract(context.Background(), nil, Options{VersionID: "x"})
	require.ErrorIs(t, err, gameinfo.ErrConfiguration)
}
