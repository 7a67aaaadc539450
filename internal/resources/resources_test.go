// SPDX-License-Identifier: MPL-2.0

package resources

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilnlauncher/kiln/pkg/gameinfo"
	"github.com/kilnlauncher/kiln/pkg/platform"
)

var linux = platform.Platform{OS: platform.Linux, Arch: "amd64"}

func TestLibrary(t *testing.T) {
	t.Parallel()

	l := gameinfo.Layout{Root: "/games"}
	lwjgl := gameinfo.Library{
		Name: "org.lwjgl.lwjgl:lwjgl-platform:2.9.4",
		Downloads: &gameinfo.LibraryDownloads{
			Classifiers: map[string]gameinfo.Artifact{
				"natives-linux": {
					Path: "org/lwjgl/lwjgl/lwjgl-platform/2.9.4/lwjgl-platform-2.9.4-natives-linux.jar",
					URL:  "https://libraries.minecraft.net/org/lwjgl/lwjgl/lwjgl-platform/2.9.4/lwjgl-platform-2.9.4-natives-linux.jar",
					SHA1: strings.Repeat("a", 40),
				},
			},
		},
		Natives: map[string]string{"linux": "natives-linux", "windows": "natives-windows-${arch}"},
	}

	elems, err := Library(l, lwjgl, linux, nil)
	require.NoError(t, err)
	require.Len(t, elems, 1)
	assert.Equal(t, filepath.FromSlash("/games/libraries/org/lwjgl/lwjgl/lwjgl-platform/2.9.4/lwjgl-platform-2.9.4-natives-linux.jar"), elems[0].Path)

	plain := gameinfo.Library{Name: "net.fabricmc:sponge-mixin:0.12.5+mixin.0.8.5", URL: "https://maven.fabricmc.net/"}
	elems, err = Library(l, plain, linux, nil)
	require.NoError(t, err)
	require.Len(t, elems, 1)
	assert.Equal(t, "https://maven.fabricmc.net/net/fabricmc/sponge-mixin/0.12.5+mixin.0.8.5/sponge-mixin-0.12.5+mixin.0.8.5.jar", elems[0].URL)

	local := gameinfo.Library{
		Name:      "optifine:OptiFine:1.20.1_HD_U_I6",
		Downloads: &gameinfo.LibraryDownloads{Artifact: &gameinfo.Artifact{Path: "optifine/OptiFine/1.20.1_HD_U_I6/OptiFine-1.20.1_HD_U_I6.jar"}},
	}
	elems, err = Library(l, local, linux, nil)
	require.NoError(t, err)
	assert.Empty(t, elems, "locally produced artifacts are not downloaded")

	osxOnly := gameinfo.Library{
		Name:  "ca.weblite:java-objc-bridge:1.1",
		Rules: gameinfo.Rules{{Action: gameinfo.ActionAllow, OS: &gameinfo.OSRule{Name: "osx"}}},
	}
	elems, err = Library(l, osxOnly, linux, nil)
	require.NoError(t, err)
	assert.Empty(t, elems)

	_, err = Library(l, gameinfo.Library{Name: "broken"}, linux, nil)
	assert.ErrorIs(t, err, gameinfo.ErrConfiguration)
}

func TestVersion(t *testing.T) {
	t.Parallel()

	l := gameinfo.Layout{Root: "/games"}
	flat := &gameinfo.GameInfo{
		ID:  "1.20.1",
		Jar: "1.20.1",
		Downloads: map[string]gameinfo.Artifact{
			gameinfo.ClientDownload: {URL: "https://piston-data.mojang.com/client.jar", SHA1: strings.Repeat("b", 40), Size: 10},
		},
		AssetIndex: &gameinfo.AssetIndex{ID: "5", URL: "https://piston-meta.mojang.com/5.json"},
		Libraries:  []gameinfo.Library{{Name: "com.mojang:brigadier:1.1.8"}},
	}

	elems, err := Version(l, flat, linux, nil)
	require.NoError(t, err)
	require.Len(t, elems, 3)
	assert.Equal(t, l.ClientJarPath("1.20.1"), elems[1].Path)
	assert.Equal(t, l.AssetIndexPath("5"), elems[2].Path)

	flat.Downloads = nil
	_, err = Version(l, flat, linux, nil)
	assert.ErrorIs(t, err, gameinfo.ErrConfiguration)
}

func TestObjects(t *testing.T) {
	t.Parallel()

	l := gameinfo.Layout{Root: t.TempDir()}
	doc := `{"objects":{
		"minecraft/sounds/b.ogg":{"hash":"bbcdef0000000000000000000000000000000000","size":2},
		"minecraft/lang/a.json":{"hash":"abcdef0000000000000000000000000000000000","size":1}
	}}`
	require.NoError(t, os.MkdirAll(filepath.Dir(l.AssetIndexPath("5")), 0o755))
	require.NoError(t, os.WriteFile(l.AssetIndexPath("5"), []byte(doc), 0o644))

	idx, err := LoadAssetIndex(l, "5")
	require.NoError(t, err)
	elems := Objects(l, idx, "")
	require.Len(t, elems, 2)
	assert.Equal(t, DefaultAssetRepository+"ab/abcdef0000000000000000000000000000000000", elems[0].URL)
	assert.Equal(t, l.AssetObjectPath("bbcdef0000000000000000000000000000000000"), elems[1].Path)
	assert.Equal(t, int64(2), elems[1].Size)

	_, err = LoadAssetIndex(l, "missing")
	assert.ErrorIs(t, err, os.ErrNotExist)
}
