// SPDX-License-Identifier: MPL-2.0

package gameinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilnlauncher/kiln/pkg/platform"
)

func TestParseCoordinate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		in       string
		wantPath string
		wantKey  string
	}{
		{
			name:     "plain jar",
			in:       "net.fabricmc:fabric-loader:0.15.11",
			wantPath: "net/fabricmc/fabric-loader/0.15.11/fabric-loader-0.15.11.jar",
			wantKey:  "net.fabricmc:fabric-loader",
		},
		{
			name:     "classifier",
			in:       "org.lwjgl:lwjgl:3.3.1:natives-linux",
			wantPath: "org/lwjgl/lwjgl/3.3.1/lwjgl-3.3.1-natives-linux.jar",
			wantKey:  "org.lwjgl:lwjgl:natives-linux",
		},
		{
			name:     "extension",
			in:       "de.oceanlabs.mcp:mcp_config:1.20.1-20230612.114412@zip",
			wantPath: "de/oceanlabs/mcp/mcp_config/1.20.1-20230612.114412/mcp_config-1.20.1-20230612.114412.zip",
			wantKey:  "de.oceanlabs.mcp:mcp_config",
		},
		{
			name:     "classifier and extension",
			in:       "net.minecraft:client:1.20.1-20230612.114412:mappings@txt",
			wantPath: "net/minecraft/client/1.20.1-20230612.114412/client-1.20.1-20230612.114412-mappings.txt",
			wantKey:  "net.minecraft:client:mappings",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c, err := ParseCoordinate(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPath, c.Path())
			assert.Equal(t, tt.wantKey, c.Key())
			assert.Equal(t, tt.in, c.String())
		})
	}
}

func TestParseCoordinateRejectsMalformed(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "a:b", "a::c", "a:b:c:d:e"} {
		_, err := ParseCoordinate(in)
		assert.ErrorIs(t, err, ErrInvalidCoordinate, in)
	}
}

func TestLibraryArtifact(t *testing.T) {
	t.Parallel()

	t.Run("maven url", func(t *testing.T) {
		t.Parallel()
		lib := Library{Name: "net.fabricmc:intermediary:1.20.1", URL: "https://maven.fabricmc.net", SHA1: "abc"}
		a, ok, err := lib.Artifact()
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "net/fabricmc/intermediary/1.20.1/intermediary-1.20.1.jar", a.Path)
		assert.Equal(t, "https://maven.fabricmc.net/net/fabricmc/intermediary/1.20.1/intermediary-1.20.1.jar", a.URL)
		assert.Equal(t, "abc", a.SHA1)
	})

	t.Run("default repository", func(t *testing.T) {
		t.Parallel()
		a, ok, err := Library{Name: "com.mojang:authlib:4.0.43"}.Artifact()
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, DefaultLibraryRepository+"com/mojang/authlib/4.0.43/authlib-4.0.43.jar", a.URL)
	})

	t.Run("natives only", func(t *testing.T) {
		t.Parallel()
		lib := Library{
			Name:    "org.lwjgl.lwjgl:lwjgl-platform:2.9.4",
			Natives: map[string]string{"linux": "natives-linux", "windows": "natives-windows-${arch}"},
			Downloads: &LibraryDownloads{Classifiers: map[string]Artifact{
				"natives-linux": {Path: "org/lwjgl/lwjgl/lwjgl-platform/2.9.4/lwjgl-platform-2.9.4-natives-linux.jar", SHA1: "dd"},
			}},
		}
		_, ok, err := lib.Artifact()
		require.NoError(t, err)
		assert.False(t, ok)

		linux := platform.Platform{OS: platform.Linux, Arch: "amd64"}
		a, ok, err := lib.NativeArtifact(linux)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "dd", a.SHA1)

		win := platform.Platform{OS: platform.Windows, Arch: "386"}
		assert.Equal(t, "natives-windows-32", lib.NativeClassifier(win))
		a, ok, err = lib.NativeArtifact(win)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "org/lwjgl/lwjgl/lwjgl-platform/2.9.4/lwjgl-platform-2.9.4-natives-windows-32.jar", a.Path)

		_, ok, err = lib.NativeArtifact(platform.Platform{OS: platform.Darwin, Arch: "arm64"})
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("bad name", func(t *testing.T) {
		t.Parallel()
		_, _, err := Library{Name: "broken"}.Artifact()
		assert.ErrorIs(t, err, ErrConfiguration)
		assert.ErrorIs(t, err, ErrInvalidCoordinate)
	})
}
