// SPDX-License-Identifier: MPL-2.0

package launcher

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilnlauncher/kiln/internal/config"
	"github.com/kilnlauncher/kiln/internal/download"
	"github.com/kilnlauncher/kiln/internal/install"
	"github.com/kilnlauncher/kiln/internal/launch"
	"github.com/kilnlauncher/kiln/internal/testutil"
	"github.com/kilnlauncher/kiln/pkg/gameinfo"
	"github.com/kilnlauncher/kiln/pkg/platform"
	"github.com/kilnlauncher/kiln/pkg/types"
)

const (
	assetRepo  = "https://assets.test/"
	fabricMeta = "https://fabric.test"
	brigadier  = "https://libraries.minecraft.net/com/mojang/brigadier/1.1.8/brigadier-1.1.8.jar"
	lwjglPath  = "org/lwjgl/lwjgl/lwjgl-platform/2.9.4/lwjgl-platform-2.9.4-natives-linux.jar"
	indexURL   = "https://piston-meta.test/indexes/5.json"
	clientURL  = "https://piston-data.test/client.jar"
	waitPeriod = 30 * time.Second
)

var linux = platform.Platform{OS: platform.Linux, Arch: "amd64"}

// TestHelperProcess stands in for the game; see helperSpec.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	args := os.Args
	for i, a := range args {
		if a == "--" {
			args = args[i+1:]
			break
		}
	}
	switch args[0] {
	case "exit0":
		fmt.Println("Setting user: Steve")
		os.Exit(0)
	case "exit3":
		os.Exit(3)
	case "crash":
		fmt.Println("Loading world")
		fmt.Println("KILN-TEST-CRASH: chunk 12,4 is corrupt")
		os.Exit(1)
	case "hang":
		time.Sleep(waitPeriod)
		os.Exit(0)
	}
	os.Exit(2)
}

// origin serves fixed documents by URL and counts requests.
type origin struct {
	mu    sync.Mutex
	files map[string][]byte
	hits  map[string]int
}

func (o *origin) Fetch(_ context.Context, rawURL string) (io.ReadCloser, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.hits[rawURL]++
	body, ok := o.files[rawURL]
	if !ok {
		return nil, &download.StatusError{URL: rawURL, Code: 404, Err: download.ErrNotFound}
	}
	return io.NopCloser(bytes.NewReader(body)), nil
}

func (o *origin) remove(rawURL string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.files, rawURL)
}

type fixture struct {
	root   string
	cfg    *config.Config
	origin *origin
}

func sha1Hex(data []byte) string {
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])
}

func nativesJar(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range map[string]string{"liblwjgl64.so": "lwjgl", "META-INF/MANIFEST.MF": "Manifest-Version: 1.0\n"} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()

	client := []byte("client-jar")
	icon := []byte("icon")
	index := fmt.Sprintf(`{"objects": {"icons/icon_16x16.png": {"hash": %q, "size": %d}}}`, sha1Hex(icon), len(icon))
	o := &origin{
		hits: map[string]int{},
		files: map[string][]byte{
			clientURL: client,
			indexURL:  []byte(index),
			brigadier: []byte("brigadier"),
			"https://libraries.minecraft.net/" + lwjglPath:        nativesJar(t),
			assetRepo + sha1Hex(icon)[:2] + "/" + sha1Hex(icon): icon,
		},
	}

	g := &gameinfo.GameInfo{
		ID:        "1.20.1",
		Type:      "release",
		MainClass: "net.minecraft.client.main.Main",
		Arguments: &gameinfo.Arguments{
			Game: gameinfo.PlainArguments("--username", "${auth_player_name}", "--assetIndex", "${assets_index_name}"),
			JVM:  gameinfo.PlainArguments("-Djava.library.path=${natives_directory}", "-cp", "${classpath}"),
		},
		AssetIndex: &gameinfo.AssetIndex{ID: "5", URL: indexURL, SHA1: sha1Hex([]byte(index))},
		Downloads: map[string]gameinfo.Artifact{
			gameinfo.ClientDownload: {URL: clientURL, SHA1: sha1Hex(client), Size: int64(len(client))},
		},
		Libraries: []gameinfo.Library{
			{Name: "com.mojang:brigadier:1.1.8"},
			{
				Name:    "org.lwjgl.lwjgl:lwjgl-platform:2.9.4",
				Natives: map[string]string{"linux": "natives-linux"},
				Extract: &gameinfo.ExtractRules{Exclude: []string{"META-INF/"}},
				Downloads: &gameinfo.LibraryDownloads{Classifiers: map[string]gameinfo.Artifact{
					"natives-linux": {Path: lwjglPath, URL: "https://libraries.minecraft.net/" + lwjglPath},
				}},
			},
		},
	}
	require.NoError(t, gameinfo.Save(gameinfo.Layout{Root: root}, g))

	cfg := config.DefaultConfig()
	cfg.GameDir = root
	cfg.Download.Attempts = 1
	cfg.Repositories.Assets = assetRepo
	cfg.Repositories.FabricMeta = fabricMeta
	cfg.Java.MinMemoryMB = 512
	cfg.Java.MaxMemoryMB = 2048
	cfg.Launch.CrashSignatures = []config.CrashSignature{{Name: "kiln-test", Pattern: `^KILN-TEST-CRASH:`}}
	return &fixture{root: root, cfg: cfg, origin: o}
}

func (f *fixture) launcher(t *testing.T, opts ...Option) *Launcher {
	t.Helper()
	opts = append([]Option{WithFetcher(f.origin), WithPlatform(linux)}, opts...)
	l, err := New(context.Background(), f.cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, l.Close()) })
	return l
}

func TestPrepareBuildsPlan(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	var mu sync.Mutex
	var settled int
	l := f.launcher(t, WithDownloadProgress(func(download.Progress) {
		mu.Lock()
		settled++
		mu.Unlock()
	}))
	layout := l.Layout()

	plan, err := l.Prepare(context.Background(), "1.20.1", gameinfo.OfflineAccount("Steve"))
	require.NoError(t, err)

	assert.Equal(t, "1.20.1", plan.Version.ID)
	assert.Equal(t, "java", plan.Spec.Java)
	assert.Equal(t, f.root, plan.Spec.Dir)
	assert.Equal(t, []string{layout.ClientJarPath("1.20.1")}, plan.Spec.RequiredFiles)

	args := plan.Spec.Args
	require.NotEmpty(t, args)
	assert.Equal(t, "-Xms512m", args[0])
	assert.Equal(t, "-Xmx2048m", args[1])
	assert.Contains(t, args, "net.minecraft.client.main.Main")
	assert.Contains(t, args, "-Djava.library.path="+layout.NativesDir("1.20.1"))
	assert.Equal(t, []string{"--username", "Steve", "--assetIndex", "5"}, args[len(args)-4:])

	assert.FileExists(t, layout.ClientJarPath("1.20.1"))
	assert.FileExists(t, layout.LibraryPath("com/mojang/brigadier/1.1.8/brigadier-1.1.8.jar"))
	assert.FileExists(t, layout.AssetIndexPath("5"))
	assert.FileExists(t, layout.AssetObjectPath(sha1Hex([]byte("icon"))))

	require.NotNil(t, plan.Natives)
	assert.Equal(t, 1, plan.Natives.Extracted)
	assert.FileExists(t, filepath.Join(layout.NativesDir("1.20.1"), "liblwjgl64.so"))
	assert.NoDirExists(t, filepath.Join(layout.NativesDir("1.20.1"), "META-INF"))

	mu.Lock()
	assert.Equal(t, 5, settled, "four version files plus one asset object")
	mu.Unlock()
}

func TestSyncIsIdempotent(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	l := f.launcher(t)

	rep, err := l.Sync(context.Background(), "1.20.1")
	require.NoError(t, err)
	assert.Equal(t, 4, rep.Elements)
	assert.Equal(t, 1, rep.Assets)

	_, err = l.Sync(context.Background(), "1.20.1")
	require.NoError(t, err)
	assert.Equal(t, 1, f.origin.hits[clientURL], "verified files are not fetched again")
}

func TestPrepareAbortsOnIncompleteResources(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.origin.remove(brigadier)
	l := f.launcher(t)

	plan, err := l.Prepare(context.Background(), "1.20.1", gameinfo.OfflineAccount("Steve"))
	require.Error(t, err)
	assert.Nil(t, plan)

	var inc *download.IncompleteResourcesError
	require.ErrorAs(t, err, &inc)
	assert.Equal(t, 1, inc.Count())
	assert.Equal(t, download.KindUnavailable, inc.Failed[0].Kind)
	assert.NoDirExists(t, l.Layout().NativesDir("1.20.1"), "natives are not extracted for an incomplete version")
}

func TestPrepareUnknownVersion(t *testing.T) {
	t.Parallel()

	l := newFixture(t).launcher(t)
	_, err := l.Prepare(context.Background(), "1.7.10", gameinfo.OfflineAccount("Steve"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestMirrorServesBeforeOrigin(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	mirrorDir := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(mirrorDir, "com", "mojang", "brigadier", "1.1.8", "brigadier-1.1.8.jar"), []byte("mirrored"))
	f.origin.remove(brigadier)
	f.cfg.Mirrors = []config.Mirror{{Prefix: "https://libraries.minecraft.net/", URL: "file://" + filepath.ToSlash(mirrorDir)}}

	l := f.launcher(t)
	_, err := l.Sync(context.Background(), "1.20.1")
	require.NoError(t, err)

	data, err := os.ReadFile(l.Layout().LibraryPath("com/mojang/brigadier/1.1.8/brigadier-1.1.8.jar"))
	require.NoError(t, err)
	assert.Equal(t, "mirrored", string(data))
	assert.Equal(t, 1, f.origin.hits["https://libraries.minecraft.net/"+lwjglPath], "mirror misses fall back to origin")
}

func TestNewRejectsBadConfiguration(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.cfg.Launch.CrashSignatures = []config.CrashSignature{{Name: "broken", Pattern: "("}}
	_, err := New(context.Background(), f.cfg, WithFetcher(f.origin))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "crash_signatures")

	f = newFixture(t)
	f.cfg.Mirrors = []config.Mirror{{Prefix: "https://libraries.minecraft.net/", URL: "nosuchscheme://bucket"}}
	_, err = New(context.Background(), f.cfg, WithFetcher(f.origin))
	require.Error(t, err)
}

func fabricProfile() string {
	return `{
		"id": "fabric-loader-0.15.11-1.20.1",
		"inheritsFrom": "1.20.1",
		"type": "release",
		"mainClass": "net.fabricmc.loader.impl.launch.knot.KnotClient",
		"libraries": [
			{"name": "net.fabricmc:fabric-loader:0.15.11", "url": "https://maven.fabricmc.net/"}
		]
	}`
}

func TestInstallThenPrepare(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.origin.files[fabricMeta+"/v2/versions/loader/1.20.1/0.15.11/profile/json"] = []byte(fabricProfile())
	f.origin.files["https://maven.fabricmc.net/net/fabricmc/fabric-loader/0.15.11/fabric-loader-0.15.11.jar"] = []byte("loader")
	l := f.launcher(t)

	var events []install.Progress
	g, err := l.Install(context.Background(), install.KindFabric, "1.20.1", "0.15.11", func(p install.Progress) {
		events = append(events, p)
	})
	require.NoError(t, err)
	assert.Equal(t, "fabric-loader-0.15.11-1.20.1", g.ID)
	require.NotEmpty(t, events)
	assert.InDelta(t, 1.0, events[len(events)-1].Fraction, 1e-9)

	plan, err := l.Prepare(context.Background(), g.ID, gameinfo.OfflineAccount("Steve"))
	require.NoError(t, err)
	assert.Contains(t, plan.Spec.Args, "net.fabricmc.loader.impl.launch.knot.KnotClient")
	assert.Equal(t, []string{l.Layout().ClientJarPath("1.20.1")}, plan.Spec.RequiredFiles)
}

func TestInstallMissingParent(t *testing.T) {
	t.Parallel()

	l := newFixture(t).launcher(t)
	_, err := l.Install(context.Background(), install.KindFabric, "1.12.2", "0.15.11", nil)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestRepositoryFollowsKind(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.cfg.Repositories = config.RepositoriesConfig{
		FabricMeta: "https://fabric", QuiltMeta: "https://quilt", Forge: "https://forge",
		NeoForge: "https://neoforge", OptiFine: "https://optifine",
	}
	l := f.launcher(t)
	for kind, want := range map[install.Kind]string{
		install.KindFabric:   "https://fabric",
		install.KindQuilt:    "https://quilt",
		install.KindForge:    "https://forge",
		install.KindNeoForge: "https://neoforge",
		install.KindOptiFine: "https://optifine",
		install.KindUnknown:  "",
	} {
		assert.Equal(t, want, l.repository(kind), kind.String())
	}
}

// helperSpec replaces the java command line of plan with the test binary.
func helperSpec(t *testing.T, plan *Plan, mode string) launch.Spec {
	t.Helper()
	exe, err := os.Executable()
	require.NoError(t, err)
	spec := plan.Spec
	spec.Java = exe
	spec.Args = []string{"-test.run=^TestHelperProcess$", "--", mode}
	spec.Env = []string{"GO_WANT_HELPER_PROCESS=1"}
	return spec
}

func TestLaunchAndWait(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	l := f.launcher(t)
	plan, err := l.Prepare(context.Background(), "1.20.1", gameinfo.OfflineAccount("Steve"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), waitPeriod)
	defer cancel()

	tests := []struct {
		mode      string
		wantCode  types.ExitCode
		wantCrash string
	}{
		{mode: "exit0", wantCode: 0},
		{mode: "exit3", wantCode: 3},
		{mode: "crash", wantCode: 1, wantCrash: "kiln-test"},
	}
	for _, tt := range tests {
		s, err := l.Launch(ctx, helperSpec(t, plan, tt.mode))
		require.NoError(t, err, tt.mode)

		code, err := l.Wait(ctx, s)
		assert.Equal(t, tt.wantCode, code, tt.mode)
		if tt.wantCrash == "" {
			require.NoError(t, err, tt.mode)
			assert.Equal(t, launch.StateExited, s.State())
			continue
		}
		require.ErrorIs(t, err, ErrGameCrashed, tt.mode)
		var crashed *CrashedError
		require.ErrorAs(t, err, &crashed)
		assert.Equal(t, tt.wantCrash, crashed.Signature)
		assert.Contains(t, crashed.Line, "chunk 12,4")
		assert.Equal(t, launch.StateCrashed, s.State())
	}
}

func TestLaunchPreflightFault(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	l := f.launcher(t)
	plan, err := l.Prepare(context.Background(), "1.20.1", gameinfo.OfflineAccount("Steve"))
	require.NoError(t, err)
	require.NoError(t, os.Remove(plan.Spec.RequiredFiles[0]))

	_, err = l.Launch(context.Background(), helperSpec(t, plan, "exit0"))
	require.ErrorIs(t, err, launch.ErrMissingFile)

	s := l.Controller().Session()
	require.NotNil(t, s)
	_, err = l.Wait(context.Background(), s)
	require.ErrorIs(t, err, launch.ErrMissingFile)
}

func TestWaitHonorsContext(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	l := f.launcher(t)
	plan, err := l.Prepare(context.Background(), "1.20.1", gameinfo.OfflineAccount("Steve"))
	require.NoError(t, err)

	exe, err := os.Executable()
	require.NoError(t, err)
	spec := plan.Spec
	spec.Java = exe
	spec.Args = []string{"-test.run=^TestHelperProcess$", "--", "hang"}
	spec.Env = []string{"GO_WANT_HELPER_PROCESS=1"}

	s, err := l.Launch(context.Background(), spec)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.Wait(ctx, s)
	require.ErrorIs(t, err, context.Canceled)
}
