// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilnlauncher/kiln/internal/app/launcher"
	"github.com/kilnlauncher/kiln/internal/config"
	"github.com/kilnlauncher/kiln/internal/download"
	"github.com/kilnlauncher/kiln/internal/issue"
	"github.com/kilnlauncher/kiln/pkg/gameinfo"
	"github.com/kilnlauncher/kiln/pkg/platform"
)

const (
	clientURL    = "https://piston-data.test/client.jar"
	brigadierURL = "https://libraries.minecraft.net/com/mojang/brigadier/1.1.8/brigadier-1.1.8.jar"
)

type result struct {
	stdout string
	stderr string
	err    error
}

// run executes the CLI with args against the given fake origin.
func run(t *testing.T, files map[string][]byte, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	fetch := download.FetcherFunc(func(_ context.Context, rawURL string) (io.ReadCloser, error) {
		body, ok := files[rawURL]
		if !ok {
			return nil, &download.StatusError{URL: rawURL, Code: 404, Err: download.ErrNotFound}
		}
		return io.NopCloser(bytes.NewReader(body)), nil
	})
	app := NewApp(Dependencies{
		Stdout: &stdout,
		Stderr: &stderr,
		LauncherOptions: []launcher.Option{
			launcher.WithFetcher(fetch),
			launcher.WithPlatform(platform.Platform{OS: platform.Linux, Arch: "amd64"}),
		},
	})
	root := NewRootCommand(app)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

// gameDir writes version 1.20.1 and a config file, returning both paths
// and the documents the origin must serve.
func gameDir(t *testing.T) (root, cfgPath string, files map[string][]byte) {
	t.Helper()
	root = t.TempDir()
	client := []byte("client-jar")
	sum := sha1.Sum(client)

	g := &gameinfo.GameInfo{
		ID:        "1.20.1",
		Type:      "release",
		MainClass: "net.minecraft.client.main.Main",
		Arguments: &gameinfo.Arguments{
			Game: gameinfo.PlainArguments("--username", "${auth_player_name}", "--gameDir", "${game_directory}"),
			JVM:  gameinfo.PlainArguments("-cp", "${classpath}"),
		},
		Downloads: map[string]gameinfo.Artifact{
			gameinfo.ClientDownload: {URL: clientURL, SHA1: hex.EncodeToString(sum[:])},
		},
		Libraries: []gameinfo.Library{{Name: "com.mojang:brigadier:1.1.8"}},
	}
	require.NoError(t, gameinfo.Save(gameinfo.Layout{Root: root}, g), "save descriptor")

	cfg := config.DefaultConfig()
	cfg.GameDir = root
	cfg.Download.Attempts = 1
	cfg.UI.ColorScheme = config.ColorSchemeDark
	cfgPath = filepath.Join(t.TempDir(), "config.cue")
	require.NoError(t, os.WriteFile(cfgPath, []byte(config.GenerateCUE(cfg)), 0o644), "write config")
	return root, cfgPath, map[string][]byte{clientURL: client, brigadierURL: []byte("brigadier")}
}

func TestFetchCommand(t *testing.T) {
	t.Parallel()

	root, cfgPath, files := gameDir(t)
	res := run(t, files, "fetch", "1.20.1", "--config", cfgPath)
	require.NoError(t, res.err, "stderr: %s", res.stderr)
	assert.Contains(t, res.stdout, "1.20.1: 2 files, 0 assets")
	assert.FileExists(t, gameinfo.Layout{Root: root}.ClientJarPath("1.20.1"))
}

func TestFetchCommandClassifiesFailures(t *testing.T) {
	t.Parallel()

	_, cfgPath, files := gameDir(t)
	delete(files, brigadierURL)
	res := run(t, files, "fetch", "1.20.1", "--config", cfgPath)

	var svcErr *ServiceError
	require.ErrorAs(t, res.err, &svcErr)
	assert.Equal(t, issue.ResourcesIncompleteId, svcErr.IssueID)

	res = run(t, files, "fetch", "1.7.10", "--config", cfgPath)
	require.ErrorAs(t, res.err, &svcErr)
	assert.Equal(t, issue.VersionNotFoundId, svcErr.IssueID)
}

func TestLaunchPrint(t *testing.T) {
	t.Parallel()

	root, cfgPath, files := gameDir(t)
	other := t.TempDir()
	require.NoError(t, os.Rename(filepath.Join(root, "versions"), filepath.Join(other, "versions")))

	// --game-dir wins over game_dir from the file.
	res := run(t, files, "launch", "1.20.1", "--print", "--username", "Steve", "--config", cfgPath, "--game-dir", other)
	require.NoError(t, res.err, "stderr: %s", res.stderr)
	line := strings.TrimSpace(res.stdout)
	assert.True(t, strings.HasPrefix(line, "java "), "command line does not start with java: %q", line)
	for _, want := range []string{"net.minecraft.client.main.Main", "--username Steve", "--gameDir " + other} {
		assert.Contains(t, line, want)
	}
}

func TestInstallRejectsUnknownLoader(t *testing.T) {
	t.Parallel()

	_, cfgPath, files := gameDir(t)
	res := run(t, files, "install", "liteloader", "1.20.1", "1.0", "--config", cfgPath)
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "unknown loader")
}

func TestConfigCommands(t *testing.T) {
	t.Parallel()

	cfgPath := filepath.Join(t.TempDir(), "kiln", "config.cue")

	res := run(t, nil, "config", "path", "--config", cfgPath)
	require.NoError(t, res.err)
	require.Equal(t, cfgPath, strings.TrimSpace(res.stdout))

	res = run(t, nil, "config", "init", "--config", cfgPath)
	require.NoError(t, res.err)
	require.Contains(t, res.stdout, "Created default configuration")
	res = run(t, nil, "config", "init", "--config", cfgPath)
	require.NoError(t, res.err)
	require.Contains(t, res.stdout, "already exists")

	res = run(t, nil, "config", "show", "--format", "toml", "--config", cfgPath)
	require.NoError(t, res.err)
	for _, want := range []string{"[download]", "concurrency = 512", "[launch]"} {
		assert.Contains(t, res.stdout, want)
	}
	assert.Contains(t, res.stderr, cfgPath, "stderr does not name the config file")

	res = run(t, nil, "config", "show", "--config", cfgPath)
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "download: {")

	res = run(t, nil, "config", "show", "--format", "yaml", "--config", cfgPath)
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), `unknown format "yaml"`)
}

func TestConfigShowReportsLoadFailure(t *testing.T) {
	t.Parallel()

	res := run(t, nil, "config", "show", "--config", filepath.Join(t.TempDir(), "missing.cue"))
	var svcErr *ServiceError
	require.ErrorAs(t, res.err, &svcErr)
	assert.Equal(t, issue.ConfigLoadFailedId, svcErr.IssueID)
}
