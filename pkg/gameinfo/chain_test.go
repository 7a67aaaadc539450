// SPDX-License-Identifier: MPL-2.0

package gameinfo

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilnlauncher/kiln/internal/dag"
)

func vanilla() *GameInfo {
	return &GameInfo{
		ID:        "1.20.1",
		Type:      "release",
		MainClass: "net.minecraft.client.main.Main",
		Arguments: &Arguments{
			Game: PlainArguments("--username", "${auth_player_name}"),
			JVM:  PlainArguments("-cp", "${classpath}"),
		},
		AssetIndex: &AssetIndex{ID: "5"},
		Downloads:  map[string]Artifact{ClientDownload: {URL: "https://example.invalid/client.jar", SHA1: "aa"}},
		Libraries: []Library{
			{Name: "org.ow2.asm:asm:9.3"},
			{Name: "com.mojang:brigadier:1.1.8"},
		},
	}
}

func fabric(parent *GameInfo) *GameInfo {
	return &GameInfo{
		ID:           "fabric-loader-0.15.11-1.20.1",
		InheritsFrom: parent.ID,
		MainClass:    "net.fabricmc.loader.impl.launch.knot.KnotClient",
		Arguments: &Arguments{
			JVM: PlainArguments("-DFabricMcEmu= net.minecraft.client.main.Main "),
		},
		Libraries: []Library{
			{Name: "org.ow2.asm:asm:9.6"},
			{Name: "net.fabricmc:fabric-loader:0.15.11"},
		},
		Parent: parent,
	}
}

func TestChainRootFirst(t *testing.T) {
	t.Parallel()

	child := fabric(vanilla())
	chain, err := Chain(child)
	require.NoError(t, err)
	require.Len(t, chain, 2)
	assert.Equal(t, "1.20.1", chain[0].ID)
	assert.Equal(t, child.ID, chain[1].ID)
	assert.Same(t, child.Parent, child.Root())
}

func TestFlattenMergesChain(t *testing.T) {
	t.Parallel()

	flat, err := Flatten(fabric(vanilla()))
	require.NoError(t, err)

	assert.Equal(t, "fabric-loader-0.15.11-1.20.1", flat.ID)
	assert.Equal(t, "net.fabricmc.loader.impl.launch.knot.KnotClient", flat.MainClass)
	assert.Equal(t, "release", flat.Type)
	assert.Equal(t, "1.20.1", flat.Jar)
	assert.Equal(t, "5", flat.AssetsID())
	assert.Nil(t, flat.Parent)
	assert.Empty(t, flat.InheritsFrom)

	require.NotNil(t, flat.Arguments)
	assert.Len(t, flat.Arguments.Game, 2)
	require.Len(t, flat.Arguments.JVM, 3)
	assert.Equal(t, "-cp", flat.Arguments.JVM[0].Values[0])

	names := make([]string, 0, len(flat.Libraries))
	for _, l := range flat.Libraries {
		names = append(names, l.Name)
	}
	assert.Equal(t, []string{
		"org.ow2.asm:asm:9.6",
		"net.fabricmc:fabric-loader:0.15.11",
		"com.mojang:brigadier:1.1.8",
	}, names)

	_, ok := flat.Client()
	assert.True(t, ok)
}

func TestFlattenIsDeterministic(t *testing.T) {
	t.Parallel()

	a, err := Flatten(fabric(vanilla()))
	require.NoError(t, err)
	b, err := Flatten(fabric(vanilla()))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestChainBroken(t *testing.T) {
	t.Parallel()

	orphan := &GameInfo{ID: "forge", InheritsFrom: "1.20.1"}
	_, err := Chain(orphan)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBrokenChain)
	assert.ErrorIs(t, err, ErrConfiguration)

	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "forge", cfgErr.Subject)

	wrongParent := &GameInfo{ID: "forge", InheritsFrom: "1.20.1", Parent: &GameInfo{ID: "1.19.4"}}
	_, err = Chain(wrongParent)
	assert.ErrorIs(t, err, ErrBrokenChain)

	_, err = Chain(nil)
	assert.ErrorIs(t, err, ErrBrokenChain)
}

func TestChainCycle(t *testing.T) {
	t.Parallel()

	a := &GameInfo{ID: "a", InheritsFrom: "b"}
	b := &GameInfo{ID: "b", InheritsFrom: "a", Parent: a}
	a.Parent = b

	_, err := Chain(a)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfiguration)

	var cycle *dag.CycleError
	require.ErrorAs(t, err, &cycle)
	assert.ElementsMatch(t, []string{"a", "b"}, cycle.Cycle)
}
