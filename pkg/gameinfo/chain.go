// SPDX-License-Identifier: MPL-2.0

package gameinfo

import (
	"slices"

	"github.com/kilnlauncher/kiln/internal/dag"
)

// Chain returns the inheritance chain of g ordered root-first, ending with g.
// A descriptor whose InheritsFrom is set but whose Parent is missing or has
// a different ID breaks the chain; a Parent loop is reported with the
// underlying *dag.CycleError.
func Chain(g *GameInfo) ([]*GameInfo, error) {
	if g == nil {
		return nil, NewConfigurationError("<nil>", "no version descriptor", ErrBrokenChain)
	}

	graph := dag.New()
	byID := map[string]*GameInfo{}

	graph.AddNode(g.ID)
	byID[g.ID] = g
	for cur := g; cur.InheritsFrom != "" || cur.Parent != nil; cur = cur.Parent {
		if cur.Parent == nil {
			return nil, NewConfigurationError(cur.ID, "parent version "+cur.InheritsFrom+" is not available", ErrBrokenChain)
		}
		if cur.InheritsFrom != "" && cur.Parent.ID != cur.InheritsFrom {
			return nil, NewConfigurationError(cur.ID, "parent is "+cur.Parent.ID+", expected "+cur.InheritsFrom, ErrBrokenChain)
		}
		graph.AddEdge(cur.Parent.ID, cur.ID)
		if byID[cur.Parent.ID] != nil {
			break
		}
		byID[cur.Parent.ID] = cur.Parent
	}

	order, err := graph.TopologicalSort()
	if err != nil {
		return nil, NewConfigurationError(g.ID, "inheritance cycle", err)
	}

	chain := make([]*GameInfo, 0, len(order))
	for _, id := range order {
		chain = append(chain, byID[id])
	}
	return chain, nil
}

// Flatten merges the inheritance chain of g into a single descriptor.
// Scalar fields come from the nearest descriptor that sets them; argument
// lists are concatenated root-first; libraries are ordered child-first and a
// child library replaces any ancestor library with the same Key.
// The result has no Parent and no InheritsFrom.
func Flatten(g *GameInfo) (*GameInfo, error) {
	chain, err := Chain(g)
	if err != nil {
		return nil, err
	}

	out := &GameInfo{ID: g.ID, Type: g.Type, Time: g.Time, ReleaseTime: g.ReleaseTime}
	var game, jvm []Argument
	hasStructured := false
	for _, cur := range chain {
		if cur.MainClass != "" {
			out.MainClass = cur.MainClass
		}
		if cur.MinecraftArguments != "" {
			out.MinecraftArguments = cur.MinecraftArguments
		}
		if cur.Arguments != nil {
			hasStructured = true
			game = append(game, cur.Arguments.Game...)
			jvm = append(jvm, cur.Arguments.JVM...)
		}
		if cur.AssetIndex != nil {
			ai := *cur.AssetIndex
			out.AssetIndex = &ai
		}
		if cur.Assets != "" {
			out.Assets = cur.Assets
		}
		if cur.JavaVersion != nil {
			jv := *cur.JavaVersion
			out.JavaVersion = &jv
		}
		if cur.Jar != "" {
			out.Jar = cur.Jar
		}
		if out.Type == "" {
			out.Type = cur.Type
		}
		for k, v := range cur.Downloads {
			if out.Downloads == nil {
				out.Downloads = map[string]Artifact{}
			}
			out.Downloads[k] = v
		}
	}
	if hasStructured {
		out.Arguments = &Arguments{Game: game, JVM: jvm}
	}
	if out.Jar == "" {
		out.Jar = chain[0].ID
	}

	seenKeys := map[string]bool{}
	for _, cur := range slices.Backward(chain) {
		for _, lib := range cur.Libraries {
			key := lib.Key()
			if seenKeys[key] {
				continue
			}
			seenKeys[key] = true
			out.Libraries = append(out.Libraries, lib)
		}
	}

	return out, nil
}
