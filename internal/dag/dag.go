// SPDX-License-Identifier: MPL-2.0

// Package dag orders nodes of a directed graph and reports cycles.
// Version inheritance chains are checked with it before any descriptor is
// flattened, so a loop of inheritsFrom references surfaces as a CycleError
// instead of an endless walk.
package dag

import (
	"fmt"
	"strings"
)

type (
	// CycleError lists the nodes that could not be ordered because they
	// sit on, or behind, a cycle.
	CycleError struct {
		Cycle []string
	}

	// Graph is a directed graph keyed by string IDs. An edge from A to B
	// means A precedes B (A is B's parent).
	Graph struct {
		edges map[string][]string
		order []string
		known map[string]bool
	}
)

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle detected: %s", strings.Join(e.Cycle, " -> "))
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		edges: make(map[string][]string),
		known: make(map[string]bool),
	}
}

// AddNode registers id. Adding a known node is a no-op.
func (g *Graph) AddNode(id string) {
	if g.known[id] {
		return
	}
	g.known[id] = true
	g.order = append(g.order, id)
}

// HasNode reports whether id was added.
func (g *Graph) HasNode(id string) bool {
	return g.known[id]
}

// AddEdge records that from precedes to, adding either node if needed.
func (g *Graph) AddEdge(from, to string) {
	g.AddNode(from)
	g.AddNode(to)
	g.edges[from] = append(g.edges[from], to)
}

// TopologicalSort returns the nodes with every node after all of its
// predecessors (Kahn's algorithm). Ties keep insertion order, so the result
// is deterministic. Returns *CycleError when no such order exists.
func (g *Graph) TopologicalSort() ([]string, error) {
	if len(g.order) == 0 {
		return nil, nil
	}

	indegree := make(map[string]int, len(g.order))
	for _, targets := range g.edges {
		for _, to := range targets {
			indegree[to]++
		}
	}

	var ready []string
	for _, id := range g.order {
		if indegree[id] == 0 {
			ready = append(ready, id)
		}
	}

	sorted := make([]string, 0, len(g.order))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		sorted = append(sorted, id)
		for _, to := range g.edges[id] {
			indegree[to]--
			if indegree[to] == 0 {
				ready = append(ready, to)
			}
		}
	}

	if len(sorted) < len(g.order) {
		var stuck []string
		for _, id := range g.order {
			if indegree[id] > 0 {
				stuck = append(stuck, id)
			}
		}
		return nil, &CycleError{Cycle: stuck}
	}
	return sorted, nil
}
