// Package callgraph builds a name-based call graph over a jsast.ParseResult
// and computes a topological depth for each function, used by the
// scheduler to decide rename order.
package callgraph

import (
	"sort"

	"github.com/shepherdjerred/jsdeminify/internal/jsast"
)

// Graph is a name-keyed call graph: edges connect a caller's Function ID
// to the ID of whichever function first declared the callee's name.
//
// Edges are NOT binding-resolved — two functions named "f" anywhere in the
// source collapse to the same name-index entry, with first declaration
// (in traversal order) winning. This is intentional: minified source
// frequently shadows and reuses short names, and coarse name-based
// linking is the one worth doing quickly rather than a full
// scope-resolved call graph (see DESIGN.md Open Question (a)).
type Graph struct {
	byID map[string]*jsast.Function

	// nameIndex maps a declared function name to the ID of its first
	// (traversal-order) declaration — the first-declaration-wins name
	// resolution used both to build edges and to answer ResolvesName.
	nameIndex map[string]string

	// callees maps a function ID to the IDs of functions it calls.
	callees map[string][]string
	// callers is the reverse index of callees.
	callers map[string][]string

	// depth is each function's topological depth: 0 for functions that
	// call nothing resolvable, 1 + max(depth of callees) otherwise. Cycle
	// back-edges contribute 0 to the max rather than causing infinite
	// recursion.
	depth map[string]int
}

// Build constructs a Graph from a parsed function inventory.
func Build(result *jsast.ParseResult) *Graph {
	g := &Graph{
		byID:      make(map[string]*jsast.Function, len(result.Functions)),
		nameIndex: make(map[string]string, len(result.Functions)),
		callees:   make(map[string][]string, len(result.Functions)),
		callers:   make(map[string][]string, len(result.Functions)),
		depth:     make(map[string]int, len(result.Functions)),
	}

	for _, fn := range result.Functions {
		g.byID[fn.ID] = fn
		if fn.Name != "" {
			if _, exists := g.nameIndex[fn.Name]; !exists {
				g.nameIndex[fn.Name] = fn.ID
			}
		}
	}

	for _, fn := range result.Functions {
		seen := make(map[string]struct{})
		for _, name := range fn.Callees {
			calleeID, ok := g.nameIndex[name]
			if !ok || calleeID == fn.ID {
				continue
			}
			if _, dup := seen[calleeID]; dup {
				continue
			}
			seen[calleeID] = struct{}{}
			g.callees[fn.ID] = append(g.callees[fn.ID], calleeID)
			g.callers[calleeID] = append(g.callers[calleeID], fn.ID)
		}
	}

	g.computeDepths(result)
	return g
}

// computeDepths runs a memoized DFS per function, treating any node
// revisited while still on the current path (a cycle) as depth 0 rather
// than recursing further.
func (g *Graph) computeDepths(result *jsast.ParseResult) {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(result.Functions))

	var visit func(id string) int
	visit = func(id string) int {
		switch state[id] {
		case done:
			return g.depth[id]
		case visiting:
			// Cycle back-edge: contributes 0, not infinite recursion.
			return 0
		}
		state[id] = visiting

		maxChild := -1
		for _, calleeID := range g.callees[id] {
			if d := visit(calleeID); d > maxChild {
				maxChild = d
			}
		}

		d := maxChild + 1
		g.depth[id] = d
		state[id] = done
		return d
	}

	for _, fn := range result.Functions {
		visit(fn.ID)
	}
}

// Callees returns the IDs called by fn, in first-seen order.
func (g *Graph) Callees(id string) []string {
	return append([]string(nil), g.callees[id]...)
}

// Callers returns the IDs that call fn, in first-seen order.
func (g *Graph) Callers(id string) []string {
	return append([]string(nil), g.callers[id]...)
}

// Depth returns id's topological depth: leaves (no resolvable callees,
// or only self-calls) are depth 0. A call that closes a cycle contributes
// 0 to the max, so a function whose only callee is such a back-edge has
// depth 1.
func (g *Graph) Depth(id string) int {
	return g.depth[id]
}

// IDs returns every function ID in the graph, sorted by (depth ascending,
// ID ascending) — the scheduler's natural processing order, since renaming
// leaves before their callers lets call-site advisories flow upward.
func (g *Graph) IDs() []string {
	ids := make([]string, 0, len(g.byID))
	for id := range g.byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if g.depth[ids[i]] != g.depth[ids[j]] {
			return g.depth[ids[i]] < g.depth[ids[j]]
		}
		return ids[i] < ids[j]
	})
	return ids
}

// Function looks up a function by ID.
func (g *Graph) Function(id string) (*jsast.Function, bool) {
	fn, ok := g.byID[id]
	return fn, ok
}

// ResolvesName reports whether name matches any function's declared name
// in this graph (i.e. is not an external/built-in reference), and if so,
// which function ID it resolves to (first-declaration-wins).
func (g *Graph) ResolvesName(name string) (string, bool) {
	id, ok := g.nameIndex[name]
	return id, ok
}
