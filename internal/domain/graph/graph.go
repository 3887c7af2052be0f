// Package graph holds the "parent may contain child" relationship graph between
// component names. A Graph is immutable once built and safe for concurrent reads.
// It is intended to be acyclic but tolerates cycles: every traversal is guarded by
// a visited set and DetectCycles reports them.
package graph

import (
	"sort"
	"strings"
)

// Path search bounds used when PathOptions leaves a field at zero.
const (
	DefaultMaxPaths = 64
	DefaultMaxDepth = 12
)

// Graph is a directed graph over component names.
type Graph struct {
	children map[string][]string // parent -> children, insertion order
	parents  map[string][]string // child -> parents
	nodes    map[string]struct{}
}

// New builds a graph from a parent -> children map. Duplicate children are
// dropped; names that appear only as children become nodes too.
func New(relations map[string][]string) *Graph {
	g := &Graph{
		children: make(map[string][]string, len(relations)),
		parents:  make(map[string][]string),
		nodes:    make(map[string]struct{}, len(relations)),
	}

	// Sorted parents so parent lists are deterministic.
	keys := make([]string, 0, len(relations))
	for p := range relations {
		keys = append(keys, p)
	}
	sort.Strings(keys)

	for _, parent := range keys {
		g.nodes[parent] = struct{}{}
		for _, child := range relations[parent] {
			if child == "" || contains(g.children[parent], child) {
				continue
			}
			g.nodes[child] = struct{}{}
			g.children[parent] = append(g.children[parent], child)
			g.parents[child] = append(g.parents[child], parent)
		}
	}
	return g
}

// Has reports whether name is a node of the graph.
func (g *Graph) Has(name string) bool {
	_, ok := g.nodes[name]
	return ok
}

// Children returns the direct children of name.
func (g *Graph) Children(name string) []string {
	return append([]string(nil), g.children[name]...)
}

// Parents returns the direct parents of name.
func (g *Graph) Parents(name string) []string {
	return append([]string(nil), g.parents[name]...)
}

// Nodes returns every node, sorted.
func (g *Graph) Nodes() []string {
	out := make([]string, 0, len(g.nodes))
	for n := range g.nodes {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Relations returns a copy of the parent -> children map.
func (g *Graph) Relations() map[string][]string {
	out := make(map[string][]string, len(g.children))
	for p, cs := range g.children {
		out[p] = append([]string(nil), cs...)
	}
	return out
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	n := 0
	for _, cs := range g.children {
		n += len(cs)
	}
	return n
}

// Descendants returns every node reachable from name within depth edges, sorted.
// A negative depth means unbounded. The start node is included only when a cycle
// leads back to it.
func (g *Graph) Descendants(name string, depth int) []string {
	return g.bfs(name, depth, g.children)
}

// Ancestors returns every node that can reach name, sorted.
func (g *Graph) Ancestors(name string) []string {
	return g.bfs(name, -1, g.parents)
}

func (g *Graph) bfs(start string, depth int, adj map[string][]string) []string {
	if !g.Has(start) || depth == 0 {
		return nil
	}

	seen := make(map[string]bool)
	frontier := []string{start}
	for level := 0; len(frontier) > 0 && (depth < 0 || level < depth); level++ {
		var next []string
		for _, n := range frontier {
			for _, c := range adj[n] {
				if seen[c] {
					continue
				}
				seen[c] = true
				next = append(next, c)
			}
		}
		frontier = next
	}

	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// CanContain reports whether parent may hold child directly or transitively.
func (g *Graph) CanContain(parent, child string) bool {
	if !g.Has(parent) || !g.Has(child) {
		return false
	}
	seen := map[string]bool{parent: true}
	stack := []string{parent}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, c := range g.children[n] {
			if c == child {
				return true
			}
			if !seen[c] {
				seen[c] = true
				stack = append(stack, c)
			}
		}
	}
	return false
}

// CanContainDirect reports whether parent -> child is an edge.
func (g *Graph) CanContainDirect(parent, child string) bool {
	return contains(g.children[parent], child)
}

// PathOptions bounds AllPaths.
type PathOptions struct {
	MaxPaths int
	MaxDepth int
}

// AllPaths returns simple paths from -> to, each including both ends. Search stops
// after MaxPaths paths; paths longer than MaxDepth edges are not explored.
func (g *Graph) AllPaths(from, to string, opts PathOptions) [][]string {
	if !g.Has(from) || !g.Has(to) {
		return nil
	}
	if opts.MaxPaths <= 0 {
		opts.MaxPaths = DefaultMaxPaths
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}

	var paths [][]string
	onPath := map[string]bool{from: true}
	path := []string{from}

	var dfs func(n string)
	dfs = func(n string) {
		if len(path)-1 >= opts.MaxDepth {
			return
		}
		for _, c := range g.children[n] {
			if len(paths) >= opts.MaxPaths {
				return
			}
			if c == to {
				paths = append(paths, append(append([]string(nil), path...), c))
				continue
			}
			if onPath[c] {
				continue
			}
			onPath[c] = true
			path = append(path, c)
			dfs(c)
			path = path[:len(path)-1]
			onPath[c] = false
		}
	}
	dfs(from)
	return paths
}

// ShortestPath returns the shortest path from -> to (both ends included), or nil.
// Ties resolve to the first child in insertion order.
func (g *Graph) ShortestPath(from, to string) []string {
	if !g.Has(from) || !g.Has(to) {
		return nil
	}
	if from == to {
		return []string{from}
	}
	prev := map[string]string{}
	seen := map[string]bool{from: true}
	queue := []string{from}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, c := range g.children[n] {
			if seen[c] {
				continue
			}
			seen[c] = true
			prev[c] = n
			if c == to {
				path := []string{to}
				for cur := to; cur != from; {
					cur = prev[cur]
					path = append([]string{cur}, path...)
				}
				return path
			}
			queue = append(queue, c)
		}
	}
	return nil
}

// DetectCycles reports one cycle per back edge of a depth-first walk, so every
// cyclic component yields at least one cycle. It does not enumerate every
// elementary cycle: with A->[B C], B->C, C->A only [A B C A] is listed. Each
// cycle starts at its smallest name and repeats it at the end, e.g. [A B A].
func (g *Graph) DetectCycles() [][]string {
	const (
		white = iota
		grey
		black
	)
	color := make(map[string]int, len(g.nodes))
	var stack []string
	found := map[string][]string{}

	var dfs func(n string)
	dfs = func(n string) {
		color[n] = grey
		stack = append(stack, n)
		for _, c := range g.children[n] {
			switch color[c] {
			case white:
				dfs(c)
			case grey:
				// Back edge: the cycle is the stack suffix starting at c.
				for i := len(stack) - 1; i >= 0; i-- {
					if stack[i] == c {
						cyc := canonicalCycle(stack[i:])
						found[strings.Join(cyc, "\x00")] = cyc
						break
					}
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[n] = black
	}

	for _, n := range g.Nodes() {
		if color[n] == white {
			dfs(n)
		}
	}

	keys := make([]string, 0, len(found))
	for k := range found {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([][]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, found[k])
	}
	return out
}

// HasCycle reports whether any cycle exists.
func (g *Graph) HasCycle() bool {
	return len(g.DetectCycles()) > 0
}

func canonicalCycle(members []string) []string {
	minIdx := 0
	for i, m := range members {
		if m < members[minIdx] {
			minIdx = i
		}
	}
	out := make([]string, 0, len(members)+1)
	out = append(out, members[minIdx:]...)
	out = append(out, members[:minIdx]...)
	return append(out, out[0])
}

// ExtractSubgraph returns the graph restricted to roots and everything reachable
// from them. Unknown roots are ignored.
func (g *Graph) ExtractSubgraph(roots []string) *Graph {
	keep := make(map[string]bool)
	for _, r := range roots {
		if !g.Has(r) {
			continue
		}
		keep[r] = true
		for _, d := range g.Descendants(r, -1) {
			keep[d] = true
		}
	}

	relations := make(map[string][]string, len(keep))
	for n := range keep {
		relations[n] = nil
		for _, c := range g.children[n] {
			if keep[c] {
				relations[n] = append(relations[n], c)
			}
		}
	}
	return New(relations)
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
