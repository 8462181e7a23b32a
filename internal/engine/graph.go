// internal/engine/graph.go
//
// ROLE: Include graph over a compilation unit's files.
//
// What lives here
//   • Root registration (root file + ordered include search paths).
//   • Forward/reverse include edges discovered by a depth-first walk over
//     `include "…"` directives.
//   • findRoot: file → owning root, via BFS over reverse edges (memoized).
//   • visibleFiles: the ordered set of files whose declarations are
//     referenceable from a given file, modeling "everything textually
//     available at this point in the compilation unit" (memoized).
//
// What does NOT live here
//   • No parsing beyond a line-level include scan (include is always a
//     top-of-line directive in TableGen, never part of an expression).
//   • No symbol or type knowledge.
//
// I/O is injected (exists/read funcs) so tests can run on an in-memory
// file tree and so open editor buffers can shadow the disk.

package engine

import (
	"path/filepath"
	"regexp"
)

var includeRe = regexp.MustCompile(`(?m)^[ \t]*include[ \t]+"([^"]+)"`)

type includeGraph struct {
	rootOrder   []string
	searchPaths map[string][]string // root -> ordered include dirs

	forward    map[string][]string // file -> direct includes, source order
	reverse    map[string][]string // file -> including files
	fileToRoot map[string]string   // memoized; "" is a valid miss entry
	visible    map[string][]string // memoized visibility lists

	exists func(string) bool
	read   func(string) (string, bool)
}

func newIncludeGraph(exists func(string) bool, read func(string) (string, bool)) *includeGraph {
	g := &includeGraph{exists: exists, read: read}
	g.searchPaths = make(map[string][]string)
	g.clearEdges()
	return g
}

// addRoot registers a compilation root. Duplicate roots keep their first
// search-path list.
func (g *includeGraph) addRoot(root string, dirs []string) {
	if _, dup := g.searchPaths[root]; dup {
		return
	}
	g.rootOrder = append(g.rootOrder, root)
	g.searchPaths[root] = append([]string(nil), dirs...)
}

func (g *includeGraph) isRoot(file string) bool {
	_, ok := g.searchPaths[file]
	return ok
}

// clearEdges drops every edge and memoized view; roots stay registered.
func (g *includeGraph) clearEdges() {
	g.forward = make(map[string][]string)
	g.reverse = make(map[string][]string)
	g.fileToRoot = make(map[string]string)
	g.visible = make(map[string][]string)
}

// build (re)discovers the whole graph from the registered roots.
func (g *includeGraph) build() {
	g.clearEdges()
	for _, root := range g.rootOrder {
		visited := map[string]bool{root: true}
		g.discover(root, g.searchPaths[root], visited)
	}
}

// discover walks one file's includes depth-first. A file already visited
// in the current root traversal is recorded as an edge but not re-descended,
// which cuts include cycles and keeps reverse edges acyclic per root.
func (g *includeGraph) discover(file string, dirs []string, visited map[string]bool) {
	text, ok := g.read(file)
	if !ok {
		return // unreadable files contribute nothing
	}
	for _, m := range includeRe.FindAllStringSubmatch(text, -1) {
		target := g.resolveInclude(file, m[1], dirs)
		if target == "" {
			continue // unresolvable includes are dropped silently
		}
		g.forward[file] = append(g.forward[file], target)
		g.reverse[target] = append(g.reverse[target], file)
		if !visited[target] {
			visited[target] = true
			g.discover(target, dirs, visited)
		}
	}
}

// resolveInclude resolves an include name first against the including
// file's directory, then against each search path in order.
func (g *includeGraph) resolveInclude(from, name string, dirs []string) string {
	cand := filepath.Join(filepath.Dir(from), name)
	if g.exists(cand) {
		return cand
	}
	for _, d := range dirs {
		cand = filepath.Join(d, name)
		if g.exists(cand) {
			return cand
		}
	}
	return ""
}

// findRoot resolves the compilation root a file belongs to, memoizing the
// answer for every file visited on the way. Returns "" when the file is
// not reachable from any root.
func (g *includeGraph) findRoot(file string) string {
	if g.isRoot(file) {
		return file
	}
	if root, ok := g.fileToRoot[file]; ok {
		return root
	}
	queue := []string{file}
	seen := map[string]bool{file: true}
	var order []string
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		order = append(order, cur)
		if g.isRoot(cur) {
			for _, f := range order {
				g.fileToRoot[f] = cur
			}
			return cur
		}
		for _, parent := range g.reverse[cur] {
			if !seen[parent] {
				seen[parent] = true
				queue = append(queue, parent)
			}
		}
	}
	for _, f := range order {
		g.fileToRoot[f] = ""
	}
	return ""
}

// visibleFiles returns, in include order, every file whose declarations
// are available from file: (a) everything encountered on the depth-first
// walk from the file's root up to and including the file itself, and
// (b) everything the file itself includes transitively. First occurrence
// wins; the result is memoized.
func (g *includeGraph) visibleFiles(file string) []string {
	if v, ok := g.visible[file]; ok {
		return v
	}

	var out []string
	seen := map[string]bool{}
	add := func(f string) {
		seen[f] = true
		out = append(out, f)
	}

	if root := g.findRoot(file); root != "" {
		var walk func(f string) bool
		walk = func(f string) bool {
			if seen[f] {
				return false
			}
			add(f)
			if f == file {
				return true
			}
			for _, inc := range g.forward[f] {
				if walk(inc) {
					return true
				}
			}
			return false
		}
		walk(root)
	}
	if !seen[file] {
		add(file)
	}

	var down func(f string)
	down = func(f string) {
		for _, inc := range g.forward[f] {
			if !seen[inc] {
				add(inc)
				down(inc)
			}
		}
	}
	down(file)

	g.visible[file] = out
	return out
}

// visibleSet is visibleFiles as a membership set.
func (g *includeGraph) visibleSet(file string) map[string]bool {
	set := make(map[string]bool)
	for _, f := range g.visibleFiles(file) {
		set[f] = true
	}
	return set
}
