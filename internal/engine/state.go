// internal/engine/state.go
//
// ROLE: Engine state: parsed files, indices, and the build gate.
//
// What lives here
//   • Engine: owns the include graph, symbol table, class registry,
//     per-file parse states and the multiclass-suffix cache.
//   • buildGate: serializes index rebuilds and makes queries wait for a
//     rebuild in flight (condition variable, not a poll loop).
//   • File text access: open editor buffers shadow the disk.
//
// What does NOT live here
//   • No transport, no LSP payload shaping (cmd/tblgen-lsp), no AST
//     walking (analysis.go), no query logic (resolve.go).

package engine

import (
	"log"
	"os"
	"sync"

	"github.com/shiltian/vscode-llvm-tblgen-language-support/internal/manifest"
	tgen "github.com/shiltian/vscode-llvm-tblgen-language-support/internal/tablegen"
)

// buildGate serializes graph rebuilds: at most one build runs at a time,
// and queries block until a running build completes.
type buildGate struct {
	mu       sync.Mutex
	cond     *sync.Cond
	building bool
}

func newBuildGate() *buildGate {
	g := &buildGate{}
	g.cond = sync.NewCond(&g.mu)
	return g
}

// begin claims the gate, waiting out any build in progress.
func (g *buildGate) begin() {
	g.mu.Lock()
	for g.building {
		g.cond.Wait()
	}
	g.building = true
	g.mu.Unlock()
}

func (g *buildGate) end() {
	g.mu.Lock()
	g.building = false
	g.cond.Broadcast()
	g.mu.Unlock()
}

// waitIdle blocks while a build is in progress.
func (g *buildGate) waitIdle() {
	g.mu.Lock()
	for g.building {
		g.cond.Wait()
	}
	g.mu.Unlock()
}

// fileState is one parsed file and its per-file derived data.
type fileState struct {
	path  string
	text  string
	lines []int // line start byte offsets
	ast   *tgen.File

	open    bool // text comes from the editor, not the disk
	indexed bool

	// defvar name -> class name, for the narrow `defvar x = !cast<C>(…)`
	// pattern; the only defvar typing the engine attempts.
	defvarCasts map[string]string

	// named multiclass bodies, for defm suffix expansion
	multiclasses map[string]*tgen.MultiClassDef
}

// lineOffsets records each line's starting byte offset. CRLF-aware:
// "\r\n" is one newline; offsets point at the byte after '\n'.
func lineOffsets(text string) []int {
	offs := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			offs = append(offs, i+1)
		}
	}
	return offs
}

// Location is a resolved definition site.
type Location struct {
	Path string
	Rng  tgen.Range
}

// Symbol is one outline entry.
type Symbol struct {
	Name string
	Kind string
	Rng  tgen.Range
}

type Engine struct {
	mu   sync.Mutex
	gate *buildGate

	graph   *includeGraph
	syms    *symbolTable
	classes *classRegistry
	files   map[string]*fileState

	suffixes map[string][]string // multiclass name -> sorted suffix set

	logf func(format string, args ...any)
}

func New() *Engine {
	e := &Engine{
		gate:     newBuildGate(),
		syms:     newSymbolTable(),
		classes:  newClassRegistry(),
		files:    make(map[string]*fileState),
		suffixes: make(map[string][]string),
		logf:     log.New(os.Stderr, "tblgen-lsp: ", 0).Printf,
	}
	e.graph = newIncludeGraph(e.fileExists, e.readFileText)
	return e
}

// fileExists answers include resolution: an open buffer counts even if
// the file vanished on disk.
func (e *Engine) fileExists(path string) bool {
	if fs, ok := e.files[path]; ok && fs.open {
		return true
	}
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}

// readFileText prefers the open editor buffer over the disk copy.
func (e *Engine) readFileText(path string) (string, bool) {
	if fs, ok := e.files[path]; ok && fs.open {
		return fs.text, true
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return string(data), true
}

// SetRoots registers manifest entries (first occurrence of a root wins)
// and builds the include graph.
func (e *Engine) SetRoots(entries []manifest.Entry) {
	e.gate.begin()
	defer e.gate.end()
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, ent := range entries {
		e.graph.addRoot(ent.File, ent.IncludeDirs)
	}
	e.logf("building include graph for %d root(s)", len(e.graph.rootOrder))
	e.graph.build()
}

// Reindex drops every index and rebuilds the include graph. Files are
// re-parsed lazily afterwards; open buffers keep their text.
func (e *Engine) Reindex() {
	e.gate.begin()
	defer e.gate.end()
	e.mu.Lock()
	defer e.mu.Unlock()
	e.syms = newSymbolTable()
	e.classes = newClassRegistry()
	e.suffixes = make(map[string][]string)
	for _, fs := range e.files {
		fs.indexed = false
		if !fs.open {
			delete(e.files, fs.path)
		}
	}
	e.logf("reindex: rebuilding include graph")
	e.graph.build()
}

// DidOpen records an open buffer and lazily indexes its visible set.
func (e *Engine) DidOpen(path, text string) []tgen.Diagnostic {
	e.gate.waitIdle()
	e.mu.Lock()
	defer e.mu.Unlock()
	fs := e.stateFor(path)
	fs.open = true
	fs.text = text
	fs.indexed = false
	e.ensureIndexedLocked(path)
	return fs.ast.Errors
}

// DidChange re-parses exactly the changed file, atomically replacing its
// symbols and classes: old entries are fully evicted before new ones are
// inserted, so no query can observe a half-updated file.
func (e *Engine) DidChange(path, text string) []tgen.Diagnostic {
	e.gate.waitIdle()
	e.mu.Lock()
	defer e.mu.Unlock()
	fs := e.stateFor(path)
	fs.open = true
	fs.text = text
	e.indexFileLocked(fs)
	// A multiclass edit changes what defms in other files expand to, and
	// those expansions are materialized symbols rather than cache entries:
	// refresh every indexed file's expansions against the fresh index.
	for _, other := range e.files {
		if other == fs || !other.indexed {
			continue
		}
		e.syms.clearSyntheticFile(other.path)
		e.expandDefmsLocked(other)
	}
	e.expandDefmsLocked(fs)
	return fs.ast.Errors
}

func (e *Engine) DidClose(path string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if fs, ok := e.files[path]; ok {
		fs.open = false
	}
}

// Roots lists the registered compilation roots in manifest order.
func (e *Engine) Roots() []string {
	e.gate.waitIdle()
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.graph.rootOrder...)
}

// VisibleFiles lists, in include order, the files whose declarations are
// referenceable from path.
func (e *Engine) VisibleFiles(path string) []string {
	e.gate.waitIdle()
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.graph.visibleFiles(path)...)
}

// FileText exposes an indexed file's text and line table, for coordinate
// conversion at the protocol boundary.
func (e *Engine) FileText(path string) (string, []int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fs := e.files[path]
	if fs == nil || !fs.indexed {
		return "", nil, false
	}
	return fs.text, fs.lines, true
}

func (e *Engine) stateFor(path string) *fileState {
	fs := e.files[path]
	if fs == nil {
		fs = &fileState{path: path}
		e.files[path] = fs
	}
	return fs
}

// ensureIndexedLocked lazily parses and indexes every file visible from
// path that is not indexed yet, then expands defm instantiations in the
// newly indexed files.
func (e *Engine) ensureIndexedLocked(path string) {
	var fresh []*fileState
	for _, f := range e.graph.visibleFiles(path) {
		fs := e.stateFor(f)
		if fs.indexed {
			continue
		}
		if !fs.open {
			text, ok := e.readFileText(f)
			if !ok {
				continue // missing files contribute nothing
			}
			fs.text = text
		}
		e.indexFileLocked(fs)
		fresh = append(fresh, fs)
	}
	for _, fs := range fresh {
		e.expandDefmsLocked(fs)
	}
}
