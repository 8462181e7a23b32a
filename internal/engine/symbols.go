// internal/engine/symbols.go
//
// ROLE: Flat, per-file-incremental symbol table.
//
// What lives here
//   • Two declaration indices: a global name index and a two-level
//     scope-id → name index. A scope id encodes the containing construct,
//     either by name ("class:Foo") or, for anonymous lexical constructs,
//     by source position ("let:3:7") so each occurrence is unique.
//   • A reference index, partitioned by file.
//   • Per-file bulk eviction (clearFile) so an edited file can be
//     re-indexed without touching any other file's entries.
//
// What does NOT live here
//   • No resolution policy beyond the forward-declaration preference rule;
//     scope detection and visibility filtering belong to resolve.go.

package engine

import (
	"sort"

	tgen "github.com/shiltian/vscode-llvm-tblgen-language-support/internal/tablegen"
)

type symbolKind string

const (
	symClass       symbolKind = "class"
	symDef         symbolKind = "def"
	symDefm        symbolKind = "defm"
	symMulticlass  symbolKind = "multiclass"
	symDefset      symbolKind = "defset"
	symDefvar      symbolKind = "defvar"
	symField       symbolKind = "field"
	symTemplateArg symbolKind = "templateArg"
	symForeachVar  symbolKind = "foreachVar"
	symLetBinding  symbolKind = "letBinding"
)

// symbol is one declaration.
type symbol struct {
	name      string
	kind      symbolKind
	path      string
	rng       tgen.Range
	scope     string // "" = global
	forward   bool
	synthetic bool // produced by defm expansion, not written in source
}

// reference is one use-site of a name.
type reference struct {
	name  string
	path  string
	rng   tgen.Range
	scope string
}

type symbolTable struct {
	global     map[string][]*symbol
	scoped     map[string]map[string][]*symbol
	byFile     map[string][]*symbol
	refsByFile map[string][]*reference
}

func newSymbolTable() *symbolTable {
	return &symbolTable{
		global:     make(map[string][]*symbol),
		scoped:     make(map[string]map[string][]*symbol),
		byFile:     make(map[string][]*symbol),
		refsByFile: make(map[string][]*reference),
	}
}

// add files a declaration. Symbols with an empty name are dropped.
func (st *symbolTable) add(s *symbol) {
	if s.name == "" {
		return
	}
	st.byFile[s.path] = append(st.byFile[s.path], s)
	if s.scope == "" {
		st.global[s.name] = append(st.global[s.name], s)
		return
	}
	m := st.scoped[s.scope]
	if m == nil {
		m = make(map[string][]*symbol)
		st.scoped[s.scope] = m
	}
	m[s.name] = append(m[s.name], s)
}

func (st *symbolTable) addRef(r *reference) {
	if r.name == "" {
		return
	}
	st.refsByFile[r.path] = append(st.refsByFile[r.path], r)
}

// clearFile evicts exactly the symbols and references attributed to path.
// Cost is proportional to that file's entries, not the whole table.
func (st *symbolTable) clearFile(path string) {
	for _, s := range st.byFile[path] {
		if s.scope == "" {
			st.global[s.name] = dropByPath(st.global[s.name], path)
			if len(st.global[s.name]) == 0 {
				delete(st.global, s.name)
			}
			continue
		}
		if m := st.scoped[s.scope]; m != nil {
			m[s.name] = dropByPath(m[s.name], path)
			if len(m[s.name]) == 0 {
				delete(m, s.name)
			}
			if len(m) == 0 {
				delete(st.scoped, s.scope)
			}
		}
	}
	delete(st.byFile, path)
	delete(st.refsByFile, path)
}

func dropByPath(list []*symbol, path string) []*symbol {
	out := list[:0]
	for _, s := range list {
		if s.path != path {
			out = append(out, s)
		}
	}
	return out
}

// clearSyntheticFile evicts only the defm-expanded symbols attributed to
// path, keeping everything written in source. A multiclass edit in one
// file obsoletes the materialized expansions of every other file; those
// files are not re-indexed, so their synthetic entries need eviction on
// their own.
func (st *symbolTable) clearSyntheticFile(path string) {
	list := st.byFile[path]
	kept := list[:0]
	for _, s := range list {
		if !s.synthetic {
			kept = append(kept, s)
			continue
		}
		if s.scope == "" {
			st.global[s.name] = dropSymbol(st.global[s.name], s)
			if len(st.global[s.name]) == 0 {
				delete(st.global, s.name)
			}
			continue
		}
		if m := st.scoped[s.scope]; m != nil {
			m[s.name] = dropSymbol(m[s.name], s)
			if len(m[s.name]) == 0 {
				delete(m, s.name)
			}
			if len(m) == 0 {
				delete(st.scoped, s.scope)
			}
		}
	}
	if len(kept) == 0 {
		delete(st.byFile, path)
		return
	}
	st.byFile[path] = kept
}

func dropSymbol(list []*symbol, target *symbol) []*symbol {
	out := list[:0]
	for _, s := range list {
		if s != target {
			out = append(out, s)
		}
	}
	return out
}

// pick prefers the first non-forward declaration, else the first match.
func pick(list []*symbol) *symbol {
	for _, s := range list {
		if !s.forward {
			return s
		}
	}
	if len(list) > 0 {
		return list[0]
	}
	return nil
}

// findDefinition looks a name up in the given scope first (when the scope
// has an entry it wins), then globally. Nil when nothing matches.
func (st *symbolTable) findDefinition(name, scope string) *symbol {
	if scope != "" {
		if m := st.scoped[scope]; m != nil {
			if s := pick(m[name]); s != nil {
				return s
			}
		}
	}
	return pick(st.global[name])
}

// findAllDefinitions concatenates global and every scope's matches,
// stably ordered so non-forward declarations precede forward ones.
func (st *symbolTable) findAllDefinitions(name string) []*symbol {
	var out []*symbol
	out = append(out, st.global[name]...)
	scopes := make([]string, 0, len(st.scoped))
	for sc := range st.scoped {
		scopes = append(scopes, sc)
	}
	sort.Strings(scopes)
	for _, sc := range scopes {
		out = append(out, st.scoped[sc][name]...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return !out[i].forward && out[j].forward
	})
	return out
}

// symbolAt hit-tests a position against a file's references first (a
// cursor is far more often on a use-site than on a declaration), then its
// declarations. Containment is inclusive at both range ends.
func (st *symbolTable) symbolAt(path string, pos tgen.Position) (name, scope string, rng tgen.Range, ok bool) {
	for _, r := range st.refsByFile[path] {
		if r.rng.Contains(pos) {
			return r.name, r.scope, r.rng, true
		}
	}
	for _, s := range st.byFile[path] {
		if s.rng.Contains(pos) {
			return s.name, s.scope, s.rng, true
		}
	}
	return "", "", tgen.Range{}, false
}

// fileGlobals lists a file's top-level, unscoped, non-synthetic symbols
// in declaration order (the document outline).
func (st *symbolTable) fileGlobals(path string) []*symbol {
	var out []*symbol
	for _, s := range st.byFile[path] {
		if s.scope == "" && !s.synthetic {
			out = append(out, s)
		}
	}
	return out
}

// definitionsNamed returns every definition of name whose file is in the
// given set, non-synthetic only (rename must not touch synthesized names).
func (st *symbolTable) definitionsNamed(name string, files map[string]bool) []*symbol {
	var out []*symbol
	for _, s := range st.findAllDefinitions(name) {
		if !s.synthetic && files[s.path] {
			out = append(out, s)
		}
	}
	return out
}

// referencesNamed returns every reference to name within the given files,
// in visibility order.
func (st *symbolTable) referencesNamed(name string, order []string) []*reference {
	var out []*reference
	for _, path := range order {
		for _, r := range st.refsByFile[path] {
			if r.name == name {
				out = append(out, r)
			}
		}
	}
	return out
}
