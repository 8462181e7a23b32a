// internal/engine/resolve.go
//
// ROLE: Query evaluation: go-to-definition, rename, outline, and defm
//       multiclass expansion.
//
// Resolution order for a name at a position:
//   1. field access (x.f): type the object, then walk the class hierarchy
//      depth-first for f;
//   2. foreach loop variables of enclosing foreach statements, innermost
//      first;
//   3. when inside a class-like body: the record's own and inherited
//      fields, then its (and its transitive parents') template arguments;
//   4. the symbol in the reference's recorded scope;
//   5. the global symbol.
// Every result is filtered by the include graph's visibility set, so an
// identifier never resolves to a file the compilation unit cannot see.

package engine

import (
	"sort"
	"strings"

	tgen "github.com/shiltian/vscode-llvm-tblgen-language-support/internal/tablegen"
)

// ───────────────────────────── definition ─────────────────────────────

// Definition resolves the definition site of the symbol at pos.
func (e *Engine) Definition(path string, pos tgen.Position) (Location, bool) {
	e.gate.waitIdle()
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ensureIndexedLocked(path)
	return e.definitionLocked(path, pos)
}

func (e *Engine) definitionLocked(path string, pos tgen.Position) (Location, bool) {
	fs := e.files[path]
	if fs == nil || fs.ast == nil {
		return Location{}, false
	}
	name, scope, _, ok := e.syms.symbolAt(path, pos)
	if !ok {
		return Location{}, false
	}
	visible := e.graph.visibleSet(path)

	// Field access: the dot decides, not the name.
	if fa := fieldAccessAt(fs.ast.Statements, pos); fa != nil && fa.FieldRange.Contains(pos) {
		if class, ok := e.objectClass(fs, scope, fa.Object); ok {
			if f := e.classes.findFieldDefinition(class, fa.Field); f != nil && visible[f.path] {
				return Location{Path: f.path, Rng: f.rng}, true
			}
		}
		return Location{}, false
	}

	// Loop variables shadow everything else inside their body.
	for _, feScope := range foreachScopesAt(fs.ast.Statements, pos) {
		if m := e.syms.scoped[feScope]; m != nil {
			if s := pick(m[name]); s != nil && visible[s.path] {
				return Location{Path: s.path, Rng: s.rng}, true
			}
		}
	}

	// Inside a record body a bare name may be one of the record's fields
	// (own or inherited, e.g. the target of `let Size = 4;`) or one of its
	// template arguments. A `let X = Y in { def Foo : Bar; }` header has no
	// record scope of its own: its bindings resolve against the first
	// record the let produces.
	classScope := scopeClassName(scope)
	if lc := letHeaderClassAt(fs.ast.Statements, pos); lc != "" {
		classScope = lc
	}
	classLike := classScope != ""
	if classScope != "" {
		if f := e.classes.findFieldDefinition(classScope, name); f != nil && visible[f.path] {
			return Location{Path: f.path, Rng: f.rng}, true
		}
		if a := e.argDefinition(classScope, name); a != nil && visible[a.path] {
			return Location{Path: a.path, Rng: a.rng}, true
		}
	} else if parents := anonymousRecordParents(fs.ast.Statements, scope); len(parents) > 0 {
		// Nameless records never reach the class registry; resolve through
		// their declared parents directly.
		classLike = true
		for _, pn := range parents {
			if f := e.classes.findFieldDefinition(pn, name); f != nil && visible[f.path] {
				return Location{Path: f.path, Rng: f.rng}, true
			}
		}
		for _, pn := range parents {
			if a := e.argDefinition(pn, name); a != nil && visible[a.path] {
				return Location{Path: a.path, Rng: a.rng}, true
			}
		}
	}

	if scope != "" {
		if m := e.syms.scoped[scope]; m != nil {
			if s := pickVisible(m[name], visible, symLetBinding); s != nil {
				return Location{Path: s.path, Rng: s.rng}, true
			}
		}
	}

	skip := symLetBinding
	if classLike {
		// A stray global "field" must not steal a record-body name that
		// the record itself failed to resolve.
		skip = symField
	}
	if s := pickVisible(e.syms.global[name], visible, skip); s != nil {
		return Location{Path: s.path, Rng: s.rng}, true
	}
	return Location{}, false
}

// pickVisible is pick restricted to visible files, skipping one kind.
func pickVisible(list []*symbol, visible map[string]bool, skip symbolKind) *symbol {
	var first *symbol
	for _, s := range list {
		if !visible[s.path] || s.kind == skip {
			continue
		}
		if !s.forward {
			return s
		}
		if first == nil {
			first = s
		}
	}
	return first
}

// scopeClassName extracts the record name from a class-like scope id;
// "" for global, positional, and non-record scopes.
func scopeClassName(scope string) string {
	for _, prefix := range []string{"class:", "def:", "multiclass:", "defm:"} {
		if rest, ok := strings.CutPrefix(scope, prefix); ok {
			if strings.Contains(rest, ":") {
				return "" // positional id of an anonymous record
			}
			return rest
		}
	}
	return ""
}

// argDefinition finds a template argument on a record or any transitive
// parent, nearest declaration first.
func (e *Engine) argDefinition(class, name string) *classArg {
	chain := append([]string{class}, e.classes.getAllParentClasses(class)...)
	for _, cn := range chain {
		if ci := e.classes.get(cn); ci != nil {
			if a := ci.arg(name); a != nil {
				return a
			}
		}
	}
	return nil
}

// objectClass types the object of a field access, returning the class
// whose hierarchy the field should be searched in.
func (e *Engine) objectClass(fs *fileState, scope string, obj tgen.Expr) (string, bool) {
	switch v := obj.(type) {
	case *tgen.Identifier:
		// A template argument of the enclosing record, typed with a class.
		if class := scopeClassName(scope); class != "" {
			if a := e.argDefinition(class, v.Name); a != nil {
				t := parseTypeText(a.typ)
				if t.kind == typeClass && t.name != "" {
					return t.name, true
				}
			}
		}
		// A registered record: defs and classes carry their own fields.
		if ci := e.classes.get(v.Name); ci != nil && (ci.kind == symDef || ci.kind == symClass || ci.kind == symDefm) {
			return v.Name, true
		}
		// defvar x = !cast<C>(…): the one defvar typing the engine knows.
		if class, ok := fs.defvarCasts[v.Name]; ok {
			return class, true
		}
		return "", false
	case *tgen.FieldAccess:
		class, ok := e.objectClass(fs, scope, v.Object)
		if !ok {
			return "", false
		}
		f := e.classes.findFieldDefinition(class, v.Field)
		if f == nil {
			return "", false
		}
		if f.typ.kind == typeClass && f.typ.name != "" {
			return f.typ.name, true
		}
		return "", false
	case *tgen.ClassRef:
		return v.Name, true
	case *tgen.BangExpr:
		if v.TypeText != "" {
			return leadingIdent(v.TypeText), true
		}
		return "", false
	default:
		return "", false
	}
}

// ─────────────────────────────── rename ───────────────────────────────

// PrepareRename validates that pos sits on a renameable symbol and returns
// the exact token range plus the current name.
func (e *Engine) PrepareRename(path string, pos tgen.Position) (tgen.Range, string, bool) {
	e.gate.waitIdle()
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ensureIndexedLocked(path)
	name, _, rng, ok := e.syms.symbolAt(path, pos)
	if !ok || name == "" {
		return tgen.Range{}, "", false
	}
	return rng, name, true
}

// Rename computes, per file, the ranges to replace when renaming the
// symbol at pos. The edit set spans exactly the visible files; synthetic
// symbols never produce edits (their spelling is derived, not written).
func (e *Engine) Rename(path string, pos tgen.Position) (map[string][]tgen.Range, bool) {
	e.gate.waitIdle()
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ensureIndexedLocked(path)
	name, _, _, ok := e.syms.symbolAt(path, pos)
	if !ok || name == "" {
		return nil, false
	}

	order := e.graph.visibleFiles(path)
	visible := e.graph.visibleSet(path)

	edits := make(map[string][]tgen.Range)
	seen := make(map[string]map[tgen.Range]bool)
	put := func(p string, rng tgen.Range) {
		m := seen[p]
		if m == nil {
			m = make(map[tgen.Range]bool)
			seen[p] = m
		}
		if m[rng] {
			return // a let binding is indexed both as symbol and reference
		}
		m[rng] = true
		edits[p] = append(edits[p], rng)
	}
	for _, s := range e.syms.definitionsNamed(name, visible) {
		put(s.path, s.rng)
	}
	for _, r := range e.syms.referencesNamed(name, order) {
		put(r.path, r.rng)
	}
	if len(edits) == 0 {
		return nil, false
	}
	for _, rngs := range edits {
		sort.Slice(rngs, func(i, j int) bool {
			a, b := rngs[i].Start, rngs[j].Start
			if a.Line != b.Line {
				return a.Line < b.Line
			}
			return a.Character < b.Character
		})
	}
	return edits, true
}

// ────────────────────────────── outline ───────────────────────────────

// Outline lists a file's top-level declarations in source order.
func (e *Engine) Outline(path string) []Symbol {
	e.gate.waitIdle()
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ensureIndexedLocked(path)
	var out []Symbol
	for _, s := range e.syms.fileGlobals(path) {
		out = append(out, Symbol{Name: s.name, Kind: string(s.kind), Rng: s.rng})
	}
	return out
}

// ────────────────────────── position helpers ──────────────────────────

// fieldAccessAt finds the innermost field access whose field name covers
// pos, or nil.
func fieldAccessAt(list []tgen.Stmt, pos tgen.Position) *tgen.FieldAccess {
	var found *tgen.FieldAccess
	var expr func(ex tgen.Expr)
	expr = func(ex tgen.Expr) {
		switch v := ex.(type) {
		case nil:
		case *tgen.FieldAccess:
			if v.FieldRange.Contains(pos) {
				found = v
			}
			expr(v.Object)
		case *tgen.ClassRef:
			for _, a := range v.Args {
				expr(a)
			}
		case *tgen.BangExpr:
			for _, a := range v.Args {
				expr(a)
			}
		case *tgen.ListExpr:
			for _, el := range v.Elements {
				expr(el)
			}
		case *tgen.DagExpr:
			expr(v.Op)
			for _, a := range v.Args {
				expr(a.Value)
			}
		case *tgen.PasteExpr:
			expr(v.Lhs)
			expr(v.Rhs)
		}
	}
	var walk func([]tgen.Stmt)
	walk = func(list []tgen.Stmt) {
		for _, s := range list {
			if !s.Range().Contains(pos) {
				continue
			}
			switch st := s.(type) {
			case *tgen.ClassDef:
				for _, a := range st.TemplateArgs {
					expr(a.Default)
				}
				for _, p := range st.Parents {
					for _, arg := range p.Args {
						expr(arg)
					}
				}
				walk(st.Body)
			case *tgen.DefDef:
				for _, p := range st.Parents {
					for _, arg := range p.Args {
						expr(arg)
					}
				}
				walk(st.Body)
			case *tgen.MultiClassDef:
				for _, a := range st.TemplateArgs {
					expr(a.Default)
				}
				for _, p := range st.Parents {
					for _, arg := range p.Args {
						expr(arg)
					}
				}
				walk(st.Body)
			case *tgen.DefmDef:
				for _, p := range st.Parents {
					for _, arg := range p.Args {
						expr(arg)
					}
				}
			case *tgen.DefsetDef:
				walk(st.Body)
			case *tgen.DefvarDef:
				expr(st.Value)
			case *tgen.FieldDef:
				expr(st.Value)
			case *tgen.LetStmt:
				for _, b := range st.Bindings {
					expr(b.Value)
				}
				walk(st.Body)
			case *tgen.ForeachStmt:
				expr(st.Seq)
				walk(st.Body)
			case *tgen.IfStmt:
				expr(st.Cond)
				walk(st.Then)
				walk(st.Else)
			case *tgen.AssertStmt:
				expr(st.Cond)
				expr(st.Message)
			}
		}
	}
	walk(list)
	return found
}

// foreachScopesAt lists the scope ids of every foreach statement enclosing
// pos, innermost first.
func foreachScopesAt(list []tgen.Stmt, pos tgen.Position) []string {
	var out []string
	var walk func([]tgen.Stmt)
	walk = func(list []tgen.Stmt) {
		for _, s := range list {
			if !s.Range().Contains(pos) {
				continue
			}
			switch st := s.(type) {
			case *tgen.ForeachStmt:
				out = append([]string{posScope("foreach", st.Rng.Start)}, out...)
				walk(st.Body)
			case *tgen.ClassDef:
				walk(st.Body)
			case *tgen.DefDef:
				walk(st.Body)
			case *tgen.MultiClassDef:
				walk(st.Body)
			case *tgen.DefsetDef:
				walk(st.Body)
			case *tgen.LetStmt:
				walk(st.Body)
			case *tgen.IfStmt:
				walk(st.Then)
				walk(st.Else)
			}
		}
	}
	walk(list)
	return out
}

// letHeaderClassAt resolves the effective record scope of a let binding
// header: when pos sits on a binding name or value of a let statement,
// the bindings target the first record the let's body produces. Returns
// "" when pos is not in a let header or the body yields no named record.
// Innermost let wins when headers nest.
func letHeaderClassAt(list []tgen.Stmt, pos tgen.Position) string {
	for _, s := range list {
		if !s.Range().Contains(pos) {
			continue
		}
		switch st := s.(type) {
		case *tgen.LetStmt:
			if inner := letHeaderClassAt(st.Body, pos); inner != "" {
				return inner
			}
			for _, b := range st.Bindings {
				if b.NameRange.Contains(pos) || (b.Value != nil && b.Value.Range().Contains(pos)) {
					return firstRecordName(st.Body)
				}
			}
		case *tgen.ClassDef:
			return letHeaderClassAt(st.Body, pos)
		case *tgen.DefDef:
			return letHeaderClassAt(st.Body, pos)
		case *tgen.MultiClassDef:
			return letHeaderClassAt(st.Body, pos)
		case *tgen.DefsetDef:
			return letHeaderClassAt(st.Body, pos)
		case *tgen.ForeachStmt:
			return letHeaderClassAt(st.Body, pos)
		case *tgen.IfStmt:
			if r := letHeaderClassAt(st.Then, pos); r != "" {
				return r
			}
			return letHeaderClassAt(st.Else, pos)
		}
	}
	return ""
}

// firstRecordName finds the first named def, defm, or full class in a
// statement list, looking through transparent let/foreach/if/defset
// bodies.
func firstRecordName(list []tgen.Stmt) string {
	for _, s := range list {
		switch st := s.(type) {
		case *tgen.DefDef:
			if st.Name != "" {
				return st.Name
			}
		case *tgen.DefmDef:
			if st.Name != "" {
				return st.Name
			}
		case *tgen.ClassDef:
			if !st.Forward && st.Name != "" {
				return st.Name
			}
		case *tgen.LetStmt:
			if r := firstRecordName(st.Body); r != "" {
				return r
			}
		case *tgen.ForeachStmt:
			if r := firstRecordName(st.Body); r != "" {
				return r
			}
		case *tgen.DefsetDef:
			if r := firstRecordName(st.Body); r != "" {
				return r
			}
		case *tgen.IfStmt:
			if r := firstRecordName(st.Then); r != "" {
				return r
			}
			if r := firstRecordName(st.Else); r != "" {
				return r
			}
		}
	}
	return ""
}

// anonymousRecordParents recovers the declared parent list behind an
// anonymous record's positional scope id ("def:3:7"): nameless records
// never reach the class registry, so their hierarchy is read back off
// the AST.
func anonymousRecordParents(list []tgen.Stmt, scope string) []string {
	kind, _, ok := strings.Cut(scope, ":")
	if !ok || (kind != "def" && kind != "defm") {
		return nil
	}
	var found []string
	var walk func([]tgen.Stmt) bool
	walk = func(list []tgen.Stmt) bool {
		for _, s := range list {
			switch st := s.(type) {
			case *tgen.DefDef:
				if st.Name == "" && posScope("def", st.Rng.Start) == scope {
					found = parentNames(st.Parents)
					return true
				}
				if walk(st.Body) {
					return true
				}
			case *tgen.DefmDef:
				if st.Name == "" && posScope("defm", st.Rng.Start) == scope {
					found = parentNames(st.Parents)
					return true
				}
			case *tgen.ClassDef:
				if walk(st.Body) {
					return true
				}
			case *tgen.MultiClassDef:
				if walk(st.Body) {
					return true
				}
			case *tgen.DefsetDef:
				if walk(st.Body) {
					return true
				}
			case *tgen.LetStmt:
				if walk(st.Body) {
					return true
				}
			case *tgen.ForeachStmt:
				if walk(st.Body) {
					return true
				}
			case *tgen.IfStmt:
				if walk(st.Then) || walk(st.Else) {
					return true
				}
			}
		}
		return false
	}
	walk(list)
	return found
}

func parentNames(parents []*tgen.ClassRef) []string {
	var out []string
	for _, p := range parents {
		if p != nil {
			out = append(out, p.Name)
		}
	}
	return out
}

// ─────────────────────────── defm expansion ───────────────────────────

// expandDefmsLocked synthesizes one def symbol per record a defm
// instantiation produces: the defm prefix concatenated with every suffix
// its multiclasses (and their parents) contribute. The symbols point at
// the defm's name so go-to-definition on an expanded record name lands on
// the instantiation that produced it.
func (e *Engine) expandDefmsLocked(fs *fileState) {
	var walk func([]tgen.Stmt)
	walk = func(list []tgen.Stmt) {
		for _, s := range list {
			switch st := s.(type) {
			case *tgen.DefmDef:
				if st.Name == "" {
					continue
				}
				produced := make(map[string]bool)
				for _, p := range st.Parents {
					if p == nil {
						continue
					}
					for _, suffix := range e.suffixesOfLocked(p.Name, map[string]bool{}) {
						full := st.Name + suffix
						if produced[full] {
							continue
						}
						produced[full] = true
						e.syms.add(&symbol{
							name:      full,
							kind:      symDef,
							path:      fs.path,
							rng:       st.NameRange,
							synthetic: true,
						})
					}
				}
			case *tgen.LetStmt:
				walk(st.Body)
			case *tgen.ForeachStmt:
				walk(st.Body)
			case *tgen.IfStmt:
				walk(st.Then)
				walk(st.Else)
			case *tgen.DefsetDef:
				walk(st.Body)
			}
		}
	}
	walk(fs.ast.Statements)
}

// suffixesOfLocked computes the record-name suffixes one multiclass
// contributes: parent multiclasses first, then the local body, where a
// `def X` contributes "X" and a nested `defm Y : M` contributes "Y"
// prefixed onto each of M's suffixes. Mutually recursive multiclasses
// terminate via the visiting set — a multiclass re-entered on the same
// expansion path contributes nothing on that path. Results are sorted
// and deduplicated. Only from-scratch computations are memoized: a set
// computed while an ancestor expansion is in flight may have had the
// ancestor's cycle cut out of it, and caching that truncated view would
// shortchange every later expansion entered through this multiclass.
func (e *Engine) suffixesOfLocked(name string, visiting map[string]bool) []string {
	if cached, ok := e.suffixes[name]; ok {
		return cached
	}
	if visiting[name] {
		return nil
	}
	mc := e.multiclassNamed(name)
	if mc == nil {
		return nil
	}
	cacheable := len(visiting) == 0
	visiting[name] = true
	var out []string
	for _, p := range mc.Parents {
		if p != nil {
			out = append(out, e.suffixesOfLocked(p.Name, visiting)...)
		}
	}
	out = append(out, e.bodySuffixesLocked(mc.Body, visiting)...)
	delete(visiting, name)

	sort.Strings(out)
	out = dedupeSorted(out)
	if cacheable {
		e.suffixes[name] = out
	}
	return out
}

func (e *Engine) bodySuffixesLocked(list []tgen.Stmt, visiting map[string]bool) []string {
	var out []string
	for _, s := range list {
		switch st := s.(type) {
		case *tgen.DefDef:
			if st.Name != "" {
				out = append(out, st.Name)
			}
		case *tgen.DefmDef:
			for _, p := range st.Parents {
				if p == nil {
					continue
				}
				for _, sub := range e.suffixesOfLocked(p.Name, visiting) {
					out = append(out, st.Name+sub)
				}
			}
		case *tgen.LetStmt:
			out = append(out, e.bodySuffixesLocked(st.Body, visiting)...)
		case *tgen.ForeachStmt:
			out = append(out, e.bodySuffixesLocked(st.Body, visiting)...)
		case *tgen.IfStmt:
			out = append(out, e.bodySuffixesLocked(st.Then, visiting)...)
			out = append(out, e.bodySuffixesLocked(st.Else, visiting)...)
		case *tgen.DefsetDef:
			out = append(out, e.bodySuffixesLocked(st.Body, visiting)...)
		}
	}
	return out
}

// multiclassNamed resolves a multiclass body by name via the symbol table.
func (e *Engine) multiclassNamed(name string) *tgen.MultiClassDef {
	for _, s := range e.syms.global[name] {
		if s.kind != symMulticlass {
			continue
		}
		if fs := e.files[s.path]; fs != nil {
			if mc := fs.multiclasses[name]; mc != nil {
				return mc
			}
		}
	}
	return nil
}

func dedupeSorted(list []string) []string {
	out := list[:0]
	for i, s := range list {
		if i == 0 || s != list[i-1] {
			out = append(out, s)
		}
	}
	return out
}
