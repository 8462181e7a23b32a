// internal/engine/analysis.go
//
// ROLE: Per-file indexing: one AST walk that populates the symbol table,
//       the class registry, and the per-file caches (defvar !cast
//       pattern, multiclass bodies).
//
// Scope ids: named constructs use "<kind>:<name>" ("class:Foo"),
// anonymous lexical constructs use their declaration position
// ("let:3:7", "foreach:12:0") so every occurrence is distinct.
//
// The walk is transparent through let/foreach/if bodies: statements
// inside keep the enclosing scope (a def inside a top-level let block is
// still a global def). Class-like bodies switch to the construct's own
// scope and collect fields into its classInfo.

package engine

import (
	"fmt"

	tgen "github.com/shiltian/vscode-llvm-tblgen-language-support/internal/tablegen"
)

// indexFileLocked (re)parses one file and atomically swaps its index
// contributions: full eviction first, then insertion from the new AST.
// Engine mutex must be held.
func (e *Engine) indexFileLocked(fs *fileState) {
	fs.lines = lineOffsets(fs.text)
	fs.ast = tgen.Parse(fs.text)

	e.syms.clearFile(fs.path)
	e.classes.removeFile(fs.path)
	// Coarse invalidation: any file change drops all suffix sets.
	e.suffixes = make(map[string][]string)

	fs.defvarCasts = make(map[string]string)
	fs.multiclasses = make(map[string]*tgen.MultiClassDef)

	ix := &fileIndexer{e: e, fs: fs}
	ix.stmts(fs.ast.Statements, "", nil)
	fs.indexed = true
}

func posScope(kind string, pos tgen.Position) string {
	return fmt.Sprintf("%s:%d:%d", kind, pos.Line, pos.Character)
}

func nameScope(kind, name string, at tgen.Position) string {
	if name == "" {
		return posScope(kind, at)
	}
	return kind + ":" + name
}

type fileIndexer struct {
	e  *Engine
	fs *fileState
}

func (ix *fileIndexer) add(s *symbol) {
	s.path = ix.fs.path
	ix.e.syms.add(s)
}

func (ix *fileIndexer) ref(name string, rng tgen.Range, scope string) {
	ix.e.syms.addRef(&reference{name: name, path: ix.fs.path, rng: rng, scope: scope})
}

// stmts walks a statement list. ci is the class-like construct whose body
// this list (transitively) belongs to, nil at the top level.
func (ix *fileIndexer) stmts(list []tgen.Stmt, scope string, ci *classInfo) {
	for _, s := range list {
		ix.stmt(s, scope, ci)
	}
}

func (ix *fileIndexer) stmt(s tgen.Stmt, scope string, ci *classInfo) {
	switch st := s.(type) {
	case *tgen.ClassDef:
		ix.add(&symbol{name: st.Name, kind: symClass, rng: st.NameRange, scope: scope, forward: st.Forward})
		inner := nameScope("class", st.Name, st.Rng.Start)
		info := &classInfo{name: st.Name, kind: symClass, path: ix.fs.path, rng: st.NameRange, forward: st.Forward}
		ix.header(info, st.TemplateArgs, st.Parents, inner)
		ix.stmts(st.Body, inner, info)
		ix.e.classes.add(info)

	case *tgen.DefDef:
		ix.add(&symbol{name: st.Name, kind: symDef, rng: st.NameRange, scope: scope})
		inner := nameScope("def", st.Name, st.Rng.Start)
		info := &classInfo{name: st.Name, kind: symDef, path: ix.fs.path, rng: st.NameRange}
		ix.header(info, nil, st.Parents, inner)
		ix.stmts(st.Body, inner, info)
		ix.e.classes.add(info)

	case *tgen.MultiClassDef:
		ix.add(&symbol{name: st.Name, kind: symMulticlass, rng: st.NameRange, scope: scope})
		if st.Name != "" {
			ix.fs.multiclasses[st.Name] = st
		}
		inner := nameScope("multiclass", st.Name, st.Rng.Start)
		info := &classInfo{name: st.Name, kind: symMulticlass, path: ix.fs.path, rng: st.NameRange}
		ix.header(info, st.TemplateArgs, st.Parents, inner)
		ix.stmts(st.Body, inner, info)
		ix.e.classes.add(info)

	case *tgen.DefmDef:
		ix.add(&symbol{name: st.Name, kind: symDefm, rng: st.NameRange, scope: scope})
		inner := nameScope("defm", st.Name, st.Rng.Start)
		info := &classInfo{name: st.Name, kind: symDefm, path: ix.fs.path, rng: st.NameRange}
		ix.header(info, nil, st.Parents, inner)
		ix.e.classes.add(info)

	case *tgen.DefsetDef:
		ix.add(&symbol{name: st.Name, kind: symDefset, rng: st.NameRange, scope: scope})
		inner := nameScope("defset", st.Name, st.Rng.Start)
		ix.stmts(st.Body, inner, nil)

	case *tgen.DefvarDef:
		ix.add(&symbol{name: st.Name, kind: symDefvar, rng: st.NameRange, scope: scope})
		ix.expr(st.Value, scope)
		if bang, ok := st.Value.(*tgen.BangExpr); ok && bang.Op == "!cast" && bang.TypeText != "" {
			ix.fs.defvarCasts[st.Name] = leadingIdent(bang.TypeText)
		}

	case *tgen.FieldDef:
		ix.add(&symbol{name: st.Name, kind: symField, rng: st.NameRange, scope: scope})
		if ci != nil {
			ci.addField(fieldInfo{
				name: st.Name,
				typ:  parseTypeText(st.Type),
				path: ix.fs.path,
				rng:  st.NameRange,
			})
		}
		ix.expr(st.Value, scope)

	case *tgen.LetStmt:
		letScope := posScope("let", st.Rng.Start)
		for _, b := range st.Bindings {
			ix.add(&symbol{name: b.Name, kind: symLetBinding, rng: b.NameRange, scope: letScope})
			// The binding target names a field of the surrounding (or a
			// produced) record: it is a use-site, never a definition.
			ix.ref(b.Name, b.NameRange, scope)
			ix.expr(b.Value, scope)
		}
		ix.stmts(st.Body, scope, ci)

	case *tgen.ForeachStmt:
		feScope := posScope("foreach", st.Rng.Start)
		ix.add(&symbol{name: st.Var, kind: symForeachVar, rng: st.VarRange, scope: feScope})
		ix.expr(st.Seq, scope)
		ix.stmts(st.Body, scope, ci)

	case *tgen.IfStmt:
		ix.expr(st.Cond, scope)
		ix.stmts(st.Then, scope, ci)
		ix.stmts(st.Else, scope, ci)

	case *tgen.AssertStmt:
		ix.expr(st.Cond, scope)
		ix.expr(st.Message, scope)

	case *tgen.IncludeStmt:
		// Edges are the include graph's business.
	}
}

// header indexes the shared class-like preamble: template arguments and
// the parent list.
func (ix *fileIndexer) header(info *classInfo, targs []tgen.TemplateArg, parents []*tgen.ClassRef, inner string) {
	for _, a := range targs {
		ix.add(&symbol{name: a.Name, kind: symTemplateArg, rng: a.NameRange, scope: inner})
		info.args = append(info.args, classArg{
			name:       a.Name,
			typ:        a.Type,
			hasDefault: a.Default != nil,
			path:       ix.fs.path,
			rng:        a.NameRange,
		})
		ix.expr(a.Default, inner)
	}
	for _, p := range parents {
		if p == nil {
			continue
		}
		info.parents = append(info.parents, p.Name)
		ix.ref(p.Name, p.NameRange, inner)
		for _, arg := range p.Args {
			ix.expr(arg, inner)
		}
	}
}

func (ix *fileIndexer) expr(ex tgen.Expr, scope string) {
	switch v := ex.(type) {
	case nil:
	case *tgen.Identifier:
		ix.ref(v.Name, v.Rng, scope)
	case *tgen.ClassRef:
		ix.ref(v.Name, v.NameRange, scope)
		for _, a := range v.Args {
			ix.expr(a, scope)
		}
	case *tgen.FieldAccess:
		ix.expr(v.Object, scope)
		ix.ref(v.Field, v.FieldRange, scope)
	case *tgen.BangExpr:
		for _, a := range v.Args {
			ix.expr(a, scope)
		}
	case *tgen.ListExpr:
		for _, el := range v.Elements {
			ix.expr(el, scope)
		}
	case *tgen.DagExpr:
		ix.expr(v.Op, scope)
		for _, a := range v.Args {
			ix.expr(a.Value, scope)
		}
	case *tgen.PasteExpr:
		ix.expr(v.Lhs, scope)
		ix.expr(v.Rhs, scope)
	case *tgen.NumberLit, *tgen.StringLit, *tgen.CodeLit:
	}
}
