// symbols_test.go
package engine

import (
	"testing"

	tgen "github.com/shiltian/vscode-llvm-tblgen-language-support/internal/tablegen"
)

func rangeAt(line, start, end int) tgen.Range {
	return tgen.Range{
		Start: tgen.Position{Line: line, Character: start},
		End:   tgen.Position{Line: line, Character: end},
	}
}

func TestClearFileEvictsOnlyThatFile(t *testing.T) {
	st := newSymbolTable()
	st.add(&symbol{name: "Reg", kind: symClass, path: "/a.td", rng: rangeAt(0, 6, 9)})
	st.add(&symbol{name: "Reg", kind: symClass, path: "/b.td", rng: rangeAt(2, 6, 9)})
	st.add(&symbol{name: "Num", kind: symField, path: "/a.td", scope: "class:Reg", rng: rangeAt(1, 2, 5)})
	st.addRef(&reference{name: "Reg", path: "/a.td", rng: rangeAt(4, 0, 3)})

	st.clearFile("/a.td")

	if got := st.global["Reg"]; len(got) != 1 || got[0].path != "/b.td" {
		t.Fatalf("global Reg after clear = %v, want only /b.td's", got)
	}
	if m := st.scoped["class:Reg"]; m != nil {
		t.Fatalf("scoped entries survived clearFile: %v", m)
	}
	if refs := st.refsByFile["/a.td"]; refs != nil {
		t.Fatalf("references survived clearFile: %v", refs)
	}
}

func TestPickPrefersFullDefinition(t *testing.T) {
	fwd := &symbol{name: "Reg", kind: symClass, path: "/a.td", forward: true}
	full := &symbol{name: "Reg", kind: symClass, path: "/b.td"}

	if got := pick([]*symbol{fwd, full}); got != full {
		t.Fatalf("pick chose %+v, want the full definition", got)
	}
	if got := pick([]*symbol{fwd}); got != fwd {
		t.Fatalf("pick with only a forward decl chose %+v", got)
	}
	if got := pick(nil); got != nil {
		t.Fatalf("pick(nil) = %+v, want nil", got)
	}
}

func TestFindDefinitionScopeWins(t *testing.T) {
	st := newSymbolTable()
	global := &symbol{name: "x", kind: symDef, path: "/a.td"}
	scoped := &symbol{name: "x", kind: symTemplateArg, path: "/a.td", scope: "class:C"}
	st.add(global)
	st.add(scoped)

	if got := st.findDefinition("x", "class:C"); got != scoped {
		t.Fatalf("scoped lookup returned %+v, want the template arg", got)
	}
	if got := st.findDefinition("x", "class:Other"); got != global {
		t.Fatalf("lookup in an unrelated scope returned %+v, want the global", got)
	}
	if got := st.findDefinition("x", ""); got != global {
		t.Fatalf("global lookup returned %+v", got)
	}
}

func TestFindAllDefinitionsOrdersFullFirst(t *testing.T) {
	st := newSymbolTable()
	st.add(&symbol{name: "Reg", kind: symClass, path: "/a.td", forward: true})
	st.add(&symbol{name: "Reg", kind: symClass, path: "/b.td"})
	st.add(&symbol{name: "Reg", kind: symTemplateArg, path: "/c.td", scope: "class:C"})

	got := st.findAllDefinitions("Reg")
	if len(got) != 3 {
		t.Fatalf("findAllDefinitions returned %d symbols, want 3", len(got))
	}
	if got[0].forward {
		t.Fatalf("full definitions must precede forward declarations: %+v", got)
	}
	if !got[len(got)-1].forward {
		t.Fatalf("forward declaration must sort last: %+v", got)
	}
}

func TestSymbolAtPrefersReferences(t *testing.T) {
	st := newSymbolTable()
	st.add(&symbol{name: "decl", kind: symDef, path: "/a.td", rng: rangeAt(0, 4, 8)})
	st.addRef(&reference{name: "use", path: "/a.td", rng: rangeAt(0, 4, 8), scope: "def:X"})

	name, scope, _, ok := st.symbolAt("/a.td", tgen.Position{Line: 0, Character: 5})
	if !ok || name != "use" || scope != "def:X" {
		t.Fatalf("symbolAt = %q/%q/%v, want the reference", name, scope, ok)
	}

	// Declarations still hit when no reference covers the position.
	name, _, _, ok = st.symbolAt("/a.td", tgen.Position{Line: 0, Character: 8})
	if !ok || name != "use" {
		t.Fatalf("inclusive end containment failed: %q %v", name, ok)
	}
	if _, _, _, ok := st.symbolAt("/a.td", tgen.Position{Line: 3, Character: 0}); ok {
		t.Fatalf("symbolAt hit at an empty position")
	}
}

func TestFileGlobalsSkipsScopedAndSynthetic(t *testing.T) {
	st := newSymbolTable()
	st.add(&symbol{name: "Reg", kind: symClass, path: "/a.td"})
	st.add(&symbol{name: "Num", kind: symField, path: "/a.td", scope: "class:Reg"})
	st.add(&symbol{name: "Z_a", kind: symDef, path: "/a.td", synthetic: true})
	st.add(&symbol{name: "R0", kind: symDef, path: "/a.td"})

	got := st.fileGlobals("/a.td")
	if len(got) != 2 || got[0].name != "Reg" || got[1].name != "R0" {
		var names []string
		for _, s := range got {
			names = append(names, s.name)
		}
		t.Fatalf("fileGlobals = %v, want [Reg R0]", names)
	}
}
