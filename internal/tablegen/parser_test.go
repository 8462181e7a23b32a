// parser_test.go
package tablegen

import (
	"strings"
	"testing"
)

func parse(t *testing.T, src string) *File {
	t.Helper()
	return Parse(src)
}

func parseClean(t *testing.T, src string) *File {
	t.Helper()
	f := Parse(src)
	if len(f.Errors) != 0 {
		t.Fatalf("unexpected parse errors for\n%s\n%v", src, f.Errors)
	}
	return f
}

func onlyStmt(t *testing.T, f *File) Stmt {
	t.Helper()
	if len(f.Statements) != 1 {
		t.Fatalf("want 1 statement, got %d", len(f.Statements))
	}
	return f.Statements[0]
}

func Test_Parser_ForwardDeclaration_Rule(t *testing.T) {
	cases := []struct {
		src     string
		forward bool
	}{
		{`class Foo;`, true},
		{`class Foo<int N> ;`, false},
		{`class Foo : Bar;`, false},
		{`class Foo {}`, false},
	}
	for _, c := range cases {
		cd, ok := onlyStmt(t, parseClean(t, c.src)).(*ClassDef)
		if !ok {
			t.Fatalf("%s: not a ClassDef", c.src)
		}
		if cd.Forward != c.forward {
			t.Errorf("%s: forward = %v, want %v", c.src, cd.Forward, c.forward)
		}
	}
}

func Test_Parser_ClassHeader_Full(t *testing.T) {
	src := `class Foo<int n = 4, string s> : Bar<n>, Baz { int x = n; }`
	cd := onlyStmt(t, parseClean(t, src)).(*ClassDef)
	if cd.Name != "Foo" {
		t.Fatalf("name: %q", cd.Name)
	}
	if len(cd.TemplateArgs) != 2 {
		t.Fatalf("template args: %d", len(cd.TemplateArgs))
	}
	if cd.TemplateArgs[0].Type != "int" || cd.TemplateArgs[0].Name != "n" || cd.TemplateArgs[0].Default == nil {
		t.Fatalf("arg0: %+v", cd.TemplateArgs[0])
	}
	if cd.TemplateArgs[1].Type != "string" || cd.TemplateArgs[1].Name != "s" || cd.TemplateArgs[1].Default != nil {
		t.Fatalf("arg1: %+v", cd.TemplateArgs[1])
	}
	if len(cd.Parents) != 2 || cd.Parents[0].Name != "Bar" || cd.Parents[1].Name != "Baz" {
		t.Fatalf("parents: %+v", cd.Parents)
	}
	if len(cd.Parents[0].Args) != 1 {
		t.Fatalf("Bar args: %+v", cd.Parents[0].Args)
	}
	if len(cd.Body) != 1 {
		t.Fatalf("body: %+v", cd.Body)
	}
}

func Test_Parser_TemplateArg_CompoundTypes(t *testing.T) {
	src := `class A<bits<4> w, list<list<Foo>> xs> {}`
	cd := onlyStmt(t, parseClean(t, src)).(*ClassDef)
	if cd.TemplateArgs[0].Type != "bits<4>" {
		t.Fatalf("arg0 type: %q", cd.TemplateArgs[0].Type)
	}
	if cd.TemplateArgs[1].Type != "list<list<Foo>>" {
		t.Fatalf("arg1 type: %q", cd.TemplateArgs[1].Type)
	}
}

func Test_Parser_TemplateArg_Unnamed_Dropped(t *testing.T) {
	f := parse(t, `class A<int> {}`)
	cd := onlyStmt(t, f).(*ClassDef)
	if len(cd.TemplateArgs) != 0 {
		t.Fatalf("want no args, got %+v", cd.TemplateArgs)
	}
	// Still a full definition: a template list was attempted and a body given.
	if cd.Forward {
		t.Fatal("should not be a forward declaration")
	}
}

func Test_Parser_BangCast_TypeTextCapture(t *testing.T) {
	src := `defvar x = !cast<Foo<Bar>>(y);`
	dv := onlyStmt(t, parseClean(t, src)).(*DefvarDef)
	bang, ok := dv.Value.(*BangExpr)
	if !ok {
		t.Fatalf("value is %T", dv.Value)
	}
	if bang.Op != "!cast" {
		t.Fatalf("op: %q", bang.Op)
	}
	if bang.TypeText != "Foo<Bar>" {
		t.Fatalf("type text: %q", bang.TypeText)
	}
	if len(bang.Args) != 1 {
		t.Fatalf("args: %+v", bang.Args)
	}
}

func Test_Parser_Bang_StringArg_Requoted(t *testing.T) {
	src := `defvar x = !cast<Reg<"r0">>(y);`
	dv := onlyStmt(t, parseClean(t, src)).(*DefvarDef)
	bang := dv.Value.(*BangExpr)
	if bang.TypeText != `Reg<"r0">` {
		t.Fatalf("type text: %q", bang.TypeText)
	}
}

func Test_Parser_FieldDeclarations(t *testing.T) {
	src := `
class C {
  int a;
  bits<4> b = 7;
  field code c;
  Foo f;
  list<Foo> fs = [];
}`
	cd := onlyStmt(t, parseClean(t, src)).(*ClassDef)
	want := []struct{ typ, name string }{
		{"int", "a"},
		{"bits<4>", "b"},
		{"code", "c"},
		{"Foo", "f"},
		{"list<Foo>", "fs"},
	}
	if len(cd.Body) != len(want) {
		t.Fatalf("body: %d stmts", len(cd.Body))
	}
	for i, w := range want {
		fd, ok := cd.Body[i].(*FieldDef)
		if !ok {
			t.Fatalf("stmt %d: %T", i, cd.Body[i])
		}
		if fd.Type != w.typ || fd.Name != w.name {
			t.Errorf("field %d: got %q %q, want %q %q", i, fd.Type, fd.Name, w.typ, w.name)
		}
	}
}

func Test_Parser_Def_AnonymousAndNamed(t *testing.T) {
	f := parseClean(t, `def : Base {} def named : Base;`)
	if len(f.Statements) != 2 {
		t.Fatalf("stmts: %d", len(f.Statements))
	}
	anon := f.Statements[0].(*DefDef)
	if anon.Name != "" || len(anon.Parents) != 1 {
		t.Fatalf("anon: %+v", anon)
	}
	named := f.Statements[1].(*DefDef)
	if named.Name != "named" {
		t.Fatalf("named: %+v", named)
	}
}

func Test_Parser_Defm(t *testing.T) {
	dm := onlyStmt(t, parseClean(t, `defm Z : A<1>, B;`)).(*DefmDef)
	if dm.Name != "Z" || len(dm.Parents) != 2 {
		t.Fatalf("defm: %+v", dm)
	}
}

func Test_Parser_Defset_NestedType(t *testing.T) {
	src := `defset list<Foo<Bar>> S = { def x; }`
	ds := onlyStmt(t, parseClean(t, src)).(*DefsetDef)
	if ds.Type != "list<Foo<Bar>>" || ds.Name != "S" || len(ds.Body) != 1 {
		t.Fatalf("defset: %+v", ds)
	}
}

func Test_Parser_Let_BothForms(t *testing.T) {
	f := parseClean(t, `
let isPseudo = 1, ns = "X" in {
  def a;
}
class C { let Prefix = "p"; }
`)
	ls := f.Statements[0].(*LetStmt)
	if len(ls.Bindings) != 2 || ls.Bindings[0].Name != "isPseudo" || ls.Bindings[1].Name != "ns" {
		t.Fatalf("bindings: %+v", ls.Bindings)
	}
	if len(ls.Body) != 1 {
		t.Fatalf("body: %+v", ls.Body)
	}
	cd := f.Statements[1].(*ClassDef)
	inner := cd.Body[0].(*LetStmt)
	if len(inner.Bindings) != 1 || inner.Bindings[0].Name != "Prefix" || inner.Body != nil {
		t.Fatalf("inner let: %+v", inner)
	}
}

func Test_Parser_Let_SingleTrailingStatement(t *testing.T) {
	ls := onlyStmt(t, parseClean(t, `let x = 1 in def a;`)).(*LetStmt)
	if len(ls.Body) != 1 {
		t.Fatalf("body: %+v", ls.Body)
	}
	if _, ok := ls.Body[0].(*DefDef); !ok {
		t.Fatalf("body stmt: %T", ls.Body[0])
	}
}

func Test_Parser_ForeachAndIf(t *testing.T) {
	f := parseClean(t, `
foreach i = [1, 2] in { def a; }
if cond then { def b; } else { def c; }
`)
	fe := f.Statements[0].(*ForeachStmt)
	if fe.Var != "i" || len(fe.Body) != 1 {
		t.Fatalf("foreach: %+v", fe)
	}
	is := f.Statements[1].(*IfStmt)
	if len(is.Then) != 1 || len(is.Else) != 1 {
		t.Fatalf("if: %+v", is)
	}
}

func Test_Parser_Include(t *testing.T) {
	inc := onlyStmt(t, parseClean(t, `include "sub/file.td"`)).(*IncludeStmt)
	if inc.Path != "sub/file.td" {
		t.Fatalf("path: %q", inc.Path)
	}
}

func Test_Parser_Assert(t *testing.T) {
	as := onlyStmt(t, parseClean(t, `assert x, "message";`)).(*AssertStmt)
	if as.Cond == nil || as.Message == nil {
		t.Fatalf("assert: %+v", as)
	}
}

func Test_Parser_DagWithTaggedArgs(t *testing.T) {
	src := `def d { dag q = (ops A:$a, B); }`
	dd := onlyStmt(t, parseClean(t, src)).(*DefDef)
	fd := dd.Body[0].(*FieldDef)
	dag := fd.Value.(*DagExpr)
	if op, ok := dag.Op.(*Identifier); !ok || op.Name != "ops" {
		t.Fatalf("dag op: %+v", dag.Op)
	}
	if len(dag.Args) != 2 || dag.Args[0].Name != "a" || dag.Args[1].Name != "" {
		t.Fatalf("dag args: %+v", dag.Args)
	}
}

func Test_Parser_FieldAccessChain(t *testing.T) {
	src := `defvar v = a.b.c;`
	dv := onlyStmt(t, parseClean(t, src)).(*DefvarDef)
	fa := dv.Value.(*FieldAccess)
	if fa.Field != "c" {
		t.Fatalf("outer field: %q", fa.Field)
	}
	inner := fa.Object.(*FieldAccess)
	if inner.Field != "b" {
		t.Fatalf("inner field: %q", inner.Field)
	}
}

func Test_Parser_PasteExpr(t *testing.T) {
	src := `def a { string s = "x" # suffix; }`
	dd := onlyStmt(t, parseClean(t, src)).(*DefDef)
	fd := dd.Body[0].(*FieldDef)
	if _, ok := fd.Value.(*PasteExpr); !ok {
		t.Fatalf("value: %T", fd.Value)
	}
}

func Test_Parser_MalformedInput_Terminates(t *testing.T) {
	cases := []string{
		`class`,
		`class {`,
		`class Foo<`,
		`class Foo<int n { def`,
		`def x : <>;`,
		`defvar = ;`,
		`let in`,
		`< > ; , = . } { ] [`,
		`!cast<Unclosed(`,
		`(a (b (c`,
	}
	for _, src := range cases {
		f := Parse(src) // must not hang or panic
		_ = f.Statements
	}
}

func Test_Parser_ErrorsRecorded_WithRanges(t *testing.T) {
	f := parse(t, "class Foo : {\n  int = 3\n}")
	if len(f.Errors) == 0 {
		t.Fatal("expected diagnostics")
	}
	for _, d := range f.Errors {
		if d.Msg == "" {
			t.Fatal("empty diagnostic message")
		}
	}
}

func Test_Parser_NoiseStatement_SkippedWithoutError(t *testing.T) {
	f := parse(t, "; ; def a;")
	if len(f.Errors) != 0 {
		t.Fatalf("noise produced errors: %v", f.Errors)
	}
	if len(f.Statements) != 1 {
		t.Fatalf("stmts: %d", len(f.Statements))
	}
}

func Test_Render_CaretSnippet(t *testing.T) {
	src := "class Foo : Bar {\n  int x = 1\n}"
	f := parse(t, src)
	if len(f.Errors) == 0 {
		t.Fatal("expected a missing-semicolon diagnostic")
	}
	out := Render(f.Errors[0], "Foo.td", src)
	if !strings.Contains(out, "Foo.td") || !strings.Contains(out, "^") {
		t.Fatalf("render output:\n%s", out)
	}
}
