// typesys_test.go
package engine

import (
	"testing"
)

func regClass(name string, parents []string, fields ...string) *classInfo {
	ci := &classInfo{name: name, kind: symClass, path: "/" + name + ".td", parents: parents}
	for _, f := range fields {
		ci.addField(fieldInfo{name: f, typ: typeInfo{kind: typeBuiltin, name: "int"}, path: ci.path})
	}
	return ci
}

func TestParseTypeText(t *testing.T) {
	cases := []struct {
		in   string
		kind typeKind
		name string
	}{
		{"int", typeBuiltin, "int"},
		{"string", typeBuiltin, "string"},
		{"dag", typeBuiltin, "dag"},
		{"bits<4>", typeBits, ""},
		{"list<int>", typeList, ""},
		{"list<list<Foo>>", typeList, ""},
		{"Register", typeClass, "Register"},
		{`Register<"r0">`, typeClass, "Register"},
	}
	for _, c := range cases {
		got := parseTypeText(c.in)
		if got.kind != c.kind {
			t.Errorf("parseTypeText(%q).kind = %v, want %v", c.in, got.kind, c.kind)
		}
		if c.name != "" && got.name != c.name {
			t.Errorf("parseTypeText(%q).name = %q, want %q", c.in, got.name, c.name)
		}
	}

	if got := parseTypeText("bits<4>"); got.width != 4 {
		t.Errorf("bits<4> width = %d", got.width)
	}
	if got := parseTypeText("list<list<Foo>>"); got.elem == nil || got.elem.kind != typeList {
		t.Errorf("nested list element = %+v", got.elem)
	}
	if got := parseTypeText("list<Reg>").String(); got != "list<Reg>" {
		t.Errorf("String() round-trip = %q", got)
	}
}

func TestMergedFieldsIncludeInherited(t *testing.T) {
	cr := newClassRegistry()
	cr.add(regClass("Base", nil, "Size", "Prefix"))
	cr.add(regClass("Child", []string{"Base"}, "Extra"))

	got := cr.getAllFields("Child")
	if len(got) != 3 {
		t.Fatalf("Child merged fields = %d, want 3 (%v)", len(got), got)
	}
	for _, f := range []string{"Size", "Prefix", "Extra"} {
		if _, ok := got[f]; !ok {
			t.Errorf("merged view missing %q", f)
		}
	}
}

func TestMergedFieldsLaterParentWins(t *testing.T) {
	cr := newClassRegistry()
	a := regClass("A", nil, "x")
	b := regClass("B", nil, "x")
	cr.add(a)
	cr.add(b)
	cr.add(regClass("C", []string{"A", "B"}))

	got := cr.getAllFields("C")
	if got["x"].path != b.path {
		t.Fatalf("merged x came from %q, want the later parent B", got["x"].path)
	}

	// Own fields beat every parent.
	cr.add(regClass("D", []string{"A", "B"}, "x"))
	if got := cr.getAllFields("D"); got["x"].class != "D" {
		t.Fatalf("own field lost to a parent: %+v", got["x"])
	}
}

func TestFindFieldDefinitionFirstParentWins(t *testing.T) {
	cr := newClassRegistry()
	a := regClass("A", nil, "x")
	cr.add(a)
	cr.add(regClass("B", nil, "x"))
	cr.add(regClass("C", []string{"A", "B"}))

	got := cr.findFieldDefinition("C", "x")
	if got == nil || got.path != a.path {
		t.Fatalf("findFieldDefinition resolved to %+v, want A's x (declaration-order DFS)", got)
	}
	if cr.findFieldDefinition("C", "missing") != nil {
		t.Fatalf("resolved a field that does not exist")
	}
}

func TestFieldResolutionCycleTerminates(t *testing.T) {
	cr := newClassRegistry()
	cr.add(regClass("A", []string{"B"}))
	cr.add(regClass("B", []string{"A"}, "x"))

	if got := cr.findFieldDefinition("A", "x"); got == nil {
		t.Fatalf("cycle guard dropped a resolvable field")
	}
	if got := cr.getAllFields("A"); len(got) != 1 {
		t.Fatalf("merged fields across a cycle = %v", got)
	}
}

func TestForwardDeclarationNeverDisplacesDefinition(t *testing.T) {
	cr := newClassRegistry()
	full := regClass("Reg", nil, "Num")
	cr.add(full)
	cr.add(&classInfo{name: "Reg", kind: symClass, path: "/fwd.td", forward: true})

	if got := cr.get("Reg"); got != full {
		t.Fatalf("forward declaration displaced the definition: %+v", got)
	}

	// In the other order the definition wins by overwriting.
	cr2 := newClassRegistry()
	cr2.add(&classInfo{name: "Reg", kind: symClass, path: "/fwd.td", forward: true})
	full2 := regClass("Reg", nil, "Num")
	cr2.add(full2)
	if got := cr2.get("Reg"); got != full2 {
		t.Fatalf("definition did not displace the forward declaration: %+v", got)
	}
}

// Re-registering a base class invalidates its own merged-field cache but
// deliberately not its subclasses': their cached view stays stale until
// they are re-registered themselves. This pins the policy down so a
// change to it is a conscious one.
func TestSubclassCacheIsNotCascaded(t *testing.T) {
	cr := newClassRegistry()
	cr.add(regClass("Base", nil, "a"))
	cr.add(regClass("Child", []string{"Base"}))

	if got := cr.getAllFields("Child"); len(got) != 1 {
		t.Fatalf("initial merged view = %v", got)
	}

	cr.add(regClass("Base", nil, "a", "b"))
	if got := cr.getAllFields("Child"); len(got) != 1 {
		t.Fatalf("subclass cache unexpectedly refreshed: %v", got)
	}

	// Re-registering the subclass rebuilds its view.
	cr.add(regClass("Child", []string{"Base"}))
	if got := cr.getAllFields("Child"); len(got) != 2 {
		t.Fatalf("refreshed merged view = %v, want 2 fields", got)
	}
}

func TestRemoveFileRespectsOverwrites(t *testing.T) {
	cr := newClassRegistry()
	cr.add(regClass("Reg", nil))         // /Reg.td
	other := regClass("Reg", nil, "Num") // same name, different file
	other.path = "/other.td"
	for i := range other.fields {
		other.fields[i].path = other.path
	}
	cr.add(other)

	// Evicting the first file must not delete the overwriting registration.
	cr.removeFile("/Reg.td")
	if got := cr.get("Reg"); got != other {
		t.Fatalf("removeFile evicted another file's class: %+v", got)
	}
	cr.removeFile("/other.td")
	if cr.get("Reg") != nil {
		t.Fatalf("class survived its own file's eviction")
	}
}

func TestInheritanceQueries(t *testing.T) {
	cr := newClassRegistry()
	cr.add(regClass("A", nil))
	cr.add(regClass("B", []string{"A"}))
	cr.add(regClass("C", []string{"B", "A"}))

	if !cr.inheritsFrom("C", "A") || !cr.inheritsFrom("C", "B") {
		t.Fatalf("transitive inheritance not detected")
	}
	if cr.inheritsFrom("A", "C") {
		t.Fatalf("inheritance inverted")
	}
	got := cr.getAllParentClasses("C")
	want := []string{"B", "A"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("getAllParentClasses(C) = %v, want %v", got, want)
	}
}
