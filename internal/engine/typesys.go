// internal/engine/typesys.go
//
// ROLE: Class/def/multiclass/defm registry with inheritance-aware field
//       resolution.
//
// Registration rule: a full definition always beats a forward declaration,
// in either order of arrival; two full definitions overwrite (last write
// wins). Re-registering a name invalidates that name's cached merged-field
// view — and only that name's: subclass caches are NOT cascaded. Editing a
// base class therefore leaves an untouched subclass's merged view stale
// until the subclass's own file is re-indexed or a full reindex runs.
// That coarse policy is inherited behavior, kept deliberately (DESIGN.md).

package engine

import (
	"strconv"
	"strings"

	tgen "github.com/shiltian/vscode-llvm-tblgen-language-support/internal/tablegen"
)

// typeKind tags a typeInfo.
type typeKind int

const (
	typeBuiltin typeKind = iota
	typeClass
	typeList
	typeBits
)

// typeInfo is a resolved field type.
type typeInfo struct {
	kind  typeKind
	name  string    // builtin or class name
	elem  *typeInfo // list element
	width int       // bits width
}

func (t typeInfo) String() string {
	switch t.kind {
	case typeList:
		if t.elem != nil {
			return "list<" + t.elem.String() + ">"
		}
		return "list<?>"
	case typeBits:
		return "bits<" + strconv.Itoa(t.width) + ">"
	default:
		return t.name
	}
}

var builtinTypes = map[string]bool{
	"bit": true, "int": true, "string": true, "code": true, "dag": true,
}

// parseTypeText interprets a canonical type spelling ("bits<4>",
// "list<list<Foo>>", "int", "Foo") as a typeInfo. Unknown spellings come
// back as class references, which is what they are in practice.
func parseTypeText(s string) typeInfo {
	s = strings.TrimSpace(s)
	switch {
	case builtinTypes[s]:
		return typeInfo{kind: typeBuiltin, name: s}
	case strings.HasPrefix(s, "bits<") && strings.HasSuffix(s, ">"):
		w, _ := strconv.Atoi(s[len("bits<") : len(s)-1])
		return typeInfo{kind: typeBits, width: w}
	case strings.HasPrefix(s, "list<") && strings.HasSuffix(s, ">"):
		elem := parseTypeText(s[len("list<") : len(s)-1])
		return typeInfo{kind: typeList, elem: &elem}
	default:
		return typeInfo{kind: typeClass, name: leadingIdent(s)}
	}
}

// leadingIdent strips any template-argument suffix, keeping the leading
// identifier ("Foo<Bar>" → "Foo").
func leadingIdent(s string) string {
	s = strings.TrimSpace(s)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
			return s[:i]
		}
	}
	return s
}

// fieldInfo is one field declaration, with the class that declared it.
type fieldInfo struct {
	name  string
	typ   typeInfo
	path  string
	rng   tgen.Range
	class string
}

// classArg is one template/class argument.
type classArg struct {
	name       string
	typ        string // raw type text
	hasDefault bool
	path       string
	rng        tgen.Range
}

// classInfo describes one registered class-like record.
type classInfo struct {
	name    string
	kind    symbolKind // symClass | symMulticlass | symDef | symDefm
	path    string
	rng     tgen.Range
	parents []string // declaration order; significant for tie-breaks
	args    []classArg
	fields  []fieldInfo // own fields only, declaration order
	forward bool

	allFields map[string]fieldInfo // lazy merged view incl. inherited
}

func (ci *classInfo) addField(f fieldInfo) {
	f.class = ci.name
	ci.fields = append(ci.fields, f)
}

func (ci *classInfo) ownField(name string) *fieldInfo {
	for i := range ci.fields {
		if ci.fields[i].name == name {
			return &ci.fields[i]
		}
	}
	return nil
}

func (ci *classInfo) arg(name string) *classArg {
	for i := range ci.args {
		if ci.args[i].name == name {
			return &ci.args[i]
		}
	}
	return nil
}

type classRegistry struct {
	classes map[string]*classInfo
	byFile  map[string]map[string]bool // path -> registered names
}

func newClassRegistry() *classRegistry {
	return &classRegistry{
		classes: make(map[string]*classInfo),
		byFile:  make(map[string]map[string]bool),
	}
}

func (cr *classRegistry) get(name string) *classInfo { return cr.classes[name] }

// add registers a class under the definition-over-forward precedence rule
// and invalidates the target's merged-field cache.
func (cr *classRegistry) add(ci *classInfo) {
	if ci.name == "" {
		return
	}
	if old := cr.classes[ci.name]; old != nil && ci.forward && !old.forward {
		// A forward declaration never displaces a full definition.
		old.allFields = nil
		cr.noteFile(ci.path, ci.name)
		return
	}
	ci.allFields = nil
	cr.classes[ci.name] = ci
	cr.noteFile(ci.path, ci.name)
}

func (cr *classRegistry) noteFile(path, name string) {
	m := cr.byFile[path]
	if m == nil {
		m = make(map[string]bool)
		cr.byFile[path] = m
	}
	m[name] = true
}

// removeFile evicts the classes a file registered, unless another file has
// since overwritten the name.
func (cr *classRegistry) removeFile(path string) {
	for name := range cr.byFile[path] {
		if ci := cr.classes[name]; ci != nil && ci.path == path {
			delete(cr.classes, name)
		}
	}
	delete(cr.byFile, path)
}

// getAllFields returns the merged field view of a class: parents first in
// declaration order (later parents overwrite earlier on collision), own
// fields last (children always win). Cached per class.
func (cr *classRegistry) getAllFields(name string) map[string]fieldInfo {
	return cr.mergedFields(name, map[string]bool{})
}

func (cr *classRegistry) mergedFields(name string, visiting map[string]bool) map[string]fieldInfo {
	ci := cr.classes[name]
	if ci == nil || visiting[name] {
		return nil
	}
	if ci.allFields != nil {
		return ci.allFields
	}
	visiting[name] = true
	merged := make(map[string]fieldInfo)
	for _, parent := range ci.parents {
		for fname, f := range cr.mergedFields(parent, visiting) {
			merged[fname] = f
		}
	}
	for _, f := range ci.fields {
		merged[f.name] = f
	}
	delete(visiting, name)
	ci.allFields = merged
	return merged
}

// findFieldDefinition resolves a field depth-first: the class's own field
// wins, else the first parent (in declaration order) that resolves it.
// No merging, no diamond-ambiguity detection: first match wins.
func (cr *classRegistry) findFieldDefinition(name, field string) *fieldInfo {
	return cr.findField(name, field, map[string]bool{})
}

func (cr *classRegistry) findField(name, field string, visiting map[string]bool) *fieldInfo {
	ci := cr.classes[name]
	if ci == nil || visiting[name] {
		return nil
	}
	visiting[name] = true
	if f := ci.ownField(field); f != nil {
		return f
	}
	for _, parent := range ci.parents {
		if f := cr.findField(parent, field, visiting); f != nil {
			return f
		}
	}
	return nil
}

// inheritsFrom reports whether class name transitively inherits ancestor.
func (cr *classRegistry) inheritsFrom(name, ancestor string) bool {
	for _, p := range cr.getAllParentClasses(name) {
		if p == ancestor {
			return true
		}
	}
	return false
}

// getAllParentClasses lists the transitive parents of a class, preorder,
// first occurrence only.
func (cr *classRegistry) getAllParentClasses(name string) []string {
	var out []string
	seen := map[string]bool{name: true}
	var walk func(string)
	walk = func(n string) {
		ci := cr.classes[n]
		if ci == nil {
			return
		}
		for _, p := range ci.parents {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
				walk(p)
			}
		}
	}
	walk(name)
	return out
}
