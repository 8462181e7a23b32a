// ast.go: the TableGen syntax tree.
//
// Statements and expressions are two closed sum types (Stmt, Expr). Every
// node carries its full source range; declarations additionally carry the
// range of the declared name, which is what navigation results point at.
// The marker methods are unexported, so the sets of variants are sealed to
// this package and dispatch sites can switch exhaustively.
package tablegen

// File is the parse result for one source file: a best-effort statement
// list plus whatever diagnostics the parser recorded along the way.
type File struct {
	Statements []Stmt
	Errors     []Diagnostic
}

// Stmt is a top-level or body statement.
type Stmt interface {
	Range() Range
	stmtNode()
}

// Expr is a value expression.
type Expr interface {
	Range() Range
	exprNode()
}

// ─────────────────────────────── statements ───────────────────────────────

// TemplateArg is one `<type name = default>` entry.
type TemplateArg struct {
	Type       string // canonical type text, e.g. "bits<4>" or "list<Foo>"
	Name       string
	Default    Expr // nil when absent
	Rng        Range
	NameRange  Range
}

// ClassRef is a reference to a class, optionally instantiated: Name<a, b>.
// Used both as a parent-list entry and as a primary expression.
type ClassRef struct {
	Name      string
	Args      []Expr
	Rng       Range
	NameRange Range
}

// ClassDef is `class Name<…> : Parents { … }`. A forward declaration is
// exactly `class Name;` — no template args, no parents, no body. Any of
// those present makes it a full definition, even with an empty body.
type ClassDef struct {
	Name         string
	TemplateArgs []TemplateArg
	Parents      []*ClassRef
	Body         []Stmt
	Forward      bool
	Rng          Range
	NameRange    Range
}

// DefDef is `def Name : Parents { … }`. The name may be empty (anonymous).
type DefDef struct {
	Name      string
	Parents   []*ClassRef
	Body      []Stmt
	Rng       Range
	NameRange Range
}

// MultiClassDef is `multiclass Name<…> : Parents { … }`.
type MultiClassDef struct {
	Name         string
	TemplateArgs []TemplateArg
	Parents      []*ClassRef
	Body         []Stmt
	Rng          Range
	NameRange    Range
}

// DefmDef is `defm Name : MultiClasses;`. The name may be empty.
type DefmDef struct {
	Name      string
	Parents   []*ClassRef
	Rng       Range
	NameRange Range
}

// DefsetDef is `defset list<Foo> Name = { … }`.
type DefsetDef struct {
	Type      string // declared element-collection type text
	Name      string
	Body      []Stmt
	Rng       Range
	NameRange Range
}

// DefvarDef is `defvar Name = value;`.
type DefvarDef struct {
	Name      string
	Value     Expr
	Rng       Range
	NameRange Range
}

// FieldDef is a field declaration `type name = value;` (the leading
// `field` keyword is accepted and discarded).
type FieldDef struct {
	Type      string
	Name      string
	Value     Expr // nil when uninitialized
	Rng       Range
	NameRange Range
}

// LetBinding is one `name = value` entry of a let statement.
type LetBinding struct {
	Name      string
	Value     Expr
	NameRange Range
}

// LetStmt is `let a = x, b = y in body`.
type LetStmt struct {
	Bindings []LetBinding
	Body     []Stmt
	Rng      Range
}

// ForeachStmt is `foreach v = range in body`.
type ForeachStmt struct {
	Var       string
	VarRange  Range
	Seq       Expr
	Body      []Stmt
	Rng       Range
}

// IfStmt is `if cond then body else body`.
type IfStmt struct {
	Cond Expr
	Then []Stmt
	Else []Stmt
	Rng  Range
}

// IncludeStmt is `include "path"`.
type IncludeStmt struct {
	Path string
	Rng  Range
}

// AssertStmt is `assert cond, message;`. Parsed for structure only.
type AssertStmt struct {
	Cond    Expr
	Message Expr
	Rng     Range
}

func (s *ClassDef) Range() Range      { return s.Rng }
func (s *DefDef) Range() Range        { return s.Rng }
func (s *MultiClassDef) Range() Range { return s.Rng }
func (s *DefmDef) Range() Range       { return s.Rng }
func (s *DefsetDef) Range() Range     { return s.Rng }
func (s *DefvarDef) Range() Range     { return s.Rng }
func (s *FieldDef) Range() Range      { return s.Rng }
func (s *LetStmt) Range() Range       { return s.Rng }
func (s *ForeachStmt) Range() Range   { return s.Rng }
func (s *IfStmt) Range() Range        { return s.Rng }
func (s *IncludeStmt) Range() Range   { return s.Rng }
func (s *AssertStmt) Range() Range    { return s.Rng }

func (*ClassDef) stmtNode()      {}
func (*DefDef) stmtNode()        {}
func (*MultiClassDef) stmtNode() {}
func (*DefmDef) stmtNode()       {}
func (*DefsetDef) stmtNode()     {}
func (*DefvarDef) stmtNode()     {}
func (*FieldDef) stmtNode()      {}
func (*LetStmt) stmtNode()       {}
func (*ForeachStmt) stmtNode()   {}
func (*IfStmt) stmtNode()        {}
func (*IncludeStmt) stmtNode()   {}
func (*AssertStmt) stmtNode()    {}

// ─────────────────────────────── expressions ──────────────────────────────

// Identifier is a bare name.
type Identifier struct {
	Name string
	Rng  Range
}

// NumberLit preserves the literal's raw spelling (hex/binary/negative).
type NumberLit struct {
	Text string
	Rng  Range
}

// StringLit holds the unescaped string value.
type StringLit struct {
	Value string
	Rng   Range
}

// CodeLit holds the verbatim text of a [{ … }] block.
type CodeLit struct {
	Text string
	Rng  Range
}

// ListExpr is `[a, b, c]`.
type ListExpr struct {
	Elements []Expr
	Rng      Range
}

// DagArg is one dag argument, optionally tagged `:$name`.
type DagArg struct {
	Value Expr
	Name  string // without the '$'; empty when untagged
}

// DagExpr is `(op arg:$a, arg, …)`.
type DagExpr struct {
	Op   Expr
	Args []DagArg
	Rng  Range
}

// BangExpr is `!op<TypeText>(args…)`. TypeText is the raw, canonical text
// of the optional bracketed type argument (nested brackets preserved);
// downstream consumers pattern-match on it rather than on a parsed type.
type BangExpr struct {
	Op       string // including the '!'
	TypeText string // empty when absent
	Args     []Expr
	Rng      Range
}

// FieldAccess is `object.field`.
type FieldAccess struct {
	Object     Expr
	Field      string
	FieldRange Range
	Rng        Range
}

// PasteExpr is `a # b`, the string/name paste operator. Structural only.
type PasteExpr struct {
	Lhs Expr
	Rhs Expr
	Rng Range
}

func (e *Identifier) Range() Range  { return e.Rng }
func (e *NumberLit) Range() Range   { return e.Rng }
func (e *StringLit) Range() Range   { return e.Rng }
func (e *CodeLit) Range() Range     { return e.Rng }
func (e *ListExpr) Range() Range    { return e.Rng }
func (e *DagExpr) Range() Range     { return e.Rng }
func (e *BangExpr) Range() Range    { return e.Rng }
func (e *FieldAccess) Range() Range { return e.Rng }
func (e *ClassRef) Range() Range    { return e.Rng }
func (e *PasteExpr) Range() Range   { return e.Rng }

func (*Identifier) exprNode()  {}
func (*NumberLit) exprNode()   {}
func (*StringLit) exprNode()   {}
func (*CodeLit) exprNode()     {}
func (*ListExpr) exprNode()    {}
func (*DagExpr) exprNode()     {}
func (*BangExpr) exprNode()    {}
func (*FieldAccess) exprNode() {}
func (*ClassRef) exprNode()    {}
func (*PasteExpr) exprNode()   {}
