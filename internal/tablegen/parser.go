// parser.go: error-tolerant recursive-descent parser for TableGen.
//
// Contract: Parse always returns a File. It never fails, never panics, and
// never loops forever on malformed input. Structural mismatches are
// recorded as diagnostics and parsing continues with the actual token;
// every delimiter-awaiting loop either makes progress or force-advances
// one token.
//
// Grammar notes that are easy to trip over:
//   - `class Name;` with no template args, parents, or body is a forward
//     declaration; anything else (even `class Name {}`) is a definition.
//   - Bang operators capture their optional <…> type argument as raw text
//     (nested angles preserved, strings re-quoted); consumers pattern-match
//     on that text, they do not get a structured type.
//   - Statement dispatch: reserved keyword selects a construct, a leading
//     identifier is tried as a field declaration, anything else is noise
//     and skipped without a diagnostic.
package tablegen

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse lexes and parses src into a best-effort File.
func Parse(src string) *File {
	toks := NewLexer(src).Scan()
	p := &parser{toks: toks}
	f := &File{}
	for !p.atEnd() {
		before := p.i
		if s := p.statement(); s != nil {
			f.Statements = append(f.Statements, s)
		}
		if p.i == before {
			p.i++ // no progress: drop one token rather than spin
		}
	}
	f.Errors = p.errs
	return f
}

type parser struct {
	toks []Token
	i    int
	errs []Diagnostic
}

// ─────────────────────────── token plumbing ───────────────────────────

func (p *parser) peek() Token {
	if p.i >= len(p.toks) {
		return p.toks[len(p.toks)-1] // the EOF token
	}
	return p.toks[p.i]
}

func (p *parser) peekNext() Token {
	if p.i+1 >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.i+1]
}

func (p *parser) atEnd() bool { return p.peek().Kind == EOF }

func (p *parser) advance() Token {
	t := p.peek()
	if p.i < len(p.toks)-1 {
		p.i++
	} else {
		p.i = len(p.toks)
	}
	return t
}

func (p *parser) prevEnd() Position {
	if p.i == 0 {
		return Position{}
	}
	j := p.i - 1
	if j >= len(p.toks) {
		j = len(p.toks) - 1
	}
	return p.toks[j].Rng.End
}

func (p *parser) check(kind TokenKind, text string) bool {
	t := p.peek()
	return t.Kind == kind && (text == "" || t.Text == text)
}

func (p *parser) checkPunct(text string) bool { return p.check(PUNCT, text) }
func (p *parser) checkKw(text string) bool    { return p.check(KEYWORD, text) }

func (p *parser) match(kind TokenKind, text string) bool {
	if p.check(kind, text) {
		p.advance()
		return true
	}
	return false
}

func (p *parser) matchPunct(text string) bool { return p.match(PUNCT, text) }
func (p *parser) matchKw(text string) bool    { return p.match(KEYWORD, text) }

// expect records a diagnostic when the required token is absent, and in
// that case returns the actual token without consuming it. Callers carry
// on either way.
func (p *parser) expect(kind TokenKind, text, what string) Token {
	if p.check(kind, text) {
		return p.advance()
	}
	p.errorAt(p.peek().Rng, "expected %s", what)
	return p.peek()
}

func (p *parser) errorAt(rng Range, format string, args ...any) {
	p.errs = append(p.errs, Diagnostic{Msg: fmt.Sprintf(format, args...), Rng: rng})
}

func (p *parser) rangeFrom(start Token) Range {
	return Range{Start: start.Rng.Start, End: p.prevEnd()}
}

// ───────────────────────────── statements ─────────────────────────────

func (p *parser) statement() Stmt {
	t := p.peek()
	switch t.Kind {
	case KEYWORD:
		switch t.Text {
		case "class":
			return p.classDef()
		case "def":
			return p.defDef()
		case "defm":
			return p.defmDef()
		case "multiclass":
			return p.multiClassDef()
		case "defset":
			return p.defsetDef()
		case "defvar":
			return p.defvarDef()
		case "let":
			return p.letStmt()
		case "foreach":
			return p.foreachStmt()
		case "if":
			return p.ifStmt()
		case "include":
			return p.includeStmt()
		case "assert":
			return p.assertStmt()
		case "field", "bit", "bits", "int", "string", "code", "dag", "list":
			return p.fieldDef()
		default:
			// Reserved word with no statement form here (in, then, else,
			// true, false, dump): noise.
			p.advance()
			return nil
		}
	case IDENT:
		return p.fieldDef()
	default:
		p.advance()
		return nil
	}
}

// body parses `{ stmt* }`. ok is false when there was no opening brace.
func (p *parser) body() (stmts []Stmt, ok bool) {
	if !p.matchPunct("{") {
		return nil, false
	}
	for !p.checkPunct("}") && !p.atEnd() {
		before := p.i
		if s := p.statement(); s != nil {
			stmts = append(stmts, s)
		}
		if p.i == before {
			p.i++
		}
	}
	p.expect(PUNCT, "}", "'}'")
	return stmts, true
}

// bodyOrStmt parses either a braced statement list or one trailing
// statement (the let/foreach/if body rule).
func (p *parser) bodyOrStmt() []Stmt {
	if stmts, ok := p.body(); ok {
		return stmts
	}
	if s := p.statement(); s != nil {
		return []Stmt{s}
	}
	return nil
}

func (p *parser) classDef() Stmt {
	start := p.advance() // 'class'
	name := p.expect(IDENT, "", "class name")
	targs := p.templateArgs()
	var parents []*ClassRef
	if p.matchPunct(":") {
		parents = p.classRefList()
	}
	bodyStmts, hasBody := p.body()
	if !hasBody {
		p.expect(PUNCT, ";", "';'")
	}
	// Forward declaration iff nothing beyond the bare name was given.
	forward := !hasBody && len(targs) == 0 && len(parents) == 0
	return &ClassDef{
		Name:         name.Text,
		TemplateArgs: targs,
		Parents:      parents,
		Body:         bodyStmts,
		Forward:      forward,
		Rng:          p.rangeFrom(start),
		NameRange:    name.Rng,
	}
}

func (p *parser) defDef() Stmt {
	start := p.advance() // 'def'
	var name Token
	if p.check(IDENT, "") {
		name = p.advance()
	}
	var parents []*ClassRef
	if p.matchPunct(":") {
		parents = p.classRefList()
	}
	bodyStmts, hasBody := p.body()
	if !hasBody {
		p.expect(PUNCT, ";", "';'")
	}
	return &DefDef{
		Name:      name.Text,
		Parents:   parents,
		Body:      bodyStmts,
		Rng:       p.rangeFrom(start),
		NameRange: name.Rng,
	}
}

func (p *parser) defmDef() Stmt {
	start := p.advance() // 'defm'
	var name Token
	if p.check(IDENT, "") {
		name = p.advance()
	}
	var parents []*ClassRef
	if p.matchPunct(":") {
		parents = p.classRefList()
	}
	p.expect(PUNCT, ";", "';'")
	return &DefmDef{
		Name:      name.Text,
		Parents:   parents,
		Rng:       p.rangeFrom(start),
		NameRange: name.Rng,
	}
}

func (p *parser) multiClassDef() Stmt {
	start := p.advance() // 'multiclass'
	name := p.expect(IDENT, "", "multiclass name")
	targs := p.templateArgs()
	var parents []*ClassRef
	if p.matchPunct(":") {
		parents = p.classRefList()
	}
	bodyStmts, hasBody := p.body()
	if !hasBody {
		p.expect(PUNCT, ";", "';'")
	}
	return &MultiClassDef{
		Name:         name.Text,
		TemplateArgs: targs,
		Parents:      parents,
		Body:         bodyStmts,
		Rng:          p.rangeFrom(start),
		NameRange:    name.Rng,
	}
}

func (p *parser) defsetDef() Stmt {
	start := p.advance() // 'defset'
	typ := p.typeSpelling()
	name := p.expect(IDENT, "", "defset name")
	p.expect(PUNCT, "=", "'='")
	bodyStmts, _ := p.body()
	return &DefsetDef{
		Type:      typ,
		Name:      name.Text,
		Body:      bodyStmts,
		Rng:       p.rangeFrom(start),
		NameRange: name.Rng,
	}
}

func (p *parser) defvarDef() Stmt {
	start := p.advance() // 'defvar'
	name := p.expect(IDENT, "", "defvar name")
	p.expect(PUNCT, "=", "'='")
	value := p.value()
	p.expect(PUNCT, ";", "';'")
	return &DefvarDef{
		Name:      name.Text,
		Value:     value,
		Rng:       p.rangeFrom(start),
		NameRange: name.Rng,
	}
}

// letStmt handles both forms: `let a = x, b = y in body` and the
// record-body override `let a = x;`.
func (p *parser) letStmt() Stmt {
	start := p.advance() // 'let'
	var binds []LetBinding
	for {
		before := p.i
		if p.check(IDENT, "") {
			name := p.advance()
			p.expect(PUNCT, "=", "'='")
			value := p.value()
			binds = append(binds, LetBinding{Name: name.Text, Value: value, NameRange: name.Rng})
		} else {
			p.errorAt(p.peek().Rng, "expected let binding name")
		}
		if !p.matchPunct(",") {
			break
		}
		if p.i == before {
			p.i++
		}
	}
	var bodyStmts []Stmt
	if p.matchKw("in") {
		bodyStmts = p.bodyOrStmt()
	} else {
		p.expect(PUNCT, ";", "';'")
	}
	return &LetStmt{Bindings: binds, Body: bodyStmts, Rng: p.rangeFrom(start)}
}

func (p *parser) foreachStmt() Stmt {
	start := p.advance() // 'foreach'
	name := p.expect(IDENT, "", "loop variable")
	p.expect(PUNCT, "=", "'='")
	seq := p.value()
	// Range punctuation we don't model (e.g. `0-3` lexing as two numbers)
	// may sit between the sequence and `in`; skip up to it.
	for !p.atEnd() && !p.checkKw("in") && !p.checkPunct("{") && !p.checkPunct("}") && !p.checkPunct(";") {
		p.advance()
	}
	p.expect(KEYWORD, "in", "'in'")
	bodyStmts := p.bodyOrStmt()
	return &ForeachStmt{
		Var:      name.Text,
		VarRange: name.Rng,
		Seq:      seq,
		Body:     bodyStmts,
		Rng:      p.rangeFrom(start),
	}
}

func (p *parser) ifStmt() Stmt {
	start := p.advance() // 'if'
	cond := p.value()
	for !p.atEnd() && !p.checkKw("then") && !p.checkPunct("{") && !p.checkPunct("}") && !p.checkPunct(";") {
		p.advance()
	}
	p.expect(KEYWORD, "then", "'then'")
	thenStmts := p.bodyOrStmt()
	var elseStmts []Stmt
	if p.matchKw("else") {
		elseStmts = p.bodyOrStmt()
	}
	return &IfStmt{Cond: cond, Then: thenStmts, Else: elseStmts, Rng: p.rangeFrom(start)}
}

func (p *parser) includeStmt() Stmt {
	start := p.advance() // 'include'
	path := p.expect(STRING, "", "include path string")
	return &IncludeStmt{Path: path.Text, Rng: p.rangeFrom(start)}
}

func (p *parser) assertStmt() Stmt {
	start := p.advance() // 'assert'
	cond := p.value()
	p.expect(PUNCT, ",", "','")
	msg := p.value()
	p.expect(PUNCT, ";", "';'")
	return &AssertStmt{Cond: cond, Message: msg, Rng: p.rangeFrom(start)}
}

// fieldDef speculatively parses `['field'] type… name [= value] ;`.
// The type is a token run that stops just before an identifier which is
// immediately followed by '=' or ';' — that identifier is the field name.
func (p *parser) fieldDef() Stmt {
	start := p.peek()
	p.matchKw("field") // optional prefix keyword, discarded

	var typ strings.Builder
	for !p.atEnd() {
		t := p.peek()
		if t.Kind == IDENT {
			nxt := p.peekNext()
			if nxt.Kind == PUNCT && (nxt.Text == "=" || nxt.Text == ";") {
				break
			}
		}
		if t.Kind == PUNCT && (t.Text == "=" || t.Text == ";" || t.Text == "{" || t.Text == "}") {
			break
		}
		p.advance()
		typ.WriteString(t.Text)
	}

	if !p.check(IDENT, "") {
		p.errorAt(p.peek().Rng, "expected field name")
		return nil
	}
	name := p.advance()
	var value Expr
	if p.matchPunct("=") {
		value = p.value()
	}
	p.expect(PUNCT, ";", "';'")
	return &FieldDef{
		Type:      typ.String(),
		Name:      name.Text,
		Value:     value,
		Rng:       p.rangeFrom(start),
		NameRange: name.Rng,
	}
}

// ─────────────────────── template args & class refs ───────────────────────

// templateArgs parses `<type name [= default], …>` if present. Entries for
// which no name could be parsed are dropped rather than emitted partially.
func (p *parser) templateArgs() []TemplateArg {
	if !p.matchPunct("<") {
		return nil
	}
	var out []TemplateArg
	for !p.checkPunct(">") && !p.atEnd() {
		before := p.i
		startTok := p.peek()
		typ := p.typeSpelling()
		var arg TemplateArg
		named := false
		if p.check(IDENT, "") {
			name := p.advance()
			arg = TemplateArg{Type: typ, Name: name.Text, NameRange: name.Rng}
			named = true
			if p.matchPunct("=") {
				arg.Default = p.value()
			}
			arg.Rng = p.rangeFrom(startTok)
		}
		if named {
			out = append(out, arg)
		}
		if !p.matchPunct(",") && !p.checkPunct(">") {
			p.errorAt(p.peek().Rng, "expected ',' or '>' in template argument list")
		}
		if p.i == before {
			p.i++
		}
	}
	p.expect(PUNCT, ">", "'>'")
	return out
}

// classRefList parses a comma-separated parent list.
func (p *parser) classRefList() []*ClassRef {
	var out []*ClassRef
	for {
		if ref := p.classRef(); ref != nil {
			out = append(out, ref)
		} else {
			break
		}
		if !p.matchPunct(",") {
			break
		}
	}
	return out
}

// classRef parses `Name` or `Name<arg, …>`.
func (p *parser) classRef() *ClassRef {
	if !p.check(IDENT, "") {
		p.errorAt(p.peek().Rng, "expected class name")
		return nil
	}
	name := p.advance()
	ref := &ClassRef{Name: name.Text, NameRange: name.Rng}
	if p.checkPunct("<") {
		ref.Args = p.angleArgs()
	}
	ref.Rng = p.rangeFrom(name)
	return ref
}

// angleArgs parses `<expr, …>` into expressions, breaking out of malformed
// lists instead of looping.
func (p *parser) angleArgs() []Expr {
	p.advance() // '<'
	var out []Expr
	for !p.checkPunct(">") && !p.atEnd() {
		before := p.i
		if v := p.value(); v != nil {
			out = append(out, v)
		}
		if !p.matchPunct(",") && !p.checkPunct(">") {
			break
		}
		if p.i == before {
			p.i++
		}
	}
	p.expect(PUNCT, ">", "'>'")
	return out
}

// angleText consumes a balanced `<…>` run and returns the inner text in
// canonical form: token texts joined directly, strings re-quoted. Assumes
// the opening '<' is the current token.
func (p *parser) angleText() string {
	p.advance() // '<'
	depth := 1
	var b strings.Builder
	for !p.atEnd() {
		t := p.advance()
		if t.Kind == PUNCT {
			switch t.Text {
			case "<":
				depth++
			case ">":
				depth--
				if depth == 0 {
					return b.String()
				}
			}
		}
		if t.Kind == STRING {
			b.WriteString(strconv.Quote(t.Text))
		} else {
			b.WriteString(t.Text)
		}
	}
	return b.String()
}

// typeSpelling parses one type as canonical text: a leading word token
// optionally followed by a balanced angle-bracket run (`bits<4>`,
// `list<Foo<Bar>>`). Empty string when no type is present.
func (p *parser) typeSpelling() string {
	t := p.peek()
	if t.Kind != IDENT && t.Kind != KEYWORD {
		return ""
	}
	p.advance()
	if p.checkPunct("<") {
		return t.Text + "<" + p.angleText() + ">"
	}
	return t.Text
}

// ───────────────────────────── expressions ─────────────────────────────

// value parses one expression, or returns nil (without a diagnostic) when
// the current token cannot start one — absent values are the caller's
// business.
func (p *parser) value() Expr {
	v := p.simpleValue()
	if v == nil {
		return nil
	}
	for p.check(OPERATOR, "#") {
		p.advance()
		rhs := p.simpleValue()
		if rhs == nil {
			break
		}
		v = &PasteExpr{Lhs: v, Rhs: rhs, Rng: Range{Start: v.Range().Start, End: rhs.Range().End}}
	}
	return v
}

func (p *parser) simpleValue() Expr {
	t := p.peek()
	switch t.Kind {
	case NUMBER:
		p.advance()
		return &NumberLit{Text: t.Text, Rng: t.Rng}
	case STRING:
		p.advance()
		return &StringLit{Value: t.Text, Rng: t.Rng}
	case CODE:
		p.advance()
		return &CodeLit{Text: t.Text, Rng: t.Rng}
	case KEYWORD:
		if t.Text == "true" || t.Text == "false" {
			p.advance()
			return &NumberLit{Text: t.Text, Rng: t.Rng}
		}
		return nil
	case OPERATOR:
		if strings.HasPrefix(t.Text, "!") {
			return p.bangExpr()
		}
		return nil
	case IDENT:
		return p.identValue()
	case PUNCT:
		switch t.Text {
		case "[":
			return p.listExpr()
		case "(":
			return p.dagExpr()
		}
		return nil
	}
	return nil
}

// identValue disambiguates a leading identifier: `Name<…>` is a class
// instantiation, `name.field` chains field accesses, a bare identifier is
// itself.
func (p *parser) identValue() Expr {
	name := p.advance()
	var v Expr
	if p.checkPunct("<") {
		ref := &ClassRef{Name: name.Text, NameRange: name.Rng}
		ref.Args = p.angleArgs()
		ref.Rng = p.rangeFrom(name)
		v = ref
	} else {
		v = &Identifier{Name: name.Text, Rng: name.Rng}
	}
	for p.checkPunct(".") && p.peekNext().Kind == IDENT {
		p.advance() // '.'
		field := p.advance()
		v = &FieldAccess{
			Object:     v,
			Field:      field.Text,
			FieldRange: field.Rng,
			Rng:        Range{Start: v.Range().Start, End: field.Rng.End},
		}
	}
	return v
}

func (p *parser) listExpr() Expr {
	start := p.advance() // '['
	var elems []Expr
	for !p.checkPunct("]") && !p.atEnd() {
		before := p.i
		if v := p.value(); v != nil {
			elems = append(elems, v)
		}
		if !p.matchPunct(",") && !p.checkPunct("]") {
			break
		}
		if p.i == before {
			p.i++
		}
	}
	p.expect(PUNCT, "]", "']'")
	if p.checkPunct("<") {
		p.angleText() // optional list element-type suffix, not modeled
	}
	return &ListExpr{Elements: elems, Rng: p.rangeFrom(start)}
}

// dagExpr parses `(op arg:$name, arg, …)`. The '$' never reaches the
// parser (the lexer drops it), so an argument tag is just ':' IDENT.
func (p *parser) dagExpr() Expr {
	start := p.advance() // '('
	op := p.value()
	var args []DagArg
	for !p.checkPunct(")") && !p.atEnd() {
		before := p.i
		v := p.value()
		arg := DagArg{Value: v}
		if p.matchPunct(":") {
			if p.check(IDENT, "") {
				arg.Name = p.advance().Text
			}
		}
		if v != nil || arg.Name != "" {
			args = append(args, arg)
		}
		if !p.matchPunct(",") && !p.checkPunct(")") {
			break
		}
		if p.i == before {
			p.i++
		}
	}
	p.expect(PUNCT, ")", "')'")
	return &DagExpr{Op: op, Args: args, Rng: p.rangeFrom(start)}
}

// bangExpr parses `!op[<Type>](args…)`.
func (p *parser) bangExpr() Expr {
	op := p.advance()
	typeText := ""
	if p.checkPunct("<") {
		typeText = p.angleText()
	}
	var args []Expr
	if p.matchPunct("(") {
		for !p.checkPunct(")") && !p.atEnd() {
			before := p.i
			if v := p.value(); v != nil {
				args = append(args, v)
			}
			if !p.matchPunct(",") && !p.checkPunct(")") {
				break
			}
			if p.i == before {
				p.i++
			}
		}
		p.expect(PUNCT, ")", "')'")
	} else {
		p.errorAt(p.peek().Rng, "expected '(' after %s", op.Text)
	}
	return &BangExpr{Op: op.Text, TypeText: typeText, Args: args, Rng: p.rangeFrom(op)}
}
