// token.go: token kinds, source positions, and the TableGen keyword set.
package tablegen

import "fmt"

// Position is a zero-based line/character location in a source file.
type Position struct {
	Line      int
	Character int
}

// Range is a half-open [Start, End) span in line/character coordinates.
// Containment checks (see Contains) treat End as inclusive so that a cursor
// sitting just past the last character of an identifier still hits it.
type Range struct {
	Start Position
	End   Position
}

func (p Position) String() string { return fmt.Sprintf("%d:%d", p.Line, p.Character) }

// Before reports whether p is strictly before q.
func (p Position) Before(q Position) bool {
	return p.Line < q.Line || (p.Line == q.Line && p.Character < q.Character)
}

// Contains reports whether pos lies within r, inclusive on both ends.
// Multi-line safe: only the first and last line constrain the character.
func (r Range) Contains(pos Position) bool {
	if pos.Line < r.Start.Line || pos.Line > r.End.Line {
		return false
	}
	if pos.Line == r.Start.Line && pos.Character < r.Start.Character {
		return false
	}
	if pos.Line == r.End.Line && pos.Character > r.End.Character {
		return false
	}
	return true
}

// TokenKind classifies a lexical token.
type TokenKind int

const (
	EOF TokenKind = iota
	KEYWORD
	IDENT
	NUMBER // raw spelling preserved (decimal, 0x…, 0b…, leading '-')
	STRING // unescaped value
	CODE   // verbatim text between [{ and }]
	OPERATOR
	PUNCT
)

func (k TokenKind) String() string {
	switch k {
	case EOF:
		return "eof"
	case KEYWORD:
		return "keyword"
	case IDENT:
		return "identifier"
	case NUMBER:
		return "number"
	case STRING:
		return "string"
	case CODE:
		return "code"
	case OPERATOR:
		return "operator"
	case PUNCT:
		return "punctuation"
	}
	return "unknown"
}

// Token is a lexical token with its source range.
type Token struct {
	Kind TokenKind
	Text string // see kind comments above for what Text holds
	Rng  Range

	// Byte offsets into the source, for text-level scans by consumers.
	StartByte int
	EndByte   int
}

// keywords is the TableGen reserved-word set. Identifiers found here lex as
// KEYWORD; everything else is IDENT.
var keywords = map[string]bool{
	"assert":     true,
	"bit":        true,
	"bits":       true,
	"class":      true,
	"code":       true,
	"dag":        true,
	"def":        true,
	"defm":       true,
	"defset":     true,
	"defvar":     true,
	"dump":       true,
	"else":       true,
	"false":      true,
	"field":      true,
	"foreach":    true,
	"if":         true,
	"in":         true,
	"include":    true,
	"int":        true,
	"let":        true,
	"list":       true,
	"multiclass": true,
	"string":     true,
	"then":       true,
	"true":       true,
}

// IsKeyword reports whether s is a TableGen reserved word.
func IsKeyword(s string) bool { return keywords[s] }

// Is reports whether the token has the given kind and exact text.
func (t Token) Is(kind TokenKind, text string) bool {
	return t.Kind == kind && t.Text == text
}
