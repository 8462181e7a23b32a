// lexer.go: pull-model TableGen lexer.
//
// The lexer never reports errors: unterminated block comments and code
// blocks consume to end of input, and any byte outside the language's
// alphabet is skipped silently. Error reporting belongs to the parser,
// which sees only well-formed tokens.
package tablegen

// Lexer scans TableGen source into tokens, one per Next call, ending with
// a single EOF token (further calls keep returning EOF).
type Lexer struct {
	src  string
	cur  int // byte index
	line int // 0-based
	col  int // 0-based character column within line

	start     int // byte index of current token start
	startLine int
	startCol  int

	done bool
}

// NewLexer creates a lexer over src.
func NewLexer(src string) *Lexer {
	return &Lexer{src: src}
}

// Scan drains the lexer and returns all tokens including the final EOF.
func (l *Lexer) Scan() []Token {
	var out []Token
	for {
		t := l.Next()
		out = append(out, t)
		if t.Kind == EOF {
			return out
		}
	}
}

func (l *Lexer) isAtEnd() bool { return l.cur >= len(l.src) }

func (l *Lexer) peek() byte {
	if l.isAtEnd() {
		return 0
	}
	return l.src[l.cur]
}

func (l *Lexer) peekN(n int) byte {
	if l.cur+n >= len(l.src) {
		return 0
	}
	return l.src[l.cur+n]
}

func (l *Lexer) advance() byte {
	ch := l.src[l.cur]
	l.cur++
	if ch == '\n' {
		l.line++
		l.col = 0
	} else {
		l.col++
	}
	return ch
}

func (l *Lexer) markStart() {
	l.start = l.cur
	l.startLine = l.line
	l.startCol = l.col
}

func (l *Lexer) make(kind TokenKind, text string) Token {
	return Token{
		Kind:      kind,
		Text:      text,
		Rng:       Range{Start: Position{l.startLine, l.startCol}, End: Position{l.line, l.col}},
		StartByte: l.start,
		EndByte:   l.cur,
	}
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
func isHexDigit(b byte) bool {
	return isDigit(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}
func isBinDigit(b byte) bool { return b == '0' || b == '1' }
func isAlpha(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b == '_'
}
func isAlphaNum(b byte) bool { return isAlpha(b) || isDigit(b) }
func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// skipTrivia consumes whitespace, // line comments and /* */ block comments.
// An unterminated block comment runs to end of input.
func (l *Lexer) skipTrivia() {
	for !l.isAtEnd() {
		switch ch := l.peek(); {
		case ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n':
			l.advance()
		case ch == '/' && l.peekN(1) == '/':
			for !l.isAtEnd() && l.peek() != '\n' {
				l.advance()
			}
		case ch == '/' && l.peekN(1) == '*':
			l.advance()
			l.advance()
			for !l.isAtEnd() {
				if l.peek() == '*' && l.peekN(1) == '/' {
					l.advance()
					l.advance()
					break
				}
				l.advance()
			}
		default:
			return
		}
	}
}

// Next returns the next token. After the end of input it returns EOF forever.
func (l *Lexer) Next() Token {
	for {
		l.skipTrivia()
		l.markStart()
		if l.isAtEnd() {
			return l.make(EOF, "")
		}

		ch := l.peek()
		switch {
		case ch == '"':
			return l.scanString()
		case ch == '[' && l.peekN(1) == '{':
			return l.scanCode()
		case isDigit(ch):
			return l.scanNumber()
		case ch == '-' && isDigit(l.peekN(1)):
			l.advance()
			return l.scanNumber()
		case isAlpha(ch):
			return l.scanWord()
		case ch == '!':
			return l.scanBang()
		case ch == '#':
			l.advance()
			return l.make(OPERATOR, "#")
		default:
			switch ch {
			case '{', '}', '[', ']', '(', ')', '<', '>', ':', ';', ',', '=', '.':
				l.advance()
				return l.make(PUNCT, string(ch))
			}
			// Unrecognized byte: drop it and keep going.
			l.advance()
		}
	}
}

// scanString consumes a double-quoted string. A backslash passes the next
// character through literally ("\x" yields 'x'). An unterminated string
// runs to end of input.
func (l *Lexer) scanString() Token {
	l.advance() // opening quote
	var out []byte
	for !l.isAtEnd() {
		ch := l.advance()
		if ch == '"' {
			return l.make(STRING, string(out))
		}
		if ch == '\\' && !l.isAtEnd() {
			ch = l.advance()
		}
		out = append(out, ch)
	}
	return l.make(STRING, string(out))
}

// scanCode consumes a [{ … }] block verbatim, without escape processing.
func (l *Lexer) scanCode() Token {
	l.advance() // '['
	l.advance() // '{'
	from := l.cur
	for !l.isAtEnd() {
		if l.peek() == '}' && l.peekN(1) == ']' {
			text := l.src[from:l.cur]
			l.advance()
			l.advance()
			return l.make(CODE, text)
		}
		l.advance()
	}
	return l.make(CODE, l.src[from:])
}

// scanNumber consumes a decimal, 0x hex, or 0b binary literal. The raw
// spelling (minus sign included) is preserved in Text.
func (l *Lexer) scanNumber() Token {
	if l.peek() == '0' && (l.peekN(1) == 'x' || l.peekN(1) == 'X') {
		l.advance()
		l.advance()
		for !l.isAtEnd() && isHexDigit(l.peek()) {
			l.advance()
		}
	} else if l.peek() == '0' && (l.peekN(1) == 'b' || l.peekN(1) == 'B') {
		l.advance()
		l.advance()
		for !l.isAtEnd() && isBinDigit(l.peek()) {
			l.advance()
		}
	} else {
		for !l.isAtEnd() && isDigit(l.peek()) {
			l.advance()
		}
	}
	return l.make(NUMBER, l.src[l.start:l.cur])
}

// scanWord consumes an identifier or keyword.
func (l *Lexer) scanWord() Token {
	for !l.isAtEnd() && isAlphaNum(l.peek()) {
		l.advance()
	}
	text := l.src[l.start:l.cur]
	if IsKeyword(text) {
		return l.make(KEYWORD, text)
	}
	return l.make(IDENT, text)
}

// scanBang consumes '!' plus any following letters as one operator token.
// Unknown bang names are preserved verbatim; a bare '!' is kept as-is.
func (l *Lexer) scanBang() Token {
	l.advance() // '!'
	for !l.isAtEnd() && isLetter(l.peek()) {
		l.advance()
	}
	return l.make(OPERATOR, l.src[l.start:l.cur])
}
