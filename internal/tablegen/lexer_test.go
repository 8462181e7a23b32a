// lexer_test.go
package tablegen

import (
	"reflect"
	"testing"
)

func scan(t *testing.T, src string) []Token {
	t.Helper()
	return NewLexer(src).Scan()
}

func kindsWithoutEOF(toks []Token) []TokenKind {
	if len(toks) == 0 {
		return nil
	}
	end := len(toks)
	if toks[end-1].Kind == EOF {
		end--
	}
	out := make([]TokenKind, 0, end)
	for i := 0; i < end; i++ {
		out = append(out, toks[i].Kind)
	}
	return out
}

func wantKinds(t *testing.T, src string, want []TokenKind) []Token {
	t.Helper()
	got := scan(t, src)
	gotKinds := kindsWithoutEOF(got)
	if !reflect.DeepEqual(gotKinds, want) {
		t.Fatalf("\nsource:\n%s\nwant kinds:\n%v\ngot kinds:\n%v\n", src, want, gotKinds)
	}
	return got
}

func Test_Lexer_ClassHeader(t *testing.T) {
	src := `class Foo<int n = 4> : Bar<n> { }`
	wantKinds(t, src, []TokenKind{
		KEYWORD, IDENT, PUNCT, KEYWORD, IDENT, PUNCT, NUMBER, PUNCT,
		PUNCT, IDENT, PUNCT, IDENT, PUNCT, PUNCT, PUNCT,
	})
}

func Test_Lexer_NumberSpellings_RoundTrip(t *testing.T) {
	toks := scan(t, `0x1A 0b101 -42 1`)
	var got []string
	for _, tk := range toks {
		if tk.Kind == NUMBER {
			got = append(got, tk.Text)
		}
	}
	want := []string{"0x1A", "0b101", "-42", "1"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("number spellings: want %v, got %v", want, got)
	}
}

func Test_Lexer_MinusWithoutDigit_IsDropped(t *testing.T) {
	// '-' not followed by a digit is not in the alphabet: skipped silently.
	wantKinds(t, `a - b`, []TokenKind{IDENT, IDENT})
}

func Test_Lexer_StringEscapes(t *testing.T) {
	toks := wantKinds(t, `"a\"b\\c\n"`, []TokenKind{STRING})
	// Backslash passes the next character through literally: \n is 'n'.
	if toks[0].Text != `a"b\cn` {
		t.Fatalf("unescaped value: got %q", toks[0].Text)
	}
}

func Test_Lexer_UnterminatedString_ConsumesToEnd(t *testing.T) {
	toks := wantKinds(t, `"abc`, []TokenKind{STRING})
	if toks[0].Text != "abc" {
		t.Fatalf("got %q", toks[0].Text)
	}
}

func Test_Lexer_CodeBlock_Verbatim(t *testing.T) {
	toks := wantKinds(t, `[{ return "x\n"; }]`, []TokenKind{CODE})
	if toks[0].Text != ` return "x\n"; ` {
		t.Fatalf("code text: got %q", toks[0].Text)
	}
}

func Test_Lexer_CodeBlock_Unterminated(t *testing.T) {
	toks := wantKinds(t, "[{ abc", []TokenKind{CODE})
	if toks[0].Text != " abc" {
		t.Fatalf("got %q", toks[0].Text)
	}
}

func Test_Lexer_BangOperators(t *testing.T) {
	toks := wantKinds(t, `!cast !frobnicate !`, []TokenKind{OPERATOR, OPERATOR, OPERATOR})
	for i, want := range []string{"!cast", "!frobnicate", "!"} {
		if toks[i].Text != want {
			t.Fatalf("bang %d: want %q, got %q", i, want, toks[i].Text)
		}
	}
}

func Test_Lexer_PasteOperator(t *testing.T) {
	toks := wantKinds(t, `a # b`, []TokenKind{IDENT, OPERATOR, IDENT})
	if toks[1].Text != "#" {
		t.Fatalf("got %q", toks[1].Text)
	}
}

func Test_Lexer_Comments(t *testing.T) {
	src := "a // line\nb /* block\nstill */ c /* unterminated"
	wantKinds(t, src, []TokenKind{IDENT, IDENT, IDENT})
}

func Test_Lexer_UnknownBytes_SkippedSilently(t *testing.T) {
	wantKinds(t, "a @ $ % b", []TokenKind{IDENT, IDENT})
}

func Test_Lexer_KeywordsVsIdents(t *testing.T) {
	toks := scan(t, `def defx multiclass Multiclass`)
	want := []TokenKind{KEYWORD, IDENT, KEYWORD, IDENT}
	if !reflect.DeepEqual(kindsWithoutEOF(toks), want) {
		t.Fatalf("got %v", kindsWithoutEOF(toks))
	}
}

func Test_Lexer_Positions(t *testing.T) {
	toks := scan(t, "def A\ndef B")
	// "B" is at line 1, characters 4..5.
	b := toks[3]
	if b.Text != "B" {
		t.Fatalf("expected B, got %q", b.Text)
	}
	wantRng := Range{Start: Position{1, 4}, End: Position{1, 5}}
	if b.Rng != wantRng {
		t.Fatalf("range: want %+v, got %+v", wantRng, b.Rng)
	}
	if b.StartByte != 10 || b.EndByte != 11 {
		t.Fatalf("bytes: got %d..%d", b.StartByte, b.EndByte)
	}
}

func Test_Lexer_EOFForever(t *testing.T) {
	l := NewLexer("a")
	l.Next()
	for i := 0; i < 3; i++ {
		if got := l.Next(); got.Kind != EOF {
			t.Fatalf("call %d: want EOF, got %v", i, got.Kind)
		}
	}
}
