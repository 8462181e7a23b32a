// errors.go: parse diagnostics and caret-snippet rendering.
//
// Diagnostics are plain values (message + range) accumulated by the parser;
// nothing in this package returns an error for malformed source. Render
// turns a diagnostic into a numbered snippet with a caret under the
// offending column, for CLI output:
//
//	syntax error in Target.td at 3:12: expected ';'
//
//	   2 | class Foo : Bar {
//	   3 |   int x = 1
//	     |            ^
//	   4 | }
package tablegen

import (
	"fmt"
	"strings"
)

// Diagnostic is one syntax error: a message and the source range it covers.
type Diagnostic struct {
	Msg string
	Rng Range
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s", d.Rng.Start, d.Msg)
}

// Render formats d against its source text as a caret-annotated snippet.
// name labels the file; it may be empty. Out-of-range positions are clamped
// so rendering never fails on truncated or edited sources.
func Render(d Diagnostic, name, src string) string {
	lines := strings.Split(src, "\n")
	line := d.Rng.Start.Line
	if line < 0 {
		line = 0
	}
	if line >= len(lines) {
		line = len(lines) - 1
	}
	col := d.Rng.Start.Character
	if col < 0 {
		col = 0
	}
	if col > len(lines[line]) {
		col = len(lines[line])
	}

	var b strings.Builder
	if name != "" {
		fmt.Fprintf(&b, "syntax error in %s at %d:%d: %s\n\n", name, line+1, col+1, d.Msg)
	} else {
		fmt.Fprintf(&b, "syntax error at %d:%d: %s\n\n", line+1, col+1, d.Msg)
	}
	if line > 0 {
		fmt.Fprintf(&b, "%4d | %s\n", line, lines[line-1])
	}
	fmt.Fprintf(&b, "%4d | %s\n", line+1, lines[line])
	fmt.Fprintf(&b, "     | %s^\n", strings.Repeat(" ", col))
	if line+1 < len(lines) {
		fmt.Fprintf(&b, "%4d | %s\n", line+2, lines[line+1])
	}
	return b.String()
}
