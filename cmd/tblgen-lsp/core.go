// cmd/tblgen-lsp/core.go
//
// ROLE: Shared infrastructure for the LSP server: transport helpers, the
//       server model, URI/path mapping, and text/position math.
//
// What lives here
//   • Transport helpers for framed stdio (Content-Length) and convenience
//     send/notify wrappers (used by handlers).
//   • server: a thin shell holding the analysis engine.
//   • Unicode/UTF-16 column math and byte↔position conversions consistent
//     with the LSP spec (wire positions are UTF-16 code units), plus the
//     mapping to the engine's line/byte-column coordinates.
//
// What does NOT live here
//   • No LSP feature handlers (features.go), no dispatch loop (main.go),
//     no analysis (the engine owns that).

package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/shiltian/vscode-llvm-tblgen-language-support/internal/engine"
	tgen "github.com/shiltian/vscode-llvm-tblgen-language-support/internal/tablegen"
)

////////////////////////////////////////////////////////////////////////////////
// Transport (stdio framing) + send/notify
////////////////////////////////////////////////////////////////////////////////

var stdoutSink io.Writer = os.Stdout

func init() {
	// Silence unsolicited output during `go test` unless opted in.
	if strings.HasSuffix(os.Args[0], ".test") && os.Getenv("LSP_STDOUT") == "" {
		stdoutSink = io.Discard
	}
}

func readMsg(r *bufio.Reader) ([]byte, error) {
	var contentLen int
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		if i := strings.IndexByte(line, ':'); i >= 0 {
			key := strings.ToLower(strings.TrimSpace(line[:i]))
			val := strings.TrimSpace(line[i+1:])
			if key == "content-length" {
				_, _ = fmt.Sscanf(val, "%d", &contentLen)
			}
		}
	}
	if contentLen <= 0 {
		return nil, io.EOF
	}
	buf := make([]byte, contentLen)
	_, err := io.ReadFull(r, buf)
	return buf, err
}

func writeMsg(w io.Writer, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var b bytes.Buffer
	fmt.Fprintf(&b, "Content-Length: %d\r\n\r\n", len(body))
	b.Write(body)
	_, err = w.Write(b.Bytes())
	return err
}

func (s *server) sendResponse(id json.RawMessage, result any, respErr *ResponseError) {
	if respErr == nil && result == nil {
		rawNull := json.RawMessage([]byte("null"))
		_ = writeMsg(stdoutSink, Response{JSONRPC: "2.0", ID: id, Result: rawNull})
		return
	}
	_ = writeMsg(stdoutSink, Response{JSONRPC: "2.0", ID: id, Result: result, Error: respErr})
}

func (s *server) notify(method string, params any) {
	_ = writeMsg(stdoutSink, map[string]any{
		"jsonrpc": "2.0",
		"method":  method,
		"params":  params,
	})
}

// logToClient mirrors engine logging into the editor's output channel.
func (s *server) logToClient(format string, args ...any) {
	s.notify("window/logMessage", LogMessageParams{Type: 4, Message: fmt.Sprintf(format, args...)})
}

////////////////////////////////////////////////////////////////////////////////
// Server model
////////////////////////////////////////////////////////////////////////////////

type server struct {
	eng *engine.Engine

	// manifest path from the -manifest flag; initializationOptions may
	// override it before the manifest is loaded.
	manifestPath string
}

func newServer(manifestPath string) *server {
	return &server{eng: engine.New(), manifestPath: manifestPath}
}

////////////////////////////////////////////////////////////////////////////////
// URI ↔ path
////////////////////////////////////////////////////////////////////////////////

func uriToPath(uri string) string {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "file" {
		return uri
	}
	if p, err := url.PathUnescape(u.Path); err == nil {
		return p
	}
	return u.Path
}

func pathToURI(path string) string {
	return "file://" + (&url.URL{Path: path}).EscapedPath()
}

////////////////////////////////////////////////////////////////////////////////
// Text & UTF-16 helpers
////////////////////////////////////////////////////////////////////////////////

func toU16(r rune) int {
	if r < 0x10000 {
		return 1
	}
	return 2
}

func posToOffset(lines []int, p Position, text string) int {
	if p.Line < 0 {
		return 0
	}
	if p.Line >= len(lines) {
		return len(text)
	}
	i := lines[p.Line]
	need := p.Character // in UTF-16 units
	for i < len(text) && need > 0 {
		r, sz := utf8.DecodeRuneInString(text[i:])
		if r == '\r' { // ignore CR in column math
			i += sz
			continue
		}
		if r == '\n' {
			break
		}
		need -= toU16(r)
		i += sz
	}
	return i
}

func offsetToPos(lines []int, off int, text string) Position {
	if off < 0 {
		off = 0
	}
	if off > len(text) {
		off = len(text)
	}
	i, j := 0, len(lines)
	for i+1 < j {
		m := (i + j) / 2
		if lines[m] <= off {
			i = m
		} else {
			j = m
		}
	}
	u16 := 0
	for k := lines[i]; k < off && k < len(text); {
		r, sz := utf8.DecodeRuneInString(text[k:])
		if r == '\r' { // ignore CR
			k += sz
			continue
		}
		if r == '\n' {
			break
		}
		u16 += toU16(r)
		k += sz
	}
	return Position{Line: i, Character: u16}
}

func makeRange(lines []int, start, end int, text string) Range {
	return Range{
		Start: offsetToPos(lines, start, text),
		End:   offsetToPos(lines, end, text),
	}
}

// The engine works in byte columns (not UTF-16). Clamp within the line.
func byteColToOffset(lines []int, line0, byteCol int, text string) int {
	if line0 < 0 {
		line0 = 0
	}
	if line0 >= len(lines) {
		return len(text)
	}
	start := lines[line0]
	end := len(text)
	if line0+1 < len(lines) {
		end = lines[line0+1]
	}
	off := start + byteCol
	if off < start {
		off = start
	}
	if off > end {
		off = end
	}
	return off
}

////////////////////////////////////////////////////////////////////////////////
// LSP ↔ engine coordinates
////////////////////////////////////////////////////////////////////////////////

// lspToEnginePos maps a wire position (UTF-16) to the engine's
// line/byte-column coordinates via the byte offset.
func lspToEnginePos(lines []int, text string, p Position) tgen.Position {
	off := posToOffset(lines, p, text)
	i, j := 0, len(lines)
	for i+1 < j {
		m := (i + j) / 2
		if lines[m] <= off {
			i = m
		} else {
			j = m
		}
	}
	return tgen.Position{Line: i, Character: off - lines[i]}
}

// engineToLSPRange maps an engine range back to wire coordinates.
func engineToLSPRange(lines []int, text string, r tgen.Range) Range {
	start := byteColToOffset(lines, r.Start.Line, r.Start.Character, text)
	end := byteColToOffset(lines, r.End.Line, r.End.Character, text)
	return makeRange(lines, start, end, text)
}
