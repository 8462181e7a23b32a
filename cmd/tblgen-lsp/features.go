// cmd/tblgen-lsp/features.go
//
// ROLE: LSP feature handlers built on top of the engine. Converts editor
//       requests into engine queries and engine answers into LSP shapes.
//
// What lives here
//   • initialize: capability advertisement and manifest loading.
//   • Text sync (didOpen/didChange/didClose) with diagnostics publishing.
//   • definition, prepareRename, rename, documentSymbol, and the
//     tablegen.reindex command.
//
// What does NOT live here
//   • No transport framing or JSON-RPC loop (main.go), no text/position
//     math (core.go), no analysis (the engine).

package main

import (
	"encoding/json"

	"github.com/shiltian/vscode-llvm-tblgen-language-support/internal/manifest"
	tgen "github.com/shiltian/vscode-llvm-tblgen-language-support/internal/tablegen"
)

const reindexCommand = "tablegen.reindex"

////////////////////////////////////////////////////////////////////////////////
// Initialize
////////////////////////////////////////////////////////////////////////////////

func (s *server) onInitialize(id json.RawMessage, params json.RawMessage) {
	var p InitializeParams
	_ = json.Unmarshal(params, &p)
	if len(p.InitializationOptions) > 0 {
		var opts struct {
			ManifestPath string `json:"manifestPath"`
		}
		if err := json.Unmarshal(p.InitializationOptions, &opts); err == nil && opts.ManifestPath != "" {
			s.manifestPath = opts.ManifestPath
		}
	}

	result := InitializeResult{
		Capabilities: ServerCapabilities{
			TextDocumentSync: TextDocumentSyncOptions{
				OpenClose: true,
				Change:    1, // Full: every didChange carries the whole text
			},
			DefinitionProvider:     true,
			DocumentSymbolProvider: true,
			RenameProvider:         &RenameOptions{PrepareProvider: true},
			ExecuteCommandProvider: &ExecuteCommandOptions{Commands: []string{reindexCommand}},
		},
		ServerInfo: map[string]string{"name": "tblgen-lsp"},
	}
	s.sendResponse(id, result, nil)

	// Graph construction can touch many files; let it run behind the build
	// gate while the editor proceeds. Queries arriving early simply wait.
	go s.loadRoots()
}

func (s *server) loadRoots() {
	if s.manifestPath == "" {
		return
	}
	entries, err := manifest.Load(s.manifestPath)
	if err != nil {
		s.logToClient("manifest: %v", err)
		return
	}
	s.eng.SetRoots(entries)
	s.logToClient("loaded %d compilation root(s) from %s", len(entries), s.manifestPath)
}

////////////////////////////////////////////////////////////////////////////////
// Text sync & diagnostics
////////////////////////////////////////////////////////////////////////////////

func (s *server) onDidOpen(params json.RawMessage) {
	var p DidOpenTextDocumentParams
	if err := json.Unmarshal(params, &p); err != nil {
		return
	}
	path := uriToPath(p.TextDocument.URI)
	diags := s.eng.DidOpen(path, p.TextDocument.Text)
	s.publishDiagnostics(p.TextDocument.URI, path, diags)
}

func (s *server) onDidChange(params json.RawMessage) {
	var p DidChangeTextDocumentParams
	if err := json.Unmarshal(params, &p); err != nil || len(p.ContentChanges) == 0 {
		return
	}
	// Full sync: the last change event carries the complete new text.
	path := uriToPath(p.TextDocument.URI)
	diags := s.eng.DidChange(path, p.ContentChanges[len(p.ContentChanges)-1].Text)
	s.publishDiagnostics(p.TextDocument.URI, path, diags)
}

func (s *server) onDidClose(params json.RawMessage) {
	var p DidCloseTextDocumentParams
	if err := json.Unmarshal(params, &p); err != nil {
		return
	}
	s.eng.DidClose(uriToPath(p.TextDocument.URI))
	s.notify("textDocument/publishDiagnostics", PublishDiagnosticsParams{
		URI:         p.TextDocument.URI,
		Diagnostics: []Diagnostic{},
	})
}

func (s *server) publishDiagnostics(uri, path string, diags []tgen.Diagnostic) {
	text, lines, ok := s.eng.FileText(path)
	if !ok {
		return
	}
	out := make([]Diagnostic, 0, len(diags))
	for _, d := range diags {
		out = append(out, Diagnostic{
			Range:    engineToLSPRange(lines, text, d.Rng),
			Severity: 1,
			Source:   "tblgen",
			Message:  d.Msg,
		})
	}
	s.notify("textDocument/publishDiagnostics", PublishDiagnosticsParams{URI: uri, Diagnostics: out})
}

////////////////////////////////////////////////////////////////////////////////
// Definition
////////////////////////////////////////////////////////////////////////////////

func (s *server) onDefinition(id json.RawMessage, params json.RawMessage) {
	var p TextDocumentPositionParams
	if err := json.Unmarshal(params, &p); err != nil {
		s.sendResponse(id, nil, nil)
		return
	}
	path := uriToPath(p.TextDocument.URI)
	text, lines, ok := s.eng.FileText(path)
	if !ok {
		s.sendResponse(id, nil, nil)
		return
	}
	loc, ok := s.eng.Definition(path, lspToEnginePos(lines, text, p.Position))
	if !ok {
		s.sendResponse(id, nil, nil)
		return
	}
	targetText, targetLines, ok := s.eng.FileText(loc.Path)
	if !ok {
		s.sendResponse(id, nil, nil)
		return
	}
	s.sendResponse(id, Location{
		URI:   pathToURI(loc.Path),
		Range: engineToLSPRange(targetLines, targetText, loc.Rng),
	}, nil)
}

////////////////////////////////////////////////////////////////////////////////
// Rename
////////////////////////////////////////////////////////////////////////////////

func (s *server) onPrepareRename(id json.RawMessage, params json.RawMessage) {
	var p TextDocumentPositionParams
	if err := json.Unmarshal(params, &p); err != nil {
		s.sendResponse(id, nil, nil)
		return
	}
	path := uriToPath(p.TextDocument.URI)
	text, lines, ok := s.eng.FileText(path)
	if !ok {
		s.sendResponse(id, nil, nil)
		return
	}
	rng, name, ok := s.eng.PrepareRename(path, lspToEnginePos(lines, text, p.Position))
	if !ok {
		s.sendResponse(id, nil, nil)
		return
	}
	s.sendResponse(id, PrepareRenameResult{
		Range:       engineToLSPRange(lines, text, rng),
		Placeholder: name,
	}, nil)
}

func (s *server) onRename(id json.RawMessage, params json.RawMessage) {
	var p RenameParams
	if err := json.Unmarshal(params, &p); err != nil || p.NewName == "" {
		s.sendResponse(id, nil, nil)
		return
	}
	path := uriToPath(p.TextDocument.URI)
	text, lines, ok := s.eng.FileText(path)
	if !ok {
		s.sendResponse(id, nil, nil)
		return
	}
	edits, ok := s.eng.Rename(path, lspToEnginePos(lines, text, p.Position))
	if !ok {
		s.sendResponse(id, nil, nil)
		return
	}
	changes := make(map[string][]TextEdit, len(edits))
	for fpath, rngs := range edits {
		ftext, flines, ok := s.eng.FileText(fpath)
		if !ok {
			continue
		}
		out := make([]TextEdit, 0, len(rngs))
		for _, rng := range rngs {
			out = append(out, TextEdit{
				Range:   engineToLSPRange(flines, ftext, rng),
				NewText: p.NewName,
			})
		}
		changes[pathToURI(fpath)] = out
	}
	s.sendResponse(id, WorkspaceEdit{Changes: changes}, nil)
}

////////////////////////////////////////////////////////////////////////////////
// Document symbols
////////////////////////////////////////////////////////////////////////////////

// LSP SymbolKind values for the construct kinds the outline surfaces.
var lspSymbolKinds = map[string]int{
	"class":      5,  // Class
	"multiclass": 11, // Interface
	"def":        13, // Variable
	"defm":       13, // Variable
	"defset":     18, // Array
	"defvar":     14, // Constant
	"field":      8,  // Field
}

func (s *server) onDocumentSymbols(id json.RawMessage, params json.RawMessage) {
	var p struct {
		TextDocument TextDocumentIdentifier `json:"textDocument"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		s.sendResponse(id, nil, nil)
		return
	}
	path := uriToPath(p.TextDocument.URI)
	syms := s.eng.Outline(path)
	text, lines, ok := s.eng.FileText(path)
	if !ok {
		s.sendResponse(id, nil, nil)
		return
	}
	out := make([]DocumentSymbol, 0, len(syms))
	for _, sym := range syms {
		kind, known := lspSymbolKinds[sym.Kind]
		if !known {
			continue
		}
		rng := engineToLSPRange(lines, text, sym.Rng)
		out = append(out, DocumentSymbol{
			Name:           sym.Name,
			Detail:         sym.Kind,
			Kind:           kind,
			Range:          rng,
			SelectionRange: rng,
		})
	}
	s.sendResponse(id, out, nil)
}

////////////////////////////////////////////////////////////////////////////////
// Commands
////////////////////////////////////////////////////////////////////////////////

func (s *server) onExecuteCommand(id json.RawMessage, params json.RawMessage) {
	var p ExecuteCommandParams
	if err := json.Unmarshal(params, &p); err != nil {
		s.sendResponse(id, nil, &ResponseError{Code: -32602, Message: "invalid params"})
		return
	}
	switch p.Command {
	case reindexCommand:
		s.sendResponse(id, nil, nil)
		go func() {
			// Pick up manifest edits too, then rebuild from scratch.
			s.loadRoots()
			s.eng.Reindex()
			s.logToClient("reindex complete")
		}()
	default:
		s.sendResponse(id, nil, &ResponseError{Code: -32601, Message: "unknown command"})
	}
}
