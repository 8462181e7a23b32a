// cmd/tblgen-query/main.go
//
// ROLE: Interactive console for poking at a compilation unit without an
//       editor: load a manifest, then run definition/outline/visibility
//       queries from a line-edited prompt.
//
// Commands:
//
//	roots                       list compilation roots
//	visible <file>              files visible from <file>, in include order
//	outline <file>              top-level declarations of <file>
//	def <file> <line> <col>     definition of the symbol at 1-based line:col
//	reindex                     drop every index and rebuild the graph
//	:quit                       exit

package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/peterh/liner"

	"github.com/shiltian/vscode-llvm-tblgen-language-support/internal/engine"
	"github.com/shiltian/vscode-llvm-tblgen-language-support/internal/manifest"
	tgen "github.com/shiltian/vscode-llvm-tblgen-language-support/internal/tablegen"
)

const (
	historyFile = ".tblgen_query_history"
	prompt      = "td> "
)

const helpText = `Commands:
  roots                     list compilation roots
  visible <file>            files visible from <file>, in include order
  outline <file>            top-level declarations of <file>
  def <file> <line> <col>   definition of the symbol at 1-based line:col
  reindex                   drop every index and rebuild the graph
  :quit                     exit
`

func main() {
	manifestPath := flag.String("manifest", "", "path to the compilation-unit manifest (YAML)")
	flag.Parse()

	eng := engine.New()
	if *manifestPath != "" {
		entries, err := manifest.Load(*manifestPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "tblgen-query:", err)
			os.Exit(2)
		}
		eng.SetRoots(entries)
	}

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigc)
	go func() {
		<-sigc
		ln.Close()
		os.Exit(130)
	}()

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	fmt.Printf("tblgen-query: %d compilation root(s). Type help for commands.\n", len(eng.Roots()))

	for {
		line, err := ln.Prompt(prompt)
		if err != nil {
			fmt.Println()
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		ln.AppendHistory(line)

		fields := strings.Fields(line)
		switch fields[0] {
		case ":quit", ":q", "quit", "exit":
			return
		case "help", ":help":
			fmt.Print(helpText)
		case "roots":
			for _, r := range eng.Roots() {
				fmt.Println(r)
			}
		case "visible":
			if len(fields) != 2 {
				fmt.Println("usage: visible <file>")
				continue
			}
			for _, f := range eng.VisibleFiles(mustAbs(fields[1])) {
				fmt.Println(f)
			}
		case "outline":
			if len(fields) != 2 {
				fmt.Println("usage: outline <file>")
				continue
			}
			for _, sym := range eng.Outline(mustAbs(fields[1])) {
				fmt.Printf("%4d:%-3d %-10s %s\n",
					sym.Rng.Start.Line+1, sym.Rng.Start.Character+1, sym.Kind, sym.Name)
			}
		case "def":
			if len(fields) != 4 {
				fmt.Println("usage: def <file> <line> <col>")
				continue
			}
			lineNo, err1 := strconv.Atoi(fields[2])
			colNo, err2 := strconv.Atoi(fields[3])
			if err1 != nil || err2 != nil || lineNo < 1 || colNo < 1 {
				fmt.Println("usage: def <file> <line> <col>  (1-based)")
				continue
			}
			pos := tgen.Position{Line: lineNo - 1, Character: colNo - 1}
			loc, ok := eng.Definition(mustAbs(fields[1]), pos)
			if !ok {
				fmt.Println("no definition")
				continue
			}
			fmt.Printf("%s:%d:%d\n", loc.Path, loc.Rng.Start.Line+1, loc.Rng.Start.Character+1)
		case "reindex":
			eng.Reindex()
			fmt.Println("ok")
		default:
			fmt.Println("unknown command. Type help for commands.")
		}
	}
}

func mustAbs(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
