// cmd/tblgen-check/main.go
//
// ROLE: Batch syntax checker. Parses every file reachable from a
//       manifest's compilation roots (or the files given on the command
//       line) and prints parser diagnostics with source context. Exits
//       non-zero when any file has errors.
//
// Intended for CI: the same error-tolerant parser the language server
// uses, so the checker flags exactly what the editor would underline.

package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/shiltian/vscode-llvm-tblgen-language-support/internal/engine"
	"github.com/shiltian/vscode-llvm-tblgen-language-support/internal/manifest"
	tgen "github.com/shiltian/vscode-llvm-tblgen-language-support/internal/tablegen"
)

func main() {
	manifestPath := flag.String("manifest", "", "check every file reachable from the manifest's roots")
	flag.Parse()

	files, err := collectFiles(*manifestPath, flag.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, "tblgen-check:", err)
		os.Exit(2)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "tblgen-check: nothing to check (pass .td files or -manifest)")
		os.Exit(2)
	}

	type result struct {
		file   string
		output []string
	}
	results := make([]result, len(files))

	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			data, err := os.ReadFile(file)
			if err != nil {
				results[i] = result{file: file, output: []string{fmt.Sprintf("%s: %v", file, err)}}
				return nil
			}
			src := string(data)
			ast := tgen.Parse(src)
			var out []string
			for _, d := range ast.Errors {
				out = append(out, tgen.Render(d, file, src))
			}
			results[i] = result{file: file, output: out}
			return nil
		})
	}
	_ = g.Wait()

	bad := 0
	for _, r := range results {
		if len(r.output) == 0 {
			continue
		}
		bad++
		for _, line := range r.output {
			fmt.Println(line)
		}
	}
	fmt.Printf("checked %d file(s), %d with errors\n", len(files), bad)
	if bad > 0 {
		os.Exit(1)
	}
}

// collectFiles gathers the check set: explicit arguments plus, when a
// manifest is given, every file reachable from its roots via the include
// graph. The result is deduplicated and sorted.
func collectFiles(manifestPath string, args []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(f string) {
		if abs, err := filepath.Abs(f); err == nil {
			f = abs
		}
		if !seen[f] {
			seen[f] = true
			files = append(files, f)
		}
	}

	for _, a := range args {
		add(a)
	}
	if manifestPath != "" {
		entries, err := manifest.Load(manifestPath)
		if err != nil {
			return nil, err
		}
		eng := engine.New()
		eng.SetRoots(entries)
		for _, root := range eng.Roots() {
			for _, f := range eng.VisibleFiles(root) {
				add(f)
			}
		}
	}
	sort.Strings(files)
	return files, nil
}
