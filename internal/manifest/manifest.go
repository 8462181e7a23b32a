// manifest.go: the compilation-unit manifest shared by the language server
// and the batch checker.
//
// Format:
//
//	sources:
//	  - file: llvm/lib/Target/X86/X86.td
//	    include_dirs:
//	      - llvm/include
//
// Relative paths are resolved against the manifest's own directory, so a
// manifest checked into a repository works from any working directory.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Entry names one compilation root and its ordered include search paths.
type Entry struct {
	File        string   `yaml:"file"`
	IncludeDirs []string `yaml:"include_dirs"`
}

type file struct {
	Sources []Entry `yaml:"sources"`
}

// Load reads and normalizes a manifest. Entries with an empty file are
// dropped; duplicate roots are the consumer's concern (the include graph
// keeps the first registration).
func Load(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	var m file
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	base := filepath.Dir(path)
	out := make([]Entry, 0, len(m.Sources))
	for _, ent := range m.Sources {
		if ent.File == "" {
			continue
		}
		ent.File = absAgainst(base, ent.File)
		dirs := make([]string, 0, len(ent.IncludeDirs))
		for _, d := range ent.IncludeDirs {
			dirs = append(dirs, absAgainst(base, d))
		}
		ent.IncludeDirs = dirs
		out = append(out, ent)
	}
	return out, nil
}

func absAgainst(base, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}
