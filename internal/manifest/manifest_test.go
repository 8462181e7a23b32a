package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadNormalizesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	src := `sources:
  - file: llvm/Target.td
    include_dirs:
      - llvm/include
      - /abs/include
  - file: ""
  - file: /abs/Other.td
`
	path := filepath.Join(dir, "tblgen.yaml")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	entries, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2 (empty file dropped)", len(entries))
	}
	if want := filepath.Join(dir, "llvm/Target.td"); entries[0].File != want {
		t.Errorf("File = %q, want %q", entries[0].File, want)
	}
	if want := filepath.Join(dir, "llvm/include"); entries[0].IncludeDirs[0] != want {
		t.Errorf("IncludeDirs[0] = %q, want %q", entries[0].IncludeDirs[0], want)
	}
	if entries[0].IncludeDirs[1] != "/abs/include" {
		t.Errorf("absolute include dir rewritten: %q", entries[0].IncludeDirs[1])
	}
	if entries[1].File != "/abs/Other.td" {
		t.Errorf("absolute root rewritten: %q", entries[1].File)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("missing manifest did not error")
	}
	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("sources: {not a list"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); err == nil {
		t.Fatalf("malformed YAML did not error")
	}
}
