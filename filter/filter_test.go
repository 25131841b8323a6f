package filter

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadSkipsCommentsAndBlankLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "filters.txt")
	content := "# a comment\n\n[0-9]+\n   \nfoo(bar)?\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(s.patterns) != 2 {
		t.Fatalf("Load() compiled %d patterns, want 2", len(s.patterns))
	}
}

func TestLoadCompileFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "filters.txt")
	if err := os.WriteFile(path, []byte("(unclosed\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Load() with invalid regex should error")
	}
}

func TestApplyUserPattern(t *testing.T) {
	compiled, err := compileForTest(`[0-9]+`)
	if err != nil {
		t.Fatal(err)
	}
	s := &Set{patterns: []Pattern{compiled}}

	out := s.Apply([]byte("timestamp 12345 done"))
	if string(out) != "timestamp  done" {
		t.Errorf("Apply() = %q, want %q", out, "timestamp  done")
	}
}

func TestApplyMemoryErrorCollapse(t *testing.T) {
	s := Empty()
	out := s.Apply([]byte("some noisy output MEMORY-ERROR trailing junk"))
	if string(out) != "MEMORY-ERROR" {
		t.Errorf("Apply() = %q, want %q", out, "MEMORY-ERROR")
	}
}

func TestApplyProcessParenBlanking(t *testing.T) {
	s := Empty()
	in := []byte("prefix (process:12345) suffix")
	out := s.Apply(in)
	want := "prefix               ) suffix"
	if string(out) != want {
		t.Errorf("Apply() = %q, want %q", out, want)
	}
	if len(out) != len(in) {
		t.Errorf("Apply() changed length: got %d, want %d", len(out), len(in))
	}
}

func TestApplyProcPathMasking(t *testing.T) {
	s := Empty()
	out := s.Apply([]byte("reading /proc/98765/status failed"))
	if string(out) != "reading ?/status failed" {
		t.Errorf("Apply() = %q", out)
	}
}

func TestApplySiAddrMasking(t *testing.T) {
	s := Empty()
	out := s.Apply([]byte("segv at si_addr=0x7ffeeb000000 rip=..."))
	want := "segv at si_addr=? rip=..."
	if string(out) != want {
		t.Errorf("Apply() = %q, want %q", out, want)
	}
}

func TestApplyEmptyFilterIsIdentityOnBaseline(t *testing.T) {
	s := Empty()
	in := []byte("clean deterministic output")
	out := s.Apply(in)
	if string(out) != string(in) {
		t.Errorf("Apply() on clean input = %q, want unchanged %q", out, in)
	}
}

func compileForTest(pattern string) (Pattern, error) {
	s, err := Load(writeTempPattern(pattern))
	if err != nil {
		return Pattern{}, err
	}
	return s.patterns[0], nil
}

func writeTempPattern(pattern string) string {
	dir, err := os.MkdirTemp("", "filter-test")
	if err != nil {
		panic(err)
	}
	path := filepath.Join(dir, "f.txt")
	if err := os.WriteFile(path, []byte(pattern+"\n"), 0o644); err != nil {
		panic(err)
	}
	return path
}
