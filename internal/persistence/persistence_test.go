package persistence

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fshashd/fswatchd/internal/logging"
)

func TestLoadMissingFileIsEmpty(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	s := Load(logging.RootLogger)
	if len(s.Entries()) != 0 {
		t.Error("expected empty entry set for missing state file")
	}
	if s.Dirty() {
		t.Error("freshly loaded state should not be dirty")
	}
}

func TestLoadUnparseableFileIsEmpty(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".fswatchd")
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "state.json"), []byte("not json"), 0600); err != nil {
		t.Fatal(err)
	}

	s := Load(logging.RootLogger)
	if len(s.Entries()) != 0 {
		t.Error("expected empty entry set for unparseable state file")
	}
}

func TestInsertMarksDirtyAndRoundTrips(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	s := Load(logging.RootLogger)

	entry := Entry{Root: "/tmp/t5", Path: ".", Glob: "*.go"}
	s.Insert(entry)
	if !s.Dirty() {
		t.Fatal("expected state to be dirty after insert")
	}

	if err := s.Save(); err != nil {
		t.Fatal("unable to save:", err)
	}
	if s.Dirty() {
		t.Error("expected dirty flag cleared after successful save")
	}

	reloaded := Load(logging.RootLogger)
	entries := reloaded.Entries()
	if len(entries) != 1 || entries[0] != entry {
		t.Errorf("round-tripped entries = %+v, want [%+v]", entries, entry)
	}
}

func TestRemoveMarksDirty(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	s := Load(logging.RootLogger)

	entry := Entry{Root: "/tmp/t6", Path: ".", Glob: "*.go"}
	s.Insert(entry)
	s.Save()

	s.Remove(entry)
	if !s.Dirty() {
		t.Fatal("expected state to be dirty after remove")
	}
	if len(s.Entries()) != 0 {
		t.Error("entry still present after remove")
	}
}

func TestRemoveUnknownEntryDoesNotDirty(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	s := Load(logging.RootLogger)
	s.Save() // establish a clean baseline

	s.Remove(Entry{Root: "/nonexistent", Path: ".", Glob: "*"})
	if s.Dirty() {
		t.Error("removing an absent entry should not mark state dirty")
	}
}
