package hashing

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestEnumerateNoFilesMatched(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "README.md"), "hello")

	if _, err := Enumerate(root, ".", "*.rs"); err == nil {
		t.Fatal("expected NoFilesMatchedError")
	} else if _, ok := err.(*NoFilesMatchedError); !ok {
		t.Errorf("expected *NoFilesMatchedError, got %T: %v", err, err)
	}
}

func TestEnumerateInvalidGlob(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "a")

	if _, err := Enumerate(root, ".", "["); err == nil {
		t.Fatal("expected InvalidGlobError")
	} else if _, ok := err.(*InvalidGlobError); !ok {
		t.Errorf("expected *InvalidGlobError, got %T: %v", err, err)
	}
}

func TestEnumerateDeterministicOrder(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "c.txt"), "3")
	writeFile(t, filepath.Join(root, "a.txt"), "1")
	writeFile(t, filepath.Join(root, "b.txt"), "2")

	files, err := Enumerate(root, ".", "*.txt")
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 3 {
		t.Fatalf("expected 3 files, got %d", len(files))
	}
	for i := 1; i < len(files); i++ {
		if files[i-1] >= files[i] {
			t.Errorf("enumeration not sorted: %v", files)
		}
	}
}

func TestEnumerateRespectsGitignore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "keep.txt"), "keep")
	writeFile(t, filepath.Join(root, "skip.txt"), "skip")
	writeFile(t, filepath.Join(root, ".gitignore"), "skip.txt\n")

	files, err := Enumerate(root, ".", "*.txt")
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || filepath.Base(files[0]) != "keep.txt" {
		t.Errorf("gitignore rule not honored, got %v", files)
	}
}

func TestEnumerateSkipsVCSDirectories(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "a")
	writeFile(t, filepath.Join(root, ".git", "config.txt"), "ignored")

	files, err := Enumerate(root, ".", "*.txt")
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range files {
		if filepath.Dir(f) != root {
			t.Errorf("file under VCS directory was not skipped: %s", f)
		}
	}
}

func TestEnumerateGlobRelativeToPath(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "sub", "nested.txt"), "n")
	writeFile(t, filepath.Join(root, "top.txt"), "t")

	files, err := Enumerate(root, "sub", "*.txt")
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || filepath.Base(files[0]) != "nested.txt" {
		t.Errorf("expected only nested.txt under sub/, got %v", files)
	}
}

func TestMatchesQuery(t *testing.T) {
	root := "/tmp/t3"
	if !MatchesQuery(root, ".", "*.log", "/tmp/t3/x.log") {
		t.Error("expected match for direct child")
	}
	if MatchesQuery(root, ".", "*.log", "/tmp/other/x.log") {
		t.Error("matched a file outside the query root")
	}
	if MatchesQuery(root, ".", "*.log", "/tmp/t3/sub/x.log") {
		t.Error("non-recursive glob unexpectedly matched a nested file")
	}
}
