package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fshashd/fswatchd/internal/logging"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestHashCacheHit(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "a")
	writeFile(t, filepath.Join(root, "b.txt"), "b")

	s := New(logging.RootLogger)

	first, err := s.Hash(root, ".", "*.txt", false, nil)
	if err != nil {
		t.Fatal(err)
	}

	second, err := s.Hash(root, ".", "*.txt", false, nil)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("cache hit produced different result: %+v != %+v", second, first)
	}
}

func TestHashWithoutEventSinkSkipsWatcher(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "a")

	s := New(logging.RootLogger)
	if _, err := s.Hash(root, ".", "*.txt", true, nil); err != nil {
		t.Fatal(err)
	}
	if s.Watching(root) {
		t.Error("watcher installed despite absent event sink")
	}
}

func TestHashWithEventSinkInstallsWatcher(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "a")

	s := New(logging.RootLogger)
	sink := make(chan string, 10)
	if _, err := s.Hash(root, ".", "*.txt", true, sink); err != nil {
		t.Fatal(err)
	}
	if !s.Watching(root) {
		t.Error("watcher was not installed despite persistent hash with event sink")
	}
	s.StopWatching(root)
}

func TestInvalidateFileRemovesPrefixedResults(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "a")
	writeFile(t, filepath.Join(root, "b.txt"), "b")

	s := New(logging.RootLogger)
	if _, err := s.Hash(root, ".", "*.txt", false, nil); err != nil {
		t.Fatal(err)
	}

	s.InvalidateFile(filepath.Join(root, "a.txt"))

	if _, ok := s.results[resultKey{root, ".", "*.txt"}]; ok {
		t.Error("cached result under the changed file's root/path survived invalidation")
	}

	// Re-requesting recomputes the result over both files.
	writeFile(t, filepath.Join(root, "a.txt"), "aa")
	result, err := s.Hash(root, ".", "*.txt", false, nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.FileCount != 2 {
		t.Errorf("expected 2 files after invalidation, got %d", result.FileCount)
	}
}

func TestInvalidateFileDoesNotMatchSiblingWithSharedPrefix(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "b"), 0755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(root, "b", "f.txt"), "f")

	s := New(logging.RootLogger)
	if _, err := s.Hash(root, "b", "*.txt", false, nil); err != nil {
		t.Fatal(err)
	}

	// A change under a sibling path that merely shares a string prefix
	// ("b" vs "bc") must not invalidate the "b" query's cached result.
	s.InvalidateFile(filepath.Join(root, "bc", "other.txt"))

	if _, ok := s.results[resultKey{root, "b", "*.txt"}]; !ok {
		t.Error("invalidating a sibling path dropped the \"b\" query's cached result")
	}

	second, err := s.Hash(root, "b", "*.txt", false, nil)
	if err != nil {
		t.Fatal(err)
	}
	if second.FileCount != 1 {
		t.Errorf("unrelated invalidation affected cached result: %+v", second)
	}
}

func TestEnsureWatchingIdempotent(t *testing.T) {
	root := t.TempDir()
	s := New(logging.RootLogger)
	sink := make(chan string, 10)

	if err := s.EnsureWatching(root, sink); err != nil {
		t.Fatal(err)
	}
	if err := s.EnsureWatching(root, sink); err != nil {
		t.Fatal(err)
	}
	if !s.Watching(root) {
		t.Fatal("expected watcher to be installed")
	}

	if !s.StopWatching(root) {
		t.Error("StopWatching reported no watcher present")
	}
	if s.Watching(root) {
		t.Error("watcher still present after StopWatching")
	}
}
