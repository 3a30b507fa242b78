package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fshashd/fswatchd/internal/logging"
)

func drain(t *testing.T, sink chan string, want string, timeout time.Duration) bool {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case path := <-sink:
			if path == want || filepath.Clean(path) == filepath.Clean(want) {
				return true
			}
		case <-deadline:
			return false
		}
	}
}

func TestWatcherDetectsFileWrite(t *testing.T) {
	root := t.TempDir()
	sink := make(chan string, 100)

	w, err := Install(root, sink, logging.RootLogger)
	if err != nil {
		t.Fatal("unable to install watcher:", err)
	}
	defer w.Close()

	target := filepath.Join(root, "x.log")
	if err := os.WriteFile(target, []byte("1"), 0644); err != nil {
		t.Fatal(err)
	}

	if !drain(t, sink, target, 2*time.Second) {
		t.Error("watcher did not report a write to a newly created file")
	}
}

func TestWatcherFollowsNewSubdirectories(t *testing.T) {
	root := t.TempDir()
	sink := make(chan string, 100)

	w, err := Install(root, sink, logging.RootLogger)
	if err != nil {
		t.Fatal("unable to install watcher:", err)
	}
	defer w.Close()

	sub := filepath.Join(root, "sub")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	if !drain(t, sink, sub, 2*time.Second) {
		t.Fatal("watcher did not report creation of a new subdirectory")
	}

	nested := filepath.Join(sub, "nested.log")
	if err := os.WriteFile(nested, []byte("1"), 0644); err != nil {
		t.Fatal(err)
	}
	if !drain(t, sink, nested, 2*time.Second) {
		t.Error("watcher did not follow a newly created subdirectory")
	}
}

func TestCloseStopsWatcher(t *testing.T) {
	root := t.TempDir()
	sink := make(chan string, 100)

	w, err := Install(root, sink, logging.RootLogger)
	if err != nil {
		t.Fatal("unable to install watcher:", err)
	}
	if err := w.Close(); err != nil {
		t.Fatal("unable to close watcher:", err)
	}
}
