// Package watch implements a recursive filesystem watcher built on top of
// fsnotify, forwarding change events into a bounded, non-blocking sink
// channel so that a slow or backed-up consumer can never stall the
// underlying OS notification thread.
package watch

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/fshashd/fswatchd/internal/logging"
)

// EventSink receives raw path-level change notifications. Installing a
// watcher requires a sink; a nil sink means "don't install a watcher"
// (callers should check for that before calling Install).
type EventSink chan<- string

// Watcher owns one fsnotify.Watcher recursively covering a single root
// directory, following newly created subdirectories and dropping removed
// ones as they come and go.
type Watcher struct {
	root   string
	sink   EventSink
	fsw    *fsnotify.Watcher
	logger *logging.Logger
	done   chan struct{}
	wg     sync.WaitGroup
}

// Install creates and starts a recursive watcher over root, forwarding
// every relevant change path to sink via a non-blocking send. The returned
// Watcher must be closed to release its OS resources.
func Install(root string, sink EventSink, logger *logging.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "unable to create filesystem watcher")
	}

	w := &Watcher{
		root:   root,
		sink:   sink,
		fsw:    fsw,
		logger: logger.Sublogger("watch"),
		done:   make(chan struct{}),
	}

	if err := w.addTree(root); err != nil {
		fsw.Close()
		return nil, errors.Wrap(err, "unable to install watcher")
	}

	w.wg.Add(1)
	go w.run()

	return w, nil
}

// Close stops the watcher and releases its OS resources.
func (w *Watcher) Close() error {
	close(w.done)
	w.wg.Wait()
	return w.fsw.Close()
}

// addTree walks directory and adds a watch for it and every subdirectory
// beneath it, skipping symbolic links.
func (w *Watcher) addTree(directory string) error {
	return filepath.WalkDir(directory, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			if path == directory {
				return err
			}
			return nil
		}
		if entry.Type()&os.ModeSymlink != 0 {
			if entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if entry.IsDir() {
			if err := w.fsw.Add(path); err != nil {
				w.logger.Warnf("unable to watch %s: %v", path, err)
			}
		}
		return nil
	})
}

func (w *Watcher) run() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warnf("watcher error: %v", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	relevant := event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0
	if !relevant {
		return
	}

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Lstat(event.Name); err == nil && info.IsDir() && info.Mode()&os.ModeSymlink == 0 {
			if err := w.addTree(event.Name); err != nil {
				w.logger.Warnf("unable to watch new directory %s: %v", event.Name, err)
			}
		}
	}

	if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		w.fsw.Remove(event.Name)
	}

	select {
	case w.sink <- event.Name:
	default:
		// Sink is full: drop the event. The next debounce tick only
		// needs at least one event per changed path, and a future
		// change will resend it if this one is lost.
	}
}
