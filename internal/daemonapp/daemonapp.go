// Package daemonapp wires the daemon's shared components together —
// state, persistence, the subscription registry, the broadcast hub, and
// the event pipeline — and implements the session.Backend interface that
// per-connection sessions drive.
package daemonapp

import (
	"time"

	"github.com/pkg/errors"

	"github.com/fshashd/fswatchd/internal/broadcast"
	"github.com/fshashd/fswatchd/internal/hashing"
	"github.com/fshashd/fswatchd/internal/logging"
	"github.com/fshashd/fswatchd/internal/persistence"
	"github.com/fshashd/fswatchd/internal/pipeline"
	"github.com/fshashd/fswatchd/internal/state"
	"github.com/fshashd/fswatchd/internal/subscription"
)

// FlushInterval is how often the persistence flusher checks whether
// persisted state needs saving.
const FlushInterval = 30 * time.Second

// App is the daemon's top-level application object: one instance per
// running daemon, owning every piece of shared state described in §3.
type App struct {
	state         *state.State
	persisted     *persistence.State
	subscriptions *subscription.Registry
	hub           *broadcast.Hub
	pipeline      *pipeline.Pipeline
	rawEvents     chan string
	logger        *logging.Logger
	done          chan struct{}
}

// New creates an App with all of its components wired together, but does
// not yet start the event pipeline or restore persisted watches; call Run
// for that.
func New(logger *logging.Logger) *App {
	logger = logger.Sublogger("daemonapp")
	rawEvents := make(chan string, 100)

	s := state.New(logger)
	persisted := persistence.Load(logger)
	registry := subscription.NewRegistry()
	hub := broadcast.NewHub()

	app := &App{
		state:         s,
		persisted:     persisted,
		subscriptions: registry,
		hub:           hub,
		rawEvents:     rawEvents,
		logger:        logger,
		done:          make(chan struct{}),
	}
	app.pipeline = pipeline.New(rawEvents, s.InvalidateFile, registry, hub, logger)
	return app
}

// Hub returns the broadcast hub new connections should subscribe to.
func (a *App) Hub() *broadcast.Hub {
	return a.hub
}

// Run starts the event pipeline, restores persisted watches, and starts
// the periodic persistence flusher. It returns immediately; call Shutdown
// to stop all of it.
func (a *App) Run() {
	a.pipeline.Start()
	a.restore()
	go a.flushLoop()
}

// Shutdown stops the event pipeline and flusher and performs a final save.
func (a *App) Shutdown() {
	close(a.done)
	a.pipeline.Stop()
	if err := a.persisted.Save(); err != nil {
		a.logger.Warn(err)
	}
}

func (a *App) flushLoop() {
	ticker := time.NewTicker(FlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-a.done:
			return
		case <-ticker.C:
			a.persisted.FlushIfDirty()
		}
	}
}

// restore implements startup/restore (§4.10): for each persisted watch
// entry, re-establish the watcher and subscription registration, then
// spawn a background re-hash purely to populate caches.
func (a *App) restore() {
	for _, entry := range a.persisted.Entries() {
		key := subscription.MakeKey(entry.Root, entry.Path, entry.Glob)

		if err := a.state.EnsureWatching(entry.Root, a.rawEvents); err != nil {
			a.logger.Warnf("unable to restore watcher for %s: %v", entry.Root, err)
			continue
		}
		a.subscriptions.Insert(key, subscription.Entry{Root: entry.Root, Path: entry.Path, Glob: entry.Glob})

		go func(entry persistence.Entry) {
			if _, err := a.state.Hash(entry.Root, entry.Path, entry.Glob, false, nil); err != nil {
				a.logger.Warnf("background re-hash failed for %s/%s (%s): %v", entry.Root, entry.Path, entry.Glob, err)
			}
		}(entry)
	}
}

// Hash implements session.Backend.
func (a *App) Hash(root, path, glob string, persistent bool) (hashing.Result, error) {
	var sink chan string
	if persistent {
		sink = a.rawEvents
	}

	result, err := a.state.Hash(root, path, glob, persistent, sink)
	if err != nil {
		return hashing.Result{}, err
	}

	if persistent {
		a.persisted.Insert(persistence.Entry{Root: root, Path: path, Glob: glob})
	}

	return result, nil
}

// Watch implements session.Backend.
func (a *App) Watch(root, path, glob string) (subscription.Key, error) {
	if err := a.state.EnsureWatching(root, a.rawEvents); err != nil {
		return "", errors.Wrap(err, "unable to install watcher")
	}

	key := subscription.MakeKey(root, path, glob)
	a.persisted.Insert(persistence.Entry{Root: root, Path: path, Glob: glob})
	a.subscriptions.Insert(key, subscription.Entry{Root: root, Path: path, Glob: glob})

	return key, nil
}

// Unwatch implements session.Backend. It never fails: an unknown key is
// simply a no-op.
func (a *App) Unwatch(key subscription.Key) {
	entry, ok := a.subscriptions.Remove(key)
	if !ok {
		return
	}

	a.persisted.Remove(persistence.Entry{Root: entry.Root, Path: entry.Path, Glob: entry.Glob})

	if !a.subscriptions.HasRoot(entry.Root) && !a.persistedHasRoot(entry.Root) {
		a.state.StopWatching(entry.Root)
	}
}

// persistedHasRoot reports whether any remaining persisted watch entry
// still references root.
func (a *App) persistedHasRoot(root string) bool {
	for _, entry := range a.persisted.Entries() {
		if entry.Root == root {
			return true
		}
	}
	return false
}
