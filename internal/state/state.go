// Package state holds the daemon's core mutable state: the per-file and
// per-query hash caches, and the map of active recursive watchers. It
// implements the cache-composition and watcher-lifecycle operations that
// every other component (sessions, the event pipeline, startup restore)
// drives.
package state

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/fshashd/fswatchd/internal/hashing"
	"github.com/fshashd/fswatchd/internal/logging"
	"github.com/fshashd/fswatchd/internal/watch"
)

// resultKey identifies a cached hash result by its originating query.
type resultKey struct {
	root, path, glob string
}

// State is the daemon's single instance of shared mutable state: the
// per-file cache, the per-query result cache, and the map of live
// watchers, all guarded by one lock per the locking discipline.
type State struct {
	mutex sync.RWMutex

	perFile  map[string]hashing.FileHash
	results  map[resultKey]hashing.Result
	watchers map[string]*watch.Watcher

	logger *logging.Logger
}

// New creates an empty State.
func New(logger *logging.Logger) *State {
	return &State{
		perFile:  make(map[string]hashing.FileHash),
		results:  make(map[resultKey]hashing.Result),
		watchers: make(map[string]*watch.Watcher),
		logger:   logger.Sublogger("state"),
	}
}

// perFileCache adapts State to hashing.Cache while the caller already holds
// s.mutex for writing.
type perFileCache struct{ s *State }

func (c perFileCache) Get(path string) (hashing.FileHash, bool) {
	h, ok := c.s.perFile[path]
	return h, ok
}

func (c perFileCache) Put(path string, hash hashing.FileHash) {
	c.s.perFile[path] = hash
}

// Hash implements hash(state, root, path, glob, persistent, event_sink)
// from the daemon state operations: it installs a watcher if requested,
// serves a cached result on hit, and otherwise computes and caches one.
func (s *State) Hash(root, path, glob string, persistent bool, sink watch.EventSink) (hashing.Result, error) {
	if persistent && sink != nil {
		if err := s.EnsureWatching(root, sink); err != nil {
			return hashing.Result{}, err
		}
	}

	key := resultKey{root, path, glob}

	s.mutex.RLock()
	if cached, ok := s.results[key]; ok {
		s.mutex.RUnlock()
		return cached, nil
	}
	s.mutex.RUnlock()

	s.mutex.Lock()
	defer s.mutex.Unlock()

	// Re-check under the write lock in case another caller populated the
	// entry between our read unlock and this write lock.
	if cached, ok := s.results[key]; ok {
		return cached, nil
	}

	result, err := hashing.HashWithCache(perFileCache{s}, root, path, glob)
	if err != nil {
		return hashing.Result{}, err
	}
	s.results[key] = result
	return result, nil
}

// InvalidateFile drops changedPath from the per-file cache and every
// cached result whose root/path is a path-component prefix of changedPath.
func (s *State) InvalidateFile(changedPath string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	delete(s.perFile, changedPath)

	for key := range s.results {
		base := filepath.Join(key.root, key.path)
		if isPathPrefix(base, changedPath) {
			delete(s.results, key)
		}
	}
}

// isPathPrefix reports whether prefix is equal to path or a path-component
// ancestor of it, so that "/a/b" is not considered a prefix of "/a/bc".
func isPathPrefix(prefix, path string) bool {
	prefix = filepath.Clean(prefix)
	path = filepath.Clean(path)
	if prefix == path {
		return true
	}
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(path, prefix)
}

// EnsureWatching installs a recursive watcher on root if one isn't already
// present. If sink is nil, this is a no-op success: it allows cache-only
// hashes that must not spawn watchers.
func (s *State) EnsureWatching(root string, sink watch.EventSink) error {
	if sink == nil {
		return nil
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.ensureWatchingLocked(root, sink)
}

func (s *State) ensureWatchingLocked(root string, sink watch.EventSink) error {
	if _, ok := s.watchers[root]; ok {
		return nil
	}
	w, err := watch.Install(root, sink, s.logger)
	if err != nil {
		return err
	}
	s.watchers[root] = w
	return nil
}

// StopWatching removes and releases the watcher for root, if any. It
// reports whether a watcher was actually present.
func (s *State) StopWatching(root string) bool {
	s.mutex.Lock()
	w, ok := s.watchers[root]
	if ok {
		delete(s.watchers, root)
	}
	s.mutex.Unlock()

	if ok {
		if err := w.Close(); err != nil {
			s.logger.Warnf("unable to close watcher for %s: %v", root, err)
		}
	}
	return ok
}

// Watching reports whether root currently has a live watcher. Exposed for
// the startup-restore path and tests.
func (s *State) Watching(root string) bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	_, ok := s.watchers[root]
	return ok
}
