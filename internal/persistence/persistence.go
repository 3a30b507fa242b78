// Package persistence loads and saves the set of watch entries that
// survive daemon restarts.
package persistence

import (
	"encoding/json"
	"os"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/fshashd/fswatchd/internal/logging"
	"github.com/fshashd/fswatchd/internal/paths"
)

// Entry is the persistable identity of a subscription.
type Entry struct {
	Root string `json:"root"`
	Path string `json:"path"`
	Glob string `json:"glob"`
}

// document is the on-disk JSON shape.
type document struct {
	WatchEntries []Entry `json:"watch_entries"`
}

// State holds the current set of persisted watch entries, a dirty flag set
// by any mutation and cleared by the periodic flusher, and the file path
// it's saved to.
type State struct {
	mutex   sync.Mutex
	entries map[Entry]struct{}
	dirty   atomic.Bool
	path    string
	logger  *logging.Logger
}

// Load reads the persisted state file. A missing or unparseable file is
// treated as an empty set rather than an error, per the startup contract.
func Load(logger *logging.Logger) *State {
	logger = logger.Sublogger("persistence")

	path, err := paths.StatePath()
	if err != nil {
		logger.Warnf("unable to compute state file path: %v", err)
		return &State{entries: make(map[Entry]struct{}), logger: logger}
	}

	s := &State{entries: make(map[Entry]struct{}), path: path, logger: logger}

	data, err := os.ReadFile(path)
	if err != nil {
		return s
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		logger.Warnf("unable to parse state file, starting empty: %v", err)
		return s
	}

	for _, entry := range doc.WatchEntries {
		s.entries[entry] = struct{}{}
	}
	return s
}

// Entries returns a snapshot of the current watch entries.
func (s *State) Entries() []Entry {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	entries := make([]Entry, 0, len(s.entries))
	for entry := range s.entries {
		entries = append(entries, entry)
	}
	return entries
}

// Insert adds entry to the persisted set and marks the state dirty. It's a
// no-op if the entry is already present.
func (s *State) Insert(entry Entry) {
	s.mutex.Lock()
	_, existed := s.entries[entry]
	s.entries[entry] = struct{}{}
	s.mutex.Unlock()
	if !existed {
		s.dirty.Store(true)
	}
}

// Remove deletes entry from the persisted set and, if it was present, marks
// the state dirty.
func (s *State) Remove(entry Entry) {
	s.mutex.Lock()
	_, existed := s.entries[entry]
	delete(s.entries, entry)
	s.mutex.Unlock()
	if existed {
		s.dirty.Store(true)
	}
}

// Dirty reports whether the in-memory set has changed since the last save.
func (s *State) Dirty() bool {
	return s.dirty.Load()
}

// Save writes the current set to disk. On success it clears the dirty
// flag; a failed save leaves it set so the next mutation (or the next
// flusher tick) retries.
func (s *State) Save() error {
	if s.path == "" {
		return nil
	}

	s.dirty.Store(false)

	entries := s.Entries()
	doc := document{WatchEntries: entries}

	data, err := json.MarshalIndent(&doc, "", "  ")
	if err != nil {
		s.dirty.Store(true)
		return errors.Wrap(err, "unable to marshal persisted state")
	}

	if err := os.WriteFile(s.path, data, 0600); err != nil {
		s.dirty.Store(true)
		return errors.Wrap(err, "unable to write persisted state")
	}

	return nil
}

// FlushIfDirty saves the state if it's changed since the last save,
// logging (rather than propagating) a failure.
func (s *State) FlushIfDirty() {
	if !s.Dirty() {
		return
	}
	if err := s.Save(); err != nil {
		s.logger.Warn(err)
	}
}
