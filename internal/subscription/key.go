// Package subscription computes deterministic subscription keys and holds
// the registry mapping keys back to their originating queries.
package subscription

import (
	"fmt"
	"sync"

	"github.com/zeebo/xxh3"
)

// Key is a deterministic 128-bit identifier for a (root, path, glob)
// query, formatted as 32 lowercase hex characters.
type Key string

// Entry is the logical query a subscription key identifies.
type Entry struct {
	Root string
	Path string
	Glob string
}

// MakeKey computes the subscription key for a query. The pre-image is
// root || 0x00 || path || 0x00 || glob, hashed with a 128-bit hash so that
// collisions are negligible for any realistic workload. The same tuple
// always produces the same key, across processes and restarts.
func MakeKey(root, path, glob string) Key {
	preimage := make([]byte, 0, len(root)+len(path)+len(glob)+2)
	preimage = append(preimage, root...)
	preimage = append(preimage, 0)
	preimage = append(preimage, path...)
	preimage = append(preimage, 0)
	preimage = append(preimage, glob...)

	digest := xxh3.Hash128(preimage)
	bytes := digest.Bytes()
	return Key(fmt.Sprintf("%x", bytes))
}

// Registry holds the live mapping from subscription key to the query it
// identifies. A key is present only while at least one watch references it.
type Registry struct {
	mutex   sync.RWMutex
	entries map[Key]Entry
}

// NewRegistry creates an empty subscription registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[Key]Entry)}
}

// Insert records key → entry. Re-inserting the same key is idempotent,
// since a given tuple always produces the same key by construction.
func (r *Registry) Insert(key Key, entry Entry) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.entries[key] = entry
}

// Remove deletes key from the registry, returning the entry that was
// associated with it (if any) so the caller can decide whether to tear
// down the backing watcher.
func (r *Registry) Remove(key Key) (Entry, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	entry, ok := r.entries[key]
	if ok {
		delete(r.entries, key)
	}
	return entry, ok
}

// HasRoot reports whether any remaining subscription references root.
func (r *Registry) HasRoot(root string) bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	for _, entry := range r.entries {
		if entry.Root == root {
			return true
		}
	}
	return false
}

// Snapshot returns a copy of the current key → entry mapping, safe for the
// caller to range over without holding the registry's lock. Used by the
// event pipeline's matching step.
func (r *Registry) Snapshot() map[Key]Entry {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	snapshot := make(map[Key]Entry, len(r.entries))
	for key, entry := range r.entries {
		snapshot[key] = entry
	}
	return snapshot
}
