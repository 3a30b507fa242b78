// Package pipeline implements the debounce/invalidate/fan-out event loop
// that turns raw filesystem-watcher notifications into broadcast events
// scoped to the subscriptions they affect.
package pipeline

import (
	"sync"
	"time"

	"github.com/fshashd/fswatchd/internal/broadcast"
	"github.com/fshashd/fswatchd/internal/hashing"
	"github.com/fshashd/fswatchd/internal/logging"
	"github.com/fshashd/fswatchd/internal/subscription"
)

// DebounceWindow is the interval within which repeated events for the same
// path collapse into a single invalidation.
const DebounceWindow = 100 * time.Millisecond

// Invalidator applies a single path-level change to shared state. It's
// satisfied by state.State.InvalidateFile.
type Invalidator func(path string)

// Registry is the subset of subscription.Registry the pipeline needs to
// match changed paths against live subscriptions.
type Registry interface {
	Snapshot() map[subscription.Key]subscription.Entry
}

// Pipeline drives the debounce → invalidate → match → broadcast cycle over
// a raw event channel.
type Pipeline struct {
	events     <-chan string
	invalidate Invalidator
	registry   Registry
	hub        *broadcast.Hub
	logger     *logging.Logger
	done       chan struct{}
	wg         sync.WaitGroup
	mutex      sync.Mutex
	pending    map[string]time.Time
}

// New creates a Pipeline reading from events and wiring invalidation,
// subscription matching, and broadcast publication together.
func New(events <-chan string, invalidate Invalidator, registry Registry, hub *broadcast.Hub, logger *logging.Logger) *Pipeline {
	return &Pipeline{
		events:     events,
		invalidate: invalidate,
		registry:   registry,
		hub:        hub,
		logger:     logger.Sublogger("pipeline"),
		done:       make(chan struct{}),
		pending:    make(map[string]time.Time),
	}
}

// Start launches the pipeline's background loop. Stop must be called to
// release it.
func (p *Pipeline) Start() {
	p.wg.Add(1)
	go p.run()
}

// Stop terminates the background loop and waits for it to exit.
func (p *Pipeline) Stop() {
	close(p.done)
	p.wg.Wait()
}

func (p *Pipeline) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(DebounceWindow)
	defer ticker.Stop()

	for {
		select {
		case <-p.done:
			return

		case path, ok := <-p.events:
			if !ok {
				return
			}
			p.mutex.Lock()
			p.pending[path] = time.Now().Add(DebounceWindow)
			p.mutex.Unlock()

		case <-ticker.C:
			p.flush()
		}
	}
}

// flush invalidates every path whose debounce deadline has passed and
// broadcasts one event per subscription key those paths matched.
func (p *Pipeline) flush() {
	now := time.Now()

	p.mutex.Lock()
	var ready []string
	for path, deadline := range p.pending {
		if !deadline.After(now) {
			ready = append(ready, path)
			delete(p.pending, path)
		}
	}
	p.mutex.Unlock()

	if len(ready) == 0 {
		return
	}

	for _, path := range ready {
		p.invalidate(path)
	}

	matches := make(map[subscription.Key][]string)
	snapshot := p.registry.Snapshot()
	for _, path := range ready {
		for key, entry := range snapshot {
			if hashing.MatchesQuery(entry.Root, entry.Path, entry.Glob, path) {
				matches[key] = append(matches[key], path)
			}
		}
	}

	for key, paths := range matches {
		p.logger.Tracef("broadcasting %d path(s) for subscription %s", len(paths), key)
		p.hub.Publish(broadcast.Event{Key: string(key), Paths: paths})
	}
}
