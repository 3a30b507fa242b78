// Package session implements the per-connection state machine: each
// connection owns a Session that tracks which subscription keys it has
// registered and dispatches incoming requests to a shared Backend.
package session

import (
	"github.com/fshashd/fswatchd/internal/hashing"
	"github.com/fshashd/fswatchd/internal/protocol"
	"github.com/fshashd/fswatchd/internal/subscription"
)

// Backend is the shared daemon functionality a Session drives. It's
// implemented by the daemon application wiring (state + persistence +
// subscriptions + broadcast) so that this package stays free of locking
// and wiring concerns.
type Backend interface {
	// Hash computes (or serves from cache) the result for a query,
	// optionally registering it as persistent.
	Hash(root, path, glob string, persistent bool) (hashing.Result, error)

	// Watch registers a live subscription for a query and returns its
	// key.
	Watch(root, path, glob string) (subscription.Key, error)

	// Unwatch removes key from the global subscription registry and
	// persisted state, tearing down the watcher if it was the last
	// referent. It never fails.
	Unwatch(key subscription.Key)
}

// Session holds one connection's subscription membership, which governs
// which broadcast events get written to that connection.
type Session struct {
	backend       Backend
	subscriptions map[subscription.Key]struct{}
}

// New creates a Session bound to backend.
func New(backend Backend) *Session {
	return &Session{
		backend:       backend,
		subscriptions: make(map[subscription.Key]struct{}),
	}
}

// Subscribed reports whether this session should receive events for key.
func (s *Session) Subscribed(key subscription.Key) bool {
	_, ok := s.subscriptions[key]
	return ok
}

// Process dispatches a single parsed request and returns the response to
// write back. Malformed input (already rejected by protocol.ParseRequest)
// never reaches here; failures from the backend are surfaced as an error
// response without altering session or shared state.
func (s *Session) Process(request protocol.Request) interface{} {
	switch request.Cmd {
	case protocol.CmdHash:
		result, err := s.backend.Hash(request.Root, request.Path, request.Glob, request.Persistent)
		if err != nil {
			return protocol.ErrorResponse{Error: err.Error()}
		}
		return protocol.HashResponse{Hash: hashing.FormatDigest(result.Hash), FileCount: result.FileCount}

	case protocol.CmdWatch:
		key, err := s.backend.Watch(request.Root, request.Path, request.Glob)
		if err != nil {
			return protocol.ErrorResponse{Error: err.Error()}
		}
		s.subscriptions[key] = struct{}{}
		return protocol.WatchResponse{Key: string(key)}

	case protocol.CmdUnwatch:
		key := subscription.Key(request.Key)
		delete(s.subscriptions, key)
		s.backend.Unwatch(key)
		return protocol.OKResponse{OK: true}

	default:
		return protocol.ErrorResponse{Error: "unrecognized cmd"}
	}
}
