// Package ipcserver implements fswatchd's IPC listener and per-connection
// request/response/event loop over the NDJSON wire protocol.
package ipcserver

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/fshashd/fswatchd/internal/broadcast"
	"github.com/fshashd/fswatchd/internal/ipcaddr"
	"github.com/fshashd/fswatchd/internal/logging"
	"github.com/fshashd/fswatchd/internal/protocol"
	"github.com/fshashd/fswatchd/internal/session"
	"github.com/fshashd/fswatchd/internal/subscription"
)

// ReadDeadline is the per-read timeout used to interleave request
// processing with broadcast draining on each connection.
const ReadDeadline = 50 * time.Millisecond

// ErrAlreadyRunning indicates that a daemon is already listening at the
// requested address.
var ErrAlreadyRunning = errors.New("daemon already running")

// Server accepts IPC connections and services each with its own session.
type Server struct {
	listener net.Listener
	hub      *broadcast.Hub
	backend  func() session.Backend
	logger   *logging.Logger

	wg       sync.WaitGroup
	closeOne sync.Once
}

// Listen creates a listener at addr, failing with ErrAlreadyRunning if a
// daemon is already accepting connections there, and otherwise removing
// any stale endpoint before binding.
func Listen(addr string) (net.Listener, error) {
	if ipcaddr.Probe(addr) {
		return nil, ErrAlreadyRunning
	}
	return ipcaddr.NewListener(addr)
}

// New wraps an established listener into a Server. backend is called once
// per accepted connection to obtain the session.Backend it should drive;
// in practice this always returns the same daemonapp.App, but the
// indirection keeps this package decoupled from that wiring.
func New(listener net.Listener, hub *broadcast.Hub, backend func() session.Backend, logger *logging.Logger) *Server {
	return &Server{
		listener: listener,
		hub:      hub,
		backend:  backend,
		logger:   logger.Sublogger("ipcserver"),
	}
}

// Serve accepts connections until the listener is closed.
func (s *Server) Serve() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				s.wg.Wait()
				return nil
			}
			return err
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(conn)
		}()
	}
}

// Close stops accepting new connections and waits for in-flight ones to
// finish.
func (s *Server) Close() error {
	var err error
	s.closeOne.Do(func() {
		err = s.listener.Close()
	})
	s.wg.Wait()
	return err
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()

	sess := session.New(s.backend())
	sub := s.hub.Subscribe()
	defer s.hub.Unsubscribe(sub)

	reader := bufio.NewReader(conn)
	writer := bufio.NewWriter(conn)
	var pending []byte

	for {
		if s.drainBroadcast(sess, writer, sub) != nil {
			return
		}

		if err := conn.SetReadDeadline(time.Now().Add(ReadDeadline)); err != nil {
			return
		}

		chunk, err := reader.ReadBytes('\n')
		pending = append(pending, chunk...)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			s.logger.Debugf("connection read failed: %v", err)
			return
		}

		line := bytes.TrimSpace(pending)
		pending = nil
		if len(line) == 0 {
			continue
		}

		request, err := protocol.ParseRequest(line)
		if err != nil {
			if werr := writeLine(writer, protocol.ErrorResponse{Error: err.Error()}); werr != nil {
				return
			}
			continue
		}

		response := sess.Process(request)
		if err := writeLine(writer, response); err != nil {
			s.logger.Debugf("connection write failed: %v", err)
			return
		}
	}
}

// drainBroadcast writes every currently-buffered broadcast event this
// session is subscribed to, without blocking. It returns a non-nil error
// only when the connection itself has failed and should be torn down.
func (s *Server) drainBroadcast(sess *session.Session, writer *bufio.Writer, sub *broadcast.Subscription) error {
	for {
		select {
		case event, ok := <-sub.C:
			if !ok {
				return errSubscriptionClosed
			}
			if sub.Lagged() {
				s.logger.Warnf("broadcast receiver lagged, a notification was dropped")
			}
			if !sess.Subscribed(subscription.Key(event.Key)) {
				continue
			}
			if err := writeLine(writer, protocol.Event{Key: event.Key, Paths: event.Paths}); err != nil {
				s.logger.Debugf("connection write failed: %v", err)
				return err
			}
		default:
			return nil
		}
	}
}

var errSubscriptionClosed = errors.New("broadcast subscription closed")

func writeLine(w *bufio.Writer, v interface{}) error {
	encoded, err := json.Marshal(v)
	if err != nil {
		return err
	}
	encoded = append(encoded, '\n')
	if _, err := w.Write(encoded); err != nil {
		return err
	}
	return w.Flush()
}
