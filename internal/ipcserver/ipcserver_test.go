package ipcserver

import (
	"bufio"
	"encoding/json"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/fshashd/fswatchd/internal/broadcast"
	"github.com/fshashd/fswatchd/internal/hashing"
	"github.com/fshashd/fswatchd/internal/logging"
	"github.com/fshashd/fswatchd/internal/session"
	"github.com/fshashd/fswatchd/internal/subscription"
)

type fakeBackend struct{}

func (fakeBackend) Hash(root, path, glob string, persistent bool) (hashing.Result, error) {
	return hashing.Result{Hash: 0x1, FileCount: 1}, nil
}

func (fakeBackend) Watch(root, path, glob string) (subscription.Key, error) {
	return subscription.MakeKey(root, path, glob), nil
}

func (fakeBackend) Unwatch(subscription.Key) {}

func startTestServer(t *testing.T) (*Server, string, *broadcast.Hub) {
	t.Helper()
	addr := filepath.Join(t.TempDir(), "test.sock")

	listener, err := Listen(addr)
	if err != nil {
		t.Fatal("unable to listen:", err)
	}

	hub := broadcast.NewHub()
	server := New(listener, hub, func() session.Backend { return fakeBackend{} }, logging.RootLogger)
	go server.Serve()
	t.Cleanup(func() { server.Close() })

	return server, addr, hub
}

func TestServerRespondsToHash(t *testing.T) {
	_, addr, _ := startTestServer(t)

	conn, err := net.Dial("unix", addr)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(`{"cmd":"hash","root":"/r","path":".","glob":"*.go"}` + "\n")); err != nil {
		t.Fatal(err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		t.Fatal("unable to read response:", err)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal([]byte(line), &resp); err != nil {
		t.Fatal("invalid JSON response:", err, line)
	}
	if resp["file_count"] != float64(1) {
		t.Errorf("unexpected response: %v", resp)
	}
}

func TestServerSecondListenFailsAlreadyRunning(t *testing.T) {
	_, addr, _ := startTestServer(t)

	if _, err := Listen(addr); err != ErrAlreadyRunning {
		t.Errorf("expected ErrAlreadyRunning, got %v", err)
	}
}

func TestServerRejectsMalformedRequest(t *testing.T) {
	_, addr, _ := startTestServer(t)

	conn, err := net.Dial("unix", addr)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("not json\n")); err != nil {
		t.Fatal(err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		t.Fatal("unable to read response:", err)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal([]byte(line), &resp); err != nil {
		t.Fatal(err)
	}
	if _, ok := resp["error"]; !ok {
		t.Errorf("expected error response, got %v", resp)
	}
}

func TestServerDeliversBroadcastEventToSubscribedSession(t *testing.T) {
	_, addr, hub := startTestServer(t)

	conn, err := net.Dial("unix", addr)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	key := subscription.MakeKey("/r", ".", "*.go")
	if _, err := conn.Write([]byte(`{"cmd":"watch","root":"/r","path":".","glob":"*.go"}` + "\n")); err != nil {
		t.Fatal(err)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	reader := bufio.NewReader(conn)
	if _, err := reader.ReadString('\n'); err != nil {
		t.Fatal("unable to read watch ack:", err)
	}

	hub.Publish(broadcast.Event{Key: string(key), Paths: []string{"/r/x.go"}})

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	line, err := reader.ReadString('\n')
	if err != nil {
		t.Fatal("unable to read event:", err)
	}

	var event map[string]interface{}
	if err := json.Unmarshal([]byte(line), &event); err != nil {
		t.Fatal(err)
	}
	if event["key"] != string(key) {
		t.Errorf("unexpected event: %v", event)
	}
}
