package ipcaddr

import (
	"context"
	"net"
	"path/filepath"
	"testing"
)

func TestProbeNoEndpoint(t *testing.T) {
	addr := filepath.Join(t.TempDir(), "test.sock")
	if Probe(addr) {
		t.Error("probe reported a daemon at an address with no listener")
	}
}

func TestListenAndDial(t *testing.T) {
	addr := filepath.Join(t.TempDir(), "test.sock")

	listener, err := NewListener(addr)
	if err != nil {
		t.Fatal("unable to create listener:", err)
	}
	defer listener.Close()

	if !Probe(addr) {
		t.Error("probe failed to detect live listener")
	}

	accepted := make(chan struct{})
	go func() {
		conn, err := listener.Accept()
		if err == nil {
			conn.Close()
		}
		close(accepted)
	}()

	conn, err := DialContext(context.Background(), addr)
	if err != nil {
		t.Fatal("unable to dial listener:", err)
	}
	conn.Close()
	<-accepted
}

func TestNewListenerRemovesStaleSocket(t *testing.T) {
	addr := filepath.Join(t.TempDir(), "test.sock")

	first, err := NewListener(addr)
	if err != nil {
		t.Fatal("unable to create first listener:", err)
	}
	// Close without cleanup, leaving a stale socket file behind.
	if unixListener, ok := first.(*net.UnixListener); ok {
		unixListener.SetUnlinkOnClose(false)
	}
	first.Close()

	second, err := NewListener(addr)
	if err != nil {
		t.Fatal("unable to create second listener over stale socket:", err)
	}
	defer second.Close()
}
