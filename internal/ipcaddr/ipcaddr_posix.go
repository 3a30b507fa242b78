// +build !windows

package ipcaddr

import (
	"context"
	"net"
	"os"

	"github.com/pkg/errors"
)

func dialContext(ctx context.Context, addr string) (net.Conn, error) {
	dialer := &net.Dialer{}
	return dialer.DialContext(ctx, "unix", addr)
}

func newListener(addr string) (net.Listener, error) {
	// Remove the socket path if it exists but nothing is listening on it.
	// This is safe since the caller holds the daemon lock.
	if !Probe(addr) {
		if err := os.Remove(addr); err != nil && !os.IsNotExist(err) {
			return nil, errors.Wrap(err, "unable to remove stale socket")
		}
	}

	listener, err := net.Listen("unix", addr)
	if err != nil {
		return nil, err
	}

	if err := os.Chmod(addr, 0600); err != nil {
		listener.Close()
		return nil, errors.Wrap(err, "unable to set socket permissions")
	}

	return listener, nil
}
