package ipcaddr

import (
	"context"
	"net"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/Microsoft/go-winio"
	"github.com/pkg/errors"
)

// pipeName derives a named pipe path from an endpoint address. If addr is
// already a named pipe path, it's used as-is; otherwise it's treated as a
// filesystem-style path and converted to a pipe name rooted at the same
// leaf, so that "--socket-path" behaves consistently across platforms.
func pipeName(addr string) string {
	if strings.HasPrefix(addr, `\\.\pipe\`) {
		return addr
	}
	leaf := strings.TrimSuffix(filepath.Base(addr), filepath.Ext(addr))
	if leaf == "" {
		leaf = "fswatchd"
	}
	return `\\.\pipe\` + leaf
}

func dialContext(ctx context.Context, addr string) (net.Conn, error) {
	return winio.DialPipeContext(ctx, pipeName(addr))
}

func newListener(addr string) (net.Listener, error) {
	name := pipeName(addr)

	current, err := user.Current()
	if err != nil {
		return nil, errors.Wrap(err, "unable to look up current user")
	}

	// Grant full access to the owning user only, and prevent inherited
	// permissions from widening access to the pipe.
	securityDescriptor := "D:P(A;;GA;;;" + current.Uid + ")"
	configuration := &winio.PipeConfig{
		SecurityDescriptor: securityDescriptor,
	}

	listener, err := winio.ListenPipe(name, configuration)
	if err != nil {
		return nil, err
	}
	return listener, nil
}
