// +build !windows

package cmdutil

import (
	"os"
	"syscall"
)

// TerminationSignals are the signals fswatchd treats as requests to shut
// down gracefully.
var TerminationSignals = []os.Signal{
	syscall.SIGINT,
	syscall.SIGTERM,
}
