package cmdutil

import (
	"os"
	"syscall"
)

// TerminationSignals are the signals fswatchd treats as requests to shut
// down gracefully. SIGINT and SIGTERM are emulated by the Go runtime on
// Windows (SIGINT on Ctrl-C/Ctrl-Break, SIGTERM on console close/logoff/
// shutdown events).
var TerminationSignals = []os.Signal{
	syscall.SIGINT,
	syscall.SIGTERM,
}
