// Package daemonlock provides the exclusive file lock that ensures only one
// fswatchd daemon runs per user at a time.
package daemonlock

import (
	"os"

	"github.com/pkg/errors"

	"github.com/fshashd/fswatchd/internal/logging"
	"github.com/fshashd/fswatchd/internal/paths"
)

// Lock represents the global daemon lock, held by a single daemon instance
// at a time.
type Lock struct {
	file   *os.File
	logger *logging.Logger
}

// Acquire attempts to acquire the daemon lock without blocking. If another
// daemon already holds it, the returned error indicates as much.
func Acquire(logger *logging.Logger) (*Lock, error) {
	lockPath, err := paths.LockPath()
	if err != nil {
		return nil, errors.Wrap(err, "unable to compute daemon lock path")
	}

	file, err := os.OpenFile(lockPath, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, errors.Wrap(err, "unable to open daemon lock file")
	}

	lock := &Lock{file: file, logger: logger}
	if err := lock.tryLock(); err != nil {
		file.Close()
		return nil, err
	}

	return lock, nil
}

// Release releases the daemon lock and closes the underlying file.
func (l *Lock) Release() error {
	if err := l.unlock(); err != nil {
		l.logger.Warnf("unable to unlock daemon lock: %v", err)
	}
	if err := l.file.Close(); err != nil {
		return errors.Wrap(err, "unable to close daemon lock file")
	}
	return nil
}
