// +build !windows,!plan9

package daemonlock

import (
	"os"
	"syscall"

	"github.com/pkg/errors"
)

func (l *Lock) tryLock() error {
	spec := syscall.Flock_t{
		Type:   syscall.F_WRLCK,
		Whence: int16(os.SEEK_SET),
		Start:  0,
		Len:    0,
	}
	if err := syscall.FcntlFlock(l.file.Fd(), syscall.F_SETLK, &spec); err != nil {
		return errors.Wrap(err, "daemon already running (unable to acquire lock)")
	}
	return nil
}

func (l *Lock) unlock() error {
	spec := syscall.Flock_t{
		Type:   syscall.F_UNLCK,
		Whence: int16(os.SEEK_SET),
		Start:  0,
		Len:    0,
	}
	return syscall.FcntlFlock(l.file.Fd(), syscall.F_SETLK, &spec)
}
