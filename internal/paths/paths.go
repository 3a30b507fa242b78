// Package paths computes the filesystem locations fswatchd uses for its
// daemon lock and persisted state, both rooted under a per-user
// dot-directory in the user's home directory, and its default IPC endpoint
// in /tmp.
package paths

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/fshashd/fswatchd/internal/identity"
)

const (
	// DirectoryName is the name of fswatchd's data directory, created in
	// the user's home directory.
	DirectoryName = "." + identity.Name

	// LockName is the name of the daemon lock file within the data
	// directory.
	LockName = "daemon.lock"

	// EndpointName is the file name of the default daemon IPC endpoint, a
	// Unix socket in /tmp. On Windows its base name (without extension)
	// becomes the default named pipe name.
	EndpointName = identity.Name + ".sock"

	// StateName is the name of the persisted watch-set file within the
	// data directory.
	StateName = "state.json"
)

// Directory computes (and optionally creates) the fswatchd data directory.
func Directory(create bool) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "unable to determine home directory")
	} else if home == "" {
		return "", errors.New("home directory path empty")
	}

	directory := filepath.Join(home, DirectoryName)
	if create {
		if err := os.MkdirAll(directory, 0700); err != nil {
			return "", errors.Wrap(err, "unable to create data directory")
		}
	}

	return directory, nil
}

// Subpath computes a path to a named file inside the fswatchd data
// directory, creating the directory if necessary.
func Subpath(name string) (string, error) {
	directory, err := Directory(true)
	if err != nil {
		return "", err
	}
	return filepath.Join(directory, name), nil
}

// LockPath computes the path to the daemon lock file.
func LockPath() (string, error) {
	return Subpath(LockName)
}

// DefaultEndpoint computes the default IPC endpoint path: /tmp/fswatchd.sock,
// which the Windows listener maps to the named pipe \\.\pipe\fswatchd.
func DefaultEndpoint() (string, error) {
	return "/tmp/" + EndpointName, nil
}

// StatePath computes the path to the persisted watch-set file.
func StatePath() (string, error) {
	return Subpath(StateName)
}
