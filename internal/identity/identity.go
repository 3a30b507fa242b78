// Package identity holds the static identity of the fswatchd binary: its
// name (used to derive default IPC endpoint and state directory names) and
// its version string.
package identity

import "fmt"

const (
	// Name is the name of the daemon, used to derive the default socket
	// path, named pipe name, and state directory.
	Name = "fswatchd"

	// VersionMajor is the current major version.
	VersionMajor = 0
	// VersionMinor is the current minor version.
	VersionMinor = 1
	// VersionPatch is the current patch version.
	VersionPatch = 0
)

// Version is the dotted version string.
var Version = fmt.Sprintf("%d.%d.%d", VersionMajor, VersionMinor, VersionPatch)
