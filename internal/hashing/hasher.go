// Package hashing computes per-file and aggregate content hashes over file
// sets selected by a (root, path, glob) query.
package hashing

import (
	"encoding/binary"
	"fmt"
	"os"
	"sort"

	"github.com/zeebo/xxh3"
)

// FileHash is the 64-bit content hash of a single file.
type FileHash uint64

// ReadFileError indicates that a file selected by a query could not be
// read. The query that produced it is aborted; files already hashed before
// the failure remain valid in the per-file cache.
type ReadFileError struct {
	Path  string
	Cause error
}

func (e *ReadFileError) Error() string {
	return fmt.Sprintf("unable to read %s: %v", e.Path, e.Cause)
}

func (e *ReadFileError) Unwrap() error {
	return e.Cause
}

// HashFile reads path in its entirety and returns its 64-bit content hash.
func HashFile(path string) (FileHash, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, &ReadFileError{Path: path, Cause: err}
	}
	return FileHash(xxh3.Hash(data)), nil
}

// Aggregate folds a set of per-file hashes into a single digest that's
// invariant to the order in which the files were discovered: hashes are
// sorted ascending, serialized as 8-byte little-endian words, concatenated,
// and rehashed.
func Aggregate(hashes []FileHash) uint64 {
	sorted := make([]FileHash, len(hashes))
	copy(sorted, hashes)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	buffer := make([]byte, 8*len(sorted))
	for i, h := range sorted {
		binary.LittleEndian.PutUint64(buffer[i*8:], uint64(h))
	}
	return xxh3.Hash(buffer)
}

// FormatDigest formats an aggregate hash as 16 lowercase hex digits.
func FormatDigest(digest uint64) string {
	return fmt.Sprintf("%016x", digest)
}
