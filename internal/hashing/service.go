package hashing

// Result is the outcome of a successful hash query: the aggregate digest
// and the number of files that contributed to it.
type Result struct {
	Hash      uint64
	FileCount int
}

// Cache is the subset of per-file cache behavior the hash service needs.
// It's satisfied by the state package's perFileCache adapter, kept here as
// an interface so this
// package stays free of any lock discipline concerns.
type Cache interface {
	Get(path string) (FileHash, bool)
	Put(path string, hash FileHash)
}

// HashWithCache enumerates the files selected by (root, path, glob), hashes
// each (consulting cache first), and returns the aggregate result. On a
// per-file read failure, the query aborts; entries already placed in cache
// by this call remain valid, since they reflect files that were
// successfully read.
func HashWithCache(cache Cache, root, path, glob string) (Result, error) {
	files, err := Enumerate(root, path, glob)
	if err != nil {
		return Result{}, err
	}

	hashes := make([]FileHash, 0, len(files))
	for _, file := range files {
		if cached, ok := cache.Get(file); ok {
			hashes = append(hashes, cached)
			continue
		}
		hash, err := HashFile(file)
		if err != nil {
			return Result{}, err
		}
		cache.Put(file, hash)
		hashes = append(hashes, hash)
	}

	return Result{
		Hash:      Aggregate(hashes),
		FileCount: len(hashes),
	}, nil
}
