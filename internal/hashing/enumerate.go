package hashing

import (
	"fmt"
	"io/fs"
	"os"
	pathpkg "path"
	"path/filepath"
	"sort"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/fshashd/fswatchd/internal/ignore"
)

// DefaultVCSIgnores are always applied in addition to any .gitignore-style
// files discovered during traversal.
var DefaultVCSIgnores = []string{
	".git/",
	".svn/",
	".hg/",
	".bzr/",
	"_darcs/",
}

// ignoreFileNames are the names of ignore files loaded, in traversal order,
// from each directory as it's visited.
var ignoreFileNames = []string{".gitignore", ".ignore"}

// globalIgnoreOnce loads the global ignore file at most once per process,
// mirroring git's own behavior of reading it a single time per invocation.
var (
	globalIgnoreOnce     sync.Once
	globalIgnorePatterns []string
)

// globalIgnorePath locates git's global ignore file: $XDG_CONFIG_HOME/git/ignore,
// falling back to ~/.config/git/ignore.
func globalIgnorePath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "git", "ignore")
}

// loadGlobalIgnorePatterns returns the pattern lines from the global ignore
// file, loaded once and cached for the life of the process. A missing file
// is not an error; it simply contributes no patterns.
func loadGlobalIgnorePatterns() []string {
	globalIgnoreOnce.Do(func() {
		path := globalIgnorePath()
		if path == "" {
			return
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return
		}
		globalIgnorePatterns = splitLines(string(data))
	})
	return globalIgnorePatterns
}

// rootPatterns returns the pattern set every directory inherits regardless
// of its own ignore files: the always-on VCS directory ignores plus the
// global ignore file's patterns.
func rootPatterns() []string {
	return append(append([]string{}, DefaultVCSIgnores...), loadGlobalIgnorePatterns()...)
}

// baseMatcher builds the ignore matcher in effect at the enumeration root.
// A malformed global ignore file is skipped rather than failing the whole
// query.
func baseMatcher() *ignore.Matcher {
	if m, err := ignore.New(rootPatterns()); err == nil {
		return m
	}
	return mustMatcher(DefaultVCSIgnores)
}

// InvalidGlobError indicates that glob is not a well-formed pattern.
type InvalidGlobError struct {
	Glob  string
	Cause error
}

func (e *InvalidGlobError) Error() string {
	return fmt.Sprintf("invalid glob pattern %q: %v", e.Glob, e.Cause)
}

func (e *InvalidGlobError) Unwrap() error {
	return e.Cause
}

// NoFilesMatchedError indicates that a query's enumeration produced zero
// files, which this system treats as a query-level error rather than a
// valid empty result.
type NoFilesMatchedError struct {
	Root, Path, Glob string
}

func (e *NoFilesMatchedError) Error() string {
	return "No files matched the glob pattern"
}

// Enumerate walks root/path and returns the absolute paths of regular files
// whose path relative to root/path matches glob, sorted byte-lexicographically.
// Symbolic links are not followed. Directory traversal honors VCS ignore
// directories and any .gitignore/.ignore files found along the way; a
// directory's patterns add to those of its ancestors. Ignore files above
// root/path are not read, and every pattern is matched against the path
// relative to root/path, not relative to the directory of its ignore file.
func Enumerate(root, path, glob string) ([]string, error) {
	if _, err := doublestar.Match(glob, "a"); err != nil {
		return nil, &InvalidGlobError{Glob: glob, Cause: err}
	}

	base := filepath.Join(root, path)
	info, err := os.Lstat(base)
	if err != nil {
		return nil, fmt.Errorf("unable to stat enumeration root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("enumeration root %s is not a directory", base)
	}

	var matches []string
	stack := []ignoreFrame{{matcher: baseMatcher(), patterns: rootPatterns()}}

	err = filepath.WalkDir(base, func(walked string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if walked == base {
				return walkErr
			}
			// Non-root traversal errors (e.g. permission denied on an
			// unrelated subtree) are skipped rather than aborting the query.
			return nil
		}

		if entry.Type()&fs.ModeSymlink != 0 {
			if entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		relative, err := filepath.Rel(base, walked)
		if err != nil {
			return nil
		}
		relative = filepath.ToSlash(relative)
		if relative == "." {
			relative = ""
		}

		for len(stack) > 1 && !withinFrame(stack[len(stack)-1].directory, relative) {
			stack = stack[:len(stack)-1]
		}
		current := stack[len(stack)-1].matcher

		if entry.IsDir() {
			if relative != "" && current.Ignored(relative, true) {
				return filepath.SkipDir
			}
			inherited := stack[len(stack)-1].patterns
			if patterns := loadIgnoreFile(walked); len(patterns) > 0 {
				combined := append(append([]string{}, inherited...), patterns...)
				if merged, err := ignore.New(combined); err == nil {
					current, inherited = merged, combined
				}
			}
			stack = append(stack, ignoreFrame{directory: relative, matcher: current, patterns: inherited})
			return nil
		}

		if relative != "" && current.Ignored(relative, false) {
			return nil
		}

		if match, _ := doublestar.Match(glob, relative); match {
			matches = append(matches, walked)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("unable to walk enumeration root: %w", err)
	}

	if len(matches) == 0 {
		return nil, &NoFilesMatchedError{Root: root, Path: path, Glob: glob}
	}

	sort.Strings(matches)
	return matches, nil
}

// ignoreFrame tracks the ignore matcher in effect for a directory and its
// descendants during traversal.
type ignoreFrame struct {
	directory string
	matcher   *ignore.Matcher
	patterns  []string
}

// withinFrame reports whether candidate is at or below directory, using
// path-component semantics.
func withinFrame(directory, candidate string) bool {
	if directory == "" {
		return true
	}
	return candidate == directory || len(candidate) > len(directory) && candidate[:len(directory)+1] == directory+"/"
}

func mustMatcher(patterns []string) *ignore.Matcher {
	m, err := ignore.New(patterns)
	if err != nil {
		// DefaultVCSIgnores is a fixed, known-valid pattern set.
		panic(err)
	}
	return m
}

// loadIgnoreFile reads any recognized ignore file inside directory and
// returns its non-empty, non-comment lines.
func loadIgnoreFile(directory string) []string {
	var lines []string
	for _, name := range ignoreFileNames {
		data, err := os.ReadFile(filepath.Join(directory, name))
		if err != nil {
			continue
		}
		for _, line := range splitLines(string(data)) {
			lines = append(lines, line)
		}
	}
	return lines
}

func splitLines(content string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			lines = append(lines, content[start:i])
			start = i + 1
		}
	}
	if start < len(content) {
		lines = append(lines, content[start:])
	}
	return lines
}

// relativeToQueryRoot computes the slash-separated path of file relative to
// root/path, used by the event pipeline's matching step (§4.6). Both sides
// are canonicalized (symbolic links resolved) before comparison; if either
// side's canonicalization fails, the un-canonicalized form is used
// consistently on both sides rather than mixing resolved and unresolved
// paths.
func relativeToQueryRoot(root, path, file string) (string, error) {
	base := filepath.Join(root, path)

	canonBase, baseOK := ignore.Canonicalize(base)
	canonFile, fileOK := ignore.Canonicalize(file)
	if !baseOK || !fileOK {
		canonBase, canonFile = base, file
	}

	relative, err := filepath.Rel(canonBase, canonFile)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(relative), nil
}

// MatchesQuery reports whether file (an absolute path) is selected by the
// query (root, path, glob): it must lie under root/path and its relative
// path must match glob.
func MatchesQuery(root, path, glob, file string) bool {
	relative, err := relativeToQueryRoot(root, path, file)
	if err != nil || relative == ".." || hasParentPrefix(relative) {
		return false
	}
	match, _ := doublestar.Match(glob, relative)
	return match
}

func hasParentPrefix(relative string) bool {
	return len(relative) >= 3 && relative[:3] == "../" || relative == pathpkg.Clean("..")
}
