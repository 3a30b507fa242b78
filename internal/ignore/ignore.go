// Package ignore implements gitignore-style pattern matching used to
// exclude paths from file enumeration and hashing.
package ignore

import (
	"fmt"
	pathpkg "path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Canonicalize attempts to resolve symbolic links in path, returning the
// resolved path and true on success. On failure (the path doesn't exist, a
// component isn't a directory, a permission error, etc.) it returns path
// unchanged and false, leaving the caller to fall back to the
// un-canonicalized form.
func Canonicalize(path string) (string, bool) {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return path, false
	}
	return resolved, true
}

// cleanPreservingTrailingSlash is a variant of path.Clean that preserves a
// trailing slash, which is significant in ignore pattern syntax (it marks a
// directory-only pattern).
func cleanPreservingTrailingSlash(path string) string {
	var needTrailingSlash bool
	if l := len(path); l > 1 {
		needTrailingSlash = path[l-1] == '/'
	}
	result := pathpkg.Clean(path)
	if needTrailingSlash {
		return result + "/"
	}
	return result
}

// pattern represents a single parsed ignore pattern.
type pattern struct {
	negated       bool
	directoryOnly bool
	matchLeaf     bool
	glob          string
}

// newPattern validates and parses a single ignore pattern line.
func newPattern(raw string) (*pattern, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty pattern")
	}

	var negated bool
	if raw[0] == '!' {
		negated = true
		raw = raw[1:]
	}
	if raw == "" {
		return nil, fmt.Errorf("negated empty pattern")
	}

	raw = cleanPreservingTrailingSlash(raw)
	if raw == "/" || raw == "//" {
		return nil, fmt.Errorf("pattern targets enumeration root")
	}

	var absolute bool
	if raw[0] == '/' {
		absolute = true
		raw = raw[1:]
	}

	var directoryOnly bool
	if raw[len(raw)-1] == '/' {
		directoryOnly = true
		raw = raw[:len(raw)-1]
	}

	containsSlash := strings.IndexByte(raw, '/') >= 0

	if _, err := doublestar.Match(raw, "a"); err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", raw, err)
	}

	return &pattern{
		negated:       negated,
		directoryOnly: directoryOnly,
		matchLeaf:     !absolute && !containsSlash,
		glob:          raw,
	}, nil
}

// matches reports whether this pattern matches path, a slash-separated path
// relative to the enumeration root.
func (p *pattern) matches(path string, directory bool) bool {
	if p.directoryOnly && !directory {
		return false
	}
	if match, _ := doublestar.Match(p.glob, path); match {
		return true
	}
	if p.matchLeaf && path != "" {
		if match, _ := doublestar.Match(p.glob, pathpkg.Base(path)); match {
			return true
		}
	}
	return false
}

// Matcher evaluates a set of ordered ignore patterns against candidate
// paths. Later patterns take precedence, and a pattern prefixed with "!"
// re-includes a path that an earlier pattern excluded.
type Matcher struct {
	patterns []*pattern
}

// New parses an ordered list of ignore pattern lines into a Matcher.
func New(patterns []string) (*Matcher, error) {
	parsed := make([]*pattern, 0, len(patterns))
	for _, raw := range patterns {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		p, err := newPattern(raw)
		if err != nil {
			return nil, fmt.Errorf("unable to parse ignore pattern %q: %w", raw, err)
		}
		parsed = append(parsed, p)
	}
	return &Matcher{patterns: parsed}, nil
}

// Ignored reports whether path (slash-separated, relative to the
// enumeration root) should be excluded. directory indicates whether path
// refers to a directory, which affects directory-only patterns.
func (m *Matcher) Ignored(path string, directory bool) bool {
	if m == nil {
		return false
	}
	var ignored bool
	for _, p := range m.patterns {
		if p.matches(path, directory) {
			ignored = !p.negated
		}
	}
	return ignored
}
