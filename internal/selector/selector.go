// Package selector decides which repository paths are eligible for indexing.
package selector

import (
	"bytes"
	"path"
	"strings"
	"unicode/utf8"
)

// DefaultBlockedDirs lists directories that never contain indexable source:
// version-control metadata, dependency and build output, editor caches.
var DefaultBlockedDirs = []string{
	".git", ".hg", ".svn",
	"node_modules", "vendor", "bower_components",
	"__pycache__", ".venv", "venv", ".tox", ".mypy_cache", ".pytest_cache",
	"dist", "build", "target", "out", ".next", ".cache",
	".idea", ".vscode",
}

// Selector holds the blocked directory names.
type Selector struct {
	blocked map[string]struct{}
}

// New returns a Selector blocking DefaultBlockedDirs plus any extra names.
func New(extra ...string) *Selector {
	s := &Selector{blocked: make(map[string]struct{}, len(DefaultBlockedDirs)+len(extra))}
	for _, name := range DefaultBlockedDirs {
		s.blocked[name] = struct{}{}
	}
	for _, name := range extra {
		if name = strings.Trim(strings.TrimSpace(name), "/"); name != "" {
			s.blocked[name] = struct{}{}
		}
	}
	return s
}

// SkipDir reports whether a directory with this base name must not be
// descended into.
func (s *Selector) SkipDir(name string) bool {
	_, ok := s.blocked[name]
	return ok
}

// Include reports whether a slash-separated path relative to the repository
// root is eligible. A path is excluded when it starts with "blocked/" or when
// any of its segments equals a blocked name.
func (s *Selector) Include(p string) bool {
	p = strings.TrimPrefix(path.Clean("/"+p), "/")
	if p == "" {
		return false
	}
	for name := range s.blocked {
		if strings.HasPrefix(p, name+"/") {
			return false
		}
	}
	for _, segment := range strings.Split(p, "/") {
		if s.SkipDir(segment) {
			return false
		}
	}
	return true
}

// Decodable reports whether content is text: valid UTF-8 with no NUL bytes.
func Decodable(content []byte) bool {
	return utf8.Valid(content) && bytes.IndexByte(content, 0) < 0
}
