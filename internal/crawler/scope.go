package crawler

import (
	"net/url"
	"path/filepath"
	"strings"
)

// Scope filters candidate targets by URL path using glob patterns. It
// narrows the crawl beyond the host boundary the classifier already
// enforces: ignored paths are skipped, and when follow patterns are set
// only matching paths are crawled.
type Scope struct {
	// ignore are path patterns to skip (e.g. "/logout*", "/admin/*").
	ignore []string

	// follow, when non-empty, restricts the crawl to matching paths.
	follow []string
}

// NewScope creates a Scope from ignore and follow pattern lists. Either
// list may be empty; an empty Scope admits every path.
func NewScope(ignore, follow []string) *Scope {
	return &Scope{ignore: ignore, follow: follow}
}

// Admits reports whether a URL's path is inside the crawl scope.
//
// Logic:
//  1. A path matching any ignore pattern is skipped
//  2. If follow patterns are set, the path must match at least one
//  3. Otherwise the path is admitted
func (s *Scope) Admits(u *url.URL) bool {
	if s == nil {
		return true
	}

	p := u.Path
	if p == "" {
		p = "/"
	}

	for _, pattern := range s.ignore {
		if matchGlob(pattern, p) {
			return false
		}
	}

	if len(s.follow) > 0 {
		for _, pattern := range s.follow {
			if matchGlob(pattern, p) {
				return true
			}
		}
		return false
	}

	return true
}

// matchGlob checks if a path matches a glob pattern. Beyond standard
// filepath.Match semantics, "/prefix/*" matches every path under the
// prefix and "*.ext" matches the extension anywhere in the tree.
func matchGlob(pattern, p string) bool {
	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		if p == prefix || strings.HasPrefix(p, prefix+"/") {
			return true
		}
	}

	if strings.HasPrefix(pattern, "*.") {
		if strings.HasSuffix(p, strings.TrimPrefix(pattern, "*")) {
			return true
		}
	}

	if matched, err := filepath.Match(pattern, p); err == nil && matched {
		return true
	}

	// Extension-style patterns should also match against the final path
	// segment ("*.php" vs "/a/b/c.php").
	if strings.Contains(pattern, "*") && !strings.Contains(pattern, "/") {
		if matched, err := filepath.Match(pattern, filepath.Base(p)); err == nil && matched {
			return true
		}
	}

	return false
}
