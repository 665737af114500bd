package storage

import (
	"path"
	"path/filepath"
	"strings"
)

type patternKind int

const (
	// *.tmp, Thumbs.db: matched against the base name
	kindBase patternKind = iota
	// .git/, node_modules/: a directory anywhere in the tree
	kindDir
	// **/cache/*: matched at any depth
	kindAnyDepth
	// build/*.o: matched against the relative path
	kindPath
)

type pattern struct {
	kind patternKind
	expr string
}

// Matcher decides whether a path relative to a scan root is excluded.
// Supported patterns:
//   - Simple glob patterns: *.tmp, *.log
//   - Directory patterns: .git/, node_modules/
//   - Path patterns: build/*, **/test/*
type Matcher struct {
	patterns []pattern
}

// NewMatcher compiles the given patterns, ignoring empty ones
func NewMatcher(patterns []string) *Matcher {
	m := &Matcher{}
	for _, raw := range patterns {
		expr := filepath.ToSlash(strings.TrimSpace(raw))
		if expr == "" {
			continue
		}

		switch {
		case strings.HasSuffix(expr, "/"):
			m.patterns = append(m.patterns, pattern{kind: kindDir, expr: strings.TrimSuffix(expr, "/")})
		case strings.HasPrefix(expr, "**/"):
			m.patterns = append(m.patterns, pattern{kind: kindAnyDepth, expr: strings.TrimPrefix(expr, "**/")})
		case strings.Contains(expr, "/"):
			m.patterns = append(m.patterns, pattern{kind: kindPath, expr: expr})
		default:
			m.patterns = append(m.patterns, pattern{kind: kindBase, expr: expr})
		}
	}
	return m
}

// Empty reports whether the matcher has no patterns
func (m *Matcher) Empty() bool {
	return m == nil || len(m.patterns) == 0
}

// Match reports whether relPath should be excluded. Directory patterns only
// prune directories; files below a pruned directory are never visited.
func (m *Matcher) Match(relPath string, isDir bool) bool {
	if m.Empty() {
		return false
	}

	normalized := filepath.ToSlash(relPath)
	base := path.Base(normalized)

	for _, p := range m.patterns {
		switch p.kind {
		case kindDir:
			if isDir && matchAnyComponent(normalized, p.expr) {
				return true
			}
		case kindAnyDepth:
			if globMatch(p.expr, base) || normalized == p.expr ||
				strings.HasSuffix(normalized, "/"+p.expr) || matchSuffixPath(normalized, p.expr) {
				return true
			}
		case kindPath:
			if globMatch(p.expr, normalized) || matchSuffixPath(normalized, p.expr) {
				return true
			}
		case kindBase:
			if globMatch(p.expr, base) {
				return true
			}
		}
	}

	return false
}

// matchAnyComponent reports whether any path component matches expr.
// A directory pattern pruned at its first occurrence never sees nested
// paths, but relative paths passed directly are still handled.
func matchAnyComponent(relPath, expr string) bool {
	for _, part := range strings.Split(relPath, "/") {
		if globMatch(expr, part) {
			return true
		}
	}
	return false
}

// matchSuffixPath matches a multi-component expression against every
// trailing sub-path of relPath
func matchSuffixPath(relPath, expr string) bool {
	if !strings.Contains(expr, "/") {
		return false
	}
	parts := strings.Split(relPath, "/")
	for i := range parts {
		if globMatch(expr, strings.Join(parts[i:], "/")) {
			return true
		}
	}
	return false
}

func globMatch(expr, name string) bool {
	matched, _ := path.Match(expr, name)
	return matched
}
