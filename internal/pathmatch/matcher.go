// Package pathmatch implements glob-style path pattern matching for route
// policy decisions.
//
// A pattern is a /-delimited string using two wildcard forms:
//
//   - `*`  matches exactly one non-empty path segment
//   - `**` matches the base path itself and every path below it
//
// Patterns without wildcards match by exact string equality.
package pathmatch

import "strings"

const (
	recursiveWildcard = "/**"
	segmentWildcard   = "/*"
)

// Match reports whether path matches pattern.
//
// Rule precedence:
//  1. A pattern containing "/**" matches the base (the part before "/**")
//     and any path under it: "/health/**" matches "/health", "/health/x"
//     and "/health/x/y" but not "/healthcheck".
//  2. Otherwise a pattern containing "/*" matches segment by segment, where
//     a "*" segment matches any single non-empty segment. Segment counts
//     must be equal, and a path with a trailing slash never matches.
//  3. Otherwise the pattern matches by exact equality.
func Match(path, pattern string) bool {
	if strings.Contains(pattern, recursiveWildcard) {
		return matchRecursive(path, pattern)
	}
	if strings.Contains(pattern, segmentWildcard) {
		return matchSegments(path, pattern)
	}
	return path == pattern
}

// matchRecursive matches a pattern containing "/**".
func matchRecursive(path, pattern string) bool {
	base := pattern[:strings.Index(pattern, recursiveWildcard)]
	return path == base || strings.HasPrefix(path, base+"/")
}

// matchSegments matches a pattern containing "/*" segment wildcards.
func matchSegments(path, pattern string) bool {
	// A trailing slash can never satisfy a single-segment pattern. The
	// normalizer strips these before routing, but the matcher must hold
	// on its own for callers outside the pipeline.
	if path != "/" && strings.HasSuffix(path, "/") {
		return false
	}

	patternSegs := splitSegments(pattern)
	pathSegs := splitSegments(path)

	if len(patternSegs) != len(pathSegs) {
		return false
	}

	for i, seg := range patternSegs {
		if seg == "*" {
			continue
		}
		if seg != pathSegs[i] {
			return false
		}
	}
	return true
}

// splitSegments splits on "/" and drops a trailing empty segment left by a
// trailing slash.
func splitSegments(s string) []string {
	segs := strings.Split(s, "/")
	if len(segs) > 0 && segs[len(segs)-1] == "" {
		segs = segs[:len(segs)-1]
	}
	return segs
}
