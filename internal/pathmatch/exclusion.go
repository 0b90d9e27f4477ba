package pathmatch

import "strings"

// ExclusionList answers whether a path is excluded from a policy. It holds
// literal path prefixes (supplied in addition to configuration) and glob
// patterns (from configuration). Immutable after construction, safe for
// concurrent use.
type ExclusionList struct {
	prefixes []string
	patterns []string
}

// NewExclusionList creates an ExclusionList from literal prefixes and glob
// patterns. The inputs are copied.
func NewExclusionList(prefixes, patterns []string) *ExclusionList {
	e := &ExclusionList{
		prefixes: make([]string, len(prefixes)),
		patterns: make([]string, len(patterns)),
	}
	copy(e.prefixes, prefixes)
	copy(e.patterns, patterns)
	return e
}

// IsExcluded reports whether path starts with any literal prefix or matches
// any glob pattern. Evaluation short-circuits on the first match.
func (e *ExclusionList) IsExcluded(path string) bool {
	for _, prefix := range e.prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	for _, pattern := range e.patterns {
		if Match(path, pattern) {
			return true
		}
	}
	return false
}

// Patterns returns the configured glob patterns.
func (e *ExclusionList) Patterns() []string {
	out := make([]string, len(e.patterns))
	copy(out, e.patterns)
	return out
}
