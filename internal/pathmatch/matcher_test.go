package pathmatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchRecursive(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		pattern string
		want    bool
	}{
		{"base path itself", "/health", "/health/**", true},
		{"one level below", "/health/liveness", "/health/**", true},
		{"two levels below", "/health/live/deep", "/health/**", true},
		{"shared prefix without separator", "/healthcheck", "/health/**", false},
		{"unrelated path", "/metrics", "/health/**", false},
		{"docs subtree", "/docs/oauth2-redirect", "/docs/**", true},
		{"recursive wins over single wildcard", "/a/x/y", "/a/*/b/**", false},
		{"recursive with earlier wildcard base", "/a/x/b/c", "/a/x/b/**", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Match(tt.path, tt.pattern))
		})
	}
}

func TestMatchSingleSegment(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		pattern string
		want    bool
	}{
		{"one segment matches", "/api/users", "/api/*", true},
		{"base alone does not match", "/api", "/api/*", false},
		{"extra segment does not match", "/api/users/me", "/api/*", false},
		{"trailing slash never matches", "/api/users/", "/api/*", false},
		{"root path with trailing slash rule", "/", "/api/*", false},
		{"multiple independent wildcards", "/users/42/posts/7", "/users/*/posts/*", true},
		{"multiple wildcards wrong literal", "/users/42/comments/7", "/users/*/posts/*", false},
		{"wildcard segment must be non-empty", "/api", "/api/*", false},
		{"literal segments compared exactly", "/api/users", "/apx/*", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Match(tt.path, tt.pattern))
		})
	}
}

func TestMatchExact(t *testing.T) {
	assert.True(t, Match("/metrics", "/metrics"))
	assert.True(t, Match("/openapi.json", "/openapi.json"))
	assert.False(t, Match("/metrics/x", "/metrics"))
	assert.False(t, Match("/metric", "/metrics"))
	assert.True(t, Match("/", "/"))
}

func TestMatchRecursivePrecedence(t *testing.T) {
	// A pattern containing both forms is treated as recursive, and the part
	// before "/**" is a literal base, not wildcard-expanded.
	pattern := "/api/*/files/**"
	assert.False(t, Match("/api/v1/files/a", pattern))
	assert.False(t, Match("/api/v1/files", pattern))
}

func TestExclusionList(t *testing.T) {
	list := NewExclusionList(
		[]string{"/internal"},
		[]string{"/health/**", "/metrics", "/api/*"},
	)

	assert.True(t, list.IsExcluded("/internal/debug"), "prefix match")
	assert.True(t, list.IsExcluded("/health"), "recursive base")
	assert.True(t, list.IsExcluded("/health/readiness"), "recursive child")
	assert.True(t, list.IsExcluded("/metrics"), "exact pattern")
	assert.True(t, list.IsExcluded("/api/items"), "single wildcard")
	assert.False(t, list.IsExcluded("/api/items/42"))
	assert.False(t, list.IsExcluded("/auth/token"))
}

func TestExclusionListEmpty(t *testing.T) {
	list := NewExclusionList(nil, nil)
	assert.False(t, list.IsExcluded("/anything"))
}

func TestExclusionListImmutable(t *testing.T) {
	patterns := []string{"/metrics"}
	list := NewExclusionList(nil, patterns)
	patterns[0] = "/changed"
	assert.True(t, list.IsExcluded("/metrics"))
	assert.False(t, list.IsExcluded("/changed"))
}
