package glob

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSet_Match(t *testing.T) {
	s, err := Build([]string{"multi/*.{js,map,ts}", "dist/**", "!dist/**/*.map", "./packages/*/package.json"})
	require.NoError(t, err)

	for p, want := range map[string]bool{
		"multi/file.js":                true,
		"multi/file.map":               true,
		"multi/src.ts":                 true,
		"multi/file.txt":               false,
		"multi/nested/file.js":         false,
		"dist/app/main.js":             true,
		"dist/app/main.js.map":         false,
		"packages/nx/package.json":     true,
		"./packages/nx/package.json":   true,
		"packages/nx/src/package.json": false,
	} {
		assert.Equal(t, want, s.Match(p), p)
	}
}

func TestBuild_InvalidPattern(t *testing.T) {
	for _, patterns := range [][]string{
		{"multi/*.{js,map"},
		{"ok/*", "[a-"},
		{"!"},
	} {
		_, err := Build(patterns)
		assert.ErrorIs(t, err, ErrInvalidGlobPattern, "patterns=%v", patterns)
	}
}

func TestSet_OnlyExcludes(t *testing.T) {
	s, err := Build([]string{"!*.map"})
	require.NoError(t, err)
	assert.True(t, s.Empty())
	assert.False(t, s.Match("a.js"))
}

func TestCache(t *testing.T) {
	c := NewCache(2)
	a, err := c.Build([]string{"*.js"})
	require.NoError(t, err)
	b, err := c.Build([]string{"*.js"})
	require.NoError(t, err)
	assert.Same(t, a, b)

	_, err = c.Build([]string{"{"})
	assert.ErrorIs(t, err, ErrInvalidGlobPattern)
}
