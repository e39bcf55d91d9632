// Package glob compiles lists of output patterns into matchers.
package glob

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	lru "github.com/hashicorp/golang-lru/v2"
)

var ErrInvalidGlobPattern = errors.New("invalid glob pattern")

// PatternError reports a pattern that failed to compile.
type PatternError struct {
	Pattern string
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("%s: %q", ErrInvalidGlobPattern, e.Pattern)
}

func (e *PatternError) Unwrap() error { return ErrInvalidGlobPattern }

// Set matches slash-separated relative paths against a compiled pattern list.
//
// A path matches when it matches at least one include pattern and no
// exclude ("!"-prefixed) pattern. Brace alternatives and "**" are supported.
type Set struct {
	include []string
	exclude []string
}

// Build compiles patterns into a Set. Leading "./" is ignored.
func Build(patterns []string) (*Set, error) {
	s := &Set{}
	for _, p := range patterns {
		negated := strings.HasPrefix(p, "!")
		clean := normalize(strings.TrimPrefix(p, "!"))
		if clean == "" || !doublestar.ValidatePattern(clean) {
			return nil, &PatternError{Pattern: p}
		}
		if negated {
			s.exclude = append(s.exclude, clean)
		} else {
			s.include = append(s.include, clean)
		}
	}
	return s, nil
}

// Match reports whether the relative path p is selected by the set.
func (s *Set) Match(p string) bool {
	p = normalize(p)
	matched := false
	for _, pattern := range s.include {
		if doublestar.MatchUnvalidated(pattern, p) {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}
	for _, pattern := range s.exclude {
		if doublestar.MatchUnvalidated(pattern, p) {
			return false
		}
	}
	return true
}

// Empty reports whether the set can match nothing.
func (s *Set) Empty() bool { return len(s.include) == 0 }

func normalize(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	for strings.HasPrefix(p, "./") {
		p = p[2:]
	}
	if p == "" {
		return ""
	}
	if strings.ContainsAny(p, "*?[{") {
		return p
	}
	return path.Clean(p)
}

// Cache memoizes compiled sets by pattern list. It is safe for concurrent use.
type Cache struct {
	sets *lru.Cache[string, *Set]
}

// DefaultCacheSize bounds the number of compiled pattern lists kept.
const DefaultCacheSize = 256

// NewCache returns a cache holding up to size compiled sets.
func NewCache(size int) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[string, *Set](size)
	if err != nil {
		// only returned for a non-positive size
		panic(err)
	}
	return &Cache{sets: c}
}

// Build returns the compiled set for patterns, compiling it on first use.
// Compile failures are not cached.
func (c *Cache) Build(patterns []string) (*Set, error) {
	key := strings.Join(patterns, "\x00")
	if s, ok := c.sets.Get(key); ok {
		return s, nil
	}
	s, err := Build(patterns)
	if err != nil {
		return nil, err
	}
	c.sets.Add(key, s)
	return s, nil
}
