// Package projects resolves project selector patterns against the project
// graph.
package projects

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"taskplan/internal/workspace"
)

var ErrProjectSelector = errors.New("invalid project selector")

// SelectorError reports a malformed selector pattern.
type SelectorError struct {
	Pattern string
	Msg     string
}

func (e *SelectorError) Error() string {
	return fmt.Sprintf("%s %q: %s", ErrProjectSelector, e.Pattern, e.Msg)
}

func (e *SelectorError) Unwrap() error { return ErrProjectSelector }

const tagPrefix = "tag:"

// FindMatchingProjects returns the names of the projects selected by patterns,
// sorted.
//
// Patterns are applied in order. Each pattern is one of:
//   - "*": every project
//   - an exact project name
//   - "tag:<glob>": projects with a matching tag
//   - a glob over project names, or over project roots when it contains "/"
//
// A leading "!" removes the matches instead of adding them. When the first
// pattern is a negation, selection starts from every project.
func FindMatchingProjects(patterns []string, graph *workspace.ProjectGraph) ([]string, error) {
	if len(patterns) == 0 {
		return nil, nil
	}

	all := graph.ProjectNames()
	selected := make(map[string]bool, len(all))
	if strings.HasPrefix(patterns[0], "!") {
		for _, name := range all {
			selected[name] = true
		}
	}

	for _, raw := range patterns {
		pattern, exclude := strings.CutPrefix(raw, "!")
		if pattern == "" {
			return nil, &SelectorError{Pattern: raw, Msg: "empty pattern"}
		}
		matches, err := match(pattern, all, graph)
		if err != nil {
			return nil, err
		}
		for _, name := range matches {
			if exclude {
				delete(selected, name)
			} else {
				selected[name] = true
			}
		}
	}

	out := make([]string, 0, len(selected))
	for name := range selected {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

func match(pattern string, all []string, graph *workspace.ProjectGraph) ([]string, error) {
	if pattern == "*" {
		return all, nil
	}
	if _, ok := graph.Project(pattern); ok {
		return []string{pattern}, nil
	}

	if tag, ok := strings.CutPrefix(pattern, tagPrefix); ok {
		if !doublestar.ValidatePattern(tag) {
			return nil, &SelectorError{Pattern: pattern, Msg: "malformed tag glob"}
		}
		var out []string
		for _, name := range all {
			p, _ := graph.Project(name)
			for _, t := range p.Tags {
				if ok, _ := doublestar.Match(tag, t); ok {
					out = append(out, name)
					break
				}
			}
		}
		return out, nil
	}

	if !doublestar.ValidatePattern(pattern) {
		return nil, &SelectorError{Pattern: pattern, Msg: "malformed glob"}
	}
	byRoot := strings.Contains(pattern, "/")
	var out []string
	for _, name := range all {
		subject := name
		if byRoot {
			p, _ := graph.Project(name)
			subject = p.Root
		}
		if ok, _ := doublestar.Match(pattern, subject); ok {
			out = append(out, name)
		}
	}
	return out, nil
}
