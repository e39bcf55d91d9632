package inputs

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"

	"taskplan/internal/core"
	"taskplan/internal/workspace"
)

// rawInput is the object form of an input entry.
type rawInput struct {
	Fileset                   string   `mapstructure:"fileset"`
	Input                     string   `mapstructure:"input"`
	Dependencies              bool     `mapstructure:"dependencies"`
	Projects                  any      `mapstructure:"projects"`
	Runtime                   string   `mapstructure:"runtime"`
	Env                       string   `mapstructure:"env"`
	ExternalDependencies      []string `mapstructure:"externalDependencies"`
	DependentTasksOutputFiles string   `mapstructure:"dependentTasksOutputFiles"`
	Transitive                bool     `mapstructure:"transitive"`
}

// kindKeys are the keys that select the variant of an object input.
var kindKeys = []string{"fileset", "input", "runtime", "env", "externalDependencies", "dependentTasksOutputFiles"}

// Parse converts a raw configuration entry into an Input.
//
// String entries:
//   - "^name" references the named input on dependencies
//   - a defined named input name references it on the project itself
//   - anything else is a file set pattern
//
// Object entries are decoded by their selecting key (fileset, input, runtime,
// env, externalDependencies, dependentTasksOutputFiles). Exactly one selecting
// key is allowed; unknown keys are rejected.
func Parse(raw workspace.RawInput, defined map[string]bool) (core.Input, error) {
	switch v := raw.(type) {
	case string:
		return parseString(v, defined), nil
	case core.Input:
		return v, nil
	case nil:
		return core.Input{}, inputErrorf(ErrInvalidInput, "empty input entry")
	}

	var r rawInput
	var md mapstructure.Metadata
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &r,
		Metadata:    &md,
		ErrorUnused: true,
	})
	if err != nil {
		return core.Input{}, err
	}
	if err := dec.Decode(raw); err != nil {
		return core.Input{}, inputErrorf(ErrInvalidInput, "%v", err)
	}

	set := make(map[string]bool, len(md.Keys))
	for _, k := range md.Keys {
		set[k] = true
	}
	var selected []string
	for _, k := range kindKeys {
		if set[k] {
			selected = append(selected, k)
		}
	}
	if len(selected) != 1 {
		return core.Input{}, inputErrorf(ErrInvalidInput, "input entry must have exactly one of %s, got %v", strings.Join(kindKeys, ", "), selected)
	}

	switch selected[0] {
	case "fileset":
		return core.FileSet(r.Fileset), nil
	case "runtime":
		return core.Runtime(r.Runtime), nil
	case "env":
		return core.Environment(r.Env), nil
	case "externalDependencies":
		return core.ExternalDependency(r.ExternalDependencies...), nil
	case "dependentTasksOutputFiles":
		return core.DepsOutputs(r.DependentTasksOutputFiles, r.Transitive), nil
	default:
		return parseInputRef(r, set["projects"])
	}
}

func parseString(s string, defined map[string]bool) core.Input {
	if name, ok := strings.CutPrefix(s, "^"); ok {
		return core.Named(name, true)
	}
	if defined[s] {
		return core.Named(s, false)
	}
	return core.FileSet(s)
}

// parseInputRef handles {"input": name} with optional "dependencies" or
// "projects". The legacy "projects": "self" | "dependencies" forms map onto
// the dependencies flag.
func parseInputRef(r rawInput, hasProjects bool) (core.Input, error) {
	if r.Input == "" {
		return core.Input{}, inputErrorf(ErrInvalidInput, "input name is empty")
	}
	if !hasProjects {
		return core.Named(r.Input, r.Dependencies), nil
	}
	switch p := r.Projects.(type) {
	case string:
		switch p {
		case "self":
			return core.Named(r.Input, false), nil
		case "dependencies":
			return core.Named(r.Input, true), nil
		default:
			return core.Projects(r.Input, p), nil
		}
	case []any:
		selectors := make([]string, 0, len(p))
		for _, s := range p {
			str, ok := s.(string)
			if !ok {
				return core.Input{}, inputErrorf(ErrInvalidInput, "project selector %v is not a string", s)
			}
			selectors = append(selectors, str)
		}
		return core.Projects(r.Input, selectors...), nil
	case []string:
		return core.Projects(r.Input, p...), nil
	default:
		return core.Input{}, inputErrorf(ErrInvalidInput, "unsupported projects value %v", r.Projects)
	}
}

// ParseAll parses a list of raw entries.
func ParseAll(raws []workspace.RawInput, defined map[string]bool) ([]core.Input, error) {
	out := make([]core.Input, 0, len(raws))
	for i, raw := range raws {
		in, err := Parse(raw, defined)
		if err != nil {
			return nil, fmt.Errorf("inputs[%d]: %w", i, err)
		}
		out = append(out, in)
	}
	return out, nil
}

// ParseNamedInputs parses every named input definition. Named inputs may
// refer to each other by bare name.
func ParseNamedInputs(raw map[string][]workspace.RawInput) (map[string][]core.Input, error) {
	defined := make(map[string]bool, len(raw))
	names := make([]string, 0, len(raw))
	for name := range raw {
		defined[name] = true
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[string][]core.Input, len(raw))
	for _, name := range names {
		parsed, err := ParseAll(raw[name], defined)
		if err != nil {
			return nil, fmt.Errorf("named input %q: %w", name, err)
		}
		out[name] = parsed
	}
	return out, nil
}
