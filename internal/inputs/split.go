package inputs

import (
	"maps"

	"taskplan/internal/core"
	"taskplan/internal/workspace"
)

// DefaultNamedInput is always defined and covers every file of the project.
const DefaultNamedInput = "default"

// ProductionNamedInput, when defined, replaces "default" in the implicit
// dependency input.
const ProductionNamedInput = "production"

// NamedInputs returns the named input definitions visible to project:
// the built-in "default", overlaid by workspace definitions, overlaid by the
// project's own definitions.
func NamedInputs(config *workspace.Config, project *workspace.Project) (map[string][]core.Input, error) {
	raw := map[string][]workspace.RawInput{
		DefaultNamedInput: {map[string]any{"fileset": "{projectRoot}/**/*"}},
	}
	if config != nil {
		maps.Copy(raw, config.NamedInputs)
	}
	if project != nil {
		maps.Copy(raw, project.NamedInputs)
	}
	return ParseNamedInputs(raw)
}

// ExpandSingleProjectInputs replaces named references with their definitions,
// recursively, for inputs applying to a single project.
//
// A "^name" reference inside a named input definition is an error, as is a
// reference to an undefined name or a definition referring back to itself.
func ExpandSingleProjectInputs(inputs []core.Input, named map[string][]core.Input) ([]core.Input, error) {
	return expand(inputs, named, nil)
}

func expand(inputs []core.Input, named map[string][]core.Input, stack []string) ([]core.Input, error) {
	var expanded []core.Input
	for _, in := range inputs {
		if in.Kind != core.InputNamed {
			expanded = append(expanded, in)
			continue
		}
		if in.Dependencies {
			return nil, inputErrorf(ErrInvalidInput, "namedInputs definitions cannot start with ^ (%q)", in.Value)
		}
		for _, s := range stack {
			if s == in.Value {
				return nil, inputErrorf(ErrInvalidInput, "named input %q refers to itself", in.Value)
			}
		}
		def, ok := named[in.Value]
		if !ok {
			return nil, inputErrorf(ErrInputNotDefined, "input %q is not defined", in.Value)
		}
		sub, err := expand(def, named, append(stack, in.Value))
		if err != nil {
			return nil, err
		}
		expanded = append(expanded, sub...)
	}
	return expanded, nil
}

// Split classifies inputs into the four buckets. Self inputs are expanded;
// dependency-output and project inputs reached through a named input are
// moved to their own buckets.
func Split(inputs []core.Input, named map[string][]core.Input) (core.SplitInputs, error) {
	var split core.SplitInputs
	var self []core.Input
	for _, in := range inputs {
		switch {
		case in.Kind == core.InputNamed && in.Dependencies:
			split.Deps = append(split.Deps, in)
		case in.Kind == core.InputDepsOutputs:
			split.DepsOutputs = append(split.DepsOutputs, in)
		case in.Kind == core.InputProjects:
			split.Projects = append(split.Projects, in)
		default:
			self = append(self, in)
		}
	}

	expanded, err := ExpandSingleProjectInputs(self, named)
	if err != nil {
		return core.SplitInputs{}, err
	}
	for _, in := range expanded {
		switch in.Kind {
		case core.InputDepsOutputs:
			split.DepsOutputs = append(split.DepsOutputs, in)
		case core.InputProjects:
			split.Projects = append(split.Projects, in)
		default:
			split.Self = append(split.Self, in)
		}
	}
	return split, nil
}

// GetInputs classifies the inputs of task.
//
// The inputs are taken from the first source that configures them: the
// project's target, then the target defaults (by target name, then by
// executor). Without either, the task uses its project's "default" inputs and
// "^production" (or "^default" when no production input is defined).
func GetInputs(task *core.Task, graph *workspace.ProjectGraph, config *workspace.Config) (core.SplitInputs, error) {
	project, ok := graph.Project(task.Target.Project)
	if !ok {
		return core.SplitInputs{}, inputErrorf(ErrProjectNotFound, "project %q of task %q", task.Target.Project, task.ID)
	}
	named, err := NamedInputs(config, project)
	if err != nil {
		return core.SplitInputs{}, err
	}

	raw := targetInputs(project, task.Target.Target, config)
	var parsed []core.Input
	if raw == nil {
		depsInput := DefaultNamedInput
		if _, ok := named[ProductionNamedInput]; ok {
			depsInput = ProductionNamedInput
		}
		parsed = []core.Input{core.Named(DefaultNamedInput, false), core.Named(depsInput, true)}
	} else {
		parsed, err = ParseAll(raw, definedNames(named))
		if err != nil {
			return core.SplitInputs{}, err
		}
	}

	split, err := Split(parsed, named)
	if err != nil {
		return core.SplitInputs{}, err
	}
	return split, nil
}

func targetInputs(project *workspace.Project, targetName string, config *workspace.Config) []workspace.RawInput {
	target, ok := project.Targets[targetName]
	if ok && target.Inputs != nil {
		return target.Inputs
	}
	if d, ok := config.TargetDefaultsFor(targetName, target.Executor); ok && d.Inputs != nil {
		return d.Inputs
	}
	return nil
}

// GetInputsForDependency classifies the inputs a "^name" reference pulls from
// a dependency project: the named input on the project itself, and "^name"
// again for its own dependencies. ok is false for inputs that do not apply to
// dependencies. A name the dependency does not define falls back to its
// "default" input.
func GetInputsForDependency(project *workspace.Project, config *workspace.Config, input core.Input) (split core.SplitInputs, ok bool, err error) {
	if input.Kind != core.InputNamed {
		return core.SplitInputs{}, false, nil
	}
	named, err := NamedInputs(config, project)
	if err != nil {
		return core.SplitInputs{}, false, err
	}
	name := input.Value
	if _, found := named[name]; !found {
		name = DefaultNamedInput
	}
	split, err = Split([]core.Input{core.Named(name, false), core.Named(name, true)}, named)
	if err != nil {
		return core.SplitInputs{}, false, err
	}
	return split, true, nil
}

func definedNames(named map[string][]core.Input) map[string]bool {
	out := make(map[string]bool, len(named))
	for name := range named {
		out[name] = true
	}
	return out
}
