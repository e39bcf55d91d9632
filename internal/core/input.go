// Package core defines the domain models for task hash planning.
package core

import (
	"fmt"
	"strings"
)

// InputKind discriminates the Input variant.
type InputKind int

const (
	// InputFileSet is a glob or path scoped to {projectRoot}/ or {workspaceRoot}/,
	// possibly negated with a leading "!".
	InputFileSet InputKind = iota + 1
	// InputExternalDependency lists third-party package names.
	InputExternalDependency
	// InputRuntime is a command whose output contributes to the hash.
	InputRuntime
	// InputEnvironment is an environment variable name.
	InputEnvironment
	// InputDepsOutputs declares upstream task outputs as inputs.
	InputDepsOutputs
	// InputProjects re-applies a named input across selected projects.
	InputProjects
	// InputNamed references a named input; Dependencies marks the "^name" form.
	InputNamed
)

var inputKindNames = map[InputKind]string{
	InputFileSet:            "fileset",
	InputExternalDependency: "externalDependencies",
	InputRuntime:            "runtime",
	InputEnvironment:        "env",
	InputDepsOutputs:        "dependentTasksOutputFiles",
	InputProjects:           "projects",
	InputNamed:              "input",
}

func (k InputKind) String() string {
	if s, ok := inputKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("InputKind(%d)", int(k))
}

// Input describes one configured input of a target.
//
// Only the fields belonging to Kind are meaningful:
//
//	InputFileSet             Value (pattern)
//	InputExternalDependency  Packages
//	InputRuntime             Value (command)
//	InputEnvironment         Value (variable name)
//	InputDepsOutputs         Value (output file glob), Transitive
//	InputProjects            Value (named input), Projects (selectors)
//	InputNamed               Value (named input), Dependencies
type Input struct {
	Kind         InputKind
	Value        string
	Packages     []string
	Projects     []string
	Transitive   bool
	Dependencies bool
}

// FileSet returns a file set input.
func FileSet(pattern string) Input { return Input{Kind: InputFileSet, Value: pattern} }

// ExternalDependency returns an external dependency input.
func ExternalDependency(packages ...string) Input {
	return Input{Kind: InputExternalDependency, Packages: packages}
}

// Runtime returns a runtime command input.
func Runtime(command string) Input { return Input{Kind: InputRuntime, Value: command} }

// Environment returns an environment variable input.
func Environment(name string) Input { return Input{Kind: InputEnvironment, Value: name} }

// DepsOutputs returns an input over the outputs of upstream tasks.
func DepsOutputs(outputFiles string, transitive bool) Input {
	return Input{Kind: InputDepsOutputs, Value: outputFiles, Transitive: transitive}
}

// Projects returns an input applying a named input to the selected projects.
func Projects(input string, selectors ...string) Input {
	return Input{Kind: InputProjects, Value: input, Projects: selectors}
}

// Named returns a reference to a named input.
func Named(name string, dependencies bool) Input {
	return Input{Kind: InputNamed, Value: name, Dependencies: dependencies}
}

// IsProjectFileSet reports whether a file set pattern is scoped to the
// project root.
func IsProjectFileSet(pattern string) bool {
	return strings.HasPrefix(pattern, "{projectRoot}/") || strings.HasPrefix(pattern, "!{projectRoot}/")
}

func (i Input) String() string {
	switch i.Kind {
	case InputExternalDependency:
		return fmt.Sprintf("%s:%s", i.Kind, strings.Join(i.Packages, ","))
	case InputDepsOutputs:
		return fmt.Sprintf("%s:%s:transitive=%t", i.Kind, i.Value, i.Transitive)
	case InputProjects:
		return fmt.Sprintf("%s:%s:%s", i.Kind, i.Value, strings.Join(i.Projects, ","))
	case InputNamed:
		if i.Dependencies {
			return "^" + i.Value
		}
		return i.Value
	default:
		return fmt.Sprintf("%s:%s", i.Kind, i.Value)
	}
}

// SplitInputs is the four-bucket classification of a task's inputs.
type SplitInputs struct {
	// Self holds expanded inputs of the task's own project.
	Self []Input
	// Deps holds "^name" references applied to project dependencies.
	Deps []Input
	// DepsOutputs holds inputs over upstream task outputs.
	DepsOutputs []Input
	// Projects holds inputs re-applied to selected projects.
	Projects []Input
}
