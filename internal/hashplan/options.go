package hashplan

import (
	"github.com/go-kit/log"
	"github.com/prometheus/client_golang/prometheus"

	"taskplan/internal/core"
	"taskplan/internal/dag"
	"taskplan/internal/depoutputs"
	"taskplan/internal/inputs"
	"taskplan/internal/projects"
	"taskplan/internal/workspace"
)

// Collaborators are the resolution steps the planner delegates to. A nil
// field uses the default implementation.
type Collaborators struct {
	// ClassifyInputs splits the configured inputs of a task into buckets.
	ClassifyInputs func(task *core.Task, graph *workspace.ProjectGraph, config *workspace.Config) (core.SplitInputs, error)

	// InputsForDependency classifies the inputs a "^name" reference pulls from
	// a dependency project; ok is false when the input does not apply.
	InputsForDependency func(project *workspace.Project, config *workspace.Config, input core.Input) (split core.SplitInputs, ok bool, err error)

	// DependencyOutputs resolves a dependentTasksOutputFiles input.
	DependencyOutputs func(workspaceRoot string, task *core.Task, taskGraph *dag.TaskGraph, projectGraph *workspace.ProjectGraph, outputFiles string, transitive bool) ([]core.HashInstruction, error)

	// MatchProjects resolves project selector patterns to project names.
	MatchProjects func(patterns []string, graph *workspace.ProjectGraph) ([]string, error)

	// ExpandNamedInput expands named input references against a table of
	// definitions.
	ExpandNamedInput func(inputs []core.Input, named map[string][]core.Input) ([]core.Input, error)
}

func (c Collaborators) withDefaults(config *workspace.Config) Collaborators {
	if c.ClassifyInputs == nil {
		c.ClassifyInputs = inputs.GetInputs
	}
	if c.InputsForDependency == nil {
		c.InputsForDependency = inputs.GetInputsForDependency
	}
	if c.DependencyOutputs == nil {
		c.DependencyOutputs = (&depoutputs.Resolver{Config: config}).Resolve
	}
	if c.MatchProjects == nil {
		c.MatchProjects = projects.FindMatchingProjects
	}
	if c.ExpandNamedInput == nil {
		c.ExpandNamedInput = inputs.ExpandSingleProjectInputs
	}
	return c
}

// Option configures a Planner.
type Option func(*Planner)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger log.Logger) Option {
	return func(p *Planner) { p.logger = logger }
}

// WithRegisterer registers the planner metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(p *Planner) { p.reg = reg }
}

// WithParallelism bounds the number of tasks planned concurrently.
// Values below 1 mean unbounded.
func WithParallelism(n int) Option {
	return func(p *Planner) { p.parallelism = n }
}

// WithCollaborators replaces resolution steps, typically with fakes in tests.
func WithCollaborators(c Collaborators) Option {
	return func(p *Planner) { p.collab = c }
}
