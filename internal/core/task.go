// Package core defines the domain models for task hash planning.
package core

import "fmt"

// TaskTarget addresses a target of a project, optionally under a named
// configuration.
type TaskTarget struct {
	Project       string `json:"project" yaml:"project"`
	Target        string `json:"target" yaml:"target"`
	Configuration string `json:"configuration,omitempty" yaml:"configuration,omitempty"`
}

// String returns the conventional project:target[:configuration] form.
func (t TaskTarget) String() string {
	if t.Configuration == "" {
		return fmt.Sprintf("%s:%s", t.Project, t.Target)
	}
	return fmt.Sprintf("%s:%s:%s", t.Project, t.Target, t.Configuration)
}

// Task represents one scheduled unit of work.
//
// Tasks are produced by task graph construction and are read-only during
// planning. The ID is the key used by the task graph and by the plan.
type Task struct {
	// ID is the unique identifier of the task within its graph.
	ID string `json:"id" yaml:"id"`

	// Target is the (project, target) pair this task runs.
	Target TaskTarget `json:"target" yaml:"target"`

	// Overrides are option overrides passed on the command line. They take
	// precedence over target options when interpolating outputs.
	Overrides map[string]any `json:"overrides,omitempty" yaml:"overrides,omitempty"`

	// Outputs, when set, are the already resolved outputs of the task.
	// Optional field; when empty outputs are computed from the target.
	Outputs []string `json:"outputs,omitempty" yaml:"outputs,omitempty"`
}
