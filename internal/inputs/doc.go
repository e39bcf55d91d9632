// Package inputs classifies the configured inputs of a task.
//
// Raw inputs come from the workspace configuration, the project's named inputs
// and the target (or its target defaults). They are parsed into core.Input
// values, named references are expanded, and the result is split into the
// four buckets the planner consumes: self, dependency, dependency-output and
// project-pattern inputs.
package inputs
