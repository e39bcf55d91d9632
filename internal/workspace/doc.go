// Package workspace holds the immutable workspace snapshot the planner works
// against: the workspace configuration (named inputs, target defaults) and the
// project graph (projects, their dependencies and external nodes).
//
// Snapshots are loaded once and shared read-only across planning workers.
package workspace
