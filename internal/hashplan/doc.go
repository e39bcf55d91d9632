// Package hashplan computes, for each task, the sorted list of symbolic hash
// instructions its cache key is built from.
//
// Planning is a pure function of the workspace configuration, the project
// graph and the task graph. Tasks are planned independently and in parallel;
// each task owns its visited set, and the external dependency closures are
// computed once per call and shared read-only.
package hashplan
