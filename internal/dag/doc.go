// Package dag defines the immutable task graph consumed by hash planning.
//
// A TaskGraph holds the scheduled tasks keyed by id plus the dependency
// structure between them. It is validated on construction (unknown ids,
// duplicate edges, self-loops and cycles are rejected) and is safe for
// concurrent read access afterwards.
package dag
