// Package core provides the domain models shared by the hash planner and the
// output expander.
//
// # Design Principles
//
// All structures in this package adhere to the following constraints:
//
//  1. No implied fields that could affect determinism (e.g., timestamps)
//  2. Tagged variants are closed: every kind is enumerated here
//  3. Hash instructions carry a total order so plans can be sorted and deduplicated
//
// # Core Types
//
// Task: one scheduled unit of work, a (project, target) pair with an id.
// Input: one configured input of a target, before planning.
// HashInstruction: one symbolic contributor to a task's cache key.
package core
