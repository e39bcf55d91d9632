package dag

import (
	"sort"

	"taskplan/internal/core"
)

type edgeIndex struct {
	from int
	to   int
}

// TaskGraph is an immutable, validated DAG of scheduled tasks.
//
// It is safe for concurrent read access.
type TaskGraph struct {
	tasks map[string]*core.Task
	ids   []string // canonical order (sorted ids)
	index map[string]int

	edges []edgeIndex // sorted

	outgoing [][]int // dependents, by canonical index, sorted ascending
	incoming [][]int // dependencies, by canonical index, sorted ascending
	indeg    []int
}

// NewTaskGraph builds and validates a TaskGraph.
//
// Validation runs immediately and rejects:
//   - empty or duplicate task ids
//   - tasks without a target project or target name
//   - edges referencing unknown tasks
//   - duplicate edges
//   - self-loops
//   - any cycle (direct or indirect)
func NewTaskGraph(tasks []core.Task, edges []Edge) (*TaskGraph, error) {
	if len(tasks) == 0 {
		return nil, invalidf("no tasks")
	}

	byID := make(map[string]*core.Task, len(tasks))
	ids := make([]string, 0, len(tasks))
	for i := range tasks {
		t := tasks[i]
		if t.ID == "" {
			return nil, invalidf("task id is required")
		}
		if _, exists := byID[t.ID]; exists {
			return nil, invalidf("duplicate task id: %q", t.ID)
		}
		if t.Target.Project == "" || t.Target.Target == "" {
			return nil, invalidf("task %q must name a project and a target", t.ID)
		}
		byID[t.ID] = &t
		ids = append(ids, t.ID)
	}
	sort.Strings(ids)

	index := make(map[string]int, len(ids))
	for i, id := range ids {
		index[id] = i
	}

	mapped := make([]edgeIndex, 0, len(edges))
	seen := make(map[edgeIndex]struct{}, len(edges))
	for _, e := range edges {
		from, okFrom := index[e.From]
		to, okTo := index[e.To]
		if !okFrom {
			return nil, invalidf("edge references unknown task (from): %q", e.From)
		}
		if !okTo {
			return nil, invalidf("edge references unknown task (to): %q", e.To)
		}
		if from == to {
			return nil, invalidf("self-loop: %q -> %q", e.From, e.To)
		}

		pair := edgeIndex{from: from, to: to}
		if _, exists := seen[pair]; exists {
			return nil, invalidf("duplicate edge: %q -> %q", e.From, e.To)
		}
		seen[pair] = struct{}{}
		mapped = append(mapped, pair)
	}

	sort.Slice(mapped, func(i, j int) bool {
		a, b := mapped[i], mapped[j]
		if a.from != b.from {
			return a.from < b.from
		}
		return a.to < b.to
	})

	outgoing := make([][]int, len(ids))
	incoming := make([][]int, len(ids))
	indeg := make([]int, len(ids))
	for _, e := range mapped {
		outgoing[e.from] = append(outgoing[e.from], e.to)
		incoming[e.to] = append(incoming[e.to], e.from)
		indeg[e.to]++
	}

	g := &TaskGraph{
		tasks:    byID,
		ids:      ids,
		index:    index,
		edges:    mapped,
		outgoing: outgoing,
		incoming: incoming,
		indeg:    indeg,
	}

	if err := g.validateAcyclic(); err != nil {
		return nil, err
	}
	return g, nil
}

// NewTaskGraphFromDependencies builds a TaskGraph from a map of task id to the
// ids it depends on.
func NewTaskGraphFromDependencies(tasks []core.Task, dependencies map[string][]string) (*TaskGraph, error) {
	dependents := make([]string, 0, len(dependencies))
	for to := range dependencies {
		dependents = append(dependents, to)
	}
	sort.Strings(dependents)

	var edges []Edge
	for _, to := range dependents {
		for _, from := range dependencies[to] {
			edges = append(edges, Edge{From: from, To: to})
		}
	}
	return NewTaskGraph(tasks, edges)
}

// Task returns a task by id.
func (g *TaskGraph) Task(id string) (*core.Task, bool) {
	t, ok := g.tasks[id]
	return t, ok
}

// Lookup returns a task by id or an ErrTaskNotFound error.
func (g *TaskGraph) Lookup(id string) (*core.Task, error) {
	if t, ok := g.tasks[id]; ok {
		return t, nil
	}
	return nil, TaskNotFoundError(id)
}

// IDs returns the task ids in canonical order.
func (g *TaskGraph) IDs() []string {
	out := make([]string, len(g.ids))
	copy(out, g.ids)
	return out
}

// Len returns the number of tasks.
func (g *TaskGraph) Len() int { return len(g.ids) }

// DependenciesOf returns the ids of the tasks id directly depends on, sorted.
func (g *TaskGraph) DependenciesOf(id string) []string {
	i, ok := g.index[id]
	if !ok {
		return nil
	}
	return g.names(g.incoming[i])
}

// DependentsOf returns the ids of the tasks directly depending on id, sorted.
func (g *TaskGraph) DependentsOf(id string) []string {
	i, ok := g.index[id]
	if !ok {
		return nil
	}
	return g.names(g.outgoing[i])
}

// Roots returns the ids of tasks without dependencies, sorted.
func (g *TaskGraph) Roots() []string {
	var out []string
	for i, id := range g.ids {
		if g.indeg[i] == 0 {
			out = append(out, id)
		}
	}
	return out
}

// Edges returns the dependency edges as (From, To) id pairs in canonical order.
func (g *TaskGraph) Edges() []Edge {
	out := make([]Edge, 0, len(g.edges))
	for _, e := range g.edges {
		out = append(out, Edge{From: g.ids[e.from], To: g.ids[e.to]})
	}
	return out
}

// TopologicalOrder returns a deterministic topological ordering of task ids,
// dependencies first.
//
// Since the graph is validated on construction, this method must not fail.
func (g *TaskGraph) TopologicalOrder() []string {
	return g.names(g.topoOrderIndices())
}

func (g *TaskGraph) names(indices []int) []string {
	if len(indices) == 0 {
		return nil
	}
	out := make([]string, 0, len(indices))
	for _, i := range indices {
		out = append(out, g.ids[i])
	}
	return out
}
