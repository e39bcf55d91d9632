package hashplan

import (
	"context"
	"strings"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"taskplan/internal/core"
	"taskplan/internal/dag"
	"taskplan/internal/inputs"
	"taskplan/internal/workspace"
)

// firstPartyExecutors are the executor scopes whose packages declare their
// own dependencies.
var firstPartyExecutors = []string{"@nx/", "@nrwl/"}

// Planner computes hash plans against one workspace snapshot. It is safe for
// concurrent use; the configuration and project graph must not be mutated
// while it is in use.
type Planner struct {
	workspaceRoot string
	config        *workspace.Config
	graph         *workspace.ProjectGraph
	externalNames []string

	logger      log.Logger
	reg         prometheus.Registerer
	metrics     *plannerMetrics
	parallelism int
	collab      Collaborators
}

// NewPlanner returns a Planner bound to a workspace root, its configuration
// and its project graph.
func NewPlanner(workspaceRoot string, config *workspace.Config, graph *workspace.ProjectGraph, opts ...Option) (*Planner, error) {
	if graph == nil {
		return nil, &workspace.GraphError{Kind: workspace.ErrInvalidProjectGraph, Msg: "graph is nil"}
	}
	if config == nil {
		config = &workspace.Config{}
	}
	p := &Planner{
		workspaceRoot: workspaceRoot,
		config:        config,
		graph:         graph,
		externalNames: graph.ExternalNodeNames(),
		metrics:       newPlannerMetrics(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = log.NewNopLogger()
	}
	p.collab = p.collab.withDefaults(config)
	if p.reg != nil {
		if err := p.metrics.register(p.reg); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// GetPlans plans every task in taskIDs. The first failure aborts the call
// and no partial plan is returned.
func (p *Planner) GetPlans(ctx context.Context, taskIDs []string, taskGraph *dag.TaskGraph) (Plan, error) {
	start := time.Now()
	p.metrics.plansTotal.Inc()

	plan, err := p.getPlans(ctx, taskIDs, taskGraph)
	p.metrics.duration.Observe(time.Since(start).Seconds())
	if err != nil {
		p.metrics.planFailures.Inc()
		level.Warn(p.logger).Log("msg", "planning failed", "tasks", len(taskIDs), "err", err)
		return nil, err
	}
	level.Debug(p.logger).Log("msg", "planned tasks", "tasks", len(plan), "duration", time.Since(start))
	return plan, nil
}

func (p *Planner) getPlans(ctx context.Context, taskIDs []string, taskGraph *dag.TaskGraph) (Plan, error) {
	closures, err := p.externalClosures(ctx)
	if err != nil {
		return nil, err
	}

	results := make([][]core.HashInstruction, len(taskIDs))
	g, ctx := errgroup.WithContext(ctx)
	if p.parallelism > 0 {
		g.SetLimit(p.parallelism)
	}
	for i, id := range taskIDs {
		i, id := i, id
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			instructions, err := p.planTask(id, taskGraph, closures)
			if err != nil {
				return err
			}
			results[i] = instructions
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	plan := make(Plan, len(taskIDs))
	for i, id := range taskIDs {
		plan[id] = results[i]
		p.metrics.instructions.Observe(float64(len(results[i])))
	}
	return plan, nil
}

func (p *Planner) planTask(id string, taskGraph *dag.TaskGraph, closures map[string][]string) ([]core.HashInstruction, error) {
	task, err := taskGraph.Lookup(id)
	if err != nil {
		return nil, err
	}
	split, err := p.collab.ClassifyInputs(task, p.graph, p.config)
	if err != nil {
		return nil, err
	}

	target, err := p.targetInput(task, split.Self, closures)
	if err != nil {
		return nil, err
	}

	visited := map[string]bool{task.Target.Project: true}
	rest, err := p.selfAndDepsInputs(task.Target.Project, task, split, taskGraph, closures, visited)
	if err != nil {
		return nil, err
	}

	instructions := make([]core.HashInstruction, 0, len(target)+len(workspace.FixedWorkspaceFiles)+len(rest))
	instructions = append(instructions, target...)
	for _, f := range workspace.FixedWorkspaceFiles {
		instructions = append(instructions, core.NewWorkspaceFileSet(f))
	}
	instructions = append(instructions, rest...)
	instructions = core.SortInstructions(instructions)

	level.Debug(p.logger).Log("msg", "planned task", "task", id, "instructions", len(instructions), "visited", len(visited))
	return instructions, nil
}

// targetInput returns the instructions for the executor of the task's
// target, or nothing when the project has no such target.
func (p *Planner) targetInput(task *core.Task, self []core.Input, closures map[string][]string) ([]core.HashInstruction, error) {
	project, ok := p.graph.Project(task.Target.Project)
	if !ok {
		return nil, nil
	}
	target, ok := project.Targets[task.Target.Target]
	if !ok {
		return nil, nil
	}

	if isFirstParty(target.Executor) {
		pkg := target.ExecutorPackage()
		name, ok := p.findExternal(pkg)
		if !ok {
			name = pkg
		}
		return []core.HashInstruction{core.NewExternal(name)}, nil
	}

	var out []core.HashInstruction
	for _, in := range self {
		if in.Kind != core.InputExternalDependency {
			continue
		}
		for _, dep := range in.Packages {
			name, ok := p.findExternal(dep)
			if !ok {
				return nil, unresolvedExternal(dep, task.Target.Project, task.Target.Target)
			}
			out = append(out, core.NewExternal(name))
			for _, c := range closures[name] {
				out = append(out, core.NewExternal(c))
			}
		}
	}
	if len(out) == 0 {
		return []core.HashInstruction{core.NewAllExternalDependencies()}, nil
	}
	return out, nil
}

func isFirstParty(executor string) bool {
	for _, prefix := range firstPartyExecutors {
		if strings.HasPrefix(executor, prefix) {
			return true
		}
	}
	return false
}

// findExternal resolves a package name to an external node name: an exact
// match first, else the first node name, in sorted order, ending with it.
// The suffix is not anchored on ':', so "react" resolves to "npm:preact"
// when both nodes exist.
func (p *Planner) findExternal(pkg string) (string, bool) {
	if p.graph.IsExternal(pkg) {
		return pkg, true
	}
	for _, name := range p.externalNames {
		if strings.HasSuffix(name, pkg) {
			return name, true
		}
	}
	return "", false
}

// selfAndDepsInputs gathers the instructions of project for split. visited
// is shared by every bucket and every recursion level of one task.
func (p *Planner) selfAndDepsInputs(project string, task *core.Task, split core.SplitInputs, taskGraph *dag.TaskGraph, closures map[string][]string, visited map[string]bool) ([]core.HashInstruction, error) {
	out := p.gatherSelfInputs(project, split.Self)

	deps, err := p.gatherDependencyInputs(project, task, split.Deps, taskGraph, closures, visited)
	if err != nil {
		return nil, err
	}
	out = append(out, deps...)

	depOutputs, err := p.gatherDependencyOutputs(task, taskGraph, split.DepsOutputs)
	if err != nil {
		return nil, err
	}
	out = append(out, depOutputs...)

	projectInputs, err := p.gatherProjectInputs(split.Projects)
	if err != nil {
		return nil, err
	}
	return append(out, projectInputs...), nil
}

func (p *Planner) gatherSelfInputs(project string, self []core.Input) []core.HashInstruction {
	var projectSets, workspaceSets []string
	for _, in := range self {
		if in.Kind != core.InputFileSet {
			continue
		}
		if core.IsProjectFileSet(in.Value) {
			projectSets = append(projectSets, in.Value)
		} else {
			workspaceSets = append(workspaceSets, in.Value)
		}
	}

	out := []core.HashInstruction{
		core.NewProjectFileSet(project, projectSets),
		core.NewProjectConfiguration(project),
		core.NewTsConfiguration(project),
	}
	for _, pattern := range workspaceSets {
		out = append(out, core.NewWorkspaceFileSet(pattern))
	}
	for _, in := range self {
		switch in.Kind {
		case core.InputRuntime:
			out = append(out, core.NewRuntime(in.Value))
		case core.InputEnvironment:
			out = append(out, core.NewEnvironment(in.Value))
		}
	}
	return out
}

func (p *Planner) gatherDependencyInputs(project string, task *core.Task, deps []core.Input, taskGraph *dag.TaskGraph, closures map[string][]string, visited map[string]bool) ([]core.HashInstruction, error) {
	var out []core.HashInstruction
	for _, in := range deps {
		for _, dep := range p.graph.Dependencies[project] {
			if visited[dep] {
				continue
			}
			visited[dep] = true

			if depProject, ok := p.graph.Project(dep); ok {
				split, ok, err := p.collab.InputsForDependency(depProject, p.config, in)
				if err != nil {
					return nil, err
				}
				if !ok {
					continue
				}
				sub, err := p.selfAndDepsInputs(dep, task, split, taskGraph, closures, visited)
				if err != nil {
					return nil, err
				}
				out = append(out, sub...)
				continue
			}

			if closure, ok := closures[dep]; ok {
				out = append(out, core.NewExternal(dep))
				for _, c := range closure {
					out = append(out, core.NewExternal(c))
				}
			}
		}
	}
	return out, nil
}

func (p *Planner) gatherDependencyOutputs(task *core.Task, taskGraph *dag.TaskGraph, depsOutputs []core.Input) ([]core.HashInstruction, error) {
	var out []core.HashInstruction
	for _, in := range depsOutputs {
		if in.Kind != core.InputDepsOutputs {
			continue
		}
		instructions, err := p.collab.DependencyOutputs(p.workspaceRoot, task, taskGraph, p.graph, in.Value, in.Transitive)
		if err != nil {
			return nil, err
		}
		out = append(out, instructions...)
	}
	return out, nil
}

// gatherProjectInputs applies each projects input to the selected projects.
// Only the self inputs of those projects contribute.
func (p *Planner) gatherProjectInputs(projectInputs []core.Input) ([]core.HashInstruction, error) {
	var out []core.HashInstruction
	for _, in := range projectInputs {
		if in.Kind != core.InputProjects {
			continue
		}
		names, err := p.collab.MatchProjects(in.Projects, p.graph)
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			project, ok := p.graph.Project(name)
			if !ok {
				continue
			}
			named, err := inputs.NamedInputs(p.config, project)
			if err != nil {
				return nil, err
			}
			expanded, err := p.collab.ExpandNamedInput([]core.Input{core.Named(in.Value, false)}, named)
			if err != nil {
				return nil, err
			}
			out = append(out, p.gatherSelfInputs(name, expanded)...)
		}
	}
	return out, nil
}
