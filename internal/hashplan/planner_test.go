package hashplan

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskplan/internal/core"
	"taskplan/internal/dag"
	"taskplan/internal/projects"
	"taskplan/internal/workspace"
)

const configYAML = `
namedInputs:
  default: ["{projectRoot}/**/*", sharedGlobals]
  sharedGlobals: ["{workspaceRoot}/babel.config.json", {env: NODE_ENV}]
  production: [default, "!{projectRoot}/**/*.spec.ts"]
`

const projectGraphYAML = `
nodes:
  app:
    root: apps/app
    targets:
      build: {executor: "@nx/webpack:webpack"}
      test: {executor: "nx:run-commands"}
      lint:
        executor: "nx:run-commands"
        inputs: [default, {externalDependencies: [eslint]}]
      react-check:
        executor: "nx:run-commands"
        inputs: [{externalDependencies: [react]}]
      e2e:
        executor: "nx:run-commands"
        inputs: [{externalDependencies: [left-pad]}]
      bundle:
        executor: "nx:run-commands"
        inputs: [{dependentTasksOutputFiles: "**/*.d.ts", transitive: true}]
      check:
        executor: "nx:run-commands"
        inputs: [{runtime: "node -v"}, {input: production, projects: [util]}]
      bad-selector:
        executor: "nx:run-commands"
        inputs: [{input: default, projects: ["lib-{"]}]
      legacy: {executor: "@nrwl/workspace:run-script"}
  lib:
    root: libs/lib
    namedInputs:
      production: ["{projectRoot}/src/**/*", "!{projectRoot}/**/*.spec.ts"]
    targets:
      build: {executor: "nx:run-commands", outputs: ["{projectRoot}/dist"]}
  util:
    root: libs/util
    targets:
      build: {executor: "nx:run-commands", outputs: ["{workspaceRoot}/dist/{projectRoot}"]}
dependencies:
  app: [lib, "npm:react"]
  lib: [util, "npm:lodash"]
  util: [lib]
  "npm:react": ["npm:loose-envify"]
  "npm:loose-envify": ["npm:js-tokens"]
externalNodes:
  "npm:@nx/webpack": {type: npm}
  "npm:react": {type: npm}
  "npm:loose-envify": {type: npm}
  "npm:js-tokens": {type: npm}
  "npm:lodash": {type: npm}
  "npm:eslint": {type: npm}
`

func fixtures(t *testing.T) (*workspace.Config, *workspace.ProjectGraph, *dag.TaskGraph) {
	t.Helper()
	cfg, err := workspace.ParseConfig([]byte(configYAML))
	require.NoError(t, err)
	pg, err := workspace.ParseProjectGraph([]byte(projectGraphYAML))
	require.NoError(t, err)

	var tasks []core.Task
	for _, id := range []string{
		"app:build", "app:test", "app:lint", "app:react-check", "app:e2e", "app:bundle",
		"app:check", "app:bad-selector", "app:legacy", "app:serve", "lib:build", "util:build",
	} {
		project, target, _ := strings.Cut(id, ":")
		tasks = append(tasks, core.Task{ID: id, Target: core.TaskTarget{Project: project, Target: target}})
	}
	tg, err := dag.NewTaskGraphFromDependencies(tasks, map[string][]string{
		"app:bundle": {"lib:build"},
		"lib:build":  {"util:build"},
	})
	require.NoError(t, err)
	return cfg, pg, tg
}

func newPlanner(t *testing.T, cfg *workspace.Config, pg *workspace.ProjectGraph, opts ...Option) *Planner {
	t.Helper()
	p, err := NewPlanner("/ws", cfg, pg, opts...)
	require.NoError(t, err)
	return p
}

func planStrings(t *testing.T, p *Planner, tg *dag.TaskGraph, id string) []string {
	t.Helper()
	plan, err := p.GetPlans(context.Background(), []string{id}, tg)
	require.NoError(t, err)
	return plan.Strings()[id]
}

// plannable are the fixture tasks that plan without error.
var plannable = []string{
	"app:build", "app:test", "app:lint", "app:react-check", "app:bundle",
	"app:check", "app:legacy", "app:serve", "lib:build", "util:build",
}

func TestGetPlans_FirstPartyExecutor(t *testing.T) {
	cfg, pg, tg := fixtures(t)
	p := newPlanner(t, cfg, pg)

	want := []string{
		"{workspaceRoot}/.gitignore",
		"{workspaceRoot}/.nxignore",
		"{workspaceRoot}/babel.config.json",
		"{workspaceRoot}/nx.json",
		"env:NODE_ENV",
		"app:{projectRoot}/**/*",
		"lib:{projectRoot}/src/**/*,!{projectRoot}/**/*.spec.ts",
		"util:{projectRoot}/**/*,!{projectRoot}/**/*.spec.ts",
		"app:ProjectConfiguration",
		"lib:ProjectConfiguration",
		"util:ProjectConfiguration",
		"app:TsConfig",
		"lib:TsConfig",
		"util:TsConfig",
		"npm:@nx/webpack",
		"npm:js-tokens",
		"npm:lodash",
		"npm:loose-envify",
		"npm:react",
	}
	if diff := cmp.Diff(want, planStrings(t, p, tg, "app:build")); diff != "" {
		t.Fatalf("unexpected plan (-want +got):\n%s", diff)
	}
}

func TestGetPlans_FirstPartyExecutorWithoutNode(t *testing.T) {
	cfg, pg, tg := fixtures(t)
	p := newPlanner(t, cfg, pg)

	got := planStrings(t, p, tg, "app:legacy")
	assert.Contains(t, got, "@nrwl/workspace")
	assert.NotContains(t, got, "AllExternalDependencies")
}

func TestGetPlans_AllExternalDependenciesFallback(t *testing.T) {
	cfg, pg, tg := fixtures(t)
	p := newPlanner(t, cfg, pg)

	got := planStrings(t, p, tg, "app:test")
	assert.Contains(t, got, "AllExternalDependencies")
}

func TestGetPlans_ExplicitExternalDependencies(t *testing.T) {
	cfg, pg, tg := fixtures(t)
	p := newPlanner(t, cfg, pg)

	want := []string{
		"{workspaceRoot}/.gitignore",
		"{workspaceRoot}/.nxignore",
		"{workspaceRoot}/babel.config.json",
		"{workspaceRoot}/nx.json",
		"env:NODE_ENV",
		"app:{projectRoot}/**/*",
		"app:ProjectConfiguration",
		"app:TsConfig",
		"npm:eslint",
	}
	if diff := cmp.Diff(want, planStrings(t, p, tg, "app:lint")); diff != "" {
		t.Fatalf("unexpected plan (-want +got):\n%s", diff)
	}

	got := planStrings(t, p, tg, "app:react-check")
	assert.Equal(t, []string{"npm:js-tokens", "npm:loose-envify", "npm:react"}, got[len(got)-3:])
	assert.NotContains(t, got, "AllExternalDependencies")
	// the project file set is emitted even without project patterns
	assert.Contains(t, got, "app:")
}

func TestGetPlans_UnresolvedExternalDependency(t *testing.T) {
	cfg, pg, tg := fixtures(t)
	p := newPlanner(t, cfg, pg)

	plan, err := p.GetPlans(context.Background(), []string{"app:build", "app:e2e"}, tg)
	require.ErrorIs(t, err, ErrUnresolvedExternalDependency)
	assert.Nil(t, plan)
	assert.Contains(t, err.Error(), "app:e2e")
	assert.Contains(t, err.Error(), "left-pad")
}

func TestGetPlans_TaskNotFound(t *testing.T) {
	cfg, pg, tg := fixtures(t)
	p := newPlanner(t, cfg, pg)

	_, err := p.GetPlans(context.Background(), []string{"app:build", "app:missing"}, tg)
	require.ErrorIs(t, err, dag.ErrTaskNotFound)
	assert.Contains(t, err.Error(), "app:missing")
}

func TestGetPlans_TargetNotOnProject(t *testing.T) {
	cfg, pg, tg := fixtures(t)
	p := newPlanner(t, cfg, pg)

	got := planStrings(t, p, tg, "app:serve")
	assert.NotContains(t, got, "AllExternalDependencies")
	assert.NotContains(t, got, "npm:@nx/webpack")
	assert.Contains(t, got, "app:ProjectConfiguration")
}

func TestGetPlans_DependencyOutputs(t *testing.T) {
	cfg, pg, tg := fixtures(t)
	p := newPlanner(t, cfg, pg)

	got := planStrings(t, p, tg, "app:bundle")
	assert.Contains(t, got, "**/*.d.ts:libs/lib/dist")
	assert.Contains(t, got, "**/*.d.ts:dist/libs/util")
	assert.Contains(t, got, "AllExternalDependencies")
}

func TestGetPlans_ProjectInputs(t *testing.T) {
	cfg, pg, tg := fixtures(t)
	p := newPlanner(t, cfg, pg)

	got := planStrings(t, p, tg, "app:check")
	want := []string{
		"{workspaceRoot}/.gitignore",
		"{workspaceRoot}/.nxignore",
		"{workspaceRoot}/babel.config.json",
		"{workspaceRoot}/nx.json",
		"runtime:node -v",
		"env:NODE_ENV",
		"app:",
		"util:{projectRoot}/**/*,!{projectRoot}/**/*.spec.ts",
		"app:ProjectConfiguration",
		"util:ProjectConfiguration",
		"app:TsConfig",
		"util:TsConfig",
		"AllExternalDependencies",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected plan (-want +got):\n%s", diff)
	}
}

func TestGetPlans_ProjectSelectorError(t *testing.T) {
	cfg, pg, tg := fixtures(t)
	p := newPlanner(t, cfg, pg)

	_, err := p.GetPlans(context.Background(), []string{"app:bad-selector"}, tg)
	assert.ErrorIs(t, err, projects.ErrProjectSelector)
}

func TestGetPlans_Properties(t *testing.T) {
	cfg, pg, tg := fixtures(t)
	p := newPlanner(t, cfg, pg)

	plan, err := p.GetPlans(context.Background(), plannable, tg)
	require.NoError(t, err)
	require.Len(t, plan, len(plannable))

	for id, instructions := range plan {
		for i := 1; i < len(instructions); i++ {
			assert.Negative(t, core.Compare(instructions[i-1], instructions[i]), "task %s not strictly sorted at %d", id, i)
		}
		for _, f := range workspace.FixedWorkspaceFiles {
			n := 0
			for _, h := range instructions {
				if h.Equal(core.NewWorkspaceFileSet(f)) {
					n++
				}
			}
			assert.Equal(t, 1, n, "task %s: %s", id, f)
		}
	}
}

func TestGetPlans_Deterministic(t *testing.T) {
	cfg, pg, tg := fixtures(t)

	var baseline []byte
	for _, parallelism := range []int{1, 2, 8, 0} {
		for run := 0; run < 3; run++ {
			p := newPlanner(t, cfg, pg, WithParallelism(parallelism))
			plan, err := p.GetPlans(context.Background(), plannable, tg)
			require.NoError(t, err)
			got, err := plan.CanonicalJSON()
			require.NoError(t, err)
			if baseline == nil {
				baseline = got
				continue
			}
			if diff := cmp.Diff(string(baseline), string(got)); diff != "" {
				t.Fatalf("parallelism %d run %d differs (-baseline +got):\n%s", parallelism, run, diff)
			}
		}
	}
}

// countingDependencyInputs records how often each dependency project is
// classified.
func countingDependencyInputs(counts map[string]int) func(*workspace.Project, *workspace.Config, core.Input) (core.SplitInputs, bool, error) {
	return func(project *workspace.Project, config *workspace.Config, input core.Input) (core.SplitInputs, bool, error) {
		counts[project.Name]++
		return core.SplitInputs{
			Self: []core.Input{core.FileSet("{projectRoot}/**/*")},
			Deps: []core.Input{input},
		}, true, nil
	}
}

func TestGetPlans_CycleTermination(t *testing.T) {
	pg, err := workspace.ParseProjectGraph([]byte(`
nodes:
  a: {root: a}
  b: {root: b}
dependencies:
  a: [b]
  b: [a]
`))
	require.NoError(t, err)
	tg, err := dag.NewTaskGraph([]core.Task{{ID: "a:build", Target: core.TaskTarget{Project: "a", Target: "build"}}}, nil)
	require.NoError(t, err)

	counts := map[string]int{}
	p := newPlanner(t, nil, pg, WithCollaborators(Collaborators{
		InputsForDependency: countingDependencyInputs(counts),
	}))
	plan, err := p.GetPlans(context.Background(), []string{"a:build"}, tg)
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"b": 1}, counts)
	assert.Equal(t, []string{
		"{workspaceRoot}/.gitignore",
		"{workspaceRoot}/.nxignore",
		"{workspaceRoot}/nx.json",
		"a:{projectRoot}/**/*",
		"b:{projectRoot}/**/*",
		"a:ProjectConfiguration",
		"b:ProjectConfiguration",
		"a:TsConfig",
		"b:TsConfig",
	}, plan.Strings()["a:build"])
}

func TestGetPlans_VisitedSetSharedAcrossInputs(t *testing.T) {
	pg, err := workspace.ParseProjectGraph([]byte(`
nodes:
  app:
    root: apps/app
    targets:
      build: {inputs: ["^production", "^default"]}
  lib: {root: libs/lib}
dependencies:
  app: [lib]
`))
	require.NoError(t, err)
	tg, err := dag.NewTaskGraph([]core.Task{{ID: "app:build", Target: core.TaskTarget{Project: "app", Target: "build"}}}, nil)
	require.NoError(t, err)

	counts := map[string]int{}
	p := newPlanner(t, nil, pg, WithCollaborators(Collaborators{
		InputsForDependency: countingDependencyInputs(counts),
	}))
	_, err = p.GetPlans(context.Background(), []string{"app:build"}, tg)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"lib": 1}, counts)
}

func TestGetPlans_CollaboratorErrorsPropagate(t *testing.T) {
	cfg, pg, tg := fixtures(t)
	p := newPlanner(t, cfg, pg, WithCollaborators(Collaborators{
		ClassifyInputs: func(*core.Task, *workspace.ProjectGraph, *workspace.Config) (core.SplitInputs, error) {
			return core.SplitInputs{DepsOutputs: []core.Input{core.DepsOutputs("**/*", false)}}, nil
		},
		DependencyOutputs: func(string, *core.Task, *dag.TaskGraph, *workspace.ProjectGraph, string, bool) ([]core.HashInstruction, error) {
			return nil, dag.TaskNotFoundError("lib:gone")
		},
	}))

	_, err := p.GetPlans(context.Background(), []string{"app:test"}, tg)
	assert.ErrorIs(t, err, dag.ErrTaskNotFound)
}

func TestGetPlans_Metrics(t *testing.T) {
	cfg, pg, tg := fixtures(t)
	reg := prometheus.NewRegistry()
	p := newPlanner(t, cfg, pg, WithRegisterer(reg))

	_, err := p.GetPlans(context.Background(), []string{"app:build", "app:test"}, tg)
	require.NoError(t, err)
	_, err = p.GetPlans(context.Background(), []string{"app:e2e"}, tg)
	require.Error(t, err)

	assert.Equal(t, float64(2), testutil.ToFloat64(p.metrics.plansTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(p.metrics.planFailures))

	// a second planner on the same registry is accepted; its collectors stay
	// unregistered and the registry keeps reporting the first planner's.
	second, err := NewPlanner("/ws", cfg, pg, WithRegisterer(reg))
	require.NoError(t, err)
	_, err = second.GetPlans(context.Background(), []string{"app:build"}, tg)
	require.NoError(t, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(second.metrics.plansTotal))
	assert.Equal(t, float64(2), testutil.ToFloat64(p.metrics.plansTotal))
}

func TestNewPlanner_NilProjectGraph(t *testing.T) {
	p, err := NewPlanner("/ws", nil, nil)
	assert.ErrorIs(t, err, workspace.ErrInvalidProjectGraph)
	assert.Nil(t, p)
}

func TestFindExternal_SuffixIsNotAnchored(t *testing.T) {
	pg, err := workspace.ParseProjectGraph([]byte(`
nodes:
  app: {root: apps/app}
externalNodes:
  "npm:preact": {type: npm}
  "npm:react": {type: npm}
`))
	require.NoError(t, err)
	p := newPlanner(t, nil, pg)

	name, ok := p.findExternal("react")
	assert.True(t, ok)
	assert.Equal(t, "npm:preact", name)

	name, ok = p.findExternal("npm:react")
	assert.True(t, ok)
	assert.Equal(t, "npm:react", name)
}

func TestGetPlans_ContextCancelled(t *testing.T) {
	cfg, pg, tg := fixtures(t)
	p := newPlanner(t, cfg, pg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.GetPlans(ctx, plannable, tg)
	assert.ErrorIs(t, err, context.Canceled)
}
