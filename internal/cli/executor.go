package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/renameio/v2"
	"github.com/pkg/errors"

	"taskplan/internal/dag"
	"taskplan/internal/hashplan"
	"taskplan/internal/outputs"
	"taskplan/internal/workspace"
)

// DefaultConfigFile is read from the workspace root when --config is not
// given.
const DefaultConfigFile = "nx.json"

type CLIResult struct {
	ExitCode int
}

// Execute runs a canonical invocation, writing results to stdout and logs to
// stderr, and translates the outcome to a semantic exit code.
func Execute(ctx context.Context, inv Invocation, stdout, stderr io.Writer) (res CLIResult, err error) {
	res.ExitCode = ExitInternalError
	logger := newLogger(stderr, inv.LogLevel)

	defer func() {
		if r := recover(); r != nil {
			res.ExitCode = ExitInternalError
			err = fmt.Errorf("internal error: %v", r)
		}
	}()

	switch inv.Command {
	case CommandPlan:
		return executePlan(ctx, inv, stdout, logger)
	case CommandOutputsExpand, CommandOutputsFiles:
		return executeOutputs(inv, stdout, logger)
	case CommandGraphCheck:
		return executeGraphCheck(inv, stdout, logger)
	default:
		res.ExitCode = ExitInvalidInvocation
		return res, fmt.Errorf("unknown command %q", inv.Command)
	}
}

func newLogger(w io.Writer, lvl string) log.Logger {
	if w == nil {
		return log.NewNopLogger()
	}
	logger := log.NewLogfmtLogger(log.NewSyncWriter(w))
	logger = level.NewFilter(logger, level.Allow(level.ParseDefault(lvl, level.InfoValue())))
	return log.With(logger, "caller", log.DefaultCaller)
}

type snapshot struct {
	config       *workspace.Config
	projectGraph *workspace.ProjectGraph
	taskGraph    *dag.TaskGraph
}

func loadSnapshot(inv Invocation) (*snapshot, error) {
	var s snapshot
	var err error

	configPath := inv.ConfigPath
	if configPath == "" {
		candidate := filepath.Join(inv.Workspace, DefaultConfigFile)
		if _, statErr := os.Stat(candidate); statErr == nil {
			configPath = candidate
		}
	}
	if configPath != "" {
		if s.config, err = workspace.LoadConfig(configPath); err != nil {
			return nil, err
		}
	} else {
		s.config = &workspace.Config{}
	}

	if s.projectGraph, err = workspace.LoadProjectGraph(inv.ProjectGraphPath); err != nil {
		return nil, err
	}
	if s.taskGraph, err = dag.LoadTaskGraph(inv.TaskGraphPath); err != nil {
		return nil, err
	}
	return &s, nil
}

func executePlan(ctx context.Context, inv Invocation, stdout io.Writer, logger log.Logger) (CLIResult, error) {
	s, err := loadSnapshot(inv)
	if err != nil {
		return CLIResult{ExitCode: ExitConfigError}, err
	}

	ids := inv.TaskIDs
	if len(ids) == 0 {
		ids = s.taskGraph.IDs()
	}
	if inv.IndependentOnly {
		independent, err := hashplan.IndependentTasks(s.taskGraph, s.projectGraph, s.config)
		if err != nil {
			return CLIResult{ExitCode: ExitPlanFailure}, err
		}
		ids = slices.DeleteFunc(slices.Clone(ids), func(id string) bool {
			return !slices.Contains(independent, id)
		})
	}

	planner, err := hashplan.NewPlanner(inv.Workspace, s.config, s.projectGraph,
		hashplan.WithLogger(logger),
		hashplan.WithParallelism(inv.Parallelism),
	)
	if err != nil {
		return CLIResult{ExitCode: ExitInternalError}, err
	}
	plan, err := planner.GetPlans(ctx, ids, s.taskGraph)
	if err != nil {
		return CLIResult{ExitCode: ExitPlanFailure}, err
	}

	data, err := renderPlan(plan, inv.Format)
	if err != nil {
		return CLIResult{ExitCode: ExitInternalError}, err
	}
	if inv.OutPath != "" {
		if err := os.MkdirAll(filepath.Dir(inv.OutPath), 0o755); err != nil {
			return CLIResult{ExitCode: ExitConfigError}, errors.Wrapf(err, "create %s", filepath.Dir(inv.OutPath))
		}
		if err := renameio.WriteFile(inv.OutPath, data, 0o644); err != nil {
			return CLIResult{ExitCode: ExitConfigError}, errors.Wrapf(err, "write %s", inv.OutPath)
		}
		level.Info(logger).Log("msg", "wrote plan", "path", inv.OutPath, "tasks", len(plan))
		return CLIResult{ExitCode: ExitSuccess}, nil
	}
	if _, err := stdout.Write(data); err != nil {
		return CLIResult{ExitCode: ExitInternalError}, err
	}
	return CLIResult{ExitCode: ExitSuccess}, nil
}

// renderPlan formats a plan. The text form lists each task id, sorted, with
// its digest, followed by one indented instruction per line.
func renderPlan(plan hashplan.Plan, format OutputFormat) ([]byte, error) {
	if format == FormatJSON {
		data, err := plan.CanonicalJSON()
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	}

	var buf bytes.Buffer
	strs := plan.Strings()
	for _, id := range plan.TaskIDs() {
		digest, _ := plan.Digest(id)
		fmt.Fprintf(&buf, "%s %016x\n", id, digest)
		for _, s := range strs[id] {
			fmt.Fprintf(&buf, "  %s\n", s)
		}
	}
	return buf.Bytes(), nil
}

func executeOutputs(inv Invocation, stdout io.Writer, logger log.Logger) (CLIResult, error) {
	expander := outputs.NewExpander(nil, logger)

	var paths []string
	var err error
	if inv.Command == CommandOutputsFiles {
		paths, err = expander.GetFilesForOutputs(inv.Root, inv.Entries)
	} else {
		paths, err = expander.ExpandOutputs(inv.Root, inv.Entries)
	}
	if err != nil {
		return CLIResult{ExitCode: ExitPlanFailure}, err
	}

	var buf bytes.Buffer
	for _, p := range paths {
		buf.WriteString(p)
		buf.WriteByte('\n')
	}
	if _, err := stdout.Write(buf.Bytes()); err != nil {
		return CLIResult{ExitCode: ExitInternalError}, err
	}
	return CLIResult{ExitCode: ExitSuccess}, nil
}

// executeGraphCheck loads both snapshots and checks that every task runs a
// project of the project graph.
func executeGraphCheck(inv Invocation, stdout io.Writer, logger log.Logger) (CLIResult, error) {
	s, err := loadSnapshot(inv)
	if err != nil {
		return CLIResult{ExitCode: ExitConfigError}, err
	}
	for _, id := range s.taskGraph.IDs() {
		task, _ := s.taskGraph.Task(id)
		if _, ok := s.projectGraph.Project(task.Target.Project); !ok {
			return CLIResult{ExitCode: ExitConfigError}, fmt.Errorf("task %q: project %q is not in the project graph", id, task.Target.Project)
		}
	}
	level.Debug(logger).Log("msg", "graphs are consistent", "tasks", s.taskGraph.Len(), "projects", len(s.projectGraph.Nodes))
	fmt.Fprintf(stdout, "ok: %d tasks, %d projects, %d external nodes\n", s.taskGraph.Len(), len(s.projectGraph.Nodes), len(s.projectGraph.ExternalNodes))
	return CLIResult{ExitCode: ExitSuccess}, nil
}
