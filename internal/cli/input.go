package cli

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kingpin/v2"
)

const (
	ExitSuccess           = 0
	ExitPlanFailure       = 1
	ExitInvalidInvocation = 2
	ExitConfigError       = 3
	ExitInternalError     = 4
)

type Command string

const (
	CommandPlan          Command = "plan"
	CommandOutputsExpand Command = "outputs expand"
	CommandOutputsFiles  Command = "outputs files"
	CommandGraphCheck    Command = "graph check"
)

type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// Invocation is the fully canonicalized, deterministic description of a run.
//
// All paths are normalized (Clean) and relative paths are resolved against
// Workspace (or Root for the outputs commands), which must be absolute. This
// prevents any dependency on the process current working directory.
type Invocation struct {
	Command Command

	Workspace        string
	ConfigPath       string // empty when not given and no nx.json is expected
	ProjectGraphPath string
	TaskGraphPath    string

	TaskIDs         []string
	IndependentOnly bool
	Parallelism     int
	Format          OutputFormat
	OutPath         string

	Root    string
	Entries []string

	LogLevel string
}

type InvocationError struct {
	ExitCode int
	Message  string
}

func (e *InvocationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func invalidInvocationf(format string, args ...any) error {
	return &InvocationError{ExitCode: ExitInvalidInvocation, Message: fmt.Sprintf(format, args...)}
}

// flags holds the raw kingpin destinations before canonicalization.
type flags struct {
	workspace       string
	config          string
	projectGraph    string
	taskGraph       string
	tasks           []string
	independentOnly bool
	parallelism     int
	format          string
	out             string
	root            string
	entries         []string
	logLevel        string
}

func newApp(f *flags) *kingpin.Application {
	app := kingpin.New("taskplan", "Plans the cache key inputs of workspace tasks.")
	app.Terminate(func(int) {})
	app.UsageWriter(io.Discard)
	app.ErrorWriter(io.Discard)
	app.Flag("log.level", "Log level: debug, info, warn, error.").Default("info").EnumVar(&f.logLevel, "debug", "info", "warn", "error")

	plan := app.Command(string(CommandPlan), "Print the hash instructions of tasks.")
	plan.Flag("workspace", "Absolute workspace root. Required.").Required().StringVar(&f.workspace)
	plan.Flag("project-graph", "Project graph snapshot (YAML or JSON).").Required().StringVar(&f.projectGraph)
	plan.Flag("task-graph", "Task graph snapshot (YAML or JSON).").Required().StringVar(&f.taskGraph)
	plan.Flag("config", "Workspace configuration. Defaults to <workspace>/nx.json when present.").StringVar(&f.config)
	plan.Flag("task", "Task id to plan. Repeatable; defaults to every task.").StringsVar(&f.tasks)
	plan.Flag("independent-only", "Only plan tasks that do not depend on upstream outputs.").BoolVar(&f.independentOnly)
	plan.Flag("parallelism", "Maximum tasks planned concurrently; 0 means unbounded.").Default("0").IntVar(&f.parallelism)
	plan.Flag("format", "Output format: text or json.").Default(string(FormatText)).EnumVar(&f.format, string(FormatText), string(FormatJSON))
	plan.Flag("out", "Write the plan to this file instead of stdout.").StringVar(&f.out)

	outputs := app.Command("outputs", "Resolve declared task outputs.")
	for _, c := range []struct{ name, help string }{
		{"expand", "Print existing entries and the paths matching the others as globs."},
		{"files", "Print the sorted files behind the entries."},
	} {
		cmd := outputs.Command(c.name, c.help)
		cmd.Flag("root", "Absolute directory the entries are relative to. Required.").Required().StringVar(&f.root)
		cmd.Arg("entry", "Output entries.").Required().StringsVar(&f.entries)
	}

	graph := app.Command("graph", "Inspect graph snapshots.")
	check := graph.Command("check", "Validate the task graph against the project graph.")
	check.Flag("workspace", "Absolute workspace root. Required.").Required().StringVar(&f.workspace)
	check.Flag("project-graph", "Project graph snapshot (YAML or JSON).").Required().StringVar(&f.projectGraph)
	check.Flag("task-graph", "Task graph snapshot (YAML or JSON).").Required().StringVar(&f.taskGraph)

	return app
}

// ParseInvocation parses CLI arguments into a canonical Invocation.
//
// Determinism goals:
//   - Does not read env vars.
//   - Does not read/assume the process CWD.
//   - Requires the workspace or root directory to be explicit and absolute.
func ParseInvocation(args []string) (Invocation, error) {
	var f flags
	app := newApp(&f)
	selected, err := app.Parse(args)
	if err != nil {
		return Invocation{}, invalidInvocationf("%v", err)
	}

	inv := Invocation{
		Command:         Command(selected),
		TaskIDs:         f.tasks,
		IndependentOnly: f.independentOnly,
		Parallelism:     f.parallelism,
		Format:          OutputFormat(f.format),
		Entries:         f.entries,
		LogLevel:        f.logLevel,
	}

	switch inv.Command {
	case CommandPlan, CommandGraphCheck:
		if inv.Workspace, err = absoluteDir("--workspace", f.workspace); err != nil {
			return Invocation{}, err
		}
		if inv.ProjectGraphPath, err = resolveUnder(inv.Workspace, f.projectGraph); err != nil {
			return Invocation{}, err
		}
		if inv.TaskGraphPath, err = resolveUnder(inv.Workspace, f.taskGraph); err != nil {
			return Invocation{}, err
		}
		if strings.TrimSpace(f.config) != "" {
			if inv.ConfigPath, err = resolveUnder(inv.Workspace, f.config); err != nil {
				return Invocation{}, err
			}
		}
		if inv.Parallelism < 0 {
			return Invocation{}, invalidInvocationf("--parallelism must not be negative (got %d)", inv.Parallelism)
		}
		if strings.TrimSpace(f.out) != "" {
			if inv.OutPath, err = resolveUnder(inv.Workspace, f.out); err != nil {
				return Invocation{}, err
			}
		}
	case CommandOutputsExpand, CommandOutputsFiles:
		if inv.Root, err = absoluteDir("--root", f.root); err != nil {
			return Invocation{}, err
		}
	default:
		return Invocation{}, invalidInvocationf("a command is required")
	}
	return inv, nil
}

func absoluteDir(flag, dir string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return "", invalidInvocationf("%s is required", flag)
	}
	dir = filepath.Clean(dir)
	if !filepath.IsAbs(dir) {
		return "", invalidInvocationf("%s must be an absolute path (got %q)", flag, dir)
	}
	return dir, nil
}

func resolveUnder(dir, p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", invalidInvocationf("path must not be empty")
	}
	clean := filepath.Clean(p)
	if clean == "." {
		return "", invalidInvocationf("path must not be '.'")
	}

	// If absolute, accept as-is; it is still deterministic.
	if filepath.IsAbs(clean) {
		return clean, nil
	}

	// dir is required to be absolute, so Join does not consult process CWD.
	return filepath.Clean(filepath.Join(dir, clean)), nil
}

// ExitCode extracts a semantic exit code from an error.
// If the error is not a known invocation error, it returns ExitInternalError.
func ExitCode(err error) int {
	var invErr *InvocationError
	if errors.As(err, &invErr) && invErr != nil {
		if invErr.ExitCode != 0 {
			return invErr.ExitCode
		}
		return ExitInvalidInvocation
	}
	if err == nil {
		return ExitSuccess
	}
	return ExitInternalError
}
