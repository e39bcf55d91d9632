// Package core defines the domain models for task hash planning.
package core

import (
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strings"
)

// InstructionKind discriminates the HashInstruction variant.
//
// The numeric order of the kinds is the primary key of the instruction
// ordering. The values are part of every plan's sort order; do not reorder.
type InstructionKind int

const (
	WorkspaceFileSet InstructionKind = iota + 1
	RuntimeInstruction
	EnvironmentInstruction
	ProjectFileSet
	ProjectConfiguration
	TsConfiguration
	TaskOutput
	External
	AllExternalDependencies
)

var instructionKindNames = map[InstructionKind]string{
	WorkspaceFileSet:        "WorkspaceFileSet",
	RuntimeInstruction:      "Runtime",
	EnvironmentInstruction:  "Environment",
	ProjectFileSet:          "ProjectFileSet",
	ProjectConfiguration:    "ProjectConfiguration",
	TsConfiguration:         "TsConfiguration",
	TaskOutput:              "TaskOutput",
	External:                "External",
	AllExternalDependencies: "AllExternalDependencies",
}

func (k InstructionKind) String() string {
	if s, ok := instructionKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("InstructionKind(%d)", int(k))
}

// HashInstruction is one symbolic contributor to a task's cache key.
//
// Field usage per kind:
//
//	WorkspaceFileSet         Value (pattern)
//	RuntimeInstruction       Value (command)
//	EnvironmentInstruction   Value (variable)
//	ProjectFileSet           Project, Value (patterns joined by ",")
//	ProjectConfiguration     Project
//	TsConfiguration          Project
//	TaskOutput               Value (output file glob), Outputs
//	External                 Value (external node name)
//	AllExternalDependencies  -
//
// HashInstruction is comparable only through Compare/Equal because of the
// Outputs slice.
type HashInstruction struct {
	Kind    InstructionKind
	Project string
	Value   string
	Outputs []string
}

// NewWorkspaceFileSet returns a workspace-scoped file set instruction.
func NewWorkspaceFileSet(pattern string) HashInstruction {
	return HashInstruction{Kind: WorkspaceFileSet, Value: pattern}
}

// NewProjectFileSet returns a project file set instruction over patterns.
func NewProjectFileSet(project string, patterns []string) HashInstruction {
	return HashInstruction{Kind: ProjectFileSet, Project: project, Value: strings.Join(patterns, ",")}
}

// NewProjectConfiguration returns a project configuration instruction.
func NewProjectConfiguration(project string) HashInstruction {
	return HashInstruction{Kind: ProjectConfiguration, Project: project}
}

// NewTsConfiguration returns a TypeScript configuration instruction.
func NewTsConfiguration(project string) HashInstruction {
	return HashInstruction{Kind: TsConfiguration, Project: project}
}

// NewRuntime returns a runtime command instruction.
func NewRuntime(command string) HashInstruction {
	return HashInstruction{Kind: RuntimeInstruction, Value: command}
}

// NewEnvironment returns an environment variable instruction.
func NewEnvironment(name string) HashInstruction {
	return HashInstruction{Kind: EnvironmentInstruction, Value: name}
}

// NewTaskOutput returns an upstream task output instruction.
func NewTaskOutput(glob string, outputs []string) HashInstruction {
	return HashInstruction{Kind: TaskOutput, Value: glob, Outputs: slices.Clone(outputs)}
}

// NewExternal returns an external node instruction.
func NewExternal(name string) HashInstruction {
	return HashInstruction{Kind: External, Value: name}
}

// NewAllExternalDependencies returns the sentinel meaning the task may depend on
// every external node.
func NewAllExternalDependencies() HashInstruction {
	return HashInstruction{Kind: AllExternalDependencies}
}

// Compare returns -1, 0 or +1.
//
// Ordering: kind rank, then Project, then Value, then Outputs element-wise
// (a shorter prefix sorts first). This is a total order over all instructions.
func Compare(a, b HashInstruction) int {
	if a.Kind != b.Kind {
		if a.Kind < b.Kind {
			return -1
		}
		return 1
	}
	if c := strings.Compare(a.Project, b.Project); c != 0 {
		return c
	}
	if c := strings.Compare(a.Value, b.Value); c != 0 {
		return c
	}
	return slices.Compare(a.Outputs, b.Outputs)
}

// Less reports whether a sorts before b.
func (h HashInstruction) Less(o HashInstruction) bool { return Compare(h, o) < 0 }

// Equal reports whether both instructions are identical.
func (h HashInstruction) Equal(o HashInstruction) bool { return Compare(h, o) == 0 }

// String returns the stable textual form fed to the hashing stage.
func (h HashInstruction) String() string {
	switch h.Kind {
	case WorkspaceFileSet:
		return h.Value
	case RuntimeInstruction:
		return "runtime:" + h.Value
	case EnvironmentInstruction:
		return "env:" + h.Value
	case ProjectFileSet:
		return h.Project + ":" + h.Value
	case ProjectConfiguration:
		return h.Project + ":ProjectConfiguration"
	case TsConfiguration:
		return h.Project + ":TsConfig"
	case TaskOutput:
		return h.Value + ":" + strings.Join(h.Outputs, ",")
	case External:
		return h.Value
	case AllExternalDependencies:
		return "AllExternalDependencies"
	default:
		return h.Kind.String()
	}
}

// MarshalJSON encodes the instruction as its stable string form.
func (h HashInstruction) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

// SortInstructions sorts the instructions in place and removes duplicates.
// The returned slice shares the backing array with the argument.
func SortInstructions(instructions []HashInstruction) []HashInstruction {
	sort.SliceStable(instructions, func(i, j int) bool {
		return Compare(instructions[i], instructions[j]) < 0
	})
	return slices.CompactFunc(instructions, HashInstruction.Equal)
}
