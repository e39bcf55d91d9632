package workspace

// FixedWorkspaceFiles are the workspace files every task's plan depends on.
var FixedWorkspaceFiles = []string{
	"{workspaceRoot}/nx.json",
	"{workspaceRoot}/.gitignore",
	"{workspaceRoot}/.nxignore",
}

// RawInput is an input entry as written in configuration: either a string
// ("^production", "{projectRoot}/**/*", "default") or an object such as
// {"env": "CI"} or {"dependentTasksOutputFiles": "**/*.d.ts", "transitive": true}.
type RawInput = any

// Config is the subset of the workspace configuration used for planning.
type Config struct {
	// NamedInputs are the workspace-level named input definitions.
	NamedInputs map[string][]RawInput `json:"namedInputs,omitempty" yaml:"namedInputs,omitempty"`

	// TargetDefaults are keyed by target name or by executor.
	TargetDefaults map[string]TargetDefaults `json:"targetDefaults,omitempty" yaml:"targetDefaults,omitempty"`
}

// TargetDefaults are defaults applied to targets matching by name or executor.
type TargetDefaults struct {
	Executor string         `json:"executor,omitempty" yaml:"executor,omitempty"`
	Inputs   []RawInput     `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	Outputs  []string       `json:"outputs,omitempty" yaml:"outputs,omitempty"`
	Options  map[string]any `json:"options,omitempty" yaml:"options,omitempty"`
}

// TargetDefaultsFor returns the defaults for a target, looked up by target
// name first and executor second.
func (c *Config) TargetDefaultsFor(targetName, executor string) (TargetDefaults, bool) {
	if c == nil {
		return TargetDefaults{}, false
	}
	if d, ok := c.TargetDefaults[targetName]; ok {
		return d, true
	}
	if executor != "" {
		if d, ok := c.TargetDefaults[executor]; ok {
			return d, true
		}
	}
	return TargetDefaults{}, false
}
