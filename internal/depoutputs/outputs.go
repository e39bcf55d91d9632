// Package depoutputs turns "dependentTasksOutputFiles" inputs into hash
// instructions over the outputs of upstream tasks.
package depoutputs

import (
	"fmt"
	"maps"
	"regexp"
	"strings"

	"taskplan/internal/core"
	"taskplan/internal/workspace"
)

var (
	placeholder = regexp.MustCompile(`\{([^{}]+?)\}`)
	unresolved  = regexp.MustCompile(`\{(projectRoot|workspaceRoot|options\..*)\}`)
)

// OutputsForTarget returns the outputs task writes, in declaration order.
//
// Outputs come from, in order of precedence: the task itself, the project's
// target, the target defaults. Each declared output is interpolated with
// {projectRoot}, {projectName} and {options.<path>}; options are the target
// options overlaid by the selected configuration and the task overrides.
// A leading "{workspaceRoot}/" is dropped. Outputs with placeholders left
// unresolved are skipped.
//
// Without declared outputs, an "outputPath" option is used, and "build" and
// "prepare" targets fall back to the conventional dist folders.
func OutputsForTarget(task *core.Task, project *workspace.Project, config *workspace.Config) []string {
	if len(task.Outputs) > 0 {
		return task.Outputs
	}

	target := project.Targets[task.Target.Target]
	defaults, _ := config.TargetDefaultsFor(task.Target.Target, target.Executor)

	options := make(map[string]any)
	maps.Copy(options, defaults.Options)
	maps.Copy(options, target.Options)
	if task.Target.Configuration != "" {
		maps.Copy(options, target.Configurations[task.Target.Configuration])
	}
	maps.Copy(options, task.Overrides)

	declared := target.Outputs
	if declared == nil {
		declared = defaults.Outputs
	}
	if declared != nil {
		data := map[string]any{
			"projectRoot": project.Root,
			"projectName": project.Name,
			"project":     map[string]any{"name": project.Name, "root": project.Root},
			"options":     options,
		}
		var out []string
		seen := make(map[string]bool, len(declared))
		for _, output := range declared {
			resolved := interpolate(output, project.Root, data)
			if resolved == "" || unresolved.MatchString(resolved) || seen[resolved] {
				continue
			}
			seen[resolved] = true
			out = append(out, resolved)
		}
		return out
	}

	switch v := options["outputPath"].(type) {
	case string:
		if v != "" {
			return []string{v}
		}
	case []any:
		var out []string
		for _, p := range v {
			if s, ok := p.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return v
	}

	if task.Target.Target == "build" || task.Target.Target == "prepare" {
		return []string{
			"dist/" + project.Root,
			project.Root + "/dist",
			project.Root + "/public",
		}
	}
	return nil
}

func interpolate(template, projectRoot string, data map[string]any) string {
	res := strings.Replace(template, "{workspaceRoot}/", "", 1)
	if projectRoot == "." {
		res = strings.Replace(res, "{projectRoot}/", "", 1)
	}
	return placeholder.ReplaceAllStringFunc(res, func(match string) string {
		key := strings.TrimSpace(match[1 : len(match)-1])
		var value any = data
		for _, part := range strings.Split(key, ".") {
			m, ok := value.(map[string]any)
			if !ok {
				return match
			}
			if value, ok = m[part]; !ok {
				return match
			}
		}
		switch v := value.(type) {
		case nil:
			return match
		case string:
			if v == "" {
				return match
			}
			return v
		default:
			return fmt.Sprint(v)
		}
	})
}
