package depoutputs

import (
	"path/filepath"
	"strings"

	"taskplan/internal/core"
	"taskplan/internal/dag"
	"taskplan/internal/workspace"
)

// Resolver produces TaskOutput instructions for dependency-output inputs.
// Config supplies target default outputs and may be nil.
type Resolver struct {
	Config *workspace.Config
}

// Resolve is (&Resolver{}).Resolve.
func Resolve(workspaceRoot string, task *core.Task, taskGraph *dag.TaskGraph, projectGraph *workspace.ProjectGraph, outputFiles string, transitive bool) ([]core.HashInstruction, error) {
	return (&Resolver{}).Resolve(workspaceRoot, task, taskGraph, projectGraph, outputFiles, transitive)
}

// Resolve emits one TaskOutput(outputFiles, outputs) per upstream task of
// task that declares outputs, visiting upstream tasks in sorted order. With
// transitive set, the upstream tasks of those tasks are included as well;
// each task is visited once.
//
// An upstream id missing from the task graph yields dag.ErrTaskNotFound.
func (r *Resolver) Resolve(workspaceRoot string, task *core.Task, taskGraph *dag.TaskGraph, projectGraph *workspace.ProjectGraph, outputFiles string, transitive bool) ([]core.HashInstruction, error) {
	visited := map[string]bool{task.ID: true}
	var out []core.HashInstruction
	if err := r.collect(workspaceRoot, task, taskGraph, projectGraph, outputFiles, transitive, visited, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Resolver) collect(workspaceRoot string, task *core.Task, taskGraph *dag.TaskGraph, projectGraph *workspace.ProjectGraph, outputFiles string, transitive bool, visited map[string]bool, out *[]core.HashInstruction) error {
	for _, id := range taskGraph.DependenciesOf(task.ID) {
		if visited[id] {
			continue
		}
		visited[id] = true

		upstream, err := taskGraph.Lookup(id)
		if err != nil {
			return err
		}
		var outputs []string
		if project, ok := projectGraph.Project(upstream.Target.Project); ok {
			outputs = OutputsForTarget(upstream, project, r.Config)
		} else if len(upstream.Outputs) > 0 {
			outputs = upstream.Outputs
		}
		outputs = relativeTo(workspaceRoot, outputs)
		if len(outputs) > 0 {
			*out = append(*out, core.NewTaskOutput(outputFiles, outputs))
		}
		if transitive {
			if err := r.collect(workspaceRoot, upstream, taskGraph, projectGraph, outputFiles, transitive, visited, out); err != nil {
				return err
			}
		}
	}
	return nil
}

// relativeTo rewrites absolute outputs under root as workspace relative
// slash paths. Other outputs are returned unchanged.
func relativeTo(root string, outputs []string) []string {
	if root == "" {
		return outputs
	}
	var rewritten []string
	for i, o := range outputs {
		if !filepath.IsAbs(o) {
			continue
		}
		rel, err := filepath.Rel(root, o)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		if rewritten == nil {
			rewritten = append([]string(nil), outputs...)
		}
		rewritten[i] = filepath.ToSlash(rel)
	}
	if rewritten == nil {
		return outputs
	}
	return rewritten
}
