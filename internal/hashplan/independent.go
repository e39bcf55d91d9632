package hashplan

import (
	"taskplan/internal/dag"
	"taskplan/internal/inputs"
	"taskplan/internal/workspace"
)

// IndependentTasks returns, sorted, the ids of the tasks whose plan can be
// hashed before any other task has run: tasks without upstream tasks, and
// tasks that declare no dependentTasksOutputFiles input.
func IndependentTasks(taskGraph *dag.TaskGraph, projectGraph *workspace.ProjectGraph, config *workspace.Config) ([]string, error) {
	var out []string
	for _, id := range taskGraph.IDs() {
		if len(taskGraph.DependenciesOf(id)) == 0 {
			out = append(out, id)
			continue
		}
		task, _ := taskGraph.Task(id)
		split, err := inputs.GetInputs(task, projectGraph, config)
		if err != nil {
			return nil, err
		}
		if len(split.DepsOutputs) == 0 {
			out = append(out, id)
		}
	}
	return out, nil
}
