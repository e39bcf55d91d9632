package dag

import (
	"bytes"
	"io"
	"os"
	"sort"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"taskplan/internal/core"
)

type graphFile struct {
	Roots        []string             `yaml:"roots"`
	Tasks        map[string]core.Task `yaml:"tasks"`
	Dependencies map[string][]string  `yaml:"dependencies"`
}

// ParseTaskGraph decodes a task graph snapshot from YAML or JSON bytes.
//
// The loader is deterministic:
//   - Disallows unknown fields (to avoid silent divergence).
//   - Rejects trailing documents.
//   - Task ids omitted in a task body are taken from the map key.
//
// Roots are recomputed from the dependency structure; a roots list in the
// snapshot is accepted and ignored.
func ParseTaskGraph(data []byte) (*TaskGraph, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("parse task graph: payload is empty")
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var gf graphFile
	if err := dec.Decode(&gf); err != nil {
		return nil, errors.Wrap(err, "parse task graph")
	}
	var trailing any
	if err := dec.Decode(&trailing); err != io.EOF {
		if err == nil {
			return nil, errors.New("parse task graph: trailing data")
		}
		return nil, errors.Wrap(err, "parse task graph")
	}
	if len(gf.Tasks) == 0 {
		return nil, errors.New("parse task graph: no tasks")
	}

	ids := make([]string, 0, len(gf.Tasks))
	for id := range gf.Tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	tasks := make([]core.Task, 0, len(ids))
	for _, id := range ids {
		t := gf.Tasks[id]
		if t.ID == "" {
			t.ID = id
		}
		if t.ID != id {
			return nil, invalidf("task key %q does not match id %q", id, t.ID)
		}
		tasks = append(tasks, t)
	}
	return NewTaskGraphFromDependencies(tasks, gf.Dependencies)
}

// LoadTaskGraph reads and parses the task graph snapshot at path.
func LoadTaskGraph(path string) (*TaskGraph, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read task graph")
	}
	g, err := ParseTaskGraph(b)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return g, nil
}
