package workspace

import (
	"sort"
	"strings"
)

// Target is a named, configured operation of a project.
type Target struct {
	// Executor is conventionally "scope:name", e.g. "@nx/js:tsc". Optional.
	Executor string `json:"executor,omitempty" yaml:"executor,omitempty"`

	// Inputs is nil when not configured; an empty non-nil slice means the
	// target explicitly has no inputs.
	Inputs []RawInput `json:"inputs,omitempty" yaml:"inputs,omitempty"`

	Outputs        []string                  `json:"outputs,omitempty" yaml:"outputs,omitempty"`
	Options        map[string]any            `json:"options,omitempty" yaml:"options,omitempty"`
	Configurations map[string]map[string]any `json:"configurations,omitempty" yaml:"configurations,omitempty"`
}

// ExecutorPackage returns the package part of the executor ("@nx/js" for
// "@nx/js:tsc").
func (t Target) ExecutorPackage() string {
	pkg, _, _ := strings.Cut(t.Executor, ":")
	return pkg
}

// Project is a named unit of the workspace.
type Project struct {
	Name        string                `json:"name" yaml:"name"`
	Root        string                `json:"root" yaml:"root"`
	Tags        []string              `json:"tags,omitempty" yaml:"tags,omitempty"`
	NamedInputs map[string][]RawInput `json:"namedInputs,omitempty" yaml:"namedInputs,omitempty"`
	Targets     map[string]Target     `json:"targets,omitempty" yaml:"targets,omitempty"`
}

// ExternalNode is a third-party package in the project graph.
type ExternalNode struct {
	Name string           `json:"name" yaml:"name"`
	Type string           `json:"type,omitempty" yaml:"type,omitempty"`
	Data ExternalNodeData `json:"data,omitempty" yaml:"data,omitempty"`
}

// ExternalNodeData describes the package behind an external node.
type ExternalNodeData struct {
	PackageName string `json:"packageName,omitempty" yaml:"packageName,omitempty"`
	Version     string `json:"version,omitempty" yaml:"version,omitempty"`
	Hash        string `json:"hash,omitempty" yaml:"hash,omitempty"`
}

// ProjectGraph is the dependency graph among projects and external nodes.
//
// Dependencies maps a project or external node name to the ordered names of
// its direct dependencies, which may be projects or external nodes.
//
// The graph is immutable once loaded and safe for concurrent reads.
type ProjectGraph struct {
	Nodes         map[string]*Project      `json:"nodes" yaml:"nodes"`
	Dependencies  map[string][]string      `json:"dependencies" yaml:"dependencies"`
	ExternalNodes map[string]*ExternalNode `json:"externalNodes,omitempty" yaml:"externalNodes,omitempty"`
}

// Project returns the project with the given name.
func (g *ProjectGraph) Project(name string) (*Project, bool) {
	p, ok := g.Nodes[name]
	return p, ok && p != nil
}

// IsExternal reports whether name is an external node.
func (g *ProjectGraph) IsExternal(name string) bool {
	_, ok := g.ExternalNodes[name]
	return ok
}

// ProjectNames returns the project names sorted.
func (g *ProjectGraph) ProjectNames() []string {
	names := make([]string, 0, len(g.Nodes))
	for name := range g.Nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ExternalNodeNames returns the external node names sorted. Suffix based
// package resolution scans this order, so the first match is stable.
func (g *ProjectGraph) ExternalNodeNames() []string {
	names := make([]string, 0, len(g.ExternalNodes))
	for name := range g.ExternalNodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks the structural invariants of the graph:
//   - node keys match node names (empty names are filled in by the loader)
//   - a name is not both a project and an external node
//   - every dependency names a known project or external node
func (g *ProjectGraph) Validate() error {
	if g == nil {
		return invalidf("graph is nil")
	}
	for name, p := range g.Nodes {
		if p == nil {
			return invalidf("project %q has no definition", name)
		}
		if p.Name != name {
			return invalidf("project key %q does not match name %q", name, p.Name)
		}
		if g.IsExternal(name) {
			return invalidf("%q is both a project and an external node", name)
		}
	}
	for name, n := range g.ExternalNodes {
		if n == nil || n.Name != name {
			return invalidf("external node key %q does not match its name", name)
		}
	}

	sources := make([]string, 0, len(g.Dependencies))
	for source := range g.Dependencies {
		sources = append(sources, source)
	}
	sort.Strings(sources)
	for _, source := range sources {
		if _, ok := g.Nodes[source]; !ok && !g.IsExternal(source) {
			return invalidf("dependencies declared for unknown node %q", source)
		}
		for _, dep := range g.Dependencies[source] {
			if _, ok := g.Nodes[dep]; !ok && !g.IsExternal(dep) {
				return invalidf("%q depends on unknown node %q", source, dep)
			}
		}
	}
	return nil
}
