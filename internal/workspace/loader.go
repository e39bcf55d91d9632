package workspace

import (
	"bytes"
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ParseConfig decodes a workspace configuration from YAML or JSON bytes.
//
// Unknown top-level fields are ignored: a workspace configuration file carries
// many settings that do not affect planning.
func ParseConfig(data []byte) (*Config, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("workspace: configuration payload is empty")
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "workspace: decode configuration")
	}
	return &cfg, nil
}

// LoadConfig loads the workspace configuration at path.
func LoadConfig(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "workspace: read %s", path)
	}
	cfg, err := ParseConfig(content)
	if err != nil {
		return nil, errors.Wrapf(err, "workspace: %s", path)
	}
	return cfg, nil
}

// ParseProjectGraph decodes and validates a project graph snapshot.
//
// The decoder is strict:
//   - Disallows unknown fields (to avoid silent divergence).
//   - Rejects trailing documents.
func ParseProjectGraph(data []byte) (*ProjectGraph, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("workspace: project graph payload is empty")
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var g ProjectGraph
	if err := dec.Decode(&g); err != nil {
		return nil, errors.Wrap(err, "workspace: decode project graph")
	}
	var trailing any
	if err := dec.Decode(&trailing); err != io.EOF {
		if err == nil {
			return nil, errors.New("workspace: decode project graph: trailing data")
		}
		return nil, errors.Wrap(err, "workspace: decode project graph")
	}

	normalizeNames(&g)
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return &g, nil
}

// LoadProjectGraph loads and validates the project graph snapshot at path.
func LoadProjectGraph(path string) (*ProjectGraph, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "workspace: read %s", path)
	}
	g, err := ParseProjectGraph(content)
	if err != nil {
		return nil, errors.Wrapf(err, "workspace: %s", path)
	}
	return g, nil
}

// normalizeNames fills in names omitted in the snapshot from their map keys.
func normalizeNames(g *ProjectGraph) {
	for name, p := range g.Nodes {
		if p != nil && p.Name == "" {
			p.Name = name
		}
	}
	for name, n := range g.ExternalNodes {
		if n != nil && n.Name == "" {
			n.Name = name
		}
	}
	if g.Dependencies == nil {
		g.Dependencies = map[string][]string{}
	}
}
