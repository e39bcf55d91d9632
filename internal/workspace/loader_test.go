package workspace

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const graphYAML = `
nodes:
  app:
    root: apps/app
    tags: [type:app]
    targets:
      build:
        executor: "@nx/webpack:webpack"
        outputs: ["{options.outputPath}"]
        options:
          outputPath: dist/apps/app
  lib:
    root: libs/lib
dependencies:
  app: [lib, "npm:react"]
  lib: []
  "npm:react": ["npm:loose-envify"]
externalNodes:
  "npm:react":
    type: npm
    data: {packageName: react, version: 18.2.0}
  "npm:loose-envify":
    type: npm
`

func TestParseProjectGraph_YAML(t *testing.T) {
	g, err := ParseProjectGraph([]byte(graphYAML))
	require.NoError(t, err)

	app, ok := g.Project("app")
	require.True(t, ok)
	assert.Equal(t, "app", app.Name)
	assert.Equal(t, "apps/app", app.Root)
	assert.Equal(t, "@nx/webpack", app.Targets["build"].ExecutorPackage())
	assert.Equal(t, []string{"lib", "npm:react"}, g.Dependencies["app"])
	assert.True(t, g.IsExternal("npm:react"))
	assert.Equal(t, []string{"npm:loose-envify", "npm:react"}, g.ExternalNodeNames())
	assert.Equal(t, []string{"app", "lib"}, g.ProjectNames())
}

func TestParseProjectGraph_JSON(t *testing.T) {
	g, err := ParseProjectGraph([]byte(`{"nodes": {"a": {"root": "a"}}, "dependencies": {"a": []}}`))
	require.NoError(t, err)
	_, ok := g.Project("a")
	assert.True(t, ok)
}

func TestParseProjectGraph_RejectsUnknownFields(t *testing.T) {
	_, err := ParseProjectGraph([]byte("nodes: {}\nedges: []\n"))
	require.Error(t, err)
}

func TestParseProjectGraph_RejectsEmptyPayload(t *testing.T) {
	_, err := ParseProjectGraph([]byte("  \n"))
	require.Error(t, err)
}

func TestParseProjectGraph_RejectsUnknownDependency(t *testing.T) {
	_, err := ParseProjectGraph([]byte("nodes:\n  a: {root: a}\ndependencies:\n  a: [missing]\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidProjectGraph))
}

func TestParseProjectGraph_RejectsNameClash(t *testing.T) {
	_, err := ParseProjectGraph([]byte("nodes:\n  a: {root: a}\nexternalNodes:\n  a: {type: npm}\n"))
	require.ErrorIs(t, err, ErrInvalidProjectGraph)
}

func TestLoadConfig_IgnoresUnrelatedSettings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nx.json")
	content := `{
  "npmScope": "acme",
  "namedInputs": {
    "production": ["default", "!{projectRoot}/**/*.spec.ts"]
  },
  "targetDefaults": {
    "build": {"inputs": ["production", "^production"], "outputs": ["{projectRoot}/dist"]}
  }
}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Len(t, cfg.NamedInputs["production"], 2)

	d, ok := cfg.TargetDefaultsFor("build", "")
	require.True(t, ok)
	assert.Equal(t, []string{"{projectRoot}/dist"}, d.Outputs)
}

func TestTargetDefaultsFor_FallsBackToExecutor(t *testing.T) {
	cfg := &Config{TargetDefaults: map[string]TargetDefaults{
		"@nx/js:tsc": {Outputs: []string{"{options.outputPath}"}},
	}}
	d, ok := cfg.TargetDefaultsFor("compile", "@nx/js:tsc")
	require.True(t, ok)
	assert.Equal(t, []string{"{options.outputPath}"}, d.Outputs)

	_, ok = cfg.TargetDefaultsFor("compile", "")
	assert.False(t, ok)

	var nilCfg *Config
	_, ok = nilCfg.TargetDefaultsFor("build", "")
	assert.False(t, ok)
}

func TestLoadProjectGraph_MissingFile(t *testing.T) {
	_, err := LoadProjectGraph(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}
