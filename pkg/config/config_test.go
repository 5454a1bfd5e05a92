package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadYAMLPreservesStepOrder(t *testing.T) {
	path := writeConfig(t, "hk.yaml", `
hooks:
  pre-commit:
    fix: true
    steps:
      zeta:
        check: "zeta --check {{files}}"
      alpha:
        check: "alpha --check {{files}}"
      mid:
        glob: "*.go"
        check: "mid {{files}}"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	hook := cfg.Hooks["pre-commit"]
	require.NotNil(t, hook)
	assert.True(t, hook.Fix)
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, hook.StepNames())
	assert.Equal(t, []string{"*.go"}, []string(hook.FindStep("mid").Glob))
}

func TestLoadGroups(t *testing.T) {
	path := writeConfig(t, "hk.yaml", `
hooks:
  pre-commit:
    steps:
      lint:
        check: "lint {{files}}"
      build:
        steps:
          compile:
            check: "make compile"
          test:
            check: "make test"
      docs:
        check: "docs {{files}}"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	hook := cfg.Hooks["pre-commit"]
	require.Len(t, hook.Steps, 3)
	assert.NotNil(t, hook.Steps[0].Step)
	require.NotNil(t, hook.Steps[1].Group)
	assert.Equal(t, "build", hook.Steps[1].Group.Name)
	assert.Len(t, hook.Steps[1].Group.Steps, 2)
	assert.Equal(t, []string{"lint", "compile", "test", "docs"}, hook.StepNames())
}

func TestLoadStringOrList(t *testing.T) {
	path := writeConfig(t, "hk.yaml", `
exclude: vendor
hooks:
  check:
    steps:
      fmt:
        glob: ["*.js", "*.ts"]
        exclude: dist
        check: "fmt --check {{files}}"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"vendor"}, []string(cfg.Exclude))
	st := cfg.Hooks["check"].FindStep("fmt")
	assert.Equal(t, []string{"*.js", "*.ts"}, []string(st.Glob))
	assert.Equal(t, []string{"dist"}, []string(st.Exclude))
}

func TestLoadSequenceFormSteps(t *testing.T) {
	path := writeConfig(t, "hk.yaml", `
hooks:
  check:
    steps:
      - name: first
        check: "first {{files}}"
      - name: second
        check: "second {{files}}"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, cfg.Hooks["check"].StepNames())
}

func TestLoadTOML(t *testing.T) {
	path := writeConfig(t, "hk.toml", `
[hooks.check]
[[hooks.check.steps]]
name = "fmt"
check = "fmt --check {{files}}"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.Hooks["check"].FindStep("fmt"))
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "hk.yaml", `
hooks:
  check:
    steps:
      fmt:
        check: "fmt"
        globb: ["*.js"]
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema validation")
}

func TestLoadRejectsStepWithoutCommands(t *testing.T) {
	path := writeConfig(t, "hk.yaml", `
hooks:
  check:
    steps:
      fmt:
        glob: ["*.js"]
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "neither check nor fix")
}

func TestLoadRejectsUnknownDepends(t *testing.T) {
	path := writeConfig(t, "hk.yaml", `
hooks:
  check:
    steps:
      fmt:
        check: "fmt"
        depends: ["ghost"]
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown step")
}

func TestLoadRejectsDuplicateStepNames(t *testing.T) {
	path := writeConfig(t, "hk.yaml", `
hooks:
  check:
    steps:
      fmt:
        check: "fmt"
      grouped:
        steps:
          fmt:
            check: "fmt again"
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate step")
}

func TestCheckMinVersion(t *testing.T) {
	cfg := &Config{MinHkVersion: "1.2.0"}
	assert.Error(t, cfg.CheckMinVersion("1.1.9"))
	assert.NoError(t, cfg.CheckMinVersion("1.2.0"))
	assert.NoError(t, cfg.CheckMinVersion("2.0.0"))
	// dev builds always pass
	assert.NoError(t, cfg.CheckMinVersion("dev"))
}

func TestFindPrefersExplicitPath(t *testing.T) {
	dir := t.TempDir()
	explicit := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(explicit, []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hk.yaml"), []byte("{}"), 0o644))

	found, err := Find(dir, explicit)
	require.NoError(t, err)
	assert.Equal(t, explicit, found)

	found, err = Find(dir, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "hk.yaml"), found)
}

func TestFindReportsMissingConfig(t *testing.T) {
	_, err := Find(t.TempDir(), "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCheckFirstDefaultsToTrue(t *testing.T) {
	st := &Step{Check: "c", Fix: "f"}
	assert.True(t, st.CheckFirstEnabled())
	f := false
	st.CheckFirst = &f
	assert.False(t, st.CheckFirstEnabled())
}
