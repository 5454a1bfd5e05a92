package tmpl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hkdev/hk/pkg/git"
)

func testContext() *Context {
	return &Context{
		Files:              []string{"a.js", "src/b.js"},
		Workspace:          "svc1",
		WorkspaceIndicator: "svc1/Cargo.toml",
		WorkspaceFiles:     []string{"svc1/src/a.rs"},
		Git: &git.Snapshot{
			Branch: "main",
			Staged: []string{"a.js"},
		},
	}
}

func TestExpandFiles(t *testing.T) {
	out, err := testContext().Expand("fmt --check {{files}}")
	require.NoError(t, err)
	assert.Equal(t, "fmt --check a.js src/b.js", out)
}

func TestExpandWorkspaceFields(t *testing.T) {
	tc := testContext()
	out, err := tc.Expand("clippy --manifest-path {{workspace_indicator}} -- {{workspace_files}}")
	require.NoError(t, err)
	assert.Equal(t, "clippy --manifest-path svc1/Cargo.toml -- svc1/src/a.rs", out)

	out, err = tc.Expand("cd {{workspace}}")
	require.NoError(t, err)
	assert.Equal(t, "cd svc1", out)
}

func TestExpandGitFields(t *testing.T) {
	out, err := testContext().Expand("echo {{git.branch}}: {{git.staged}}")
	require.NoError(t, err)
	assert.Equal(t, "echo main: a.js", out)
}

func TestExpandQuotesSpecialCharacters(t *testing.T) {
	tc := &Context{Files: []string{"has space.js", "plain.js"}}
	out, err := tc.Expand("fmt {{files}}")
	require.NoError(t, err)
	assert.Equal(t, "fmt 'has space.js' plain.js", out)
}

func TestExpandUnknownFieldErrors(t *testing.T) {
	_, err := testContext().Expand("echo {{filez}}")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown template field")

	_, err = testContext().Expand("echo {{git.bogus}}")
	require.Error(t, err)
}

func TestExpandIsPure(t *testing.T) {
	tc := testContext()
	first, err := tc.Expand("run {{files}} on {{git.branch}}")
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := tc.Expand("run {{files}} on {{git.branch}}")
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestExpandEnv(t *testing.T) {
	env, err := testContext().ExpandEnv(map[string]string{
		"TARGETS": "{{files}}",
		"STATIC":  "1",
	})
	require.NoError(t, err)
	assert.Equal(t, "a.js src/b.js", env["TARGETS"])
	assert.Equal(t, "1", env["STATIC"])
}

func TestShellQuote(t *testing.T) {
	assert.Equal(t, "plain.js", ShellQuote("plain.js"))
	assert.Equal(t, "''", ShellQuote(""))
	assert.Equal(t, "'a b'", ShellQuote("a b"))
	assert.Equal(t, `'it'\''s'`, ShellQuote("it's"))
}

func TestEvalCondition(t *testing.T) {
	tc := testContext()

	ok, err := tc.EvalCondition("len(files) > 1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = tc.EvalCondition(`git.branch == "main"`)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = tc.EvalCondition(`workspace == "other"`)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvalConditionRejectsNonBoolean(t *testing.T) {
	_, err := testContext().EvalCondition("len(files)")
	assert.Error(t, err)
}

func TestEvalConditionOutsideRepo(t *testing.T) {
	tc := &Context{Files: []string{"a.go"}}
	ok, err := tc.EvalCondition(`git.branch == ""`)
	require.NoError(t, err)
	assert.True(t, ok)
}
