package hooks

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstallWritesConfiguredHooks(t *testing.T) {
	dir := t.TempDir()
	installed, err := Install(dir, []string{"pre-commit", "pre-push", "check"}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"pre-commit", "pre-push"}, installed)

	content, err := os.ReadFile(filepath.Join(dir, "pre-commit"))
	require.NoError(t, err)
	script := string(content)
	assert.Contains(t, script, marker)
	assert.Contains(t, script, `exec hk run pre-commit -- "$@"`)
	assert.Contains(t, script, `"$HK" = "0"`)

	info, err := os.Stat(filepath.Join(dir, "pre-commit"))
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&0o111, "hook script must be executable")

	// "check" is not a git event, so no script is written for it
	_, err = os.Stat(filepath.Join(dir, "check"))
	assert.True(t, os.IsNotExist(err))
}

func TestInstallRefusesForeignScript(t *testing.T) {
	dir := t.TempDir()
	foreign := filepath.Join(dir, "pre-commit")
	require.NoError(t, os.WriteFile(foreign, []byte("#!/bin/sh\necho mine\n"), 0o755))

	_, err := Install(dir, []string{"pre-commit"}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--force")

	// the foreign script is untouched
	content, _ := os.ReadFile(foreign)
	assert.Contains(t, string(content), "echo mine")

	_, err = Install(dir, []string{"pre-commit"}, true)
	require.NoError(t, err)
	content, _ = os.ReadFile(foreign)
	assert.Contains(t, string(content), marker)
}

func TestInstallIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	_, err := Install(dir, []string{"pre-commit"}, false)
	require.NoError(t, err)
	_, err = Install(dir, []string{"pre-commit"}, false)
	require.NoError(t, err)
}

func TestUninstallRemovesOnlyOwnScripts(t *testing.T) {
	dir := t.TempDir()
	_, err := Install(dir, []string{"pre-commit", "commit-msg"}, false)
	require.NoError(t, err)
	foreign := filepath.Join(dir, "pre-push")
	require.NoError(t, os.WriteFile(foreign, []byte("#!/bin/sh\necho mine\n"), 0o755))

	removed, err := Uninstall(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"pre-commit", "commit-msg"}, removed)

	_, err = os.Stat(foreign)
	assert.NoError(t, err, "foreign scripts survive uninstall")
	_, err = os.Stat(filepath.Join(dir, "pre-commit"))
	assert.True(t, os.IsNotExist(err))
}
