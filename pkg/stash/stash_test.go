package stash

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hkdev/hk/pkg/git"
	"github.com/hkdev/hk/pkg/testutil"
)

func setup(t *testing.T) (string, *git.Repo) {
	t.Helper()
	root := testutil.InitRepo(t)
	repo, err := git.Open(root, git.Options{})
	require.NoError(t, err)
	return root, repo
}

func TestGitStashRoundTrip(t *testing.T) {
	root, repo := setup(t)
	// staged edit plus a separate unstaged edit
	testutil.WriteFile(t, root, "staged.txt", "staged\n")
	testutil.Git(t, root, "add", "staged.txt")
	testutil.WriteFile(t, root, "README.md", "# unstaged edit\n")

	ctrl := New(repo, MethodGit, false, t.TempDir(), 0)
	ctx := context.Background()
	require.NoError(t, ctrl.Acquire(ctx))
	require.True(t, ctrl.Active())

	// the unstaged edit is gone while the stash is held
	assert.Equal(t, "# test\n", testutil.ReadFile(t, root, "README.md"))
	// the staged file is untouched
	assert.Equal(t, "staged\n", testutil.ReadFile(t, root, "staged.txt"))

	require.NoError(t, ctrl.Restore(ctx))
	assert.Equal(t, "# unstaged edit\n", testutil.ReadFile(t, root, "README.md"))
}

func TestPatchFileStashRoundTrip(t *testing.T) {
	root, repo := setup(t)
	testutil.WriteFile(t, root, "README.md", "# patched edit\n")

	stateDir := t.TempDir()
	ctrl := New(repo, MethodPatchFile, false, stateDir, 0)
	ctx := context.Background()
	require.NoError(t, ctrl.Acquire(ctx))
	require.True(t, ctrl.Active())

	assert.Equal(t, "# test\n", testutil.ReadFile(t, root, "README.md"))

	// the serialized patch is on disk
	entries, err := os.ReadDir(filepath.Join(stateDir, "patches"))
	require.NoError(t, err)
	assert.NotEmpty(t, entries)

	require.NoError(t, ctrl.Restore(ctx))
	assert.Equal(t, "# patched edit\n", testutil.ReadFile(t, root, "README.md"))
}

func TestPatchFileStashIncludesUntracked(t *testing.T) {
	root, repo := setup(t)
	testutil.WriteFile(t, root, "new-file.txt", "brand new\n")

	ctrl := New(repo, MethodPatchFile, true, t.TempDir(), 0)
	ctx := context.Background()
	require.NoError(t, ctrl.Acquire(ctx))

	_, err := os.Stat(filepath.Join(root, "new-file.txt"))
	assert.True(t, os.IsNotExist(err), "untracked file should be removed while stashed")

	require.NoError(t, ctrl.Restore(ctx))
	assert.Equal(t, "brand new\n", testutil.ReadFile(t, root, "new-file.txt"))
}

func TestCleanTreeStashesNothing(t *testing.T) {
	_, repo := setup(t)
	ctrl := New(repo, MethodGit, false, t.TempDir(), 0)
	require.NoError(t, ctrl.Acquire(context.Background()))
	assert.False(t, ctrl.Active())
	require.NoError(t, ctrl.Restore(context.Background()))
}

func TestAcquireTwiceIsAnError(t *testing.T) {
	_, repo := setup(t)
	ctrl := New(repo, MethodNone, false, t.TempDir(), 0)
	require.NoError(t, ctrl.Acquire(context.Background()))
	assert.Error(t, ctrl.Acquire(context.Background()))
}

func TestRestoreIsIdempotent(t *testing.T) {
	root, repo := setup(t)
	testutil.WriteFile(t, root, "README.md", "# edit\n")

	ctrl := New(repo, MethodGit, false, t.TempDir(), 0)
	ctx := context.Background()
	require.NoError(t, ctrl.Acquire(ctx))
	require.NoError(t, ctrl.Restore(ctx))
	require.NoError(t, ctrl.Restore(ctx))
	assert.Equal(t, "# edit\n", testutil.ReadFile(t, root, "README.md"))
}

func TestAutoFallsBackToGitOnHugeDiff(t *testing.T) {
	root, repo := setup(t)
	big := make([]byte, autoPatchLimit+1024)
	for i := range big {
		big[i] = 'a'
		if i%80 == 79 {
			big[i] = '\n'
		}
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), big, 0o644))

	ctrl := New(repo, MethodAuto, false, t.TempDir(), 0)
	ctx := context.Background()
	require.NoError(t, ctrl.Acquire(ctx))
	assert.Equal(t, MethodGit, ctrl.resolved)
	require.NoError(t, ctrl.Restore(ctx))
}

func TestAutoPrefersPatchFile(t *testing.T) {
	root, repo := setup(t)
	testutil.WriteFile(t, root, "README.md", "# small edit\n")

	ctrl := New(repo, MethodAuto, false, t.TempDir(), 0)
	ctx := context.Background()
	require.NoError(t, ctrl.Acquire(ctx))
	assert.Equal(t, MethodPatchFile, ctrl.resolved)
	require.NoError(t, ctrl.Restore(ctx))
	assert.Equal(t, "# small edit\n", testutil.ReadFile(t, root, "README.md"))
}

func TestBackupRotation(t *testing.T) {
	root, repo := setup(t)
	stateDir := t.TempDir()
	dir := filepath.Join(stateDir, "patches")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for _, name := range []string{"a.patch", "b.patch", "c.patch", "d.patch"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600))
	}
	_ = root

	ctrl := New(repo, MethodPatchFile, false, stateDir, 3)
	ctrl.rotateBackups()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
	// oldest (lexicographically first) entries are evicted first
	assert.Equal(t, "b.patch", entries[0].Name())
}
