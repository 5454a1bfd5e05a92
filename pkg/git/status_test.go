package git

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hkdev/hk/pkg/testutil"
)

func TestParsePorcelainClassifies(t *testing.T) {
	out := []byte("M  staged.go\x00 M unstaged.go\x00A  added.go\x00D  deleted.go\x00?? new.txt\x00MM both.go\x00")
	st := parsePorcelain(out)

	assert.Equal(t, []string{"added.go", "both.go", "deleted.go", "staged.go"}, st.Staged)
	assert.Equal(t, []string{"both.go", "unstaged.go"}, st.Unstaged)
	assert.Equal(t, []string{"new.txt"}, st.Untracked)
	assert.Equal(t, []string{"added.go", "both.go", "deleted.go", "staged.go", "unstaged.go"}, st.Modified)

	assert.Equal(t, []string{"added.go"}, st.StagedAdded)
	assert.Equal(t, []string{"both.go", "staged.go"}, st.StagedModified)
	assert.Equal(t, []string{"deleted.go"}, st.StagedDeleted)
	assert.Equal(t, []string{"both.go", "unstaged.go"}, st.UnstagedModified)
}

func TestParsePorcelainRenameConsumesOriginalPath(t *testing.T) {
	out := []byte("R  new-name.go\x00old-name.go\x00M  other.go\x00")
	st := parsePorcelain(out)

	assert.Equal(t, []string{"new-name.go"}, st.StagedRenamed)
	assert.Equal(t, []string{"new-name.go", "other.go"}, st.Staged)
}

func TestParsePorcelainEmpty(t *testing.T) {
	st := parsePorcelain(nil)
	assert.Empty(t, st.Staged)
	assert.Empty(t, st.Untracked)
	assert.Empty(t, st.Modified)
}

func TestDiscoverWalksUpward(t *testing.T) {
	root := testutil.InitRepo(t)
	sub := filepath.Join(root, "a", "b")
	testutil.WriteFile(t, root, "a/b/f.txt", "x")

	repo, err := Open(sub, Options{})
	require.NoError(t, err)
	assert.Equal(t, root, repo.Root())
}

func TestOpenOutsideRepositoryFails(t *testing.T) {
	_, err := Open(t.TempDir(), Options{})
	assert.ErrorIs(t, err, ErrNoRepository)
}

func TestBackendsAgreeOnStatus(t *testing.T) {
	root := testutil.InitRepo(t)
	testutil.WriteFile(t, root, "staged.txt", "staged\n")
	testutil.Git(t, root, "add", "staged.txt")
	testutil.WriteFile(t, root, "untracked.txt", "new\n")
	testutil.WriteFile(t, root, "README.md", "# changed\n")

	cliRepo, err := Open(root, Options{})
	require.NoError(t, err)
	libRepo, err := Open(root, Options{Library: true})
	require.NoError(t, err)

	ctx := context.Background()
	cliStatus, err := cliRepo.Status(ctx)
	require.NoError(t, err)
	libStatus, err := libRepo.Status(ctx)
	require.NoError(t, err)

	assert.Equal(t, cliStatus.Staged, libStatus.Staged)
	assert.Equal(t, cliStatus.Unstaged, libStatus.Unstaged)
	assert.Equal(t, cliStatus.Untracked, libStatus.Untracked)
	assert.Equal(t, cliStatus.Modified, libStatus.Modified)
}

func TestCaptureSnapshotPinsBranch(t *testing.T) {
	root := testutil.InitRepo(t)
	repo, err := Open(root, Options{})
	require.NoError(t, err)

	snap, err := repo.Capture(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "main", snap.Branch)
	assert.Len(t, snap.SHA, 40)

	branch, ok := snap.Field("branch")
	require.True(t, ok)
	assert.Equal(t, "main", branch)
	_, ok = snap.Field("bogus")
	assert.False(t, ok)
}
