// Package git is the repository adapter: discovery, status classification,
// staging, stashing, and ref diffs. Two backends produce the status sets: a
// CLI subprocess backend and an in-process go-git backend. Mutating
// plumbing (stash, apply, add) always goes through the CLI backend, which
// both backends share; go-git has no stash porcelain.
package git

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hkdev/hk/pkg/logger"
)

var gitLog = logger.New("git:repo")

// ErrNoRepository is returned when discovery walks to the filesystem root
// without finding a .git directory.
var ErrNoRepository = errors.New("not in a git repository")

// statusBackend is the read-side surface both backends implement.
type statusBackend interface {
	Status(ctx context.Context) (*Status, error)
	LsFiles(ctx context.Context) ([]string, error)
	DiffNames(ctx context.Context, from, to string) ([]string, error)
	HeadBranch(ctx context.Context) (string, error)
	HeadSHA(ctx context.Context) (string, error)
}

// Repo is the adapter façade handed to the rest of the engine.
type Repo struct {
	root    string
	gitDir  string
	cli     *cliBackend
	backend statusBackend
}

// Options selects the backend.
type Options struct {
	// Library selects the in-process backend for status reads.
	Library bool
}

// Open discovers the repository containing dir (walking upward) and
// constructs the adapter.
func Open(dir string, opts Options) (*Repo, error) {
	root, gitDir, err := discover(dir)
	if err != nil {
		return nil, err
	}

	cli := &cliBackend{root: root}
	r := &Repo{root: root, gitDir: gitDir, cli: cli, backend: cli}
	if opts.Library {
		lib, err := newGoGitBackend(root)
		if err != nil {
			gitLog.Warnf("library backend unavailable, falling back to git CLI: %v", err)
		} else {
			r.backend = lib
		}
	}
	gitLog.Printf("opened repository at %s (library=%t)", root, opts.Library)
	return r, nil
}

func discover(dir string) (root, gitDir string, err error) {
	if dir == "" {
		dir, err = os.Getwd()
		if err != nil {
			return "", "", err
		}
	}
	dir, err = filepath.Abs(dir)
	if err != nil {
		return "", "", err
	}
	for {
		candidate := filepath.Join(dir, ".git")
		if info, statErr := os.Stat(candidate); statErr == nil {
			if info.IsDir() {
				return dir, candidate, nil
			}
			// worktree: .git is a file pointing at the real git dir
			return dir, candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", "", ErrNoRepository
		}
		dir = parent
	}
}

// Root returns the repository working-tree root.
func (r *Repo) Root() string { return r.root }

// GitDir returns the path of the .git directory (or file, for worktrees).
func (r *Repo) GitDir() string { return r.gitDir }

// Status classifies the working tree and index.
func (r *Repo) Status(ctx context.Context) (*Status, error) {
	return r.backend.Status(ctx)
}

// LsFiles lists all tracked files, repo-relative.
func (r *Repo) LsFiles(ctx context.Context) ([]string, error) {
	return r.backend.LsFiles(ctx)
}

// DiffNames lists files changed between two refs.
func (r *Repo) DiffNames(ctx context.Context, from, to string) ([]string, error) {
	return r.backend.DiffNames(ctx, from, to)
}

// HeadBranch returns the current branch name, or the short SHA when
// detached.
func (r *Repo) HeadBranch(ctx context.Context) (string, error) {
	return r.backend.HeadBranch(ctx)
}

// HeadSHA returns the full SHA of HEAD.
func (r *Repo) HeadSHA(ctx context.Context) (string, error) {
	return r.backend.HeadSHA(ctx)
}

// Add stages the given repo-relative paths.
func (r *Repo) Add(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	return r.cli.add(ctx, paths)
}

// StashPush pushes a stash of unstaged (and optionally untracked) changes
// and returns its ref.
func (r *Repo) StashPush(ctx context.Context, includeUntracked bool, message string) (string, error) {
	return r.cli.stashPush(ctx, includeUntracked, message)
}

// StashPop applies and drops the most recent hk stash.
func (r *Repo) StashPop(ctx context.Context, ref string) error {
	return r.cli.stashPop(ctx, ref)
}

// StashApply applies the stash without dropping it.
func (r *Repo) StashApply(ctx context.Context, ref string) error {
	return r.cli.stashApply(ctx, ref)
}

// StashDrop drops the stash.
func (r *Repo) StashDrop(ctx context.Context, ref string) error {
	return r.cli.stashDrop(ctx, ref)
}

// StashPatch serializes a stash as a patch, for conflict backups.
func (r *Repo) StashPatch(ctx context.Context, ref string) ([]byte, error) {
	return r.cli.git(ctx, "stash", "show", "--patch", "--include-untracked", ref)
}

// RemovePaths deletes working-tree files, used when a patch-file stash has
// captured untracked files that must not survive into fix runs.
func (r *Repo) RemovePaths(paths []string) error {
	for _, p := range paths {
		if err := os.Remove(filepath.Join(r.root, filepath.FromSlash(p))); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// DiffUnstaged serializes the unstaged delta as a patch. With untracked set,
// intent-to-add entries are included so new files round-trip.
func (r *Repo) DiffUnstaged(ctx context.Context, untracked bool) ([]byte, error) {
	return r.cli.diffUnstaged(ctx, untracked)
}

// ApplyPatch applies a patch to the working tree, with 3-way merge when
// threeWay is set.
func (r *Repo) ApplyPatch(ctx context.Context, patch []byte, threeWay bool) error {
	return r.cli.applyPatch(ctx, patch, threeWay)
}

// CheckApplyPatch reports whether the patch would apply cleanly.
func (r *Repo) CheckApplyPatch(ctx context.Context, patch []byte) error {
	return r.cli.checkApplyPatch(ctx, patch)
}

// CheckoutWorktree restores the given paths (or everything with ".") from
// the index, discarding unstaged modifications.
func (r *Repo) CheckoutWorktree(ctx context.Context, paths []string) error {
	return r.cli.checkoutWorktree(ctx, paths)
}

// ConfigValues reads hk.* keys from git config at the given scope
// ("--global" or "--local") into a key → value map with the hk. prefix
// stripped.
func (r *Repo) ConfigValues(ctx context.Context, scope string) (map[string]string, error) {
	return r.cli.configValues(ctx, scope)
}

// HooksDir returns the directory git executes hook scripts from, honoring
// core.hooksPath.
func (r *Repo) HooksDir(ctx context.Context) (string, error) {
	if custom, err := r.cli.configValue(ctx, "core.hooksPath"); err == nil && custom != "" {
		if filepath.IsAbs(custom) {
			return custom, nil
		}
		return filepath.Join(r.root, custom), nil
	}
	gitDir := r.gitDir
	if info, err := os.Stat(gitDir); err == nil && !info.IsDir() {
		resolved, err := r.cli.revParseGitDir(ctx)
		if err != nil {
			return "", fmt.Errorf("resolve git dir: %w", err)
		}
		gitDir = resolved
	}
	return filepath.Join(gitDir, "hooks"), nil
}
