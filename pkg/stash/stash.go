// Package stash protects unstaged changes while fix jobs rewrite files. A
// stash is acquired at most once per hook run and released exactly once;
// restoration runs on every exit path, including panics and cancellation.
package stash

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/hkdev/hk/pkg/constants"
	"github.com/hkdev/hk/pkg/git"
	"github.com/hkdev/hk/pkg/logger"
)

var stashLog = logger.New("stash:controller")

// Method selects how unstaged state is snapshotted.
type Method string

const (
	MethodAuto      Method = "auto"
	MethodGit       Method = "git"
	MethodPatchFile Method = "patch-file"
	MethodNone      Method = "none"
)

// autoPatchLimit is the largest unstaged diff auto will entrust to the
// patch-file engine; bigger footprints fall back to git.
const autoPatchLimit = 4 << 20

// Controller owns one hook run's stash lifecycle.
type Controller struct {
	repo      *git.Repo
	method    Method
	untracked bool
	stateDir  string
	backups   int

	acquired bool
	restored bool
	resolved Method
	ref      string
	patch    []byte
	removed  []string
}

// New builds a controller. backups caps the patch backup ring; zero means
// the default.
func New(repo *git.Repo, method Method, untracked bool, stateDir string, backups int) *Controller {
	if backups <= 0 {
		backups = constants.DefaultStashBackups
	}
	return &Controller{
		repo:      repo,
		method:    method,
		untracked: untracked,
		stateDir:  stateDir,
		backups:   backups,
	}
}

// Acquire snapshots unstaged state. Calling it twice is a programming
// error; a run acquires at most once.
func (c *Controller) Acquire(ctx context.Context) error {
	if c.acquired {
		return errors.New("stash already acquired for this run")
	}
	c.acquired = true
	c.resolved = c.method

	if c.method == MethodNone {
		return nil
	}

	st, err := c.repo.Status(ctx)
	if err != nil {
		return fmt.Errorf("stash: %w", err)
	}
	dirty := len(st.Unstaged) > 0 || (c.untracked && len(st.Untracked) > 0)
	if !dirty {
		c.resolved = MethodNone
		return nil
	}

	if c.method == MethodAuto {
		c.resolved = c.chooseAuto(ctx)
		stashLog.Printf("auto stash resolved to %s", c.resolved)
	}

	switch c.resolved {
	case MethodGit:
		return c.acquireGit(ctx)
	case MethodPatchFile:
		return c.acquirePatchFile(ctx, st.Untracked)
	default:
		return nil
	}
}

// Active reports whether there is anything to restore.
func (c *Controller) Active() bool {
	return c.acquired && !c.restored && (c.ref != "" || len(c.patch) > 0)
}

func (c *Controller) chooseAuto(ctx context.Context) Method {
	patch, err := c.repo.DiffUnstaged(ctx, c.untracked)
	if err != nil {
		stashLog.Warnf("auto stash: diff failed (%v), falling back to git", err)
		return MethodGit
	}
	if len(patch) > autoPatchLimit {
		stashLog.Warnf("auto stash: unstaged footprint %d bytes exceeds patch-file envelope, falling back to git", len(patch))
		return MethodGit
	}
	return MethodPatchFile
}

func (c *Controller) acquireGit(ctx context.Context) error {
	ref, err := c.repo.StashPush(ctx, c.untracked, "hk: autostash before fix")
	if err != nil {
		return fmt.Errorf("stash push: %w", err)
	}
	c.ref = ref
	stashLog.Printf("stashed unstaged changes as %s", ref[:12])
	return nil
}

func (c *Controller) acquirePatchFile(ctx context.Context, untracked []string) error {
	patch, err := c.repo.DiffUnstaged(ctx, c.untracked)
	if err != nil {
		return fmt.Errorf("serialize unstaged diff: %w", err)
	}
	if len(patch) == 0 {
		c.resolved = MethodNone
		return nil
	}

	path := filepath.Join(c.stateDir, "patches", fmt.Sprintf("stash-%d.patch", time.Now().UnixNano()))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, patch, 0o600); err != nil {
		return fmt.Errorf("write stash patch: %w", err)
	}
	c.patch = patch
	c.rotateBackups()

	// drop the unstaged delta so fix commands see the staged content
	if err := c.repo.CheckoutWorktree(ctx, nil); err != nil {
		return fmt.Errorf("reset working tree: %w", err)
	}
	if c.untracked && len(untracked) > 0 {
		if err := c.repo.RemovePaths(untracked); err != nil {
			return fmt.Errorf("remove untracked: %w", err)
		}
		c.removed = untracked
	}
	stashLog.Printf("stashed %d bytes of unstaged changes to %s", len(patch), path)
	return nil
}

// Restore re-applies the snapshot. It never inherits the caller's
// cancellation: restoration is the one thing that must still run when the
// hook is being torn down. Errors are returned for reporting but the
// controller is marked restored either way.
func (c *Controller) Restore(ctx context.Context) error {
	if !c.acquired || c.restored {
		return nil
	}
	c.restored = true
	ctx = context.WithoutCancel(ctx)

	switch {
	case c.ref != "":
		return c.restoreGit(ctx)
	case len(c.patch) > 0:
		return c.restorePatch(ctx)
	default:
		return nil
	}
}

func (c *Controller) restoreGit(ctx context.Context) error {
	if err := c.repo.StashApply(ctx, c.ref); err != nil {
		backup := c.writeBackup(ctx)
		if backup != "" {
			return fmt.Errorf("stash conflicts with fixed files; your changes are preserved in git stash %s and %s: %w", c.ref[:12], backup, err)
		}
		return fmt.Errorf("stash conflicts with fixed files; recover with 'git stash apply %s': %w", c.ref[:12], err)
	}
	if err := c.repo.StashDrop(ctx, c.ref); err != nil {
		stashLog.Warnf("stash applied but drop failed: %v", err)
	}
	stashLog.Print("restored stashed changes")
	return nil
}

func (c *Controller) restorePatch(ctx context.Context) error {
	if err := c.repo.CheckApplyPatch(ctx, c.patch); err == nil {
		if err := c.repo.ApplyPatch(ctx, c.patch, false); err == nil {
			stashLog.Print("restored patch-file stash")
			return nil
		}
	}
	// fall back to 3-way so fix edits and user edits merge
	if err := c.repo.ApplyPatch(ctx, c.patch, true); err != nil {
		backup := c.persistPatchBackup()
		return fmt.Errorf("could not re-apply unstaged changes; patch preserved at %s: %w", backup, err)
	}
	stashLog.Print("restored patch-file stash with 3-way merge")
	return nil
}

func (c *Controller) writeBackup(ctx context.Context) string {
	patch, err := c.repo.StashPatch(ctx, c.ref)
	if err != nil || len(patch) == 0 {
		return ""
	}
	c.patch = patch
	return c.persistPatchBackup()
}

func (c *Controller) persistPatchBackup() string {
	path := filepath.Join(c.stateDir, "patches", fmt.Sprintf("backup-%d.patch", time.Now().UnixNano()))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return ""
	}
	if err := os.WriteFile(path, c.patch, 0o600); err != nil {
		stashLog.Warnf("could not write patch backup: %v", err)
		return ""
	}
	c.rotateBackups()
	return path
}

// rotateBackups trims the patch directory to the configured ring size,
// oldest first.
func (c *Controller) rotateBackups() {
	dir := filepath.Join(c.stateDir, "patches")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	for len(names) > c.backups {
		_ = os.Remove(filepath.Join(dir, names[0]))
		names = names[1:]
	}
}
