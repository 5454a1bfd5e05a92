package git

import (
	"context"
	"fmt"
	"sort"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/hkdev/hk/pkg/logger"
)

var gogitLog = logger.New("git:gogit")

// goGitBackend serves status reads in-process. It must classify files
// identically to the CLI backend.
type goGitBackend struct {
	repo *gogit.Repository
}

func newGoGitBackend(root string) (*goGitBackend, error) {
	repo, err := gogit.PlainOpenWithOptions(root, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	return &goGitBackend{repo: repo}, nil
}

func (g *goGitBackend) Status(ctx context.Context) (*Status, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	wt, err := g.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("worktree: %w", err)
	}
	raw, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}

	st := &Status{}
	for path, fs := range raw {
		if fs.Staging == gogit.Untracked && fs.Worktree == gogit.Untracked {
			st.Untracked = append(st.Untracked, path)
			continue
		}

		switch fs.Staging {
		case gogit.Added:
			st.StagedAdded = append(st.StagedAdded, path)
		case gogit.Modified:
			st.StagedModified = append(st.StagedModified, path)
		case gogit.Deleted:
			st.StagedDeleted = append(st.StagedDeleted, path)
		case gogit.Renamed:
			st.StagedRenamed = append(st.StagedRenamed, path)
		case gogit.Copied:
			st.StagedCopied = append(st.StagedCopied, path)
		}
		if fs.Staging != gogit.Unmodified && fs.Staging != gogit.Untracked {
			st.Staged = append(st.Staged, path)
		}

		switch fs.Worktree {
		case gogit.Modified:
			st.UnstagedModified = append(st.UnstagedModified, path)
		case gogit.Deleted:
			st.UnstagedDeleted = append(st.UnstagedDeleted, path)
		}
		if fs.Worktree != gogit.Unmodified && fs.Worktree != gogit.Untracked {
			st.Unstaged = append(st.Unstaged, path)
		}
	}

	seen := map[string]bool{}
	for _, p := range append(append([]string{}, st.Staged...), st.Unstaged...) {
		if !seen[p] {
			seen[p] = true
			st.Modified = append(st.Modified, p)
		}
	}

	for _, list := range []*[]string{
		&st.Staged, &st.Unstaged, &st.Untracked, &st.Modified,
		&st.StagedAdded, &st.StagedModified, &st.StagedDeleted,
		&st.StagedRenamed, &st.StagedCopied,
		&st.UnstagedModified, &st.UnstagedDeleted,
	} {
		sort.Strings(*list)
	}
	return st, nil
}

func (g *goGitBackend) LsFiles(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	idx, err := g.repo.Storer.Index()
	if err != nil {
		return nil, fmt.Errorf("index: %w", err)
	}
	files := make([]string, 0, len(idx.Entries))
	for _, e := range idx.Entries {
		files = append(files, e.Name)
	}
	sort.Strings(files)
	return files, nil
}

func (g *goGitBackend) DiffNames(ctx context.Context, from, to string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fromCommit, err := g.resolveCommit(from)
	if err != nil {
		return nil, err
	}
	toCommit, err := g.resolveCommit(to)
	if err != nil {
		return nil, err
	}

	// Triple-dot semantics: diff against the merge base, matching the CLI
	// backend's from...to.
	base := fromCommit
	if bases, err := fromCommit.MergeBase(toCommit); err == nil && len(bases) > 0 {
		base = bases[0]
	}

	baseTree, err := base.Tree()
	if err != nil {
		return nil, fmt.Errorf("tree %s: %w", base.Hash, err)
	}
	toTree, err := toCommit.Tree()
	if err != nil {
		return nil, fmt.Errorf("tree %s: %w", toCommit.Hash, err)
	}
	changes, err := object.DiffTreeWithOptions(ctx, baseTree, toTree, object.DefaultDiffTreeOptions)
	if err != nil {
		return nil, fmt.Errorf("diff trees: %w", err)
	}

	seen := map[string]bool{}
	var files []string
	for _, change := range changes {
		name := change.To.Name
		if name == "" {
			// deletion; the CLI backend filters these out (--diff-filter
			// excludes D), so skip
			continue
		}
		if !seen[name] {
			seen[name] = true
			files = append(files, name)
		}
	}
	sort.Strings(files)
	gogitLog.Printf("diff %s...%s: %d files", from, to, len(files))
	return files, nil
}

func (g *goGitBackend) resolveCommit(rev string) (*object.Commit, error) {
	hash, err := g.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", rev, err)
	}
	commit, err := g.repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("commit %s: %w", hash, err)
	}
	return commit, nil
}

func (g *goGitBackend) HeadBranch(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	head, err := g.repo.Head()
	if err != nil {
		return "", fmt.Errorf("head: %w", err)
	}
	if head.Name().IsBranch() {
		return head.Name().Short(), nil
	}
	return head.Hash().String()[:12], nil
}

func (g *goGitBackend) HeadSHA(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	head, err := g.repo.Head()
	if err != nil {
		return "", fmt.Errorf("head: %w", err)
	}
	return head.Hash().String(), nil
}
