// Package selector computes the candidate file set for a hook run and
// applies per-step filters. Paths are repo-relative, lexicographically
// sorted, and de-duplicated.
package selector

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hkdev/hk/pkg/git"
	"github.com/hkdev/hk/pkg/logger"
	"github.com/hkdev/hk/pkg/sliceutil"
)

var selLog = logger.New("selector:files")

// Mode describes how the candidate set is produced. The zero value selects
// the staged set.
type Mode struct {
	All         bool
	Staged      bool
	WorkingTree bool
	FromRef     string
	ToRef       string
	Explicit    []string
	Globs       []string
}

// Select materializes the candidate file set for the mode, already reduced
// by the global excludes. Steps operate on file contents, so paths that no
// longer exist on disk are dropped.
func Select(ctx context.Context, repo *git.Repo, mode Mode, exclude, excludeGlob []string) ([]string, error) {
	var files []string
	var err error

	switch {
	case len(mode.Explicit) > 0:
		files, err = normalizeExplicit(repo.Root(), mode.Explicit)
	case len(mode.Globs) > 0:
		files, err = expandGlobs(ctx, repo, mode.Globs)
	case mode.FromRef != "" || mode.ToRef != "":
		if mode.FromRef == "" || mode.ToRef == "" {
			return nil, fmt.Errorf("--from-ref and --to-ref must be used together")
		}
		files, err = repo.DiffNames(ctx, mode.FromRef, mode.ToRef)
	case mode.All:
		files, err = repo.LsFiles(ctx)
	case mode.WorkingTree:
		var st *git.Status
		st, err = repo.Status(ctx)
		if err == nil {
			files = append(append([]string{}, st.Modified...), st.Untracked...)
		}
	default:
		var st *git.Status
		st, err = repo.Status(ctx)
		if err == nil {
			files = st.Staged
		}
	}
	if err != nil {
		return nil, err
	}

	files = sliceutil.Unique(files)
	files = dropMissing(repo.Root(), files)
	files = applyExcludes(files, exclude, excludeGlob)
	selLog.Printf("selected %d candidate files", len(files))
	return files, nil
}

func normalizeExplicit(root string, explicit []string) ([]string, error) {
	var out []string
	for _, p := range explicit {
		abs := p
		if !filepath.IsAbs(abs) {
			var err error
			abs, err = filepath.Abs(p)
			if err != nil {
				return nil, err
			}
		}
		rel, err := filepath.Rel(root, abs)
		if err != nil || strings.HasPrefix(rel, "..") {
			return nil, fmt.Errorf("file %s is outside the repository", p)
		}
		out = append(out, filepath.ToSlash(rel))
	}
	return out, nil
}

func expandGlobs(ctx context.Context, repo *git.Repo, globs []string) ([]string, error) {
	tracked, err := repo.LsFiles(ctx)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, f := range tracked {
		for _, g := range globs {
			ok, err := doublestar.Match(g, f)
			if err != nil {
				return nil, fmt.Errorf("glob %q: %w", g, err)
			}
			if ok {
				out = append(out, f)
				break
			}
		}
	}
	return out, nil
}

func dropMissing(root string, files []string) []string {
	out := files[:0]
	for _, f := range files {
		if _, err := os.Lstat(filepath.Join(root, filepath.FromSlash(f))); err == nil {
			out = append(out, f)
		}
	}
	return out
}

// applyExcludes removes files matching any exclude token or glob. Tokens
// without glob metacharacters exclude the path itself and everything under
// it, so "node_modules" behaves like "node_modules/**".
func applyExcludes(files, exclude, excludeGlob []string) []string {
	patterns := append(append([]string{}, exclude...), excludeGlob...)
	if len(patterns) == 0 {
		return files
	}
	out := files[:0]
	for _, f := range files {
		if !matchesAny(f, patterns) {
			out = append(out, f)
		}
	}
	return out
}

func matchesAny(file string, patterns []string) bool {
	for _, p := range patterns {
		if !strings.ContainsAny(p, "*?[{") {
			if file == p || strings.HasPrefix(file, p+"/") {
				return true
			}
			continue
		}
		if ok, err := doublestar.Match(p, file); err == nil && ok {
			return true
		}
	}
	return false
}

// StepFilter is the per-step include/exclude view.
type StepFilter struct {
	Glob    []string
	Exclude []string
	Types   []string
	Root    string
}

// Apply intersects the includes (glob AND types) and subtracts the step
// excludes. The result keeps lexicographic order.
func (f StepFilter) Apply(files []string) []string {
	var out []string
	for _, file := range files {
		if len(f.Glob) > 0 && !matchesAnyGlob(file, f.Glob) {
			continue
		}
		if matchesAny(file, f.Exclude) {
			continue
		}
		if len(f.Types) > 0 && !f.matchesTypes(file) {
			continue
		}
		out = append(out, file)
	}
	return out
}

func matchesAnyGlob(file string, globs []string) bool {
	for _, g := range globs {
		if !strings.Contains(g, "/") {
			// bare patterns like *.js match at any depth
			if ok, err := doublestar.Match(g, filepath.Base(file)); err == nil && ok {
				return true
			}
		}
		if ok, err := doublestar.Match(g, file); err == nil && ok {
			return true
		}
	}
	return false
}

func (f StepFilter) matchesTypes(file string) bool {
	detected := DetectTypes(filepath.Join(f.Root, filepath.FromSlash(file)))
	for _, want := range f.Types {
		if negated, ok := strings.CutPrefix(want, "!"); ok {
			if detected[negated] {
				return false
			}
			continue
		}
		if !detected[want] {
			return false
		}
	}
	return true
}

// Workspace is one group of files sharing the nearest ancestor directory
// that contains the step's indicator file.
type Workspace struct {
	// Dir is the workspace directory, repo-relative ("" for the root).
	Dir string
	// Indicator is the repo-relative path of the indicator file.
	Indicator string
	Files     []string
}

// GroupByWorkspace buckets files by their nearest ancestor containing the
// indicator. Files with no such ancestor are dropped from the step's view.
func GroupByWorkspace(root string, files []string, indicator string) []Workspace {
	byDir := map[string][]string{}
	for _, f := range files {
		dir, ok := findWorkspace(root, f, indicator)
		if !ok {
			selLog.Printf("no %s found above %s; skipping", indicator, f)
			continue
		}
		byDir[dir] = append(byDir[dir], f)
	}

	dirs := make([]string, 0, len(byDir))
	for d := range byDir {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)

	out := make([]Workspace, 0, len(dirs))
	for _, d := range dirs {
		ind := indicator
		if d != "" {
			ind = d + "/" + indicator
		}
		sort.Strings(byDir[d])
		out = append(out, Workspace{Dir: d, Indicator: ind, Files: byDir[d]})
	}
	return out
}

func findWorkspace(root, file, indicator string) (string, bool) {
	dir := filepath.Dir(filepath.FromSlash(file))
	for {
		if dir == "." {
			if _, err := os.Stat(filepath.Join(root, indicator)); err == nil {
				return "", true
			}
			return "", false
		}
		if _, err := os.Stat(filepath.Join(root, dir, indicator)); err == nil {
			return filepath.ToSlash(dir), true
		}
		dir = filepath.Dir(dir)
	}
}
