package git

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strings"

	"github.com/hkdev/hk/pkg/logger"
)

var cliNS = logger.New("git:cli")

// cliBackend shells out to the git binary. It is always constructed, even
// when the library backend serves status reads, because stash and apply
// plumbing only exists here.
type cliBackend struct {
	root string
}

func (c *cliBackend) git(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = c.root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cliNS.Printf("git %s", strings.Join(args, " "))
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("git %s: %s", args[0], msg)
	}
	return stdout.Bytes(), nil
}

func (c *cliBackend) gitWithStdin(ctx context.Context, stdin []byte, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = c.root
	cmd.Stdin = bytes.NewReader(stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cliNS.Printf("git %s (with stdin)", strings.Join(args, " "))
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("git %s: %s", args[0], msg)
	}
	return stdout.Bytes(), nil
}

func (c *cliBackend) Status(ctx context.Context) (*Status, error) {
	out, err := c.git(ctx, "status", "--porcelain=v1", "-z", "--untracked-files=all", "--no-renames")
	if err != nil {
		return nil, err
	}
	return parsePorcelain(out), nil
}

func (c *cliBackend) LsFiles(ctx context.Context) ([]string, error) {
	out, err := c.git(ctx, "ls-files", "-z")
	if err != nil {
		return nil, err
	}
	files := splitNul(out)
	sort.Strings(files)
	return files, nil
}

func (c *cliBackend) DiffNames(ctx context.Context, from, to string) ([]string, error) {
	out, err := c.git(ctx, "diff", "--name-only", "-z", "--diff-filter=ACMRT", from+"..."+to)
	if err != nil {
		return nil, err
	}
	files := splitNul(out)
	sort.Strings(files)
	return files, nil
}

func (c *cliBackend) HeadBranch(ctx context.Context) (string, error) {
	out, err := c.git(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	branch := strings.TrimSpace(string(out))
	if branch == "HEAD" {
		short, err := c.git(ctx, "rev-parse", "--short=12", "HEAD")
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(short)), nil
	}
	return branch, nil
}

func (c *cliBackend) HeadSHA(ctx context.Context) (string, error) {
	out, err := c.git(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func (c *cliBackend) add(ctx context.Context, paths []string) error {
	args := append([]string{"add", "--"}, paths...)
	_, err := c.git(ctx, args...)
	return err
}

func (c *cliBackend) stashPush(ctx context.Context, includeUntracked bool, message string) (string, error) {
	args := []string{"stash", "push", "--keep-index", "--quiet", "--message", message}
	if includeUntracked {
		args = append(args, "--include-untracked")
	}
	if _, err := c.git(ctx, args...); err != nil {
		return "", err
	}
	out, err := c.git(ctx, "rev-parse", "refs/stash")
	if err != nil {
		return "", fmt.Errorf("locate pushed stash: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (c *cliBackend) stashPop(ctx context.Context, ref string) error {
	if err := c.stashApply(ctx, ref); err != nil {
		return err
	}
	return c.stashDrop(ctx, ref)
}

func (c *cliBackend) stashApply(ctx context.Context, ref string) error {
	_, err := c.git(ctx, "stash", "apply", "--quiet", ref)
	return err
}

func (c *cliBackend) stashDrop(ctx context.Context, ref string) error {
	// stash@{0} is the hk stash as long as nothing else pushed meanwhile;
	// verify the SHA before dropping.
	out, err := c.git(ctx, "rev-parse", "refs/stash")
	if err != nil {
		return err
	}
	if strings.TrimSpace(string(out)) != ref {
		return fmt.Errorf("stash %s is no longer at the top of the stash stack", ref[:12])
	}
	_, err = c.git(ctx, "stash", "drop", "--quiet", "stash@{0}")
	return err
}

func (c *cliBackend) diffUnstaged(ctx context.Context, untracked bool) ([]byte, error) {
	if untracked {
		// Register untracked files as intent-to-add so the diff includes them,
		// then undo the registration.
		st, err := c.Status(ctx)
		if err != nil {
			return nil, err
		}
		if len(st.Untracked) > 0 {
			args := append([]string{"add", "--intent-to-add", "--"}, st.Untracked...)
			if _, err := c.git(ctx, args...); err != nil {
				return nil, err
			}
			defer func() {
				resetArgs := append([]string{"reset", "--quiet", "--"}, st.Untracked...)
				_, _ = c.git(context.WithoutCancel(ctx), resetArgs...)
			}()
		}
	}
	return c.git(ctx, "diff", "--binary", "--no-color", "--no-ext-diff")
}

func (c *cliBackend) applyPatch(ctx context.Context, patch []byte, threeWay bool) error {
	args := []string{"apply", "--whitespace=nowarn"}
	if threeWay {
		args = append(args, "--3way")
	}
	_, err := c.gitWithStdin(ctx, patch, args...)
	return err
}

func (c *cliBackend) checkApplyPatch(ctx context.Context, patch []byte) error {
	_, err := c.gitWithStdin(ctx, patch, "apply", "--check", "--whitespace=nowarn")
	return err
}

func (c *cliBackend) checkoutWorktree(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		paths = []string{"."}
	}
	args := append([]string{"checkout", "--quiet", "--"}, paths...)
	_, err := c.git(ctx, args...)
	return err
}

func (c *cliBackend) configValues(ctx context.Context, scope string) (map[string]string, error) {
	out, err := c.git(ctx, "config", scope, "--get-regexp", `^hk\.`)
	if err != nil {
		// git config exits 1 when nothing matches
		return map[string]string{}, nil
	}
	values := map[string]string{}
	for _, line := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
		key, value, ok := strings.Cut(line, " ")
		if !ok {
			continue
		}
		key = strings.TrimPrefix(key, "hk.")
		// git config keys are case-insensitive and flattened; settings keys
		// use snake_case, so hk.failFast arrives as "failfast".
		values[normalizeConfigKey(key)] = value
	}
	return values, nil
}

func (c *cliBackend) configValue(ctx context.Context, key string) (string, error) {
	out, err := c.git(ctx, "config", "--get", key)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func (c *cliBackend) revParseGitDir(ctx context.Context) (string, error) {
	out, err := c.git(ctx, "rev-parse", "--absolute-git-dir")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// normalizeConfigKey maps git's flattened lowercase keys onto setting names.
func normalizeConfigKey(key string) string {
	switch strings.ToLower(key) {
	case "failfast":
		return "fail_fast"
	case "stashuntracked":
		return "stash_untracked"
	case "skipsteps":
		return "skip_steps"
	case "skiphooks":
		return "skip_hooks"
	case "hidewarnings":
		return "hide_warnings"
	case "statedir":
		return "state_dir"
	case "cachedir":
		return "cache_dir"
	case "timingjson":
		return "timing_json"
	case "summarytext":
		return "summary_text"
	case "terminalprogress":
		return "terminal_progress"
	case "excludeglob":
		return "exclude_glob"
	case "displayskipreasons":
		return "display_skip_reasons"
	default:
		return strings.ToLower(key)
	}
}
