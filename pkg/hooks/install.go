// Package hooks installs and removes the git hook scripts that forward
// into hk.
package hooks

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hkdev/hk/pkg/logger"
	"github.com/hkdev/hk/pkg/sliceutil"
)

var installLog = logger.New("hooks:install")

// marker identifies scripts hk owns, so install never clobbers a foreign
// hook and uninstall never removes one.
const marker = "# generated by hk"

// GitHooks are the git events hk can attach to. Hooks declared under other
// names (check, fix, custom hooks) are invoked directly via the CLI.
var GitHooks = []string{"pre-commit", "pre-push", "commit-msg", "prepare-commit-msg"}

func script(hook string) string {
	return fmt.Sprintf(`#!/bin/sh
%s
if [ "$HK" = "0" ] || [ "$HK" = "false" ]; then
	exit 0
fi
exec hk run %s -- "$@"
`, marker, hook)
}

// Install writes scripts into hooksDir for every configured hook that maps
// to a git event. Existing scripts not owned by hk are left alone and
// reported as errors unless force is set.
func Install(hooksDir string, configured []string, force bool) ([]string, error) {
	if err := os.MkdirAll(hooksDir, 0o755); err != nil {
		return nil, fmt.Errorf("create hooks dir: %w", err)
	}

	var installed []string
	for _, hook := range GitHooks {
		if !sliceutil.Contains(configured, hook) {
			continue
		}
		path := filepath.Join(hooksDir, hook)
		if existing, err := os.ReadFile(path); err == nil {
			if !strings.Contains(string(existing), marker) && !force {
				return installed, fmt.Errorf("%s already has a hook script not managed by hk; re-run with --force to overwrite", hook)
			}
		}
		if err := os.WriteFile(path, []byte(script(hook)), 0o755); err != nil {
			return installed, fmt.Errorf("write %s hook: %w", hook, err)
		}
		installLog.Printf("installed %s hook at %s", hook, path)
		installed = append(installed, hook)
	}
	return installed, nil
}

// Uninstall removes every hk-owned script from hooksDir and returns the
// hooks it removed.
func Uninstall(hooksDir string) ([]string, error) {
	var removed []string
	for _, hook := range GitHooks {
		path := filepath.Join(hooksDir, hook)
		content, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if !strings.Contains(string(content), marker) {
			installLog.Printf("leaving %s: not managed by hk", hook)
			continue
		}
		if err := os.Remove(path); err != nil {
			return removed, fmt.Errorf("remove %s hook: %w", hook, err)
		}
		removed = append(removed, hook)
	}
	return removed, nil
}
