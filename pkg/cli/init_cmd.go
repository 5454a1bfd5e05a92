package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hkdev/hk/pkg/console"
	"github.com/hkdev/hk/pkg/engine"
	"github.com/hkdev/hk/pkg/git"
)

// starterConfig seeds new repositories with working pre-commit, pre-push,
// check and fix hooks.
const starterConfig = `# hk configuration
# https://github.com/hkdev/hk
hooks:
  pre-commit:
    fix: true
    stash: auto
    steps:
      end-of-file-fixer:
        glob: ["*"]
        types: ["text"]
        check: "end-of-file-fixer --check {{files}}"
        fix: "end-of-file-fixer {{files}}"
      prettier:
        glob: ["*.js", "*.ts", "*.jsx", "*.tsx", "*.css", "*.md", "*.json", "*.yaml", "*.yml"]
        check: "prettier --check {{files}}"
        fix: "prettier --write {{files}}"
  pre-push:
    steps:
      check:
        glob: ["*"]
        check: "hk check {{files}}"
  check:
    steps:
      prettier:
        glob: ["*.js", "*.ts", "*.jsx", "*.tsx", "*.css", "*.md", "*.json", "*.yaml", "*.yml"]
        check: "prettier --check {{files}}"
  fix:
    fix: true
    steps:
      prettier:
        glob: ["*.js", "*.ts", "*.jsx", "*.tsx", "*.css", "*.md", "*.json", "*.yaml", "*.yml"]
        check: "prettier --check {{files}}"
        fix: "prettier --write {{files}}"
`

// NewInitCommand builds `hk init`, which writes a starter hk.yaml.
func NewInitCommand() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:     "init",
		Short:   "Create a starter hk.yaml in the repository root",
		GroupID: "setup",
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := git.Open("", git.Options{})
			if err != nil {
				return &engine.DiscoveryError{Err: err}
			}
			path := filepath.Join(repo.Root(), "hk.yaml")
			if _, err := os.Stat(path); err == nil && !force {
				return &engine.ConfigError{Err: fmt.Errorf("%s already exists; use --force to overwrite", path)}
			}
			if err := os.WriteFile(path, []byte(starterConfig), 0o644); err != nil {
				return err
			}
			fmt.Fprintln(os.Stderr, console.FormatSuccessMessage(fmt.Sprintf("wrote %s", path)))
			fmt.Fprintln(os.Stderr, console.FormatInfoMessage("run 'hk install' to attach the git hooks"))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing config file")
	return cmd
}
