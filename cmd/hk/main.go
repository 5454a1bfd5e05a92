package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hkdev/hk/pkg/cli"
	"github.com/hkdev/hk/pkg/console"
	"github.com/hkdev/hk/pkg/constants"
	"github.com/hkdev/hk/pkg/engine"
)

// Build-time variables set by GoReleaser
var (
	version = "dev"
)

var rootCmd = &cobra.Command{
	Use:     constants.CLIPrefix,
	Short:   "Git hook manager and project lint/format driver",
	Version: version,
	Long: `hk runs your linters and formatters as git hooks or on demand.

Common Tasks:
  hk init                     # Create a starter hk.yaml
  hk install                  # Install the git hook scripts
  hk check                    # Run all checks on the working tree
  hk fix                      # Run all fixes, writing changes
  hk run pre-commit           # Run a hook the way git would

For detailed help on any command, use:
  hk [command] --help`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

func init() {
	rootCmd.AddGroup(&cobra.Group{
		ID:    "setup",
		Title: "Setup Commands:",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "hooks",
		Title: "Hook Commands:",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "maintenance",
		Title: "Maintenance Commands:",
	})

	cli.RegisterGlobalFlags(rootCmd)

	rootCmd.SetOut(os.Stderr)
	rootCmd.SetVersionTemplate(fmt.Sprintf("%s\n",
		console.FormatInfoMessage(fmt.Sprintf("%s version {{.Version}}", constants.CLIPrefix))))

	rootCmd.AddCommand(
		cli.NewInitCommand(),
		cli.NewInstallCommand(),
		cli.NewUninstallCommand(),
		cli.NewRunCommand(),
		cli.NewCheckCommand(),
		cli.NewFixCommand(),
		cli.NewValidateCommand(),
		cli.NewTestCommand(),
		cli.NewCacheCommand(),
		cli.NewConfigCommand(),
	)
}

func main() {
	cli.SetVersionInfo(version)

	// SIGINT/SIGTERM cancel the run; the engine restores stashes on the way
	// out before the process exits.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, console.FormatErrorMessage(err.Error()))
		os.Exit(engine.ExitCode(err))
	}
}
