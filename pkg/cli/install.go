package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/hkdev/hk/pkg/console"
	"github.com/hkdev/hk/pkg/engine"
	"github.com/hkdev/hk/pkg/hooks"
	"github.com/hkdev/hk/pkg/tty"
)

// NewInstallCommand builds `hk install`, which writes the git hook scripts
// for every configured hook.
func NewInstallCommand() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:     "install",
		Short:   "Install git hook scripts for the configured hooks",
		GroupID: "setup",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := loadContext(ctx, &global, nil)
			if err != nil {
				return err
			}

			hooksDir, err := app.Repo.HooksDir(ctx)
			if err != nil {
				return &engine.DiscoveryError{Err: err}
			}

			configured := make([]string, 0, len(app.Config.Hooks))
			for name := range app.Config.Hooks {
				configured = append(configured, name)
			}

			installed, err := hooks.Install(hooksDir, configured, force)
			if err != nil {
				return err
			}
			if len(installed) == 0 {
				fmt.Fprintln(os.Stderr, console.FormatWarningMessage("no git hooks configured; nothing to install"))
				return nil
			}
			fmt.Fprintln(os.Stderr, console.FormatSuccessMessage(
				fmt.Sprintf("installed hooks: %s", strings.Join(installed, ", "))))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite hook scripts not managed by hk")
	return cmd
}

// NewUninstallCommand builds `hk uninstall`.
func NewUninstallCommand() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:     "uninstall",
		Short:   "Remove hk-managed git hook scripts",
		GroupID: "setup",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := loadContext(ctx, &global, nil)
			if err != nil {
				return err
			}

			if !yes && tty.IsStdinTerminal() {
				confirmed, err := confirmUninstall()
				if err != nil || !confirmed {
					return err
				}
			}

			hooksDir, err := app.Repo.HooksDir(ctx)
			if err != nil {
				return &engine.DiscoveryError{Err: err}
			}
			removed, err := hooks.Uninstall(hooksDir)
			if err != nil {
				return err
			}
			if len(removed) == 0 {
				fmt.Fprintln(os.Stderr, console.FormatInfoMessage("no hk hooks were installed"))
				return nil
			}
			fmt.Fprintln(os.Stderr, console.FormatSuccessMessage(
				fmt.Sprintf("removed hooks: %s", strings.Join(removed, ", "))))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

// confirmUninstall asks before touching the repository's hook scripts. The
// plain accessible form kicks in when the terminal cannot render the
// interactive one (TERM=dumb, NO_COLOR, or an explicit ACCESSIBLE request).
func confirmUninstall() (bool, error) {
	var confirmed bool
	accessible := os.Getenv("ACCESSIBLE") != "" ||
		os.Getenv("TERM") == "dumb" ||
		os.Getenv("NO_COLOR") != ""

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Remove hk's git hook scripts?").
				Affirmative("Remove").
				Negative("Keep").
				Value(&confirmed),
		),
	).WithAccessible(accessible)

	if err := form.Run(); err != nil {
		return false, err
	}
	cliLog.Printf("uninstall confirmation: %t", confirmed)
	return confirmed, nil
}
