package cli

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/hkdev/hk/pkg/console"
	"github.com/hkdev/hk/pkg/engine"
	"github.com/hkdev/hk/pkg/plan"
	"github.com/hkdev/hk/pkg/selector"
	"github.com/hkdev/hk/pkg/stash"
)

// NewValidateCommand builds `hk validate`: schema plus semantic validation
// of the config, including a cycle pre-check of every hook's depends graph,
// without running anything.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "validate",
		Short:   "Validate the hk configuration without running hooks",
		GroupID: "maintenance",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadContext(cmd.Context(), &global, nil)
			if err != nil {
				return err
			}
			if err := validatePlans(app); err != nil {
				return err
			}
			fmt.Fprintln(os.Stderr, console.FormatSuccessMessage(
				fmt.Sprintf("%s is valid (%d hooks)", app.Config.Path, len(app.Config.Hooks))))
			return nil
		},
	}
}

// NewTestCommand builds `hk test`: a dry run that expands every hook into
// its job plan so broken step wiring surfaces before git ever calls a hook.
func NewTestCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "test",
		Short:   "Expand every hook into its job plan without executing",
		GroupID: "maintenance",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := loadContext(ctx, &global, nil)
			if err != nil {
				return err
			}
			for _, name := range sortedHookNames(app) {
				hook := app.Config.Hooks[name]
				outcome, err := engine.Run(ctx, engine.Options{
					Repo:     app.Repo,
					Config:   app.Config,
					Hook:     hook,
					Settings: app.Settings,
					Mode:     selector.Mode{All: true},
					FixMode:  hook.Fix,
					PlanOnly: true,
					Stash:    stash.MethodNone,
				})
				if err != nil {
					return err
				}
				fmt.Fprintln(os.Stderr, console.FormatInfoMessage(fmt.Sprintf("hook %s:", name)))
				if err := printPlan(outcome.Plan, app.Settings.JSON); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// validatePlans builds the job graph of every hook against an empty file
// set, which exercises cycle detection and step validation.
func validatePlans(app *appContext) error {
	for _, name := range sortedHookNames(app) {
		hook := app.Config.Hooks[name]
		if _, err := plan.Build(plan.Input{
			Hook:     hook,
			Settings: app.Settings,
			RepoRoot: app.Repo.Root(),
			FixMode:  hook.Fix,
		}); err != nil {
			return &engine.ConfigError{Err: fmt.Errorf("hook %s: %w", name, err)}
		}
	}
	return nil
}

func sortedHookNames(app *appContext) []string {
	names := make([]string, 0, len(app.Config.Hooks))
	for name := range app.Config.Hooks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
