package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hkdev/hk/pkg/cache"
	"github.com/hkdev/hk/pkg/config"
	"github.com/hkdev/hk/pkg/console"
	"github.com/hkdev/hk/pkg/constants"
	"github.com/hkdev/hk/pkg/engine"
	"github.com/hkdev/hk/pkg/plan"
	"github.com/hkdev/hk/pkg/selector"
	"github.com/hkdev/hk/pkg/stash"
)

// NewRunCommand builds `hk run <hook>`, the entry point git hook scripts
// invoke.
func NewRunCommand() *cobra.Command {
	rf := &runFlags{}
	cmd := &cobra.Command{
		Use:     "run <hook> [files...]",
		Short:   "Run a configured hook",
		GroupID: "hooks",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHook(cmd, args[0], rf, args[1:], false)
		},
	}
	registerRunFlags(cmd, rf)
	return cmd
}

// runHook is the shared body of run, check, and fix.
func runHook(cmd *cobra.Command, hookName string, rf *runFlags, files []string, defaultWorkingTree bool) error {
	if disabled := os.Getenv(constants.EnvDisable); disabled == "0" || disabled == "false" {
		return nil
	}

	// commit-msg style hooks receive the message file and commit source from
	// git, not a file selection
	if hookName == "commit-msg" || hookName == "prepare-commit-msg" {
		files = nil
	}

	ctx := cmd.Context()
	app, err := loadContext(ctx, &global, rf.layer())
	if err != nil {
		return err
	}

	for _, skipped := range app.Settings.SkipHooks {
		if skipped == hookName {
			cliLog.Printf("hook %s skipped by settings", hookName)
			return nil
		}
	}

	hook := app.Config.Hooks[hookName]
	if hook == nil {
		return &engine.ConfigError{Err: fmt.Errorf("hook %q is not defined in %s", hookName, app.Config.Path)}
	}
	if err := validateStepRefs(hook, rf); err != nil {
		return &engine.ConfigError{Err: err}
	}

	fixMode := hook.Fix
	if rf.fix {
		fixMode = true
	}
	if rf.check {
		fixMode = false
	}

	// --stage/--no-stage override the hook's stage policy
	hookCopy := *hook
	if rf.stage {
		t := true
		hookCopy.Stage = &t
	}
	if rf.noStage {
		f := false
		hookCopy.Stage = &f
	}

	mode := selector.Mode{
		All:         rf.all,
		WorkingTree: defaultWorkingTree && !rf.all && len(files) == 0 && len(rf.globs) == 0 && rf.fromRef == "",
		FromRef:     rf.fromRef,
		ToRef:       rf.toRef,
		Explicit:    files,
		Globs:       rf.globs,
	}

	stashMethod := stash.Method(app.Settings.Stash)
	if !fixMode {
		stashMethod = stash.MethodNone
	}

	outcome, err := engine.Run(ctx, engine.Options{
		Repo:         app.Repo,
		Config:       app.Config,
		Hook:         &hookCopy,
		Settings:     app.Settings,
		Mode:         mode,
		FixMode:      fixMode,
		StepFilter:   rf.steps,
		SkipStepsCLI: rf.skipSteps,
		SkipStepsEnv: app.Settings.SkipSteps,
		PlanOnly:     rf.planOnly,
		FailFast:     app.Settings.FailFast,
		Stash:        stashMethod,
		Cache:        cache.New(app.Settings.CacheDir),
	})
	if err != nil {
		return err
	}

	if rf.planOnly {
		return printPlan(outcome.Plan, app.Settings.JSON)
	}

	report := engine.BuildReport(outcome)

	if app.Settings.TimingJSON != "" {
		timing := plan.BuildTimingReport(outcome.Jobs)
		if werr := timing.Write(app.Settings.TimingJSON); werr != nil {
			fmt.Fprintln(os.Stderr, console.FormatWarningMessage(fmt.Sprintf("could not write timing report: %v", werr)))
		}
	}

	if app.Settings.JSON {
		if err := console.OutputJSON(report); err != nil {
			return err
		}
	} else if !global.silent {
		hidden := map[string]bool{}
		for _, name := range hook.StepNames() {
			if st := hook.FindStep(name); st != nil && st.Hide {
				hidden[name] = true
			}
		}
		summary := engine.RenderSummary(report, app.Settings.DisplaySkipReasons && !global.quiet, hidden)
		if summary != "" {
			fmt.Fprint(os.Stderr, summary)
		}
	}

	if outcome.StashErr != nil {
		fmt.Fprintln(os.Stderr, console.FormatErrorMessage(outcome.StashErr.Error()))
	}
	return outcome.Err
}

// validateStepRefs rejects --step/--skip-step names that do not exist.
func validateStepRefs(hook *config.Hook, rf *runFlags) error {
	names := hook.StepNames()
	known := map[string]bool{}
	for _, n := range names {
		known[n] = true
	}
	for _, s := range rf.steps {
		if !known[s] {
			return fmt.Errorf("--step %q: hook %s has no such step", s, hook.Name)
		}
	}
	for _, s := range rf.skipSteps {
		if !known[s] {
			return fmt.Errorf("--skip-step %q: hook %s has no such step", s, hook.Name)
		}
	}
	return nil
}

// printPlan renders the expanded job plan without executing it.
func printPlan(p *plan.Plan, asJSON bool) error {
	type planEntry struct {
		Job       string   `json:"job"`
		Mode      string   `json:"mode"`
		Files     int      `json:"files"`
		Workspace string   `json:"workspace,omitempty"`
		LockMode  string   `json:"lock_mode"`
		Skip      string   `json:"skip_reason,omitempty"`
		DependsOn []string `json:"depends_on,omitempty"`
	}
	entries := make([]planEntry, 0, len(p.Jobs))
	for _, j := range p.Jobs {
		entry := planEntry{
			Job:      j.Label(),
			Mode:     j.Desc.Mode.String(),
			Files:    len(j.Desc.Files),
			LockMode: j.Desc.LockMode.String(),
			Skip:     string(j.SkippedBecause()),
		}
		if j.Desc.Workspace != nil {
			entry.Workspace = j.Desc.Workspace.Dir
		}
		for _, dep := range j.DependsOn {
			entry.DependsOn = append(entry.DependsOn, dep.Label())
		}
		entries = append(entries, entry)
	}
	if asJSON {
		return console.OutputJSON(entries)
	}
	var b strings.Builder
	for _, e := range entries {
		line := fmt.Sprintf("%s  mode=%s files=%d lock=%s", e.Job, e.Mode, e.Files, e.LockMode)
		if e.Workspace != "" {
			line += " workspace=" + e.Workspace
		}
		if e.Skip != "" {
			line += " skip=" + e.Skip
		}
		if len(e.DependsOn) > 0 {
			line += " after=" + strings.Join(e.DependsOn, ",")
		}
		b.WriteString(line + "\n")
	}
	_, err := os.Stdout.WriteString(b.String())
	return err
}
