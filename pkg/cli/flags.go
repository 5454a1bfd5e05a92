package cli

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// globalFlags are registered on the root command and become the CLI layer
// of the settings snapshot.
type globalFlags struct {
	jobs       int
	profiles   []string
	slow       bool
	verbose    int
	quiet      bool
	silent     bool
	noProgress bool
	json       bool
	trace      string
	hkrc       string
}

var global globalFlags

// RegisterGlobalFlags attaches the global flag set to the root command.
func RegisterGlobalFlags(root *cobra.Command) {
	pf := root.PersistentFlags()
	pf.IntVarP(&global.jobs, "jobs", "j", 0, "Maximum number of jobs to run concurrently (0 = logical CPUs)")
	pf.StringArrayVarP(&global.profiles, "profile", "p", nil, "Enable a profile (prefix with ! to disable)")
	pf.BoolVar(&global.slow, "slow", false, "Also run steps tagged with the slow profile")
	pf.CountVarP(&global.verbose, "verbose", "v", "Increase logging verbosity")
	pf.BoolVarP(&global.quiet, "quiet", "q", false, "Suppress non-error output")
	pf.BoolVar(&global.silent, "silent", false, "Suppress all output")
	pf.BoolVar(&global.noProgress, "no-progress", false, "Disable progress rendering")
	pf.BoolVar(&global.json, "json", false, "Emit machine-readable JSON output")
	pf.StringVar(&global.trace, "trace", "off", "Tracing output: off, text, or json")
	pf.StringVar(&global.hkrc, "hkrc", "", "Path to the hk config file")
}

// layer renders the global flags as a settings layer, merged with any
// command-specific entries.
func (g *globalFlags) layer(extra map[string]string) map[string]string {
	values := map[string]string{}
	if g.jobs > 0 {
		values["jobs"] = strconv.Itoa(g.jobs)
	}
	if len(g.profiles) > 0 {
		values["profile"] = strings.Join(g.profiles, ",")
	}
	if g.slow {
		values["slow"] = "true"
	}
	if g.json {
		values["json"] = "true"
	}
	if g.noProgress {
		values["terminal_progress"] = "false"
	}
	if g.trace != "" && g.trace != "off" {
		values["trace"] = g.trace
	}
	for k, v := range extra {
		values[k] = v
	}
	return values
}

// runFlags are the per-run flags shared by run, check, and fix.
type runFlags struct {
	all         bool
	fix         bool
	check       bool
	exclude     []string
	excludeGlob []string
	fromRef     string
	toRef       string
	globs       []string
	steps       []string
	skipSteps   []string
	planOnly    bool
	failFast    bool
	noFailFast  bool
	stash       string
	stage       bool
	noStage     bool
}

func registerRunFlags(cmd *cobra.Command, rf *runFlags) {
	f := cmd.Flags()
	f.BoolVarP(&rf.all, "all", "a", false, "Run on all files in the repository")
	f.BoolVar(&rf.fix, "fix", false, "Run fix commands (write changes)")
	f.BoolVar(&rf.check, "check", false, "Run check commands only (no writes)")
	f.StringArrayVar(&rf.exclude, "exclude", nil, "Exclude files or directories")
	f.StringArrayVar(&rf.excludeGlob, "exclude-glob", nil, "Exclude files matching a glob")
	f.StringVar(&rf.fromRef, "from-ref", "", "Run against files changed since this ref")
	f.StringVar(&rf.toRef, "to-ref", "", "Run against files changed up to this ref")
	f.StringArrayVarP(&rf.globs, "glob", "g", nil, "Run on tracked files matching a glob")
	f.StringArrayVarP(&rf.steps, "step", "S", nil, "Run only the named steps")
	f.StringArrayVar(&rf.skipSteps, "skip-step", nil, "Skip the named steps")
	f.BoolVar(&rf.planOnly, "plan", false, "Print the job plan without executing")
	f.BoolVar(&rf.failFast, "fail-fast", false, "Cancel remaining jobs after the first failure")
	f.BoolVar(&rf.noFailFast, "no-fail-fast", false, "Run all jobs even after a failure")
	f.StringVar(&rf.stash, "stash", "", "Stash method: auto, git, patch-file, or none")
	f.BoolVar(&rf.stage, "stage", false, "Re-stage files modified by fix steps")
	f.BoolVar(&rf.noStage, "no-stage", false, "Never re-stage files")
}

// layer renders the per-run flags as settings entries.
func (rf *runFlags) layer() map[string]string {
	values := map[string]string{}
	if len(rf.exclude) > 0 {
		values["exclude"] = strings.Join(rf.exclude, ",")
	}
	if len(rf.excludeGlob) > 0 {
		values["exclude_glob"] = strings.Join(rf.excludeGlob, ",")
	}
	if rf.failFast {
		values["fail_fast"] = "true"
	}
	if rf.noFailFast {
		values["fail_fast"] = "false"
	}
	if rf.stash != "" {
		values["stash"] = rf.stash
	}
	return values
}
