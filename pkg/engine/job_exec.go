package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hkdev/hk/pkg/constants"
	"github.com/hkdev/hk/pkg/locks"
	"github.com/hkdev/hk/pkg/plan"
	"github.com/hkdev/hk/pkg/runner"
	"github.com/hkdev/hk/pkg/tmpl"
)

// runJob drives one job through its state machine. It owns every
// transition after planning.
func (r *run) runJob(ctx context.Context, j *plan.Job) {
	if j.State().Terminal() {
		return // planner already skipped it
	}

	if !r.awaitDeps(ctx, j) {
		j.Transition(plan.Cancelled)
		return
	}
	j.Transition(plan.Ready)

	tc := r.templateContext(j)

	if cond := j.Desc.Step.Condition; cond != "" {
		ok, err := tc.EvalCondition(cond)
		if err != nil {
			j.SetErr(err)
			j.Transition(plan.Cancelled)
			return
		}
		if !ok {
			j.Skip(plan.SkipConditionFalse)
			return
		}
	}

	if !r.acquireSem(ctx) {
		j.Transition(plan.Cancelled)
		return
	}
	defer r.releaseSem()

	switch j.Desc.Mode {
	case plan.RunCheck:
		r.execCheck(ctx, j, tc)
	case plan.RunFix:
		r.execFix(ctx, j, tc)
	case plan.RunCheckFirst:
		r.execCheckFirst(ctx, j, tc)
	}

	if j.State() == plan.Failed {
		r.failFastAbort(j)
	}
}

func (r *run) templateContext(j *plan.Job) *tmpl.Context {
	tc := &tmpl.Context{Files: j.Desc.Files, Git: r.snapshot}
	if ws := j.Desc.Workspace; ws != nil {
		tc.Workspace = ws.Dir
		if ws.Dir == "" {
			tc.Workspace = "."
		}
		tc.WorkspaceIndicator = ws.Indicator
		tc.WorkspaceFiles = ws.Files
	}
	return tc
}

func (r *run) acquireSem(ctx context.Context) bool {
	select {
	case r.sem <- struct{}{}:
		return true
	case <-ctx.Done():
		return false
	}
}

func (r *run) releaseSem() { <-r.sem }

// lockWithYield reserves the job's lock set. When the set is contended the
// job yields its scheduler slot while parked so other work proceeds, then
// re-races for a slot holding the locks.
func (r *run) lockWithYield(ctx context.Context, paths []string, mode locks.Mode) (*locks.Guard, bool) {
	if guard := locks.TryAcquire(r.table, paths, mode); guard != nil {
		return guard, true
	}
	r.releaseSem()
	guard, err := locks.Acquire(ctx, r.table, paths, mode)
	if err != nil {
		// put the slot back so releaseSem in the caller stays balanced
		if !r.acquireSem(context.WithoutCancel(ctx)) {
			panic("unreachable: semaphore reacquire cannot be cancelled")
		}
		return nil, false
	}
	if !r.acquireSem(ctx) {
		guard.Release()
		if !r.acquireSem(context.WithoutCancel(ctx)) {
			panic("unreachable: semaphore reacquire cannot be cancelled")
		}
		return nil, false
	}
	return guard, true
}

// execCheck runs the check path: lock for read, consult the cache, spawn,
// and record the outcome.
func (r *run) execCheck(ctx context.Context, j *plan.Job, tc *tmpl.Context) {
	guard, ok := r.lockWithYield(ctx, j.Desc.LockPaths, j.Desc.LockMode)
	if !ok {
		j.Transition(plan.Cancelled)
		return
	}
	defer guard.Release()

	key := r.cacheKey(j)
	if r.opts.Cache != nil && r.opts.Cache.HitCheck(key) {
		engineLog.Printf("%s: check cache hit", j.Label())
		j.Transition(plan.Running)
		j.Transition(plan.Succeeded)
		return
	}

	j.Transition(plan.Running)
	result, err := r.spawn(ctx, j, tc, j.Desc.Step.Check)
	if err != nil {
		r.recordFailure(j, result, err)
		return
	}
	j.SetOutput(result.Summary(r.summaryPolicy(j)))
	if result.ExitCode != 0 {
		j.SetErr(fmt.Errorf("%s exited with code %d", j.Name, result.ExitCode))
		j.Transition(plan.Failed)
		return
	}
	if r.opts.Cache != nil {
		r.opts.Cache.PutCheck(key)
	}
	j.Transition(plan.Succeeded)
}

// execFix runs the fix path under write locks and queues staging.
func (r *run) execFix(ctx context.Context, j *plan.Job, tc *tmpl.Context) {
	guard, ok := r.lockWithYield(ctx, j.Desc.LockPaths, j.Desc.LockMode)
	if !ok {
		j.Transition(plan.Cancelled)
		return
	}
	defer guard.Release()

	j.Transition(plan.Running)
	result, err := r.spawn(ctx, j, tc, j.Desc.Step.Fix)
	if err != nil {
		r.recordFailure(j, result, err)
		return
	}
	j.SetOutput(result.Summary(r.summaryPolicy(j)))
	if result.ExitCode != 0 {
		j.SetErr(fmt.Errorf("%s exited with code %d", j.Name, result.ExitCode))
		j.Transition(plan.Failed)
		return
	}
	r.queueStaging(j, j.Desc.Files)
	j.Transition(plan.Succeeded)
}

// execCheckFirst implements the contention probe: when the write lock set
// is immediately free no one would benefit from a read-first pass, so fix
// runs directly. Otherwise check runs under read locks and escalates to fix
// only on failure, narrowed by check_list_files when available.
func (r *run) execCheckFirst(ctx context.Context, j *plan.Job, tc *tmpl.Context) {
	writeMode := locks.Write
	if j.Desc.Step.Stomp {
		writeMode = locks.Stomp
	}

	if guard := locks.TryAcquire(r.table, j.Desc.LockPaths, writeMode); guard != nil {
		defer guard.Release()
		j.Transition(plan.Running)
		result, err := r.spawn(ctx, j, tc, j.Desc.Step.Fix)
		if err != nil {
			r.recordFailure(j, result, err)
			return
		}
		j.SetOutput(result.Summary(r.summaryPolicy(j)))
		if result.ExitCode != 0 {
			j.SetErr(fmt.Errorf("%s exited with code %d", j.Name, result.ExitCode))
			j.Transition(plan.Failed)
			return
		}
		r.queueStaging(j, j.Desc.Files)
		j.Transition(plan.Succeeded)
		return
	}

	// contended: read-locked check first
	guard, ok := r.lockWithYield(ctx, j.Desc.LockPaths, locks.Read)
	if !ok {
		j.Transition(plan.Cancelled)
		return
	}

	j.Transition(plan.Running)
	result, err := r.spawn(ctx, j, tc, j.Desc.Step.Check)
	if err != nil {
		guard.Release()
		r.recordFailure(j, result, err)
		return
	}
	if result.ExitCode == 0 {
		guard.Release()
		j.SetOutput(result.Summary(r.summaryPolicy(j)))
		j.Transition(plan.Succeeded)
		return
	}

	j.Transition(plan.CheckFailed)

	// narrow the fix set when the step can enumerate offenders
	fixFiles := j.Desc.Files
	if j.Desc.Step.CheckListFiles != "" {
		narrowed, err := r.listOffenders(ctx, j, tc)
		if err != nil {
			guard.Release()
			r.recordFailure(j, result, err)
			return
		}
		if len(narrowed) == 0 {
			guard.Release()
			j.SetOutput(result.Summary(r.summaryPolicy(j)))
			j.Transition(plan.Succeeded)
			return
		}
		fixFiles = narrowed
	}

	guard.Release()
	wguard, ok := r.lockWithYield(ctx, j.Desc.LockPaths, writeMode)
	if !ok {
		j.Transition(plan.Cancelled)
		return
	}
	defer wguard.Release()

	j.Transition(plan.FixRunning)

	if j.Desc.Step.CheckDiff != "" {
		if r.applyCheckDiff(ctx, j, tc, fixFiles) {
			r.queueStaging(j, fixFiles)
			j.Transition(plan.Succeeded)
			return
		}
		// fall through to a plain fix run on the affected files
	}

	fixCtx := *tc
	fixCtx.Files = fixFiles
	fixResult, err := r.spawn(ctx, j, &fixCtx, j.Desc.Step.Fix)
	if err != nil {
		r.recordFailure(j, fixResult, err)
		return
	}
	j.SetOutput(fixResult.Summary(r.summaryPolicy(j)))
	if fixResult.ExitCode != 0 {
		j.SetErr(fmt.Errorf("%s exited with code %d", j.Name, fixResult.ExitCode))
		j.Transition(plan.Failed)
		return
	}
	r.queueStaging(j, fixFiles)
	j.Transition(plan.Succeeded)
}

// listOffenders runs check_list_files and intersects its stdout lines with
// the job's shard.
func (r *run) listOffenders(ctx context.Context, j *plan.Job, tc *tmpl.Context) ([]string, error) {
	result, err := r.spawn(ctx, j, tc, j.Desc.Step.CheckListFiles)
	if err != nil {
		return nil, fmt.Errorf("check_list_files: %w", err)
	}
	inShard := map[string]bool{}
	for _, f := range j.Desc.Files {
		inShard[f] = true
	}
	var out []string
	for _, line := range strings.Split(string(result.Stdout), "\n") {
		line = strings.TrimSpace(line)
		if line != "" && inShard[line] {
			out = append(out, line)
		}
	}
	sort.Strings(out)
	return out, nil
}

// applyCheckDiff runs check_diff and applies its output as a patch.
// Returns true on success; on failure the diff is preserved under the
// state dir and the caller re-runs fix.
func (r *run) applyCheckDiff(ctx context.Context, j *plan.Job, tc *tmpl.Context, files []string) bool {
	diffCtx := *tc
	diffCtx.Files = files
	result, err := r.spawn(ctx, j, &diffCtx, j.Desc.Step.CheckDiff)
	if err != nil || len(result.Stdout) == 0 {
		return false
	}
	if err := r.opts.Repo.ApplyPatch(ctx, result.Stdout, true); err != nil {
		backup := filepath.Join(r.opts.Settings.StateDir, "patches",
			fmt.Sprintf("check-diff-%s-%d.patch", j.Name, time.Now().UnixNano()))
		if mkErr := os.MkdirAll(filepath.Dir(backup), 0o755); mkErr == nil {
			_ = os.WriteFile(backup, result.Stdout, 0o600)
		}
		engineLog.Warnf("%s: check_diff did not apply cleanly (%v), re-running fix; diff kept at %s", j.Label(), err, backup)
		return false
	}
	return true
}

// spawn renders the command for the job and executes it.
func (r *run) spawn(ctx context.Context, j *plan.Job, tc *tmpl.Context, command string) (*runner.Result, error) {
	st := j.Desc.Step

	expanded, err := tc.Expand(command)
	if err != nil {
		return nil, err
	}
	if st.Prefix != "" {
		expanded = st.Prefix + " " + expanded
	}

	stdin := ""
	if st.Stdin != "" {
		stdin, err = tc.Expand(st.Stdin)
		if err != nil {
			return nil, err
		}
	}

	env := os.Environ()
	env = append(env, constants.EnvDisable+"=1")
	for k, v := range r.opts.Config.Env {
		env = append(env, k+"="+v)
	}
	stepEnv, err := tc.ExpandEnv(st.Env)
	if err != nil {
		return nil, err
	}
	for k, v := range stepEnv {
		env = append(env, k+"="+v)
	}

	dir := r.opts.Repo.Root()
	if st.Dir != "" {
		dir = filepath.Join(dir, filepath.FromSlash(st.Dir))
	}

	start := time.Now()
	result, err := r.exec(ctx, runner.Command{
		Command:       expanded,
		Shell:         st.Shell,
		Dir:           dir,
		Env:           env,
		Stdin:         stdin,
		Interactive:   st.Interactive,
		OutputSummary: r.summaryPolicy(j),
		Timeout:       r.opts.JobTimeout,
	})
	end := time.Now()
	if result != nil && !result.Start.IsZero() {
		j.AddInterval(result.Start, result.End)
	} else {
		j.AddInterval(start, end)
	}
	return result, err
}

func (r *run) summaryPolicy(j *plan.Job) runner.OutputSummary {
	if j.Desc.Step.Hide {
		return runner.SummaryHide
	}
	if j.Desc.Step.OutputSummary != "" {
		return runner.OutputSummary(j.Desc.Step.OutputSummary)
	}
	return runner.SummaryCombined
}

// recordFailure classifies an execution error onto the job.
func (r *run) recordFailure(j *plan.Job, result *runner.Result, err error) {
	if result != nil {
		j.SetOutput(result.Summary(r.summaryPolicy(j)))
	}
	j.SetErr(err)
	if errorsIsCancel(err) {
		j.Transition(plan.Cancelled)
		return
	}
	j.Transition(plan.Failed)
}

// cacheKey digests everything that determines a check's outcome: the config
// file, the step's command surface, and the content of the shard files.
func (r *run) cacheKey(j *plan.Job) string {
	if r.opts.Cache == nil || j.Desc.Mode != plan.RunCheck {
		return ""
	}
	st := j.Desc.Step
	parts := []string{
		r.opts.Config.Path,
		j.Desc.Hook,
		st.Name,
		st.Check,
		st.Shell,
		st.Prefix,
	}
	return r.opts.Cache.Key(r.opts.Repo.Root(), parts, j.Desc.Files)
}

// queueStaging records files a fix rewrote so the hook's staging phase can
// re-add them. The step's stage patterns narrow the set; the job-files
// token stages exactly the processed files.
func (r *run) queueStaging(j *plan.Job, processed []string) {
	if !r.opts.FixMode {
		return
	}
	if stage := r.opts.Hook.Stage; stage != nil && !*stage {
		return
	}

	patterns := j.Desc.Step.Stage
	var files []string
	switch {
	case len(patterns) == 0:
		files = processed
	case len(patterns) == 1 && patterns[0] == constants.JobFilesToken:
		files = processed
	default:
		for _, f := range processed {
			for _, p := range patterns {
				if p == constants.JobFilesToken {
					files = append(files, f)
					break
				}
				target := f
				if !strings.Contains(p, "/") {
					target = filepath.Base(f)
				}
				if ok, err := doublestar.Match(p, target); err == nil && ok {
					files = append(files, f)
					break
				}
			}
		}
	}
	if len(files) == 0 {
		return
	}
	r.staging <- stageRequest{files: files}
}
