// Package engine coordinates a hook run: it plans the job graph, guards
// unstaged changes, schedules jobs across the worker bound with per-file
// locks, re-stages fixed files, and folds job outcomes into the hook
// result.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/hkdev/hk/pkg/cache"
	"github.com/hkdev/hk/pkg/config"
	"github.com/hkdev/hk/pkg/constants"
	"github.com/hkdev/hk/pkg/git"
	"github.com/hkdev/hk/pkg/locks"
	"github.com/hkdev/hk/pkg/logger"
	"github.com/hkdev/hk/pkg/plan"
	"github.com/hkdev/hk/pkg/runner"
	"github.com/hkdev/hk/pkg/selector"
	"github.com/hkdev/hk/pkg/settings"
	"github.com/hkdev/hk/pkg/stash"
)

var engineLog = logger.New("engine:run")

// ExecFunc runs one composed command. Tests substitute a fake; the default
// is runner.Run.
type ExecFunc func(ctx context.Context, spec runner.Command) (*runner.Result, error)

// Options configures one hook run.
type Options struct {
	Repo     *git.Repo
	Config   *config.Config
	Hook     *config.Hook
	Settings *settings.Settings
	Mode     selector.Mode
	FixMode  bool

	StepFilter   []string
	SkipStepsCLI []string
	SkipStepsEnv []string

	PlanOnly   bool
	FailFast   bool
	Stash      stash.Method
	Cache      *cache.Cache
	JobTimeout time.Duration

	Exec ExecFunc
}

// Outcome is the folded result of a hook run.
type Outcome struct {
	Jobs     []*plan.Job
	Plan     *plan.Plan
	Err      error
	StashErr error
}

// run owns the mutable state of one hook run. It is the process-wide
// coordinator the planner, lock table, and stash controller hang off.
type run struct {
	opts     Options
	snapshot *git.Snapshot
	table    *locks.Table
	stash    *stash.Controller
	exec     ExecFunc
	done     map[*plan.Job]chan struct{}
	sem      chan struct{}
	cancel   context.CancelCauseFunc
	staging  chan stageRequest
}

type stageRequest struct {
	files []string
}

// Run executes the hook and returns its outcome. The returned Outcome.Err
// is nil only when every required job succeeded or was skipped.
func Run(ctx context.Context, opts Options) (*Outcome, error) {
	if opts.Exec == nil {
		opts.Exec = runner.Run
	}

	snapshot, err := opts.Repo.Capture(ctx)
	if err != nil {
		return nil, &DiscoveryError{Err: fmt.Errorf("read repository state: %w", err)}
	}

	files, err := selector.Select(ctx, opts.Repo, opts.Mode, opts.Settings.Exclude, opts.Settings.ExcludeGlob)
	if err != nil {
		return nil, &ConfigError{Err: err}
	}

	jobPlan, err := plan.Build(plan.Input{
		Hook:         opts.Hook,
		Settings:     opts.Settings,
		Files:        files,
		RepoRoot:     opts.Repo.Root(),
		FixMode:      opts.FixMode,
		StepFilter:   opts.StepFilter,
		SkipStepsCLI: opts.SkipStepsCLI,
		SkipStepsEnv: opts.SkipStepsEnv,
	})
	if err != nil {
		return nil, &ConfigError{Err: err}
	}

	outcome := &Outcome{Jobs: jobPlan.Jobs, Plan: jobPlan}
	if opts.PlanOnly {
		return outcome, nil
	}

	r := &run{
		opts:     opts,
		snapshot: snapshot,
		table:    locks.NewTable(),
		exec:     opts.Exec,
		done:     map[*plan.Job]chan struct{}{},
		sem:      make(chan struct{}, opts.Settings.EffectiveJobs()),
		staging:  make(chan stageRequest, len(jobPlan.Jobs)),
	}

	if r.needsStash(jobPlan) {
		r.stash = stash.New(opts.Repo, opts.Stash, opts.Settings.StashUntracked,
			opts.Settings.StateDir, constants.DefaultStashBackups)
		if err := r.stash.Acquire(ctx); err != nil {
			return outcome, &StashError{Err: err}
		}
	}

	// Restoration must run on every exit path, panics included.
	defer func() {
		if r.stash != nil && r.stash.Active() {
			if rerr := r.stash.Restore(ctx); rerr != nil {
				outcome.StashErr = &StashError{Err: rerr}
			}
		}
	}()

	runErr := r.schedule(ctx, jobPlan)

	// Re-stage files fixed by succeeded jobs before the stash returns the
	// unstaged delta to the tree.
	if stageErr := r.applyStaging(ctx); stageErr != nil && runErr == nil {
		runErr = stageErr
	}

	if r.stash != nil {
		if rerr := r.stash.Restore(ctx); rerr != nil {
			outcome.StashErr = &StashError{Err: rerr}
		}
	}

	outcome.Err = runErr
	if outcome.Err == nil && outcome.StashErr != nil {
		outcome.Err = outcome.StashErr
	}
	return outcome, nil
}

// needsStash reports whether any planned job may write the tree.
func (r *run) needsStash(p *plan.Plan) bool {
	if r.opts.Stash == stash.MethodNone {
		return false
	}
	if !r.opts.FixMode {
		return false
	}
	for _, j := range p.Jobs {
		if j.State() == plan.Skipped {
			continue
		}
		if j.Desc.Mode == plan.RunFix || j.Desc.Mode == plan.RunCheckFirst {
			return true
		}
	}
	return false
}

// schedule launches every job, bounded by the semaphore, and waits for the
// whole graph. Dependency wake-ups ride per-job done channels.
func (r *run) schedule(ctx context.Context, p *plan.Plan) error {
	ctx, cancel := context.WithCancelCause(ctx)
	r.cancel = cancel
	defer cancel(nil)

	for _, j := range p.Jobs {
		r.done[j] = make(chan struct{})
	}

	var wg conc.WaitGroup
	for _, j := range p.Jobs {
		j := j
		wg.Go(func() {
			defer close(r.done[j])
			r.runJob(ctx, j)
		})
	}
	wg.Wait()

	return r.fold(ctx, p)
}

// fold reduces job outcomes to the hook result.
func (r *run) fold(ctx context.Context, p *plan.Plan) error {
	failed := false
	cancelled := false
	for _, j := range p.Jobs {
		switch j.State() {
		case plan.Failed:
			failed = true
		case plan.Cancelled:
			cancelled = true
		}
	}
	switch {
	case failed:
		return ErrJobsFailed
	case cancelled:
		return ErrCancelled
	default:
		return nil
	}
}

// applyStaging adds the files queued by fix jobs back to the index,
// serialized so only one writer touches the index.
func (r *run) applyStaging(ctx context.Context) error {
	close(r.staging)
	seen := map[string]bool{}
	var files []string
	for req := range r.staging {
		for _, f := range req.files {
			if !seen[f] {
				seen[f] = true
				files = append(files, f)
			}
		}
	}
	if len(files) == 0 {
		return nil
	}
	engineLog.Printf("re-staging %d fixed files", len(files))
	if err := r.opts.Repo.Add(context.WithoutCancel(ctx), files); err != nil {
		return fmt.Errorf("re-stage fixed files: %w", err)
	}
	return nil
}

// failFastAbort cancels the run after the first failure when fail-fast is
// enabled.
func (r *run) failFastAbort(j *plan.Job) {
	if !r.opts.FailFast {
		return
	}
	engineLog.Printf("fail-fast: %s failed, cancelling remaining jobs", j.Label())
	r.cancel(ErrCancelled)
}

// awaitDeps parks until every dependency is terminal. Returns false when
// the job cannot run (cancelled or a dependency is doomed).
func (r *run) awaitDeps(ctx context.Context, j *plan.Job) bool {
	if len(j.DependsOn) > 0 {
		j.Transition(plan.Blocked)
		for _, dep := range j.DependsOn {
			select {
			case <-r.done[dep]:
			case <-ctx.Done():
				return false
			}
		}
	}
	if ctx.Err() != nil {
		return false
	}
	if j.DepsDoomed() {
		return false
	}
	return j.DepsSatisfied()
}

func errorsIsCancel(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, ErrCancelled)
}
