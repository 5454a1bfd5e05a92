package plan

import (
	"fmt"

	"github.com/hkdev/hk/pkg/config"
	"github.com/hkdev/hk/pkg/locks"
	"github.com/hkdev/hk/pkg/logger"
	"github.com/hkdev/hk/pkg/selector"
	"github.com/hkdev/hk/pkg/settings"
	"github.com/hkdev/hk/pkg/sliceutil"
)

var planLog = logger.New("plan:planner")

// Input carries everything the planner needs. Files are the candidate set
// after global excludes; skip lists keep their origin so skip reasons can
// name it.
type Input struct {
	Hook         *config.Hook
	Settings     *settings.Settings
	Files        []string
	RepoRoot     string
	FixMode      bool
	StepFilter   []string // --step: when non-empty, only these run
	SkipStepsCLI []string
	SkipStepsEnv []string
}

// Plan is the expanded job forest for one hook run.
type Plan struct {
	Hook *config.Hook
	Jobs []*Job
}

// Build expands the hook into jobs. Planning is deterministic: the same
// config and settings produce the same plan, with jobs ordered by step
// declaration then shard index.
func Build(in Input) (*Plan, error) {
	if err := detectCycles(in.Hook); err != nil {
		return nil, err
	}

	p := &planner{in: in, byStep: map[string][]*Job{}}

	for _, node := range in.Hook.Steps {
		if node.Group != nil {
			p.beginFence()
			for _, st := range node.Group.Steps {
				p.addStep(st)
			}
			p.endFence()
			continue
		}
		st := node.Step
		if st.Exclusive || st.Interactive {
			// exclusive steps behave as singleton groups
			p.beginFence()
			p.addStep(st)
			p.endFence()
			continue
		}
		p.addStep(st)
	}

	// resolve explicit depends after all jobs exist
	for _, j := range p.jobs {
		for _, dep := range j.Desc.Step.Depends {
			for _, target := range p.byStep[dep] {
				j.DependsOn = append(j.DependsOn, target)
			}
		}
	}

	planLog.Printf("hook %s: planned %d jobs", in.Hook.Name, len(p.jobs))
	return &Plan{Hook: in.Hook, Jobs: p.jobs}, nil
}

type planner struct {
	in     Input
	jobs   []*Job
	byStep map[string][]*Job

	// fence bookkeeping: barrier holds every job created before the
	// current fence, fenced collects the jobs inside it, and closedFence
	// remembers the members of the last closed fence so later jobs are
	// ordered after the whole group.
	barrier     []*Job
	fenced      []*Job
	closedFence []*Job
	inFence     bool
	nextID      int
}

func (p *planner) beginFence() {
	p.barrier = append([]*Job{}, p.jobs...)
	p.fenced = nil
	p.inFence = true
}

func (p *planner) endFence() {
	p.closedFence = append([]*Job{}, p.fenced...)
	p.inFence = false
	p.barrier = nil
	p.fenced = nil
}

func (p *planner) addStep(st *config.Step) {
	jobs := p.expandStep(st)
	for _, j := range jobs {
		if p.inFence {
			j.DependsOn = append(j.DependsOn, p.barrier...)
			p.fenced = append(p.fenced, j)
		} else {
			j.DependsOn = append(j.DependsOn, p.closedFence...)
		}
		p.jobs = append(p.jobs, j)
		p.byStep[st.Name] = append(p.byStep[st.Name], j)
	}
}

func (p *planner) expandStep(st *config.Step) []*Job {
	if reason, skipped := p.stepSkipReason(st); skipped {
		j := p.newJob(st, Descriptor{Step: st, Hook: p.in.Hook.Name, Mode: RunCheck})
		j.Skip(reason)
		return []*Job{j}
	}

	mode, lockMode, ok := p.runMode(st)
	if !ok {
		j := p.newJob(st, Descriptor{Step: st, Hook: p.in.Hook.Name})
		j.Skip(SkipNoCommand)
		return []*Job{j}
	}

	files := selector.StepFilter{
		Glob:    st.Glob,
		Exclude: st.Exclude,
		Types:   st.Types,
		Root:    p.in.RepoRoot,
	}.Apply(p.in.Files)

	if len(files) == 0 {
		j := p.newJob(st, Descriptor{Step: st, Hook: p.in.Hook.Name, Mode: mode})
		j.Skip(SkipNoFiles)
		return []*Job{j}
	}

	if st.WorkspaceIndicator != "" {
		workspaces := selector.GroupByWorkspace(p.in.RepoRoot, files, st.WorkspaceIndicator)
		if len(workspaces) == 0 {
			j := p.newJob(st, Descriptor{Step: st, Hook: p.in.Hook.Name, Mode: mode})
			j.Skip(SkipNoFiles)
			return []*Job{j}
		}
		jobs := make([]*Job, 0, len(workspaces))
		for i := range workspaces {
			ws := workspaces[i]
			jobs = append(jobs, p.newJob(st, Descriptor{
				Step:      st,
				Hook:      p.in.Hook.Name,
				Files:     ws.Files,
				Workspace: &ws,
				Mode:      mode,
				LockPaths: ws.Files,
				LockMode:  lockMode,
			}))
		}
		return jobs
	}

	if st.Batch {
		shards := shardFiles(files, p.in.Settings.EffectiveJobs())
		jobs := make([]*Job, 0, len(shards))
		for i, shard := range shards {
			// every shard shares the step's whole lock set so shards of one
			// step acquire all-or-nothing
			jobs = append(jobs, p.newJob(st, Descriptor{
				Step:      st,
				Hook:      p.in.Hook.Name,
				Files:     shard,
				Mode:      mode,
				LockPaths: files,
				LockMode:  lockMode,
				Shard:     i,
				Shards:    len(shards),
			}))
		}
		return jobs
	}

	return []*Job{p.newJob(st, Descriptor{
		Step:      st,
		Hook:      p.in.Hook.Name,
		Files:     files,
		Mode:      mode,
		LockPaths: files,
		LockMode:  lockMode,
	})}
}

func (p *planner) newJob(st *config.Step, desc Descriptor) *Job {
	j := &Job{ID: p.nextID, Name: st.Name, Desc: desc}
	p.nextID++
	return j
}

func (p *planner) stepSkipReason(st *config.Step) (SkipReason, bool) {
	if len(p.in.StepFilter) > 0 && !sliceutil.Contains(p.in.StepFilter, st.Name) {
		return SkipDisabledByCLI, true
	}
	if sliceutil.Contains(p.in.SkipStepsCLI, st.Name) {
		return SkipDisabledByCLI, true
	}
	if sliceutil.Contains(p.in.SkipStepsEnv, st.Name) {
		return SkipDisabledByEnv, true
	}
	for _, profile := range st.Profiles {
		if sliceutil.Contains(p.in.Settings.DisabledProfiles, profile) {
			return SkipProfileDisabled, true
		}
		if profile == "slow" && p.in.Settings.Slow {
			continue
		}
		if !sliceutil.Contains(p.in.Settings.Profiles, profile) {
			return SkipProfileNotEnabled, true
		}
	}
	return "", false
}

// runMode picks the intended mode and lock mode for a step given the hook's
// fix setting. Contention-based check-first demotion happens at execution
// time; here RunCheckFirst records that both variants exist.
func (p *planner) runMode(st *config.Step) (RunType, locks.Mode, bool) {
	lockFor := func(write bool) locks.Mode {
		if st.Stomp {
			return locks.Stomp
		}
		if write {
			return locks.Write
		}
		return locks.Read
	}

	if !p.in.FixMode {
		if st.Check == "" {
			return 0, 0, false
		}
		return RunCheck, lockFor(false), true
	}

	switch {
	case st.Fix == "" && st.Check == "":
		return 0, 0, false
	case st.Fix == "":
		return RunCheck, lockFor(false), true
	case st.Check == "":
		return RunFix, lockFor(true), true
	case st.CheckFirstEnabled():
		return RunCheckFirst, lockFor(false), true
	default:
		return RunFix, lockFor(true), true
	}
}

// shardFiles partitions files into at most max contiguous, lexicographic
// shards of near-equal size.
func shardFiles(files []string, max int) [][]string {
	if max < 1 {
		max = 1
	}
	n := len(files)
	count := max
	if n < count {
		count = n
	}
	shards := make([][]string, 0, count)
	base := n / count
	extra := n % count
	idx := 0
	for i := 0; i < count; i++ {
		size := base
		if i < extra {
			size++
		}
		shards = append(shards, files[idx:idx+size])
		idx += size
	}
	return shards
}

// detectCycles rejects cyclic depends at plan time with a configuration
// error naming the cycle.
func detectCycles(hook *config.Hook) error {
	deps := map[string][]string{}
	for _, name := range hook.StepNames() {
		if st := hook.FindStep(name); st != nil {
			deps[name] = st.Depends
		}
	}

	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := map[string]int{}
	var stack []string

	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("cycle in depends: %s", cyclePath(stack, name))
		}
		state[name] = visiting
		stack = append(stack, name)
		for _, dep := range deps[name] {
			if err := visit(dep); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		state[name] = done
		return nil
	}

	for _, name := range hook.StepNames() {
		if err := visit(name); err != nil {
			return err
		}
	}
	return nil
}

func cyclePath(stack []string, repeat string) string {
	start := 0
	for i, s := range stack {
		if s == repeat {
			start = i
			break
		}
	}
	path := repeat
	for _, s := range stack[start+1:] {
		path += " -> " + s
	}
	return path + " -> " + repeat
}
