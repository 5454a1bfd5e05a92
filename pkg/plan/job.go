// Package plan expands a hook's declarative config into the concrete job
// graph the scheduler executes: one node kind (Job), with group and
// exclusive fencing already lowered to dependency edges.
package plan

import (
	"fmt"
	"sync"
	"time"

	"github.com/hkdev/hk/pkg/config"
	"github.com/hkdev/hk/pkg/locks"
	"github.com/hkdev/hk/pkg/selector"
)

// State is a job's lifecycle state. Transitions are monotonic: a job never
// re-enters Ready after leaving it.
type State int

const (
	Pending State = iota
	Blocked
	Ready
	Running
	CheckFailed
	FixRunning
	Succeeded
	Failed
	Skipped
	Cancelled
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Blocked:
		return "blocked"
	case Ready:
		return "ready"
	case Running:
		return "running"
	case CheckFailed:
		return "check-failed"
	case FixRunning:
		return "fix-running"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	default:
		return "cancelled"
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	switch s {
	case Succeeded, Failed, Skipped, Cancelled:
		return true
	}
	return false
}

// RunType is the intended execution mode for a job.
type RunType int

const (
	RunCheck RunType = iota
	RunFix
	RunCheckFirst
)

func (r RunType) String() string {
	switch r {
	case RunCheck:
		return "check"
	case RunFix:
		return "fix"
	default:
		return "check-first"
	}
}

// SkipReason explains why a job did not run.
type SkipReason string

const (
	SkipProfileNotEnabled SkipReason = "profile-not-enabled"
	SkipProfileDisabled   SkipReason = "profile-explicitly-disabled"
	SkipNoCommand         SkipReason = "no-command-for-run-type"
	SkipNoFiles           SkipReason = "no-files-to-process"
	SkipConditionFalse    SkipReason = "condition-false"
	SkipDisabledByEnv     SkipReason = "disabled-by-env"
	SkipDisabledByCLI     SkipReason = "disabled-by-cli"
)

// Descriptor is the immutable recipe for one job: the step, its file
// shard, workspace binding, intended mode, and lock set.
type Descriptor struct {
	Step      *config.Step
	Hook      string
	Files     []string
	Workspace *selector.Workspace
	Mode      RunType
	LockPaths []string
	LockMode  locks.Mode
	Shard     int
	Shards    int
}

// Job is the scheduled unit of execution. The engine owns all state
// mutation; Transition enforces monotonicity.
type Job struct {
	ID   int
	Name string
	Desc Descriptor

	DependsOn []*Job

	mu         sync.Mutex
	state      State
	skipReason SkipReason
	output     string
	err        error
	intervals  []Interval
}

// Label names the job for display: the step name plus shard or workspace
// qualifiers when the step fanned out.
func (j *Job) Label() string {
	label := j.Name
	if j.Desc.Workspace != nil && j.Desc.Workspace.Dir != "" {
		label = fmt.Sprintf("%s (%s)", label, j.Desc.Workspace.Dir)
	}
	if j.Desc.Shards > 1 {
		label = fmt.Sprintf("%s [%d/%d]", label, j.Desc.Shard+1, j.Desc.Shards)
	}
	return label
}

// State returns the current state.
func (j *Job) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

var allowed = map[State][]State{
	Pending:     {Blocked, Ready, Skipped, Cancelled},
	Blocked:     {Ready, Skipped, Cancelled},
	Ready:       {Running, Skipped, Cancelled},
	Running:     {Succeeded, CheckFailed, Failed, Cancelled},
	CheckFailed: {FixRunning, Succeeded, Failed, Cancelled},
	FixRunning:  {Succeeded, Failed, Cancelled},
}

// Transition moves the job to next, panicking on an illegal transition:
// those indicate scheduler bugs, not user errors.
func (j *Job) Transition(next State) {
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, ok := range allowed[j.state] {
		if ok == next {
			j.state = next
			return
		}
	}
	panic(fmt.Sprintf("job %s: illegal transition %s -> %s", j.Name, j.state, next))
}

// Skip marks the job skipped with a reason.
func (j *Job) Skip(reason SkipReason) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state.Terminal() {
		return
	}
	j.state = Skipped
	j.skipReason = reason
}

// SkippedBecause returns the recorded reason, if any.
func (j *Job) SkippedBecause() SkipReason {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.skipReason
}

// SetOutput stores captured output for the summary. The job exclusively
// owns this buffer.
func (j *Job) SetOutput(out string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.output = out
}

// Output returns the captured output.
func (j *Job) Output() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.output
}

// SetErr attaches the job's failure cause.
func (j *Job) SetErr(err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.err = err
}

// Err returns the failure cause, if any.
func (j *Job) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// AddInterval records one wall-time execution interval.
func (j *Job) AddInterval(start, end time.Time) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.intervals = append(j.intervals, Interval{Start: start, End: end})
}

// Intervals returns the recorded wall-time intervals.
func (j *Job) Intervals() []Interval {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]Interval, len(j.intervals))
	copy(out, j.intervals)
	return out
}

// DepsSatisfied reports whether every dependency reached a passing terminal
// state (Succeeded or Skipped).
func (j *Job) DepsSatisfied() bool {
	for _, d := range j.DependsOn {
		switch d.State() {
		case Succeeded, Skipped:
		default:
			return false
		}
	}
	return true
}

// DepsDoomed reports whether some dependency terminally failed or was
// cancelled, so this job can never become ready.
func (j *Job) DepsDoomed() bool {
	for _, d := range j.DependsOn {
		switch d.State() {
		case Failed, Cancelled:
			return true
		}
	}
	return false
}
