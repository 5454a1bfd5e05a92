package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/hkdev/hk/pkg/console"
	"github.com/hkdev/hk/pkg/plan"
)

// StepReport is one step's folded result in the machine-readable report.
type StepReport struct {
	Name       string `json:"name"`
	State      string `json:"state"`
	SkipReason string `json:"skip_reason,omitempty"`
	Files      int    `json:"files"`
	WallTimeMS int64  `json:"wall_time_ms"`
	Output     string `json:"output,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Report is the hook run rendered for --json consumers.
type Report struct {
	Hook     string       `json:"hook"`
	Result   string       `json:"result"`
	Steps    []StepReport `json:"steps"`
	StashErr string       `json:"stash_error,omitempty"`
}

// BuildReport folds the outcome per step, in step definition order so
// output is deterministic regardless of completion order.
func BuildReport(outcome *Outcome) *Report {
	report := &Report{Hook: outcome.Plan.Hook.Name, Result: "succeeded"}
	if outcome.Err != nil {
		report.Result = "failed"
		if errorsIsCancel(outcome.Err) {
			report.Result = "cancelled"
		}
	}
	if outcome.StashErr != nil {
		report.StashErr = outcome.StashErr.Error()
	}

	for _, name := range outcome.Plan.Hook.StepNames() {
		jobs := jobsForStep(outcome.Jobs, name)
		if len(jobs) == 0 {
			continue
		}
		sr := StepReport{Name: name, State: foldStates(jobs).String()}
		var intervals []plan.Interval
		for _, j := range jobs {
			sr.Files += len(j.Desc.Files)
			intervals = append(intervals, j.Intervals()...)
			if reason := j.SkippedBecause(); reason != "" && sr.SkipReason == "" {
				sr.SkipReason = string(reason)
			}
			if out := j.Output(); out != "" && j.State() == plan.Failed {
				sr.Output = out
			}
			if err := j.Err(); err != nil && sr.Error == "" {
				sr.Error = err.Error()
			}
		}
		sr.WallTimeMS = plan.MergeIntervals(intervals).Milliseconds()
		report.Steps = append(report.Steps, sr)
	}
	return report
}

func jobsForStep(jobs []*plan.Job, name string) []*plan.Job {
	var out []*plan.Job
	for _, j := range jobs {
		if j.Name == name {
			out = append(out, j)
		}
	}
	return out
}

// foldStates reduces a step's shard states: any failure wins, then
// cancellation; a step whose shards were all skipped is skipped, and any
// other mix counts as success.
func foldStates(jobs []*plan.Job) plan.State {
	state := plan.Succeeded
	allSkipped := true
	for _, j := range jobs {
		s := j.State()
		if s != plan.Skipped {
			allSkipped = false
		}
		switch s {
		case plan.Failed:
			return plan.Failed
		case plan.Cancelled:
			state = plan.Cancelled
		}
	}
	if allSkipped {
		return plan.Skipped
	}
	return state
}

// RenderSummary prints the human-readable end-of-run summary, one line per
// step in definition order, with failed output expanded beneath.
func RenderSummary(report *Report, displaySkipReasons bool, hidden map[string]bool) string {
	var b strings.Builder
	for _, step := range report.Steps {
		if hidden[step.Name] {
			continue
		}
		detail := ""
		if step.WallTimeMS > 0 {
			detail = fmt.Sprintf("(%s)", (time.Duration(step.WallTimeMS) * time.Millisecond).Round(time.Millisecond))
		}
		switch step.State {
		case "skipped":
			if !displaySkipReasons {
				continue
			}
			b.WriteString(console.FormatStepResult(step.Name, "skipped", step.SkipReason))
		case "failed":
			b.WriteString(console.FormatStepResult(step.Name, "failed", detail))
			if step.Output != "" {
				b.WriteString("\n")
				b.WriteString(indent(strings.TrimRight(step.Output, "\n"), "  "))
			}
		case "cancelled":
			b.WriteString(console.FormatStepResult(step.Name, "cancelled", ""))
		default:
			b.WriteString(console.FormatStepResult(step.Name, "succeeded", detail))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
