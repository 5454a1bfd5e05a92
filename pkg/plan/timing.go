package plan

import (
	"encoding/json"
	"os"
	"sort"
	"time"
)

// Interval is one wall-time execution window.
type Interval struct {
	Start time.Time
	End   time.Time
}

// MergeIntervals returns the measure of the union of the intervals, so
// overlapping shards of one step are not double-counted.
func MergeIntervals(intervals []Interval) time.Duration {
	if len(intervals) == 0 {
		return 0
	}
	sorted := make([]Interval, len(intervals))
	copy(sorted, intervals)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	var total time.Duration
	cur := sorted[0]
	for _, iv := range sorted[1:] {
		if !iv.Start.After(cur.End) {
			if iv.End.After(cur.End) {
				cur.End = iv.End
			}
			continue
		}
		total += cur.End.Sub(cur.Start)
		cur = iv
	}
	total += cur.End.Sub(cur.Start)
	return total
}

// TimingReport is the JSON timing report written when timing_json is set.
type TimingReport struct {
	Total TimingTotal           `json:"total"`
	Steps map[string]TimingStep `json:"steps"`
}

// TimingTotal holds the whole run's wall time.
type TimingTotal struct {
	WallTimeMS int64 `json:"wall_time_ms"`
}

// TimingStep holds one step's merged wall time.
type TimingStep struct {
	WallTimeMS int64    `json:"wall_time_ms"`
	Profiles   []string `json:"profiles,omitempty"`
}

// BuildTimingReport merges per-job intervals by step name and computes the
// run total from the union of every interval.
func BuildTimingReport(jobs []*Job) *TimingReport {
	byStep := map[string][]Interval{}
	profiles := map[string][]string{}
	var all []Interval

	for _, j := range jobs {
		ivs := j.Intervals()
		if len(ivs) == 0 {
			continue
		}
		byStep[j.Name] = append(byStep[j.Name], ivs...)
		all = append(all, ivs...)
		if len(j.Desc.Step.Profiles) > 0 {
			profiles[j.Name] = j.Desc.Step.Profiles
		}
	}

	report := &TimingReport{
		Total: TimingTotal{WallTimeMS: MergeIntervals(all).Milliseconds()},
		Steps: map[string]TimingStep{},
	}
	for name, ivs := range byStep {
		report.Steps[name] = TimingStep{
			WallTimeMS: MergeIntervals(ivs).Milliseconds(),
			Profiles:   profiles[name],
		}
	}
	return report
}

// Write serializes the report to path.
func (r *TimingReport) Write(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
