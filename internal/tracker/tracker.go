// Package tracker maintains per-task step completion: the current completion
// set and the append-only history of completion events.
package tracker

import (
	"sort"
	"time"

	"sellerops/internal/models"
)

// MarkStepCompleted records a completion event for stepIndex. The completion
// set is idempotent; the log always grows by one entry. The index is not
// range-checked against the flow's steps.
func MarkStepCompleted(task models.Task, stepIndex int, note string, now time.Time) models.Task {
	out := task.Clone()
	out.StepsCompleted = addIndex(out.StepsCompleted, stepIndex)
	out.StepExecutionLog = append(out.StepExecutionLog, models.StepLogEntry{
		StepIndex:   stepIndex,
		CompletedAt: now,
		Log:         note,
	})
	if out.Data != nil {
		for i := range out.Data.FlowSteps {
			if out.Data.FlowSteps[i].Order == stepIndex {
				out.Data.FlowSteps[i].Completed = true
			}
		}
	}
	out.UpdatedAt = now
	return out
}

// ClearCompletions empties the completion set. The log is never truncated.
func ClearCompletions(task models.Task, now time.Time) models.Task {
	out := task.Clone()
	out.StepsCompleted = []int{}
	if out.Data != nil {
		for i := range out.Data.FlowSteps {
			out.Data.FlowSteps[i].Completed = false
		}
	}
	out.UpdatedAt = now
	return out
}

// RegenerateSteps replaces the embedded flow steps and blocks. Completions are
// cleared first so stale indices never point into the new step list.
func RegenerateSteps(task models.Task, steps []models.Step, blocks []models.Block, now time.Time) models.Task {
	out := ClearCompletions(task, now)
	if out.Data == nil {
		out.Data = &models.TaskData{}
	}
	out.Data.FlowSteps = models.CloneSteps(steps)
	for i := range out.Data.FlowSteps {
		out.Data.FlowSteps[i].Completed = false
	}
	out.Data.FlowBlocks = models.CloneBlocks(blocks)
	return out
}

// IsCompleted reports whether stepIndex is in the completion set. The stored
// set may come from other writers, so no ordering is assumed.
func IsCompleted(task models.Task, stepIndex int) bool {
	for _, idx := range task.StepsCompleted {
		if idx == stepIndex {
			return true
		}
	}
	return false
}

// Progress returns how many of the task's flow steps are completed and the
// total step count. Out-of-range indices in the set are not counted.
func Progress(task models.Task) (done, total int) {
	if task.Data != nil {
		total = len(task.Data.FlowSteps)
	}
	for _, idx := range normalize(task.StepsCompleted) {
		if idx >= 0 && idx < total {
			done++
		}
	}
	return done, total
}

// DedupeLog drops log entries that repeat the same step index within the same
// window-sized time bucket, keeping the first of each. Useful for callers that
// retry MarkStepCompleted over an unreliable network.
func DedupeLog(entries []models.StepLogEntry, window time.Duration) []models.StepLogEntry {
	if window <= 0 {
		return append([]models.StepLogEntry(nil), entries...)
	}
	type key struct {
		index  int
		bucket int64
	}
	seen := make(map[key]bool, len(entries))
	out := make([]models.StepLogEntry, 0, len(entries))
	for _, e := range entries {
		k := key{index: e.StepIndex, bucket: e.CompletedAt.Truncate(window).UnixNano()}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, e)
	}
	return out
}

// addIndex inserts idx into the completion set, returning a sorted unique copy
func addIndex(set []int, idx int) []int {
	set = normalize(set)
	i := sort.SearchInts(set, idx)
	if i < len(set) && set[i] == idx {
		return set
	}
	out := make([]int, 0, len(set)+1)
	out = append(out, set[:i]...)
	out = append(out, idx)
	out = append(out, set[i:]...)
	return out
}

// normalize returns a sorted copy of set with duplicates removed
func normalize(set []int) []int {
	out := append([]int{}, set...)
	sort.Ints(out)
	n := 0
	for i, v := range out {
		if i > 0 && v == out[n-1] {
			continue
		}
		out[n] = v
		n++
	}
	return out[:n]
}
