package planning

import (
	"math"
	"sort"
	"time"

	"github.com/lovenda/lovenda/internal/priorities"
	"github.com/lovenda/lovenda/internal/types"
)

// DaysOut returns the whole days from now until due, rounded down. A task due
// later today is 0 days out; one due an hour ago is -1.
func DaysOut(due, now time.Time) int {
	d := math.Floor(due.Sub(now).Hours() / 24)
	if d >= float64(maxDays) {
		return maxDays
	}
	if d <= float64(minDays) {
		return minDays
	}
	return int(d)
}

// PhaseFor returns the phase a due date falls into; nil means undated
func PhaseFor(due *time.Time, now time.Time) PhaseID {
	if due == nil {
		return PhaseUndated
	}
	d := DaysOut(*due, now)
	for _, w := range roadmap {
		if d >= w.min && (d < w.max || w.max == maxDays) {
			return w.id
		}
	}
	return PhaseOverdue
}

// BucketByPhase groups tasks into roadmap phases. Every task lands in exactly
// one phase; empty phases are omitted. Phases come in roadmap order (furthest
// out first, then overdue, then undated) and tasks within a phase are sorted
// by due date, then id. Completed tasks are included so progress can be shown.
func BucketByPhase(tasks []types.Task, now time.Time) []Phase {
	buckets := make(map[PhaseID][]types.Task)
	for i := range tasks {
		id := PhaseFor(tasks[i].DueDate, now)
		buckets[id] = append(buckets[id], tasks[i].Clone())
	}

	phases := make([]Phase, 0, len(roadmap)+1)
	for _, w := range roadmap {
		if b := buckets[w.id]; len(b) > 0 {
			sortByDue(b)
			phases = append(phases, Phase{ID: w.id, Title: w.title, Tasks: b})
		}
	}
	if b := buckets[PhaseUndated]; len(b) > 0 {
		sortByDue(b)
		phases = append(phases, Phase{ID: PhaseUndated, Title: undatedTitle, Tasks: b})
	}
	return phases
}

func sortByDue(tasks []types.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i].DueDate, tasks[j].DueDate
		switch {
		case a == nil && b == nil:
			return tasks[i].ID < tasks[j].ID
		case a == nil:
			return false
		case b == nil:
			return true
		case !a.Equal(*b):
			return a.Before(*b)
		default:
			return tasks[i].ID < tasks[j].ID
		}
	})
}

// CurrentPhase returns the phase holding the task the priority resolver would
// pick, else the first phase with an incomplete task, else nil.
func CurrentPhase(phases []Phase, tasks []types.Task, now time.Time) *Phase {
	if next := priorities.SelectNextTask(tasks, now); next != nil {
		for i := range phases {
			if phases[i].Contains(next.ID) {
				return &phases[i]
			}
		}
	}
	for i := range phases {
		if phases[i].Open() > 0 {
			return &phases[i]
		}
	}
	return nil
}
