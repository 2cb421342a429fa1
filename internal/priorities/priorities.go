// Package priorities picks the single task a couple should work on next.
//
// Incomplete tasks are ranked by tier, and within a tier by earliest due date
// (then id, so the input order of dated tasks never changes the answer):
//
//  1. overdue and critical
//  2. critical and due within the next 7 days
//  3. overdue
//  4. high priority and due within the next 7 days
//  5. any task with a due date
//  6. the first incomplete task in input order
package priorities

import (
	"math"
	"time"

	"github.com/lovenda/lovenda/internal/types"
)

// SoonDays is the window, in days, that counts as "due soon"
const SoonDays = 7

// Tier is the rank a task falls into. Lower is more urgent; TierNone means
// the task is not a candidate.
type Tier int

const (
	TierNone Tier = iota
	TierOverdueCritical
	TierCriticalSoon
	TierOverdue
	TierHighSoon
	TierDated
	TierUndated
)

func (t Tier) String() string {
	switch t {
	case TierOverdueCritical:
		return "overdue and critical"
	case TierCriticalSoon:
		return "critical and due this week"
	case TierOverdue:
		return "overdue"
	case TierHighSoon:
		return "high priority and due this week"
	case TierDated:
		return "next by due date"
	case TierUndated:
		return "next undated task"
	default:
		return "none"
	}
}

// DaysUntil returns the whole days from now until due, rounded up. A task due
// later today counts as 1, one due exactly now as 0.
func DaysUntil(due, now time.Time) int {
	return int(math.Ceil(due.Sub(now).Hours() / 24))
}

// Classify returns the tier of a single task
func Classify(task *types.Task, now time.Time) Tier {
	if task.Completed || task.Status == types.StatusCompleted {
		return TierNone
	}
	if task.DueDate == nil {
		return TierUndated
	}

	overdue := task.DueDate.Before(now)
	soon := !overdue && DaysUntil(*task.DueDate, now) <= SoonDays
	critical := task.Critical()

	switch {
	case overdue && critical:
		return TierOverdueCritical
	case critical && soon:
		return TierCriticalSoon
	case overdue:
		return TierOverdue
	case task.Priority == types.PriorityHigh && soon:
		return TierHighSoon
	default:
		return TierDated
	}
}

// SelectNextTask returns a copy of the most urgent incomplete task, or nil if
// every task is completed. It never mutates tasks.
func SelectNextTask(tasks []types.Task, now time.Time) *types.Task {
	task, _ := SelectNextTaskWithTier(tasks, now)
	return task
}

// SelectNextTaskWithTier is SelectNextTask that also reports why the task won
func SelectNextTaskWithTier(tasks []types.Task, now time.Time) (*types.Task, Tier) {
	best := -1
	bestTier := TierNone

	for i := range tasks {
		tier := Classify(&tasks[i], now)
		if tier == TierNone {
			continue
		}
		if best < 0 || tier < bestTier || (tier == bestTier && before(&tasks[i], &tasks[best])) {
			best, bestTier = i, tier
		}
	}

	if best < 0 {
		return nil, TierNone
	}
	c := tasks[best].Clone()
	return &c, bestTier
}

// before orders two tasks of the same tier. Undated tasks keep input order.
func before(a, b *types.Task) bool {
	if a.DueDate == nil || b.DueDate == nil {
		return false
	}
	if !a.DueDate.Equal(*b.DueDate) {
		return a.DueDate.Before(*b.DueDate)
	}
	return a.ID < b.ID
}
