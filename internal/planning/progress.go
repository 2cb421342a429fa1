package planning

import (
	"time"

	"github.com/lovenda/lovenda/internal/types"
)

// Progress summarizes how far a wedding's checklist has come
type Progress struct {
	Total        int `json:"total"`
	Completed    int `json:"completed"`
	InProgress   int `json:"in_progress"`
	Blocked      int `json:"blocked"`
	CriticalOpen int `json:"critical_open"`
	Overdue      int `json:"overdue"`
}

// Percent returns completed over total, rounded down; 0 for an empty list
func (p Progress) Percent() int {
	if p.Total == 0 {
		return 0
	}
	return p.Completed * 100 / p.Total
}

// Summarize counts tasks by state
func Summarize(tasks []types.Task, now time.Time) Progress {
	var p Progress
	for i := range tasks {
		t := &tasks[i]
		p.Total++
		if t.Completed {
			p.Completed++
			continue
		}
		switch t.Status {
		case types.StatusInProgress:
			p.InProgress++
		case types.StatusBlocked:
			p.Blocked++
		}
		if t.Critical() {
			p.CriticalOpen++
		}
		if t.DueDate != nil && t.DueDate.Before(now) {
			p.Overdue++
		}
	}
	return p
}
