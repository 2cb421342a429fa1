// Package planning groups a wedding's tasks into the roadmap phases shown to
// the couple and summarizes progress through them.
package planning

import (
	"github.com/lovenda/lovenda/internal/types"
)

// PhaseID identifies a roadmap phase
type PhaseID string

const (
	// PhaseTwelveToNine covers tasks due 270 or more days out, including
	// anything beyond a year.
	PhaseTwelveToNine PhaseID = "12-9-months"

	// PhaseNineToSix covers tasks due in [180, 270) days.
	PhaseNineToSix PhaseID = "9-6-months"

	// PhaseSixToThree covers tasks due in [90, 180) days.
	PhaseSixToThree PhaseID = "6-3-months"

	// PhaseThreeToOne covers tasks due in [30, 90) days.
	PhaseThreeToOne PhaseID = "3-1-months"

	// PhaseLastMonth covers tasks due in [0, 30) days.
	PhaseLastMonth PhaseID = "last-month"

	// PhaseOverdue covers tasks whose due date has passed.
	PhaseOverdue PhaseID = "overdue"

	// PhaseUndated covers tasks without a due date.
	PhaseUndated PhaseID = "undated"
)

// Phase is one roadmap bucket with its tasks sorted by due date
type Phase struct {
	// ID is the stable phase identifier.
	ID PhaseID `json:"id"`

	// Title is the label shown on the roadmap.
	Title string `json:"title"`

	// Tasks are copies of the tasks in this window, earliest due first.
	Tasks []types.Task `json:"tasks"`
}

// Contains reports whether a task with the given id is in the phase
func (p *Phase) Contains(taskID string) bool {
	for i := range p.Tasks {
		if p.Tasks[i].ID == taskID {
			return true
		}
	}
	return false
}

// Open counts the incomplete tasks in the phase
func (p *Phase) Open() int {
	n := 0
	for i := range p.Tasks {
		if !p.Tasks[i].Completed {
			n++
		}
	}
	return n
}

// window is a half-open [min, max) range of days until due
type window struct {
	id    PhaseID
	title string
	min   int
	max   int
}

// roadmap lists the dated windows in display order. The first window has no
// upper bound and the overdue window no lower bound.
var roadmap = []window{
	{PhaseTwelveToNine, "12–9 months out", 270, maxDays},
	{PhaseNineToSix, "9–6 months out", 180, 270},
	{PhaseSixToThree, "6–3 months out", 90, 180},
	{PhaseThreeToOne, "3–1 months out", 30, 90},
	{PhaseLastMonth, "last month", 0, 30},
	{PhaseOverdue, "overdue", minDays, 0},
}

const (
	maxDays = int(^uint(0) >> 1)
	minDays = -maxDays - 1
)

const undatedTitle = "undated"
