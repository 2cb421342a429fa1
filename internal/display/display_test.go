package display

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"github.com/lovenda/lovenda/internal/events"
	"github.com/lovenda/lovenda/internal/planning"
	"github.com/lovenda/lovenda/internal/priorities"
	"github.com/lovenda/lovenda/internal/types"
)

var now = time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

func init() {
	color.NoColor = true
}

func in(days int) *time.Time {
	t := now.AddDate(0, 0, days)
	return &t
}

func TestDue(t *testing.T) {
	tests := []struct {
		due  *time.Time
		want string
	}{
		{nil, "no date"},
		{in(12), "in 12d"},
		{in(-3), "3d overdue"},
		{&now, "due today"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Due(tt.due, now))
	}
	earlier := now.Add(-2 * time.Hour)
	assert.Equal(t, "due today (passed)", Due(&earlier, now))
}

func TestTaskLine(t *testing.T) {
	task := types.Task{
		ID:         "3f2a9c1e-0000-0000-0000-000000000000",
		Title:      "Book the venue",
		Category:   "venue",
		DueDate:    in(-2),
		Priority:   types.PriorityHigh,
		IsCritical: true,
		Tags:       []types.Tag{{Color: "red", Label: "deposit"}},
		Subtasks:   []types.Subtask{{ID: "s1", Title: "Call venue", Completed: true}, {ID: "s2", Title: "Sign contract"}},
	}
	task.SetStatus(types.StatusInProgress)

	var buf bytes.Buffer
	Task(&buf, &task, now)
	out := buf.String()

	assert.Contains(t, out, "◐ Book the venue [venue]")
	assert.Contains(t, out, "2026-10-13, 2d overdue")
	assert.Contains(t, out, "critical high #deposit")
	assert.Contains(t, out, "3f2a9c1e")
	assert.NotContains(t, out, "3f2a9c1e-0000")
	assert.Contains(t, out, "[x] Call venue")
	assert.Contains(t, out, "[ ] Sign contract")
}

func TestCompletedTaskDropsFlags(t *testing.T) {
	task := types.Task{ID: "a", Title: "Done", IsCritical: true, Priority: types.PriorityHigh}
	task.SetStatus(types.StatusCompleted)

	var buf bytes.Buffer
	Task(&buf, &task, now)
	assert.Contains(t, buf.String(), "✓ Done")
	assert.NotContains(t, buf.String(), "critical")
}

func TestNext(t *testing.T) {
	var buf bytes.Buffer
	Next(&buf, nil, priorities.TierNone, now)
	assert.Contains(t, buf.String(), "Nothing left to do")

	buf.Reset()
	task := types.Task{ID: "a", Title: "Send invitations", DueDate: in(3), IsCritical: true,
		Notes: "use the good paper", Metadata: types.TaskMetadata{PriorityReason: "guests need notice"}}
	Next(&buf, &task, priorities.TierCriticalSoon, now)
	out := buf.String()
	assert.Contains(t, out, "Critical and due this week")
	assert.Contains(t, out, "why: guests need notice")
	assert.Contains(t, out, "notes: use the good paper")
}

func TestRoadmapMarksCurrentPhase(t *testing.T) {
	tasks := []types.Task{
		{ID: "far", Title: "Choose theme", DueDate: in(300), Status: types.StatusPending},
		{ID: "soon", Title: "Final fitting", DueDate: in(10), Status: types.StatusPending},
	}
	phases := planning.BucketByPhase(tasks, now)
	current := planning.CurrentPhase(phases, tasks, now)

	var buf bytes.Buffer
	Roadmap(&buf, phases, current, now)
	out := buf.String()

	lines := strings.Split(out, "\n")
	var headers []string
	for _, l := range lines {
		if strings.Contains(l, "open)") {
			headers = append(headers, l)
		}
	}
	assert.Equal(t, []string{"12–9 months out (1/1 open)", "last month (1/1 open) ← you are here"}, headers)

	buf.Reset()
	Roadmap(&buf, nil, nil, now)
	assert.Contains(t, buf.String(), "No tasks yet")
}

func TestProgress(t *testing.T) {
	var buf bytes.Buffer
	Progress(&buf, planning.Progress{Total: 10, Completed: 4, InProgress: 1, Blocked: 2, Overdue: 1, CriticalOpen: 3})
	assert.Equal(t, "Progress: 4/10 done (40%), 1 in progress, 2 blocked, 1 overdue, 3 critical open\n", buf.String())
}

func TestContext(t *testing.T) {
	pc := types.DefaultPlanningContext()
	pc.City = "Sevilla"
	pc.WeddingDate = in(200)

	var buf bytes.Buffer
	Context(&buf, pc)
	out := buf.String()
	assert.Contains(t, out, "ceremony")
	assert.Contains(t, out, "civil")
	assert.Contains(t, out, "Sevilla")
	assert.Contains(t, out, "2027-05-03")
}

func TestPlan(t *testing.T) {
	meta := &types.TemplateMetadata{
		WeddingID:      "w1",
		Context:        types.DefaultPlanningContext(),
		Summary:        "Short engagement, book the venue first.",
		CriticalBlocks: []string{"Book venue", "Hire photographer"},
		OptionalBlocks: []string{"Welcome bags"},
		TimelineAdjustments: types.TimelineAdjustments{
			Recommendation: "Compress the early phases",
			UrgentPhases:   []string{"12 months", "9 months"},
		},
		GeneratedAt: now,
		UsedAI:      true,
	}

	var buf bytes.Buffer
	Plan(&buf, meta)
	out := buf.String()
	assert.Contains(t, out, "Plan for w1")
	assert.Contains(t, out, "from AI")
	assert.Contains(t, out, "Short engagement, book the venue first.")
	assert.Contains(t, out, "Critical\n  • Book venue\n  • Hire photographer\n")
	assert.Contains(t, out, "Optional\n  • Welcome bags\n")
	assert.Contains(t, out, "Timeline: Compress the early phases")
	assert.Contains(t, out, "Urgent: 12 months, 9 months")

	meta.UsedAI = false
	meta.OptionalBlocks = nil
	buf.Reset()
	Plan(&buf, meta)
	assert.Contains(t, buf.String(), "from built-in checklist")
	assert.NotContains(t, buf.String(), "Optional")

	buf.Reset()
	Plan(&buf, nil)
	assert.Contains(t, buf.String(), "No plan yet")
}

func TestEventMetadata(t *testing.T) {
	tests := []struct {
		name  string
		event *events.TaskEvent
		want  string
	}{
		{
			name: "status change",
			event: &events.TaskEvent{Type: events.EventTypeStatusChanged, Actor: "couple",
				Data: map[string]interface{}{"from": "pending", "to": "completed"}},
			want: "pending → completed | couple",
		},
		{
			name: "fields decoded from JSON",
			event: &events.TaskEvent{Type: events.EventTypeTaskUpdated, Actor: "couple",
				Data: map[string]interface{}{"fields": []interface{}{"notes", "tags"}}},
			want: "notes, tags | couple",
		},
		{
			name: "regenerated",
			event: &events.TaskEvent{Type: events.EventTypePlanRegenerated,
				Data: map[string]interface{}{"created": float64(20), "removed": float64(3), "skipped": float64(0), "used_ai": true}},
			want: "20 created | 3 removed | 0 skipped | ai",
		},
		{
			name: "generation failed",
			event: &events.TaskEvent{Type: events.EventTypePlanGenerationFailed,
				Data: map[string]interface{}{"reason": "timeout", "error": "context deadline exceeded"}},
			want: "timeout | context deadline exceeded",
		},
		{
			name:  "nil data",
			event: &events.TaskEvent{Type: events.EventTypeTaskCreated},
			want:  "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, eventMetadata(tt.event))
		})
	}
}

func TestEventTwoLineFormat(t *testing.T) {
	ev := events.NewTaskEvent(events.EventTypeTaskCreated, "w1", "t1", "couple", events.SeverityInfo, "created \"Book DJ\"", nil)
	var buf bytes.Buffer
	Event(&buf, ev)
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], "t1 task_created: created \"Book DJ\"")
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", truncateString("short", 10))
	assert.Equal(t, "abcdefg...", truncateString("abcdefghijklmnop", 10))
	assert.Equal(t, "ñañ...", truncateString("ñañañañañ", 6))
}
