package priorities

import (
	"math/rand"
	"testing"
	"time"

	"github.com/lovenda/lovenda/internal/types"
)

var now = time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

func at(days float64) *time.Time {
	t := now.Add(time.Duration(days * 24 * float64(time.Hour)))
	return &t
}

func task(id string, due *time.Time, opts ...func(*types.Task)) types.Task {
	t := types.Task{
		ID:        id,
		WeddingID: "w1",
		Title:     id,
		DueDate:   due,
		Status:    types.StatusPending,
		Priority:  types.PriorityMedium,
		Origin:    types.OriginGenerator,
	}
	for _, opt := range opts {
		opt(&t)
	}
	return t
}

func critical(t *types.Task) { t.IsCritical = true }
func recommended(t *types.Task) { t.Metadata.AIRecommendation = "critical" }
func high(t *types.Task) { t.Priority = types.PriorityHigh }
func done(t *types.Task) { t.SetStatus(types.StatusCompleted) }
func completedFlag(t *types.Task) { t.Completed = true }
func blocked(t *types.Task) { t.SetStatus(types.StatusBlocked) }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		task types.Task
		want Tier
	}{
		{"completed", task("a", at(-3), critical, done), TierNone},
		{"completed flag only", task("a", at(-3), completedFlag), TierNone},
		{"overdue critical", task("a", at(-2), critical), TierOverdueCritical},
		{"overdue recommended critical", task("a", at(-2), recommended), TierOverdueCritical},
		{"critical due now", task("a", at(0), critical), TierCriticalSoon},
		{"critical due in 7 days", task("a", at(7), critical), TierCriticalSoon},
		{"critical due in 7.5 days rounds up to 8", task("a", at(7.5), critical), TierDated},
		{"overdue medium", task("a", at(-0.1)), TierOverdue},
		{"overdue high", task("a", at(-1), high), TierOverdue},
		{"high due in 3 days", task("a", at(3), high), TierHighSoon},
		{"high due in 10 days", task("a", at(10), high), TierDated},
		{"medium due tomorrow", task("a", at(1)), TierDated},
		{"blocked still counts", task("a", at(-1), blocked), TierOverdue},
		{"undated", task("a", nil), TierUndated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(&tt.task, now); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDaysUntil(t *testing.T) {
	tests := []struct {
		days float64
		want int
	}{
		{0, 0},
		{0.01, 1},
		{1, 1},
		{6.5, 7},
		{7, 7},
		{7.01, 8},
		{-0.5, 0},
		{-1.5, -1},
	}
	for _, tt := range tests {
		if got := DaysUntil(*at(tt.days), now); got != tt.want {
			t.Errorf("DaysUntil(%v days) = %d, want %d", tt.days, got, tt.want)
		}
	}
}

func TestSelectNextTaskTiers(t *testing.T) {
	tests := []struct {
		name   string
		tasks  []types.Task
		wantID string
		tier   Tier
	}{
		{
			name: "overdue critical beats everything",
			tasks: []types.Task{
				task("high-soon", at(1), high),
				task("critical-soon", at(2), critical),
				task("overdue", at(-10)),
				task("overdue-critical", at(-1), critical),
			},
			wantID: "overdue-critical",
			tier:   TierOverdueCritical,
		},
		{
			name: "critical soon beats plain overdue",
			tasks: []types.Task{
				task("overdue", at(-10)),
				task("critical-soon", at(5), critical),
			},
			wantID: "critical-soon",
			tier:   TierCriticalSoon,
		},
		{
			name: "overdue beats high soon",
			tasks: []types.Task{
				task("high-soon", at(1), high),
				task("overdue", at(-1)),
			},
			wantID: "overdue",
			tier:   TierOverdue,
		},
		{
			name: "high soon beats earlier medium",
			tasks: []types.Task{
				task("medium", at(0.5)),
				task("high-soon", at(6), high),
			},
			wantID: "high-soon",
			tier:   TierHighSoon,
		},
		{
			name: "earliest dated task",
			tasks: []types.Task{
				task("later", at(90)),
				task("undated", nil),
				task("sooner", at(30)),
			},
			wantID: "sooner",
			tier:   TierDated,
		},
		{
			name: "first undated in input order",
			tasks: []types.Task{
				task("finished", at(-5), critical, done),
				task("second", nil),
				task("first", nil),
			},
			wantID: "second",
			tier:   TierUndated,
		},
		{
			name: "earliest overdue critical wins within tier",
			tasks: []types.Task{
				task("b", at(-1), critical),
				task("a", at(-4), critical),
				task("c", at(-2), recommended),
			},
			wantID: "a",
			tier:   TierOverdueCritical,
		},
		{
			name: "equal due dates break on id",
			tasks: []types.Task{
				task("zeta", at(3), critical),
				task("alpha", at(3), critical),
			},
			wantID: "alpha",
			tier:   TierCriticalSoon,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, tier := SelectNextTaskWithTier(tt.tasks, now)
			if got == nil {
				t.Fatalf("expected %s, got nil", tt.wantID)
			}
			if got.ID != tt.wantID {
				t.Errorf("got %s, want %s", got.ID, tt.wantID)
			}
			if tier != tt.tier {
				t.Errorf("tier = %v, want %v", tier, tt.tier)
			}
		})
	}
}

func TestSelectNextTaskNil(t *testing.T) {
	if got := SelectNextTask(nil, now); got != nil {
		t.Errorf("empty input: expected nil, got %s", got.ID)
	}
	all := []types.Task{task("a", at(-1), done), task("b", nil, done)}
	if got := SelectNextTask(all, now); got != nil {
		t.Errorf("all completed: expected nil, got %s", got.ID)
	}
}

// The overdue critical task wins over an upcoming high priority one
func TestSelectNextTaskOverdueCriticalOverUpcomingHigh(t *testing.T) {
	tasks := []types.Task{
		task("upcoming-high", at(3), high),
		task("overdue-critical", at(-2), critical),
	}
	got := SelectNextTask(tasks, now)
	if got == nil || got.ID != "overdue-critical" {
		t.Fatalf("expected overdue-critical, got %v", got)
	}
}

// A lone undated incomplete task is the fallback answer
func TestSelectNextTaskSingleUndated(t *testing.T) {
	got := SelectNextTask([]types.Task{task("only", nil)}, now)
	if got == nil || got.ID != "only" {
		t.Fatalf("expected only, got %v", got)
	}
}

func TestSelectNextTaskIgnoresInputOrder(t *testing.T) {
	base := []types.Task{
		task("a", at(-3)),
		task("b", at(-3)),
		task("c", at(2), high),
		task("d", at(2), critical),
		task("e", at(40)),
		task("f", at(-1), critical, done),
		task("g", nil),
		task("h", at(2), critical),
	}
	want := SelectNextTask(base, now)
	if want == nil || want.ID != "d" {
		t.Fatalf("expected d, got %v", want)
	}

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 50; i++ {
		shuffled := append([]types.Task(nil), base...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		if got := SelectNextTask(shuffled, now); got == nil || got.ID != want.ID {
			t.Fatalf("shuffle %d: got %v, want %s", i, got, want.ID)
		}
	}
}

func TestSelectNextTaskReturnsCopy(t *testing.T) {
	tasks := []types.Task{task("a", at(1), critical)}
	got := SelectNextTask(tasks, now)
	got.Title = "changed"
	*got.DueDate = now.AddDate(1, 0, 0)

	if tasks[0].Title != "a" || !tasks[0].DueDate.Equal(*at(1)) {
		t.Error("SelectNextTask must not alias its input")
	}
}
