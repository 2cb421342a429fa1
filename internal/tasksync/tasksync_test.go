package tasksync

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lovenda/lovenda/internal/ai"
	"github.com/lovenda/lovenda/internal/events"
	"github.com/lovenda/lovenda/internal/storage"
	"github.com/lovenda/lovenda/internal/template"
	"github.com/lovenda/lovenda/internal/types"
)

func newStore(t *testing.T) storage.Storage {
	t.Helper()
	store, err := storage.NewStorage(context.Background(), &storage.Config{Path: filepath.Join(t.TempDir(), "lovenda.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// generatorFunc adapts a function to ai.Generator
type generatorFunc func(ctx context.Context, pc types.PlanningContext) (*types.TemplateResult, error)

func (f generatorFunc) GeneratePlan(ctx context.Context, pc types.PlanningContext) (*types.TemplateResult, error) {
	return f(ctx, pc)
}

// plan returns n blocks, the first `critical` of them critical
func plan(n, critical int) *types.TemplateResult {
	result := &types.TemplateResult{Summary: "test plan", UsedAI: true}
	for i := 0; i < n; i++ {
		prio := types.BlockPriorityMedium
		if i < critical {
			prio = types.BlockPriorityCritical
		}
		result.Blocks = append(result.Blocks, types.TaskTemplateBlock{
			Title:                  fmt.Sprintf("Block %02d", i),
			Category:               "planning",
			SuggestedDueOffsetDays: 10 * i,
			Priority:               prio,
			AIReason:               "because",
		})
	}
	return result
}

func userTask(t *testing.T, store storage.Storage, weddingID, title string) *types.Task {
	t.Helper()
	task := &types.Task{WeddingID: weddingID, Title: title, Category: "planning"}
	require.NoError(t, store.CreateTask(context.Background(), task, "test"))
	return task
}

// contentKey identifies a task by everything except its id and timestamps
func contentKeys(tasks []types.Task) []string {
	keys := make([]string, 0, len(tasks))
	for _, t := range tasks {
		due := "none"
		if t.DueDate != nil {
			due = t.DueDate.UTC().Format(time.RFC3339)
		}
		keys = append(keys, fmt.Sprintf("%s|%s|%s|%s|%v|%s|%s|%s",
			t.Title, t.Category, t.Status, t.Priority, t.IsCritical, t.Origin, due, t.Metadata.AIRecommendation))
	}
	sort.Strings(keys)
	return keys
}

func TestApplyTemplateMapsBlocks(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	sync := NewSynchronizer(store, nil)

	ref := time.Date(2027, 6, 12, 0, 0, 0, 0, time.UTC)
	result := &types.TemplateResult{Blocks: []types.TaskTemplateBlock{
		{Title: "  Book the venue ", Category: "venue", SuggestedDueOffsetDays: 300, Priority: types.BlockPriorityCritical, AIReason: "venues go fast"},
		{Title: "Send thank-you notes", Category: "after", SuggestedDueOffsetDays: -30, Priority: types.BlockPriorityLow},
		{Title: "Odd priority", SuggestedDueOffsetDays: 0, Priority: "urgent"},
		{Title: "   ", Priority: types.BlockPriorityHigh},
	}}

	res, err := sync.ApplyTemplate(ctx, "w1", result, Options{WeddingReferenceDate: &ref})
	require.NoError(t, err)
	assert.Equal(t, ApplyResult{Created: 3}, res)

	tasks, err := store.ListTasks(ctx, "w1")
	require.NoError(t, err)
	require.Len(t, tasks, 3)

	venue := tasks[0]
	assert.Equal(t, "Book the venue", venue.Title)
	assert.Equal(t, "venue", venue.Category)
	assert.Equal(t, types.PriorityHigh, venue.Priority)
	assert.True(t, venue.IsCritical)
	assert.Equal(t, "critical", venue.Metadata.AIRecommendation)
	assert.Equal(t, "venues go fast", venue.Metadata.PriorityReason)
	assert.Equal(t, types.OriginGenerator, venue.Origin)
	assert.Equal(t, types.StatusPending, venue.Status)
	assert.False(t, venue.Completed)
	require.NotNil(t, venue.DueDate)
	assert.True(t, ref.AddDate(0, 0, -300).Equal(*venue.DueDate))

	thanks := tasks[1]
	assert.Equal(t, types.PriorityLow, thanks.Priority)
	assert.False(t, thanks.IsCritical)
	assert.True(t, ref.AddDate(0, 0, 30).Equal(*thanks.DueDate))

	odd := tasks[2]
	assert.Equal(t, types.PriorityMedium, odd.Priority)
	assert.Equal(t, "medium", odd.Metadata.AIRecommendation)
}

func TestApplyTemplateWithoutReferenceLeavesDatesUnset(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	_, err := NewSynchronizer(store, nil).ApplyTemplate(ctx, "w1", plan(3, 0), Options{})
	require.NoError(t, err)

	tasks, err := store.ListTasks(ctx, "w1")
	require.NoError(t, err)
	for _, task := range tasks {
		assert.Nil(t, task.DueDate)
	}
}

func TestApplyTemplateRejectsMissingPlans(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	existing := userTask(t, store, "w1", "Keep me")
	sync := NewSynchronizer(store, nil)

	tests := []struct {
		name   string
		result *types.TemplateResult
		want   error
	}{
		{"nil result", nil, ErrNoTemplate},
		{"no blocks", &types.TemplateResult{}, ErrEmptyTemplate},
		{"only blank titles", &types.TemplateResult{Blocks: []types.TaskTemplateBlock{{Title: " "}}}, ErrEmptyTemplate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sync.ApplyTemplate(ctx, "w1", tt.result, Options{ClearPrevious: true})
			assert.ErrorIs(t, err, tt.want)
		})
	}

	tasks, err := store.ListTasks(ctx, "w1")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, existing.ID, tasks[0].ID)
}

func TestClearPreviousKeepsUserTasks(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	sync := NewSynchronizer(store, nil)
	user := userTask(t, store, "w1", "Our own idea")

	_, err := sync.ApplyTemplate(ctx, "w1", plan(5, 1), Options{ClearPrevious: true})
	require.NoError(t, err)
	res, err := sync.ApplyTemplate(ctx, "w1", plan(2, 0), Options{ClearPrevious: true})
	require.NoError(t, err)
	assert.Equal(t, 5, res.Removed)
	assert.Equal(t, 2, res.Created)

	tasks, err := store.ListTasks(ctx, "w1")
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, user.ID, tasks[0].ID)
}

func TestDestructiveApplyIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	sync := NewSynchronizer(store, nil)
	userTask(t, store, "w1", "Our own idea")
	ref := time.Date(2027, 6, 12, 0, 0, 0, 0, time.UTC)
	opts := Options{ClearPrevious: true, WeddingReferenceDate: &ref}

	_, err := sync.ApplyTemplate(ctx, "w1", plan(8, 2), opts)
	require.NoError(t, err)
	first, err := store.ListTasks(ctx, "w1")
	require.NoError(t, err)

	_, err = sync.ApplyTemplate(ctx, "w1", plan(8, 2), opts)
	require.NoError(t, err)
	second, err := store.ListTasks(ctx, "w1")
	require.NoError(t, err)

	assert.Equal(t, contentKeys(first), contentKeys(second))
}

func TestAdditiveApplyDuplicatesUnlessDeduped(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	sync := NewSynchronizer(store, nil)

	_, err := sync.ApplyTemplate(ctx, "w1", plan(4, 0), Options{})
	require.NoError(t, err)
	_, err = sync.ApplyTemplate(ctx, "w1", plan(4, 0), Options{})
	require.NoError(t, err)
	tasks, err := store.ListTasks(ctx, "w1")
	require.NoError(t, err)
	assert.Len(t, tasks, 8)

	// Title and category compare case and whitespace insensitively.
	more := plan(6, 0)
	more.Blocks[0].Title = "  block   00 "
	more.Blocks = append(more.Blocks, more.Blocks[5])
	res, err := sync.ApplyTemplate(ctx, "w1", more, Options{Dedupe: true})
	require.NoError(t, err)
	assert.Equal(t, ApplyResult{Created: 2, Skipped: 5}, res)

	tasks, err = store.ListTasks(ctx, "w1")
	require.NoError(t, err)
	assert.Len(t, tasks, 10)
}

func TestApplyRecordsMetadataAndEvent(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	pc := types.DefaultPlanningContext()
	pc.GuestCount = 42

	result := plan(3, 1)
	result.CriticalBlocks = []string{"Block 00"}
	result.TimelineAdjustments.UrgentPhases = []string{"venue"}
	_, err := NewSynchronizer(store, nil).ApplyTemplate(ctx, "w1", result, Options{ClearPrevious: true, Context: pc, Actor: "ana"})
	require.NoError(t, err)

	meta, err := store.GetTemplateMetadata(ctx, "w1")
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, 42, meta.Context.GuestCount)
	assert.Equal(t, []string{"Block 00"}, meta.CriticalBlocks)
	assert.Equal(t, []string{"venue"}, meta.TimelineAdjustments.UrgentPhases)
	assert.True(t, meta.UsedAI)

	evs, err := store.GetTaskEvents(ctx, events.EventFilter{WeddingID: "w1", Type: events.EventTypePlanRegenerated})
	require.NoError(t, err)
	require.Len(t, evs, 1)
	assert.Equal(t, "ana", evs[0].Actor)
	data, err := evs[0].GetPlanRegeneratedData()
	require.NoError(t, err)
	assert.Equal(t, 3, data.Created)
	assert.True(t, data.ClearPrevious)
}

func TestScenarioReligiousHighBudgetPlan(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	var seen types.PlanningContext
	gen := generatorFunc(func(_ context.Context, pc types.PlanningContext) (*types.TemplateResult, error) {
		seen = pc
		return plan(20, 3), nil
	})
	r, err := NewRegenerator(RegeneratorConfig{Store: store, Generator: gen})
	require.NoError(t, err)

	out, err := r.Regenerate(ctx, Request{
		WeddingID: "w1",
		Profile: map[string]any{
			"ceremonyType":   "religious",
			"budgetTier":     "high",
			"leadTimeMonths": 6,
			"guestCount":     150,
		},
		ClearPrevious: true,
	})
	require.NoError(t, err)
	assert.Equal(t, types.CeremonyReligious, seen.CeremonyType)
	assert.Equal(t, types.BudgetHigh, seen.BudgetTier)
	assert.Equal(t, 6, seen.LeadTimeMonths)
	assert.Equal(t, 150, seen.GuestCount)
	assert.Equal(t, 20, out.Applied.Created)

	tasks, err := store.ListTasks(ctx, "w1")
	require.NoError(t, err)
	assert.Len(t, tasks, 20)
	critical := 0
	for _, task := range tasks {
		if task.IsCritical {
			critical++
		}
	}
	assert.Equal(t, 3, critical)
}

func TestScenarioTimeoutLeavesStoreUntouched(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	sync := NewSynchronizer(store, nil)
	_, err := sync.ApplyTemplate(ctx, "w1", plan(4, 1), Options{ClearPrevious: true})
	require.NoError(t, err)
	userTask(t, store, "w1", "Mine")
	before, err := store.ListTasks(ctx, "w1")
	require.NoError(t, err)

	gateway, err := ai.NewGateway(ai.Config{
		Timeout: 20 * time.Millisecond,
		Completer: ai.CompleterFunc(func(ctx context.Context, _ string) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		}),
	})
	require.NoError(t, err)
	r, err := NewRegenerator(RegeneratorConfig{Store: store, Generator: gateway})
	require.NoError(t, err)

	_, err = r.Regenerate(ctx, Request{WeddingID: "w1", ClearPrevious: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, ai.ErrTimeout)

	after, err := store.ListTasks(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, before, after)

	failed, err := store.GetTaskEvents(ctx, events.EventFilter{WeddingID: "w1", Type: events.EventTypePlanGenerationFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	data, err := failed[0].GetPlanGenerationFailedData()
	require.NoError(t, err)
	assert.Equal(t, "timeout", data.Reason)
}

func TestScenarioConcurrentRegenerationConflicts(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	entered := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	gen := generatorFunc(func(ctx context.Context, _ types.PlanningContext) (*types.TemplateResult, error) {
		if calls.Add(1) == 1 {
			close(entered)
			<-release
		}
		return plan(5, 1), nil
	})
	r, err := NewRegenerator(RegeneratorConfig{Store: store, Generator: gen})
	require.NoError(t, err)

	type outcome struct {
		out *Outcome
		err error
	}
	first := make(chan outcome, 1)
	go func() {
		out, err := r.Regenerate(ctx, Request{WeddingID: "w1", ClearPrevious: true})
		first <- outcome{out, err}
	}()
	<-entered

	_, err = r.Regenerate(ctx, Request{WeddingID: "w1", ClearPrevious: true})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSyncConflict))
	var conflict *SyncConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "w1", conflict.WeddingID)

	// Other weddings are independent
	_, err = r.Regenerate(ctx, Request{WeddingID: "w2", ClearPrevious: true})
	require.NoError(t, err)

	close(release)
	got := <-first
	require.NoError(t, got.err)
	assert.Equal(t, 5, got.out.Applied.Created)

	tasks, err := store.ListTasks(ctx, "w1")
	require.NoError(t, err)
	assert.Len(t, tasks, 5)
	assert.Equal(t, int32(2), calls.Load())

	// The lock is released once the first run completes
	_, err = r.Regenerate(ctx, Request{WeddingID: "w1", ClearPrevious: true})
	require.NoError(t, err)
}

func TestRegenerateUsesWeddingDateAsReference(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	gen := generatorFunc(func(context.Context, types.PlanningContext) (*types.TemplateResult, error) {
		return &types.TemplateResult{Blocks: []types.TaskTemplateBlock{{Title: "Book venue", SuggestedDueOffsetDays: 100}}}, nil
	})
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r, err := NewRegenerator(RegeneratorConfig{Store: store, Generator: gen, Now: func() time.Time { return now }})
	require.NoError(t, err)

	wedding := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)
	out, err := r.Regenerate(ctx, Request{WeddingID: "w1", Profile: map[string]any{"weddingDate": wedding}})
	require.NoError(t, err)
	assert.Equal(t, 11, out.Context.LeadTimeMonths)

	tasks, err := store.ListTasks(ctx, "w1")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.NotNil(t, tasks[0].DueDate)
	assert.True(t, wedding.AddDate(0, 0, -100).Equal(*tasks[0].DueDate))

	explicit := time.Date(2027, 3, 1, 0, 0, 0, 0, time.UTC)
	_, err = r.Regenerate(ctx, Request{WeddingID: "w1", ClearPrevious: true, WeddingReferenceDate: &explicit,
		Profile: map[string]any{"weddingDate": wedding}})
	require.NoError(t, err)
	tasks, err = store.ListTasks(ctx, "w1")
	require.NoError(t, err)
	assert.True(t, explicit.AddDate(0, 0, -100).Equal(*tasks[0].DueDate))
}

func TestRegenerateFallsBackToTemplate(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	failing := generatorFunc(func(context.Context, types.PlanningContext) (*types.TemplateResult, error) {
		return nil, &ai.GenerationError{Reason: ai.ReasonUnavailable, Err: errors.New("503")}
	})
	fallback, err := template.New()
	require.NoError(t, err)

	r, err := NewRegenerator(RegeneratorConfig{Store: store, Generator: failing, Fallback: fallback})
	require.NoError(t, err)
	out, err := r.Regenerate(ctx, Request{WeddingID: "w1", ClearPrevious: true})
	require.NoError(t, err)
	assert.True(t, out.UsedFallback)
	assert.False(t, out.Result.UsedAI)
	assert.Positive(t, out.Applied.Created)

	meta, err := store.GetTemplateMetadata(ctx, "w1")
	require.NoError(t, err)
	assert.False(t, meta.UsedAI)
}

func TestSeedDefaults(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	gen := generatorFunc(func(context.Context, types.PlanningContext) (*types.TemplateResult, error) {
		return plan(1, 0), nil
	})
	r, err := NewRegenerator(RegeneratorConfig{Store: store, Generator: gen})
	require.NoError(t, err)

	pc, ok, err := r.SeedDefaults(ctx, "w1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, types.DefaultPlanningContext(), pc)

	_, err = r.Regenerate(ctx, Request{WeddingID: "w1", Profile: map[string]any{"guestCount": 220, "venueType": "playa"}})
	require.NoError(t, err)

	pc, ok, err = r.SeedDefaults(ctx, "w1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 220, pc.GuestCount)
	assert.Equal(t, types.VenueBeach, pc.VenueType)
}

func TestNewRegeneratorValidation(t *testing.T) {
	_, err := NewRegenerator(RegeneratorConfig{})
	assert.Error(t, err)
	_, err = NewRegenerator(RegeneratorConfig{Store: newStore(t)})
	assert.Error(t, err)
}
