package lifecycle

import (
	"context"
	"errors"
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lovenda/lovenda/internal/events"
	"github.com/lovenda/lovenda/internal/storage"
	"github.com/lovenda/lovenda/internal/types"
)

func setup(t *testing.T) (*Controller, storage.Storage) {
	t.Helper()
	store, err := storage.NewStorage(context.Background(), &storage.Config{
		Path: filepath.Join(t.TempDir(), "lovenda.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	c, err := NewController(store, WithActor("tester"))
	require.NoError(t, err)
	return c, store
}

func newTask(t *testing.T, c *Controller) *types.Task {
	t.Helper()
	task, err := c.Create(context.Background(), "w1", NewTask{Title: "  Book the florist  ", Category: "vendors"})
	require.NoError(t, err)
	return task
}

func TestCreate(t *testing.T) {
	c, store := setup(t)
	ctx := context.Background()

	due := time.Date(2027, 3, 1, 0, 0, 0, 0, time.UTC)
	task, err := c.Create(ctx, "w1", NewTask{
		Title:   "Send invitations",
		DueDate: &due,
		Tags:    []types.Tag{{Color: "red", Label: "mail"}, {Color: "blue", Label: "mail"}},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, task.ID)
	assert.Equal(t, types.StatusPending, task.Status)
	assert.False(t, task.Completed)
	assert.Equal(t, types.PriorityMedium, task.Priority)
	assert.Equal(t, types.OriginUser, task.Origin)
	assert.Equal(t, []types.Tag{{Color: "blue", Label: "mail"}}, task.Tags)

	stored, err := store.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Send invitations", stored.Title)
	assert.True(t, stored.DueDate.Equal(due))

	_, err = c.Create(ctx, "", NewTask{Title: "x"})
	assert.Error(t, err)
	_, err = c.Create(ctx, "w1", NewTask{Title: "   "})
	assert.Error(t, err)
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to types.Status
		want     bool
	}{
		{types.StatusPending, types.StatusInProgress, true},
		{types.StatusInProgress, types.StatusPending, true},
		{types.StatusInProgress, types.StatusBlocked, true},
		{types.StatusBlocked, types.StatusInProgress, true},
		{types.StatusPending, types.StatusBlocked, true},
		{types.StatusBlocked, types.StatusPending, true},
		{types.StatusPending, types.StatusCompleted, true},
		{types.StatusInProgress, types.StatusCompleted, true},
		{types.StatusBlocked, types.StatusCompleted, true},
		{types.StatusCompleted, types.StatusPending, true},
		{types.StatusCompleted, types.StatusInProgress, false},
		{types.StatusCompleted, types.StatusBlocked, false},
		{types.StatusCompleted, types.StatusCompleted, true},
		{types.StatusPending, "archived", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestTransition(t *testing.T) {
	c, _ := setup(t)
	ctx := context.Background()
	task := newTask(t, c)

	got, err := c.Transition(ctx, task.ID, types.StatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, types.StatusInProgress, got.Status)

	got, err = c.Complete(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, got.Status)
	assert.True(t, got.Completed)

	_, err = c.Transition(ctx, task.ID, types.StatusBlocked)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	var te *TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, types.StatusCompleted, te.From)

	got, err = c.Reopen(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusPending, got.Status)
	assert.False(t, got.Completed)

	_, err = c.Transition(ctx, task.ID, "archived")
	assert.Error(t, err)
}

// completeAfterRead lets the controller read a task and then completes it
// before the controller writes, like a second terminal would
type completeAfterRead struct {
	storage.Storage
	t    *testing.T
	done bool
}

func (s *completeAfterRead) GetTask(ctx context.Context, id string) (*types.Task, error) {
	task, err := s.Storage.GetTask(ctx, id)
	if err == nil && !s.done {
		s.done = true
		require.NoError(s.t, s.Storage.UpdateTask(ctx, id, map[string]interface{}{"status": types.StatusCompleted}, "other"))
	}
	return task, err
}

func TestTransitionRechecksStatusAtWrite(t *testing.T) {
	_, store := setup(t)
	ctx := context.Background()
	task := &types.Task{WeddingID: "w1", Title: "Order the rings"}
	require.NoError(t, store.CreateTask(ctx, task, "tester"))

	c, err := NewController(&completeAfterRead{Storage: store, t: t})
	require.NoError(t, err)

	_, err = c.Transition(ctx, task.ID, types.StatusBlocked)
	require.ErrorIs(t, err, ErrInvalidTransition)
	var te *TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, types.StatusCompleted, te.From)

	got, err := store.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, got.Status)
	assert.True(t, got.Completed)
}

func TestToggleComplete(t *testing.T) {
	c, _ := setup(t)
	ctx := context.Background()
	task := newTask(t, c)

	got, err := c.ToggleComplete(ctx, task.ID)
	require.NoError(t, err)
	assert.True(t, got.Completed)

	got, err = c.ToggleComplete(ctx, task.ID)
	require.NoError(t, err)
	assert.False(t, got.Completed)
	assert.Equal(t, types.StatusPending, got.Status)
}

// Completed mirrors the status after any sequence of controller calls
func TestCompletionMirrorsStatus(t *testing.T) {
	c, store := setup(t)
	ctx := context.Background()
	task := newTask(t, c)

	statuses := []types.Status{types.StatusPending, types.StatusInProgress, types.StatusBlocked, types.StatusCompleted}
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 60; i++ {
		switch rng.Intn(3) {
		case 0:
			_, err := c.Transition(ctx, task.ID, statuses[rng.Intn(len(statuses))])
			if err != nil {
				require.ErrorIs(t, err, ErrInvalidTransition)
			}
		case 1:
			_, err := c.ToggleComplete(ctx, task.ID)
			require.NoError(t, err)
		default:
			notes := "step"
			_, err := c.UpdateFields(ctx, task.ID, FieldUpdate{Notes: &notes})
			require.NoError(t, err)
		}
		stored, err := store.GetTask(ctx, task.ID)
		require.NoError(t, err)
		require.Equal(t, stored.Status == types.StatusCompleted, stored.Completed, "step %d", i)
	}
}

func TestUpdateFields(t *testing.T) {
	c, _ := setup(t)
	ctx := context.Background()
	task := newTask(t, c)
	_, err := c.Transition(ctx, task.ID, types.StatusBlocked)
	require.NoError(t, err)

	title := " Book florist and bouquets "
	notes := "ask about peonies"
	due := time.Date(2027, 5, 1, 0, 0, 0, 0, time.UTC)
	got, err := c.UpdateFields(ctx, task.ID, FieldUpdate{Title: &title, Notes: &notes, DueDate: &due})
	require.NoError(t, err)
	assert.Equal(t, "Book florist and bouquets", got.Title)
	assert.Equal(t, "ask about peonies", got.Notes)
	assert.Equal(t, "vendors", got.Category)
	assert.True(t, got.DueDate.Equal(due))
	assert.Equal(t, types.StatusBlocked, got.Status)

	got, err = c.UpdateFields(ctx, task.ID, FieldUpdate{ClearDueDate: true})
	require.NoError(t, err)
	assert.Nil(t, got.DueDate)

	got, err = c.UpdateFields(ctx, task.ID, FieldUpdate{})
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)

	empty := ""
	_, err = c.UpdateFields(ctx, task.ID, FieldUpdate{Title: &empty})
	assert.Error(t, err)
}

func TestTags(t *testing.T) {
	c, _ := setup(t)
	ctx := context.Background()
	task := newTask(t, c)

	_, err := c.AddTag(ctx, task.ID, types.Tag{Color: "green", Label: "budget"})
	require.NoError(t, err)
	_, err = c.AddTag(ctx, task.ID, types.Tag{Color: "pink", Label: "flowers"})
	require.NoError(t, err)
	got, err := c.AddTag(ctx, task.ID, types.Tag{Color: "yellow", Label: "budget"})
	require.NoError(t, err)
	assert.Equal(t, []types.Tag{{Color: "yellow", Label: "budget"}, {Color: "pink", Label: "flowers"}}, got.Tags)

	got, err = c.ToggleTag(ctx, task.ID, types.Tag{Color: "pink", Label: "flowers"})
	require.NoError(t, err)
	assert.Equal(t, []types.Tag{{Color: "yellow", Label: "budget"}}, got.Tags)

	got, err = c.ToggleTag(ctx, task.ID, types.Tag{Color: "blue", Label: "urgent"})
	require.NoError(t, err)
	assert.True(t, got.HasTag("urgent"))

	got, err = c.RemoveTag(ctx, task.ID, "budget")
	require.NoError(t, err)
	assert.Equal(t, []types.Tag{{Color: "blue", Label: "urgent"}}, got.Tags)

	got, err = c.RemoveTag(ctx, task.ID, "not-there")
	require.NoError(t, err)
	assert.Len(t, got.Tags, 1)

	_, err = c.AddTag(ctx, task.ID, types.Tag{Color: "red"})
	assert.Error(t, err)
}

func TestSubtasks(t *testing.T) {
	c, _ := setup(t)
	ctx := context.Background()
	task := newTask(t, c)

	_, err := c.AddSubtask(ctx, task.ID, "Shortlist three florists")
	require.NoError(t, err)
	got, err := c.AddSubtask(ctx, task.ID, "Visit showroom")
	require.NoError(t, err)
	require.Len(t, got.Subtasks, 2)
	assert.Equal(t, "Shortlist three florists", got.Subtasks[0].Title)
	assert.NotEmpty(t, got.Subtasks[0].ID)

	got, err = c.ToggleSubtask(ctx, task.ID, got.Subtasks[1].ID)
	require.NoError(t, err)
	assert.False(t, got.Subtasks[0].Completed)
	assert.True(t, got.Subtasks[1].Completed)
	assert.Equal(t, types.StatusPending, got.Status)

	// Unknown subtask leaves the task unchanged
	same, err := c.ToggleSubtask(ctx, task.ID, "nope")
	require.NoError(t, err)
	assert.Equal(t, got.Subtasks, same.Subtasks)

	_, err = c.AddSubtask(ctx, task.ID, " ")
	assert.Error(t, err)
}

func TestDelete(t *testing.T) {
	c, store := setup(t)
	ctx := context.Background()
	task := newTask(t, c)
	_, err := c.Complete(ctx, task.ID)
	require.NoError(t, err)

	require.NoError(t, c.Delete(ctx, task.ID))
	_, err = store.GetTask(ctx, task.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMissingTaskIsNoop(t *testing.T) {
	c, store := setup(t)
	ctx := context.Background()
	notes := "n"

	ops := map[string]func() (*types.Task, error){
		"transition": func() (*types.Task, error) { return c.Transition(ctx, "ghost", types.StatusInProgress) },
		"complete":   func() (*types.Task, error) { return c.Complete(ctx, "ghost") },
		"toggle":     func() (*types.Task, error) { return c.ToggleComplete(ctx, "ghost") },
		"fields":     func() (*types.Task, error) { return c.UpdateFields(ctx, "ghost", FieldUpdate{Notes: &notes}) },
		"tag":        func() (*types.Task, error) { return c.ToggleTag(ctx, "ghost", types.Tag{Label: "x"}) },
		"subtask":    func() (*types.Task, error) { return c.AddSubtask(ctx, "ghost", "x") },
	}
	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			got, err := op()
			assert.NoError(t, err)
			assert.Nil(t, got)
		})
	}
	assert.NoError(t, c.Delete(ctx, "ghost"))

	evts, err := store.GetTaskEvents(ctx, events.EventFilter{TaskID: "ghost", Type: events.EventTypeTaskMissing})
	require.NoError(t, err)
	assert.Len(t, evts, len(ops)+1)
	assert.Equal(t, events.SeverityWarning, evts[0].Severity)
	assert.Equal(t, "tester", evts[0].Actor)
}

func TestMutationsAreAudited(t *testing.T) {
	c, store := setup(t)
	ctx := context.Background()
	task := newTask(t, c)

	_, err := c.Transition(ctx, task.ID, types.StatusInProgress)
	require.NoError(t, err)
	_, err = c.AddTag(ctx, task.ID, types.Tag{Color: "red", Label: "venue"})
	require.NoError(t, err)

	evts, err := store.GetTaskEvents(ctx, events.EventFilter{TaskID: task.ID})
	require.NoError(t, err)
	var kinds []events.EventType
	for _, e := range evts {
		kinds = append(kinds, e.Type)
		assert.Equal(t, "tester", e.Actor)
	}
	// newest first
	assert.Equal(t, []events.EventType{events.EventTypeTaskUpdated, events.EventTypeStatusChanged, events.EventTypeTaskCreated}, kinds)
}

func TestNewControllerRequiresStore(t *testing.T) {
	_, err := NewController(nil)
	assert.Error(t, err)
}
