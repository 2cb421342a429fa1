// Package lifecycle owns single-task mutations: creation by the couple, status
// transitions, field edits, tags, subtasks and deletion.
//
// Status flow:
//   - pending ⇄ in_progress ⇄ blocked, and pending ⇄ blocked
//   - any open status → completed
//   - completed → pending (undo complete)
//
// A mutation aimed at a task that no longer exists is not an error. The
// controller logs it, records a task_missing event and returns a nil task.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lovenda/lovenda/internal/events"
	"github.com/lovenda/lovenda/internal/storage"
	"github.com/lovenda/lovenda/internal/types"
)

// DefaultActor is recorded on events when the caller does not name one
const DefaultActor = "couple"

// ErrInvalidTransition is returned for a status change the flow does not allow
var ErrInvalidTransition = errors.New("invalid status transition")

// TransitionError names the rejected transition
type TransitionError struct {
	TaskID string
	From   types.Status
	To     types.Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("task %s: cannot move from %s to %s", e.TaskID, e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// maxTransitionAttempts bounds how often Transition re-reads a task whose
// status changed under it
const maxTransitionAttempts = 3

// transitions lists the allowed targets for each status
var transitions = map[types.Status][]types.Status{
	types.StatusPending:    {types.StatusInProgress, types.StatusBlocked, types.StatusCompleted},
	types.StatusInProgress: {types.StatusPending, types.StatusBlocked, types.StatusCompleted},
	types.StatusBlocked:    {types.StatusPending, types.StatusInProgress, types.StatusCompleted},
	types.StatusCompleted:  {types.StatusPending},
}

// CanTransition reports whether a task may move from one status to another.
// Staying put is always allowed.
func CanTransition(from, to types.Status) bool {
	if from == to {
		return to.IsValid()
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Storage is the subset of storage.Storage the controller writes through
type Storage interface {
	CreateTask(ctx context.Context, task *types.Task, actor string) error
	GetTask(ctx context.Context, id string) (*types.Task, error)
	UpdateTask(ctx context.Context, id string, updates map[string]interface{}, actor string) error
	DeleteTask(ctx context.Context, id string, actor string) error
	StoreTaskEvent(ctx context.Context, event *events.TaskEvent) error
}

// NewTask is what the couple fills in when adding a task by hand
type NewTask struct {
	Title      string
	Category   string
	Notes      string
	DueDate    *time.Time
	Priority   types.Priority
	IsCritical bool
	Tags       []types.Tag
}

// FieldUpdate carries the editable fields. Nil pointers leave a field alone;
// ClearDueDate removes the due date.
type FieldUpdate struct {
	Title        *string
	Notes        *string
	Category     *string
	DueDate      *time.Time
	ClearDueDate bool
}

func (u FieldUpdate) updates() map[string]interface{} {
	m := make(map[string]interface{})
	if u.Title != nil {
		m["title"] = *u.Title
	}
	if u.Notes != nil {
		m["notes"] = *u.Notes
	}
	if u.Category != nil {
		m["category"] = *u.Category
	}
	switch {
	case u.ClearDueDate:
		m["due_date"] = nil
	case u.DueDate != nil:
		m["due_date"] = *u.DueDate
	}
	return m
}

// Controller applies mutations to individual tasks
type Controller struct {
	store  Storage
	actor  string
	logger *slog.Logger
}

// Option configures a Controller
type Option func(*Controller)

// WithActor sets the actor recorded on events
func WithActor(actor string) Option {
	return func(c *Controller) {
		if actor != "" {
			c.actor = actor
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewController creates a controller over store
func NewController(store Storage, opts ...Option) (*Controller, error) {
	if store == nil {
		return nil, fmt.Errorf("storage cannot be nil")
	}
	c := &Controller{store: store, actor: DefaultActor, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Create adds a user-origin task in the pending state
func (c *Controller) Create(ctx context.Context, weddingID string, nt NewTask) (*types.Task, error) {
	if weddingID == "" {
		return nil, fmt.Errorf("wedding id is required")
	}
	priority := nt.Priority
	if priority == "" {
		priority = types.PriorityMedium
	}
	task := &types.Task{
		WeddingID:  weddingID,
		Title:      strings.TrimSpace(nt.Title),
		Category:   nt.Category,
		Notes:      nt.Notes,
		DueDate:    nt.DueDate,
		Priority:   priority,
		IsCritical: nt.IsCritical,
		Origin:     types.OriginUser,
	}
	for _, tag := range nt.Tags {
		task.Tags = addTag(task.Tags, tag)
	}
	task.SetStatus(types.StatusPending)

	if err := c.store.CreateTask(ctx, task, c.actor); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	c.logger.Debug("task created", "wedding", weddingID, "task", task.ID)
	return task, nil
}

// Transition moves a task to a new status if the flow allows it
func (c *Controller) Transition(ctx context.Context, id string, to types.Status) (*types.Task, error) {
	if !to.IsValid() {
		return nil, fmt.Errorf("invalid status: %s", to)
	}
	for attempt := 0; ; attempt++ {
		task, err := c.load(ctx, id, "transition")
		if task == nil || err != nil {
			return nil, err
		}
		if task.Status == to {
			return task, nil
		}
		if !CanTransition(task.Status, to) {
			return nil, &TransitionError{TaskID: id, From: task.Status, To: to}
		}
		// the status is checked again inside the write
		updated, err := c.update(ctx, id, "transition", map[string]interface{}{
			"status":             to,
			storage.ExpectStatus: task.Status,
		})
		if errors.Is(err, storage.ErrStatusChanged) && attempt < maxTransitionAttempts-1 {
			c.logger.Debug("status changed during transition, rechecking", "task", id, "to", to)
			continue
		}
		return updated, err
	}
}

// Complete marks a task done
func (c *Controller) Complete(ctx context.Context, id string) (*types.Task, error) {
	return c.Transition(ctx, id, types.StatusCompleted)
}

// Reopen undoes a completion, returning the task to pending
func (c *Controller) Reopen(ctx context.Context, id string) (*types.Task, error) {
	return c.Transition(ctx, id, types.StatusPending)
}

// ToggleComplete completes an open task or reopens a completed one
func (c *Controller) ToggleComplete(ctx context.Context, id string) (*types.Task, error) {
	task, err := c.load(ctx, id, "toggle_complete")
	if task == nil || err != nil {
		return nil, err
	}
	if task.Completed {
		return c.Transition(ctx, id, types.StatusPending)
	}
	return c.Transition(ctx, id, types.StatusCompleted)
}

// UpdateFields edits title, notes, category or due date without touching status
func (c *Controller) UpdateFields(ctx context.Context, id string, u FieldUpdate) (*types.Task, error) {
	updates := u.updates()
	if len(updates) == 0 {
		return c.load(ctx, id, "update_fields")
	}
	if t, ok := updates["title"].(string); ok {
		updates["title"] = strings.TrimSpace(t)
	}
	return c.update(ctx, id, "update_fields", updates)
}

// AddTag attaches a tag. An existing tag with the same label keeps its
// position and takes the new color.
func (c *Controller) AddTag(ctx context.Context, id string, tag types.Tag) (*types.Task, error) {
	if strings.TrimSpace(tag.Label) == "" {
		return nil, fmt.Errorf("tag label is required")
	}
	return c.editTags(ctx, id, "add_tag", func(tags []types.Tag) []types.Tag {
		return addTag(tags, tag)
	})
}

// RemoveTag detaches the tag with the given label
func (c *Controller) RemoveTag(ctx context.Context, id, label string) (*types.Task, error) {
	return c.editTags(ctx, id, "remove_tag", func(tags []types.Tag) []types.Tag {
		return removeTag(tags, label)
	})
}

// ToggleTag removes the tag if its label is present, otherwise adds it
func (c *Controller) ToggleTag(ctx context.Context, id string, tag types.Tag) (*types.Task, error) {
	if strings.TrimSpace(tag.Label) == "" {
		return nil, fmt.Errorf("tag label is required")
	}
	return c.editTags(ctx, id, "toggle_tag", func(tags []types.Tag) []types.Tag {
		for _, t := range tags {
			if t.Label == tag.Label {
				return removeTag(tags, tag.Label)
			}
		}
		return addTag(tags, tag)
	})
}

func (c *Controller) editTags(ctx context.Context, id, op string, edit func([]types.Tag) []types.Tag) (*types.Task, error) {
	task, err := c.load(ctx, id, op)
	if task == nil || err != nil {
		return nil, err
	}
	return c.update(ctx, id, op, map[string]interface{}{"tags": edit(task.Tags)})
}

func addTag(tags []types.Tag, tag types.Tag) []types.Tag {
	out := append([]types.Tag(nil), tags...)
	for i := range out {
		if out[i].Label == tag.Label {
			out[i].Color = tag.Color
			return out
		}
	}
	return append(out, tag)
}

func removeTag(tags []types.Tag, label string) []types.Tag {
	out := make([]types.Tag, 0, len(tags))
	for _, t := range tags {
		if t.Label != label {
			out = append(out, t)
		}
	}
	return out
}

// AddSubtask appends an open subtask
func (c *Controller) AddSubtask(ctx context.Context, id, title string) (*types.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("subtask title is required")
	}
	task, err := c.load(ctx, id, "add_subtask")
	if task == nil || err != nil {
		return nil, err
	}
	subtasks := append(append([]types.Subtask(nil), task.Subtasks...),
		types.Subtask{ID: uuid.New().String(), Title: title})
	return c.update(ctx, id, "add_subtask", map[string]interface{}{"subtasks": subtasks})
}

// ToggleSubtask flips a subtask's completion. The parent's status is not changed.
func (c *Controller) ToggleSubtask(ctx context.Context, id, subtaskID string) (*types.Task, error) {
	task, err := c.load(ctx, id, "toggle_subtask")
	if task == nil || err != nil {
		return nil, err
	}
	subtasks := append([]types.Subtask(nil), task.Subtasks...)
	found := false
	for i := range subtasks {
		if subtasks[i].ID == subtaskID {
			subtasks[i].Completed = !subtasks[i].Completed
			found = true
			break
		}
	}
	if !found {
		c.missing(ctx, task.WeddingID, id, "toggle_subtask", "subtask "+subtaskID)
		return task, nil
	}
	return c.update(ctx, id, "toggle_subtask", map[string]interface{}{"subtasks": subtasks})
}

// Delete removes a task from any state
func (c *Controller) Delete(ctx context.Context, id string) error {
	err := c.store.DeleteTask(ctx, id, c.actor)
	if errors.Is(err, storage.ErrNotFound) {
		c.missing(ctx, "", id, "delete", "task "+id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete task %s: %w", id, err)
	}
	return nil
}

// load fetches a task; a missing one is reported and yields (nil, nil)
func (c *Controller) load(ctx context.Context, id, op string) (*types.Task, error) {
	task, err := c.store.GetTask(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		c.missing(ctx, "", id, op, "task "+id)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task %s: %w", id, err)
	}
	return task, nil
}

// update writes the changes and returns the stored task
func (c *Controller) update(ctx context.Context, id, op string, updates map[string]interface{}) (*types.Task, error) {
	err := c.store.UpdateTask(ctx, id, updates, c.actor)
	if errors.Is(err, storage.ErrNotFound) {
		c.missing(ctx, "", id, op, "task "+id)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update task %s: %w", id, err)
	}
	return c.load(ctx, id, op)
}

func (c *Controller) missing(ctx context.Context, weddingID, id, op, what string) {
	c.logger.Warn("mutation target not found", "task", id, "op", op, "missing", what)
	event := events.NewTaskEvent(events.EventTypeTaskMissing, weddingID, id, c.actor, events.SeverityWarning,
		fmt.Sprintf("%s: %s not found", op, what), map[string]interface{}{"operation": op})
	if err := c.store.StoreTaskEvent(ctx, event); err != nil {
		c.logger.Warn("failed to record missing task", "task", id, "error", err)
	}
}
