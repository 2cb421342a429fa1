package types

import (
	"fmt"
	"strings"
	"time"
)

// Task is a single checklist item belonging to a wedding
type Task struct {
	ID         string       `json:"id"`
	WeddingID  string       `json:"wedding_id"`
	Title      string       `json:"title"`
	Category   string       `json:"category,omitempty"`
	Notes      string       `json:"notes,omitempty"`
	Tags       []Tag        `json:"tags,omitempty"`
	DueDate    *time.Time   `json:"due_date,omitempty"`
	Completed  bool         `json:"completed"`
	Status     Status       `json:"status"`
	IsCritical bool         `json:"is_critical"`
	Priority   Priority     `json:"priority"`
	Subtasks   []Subtask    `json:"subtasks,omitempty"`
	Metadata   TaskMetadata `json:"metadata"`
	Origin     Origin       `json:"origin"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// Validate checks if the task has valid field values
func (t *Task) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if len(t.Title) > 500 {
		return fmt.Errorf("title must be 500 characters or less (got %d)", len(t.Title))
	}
	if t.WeddingID == "" {
		return fmt.Errorf("wedding_id is required")
	}
	if !t.Status.IsValid() {
		return fmt.Errorf("invalid status: %s", t.Status)
	}
	if !t.Priority.IsValid() {
		return fmt.Errorf("invalid priority: %s", t.Priority)
	}
	if !t.Origin.IsValid() {
		return fmt.Errorf("invalid origin: %s", t.Origin)
	}
	if t.Completed != (t.Status == StatusCompleted) {
		return fmt.Errorf("completed flag (%v) does not match status %s", t.Completed, t.Status)
	}
	return nil
}

// Critical reports whether the task is flagged critical, either explicitly or
// by the generator's recommendation.
func (t *Task) Critical() bool {
	return t.IsCritical || t.Metadata.AIRecommendation == string(BlockPriorityCritical)
}

// SetStatus moves the task to the given status and keeps the completion flag in step.
func (t *Task) SetStatus(s Status) {
	t.Status = s
	t.Completed = s == StatusCompleted
}

// HasTag reports whether a tag with the given label is attached
func (t *Task) HasTag(label string) bool {
	for _, tag := range t.Tags {
		if tag.Label == label {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so snapshots handed to readers never alias storage state.
func (t Task) Clone() Task {
	c := t
	if t.DueDate != nil {
		d := *t.DueDate
		c.DueDate = &d
	}
	if t.Tags != nil {
		c.Tags = append([]Tag(nil), t.Tags...)
	}
	if t.Subtasks != nil {
		c.Subtasks = append([]Subtask(nil), t.Subtasks...)
	}
	c.Metadata = t.Metadata.Clone()
	return c
}

// Status represents where a task sits in its lifecycle
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusBlocked    Status = "blocked"
	StatusCompleted  Status = "completed"
)

// IsValid checks if the status value is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusBlocked, StatusCompleted:
		return true
	}
	return false
}

// Priority is the user-facing importance of a task
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// IsValid checks if the priority value is valid
func (p Priority) IsValid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Origin records who created a task. Destructive regeneration only removes
// generator-origin tasks.
type Origin string

const (
	OriginUser      Origin = "user"
	OriginGenerator Origin = "generator"
)

// IsValid checks if the origin value is valid
func (o Origin) IsValid() bool {
	return o == OriginUser || o == OriginGenerator
}

// Tag is a colored label on a task. A task holds at most one tag per label.
type Tag struct {
	Color string `json:"color"`
	Label string `json:"label"`
}

// Subtask is a checklist entry nested under a task
type Subtask struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// TaskMetadata carries optional hints attached by the generator or by clients.
// Nothing in the engine depends on it for correctness.
type TaskMetadata struct {
	AIRecommendation string         `json:"ai_recommendation,omitempty"`
	PriorityReason   string         `json:"priority_reason,omitempty"`
	Extra            map[string]any `json:"extra,omitempty"`
}

// Clone copies the metadata including its extension map
func (m TaskMetadata) Clone() TaskMetadata {
	c := m
	if m.Extra != nil {
		c.Extra = make(map[string]any, len(m.Extra))
		for k, v := range m.Extra {
			c.Extra[k] = v
		}
	}
	return c
}

// CloneTasks deep-copies a task slice
func CloneTasks(tasks []Task) []Task {
	if tasks == nil {
		return nil
	}
	out := make([]Task, len(tasks))
	for i := range tasks {
		out[i] = tasks[i].Clone()
	}
	return out
}
