package events

import (
	"time"
)

// EventType represents what happened to a task or plan
type EventType string

const (
	// EventTypeTaskCreated indicates a task was added by a user
	EventTypeTaskCreated EventType = "task_created"
	// EventTypeTaskUpdated indicates editable fields changed (title, notes, tags, subtasks...)
	EventTypeTaskUpdated EventType = "task_updated"
	// EventTypeStatusChanged indicates a lifecycle transition
	EventTypeStatusChanged EventType = "status_changed"
	// EventTypeTaskDeleted indicates a task was removed by a user
	EventTypeTaskDeleted EventType = "task_deleted"
	// EventTypeTaskMissing indicates a mutation targeted a task that no longer exists
	EventTypeTaskMissing EventType = "task_missing"

	// EventTypePlanRegenerated indicates a template was applied to the wedding
	EventTypePlanRegenerated EventType = "plan_regenerated"
	// EventTypePlanGenerationFailed indicates the generator failed and the store was left untouched
	EventTypePlanGenerationFailed EventType = "plan_generation_failed"
)

// EventSeverity represents the severity level of an event.
type EventSeverity string

const (
	SeverityInfo    EventSeverity = "info"
	SeverityWarning EventSeverity = "warning"
	SeverityError   EventSeverity = "error"
)

// TaskEvent is one entry in a wedding's audit trail
type TaskEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	WeddingID string                 `json:"wedding_id"`
	TaskID    string                 `json:"task_id,omitempty"` // empty for plan-level events
	Actor     string                 `json:"actor"`
	Severity  EventSeverity          `json:"severity"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data"`
}

// StatusChangedData contains structured data for lifecycle transitions.
type StatusChangedData struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// TaskUpdatedData lists the fields a mutation touched.
type TaskUpdatedData struct {
	Fields []string `json:"fields"`
}

// PlanRegeneratedData summarizes a template application.
type PlanRegeneratedData struct {
	Created       int  `json:"created"`
	Removed       int  `json:"removed"`
	Skipped       int  `json:"skipped"`
	ClearPrevious bool `json:"clear_previous"`
	UsedAI        bool `json:"used_ai"`
}

// PlanGenerationFailedData records why a regeneration did not happen.
type PlanGenerationFailedData struct {
	Reason string `json:"reason"`
	Error  string `json:"error"`
}

// EventFilter narrows event queries. Zero values match everything.
type EventFilter struct {
	WeddingID string
	TaskID    string
	Type      EventType
	Severity  EventSeverity
	AfterTime time.Time
	Limit     int
}
