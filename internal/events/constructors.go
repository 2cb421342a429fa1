package events

import (
	"time"

	"github.com/google/uuid"
)

// NewTaskEvent creates an event with free-form data
func NewTaskEvent(eventType EventType, weddingID, taskID, actor string, severity EventSeverity, message string, data map[string]interface{}) *TaskEvent {
	if data == nil {
		data = make(map[string]interface{})
	}
	return &TaskEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now(),
		WeddingID: weddingID,
		TaskID:    taskID,
		Actor:     actor,
		Severity:  severity,
		Message:   message,
		Data:      data,
	}
}

// NewStatusChangedEvent creates a lifecycle transition event
func NewStatusChangedEvent(weddingID, taskID, actor, message string, data StatusChangedData) (*TaskEvent, error) {
	event := NewTaskEvent(EventTypeStatusChanged, weddingID, taskID, actor, SeverityInfo, message, nil)
	if err := event.SetStatusChangedData(data); err != nil {
		return nil, err
	}
	return event, nil
}

// NewTaskUpdatedEvent creates a field edit event
func NewTaskUpdatedEvent(weddingID, taskID, actor, message string, data TaskUpdatedData) (*TaskEvent, error) {
	event := NewTaskEvent(EventTypeTaskUpdated, weddingID, taskID, actor, SeverityInfo, message, nil)
	if err := event.SetTaskUpdatedData(data); err != nil {
		return nil, err
	}
	return event, nil
}

// NewPlanRegeneratedEvent creates a plan-level event for a template application
func NewPlanRegeneratedEvent(weddingID, actor, message string, data PlanRegeneratedData) (*TaskEvent, error) {
	event := NewTaskEvent(EventTypePlanRegenerated, weddingID, "", actor, SeverityInfo, message, nil)
	if err := event.SetPlanRegeneratedData(data); err != nil {
		return nil, err
	}
	return event, nil
}

// NewPlanGenerationFailedEvent creates a plan-level event for a failed regeneration
func NewPlanGenerationFailedEvent(weddingID, actor, message string, data PlanGenerationFailedData) (*TaskEvent, error) {
	event := NewTaskEvent(EventTypePlanGenerationFailed, weddingID, "", actor, SeverityWarning, message, nil)
	if err := event.SetPlanGenerationFailedData(data); err != nil {
		return nil, err
	}
	return event, nil
}
