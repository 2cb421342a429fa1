package events

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestJSONTagsSnakeCase(t *testing.T) {
	event := &TaskEvent{
		ID:        "evt-1",
		Type:      EventTypeStatusChanged,
		Timestamp: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
		WeddingID: "w-1",
		TaskID:    "t-1",
		Actor:     "cli",
		Severity:  SeverityInfo,
		Message:   "pending -> completed",
	}

	jsonBytes, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("Failed to marshal TaskEvent: %v", err)
	}
	jsonStr := string(jsonBytes)

	for _, field := range []string{`"id"`, `"type"`, `"wedding_id"`, `"task_id"`, `"actor"`, `"severity"`, `"message"`} {
		if !strings.Contains(jsonStr, field) {
			t.Errorf("JSON missing expected field: %s\nGot: %s", field, jsonStr)
		}
	}
}

func TestStatusChangedDataHelpers(t *testing.T) {
	event, err := NewStatusChangedEvent("w-1", "t-1", "cli", "started", StatusChangedData{From: "pending", To: "in_progress"})
	if err != nil {
		t.Fatalf("NewStatusChangedEvent failed: %v", err)
	}
	if event.Type != EventTypeStatusChanged {
		t.Errorf("Expected type %s, got %s", EventTypeStatusChanged, event.Type)
	}
	if event.ID == "" {
		t.Error("Expected generated ID")
	}

	data, err := event.GetStatusChangedData()
	if err != nil {
		t.Fatalf("GetStatusChangedData failed: %v", err)
	}
	if data.From != "pending" || data.To != "in_progress" {
		t.Errorf("Unexpected data: %+v", data)
	}
}

func TestPlanRegeneratedDataHelpers(t *testing.T) {
	in := PlanRegeneratedData{Created: 12, Removed: 10, Skipped: 1, ClearPrevious: true, UsedAI: true}
	event, err := NewPlanRegeneratedEvent("w-1", "cli", "regenerated", in)
	if err != nil {
		t.Fatalf("NewPlanRegeneratedEvent failed: %v", err)
	}
	if event.TaskID != "" {
		t.Errorf("Plan events should not carry a task id, got %q", event.TaskID)
	}

	out, err := event.GetPlanRegeneratedData()
	if err != nil {
		t.Fatalf("GetPlanRegeneratedData failed: %v", err)
	}
	if *out != in {
		t.Errorf("Round trip mismatch: got %+v want %+v", *out, in)
	}
}

func TestPlanGenerationFailedIsWarning(t *testing.T) {
	event, err := NewPlanGenerationFailedEvent("w-1", "cli", "generation failed", PlanGenerationFailedData{Reason: "timeout", Error: "deadline exceeded"})
	if err != nil {
		t.Fatalf("NewPlanGenerationFailedEvent failed: %v", err)
	}
	if event.Severity != SeverityWarning {
		t.Errorf("Expected warning severity, got %s", event.Severity)
	}
	data, err := event.GetPlanGenerationFailedData()
	if err != nil {
		t.Fatalf("GetPlanGenerationFailedData failed: %v", err)
	}
	if data.Reason != "timeout" {
		t.Errorf("Expected reason timeout, got %q", data.Reason)
	}
}

func TestNewTaskEventDefaultsData(t *testing.T) {
	event := NewTaskEvent(EventTypeTaskDeleted, "w-1", "t-1", "cli", SeverityInfo, "deleted", nil)
	if event.Data == nil {
		t.Error("Expected non-nil data map")
	}

	updated, err := NewTaskUpdatedEvent("w-1", "t-1", "cli", "edited", TaskUpdatedData{Fields: []string{"title", "notes"}})
	if err != nil {
		t.Fatalf("NewTaskUpdatedEvent failed: %v", err)
	}
	fields, err := updated.GetTaskUpdatedData()
	if err != nil {
		t.Fatalf("GetTaskUpdatedData failed: %v", err)
	}
	if len(fields.Fields) != 2 {
		t.Errorf("Expected 2 fields, got %v", fields.Fields)
	}
}
