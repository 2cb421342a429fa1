package types

import "time"

// BlockPriority is the generator's importance rating for a template block
type BlockPriority string

const (
	BlockPriorityCritical BlockPriority = "critical"
	BlockPriorityHigh     BlockPriority = "high"
	BlockPriorityMedium   BlockPriority = "medium"
	BlockPriorityLow      BlockPriority = "low"
)

// IsValid checks if the block priority value is valid
func (p BlockPriority) IsValid() bool {
	switch p {
	case BlockPriorityCritical, BlockPriorityHigh, BlockPriorityMedium, BlockPriorityLow:
		return true
	}
	return false
}

// TaskPriority maps a block priority onto the three task priorities.
// Critical collapses to high; criticality is carried separately on the task.
func (p BlockPriority) TaskPriority() Priority {
	switch p {
	case BlockPriorityCritical, BlockPriorityHigh:
		return PriorityHigh
	case BlockPriorityLow:
		return PriorityLow
	default:
		return PriorityMedium
	}
}

// TaskTemplateBlock is one suggested task produced by a generator.
// SuggestedDueOffsetDays counts days before the wedding; negative means after.
type TaskTemplateBlock struct {
	Title                  string        `json:"title"`
	Category               string        `json:"category,omitempty"`
	SuggestedDueOffsetDays int           `json:"suggestedDueOffsetDays"`
	Priority               BlockPriority `json:"priority"`
	AIReason               string        `json:"aiReason,omitempty"`
}

// TimelineAdjustments carries the generator's advice about the schedule
type TimelineAdjustments struct {
	Recommendation string   `json:"recommendation,omitempty"`
	UrgentPhases   []string `json:"urgentPhases,omitempty"`
}

// TemplateResult is the normalized output of a plan generator
type TemplateResult struct {
	Blocks              []TaskTemplateBlock `json:"blocks"`
	Summary             string              `json:"summary,omitempty"`
	CriticalBlocks      []string            `json:"criticalBlocks,omitempty"`
	OptionalBlocks      []string            `json:"optionalBlocks,omitempty"`
	TimelineAdjustments TimelineAdjustments `json:"timelineAdjustments"`
	UsedAI              bool                `json:"usedAI"`
}

// TemplateMetadata is stored per wedding after each regeneration
type TemplateMetadata struct {
	WeddingID           string              `json:"wedding_id"`
	Context             PlanningContext     `json:"context"`
	Summary             string              `json:"summary,omitempty"`
	CriticalBlocks      []string            `json:"criticalBlocks,omitempty"`
	OptionalBlocks      []string            `json:"optionalBlocks,omitempty"`
	TimelineAdjustments TimelineAdjustments `json:"timelineAdjustments"`
	GeneratedAt         time.Time           `json:"generatedAt"`
	UsedAI              bool                `json:"usedAI"`
}
