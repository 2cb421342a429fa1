// Package tasksync turns generated plans into persisted tasks and serializes
// regeneration per wedding.
package tasksync

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lovenda/lovenda/internal/events"
	"github.com/lovenda/lovenda/internal/storage"
	"github.com/lovenda/lovenda/internal/types"
)

// DefaultActor is recorded on events when the caller does not name one
const DefaultActor = "planner"

// Options controls how a template is applied
type Options struct {
	// ClearPrevious removes every generator-origin task of the wedding first.
	// User-origin tasks are never removed.
	ClearPrevious bool
	// WeddingReferenceDate anchors due dates; nil leaves them unset.
	WeddingReferenceDate *time.Time
	// Dedupe skips blocks whose title and category match a task that survives
	// the apply. Off by default, so additive mode may duplicate.
	Dedupe bool
	// Context is stored with the template metadata
	Context types.PlanningContext
	Actor   string
}

// ApplyResult counts what an apply did
type ApplyResult struct {
	Created int `json:"created"`
	Removed int `json:"removed"`
	Skipped int `json:"skipped"`
}

// Synchronizer writes generated plans into the store
type Synchronizer struct {
	store  storage.Storage
	logger *slog.Logger
}

// NewSynchronizer creates a synchronizer over store
func NewSynchronizer(store storage.Storage, logger *slog.Logger) *Synchronizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synchronizer{store: store, logger: logger}
}

// ApplyTemplate materializes result as tasks of weddingID. Clearing, inserting
// and recording the template metadata happen in one transaction; on error the
// previous task set is untouched. A nil or empty result is rejected before
// storage is touched.
func (s *Synchronizer) ApplyTemplate(ctx context.Context, weddingID string, result *types.TemplateResult, opts Options) (ApplyResult, error) {
	if weddingID == "" {
		return ApplyResult{}, fmt.Errorf("wedding id is required")
	}
	if result == nil {
		return ApplyResult{}, ErrNoTemplate
	}
	blocks := validBlocks(result.Blocks)
	if len(blocks) == 0 {
		return ApplyResult{}, ErrEmptyTemplate
	}
	actor := opts.Actor
	if actor == "" {
		actor = DefaultActor
	}

	var seen map[string]bool
	if opts.Dedupe {
		existing, err := s.store.ListTasks(ctx, weddingID)
		if err != nil {
			return ApplyResult{}, fmt.Errorf("failed to load tasks for dedupe: %w", err)
		}
		seen = make(map[string]bool, len(existing))
		for _, t := range existing {
			if opts.ClearPrevious && t.Origin == types.OriginGenerator {
				continue
			}
			seen[dedupeKey(t.Title, t.Category)] = true
		}
	}

	var res ApplyResult
	tasks := make([]*types.Task, 0, len(blocks))
	for _, b := range blocks {
		if seen != nil {
			key := dedupeKey(b.Title, b.Category)
			if seen[key] {
				res.Skipped++
				continue
			}
			seen[key] = true
		}
		tasks = append(tasks, taskFromBlock(weddingID, b, opts.WeddingReferenceDate))
	}

	meta := &types.TemplateMetadata{
		Context:             opts.Context,
		Summary:             result.Summary,
		CriticalBlocks:      result.CriticalBlocks,
		OptionalBlocks:      result.OptionalBlocks,
		TimelineAdjustments: result.TimelineAdjustments,
		UsedAI:              result.UsedAI,
	}

	removed, err := s.store.ReplaceGenerated(ctx, weddingID, opts.ClearPrevious, tasks, meta, actor)
	if err != nil {
		return ApplyResult{}, fmt.Errorf("failed to apply template to %s: %w", weddingID, err)
	}
	res.Created = len(tasks)
	res.Removed = removed

	s.logger.Info("applied template", "wedding", weddingID, "created", res.Created,
		"removed", res.Removed, "skipped", res.Skipped, "clear_previous", opts.ClearPrevious, "used_ai", result.UsedAI)

	event, err := events.NewPlanRegeneratedEvent(weddingID, actor,
		fmt.Sprintf("applied plan: %d created, %d removed, %d skipped", res.Created, res.Removed, res.Skipped),
		events.PlanRegeneratedData{
			Created:       res.Created,
			Removed:       res.Removed,
			Skipped:       res.Skipped,
			ClearPrevious: opts.ClearPrevious,
			UsedAI:        result.UsedAI,
		})
	if err == nil {
		err = s.store.StoreTaskEvent(ctx, event)
	}
	if err != nil {
		// The plan is committed; a missing audit entry does not undo it.
		s.logger.Warn("failed to record plan event", "wedding", weddingID, "error", err)
	}
	return res, nil
}

// taskFromBlock maps a template block onto a fresh pending task
func taskFromBlock(weddingID string, b types.TaskTemplateBlock, ref *time.Time) *types.Task {
	prio := b.Priority
	if !prio.IsValid() {
		prio = types.BlockPriorityMedium
	}
	task := &types.Task{
		WeddingID:  weddingID,
		Title:      strings.TrimSpace(b.Title),
		Category:   strings.TrimSpace(b.Category),
		Status:     types.StatusPending,
		Priority:   prio.TaskPriority(),
		IsCritical: prio == types.BlockPriorityCritical,
		Origin:     types.OriginGenerator,
		Metadata: types.TaskMetadata{
			AIRecommendation: string(prio),
			PriorityReason:   b.AIReason,
		},
	}
	if ref != nil {
		due := ref.AddDate(0, 0, -b.SuggestedDueOffsetDays)
		task.DueDate = &due
	}
	return task
}

func validBlocks(blocks []types.TaskTemplateBlock) []types.TaskTemplateBlock {
	out := make([]types.TaskTemplateBlock, 0, len(blocks))
	for _, b := range blocks {
		if strings.TrimSpace(b.Title) != "" {
			out = append(out, b)
		}
	}
	return out
}

func dedupeKey(title, category string) string {
	norm := func(s string) string {
		return strings.Join(strings.Fields(strings.ToLower(s)), " ")
	}
	return norm(title) + "\x00" + norm(category)
}
