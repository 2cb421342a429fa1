package tasksync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/lovenda/lovenda/internal/ai"
	"github.com/lovenda/lovenda/internal/events"
	"github.com/lovenda/lovenda/internal/planctx"
	"github.com/lovenda/lovenda/internal/storage"
	"github.com/lovenda/lovenda/internal/types"
)

// Request describes one regeneration
type Request struct {
	WeddingID string
	// Profile is the raw wedding profile; planctx.Build normalizes it
	Profile              map[string]any
	ClearPrevious        bool
	Dedupe               bool
	WeddingReferenceDate *time.Time
	Actor                string
}

// Outcome reports what a regeneration produced
type Outcome struct {
	Context      types.PlanningContext
	Result       *types.TemplateResult
	Applied      ApplyResult
	UsedFallback bool
}

// RegeneratorConfig wires a Regenerator
type RegeneratorConfig struct {
	Store     storage.Storage
	Generator ai.Generator
	// Fallback, when set, produces the plan if Generator fails
	Fallback ai.Generator
	Logger   *slog.Logger
	// Now is the clock used to build contexts; defaults to time.Now
	Now func() time.Time
}

// Regenerator runs context building, generation and synchronization for a
// wedding. At most one regeneration per wedding runs at a time; a second
// request fails fast with a SyncConflictError rather than queueing.
type Regenerator struct {
	store     storage.Storage
	generator ai.Generator
	fallback  ai.Generator
	sync      *Synchronizer
	logger    *slog.Logger
	now       func() time.Time

	mu    sync.Mutex
	locks map[string]*semaphore.Weighted
}

// NewRegenerator creates a regenerator
func NewRegenerator(cfg RegeneratorConfig) (*Regenerator, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Generator == nil {
		return nil, fmt.Errorf("generator is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Regenerator{
		store:     cfg.Store,
		generator: cfg.Generator,
		fallback:  cfg.Fallback,
		sync:      NewSynchronizer(cfg.Store, logger),
		logger:    logger,
		now:       now,
		locks:     make(map[string]*semaphore.Weighted),
	}, nil
}

func (r *Regenerator) lockFor(weddingID string) *semaphore.Weighted {
	r.mu.Lock()
	defer r.mu.Unlock()
	sem, ok := r.locks[weddingID]
	if !ok {
		sem = semaphore.NewWeighted(1)
		r.locks[weddingID] = sem
	}
	return sem
}

// Regenerate builds the planning context, generates a plan and applies it.
// A generation failure (with no fallback, or a failing fallback) leaves the
// store untouched.
func (r *Regenerator) Regenerate(ctx context.Context, req Request) (*Outcome, error) {
	if req.WeddingID == "" {
		return nil, fmt.Errorf("wedding id is required")
	}
	sem := r.lockFor(req.WeddingID)
	if !sem.TryAcquire(1) {
		return nil, &SyncConflictError{WeddingID: req.WeddingID}
	}
	defer sem.Release(1)

	actor := req.Actor
	if actor == "" {
		actor = DefaultActor
	}

	pc := planctx.BuildAt(req.Profile, r.now())
	r.logger.Debug("regenerating plan", "wedding", req.WeddingID, "context", pc.String())

	out := &Outcome{Context: pc}
	result, err := r.generator.GeneratePlan(ctx, pc)
	if err != nil {
		r.recordFailure(ctx, req.WeddingID, actor, err)
		if r.fallback == nil || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("failed to generate plan for %s: %w", req.WeddingID, err)
		}
		r.logger.Warn("generator failed, using fallback template", "wedding", req.WeddingID, "error", err)
		result, err = r.fallback.GeneratePlan(ctx, pc)
		if err != nil {
			return nil, fmt.Errorf("failed to generate fallback plan for %s: %w", req.WeddingID, err)
		}
		out.UsedFallback = true
	}
	out.Result = result

	ref := req.WeddingReferenceDate
	if ref == nil {
		ref = pc.WeddingDate
	}
	applied, err := r.sync.ApplyTemplate(ctx, req.WeddingID, result, Options{
		ClearPrevious:        req.ClearPrevious,
		WeddingReferenceDate: ref,
		Dedupe:               req.Dedupe,
		Context:              pc,
		Actor:                actor,
	})
	if err != nil {
		return nil, err
	}
	out.Applied = applied
	return out, nil
}

func (r *Regenerator) recordFailure(ctx context.Context, weddingID, actor string, genErr error) {
	reason := string(ai.ReasonUnavailable)
	var ge *ai.GenerationError
	if errors.As(genErr, &ge) {
		reason = string(ge.Reason)
	}
	event, err := events.NewPlanGenerationFailedEvent(weddingID, actor, "plan generation failed",
		events.PlanGenerationFailedData{Reason: reason, Error: genErr.Error()})
	if err == nil {
		err = r.store.StoreTaskEvent(context.WithoutCancel(ctx), event)
	}
	if err != nil {
		r.logger.Warn("failed to record generation failure", "wedding", weddingID, "error", err)
	}
}

// SeedDefaults returns the context of the last applied template so a form can
// be pre-filled. ok is false when the wedding has never been planned, in which
// case the default context is returned.
func (r *Regenerator) SeedDefaults(ctx context.Context, weddingID string) (types.PlanningContext, bool, error) {
	meta, err := r.store.GetTemplateMetadata(ctx, weddingID)
	if err != nil {
		return types.PlanningContext{}, false, fmt.Errorf("failed to load template metadata: %w", err)
	}
	if meta == nil {
		return types.DefaultPlanningContext(), false, nil
	}
	return meta.Context, true, nil
}
