// Package ai generates wedding plans with a language model. The Gateway makes
// exactly one outbound call per request and reports every failure as a
// GenerationError; it never retries.
package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lovenda/lovenda/internal/types"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// DefaultTimeout bounds a single generation call
const DefaultTimeout = 30 * time.Second

// Generator produces a task template for a planning context
type Generator interface {
	GeneratePlan(ctx context.Context, pc types.PlanningContext) (*types.TemplateResult, error)
}

var _ Generator = (*Gateway)(nil)

// Config holds gateway configuration
type Config struct {
	Completer          Completer
	Timeout            time.Duration // Default: DefaultTimeout
	MaxConcurrentCalls int           // 0 = unlimited
	RateLimit          rate.Limit    // Calls per second; 0 = unlimited
	RateBurst          int           // Default: 1
	// Breaker, when set, refuses calls after repeated unavailable/timeout
	// failures
	Breaker *CircuitBreaker
	Logger  *slog.Logger
}

// Gateway implements plan generation on top of a Completer
type Gateway struct {
	completer Completer
	timeout   time.Duration
	sem       *semaphore.Weighted
	limiter   *rate.Limiter
	breaker   *CircuitBreaker
	logger    *slog.Logger
}

// NewGateway creates a gateway
func NewGateway(cfg Config) (*Gateway, error) {
	if cfg.Completer == nil {
		return nil, fmt.Errorf("completer is required")
	}
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("timeout must be non-negative (got %v)", cfg.Timeout)
	}

	g := &Gateway{
		completer: cfg.Completer,
		timeout:   cfg.Timeout,
		breaker:   cfg.Breaker,
		logger:    cfg.Logger,
	}
	if g.timeout == 0 {
		g.timeout = DefaultTimeout
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	if cfg.MaxConcurrentCalls > 0 {
		g.sem = semaphore.NewWeighted(int64(cfg.MaxConcurrentCalls))
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(cfg.RateLimit, burst)
	}
	return g, nil
}

// GeneratePlan asks the model for a checklist tailored to pc and returns the
// normalized result. The returned result always has at least one block.
func (g *Gateway) GeneratePlan(ctx context.Context, pc types.PlanningContext) (*types.TemplateResult, error) {
	recorded := false
	if g.breaker != nil {
		probe, err := g.breaker.Allow()
		if err != nil {
			return nil, &GenerationError{Reason: ReasonUnavailable, Err: err}
		}
		if probe {
			defer func() {
				if !recorded {
					g.breaker.ReleaseProbe()
				}
			}()
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	if g.sem != nil {
		if err := g.sem.Acquire(callCtx, 1); err != nil {
			return nil, g.classify(ctx, callCtx, err)
		}
		defer g.sem.Release(1)
	}
	if g.limiter != nil {
		if err := g.limiter.Wait(callCtx); err != nil {
			if callCtx.Err() == nil {
				// Wait refuses up front when the next token lands after the deadline
				return nil, &GenerationError{Reason: ReasonTimeout, Err: err}
			}
			return nil, g.classify(ctx, callCtx, err)
		}
	}

	start := time.Now()
	text, err := g.completer.Complete(callCtx, buildPlanPrompt(pc))
	if err != nil {
		gerr := g.classify(ctx, callCtx, err)
		if g.breaker != nil && ctx.Err() == nil {
			g.breaker.RecordFailure()
			recorded = true
		}
		g.logger.Warn("plan generation failed",
			"reason", gerr.Reason,
			"duration", time.Since(start),
			"error", err)
		return nil, gerr
	}
	if g.breaker != nil {
		g.breaker.RecordSuccess()
		recorded = true
	}

	parsed := Parse[any](text, ParseOptions{Context: "plan response", Logger: g.logger})
	if !parsed.Success {
		return nil, &GenerationError{Reason: ReasonInvalidResponse, Err: errors.New(parsed.Error)}
	}

	result, ok := normalizePlan(parsed.Data)
	if !ok {
		return nil, &GenerationError{
			Reason: ReasonInvalidResponse,
			Err:    fmt.Errorf("expected a JSON object or array, got %T", parsed.Data),
		}
	}
	if len(result.Blocks) == 0 {
		return nil, &GenerationError{Reason: ReasonEmptyResult}
	}
	result.UsedAI = true

	g.logger.Debug("plan generated",
		"blocks", len(result.Blocks),
		"duration", time.Since(start))
	return result, nil
}

// classify maps a call failure to a reason. The parent context being
// cancelled is not a timeout; a deadline, ours or the caller's, is.
func (g *Gateway) classify(parent, call context.Context, err error) *GenerationError {
	switch {
	case errors.Is(parent.Err(), context.Canceled):
		return &GenerationError{Reason: ReasonUnavailable, Err: parent.Err()}
	case call.Err() == context.DeadlineExceeded, errors.Is(err, context.DeadlineExceeded):
		return &GenerationError{Reason: ReasonTimeout, Err: err}
	default:
		return &GenerationError{Reason: ReasonUnavailable, Err: err}
	}
}
