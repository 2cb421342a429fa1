package ai

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// CircuitState represents the state of a circuit breaker
type CircuitState int

const (
	CircuitClosed   CircuitState = iota // calls pass through
	CircuitOpen                         // calls fail fast
	CircuitHalfOpen                     // a single probe call is let through
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "CLOSED"
	case CircuitOpen:
		return "OPEN"
	case CircuitHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// ErrCircuitOpen is wrapped in an unavailable GenerationError while the
// breaker refuses calls
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreaker stops a long-lived process from calling a model endpoint
// that keeps failing. It never retries; it only refuses calls for a while.
type CircuitBreaker struct {
	mu sync.Mutex

	state            CircuitState
	probeInFlight    bool
	failureCount     int
	lastFailureTime  time.Time
	failureThreshold int
	openTimeout      time.Duration
	now              func() time.Time
	logger           *slog.Logger
}

// NewCircuitBreaker opens after failureThreshold consecutive failures and lets
// a probe through once openTimeout has passed since the last failure
func NewCircuitBreaker(failureThreshold int, openTimeout time.Duration, logger *slog.Logger) *CircuitBreaker {
	if failureThreshold < 1 {
		failureThreshold = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CircuitBreaker{
		state:            CircuitClosed,
		failureThreshold: failureThreshold,
		openTimeout:      openTimeout,
		now:              time.Now,
		logger:           logger,
	}
}

// Allow returns ErrCircuitOpen while the breaker is open, and while a
// half-open probe is outstanding. probe is true for the one call let through
// in half-open state; its caller must record an outcome or call ReleaseProbe.
func (cb *CircuitBreaker) Allow() (probe bool, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		return false, nil
	case CircuitOpen:
		if cb.now().Sub(cb.lastFailureTime) <= cb.openTimeout {
			return false, ErrCircuitOpen
		}
		cb.transition(CircuitHalfOpen)
		cb.probeInFlight = true
		return true, nil
	case CircuitHalfOpen:
		if cb.probeInFlight {
			return false, ErrCircuitOpen
		}
		cb.probeInFlight = true
		return true, nil
	default:
		return false, ErrCircuitOpen
	}
}

// ReleaseProbe gives up a probe that ended without an outcome, e.g. because
// the caller canceled. The breaker stays half-open and lets the next call probe.
func (cb *CircuitBreaker) ReleaseProbe() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.probeInFlight = false
}

// RecordSuccess closes a half-open breaker and resets the failure count
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failureCount = 0
	cb.probeInFlight = false
	if cb.state != CircuitClosed {
		cb.transition(CircuitClosed)
	}
}

// RecordFailure counts a failure; a failed probe reopens immediately
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.lastFailureTime = cb.now()
	cb.failureCount++
	cb.probeInFlight = false

	switch cb.state {
	case CircuitClosed:
		if cb.failureCount >= cb.failureThreshold {
			cb.transition(CircuitOpen)
		}
	case CircuitHalfOpen:
		cb.transition(CircuitOpen)
	}
}

// State returns the current state
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// must be called with cb.mu held
func (cb *CircuitBreaker) transition(to CircuitState) {
	from := cb.state
	cb.state = to
	cb.logger.Info("circuit breaker state transition",
		"from", from,
		"to", to,
		"failures", cb.failureCount,
		"open_timeout", cb.openTimeout)
}
