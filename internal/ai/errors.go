package ai

import (
	"errors"
	"fmt"
)

// Reason classifies why a plan could not be generated
type Reason string

const (
	ReasonTimeout         Reason = "timeout"
	ReasonInvalidResponse Reason = "invalid-response"
	ReasonEmptyResult     Reason = "empty-result"
	ReasonUnavailable     Reason = "unavailable"
)

// Sentinels for errors.Is matching against a GenerationError's reason
var (
	ErrTimeout         = errors.New("plan generation timed out")
	ErrInvalidResponse = errors.New("plan generator returned an invalid response")
	ErrEmptyResult     = errors.New("plan generator returned no usable blocks")
	ErrUnavailable     = errors.New("plan generator unavailable")
)

// GenerationError is returned by GeneratePlan for every failure. The store is
// never touched when one is returned.
type GenerationError struct {
	Reason Reason
	Err    error
}

func (e *GenerationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("plan generation failed (%s)", e.Reason)
	}
	return fmt.Sprintf("plan generation failed (%s): %v", e.Reason, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel that corresponds to the reason
func (e *GenerationError) Is(target error) bool {
	switch target {
	case ErrTimeout:
		return e.Reason == ReasonTimeout
	case ErrInvalidResponse:
		return e.Reason == ReasonInvalidResponse
	case ErrEmptyResult:
		return e.Reason == ReasonEmptyResult
	case ErrUnavailable:
		return e.Reason == ReasonUnavailable
	}
	return false
}

// IsGenerationError reports whether err carries a GenerationError
func IsGenerationError(err error) bool {
	var ge *GenerationError
	return errors.As(err, &ge)
}
