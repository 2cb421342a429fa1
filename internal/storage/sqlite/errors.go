package sqlite

import (
	"errors"
	"fmt"

	"github.com/lovenda/lovenda/internal/types"
)

// ErrNotFound is matched by NotFoundError via errors.Is
var ErrNotFound = errors.New("not found")

// ErrFieldNotUpdatable is returned when UpdateTask is given a key outside the whitelist
var ErrFieldNotUpdatable = errors.New("field not updatable")

// ErrAmbiguousID is returned when an id prefix matches more than one task
var ErrAmbiguousID = errors.New("ambiguous task id")

// ErrStatusChanged is returned when an update's expected status no longer holds
var ErrStatusChanged = errors.New("task status changed")

// ExpectStatus is an UpdateTask key that is checked, not written: the update
// only applies while the stored status still equals its value.
const ExpectStatus = "expect_status"

// StatusChangedError reports a failed ExpectStatus precondition
type StatusChangedError struct {
	ID       string
	Expected types.Status
	Actual   types.Status
}

func (e *StatusChangedError) Error() string {
	return fmt.Sprintf("task %s: status is %s, expected %s", e.ID, e.Actual, e.Expected)
}

// Is lets errors.Is(err, ErrStatusChanged) match
func (e *StatusChangedError) Is(target error) bool {
	return target == ErrStatusChanged
}

// NotFoundError reports a task id with no row behind it
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("task %s not found", e.ID)
}

// Is lets errors.Is(err, ErrNotFound) match
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
