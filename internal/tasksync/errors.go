package tasksync

import (
	"errors"
	"fmt"
)

var (
	// ErrSyncConflict is matched by SyncConflictError via errors.Is
	ErrSyncConflict = errors.New("regeneration already in progress")
	// ErrNoTemplate is returned when there is no generated plan to apply
	ErrNoTemplate = errors.New("no template to apply")
	// ErrEmptyTemplate is returned when a plan has no block with a title
	ErrEmptyTemplate = errors.New("template has no valid blocks")
)

// SyncConflictError rejects a regeneration while another one for the same
// wedding is still running
type SyncConflictError struct {
	WeddingID string
}

func (e *SyncConflictError) Error() string {
	return fmt.Sprintf("wedding %s: %v", e.WeddingID, ErrSyncConflict)
}

// Is lets errors.Is(err, ErrSyncConflict) match
func (e *SyncConflictError) Is(target error) bool {
	return target == ErrSyncConflict
}
