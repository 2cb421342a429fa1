package types

import "time"

// Snapshot is an immutable view of a wedding's tasks published after every
// committed write. Tasks are deep copies; subscribers may keep them.
type Snapshot struct {
	WeddingID string
	Tasks     []Task
	Version   int64
	At        time.Time
}
