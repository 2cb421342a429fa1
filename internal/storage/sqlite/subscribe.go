package sqlite

import (
	"context"
	"time"

	"github.com/lovenda/lovenda/internal/types"
)

// Subscribe registers fn to receive a fresh snapshot of the wedding's tasks
// after every committed write that touches it. fn runs on the writer's
// goroutine after the commit, so it must not block. The returned function
// removes the subscription and is safe to call more than once.
func (s *SQLiteStorage) Subscribe(weddingID string, fn func(types.Snapshot)) func() {
	s.subMu.Lock()
	s.nextSub++
	id := s.nextSub
	if s.subs[weddingID] == nil {
		s.subs[weddingID] = make(map[uint64]func(types.Snapshot))
	}
	s.subs[weddingID][id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if m := s.subs[weddingID]; m != nil {
			delete(m, id)
			if len(m) == 0 {
				delete(s.subs, weddingID)
			}
		}
	}
}

// publish sends the committed state of a wedding to its subscribers.
// Callbacks are invoked outside the lock.
func (s *SQLiteStorage) publish(ctx context.Context, weddingID string) {
	version := s.version.Add(1)

	s.subMu.RLock()
	fns := make([]func(types.Snapshot), 0, len(s.subs[weddingID]))
	for _, fn := range s.subs[weddingID] {
		fns = append(fns, fn)
	}
	s.subMu.RUnlock()
	if len(fns) == 0 {
		return
	}

	// The write already committed; the snapshot read must not fail because
	// the caller gave up.
	tasks, err := s.ListTasks(context.WithoutCancel(ctx), weddingID)
	if err != nil {
		s.logger.Warn("failed to load snapshot for subscribers", "wedding", weddingID, "error", err)
		return
	}

	for _, fn := range fns {
		fn(types.Snapshot{
			WeddingID: weddingID,
			Tasks:     types.CloneTasks(tasks),
			Version:   version,
			At:        time.Now(),
		})
	}
}
