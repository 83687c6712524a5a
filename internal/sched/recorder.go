package sched

import (
	"context"
	"sync"

	"chronovault/internal/models"
	"chronovault/internal/storage"
)

// Recorder records intended future calls instead of arming them.
// Test double for the scheduling primitive.
type Recorder struct {
	mu    sync.Mutex
	Calls []models.PendingCall
}

func (r *Recorder) ScheduleCall(_ context.Context, _ storage.Store, call models.PendingCall) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls = append(r.Calls, call)
	return nil
}

func (r *Recorder) Last() (models.PendingCall, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Calls) == 0 {
		return models.PendingCall{}, false
	}
	return r.Calls[len(r.Calls)-1], true
}
