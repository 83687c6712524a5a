// Package sched models the host runtime's deferred self-call
// capability: enqueue a future call to a named entry point, valid
// within a bounded window of execution slots.
package sched

import (
	"context"

	"chronovault/internal/errs"
	"chronovault/internal/models"
	"chronovault/internal/storage"

	"github.com/pkg/errors"
)

// TargetAutonomousExecute is the only function the engine ever arms.
const TargetAutonomousExecute = "autonomousExecuteDCA"

// Scheduler arms a future self-call. Implementations receive the
// transaction's store view so the armed call commits or rolls back
// together with the state change that requested it.
type Scheduler interface {
	ScheduleCall(ctx context.Context, s storage.Store, call models.PendingCall) error
}

// Config describes the runtime's slot geometry.
type Config struct {
	SlotMs      uint64 // duration of one execution slot
	WindowSlots uint64 // validity window width, in slots
}

func DefaultConfig() Config {
	return Config{SlotMs: 500, WindowSlots: 20}
}

// Window converts a millisecond due time into the [notBefore,
// notAfter] validity window. Delays outside [1 minute, 30 days] are a
// hard failure, preventing runaway or stalled chains of self-calls.
func Window(nowMs, dueMs uint64, cfg Config) (uint64, uint64, error) {
	if dueMs <= nowMs {
		return 0, 0, errors.Wrap(errs.ErrSchedulingWindowInvalid, "due time not in the future")
	}
	delay := dueMs - nowMs
	if delay < models.MinSchedDelayMs || delay > models.MaxSchedDelayMs {
		return 0, 0, errors.Wrapf(errs.ErrSchedulingWindowInvalid, "delay %d ms", delay)
	}

	slots := delay / cfg.SlotMs
	if delay%cfg.SlotMs != 0 {
		slots++
	}
	notBefore := nowMs + slots*cfg.SlotMs
	notAfter := notBefore + cfg.WindowSlots*cfg.SlotMs
	return notBefore, notAfter, nil
}
