package sched

import (
	"context"
	"sync"
	"time"

	"chronovault/internal/models"
	"chronovault/internal/storage"
	"chronovault/pkg/keys"
	"chronovault/pkg/logger"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
)

// pendingKey holds the whole armed-call book as one sonic-encoded map,
// keyed by call ID. Small enough that one record beats a scan API.
var pendingKey = keys.Sched("pending")

// InvokeFunc submits a brand-new entry-point invocation. It must run
// its own transaction; the dispatcher never calls it while holding one.
type InvokeFunc func(ctx context.Context, target string, argsBlob []byte) error

// Dispatcher is the daemon-side implementation of the scheduling
// primitive: it persists armed calls next to the contract state and
// fires each one as an independent future transaction. A call that
// errors is logged and dropped, matching the chain's no-retry rule.
type Dispatcher struct {
	txr    storage.TxRunner
	invoke InvokeFunc

	mu     sync.Mutex
	timers map[string]*time.Timer
	closed bool
}

func NewDispatcher(txr storage.TxRunner, invoke InvokeFunc) *Dispatcher {
	return &Dispatcher{
		txr:    txr,
		invoke: invoke,
		timers: make(map[string]*time.Timer),
	}
}

// SetInvoke breaks the construction cycle between the dispatcher and
// the contract surface. Must be called before Start.
func (d *Dispatcher) SetInvoke(invoke InvokeFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.invoke = invoke
}

// ScheduleCall stages the call in the caller's transaction and arms an
// in-process timer. The timer is only a hint: on fire the persisted
// record is re-read, so a rolled-back transaction arms nothing.
func (d *Dispatcher) ScheduleCall(ctx context.Context, s storage.Store, call models.PendingCall) error {
	book, err := loadBook(ctx, s)
	if err != nil {
		return err
	}
	book[call.ID] = call
	if err := saveBook(ctx, s, book); err != nil {
		return err
	}
	d.arm(ctx, call)
	return nil
}

// Start re-arms every persisted call after a restart.
func (d *Dispatcher) Start(ctx context.Context) error {
	return d.txr.RunInTx(ctx, func(ctx context.Context, s storage.Store) error {
		book, err := loadBook(ctx, s)
		if err != nil {
			return err
		}
		for _, call := range book {
			d.arm(ctx, call)
		}
		if len(book) > 0 {
			logger.Info("re-armed %d pending autonomous calls", len(book))
		}
		return nil
	})
}

func (d *Dispatcher) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	for id, t := range d.timers {
		t.Stop()
		delete(d.timers, id)
	}
}

func (d *Dispatcher) arm(ctx context.Context, call models.PendingCall) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	if t, ok := d.timers[call.ID]; ok {
		t.Stop()
	}

	delay := time.Until(time.UnixMilli(int64(call.NotBefore)))
	if delay < 0 {
		delay = 0
	}
	id := call.ID
	d.timers[id] = time.AfterFunc(delay, func() {
		d.fire(ctx, id)
	})
}

// fire claims the persisted call, then submits the invocation as its
// own transaction. Claiming first keeps exactly-once delivery even if
// the process dies mid-fire: an unclaimed call re-arms on restart.
func (d *Dispatcher) fire(ctx context.Context, id string) {
	d.mu.Lock()
	delete(d.timers, id)
	d.mu.Unlock()

	var call models.PendingCall
	claimed := false
	err := d.txr.RunInTx(ctx, func(ctx context.Context, s storage.Store) error {
		book, err := loadBook(ctx, s)
		if err != nil {
			return err
		}
		c, ok := book[id]
		if !ok {
			return nil // rolled back or already fired
		}
		call = c
		claimed = true
		delete(book, id)
		return saveBook(ctx, s, book)
	})
	if err != nil {
		logger.Error("failed to claim scheduled call %s: %v", id, err)
		return
	}
	if !claimed {
		return
	}

	now := uint64(time.Now().UnixMilli())
	if now > call.NotAfter {
		logger.Error("scheduled call %s expired: now %d > notAfter %d", id, now, call.NotAfter)
		return
	}

	d.mu.Lock()
	invoke := d.invoke
	d.mu.Unlock()
	if invoke == nil {
		logger.Error("scheduled call %s dropped: no invoker wired", id)
		return
	}
	if err := invoke(ctx, call.Target, call.Args); err != nil {
		logger.Error("scheduled call %s failed: %v", id, err)
	}
}

func loadBook(ctx context.Context, s storage.Store) (map[string]models.PendingCall, error) {
	raw, ok, err := s.Get(ctx, pendingKey)
	if err != nil {
		return nil, err
	}
	book := make(map[string]models.PendingCall)
	if !ok {
		return book, nil
	}
	if err := sonic.Unmarshal(raw, &book); err != nil {
		return nil, errors.Wrap(err, "decode pending calls")
	}
	return book, nil
}

func saveBook(ctx context.Context, s storage.Store, book map[string]models.PendingCall) error {
	raw, err := sonic.Marshal(book)
	if err != nil {
		return errors.Wrap(err, "encode pending calls")
	}
	return s.Set(ctx, pendingKey, raw)
}
