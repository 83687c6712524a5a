package service

import (
	"context"
	"fmt"

	"chronovault/internal/errs"
	"chronovault/internal/models"
	oraclesvc "chronovault/internal/modules/oracle/service"
	strategysvc "chronovault/internal/modules/strategy/service"
	vaultsvc "chronovault/internal/modules/vault/service"
	"chronovault/internal/sched"
	"chronovault/internal/storage"
	"chronovault/pkg/args"
	"chronovault/pkg/safe"

	"github.com/pkg/errors"
)

// Engine orchestrates purchase execution and the self-rescheduling
// loop. Funds policy: creation prepaid the first execution, so manual
// runs are pure bookkeeping against that reservation; each autonomous
// run debits one amount up front, prepaying the next run.
type Engine struct {
	vault      *vaultsvc.Ledger
	oracle     *oraclesvc.Oracle
	strategies *strategysvc.Store
	scheduler  sched.Scheduler
	schedCfg   sched.Config
}

func New(
	vault *vaultsvc.Ledger,
	oracle *oraclesvc.Oracle,
	strategies *strategysvc.Store,
	scheduler sched.Scheduler,
	schedCfg sched.Config,
) *Engine {
	return &Engine{
		vault:      vault,
		oracle:     oracle,
		strategies: strategies,
		scheduler:  scheduler,
		schedCfg:   schedCfg,
	}
}

// Result reports one execution. Demoted marks the soft-failure path:
// the strategy fell back to manual and no purchase happened; Balance
// is the vault balance that fell short.
type Result struct {
	Strategy *models.Strategy
	Tokens   uint64
	Demoted  bool
	Balance  uint64
}

// ExecuteManual runs one owner-triggered purchase. The vault is not
// touched; the spend comes out of the standing reservation.
func (e *Engine) ExecuteManual(ctx context.Context, s storage.Store, caller, id string, nowMs uint64) (*Result, error) {
	rec, err := e.strategies.Get(ctx, s, id)
	if err != nil {
		return nil, err
	}
	if caller != rec.Owner {
		return nil, errors.Wrap(errs.ErrUnauthorized, "not the strategy owner")
	}
	if !rec.Active {
		return nil, errors.Wrap(errs.ErrStrategyInactive, id)
	}

	tokens, err := e.applyExecution(ctx, s, rec, nowMs)
	if err != nil {
		return nil, err
	}
	if err := e.strategies.Save(ctx, s, rec); err != nil {
		return nil, err
	}
	return &Result{Strategy: rec, Tokens: tokens}, nil
}

// ExecuteAutonomous runs one scheduled purchase and re-arms the next
// one. An underfunded vault demotes the strategy to manual and commits
// that flip instead of aborting; every other failure aborts.
func (e *Engine) ExecuteAutonomous(ctx context.Context, s storage.Store, id string, nowMs uint64) (*Result, error) {
	rec, err := e.strategies.Get(ctx, s, id)
	if err != nil {
		return nil, err
	}
	if !rec.Active {
		return nil, errors.Wrap(errs.ErrStrategyInactive, id)
	}
	if !rec.Autonomous {
		return nil, errors.Wrap(errs.ErrStrategyInactive, "autonomous execution disabled")
	}
	if nowMs < rec.NextExecution {
		return nil, errors.Wrapf(errs.ErrTooEarly, "due at %d, now %d", rec.NextExecution, nowMs)
	}

	balance, err := e.vault.BalanceOf(ctx, s, rec.Owner)
	if err != nil {
		return nil, err
	}
	if balance < rec.Amount {
		// Soft failure: committing the demotion is the point, an
		// abort would discard the stop-retrying flag flip.
		rec.Autonomous = false
		if err := e.strategies.Save(ctx, s, rec); err != nil {
			return nil, err
		}
		return &Result{Strategy: rec, Demoted: true, Balance: balance}, nil
	}

	if err := e.vault.Lock(ctx, s, rec.Owner, rec.Amount); err != nil {
		return nil, err
	}
	tokens, err := e.applyExecution(ctx, s, rec, nowMs)
	if err != nil {
		return nil, err
	}
	if err := e.strategies.Save(ctx, s, rec); err != nil {
		return nil, err
	}
	if err := e.arm(ctx, s, rec, nowMs); err != nil {
		return nil, err
	}
	return &Result{Strategy: rec, Tokens: tokens}, nil
}

// EnableAutonomous flips the flag and arms the first scheduled call.
func (e *Engine) EnableAutonomous(ctx context.Context, s storage.Store, caller, id string, nowMs uint64) (*models.Strategy, error) {
	rec, err := e.strategies.SetAutonomous(ctx, s, caller, id, true, nowMs)
	if err != nil {
		return nil, err
	}
	if err := e.arm(ctx, s, rec, nowMs); err != nil {
		return nil, err
	}
	return rec, nil
}

// DisableAutonomous only flips the flag. An already-armed call still
// fires, observes the flag and fails harmlessly; there is no way to
// withdraw a submitted future call.
func (e *Engine) DisableAutonomous(ctx context.Context, s storage.Store, caller, id string, nowMs uint64) (*models.Strategy, error) {
	return e.strategies.SetAutonomous(ctx, s, caller, id, false, nowMs)
}

// applyExecution books one purchase at the current oracle price and
// advances the due time. Token amounts use integer floor division.
func (e *Engine) applyExecution(ctx context.Context, s storage.Store, rec *models.Strategy, nowMs uint64) (uint64, error) {
	price, err := e.oracle.GetPrice(ctx, s, rec.TargetToken)
	if err != nil {
		return 0, err
	}
	tokens := safe.Div(rec.Amount, price)

	if rec.TotalInvested, err = safe.Add(rec.TotalInvested, rec.Amount); err != nil {
		return 0, err
	}
	if rec.TotalTokens, err = safe.Add(rec.TotalTokens, tokens); err != nil {
		return 0, err
	}
	if rec.Executions, err = safe.Add(rec.Executions, 1); err != nil {
		return 0, err
	}
	if rec.NextExecution, err = safe.Add(nowMs, rec.Frequency); err != nil {
		return 0, err
	}
	return tokens, nil
}

func (e *Engine) arm(ctx context.Context, s storage.Store, rec *models.Strategy, nowMs uint64) error {
	notBefore, notAfter, err := sched.Window(nowMs, rec.NextExecution, e.schedCfg)
	if err != nil {
		return err
	}
	call := models.PendingCall{
		ID:        fmt.Sprintf("%s@%d", rec.ID, notBefore),
		Target:    sched.TargetAutonomousExecute,
		Args:      args.NewWriter().AddString(rec.ID).Bytes(),
		NotBefore: notBefore,
		NotAfter:  notAfter,
	}
	return e.scheduler.ScheduleCall(ctx, s, call)
}
