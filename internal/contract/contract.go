// Package contract exposes the on-chain entry points. Every method
// decodes a binary argument buffer, runs against one storage
// transaction and emits its typed event only after the commit.
package contract

import (
	"context"
	"fmt"
	"strconv"

	"chronovault/internal/errs"
	"chronovault/internal/events"
	"chronovault/internal/models"
	enginesvc "chronovault/internal/modules/engine/service"
	paramssvc "chronovault/internal/modules/params/service"
	strategysvc "chronovault/internal/modules/strategy/service"
	vaultsvc "chronovault/internal/modules/vault/service"
	"chronovault/internal/storage"
	"chronovault/pkg/args"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
)

// Call carries the invocation context the host runtime supplies:
// caller identity, attached coins and the block timestamp.
type Call struct {
	Caller string
	Coins  uint64
	NowMs  uint64
}

// Genesis is the deploy-time configuration.
type Genesis struct {
	Admin     string
	MinAmount uint64
	MaxAmount uint64
}

type Contract struct {
	txr        storage.TxRunner
	params     *paramssvc.Params
	vault      *vaultsvc.Ledger
	strategies *strategysvc.Store
	engine     *enginesvc.Engine
	oracle     PriceWriter
	sink       events.Sink
	self       string
}

// PriceWriter is the oracle surface the contract needs.
type PriceWriter interface {
	SetPrice(ctx context.Context, s storage.Store, caller, token string, price uint64) error
}

func New(
	txr storage.TxRunner,
	params *paramssvc.Params,
	vault *vaultsvc.Ledger,
	strategies *strategysvc.Store,
	engine *enginesvc.Engine,
	oracle PriceWriter,
	sink events.Sink,
	selfIdentity string,
) *Contract {
	return &Contract{
		txr:        txr,
		params:     params,
		vault:      vault,
		strategies: strategies,
		engine:     engine,
		oracle:     oracle,
		sink:       sink,
		self:       selfIdentity,
	}
}

// Init runs once at deploy.
func (c *Contract) Init(ctx context.Context, call Call, blob []byte) (err error) {
	defer wrap(&err, "Contract.Init")
	ctx, span := startSpan(ctx, "init")
	defer span.Finish()

	r := args.NewReader(blob)
	admin, err := r.NextString()
	if err != nil {
		return err
	}
	return c.InitGenesis(ctx, Genesis{Admin: admin})
}

// InitGenesis is Init with explicit spend bounds, used by the daemon's
// deploy path. Zero bounds fall back to the contract defaults. Genesis
// runs at most once: a re-run would replace the admin and reset the
// strategy counter, recycling ordinals of live strategy records.
func (c *Contract) InitGenesis(ctx context.Context, g Genesis) (err error) {
	defer wrap(&err, "Contract.InitGenesis")
	if g.MinAmount == 0 {
		g.MinAmount = models.DefaultMinAmount
	}
	if g.MaxAmount == 0 {
		g.MaxAmount = models.DefaultMaxAmount
	}
	err = c.txr.RunInTx(ctx, func(ctx context.Context, s storage.Store) error {
		initialized, err := c.params.Initialized(ctx, s)
		if err != nil {
			return err
		}
		if initialized {
			return errs.ErrAlreadyInitialized
		}
		return c.params.Init(ctx, s, g.Admin, g.MinAmount, g.MaxAmount)
	})
	if err != nil {
		return err
	}
	c.sink.Emit(events.Initialized{Admin: g.Admin})
	return nil
}

// EnsureInit deploys genesis on first run and is a no-op afterwards.
func (c *Contract) EnsureInit(ctx context.Context, g Genesis) (err error) {
	defer wrap(&err, "Contract.EnsureInit")
	initialized := false
	err = c.txr.RunInTx(ctx, func(ctx context.Context, s storage.Store) error {
		initialized, err = c.params.Initialized(ctx, s)
		return err
	})
	if err != nil || initialized {
		return err
	}
	return c.InitGenesis(ctx, g)
}

// CreateStrategy locks the first-execution reservation and returns the
// new strategy id.
func (c *Contract) CreateStrategy(ctx context.Context, call Call, blob []byte) (out []byte, err error) {
	defer wrap(&err, "Contract.CreateStrategy")
	ctx, span := startSpan(ctx, "createStrategy")
	defer span.Finish()

	r := args.NewReader(blob)
	amount, err := r.NextU64()
	if err != nil {
		return nil, err
	}
	frequency, err := r.NextU64()
	if err != nil {
		return nil, err
	}
	targetToken, err := r.NextString()
	if err != nil {
		return nil, err
	}
	nextExecution, err := r.NextU64()
	if err != nil {
		return nil, err
	}

	var id string
	err = c.txr.RunInTx(ctx, func(ctx context.Context, s storage.Store) error {
		rec, err := c.strategies.Create(ctx, s, call.Caller, amount, frequency, targetToken, nextExecution)
		if err != nil {
			return err
		}
		id = rec.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.sink.Emit(events.StrategyCreated{ID: id, Owner: call.Caller})
	return []byte(id), nil
}

// DepositToVault credits the attached coins to the caller.
func (c *Contract) DepositToVault(ctx context.Context, call Call) (out []byte, err error) {
	defer wrap(&err, "Contract.DepositToVault")
	ctx, span := startSpan(ctx, "depositToVault")
	defer span.Finish()

	err = c.txr.RunInTx(ctx, func(ctx context.Context, s storage.Store) error {
		_, err := c.vault.Deposit(ctx, s, call.Caller, call.Coins)
		return err
	})
	if err != nil {
		return nil, err
	}
	c.sink.Emit(events.Deposited{Owner: call.Caller, Amount: call.Coins})
	return []byte(fmt.Sprintf("Deposited %d", call.Coins)), nil
}

// GetVaultBalance reads the caller's own balance.
func (c *Contract) GetVaultBalance(ctx context.Context, call Call) (out []byte, err error) {
	defer wrap(&err, "Contract.GetVaultBalance")
	ctx, span := startSpan(ctx, "getVaultBalance")
	defer span.Finish()

	var balance uint64
	err = c.txr.RunInTx(ctx, func(ctx context.Context, s storage.Store) error {
		balance, err = c.vault.BalanceOf(ctx, s, call.Caller)
		return err
	})
	if err != nil {
		return nil, err
	}
	return []byte(strconv.FormatUint(balance, 10)), nil
}

// UpdatePrice is admin-only.
func (c *Contract) UpdatePrice(ctx context.Context, call Call, blob []byte) (out []byte, err error) {
	defer wrap(&err, "Contract.UpdatePrice")
	ctx, span := startSpan(ctx, "updatePrice")
	defer span.Finish()

	r := args.NewReader(blob)
	token, err := r.NextString()
	if err != nil {
		return nil, err
	}
	price, err := r.NextU64()
	if err != nil {
		return nil, err
	}

	err = c.txr.RunInTx(ctx, func(ctx context.Context, s storage.Store) error {
		return c.oracle.SetPrice(ctx, s, call.Caller, token, price)
	})
	if err != nil {
		return nil, err
	}
	c.sink.Emit(events.PriceUpdated{Token: token, Price: price})
	return []byte(fmt.Sprintf("Price updated for %s", token)), nil
}

// ExecuteDCA is the owner-triggered manual execution.
func (c *Contract) ExecuteDCA(ctx context.Context, call Call, blob []byte) (out []byte, err error) {
	defer wrap(&err, "Contract.ExecuteDCA")
	ctx, span := startSpan(ctx, "executeDCA")
	defer span.Finish()

	id, err := args.NewReader(blob).NextString()
	if err != nil {
		return nil, err
	}

	var res *enginesvc.Result
	err = c.txr.RunInTx(ctx, func(ctx context.Context, s storage.Store) error {
		res, err = c.engine.ExecuteManual(ctx, s, call.Caller, id, call.NowMs)
		return err
	})
	if err != nil {
		return nil, err
	}
	c.sink.Emit(events.Executed{
		ID:     id,
		Amount: res.Strategy.Amount,
		Tokens: res.Tokens,
		Token:  res.Strategy.TargetToken,
	})
	return []byte(fmt.Sprintf("Executed: %d -> %d tokens", res.Strategy.Amount, res.Tokens)), nil
}

// AutonomousExecuteDCA accepts only the contract's own identity; the
// scheduling primitive is the sole legitimate caller. The low-balance
// path commits the demotion and returns a failure-shaped value.
func (c *Contract) AutonomousExecuteDCA(ctx context.Context, call Call, blob []byte) (out []byte, err error) {
	defer wrap(&err, "Contract.AutonomousExecuteDCA")
	ctx, span := startSpan(ctx, "autonomousExecuteDCA")
	defer span.Finish()

	if call.Caller != c.self {
		return nil, errors.Wrap(errs.ErrUnauthorized, "self-call only")
	}
	id, err := args.NewReader(blob).NextString()
	if err != nil {
		return nil, err
	}

	var res *enginesvc.Result
	err = c.txr.RunInTx(ctx, func(ctx context.Context, s storage.Store) error {
		res, err = c.engine.ExecuteAutonomous(ctx, s, id, call.NowMs)
		return err
	})
	if err != nil {
		return nil, err
	}
	if res.Demoted {
		c.sink.Emit(events.AutonomousDemoted{
			ID:       id,
			Owner:    res.Strategy.Owner,
			Balance:  res.Balance,
			Required: res.Strategy.Amount,
		})
		return []byte("Execution skipped: insufficient balance, autonomous mode disabled"), nil
	}
	c.sink.Emit(events.Executed{
		ID:         id,
		Amount:     res.Strategy.Amount,
		Tokens:     res.Tokens,
		Token:      res.Strategy.TargetToken,
		Autonomous: true,
	})
	return []byte(fmt.Sprintf("Executed: %d -> %d tokens", res.Strategy.Amount, res.Tokens)), nil
}

// EnableAutonomousExecution arms the first scheduled call.
func (c *Contract) EnableAutonomousExecution(ctx context.Context, call Call, blob []byte) (out []byte, err error) {
	defer wrap(&err, "Contract.EnableAutonomousExecution")
	ctx, span := startSpan(ctx, "enableAutonomousExecution")
	defer span.Finish()

	id, err := args.NewReader(blob).NextString()
	if err != nil {
		return nil, err
	}

	var next uint64
	err = c.txr.RunInTx(ctx, func(ctx context.Context, s storage.Store) error {
		rec, err := c.engine.EnableAutonomous(ctx, s, call.Caller, id, call.NowMs)
		if err != nil {
			return err
		}
		next = rec.NextExecution
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.sink.Emit(events.AutonomousEnabled{ID: id, NextExecution: next})
	return []byte(fmt.Sprintf("Autonomous execution enabled for %s", id)), nil
}

// DisableAutonomousExecution flips the flag; a previously armed call
// may still fire and fail harmlessly.
func (c *Contract) DisableAutonomousExecution(ctx context.Context, call Call, blob []byte) (out []byte, err error) {
	defer wrap(&err, "Contract.DisableAutonomousExecution")
	ctx, span := startSpan(ctx, "disableAutonomousExecution")
	defer span.Finish()

	id, err := args.NewReader(blob).NextString()
	if err != nil {
		return nil, err
	}

	err = c.txr.RunInTx(ctx, func(ctx context.Context, s storage.Store) error {
		_, err := c.engine.DisableAutonomous(ctx, s, call.Caller, id, call.NowMs)
		return err
	})
	if err != nil {
		return nil, err
	}
	c.sink.Emit(events.AutonomousDisabled{ID: id})
	return []byte(fmt.Sprintf("Autonomous execution disabled for %s", id)), nil
}

// DeactivateStrategy is the owner's terminal soft delete.
func (c *Contract) DeactivateStrategy(ctx context.Context, call Call, blob []byte) (out []byte, err error) {
	defer wrap(&err, "Contract.DeactivateStrategy")
	ctx, span := startSpan(ctx, "deactivateStrategy")
	defer span.Finish()

	id, err := args.NewReader(blob).NextString()
	if err != nil {
		return nil, err
	}

	err = c.txr.RunInTx(ctx, func(ctx context.Context, s storage.Store) error {
		_, err := c.strategies.Deactivate(ctx, s, call.Caller, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	c.sink.Emit(events.StrategyDeactivated{ID: id})
	return []byte(fmt.Sprintf("Strategy deactivated: %s", id)), nil
}

// GetStrategy returns the human-readable record summary.
func (c *Contract) GetStrategy(ctx context.Context, call Call, blob []byte) (out []byte, err error) {
	defer wrap(&err, "Contract.GetStrategy")
	ctx, span := startSpan(ctx, "getStrategy")
	defer span.Finish()

	id, err := args.NewReader(blob).NextString()
	if err != nil {
		return nil, err
	}

	var summary string
	err = c.txr.RunInTx(ctx, func(ctx context.Context, s storage.Store) error {
		rec, err := c.strategies.Get(ctx, s, id)
		if err != nil {
			return err
		}
		summary = rec.Summary()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return []byte(summary), nil
}

// SetPaused is the admin kill switch for strategy creation.
func (c *Contract) SetPaused(ctx context.Context, call Call, paused bool) (err error) {
	defer wrap(&err, "Contract.SetPaused")
	ctx, span := startSpan(ctx, "setPaused")
	defer span.Finish()

	err = c.txr.RunInTx(ctx, func(ctx context.Context, s storage.Store) error {
		return c.params.SetPaused(ctx, s, call.Caller, paused)
	})
	if err != nil {
		return err
	}
	c.sink.Emit(events.PauseChanged{Paused: paused})
	return nil
}

func wrap(err *error, op string) {
	if *err != nil {
		*err = errors.Wrap(*err, op)
	}
}

func startSpan(ctx context.Context, name string) (context.Context, opentracing.Span) {
	span, ctx := opentracing.StartSpanFromContext(ctx, name)
	return ctx, span
}
