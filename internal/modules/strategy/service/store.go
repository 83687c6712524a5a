package service

import (
	"context"

	"chronovault/internal/errs"
	"chronovault/internal/models"
	paramssvc "chronovault/internal/modules/params/service"
	vaultsvc "chronovault/internal/modules/vault/service"
	"chronovault/internal/storage"
	"chronovault/pkg/keys"
	"chronovault/pkg/safe"

	"github.com/pkg/errors"
)

// Store manages the per-strategy records. Records are never deleted;
// deactivation is the terminal soft delete.
type Store struct {
	params *paramssvc.Params
	vault  *vaultsvc.Ledger
}

func New(params *paramssvc.Params, vault *vaultsvc.Ledger) *Store {
	return &Store{params: params, vault: vault}
}

// Create validates the plan, allocates the next ordinal, persists the
// record and locks one amount as the first-execution reservation. Any
// failure aborts the whole transaction, so a failed vault lock leaves
// no partial record and no counter increment.
func (st *Store) Create(ctx context.Context, s storage.Store, owner string, amount, frequency uint64, targetToken string, nextExecution uint64) (*models.Strategy, error) {
	paused, err := st.params.IsPaused(ctx, s)
	if err != nil {
		return nil, err
	}
	if paused {
		return nil, errs.ErrContractPaused
	}

	minAmount, maxAmount, err := st.params.Bounds(ctx, s)
	if err != nil {
		return nil, err
	}
	if amount < minAmount || amount > maxAmount {
		return nil, errors.Wrapf(errs.ErrAmountOutOfRange, "%d not in [%d, %d]", amount, minAmount, maxAmount)
	}
	if frequency < models.MinFrequencyMs || frequency > models.MaxFrequencyMs {
		return nil, errors.Wrapf(errs.ErrFrequencyOutOfRange, "%d ms", frequency)
	}

	ordinal, err := st.params.NextOrdinal(ctx, s)
	if err != nil {
		return nil, err
	}

	rec := &models.Strategy{
		ID:            models.StrategyID(owner, ordinal),
		Owner:         owner,
		Amount:        amount,
		Frequency:     frequency,
		TargetToken:   targetToken,
		NextExecution: nextExecution,
		Active:        true,
		Autonomous:    false,
	}
	if err := st.Save(ctx, s, rec); err != nil {
		return nil, err
	}

	// Prepay the first execution out of the creator's vault balance.
	if err := st.vault.Lock(ctx, s, owner, amount); err != nil {
		return nil, err
	}
	return rec, nil
}

// Get fails with StrategyNotFound for unknown ids.
func (st *Store) Get(ctx context.Context, s storage.Store, id string) (*models.Strategy, error) {
	owner, ok, err := storage.GetString(ctx, s, keys.Strategy(id, keys.FieldOwner))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Wrap(errs.ErrStrategyNotFound, id)
	}

	rec := &models.Strategy{ID: id, Owner: owner}
	if rec.Amount, _, err = storage.GetU64(ctx, s, keys.Strategy(id, keys.FieldAmount)); err != nil {
		return nil, err
	}
	if rec.Frequency, _, err = storage.GetU64(ctx, s, keys.Strategy(id, keys.FieldFrequency)); err != nil {
		return nil, err
	}
	if rec.TargetToken, _, err = storage.GetString(ctx, s, keys.Strategy(id, keys.FieldTarget)); err != nil {
		return nil, err
	}
	if rec.NextExecution, _, err = storage.GetU64(ctx, s, keys.Strategy(id, keys.FieldNextExec)); err != nil {
		return nil, err
	}
	if rec.Active, _, err = storage.GetBool(ctx, s, keys.Strategy(id, keys.FieldActive)); err != nil {
		return nil, err
	}
	if rec.Autonomous, _, err = storage.GetBool(ctx, s, keys.Strategy(id, keys.FieldAutonomous)); err != nil {
		return nil, err
	}
	if rec.TotalInvested, _, err = storage.GetU64(ctx, s, keys.Strategy(id, keys.FieldInvested)); err != nil {
		return nil, err
	}
	if rec.TotalTokens, _, err = storage.GetU64(ctx, s, keys.Strategy(id, keys.FieldTokens)); err != nil {
		return nil, err
	}
	if rec.Executions, _, err = storage.GetU64(ctx, s, keys.Strategy(id, keys.FieldExecutions)); err != nil {
		return nil, err
	}
	return rec, nil
}

// Save persists the full record field by field.
func (st *Store) Save(ctx context.Context, s storage.Store, rec *models.Strategy) error {
	id := rec.ID
	if err := storage.SetString(ctx, s, keys.Strategy(id, keys.FieldOwner), rec.Owner); err != nil {
		return err
	}
	if err := storage.SetU64(ctx, s, keys.Strategy(id, keys.FieldAmount), rec.Amount); err != nil {
		return err
	}
	if err := storage.SetU64(ctx, s, keys.Strategy(id, keys.FieldFrequency), rec.Frequency); err != nil {
		return err
	}
	if err := storage.SetString(ctx, s, keys.Strategy(id, keys.FieldTarget), rec.TargetToken); err != nil {
		return err
	}
	if err := storage.SetU64(ctx, s, keys.Strategy(id, keys.FieldNextExec), rec.NextExecution); err != nil {
		return err
	}
	if err := storage.SetBool(ctx, s, keys.Strategy(id, keys.FieldActive), rec.Active); err != nil {
		return err
	}
	if err := storage.SetBool(ctx, s, keys.Strategy(id, keys.FieldAutonomous), rec.Autonomous); err != nil {
		return err
	}
	if err := storage.SetU64(ctx, s, keys.Strategy(id, keys.FieldInvested), rec.TotalInvested); err != nil {
		return err
	}
	if err := storage.SetU64(ctx, s, keys.Strategy(id, keys.FieldTokens), rec.TotalTokens); err != nil {
		return err
	}
	return storage.SetU64(ctx, s, keys.Strategy(id, keys.FieldExecutions), rec.Executions)
}

// SetAutonomous flips the autonomous flag. Enabling requires an active
// strategy and, when the stored next-execution time is already in the
// past, advances it to now + frequency so the first armed call is not
// immediately due.
func (st *Store) SetAutonomous(ctx context.Context, s storage.Store, caller, id string, enabled bool, nowMs uint64) (*models.Strategy, error) {
	rec, err := st.Get(ctx, s, id)
	if err != nil {
		return nil, err
	}
	if caller != rec.Owner {
		return nil, errors.Wrap(errs.ErrUnauthorized, "not the strategy owner")
	}
	if enabled {
		if !rec.Active {
			return nil, errors.Wrap(errs.ErrStrategyInactive, id)
		}
		if rec.NextExecution <= nowMs {
			next, err := safe.Add(nowMs, rec.Frequency)
			if err != nil {
				return nil, err
			}
			rec.NextExecution = next
		}
	}
	rec.Autonomous = enabled
	if err := st.Save(ctx, s, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Deactivate is the terminal soft delete: the record stays, but no
// execution path will touch it again.
func (st *Store) Deactivate(ctx context.Context, s storage.Store, caller, id string) (*models.Strategy, error) {
	rec, err := st.Get(ctx, s, id)
	if err != nil {
		return nil, err
	}
	if caller != rec.Owner {
		return nil, errors.Wrap(errs.ErrUnauthorized, "not the strategy owner")
	}
	rec.Active = false
	rec.Autonomous = false
	if err := st.Save(ctx, s, rec); err != nil {
		return nil, err
	}
	return rec, nil
}
