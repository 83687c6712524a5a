package service

import (
	"context"

	"chronovault/internal/errs"
	"chronovault/internal/storage"
	"chronovault/pkg/keys"
	"chronovault/pkg/safe"

	"github.com/pkg/errors"
)

// Ledger is the per-owner custodied balance. The stored balance is the
// only value mutated by more than one entry point, so every mutation
// is a read-modify-write against the transaction's view of it.
type Ledger struct{}

func New() *Ledger { return &Ledger{} }

// Deposit credits amount to owner, creating the account on first use.
// amount comes from the call's attached value, never a plain argument.
func (l *Ledger) Deposit(ctx context.Context, s storage.Store, owner string, amount uint64) (uint64, error) {
	if amount == 0 {
		return 0, errors.New("no coins transferred")
	}
	cur, _, err := storage.GetU64(ctx, s, keys.Vault(owner))
	if err != nil {
		return 0, err
	}
	bal, err := safe.Add(cur, amount)
	if err != nil {
		return 0, errors.Wrap(err, "vault balance")
	}
	if err := storage.SetU64(ctx, s, keys.Vault(owner), bal); err != nil {
		return 0, err
	}
	return bal, nil
}

// Lock debits amount from owner. Requires an existing account with a
// sufficient balance; the balance can never go negative.
func (l *Ledger) Lock(ctx context.Context, s storage.Store, owner string, amount uint64) error {
	cur, ok, err := storage.GetU64(ctx, s, keys.Vault(owner))
	if err != nil {
		return err
	}
	if !ok {
		return errors.Wrap(errs.ErrInsufficientFunds, "no vault balance found")
	}
	bal, err := safe.Sub(cur, amount)
	if err != nil {
		return errors.Wrapf(errs.ErrInsufficientFunds, "have %d, need %d", cur, amount)
	}
	return storage.SetU64(ctx, s, keys.Vault(owner), bal)
}

// BalanceOf returns 0 for owners that never deposited.
func (l *Ledger) BalanceOf(ctx context.Context, s storage.Store, owner string) (uint64, error) {
	bal, _, err := storage.GetU64(ctx, s, keys.Vault(owner))
	return bal, err
}
