package service

import (
	"context"

	"chronovault/internal/errs"
	"chronovault/internal/storage"
	"chronovault/pkg/keys"
	"chronovault/pkg/safe"

	"github.com/pkg/errors"
)

// Params owns the contract singletons: admin identity, pause flag,
// strategy counter and the per-execution spend bounds.
type Params struct{}

func New() *Params { return &Params{} }

// Init writes the genesis configuration. Runs once, at deploy.
func (p *Params) Init(ctx context.Context, s storage.Store, admin string, minAmount, maxAmount uint64) error {
	if err := storage.SetString(ctx, s, keys.Config(keys.FieldAdmin), admin); err != nil {
		return err
	}
	if err := storage.SetU64(ctx, s, keys.Config(keys.FieldCounter), 0); err != nil {
		return err
	}
	if err := storage.SetU64(ctx, s, keys.Config(keys.FieldMinAmount), minAmount); err != nil {
		return err
	}
	if err := storage.SetU64(ctx, s, keys.Config(keys.FieldMaxAmount), maxAmount); err != nil {
		return err
	}
	return storage.SetBool(ctx, s, keys.Config(keys.FieldPaused), false)
}

// Initialized reports whether genesis has run.
func (p *Params) Initialized(ctx context.Context, s storage.Store) (bool, error) {
	return s.Has(ctx, keys.Config(keys.FieldAdmin))
}

func (p *Params) Admin(ctx context.Context, s storage.Store) (string, error) {
	admin, ok, err := storage.GetString(ctx, s, keys.Config(keys.FieldAdmin))
	if err != nil {
		return "", err
	}
	if !ok {
		return "", errors.New("contract not initialized")
	}
	return admin, nil
}

// RequireAdmin fails with Unauthorized unless caller is the admin.
func (p *Params) RequireAdmin(ctx context.Context, s storage.Store, caller string) error {
	admin, err := p.Admin(ctx, s)
	if err != nil {
		return err
	}
	if caller != admin {
		return errors.Wrap(errs.ErrUnauthorized, "admin-only operation")
	}
	return nil
}

func (p *Params) IsPaused(ctx context.Context, s storage.Store) (bool, error) {
	paused, ok, err := storage.GetBool(ctx, s, keys.Config(keys.FieldPaused))
	if err != nil || !ok {
		return false, err
	}
	return paused, nil
}

func (p *Params) SetPaused(ctx context.Context, s storage.Store, caller string, paused bool) error {
	if err := p.RequireAdmin(ctx, s, caller); err != nil {
		return err
	}
	return storage.SetBool(ctx, s, keys.Config(keys.FieldPaused), paused)
}

// Bounds returns the inclusive [min, max] per-execution spend range.
func (p *Params) Bounds(ctx context.Context, s storage.Store) (uint64, uint64, error) {
	min, _, err := storage.GetU64(ctx, s, keys.Config(keys.FieldMinAmount))
	if err != nil {
		return 0, 0, err
	}
	max, _, err := storage.GetU64(ctx, s, keys.Config(keys.FieldMaxAmount))
	if err != nil {
		return 0, 0, err
	}
	return min, max, nil
}

// NextOrdinal returns the current counter value and persists the
// increment. The returned ordinal names the strategy being created.
func (p *Params) NextOrdinal(ctx context.Context, s storage.Store) (uint64, error) {
	cur, _, err := storage.GetU64(ctx, s, keys.Config(keys.FieldCounter))
	if err != nil {
		return 0, err
	}
	next, err := safe.Add(cur, 1)
	if err != nil {
		return 0, err
	}
	if err := storage.SetU64(ctx, s, keys.Config(keys.FieldCounter), next); err != nil {
		return 0, err
	}
	return cur, nil
}

// Counter reads the strategy counter without advancing it.
func (p *Params) Counter(ctx context.Context, s storage.Store) (uint64, error) {
	cur, _, err := storage.GetU64(ctx, s, keys.Config(keys.FieldCounter))
	return cur, err
}
