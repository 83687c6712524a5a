package service

import (
	"context"

	"chronovault/internal/errs"
	"chronovault/internal/storage"
	"chronovault/pkg/keys"

	"github.com/pkg/errors"
)

// AdminChecker gates writes to the admin identity.
type AdminChecker interface {
	RequireAdmin(ctx context.Context, s storage.Store, caller string) error
}

// Oracle is the admin-fed token price book. A new write replaces the
// prior value; no history is retained.
type Oracle struct {
	admin AdminChecker
}

func New(admin AdminChecker) *Oracle {
	return &Oracle{admin: admin}
}

func (o *Oracle) SetPrice(ctx context.Context, s storage.Store, caller, token string, price uint64) error {
	if err := o.admin.RequireAdmin(ctx, s, caller); err != nil {
		return err
	}
	if price == 0 {
		return errors.Wrap(errs.ErrInvalidPrice, token)
	}
	return storage.SetU64(ctx, s, keys.Price(token), price)
}

func (o *Oracle) GetPrice(ctx context.Context, s storage.Store, token string) (uint64, error) {
	price, ok, err := storage.GetU64(ctx, s, keys.Price(token))
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, errors.Wrap(errs.ErrPriceUnavailable, token)
	}
	return price, nil
}
