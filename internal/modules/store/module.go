package store

import (
	"context"
	"fmt"

	"chronovault/internal/modules/config"
	"chronovault/internal/storage"
	"chronovault/pkg/db"
	"chronovault/pkg/logger"

	"go.uber.org/fx"
)

// Module provides the storage.TxRunner: postgres when a DSN is
// configured, otherwise the in-memory store.
func Module() fx.Option {
	return fx.Module("store",
		fx.Provide(
			func(ctx context.Context, cfg *config.Config) (storage.TxRunner, error) {
				if cfg.DB == "" {
					logger.Info("no DSN configured, running on the in-memory store")
					return storage.NewMemory(), nil
				}

				pool, err := db.NewPool(ctx, db.PoolConfig{DSN: cfg.DB})
				if err != nil {
					return nil, fmt.Errorf("failed to create pool: %w", err)
				}
				if err = pool.Ping(ctx); err != nil {
					return nil, err
				}

				pg := storage.NewPG(db.NewPgTxManager(pool))
				if err := pg.EnsureSchema(ctx); err != nil {
					return nil, err
				}
				return pg, nil
			},
		),
	)
}
