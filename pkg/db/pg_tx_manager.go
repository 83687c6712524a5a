package db

import (
	"context"
	"fmt"

	"chronovault/pkg/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PoolConfig struct {
	DSN string
}

type PgTxManager struct {
	pool *pgxpool.Pool
}

func NewPgTxManager(pool *pgxpool.Pool) *PgTxManager {
	return &PgTxManager{
		pool: pool,
	}
}

func (m *PgTxManager) Close() {
	m.pool.Close()
}

func NewPool(ctx context.Context, conf PoolConfig) (*pgxpool.Pool, error) {
	return pgxpool.New(ctx, conf.DSN)
}

// Run executes fn inside a serializable transaction. Entry-point
// invocations are transaction-serial, so the strictest isolation level
// is the correct one here, not a performance knob.
func (m *PgTxManager) Run(ctx context.Context, fn func(ctxTx context.Context, tx pgx.Tx) error) error {
	options := pgx.TxOptions{
		IsoLevel: pgx.Serializable,
	}
	return m.inTx(ctx, m.pool, options, fn)
}

func (m *PgTxManager) Conn() Transaction {
	return m.pool
}

// txBeginner is what inTx needs from the pool. Narrowed for tests.
type txBeginner interface {
	BeginTx(ctx context.Context, options pgx.TxOptions) (pgx.Tx, error)
}

// inTx names its error return: the deferred commit must be able to
// overwrite it. At Serializable, conflicts surface at COMMIT, and a
// swallowed commit error would report success for a rolled-back
// transaction.
func (m *PgTxManager) inTx(
	ctx context.Context,
	pool txBeginner,
	options pgx.TxOptions,
	f func(ctxTx context.Context, tx pgx.Tx) error,
) (err error) {
	tx, err := pool.BeginTx(ctx, options)
	if err != nil {
		return fmt.Errorf("failed to begin tx, err: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			logger.Info("%v", p)
			_ = tx.Rollback(ctx)
			panic(p) // fallthrough panic after rollback on caught panic
		} else if err != nil {
			_ = tx.Rollback(ctx) // if error during computations
		} else {
			err = tx.Commit(ctx) // all good
		}
	}()

	err = f(ctx, tx)
	if err != nil {
		return fmt.Errorf("failed to run fn, err: %w", err)
	}

	return nil
}
