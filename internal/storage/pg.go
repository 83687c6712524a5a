package storage

import (
	"context"
	"fmt"

	"chronovault/pkg/db"
	"chronovault/pkg/keys"

	"github.com/jackc/pgx/v5"
)

// PG persists the contract state in a single key-value table. Keys are
// stored in their canonical byte form, values in the wire encoding.
type PG struct {
	tm *db.PgTxManager
}

func NewPG(tm *db.PgTxManager) *PG {
	return &PG{tm: tm}
}

// EnsureSchema creates the state table if it does not exist yet.
func (p *PG) EnsureSchema(ctx context.Context) error {
	return p.tm.Run(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx, `
			CREATE TABLE IF NOT EXISTS vault_kv (
				key   BYTEA PRIMARY KEY,
				value BYTEA NOT NULL
			);
		`)
		return err
	})
}

func (p *PG) RunInTx(ctx context.Context, fn func(ctx context.Context, s Store) error) error {
	return p.tm.Run(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		return fn(ctxTx, &pgStore{tx: tx})
	})
}

type pgStore struct {
	tx pgx.Tx
}

func (s *pgStore) Get(ctx context.Context, k keys.Key) ([]byte, bool, error) {
	var v []byte
	err := s.tx.QueryRow(ctx,
		"SELECT value FROM vault_kv WHERE key = $1", k.Bytes(),
	).Scan(&v)
	if err == pgx.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("pgStore.Get %s: %w", k, err)
	}
	return v, true, nil
}

func (s *pgStore) Set(ctx context.Context, k keys.Key, v []byte) error {
	_, err := s.tx.Exec(ctx,
		"INSERT INTO vault_kv (key, value) VALUES ($1, $2) ON CONFLICT (key) DO UPDATE SET value = excluded.value",
		k.Bytes(), v,
	)
	if err != nil {
		return fmt.Errorf("pgStore.Set %s: %w", k, err)
	}
	return nil
}

func (s *pgStore) Has(ctx context.Context, k keys.Key) (bool, error) {
	_, ok, err := s.Get(ctx, k)
	return ok, err
}

func (s *pgStore) Delete(ctx context.Context, k keys.Key) error {
	_, err := s.tx.Exec(ctx, "DELETE FROM vault_kv WHERE key = $1", k.Bytes())
	if err != nil {
		return fmt.Errorf("pgStore.Delete %s: %w", k, err)
	}
	return nil
}
