// Package storage is the persistent key-value repository behind every
// contract component. All state lives here; components never hold an
// entity in memory across invocations.
package storage

import (
	"context"
	"encoding/binary"

	"chronovault/pkg/keys"
)

// Store is the repository view handed to components. Inside a
// transaction all methods operate on the staged overlay.
type Store interface {
	Get(ctx context.Context, k keys.Key) ([]byte, bool, error)
	Set(ctx context.Context, k keys.Key, v []byte) error
	Has(ctx context.Context, k keys.Key) (bool, error)
	Delete(ctx context.Context, k keys.Key) error
}

// TxRunner executes fn atomically: a non-nil error discards every
// write fn made. This is the host runtime's all-or-nothing guarantee.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, s Store) error) error
}

// Values are stored in the contract's wire encoding: u64 as 8
// little-endian bytes, strings and bools ("true"/"false") as UTF-8.

func SetU64(ctx context.Context, s Store, k keys.Key, v uint64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return s.Set(ctx, k, b[:])
}

func GetU64(ctx context.Context, s Store, k keys.Key) (uint64, bool, error) {
	raw, ok, err := s.Get(ctx, k)
	if err != nil || !ok {
		return 0, ok, err
	}
	if len(raw) != 8 {
		return 0, false, errCorrupt(k)
	}
	return binary.LittleEndian.Uint64(raw), true, nil
}

func SetString(ctx context.Context, s Store, k keys.Key, v string) error {
	return s.Set(ctx, k, []byte(v))
}

func GetString(ctx context.Context, s Store, k keys.Key) (string, bool, error) {
	raw, ok, err := s.Get(ctx, k)
	if err != nil || !ok {
		return "", ok, err
	}
	return string(raw), true, nil
}

func SetBool(ctx context.Context, s Store, k keys.Key, v bool) error {
	if v {
		return SetString(ctx, s, k, "true")
	}
	return SetString(ctx, s, k, "false")
}

func GetBool(ctx context.Context, s Store, k keys.Key) (bool, bool, error) {
	raw, ok, err := GetString(ctx, s, k)
	if err != nil || !ok {
		return false, ok, err
	}
	return raw == "true", true, nil
}
