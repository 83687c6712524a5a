package storage

import (
	"context"
	"sync"

	"chronovault/pkg/keys"
)

// Memory is the in-process store used by tests and DSN-less daemons.
// RunInTx holds the store mutex for the whole transaction, which gives
// the same transaction-serial ordering the chain runtime guarantees.
type Memory struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) RunInTx(ctx context.Context, fn func(ctx context.Context, s Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ov := &overlay{
		base:    m.data,
		writes:  make(map[string][]byte),
		deletes: make(map[string]struct{}),
	}
	if err := fn(ctx, ov); err != nil {
		return err
	}

	for k := range ov.deletes {
		delete(m.data, k)
	}
	for k, v := range ov.writes {
		m.data[k] = v
	}
	return nil
}

// Len reports the number of committed entries. Test helper.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

// overlay stages writes on top of the committed map. Reads see staged
// state first, so a transaction observes its own writes.
type overlay struct {
	base    map[string][]byte
	writes  map[string][]byte
	deletes map[string]struct{}
}

func (o *overlay) Get(_ context.Context, k keys.Key) ([]byte, bool, error) {
	sk := string(k.Bytes())
	if _, dead := o.deletes[sk]; dead {
		return nil, false, nil
	}
	if v, ok := o.writes[sk]; ok {
		return append([]byte(nil), v...), true, nil
	}
	v, ok := o.base[sk]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (o *overlay) Set(_ context.Context, k keys.Key, v []byte) error {
	sk := string(k.Bytes())
	delete(o.deletes, sk)
	o.writes[sk] = append([]byte(nil), v...)
	return nil
}

func (o *overlay) Has(ctx context.Context, k keys.Key) (bool, error) {
	_, ok, err := o.Get(ctx, k)
	return ok, err
}

func (o *overlay) Delete(_ context.Context, k keys.Key) error {
	sk := string(k.Bytes())
	delete(o.writes, sk)
	o.deletes[sk] = struct{}{}
	return nil
}
