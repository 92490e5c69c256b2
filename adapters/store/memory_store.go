package store

import (
	"context"
	"sync"

	"github.com/layer-3/sweeper/ports"
)

// MemoryStore is an in-memory implementation of the Ledger interface.
// Transactions are serialized by a single lock, which gives the same total
// commit order a real ledger provides.
type MemoryStore struct {
	data   map[string][]byte
	mu     sync.RWMutex
	closed bool
}

// NewMemoryStore creates a new in-memory ledger
func NewMemoryStore() ports.Ledger {
	return &MemoryStore{
		data: make(map[string][]byte),
	}
}

// Update runs f against a write set layered over the committed data and
// applies the write set only if f succeeds.
func (s *MemoryStore) Update(ctx context.Context, f func(tx ports.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	tx := &memoryTx{
		base:   s.data,
		writes: make(map[string][]byte),
	}
	if err := f(tx); err != nil {
		return err
	}

	for k, v := range tx.writes {
		if v == nil {
			delete(s.data, k)
			continue
		}
		s.data[k] = v
	}

	return nil
}

// View runs f against the committed data.
func (s *MemoryStore) View(ctx context.Context, f func(tx ports.ReadTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrStoreClosed
	}

	return f(&memoryTx{base: s.data})
}

// Close drops all data.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.data = nil
	return nil
}

type memoryTx struct {
	base map[string][]byte

	// writes holds pending values; a nil value marks a deletion.
	writes map[string][]byte
}

func (t *memoryTx) Get(key []byte) ([]byte, error) {
	if v, ok := t.writes[string(key)]; ok {
		return cloneBytes(v), nil
	}
	return cloneBytes(t.base[string(key)]), nil
}

func (t *memoryTx) Put(key, value []byte) error {
	if len(key) == 0 {
		return ErrEmptyKey
	}
	if t.writes == nil {
		return ErrReadOnlyTx
	}
	t.writes[string(key)] = nonNilBytes(cloneBytes(value))
	return nil
}

func (t *memoryTx) Delete(key []byte) error {
	if t.writes == nil {
		return ErrReadOnlyTx
	}
	t.writes[string(key)] = nil
	return nil
}
