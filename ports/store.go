package ports

import "context"

// ReadTx is a read-only view of ledger state.
type ReadTx interface {
	// Get returns nil if the key does not exist. The returned slice is owned
	// by the caller.
	Get(key []byte) ([]byte, error)
}

// Tx is a read/write ledger transaction. Writes become visible to other
// transactions only when the enclosing Update commits.
type Tx interface {
	ReadTx

	Put(key, value []byte) error
	Delete(key []byte) error
}

// Ledger is a transactional key-value store. Committed transactions are
// totally ordered; a transaction whose function returns an error leaves no
// trace.
type Ledger interface {
	// Update runs f in a read/write transaction and commits iff f returns
	// nil. f may be invoked more than once by optimistic backends.
	Update(ctx context.Context, f func(tx Tx) error) error

	// View runs f in a read-only transaction.
	View(ctx context.Context, f func(tx ReadTx) error) error

	Close() error
}
