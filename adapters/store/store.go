// Package store provides Ledger backends: in-memory, bbolt through lnd's kvdb,
// and Redis.
package store

import "errors"

var (
	// ErrStoreClosed is returned for transactions on a closed store.
	ErrStoreClosed = errors.New("store closed")

	// ErrEmptyKey is returned when writing an empty key.
	ErrEmptyKey = errors.New("empty key")

	// ErrReadOnlyTx is returned when writing inside a View.
	ErrReadOnlyTx = errors.New("read-only transaction")

	// ErrTxConflict is returned when an optimistic transaction keeps losing
	// against concurrent commits.
	ErrTxConflict = errors.New("transaction conflict")
)

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c
}

// Turn nil values into []byte{} so that stored empty values stay
// distinguishable from missing keys.
func nonNilBytes(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
