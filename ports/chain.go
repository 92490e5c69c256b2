package ports

// Chain exposes the ledger clock that operations are evaluated against.
type Chain interface {
	// Height is the sequence number of the current ledger.
	Height() uint64

	// Timestamp is the close time of the current ledger in unix seconds.
	Timestamp() uint64
}
