package store

import (
	"context"
	"errors"
	"fmt"

	_ "github.com/btcsuite/btcwallet/walletdb/bdb" // Import to register backend.
	"github.com/layer-3/sweeper/ports"
	"github.com/lightningnetwork/lnd/kvdb"
)

var (
	// stateBucket holds every ledger key in a single flat namespace.
	stateBucket = []byte("sweeper-state")

	errNoStateBucket = errors.New("state bucket does not exist")
)

// BoltStore is a Ledger backed by bbolt through lnd's kvdb. Every Update is
// one bbolt read/write transaction, rolled back if f fails.
type BoltStore struct {
	db kvdb.Backend
}

// NewBoltStore opens or creates the bolt database at dbPath.
func NewBoltStore(dbPath string) (ports.Ledger, error) {
	db, err := kvdb.Create(
		kvdb.BoltBackendName, dbPath, true, kvdb.DefaultDBTimeout, false,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	s, err := NewBoltStoreFromBackend(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	log.Infof("Opened bolt ledger at %v", dbPath)
	return s, nil
}

// NewBoltStoreFromBackend wraps an already opened kvdb backend.
func NewBoltStoreFromBackend(db kvdb.Backend) (*BoltStore, error) {
	err := kvdb.Update(db, func(tx kvdb.RwTx) error {
		if tx.ReadWriteBucket(stateBucket) != nil {
			return nil
		}
		_, err := tx.CreateTopLevelBucket(stateBucket)
		return err
	}, func() {})
	if err != nil {
		return nil, fmt.Errorf("failed to create state bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Update runs f in a kvdb read/write transaction.
func (s *BoltStore) Update(ctx context.Context, f func(tx ports.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return kvdb.Update(s.db, func(tx kvdb.RwTx) error {
		bucket := tx.ReadWriteBucket(stateBucket)
		if bucket == nil {
			return errNoStateBucket
		}
		return f(&boltTx{bucket: bucket})
	}, func() {})
}

// View runs f in a kvdb read transaction.
func (s *BoltStore) View(ctx context.Context, f func(tx ports.ReadTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return kvdb.View(s.db, func(tx kvdb.RTx) error {
		bucket := tx.ReadBucket(stateBucket)
		if bucket == nil {
			return errNoStateBucket
		}
		return f(&boltReadTx{bucket: bucket})
	}, func() {})
}

// Close closes the underlying database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

type boltReadTx struct {
	bucket kvdb.RBucket
}

// Get copies the value out, bolt memory is only valid inside the transaction.
func (t *boltReadTx) Get(key []byte) ([]byte, error) {
	return cloneBytes(t.bucket.Get(key)), nil
}

type boltTx struct {
	bucket kvdb.RwBucket
}

func (t *boltTx) Get(key []byte) ([]byte, error) {
	return cloneBytes(t.bucket.Get(key)), nil
}

func (t *boltTx) Put(key, value []byte) error {
	if len(key) == 0 {
		return ErrEmptyKey
	}
	return t.bucket.Put(key, nonNilBytes(value))
}

func (t *boltTx) Delete(key []byte) error {
	return t.bucket.Delete(key)
}
