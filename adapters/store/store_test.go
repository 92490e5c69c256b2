package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/layer-3/sweeper/ports"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ledgerFactory func(t *testing.T) ports.Ledger

func ledgerBackends(t *testing.T) map[string]ledgerFactory {
	backends := map[string]ledgerFactory{
		"memory": func(t *testing.T) ports.Ledger {
			return NewMemoryStore()
		},
		"bolt": func(t *testing.T) ports.Ledger {
			l, err := NewBoltStore(filepath.Join(t.TempDir(), "ledger.db"))
			require.NoError(t, err)
			return l
		},
	}

	if url := os.Getenv("SWEEPER_TEST_REDIS_URL"); url != "" {
		backends["redis"] = func(t *testing.T) ports.Ledger {
			opts, err := redis.ParseURL(url)
			require.NoError(t, err)
			prefix := "sweeper-test:" + t.Name() + ":"
			return NewRedisStore(redis.NewClient(opts), prefix)
		}
	}

	return backends
}

func TestLedger(t *testing.T) {
	tests := []struct {
		name string
		test func(*testing.T, ports.Ledger)
	}{
		{name: "put get", test: testPutGet},
		{name: "missing key", test: testMissingKey},
		{name: "rollback on error", test: testRollbackOnError},
		{name: "read own writes", test: testReadOwnWrites},
		{name: "delete", test: testDelete},
		{name: "empty key", test: testEmptyKey},
		{name: "canceled context", test: testCanceledContext},
	}

	for backend, newLedger := range ledgerBackends(t) {
		for _, test := range tests {
			t.Run(backend+"/"+test.name, func(t *testing.T) {
				l := newLedger(t)
				defer l.Close()

				test.test(t, l)
			})
		}
	}
}

func get(t *testing.T, l ports.Ledger, key string) []byte {
	var v []byte
	err := l.View(context.Background(), func(tx ports.ReadTx) error {
		var err error
		v, err = tx.Get([]byte(key))
		return err
	})
	require.NoError(t, err)
	return v
}

func testPutGet(t *testing.T, l ports.Ledger) {
	err := l.Update(context.Background(), func(tx ports.Tx) error {
		return tx.Put([]byte("key"), []byte("value"))
	})
	require.NoError(t, err)

	assert.Equal(t, []byte("value"), get(t, l, "key"))
}

func testMissingKey(t *testing.T, l ports.Ledger) {
	assert.Nil(t, get(t, l, "nope"))
}

func testRollbackOnError(t *testing.T, l ports.Ledger) {
	ctx := context.Background()
	require.NoError(t, l.Update(ctx, func(tx ports.Tx) error {
		return tx.Put([]byte("counter"), []byte{1})
	}))

	errAbort := errors.New("abort")
	err := l.Update(ctx, func(tx ports.Tx) error {
		if err := tx.Put([]byte("counter"), []byte{2}); err != nil {
			return err
		}
		if err := tx.Put([]byte("other"), []byte("x")); err != nil {
			return err
		}
		return errAbort
	})
	require.ErrorIs(t, err, errAbort)

	assert.Equal(t, []byte{1}, get(t, l, "counter"))
	assert.Nil(t, get(t, l, "other"))
}

func testReadOwnWrites(t *testing.T, l ports.Ledger) {
	err := l.Update(context.Background(), func(tx ports.Tx) error {
		if err := tx.Put([]byte("a"), []byte("1")); err != nil {
			return err
		}
		v, err := tx.Get([]byte("a"))
		if err != nil {
			return err
		}
		assert.Equal(t, []byte("1"), v)
		return nil
	})
	require.NoError(t, err)
}

func testDelete(t *testing.T, l ports.Ledger) {
	ctx := context.Background()
	require.NoError(t, l.Update(ctx, func(tx ports.Tx) error {
		return tx.Put([]byte("gone"), []byte("soon"))
	}))
	require.NoError(t, l.Update(ctx, func(tx ports.Tx) error {
		if err := tx.Delete([]byte("gone")); err != nil {
			return err
		}
		v, err := tx.Get([]byte("gone"))
		assert.Nil(t, v)
		return err
	}))

	assert.Nil(t, get(t, l, "gone"))
}

func testEmptyKey(t *testing.T, l ports.Ledger) {
	err := l.Update(context.Background(), func(tx ports.Tx) error {
		return tx.Put(nil, []byte("v"))
	})
	assert.ErrorIs(t, err, ErrEmptyKey)
}

func testCanceledContext(t *testing.T, l ports.Ledger) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := l.Update(ctx, func(tx ports.Tx) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestMemoryStoreViewIsReadOnly(t *testing.T) {
	l := NewMemoryStore()
	err := l.View(context.Background(), func(tx ports.ReadTx) error {
		return tx.(ports.Tx).Put([]byte("k"), []byte("v"))
	})
	assert.ErrorIs(t, err, ErrReadOnlyTx)
}

func TestMemoryStoreClosed(t *testing.T) {
	l := NewMemoryStore()
	require.NoError(t, l.Close())

	err := l.Update(context.Background(), func(tx ports.Tx) error { return nil })
	assert.ErrorIs(t, err, ErrStoreClosed)
}

func TestBoltStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")

	l, err := NewBoltStore(path)
	require.NoError(t, err)
	require.NoError(t, l.Update(context.Background(), func(tx ports.Tx) error {
		return tx.Put([]byte("durable"), []byte("yes"))
	}))
	require.NoError(t, l.Close())

	l, err = NewBoltStore(path)
	require.NoError(t, err)
	defer l.Close()

	assert.Equal(t, []byte("yes"), get(t, l, "durable"))
}
