package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/layer-3/sweeper/ports"
	"github.com/redis/go-redis/v9"
)

const defaultRedisRetries = 16

// RedisStore is a Ledger backed by Redis. Every commit increments a sequence
// key inside MULTI/EXEC and every transaction WATCHes it, so any concurrent
// commit aborts the transaction and it is rerun against fresh state.
type RedisStore struct {
	client     *redis.Client
	prefix     string
	seqKey     string
	maxRetries int
}

// NewRedisStore creates a new Redis ledger. All keys live under prefix.
func NewRedisStore(client *redis.Client, prefix string) ports.Ledger {
	return &RedisStore{
		client:     client,
		prefix:     prefix,
		seqKey:     prefix + "seq",
		maxRetries: defaultRedisRetries,
	}
}

// Update runs f under WATCH and applies its write set in one MULTI/EXEC.
func (s *RedisStore) Update(ctx context.Context, f func(tx ports.Tx) error) error {
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		err := s.client.Watch(ctx, func(rtx *redis.Tx) error {
			tx := &redisTx{
				ctx:    ctx,
				cmd:    rtx,
				prefix: s.prefix,
				writes: make(map[string][]byte),
			}
			if err := f(tx); err != nil {
				return err
			}

			_, err := rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				for k, v := range tx.writes {
					if v == nil {
						pipe.Del(ctx, k)
						continue
					}
					pipe.Set(ctx, k, v, 0)
				}
				pipe.Incr(ctx, s.seqKey)
				return nil
			})
			return err
		}, s.seqKey)

		if errors.Is(err, redis.TxFailedErr) {
			log.Debugf("Redis transaction conflict, attempt %d", attempt+1)
			continue
		}
		return err
	}

	return ErrTxConflict
}

// View reads committed values directly. Reads are not isolated from commits
// that land between two Gets.
func (s *RedisStore) View(ctx context.Context, f func(tx ports.ReadTx) error) error {
	return f(&redisTx{ctx: ctx, cmd: s.client, prefix: s.prefix})
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// redisGetter is satisfied by both *redis.Client and *redis.Tx.
type redisGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

type redisTx struct {
	ctx    context.Context
	cmd    redisGetter
	prefix string

	// writes holds pending values; a nil value marks a deletion. A nil map
	// marks a read-only transaction.
	writes map[string][]byte
}

func (t *redisTx) Get(key []byte) ([]byte, error) {
	k := t.prefix + string(key)
	if v, ok := t.writes[k]; ok {
		return cloneBytes(v), nil
	}

	v, err := t.cmd.Get(t.ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", k, err)
	}
	return v, nil
}

func (t *redisTx) Put(key, value []byte) error {
	if len(key) == 0 {
		return ErrEmptyKey
	}
	if t.writes == nil {
		return ErrReadOnlyTx
	}
	t.writes[t.prefix+string(key)] = nonNilBytes(cloneBytes(value))
	return nil
}

func (t *redisTx) Delete(key []byte) error {
	if t.writes == nil {
		return ErrReadOnlyTx
	}
	t.writes[t.prefix+string(key)] = nil
	return nil
}
