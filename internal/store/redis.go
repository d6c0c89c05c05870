package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"

	"tavola-system/internal/core"
)

const REDIS_WRITE_RETRIES = 5

// RedisStore keeps every collection as one JSON value per key and relies
// on WATCH/MULTI for optimistic concurrency: the updater runs against the
// watched read, and the transaction fails when another writer touches any
// watched key first.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Read(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return raw, true, nil
}

func (s *RedisStore) Write(ctx context.Context, key string, update UpdateFunc) error {
	return s.WriteMulti(ctx, []string{key}, func(current map[string][]byte) (map[string][]byte, error) {
		next, err := update(current[key])
		if err != nil {
			return nil, err
		}
		return map[string][]byte{key: next}, nil
	})
}

func (s *RedisStore) WriteMulti(ctx context.Context, keys []string, update MultiUpdateFunc) error {
	txn := func(tx *redis.Tx) error {
		current := make(map[string][]byte, len(keys))
		for _, key := range keys {
			raw, err := tx.Get(ctx, key).Bytes()
			if errors.Is(err, redis.Nil) {
				current[key] = nil
				continue
			}
			if err != nil {
				return fmt.Errorf("redis get %s: %w", key, err)
			}
			current[key] = raw
		}

		next, err := update(current)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for key, raw := range next {
				pipe.Set(ctx, key, raw, 0)
			}
			return nil
		})
		return err
	}

	for attempt := 0; attempt < REDIS_WRITE_RETRIES; attempt++ {
		err := s.rdb.Watch(ctx, txn, keys...)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("%w: keys %v", core.ErrConflict, keys)
}
