package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const maxTxRetries = 5

// RedisList is a Store backed by a single Redis list holding JSON items.
// Capacity trimming happens atomically with the push; expiry compaction uses
// an optimistic WATCH transaction.
type RedisList[T any] struct {
	client  redis.UniversalClient
	key     string
	opts    Options[T]
	idleTTL time.Duration
}

// NewRedisList creates a list store at key. idleTTL expires the whole key when
// nothing has been written for that long; zero disables it.
func NewRedisList[T any](client redis.UniversalClient, key string, opts Options[T], idleTTL time.Duration) *RedisList[T] {
	return &RedisList[T]{client: client, key: key, opts: opts, idleTTL: idleTTL}
}

func (s *RedisList[T]) Insert(ctx context.Context, item T) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encode item: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, s.key, data)
		if s.opts.Capacity > 0 {
			pipe.LTrim(ctx, s.key, int64(-s.opts.Capacity), -1)
		}
		if s.idleTTL > 0 {
			pipe.Expire(ctx, s.key, s.idleTTL)
		}
		return nil
	})
	return err
}

func (s *RedisList[T]) List(ctx context.Context) ([]T, error) {
	raw, err := s.client.LRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	return decodeAll[T](raw)
}

func (s *RedisList[T]) EvictExpired(ctx context.Context, now time.Time) ([]T, error) {
	if s.opts.Expired == nil {
		return nil, nil
	}

	for i := 0; i < maxTxRetries; i++ {
		var evicted []T
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			raw, err := tx.LRange(ctx, s.key, 0, -1).Result()
			if err != nil {
				return err
			}
			items, err := decodeAll[T](raw)
			if err != nil {
				return err
			}

			kept := make([]interface{}, 0, len(raw))
			for j, item := range items {
				if s.opts.Expired(item, now) {
					evicted = append(evicted, item)
					continue
				}
				kept = append(kept, raw[j])
			}
			if len(evicted) == 0 {
				return nil
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, s.key)
				if len(kept) > 0 {
					pipe.RPush(ctx, s.key, kept...)
					if s.idleTTL > 0 {
						pipe.Expire(ctx, s.key, s.idleTTL)
					}
				}
				return nil
			})
			return err
		}, s.key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return evicted, nil
	}
	return nil, fmt.Errorf("evict %s: too much contention", s.key)
}

func decodeAll[T any](raw []string) ([]T, error) {
	out := make([]T, 0, len(raw))
	for _, r := range raw {
		var item T
		if err := json.Unmarshal([]byte(r), &item); err != nil {
			return nil, fmt.Errorf("decode item: %w", err)
		}
		out = append(out, item)
	}
	return out, nil
}
