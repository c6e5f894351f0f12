package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisBackend namespaces keys by generation and bumps a counter to
// invalidate. Entries of old generations are never read again and expire by
// TTL.
type RedisBackend struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisBackend creates a backend on client. Keys are written under prefix.
func NewRedisBackend(client *redis.Client, prefix string, ttl time.Duration) *RedisBackend {
	return &RedisBackend{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (b *RedisBackend) generationKey() string {
	return b.prefix + ":generation"
}

func (b *RedisBackend) entryKey(gen uint64, key string) string {
	return fmt.Sprintf("%s:%d:%s", b.prefix, gen, key)
}

func (b *RedisBackend) Generation(ctx context.Context) (uint64, error) {
	gen, err := b.client.Get(ctx, b.generationKey()).Uint64()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read cache generation: %w", err)
	}
	return gen, nil
}

func (b *RedisBackend) Get(ctx context.Context, gen uint64, key string) ([]byte, bool, error) {
	value, err := b.client.Get(ctx, b.entryKey(gen, key)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read cache entry: %w", err)
	}
	return value, true, nil
}

// Set writes the entry in a transaction watching the generation counter, so
// the write is dropped if an invalidation lands in between.
func (b *RedisBackend) Set(ctx context.Context, gen uint64, key string, value []byte) error {
	genKey := b.generationKey()

	err := b.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Uint64()
		if err != nil && err != redis.Nil {
			return err
		}
		if current != gen {
			return ErrStaleGeneration
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, b.entryKey(gen, key), value, b.ttl)
			return nil
		})
		return err
	}, genKey)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrStaleGeneration), errors.Is(err, redis.TxFailedErr):
		return ErrStaleGeneration
	default:
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
}

func (b *RedisBackend) Invalidate(ctx context.Context) (uint64, error) {
	gen, err := b.client.Incr(ctx, b.generationKey()).Uint64()
	if err != nil {
		return 0, fmt.Errorf("failed to bump cache generation: %w", err)
	}
	return gen, nil
}
