package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"auth_api/internal/storage"

	"github.com/redis/go-redis/v9"
)

type RedisRepo struct {
	client *redis.Client
}

func New(ctx context.Context, addr, pass string, db int) (*RedisRepo, error) {
	const op = "storage.redis.New"

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     pass,
		DB:           db,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &RedisRepo{
		client: client,
	}, nil
}

// Set stores a value without expiry.
func (r *RedisRepo) Set(ctx context.Context, key, value string) error {
	const op = "storage.redis.Set"

	if err := r.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// SetWithTTL stores a value that Redis drops after ttl.
// A non-positive ttl writes nothing: Redis would keep such a key forever.
func (r *RedisRepo) SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	const op = "storage.redis.SetWithTTL"

	if ttl <= 0 {
		return nil
	}

	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *RedisRepo) Get(ctx context.Context, key string) (string, error) {
	const op = "storage.redis.Get"

	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", storage.ErrKeyNotFound
		}

		return "", fmt.Errorf("%s: %w", op, err)
	}

	return val, nil
}

// TTL reports the remaining lifetime of key.
func (r *RedisRepo) TTL(ctx context.Context, key string) (time.Duration, error) {
	const op = "storage.redis.TTL"

	ttl, err := r.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if ttl == -2 {
		return 0, storage.ErrKeyNotFound
	}

	return ttl, nil
}

// * Close closes the connection pool.
func (r *RedisRepo) Close() {
	r.client.Close()
}
