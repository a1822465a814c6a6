package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a Cache backed by a Redis instance, for
// deployments running more than one replica.
type Redis struct {
	client *redis.Client
}

// NewRedis wraps an existing Redis client.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Get(
	ctx context.Context,
	key string,
) ([]byte, bool, error) {
	value, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}

		return nil, false, fmt.Errorf(
			"cache get %q: %w", key, err,
		)
	}

	return value, true, nil
}

func (r *Redis) Set(
	ctx context.Context,
	key string,
	value []byte,
	ttl time.Duration,
) error {
	// go-redis treats a zero expiration as "keep
	// forever", matching NoTTL.
	if err := r.client.Set(
		ctx, key, value, ttl,
	).Err(); err != nil {
		return fmt.Errorf(
			"cache set %q: %w", key, err,
		)
	}

	return nil
}

func (r *Redis) Invalidate(
	ctx context.Context,
	key string,
) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf(
			"cache invalidate %q: %w", key, err,
		)
	}

	return nil
}

func (r *Redis) InvalidatePrefix(
	ctx context.Context,
	prefix string,
) error {
	iter := r.client.Scan(
		ctx, 0, prefix+"*", 0,
	).Iterator()

	for iter.Next(ctx) {
		if err := r.client.Del(
			ctx, iter.Val(),
		).Err(); err != nil {
			return fmt.Errorf(
				"cache invalidate prefix %q: %w",
				prefix, err,
			)
		}
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf(
			"cache scan %q: %w", prefix, err,
		)
	}

	return nil
}
