package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisMedium stores values as plain redis strings.
type RedisMedium struct {
	client   *redis.Client
	maxBytes int
}

// RedisOption configures a RedisMedium.
type RedisOption func(*RedisMedium)

// WithMaxValueBytes rejects larger writes with ErrQuotaExceeded (0 = unbounded).
func WithMaxValueBytes(n int) RedisOption {
	return func(r *RedisMedium) {
		if n >= 0 {
			r.maxBytes = n
		}
	}
}

// NewRedisMedium wraps an existing client.
func NewRedisMedium(client *redis.Client, opts ...RedisOption) *RedisMedium {
	r := &RedisMedium{client: client}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// DialRedis connects to addr and verifies the connection.
func DialRedis(ctx context.Context, addr, password string, db int, opts ...RedisOption) (*RedisMedium, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewRedisMedium(client, opts...), nil
}

// Get implements Medium.
func (r *RedisMedium) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return b, nil
}

// Set implements Medium.
func (r *RedisMedium) Set(ctx context.Context, key string, value []byte) error {
	if r.maxBytes > 0 && len(value) > r.maxBytes {
		return fmt.Errorf("%w: %d > %d bytes", ErrQuotaExceeded, len(value), r.maxBytes)
	}
	if err := r.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete implements Medium.
func (r *RedisMedium) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// Close releases the client.
func (r *RedisMedium) Close() error {
	return r.client.Close()
}
