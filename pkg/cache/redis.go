package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// KeyPrefix namespaces answer keys in a shared Redis.
const KeyPrefix = "aikefu:answer:"

// Redis is a Cache shared between server instances. Keys never expire.
type Redis struct {
	client redis.UniversalClient
}

// NewRedis connects to addr and verifies the connection.
func NewRedis(ctx context.Context, addr string) (*Redis, error) {
	if addr == "" {
		return nil, errors.New("redis address must not be empty")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}

	return &Redis{client: client}, nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client redis.UniversalClient) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Lookup(ctx context.Context, question string) (string, bool, error) {
	answer, err := r.client.Get(ctx, KeyPrefix+question).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading cached answer: %w", err)
	}
	return answer, true, nil
}

func (r *Redis) Store(ctx context.Context, question, answer string) error {
	if err := r.client.Set(ctx, KeyPrefix+question, answer, 0).Err(); err != nil {
		return fmt.Errorf("writing cached answer: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}
