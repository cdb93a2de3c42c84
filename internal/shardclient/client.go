package shardclient

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ShardClient is the minimal backend contract a shard must satisfy
// an atomic per-key INCRBY and a plain GET.
type ShardClient interface {
	// IncrBy atomically adds delta to key and returns the new total.
	IncrBy(ctx context.Context, key string, delta int64) (int64, error)
	// Get returns the current value for key, or 0 if the key is absent.
	Get(ctx context.Context, key string) (int64, error)
}

// BackendUnavailable is returned when a shard's connection, timeout, or
// protocol error prevents completing a backend call.
type BackendUnavailable struct {
	Shard string
	Err   error
}

func (e *BackendUnavailable) Error() string {
	return fmt.Sprintf("shardclient: backend %q unavailable: %v", e.Shard, e.Err)
}

func (e *BackendUnavailable) Unwrap() error { return e.Err }

// redisShardClient adapts a single *redis.Client to the ShardClient
// contract. One is created per shard endpoint and kept for the process
// lifetime.
type redisShardClient struct {
	shard string
	rdb   *redis.Client
}

func newRedisShardClient(shard string, rdb *redis.Client) *redisShardClient {
	return &redisShardClient{shard: shard, rdb: rdb}
}

func (c *redisShardClient) IncrBy(ctx context.Context, key string, delta int64) (int64, error) {
	n, err := c.rdb.IncrBy(ctx, key, delta).Result()
	if err != nil {
		return 0, &BackendUnavailable{Shard: c.shard, Err: err}
	}
	return n, nil
}

func (c *redisShardClient) Get(ctx context.Context, key string) (int64, error) {
	n, err := c.rdb.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, &BackendUnavailable{Shard: c.shard, Err: err}
	}
	return n, nil
}

func (c *redisShardClient) close() error { return c.rdb.Close() }
