//go:build integration

// Package containers starts throwaway backing services for integration tests.
package containers

import (
	"context"
	"testing"

	goredis "github.com/redis/go-redis/v9"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"diagflow/internal/platform/config"
	"diagflow/internal/platform/redis"
)

const redisImage = "redis:7-alpine"

// Redis is a disposable Redis reachable through the same config path a run uses.
type Redis struct {
	Config config.RedisConfig
	Client *goredis.Client
}

// StartRedis runs a Redis container and connects to it with redis.Open.
// Both are torn down when t finishes.
func StartRedis(t *testing.T) *Redis {
	t.Helper()
	ctx := context.Background()

	ctr, err := tcredis.Run(ctx, redisImage)
	if err != nil {
		t.Fatalf("start %s: %v", redisImage, err)
	}
	t.Cleanup(func() { _ = ctr.Terminate(context.Background()) })

	url, err := ctr.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("redis connection string: %v", err)
	}

	cfg := config.RedisConfig{URL: url, PoolSize: 4}
	client, err := redis.Open(ctx, cfg)
	if err != nil {
		t.Fatalf("open redis: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	return &Redis{Config: cfg, Client: client}
}

// Flush empties the database between tests.
func (r *Redis) Flush(ctx context.Context) error {
	return r.Client.FlushDB(ctx).Err()
}
