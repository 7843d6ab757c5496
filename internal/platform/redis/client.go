// Package redis connects to the optional Redis instance that holds persona
// state when a run is shared between processes.
package redis

import (
	"context"

	"github.com/redis/go-redis/v9"

	"diagflow/internal/platform/config"
	dErrors "diagflow/pkg/domain-errors"
)

// Enabled reports whether cfg names a Redis instance.
func Enabled(cfg config.RedisConfig) bool {
	return cfg.URL != ""
}

// Options turns cfg into go-redis options. Zero-valued tuning fields keep the
// go-redis defaults.
func Options(cfg config.RedisConfig) (*redis.Options, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "parse DIAGFLOW_REDIS_URL")
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.MinIdleConns > 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
	return opts, nil
}

// Open dials Redis and pings it once so a bad URL fails the run up front.
func Open(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	opts, err := Options(cfg)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "ping redis at "+opts.Addr)
	}
	return client, nil
}
