package actor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// Redis key prefix for persona hashes: diagflow:actor:<run>:<persona>
	actorKeyPrefix = "diagflow:actor:"

	defaultStateTTL = 2 * time.Hour
)

// RedisStore keeps each persona as a Redis hash scoped to one run id, so
// several runners can share a server without seeing each other's state.
type RedisStore struct {
	client *redis.Client
	runID  string
	ttl    time.Duration
}

// RedisStoreOption configures a RedisStore instance.
type RedisStoreOption func(*RedisStore)

// WithStateTTL bounds how long persona hashes survive after their last write.
func WithStateTTL(ttl time.Duration) RedisStoreOption {
	return func(s *RedisStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func NewRedisStore(client *redis.Client, runID string, opts ...RedisStoreOption) *RedisStore {
	s := &RedisStore{
		client: client,
		runID:  runID,
		ttl:    defaultStateTTL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *RedisStore) key(persona Persona) string {
	return actorKeyPrefix + s.runID + ":" + string(persona)
}

// Set writes the field and refreshes the hash TTL in one transaction.
func (s *RedisStore) Set(ctx context.Context, persona Persona, field Field, value string) error {
	key := s.key(persona)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, string(field), value)
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("set %s.%s: %w", persona, field, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, persona Persona, field Field) (string, error) {
	v, err := s.client.HGet(ctx, s.key(persona), string(field)).Result()
	if errors.Is(err, redis.Nil) {
		return "", missing(persona, field)
	}
	if err != nil {
		return "", fmt.Errorf("get %s.%s: %w", persona, field, err)
	}
	return v, nil
}

// Clear deletes the given personas' hashes, or every hash of this run.
func (s *RedisStore) Clear(ctx context.Context, personas ...Persona) error {
	var keys []string
	if len(personas) == 0 {
		iter := s.client.Scan(ctx, 0, actorKeyPrefix+s.runID+":*", 100).Iterator()
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			return fmt.Errorf("scan run keys: %w", err)
		}
	} else {
		for _, p := range personas {
			keys = append(keys, s.key(p))
		}
	}
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}
