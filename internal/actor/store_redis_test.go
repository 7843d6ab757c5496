//go:build integration

package actor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	dErrors "diagflow/pkg/domain-errors"
	"diagflow/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.Redis
	ctx   context.Context
}

func TestRedisStoreSuite(t *testing.T) {
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.StartRedis(s.T())
	s.ctx = context.Background()
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.Flush(s.ctx))
}

func (s *RedisStoreSuite) TestSetGetAndTTL() {
	store := NewRedisStore(s.redis.Client, "run-1", WithStateTTL(time.Minute))
	s.Require().NoError(store.Set(s.ctx, Member, Token, "tok"))

	v, err := store.Get(s.ctx, Member, Token)
	s.Require().NoError(err)
	s.Equal("tok", v)

	ttl, err := s.redis.Client.TTL(s.ctx, "diagflow:actor:run-1:MEMBER").Result()
	s.Require().NoError(err)
	s.Greater(ttl, time.Duration(0))
	s.LessOrEqual(ttl, time.Minute)
}

func (s *RedisStoreSuite) TestRunsAreIsolated() {
	a := NewRedisStore(s.redis.Client, "run-a")
	b := NewRedisStore(s.redis.Client, "run-b")
	s.Require().NoError(a.Set(s.ctx, Member, UserID, "u-a"))

	_, err := b.Get(s.ctx, Member, UserID)
	s.True(dErrors.HasCode(err, dErrors.CodeContextMissing))
}

func (s *RedisStoreSuite) TestClear() {
	store := NewRedisStore(s.redis.Client, "run-c")
	other := NewRedisStore(s.redis.Client, "run-d")
	s.Require().NoError(store.Set(s.ctx, Member, Token, "a"))
	s.Require().NoError(store.Set(s.ctx, NewUser, Token, "b"))
	s.Require().NoError(other.Set(s.ctx, Member, Token, "c"))

	s.Require().NoError(store.Clear(s.ctx, Member))
	_, err := store.Get(s.ctx, Member, Token)
	s.Error(err)

	s.Require().NoError(store.Clear(s.ctx))
	_, err = store.Get(s.ctx, NewUser, Token)
	s.Error(err)

	v, err := other.Get(s.ctx, Member, Token)
	s.Require().NoError(err)
	s.Equal("c", v)
}
