//go:build integration

package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"charity/internal/registry/store"
	registryredis "charity/internal/registry/store/redis"
	"charity/internal/registry/store/storetest"
	"charity/pkg/platform/sentinel"
	"charity/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestContract() {
	storetest.Run(s.T(), func(t *testing.T) store.Backend {
		if err := s.redis.FlushAll(context.Background()); err != nil {
			t.Fatalf("flush: %v", err)
		}
		return registryredis.New(s.redis.Client)
	})
}

// TestLockContention verifies a transaction that cannot obtain the namespace
// lock before its deadline fails as unavailable without writing.
func (s *RedisStoreSuite) TestLockContention() {
	ctx := context.Background()
	holder := registryredis.New(s.redis.Client)
	waiter := registryredis.New(s.redis.Client, registryredis.WithTimeout(200*time.Millisecond))

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- holder.RunInTx(ctx, func(kv store.KV) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	err := waiter.RunInTx(ctx, func(kv store.KV) error {
		return kv.Set(ctx, "registry:counter", []byte("1"))
	})
	s.Require().Error(err)
	s.ErrorIs(err, sentinel.ErrUnavailable)

	close(release)
	s.Require().NoError(<-done)

	s.Require().NoError(holder.RunInTx(ctx, func(kv store.KV) error {
		_, found, err := kv.Get(ctx, "registry:counter")
		s.Require().NoError(err)
		s.False(found)
		return nil
	}))
}
