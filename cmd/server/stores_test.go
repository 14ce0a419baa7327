package main

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"charity/internal/platform/config"
	"charity/internal/registry/store/memory"
	"charity/internal/registry/store/sqlite"
	auditmemory "charity/pkg/platform/audit/store/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		b, closeFn, err := openStore(ctx, config.Config{Store: config.StoreConfig{Driver: config.DriverMemory}}, testLogger())
		require.NoError(t, err)
		assert.IsType(t, &memory.Store{}, b)
		require.NoError(t, closeFn())
	})

	t.Run("sqlite", func(t *testing.T) {
		cfg := config.Config{Store: config.StoreConfig{
			Driver:     config.DriverSQLite,
			SQLitePath: filepath.Join(t.TempDir(), "registry.db"),
			Namespace:  "charity",
		}}
		b, closeFn, err := openStore(ctx, cfg, testLogger())
		if err != nil {
			t.Skipf("sqlite unavailable: %v", err)
		}
		assert.IsType(t, &sqlite.Store{}, b)
		require.NoError(t, b.Ping(ctx))
		require.NoError(t, closeFn())
	})

	t.Run("unknown driver", func(t *testing.T) {
		_, _, err := openStore(ctx, config.Config{Store: config.StoreConfig{Driver: "etcd"}}, testLogger())
		assert.Error(t, err)
	})

	t.Run("redis close releases the client", func(t *testing.T) {
		client := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:1"})
		b := newRedisBackend(client, config.StoreConfig{Namespace: "charity"})

		require.NoError(t, b.close())
		assert.ErrorIs(t, client.Ping(ctx).Err(), goredis.ErrClosed)
	})
}

func TestOpenAuditStore(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		s, closeFn, err := openAuditStore(ctx, config.Config{Audit: config.AuditConfig{Sink: config.AuditSinkMemory}}, testLogger())
		require.NoError(t, err)
		defer closeFn()
		assert.IsType(t, &auditmemory.InMemoryStore{}, s)
	})

	t.Run("none discards", func(t *testing.T) {
		s, closeFn, err := openAuditStore(ctx, config.Config{Audit: config.AuditConfig{Sink: config.AuditSinkNone}}, testLogger())
		require.NoError(t, err)
		defer closeFn()
		assert.IsType(t, discardStore{}, s)
	})

	t.Run("unknown sink", func(t *testing.T) {
		_, closeFn, err := openAuditStore(ctx, config.Config{Audit: config.AuditConfig{Sink: "carrier-pigeon"}}, testLogger())
		assert.Error(t, err)
		assert.NotNil(t, closeFn)
	})
}

func TestNewReconcileJobWithoutBucket(t *testing.T) {
	job, err := newReconcileJob(context.Background(), config.ReconcileConfig{}, nil, testLogger())
	require.NoError(t, err)
	assert.NotNil(t, job)
}
