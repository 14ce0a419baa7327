// Package storetest holds the behavioural contract every registry store backend
// must satisfy. Backend packages call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"charity/internal/registry/store"
)

// Factory returns an empty backend. It is called once per subtest.
type Factory func(t *testing.T) store.Backend

var errAbort = errors.New("abort")

func Run(t *testing.T, newBackend Factory) {
	t.Helper()

	t.Run("absent key reports not found", func(t *testing.T) {
		b := newBackend(t)
		err := b.RunInTx(context.Background(), func(kv store.KV) error {
			val, found, err := kv.Get(context.Background(), "registry:project:1")
			require.NoError(t, err)
			assert.False(t, found)
			assert.Empty(t, val)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("reads own writes inside a transaction", func(t *testing.T) {
		b := newBackend(t)
		err := b.RunInTx(context.Background(), func(kv store.KV) error {
			require.NoError(t, kv.Set(context.Background(), "k", []byte(`{"v":1}`)))
			val, found, err := kv.Get(context.Background(), "k")
			require.NoError(t, err)
			assert.True(t, found)
			assert.JSONEq(t, `{"v":1}`, string(val))
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("commits on success", func(t *testing.T) {
		b := newBackend(t)
		require.NoError(t, b.RunInTx(context.Background(), func(kv store.KV) error {
			if err := kv.Set(context.Background(), "a", []byte(`"1"`)); err != nil {
				return err
			}
			return kv.Set(context.Background(), "b", []byte(`"2"`))
		}))

		assertValue(t, b, "a", `"1"`)
		assertValue(t, b, "b", `"2"`)
	})

	t.Run("overwrites existing values", func(t *testing.T) {
		b := newBackend(t)
		set(t, b, "k", `"old"`)
		set(t, b, "k", `"new"`)
		assertValue(t, b, "k", `"new"`)
	})

	t.Run("discards every write when fn fails", func(t *testing.T) {
		b := newBackend(t)
		set(t, b, "kept", `"before"`)

		err := b.RunInTx(context.Background(), func(kv store.KV) error {
			require.NoError(t, kv.Set(context.Background(), "kept", []byte(`"after"`)))
			require.NoError(t, kv.Set(context.Background(), "fresh", []byte(`"x"`)))
			return errAbort
		})
		require.ErrorIs(t, err, errAbort)

		assertValue(t, b, "kept", `"before"`)
		assertAbsent(t, b, "fresh")
	})

	t.Run("cancelled context aborts before any write", func(t *testing.T) {
		b := newBackend(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		called := false
		err := b.RunInTx(ctx, func(kv store.KV) error {
			called = true
			return kv.Set(ctx, "k", []byte(`"v"`))
		})
		require.Error(t, err)
		assert.False(t, called)
		assertAbsent(t, b, "k")
	})

	t.Run("serializes concurrent read-modify-write", func(t *testing.T) {
		b := newBackend(t)
		const workers = 8

		var wg sync.WaitGroup
		errs := make(chan error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- b.RunInTx(context.Background(), func(kv store.KV) error {
					raw, found, err := kv.Get(context.Background(), "counter")
					if err != nil {
						return err
					}
					n := 0
					if found {
						if n, err = strconv.Atoi(string(raw)); err != nil {
							return err
						}
					}
					return kv.Set(context.Background(), "counter", []byte(strconv.Itoa(n+1)))
				})
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}
		assertValue(t, b, "counter", strconv.Itoa(workers))
	})

	t.Run("ping succeeds on a live backend", func(t *testing.T) {
		b := newBackend(t)
		require.NoError(t, b.Ping(context.Background()))
	})
}

func set(t *testing.T, b store.Backend, key, value string) {
	t.Helper()
	require.NoError(t, b.RunInTx(context.Background(), func(kv store.KV) error {
		return kv.Set(context.Background(), key, []byte(value))
	}))
}

func assertValue(t *testing.T, b store.Backend, key, want string) {
	t.Helper()
	require.NoError(t, b.RunInTx(context.Background(), func(kv store.KV) error {
		val, found, err := kv.Get(context.Background(), key)
		require.NoError(t, err)
		require.True(t, found, "key %q should be present", key)
		assert.JSONEq(t, want, string(val))
		return nil
	}))
}

func assertAbsent(t *testing.T, b store.Backend, key string) {
	t.Helper()
	require.NoError(t, b.RunInTx(context.Background(), func(kv store.KV) error {
		_, found, err := kv.Get(context.Background(), key)
		require.NoError(t, err)
		assert.False(t, found, "key %q should be absent", key)
		return nil
	}))
}
