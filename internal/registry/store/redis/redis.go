package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"charity/internal/registry/store"
	"charity/pkg/platform/sentinel"
)

const (
	defaultRetryInterval = 25 * time.Millisecond
	lockMargin           = 2 * time.Second
)

// Store keeps a registry namespace in Redis. A redislock lock on the namespace
// serializes transactions across processes. Writes are buffered and applied in
// one MULTI/EXEC pipeline once fn succeeds.
type Store struct {
	client    *redis.Client
	locker    *redislock.Client
	namespace string
	timeout   time.Duration
	retry     time.Duration
}

type Option func(*Store)

func WithNamespace(ns string) Option {
	return func(s *Store) {
		if ns != "" {
			s.namespace = ns
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithRetryInterval sets how often a blocked transaction retries the namespace lock.
func WithRetryInterval(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.retry = d
		}
	}
}

func New(client *redis.Client, opts ...Option) *Store {
	s := &Store{
		client:    client,
		locker:    redislock.New(client),
		namespace: store.DefaultNamespace,
		timeout:   store.DefaultTxTimeout,
		retry:     defaultRetryInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) lockKey() string {
	return s.namespace + "/lock"
}

func (s *Store) dataKey(key string) string {
	return s.namespace + "/" + key
}

func (s *Store) RunInTx(ctx context.Context, fn func(kv store.KV) error) error {
	ctx, cancel := store.WithTxTimeout(ctx, s.timeout)
	defer cancel()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("redis tx: %w", err)
	}

	lock, err := s.locker.Obtain(ctx, s.lockKey(), lockTTL(ctx, s.timeout), &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(s.retry),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return fmt.Errorf("obtain namespace lock: %w", sentinel.ErrUnavailable)
	}
	if err != nil {
		return fmt.Errorf("obtain namespace lock: %w", err)
	}
	defer func() {
		_ = lock.Release(context.WithoutCancel(ctx))
	}()

	view := &txView{store: s, writes: make(map[string][]byte)}
	if err := fn(view); err != nil {
		return err
	}
	if len(view.writes) == 0 {
		return nil
	}

	ttl, err := lock.TTL(ctx)
	if err != nil {
		return fmt.Errorf("check namespace lock: %w", err)
	}
	if ttl <= 0 {
		return fmt.Errorf("namespace lock expired before commit: %w", sentinel.ErrUnavailable)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for k, v := range view.writes {
			pipe.Set(ctx, s.dataKey(k), v, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("commit redis tx: %w", err)
	}
	return nil
}

// lockTTL keeps the namespace lock for the whole transaction, including
// callers such as reconcile that run with a deadline longer than the store default.
func lockTTL(ctx context.Context, fallback time.Duration) time.Duration {
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining > 0 {
			return remaining + lockMargin
		}
	}
	return fallback + lockMargin
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close is a no-op; the client is owned by the caller.
func (s *Store) Close() error {
	return nil
}

type txView struct {
	store  *Store
	writes map[string][]byte
}

func (v *txView) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if val, ok := v.writes[key]; ok {
		out := make([]byte, len(val))
		copy(out, val)
		return out, true, nil
	}
	val, err := v.store.client.Get(ctx, v.store.dataKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	return val, true, nil
}

func (v *txView) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	buf := make([]byte, len(value))
	copy(buf, value)
	v.writes[key] = buf
	return nil
}
