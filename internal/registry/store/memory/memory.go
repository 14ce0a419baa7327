package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"charity/internal/registry/store"
	"charity/pkg/platform/sentinel"
)

// Store is an in-process registry namespace. Transactions are serialized by a
// single mutex and buffer their writes until fn succeeds.
type Store struct {
	mu      sync.Mutex
	data    map[string][]byte
	timeout time.Duration
	closed  bool
}

type Option func(*Store)

// WithTimeout overrides store.DefaultTxTimeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func New(opts ...Option) *Store {
	s := &Store{data: make(map[string][]byte)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) RunInTx(ctx context.Context, fn func(kv store.KV) error) error {
	ctx, cancel := store.WithTxTimeout(ctx, s.timeout)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("memory store closed: %w", sentinel.ErrUnavailable)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("memory tx: %w", err)
	}

	view := &txView{base: s.data, writes: make(map[string][]byte)}
	if err := fn(view); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("memory tx commit: %w", err)
	}
	for k, v := range view.writes {
		s.data[k] = v
	}
	return nil
}

func (s *Store) Ping(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return sentinel.ErrUnavailable
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

type txView struct {
	base   map[string][]byte
	writes map[string][]byte
}

func (v *txView) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if val, ok := v.writes[key]; ok {
		return clone(val), true, nil
	}
	if val, ok := v.base[key]; ok {
		return clone(val), true, nil
	}
	return nil, false, nil
}

func (v *txView) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v.writes[key] = clone(value)
	return nil
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
