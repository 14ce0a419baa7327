// Package fallback routes audit events to a secondary store while the
// primary sink is failing.
package fallback

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	audit "charity/pkg/platform/audit"
	"charity/pkg/platform/circuit"
)

const defaultRetryInterval = 30 * time.Second

// Store writes to primary until its breaker opens, then to secondary. While
// open, primary is retried at most once per retry interval.
type Store struct {
	primary   audit.Store
	secondary audit.Store
	breaker   *circuit.Breaker
	logger    *slog.Logger

	retryInterval time.Duration
	now           func() time.Time

	mu        sync.Mutex
	lastRetry time.Time
}

type Option func(*Store)

func WithBreaker(b *circuit.Breaker) Option {
	return func(s *Store) {
		if b != nil {
			s.breaker = b
		}
	}
}

func WithRetryInterval(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.retryInterval = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func New(primary, secondary audit.Store, opts ...Option) *Store {
	s := &Store{
		primary:       primary,
		secondary:     secondary,
		breaker:       circuit.New("audit-primary"),
		logger:        slog.New(slog.DiscardHandler),
		retryInterval: defaultRetryInterval,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	if s.breaker.IsOpen() && !s.retryDue() {
		return s.appendSecondary(ctx, event)
	}

	err := s.primary.Append(ctx, event)
	if err == nil {
		if _, change := s.breaker.RecordSuccess(); change.Closed {
			s.logger.InfoContext(ctx, "audit primary sink recovered", "breaker", s.breaker.Name())
		}
		return nil
	}

	useFallback, change := s.breaker.RecordFailure()
	if change.Opened {
		s.logger.WarnContext(ctx, "audit primary sink failing, switching to fallback",
			"breaker", s.breaker.Name(),
			"error", err,
		)
	}
	if !useFallback {
		return fmt.Errorf("append to primary audit sink: %w", err)
	}
	return s.appendSecondary(ctx, event)
}

func (s *Store) appendSecondary(ctx context.Context, event audit.Event) error {
	if err := s.secondary.Append(ctx, event); err != nil {
		return fmt.Errorf("append to fallback audit sink: %w", err)
	}
	return nil
}

func (s *Store) retryDue() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if now.Sub(s.lastRetry) < s.retryInterval {
		return false
	}
	s.lastRetry = now
	return true
}
