package publisher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	id "charity/pkg/domain"
	audit "charity/pkg/platform/audit"
	"charity/pkg/platform/audit/worker"
	"charity/pkg/requestcontext"
)

// DefaultDrainTimeout is how long Close waits for the buffer to empty.
const DefaultDrainTimeout = 10 * time.Second

var (
	ErrBufferFull  = errors.New("audit buffer full")
	ErrClosed      = errors.New("audit publisher closed")
	ErrNotListable = errors.New("audit store does not support listing")
)

// Publisher enriches audit events and hands them to a store, either inline or
// through a bounded buffer drained by a background worker.
type Publisher struct {
	store  audit.Store
	logger *slog.Logger

	bufferSize   int
	drainTimeout time.Duration
	inbox        chan audit.Event
	done         chan struct{}
	stopWorker   context.CancelFunc

	mu     sync.RWMutex
	closed bool
}

type Option func(*Publisher)

// WithAsyncBuffer switches the publisher to asynchronous delivery with a
// buffer of size n. Emit fails fast with ErrBufferFull when it is full.
func WithAsyncBuffer(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.bufferSize = n
		}
	}
}

// WithDrainTimeout bounds how long Close waits for buffered events before it
// cancels in-flight delivery and drops the rest.
func WithDrainTimeout(d time.Duration) Option {
	return func(p *Publisher) {
		if d > 0 {
			p.drainTimeout = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:        store,
		logger:       slog.New(slog.DiscardHandler),
		drainTimeout: DefaultDrainTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufferSize > 0 {
		p.inbox = make(chan audit.Event, p.bufferSize)
		p.done = make(chan struct{})
		ctx, cancel := context.WithCancel(context.Background())
		p.stopWorker = cancel
		w := worker.NewWorker(store, p.inbox, worker.WithLogger(p.logger))
		go func() {
			defer close(p.done)
			_ = w.Run(ctx)
		}()
	}
	return p
}

func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.ActorID == "" {
		event.ActorID = requestcontext.Caller(ctx)
	}

	if p.inbox == nil {
		return p.store.Append(ctx, event)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.inbox <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrBufferFull
	}
}

// List reads back events for a project when the store supports it.
func (p *Publisher) List(ctx context.Context, projectID id.ProjectID) ([]audit.Event, error) {
	lister, ok := p.store.(audit.Lister)
	if !ok {
		return nil, ErrNotListable
	}
	return lister.ListByProject(ctx, projectID)
}

// Close stops accepting events and waits up to the drain timeout for buffered
// ones to be delivered. Past the deadline the worker is cancelled and the
// remaining events are dropped with a warning.
func (p *Publisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	if p.inbox != nil {
		close(p.inbox)
	}
	p.mu.Unlock()

	if p.done == nil {
		return
	}
	timer := time.NewTimer(p.drainTimeout)
	defer timer.Stop()
	select {
	case <-p.done:
	case <-timer.C:
		p.logger.Warn("audit drain timed out, dropping buffered events",
			"pending", len(p.inbox),
			"timeout", p.drainTimeout,
		)
		p.stopWorker()
		<-p.done
	}
	p.stopWorker()
}
