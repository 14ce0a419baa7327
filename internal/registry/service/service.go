// Package service implements the charity registry: project registration,
// verification, donations, and the registry-wide aggregate.
//
// Every operation runs inside one store transaction. Business rules live on
// the models; this package loads state, applies the rule, and writes the
// project record and the aggregate back together. Audit events, metrics and
// log lines are produced only after the transaction commits.
package service

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	registrymetrics "charity/internal/registry/metrics"
	"charity/internal/registry/store"
	"charity/internal/registry/store/memory"
	audit "charity/pkg/platform/audit"
)

// StoreTx opens the all-or-nothing unit of work every operation runs in.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(kv store.KV) error) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

const tracerName = "charity/registry"

// DefaultReconcileTimeout bounds a reconcile scan when the caller set no
// deadline. The scan reads every record, so it gets longer than a normal call.
const DefaultReconcileTimeout = 2 * time.Minute

// Service is the charity registry.
type Service struct {
	tx             StoreTx
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *registrymetrics.Metrics
	tracer         trace.Tracer

	reconcileTimeout time.Duration
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *registrymetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithReconcileTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.reconcileTimeout = d
		}
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// New constructs a Service over tx. A nil tx falls back to an in-memory store.
func New(tx StoreTx, opts ...Option) *Service {
	if tx == nil {
		tx = memory.New()
	}
	s := &Service{
		tx:     tx,
		logger: slog.New(slog.DiscardHandler),
		tracer: otel.Tracer(tracerName),

		reconcileTimeout: DefaultReconcileTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
