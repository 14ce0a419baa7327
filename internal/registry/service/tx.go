package service

import (
	"context"
	"errors"
	"time"

	"charity/internal/registry/store"
	dErrors "charity/pkg/domain-errors"
	"charity/pkg/platform/sentinel"
)

// runInTx runs fn against a ledger bound to one store transaction and
// classifies whatever error comes back.
func (s *Service) runInTx(ctx context.Context, op string, fn func(l *ledger) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	start := time.Now()
	err := s.tx.RunInTx(ctx, func(kv store.KV) error {
		return fn(&ledger{kv: kv})
	})
	if s.metrics != nil {
		s.metrics.ObserveTx(op, start)
	}
	return classifyTxErr(err)
}

func classifyTxErr(err error) error {
	if err == nil {
		return nil
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return dErrors.Wrap(err, dErrors.CodeTimeout, "registry transaction timed out")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "registry store unavailable")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.Wrap(err, dErrors.CodeInternal, "registry store holds unreadable state")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "registry store failure")
	}
}
