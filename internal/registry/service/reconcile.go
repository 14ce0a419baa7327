package service

import (
	"context"
	"math"

	"go.opentelemetry.io/otel/attribute"

	"charity/internal/registry/models"
	id "charity/pkg/domain"
	audit "charity/pkg/platform/audit"
	"charity/pkg/requestcontext"
)

// Reconcile recomputes the aggregate from every project record with an id
// between 1 and the counter and compares it with the stored aggregate. It is
// read-only: drift is reported, never repaired.
//
// The scan runs in one transaction so the comparison sees a consistent
// snapshot. Without a caller deadline it is bounded by the reconcile timeout
// instead of the store's per-call default.
func (s *Service) Reconcile(ctx context.Context) (models.ReconcileReport, error) {
	ctx, span := s.tracer.Start(ctx, "registry.Reconcile")
	defer span.End()

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.reconcileTimeout)
		defer cancel()
	}

	report := models.ReconcileReport{CheckedAt: requestcontext.Now(ctx)}
	err := s.runInTx(ctx, opReconcile, func(l *ledger) error {
		stored, err := l.status(ctx)
		if err != nil {
			return err
		}
		last, err := l.counter(ctx)
		if err != nil {
			return err
		}

		var recomputed models.CharityStatus
		var missing []uint64
		for n := uint64(1); n != 0 && n <= last; n++ {
			c, found, err := l.project(ctx, id.ProjectID(n))
			if err != nil {
				return err
			}
			if !found {
				missing = append(missing, n)
				continue
			}
			recomputed.RecordRegistration()
			if c.Verified {
				recomputed.RecordVerification()
			}
			if recomputed.TotalDonations > math.MaxUint64-c.FundsReceived {
				recomputed.TotalDonations = math.MaxUint64
			} else {
				recomputed.RecordDonation(c.FundsReceived)
			}
		}
		report.Stored = stored
		report.Recomputed = recomputed
		report.MissingIDs = missing
		return nil
	})
	if err != nil {
		s.recordFailure(span, opReconcile, err)
		return models.ReconcileReport{}, err
	}

	drifted := report.Drifted()
	span.SetAttributes(attribute.Bool("charity.drifted", drifted))
	if s.metrics != nil {
		s.metrics.RecordReconcile(drifted)
	}
	if drifted {
		s.logger.WarnContext(ctx, "aggregate drift detected",
			"stored", report.Stored,
			"recomputed", report.Recomputed,
			"missing_ids", len(report.MissingIDs),
		)
		s.emitAudit(ctx, audit.Event{
			Action: string(audit.EventAggregateDriftFound),
			Reason: "stored aggregate differs from project records",
		})
	} else {
		s.logger.DebugContext(ctx, "aggregate reconciled",
			"total_projects", report.Stored.TotalProjects,
		)
	}
	return report, nil
}
