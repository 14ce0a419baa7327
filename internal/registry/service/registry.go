package service

import (
	"context"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"charity/internal/registry/models"
	id "charity/pkg/domain"
	dErrors "charity/pkg/domain-errors"
	audit "charity/pkg/platform/audit"
	"charity/pkg/requestcontext"
)

const (
	opRegister  = "register_project"
	opVerify    = "verify_project"
	opDonate    = "donate"
	opViewAll   = "view_all_projects"
	opViewOne   = "view_project"
	opReconcile = "reconcile"
)

// RegisterProject records a new unverified project and returns its id.
// Ids are assigned 1, 2, 3... in registration order.
func (s *Service) RegisterProject(ctx context.Context, title, description string) (id.ProjectID, error) {
	ctx, span := s.tracer.Start(ctx, "registry.RegisterProject")
	defer span.End()

	now := requestcontext.Now(ctx)
	var charity *models.Charity
	err := s.runInTx(ctx, opRegister, func(l *ledger) error {
		projectID, err := l.nextID(ctx)
		if err != nil {
			return err
		}
		status, err := l.status(ctx)
		if err != nil {
			return err
		}
		c := models.NewCharity(projectID, title, description, now)
		status.RecordRegistration()
		if err := l.putProject(ctx, c); err != nil {
			return err
		}
		if err := l.putStatus(ctx, status); err != nil {
			return err
		}
		charity = c
		return nil
	})
	if err != nil {
		s.recordFailure(span, opRegister, err)
		return 0, err
	}

	span.SetAttributes(attribute.String("charity.project_id", charity.ProjectID.String()))
	s.logger.InfoContext(ctx, "project registered",
		"project_id", charity.ProjectID.String(),
		"title", charity.Title,
		"request_id", requestcontext.RequestID(ctx),
	)
	if s.metrics != nil {
		s.metrics.IncrementRegistered()
	}
	s.emitAudit(ctx, audit.Event{
		ProjectID: charity.ProjectID,
		Action:    string(audit.EventProjectRegistered),
		Timestamp: now,
	})
	return charity.ProjectID, nil
}

// VerifyProject marks a registered project as verified. It fails with
// not_found for unknown ids and with conflict (models.ErrAlreadyVerified)
// when the project was verified before; neither case changes any state.
func (s *Service) VerifyProject(ctx context.Context, projectID id.ProjectID) error {
	ctx, span := s.tracer.Start(ctx, "registry.VerifyProject",
		trace.WithAttributes(attribute.String("charity.project_id", projectID.String())))
	defer span.End()

	err := s.runInTx(ctx, opVerify, func(l *ledger) error {
		c, err := l.mustProject(ctx, projectID)
		if err != nil {
			return err
		}
		if err := c.CanVerify(); err != nil {
			return err
		}
		status, err := l.status(ctx)
		if err != nil {
			return err
		}
		c.ApplyVerification()
		status.RecordVerification()
		if err := l.putProject(ctx, c); err != nil {
			return err
		}
		return l.putStatus(ctx, status)
	})
	if err != nil {
		s.recordFailure(span, opVerify, err)
		if isRejection(err) {
			s.logger.WarnContext(ctx, "verification rejected",
				"project_id", projectID.String(),
				"reason", dErrors.MessageOf(err),
				"request_id", requestcontext.RequestID(ctx),
			)
			s.emitAudit(ctx, audit.Event{
				ProjectID: projectID,
				Action:    string(audit.EventVerificationDenied),
				Reason:    dErrors.MessageOf(err),
			})
		}
		return err
	}

	s.logger.InfoContext(ctx, "project verified",
		"project_id", projectID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	if s.metrics != nil {
		s.metrics.IncrementVerified()
	}
	s.emitAudit(ctx, audit.Event{
		ProjectID: projectID,
		Action:    string(audit.EventProjectVerified),
	})
	return nil
}

// Donate credits amount to a verified project and to the registry total.
func (s *Service) Donate(ctx context.Context, projectID id.ProjectID, amount uint64) error {
	ctx, span := s.tracer.Start(ctx, "registry.Donate",
		trace.WithAttributes(
			attribute.String("charity.project_id", projectID.String()),
			attribute.String("charity.amount", strconv.FormatUint(amount, 10)),
		))
	defer span.End()

	var funds uint64
	err := s.runInTx(ctx, opDonate, func(l *ledger) error {
		c, err := l.mustProject(ctx, projectID)
		if err != nil {
			return err
		}
		if err := c.CanDonate(amount); err != nil {
			return err
		}
		status, err := l.status(ctx)
		if err != nil {
			return err
		}
		if err := status.CanRecordDonation(amount); err != nil {
			return err
		}
		c.ApplyDonation(amount)
		status.RecordDonation(amount)
		if err := l.putProject(ctx, c); err != nil {
			return err
		}
		if err := l.putStatus(ctx, status); err != nil {
			return err
		}
		funds = c.FundsReceived
		return nil
	})
	if err != nil {
		s.recordFailure(span, opDonate, err)
		if isRejection(err) {
			s.logger.WarnContext(ctx, "donation rejected",
				"project_id", projectID.String(),
				"amount", amount,
				"reason", dErrors.MessageOf(err),
				"request_id", requestcontext.RequestID(ctx),
			)
			s.emitAudit(ctx, audit.Event{
				ProjectID: projectID,
				Action:    string(audit.EventDonationRejected),
				Amount:    amount,
				Reason:    dErrors.MessageOf(err),
			})
		}
		return err
	}

	s.logger.InfoContext(ctx, "donation applied",
		"project_id", projectID.String(),
		"amount", amount,
		"funds_received", funds,
		"request_id", requestcontext.RequestID(ctx),
	)
	if s.metrics != nil {
		s.metrics.RecordDonation(amount)
	}
	s.emitAudit(ctx, audit.Event{
		ProjectID: projectID,
		Action:    string(audit.EventDonationReceived),
		Amount:    amount,
	})
	return nil
}

// ViewAllProjects returns the aggregate. It never writes, so an untouched
// registry reports all zeros without persisting anything.
func (s *Service) ViewAllProjects(ctx context.Context) (models.CharityStatus, error) {
	ctx, span := s.tracer.Start(ctx, "registry.ViewAllProjects")
	defer span.End()

	var status models.CharityStatus
	err := s.runInTx(ctx, opViewAll, func(l *ledger) error {
		st, err := l.status(ctx)
		if err != nil {
			return err
		}
		status = st
		return nil
	})
	if err != nil {
		s.recordFailure(span, opViewAll, err)
		return models.CharityStatus{}, err
	}
	return status, nil
}

// FindProject returns the project or a not_found error.
func (s *Service) FindProject(ctx context.Context, projectID id.ProjectID) (*models.Charity, error) {
	ctx, span := s.tracer.Start(ctx, "registry.FindProject",
		trace.WithAttributes(attribute.String("charity.project_id", projectID.String())))
	defer span.End()

	var charity *models.Charity
	err := s.runInTx(ctx, opViewOne, func(l *ledger) error {
		c, err := l.mustProject(ctx, projectID)
		if err != nil {
			return err
		}
		charity = c
		return nil
	})
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			s.recordFailure(span, opViewOne, err)
		}
		return nil, err
	}
	return charity, nil
}

// ViewProject is the sentinel-returning read: an unknown id yields
// models.MissingCharity() rather than an error.
func (s *Service) ViewProject(ctx context.Context, projectID id.ProjectID) (models.Charity, error) {
	c, err := s.FindProject(ctx, projectID)
	if dErrors.HasCode(err, dErrors.CodeNotFound) {
		return models.MissingCharity(), nil
	}
	if err != nil {
		return models.Charity{}, err
	}
	return *c, nil
}

// isRejection reports whether err is a business-rule refusal rather than an
// infrastructure failure.
func isRejection(err error) bool {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeConflict, dErrors.CodeValidation, dErrors.CodeInvariantViolation, dErrors.CodeNotFound:
		return true
	}
	return false
}

func (s *Service) recordFailure(span trace.Span, op string, err error) {
	code := string(dErrors.CodeOf(err))
	span.RecordError(err)
	span.SetStatus(codes.Error, code)
	if s.metrics != nil {
		s.metrics.IncrementFailure(op, code)
	}
}

// emitAudit publishes best-effort; a failing sink is logged and ignored.
func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"project_id", event.ProjectID.String(),
			"error", err,
		)
	}
}
