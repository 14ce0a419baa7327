package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"charity/internal/registry/models"
	id "charity/pkg/domain"
	dErrors "charity/pkg/domain-errors"
	audit "charity/pkg/platform/audit"
	"charity/pkg/platform/audit/publisher"
	"charity/pkg/platform/httputil"
	"charity/pkg/platform/middleware/admin"
	request "charity/pkg/platform/middleware/request"
)

// ReconcileRunner runs one reconciliation pass, including its report sinks.
type ReconcileRunner interface {
	Run(ctx context.Context) (models.ReconcileReport, error)
}

// AuditHistory reads back the audit trail of one project.
type AuditHistory interface {
	List(ctx context.Context, projectID id.ProjectID) ([]audit.Event, error)
}

type auditEventResponse struct {
	ID        string `json:"id"`
	Category  string `json:"category"`
	Action    string `json:"action"`
	Timestamp string `json:"timestamp"`
	Amount    uint64 `json:"amount,omitempty"`
	Reason    string `json:"reason,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	ActorID   string `json:"actor_id,omitempty"`
}

type auditHistoryResponse struct {
	ProjectID uint64               `json:"project_id"`
	Events    []auditEventResponse `json:"events"`
}

type reconcileResponse struct {
	HasDrift bool `json:"drifted"`
	models.ReconcileReport
}

// AdminHandler serves operator endpoints under /admin.
type AdminHandler struct {
	runner  ReconcileRunner
	history AuditHistory
	token   string
	logger  *slog.Logger
}

type AdminOption func(*AdminHandler)

// WithAuditHistory enables GET /admin/projects/{id}/audit.
func WithAuditHistory(history AuditHistory) AdminOption {
	return func(h *AdminHandler) {
		h.history = history
	}
}

func NewAdmin(runner ReconcileRunner, token string, logger *slog.Logger, opts ...AdminOption) *AdminHandler {
	h := &AdminHandler{runner: runner, token: token, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *AdminHandler) Register(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(admin.RequireAdminToken(h.token, h.logger))
		r.Post("/reconcile", h.handleReconcile)
		if h.history != nil {
			r.Get("/projects/{id}/audit", h.handleAuditHistory)
		}
	})
}

func (h *AdminHandler) handleAuditHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	projectID, err := id.ParseProjectID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	events, err := h.history.List(ctx, projectID)
	if errors.Is(err, publisher.ErrNotListable) {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "audit history is not kept by the configured sink"))
		return
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list audit events",
			"error", err,
			"project_id", projectID.String(),
			"request_id", request.GetRequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}

	resp := auditHistoryResponse{ProjectID: uint64(projectID), Events: make([]auditEventResponse, 0, len(events))}
	for _, e := range events {
		resp.Events = append(resp.Events, auditEventResponse{
			ID:        e.ID,
			Category:  string(e.Category),
			Action:    e.Action,
			Timestamp: e.Timestamp.UTC().Format(time.RFC3339Nano),
			Amount:    e.Amount,
			Reason:    e.Reason,
			RequestID: e.RequestID,
			ActorID:   e.ActorID,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *AdminHandler) handleReconcile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	report, err := h.runner.Run(ctx)
	if err != nil && report.CheckedAt.IsZero() {
		h.logger.ErrorContext(ctx, "manual reconcile failed",
			"error", err,
			"request_id", request.GetRequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	if err != nil {
		// The report was produced; only archiving failed.
		h.logger.WarnContext(ctx, "manual reconcile report not fully archived",
			"error", err,
			"request_id", request.GetRequestID(ctx),
		)
	}
	httputil.WriteJSON(w, http.StatusOK, reconcileResponse{HasDrift: report.Drifted(), ReconcileReport: report})
}
