package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"charity/internal/registry/models"
	id "charity/pkg/domain"
	dErrors "charity/pkg/domain-errors"
	"charity/pkg/platform/httputil"
	"charity/pkg/platform/middleware/auth"
	request "charity/pkg/platform/middleware/request"
)

// maxBodyBytes caps request bodies; the largest valid body is a registration.
const maxBodyBytes = 64 << 10

// Service defines the registry operations the handler exposes.
type Service interface {
	RegisterProject(ctx context.Context, title, description string) (id.ProjectID, error)
	VerifyProject(ctx context.Context, projectID id.ProjectID) error
	Donate(ctx context.Context, projectID id.ProjectID, amount uint64) error
	ViewAllProjects(ctx context.Context) (models.CharityStatus, error)
	FindProject(ctx context.Context, projectID id.ProjectID) (*models.Charity, error)
}

// Handler serves the /projects endpoints.
type Handler struct {
	service  Service
	logger   *slog.Logger
	verifier auth.VerifierValidator
}

type Option func(*Handler)

// WithVerifierValidator requires a verifier bearer token on POST /projects/{id}/verify.
func WithVerifierValidator(v auth.VerifierValidator) Option {
	return func(h *Handler) {
		h.verifier = v
	}
}

func New(service Service, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{service: service, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the project routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/projects", func(r chi.Router) {
		r.Post("/", h.handleRegisterProject)
		r.Get("/status", h.handleViewAllProjects)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.handleFindProject)
			r.Post("/donations", h.handleDonate)
			r.Group(func(r chi.Router) {
				if h.verifier != nil {
					r.Use(auth.RequireVerifier(h.verifier, h.logger))
				}
				r.Post("/verify", h.handleVerifyProject)
			})
		})
	})
}

func (h *Handler) handleRegisterProject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req RegisterProjectRequest
	if !h.decode(w, r, &req) {
		return
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	projectID, err := h.service.RegisterProject(ctx, req.Title, req.Description)
	if err != nil {
		h.writeServiceError(ctx, w, "register project", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, RegisterProjectResponse{ProjectID: uint64(projectID)})
}

func (h *Handler) handleFindProject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	projectID, ok := h.projectID(w, r)
	if !ok {
		return
	}
	charity, err := h.service.FindProject(ctx, projectID)
	if err != nil {
		h.writeServiceError(ctx, w, "find project", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, charity)
}

func (h *Handler) handleVerifyProject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	projectID, ok := h.projectID(w, r)
	if !ok {
		return
	}
	if err := h.service.VerifyProject(ctx, projectID); err != nil {
		h.writeServiceError(ctx, w, "verify project", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDonate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	projectID, ok := h.projectID(w, r)
	if !ok {
		return
	}
	var req DonateRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.Donate(ctx, projectID, *req.Amount); err != nil {
		h.writeServiceError(ctx, w, "donate", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleViewAllProjects(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status, err := h.service.ViewAllProjects(ctx)
	if err != nil {
		h.writeServiceError(ctx, w, "view all projects", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, status)
}

func (h *Handler) projectID(w http.ResponseWriter, r *http.Request) (id.ProjectID, bool) {
	projectID, err := id.ParseProjectID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return 0, false
	}
	return projectID, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		h.logger.WarnContext(r.Context(), "failed to decode request body",
			"error", err,
			"request_id", request.GetRequestID(r.Context()),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid json payload"))
		return false
	}
	return true
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, "registry operation failed",
			"operation", op,
			"error", err,
			"request_id", request.GetRequestID(ctx),
		)
	}
	httputil.WriteError(w, err)
}
