// Package httptransport assembles the process HTTP surface: shared
// middleware, operational endpoints and the domain route groups.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"charity/internal/platform/metrics"
	"charity/pkg/platform/httputil"
	"charity/pkg/platform/middleware/metadata"
	request "charity/pkg/platform/middleware/request"
	"charity/pkg/platform/middleware/requesttime"
)

const healthTimeout = 2 * time.Second

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Routes is implemented by every handler that mounts its own endpoints.
type Routes interface {
	Register(r chi.Router)
}

type Deps struct {
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Health   Pinger
	Routes   []Routes
}

// NewRouter wires middleware, /healthz, /metrics and every route group.
func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recovery(logger))
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
	}
	r.Use(request.Logger(logger))

	r.Get("/healthz", healthHandler(d.Health, logger))
	if d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}
	for _, routes := range d.Routes {
		routes.Register(r)
	}
	return r
}

type healthResponse struct {
	Status string `json:"status"`
}

func healthHandler(p Pinger, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if p == nil {
			httputil.WriteJSON(w, http.StatusOK, healthResponse{Status: "ok"})
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			logger.WarnContext(ctx, "health check failed",
				"error", err,
				"request_id", request.GetRequestID(ctx),
			)
			httputil.WriteJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
			return
		}
		httputil.WriteJSON(w, http.StatusOK, healthResponse{Status: "ok"})
	}
}
