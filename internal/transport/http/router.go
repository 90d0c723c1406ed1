// Package httptransport assembles the public router. It stays thin: every
// route delegates to a feature handler, which in turn delegates to a service.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"benefid/internal/platform/middleware"
	"benefid/internal/transport/http/shared"
	dErrors "benefid/pkg/domain-errors"
)

// Registrar is implemented by every feature handler package.
type Registrar interface {
	Register(r chi.Router)
}

// HealthCheck probes one dependency. A nil error means healthy.
type HealthCheck func(ctx context.Context) error

// NewRouter wires the middleware stack, feature routes, and the operational
// endpoints.
func NewRouter(logger *slog.Logger, registry *prometheus.Registry, checks map[string]HealthCheck, handlers ...Registrar) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Actor)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Timeout(30 * time.Second))

	for _, h := range handlers {
		h.Register(r)
	}

	r.Get("/healthz", handleHealth(checks))
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	return r
}

func handleHealth(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := map[string]string{}
		healthy := true
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status[name] = err.Error()
				healthy = false
				continue
			}
			status[name] = "ok"
		}
		if !healthy {
			shared.WriteJSON(w, shared.ToHTTPStatus(dErrors.CodeUnavailable), status)
			return
		}
		shared.WriteJSON(w, http.StatusOK, status)
	}
}
