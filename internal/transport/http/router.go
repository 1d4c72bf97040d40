// Package httptransport assembles the HTTP surface: the authenticated
// control and enrollment endpoints plus the unauthenticated health and
// metrics probes. Business logic stays in the domain handlers.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rollcall/internal/platform/httputil"
	"rollcall/internal/platform/middleware"
)

// healthTimeout bounds one dependency probe inside /healthz.
const healthTimeout = 2 * time.Second

// Registrar is implemented by domain handlers that mount their own routes.
type Registrar interface {
	Register(r chi.Router)
}

// HealthCheck probes one backing dependency.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Deps collects everything the router mounts.
type Deps struct {
	Logger    *slog.Logger
	Validator middleware.TokenValidator
	Registry  *prometheus.Registry
	Handlers  []Registrar
	Health    []HealthCheck
}

// NewRouter builds the full route tree. Everything except the probes sits
// behind bearer-token auth.
func NewRouter(deps Deps) chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", healthHandler(deps))
	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(deps.Validator, deps.Logger))
		for _, h := range deps.Handlers {
			h.Register(r)
		}
	})

	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok"}
		if len(deps.Health) > 0 {
			resp.Checks = make(map[string]string, len(deps.Health))
		}

		status := http.StatusOK
		for _, hc := range deps.Health {
			ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
			err := hc.Check(ctx)
			cancel()
			if err != nil {
				deps.Logger.WarnContext(r.Context(), "health check failed",
					"dependency", hc.Name,
					"error", err,
				)
				resp.Checks[hc.Name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[hc.Name] = "ok"
		}

		httputil.WriteJSON(w, status, resp)
	}
}
