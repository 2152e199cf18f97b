/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Access log: One zerolog line per request
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. Metrics:    Request counters/latency per route pattern (optional)
  5. CORS:       Cross-origin requests for the planning frontend

ROUTE GROUPS:
  /api/resources/*      Resources, utilization, availability, evaluation
  /api/sites/*          Sites, site schedules and costs
  /api/assignments/*    Scheduling and lifecycle
  /api/scenarios/*      Demo scenarios (dev only)
  /metrics              Prometheus exposition
  /healthz              Liveness and store check

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/warp/site-planner/metrics"
)

// RouterOptions configures the optional parts of the router.
type RouterOptions struct {
	AllowedOrigins []string

	// HTTPMetrics instruments every route when set.
	HTTPMetrics *metrics.HTTPMetrics

	// Gatherer is exposed on MetricsPath when set.
	Gatherer    prometheus.Gatherer
	MetricsPath string
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(accessLog(h.Log))
	r.Use(middleware.Recoverer)
	if opts.HTTPMetrics != nil {
		r.Use(opts.HTTPMetrics.Middleware)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", h.Healthz)
	if opts.Gatherer != nil {
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, metrics.Handler(opts.Gatherer))
	}

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/resources", func(r chi.Router) {
			r.Get("/", h.ListResources)
			r.Post("/", h.CreateResource)
			r.Get("/{id}", h.GetResource)
			r.Get("/{id}/utilization", h.GetUtilization)
			r.Get("/{id}/availability", h.GetAvailability)
			r.Get("/{id}/assignments", h.GetResourceAssignments)
			r.Post("/{id}/evaluate", h.Evaluate)
		})

		r.Route("/sites", func(r chi.Router) {
			r.Get("/", h.ListSites)
			r.Post("/", h.CreateSite)
			r.Get("/{id}", h.GetSite)
			r.Get("/{id}/assignments", h.GetSiteAssignments)
			r.Get("/{id}/costs", h.GetSiteCosts)
		})

		r.Route("/assignments", func(r chi.Router) {
			r.Get("/", h.ListAssignments)
			r.Post("/", h.CreateAssignment)
			r.Get("/{id}", h.GetAssignment)
			r.Put("/{id}", h.UpdateAssignment)
			r.Delete("/{id}", h.CancelAssignment)
			r.Post("/{id}/cancel", h.CancelAssignment)
			r.Post("/{id}/status", h.SetStatus)
			r.Get("/{id}/cost", h.GetAssignmentCost)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	return r
}

// accessLog writes one line per request once the response is done.
func accessLog(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				ev := log.Info()
				if status >= http.StatusInternalServerError {
					ev = log.Warn()
				}
				ev.Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", status).
					Int("bytes", ww.BytesWritten()).
					Dur("duration", time.Since(start)).
					Str("request_id", middleware.GetReqID(r.Context())).
					Msg("http request")
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
