package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// buildRouter constructs the chi mux with all routes wired.
func (g *Gateway) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", g.handleHealth())
	r.Get("/status", g.handleStatus())

	if g.config.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(g.config.Registry, promhttp.HandlerOpts{}))
	}

	if g.config.Bus != nil {
		r.Get("/ws/events", g.handleEvents)
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/jobs", g.handleCreateJob())
		r.Get("/jobs", g.handleListJobs())
		r.Get("/jobs/{id}", g.handleGetJob())
		r.Post("/jobs/{id}/toggle", g.handleToggleJob())
		r.Delete("/jobs/{id}", g.handleDeleteJob())
		r.Get("/executions", g.handleListExecutions())
	})

	return r
}
