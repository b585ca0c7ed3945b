package api

import (
    "net/http"

    "github.com/prometheus/client_golang/prometheus/promhttp"

    "routeplay/internal/metrics"
)

// Routes registers every gateway endpoint on a fresh mux.
func (s *Server) Routes() *http.ServeMux {
    mux := http.NewServeMux()

    // Solving
    mux.HandleFunc("/solve/", s.SolveHandler)
    mux.HandleFunc("/job/", s.JobHandler) // includes /events and /geojson
    mux.HandleFunc("/ws/jobs", s.JobsWSHandler)
    mux.HandleFunc("/map-matching/match", s.MapMatchHandler)
    mux.HandleFunc("/servers", s.ServersHandler)

    // Health and introspection
    mux.HandleFunc("/", s.RootHandler)
    mux.HandleFunc("/healthz", s.HealthHandler)
    mux.HandleFunc("/readyz", s.ReadyHandler)
    mux.HandleFunc("/debug/config", s.DebugJSON)
    mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

    // Admin
    mux.HandleFunc("/admin/solve-runs", s.SolveRunsHandler)
    mux.HandleFunc("/admin/webhook-deliveries", s.WebhookDeliveriesHandler)

    // Docs and frontend
    mux.HandleFunc("/openapi.yaml", s.OpenAPIHandler)
    mux.HandleFunc("/openapi.json", s.OpenAPIHandler)
    mux.HandleFunc("/docs", s.DocsHandler)
    mux.HandleFunc("/static/", s.StaticHandler)

    return mux
}
