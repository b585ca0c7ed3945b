package api

import (
    "encoding/json"
    "net/http"
    "time"

    "routeplay/internal/buildinfo"
)

// DebugJSON reports build info and the effective configuration. Secrets are reduced to presence flags.
func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
    c := s.Config
    info := map[string]any{
        "build": buildinfo.Info(),
        "time":  time.Now().UTC().Format(time.RFC3339),
        "config": map[string]any{
            "APP_NAME":             c.AppName,
            "API_HOST":             c.Host,
            "API_PORT":             c.Port,
            "DEBUG":                c.Debug,
            "WRAPPER_BASE_URL":     c.WrapperBaseURL,
            "ORTOOLS_LOCAL_URL":    c.OrtoolsLocalURL,
            "MAP_MATCHING_URL":     c.MapMatchingURL,
            "FRONTEND_DIR":         c.FrontendDir,
            "RATE_RPS":             c.RateRPS,
            "RATE_BURST":           c.RateBurst,
            "TRUST_PROXY":          c.TrustProxy,
            "JOB_WORKERS":          c.JobWorkers,
            "JOB_QUEUE":            c.JobQueue,
            "WEBHOOK_MAX_ATTEMPTS": c.WebhookMaxAttempts,
            "HAS_WRAPPER_API_KEY":  c.WrapperAPIKey != "",
            "HAS_WEBHOOK_SECRET":   c.WebhookSecret != "",
            "HAS_DATABASE_URL":     c.DatabaseURL != "",
            "HAS_REDIS_URL":        c.RedisURL != "",
        },
        "servers": s.Registry.IDs(),
        "jobs":    s.Jobs.Stats(),
    }
    w.Header().Set("Content-Type", "application/json")
    _ = json.NewEncoder(w).Encode(info)
}
