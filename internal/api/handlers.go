package api

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "net/http"
    "net/url"
    "strconv"
    "strings"
    "time"

    "routeplay/internal/buildinfo"
    "routeplay/internal/geoexport"
    "routeplay/internal/jobs"
    "routeplay/internal/logging"
    "routeplay/internal/model"
    "routeplay/internal/store"
)

const (
    DefaultSolveTimeout = 300
    MinSolveTimeout     = 10
    MaxSolveTimeout     = 1800

    maxBodyBytes = 10 << 20
)

// RootHandler handles GET /
func (s *Server) RootHandler(w http.ResponseWriter, r *http.Request) {
    if r.URL.Path != "/" { writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path); return }
    writeJSON(w, http.StatusOK, map[string]string{"message": "Route Playground API", "version": buildinfo.Version})
}

// ServersHandler handles GET /servers
func (s *Server) ServersHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet { w.WriteHeader(http.StatusMethodNotAllowed); return }
    writeJSON(w, http.StatusOK, map[string]any{"servers": s.Registry.List()})
}

// SolveHandler handles POST /solve/{server}
func (s *Server) SolveHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost { w.WriteHeader(http.StatusMethodNotAllowed); return }
    server := strings.TrimPrefix(r.URL.Path, "/solve/")
    if server == "" || strings.Contains(server, "/") {
        writeProblem(w, http.StatusNotFound, "Not Found", "missing server", r.URL.Path)
        return
    }
    opts, err := parseSolveOptions(r.URL.Query())
    if err != nil {
        writeProblem(w, http.StatusUnprocessableEntity, "Invalid query", err.Error(), r.URL.Path)
        return
    }
    raw, err := model.DecodePayload(http.MaxBytesReader(w, r.Body, maxBodyBytes))
    if err != nil {
        writeProblem(w, http.StatusUnprocessableEntity, "Invalid routing request", err.Error(), r.URL.Path)
        return
    }
    payload, _ := model.RewriteProfiles(raw).(map[string]any)

    if opts.async {
        j := s.Jobs.Create(server, payload, opts.callbackURL)
        if err := s.Pool.Submit(j.ID, opts.timeout); err != nil {
            // the job still exists and reports the scheduling failure
            logging.Error("api", "job not scheduled", "job", j.ID, "err", err)
            _ = s.Jobs.Reject(j.ID, err)
        }
        logging.Info("api", "job accepted", "job", j.ID, "server", server, "timeout_s", int(opts.timeout.Seconds()))
        writeJSON(w, http.StatusAccepted, j.Handle())
        return
    }

    e, err := s.resolve(server)
    if err != nil {
        writeSolveError(w, r, err)
        return
    }
    start := time.Now()
    result, err := e.Solve(r.Context(), payload, opts.timeout)
    s.archiveSync(server, result, err, time.Since(start))
    if err != nil {
        writeSolveError(w, r, err)
        return
    }
    writeJSON(w, http.StatusOK, result)
}

type solveOptions struct {
    timeout     time.Duration
    async       bool
    callbackURL string
}

func parseSolveOptions(q url.Values) (solveOptions, error) {
    opts := solveOptions{timeout: DefaultSolveTimeout * time.Second}
    if v := q.Get("timeout"); v != "" {
        n, err := strconv.Atoi(v)
        if err != nil || n < MinSolveTimeout || n > MaxSolveTimeout {
            return opts, fmt.Errorf("timeout must be an integer between %d and %d seconds", MinSolveTimeout, MaxSolveTimeout)
        }
        opts.timeout = time.Duration(n) * time.Second
    }
    if v := q.Get("async"); v != "" {
        b, err := strconv.ParseBool(v)
        if err != nil {
            return opts, fmt.Errorf("async must be a boolean")
        }
        opts.async = b
    }
    if v := q.Get("callback_url"); v != "" {
        u, err := url.Parse(v)
        if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
            return opts, fmt.Errorf("callback_url must be an absolute http(s) URL")
        }
        if !opts.async {
            return opts, fmt.Errorf("callback_url requires async=true")
        }
        opts.callbackURL = v
    }
    return opts, nil
}

func (s *Server) archiveSync(server string, result any, err error, dur time.Duration) {
    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    if aerr := s.Store.RecordSolveRun(ctx, store.NewSolveRun(server, store.ModeSync, "", result, err, dur)); aerr != nil {
        logging.Error("api", "record solve run", "server", server, "err", aerr)
    }
}

// JobHandler handles GET /job/{id}, /job/{id}/events and /job/{id}/geojson
func (s *Server) JobHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet { w.WriteHeader(http.StatusMethodNotAllowed); return }
    rest := strings.TrimPrefix(r.URL.Path, "/job/")
    parts := strings.Split(rest, "/")
    id := parts[0]
    if id == "" || len(parts) > 2 {
        writeProblem(w, http.StatusNotFound, "Not Found", "missing id", r.URL.Path)
        return
    }
    j, err := s.Jobs.Get(id)
    if errors.Is(err, jobs.ErrNotFound) {
        writeProblem(w, http.StatusNotFound, "Job not found", "", r.URL.Path)
        return
    }
    if len(parts) == 1 {
        writeJSON(w, http.StatusOK, j.View())
        return
    }
    switch parts[1] {
    case "events":
        s.streamJob(w, r, j)
    case "geojson":
        s.jobGeoJSON(w, r, j)
    default:
        writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
    }
}

func (s *Server) jobGeoJSON(w http.ResponseWriter, r *http.Request, j jobs.Job) {
    if j.Status != jobs.StatusCompleted {
        writeProblem(w, http.StatusConflict, "Job not completed", "status is "+string(j.Status), r.URL.Path)
        return
    }
    fc, err := geoexport.FromResult(j.Result)
    if err != nil {
        writeProblem(w, http.StatusUnprocessableEntity, "Result not exportable", err.Error(), r.URL.Path)
        return
    }
    w.Header().Set("Content-Type", "application/geo+json")
    _ = json.NewEncoder(w).Encode(fc)
}

// streamJob is the SSE stream of one job's transitions. It ends after the terminal event.
func (s *Server) streamJob(w http.ResponseWriter, r *http.Request, j jobs.Job) {
    flusher, ok := w.(http.Flusher)
    if !ok { writeProblem(w, 500, "Streaming unsupported", "", r.URL.Path); return }
    w.Header().Set("Content-Type", "text/event-stream")
    w.Header().Set("Cache-Control", "no-cache")
    w.Header().Set("Connection", "keep-alive")
    ch := s.Broker.Subscribe(j.ID)
    defer s.Broker.Unsubscribe(j.ID, ch)

    // re-read after subscribing so a transition in between is not lost; the channel may then
    // repeat the state just sent
    if cur, err := s.Jobs.Get(j.ID); err == nil { j = cur }
    sent := "job." + string(j.Status)
    writeSSE(w, sent, jobEventData(j))
    flusher.Flush()
    if j.Status.Terminal() { return }

    heartbeat := time.NewTicker(15 * time.Second)
    defer heartbeat.Stop()
    for {
        select {
        case <-r.Context().Done():
            return
        case evt, ok := <-ch:
            if !ok { return }
            if evt.Type == sent { continue }
            sent = evt.Type
            writeSSE(w, evt.Type, evt.Data)
            flusher.Flush()
            if evt.Type == "job."+string(jobs.StatusCompleted) || evt.Type == "job."+string(jobs.StatusFailed) {
                return
            }
        case <-heartbeat.C:
            writeSSE(w, "heartbeat", map[string]any{"jobId": j.ID, "ts": time.Now().UTC().Format(time.RFC3339)})
            flusher.Flush()
        }
    }
}

func writeSSE(w http.ResponseWriter, event string, data any) {
    b, _ := json.Marshal(data)
    fmt.Fprintf(w, "event: %s\n", event)
    fmt.Fprintf(w, "data: %s\n\n", b)
}

// MapMatchHandler handles POST /map-matching/match. Failures are reported in the body.
func (s *Server) MapMatchHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost { w.WriteHeader(http.StatusMethodNotAllowed); return }
    var req model.MapMatchingRequest
    if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
        writeJSON(w, http.StatusOK, invalidMatch(err))
        return
    }
    if err := req.Validate(); err != nil {
        writeJSON(w, http.StatusOK, invalidMatch(err))
        return
    }
    writeJSON(w, http.StatusOK, s.Matcher.Match(r.Context(), req))
}

func invalidMatch(err error) model.MapMatchingResponse {
    return model.MatchFailure("Invalid map matching request", err)
}

// Health
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
    writeJSON(w, 200, map[string]string{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
    ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
    defer cancel()
    if err := s.Store.Ping(ctx); err != nil { writeProblem(w, 503, "Not Ready", err.Error(), r.URL.Path); return }
    writeJSON(w, 200, map[string]any{"status": "ready", "jobs": s.Jobs.Stats()})
}

// Admin: solve archive
func (s *Server) SolveRunsHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet { w.WriteHeader(405); return }
    limit := queryInt(r, "limit", 100)
    items, err := s.Store.ListSolveRuns(r.Context(), r.URL.Query().Get("server"), limit)
    if err != nil { writeProblem(w, 500, "List solve runs failed", err.Error(), r.URL.Path); return }
    writeJSON(w, 200, map[string]any{"items": items})
}

// Admin: callback deliveries
func (s *Server) WebhookDeliveriesHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet { w.WriteHeader(405); return }
    limit := queryInt(r, "limit", 100)
    items, err := s.Store.ListWebhookDeliveries(r.Context(), r.URL.Query().Get("status"), limit)
    if err != nil { writeProblem(w, 500, "List deliveries failed", err.Error(), r.URL.Path); return }
    writeJSON(w, 200, map[string]any{"items": items})
}

func queryInt(r *http.Request, key string, def int) int {
    if v := r.URL.Query().Get(key); v != "" {
        if n, err := strconv.Atoi(v); err == nil { return n }
    }
    return def
}
