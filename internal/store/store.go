package store

import (
    "context"
    "encoding/json"
    "errors"
    "time"

    "routeplay/internal/model"
)

// Store archives finished solves and queues job callbacks. Async job state itself
// lives only in memory (see internal/jobs).
type Store interface {
    // Solve archive
    RecordSolveRun(ctx context.Context, run SolveRun) error
    ListSolveRuns(ctx context.Context, server string, limit int) ([]SolveRun, error)

    // Callback deliveries
    EnqueueWebhook(ctx context.Context, jobID, eventType, url string, payload []byte) (string, error)
    FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error)
    MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error
    FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error
    ListWebhookDeliveries(ctx context.Context, status string, limit int) ([]WebhookDelivery, error)

    Ping(ctx context.Context) error
    Close() error
}

var ErrNotFound = errors.New("not found")

const (
    ModeSync  = "sync"
    ModeAsync = "async"
)

// SolveRun is one archived solve outcome.
type SolveRun struct {
    ID         string    `json:"id"`
    Server     string    `json:"server"`
    Mode       string    `json:"mode"`
    JobID      string    `json:"job_id,omitempty"`
    Code       int       `json:"code"`
    Routes     int       `json:"routes"`
    Unassigned int       `json:"unassigned"`
    Cost       int       `json:"cost"`
    DurationMs int64     `json:"duration_ms"`
    Error      string    `json:"error,omitempty"`
    CreatedAt  time.Time `json:"created_at"`
}

// NewSolveRun summarizes an engine result. result is either a typed RoutingResponse or the
// generic map a remote backend returned.
func NewSolveRun(server, mode, jobID string, result any, err error, dur time.Duration) SolveRun {
    run := SolveRun{Server: server, Mode: mode, JobID: jobID, DurationMs: dur.Milliseconds(), CreatedAt: time.Now().UTC()}
    if err != nil {
        run.Code = -1
        run.Error = err.Error()
        return run
    }
    var resp model.RoutingResponse
    switch r := result.(type) {
    case model.RoutingResponse:
        resp = r
    case nil:
        return run
    default:
        // best effort: remote replies may not match the typed shape
        b, mErr := json.Marshal(r)
        if mErr != nil { return run }
        var loose struct {
            Code       int               `json:"code"`
            Routes     []json.RawMessage `json:"routes"`
            Unassigned []json.RawMessage `json:"unassigned"`
            Summary    struct{ Cost float64 `json:"cost"` } `json:"summary"`
        }
        if json.Unmarshal(b, &loose) != nil { return run }
        run.Code, run.Routes, run.Unassigned, run.Cost = loose.Code, len(loose.Routes), len(loose.Unassigned), int(loose.Summary.Cost)
        return run
    }
    run.Code, run.Routes, run.Unassigned, run.Cost = resp.Code, len(resp.Routes), len(resp.Unassigned), resp.Summary.Cost
    return run
}
