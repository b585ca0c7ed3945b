package store

import (
    "context"
    "sort"
    "sync"
    "time"

    "github.com/google/uuid"
)

const maxMemoryRuns = 1000

// Memory is a simple in-memory store used when no DATABASE_URL is set.
type Memory struct {
    mu     sync.Mutex
    runs   []SolveRun                      // newest last, capped at maxMemoryRuns
    // Webhooks queue state
    deliveries map[string]*WebhookDelivery // id -> delivery state
    order      []string                    // delivery ids in enqueue order
    dedup      map[string]struct{}         // url|event|dedup key
    dlq        []WebhookDelivery           // dead-lettered deliveries
}

func NewMemory() *Memory {
    return &Memory{
        deliveries: map[string]*WebhookDelivery{},
        dedup: map[string]struct{}{},
    }
}

func (m *Memory) RecordSolveRun(ctx context.Context, run SolveRun) error {
    m.mu.Lock(); defer m.mu.Unlock()
    if run.ID == "" { run.ID = uuid.New().String() }
    if run.CreatedAt.IsZero() { run.CreatedAt = time.Now().UTC() }
    m.runs = append(m.runs, run)
    if len(m.runs) > maxMemoryRuns { m.runs = append([]SolveRun(nil), m.runs[len(m.runs)-maxMemoryRuns:]...) }
    return nil
}

// ListSolveRuns returns the newest runs first, optionally filtered by server.
func (m *Memory) ListSolveRuns(ctx context.Context, server string, limit int) ([]SolveRun, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    if limit <= 0 || limit > 500 { limit = 100 }
    out := []SolveRun{}
    for i := len(m.runs) - 1; i >= 0 && len(out) < limit; i-- {
        if server == "" || m.runs[i].Server == server {
            out = append(out, m.runs[i])
        }
    }
    return out, nil
}

// Webhook deliveries
func (m *Memory) EnqueueWebhook(ctx context.Context, jobID, eventType, url string, payload []byte) (string, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    key := url + "|" + eventType + "|" + computeDedupKey(payload)
    if _, dup := m.dedup[key]; dup { return "", nil }
    m.dedup[key] = struct{}{}
    id := uuid.New().String()
    m.deliveries[id] = &WebhookDelivery{ID: id, JobID: jobID, EventType: eventType, URL: url, Payload: payload, Status: "pending", NextAttemptAt: time.Now()}
    m.order = append(m.order, id)
    return id, nil
}

func (m *Memory) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    now := time.Now()
    out := []WebhookDelivery{}
    for _, id := range m.order {
        d := m.deliveries[id]
        if d == nil { continue }
        if (d.Status == "pending" || d.Status == "retry") && !d.NextAttemptAt.After(now) {
            out = append(out, *d)
            if limit > 0 && len(out) >= limit { break }
        }
    }
    return out, nil
}

func (m *Memory) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
    m.mu.Lock(); defer m.mu.Unlock()
    d := m.deliveries[id]
    if d == nil { return ErrNotFound }
    d.Attempts++
    d.ResponseCode = responseCode
    if success {
        d.Status = "delivered"
        now := time.Now()
        d.DeliveredAt = &now
    } else {
        d.Status = "retry"
        d.LastError = lastError
        if nextAttemptAt != nil { d.NextAttemptAt = *nextAttemptAt } else { d.NextAttemptAt = time.Now().Add(1 * time.Minute) }
    }
    return nil
}

func (m *Memory) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
    m.mu.Lock(); defer m.mu.Unlock()
    d := m.deliveries[id]
    if d == nil { return ErrNotFound }
    d.Attempts++
    d.Status = "failed"
    d.LastError = lastError
    d.ResponseCode = responseCode
    m.dlq = append(m.dlq, *d)
    return nil
}

func (m *Memory) ListWebhookDeliveries(ctx context.Context, status string, limit int) ([]WebhookDelivery, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    if limit <= 0 || limit > 500 { limit = 100 }
    out := []WebhookDelivery{}
    for _, id := range m.order {
        d := m.deliveries[id]
        if d == nil { continue }
        if status == "" || d.Status == status { out = append(out, *d) }
    }
    sort.SliceStable(out, func(i, j int) bool { return out[i].NextAttemptAt.After(out[j].NextAttemptAt) })
    if len(out) > limit { out = out[:limit] }
    return out, nil
}

func (m *Memory) Ping(ctx context.Context) error { return nil }

func (m *Memory) Close() error { return nil }
