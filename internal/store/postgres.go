package store

import (
    "context"
    "crypto/sha256"
    "database/sql"
    _ "embed"
    "encoding/hex"
    "encoding/json"
    "strconv"
    "time"

    "github.com/google/uuid"
    _ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed schema.sql
var schemaSQL string

type Postgres struct {
    db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
    db, err := sql.Open("pgx", dsn)
    if err != nil {
        return nil, err
    }
    if err := db.Ping(); err != nil {
        _ = db.Close()
        return nil, err
    }
    return &Postgres{db: db}, nil
}

// Migrate applies the embedded schema. Statements are idempotent.
func (p *Postgres) Migrate(ctx context.Context) error {
    _, err := p.db.ExecContext(ctx, schemaSQL)
    return err
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *Postgres) Close() error { return p.db.Close() }

func (p *Postgres) RecordSolveRun(ctx context.Context, run SolveRun) error {
    if run.ID == "" { run.ID = uuid.New().String() }
    if run.CreatedAt.IsZero() { run.CreatedAt = time.Now().UTC() }
    _, err := p.db.ExecContext(ctx, `INSERT INTO solve_runs (id, server, mode, job_id, code, routes, unassigned, cost, duration_ms, error, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
        run.ID, run.Server, run.Mode, nullIfEmpty(run.JobID), run.Code, run.Routes, run.Unassigned, run.Cost, run.DurationMs, nullIfEmpty(run.Error), run.CreatedAt)
    return err
}

func (p *Postgres) ListSolveRuns(ctx context.Context, server string, limit int) ([]SolveRun, error) {
    if limit <= 0 || limit > 500 { limit = 100 }
    q := `SELECT id::text, server, mode, COALESCE(job_id,''), code, routes, unassigned, cost, duration_ms, COALESCE(error,''), created_at FROM solve_runs`
    args := []any{}
    if server != "" { q += ` WHERE server=$1`; args = append(args, server) }
    q += ` ORDER BY created_at DESC LIMIT ` + strconv.Itoa(limit)
    rows, err := p.db.QueryContext(ctx, q, args...)
    if err != nil { return nil, err }
    defer rows.Close()
    out := []SolveRun{}
    for rows.Next() {
        var r SolveRun
        if err := rows.Scan(&r.ID, &r.Server, &r.Mode, &r.JobID, &r.Code, &r.Routes, &r.Unassigned, &r.Cost, &r.DurationMs, &r.Error, &r.CreatedAt); err != nil { return nil, err }
        out = append(out, r)
    }
    return out, rows.Err()
}

func (p *Postgres) EnqueueWebhook(ctx context.Context, jobID, eventType, url string, payload []byte) (string, error) {
    id := uuid.New().String()
    dk := computeDedupKey(payload)
    res, err := p.db.ExecContext(ctx, `INSERT INTO webhook_deliveries (id, job_id, event_type, url, payload, status, attempts, next_attempt_at, dedup_key)
        VALUES ($1,$2,$3,$4,$5,'pending',0,now(),$6)
        ON CONFLICT (event_type, url, dedup_key) DO NOTHING`, id, jobID, eventType, url, payload, dk)
    if err != nil { return "", err }
    if n, _ := res.RowsAffected(); n == 0 { return "", nil }
    return id, nil
}

func (p *Postgres) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
    rows, err := p.db.QueryContext(ctx, `SELECT id::text, job_id, event_type, url, payload, status, attempts, next_attempt_at
        FROM webhook_deliveries WHERE status IN ('pending','retry') AND next_attempt_at <= now() ORDER BY next_attempt_at ASC LIMIT $1`, limit)
    if err != nil { return nil, err }
    defer rows.Close()
    out := []WebhookDelivery{}
    for rows.Next() {
        var d WebhookDelivery
        if err := rows.Scan(&d.ID, &d.JobID, &d.EventType, &d.URL, &d.Payload, &d.Status, &d.Attempts, &d.NextAttemptAt); err != nil { return nil, err }
        out = append(out, d)
    }
    return out, rows.Err()
}

func (p *Postgres) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
    if !success {
        if nextAttemptAt == nil { t := time.Now().Add(1 * time.Minute); nextAttemptAt = &t }
        _, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET attempts=attempts+1, status='retry', last_error=$1, next_attempt_at=$2, updated_at=now(), response_code=$4, latency_ms=$5 WHERE id=$3`, nullIfEmpty(lastError), *nextAttemptAt, id, responseCode, latencyMs)
        return err
    }
    _, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET attempts=attempts+1, status='delivered', delivered_at=now(), updated_at=now(), response_code=$2, latency_ms=$3 WHERE id=$1`, id, responseCode, latencyMs)
    return err
}

func (p *Postgres) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
    _, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET attempts=attempts+1, status='failed', last_error=$2, updated_at=now(), response_code=$3, latency_ms=$4 WHERE id=$1`, id, nullIfEmpty(lastError), responseCode, latencyMs)
    return err
}

func (p *Postgres) ListWebhookDeliveries(ctx context.Context, status string, limit int) ([]WebhookDelivery, error) {
    if limit <= 0 || limit > 500 { limit = 100 }
    q := `SELECT id::text, job_id, event_type, url, status, attempts, next_attempt_at, COALESCE(last_error,''), COALESCE(response_code,0), delivered_at FROM webhook_deliveries`
    args := []any{}
    if status != "" { q += ` WHERE status=$1`; args = append(args, status) }
    q += ` ORDER BY next_attempt_at DESC LIMIT ` + strconv.Itoa(limit)
    rows, err := p.db.QueryContext(ctx, q, args...)
    if err != nil { return nil, err }
    defer rows.Close()
    out := []WebhookDelivery{}
    for rows.Next() {
        var d WebhookDelivery
        var delivered sql.NullTime
        if err := rows.Scan(&d.ID, &d.JobID, &d.EventType, &d.URL, &d.Status, &d.Attempts, &d.NextAttemptAt, &d.LastError, &d.ResponseCode, &delivered); err != nil { return nil, err }
        if delivered.Valid { t := delivered.Time; d.DeliveredAt = &t }
        out = append(out, d)
    }
    return out, rows.Err()
}

// computeDedupKey uses the event id when the payload carries one, else a short content hash.
func computeDedupKey(payload []byte) string {
    var m map[string]any
    if json.Unmarshal(payload, &m) == nil {
        if v, ok := m["id"].(string); ok && v != "" {
            return v
        }
    }
    sum := sha256.Sum256(payload)
    return hex.EncodeToString(sum[:8])
}

func nullIfEmpty(s string) any { if s == "" { return nil }; return s }

