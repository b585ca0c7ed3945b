//go:build postgres_integration

package store

import (
    "os"
    "testing"
    "time"
)

func TestPostgresConnectivityAndMigrate(t *testing.T) {
    dsn := os.Getenv("DATABASE_URL")
    if dsn == "" { t.Skip("DATABASE_URL not set; skipping integration test") }
    p, err := NewPostgres(dsn)
    if err != nil { t.Fatalf("NewPostgres: %v", err) }
    defer p.Close()
    if err := p.Ping(t.Context()); err != nil { t.Fatalf("Ping: %v", err) }
    if err := p.Migrate(t.Context()); err != nil { t.Fatalf("Migrate: %v", err) }
    run := SolveRun{Server: "ortools-local", Mode: ModeSync, Routes: 1, Cost: 42, DurationMs: 3, CreatedAt: time.Now().UTC()}
    if err := p.RecordSolveRun(t.Context(), run); err != nil { t.Fatalf("RecordSolveRun: %v", err) }
    runs, err := p.ListSolveRuns(t.Context(), "ortools-local", 1)
    if err != nil || len(runs) != 1 { t.Fatalf("ListSolveRuns: %v %v", runs, err) }
    id, err := p.EnqueueWebhook(t.Context(), "job-1", "job.completed", "http://example.invalid/hook", []byte(`{"id":"evt_it_`+time.Now().Format("150405.000")+`"}`))
    if err != nil || id == "" { t.Fatalf("EnqueueWebhook: %q %v", id, err) }
}
