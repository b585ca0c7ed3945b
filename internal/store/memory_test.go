package store

import (
	"context"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"routeplay/internal/model"
)

func TestComputeDedupKey(t *testing.T) {
	if got := computeDedupKey([]byte(`{"id":"evt_123","type":"x"}`)); got != "evt_123" {
		t.Fatalf("want evt_123, got %s", got)
	}
	got := computeDedupKey([]byte(`{"notId":"x"}`))
	b, err := hex.DecodeString(got)
	if err != nil || len(b) != 8 {
		t.Fatalf("hash key %q: %v", got, err)
	}
}

func TestMemorySolveRunsNewestFirst(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	for i, srv := range []string{"a", "b", "a"} {
		if err := m.RecordSolveRun(ctx, SolveRun{Server: srv, Cost: i}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	runs, _ := m.ListSolveRuns(ctx, "a", 10)
	if len(runs) != 2 || runs[0].Cost != 2 || runs[0].ID == "" {
		t.Fatalf("runs = %+v", runs)
	}
	all, _ := m.ListSolveRuns(ctx, "", 1)
	if len(all) != 1 {
		t.Fatalf("limit ignored: %d", len(all))
	}
}

func TestMemoryWebhookLifecycle(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	id, err := m.EnqueueWebhook(ctx, "job-1", "job.completed", "http://hook", []byte(`{"id":"evt_1"}`))
	if err != nil || id == "" {
		t.Fatalf("enqueue: %q %v", id, err)
	}
	if dup, _ := m.EnqueueWebhook(ctx, "job-1", "job.completed", "http://hook", []byte(`{"id":"evt_1"}`)); dup != "" {
		t.Fatal("duplicate event enqueued twice")
	}
	due, _ := m.FetchDueWebhookDeliveries(ctx, 10)
	if len(due) != 1 || due[0].JobID != "job-1" {
		t.Fatalf("due = %+v", due)
	}
	later := time.Now().Add(time.Hour)
	if err := m.MarkWebhookDelivery(ctx, id, false, &later, "boom", 500, 3); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if due, _ := m.FetchDueWebhookDeliveries(ctx, 10); len(due) != 0 {
		t.Fatal("retry scheduled in the future should not be due")
	}
	if err := m.FailWebhookDelivery(ctx, id, "gave up", 500, 3); err != nil {
		t.Fatalf("fail: %v", err)
	}
	failed, _ := m.ListWebhookDeliveries(ctx, "failed", 10)
	if len(failed) != 1 || failed[0].Attempts != 2 || failed[0].LastError != "gave up" {
		t.Fatalf("failed = %+v", failed)
	}
	if err := m.MarkWebhookDelivery(ctx, "missing", true, nil, "", 200, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown id: %v", err)
	}
}

func TestNewSolveRunSummaries(t *testing.T) {
	typed := model.RoutingResponse{Code: 0, Routes: []model.Route{{}, {}}, Unassigned: []model.Unassigned{{ID: 1}}, Summary: model.Summary{Cost: 77}}
	r := NewSolveRun("ortools-local", ModeSync, "", typed, nil, 1500*time.Millisecond)
	if r.Routes != 2 || r.Unassigned != 1 || r.Cost != 77 || r.DurationMs != 1500 {
		t.Fatalf("typed run = %+v", r)
	}
	loose := map[string]any{"code": 1, "routes": []any{}, "summary": map[string]any{"cost": 12.0}}
	r = NewSolveRun("vroom-optimize", ModeAsync, "job-9", loose, nil, 0)
	if r.Code != 1 || r.Cost != 12 || r.JobID != "job-9" {
		t.Fatalf("loose run = %+v", r)
	}
	r = NewSolveRun("x", ModeSync, "", nil, errors.New("down"), 0)
	if r.Code != -1 || r.Error != "down" {
		t.Fatalf("error run = %+v", r)
	}
}
