package webhooks

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"routeplay/internal/store"
)

type recordStore struct {
	*store.Memory
	mu    sync.Mutex
	marks []MarkRec
	fails []FailRec
}
type MarkRec struct {
	ID            string
	Success       bool
	Code, Latency int
	LastErr       string
}
type FailRec struct {
	ID            string
	Code, Latency int
	LastErr       string
}

func (r *recordStore) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
	r.mu.Lock()
	r.marks = append(r.marks, MarkRec{ID: id, Success: success, Code: responseCode, Latency: latencyMs, LastErr: lastError})
	r.mu.Unlock()
	return r.Memory.MarkWebhookDelivery(ctx, id, success, nextAttemptAt, lastError, responseCode, latencyMs)
}
func (r *recordStore) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
	r.mu.Lock()
	r.fails = append(r.fails, FailRec{ID: id, Code: responseCode, Latency: latencyMs, LastErr: lastError})
	r.mu.Unlock()
	return r.Memory.FailWebhookDelivery(ctx, id, lastError, responseCode, latencyMs)
}

func TestWorkerProcessOnce_SuccessAndSignature(t *testing.T) {
	var gotSig, gotType string
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get(SignatureHeader)
		gotType = r.Header.Get("X-Event-Type")
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(200)
	}))
	defer srv.Close()

	rs := &recordStore{Memory: store.NewMemory()}
	w := &Worker{Store: rs, HTTP: srv.Client(), Stop: make(chan struct{}), MaxAttempts: 3, Secret: "secret"}
	NewPublisher(rs).Emit(context.Background(), "job-1", EventJobCompleted, srv.URL, map[string]any{"status": "completed"})

	w.processOnce()

	if gotType != EventJobCompleted {
		t.Fatalf("event type header = %q", gotType)
	}
	if !VerifyCallback("secret", body, gotSig, time.Now(), time.Minute) {
		t.Fatalf("signature %q does not verify", gotSig)
	}
	if len(rs.marks) == 0 || !rs.marks[0].Success {
		t.Fatalf("expected mark success, got: %+v", rs.marks)
	}
}

func TestWorkerProcessOnce_Fail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(500) }))
	defer srv.Close()
	rs := &recordStore{Memory: store.NewMemory()}
	w := &Worker{Store: rs, HTTP: srv.Client(), Stop: make(chan struct{}), MaxAttempts: 1}
	_, _ = rs.Memory.EnqueueWebhook(context.Background(), "job-2", EventJobFailed, srv.URL, []byte(`{}`))
	w.processOnce()
	if len(rs.fails) == 0 || rs.fails[0].Code != 500 {
		t.Fatalf("expected fail recorded, got %+v", rs.fails)
	}
}

func TestWorkerRetriesBeforeMaxAttempts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(503) }))
	defer srv.Close()
	rs := &recordStore{Memory: store.NewMemory()}
	w := &Worker{Store: rs, HTTP: srv.Client(), Stop: make(chan struct{}), MaxAttempts: 3}
	_, _ = rs.Memory.EnqueueWebhook(context.Background(), "job-3", EventJobFailed, srv.URL, []byte(`{"id":"e3"}`))
	w.processOnce()
	if len(rs.marks) != 1 || rs.marks[0].Success || rs.marks[0].LastErr != "status 503" {
		t.Fatalf("expected one retry mark, got %+v", rs.marks)
	}
	if len(rs.fails) != 0 {
		t.Fatal("must not dead-letter before max attempts")
	}
}

func TestEmitSkipsEmptyURL(t *testing.T) {
	rs := store.NewMemory()
	NewPublisher(rs).Emit(context.Background(), "job-4", EventJobCompleted, "", nil)
	if due, _ := rs.FetchDueWebhookDeliveries(context.Background(), 10); len(due) != 0 {
		t.Fatalf("no callback url should enqueue nothing, got %d", len(due))
	}
}

func TestNextBackoff(t *testing.T) {
	if nextBackoff(0) != time.Second || nextBackoff(3) != 8*time.Second {
		t.Fatal("backoff doubles from one second")
	}
	if nextBackoff(50) != time.Hour {
		t.Fatalf("backoff cap = %v", nextBackoff(50))
	}
}

func TestSignAndVerifyCallback(t *testing.T) {
	at := time.Unix(1700000000, 0)
	sig := SignCallback("k", at, []byte("payload"))
	if !strings.HasPrefix(sig, "t=1700000000,v1=") {
		t.Fatalf("header = %q", sig)
	}
	if !VerifyCallback("k", []byte("payload"), sig, at.Add(30*time.Second), time.Minute) {
		t.Fatal("own signature must verify")
	}
	if VerifyCallback("other", []byte("payload"), sig, at, 0) {
		t.Fatal("wrong secret must not verify")
	}
	if VerifyCallback("k", []byte("tampered"), sig, at, 0) {
		t.Fatal("tampered body must not verify")
	}
	if VerifyCallback("k", []byte("payload"), sig, at.Add(10*time.Minute), time.Minute) {
		t.Fatal("stale signature must not verify")
	}
	if VerifyCallback("k", []byte("payload"), "t=1700000000,v1=zz", at, 0) || VerifyCallback("k", []byte("payload"), "garbage", at, 0) {
		t.Fatal("malformed header must not verify")
	}
}
