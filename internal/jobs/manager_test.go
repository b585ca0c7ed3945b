package jobs

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"routeplay/internal/config"
	"routeplay/internal/engine"
	"routeplay/internal/registry"
)

type fakeEngine struct {
	calls atomic.Int32
	fn    func() (any, error)
}

func (f *fakeEngine) Solve(ctx context.Context, payload map[string]any, timeout time.Duration) (any, error) {
	f.calls.Add(1)
	return f.fn()
}

func resolverFor(e engine.Engine) Resolver {
	return func(server string) (engine.Engine, error) {
		if server != "fake" {
			return nil, errors.New("Unknown server: " + server)
		}
		return e, nil
	}
}

func recordTransitions(m *Manager) func() []Job {
	var mu sync.Mutex
	var seen []Job
	m.OnTransition(func(j Job) {
		mu.Lock()
		seen = append(seen, j)
		mu.Unlock()
	})
	return func() []Job {
		mu.Lock()
		defer mu.Unlock()
		return append([]Job(nil), seen...)
	}
}

func TestExecuteLifecycleCompleted(t *testing.T) {
	fe := &fakeEngine{fn: func() (any, error) { return map[string]any{"code": 0}, nil }}
	m := NewManager(resolverFor(fe))
	seen := recordTransitions(m)

	j := m.Create("fake", map[string]any{"vehicles": []any{}}, "")
	if j.Status != StatusPending || !j.CreatedAt.Equal(j.UpdatedAt) {
		t.Fatalf("new job = %+v", j)
	}
	if err := m.Execute(context.Background(), j.ID, time.Second); err != nil {
		t.Fatalf("execute: %v", err)
	}
	got, err := m.Get(j.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusCompleted || got.Result == nil || got.Error != "" {
		t.Fatalf("completed job = %+v", got)
	}
	if v := got.View(); v.Error != nil || v.Result == nil {
		t.Fatalf("view must carry result only: %+v", v)
	}

	want := []Status{StatusPending, StatusProcessing, StatusCompleted}
	trs := seen()
	if len(trs) != len(want) {
		t.Fatalf("transitions = %d, want %d", len(trs), len(want))
	}
	for i, tr := range trs {
		if tr.Status != want[i] {
			t.Fatalf("transition %d = %s, want %s", i, tr.Status, want[i])
		}
		if !tr.CreatedAt.Equal(j.CreatedAt) {
			t.Fatal("created_at changed")
		}
		if i > 0 && tr.UpdatedAt.Before(trs[i-1].UpdatedAt) {
			t.Fatal("updated_at went backwards")
		}
	}
}

func TestExecuteUnknownServerFails(t *testing.T) {
	reg := registry.FromConfig(&config.Config{WrapperBaseURL: "http://w", OrtoolsLocalURL: config.EmbeddedURL})
	m := NewManager(func(server string) (engine.Engine, error) {
		d, err := reg.Lookup(server)
		if err != nil {
			return nil, err
		}
		return engine.For(d), nil
	})
	j := m.Create("nonexistent-server", map[string]any{}, "")
	_ = m.Execute(context.Background(), j.ID, time.Second)
	got, _ := m.Get(j.ID)
	if got.Status != StatusFailed || !strings.Contains(got.Error, "Unknown server: nonexistent-server") {
		t.Fatalf("job = %+v", got)
	}
	if got.Result != nil {
		t.Fatal("failed job must not carry a result")
	}
	if v := got.View(); v.Error == nil || *v.Error != got.Error {
		t.Fatalf("view error = %v", v.Error)
	}
}

func TestExecuteRecoversPanic(t *testing.T) {
	fe := &fakeEngine{fn: func() (any, error) { panic("solver blew up") }}
	m := NewManager(resolverFor(fe))
	j := m.Create("fake", nil, "")
	if err := m.Execute(context.Background(), j.ID, time.Second); err != nil {
		t.Fatalf("execute: %v", err)
	}
	got, _ := m.Get(j.ID)
	if got.Status != StatusFailed || !strings.Contains(got.Error, "solver blew up") {
		t.Fatalf("job = %+v", got)
	}
}

func TestExecuteIsOneShot(t *testing.T) {
	release := make(chan struct{})
	fe := &fakeEngine{fn: func() (any, error) { <-release; return "ok", nil }}
	m := NewManager(resolverFor(fe))
	seen := recordTransitions(m)
	j := m.Create("fake", nil, "")

	var wg sync.WaitGroup
	var started, rejected atomic.Int32
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			switch err := m.Execute(context.Background(), j.ID, time.Second); {
			case err == nil:
				started.Add(1)
			case errors.Is(err, ErrAlreadyStarted):
				rejected.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if started.Load() != 1 || rejected.Load() != 7 || fe.calls.Load() != 1 {
		t.Fatalf("started=%d rejected=%d calls=%d", started.Load(), rejected.Load(), fe.calls.Load())
	}
	if err := m.Execute(context.Background(), j.ID, time.Second); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("sequential re-run: %v", err)
	}
	terminal := 0
	for _, tr := range seen() {
		if tr.Status.Terminal() {
			terminal++
		}
	}
	if terminal != 1 {
		t.Fatalf("terminal transitions = %d", terminal)
	}
}

func TestGetAndExecuteUnknownID(t *testing.T) {
	m := NewManager(resolverFor(&fakeEngine{fn: func() (any, error) { return nil, nil }}))
	if _, err := m.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get: %v", err)
	}
	if err := m.Execute(context.Background(), "missing", time.Second); !errors.Is(err, ErrNotFound) {
		t.Fatalf("execute: %v", err)
	}
}

func TestRejectFailsPendingJob(t *testing.T) {
	m := NewManager(resolverFor(&fakeEngine{fn: func() (any, error) { return nil, nil }}))
	j := m.Create("fake", nil, "")
	if err := m.Reject(j.ID, ErrQueueFull); err != nil {
		t.Fatalf("reject: %v", err)
	}
	got, _ := m.Get(j.ID)
	if got.Status != StatusFailed || got.Error != ErrQueueFull.Error() {
		t.Fatalf("job = %+v", got)
	}
	if err := m.Reject(j.ID, ErrQueueFull); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("second reject: %v", err)
	}
}

func TestStats(t *testing.T) {
	m := NewManager(resolverFor(&fakeEngine{fn: func() (any, error) { return 1, nil }}))
	a := m.Create("fake", nil, "")
	m.Create("fake", nil, "")
	_ = m.Execute(context.Background(), a.ID, time.Second)
	st := m.Stats()
	if st[StatusPending] != 1 || st[StatusCompleted] != 1 {
		t.Fatalf("stats = %v", st)
	}
}

func TestTransitionHooksRunInRegistrationOrder(t *testing.T) {
	m := NewManager(resolverFor(&fakeEngine{fn: func() (any, error) { return nil, nil }}))
	var mu sync.Mutex
	var calls []string
	for _, name := range []string{"broker", "archive"} {
		name := name
		m.OnTransition(func(j Job) {
			mu.Lock()
			calls = append(calls, name+":"+string(j.Status))
			mu.Unlock()
		})
	}
	j := m.Create("fake", nil, "")
	if err := m.Reject(j.ID, errors.New("queue full")); err != nil {
		t.Fatalf("reject: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	want := []string{"broker:processing", "archive:processing", "broker:failed", "archive:failed"}
	if strings.Join(calls, ",") != strings.Join(want, ",") {
		t.Fatalf("hook calls = %v", calls)
	}
}
