package jobs

import (
	"context"
	"errors"
	"testing"
	"time"
)

func waitTerminal(t *testing.T, m *Manager, id string) Job {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		j, err := m.Get(id)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if j.Status.Terminal() {
			return j
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish", id)
	return Job{}
}

func TestPoolRunsSubmittedJobs(t *testing.T) {
	fe := &fakeEngine{fn: func() (any, error) { return "done", nil }}
	m := NewManager(resolverFor(fe))
	p := NewPool(m, 2, 8)
	p.Start()
	defer func() { _ = p.Shutdown(context.Background()) }()

	ids := []string{}
	for i := 0; i < 5; i++ {
		j := m.Create("fake", nil, "")
		if err := p.Submit(j.ID, time.Second); err != nil {
			t.Fatalf("submit: %v", err)
		}
		ids = append(ids, j.ID)
	}
	for _, id := range ids {
		if j := waitTerminal(t, m, id); j.Status != StatusCompleted {
			t.Fatalf("job %s = %s", id, j.Status)
		}
	}
}

func TestPoolQueueFull(t *testing.T) {
	m := NewManager(resolverFor(&fakeEngine{fn: func() (any, error) { return nil, nil }}))
	p := NewPool(m, 1, 1)
	// not started: the single slot fills up
	if err := p.Submit("a", time.Second); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if err := p.Submit("b", time.Second); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("second submit: %v", err)
	}
}

func TestPoolShutdownDrainsAndRejects(t *testing.T) {
	fe := &fakeEngine{fn: func() (any, error) { time.Sleep(10 * time.Millisecond); return "ok", nil }}
	m := NewManager(resolverFor(fe))
	p := NewPool(m, 1, 4)
	j := m.Create("fake", nil, "")
	if err := p.Submit(j.ID, time.Second); err != nil {
		t.Fatalf("submit: %v", err)
	}
	p.Start()
	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if got, _ := m.Get(j.ID); got.Status != StatusCompleted {
		t.Fatalf("queued job not drained: %s", got.Status)
	}
	if err := p.Submit("late", time.Second); !errors.Is(err, ErrPoolStopped) {
		t.Fatalf("submit after shutdown: %v", err)
	}
}
