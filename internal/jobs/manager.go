package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"routeplay/internal/engine"
	"routeplay/internal/metrics"
)

var (
	ErrNotFound       = errors.New("job not found")
	ErrAlreadyStarted = errors.New("job already started")
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var allowedTransitions = map[Status]map[Status]bool{
	StatusPending:    {StatusProcessing: true},
	StatusProcessing: {StatusCompleted: true, StatusFailed: true},
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool { return s == StatusCompleted || s == StatusFailed }

// Job tracks one asynchronous solve.
type Job struct {
	ID          string
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Server      string
	RequestData map[string]any
	Result      any
	Error       string
	CallbackURL string
}

// View is the public shape of a job. Request data is never exposed.
type View struct {
	ID        string    `json:"id"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Server    string    `json:"server"`
	Result    any       `json:"result"`
	Error     *string   `json:"error"`
}

// Handle is returned when a job is accepted.
type Handle struct {
	ID        string    `json:"id"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (j Job) View() View {
	v := View{ID: j.ID, Status: j.Status, CreatedAt: j.CreatedAt, UpdatedAt: j.UpdatedAt, Server: j.Server, Result: j.Result}
	if j.Status == StatusFailed {
		msg := j.Error
		v.Error = &msg
	}
	return v
}

func (j Job) Handle() Handle {
	return Handle{ID: j.ID, Status: j.Status, CreatedAt: j.CreatedAt, UpdatedAt: j.UpdatedAt}
}

// Resolver maps a backend id to the engine that serves it.
type Resolver func(server string) (engine.Engine, error)

// Manager owns the in-memory job table. Jobs are kept for the life of the process.
type Manager struct {
	mu      sync.Mutex
	jobs    map[string]*Job
	resolve Resolver
	now     func() time.Time
	hooks   []func(Job)
}

func NewManager(resolve Resolver) *Manager {
	return &Manager{jobs: map[string]*Job{}, resolve: resolve, now: func() time.Time { return time.Now().UTC() }}
}

// OnTransition registers fn to be called with a snapshot after every state change,
// including creation. Hooks run on the goroutine that made the change.
func (m *Manager) OnTransition(fn func(Job)) {
	m.mu.Lock()
	m.hooks = append(m.hooks, fn)
	m.mu.Unlock()
}

// Create records a pending job. It does not run it.
func (m *Manager) Create(server string, raw map[string]any, callbackURL string) Job {
	now := m.now()
	j := &Job{
		ID:          uuid.New().String(),
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
		Server:      server,
		RequestData: raw,
		CallbackURL: callbackURL,
	}
	m.mu.Lock()
	m.jobs[j.ID] = j
	snap := *j
	m.mu.Unlock()
	metrics.JobsInFlight.Inc()
	m.notify(snap)
	return snap
}

func (m *Manager) Get(id string) (Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return Job{}, ErrNotFound
	}
	return *j, nil
}

// Execute runs a pending job to a terminal state. Only the first call for an id does
// anything; later calls get ErrAlreadyStarted. Failures, panics included, end up on
// the job record rather than in the returned error.
func (m *Manager) Execute(ctx context.Context, id string, timeout time.Duration) error {
	snap, err := m.claim(id)
	if err != nil {
		return err
	}
	result, runErr := m.run(ctx, snap.Server, snap.RequestData, timeout)
	m.finish(id, result, runErr)
	return nil
}

// Reject fails a pending job without running it, e.g. when it could not be scheduled.
func (m *Manager) Reject(id string, reason error) error {
	if _, err := m.claim(id); err != nil {
		return err
	}
	m.finish(id, nil, reason)
	return nil
}

// Stats counts jobs by status.
func (m *Manager) Stats() map[Status]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[Status]int{StatusPending: 0, StatusProcessing: 0, StatusCompleted: 0, StatusFailed: 0}
	for _, j := range m.jobs {
		out[j.Status]++
	}
	return out
}

func (m *Manager) claim(id string) (Job, error) {
	m.mu.Lock()
	j, ok := m.jobs[id]
	if !ok {
		m.mu.Unlock()
		return Job{}, ErrNotFound
	}
	if j.Status != StatusPending {
		m.mu.Unlock()
		return Job{}, ErrAlreadyStarted
	}
	m.transitionLocked(j, StatusProcessing)
	snap := *j
	m.mu.Unlock()
	m.notify(snap)
	return snap, nil
}

func (m *Manager) run(ctx context.Context, server string, raw map[string]any, timeout time.Duration) (res any, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("solver panic: %v", r)
		}
	}()
	e, err := m.resolve(server)
	if err != nil {
		return nil, err
	}
	return e.Solve(ctx, raw, timeout)
}

func (m *Manager) finish(id string, result any, runErr error) {
	m.mu.Lock()
	j := m.jobs[id]
	if runErr != nil {
		j.Error = runErr.Error()
		m.transitionLocked(j, StatusFailed)
	} else {
		j.Result = result
		m.transitionLocked(j, StatusCompleted)
	}
	snap := *j
	m.mu.Unlock()
	metrics.JobsInFlight.Dec()
	m.notify(snap)
}

// transitionLocked moves j to next. Callers hold m.mu and have checked the transition.
func (m *Manager) transitionLocked(j *Job, next Status) {
	if !allowedTransitions[j.Status][next] {
		panic(fmt.Sprintf("jobs: illegal transition %s -> %s", j.Status, next))
	}
	now := m.now()
	if now.Before(j.UpdatedAt) {
		now = j.UpdatedAt
	}
	j.Status = next
	j.UpdatedAt = now
	metrics.JobTransitions.WithLabelValues(j.Server, string(next)).Inc()
}

func (m *Manager) notify(j Job) {
	m.mu.Lock()
	hooks := append([]func(Job){}, m.hooks...)
	m.mu.Unlock()
	for _, fn := range hooks {
		fn(j)
	}
}
