package api

import (
    "context"
    "strings"
    "time"

    "routeplay/internal/config"
    "routeplay/internal/engine"
    "routeplay/internal/jobs"
    "routeplay/internal/logging"
    "routeplay/internal/registry"
    "routeplay/internal/store"
    "routeplay/internal/webhooks"
)

type Server struct {
    Config   *config.Config
    Store    store.Store
    Pub      *webhooks.Publisher
    Broker   EventBroker
    Registry *registry.Registry
    Jobs     *jobs.Manager
    Pool     *jobs.Pool
    Matcher  engine.MapMatcher
    limiter  *ipLimiter
}

// NewServer wires the gateway. Without DATABASE_URL the archive and callback queue are
// in memory; without REDIS_URL job events stay in process.
func NewServer(cfg *config.Config) (*Server, error) {
    var s store.Store
    if strings.TrimSpace(cfg.DatabaseURL) == "" {
        s = store.NewMemory()
    } else {
        sp, err := store.NewPostgres(cfg.DatabaseURL)
        if err != nil {
            return nil, err
        }
        ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
        defer cancel()
        if err := sp.Migrate(ctx); err != nil {
            _ = sp.Close()
            return nil, err
        }
        s = sp
    }
    var broker EventBroker
    if cfg.RedisURL != "" {
        if rb, err := NewRedisBroker(cfg.RedisURL); err == nil {
            broker = rb
        } else {
            logging.Error("api", "redis broker unavailable, using in-memory", "err", err)
            broker = NewBroker()
        }
    } else {
        broker = NewBroker()
    }
    return newServer(cfg, s, broker), nil
}

func newServer(cfg *config.Config, s store.Store, broker EventBroker) *Server {
    srv := &Server{
        Config:   cfg,
        Store:    s,
        Pub:      webhooks.NewPublisher(s),
        Broker:   broker,
        Registry: registry.FromConfig(cfg),
        Matcher:  engine.MapMatcher{URL: cfg.MapMatchingURL, Timeout: engine.MapMatchingTimeout},
        limiter:  newIPLimiter(cfg.RateRPS, cfg.RateBurst),
    }
    srv.Jobs = jobs.NewManager(srv.resolve)
    srv.Jobs.OnTransition(srv.publishTransition)
    srv.Jobs.OnTransition(srv.archiveTransition)
    srv.Pool = jobs.NewPool(srv.Jobs, cfg.JobWorkers, cfg.JobQueue)
    return srv
}

func (s *Server) resolve(server string) (engine.Engine, error) {
    d, err := s.Registry.Lookup(server)
    if err != nil {
        return nil, err
    }
    return engine.For(d), nil
}

// publishTransition fans every job state change out to SSE and websocket subscribers.
func (s *Server) publishTransition(j jobs.Job) {
    s.Broker.Publish(j.ID, JobEvent{Type: "job." + string(j.Status), Data: jobEventData(j)})
}

// archiveTransition records terminal async jobs and queues their callbacks.
func (s *Server) archiveTransition(j jobs.Job) {
    if !j.Status.Terminal() {
        return
    }
    ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()
    var runErr error
    if j.Status == jobs.StatusFailed {
        runErr = jobError(j.Error)
    }
    run := store.NewSolveRun(j.Server, store.ModeAsync, j.ID, j.Result, runErr, j.UpdatedAt.Sub(j.CreatedAt))
    if err := s.Store.RecordSolveRun(ctx, run); err != nil {
        logging.Error("api", "record solve run", "job", j.ID, "err", err)
    }
    if j.CallbackURL == "" {
        return
    }
    evt := webhooks.EventJobCompleted
    if j.Status == jobs.StatusFailed {
        evt = webhooks.EventJobFailed
    }
    s.Pub.Emit(ctx, j.ID, evt, j.CallbackURL, j.View())
}

// NewWebhookWorker creates a background worker for callback deliveries.
func (s *Server) NewWebhookWorker() *webhooks.Worker {
    return webhooks.NewWorker(s.Store, s.Config.WebhookSecret, s.Config.WebhookMaxAttempts)
}

// Close releases the broker and the store. The pool is shut down separately.
func (s *Server) Close() error {
    if c, ok := s.Broker.(interface{ Close() error }); ok {
        _ = c.Close()
    }
    return s.Store.Close()
}

type jobError string

func (e jobError) Error() string { return string(e) }

func jobEventData(j jobs.Job) map[string]any {
    data := map[string]any{
        "id":         j.ID,
        "status":     string(j.Status),
        "server":     j.Server,
        "updated_at": j.UpdatedAt.Format(time.RFC3339Nano),
    }
    if j.Status == jobs.StatusFailed {
        data["error"] = j.Error
    }
    return data
}
