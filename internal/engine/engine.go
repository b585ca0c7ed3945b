package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"routeplay/internal/logging"
	"routeplay/internal/metrics"
	"routeplay/internal/model"
	"routeplay/internal/registry"
)

// Engine solves a routing payload. Implementations hold no per-call state, so one value
// may serve concurrent requests.
type Engine interface {
	Solve(ctx context.Context, payload map[string]any, timeout time.Duration) (any, error)
}

// EngineError is a non-2xx reply from a remote backend.
type EngineError struct {
	Backend string
	Status  int
	Body    string
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("Engine Error (%d): %s", e.Status, e.Body)
}

// TransportError is a failure to reach a backend or to read its reply.
type TransportError struct {
	Backend string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("backend %s: %v", e.Backend, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// For returns the engine serving a descriptor, instrumented with metrics and logging.
func For(desc registry.Descriptor) Engine {
	var e Engine
	if desc.IsEmbedded() {
		e = Embedded{}
	} else {
		e = Remote{Backend: desc.ID, URL: desc.URL, APIKey: desc.APIKey}
	}
	return Instrument(desc.ID, e)
}

// Instrument wraps e so every call is counted, timed and logged under server.
func Instrument(server string, e Engine) Engine {
	return instrumented{server: server, next: e}
}

type instrumented struct {
	server string
	next   Engine
}

func (i instrumented) Solve(ctx context.Context, payload map[string]any, timeout time.Duration) (res any, err error) {
	start := time.Now()
	defer func() {
		outcome := Outcome(err)
		dur := time.Since(start)
		metrics.EngineCalls.WithLabelValues(i.server, outcome).Inc()
		metrics.EngineLatency.WithLabelValues(i.server, outcome).Observe(dur.Seconds())
		if err != nil {
			logging.Error("engine", "solve failed", "server", i.server, "outcome", outcome, "dur_ms", dur.Milliseconds(), "err", err)
			return
		}
		logging.Info("engine", "solve", "server", i.server, "dur_ms", dur.Milliseconds())
	}()
	return i.next.Solve(ctx, payload, timeout)
}

// Outcome classifies an engine error for metrics labels.
func Outcome(err error) string {
	var (
		ve *model.ValidationError
		ee *EngineError
		te *TransportError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &ve):
		return "invalid"
	case errors.As(err, &ee):
		return "engine_error"
	case errors.As(err, &te):
		return "transport_error"
	default:
		return "error"
	}
}
