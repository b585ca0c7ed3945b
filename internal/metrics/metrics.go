package metrics

import (
    "sync"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/collectors"
)

var (
    // Registry is the dedicated Prometheus registry for the gateway
    Registry = prometheus.NewRegistry()
    // HTTPRequests counts requests by method, path, and status
    HTTPRequests = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
        []string{"method", "path", "status"},
    )
    // HTTPDuration records request durations in seconds
    HTTPDuration = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
        []string{"method", "path", "status"},
    )

    // JobTransitions counts async job state changes by backend and new status
    JobTransitions = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "solve_job_transitions_total", Help: "Async solve job transitions by server and status."},
        []string{"server", "status"},
    )
    // JobsInFlight is the number of async jobs currently pending or processing
    JobsInFlight = prometheus.NewGauge(
        prometheus.GaugeOpts{Name: "solve_jobs_in_flight", Help: "Async solve jobs not yet terminal."},
    )

    // EngineCalls counts engine invocations by backend and outcome
    EngineCalls = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "engine_calls_total", Help: "Engine invocations by server and outcome."},
        []string{"server", "outcome"},
    )
    // EngineLatency tracks engine call latency in seconds
    EngineLatency = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{Name: "engine_call_duration_seconds", Help: "Engine call duration in seconds.", Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 300}},
        []string{"server", "outcome"},
    )

    // WebhookDeliveries counts callback delivery outcomes by event type and status
    WebhookDeliveries = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "webhook_deliveries_total", Help: "Webhook deliveries by event type and status."},
        []string{"event_type", "status"},
    )
    // WebhookLatency tracks callback delivery latencies in milliseconds
    WebhookLatency = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{Name: "webhook_delivery_latency_ms", Help: "Webhook delivery latency in ms.", Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000}},
        []string{"event_type", "status"},
    )
)

// RegisterDefault registers collectors to the gateway registry.
func RegisterDefault() {
    regOnce.Do(func(){
        Registry.MustRegister(HTTPRequests)
        Registry.MustRegister(HTTPDuration)
        Registry.MustRegister(JobTransitions)
        Registry.MustRegister(JobsInFlight)
        Registry.MustRegister(EngineCalls)
        Registry.MustRegister(EngineLatency)
        Registry.MustRegister(WebhookDeliveries)
        Registry.MustRegister(WebhookLatency)
        // Go/process collectors on our registry
        Registry.MustRegister(collectors.NewGoCollector())
        Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
    })
}

var regOnce sync.Once
