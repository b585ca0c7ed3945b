package api

import (
    "bufio"
    "fmt"
    "net"
    "net/http"
    "strconv"
    "strings"
    "sync"
    "time"

    "golang.org/x/time/rate"

    "routeplay/internal/logging"
    "routeplay/internal/metrics"
)

// Middleware wraps the mux: recovery, CORS, metrics, access log, and the /solve/ rate limit.
func (s *Server) Middleware(next http.Handler) http.Handler {
    return recoverMiddleware(corsMiddleware(metricsMiddleware(logMiddleware(s.rateLimit(next)))))
}

type statusRecorder struct {
    http.ResponseWriter
    status int
}

func (r *statusRecorder) WriteHeader(code int) {
    r.status = code
    r.ResponseWriter.WriteHeader(code)
}

// Flush keeps SSE working through the wrapper.
func (r *statusRecorder) Flush() {
    if f, ok := r.ResponseWriter.(http.Flusher); ok {
        f.Flush()
    }
}

// Hijack is needed by the websocket upgrader.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
    h, ok := r.ResponseWriter.(http.Hijacker)
    if !ok {
        return nil, nil, fmt.Errorf("response writer does not support hijacking")
    }
    r.status = http.StatusSwitchingProtocols
    return h.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

func recorder(w http.ResponseWriter) *statusRecorder {
    if rec, ok := w.(*statusRecorder); ok {
        return rec
    }
    return &statusRecorder{ResponseWriter: w, status: http.StatusOK}
}

func logMiddleware(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        start := time.Now()
        rec := recorder(w)
        next.ServeHTTP(rec, r)
        logging.Info("http", "request", "remote", r.RemoteAddr, "method", r.Method, "path", r.URL.Path, "status", rec.status, "dur", time.Since(start).Round(time.Microsecond))
    })
}

func metricsMiddleware(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        start := time.Now()
        rec := recorder(w)
        next.ServeHTTP(rec, r)
        path := routeLabel(r.URL.Path)
        status := strconv.Itoa(rec.status)
        metrics.HTTPRequests.WithLabelValues(r.Method, path, status).Inc()
        metrics.HTTPDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
    })
}

// routeLabel collapses ids out of paths to keep label cardinality bounded.
func routeLabel(p string) string {
    switch {
    case strings.HasPrefix(p, "/solve/"):
        return "/solve/{server}"
    case strings.HasPrefix(p, "/job/"):
        switch {
        case strings.HasSuffix(p, "/events"):
            return "/job/{id}/events"
        case strings.HasSuffix(p, "/geojson"):
            return "/job/{id}/geojson"
        }
        return "/job/{id}"
    case strings.HasPrefix(p, "/static/"):
        return "/static/*"
    }
    return p
}

func corsMiddleware(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        h := w.Header()
        h.Set("Access-Control-Allow-Origin", "*")
        h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
        h.Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key")
        h.Set("X-Content-Type-Options", "nosniff")
        if r.Method == http.MethodOptions {
            w.WriteHeader(http.StatusNoContent)
            return
        }
        next.ServeHTTP(w, r)
    })
}

func recoverMiddleware(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        defer func() {
            if rec := recover(); rec != nil {
                if rec == http.ErrAbortHandler {
                    panic(rec)
                }
                logging.Error("http", "panic", "method", r.Method, "path", r.URL.Path, "panic", rec)
                writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "", r.URL.Path)
            }
        }()
        next.ServeHTTP(w, r)
    })
}

// rateLimit applies a per-client token bucket to /solve/ only.
func (s *Server) rateLimit(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        if s.limiter != nil && strings.HasPrefix(r.URL.Path, "/solve/") && !s.limiter.allow(clientIP(r, s.Config.TrustProxy)) {
            w.Header().Set("Retry-After", "1")
            writeProblem(w, http.StatusTooManyRequests, "Too Many Requests", "solve rate limit exceeded", r.URL.Path)
            return
        }
        next.ServeHTTP(w, r)
    })
}

type ipLimiter struct {
    mu      sync.Mutex
    rps     rate.Limit
    burst   int
    clients map[string]*clientLimiter
    lastGC  time.Time
}

type clientLimiter struct {
    lim  *rate.Limiter
    seen time.Time
}

// newIPLimiter returns nil (no limiting) when rps is not positive.
func newIPLimiter(rps float64, burst int) *ipLimiter {
    if rps <= 0 {
        return nil
    }
    if burst <= 0 {
        burst = 1
    }
    return &ipLimiter{rps: rate.Limit(rps), burst: burst, clients: map[string]*clientLimiter{}, lastGC: time.Now()}
}

func (l *ipLimiter) allow(ip string) bool {
    l.mu.Lock()
    defer l.mu.Unlock()
    now := time.Now()
    if now.Sub(l.lastGC) > time.Minute {
        for k, c := range l.clients {
            if now.Sub(c.seen) > 10*time.Minute {
                delete(l.clients, k)
            }
        }
        l.lastGC = now
    }
    c := l.clients[ip]
    if c == nil {
        c = &clientLimiter{lim: rate.NewLimiter(l.rps, l.burst)}
        l.clients[ip] = c
    }
    c.seen = now
    return c.lim.AllowN(now, 1)
}

// clientIP is the peer address, or the first X-Forwarded-For hop when the proxy is trusted.
func clientIP(r *http.Request, trustProxy bool) string {
    if xff := r.Header.Get("X-Forwarded-For"); trustProxy && xff != "" {
        return strings.TrimSpace(strings.Split(xff, ",")[0])
    }
    host, _, err := net.SplitHostPort(r.RemoteAddr)
    if err != nil {
        return r.RemoteAddr
    }
    return host
}
