package main

import (
    "context"
    "errors"
    "log"
    "net/http"
    "os/signal"
    "syscall"
    "time"

    "github.com/joho/godotenv"

    "routeplay/internal/api"
    "routeplay/internal/config"
    "routeplay/internal/metrics"
)

func main() {
    if err := godotenv.Load(); err != nil {
        log.Println("No .env file found (using environment variables)")
    }
    cfg, err := config.Load()
    if err != nil {
        log.Fatalf("failed to load config: %v", err)
    }
    metrics.RegisterDefault()

    srvDeps, err := api.NewServer(cfg)
    if err != nil {
        log.Fatalf("failed to init server: %v", err)
    }

    srv := &http.Server{
        Addr:              cfg.Addr(),
        Handler:           srvDeps.Middleware(srvDeps.Routes()),
        ReadHeaderTimeout: 5 * time.Second,
    }

    srvDeps.Pool.Start()
    worker := srvDeps.NewWebhookWorker()
    worker.Start()

    ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
    defer stop()

    go func() {
        log.Printf("API listening on %s (servers: %v)", cfg.Addr(), srvDeps.Registry.IDs())
        if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
            log.Fatalf("server error: %v", err)
        }
    }()

    <-ctx.Done()
    log.Println("shutting down")

    shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
    defer cancel()
    if err := srv.Shutdown(shutdownCtx); err != nil {
        log.Printf("http shutdown: %v", err)
    }
    if err := srvDeps.Pool.Shutdown(shutdownCtx); err != nil {
        log.Printf("job pool shutdown: %v", err)
    }
    close(worker.Stop)
    if err := srvDeps.Close(); err != nil {
        log.Printf("store close: %v", err)
    }
}
