package main // Entry point package

import (
    "context"
    "log"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/joho/godotenv"
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/restaurant-table-reservation/internal/config"
    "github.com/iliyamo/restaurant-table-reservation/internal/database"
    "github.com/iliyamo/restaurant-table-reservation/internal/engine"
    "github.com/iliyamo/restaurant-table-reservation/internal/handler"
    "github.com/iliyamo/restaurant-table-reservation/internal/hub"
    "github.com/iliyamo/restaurant-table-reservation/internal/middleware"
    "github.com/iliyamo/restaurant-table-reservation/internal/queue"
    "github.com/iliyamo/restaurant-table-reservation/internal/repository"
    "github.com/iliyamo/restaurant-table-reservation/internal/router"
    queue_publisher "github.com/iliyamo/restaurant-table-reservation/internal/service"
    "github.com/iliyamo/restaurant-table-reservation/internal/store"
)

func main() {
    // .env is optional; real deployments set the environment directly.
    _ = godotenv.Load()

    cfg := config.Load()

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatalf("database: %v", err)
    }
    defer db.Close()

    tableRepo := repository.NewTableRepo(db)
    typeRepo := repository.NewTableTypeRepo(db)
    reservationRepo := repository.NewReservationRepo(db)
    userRepo := repository.NewUserRepo(db)
    tokenRepo := repository.NewTokenRepo(db)

    pol := engine.Policy{
        ServiceWindow: cfg.ServiceWindow,
        ArrivalBuffer: cfg.ArrivalBuffer,
        GracePeriod:   cfg.GracePeriod,
        DebounceDwell: cfg.DebounceDwell,
    }

    h := hub.New(cfg.MailboxCap)
    defer h.Close()

    st := store.New(db, tableRepo, reservationRepo, pol.ServiceWindow, pol.ArrivalBuffer)
    eng := engine.New(st, h, pol)

    // Background workers share one cancellable context tied to shutdown.
    ctx, cancel := context.WithCancel(context.Background())
    defer cancel()

    go engine.NewSweeper(eng, cfg.SweepInterval).Run(ctx)
    go queue.StartTelemetryConsumer(ctx, eng)
    go relayStateChanges(ctx, h)

    e := echo.New()
    e.HideBanner = true

    // Redis backs rate limiting and the response cache; when it is
    // unreachable both degrade to pass-through.
    rdb := config.NewRedisClient()
    if rdb == nil {
        log.Println("redis unavailable; rate limiting and response cache disabled")
    }
    e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
    cacheMW := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

    authHandler := handler.NewAuthHandler(cfg, userRepo, tokenRepo)
    tableHandler := handler.NewTableHandler(tableRepo, typeRepo, eng)
    typeHandler := handler.NewTableTypeHandler(typeRepo)
    bookingHandler := handler.NewBookingHandler(eng, reservationRepo)
    visionHandler := handler.NewVisionHandler(eng)
    streamHandler := handler.NewStreamHandler(eng, h, cfg.StreamPing)

    router.RegisterRoutes(e)
    router.RegisterAuth(e, authHandler, cfg.JWTSecret)
    router.RegisterPublic(e, tableHandler, typeHandler, bookingHandler, streamHandler, cacheMW)
    router.RegisterOperator(e, tableHandler, bookingHandler, visionHandler, cfg.JWTSecret)
    router.RegisterAdmin(e, tableHandler, typeHandler, cfg.JWTSecret)

    addr := ":" + cfg.Port
    log.Printf("listening on %s (env=%s)", addr, cfg.Env)

    go func() {
        if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
            log.Fatalf("server: %v", err)
        }
    }()

    quit := make(chan os.Signal, 1)
    signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
    <-quit
    cancel() // stop sweeper, consumer and relay first

    shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer shutdownCancel()
    if err := e.Shutdown(shutdownCtx); err != nil {
        log.Printf("shutdown: %v", err)
    }
}

// relayStateChanges forwards every broadcast state change to the message
// broker so external consumers see the same stream the dashboards do.
// Publish failures are logged and dropped; the in-process stream is the
// source of truth.
func relayStateChanges(ctx context.Context, h *hub.Hub) {
    sub := h.Subscribe()
    defer sub.Close()
    for {
        select {
        case <-ctx.Done():
            return
        case ev, ok := <-sub.Events():
            if !ok {
                return
            }
            _ = queue_publisher.PublishStateChanged(ctx, ev)
        }
    }
}
