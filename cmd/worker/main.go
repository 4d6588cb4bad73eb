// cmd/worker/main.go
package main

import (
    "context"
    "net/http"
    "os"

    "github.com/joho/godotenv"
    "github.com/robfig/cron/v3"
    "github.com/rs/zerolog"

    "github.com/blogpush/notify-backend/internal/config"
    "github.com/blogpush/notify-backend/internal/db"
    "github.com/blogpush/notify-backend/internal/handler"
    "github.com/blogpush/notify-backend/internal/model"
    "github.com/blogpush/notify-backend/internal/provider/expo"
    "github.com/blogpush/notify-backend/internal/queue"
    "github.com/blogpush/notify-backend/internal/repository"
    "github.com/blogpush/notify-backend/internal/service"
)

func main() {
    logger := newLogger()

    if err := godotenv.Load(); err != nil {
        logger.Warn().Msg("no .env file found, relying on OS environment variables")
    }

    cfg, err := config.Load()
    if err != nil {
        logger.Fatal().Err(err).Msg("invalid configuration")
    }

    conn, err := db.Connect(cfg.DatabaseURL, logger)
    if err != nil {
        logger.Fatal().Err(err).Msg("failed to connect to database")
    }
    defer conn.Close()

    q, err := queue.Connect(cfg.AMQPURL, logger)
    if err != nil {
        logger.Fatal().Err(err).Msg("failed to connect to queue")
    }
    defer q.Close()

    tokenRepo := &repository.TokenRepository{DB: conn}
    ticketRepo := &repository.TicketRepository{DB: conn}
    provider := expo.NewClient(cfg.ExpoAccessToken)

    dispatcher := &service.Dispatcher{
        Tokens:   tokenRepo,
        Tickets:  ticketRepo,
        Provider: provider,
        Log:      logger,
        PageSize: cfg.PageSize,
        DryRun:   cfg.DryRun,
    }
    receiptChecker := &service.ReceiptChecker{
        Tokens:   tokenRepo,
        Tickets:  ticketRepo,
        Provider: provider,
        Log:      logger,
        Lookback: cfg.ReceiptLookback,
    }
    cleaner := &service.Cleaner{
        Tickets: ticketRepo,
        Log:     logger,
        Age:     cfg.CleanupAge,
    }

    // Receipt resolution and the retention sweep are time-triggered, not
    // queue-triggered.
    c := cron.New()
    if _, err := c.AddFunc(cfg.ReceiptCron, func() {
        if err := receiptChecker.Run(context.Background()); err != nil {
            logger.Error().Err(err).Msg("receipt check failed")
        }
    }); err != nil {
        logger.Fatal().Err(err).Msg("invalid RECEIPT_CRON")
    }
    if _, err := c.AddFunc(cfg.CleanupCron, func() {
        if err := cleaner.Run(context.Background()); err != nil {
            logger.Error().Err(err).Msg("ticket sweep failed")
        }
    }); err != nil {
        logger.Fatal().Err(err).Msg("invalid CLEANUP_CRON")
    }
    c.Start()
    defer c.Stop()

    // Tiny health server so the hosting platform sees the worker alive.
    go func() {
        mux := http.NewServeMux()
        mux.HandleFunc("/health", handler.Health)
        if err := http.ListenAndServe(":"+cfg.Port, mux); err != nil {
            logger.Error().Err(err).Msg("health server stopped")
        }
    }()

    if n, err := tokenRepo.Count(); err == nil {
        logger.Info().Int("tokens", n).Msg("registry size at startup")
    }

    logger.Info().Int("concurrency", cfg.Concurrency).Bool("dry_run", cfg.DryRun).
        Msg("👷 Notification worker running, waiting for jobs")

    err = q.Consume(func(job model.DispatchJob) error {
        return dispatcher.Dispatch(context.Background(), job)
    }, cfg.Concurrency)
    if err != nil {
        logger.Fatal().Err(err).Msg("consumer stopped")
    }
}

func newLogger() zerolog.Logger {
    logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
    if os.Getenv("LOG_PRETTY") == "true" {
        logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout})
    }
    return logger
}
