// cmd/server/main.go
package main

import (
    "net/http"
    "os"

    "github.com/go-chi/chi/v5"
    "github.com/joho/godotenv"
    "github.com/rs/zerolog"

    "github.com/blogpush/notify-backend/internal/config"
    "github.com/blogpush/notify-backend/internal/db"
    "github.com/blogpush/notify-backend/internal/handler"
    "github.com/blogpush/notify-backend/internal/queue"
    "github.com/blogpush/notify-backend/internal/repository"
)

func main() {
    logger := newLogger()

    // Load .env
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

    pushHandler := &handler.PushHandler{
        Tokens: tokenRepo,
        Queue:  q,
        Log:    logger,
    }

    r := chi.NewRouter()
    r.Post("/register", pushHandler.Register)
    r.Delete("/unregister/{token}", pushHandler.Unregister)
    r.Post("/webhook", pushHandler.Webhook)
    r.Post("/notify", pushHandler.Notify)
    r.Get("/health", handler.Health)

    logger.Info().Str("port", cfg.Port).Msg("🚀 Notification server running")
    if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
        logger.Fatal().Err(err).Msg("server stopped")
    }
}

func newLogger() zerolog.Logger {
    logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
    if os.Getenv("LOG_PRETTY") == "true" {
        logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout})
    }
    return logger
}
