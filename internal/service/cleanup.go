// internal/service/cleanup.go
package service

import (
    "context"
    "time"

    "github.com/rs/zerolog"

    appErrors "github.com/blogpush/notify-backend/internal/errors"
    "github.com/blogpush/notify-backend/internal/repository"
)

// Cleaner is the retention sweep: one unconditional bulk delete of tickets
// past the age threshold. Age must stay larger than the receipt checker's
// lookback so the sweep never races it; config.Load enforces that.
type Cleaner struct {
    Tickets repository.TicketRepositoryInterface
    Log     zerolog.Logger
    Age     time.Duration
}

const DefaultCleanupAge = 48 * time.Hour

func (c *Cleaner) Run(ctx context.Context) error {
    age := c.Age
    if age <= 0 {
        age = DefaultCleanupAge
    }

    deleted, err := c.Tickets.DeleteOlderThan(time.Now().Add(-age))
    if err != nil {
        return appErrors.NewStoreUnavailable("ticket sweep", err)
    }

    c.Log.Info().Int64("deleted", deleted).Msg("old tickets swept")
    return nil
}
