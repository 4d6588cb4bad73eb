// internal/service/receipts.go
package service

import (
    "context"
    "time"

    "github.com/rs/zerolog"

    appErrors "github.com/blogpush/notify-backend/internal/errors"
    "github.com/blogpush/notify-backend/internal/provider/expo"
    "github.com/blogpush/notify-backend/internal/repository"
)

// ReceiptChecker resolves tickets from recent dispatches against Expo's
// receipt endpoint. A resolved ticket is deleted whatever its outcome, and
// a DeviceNotRegistered receipt additionally deletes the owning token
// (its remaining tickets go with it via cascade). Tickets with no receipt
// yet stay for the next run.
type ReceiptChecker struct {
    Tokens   repository.TokenRepositoryInterface
    Tickets  repository.TicketRepositoryInterface
    Provider PushProvider
    Log      zerolog.Logger

    // Lookback bounds how old a ticket may be and still get checked.
    Lookback time.Duration
}

const DefaultReceiptLookback = 24 * time.Hour

func (c *ReceiptChecker) Run(ctx context.Context) error {
    lookback := c.Lookback
    if lookback <= 0 {
        lookback = DefaultReceiptLookback
    }

    recent, err := c.Tickets.ListCreatedSince(time.Now().Add(-lookback))
    if err != nil {
        return appErrors.NewStoreUnavailable("ticket scan", err)
    }
    if len(recent) == 0 {
        c.Log.Info().Msg("no recent tickets to check")
        return nil
    }

    byReceiptID := make(map[string]int, len(recent))
    ids := make([]string, 0, len(recent))
    for i, t := range recent {
        byReceiptID[t.ExpoTicketID] = i
        ids = append(ids, t.ExpoTicketID)
    }
    c.Log.Info().Int("tickets", len(ids)).Msg("checking receipts")

    // Sets, so one token failing across several tickets deletes once.
    resolvedTickets := map[int64]struct{}{}
    deadTokenIDs := map[int64]struct{}{}

    for _, chunk := range expo.ChunkReceiptIDs(ids) {
        receipts, err := c.Provider.Receipts(ctx, chunk)
        if err != nil {
            // One bad chunk must not stop the others; its tickets simply
            // stay pending until the next run.
            c.Log.Error().Err(err).Int("size", len(chunk)).Msg("receipt chunk failed")
            continue
        }

        for receiptID, receipt := range receipts {
            idx, ok := byReceiptID[receiptID]
            if !ok {
                continue
            }
            ticket := recent[idx]

            // Resolved either way; its duplicate-send guard has done its job.
            resolvedTickets[ticket.ID] = struct{}{}

            if receipt.OK() {
                continue
            }
            c.Log.Warn().Str("receipt", receiptID).Str("message", receipt.Message).
                Msg("delivery failed")
            if receipt.PermanentFailure() {
                c.Log.Info().Str("token", ticket.Token).Msg("token unregistered, removing")
                deadTokenIDs[ticket.PushTokenID] = struct{}{}
            }
        }
    }

    if len(deadTokenIDs) > 0 {
        ids := make([]int64, 0, len(deadTokenIDs))
        for id := range deadTokenIDs {
            ids = append(ids, id)
        }
        removed, err := c.Tokens.RemoveByIDs(ids)
        if err != nil {
            return appErrors.NewStoreUnavailable("token removal", err)
        }
        c.Log.Info().Int64("removed", removed).Msg("pruned unregistered tokens")
    }

    if len(resolvedTickets) > 0 {
        ids := make([]int64, 0, len(resolvedTickets))
        for id := range resolvedTickets {
            ids = append(ids, id)
        }
        deleted, err := c.Tickets.DeleteByIDs(ids)
        if err != nil {
            return appErrors.NewStoreUnavailable("ticket cleanup", err)
        }
        c.Log.Info().Int64("deleted", deleted).Msg("cleared resolved tickets")
    }

    return nil
}
