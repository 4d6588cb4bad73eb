// internal/service/dispatcher.go
package service

import (
    "context"
    "sync"
    "time"

    "github.com/google/uuid"
    "github.com/rs/zerolog"

    appErrors "github.com/blogpush/notify-backend/internal/errors"
    "github.com/blogpush/notify-backend/internal/model"
    "github.com/blogpush/notify-backend/internal/provider/expo"
    "github.com/blogpush/notify-backend/internal/repository"
)

// PushProvider is what the engine needs from Expo. Send returns one ticket
// per message, positionally aligned with the batch; Receipts omits ids the
// provider has not resolved yet.
type PushProvider interface {
    Send(ctx context.Context, batch []expo.Message) ([]expo.Ticket, error)
    Receipts(ctx context.Context, ids []string) (map[string]expo.Receipt, error)
}

const DefaultPageSize = 1000

// Dispatcher fans one DispatchJob out to every registered token, recording
// accepted sends as tickets and pruning tokens the provider rejects as
// permanently dead.
type Dispatcher struct {
    Tokens   repository.TokenRepositoryInterface
    Tickets  repository.TicketRepositoryInterface
    Provider PushProvider
    Log      zerolog.Logger

    // PageSize caps how many tokens are held in memory per registry page;
    // it is independent of the provider's own chunk limit.
    PageSize int

    // DryRun skips the provider entirely and fabricates accepted tickets
    // with a fixed latency, keeping the ticket-write path hot for load
    // tests. Must be enabled explicitly.
    DryRun bool
}

// Dispatch runs one job to completion. Chunk-level provider failures are
// logged and skipped (partial success); store failures abort the attempt so
// the queue redelivers.
func (s *Dispatcher) Dispatch(ctx context.Context, job model.DispatchJob) error {
    // Idempotency gate: a post that already produced tickets was already
    // fanned out, most likely a queue redelivery after a crash.
    if job.PostID != "" {
        exists, err := s.Tickets.ExistsForPost(job.PostID)
        if err != nil {
            return appErrors.NewStoreUnavailable("idempotency check", err)
        }
        if exists {
            s.Log.Info().Str("post_id", job.PostID).Msg("post already processed, skipping")
            return nil
        }
    }

    pageSize := s.PageSize
    if pageSize <= 0 {
        pageSize = DefaultPageSize
    }

    var cursor int64
    totalProcessed := 0

    for {
        page, err := s.Tokens.ListBatch(cursor, pageSize)
        if err != nil {
            return appErrors.NewStoreUnavailable("token scan", err)
        }
        if len(page) == 0 {
            break
        }

        s.Log.Debug().Int64("cursor", cursor).Int("size", len(page)).Msg("processing token page")

        messages, idByToken := s.buildMessages(page, job)

        var tickets []model.NotificationTicket
        var deadTokens []string
        if s.DryRun {
            tickets = s.fakeSend(messages, idByToken, job)
        } else {
            tickets, deadTokens = s.sendPage(ctx, messages, idByToken, job)
        }

        if err := s.Tickets.BulkInsert(tickets); err != nil {
            return appErrors.NewStoreUnavailable("ticket insert", err)
        }
        if len(deadTokens) > 0 {
            removed, err := s.Tokens.RemoveByTokens(deadTokens)
            if err != nil {
                return appErrors.NewStoreUnavailable("token removal", err)
            }
            s.Log.Info().Int64("removed", removed).Msg("pruned unregistered tokens")
        }

        totalProcessed += len(page)
        cursor = page[len(page)-1].ID
    }

    s.Log.Info().Str("title", job.Title).Int("total", totalProcessed).Msg("job finished")
    return nil
}

// buildMessages drops tokens that fail the Expo grammar and builds one push
// message per remaining token.
func (s *Dispatcher) buildMessages(page []model.PushToken, job model.DispatchJob) ([]expo.Message, map[string]int64) {
    idByToken := make(map[string]int64, len(page))
    messages := make([]expo.Message, 0, len(page))

    for _, t := range page {
        if !expo.IsPushToken(t.Token) {
            continue
        }
        idByToken[t.Token] = t.ID

        data := map[string]string{}
        if job.PostID != "" {
            data["postId"] = job.PostID
        }
        if job.Route != "" {
            data["route"] = job.Route
        }
        for k, v := range job.Action {
            data[k] = v
        }

        messages = append(messages, expo.Message{
            To:        t.Token,
            Title:     job.Title,
            Body:      job.Excerpt,
            Data:      data,
            Sound:     "default",
            Priority:  "high",
            ChannelID: "default",
        })
    }
    return messages, idByToken
}

// sendPage fires all provider chunks of one page concurrently and waits for
// every one before correlating outcomes. Tickets align positionally with
// the chunk that produced them.
func (s *Dispatcher) sendPage(ctx context.Context, messages []expo.Message, idByToken map[string]int64, job model.DispatchJob) ([]model.NotificationTicket, []string) {
    chunks := expo.ChunkMessages(messages)
    results := make([][]expo.Ticket, len(chunks))

    var wg sync.WaitGroup
    for i, chunk := range chunks {
        wg.Add(1)
        go func(i int, chunk []expo.Message) {
            defer wg.Done()
            ticketChunk, err := s.Provider.Send(ctx, chunk)
            if err != nil {
                s.Log.Error().Err(err).Int("chunk", i).Int("size", len(chunk)).
                    Msg("chunk send failed")
                return
            }
            results[i] = ticketChunk
        }(i, chunk)
    }
    wg.Wait()

    tickets := []model.NotificationTicket{}
    deadTokens := []string{}
    for i, chunk := range chunks {
        ticketChunk := results[i]
        if ticketChunk == nil {
            continue // failed chunk, queue-level retry is not our job
        }
        if len(ticketChunk) != len(chunk) {
            s.Log.Error().Int("chunk", i).Int("messages", len(chunk)).Int("tickets", len(ticketChunk)).
                Msg("ticket count mismatch, dropping chunk")
            continue
        }
        for j, ticket := range ticketChunk {
            token := chunk[j].To
            switch {
            case ticket.OK():
                tickets = append(tickets, model.NotificationTicket{
                    ExpoTicketID: ticket.ID,
                    PushTokenID:  idByToken[token],
                    PostID:       job.PostID,
                    Route:        job.Route,
                })
            case ticket.PermanentFailure():
                deadTokens = append(deadTokens, token)
            default:
                s.Log.Warn().Str("status", ticket.Status).Str("message", ticket.Message).
                    Msg("transient ticket error, dropped")
            }
        }
    }
    return tickets, deadTokens
}

// fakeSend is the dry-run stand-in for sendPage: every message is accepted
// after a flat delay, so the downstream ticket writes still happen.
func (s *Dispatcher) fakeSend(messages []expo.Message, idByToken map[string]int64, job model.DispatchJob) []model.NotificationTicket {
    s.Log.Warn().Int("size", len(messages)).Msg("⚠️ dry run, simulating batch")
    time.Sleep(200 * time.Millisecond)

    tickets := make([]model.NotificationTicket, 0, len(messages))
    for _, m := range messages {
        tickets = append(tickets, model.NotificationTicket{
            ExpoTicketID: "fake-" + uuid.NewString(),
            PushTokenID:  idByToken[m.To],
            PostID:       job.PostID,
            Route:        job.Route,
        })
    }
    return tickets
}
