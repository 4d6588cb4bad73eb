// internal/handler/push_handler.go
package handler

import (
    "encoding/json"
    "errors"
    "net/http"

    "github.com/go-chi/chi/v5"
    "github.com/rs/zerolog"

    appErrors "github.com/blogpush/notify-backend/internal/errors"
    "github.com/blogpush/notify-backend/internal/model"
    "github.com/blogpush/notify-backend/internal/repository"
)

// JobPublisher is the one queue method the ingress needs.
type JobPublisher interface {
    Publish(job model.DispatchJob) error
}

// PushHandler holds the dependencies for the registration and webhook
// endpoints.
type PushHandler struct {
    Tokens repository.TokenRepositoryInterface
    Queue  JobPublisher
    Log    zerolog.Logger
}

// Register upserts a device token. Only a malformed token is a client
// error; re-registering is a silent success, so callers may retry freely.
func (h *PushHandler) Register(w http.ResponseWriter, r *http.Request) {
    var body struct {
        Token string `json:"token"`
    }
    if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
        writeError(w, http.StatusBadRequest, "invalid request body")
        return
    }

    if err := h.Tokens.Register(body.Token); err != nil {
        var invalid *appErrors.ErrInvalidTokenFormat
        if errors.As(err, &invalid) {
            writeError(w, http.StatusBadRequest, "invalid push token")
            return
        }
        h.Log.Error().Err(err).Msg("failed to register token")
        writeError(w, http.StatusInternalServerError, "could not register token")
        return
    }

    h.Log.Info().Str("token", body.Token).Msg("token registered")
    writeJSON(w, http.StatusOK, map[string]any{"message": "token registered"})
}

// Unregister removes a token and everything hanging off it. Removing a
// token that is already gone is a success: the goal state is reached.
func (h *PushHandler) Unregister(w http.ResponseWriter, r *http.Request) {
    token := chi.URLParam(r, "token")
    if token == "" {
        writeError(w, http.StatusBadRequest, "token is required")
        return
    }

    removed, err := h.Tokens.Unregister(token)
    if err != nil {
        h.Log.Error().Err(err).Msg("failed to unregister token")
        writeError(w, http.StatusInternalServerError, "could not unregister token")
        return
    }

    if removed {
        writeJSON(w, http.StatusOK, map[string]any{"message": "token removed", "removed": true})
        return
    }
    writeJSON(w, http.StatusOK, map[string]any{"message": "token did not exist", "removed": false})
}

// Webhook accepts the CMS publish payload and enqueues a dispatch job,
// answering immediately; the worker does the fan-out.
func (h *PushHandler) Webhook(w http.ResponseWriter, r *http.Request) {
    var payload struct {
        Data struct {
            ID      string `json:"id"`
            Title   string `json:"title"`
            Excerpt string `json:"excerpt"`
        } `json:"data"`
    }
    if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
        writeError(w, http.StatusBadRequest, "invalid request body")
        return
    }
    if payload.Data.ID == "" || payload.Data.Title == "" {
        writeError(w, http.StatusBadRequest, "incomplete payload")
        return
    }

    job := model.DispatchJob{
        Title:   payload.Data.Title,
        Excerpt: payload.Data.Excerpt,
        PostID:  payload.Data.ID,
    }
    if err := h.Queue.Publish(job); err != nil {
        h.Log.Error().Err(err).Msg("failed to enqueue job")
        writeError(w, http.StatusInternalServerError, "could not enqueue notification")
        return
    }

    h.Log.Info().Str("post_id", payload.Data.ID).Msg("job enqueued")
    writeJSON(w, http.StatusOK, map[string]any{"message": "notification queued"})
}

// Notify enqueues an ad-hoc broadcast (no post id, so no idempotency gate).
func (h *PushHandler) Notify(w http.ResponseWriter, r *http.Request) {
    var job model.DispatchJob
    if err := json.NewDecoder(r.Body).Decode(&job); err != nil {
        writeError(w, http.StatusBadRequest, "invalid request body")
        return
    }
    if job.Title == "" {
        writeError(w, http.StatusBadRequest, "title is required")
        return
    }

    if err := h.Queue.Publish(job); err != nil {
        h.Log.Error().Err(err).Msg("failed to enqueue broadcast")
        writeError(w, http.StatusInternalServerError, "could not enqueue notification")
        return
    }
    writeJSON(w, http.StatusOK, map[string]any{"message": "notification queued"})
}

func Health(w http.ResponseWriter, r *http.Request) {
    w.WriteHeader(http.StatusOK)
    w.Write([]byte("OK"))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(status)
    json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
    writeJSON(w, status, map[string]any{"error": msg})
}
