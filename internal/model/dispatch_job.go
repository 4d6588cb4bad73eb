// internal/model/dispatch_job.go
package model

// DispatchJob is the queue payload for one notification campaign.
// PostID doubles as the idempotency key: jobs carrying the same post are
// only fanned out once. Broadcast jobs leave it empty and may repeat.
type DispatchJob struct {
    Title   string            `json:"title"`
    Excerpt string            `json:"excerpt"`
    PostID  string            `json:"post_id,omitempty"`
    Route   string            `json:"route,omitempty"`
    Action  map[string]string `json:"action,omitempty"`
}
