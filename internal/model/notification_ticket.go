// internal/model/notification_ticket.go
package model

import "time"

// NotificationTicket links one accepted provider send to one push token.
// post_id and route are nullable in the database; empty string means NULL.
type NotificationTicket struct {
    ID           int64     `db:"id" json:"id"`
    ExpoTicketID string    `db:"expo_ticket_id" json:"expo_ticket_id"`
    PushTokenID  int64     `db:"push_token_id" json:"push_token_id"`
    PostID       string    `db:"post_id" json:"post_id,omitempty"`
    Route        string    `db:"route" json:"route,omitempty"`
    CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// PendingTicket is a ticket joined with its owning token, as the receipt
// checker reads it.
type PendingTicket struct {
    ID           int64  `db:"id"`
    ExpoTicketID string `db:"expo_ticket_id"`
    PushTokenID  int64  `db:"push_token_id"`
    Token        string `db:"token"`
}
