// internal/repository/ticket_repository.go
package repository

import (
    "database/sql"
    "fmt"
    "strings"
    "time"

    "github.com/lib/pq"

    "github.com/blogpush/notify-backend/internal/model"
)

type TicketRepositoryInterface interface {
    BulkInsert(tickets []model.NotificationTicket) error
    // ExistsForPost is the idempotency check: has any ticket ever been
    // written for this post id?
    ExistsForPost(postID string) (bool, error)
    ListCreatedSince(since time.Time) ([]model.PendingTicket, error)
    DeleteByIDs(ids []int64) (int64, error)
    DeleteOlderThan(cutoff time.Time) (int64, error)
}

type TicketRepository struct {
    DB *sql.DB
}

// BulkInsert writes one page's staged tickets in a single statement.
func (r *TicketRepository) BulkInsert(tickets []model.NotificationTicket) error {
    if len(tickets) == 0 {
        return nil
    }

    placeholders := make([]string, 0, len(tickets))
    args := make([]interface{}, 0, len(tickets)*4)
    for i, t := range tickets {
        base := i * 4
        placeholders = append(placeholders, fmt.Sprintf("($%d, $%d, $%d, $%d, NOW())",
            base+1, base+2, base+3, base+4))
        args = append(args, t.ExpoTicketID, t.PushTokenID, nullable(t.PostID), nullable(t.Route))
    }

    query := `
        INSERT INTO notification_tickets (expo_ticket_id, push_token_id, post_id, route, created_at)
        VALUES ` + strings.Join(placeholders, ", ")
    _, err := r.DB.Exec(query, args...)
    return err
}

func (r *TicketRepository) ExistsForPost(postID string) (bool, error) {
    query := `SELECT 1 FROM notification_tickets WHERE post_id=$1 LIMIT 1`
    var tmp int
    err := r.DB.QueryRow(query, postID).Scan(&tmp)
    if err != nil {
        if err == sql.ErrNoRows {
            return false, nil
        }
        return false, err
    }
    return true, nil
}

func (r *TicketRepository) ListCreatedSince(since time.Time) ([]model.PendingTicket, error) {
    query := `
        SELECT t.id, t.expo_ticket_id, t.push_token_id, p.token
        FROM notification_tickets t
        JOIN push_tokens p ON p.id = t.push_token_id
        WHERE t.created_at >= $1
        ORDER BY t.id ASC
    `
    rows, err := r.DB.Query(query, since)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    tickets := []model.PendingTicket{}
    for rows.Next() {
        var t model.PendingTicket
        if err := rows.Scan(&t.ID, &t.ExpoTicketID, &t.PushTokenID, &t.Token); err != nil {
            return nil, err
        }
        tickets = append(tickets, t)
    }
    return tickets, rows.Err()
}

func (r *TicketRepository) DeleteByIDs(ids []int64) (int64, error) {
    if len(ids) == 0 {
        return 0, nil
    }
    res, err := r.DB.Exec(`DELETE FROM notification_tickets WHERE id = ANY($1)`, pq.Array(ids))
    if err != nil {
        return 0, err
    }
    return res.RowsAffected()
}

func (r *TicketRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
    res, err := r.DB.Exec(`DELETE FROM notification_tickets WHERE created_at < $1`, cutoff)
    if err != nil {
        return 0, err
    }
    return res.RowsAffected()
}

// nullable maps "" to NULL for the optional text columns.
func nullable(s string) sql.NullString {
    return sql.NullString{String: s, Valid: s != ""}
}

var _ TicketRepositoryInterface = (*TicketRepository)(nil)
