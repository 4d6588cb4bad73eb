// internal/repository/token_repository.go
package repository

import (
    "database/sql"

    "github.com/lib/pq"

    appErrors "github.com/blogpush/notify-backend/internal/errors"
    "github.com/blogpush/notify-backend/internal/model"
    "github.com/blogpush/notify-backend/internal/provider/expo"
)

type TokenRepositoryInterface interface {
    // Register validates the token grammar and upserts. Registering an
    // existing token is a no-op, never an error.
    Register(token string) error
    // Unregister deletes the token (tickets cascade) and reports whether
    // anything was removed. A missing token is not an error.
    Unregister(token string) (bool, error)
    // ListBatch returns up to limit tokens with id strictly greater than
    // cursor, in ascending id order. An empty slice means the scan is done.
    ListBatch(cursor int64, limit int) ([]model.PushToken, error)
    RemoveByTokens(tokens []string) (int64, error)
    RemoveByIDs(ids []int64) (int64, error)
    Count() (int, error)
}

type TokenRepository struct {
    DB *sql.DB
}

func (r *TokenRepository) Register(token string) error {
    if !expo.IsPushToken(token) {
        return appErrors.NewInvalidTokenFormat(token)
    }

    // ON CONFLICT DO NOTHING keeps concurrent registers of the same token
    // from racing into duplicate rows.
    query := `
        INSERT INTO push_tokens (token, created_at)
        VALUES ($1, NOW())
        ON CONFLICT (token) DO NOTHING
    `
    _, err := r.DB.Exec(query, token)
    return err
}

func (r *TokenRepository) Unregister(token string) (bool, error) {
    res, err := r.DB.Exec(`DELETE FROM push_tokens WHERE token=$1`, token)
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return false, err
    }
    return n > 0, nil
}

func (r *TokenRepository) ListBatch(cursor int64, limit int) ([]model.PushToken, error) {
    query := `
        SELECT id, token, created_at
        FROM push_tokens
        WHERE id > $1
        ORDER BY id ASC
        LIMIT $2
    `
    rows, err := r.DB.Query(query, cursor, limit)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    tokens := []model.PushToken{}
    for rows.Next() {
        var t model.PushToken
        if err := rows.Scan(&t.ID, &t.Token, &t.CreatedAt); err != nil {
            return nil, err
        }
        tokens = append(tokens, t)
    }
    return tokens, rows.Err()
}

func (r *TokenRepository) RemoveByTokens(tokens []string) (int64, error) {
    if len(tokens) == 0 {
        return 0, nil
    }
    res, err := r.DB.Exec(`DELETE FROM push_tokens WHERE token = ANY($1)`, pq.Array(tokens))
    if err != nil {
        return 0, err
    }
    return res.RowsAffected()
}

func (r *TokenRepository) RemoveByIDs(ids []int64) (int64, error) {
    if len(ids) == 0 {
        return 0, nil
    }
    res, err := r.DB.Exec(`DELETE FROM push_tokens WHERE id = ANY($1)`, pq.Array(ids))
    if err != nil {
        return 0, err
    }
    return res.RowsAffected()
}

func (r *TokenRepository) Count() (int, error) {
    var n int
    err := r.DB.QueryRow(`SELECT COUNT(*) FROM push_tokens`).Scan(&n)
    return n, err
}

var _ TokenRepositoryInterface = (*TokenRepository)(nil)
