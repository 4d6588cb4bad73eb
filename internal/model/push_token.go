// internal/model/push_token.go
package model

import "time"

type PushToken struct {
    ID        int64     `db:"id" json:"id"`
    Token     string    `db:"token" json:"token"`
    CreatedAt time.Time `db:"created_at" json:"created_at"`
}
