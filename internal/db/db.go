// internal/db/db.go
package db

import (
    "database/sql"

    _ "github.com/lib/pq"
    "github.com/rs/zerolog"
)

// Connect opens and pings a Postgres handle. The handle is returned, not
// stored in a package global, so callers own its lifecycle.
func Connect(dsn string, log zerolog.Logger) (*sql.DB, error) {
    conn, err := sql.Open("postgres", dsn)
    if err != nil {
        return nil, err
    }

    if err = conn.Ping(); err != nil {
        conn.Close()
        return nil, err
    }

    log.Info().Msg("✅ Connected to database")
    return conn, nil
}
