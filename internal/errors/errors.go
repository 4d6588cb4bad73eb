// internal/errors/errors.go
package appErrors

import "fmt"

// ErrInvalidTokenFormat means the submitted token does not match the Expo
// push token grammar. Never retried; maps to a 400 at the HTTP edge.
type ErrInvalidTokenFormat struct {
    Token string
}

func (e *ErrInvalidTokenFormat) Error() string {
    return fmt.Sprintf("invalid push token format: %q", e.Token)
}

// Helper constructor
func NewInvalidTokenFormat(token string) error {
    return &ErrInvalidTokenFormat{Token: token}
}

// ErrStoreUnavailable wraps a database failure that should fail the whole
// job attempt so the queue's retry policy governs the re-attempt.
type ErrStoreUnavailable struct {
    Op  string
    Err error
}

func (e *ErrStoreUnavailable) Error() string {
    return fmt.Sprintf("store unavailable during %s: %v", e.Op, e.Err)
}

func (e *ErrStoreUnavailable) Unwrap() error { return e.Err }

func NewStoreUnavailable(op string, err error) error {
    return &ErrStoreUnavailable{Op: op, Err: err}
}
