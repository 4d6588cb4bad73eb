// internal/provider/expo/expo.go
package expo

import "strings"

// Chunk limits published by Expo for the push API. Send calls accept at
// most 100 messages, receipt lookups at most 300 ids.
const (
    SendChunkLimit    = 100
    ReceiptChunkLimit = 300
)

// ReasonDeviceNotRegistered is Expo's permanent-invalidity error: the
// device can never receive pushes on this token again.
const ReasonDeviceNotRegistered = "DeviceNotRegistered"

// Message is one outbound push notification.
type Message struct {
    To        string            `json:"to"`
    Title     string            `json:"title"`
    Body      string            `json:"body"`
    Data      map[string]string `json:"data,omitempty"`
    Sound     string            `json:"sound,omitempty"`
    Priority  string            `json:"priority,omitempty"`
    ChannelID string            `json:"channelId,omitempty"`
}

// ErrorDetails carries the machine-readable error code of a ticket or
// receipt.
type ErrorDetails struct {
    Error string `json:"error,omitempty"`
}

// Ticket is the per-message outcome of a send call, positionally aligned
// with the submitted batch.
type Ticket struct {
    Status  string        `json:"status"` // "ok" or "error"
    ID      string        `json:"id,omitempty"`
    Message string        `json:"message,omitempty"`
    Details *ErrorDetails `json:"details,omitempty"`
}

func (t Ticket) OK() bool { return t.Status == "ok" }

// PermanentFailure reports whether the rejection means the token is dead
// for good, as opposed to a transient provider-side problem.
func (t Ticket) PermanentFailure() bool {
    return t.Status == "error" && t.Details != nil && t.Details.Error == ReasonDeviceNotRegistered
}

// Receipt is the final delivery outcome for one previously issued ticket.
type Receipt struct {
    Status  string        `json:"status"` // "ok" or "error"
    Message string        `json:"message,omitempty"`
    Details *ErrorDetails `json:"details,omitempty"`
}

func (r Receipt) OK() bool { return r.Status == "ok" }

func (r Receipt) PermanentFailure() bool {
    return r.Status == "error" && r.Details != nil && r.Details.Error == ReasonDeviceNotRegistered
}

// IsPushToken validates the Expo push token grammar
// (ExponentPushToken[...] or ExpoPushToken[...]).
func IsPushToken(token string) bool {
    if !strings.HasSuffix(token, "]") {
        return false
    }
    return strings.HasPrefix(token, "ExponentPushToken[") || strings.HasPrefix(token, "ExpoPushToken[")
}

// ChunkMessages splits a message slice into provider-sized send batches.
func ChunkMessages(messages []Message) [][]Message {
    chunks := [][]Message{}
    for len(messages) > 0 {
        n := len(messages)
        if n > SendChunkLimit {
            n = SendChunkLimit
        }
        chunks = append(chunks, messages[:n])
        messages = messages[n:]
    }
    return chunks
}

// ChunkReceiptIDs splits ticket ids into provider-sized receipt lookups.
func ChunkReceiptIDs(ids []string) [][]string {
    chunks := [][]string{}
    for len(ids) > 0 {
        n := len(ids)
        if n > ReceiptChunkLimit {
            n = ReceiptChunkLimit
        }
        chunks = append(chunks, ids[:n])
        ids = ids[n:]
    }
    return chunks
}
