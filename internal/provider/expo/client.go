// internal/provider/expo/client.go
package expo

import (
    "bytes"
    "context"
    "encoding/json"
    "fmt"
    "io"
    "net/http"
    "time"
)

const DefaultBaseURL = "https://exp.host/--/api/v2/push"

// Client talks to the Expo push HTTP API.
type Client struct {
    BaseURL     string
    AccessToken string
    HTTP        *http.Client
}

func NewClient(accessToken string) *Client {
    return &Client{
        BaseURL:     DefaultBaseURL,
        AccessToken: accessToken,
        HTTP:        &http.Client{Timeout: 30 * time.Second},
    }
}

// Send submits one batch of at most SendChunkLimit messages and returns one
// ticket per message, in the same order.
func (c *Client) Send(ctx context.Context, batch []Message) ([]Ticket, error) {
    if len(batch) > SendChunkLimit {
        return nil, fmt.Errorf("batch of %d exceeds send chunk limit %d", len(batch), SendChunkLimit)
    }

    var resp struct {
        Data []Ticket `json:"data"`
    }
    if err := c.post(ctx, "/send", batch, &resp); err != nil {
        return nil, err
    }

    // The engine correlates tickets to tokens by position, so a short or
    // long response is unusable.
    if len(resp.Data) != len(batch) {
        return nil, fmt.Errorf("expo returned %d tickets for %d messages", len(resp.Data), len(batch))
    }
    return resp.Data, nil
}

// Receipts looks up final delivery outcomes for at most ReceiptChunkLimit
// ticket ids. Ids missing from the result are still being processed.
func (c *Client) Receipts(ctx context.Context, ids []string) (map[string]Receipt, error) {
    if len(ids) > ReceiptChunkLimit {
        return nil, fmt.Errorf("batch of %d exceeds receipt chunk limit %d", len(ids), ReceiptChunkLimit)
    }

    body := map[string][]string{"ids": ids}
    var resp struct {
        Data map[string]Receipt `json:"data"`
    }
    if err := c.post(ctx, "/getReceipts", body, &resp); err != nil {
        return nil, err
    }
    return resp.Data, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
    buf, err := json.Marshal(payload)
    if err != nil {
        return err
    }

    req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(buf))
    if err != nil {
        return err
    }
    req.Header.Set("Content-Type", "application/json")
    req.Header.Set("Accept", "application/json")
    if c.AccessToken != "" {
        req.Header.Set("Authorization", "Bearer "+c.AccessToken)
    }

    httpClient := c.HTTP
    if httpClient == nil {
        httpClient = http.DefaultClient
    }
    res, err := httpClient.Do(req)
    if err != nil {
        return err
    }
    defer res.Body.Close()

    if res.StatusCode != http.StatusOK {
        snippet, _ := io.ReadAll(io.LimitReader(res.Body, 512))
        return fmt.Errorf("expo %s returned %d: %s", path, res.StatusCode, snippet)
    }

    return json.NewDecoder(res.Body).Decode(out)
}
