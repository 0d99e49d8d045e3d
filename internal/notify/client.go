// Package notify is the business-tier side of the event bridge: a small HTTP
// client posting events to the relay's /notify endpoint. Keeping this over
// HTTP (instead of calling the hub directly) lets the business API and the
// relay run as separate processes without code changes.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type Client struct {
	baseURL string
	http    *http.Client
}

type payload struct {
	Event    string `json:"event"`
	Data     any    `json:"data,omitempty"`
	SocketID string `json:"socketId,omitempty"`
}

type response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

// Emit broadcasts the event to every connected client.
func (c *Client) Emit(ctx context.Context, event string, data any) error {
	return c.post(ctx, payload{Event: event, Data: data})
}

// EmitTo delivers the event only to the given connection.
func (c *Client) EmitTo(ctx context.Context, connectionID, event string, data any) error {
	return c.post(ctx, payload{Event: event, Data: data, SocketID: connectionID})
}

func (c *Client) post(ctx context.Context, p payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("notify: encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/notify", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	defer resp.Body.Close()

	var result response
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("notify: decode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || !result.Success {
		if result.Error != "" {
			return fmt.Errorf("notify: relay rejected event %q: %s", p.Event, result.Error)
		}
		return fmt.Errorf("notify: relay returned status %d for event %q", resp.StatusCode, p.Event)
	}
	return nil
}
