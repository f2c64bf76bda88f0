package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrPushFailed is returned when the gateway rejects a notification.
var ErrPushFailed = errors.New("notify: push failed")

// Sender delivers a notification.
type Sender interface {
	Send(ctx context.Context, n Notification) error
}

// HTTPPusher posts notifications as JSON to the push gateway.
type HTTPPusher struct {
	endpoint   string
	httpClient *http.Client
}

// NewHTTPPusher creates a pusher for endpoint.
func NewHTTPPusher(endpoint string) *HTTPPusher {
	return &HTTPPusher{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Send posts n to the gateway.
func (p *HTTPPusher) Send(ctx context.Context, n Notification) error {
	if p.endpoint == "" {
		return fmt.Errorf("notify: endpoint not configured")
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("notify: marshal: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("notify: request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPushFailed, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", ErrPushFailed, resp.StatusCode)
	}
	return nil
}
