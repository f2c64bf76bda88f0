// Package whatsapp talks to the third-party WhatsApp messaging gateway used
// for lead proposals.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/leaddesk/leaddesk/internal/phone"
)

// ErrGateway is returned when the gateway rejects a call.
var ErrGateway = errors.New("whatsapp: gateway error")

// Template is a pre-approved message template.
type Template struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Body     string `json:"body"`
	Language string `json:"language,omitempty"`
}

// Credentials authenticate every gateway call.
type Credentials struct {
	APIKey   string
	AppKey   string
	DeviceID string
}

// Client wraps the gettemplate and createmessage endpoints.
type Client struct {
	baseURL    string
	creds      Credentials
	httpClient *http.Client
}

// NewClient constructs a client for baseURL.
func NewClient(baseURL string, creds Credentials) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (e envelope) ok() bool {
	return strings.EqualFold(e.Status, "success")
}

// Templates lists the templates registered for the device.
func (c *Client) Templates(ctx context.Context) ([]Template, error) {
	q := url.Values{}
	q.Set("appkey", c.creds.AppKey)
	q.Set("authkey", c.creds.APIKey)
	q.Set("device_id", c.creds.DeviceID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/gettemplate?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	env, err := c.do(req)
	if err != nil {
		return nil, err
	}
	var templates []Template
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &templates); err != nil {
			return nil, fmt.Errorf("decode templates: %w", err)
		}
	}
	return templates, nil
}

type messageRequest struct {
	AppKey     string `json:"appkey"`
	AuthKey    string `json:"authkey"`
	DeviceID   string `json:"device_id"`
	To         string `json:"to"`
	TemplateID string `json:"template_id"`
}

// SendTemplate sends templateID to a 10-digit mobile, prefixed with the country code.
func (c *Client) SendTemplate(ctx context.Context, mobile, templateID string) error {
	to, err := phone.WhatsAppNumber(mobile)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(messageRequest{
		AppKey:     c.creds.AppKey,
		AuthKey:    c.creds.APIKey,
		DeviceID:   c.creds.DeviceID,
		To:         to,
		TemplateID: templateID,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/createmessage", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	_, err = c.do(req)
	return err
}

func (c *Client) do(req *http.Request) (envelope, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return envelope{}, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return envelope{}, fmt.Errorf("%w: read body: %v", ErrGateway, err)
	}
	if resp.StatusCode >= 400 {
		return envelope{}, fmt.Errorf("%w: status %d", ErrGateway, resp.StatusCode)
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return envelope{}, fmt.Errorf("%w: decode: %v", ErrGateway, err)
	}
	if !env.ok() {
		return envelope{}, fmt.Errorf("%w: %s", ErrGateway, env.Message)
	}
	return env, nil
}
