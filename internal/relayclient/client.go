// Package relayclient is a typed client for the relay's HTTP API.
package relayclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wolfman30/lifevault-relay/internal/completion"
)

const maxBodyBytes = 1 << 20

// APIError is returned for every non-2xx response.
type APIError struct {
	Status         int
	Message        string
	UpstreamStatus int
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("relayclient: status %d", e.Status)
	}
	return fmt.Sprintf("relayclient: status %d: %s", e.Status, e.Message)
}

// Health is the body of GET /api/health.
type Health struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Users     int       `json:"users"`
}

// Registration is the body of POST /api/register-user.
type Registration struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type chatRequest struct {
	UID      string            `json:"uid"`
	Messages []completion.Turn `json:"messages"`
}

type chatResponse struct {
	Message string `json:"message"`
}

type errorBody struct {
	Error          string `json:"error"`
	UpstreamStatus int    `json:"upstream_status"`
}

// Client talks to a running relay.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New returns a client for baseURL. A nil httpClient gets a 90s timeout,
// enough to outlast the relay's own upstream deadline.
func New(baseURL string, httpClient *http.Client) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("relayclient: base URL is required")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 90 * time.Second}
	}
	return &Client{baseURL: baseURL, httpClient: httpClient}, nil
}

func (c *Client) Health(ctx context.Context) (Health, error) {
	var out Health
	err := c.do(ctx, http.MethodGet, "/api/health", nil, &out)
	return out, err
}

func (c *Client) Register(ctx context.Context, reg Registration) error {
	return c.do(ctx, http.MethodPost, "/api/register-user", reg, nil)
}

// Chat sends the full conversation and returns the assistant reply. It
// satisfies chatsession.Sender.
func (c *Client) Chat(ctx context.Context, uid string, turns []completion.Turn) (string, error) {
	var out chatResponse
	if err := c.do(ctx, http.MethodPost, "/api/ai/chat", chatRequest{UID: uid, Messages: turns}, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("relayclient: encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("relayclient: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("relayclient: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("relayclient: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var eb errorBody
		if json.Unmarshal(raw, &eb) == nil {
			apiErr.Message = eb.Error
			apiErr.UpstreamStatus = eb.UpstreamStatus
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("relayclient: decode response: %w", err)
	}
	return nil
}
