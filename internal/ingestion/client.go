// Package ingestion calls the external backend that pulls Instagram posts
// and captions them.
package ingestion

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
)

const (
	ingestPath  = "/ingest/instagram"
	processPath = "/process/instagram-media"
)

// ErrNotConfigured is returned when no backend base URL is set.
var ErrNotConfigured = errors.New("ingestion: backend base url not configured")

// HTTPDoer abstracts *http.Client for tests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// UpstreamError reports a non-2xx response from the backend.
type UpstreamError struct {
	Status int
	Reason string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("ingestion: backend returned %d: %s", e.Status, e.Reason)
}

// IngestRequest is the body of POST /ingest/instagram.
type IngestRequest struct {
	ProfileID         string `json:"profile_id"`
	InstagramUsername string `json:"instagram_username"`
	Limit             int    `json:"limit"`
}

type processRequest struct {
	Limit int `json:"limit"`
}

// Client talks to the ingestion backend. Every call is attempted exactly once.
type Client struct {
	baseURL string
	http    HTTPDoer
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.http = doer
		}
	}
}

// WithTimeout sets the timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.http = &http.Client{Timeout: timeout}
		}
	}
}

// NewClient returns a client for baseURL. An empty base URL yields a client
// whose calls fail with ErrNotConfigured.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: 2 * time.Minute},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether a backend base URL is set.
func (c *Client) Configured() bool {
	return c != nil && c.baseURL != ""
}

// Ingest asks the backend to pull the latest posts and returns the inserted count.
func (c *Client) Ingest(ctx context.Context, req IngestRequest) (int, error) {
	var out struct {
		Inserted *int `json:"inserted"`
	}
	if err := c.post(ctx, ingestPath, req, &out); err != nil {
		return 0, err
	}
	if out.Inserted == nil {
		return 0, nil
	}
	return *out.Inserted, nil
}

// Process asks the backend to caption and narrate pending media and returns
// the number of processed items.
func (c *Client) Process(ctx context.Context, limit int) (int, error) {
	var out struct {
		Processed []json.RawMessage `json:"processed"`
	}
	if err := c.post(ctx, processPath, processRequest{Limit: limit}, &out); err != nil {
		return 0, err
	}
	return len(out.Processed), nil
}

// post sends body as JSON. A 2xx body that does not decode into out leaves
// out zeroed rather than failing the call.
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	if !c.Configured() {
		return ErrNotConfigured
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("ingestion: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("ingestion: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ingestion: request %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &UpstreamError{Status: resp.StatusCode, Reason: failureReason(resp, data)}
	}

	_ = json.Unmarshal(data, out)
	return nil
}

func failureReason(resp *http.Response, data []byte) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err == nil && strings.TrimSpace(body.Error) != "" {
		return body.Error
	}

	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	return resp.Status
}
