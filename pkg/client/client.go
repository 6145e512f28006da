// Package client is the Go SDK for smq.
//
// # Quick start
//
//	c := client.New("http://localhost:8080")
//
//	if err := c.Push(ctx, "orders", []byte(`{"id":42}`)); err != nil {
//	    return err
//	}
//
//	msg, err := c.Pop(ctx, "orders")
//	if errors.Is(err, client.ErrNoMessage) {
//	    // channel is empty (or was never written to)
//	}
//
// # Error handling
//
// Pop returns ErrNoMessage when the channel is empty. Every other non-2xx
// reply is returned as an *APIError carrying the status code and the server's
// plain-text message.
//
// Client is safe for concurrent use and shares one http.Client internally.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrNoMessage is returned by Pop when the channel holds no message.
var ErrNoMessage = errors.New("smq: no message")

// ─── Error type ───────────────────────────────────────────────────────────────

// APIError is returned when the smq server responds with a non-2xx status.
type APIError struct {
	StatusCode int    // HTTP status code
	Message    string // plain-text response body
}

func (e *APIError) Error() string {
	return fmt.Sprintf("smq: server returned %d: %s", e.StatusCode, e.Message)
}

// IsForbidden reports whether the server rejected the auth key.
func IsForbidden(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.StatusCode == http.StatusForbidden
}

// ─── Client options ───────────────────────────────────────────────────────────

// Option configures a Client.
type Option func(*Client)

// WithAuthKey sets the shared secret sent as the x-auth header.
func WithAuthKey(key string) Option {
	return func(c *Client) { c.authKey = key }
}

// WithHTTPClient replaces the default http.Client.
// Use this to configure TLS, proxies, or request tracing.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout. The default is 30 seconds.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// ─── Client ───────────────────────────────────────────────────────────────────

// Client talks to one smq server.
type Client struct {
	baseURL string
	authKey string
	http    *http.Client
}

// New creates a Client for the server at baseURL.
//
//	c := client.New("https://smq.example.com", client.WithAuthKey("secret"))
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Push appends payload to the tail of channel.
func (c *Client) Push(ctx context.Context, channel string, payload []byte) error {
	_, err := c.do(ctx, http.MethodPost, "/msg", channel, payload)
	return err
}

// Pop removes and returns the oldest message of channel.
// It returns ErrNoMessage when there is none; it never waits for one.
func (c *Client) Pop(ctx context.Context, channel string) ([]byte, error) {
	body, err := c.do(ctx, http.MethodGet, "/msg", channel, nil)
	if err != nil {
		var ae *APIError
		if errors.As(err, &ae) && ae.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: channel %q", ErrNoMessage, channel)
		}
		return nil, err
	}
	return body, nil
}

// Info returns the server's plain-text capacity report.
func (c *Client) Info(ctx context.Context) (string, error) {
	body, err := c.do(ctx, http.MethodGet, "/", "", nil)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// ─── Internal ─────────────────────────────────────────────────────────────────

// do performs a request and returns the raw response body on 2xx.
func (c *Client) do(ctx context.Context, method, path, channel string, payload []byte) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("smq: build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/octet-stream")
	}
	if channel != "" {
		req.Header.Set("x-channel", channel)
	}
	if c.authKey != "" {
		req.Header.Set("x-auth", c.authKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("smq: request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("smq: read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	return body, nil
}
