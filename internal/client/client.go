// Package client provides the HTTP client for the FoodSave backend API.
//
// A Client instance is constructed explicitly and passed to its users;
// there is no package-level singleton. Every call takes a context and is
// rate limited to avoid hammering the backend from interactive surfaces.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/foodsave-ai/foodsave/internal/log"
)

const (
	// DefaultBaseURL is the default address of a locally running backend.
	DefaultBaseURL = "http://127.0.0.1:8000"

	// defaultTimeout bounds a single backend call. Agent execution can
	// legitimately take a while (LLM round trips), hence the generous value.
	defaultTimeout = 2 * time.Minute
)

// ErrStatus indicates the backend answered with a non-2xx status code.
var ErrStatus = errors.New("unexpected status")

// BackendError is a failure reported by the backend itself: the HTTP
// exchange succeeded but the response payload carries an explicit error.
// The dispatcher surfaces Message to the user verbatim.
type BackendError struct {
	Message string
}

func (e *BackendError) Error() string {
	return e.Message
}

// Client talks to the FoodSave backend REST API.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	logger  log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Used in tests and
// when the caller needs custom transport settings.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRateLimiter replaces the default limiter.
func WithRateLimiter(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger log.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a backend client for the given base URL.
// An empty baseURL falls back to DefaultBaseURL.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultTimeout},
		// 5 req/s sustained with a burst of 10 is plenty for interactive use.
		limiter: rate.NewLimiter(5, 10),
		logger:  log.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured backend address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// postJSON issues a POST with a JSON body and decodes the JSON response
// into out. Non-2xx statuses are returned as ErrStatus-wrapped errors.
func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, "application/json", bytes.NewReader(payload), out)
}

// getJSON issues a GET and decodes the JSON response into out.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, "", nil, out)
}

// putJSON issues a PUT with a JSON body, discarding the response body.
func (c *Client) putJSON(ctx context.Context, path string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	return c.do(ctx, http.MethodPut, path, "application/json", bytes.NewReader(payload), nil)
}

// delete issues a DELETE, discarding the response body.
func (c *Client) delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, "", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug("backend call",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.statusError(resp)
	}

	if out == nil {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// statusError turns a non-2xx response into an error, preferring the
// backend's own error message when the body carries one.
func (c *Client) statusError(resp *http.Response) error {
	var envelope struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&envelope); err == nil {
		if envelope.Message != "" {
			return fmt.Errorf("%w %d: %s", ErrStatus, resp.StatusCode, envelope.Message)
		}
		if envelope.Error != "" {
			return fmt.Errorf("%w %d: %s", ErrStatus, resp.StatusCode, envelope.Error)
		}
	}
	return fmt.Errorf("%w %d", ErrStatus, resp.StatusCode)
}
