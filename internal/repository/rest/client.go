// Package rest implements the repository interfaces against the document REST API.
package rest

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

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"kankou/internal/repository"
)

const maxErrorBody = 4 << 10

// APIError is returned for any non-2xx response.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("document api: status %d", e.Status)
	}
	return fmt.Sprintf("document api: status %d: %s", e.Status, e.Body)
}

// Is makes a 404 match repository.ErrNotFound.
func (e *APIError) Is(target error) bool {
	return target == repository.ErrNotFound && e.Status == http.StatusNotFound
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Its transport is used as is.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout bounds every request. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithLogger sets the logger used for failed operations.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithMetrics registers backend operation metrics on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *Client) { c.metricsReg = reg }
}

// Client talks to the document API rooted at a base URL.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
	metricsReg prometheus.Registerer
	obs        *observer
}

// New builds a client. baseURL must be absolute; a trailing slash is ignored.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("rest: base url is required")
	}

	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   30 * time.Second,
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	obs, err := newObserver(c.logger, c.metricsReg)
	if err != nil {
		return nil, err
	}
	c.obs = obs
	return c, nil
}

// Documents returns the document repository backed by c.
func (c *Client) Documents() *Documents { return &Documents{c: c} }

// Types returns the document-type repository backed by c.
func (c *Client) Types() *Types { return &Types{c: c} }

// Ping checks that the API answers. Any status below 500 counts as reachable.
func (c *Client) Ping(ctx context.Context) (err error) {
	defer c.obs.observe(ctx, "ping", time.Now(), &err)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+typesPath, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusInternalServerError {
		return &APIError{Status: resp.StatusCode}
	}
	return nil
}

// doRequest sends a request and returns the response when the status is 2xx.
// The caller must close the body.
func (c *Client) doRequest(ctx context.Context, method, path, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	return resp, nil
}

// getJSON issues a GET and decodes the response into out.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	resp, err := c.doRequest(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// sendJSON issues a request with a JSON body and returns the raw response body.
func (c *Client) sendJSON(ctx context.Context, method, path string, in any) ([]byte, error) {
	b, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	resp, err := c.doRequest(ctx, method, path, "application/json", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return out, nil
}
