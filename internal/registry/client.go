// Package registry is the HTTP client for the download service: job
// creation, job lookups, artifacts and the catalog endpoints around them.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/mmcdole/reel/internal/domain"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultRateLimit = 20
	userAgent        = "reel/1.0"

	// maxErrorBody bounds how much of a failed response is kept for the message
	maxErrorBody = 4096
)

// Client implements domain.JobRegistry and domain.CatalogRepository
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// Option configures the Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client. Nil keeps the default.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithTimeout sets the per-request transport timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithRateLimit bounds requests per second across every caller of this client.
// Zero or negative disables limiting.
func WithRateLimit(requestsPerSecond int) Option {
	return func(c *Client) {
		if requestsPerSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a registry client for baseURL (e.g. http://localhost:8000/api)
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(defaultRateLimit), defaultRateLimit),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API base the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// doRequest performs an authenticated request and returns the response for
// any 2xx status. The caller closes the body. Every other outcome is a
// *domain.RegistryError.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, payload any) (*http.Response, error) {
	op := method + " " + path

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &domain.RegistryError{Code: domain.CodeTransport, Op: op, Message: err.Error(), Err: err}
	}

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL = reqURL + "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Request-ID", requestID)
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("registry request", "method", method, "url", reqURL, "requestID", requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("registry request failed", "op", op, "requestID", requestID, "error", err)
		return nil, &domain.RegistryError{Code: domain.CodeTransport, Op: op, Message: err.Error(), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Debug("registry request error", "op", op, "status", resp.StatusCode, "requestID", requestID, "body", string(raw))
		return nil, &domain.RegistryError{
			Code:       domain.CodeStatus,
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(raw, resp.Status),
		}
	}

	return resp, nil
}

// doJSON performs a request and decodes a JSON response into out
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, payload, out any) error {
	resp, err := c.doRequest(ctx, method, path, query, payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.logger.Error("registry decode error", "op", method+" "+path, "error", err)
		return &domain.RegistryError{
			Code:       domain.CodeDecode,
			Op:         method + " " + path,
			Message:    fmt.Sprintf("failed to parse response: %v", err),
			Err:        err,
		}
	}
	return nil
}

// errorMessage extracts {"detail": ...} from an error body, falling back
// to the raw text and finally the HTTP status line.
func errorMessage(raw []byte, status string) string {
	var eb errorBody
	if err := json.Unmarshal(raw, &eb); err == nil && len(eb.Detail) > 0 {
		var s string
		if err := json.Unmarshal(eb.Detail, &s); err == nil {
			return s
		}
		return string(eb.Detail)
	}
	if text := strings.TrimSpace(string(raw)); text != "" {
		return text
	}
	return status
}
