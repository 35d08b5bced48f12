package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// TokenSource supplies the access token attached to every request.
// An empty token is not an error; the request goes out with an empty
// bearer and the backend decides.
type TokenSource interface {
	Token() (string, error)
}

// StaticToken is a TokenSource returning a fixed token.
type StaticToken string

// Token implements TokenSource.
func (t StaticToken) Token() (string, error) { return string(t), nil }

// Client is a thin HTTP client for the dashboard REST API.
// It handles Bearer token authentication, JSON decoding, and
// automatic retry with exponential backoff on HTTP 429.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	maxRetries int
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides the per-request timeout (default 30s).
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithMaxRetries sets how many times a rate-limited request is retried.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// NewClient creates a new backend client. The baseURL is the API root
// (e.g., https://villas.example.com/api); tokens is consulted before
// each request.
func NewClient(baseURL string, tokens TokenSource, opts ...Option) *Client {
	if tokens == nil {
		tokens = StaticToken("")
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		maxRetries: 3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// Get performs an HTTP GET request and returns the raw response body.
func (c *Client) Get(ctx context.Context, path string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

// Post performs an HTTP POST request with an optional JSON body and
// returns the raw response body.
func (c *Client) Post(
	ctx context.Context,
	path string,
	body interface{},
) ([]byte, error) {
	return c.do(ctx, http.MethodPost, path, body)
}

// do is the core HTTP method that builds the request, handles auth,
// rate limiting with exponential backoff, and status mapping.
func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	body interface{},
) ([]byte, error) {
	url := c.baseURL + path

	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		payload = data
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}

		token, err := c.tokens.Token()
		if err != nil {
			return nil, fmt.Errorf("reading access token: %w", err)
		}
		req.Header.Set("Authorization", bearer(token))
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, &RequestError{
				Method:  method,
				Path:    path,
				Message: err.Error(),
				Err:     err,
			}
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("reading response body: %w", readErr)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			waitDuration := retryAfterDuration(resp, attempt)
			lastErr = &RequestError{
				Method:     method,
				Path:       path,
				StatusCode: resp.StatusCode,
				Message:    messageFrom(respBody, resp.StatusCode),
			}

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(waitDuration):
				continue
			}
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			reqErr := &RequestError{
				Method:     method,
				Path:       path,
				StatusCode: resp.StatusCode,
				Message:    messageFrom(respBody, resp.StatusCode),
			}
			if resp.StatusCode == http.StatusUnauthorized {
				reqErr.Err = &AuthError{
					Message: "access token rejected by " + c.baseURL,
				}
			}
			return nil, reqErr
		}

		return respBody, nil
	}

	return nil, fmt.Errorf(
		"max retries (%d) exceeded: %w", c.maxRetries, lastErr,
	)
}

// bearer formats the Authorization value. A missing token yields an
// empty header value.
func bearer(token string) string {
	if token == "" {
		return ""
	}
	return "Bearer " + token
}

// messageFrom returns the trimmed body text, or a default message when
// the body is empty.
func messageFrom(body []byte, status int) string {
	if msg := strings.TrimSpace(string(body)); msg != "" {
		return msg
	}
	return defaultMessage(status)
}

// retryAfterDuration reads the Retry-After header and computes a wait
// duration. Falls back to exponential backoff if the header is missing.
func retryAfterDuration(resp *http.Response, attempt int) time.Duration {
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}

	// Exponential backoff: 1s, 2s, 4s, ...
	backoff := time.Duration(1<<uint(attempt)) * time.Second
	if backoff > 30*time.Second {
		backoff = 30 * time.Second
	}
	return backoff
}
