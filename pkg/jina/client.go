// Package jina provides a client for the Jina AI reader endpoint, which
// returns a rendered page as plain text.
package jina

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/market-research/internal/resilience"
)

// Client reads pages through the Jina reader.
type Client interface {
	// Read fetches targetURL through the reader and returns its content.
	Read(ctx context.Context, targetURL string) (*ReadResponse, error)
}

// ReadResponse is the parsed reader response.
type ReadResponse struct {
	Code int      `json:"code"`
	Data ReadData `json:"data"`
}

// ReadData holds the page content.
type ReadData struct {
	Title   string    `json:"title"`
	URL     string    `json:"url"`
	Content string    `json:"content"`
	Usage   ReadUsage `json:"usage"`
}

// ReadUsage tracks token consumption.
type ReadUsage struct {
	Tokens int `json:"tokens"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithReturnFormat selects the reader output format ("text" or "markdown").
func WithReturnFormat(format string) Option {
	return func(c *httpClient) {
		c.format = format
	}
}

// WithTimeout asks the reader to give up rendering after d.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		c.renderTimeout = d
	}
}

// WithMaxAttempts sets how many times a transient failure is tried.
func WithMaxAttempts(n int) Option {
	return func(c *httpClient) {
		if n > 0 {
			c.retry.MaxAttempts = n
		}
	}
}

type httpClient struct {
	apiKey        string
	baseURL       string
	format        string
	renderTimeout time.Duration
	retry         resilience.RetryConfig
	http          *http.Client
}

// NewClient creates a reader client. An empty apiKey uses the anonymous tier.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: "https://r.jina.ai",
		format:  "text",
		retry:   resilience.DefaultRetryConfig(),
		http: &http.Client{
			Timeout: 45 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.retry.ShouldRetry = resilience.IsTransient
	c.retry.OnRetry = resilience.RetryLogger("jina", "read")
	return c
}

type response struct {
	body   []byte
	status int
}

// do executes req, retrying transport errors and transient statuses with
// the client's retry policy. Other statuses are returned to the caller.
func (c *httpClient) do(ctx context.Context, req *http.Request) ([]byte, int, error) {
	resp, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) (response, error) {
		r, err := c.http.Do(req.Clone(ctx))
		if err != nil {
			return response{}, resilience.NewTransientError(err, 0)
		}
		body, readErr := io.ReadAll(io.LimitReader(r.Body, 4<<20))
		_ = r.Body.Close()
		if readErr != nil {
			return response{}, resilience.NewTransientError(eris.Wrap(readErr, "jina: read response body"), r.StatusCode)
		}
		if resilience.IsTransientHTTPStatus(r.StatusCode) {
			return response{}, resilience.NewTransientError(
				eris.Errorf("jina: status %d: %s", r.StatusCode, truncate(string(body), 200)), r.StatusCode)
		}
		return response{body: body, status: r.StatusCode}, nil
	})
	if err != nil {
		return nil, 0, err
	}
	return resp.body, resp.status, nil
}

func (c *httpClient) Read(ctx context.Context, targetURL string) (*ReadResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+targetURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "jina: create request")
	}

	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Return-Format", c.format)
	if c.renderTimeout > 0 {
		req.Header.Set("X-Timeout", strconv.Itoa(int(c.renderTimeout.Seconds())))
	}

	body, statusCode, err := c.do(ctx, req)
	if err != nil {
		return nil, eris.Wrap(err, "jina: request failed")
	}
	if statusCode != http.StatusOK {
		return nil, eris.Errorf("jina: unexpected status %d: %s", statusCode, truncate(string(body), 200))
	}

	var result ReadResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "jina: unmarshal response")
	}
	return &result, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
