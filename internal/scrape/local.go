package scrape

import (
	"context"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// HTTPRenderer fetches raw HTML with a plain GET. It does not run scripts.
type HTTPRenderer struct {
	client       *http.Client
	userAgent    string
	maxBodyBytes int64
}

// NewHTTPRenderer creates an HTTPRenderer with the given request timeout,
// User-Agent and body cap.
func NewHTTPRenderer(timeout time.Duration, userAgent string, maxBodyBytes int64) *HTTPRenderer {
	if maxBodyBytes <= 0 {
		maxBodyBytes = 2 << 20
	}
	return &HTTPRenderer{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
				MaxIdleConnsPerHost: 4,
			},
		},
		userAgent:    userAgent,
		maxBodyBytes: maxBodyBytes,
	}
}

func (h *HTTPRenderer) Name() string { return "http" }

// Render GETs targetURL. Any status other than 200 and any detected block
// page is an error.
func (h *HTTPRenderer) Render(ctx context.Context, targetURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "http: create request")
	}
	if h.userAgent != "" {
		req.Header.Set("User-Agent", h.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "http: fetch")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, h.maxBodyBytes))
	if err != nil {
		return nil, eris.Wrap(err, "http: read body")
	}

	if bt := DetectBlock(resp, body); bt != BlockNone {
		return nil, eris.Errorf("http: blocked (%s)", bt)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("http: status %d", resp.StatusCode)
	}

	return &Page{
		URL:        targetURL,
		StatusCode: resp.StatusCode,
		HTML:       string(body),
		Source:     h.Name(),
	}, nil
}
