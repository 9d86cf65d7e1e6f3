package scrape

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectBlock(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		resp   *http.Response
		body   string
		expect BlockType
	}{
		{
			name:   "cloudflare 403 with cf-ray",
			resp:   &http.Response{StatusCode: 403, Header: http.Header{"Cf-Ray": {"abc123"}}},
			expect: BlockCloudflare,
		},
		{
			name:   "cloudflare 503 server header",
			resp:   &http.Response{StatusCode: 503, Header: http.Header{"Server": {"Cloudflare"}}},
			expect: BlockCloudflare,
		},
		{
			name:   "browser check body",
			resp:   &http.Response{StatusCode: 200, Header: http.Header{}},
			body:   "<html><body>Checking your browser before accessing</body></html>",
			expect: BlockCloudflare,
		},
		{
			name:   "recaptcha widget",
			resp:   &http.Response{StatusCode: 200, Header: http.Header{}},
			body:   `<div class="g-recaptcha" data-sitekey="x"></div>`,
			expect: BlockCaptcha,
		},
		{
			name:   "noscript shell",
			resp:   &http.Response{StatusCode: 200, Header: http.Header{}},
			body:   `<html><noscript>Please enable JavaScript to continue.</noscript></html>`,
			expect: BlockJSShell,
		},
		{
			name:   "meta refresh shell",
			resp:   &http.Response{StatusCode: 200, Header: http.Header{}},
			body:   `<meta http-equiv="refresh" content="0;url=/app">`,
			expect: BlockJSShell,
		},
		{
			name:   "large page with noscript is fine",
			resp:   &http.Response{StatusCode: 200, Header: http.Header{}},
			body:   `<noscript>enable javascript</noscript>` + strings.Repeat("<p>content</p>", 300),
			expect: BlockNone,
		},
		{
			name:   "plain 403 without cloudflare",
			resp:   &http.Response{StatusCode: 403, Header: http.Header{}},
			body:   "forbidden",
			expect: BlockNone,
		},
		{
			name:   "clean page",
			resp:   &http.Response{StatusCode: 200, Header: http.Header{}},
			body:   "<html><body><h1>Secure file transfer for teams</h1></body></html>",
			expect: BlockNone,
		},
		{
			name:   "nil response",
			expect: BlockNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expect, DetectBlock(tt.resp, []byte(tt.body)))
		})
	}
}
