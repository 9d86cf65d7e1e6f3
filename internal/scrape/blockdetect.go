package scrape

import (
	"net/http"
	"strings"
)

// BlockType describes an anti-bot response.
type BlockType string

const (
	BlockNone       BlockType = ""
	BlockCloudflare BlockType = "cloudflare"
	BlockCaptcha    BlockType = "captcha"
	BlockJSShell    BlockType = "js_shell"
)

// jsShellLimit is the body size under which a noscript or refresh page
// is treated as an empty shell.
const jsShellLimit = 2000

// DetectBlock reports whether resp and body look like a challenge page
// instead of real content.
func DetectBlock(resp *http.Response, body []byte) BlockType {
	if resp == nil {
		return BlockNone
	}

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusServiceUnavailable {
		if resp.Header.Get("cf-ray") != "" || strings.EqualFold(resp.Header.Get("server"), "cloudflare") {
			return BlockCloudflare
		}
	}

	lower := strings.ToLower(string(body))

	switch {
	case strings.Contains(lower, "checking your browser"),
		strings.Contains(lower, "cf-browser-verification"),
		strings.Contains(lower, "cf-challenge"):
		return BlockCloudflare
	case strings.Contains(lower, "g-recaptcha"),
		strings.Contains(lower, "h-captcha"),
		strings.Contains(lower, "captcha-container"):
		return BlockCaptcha
	}

	if len(body) < jsShellLimit {
		if strings.Contains(lower, "<noscript") && strings.Contains(lower, "enable javascript") {
			return BlockJSShell
		}
		if strings.Contains(lower, `http-equiv="refresh"`) {
			return BlockJSShell
		}
	}

	return BlockNone
}
