package scrape

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/market-research/pkg/jina"
)

// challengeSignatures mark reader output that is an interstitial rather
// than page content.
var challengeSignatures = []string{
	"checking your browser",
	"enable javascript",
	"please enable cookies",
	"access denied",
	"403 forbidden",
	"just a moment",
	"attention required",
}

// JinaSource adapts the Jina reader to TextSource.
type JinaSource struct {
	client jina.Client
}

// NewJinaSource wraps client.
func NewJinaSource(client jina.Client) *JinaSource {
	return &JinaSource{client: client}
}

// Read returns the reader's text for targetURL, rejecting challenge pages
// and empty output.
func (j *JinaSource) Read(ctx context.Context, targetURL string) (string, error) {
	resp, err := j.client.Read(ctx, targetURL)
	if err != nil {
		return "", err
	}
	if unusable(resp) {
		return "", eris.Errorf("jina: unusable content for %s", targetURL)
	}
	return resp.Data.Content, nil
}

func unusable(resp *jina.ReadResponse) bool {
	if resp == nil {
		return true
	}
	if resp.Code != 0 && resp.Code != 200 {
		return true
	}

	content := strings.TrimSpace(resp.Data.Content)
	if len(content) < 50 {
		return true
	}
	if len(content) >= 1000 {
		return false
	}

	lower := strings.ToLower(content)
	for _, sig := range challengeSignatures {
		if strings.Contains(lower, sig) {
			return true
		}
	}
	return false
}
