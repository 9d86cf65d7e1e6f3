package extract

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/market-research/internal/gateway"
	"github.com/sells-group/market-research/internal/model"
)

const deepScanPrompt = `Analyze this case study: %s

1. Does it explicitly mention Government, Municipality, County, Town, City, State or Public Sector clients? (boolean)
2. Provide a 1-sentence summary of the client and result (max 25 words).

Return JSON:
{"has_government_mention": boolean, "analysis": "Short 1-sentence summary."}

Content:
%s`

// DeepScan summarises a case-study page and flags government clients.
// It returns nil when the page cannot be analysed.
func (e *Extractor) DeepScan(ctx context.Context, pageURL, text string) *model.CaseStudyAnalysis {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	reply, err := e.gen.Generate(ctx, gateway.Request{
		Task:   "deep_scan",
		Prompt: fmt.Sprintf(deepScanPrompt, pageURL, head(text, DeepScanBudget)),
		Format: gateway.FormatJSON,
	})
	if err != nil {
		e.log.Warn("extract: deep scan failed", zap.String("url", pageURL), zap.Error(err))
		return nil
	}
	obj, ok := parseObject(reply)
	if !ok {
		e.log.Warn("extract: deep scan reply is not json", zap.String("url", pageURL))
		return nil
	}

	return &model.CaseStudyAnalysis{
		URL:                  pageURL,
		HasGovernmentMention: obj.Get("has_government_mention").Bool(),
		Summary:              limitWords(obj.Get("analysis").String(), maxSummaryWords),
	}
}
