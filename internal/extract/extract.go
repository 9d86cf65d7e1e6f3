// Package extract turns page text into structured research records by
// prompting the model gateway. Every task degrades to a sentinel value
// instead of returning an error.
package extract

import (
	"context"
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/sells-group/market-research/internal/gateway"
)

// Text budgets per task, in runes.
const (
	FeatureBudget  = 8000
	ProductBudget  = 10000
	IdentityHead   = 2000
	IdentityTail   = 2000
	DeepScanBudget = 6000
	PricingBudget  = 8000

	maxProductFeatures = 8
	maxSummaryWords    = 25
)

// Generator is the subset of the gateway the tasks need.
type Generator interface {
	Generate(ctx context.Context, req gateway.Request) (string, error)
}

// Extractor runs the extraction tasks against one shared generator.
type Extractor struct {
	gen Generator
	log *zap.Logger
}

// New creates an Extractor.
func New(gen Generator) *Extractor {
	return &Extractor{
		gen: gen,
		log: zap.L().With(zap.String("component", "extract")),
	}
}

// cleanJSON strips markdown fences and surrounding prose from a model
// reply, leaving the outermost object.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```JSON")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}

// parseObject decodes a model reply into a JSON object. ok is false when
// the reply holds no valid object.
func parseObject(reply string) (gjson.Result, bool) {
	cleaned := cleanJSON(reply)
	if !gjson.Valid(cleaned) {
		return gjson.Result{}, false
	}
	obj := gjson.Parse(cleaned)
	if !obj.IsObject() {
		return gjson.Result{}, false
	}
	return obj, true
}

// head returns the first n runes of s.
func head(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// tail returns the last n runes of s.
func tail(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func limitWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}
