package extract

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/sells-group/market-research/internal/gateway"
	"github.com/sells-group/market-research/internal/model"
)

const featureRules = `Evaluation Rules:
1. Answer "Yes" only if the "Yes" indicators are found.
2. Answer "No" if the exclusion indicators are found or the feature is explicitly absent.
3. Answer "Unsure" if the text is vague or does not provide enough specific evidence.

Return ONLY valid JSON in this exact format:
{"results": {"Feature Name": {"answer": "Yes/No/Unsure", "reason": "Max 10 words reason"}}}`

// Reasons written when no per-feature reason exists.
const (
	reasonInvalidJSON = "Invalid AI response format"
	reasonCallFailed  = "Error during analysis"
)

// AnalyzeFeatures asks the model whether the page offers each feature.
// The result always has one verdict per feature, in rubric order.
func (e *Extractor) AnalyzeFeatures(ctx context.Context, url, text string, landscape model.Landscape, features []model.FeatureSpec) model.FeatureAnalysis {
	if strings.TrimSpace(text) == "" {
		return uniform(url, features, model.AnswerError, model.ScrapeFailed)
	}

	reply, err := e.gen.Generate(ctx, gateway.Request{
		Task:        "features",
		System:      featureSystemPrompt(landscape, features),
		CacheSystem: true,
		Prompt:      fmt.Sprintf("URL: %s\n\nWebsite Content:\n%s", url, head(text, FeatureBudget)),
		Format:      gateway.FormatJSON,
	})
	if err != nil {
		e.log.Warn("extract: feature analysis failed", zap.String("url", url), zap.Error(err))
		return uniform(url, features, model.AnswerAIError, reasonCallFailed)
	}

	obj, ok := parseObject(reply)
	if !ok {
		e.log.Warn("extract: feature reply is not json", zap.String("url", url))
		return uniform(url, features, model.AnswerUnsure, reasonInvalidJSON)
	}

	results := make(map[string]gjson.Result)
	obj.Get("results").ForEach(func(k, v gjson.Result) bool {
		results[k.String()] = v
		return true
	})

	analysis := model.FeatureAnalysis{URL: url, Verdicts: make([]model.FeatureVerdict, 0, len(features))}
	for _, f := range features {
		v, found := lookupFeature(results, f.Name)
		if !found {
			analysis.Verdicts = append(analysis.Verdicts, model.FeatureVerdict{
				Feature: f.Name,
				Answer:  model.AnswerUnsure,
				Reason:  model.AIDataMissing,
			})
			continue
		}
		answer, reason := v.Get("answer").String(), v.Get("reason").String()
		if v.Type == gjson.String {
			answer, reason = v.String(), ""
		}
		analysis.Verdicts = append(analysis.Verdicts, model.FeatureVerdict{
			Feature: f.Name,
			Answer:  model.ParseFeatureAnswer(answer),
			Reason:  cleanText(reason),
		})
	}
	return analysis
}

func featureSystemPrompt(landscape model.Landscape, features []model.FeatureSpec) string {
	var b strings.Builder
	b.WriteString("Role: Professional Market Researcher\n")
	fmt.Fprintf(&b, "Context: Analyzing companies for the %q landscape.", landscape.Name)
	if landscape.Description != "" {
		fmt.Fprintf(&b, " %s", landscape.Description)
	}
	b.WriteString("\n\nTask: Determine if the website provides the following features based on the criteria below.\n")
	for _, f := range features {
		fmt.Fprintf(&b, "\nFEATURE: %s\n- Definition: %s\n- \"Yes\" Indicators: %s\n- \"No\" Indicators/Exclusions: %s\n",
			f.Name, f.Definition, f.YesIndicators, f.NoIndicators)
	}
	b.WriteString("\n")
	b.WriteString(featureRules)
	return b.String()
}

// lookupFeature finds a feature's entry by exact key, then case- and
// whitespace-insensitive equality, then case-insensitive containment in either
// direction. Keys are tried in sorted order so the match is stable.
func lookupFeature(results map[string]gjson.Result, name string) (gjson.Result, bool) {
	if v, ok := results[name]; ok {
		return v, true
	}

	keys := make([]string, 0, len(results))
	for k := range results {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	want := normalizeKey(name)
	for _, k := range keys {
		if normalizeKey(k) == want {
			return results[k], true
		}
	}
	if want == "" {
		return gjson.Result{}, false
	}
	for _, k := range keys {
		lk := normalizeKey(k)
		if lk == "" {
			continue
		}
		if strings.Contains(lk, want) || strings.Contains(want, lk) {
			return results[k], true
		}
	}
	return gjson.Result{}, false
}

// normalizeKey lower-cases s and collapses runs of whitespace.
func normalizeKey(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func uniform(url string, features []model.FeatureSpec, answer model.FeatureAnswer, reason string) model.FeatureAnalysis {
	a := model.FeatureAnalysis{URL: url, Verdicts: make([]model.FeatureVerdict, 0, len(features))}
	for _, f := range features {
		a.Verdicts = append(a.Verdicts, model.FeatureVerdict{Feature: f.Name, Answer: answer, Reason: reason})
	}
	return a
}
