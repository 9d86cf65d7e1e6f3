package model

import "strings"

// FeatureAnswer is the verdict for one feature on one page.
type FeatureAnswer string

const (
	AnswerYes    FeatureAnswer = "Yes"
	AnswerNo     FeatureAnswer = "No"
	AnswerUnsure FeatureAnswer = "Unsure"

	// AnswerError marks a page whose text could not be fetched.
	AnswerError FeatureAnswer = "Error"
	// AnswerAIError marks a page whose model call failed.
	AnswerAIError FeatureAnswer = "AI Error"
)

// Sentinel values written where a real value could not be produced.
const (
	ScrapeFailed  = "Scrape Failed"
	AIDataMissing = "AI data missing"
	AIError       = "AI Error"
	ErrorValue    = "Error"
)

// ParseFeatureAnswer normalises a model-supplied answer. Anything that is
// not recognisably yes or no becomes Unsure.
func ParseFeatureAnswer(s string) FeatureAnswer {
	switch strings.ToLower(strings.Trim(strings.TrimSpace(s), ".!\"'")) {
	case "yes", "y", "true":
		return AnswerYes
	case "no", "n", "false":
		return AnswerNo
	default:
		return AnswerUnsure
	}
}

// FeatureVerdict is the answer plus a short justification.
type FeatureVerdict struct {
	Feature string        `json:"feature"`
	Answer  FeatureAnswer `json:"answer"`
	Reason  string        `json:"reason"`
}

// FeatureAnalysis holds every verdict for one seed URL.
type FeatureAnalysis struct {
	URL      string           `json:"url"`
	Verdicts []FeatureVerdict `json:"verdicts"`
}

// Verdict returns the verdict for a feature by name.
func (a FeatureAnalysis) Verdict(feature string) (FeatureVerdict, bool) {
	for _, v := range a.Verdicts {
		if v.Feature == feature {
			return v, true
		}
	}
	return FeatureVerdict{}, false
}

// ProductInfo summarises what a vendor sells.
type ProductInfo struct {
	URL         string   `json:"url"`
	CompanyName string   `json:"company_name"`
	ProductName string   `json:"product_name"`
	Description string   `json:"description"`
	Features    []string `json:"features"`
}

// FeatureBullets renders the feature list as a single cell.
func (p ProductInfo) FeatureBullets() string {
	if len(p.Features) == 0 {
		return ""
	}
	parts := make([]string, len(p.Features))
	for i, f := range p.Features {
		parts[i] = "• " + f
	}
	return strings.Join(parts, " | ")
}

// CaseStudyAnalysis is the deep-scan result for one case-study page.
type CaseStudyAnalysis struct {
	URL                  string `json:"url"`
	HasGovernmentMention bool   `json:"has_government_mention"`
	Summary              string `json:"summary"`
	GovernmentURL        bool   `json:"government_url"`
}

// GovFlag renders the government mention as the report's YES/NO cell.
func (c CaseStudyAnalysis) GovFlag() string {
	if c.HasGovernmentMention {
		return "YES"
	}
	return "NO"
}

// PricingRecord is the extracted and standardized pricing of one page.
type PricingRecord struct {
	URL             string   `json:"url"`
	OriginalFound   string   `json:"original_found"`
	Model           string   `json:"model"`
	Other           string   `json:"other,omitempty"`
	BillingType     string   `json:"billing_type,omitempty"`
	StartingPrice   string   `json:"starting_price,omitempty"`
	FreeTrial       bool     `json:"free_trial"`
	ContactForQuote bool     `json:"contact_for_quote"`
	Tiers           []string `json:"tiers,omitempty"`
}

// Summary renders the record as "model (price)".
func (p PricingRecord) Summary() string {
	price := p.StartingPrice
	if price == "" {
		price = "N/A"
	}
	return p.Model + " (" + price + ")"
}
