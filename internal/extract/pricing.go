package extract

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/sells-group/market-research/internal/gateway"
	"github.com/sells-group/market-research/internal/model"
)

// MappingTable lists raw pricing descriptions and the standardized labels
// they translate to. It is embedded in the pricing prompt and parsed by
// Standardize, so both always agree.
const MappingTable = `- Add-on based -> Change To: Add-on pricing | Other: Add-ons available. | Billing: Quarterly or annual billing.
- All in one platform -> Change To: All-in-one platform pricing | Other: Price per device | Billing: Monthly or Annually.
- All-in-one -> Change To: All-in-one platform pricing | Billing: Annual Billing.
- Annual -> Change To: Subscription-based. | Billing: Monthly.
- Consumption-based -> Change To: Usage-based pricing
- Custom / Custom model / N/A / Unknown -> Change To: Custom pricing
- Device-based -> Change To: Device-based pricing
- Enterprise -> Change To: Custom pricing (enterprise)
- Feature and user based -> Change To: Hybrid pricing (features + users)
- Feature based / Features-based -> Change To: Feature-based pricing
- Fee for each transaction / Per transaction -> Change To: Transaction-based pricing
- Free -> Change To: Free tier available
- Freemium -> Change To: Freemium model
- Hybrid -> Change To: Hybrid pricing model
- Lifetime / One-time -> Change To: One-time license
- Module based -> Change To: Module-based pricing
- Monthly / Recurring / SaaS / SAAS / Subscription -> Change To: Subscription-based.
- Package with add-ons / Packages + add-ons -> Change To: Packages with optional add-ons
- Package-based -> Change To: Package-based pricing
- Pay-as-you-go / Usage-based -> Change To: Usage-based pricing
- Per site pricing -> Change To: Site-based pricing
- Per user / Per-user / User-based -> Change To: Per-user pricing
- Tiered / Tiered model / Tiered pricing -> Change To: Tiered pricing`

const pricingPrompt = `Analyze the pricing for: %s

Step 1: Determine the actual pricing model used on the site.
Step 2: Use the Mapping Instructions below to translate it into the target format.

Mapping Instructions:
Map the website's pricing model to these 'Standardized Formats':
%s

Return JSON:
{"original_found": "Brief description of what you found on site", "standardized_change_to": "The 'Change To' value from mapping", "standardized_other": "The 'Other' value from mapping if applicable, else null", "standardized_billing_type": "The 'Billing' value from mapping if applicable, else null", "starting_price": "e.g. $10/mo or 'Contact Sales'", "free_trial": boolean, "contact_for_quote": boolean, "tiers": ["Tier name"]}

Content:
%s`

// Standard is one row of the mapping table's target side.
type Standard struct {
	ChangeTo string
	Other    string
	Billing  string
}

var (
	standardsOnce sync.Once
	standards     map[string]Standard
)

func loadStandards() {
	standards = make(map[string]Standard)
	for _, line := range strings.Split(MappingTable, "\n") {
		line = strings.TrimPrefix(strings.TrimSpace(line), "- ")
		sources, target, ok := strings.Cut(line, " -> ")
		if !ok {
			continue
		}
		var s Standard
		for _, part := range strings.Split(target, " | ") {
			key, val, _ := strings.Cut(part, ":")
			val = strings.TrimSpace(val)
			switch strings.TrimSpace(key) {
			case "Change To":
				s.ChangeTo = val
			case "Other":
				s.Other = val
			case "Billing":
				s.Billing = val
			}
		}
		for _, src := range strings.Split(sources, " / ") {
			standards[normalizePhrase(src)] = s
		}
	}
}

func normalizePhrase(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Standardize maps a raw pricing description that exactly matches a
// table source phrase (ignoring case and surrounding space) to its
// standardized labels.
func Standardize(description string) (Standard, bool) {
	standardsOnce.Do(loadStandards)
	s, ok := standards[normalizePhrase(description)]
	return s, ok
}

// ExtractPricing reads a pricing page into a standardized record. It
// returns nil when the page cannot be analysed.
func (e *Extractor) ExtractPricing(ctx context.Context, pageURL, text string) *model.PricingRecord {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	reply, err := e.gen.Generate(ctx, gateway.Request{
		Task:   "pricing",
		Prompt: fmt.Sprintf(pricingPrompt, pageURL, MappingTable, head(text, PricingBudget)),
		Format: gateway.FormatJSON,
	})
	if err != nil {
		e.log.Warn("extract: pricing failed", zap.String("url", pageURL), zap.Error(err))
		return nil
	}
	obj, ok := parseObject(reply)
	if !ok {
		e.log.Warn("extract: pricing reply is not json", zap.String("url", pageURL))
		return nil
	}

	rec := &model.PricingRecord{
		URL:             pageURL,
		OriginalFound:   cleanText(obj.Get("original_found").String()),
		Model:           cleanText(obj.Get("standardized_change_to").String()),
		Other:           cleanText(obj.Get("standardized_other").String()),
		BillingType:     cleanText(obj.Get("standardized_billing_type").String()),
		StartingPrice:   cleanText(obj.Get("starting_price").String()),
		FreeTrial:       obj.Get("free_trial").Bool(),
		ContactForQuote: obj.Get("contact_for_quote").Bool(),
	}
	for _, t := range obj.Get("tiers").Array() {
		if name := cleanText(t.String()); name != "" {
			rec.Tiers = append(rec.Tiers, name)
		}
	}

	if rec.Model == "" {
		if s, ok := Standardize(rec.OriginalFound); ok {
			rec.Model = s.ChangeTo
			if rec.Other == "" {
				rec.Other = s.Other
			}
			if rec.BillingType == "" {
				rec.BillingType = s.Billing
			}
		}
	}
	return rec
}
