package extract

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/market-research/internal/gateway"
	"github.com/sells-group/market-research/internal/model"
)

const productPrompt = `Analyze content for %q, %q.
URL: %s

Extract the product information. For "features", list ONLY the names of the core capabilities or modules mentioned (e.g. "Flight Automation"), at most %d. Do not include descriptions, explanations or long sentences.

Return JSON:
{"product_name": "Name", "description": "One single concise sentence summary", "features": ["Feature Name 1", "Feature Name 2"]}

Content:
%s`

const identityPrompt = `Task: Identify the official Company Name.
URL: %s
Domain Hint: %s

Instructions:
1. Look at the Header area for brand names.
2. Look at the Footer for copyright notices (e.g. "© 2024 [Company Name] Inc.").
3. If the brand name differs from the domain, prioritize the brand name found in the content.

Return JSON:
{"company_name": "The official name", "confidence_source": "header/footer/domain/content"}

Content (header and footer):
%s`

// ExtractProduct returns what the vendor at url sells. The company name
// comes from IdentifyCompany.
func (e *Extractor) ExtractProduct(ctx context.Context, pageURL, text string, landscape model.Landscape) model.ProductInfo {
	info := model.ProductInfo{URL: pageURL}
	if strings.TrimSpace(text) == "" {
		info.CompanyName = DomainCompanyName(pageURL)
		info.ProductName = model.ScrapeFailed
		info.Description = model.ScrapeFailed
		return info
	}

	info.CompanyName = e.IdentifyCompany(ctx, pageURL, text)

	reply, err := e.gen.Generate(ctx, gateway.Request{
		Task:   "product",
		Prompt: fmt.Sprintf(productPrompt, landscape.Name, landscape.Description, pageURL, maxProductFeatures, head(text, ProductBudget)),
		Format: gateway.FormatJSON,
	})
	if err != nil {
		e.log.Warn("extract: product extraction failed", zap.String("url", pageURL), zap.Error(err))
		info.ProductName = model.AIError
		info.Description = model.ErrorValue
		return info
	}

	name, desc, feats, ok := parseProduct(reply)
	if !ok {
		e.log.Warn("extract: product reply unparseable", zap.String("url", pageURL))
		info.ProductName = model.AIError
		info.Description = model.ErrorValue
		return info
	}
	if name == "" {
		name = "Not specified"
	}
	info.ProductName = name
	info.Description = desc
	info.Features = feats
	return info
}

// parseProduct reads the JSON reply, falling back to the labelled-line
// layout ("Product Name: ...", "Features:" then bullets) some replies use.
func parseProduct(reply string) (name, desc string, feats []string, ok bool) {
	if obj, isObj := parseObject(reply); isObj {
		name = cleanText(obj.Get("product_name").String())
		desc = cleanText(obj.Get("description").String())
		for _, f := range obj.Get("features").Array() {
			feats = appendFeature(feats, f.String())
		}
		return name, desc, feats, true
	}

	inFeatures := false
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "Product Name:"):
			name = cleanText(strings.TrimPrefix(line, "Product Name:"))
			ok = true
		case strings.HasPrefix(line, "Description:"):
			desc = cleanText(strings.TrimPrefix(line, "Description:"))
			ok = true
		case strings.HasPrefix(line, "Features:"):
			inFeatures = true
		case inFeatures && (strings.HasPrefix(line, "•") || strings.HasPrefix(line, "-") || strings.HasPrefix(line, "*")):
			feats = appendFeature(feats, strings.TrimLeft(line, "•-* "))
		}
	}
	return name, desc, feats, ok
}

// appendFeature adds the name part of a feature ("Name: explanation")
// until the list is full.
func appendFeature(feats []string, raw string) []string {
	if len(feats) >= maxProductFeatures {
		return feats
	}
	name, _, _ := strings.Cut(raw, ":")
	name = cleanText(name)
	if name == "" {
		return feats
	}
	return append(feats, name)
}

// IdentifyCompany asks the model for the official company name, looking at
// the head and tail of the page where brand and copyright usually appear.
// It falls back to DomainCompanyName.
func (e *Extractor) IdentifyCompany(ctx context.Context, pageURL, text string) string {
	fallback := DomainCompanyName(pageURL)
	if strings.TrimSpace(text) == "" {
		return fallback
	}

	content := text
	if len([]rune(text)) > IdentityHead+IdentityTail {
		content = head(text, IdentityHead) + "\n...\n" + tail(text, IdentityTail)
	}

	reply, err := e.gen.Generate(ctx, gateway.Request{
		Task:   "identity",
		Prompt: fmt.Sprintf(identityPrompt, pageURL, fallback, content),
		Format: gateway.FormatJSON,
	})
	if err != nil {
		e.log.Debug("extract: identity failed, using domain", zap.String("url", pageURL), zap.Error(err))
		return fallback
	}
	obj, ok := parseObject(reply)
	if !ok {
		return fallback
	}
	if name := cleanText(obj.Get("company_name").String()); name != "" {
		return name
	}
	return fallback
}

var titleCaser = cases.Title(language.English)

// DomainCompanyName derives a company name from the first label of the
// URL's host, e.g. "https://www.acme.com" gives "Acme".
func DomainCompanyName(pageURL string) string {
	host := pageURL
	if u, err := url.Parse(pageURL); err == nil && u.Host != "" {
		host = u.Hostname()
	}
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	label, _, _ := strings.Cut(host, ".")
	if label == "" {
		return ""
	}
	return titleCaser.String(label)
}
