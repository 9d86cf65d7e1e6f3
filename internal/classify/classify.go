// Package classify sorts discovered URLs into case-study, pricing and
// government candidate buckets by keywords in their paths.
package classify

import (
	"net/url"
	"strings"

	"github.com/sells-group/market-research/internal/model"
)

// Keyword lists are matched as lowercase substrings of the URL path.
var (
	CaseStudyKeywords = []string{
		"case-stud", "case_stud", "customer-stor", "success-stor", "client-stor",
		"testimonial", "reviews", "customers/", "/stories", "use-case",
		"/clients/", "/portfolio/",
	}
	PricingKeywords = []string{
		"pricing", "plans", "price", "cost", "quote", "get-started", "buy",
		"purchase", "/fees", "/packages", "/subscription",
	}
	GovernmentKeywords = []string{
		"government", "gov", "public-sector", "public_sector", "municipal",
		"city", "county", "federal", "state", "agency", "civic",
	}
)

// Classify buckets urls that belong to baseDomain (a host or
// "scheme://host"; subdomains count). Order is preserved and duplicates
// are dropped. Government holds only URLs that are also case studies.
func Classify(urls []string, baseDomain string) model.Buckets {
	base := hostOf(baseDomain)
	b := model.Buckets{
		CaseStudies: []string{},
		Pricing:     []string{},
		Government:  []string{},
	}

	seen := make(map[string]struct{}, len(urls))
	for _, raw := range urls {
		if _, ok := seen[raw]; ok {
			continue
		}
		seen[raw] = struct{}{}

		u, err := url.Parse(strings.TrimSpace(raw))
		if err != nil || u.Host == "" {
			continue
		}
		if base != "" && !sameSite(hostOf(u.Host), base) {
			continue
		}

		p := strings.ToLower(u.Path)
		if containsAny(p, CaseStudyKeywords) {
			b.CaseStudies = append(b.CaseStudies, raw)
			if containsAny(p, GovernmentKeywords) {
				b.Government = append(b.Government, raw)
			}
		}
		if containsAny(p, PricingKeywords) {
			b.Pricing = append(b.Pricing, raw)
		}
	}
	return b
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

// hostOf returns the lowercased host of a URL or bare host, without port
// or a leading "www.".
func hostOf(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if strings.Contains(s, "://") {
		if u, err := url.Parse(s); err == nil {
			s = u.Host
		}
	}
	if h, _, ok := strings.Cut(s, ":"); ok {
		s = h
	}
	s = strings.TrimSuffix(s, "/")
	return strings.TrimPrefix(s, "www.")
}

func sameSite(host, base string) bool {
	return host == base || strings.HasSuffix(host, "."+base)
}
