package model

import "time"

// DiscoverySource records how a domain's URL set was obtained.
type DiscoverySource string

const (
	SourceSitemap       DiscoverySource = "sitemap"
	SourceSitemapIndex  DiscoverySource = "sitemap_index_expanded"
	SourceHomepageCrawl DiscoverySource = "homepage_crawl"
	SourceNone          DiscoverySource = "none"
)

// Discovery is the URL set found for one domain.
type Discovery struct {
	Domain string          `json:"domain"`
	URLs   []string        `json:"urls"`
	Source DiscoverySource `json:"source"`
}

// DiscoveryCache stores a cached discovery result.
type DiscoveryCache struct {
	ID        string    `json:"id"`
	Domain    string    `json:"domain"`
	Discovery Discovery `json:"discovery"`
	CachedAt  time.Time `json:"cached_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Buckets partitions discovered URLs into candidate categories.
// Government is always a subset of CaseStudies.
type Buckets struct {
	CaseStudies []string `json:"case_studies"`
	Pricing     []string `json:"pricing"`
	Government  []string `json:"government"`
}

// IsGovernment reports whether url was flagged as a government case study.
func (b Buckets) IsGovernment(url string) bool {
	for _, g := range b.Government {
		if g == url {
			return true
		}
	}
	return false
}
