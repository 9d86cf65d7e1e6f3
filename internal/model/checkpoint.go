package model

import "time"

// DomainCrawlResult is the aggregated crawl outcome for one domain.
// A non-empty Error marks a domain whose processing failed.
type DomainCrawlResult struct {
	Domain           string              `json:"domain"`
	TotalURLs        int                 `json:"total_urls"`
	Source           DiscoverySource     `json:"source,omitempty"`
	CaseStudiesFound int                 `json:"case_studies_found"`
	PricingFound     int                 `json:"pricing_pages_found"`
	GovernmentFound  int                 `json:"government_urls_found"`
	CaseStudies      []CaseStudyAnalysis `json:"case_studies"`
	Pricing          []PricingRecord     `json:"pricing"`
	Error            string              `json:"error,omitempty"`
}

// Failed reports whether this entry records a domain-level failure.
func (r DomainCrawlResult) Failed() bool {
	return r.Error != ""
}

// Checkpoint is the persisted progress of a crawl phase.
type Checkpoint struct {
	RunKey           string              `json:"run_key,omitempty"`
	CompletedDomains int                 `json:"completed_domains"`
	TotalDomains     int                 `json:"total_domains"`
	Results          []DomainCrawlResult `json:"results"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// NewCheckpoint creates an empty checkpoint for total domains.
func NewCheckpoint(runKey string, total int) *Checkpoint {
	return &Checkpoint{
		RunKey:       runKey,
		TotalDomains: total,
		Results:      []DomainCrawlResult{},
	}
}

// Record appends a finished domain and advances the completed count.
func (c *Checkpoint) Record(r DomainCrawlResult) {
	c.Results = append(c.Results, r)
	c.CompletedDomains = len(c.Results)
	c.UpdatedAt = time.Now().UTC()
}

// Has reports whether domain already has a recorded result.
func (c *Checkpoint) Has(domain string) bool {
	for _, r := range c.Results {
		if r.Domain == domain {
			return true
		}
	}
	return false
}

// Done reports whether every domain has been recorded.
func (c *Checkpoint) Done() bool {
	return c.CompletedDomains >= c.TotalDomains
}

// Report bundles everything a research run produced.
type Report struct {
	Job        *Job              `json:"job"`
	Features   []FeatureAnalysis `json:"features,omitempty"`
	Products   []ProductInfo     `json:"products,omitempty"`
	Checkpoint *Checkpoint       `json:"checkpoint,omitempty"`
}
