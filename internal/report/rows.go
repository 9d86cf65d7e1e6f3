package report

import (
	"strings"

	"github.com/sells-group/market-research/internal/model"
)

type productRow struct {
	URL         string `csv:"URL"`
	CompanyName string `csv:"Company Name"`
	ProductName string `csv:"Product Name"`
	Description string `csv:"Description"`
	Features    string `csv:"Features"`
}

func productRows(products []model.ProductInfo) []productRow {
	rows := make([]productRow, 0, len(products))
	for _, p := range products {
		rows = append(rows, productRow{
			URL:         p.URL,
			CompanyName: p.CompanyName,
			ProductName: p.ProductName,
			Description: p.Description,
			Features:    p.FeatureBullets(),
		})
	}
	return rows
}

type deepCrawlRow struct {
	Domain           string `csv:"Domain"`
	TotalURLs        int    `csv:"Total URLs"`
	Source           string `csv:"Discovery Source"`
	CaseStudiesFound int    `csv:"Case Studies Found"`
	VerifiedStudies  string `csv:"Verified Case Studies"`
	PricingPages     int    `csv:"Pricing Pages"`
	PricingInfo      string `csv:"Pricing Info"`
	Error            string `csv:"Error"`
}

func deepCrawlRows(results []model.DomainCrawlResult) []deepCrawlRow {
	rows := make([]deepCrawlRow, 0, len(results))
	for _, r := range results {
		studies := make([]string, 0, len(r.CaseStudies))
		for _, c := range r.CaseStudies {
			studies = append(studies, "["+c.GovFlag()+"] "+c.URL+" - "+c.Summary)
		}
		pricing := make([]string, 0, len(r.Pricing))
		for _, p := range r.Pricing {
			pricing = append(pricing, p.Summary())
		}
		rows = append(rows, deepCrawlRow{
			Domain:           r.Domain,
			TotalURLs:        r.TotalURLs,
			Source:           string(r.Source),
			CaseStudiesFound: r.CaseStudiesFound,
			VerifiedStudies:  joinEntries(studies),
			PricingPages:     r.PricingFound,
			PricingInfo:      joinEntries(pricing),
			Error:            r.Error,
		})
	}
	return rows
}

type caseStudyRow struct {
	Domain        string `csv:"Domain"`
	URL           string `csv:"URL"`
	Government    string `csv:"Government Mention"`
	GovernmentURL bool   `csv:"Government URL"`
	Summary       string `csv:"Summary"`
}

func caseStudyRows(results []model.DomainCrawlResult) []caseStudyRow {
	var rows []caseStudyRow
	for _, r := range results {
		for _, c := range r.CaseStudies {
			rows = append(rows, caseStudyRow{
				Domain:        r.Domain,
				URL:           c.URL,
				Government:    c.GovFlag(),
				GovernmentURL: c.GovernmentURL,
				Summary:       c.Summary,
			})
		}
	}
	return rows
}

type pricingRow struct {
	Domain          string `csv:"Domain"`
	URL             string `csv:"URL"`
	Model           string `csv:"Pricing Model"`
	Other           string `csv:"Other"`
	BillingType     string `csv:"Billing Type"`
	Tiers           string `csv:"Tiers"`
	StartingPrice   string `csv:"Starting Price"`
	FreeTrial       bool   `csv:"Free Trial"`
	ContactForQuote bool   `csv:"Contact for Quote"`
	Original        string `csv:"Original Description"`
}

func pricingRows(results []model.DomainCrawlResult) []pricingRow {
	var rows []pricingRow
	for _, r := range results {
		for _, p := range r.Pricing {
			rows = append(rows, pricingRow{
				Domain:          r.Domain,
				URL:             p.URL,
				Model:           p.Model,
				Other:           p.Other,
				BillingType:     p.BillingType,
				Tiers:           strings.Join(p.Tiers, "; "),
				StartingPrice:   p.StartingPrice,
				FreeTrial:       p.FreeTrial,
				ContactForQuote: p.ContactForQuote,
				Original:        p.OriginalFound,
			})
		}
	}
	return rows
}

type urlSummaryRow struct {
	Domain         string `csv:"Domain"`
	TotalURLs      int    `csv:"Total URLs Found"`
	CaseStudyURLs  int    `csv:"Case Study URLs"`
	PricingURLs    int    `csv:"Pricing URLs"`
	GovernmentURLs int    `csv:"Government URLs"`
}

// urlSummaryRows skips failed domains.
func urlSummaryRows(results []model.DomainCrawlResult) []urlSummaryRow {
	var rows []urlSummaryRow
	for _, r := range results {
		if r.Failed() {
			continue
		}
		rows = append(rows, urlSummaryRow{
			Domain:         r.Domain,
			TotalURLs:      r.TotalURLs,
			CaseStudyURLs:  r.CaseStudiesFound,
			PricingURLs:    r.PricingFound,
			GovernmentURLs: r.GovernmentFound,
		})
	}
	return rows
}
