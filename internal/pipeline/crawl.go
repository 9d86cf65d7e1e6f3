package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/market-research/internal/classify"
	"github.com/sells-group/market-research/internal/model"
	"github.com/sells-group/market-research/internal/resilience"
)

var errEmptyPage = eris.New("pipeline: empty page")

// Domains returns the unique scheme://host origins of urls in first-seen
// order. Unparsable or host-less URLs are dropped.
func Domains(urls []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, raw := range urls {
		u, err := url.Parse(strings.TrimSpace(raw))
		if err != nil || u.Host == "" {
			continue
		}
		scheme := u.Scheme
		if scheme == "" {
			scheme = "https"
		}
		d := scheme + "://" + u.Host
		if seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	return out
}

// Crawl discovers, classifies and deep-scans every seed domain, saving
// the checkpoint after each one. On cancellation the checkpoint so far is
// returned with the context error; the domain in flight is dropped.
func (p *Pipeline) Crawl(ctx context.Context, job *model.Job) (*model.Checkpoint, error) {
	runKey := job.Landscape.RunKey()
	domains := Domains(job.URLs)
	cp := p.startCheckpoint(ctx, runKey, domains)

	for i, domain := range domains {
		if cp.Has(domain) {
			p.log.Info("pipeline: skipping completed domain", zap.String("domain", domain))
			continue
		}
		if err := ctx.Err(); err != nil {
			return cp, eris.Wrap(err, "pipeline: crawl cancelled")
		}

		p.log.Info("pipeline: crawling domain",
			zap.String("domain", domain),
			zap.Int("n", i+1),
			zap.Int("of", len(domains)),
		)
		res := p.crawlDomain(ctx, domain)
		if err := ctx.Err(); err != nil {
			return cp, eris.Wrap(err, "pipeline: crawl cancelled")
		}

		cp.Record(res)
		p.saveCheckpoint(ctx, runKey, cp)
	}
	return cp, nil
}

// startCheckpoint returns an empty checkpoint, or with resume enabled the
// stored one restricted to the current domains.
func (p *Pipeline) startCheckpoint(ctx context.Context, runKey string, domains []string) *model.Checkpoint {
	cp := model.NewCheckpoint(runKey, len(domains))
	if !p.resume || p.store == nil {
		return cp
	}

	stored, err := p.store.LoadCheckpoint(ctx, runKey)
	if err != nil {
		p.log.Warn("pipeline: could not load checkpoint, starting fresh", zap.String("run_key", runKey), zap.Error(err))
		return cp
	}
	if stored == nil {
		return cp
	}

	wanted := make(map[string]bool, len(domains))
	for _, d := range domains {
		wanted[d] = true
	}
	for _, r := range stored.Results {
		if wanted[r.Domain] && !cp.Has(r.Domain) {
			cp.Results = append(cp.Results, r)
		}
	}
	cp.CompletedDomains = len(cp.Results)
	cp.UpdatedAt = stored.UpdatedAt
	p.log.Info("pipeline: resuming from checkpoint",
		zap.String("run_key", runKey),
		zap.Int("completed", cp.CompletedDomains),
		zap.Int("total", cp.TotalDomains),
	)
	return cp
}

func (p *Pipeline) saveCheckpoint(ctx context.Context, runKey string, cp *model.Checkpoint) {
	if p.store == nil {
		return
	}
	if err := p.store.SaveCheckpoint(ctx, runKey, cp); err != nil {
		p.log.Error("pipeline: save checkpoint failed", zap.String("run_key", runKey), zap.Error(err))
		return
	}
	p.log.Info("pipeline: checkpoint saved",
		zap.String("run_key", runKey),
		zap.Int("completed", cp.CompletedDomains),
		zap.Int("total", cp.TotalDomains),
	)
}

// crawlDomain never panics; a panic becomes the domain's error entry.
func (p *Pipeline) crawlDomain(ctx context.Context, domain string) (res model.DomainCrawlResult) {
	log := p.log.With(zap.String("domain", domain))
	defer func() {
		if r := recover(); r != nil {
			log.Error("pipeline: domain panicked", zap.Any("panic", r))
			res = model.DomainCrawlResult{Domain: domain, Error: fmt.Sprintf("panic: %v", r)}
		}
	}()

	disc := p.discover(ctx, domain)
	buckets := classify.Classify(disc.URLs, domain)
	log.Info("pipeline: urls classified",
		zap.String("source", string(disc.Source)),
		zap.Int("total", len(disc.URLs)),
		zap.Int("case_studies", len(buckets.CaseStudies)),
		zap.Int("pricing", len(buckets.Pricing)),
		zap.Int("government", len(buckets.Government)),
	)

	res = model.DomainCrawlResult{
		Domain:           domain,
		TotalURLs:        len(disc.URLs),
		Source:           disc.Source,
		CaseStudiesFound: len(buckets.CaseStudies),
		PricingFound:     len(buckets.Pricing),
		GovernmentFound:  len(buckets.Government),
		CaseStudies:      []model.CaseStudyAnalysis{},
		Pricing:          []model.PricingRecord{},
	}

	caseBreaker := p.pageBreaker(log, "case_studies")
	for _, u := range limit(buckets.CaseStudies, p.cfg.MaxCaseStudies) {
		text, ok := p.fetchPage(ctx, caseBreaker, u)
		if !ok {
			if ctx.Err() != nil || tripped(caseBreaker) {
				break
			}
			continue
		}
		a := p.analyzer.DeepScan(ctx, u, text)
		if a == nil {
			continue
		}
		a.GovernmentURL = buckets.IsGovernment(u)
		res.CaseStudies = append(res.CaseStudies, *a)
	}

	pricingBreaker := p.pageBreaker(log, "pricing")
	for _, u := range limit(buckets.Pricing, p.cfg.MaxPricingPages) {
		text, ok := p.fetchPage(ctx, pricingBreaker, u)
		if !ok {
			if ctx.Err() != nil || tripped(pricingBreaker) {
				break
			}
			continue
		}
		rec := p.analyzer.ExtractPricing(ctx, u, text)
		if rec == nil {
			continue
		}
		res.Pricing = append(res.Pricing, *rec)
	}

	log.Info("pipeline: domain complete",
		zap.Int("case_studies_scanned", len(res.CaseStudies)),
		zap.Int("pricing_scanned", len(res.Pricing)),
	)
	return res
}

// pageBreaker returns a breaker over empty-page fetches for one page
// bucket, or nil when crawl.breaker_threshold is 0.
func (p *Pipeline) pageBreaker(log *zap.Logger, bucket string) *resilience.CircuitBreaker {
	if p.cfg.BreakerThreshold <= 0 {
		return nil
	}
	cfg := resilience.FromBreakerThreshold(p.cfg.BreakerThreshold)
	cfg.ShouldTrip = func(err error) bool { return errors.Is(err, errEmptyPage) }
	cfg.OnOpen = func(n int) {
		log.Warn("pipeline: page fetches keep failing, skipping rest of bucket",
			zap.String("bucket", bucket),
			zap.Int("consecutive_failures", n),
		)
	}
	return resilience.NewCircuitBreaker(cfg)
}

func tripped(cb *resilience.CircuitBreaker) bool {
	return cb != nil && cb.Open()
}

// fetchPage fetches one page, through cb when one is set. ok is false when
// the page is empty or cb has opened; the caller skips that page.
func (p *Pipeline) fetchPage(ctx context.Context, cb *resilience.CircuitBreaker, u string) (string, bool) {
	fetch := func(ctx context.Context) (string, error) {
		t := p.fetcher.Fetch(ctx, u)
		if t == "" {
			return "", errEmptyPage
		}
		return t, nil
	}

	var (
		text string
		err  error
	)
	if cb == nil {
		text, err = fetch(ctx)
	} else {
		text, err = resilience.ExecuteVal(ctx, cb, fetch)
	}
	if err != nil {
		p.log.Debug("pipeline: page skipped", zap.String("url", u), zap.Error(err))
		return "", false
	}
	return text, true
}

// discover resolves a domain's URLs, consulting the discovery cache when
// a store and a TTL are configured. Empty discoveries are not cached.
func (p *Pipeline) discover(ctx context.Context, domain string) model.Discovery {
	ttl := time.Duration(p.cfg.CacheTTLHours) * time.Hour
	useCache := p.store != nil && ttl > 0

	if useCache {
		cached, err := p.store.GetCachedDiscovery(ctx, domain)
		if err != nil {
			p.log.Warn("pipeline: discovery cache read failed", zap.String("domain", domain), zap.Error(err))
		} else if cached != nil {
			p.log.Debug("pipeline: discovery cache hit", zap.String("domain", domain))
			return *cached
		}
	}

	d := p.discoverer.Resolve(ctx, domain)
	d.Domain = domain
	if useCache && len(d.URLs) > 0 {
		if err := p.store.SetCachedDiscovery(ctx, d, ttl); err != nil {
			p.log.Warn("pipeline: discovery cache write failed", zap.String("domain", domain), zap.Error(err))
		}
	}
	return d
}

// limit returns the first n entries of s; n <= 0 means no limit.
func limit(s []string, n int) []string {
	if n > 0 && len(s) > n {
		return s[:n]
	}
	return s
}
