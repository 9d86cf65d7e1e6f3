// Package pipeline runs the feature, product and crawl phases of a
// research job.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/market-research/internal/config"
	"github.com/sells-group/market-research/internal/model"
	"github.com/sells-group/market-research/internal/store"
)

// Fetcher returns the visible text of a page, or "" on failure.
type Fetcher interface {
	Fetch(ctx context.Context, url string) string
}

// Discoverer finds the URL set of a domain.
type Discoverer interface {
	Resolve(ctx context.Context, domain string) model.Discovery
}

// Analyzer runs the model-backed extraction tasks. Every method degrades
// to a sentinel or nil rather than failing.
type Analyzer interface {
	AnalyzeFeatures(ctx context.Context, url, text string, landscape model.Landscape, features []model.FeatureSpec) model.FeatureAnalysis
	ExtractProduct(ctx context.Context, url, text string, landscape model.Landscape) model.ProductInfo
	DeepScan(ctx context.Context, url, text string) *model.CaseStudyAnalysis
	ExtractPricing(ctx context.Context, url, text string) *model.PricingRecord
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithResume keeps the results of a stored checkpoint and skips their
// domains.
func WithResume(resume bool) Option {
	return func(p *Pipeline) { p.resume = resume }
}

// Pipeline orchestrates one research run.
type Pipeline struct {
	fetcher    Fetcher
	discoverer Discoverer
	analyzer   Analyzer
	store      store.Store
	cfg        config.CrawlConfig
	resume     bool
	log        *zap.Logger
}

// New creates a Pipeline. st may be nil, in which case checkpoints are
// kept in memory only and discovery is never cached.
func New(fetcher Fetcher, discoverer Discoverer, analyzer Analyzer, st store.Store, cfg config.CrawlConfig, opts ...Option) *Pipeline {
	p := &Pipeline{
		fetcher:    fetcher,
		discoverer: discoverer,
		analyzer:   analyzer,
		store:      st,
		cfg:        cfg,
		log:        zap.L().With(zap.String("component", "pipeline")),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run executes the given phases in order. On cancellation the report
// holds whatever the interrupted phase had finished.
func (p *Pipeline) Run(ctx context.Context, job *model.Job, phases []model.Phase) (*model.Report, error) {
	if job == nil {
		return nil, eris.New("pipeline: nil job")
	}
	report := &model.Report{Job: job}

	for _, phase := range phases {
		start := time.Now()
		p.log.Info("pipeline: phase starting",
			zap.String("phase", string(phase)),
			zap.Int("urls", len(job.URLs)),
		)

		var err error
		switch phase {
		case model.PhaseFeatures:
			report.Features, err = p.Features(ctx, job)
		case model.PhaseProducts:
			report.Products, err = p.Products(ctx, job)
		case model.PhaseCrawl:
			report.Checkpoint, err = p.Crawl(ctx, job)
		default:
			err = eris.Errorf("pipeline: unknown phase %q", phase)
		}
		if err != nil {
			p.log.Error("pipeline: phase failed", zap.String("phase", string(phase)), zap.Error(err))
			return report, err
		}
		p.log.Info("pipeline: phase complete",
			zap.String("phase", string(phase)),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
	return report, nil
}

// Features produces one analysis row per seed URL. Fetch failures yield
// sentinel rows rather than gaps.
func (p *Pipeline) Features(ctx context.Context, job *model.Job) ([]model.FeatureAnalysis, error) {
	out := make([]model.FeatureAnalysis, 0, len(job.URLs))
	for i, u := range job.URLs {
		if err := ctx.Err(); err != nil {
			return out, eris.Wrap(err, "pipeline: features cancelled")
		}
		p.log.Info("pipeline: analyzing features",
			zap.String("url", u),
			zap.Int("n", i+1),
			zap.Int("of", len(job.URLs)),
		)
		text := p.fetcher.Fetch(ctx, u)
		a := p.analyzer.AnalyzeFeatures(ctx, u, text, job.Landscape, job.Features)
		for _, v := range a.Verdicts {
			p.log.Debug("pipeline: verdict",
				zap.String("url", u),
				zap.String("feature", v.Feature),
				zap.String("answer", string(v.Answer)),
			)
		}
		out = append(out, a)
	}
	return out, nil
}

// Products produces one product row per seed URL.
func (p *Pipeline) Products(ctx context.Context, job *model.Job) ([]model.ProductInfo, error) {
	out := make([]model.ProductInfo, 0, len(job.URLs))
	for _, u := range job.URLs {
		if err := ctx.Err(); err != nil {
			return out, eris.Wrap(err, "pipeline: products cancelled")
		}
		text := p.fetcher.Fetch(ctx, u)
		info := p.analyzer.ExtractProduct(ctx, u, text, job.Landscape)
		p.log.Info("pipeline: product extracted",
			zap.String("url", u),
			zap.String("company", info.CompanyName),
			zap.String("product", info.ProductName),
		)
		out = append(out, info)
	}
	return out, nil
}
