package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/market-research/internal/config"
	"github.com/sells-group/market-research/internal/cost"
	"github.com/sells-group/market-research/internal/extract"
	"github.com/sells-group/market-research/internal/gateway"
	"github.com/sells-group/market-research/internal/pipeline"
	"github.com/sells-group/market-research/internal/scrape"
	"github.com/sells-group/market-research/internal/sitemap"
	"github.com/sells-group/market-research/internal/store"
	"github.com/sells-group/market-research/pkg/anthropic"
)

// researchEnv holds the wired dependencies of a research run.
type researchEnv struct {
	Store    store.Store
	Gateway  *gateway.Gateway
	Fetcher  *scrape.Fetcher
	Pipeline *pipeline.Pipeline
}

// Close shuts the browser down and releases the store.
func (e *researchEnv) Close() {
	if e.Fetcher != nil {
		if err := e.Fetcher.Close(); err != nil {
			zap.L().Warn("close fetcher", zap.Error(err))
		}
	}
	if e.Store == nil {
		return
	}
	if err := e.Store.Close(); err != nil {
		zap.L().Warn("close store", zap.Error(err))
	}
}

// newGateway builds the shared model gateway. The SDK's own retries are
// disabled; the gateway owns quota backoff.
func newGateway(c *config.Config) *gateway.Gateway {
	client := anthropic.NewClient(c.Anthropic.Key, anthropic.WithMaxRetries(0))
	ledger := cost.NewLedger(cost.NewCalculator(cost.RatesFromConfig(c.Pricing)))
	return gateway.New(client, gateway.FromConfig(c.Anthropic, c.Gateway), gateway.WithLedger(ledger))
}

// initResearch wires store, gateway, fetcher, resolver and extractor into a
// pipeline.
func initResearch(ctx context.Context, resume bool) (*researchEnv, error) {
	if err := cfg.Validate("research"); err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}

	gw := newGateway(cfg)
	fetcher := scrape.NewFetcherFromConfig(cfg.Fetch, cfg.Jina)
	resolver := sitemap.New(cfg.Sitemap, cfg.Fetch.UserAgent, fetcher)
	extractor := extract.New(gw)

	p := pipeline.New(fetcher, resolver, extractor, st, cfg.Crawl, pipeline.WithResume(resume))

	return &researchEnv{
		Store:    st,
		Gateway:  gw,
		Fetcher:  fetcher,
		Pipeline: p,
	}, nil
}

// openStore validates mode and opens the configured store.
func openStore(ctx context.Context, mode string) (store.Store, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	return st, nil
}

func logUsage(gw *gateway.Gateway) {
	for _, s := range gw.Usage() {
		zap.L().Info("model usage",
			zap.String("model", s.Model),
			zap.Int("calls", s.Calls),
			zap.Int64("input_tokens", s.Usage.InputTokens),
			zap.Int64("output_tokens", s.Usage.OutputTokens),
			zap.Float64("cost_usd", s.CostUSD),
		)
	}
	zap.L().Info("run cost",
		zap.Int64("requests", gw.Calls()),
		zap.Float64("total_usd", gw.Ledger().Total()),
	)
}
