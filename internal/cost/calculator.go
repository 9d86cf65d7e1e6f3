// Package cost prices model token usage and keeps per-run spend totals.
package cost

import (
	"sort"
	"sync"

	"github.com/sells-group/market-research/internal/config"
	"github.com/sells-group/market-research/pkg/anthropic"
)

// ModelRate holds per-model token pricing (per million tokens).
type ModelRate struct {
	Input         float64 `yaml:"input" mapstructure:"input"`
	Output        float64 `yaml:"output" mapstructure:"output"`
	CacheWriteMul float64 `yaml:"cache_write_mul" mapstructure:"cache_write_mul"`
	CacheReadMul  float64 `yaml:"cache_read_mul" mapstructure:"cache_read_mul"`
}

// Rates maps model IDs to pricing.
type Rates map[string]ModelRate

// Calculator computes costs for API usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates. Models missing
// from rates fall back to DefaultRates.
func NewCalculator(rates Rates) *Calculator {
	merged := DefaultRates()
	for model, r := range rates {
		merged[model] = r
	}
	return &Calculator{rates: merged}
}

// Claude computes the USD cost of one Claude call's token usage. Unknown
// models cost zero.
func (c *Calculator) Claude(model string, u anthropic.TokenUsage) float64 {
	rate, ok := c.rates[model]
	if !ok {
		return 0
	}

	inCost := (float64(u.InputTokens) / 1e6) * rate.Input
	outCost := (float64(u.OutputTokens) / 1e6) * rate.Output
	cwCost := (float64(u.CacheCreationInputTokens) / 1e6) * rate.Input * rate.CacheWriteMul
	crCost := (float64(u.CacheReadInputTokens) / 1e6) * rate.Input * rate.CacheReadMul

	return inCost + outCost + cwCost + crCost
}

// DefaultRates returns the default pricing rates.
func DefaultRates() Rates {
	return Rates{
		"claude-haiku-4-5-20251001": {
			Input: 1.00, Output: 5.00,
			CacheWriteMul: 1.25, CacheReadMul: 0.1,
		},
		"claude-sonnet-4-5-20250929": {
			Input: 3.00, Output: 15.00,
			CacheWriteMul: 1.25, CacheReadMul: 0.1,
		},
	}
}

// ModelSpend is the accumulated usage and cost for one model.
type ModelSpend struct {
	Model   string               `json:"model"`
	Calls   int                  `json:"calls"`
	Usage   anthropic.TokenUsage `json:"usage"`
	CostUSD float64              `json:"cost_usd"`
}

// Ledger accumulates spend across a run. It is safe for concurrent use.
type Ledger struct {
	calc *Calculator

	mu      sync.Mutex
	byModel map[string]*ModelSpend
}

// NewLedger creates an empty ledger priced by calc.
func NewLedger(calc *Calculator) *Ledger {
	if calc == nil {
		calc = NewCalculator(nil)
	}
	return &Ledger{calc: calc, byModel: make(map[string]*ModelSpend)}
}

// Record adds one call's usage and returns its cost.
func (l *Ledger) Record(model string, u anthropic.TokenUsage) float64 {
	c := l.calc.Claude(model, u)

	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.byModel[model]
	if !ok {
		s = &ModelSpend{Model: model}
		l.byModel[model] = s
	}
	s.Calls++
	s.Usage = s.Usage.Add(u)
	s.CostUSD += c
	return c
}

// Total returns the accumulated cost in USD.
func (l *Ledger) Total() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	var total float64
	for _, s := range l.byModel {
		total += s.CostUSD
	}
	return total
}

// Snapshot returns per-model spend sorted by model ID.
func (l *Ledger) Snapshot() []ModelSpend {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]ModelSpend, 0, len(l.byModel))
	for _, s := range l.byModel {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Model < out[j].Model })
	return out
}

// RatesFromConfig converts configured pricing into Rates.
func RatesFromConfig(p config.PricingConfig) Rates {
	rates := make(Rates, len(p.Anthropic))
	for model, r := range p.Anthropic {
		rates[model] = ModelRate{
			Input:         r.Input,
			Output:        r.Output,
			CacheWriteMul: r.CacheWriteMul,
			CacheReadMul:  r.CacheReadMul,
		}
	}
	return rates
}
