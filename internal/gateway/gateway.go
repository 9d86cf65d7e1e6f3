// Package gateway serializes generative-model calls behind one shared
// minimum-interval throttle with quota-aware retry.
package gateway

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/market-research/internal/config"
	"github.com/sells-group/market-research/internal/cost"
	"github.com/sells-group/market-research/internal/resilience"
	"github.com/sells-group/market-research/pkg/anthropic"
)

// ErrNoModel is returned when none of the candidate models answers.
var ErrNoModel = eris.New("gateway: no working model")

// Format selects the response shape a prompt asks for.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

const jsonInstruction = "Respond with a single valid JSON object and nothing else. Do not wrap it in markdown."

// Request is one generation call.
type Request struct {
	// Task names the caller for logs and cost attribution.
	Task string
	// System is an optional shared prefix. With CacheSystem set it is sent
	// as a cached block.
	System      string
	CacheSystem bool
	Prompt      string
	Format      Format
	MaxTokens   int64
	Temperature *float64
}

// Clock abstracts time for the throttle and backoff.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	return resilience.SleepContext(ctx, d)
}

// Config controls the gateway.
type Config struct {
	// Models are tried in order; the first that answers is used.
	Models      []string
	MaxTokens   int64
	MinInterval time.Duration
	Retry       resilience.RetryConfig
}

// FromConfig builds a gateway Config from application config.
func FromConfig(a config.AnthropicConfig, g config.GatewayConfig) Config {
	return Config{
		Models:      a.Models,
		MaxTokens:   int64(a.MaxTokens),
		MinInterval: time.Duration(g.MinIntervalSecs * float64(time.Second)),
		Retry: resilience.QuotaRetryConfig(
			g.MaxAttempts,
			time.Duration(g.InitialBackoffSecs)*time.Second,
			time.Duration(g.MaxBackoffSecs)*time.Second,
		),
	}
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(g *Gateway) { g.clock = c }
}

// WithLedger records token spend into l.
func WithLedger(l *cost.Ledger) Option {
	return func(g *Gateway) { g.ledger = l }
}

// Gateway is the single process-wide entry point for model calls. All
// callers share one throttle, so consecutive calls start at least
// MinInterval apart regardless of which task issues them.
type Gateway struct {
	client  anthropic.Client
	cfg     Config
	clock   Clock
	ledger  *cost.Ledger
	limiter *rate.Limiter
	log     *zap.Logger

	modelMu sync.Mutex
	model   string

	calls atomic.Int64
}

// New creates a Gateway over client.
func New(client anthropic.Client, cfg Config, opts ...Option) *Gateway {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	limit := rate.Inf
	if cfg.MinInterval > 0 {
		limit = rate.Every(cfg.MinInterval)
	}
	if cfg.Retry.ShouldRetry == nil {
		cfg.Retry = resilience.QuotaRetryConfig(cfg.Retry.MaxAttempts, cfg.Retry.InitialBackoff, cfg.Retry.MaxBackoff)
	}

	g := &Gateway{
		client:  client,
		cfg:     cfg,
		clock:   realClock{},
		limiter: rate.NewLimiter(limit, 1),
		log:     zap.L().With(zap.String("component", "gateway")),
	}
	for _, o := range opts {
		o(g)
	}
	if g.ledger == nil {
		g.ledger = cost.NewLedger(nil)
	}
	return g
}

// Generate sends one prompt and returns the model's text. Quota errors are
// retried with backoff; any other error is returned at once.
func (g *Gateway) Generate(ctx context.Context, req Request) (string, error) {
	model, err := g.Model(ctx)
	if err != nil {
		return "", err
	}

	retry := g.cfg.Retry
	retry.ShouldRetry = isQuota
	retry.Sleep = g.clock.Sleep
	retry.OnRetry = resilience.RetryLogger("anthropic", req.Task)

	text, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (string, error) {
		return g.call(ctx, model, req)
	})
	if err != nil {
		return "", eris.Wrapf(err, "gateway: generate %s", req.Task)
	}
	return text, nil
}

// Model returns the selected model, probing candidates on first use. A
// single configured candidate is used without probing.
func (g *Gateway) Model(ctx context.Context) (string, error) {
	g.modelMu.Lock()
	defer g.modelMu.Unlock()

	if g.model != "" {
		return g.model, nil
	}
	switch len(g.cfg.Models) {
	case 0:
		return "", eris.Wrap(ErrNoModel, "no candidates configured")
	case 1:
		g.model = g.cfg.Models[0]
		return g.model, nil
	}
	return g.selectLocked(ctx)
}

// SelectModel tries every candidate in order, caching the first that
// answers. It always checks, even when a model is already cached.
func (g *Gateway) SelectModel(ctx context.Context) (string, error) {
	g.modelMu.Lock()
	defer g.modelMu.Unlock()
	g.model = ""
	return g.selectLocked(ctx)
}

func (g *Gateway) selectLocked(ctx context.Context) (string, error) {
	var lastErr error
	for _, m := range g.cfg.Models {
		_, err := g.call(ctx, m, Request{Task: "model_check", Prompt: "Reply with OK.", MaxTokens: 5})
		if err == nil {
			g.model = m
			g.log.Info("gateway: selected model", zap.String("model", m))
			return m, nil
		}
		if ctx.Err() != nil {
			return "", eris.Wrap(ctx.Err(), "gateway: select model")
		}
		g.log.Warn("gateway: model check failed", zap.String("model", m), zap.Error(err))
		lastErr = err
	}
	if lastErr != nil {
		return "", eris.Wrapf(ErrNoModel, "last error: %v", lastErr)
	}
	return "", eris.Wrap(ErrNoModel, "no candidates configured")
}

// Calls returns the number of requests sent to the backend.
func (g *Gateway) Calls() int64 {
	return g.calls.Load()
}

// Usage returns per-model token usage and cost so far.
func (g *Gateway) Usage() []cost.ModelSpend {
	return g.ledger.Snapshot()
}

// Ledger returns the spend ledger.
func (g *Gateway) Ledger() *cost.Ledger {
	return g.ledger
}

func (g *Gateway) call(ctx context.Context, model string, req Request) (string, error) {
	if err := g.wait(ctx); err != nil {
		return "", err
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = g.cfg.MaxTokens
	}

	system := req.System
	if req.Format == FormatJSON {
		if system != "" {
			system += "\n\n"
		}
		system += jsonInstruction
	}

	msg := anthropic.MessageRequest{
		Model:       model,
		MaxTokens:   maxTokens,
		Messages:    []anthropic.Message{{Role: "user", Content: req.Prompt}},
		Temperature: req.Temperature,
	}
	if req.CacheSystem && req.System != "" {
		msg.System = anthropic.BuildCachedSystemBlocks(system, "")
	} else {
		msg.System = anthropic.PlainSystemBlocks(system)
	}

	g.calls.Add(1)
	start := g.clock.Now()
	resp, err := g.client.CreateMessage(ctx, msg)
	if err != nil {
		return "", err
	}

	spend := g.ledger.Record(model, resp.Usage)
	g.log.Debug("gateway: call complete",
		zap.String("task", req.Task),
		zap.String("model", model),
		zap.Int64("input_tokens", resp.Usage.InputTokens),
		zap.Int64("output_tokens", resp.Usage.OutputTokens),
		zap.Float64("cost_usd", spend),
		zap.Duration("elapsed", g.clock.Now().Sub(start)),
	)
	return resp.Text(), nil
}

// wait blocks until the shared throttle admits one more call.
func (g *Gateway) wait(ctx context.Context) error {
	now := g.clock.Now()
	r := g.limiter.ReserveN(now, 1)
	if !r.OK() {
		return eris.New("gateway: throttle reservation refused")
	}
	delay := r.DelayFrom(now)
	if delay <= 0 {
		return nil
	}
	g.log.Debug("gateway: throttling", zap.Duration("wait", delay))
	if err := g.clock.Sleep(ctx, delay); err != nil {
		r.CancelAt(now)
		return eris.Wrap(err, "gateway: throttle wait")
	}
	return nil
}

func isQuota(err error) bool {
	return anthropic.IsRateLimited(err) || resilience.IsQuotaError(err)
}
