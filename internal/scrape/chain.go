// Package scrape fetches web pages as plain text, trying a headless
// browser first and degrading to plain HTTP and a reader service.
package scrape

import (
	"context"
	"io"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/market-research/internal/config"
	"github.com/sells-group/market-research/pkg/jina"
)

// ErrAllFailed is returned by FetchHTML when no renderer produced a page.
var ErrAllFailed = eris.New("scrape: all renderers failed")

// Fetcher tries renderers in priority order and converts the first usable
// page to text. Its text methods never return errors.
type Fetcher struct {
	renderers []Renderer
	fallback  TextSource
	maxChars  int
	log       *zap.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithFallback sets the reader used when every renderer fails.
func WithFallback(ts TextSource) Option {
	return func(f *Fetcher) { f.fallback = ts }
}

// WithMaxChars caps returned text.
func WithMaxChars(n int) Option {
	return func(f *Fetcher) { f.maxChars = n }
}

// NewFetcher creates a Fetcher over renderers, tried in the given order.
func NewFetcher(renderers []Renderer, opts ...Option) *Fetcher {
	f := &Fetcher{
		renderers: renderers,
		maxChars:  30000,
		log:       zap.L().With(zap.String("component", "fetcher")),
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// NewFetcherFromConfig builds the standard chain: Chrome (when enabled),
// then plain HTTP, then the Jina reader when configured.
func NewFetcherFromConfig(cfg config.FetchConfig, jcfg config.JinaConfig) *Fetcher {
	var renderers []Renderer
	if cfg.Render {
		chrome := NewChromeRenderer(secs(cfg.RenderTimeoutSecs), cfg.UserAgent)
		if cfg.ChromePath != "" {
			chrome.WithExecPath(cfg.ChromePath)
		}
		renderers = append(renderers, chrome)
	}
	renderers = append(renderers, NewHTTPRenderer(secs(cfg.HTTPTimeoutSecs), cfg.UserAgent, cfg.MaxBodyBytes))

	opts := []Option{WithMaxChars(cfg.MaxChars)}
	if cfg.ReaderFallback {
		jopts := []jina.Option{jina.WithTimeout(secs(cfg.RenderTimeoutSecs))}
		if jcfg.BaseURL != "" {
			jopts = append(jopts, jina.WithBaseURL(jcfg.BaseURL))
		}
		client := jina.NewClient(jcfg.Key, jopts...)
		opts = append(opts, WithFallback(NewJinaSource(client)))
	}
	return NewFetcher(renderers, opts...)
}

func secs(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// Close releases renderers that hold resources, such as a running browser.
func (f *Fetcher) Close() error {
	var first error
	for _, r := range f.renderers {
		c, ok := r.(io.Closer)
		if !ok {
			continue
		}
		if err := c.Close(); err != nil && first == nil {
			first = eris.Wrapf(err, "scrape: close %s", r.Name())
		}
	}
	return first
}

// Fetch returns the visible text of url truncated to the configured cap,
// or "" when nothing could be fetched.
func (f *Fetcher) Fetch(ctx context.Context, url string) string {
	page, err := f.render(ctx, url)
	if err == nil {
		if text := ExtractText(page.HTML); text != "" {
			return Truncate(text, f.maxChars)
		}
		f.log.Debug("fetcher: page has no text", zap.String("url", url), zap.String("renderer", page.Source))
	}

	if f.fallback == nil || ctx.Err() != nil {
		return ""
	}
	text, err := f.fallback.Read(ctx, url)
	if err != nil {
		f.log.Warn("fetcher: reader fallback failed", zap.String("url", url), zap.Error(err))
		return ""
	}
	return Truncate(NormalizeText(text), f.maxChars)
}

// FetchHTML returns the raw HTML from the first renderer that succeeds.
func (f *Fetcher) FetchHTML(ctx context.Context, url string) (string, error) {
	page, err := f.render(ctx, url)
	if err != nil {
		return "", err
	}
	return page.HTML, nil
}

func (f *Fetcher) render(ctx context.Context, url string) (*Page, error) {
	var lastErr error
	for _, r := range f.renderers {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "scrape: render")
		}
		page, err := r.Render(ctx, url)
		if err == nil && page != nil {
			return page, nil
		}
		if err == nil {
			err = eris.New("empty page")
		}
		f.log.Debug("fetcher: renderer failed, trying next",
			zap.String("renderer", r.Name()),
			zap.String("url", url),
			zap.Error(err),
		)
		lastErr = err
	}
	if lastErr != nil {
		return nil, eris.Wrapf(ErrAllFailed, "%s: %v", url, lastErr)
	}
	return nil, eris.Wrap(ErrAllFailed, "no renderers configured")
}
