// Package sitemap discovers the URLs of a domain from its sitemap, a
// one-level sitemap index, or the homepage's links.
package sitemap

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/market-research/internal/config"
	"github.com/sells-group/market-research/internal/model"
	"github.com/sells-group/market-research/internal/scrape"
)

// DefaultPaths are tried in order when none are configured.
var DefaultPaths = []string{
	"/sitemap.xml",
	"/sitemap_index.xml",
	"/sitemap-index.xml",
	"/wp-sitemap.xml",
	"/page-sitemap.xml",
}

const maxSitemapBytes = 10 << 20

// HTMLSource returns a page's raw HTML.
type HTMLSource interface {
	FetchHTML(ctx context.Context, url string) (string, error)
}

// Resolver discovers a domain's URLs.
type Resolver struct {
	http        *http.Client
	userAgent   string
	paths       []string
	timeout     time.Duration
	maxChildren int
	matcher     *scrape.PathMatcher
	homepage    HTMLSource
	log         *zap.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithHTTPClient replaces the HTTP client used for sitemap requests.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Resolver) { r.http = c }
}

// New creates a Resolver. homepage is used for link discovery when no
// sitemap yields URLs; nil disables that fallback.
func New(cfg config.SitemapConfig, userAgent string, homepage HTMLSource, opts ...Option) *Resolver {
	paths := cfg.Paths
	if len(paths) == 0 {
		paths = DefaultPaths
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	maxChildren := cfg.MaxChildSitemaps
	if maxChildren <= 0 {
		maxChildren = 20
	}

	r := &Resolver{
		http: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		userAgent:   userAgent,
		paths:       paths,
		timeout:     timeout,
		maxChildren: maxChildren,
		matcher:     scrape.NewPathMatcher(cfg.ExcludePaths),
		homepage:    homepage,
		log:         zap.L().With(zap.String("component", "sitemap")),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Resolve returns the URLs of domain ("scheme://host") and where they came
// from. It never fails; an undiscoverable domain yields SourceNone.
func (r *Resolver) Resolve(ctx context.Context, domain string) model.Discovery {
	domain = strings.TrimRight(domain, "/")

	if urls, source := r.fromSitemaps(ctx, domain); len(urls) > 0 {
		return model.Discovery{Domain: domain, URLs: urls, Source: source}
	}
	if ctx.Err() != nil {
		return model.Discovery{Domain: domain, Source: model.SourceNone}
	}

	if urls := r.fromHomepage(ctx, domain); len(urls) > 0 {
		return model.Discovery{Domain: domain, URLs: urls, Source: model.SourceHomepageCrawl}
	}
	return model.Discovery{Domain: domain, Source: model.SourceNone}
}

func (r *Resolver) fromSitemaps(ctx context.Context, domain string) ([]string, model.DiscoverySource) {
	for _, p := range r.paths {
		if ctx.Err() != nil {
			return nil, model.SourceNone
		}
		sitemapURL := domain + p
		body, err := r.get(ctx, sitemapURL)
		if err != nil {
			r.log.Debug("sitemap: candidate miss", zap.String("url", sitemapURL), zap.Error(err))
			continue
		}
		if !looksLikeXML(body) {
			r.log.Debug("sitemap: candidate returned non-xml", zap.String("url", sitemapURL))
			continue
		}

		doc, err := parse(body)
		if err != nil {
			r.log.Warn("sitemap: parse failed", zap.String("url", sitemapURL), zap.Error(err))
			return nil, model.SourceNone
		}

		if doc.kind == kindIndex {
			urls := r.matcher.Filter(r.expand(ctx, doc.locs))
			r.log.Info("sitemap: expanded index",
				zap.String("url", sitemapURL),
				zap.Int("children", min(len(doc.locs), r.maxChildren)),
				zap.Int("urls", len(urls)),
			)
			return urls, model.SourceSitemapIndex
		}
		urls := r.matcher.Filter(dedupe(doc.locs))
		r.log.Info("sitemap: found", zap.String("url", sitemapURL), zap.Int("urls", len(urls)))
		return urls, model.SourceSitemap
	}
	return nil, model.SourceNone
}

// expand fetches up to maxChildren child sitemaps and unions their leaf
// URLs. Children that fail or are themselves indexes contribute nothing.
func (r *Resolver) expand(ctx context.Context, children []string) []string {
	if len(children) > r.maxChildren {
		children = children[:r.maxChildren]
	}

	var all []string
	for _, child := range children {
		if ctx.Err() != nil {
			break
		}
		body, err := r.get(ctx, child)
		if err != nil {
			r.log.Debug("sitemap: child fetch failed", zap.String("url", child), zap.Error(err))
			continue
		}
		doc, err := parse(body)
		if err != nil {
			r.log.Debug("sitemap: child parse failed", zap.String("url", child), zap.Error(err))
			continue
		}
		if doc.kind == kindIndex {
			continue
		}
		all = append(all, doc.locs...)
	}
	return dedupe(all)
}

func (r *Resolver) fromHomepage(ctx context.Context, domain string) []string {
	if r.homepage == nil {
		return nil
	}
	html, err := r.homepage.FetchHTML(ctx, domain)
	if err != nil {
		r.log.Warn("sitemap: homepage fetch failed", zap.String("domain", domain), zap.Error(err))
		return nil
	}
	base, err := url.Parse(domain)
	if err != nil {
		return nil
	}
	urls := r.matcher.Filter(SameOriginLinks(html, base))
	r.log.Info("sitemap: crawled homepage links", zap.String("domain", domain), zap.Int("urls", len(urls)))
	return urls
}

func (r *Resolver) get(ctx context.Context, target string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sitemap: create request")
	}
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}

	resp, err := r.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "sitemap: fetch")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("sitemap: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSitemapBytes))
	if err != nil {
		return nil, eris.Wrap(err, "sitemap: read body")
	}
	return body, nil
}

// SameOriginLinks returns the anchors in html that resolve to base's
// scheme and host, with query and fragment removed, deduplicated in
// document order.
func SameOriginLinks(html string, base *url.URL) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	if base.Path == "" {
		rooted := *base
		rooted.Path = "/"
		base = &rooted
	}

	var links []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		if !strings.EqualFold(abs.Scheme, base.Scheme) || !strings.EqualFold(abs.Host, base.Host) {
			return
		}
		abs.RawQuery = ""
		abs.ForceQuery = false
		abs.Fragment = ""
		abs.RawFragment = ""
		if abs.Path == "" {
			abs.Path = "/"
		}
		links = append(links, abs.String())
	})
	return dedupe(links)
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
