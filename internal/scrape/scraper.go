package scrape

import (
	"context"
)

// Page is one fetched document.
type Page struct {
	URL        string
	StatusCode int
	HTML       string
	// Source names the renderer that produced the page.
	Source string
}

// Renderer fetches a URL and returns its HTML. A non-nil error means the
// next renderer in the chain should be tried.
type Renderer interface {
	Render(ctx context.Context, url string) (*Page, error)
	Name() string
}

// TextSource returns a page's text without HTML. It is the last resort
// when every renderer fails.
type TextSource interface {
	Read(ctx context.Context, url string) (string, error)
}
