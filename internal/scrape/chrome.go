package scrape

import (
	"context"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rotisserie/eris"
)

// ChromeRenderer loads pages in headless Chrome and returns the DOM after
// the body is ready, so script-built content is included. One browser is
// started on first use and each page gets its own tab.
type ChromeRenderer struct {
	timeout   time.Duration
	userAgent string
	execPath  string

	mu            sync.Mutex
	browserCtx    context.Context
	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc
}

// NewChromeRenderer creates a renderer that gives each page timeout to load.
func NewChromeRenderer(timeout time.Duration, userAgent string) *ChromeRenderer {
	return &ChromeRenderer{timeout: timeout, userAgent: userAgent}
}

// WithExecPath points the renderer at a specific Chrome binary.
func (c *ChromeRenderer) WithExecPath(path string) *ChromeRenderer {
	c.execPath = path
	return c
}

func (c *ChromeRenderer) Name() string { return "chrome" }

func (c *ChromeRenderer) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
		chromedp.NoSandbox,
	)
	if c.userAgent != "" {
		opts = append(opts, chromedp.UserAgent(c.userAgent))
	}
	if c.execPath != "" {
		opts = append(opts, chromedp.ExecPath(c.execPath))
	}
	return opts
}

// browser returns the shared browser context, starting Chrome when none is
// running or the previous one has exited.
func (c *ChromeRenderer) browser() (context.Context, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.browserCtx != nil && c.browserCtx.Err() == nil {
		return c.browserCtx, nil
	}
	c.closeLocked()

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), c.allocatorOptions()...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, eris.Wrap(err, "chrome: start browser")
	}

	c.browserCtx = browserCtx
	c.cancelBrowser = cancelBrowser
	c.cancelAlloc = cancelAlloc
	return browserCtx, nil
}

// Render opens targetURL in a new tab of the shared browser. The tab is
// closed before Render returns; cancelling ctx aborts the page load.
func (c *ChromeRenderer) Render(ctx context.Context, targetURL string) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "chrome: render")
	}
	browserCtx, err := c.browser()
	if err != nil {
		return nil, err
	}

	tabCtx, cancelTab := chromedp.NewContext(browserCtx)
	defer cancelTab()
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		tabCtx, cancel = context.WithTimeout(tabCtx, c.timeout)
		defer cancel()
	}

	var html string
	err = chromedp.Run(tabCtx,
		chromedp.Navigate(targetURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, eris.Wrap(err, "chrome: render")
	}
	if html == "" {
		return nil, eris.New("chrome: empty document")
	}

	return &Page{
		URL:        targetURL,
		StatusCode: 200,
		HTML:       html,
		Source:     c.Name(),
	}, nil
}

// Close shuts the browser down. A later Render starts a new one.
func (c *ChromeRenderer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
	return nil
}

func (c *ChromeRenderer) closeLocked() {
	if c.cancelBrowser != nil {
		c.cancelBrowser()
	}
	if c.cancelAlloc != nil {
		c.cancelAlloc()
	}
	c.browserCtx, c.cancelBrowser, c.cancelAlloc = nil, nil, nil
}
