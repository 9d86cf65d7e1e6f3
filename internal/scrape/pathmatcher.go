package scrape

import (
	"net/url"
	"path"
	"strings"
)

// PathMatcher filters URLs by glob-style path patterns. "/blog/*" matches
// nested paths like "/blog/a/b" as well as "/blog/a".
type PathMatcher struct {
	patterns []string
}

// NewPathMatcher creates a PathMatcher from patterns such as "/*.pdf" or
// "/wp-content/*". With no patterns nothing is excluded.
func NewPathMatcher(patterns []string) *PathMatcher {
	lowered := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			lowered = append(lowered, p)
		}
	}
	return &PathMatcher{patterns: lowered}
}

// Patterns returns the configured patterns.
func (m *PathMatcher) Patterns() []string {
	return m.patterns
}

// IsExcluded reports whether rawURL matches any pattern. Unparseable URLs
// are excluded.
func (m *PathMatcher) IsExcluded(rawURL string) bool {
	if m == nil || len(m.patterns) == 0 {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return true
	}
	p := strings.ToLower(u.Path)
	for _, pattern := range m.patterns {
		if matchSegmented(pattern, p) {
			return true
		}
	}
	return false
}

// Filter returns the URLs that are not excluded, preserving order.
func (m *PathMatcher) Filter(urls []string) []string {
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if !m.IsExcluded(u) {
			out = append(out, u)
		}
	}
	return out
}

func matchSegmented(pattern, urlPath string) bool {
	if ok, _ := path.Match(pattern, urlPath); ok {
		return true
	}
	// "/*.pdf" should also match "/docs/guide.pdf".
	if strings.HasPrefix(pattern, "/*.") {
		if ok, _ := path.Match(pattern[2:], path.Base(urlPath)); ok {
			return true
		}
	}
	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		if urlPath == prefix || strings.HasPrefix(urlPath, prefix+"/") {
			return true
		}
	}
	return false
}
