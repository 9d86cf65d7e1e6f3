package scrape

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// strippedTags are removed with their subtrees before text is collected.
const strippedTags = "script, style, footer, nav, svg, noscript"

// ExtractText returns the visible text of an HTML document with runs of
// whitespace collapsed to single spaces. Unparseable input yields "".
func ExtractText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	doc.Find(strippedTags).Remove()

	var parts []string
	collectText(doc.Selection, &parts)
	return NormalizeText(strings.Join(parts, " "))
}

// collectText walks the tree so adjacent block elements are separated by a
// space instead of being glued together as goquery's Text() does.
func collectText(s *goquery.Selection, parts *[]string) {
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		if goquery.NodeName(c) == "#text" {
			if t := strings.TrimSpace(c.Text()); t != "" {
				*parts = append(*parts, t)
			}
			return
		}
		collectText(c, parts)
	})
}

// NormalizeText collapses all whitespace runs to single spaces and trims.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate caps s at maxChars runes. A non-positive maxChars disables the cap.
func Truncate(s string, maxChars int) string {
	if maxChars <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == maxChars {
			return s[:i]
		}
		n++
	}
	return s
}
