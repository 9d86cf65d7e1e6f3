package sitemap

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
)

// docKind is the root element shape of a sitemap document.
type docKind int

const (
	kindOther docKind = iota
	kindURLSet
	kindIndex
)

// document is a parsed sitemap: its root kind and the <loc> values that
// matter for that kind, in document order.
type document struct {
	kind docKind
	locs []string
}

// parse decodes a sitemap by local element names, so any namespace (or
// none) is accepted. urlset roots yield <url><loc>, sitemapindex roots
// yield <sitemap><loc>, and any other root yields every <loc>.
func parse(body []byte) (*document, error) {
	decoder := xml.NewDecoder(bytes.NewReader(body))
	decoder.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, eris.Wrapf(err, "sitemap: unsupported charset %q", charset)
		}
		return enc.NewDecoder().Reader(input), nil
	}

	doc := &document{}
	var (
		stack   []string
		rootSet bool
	)
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "sitemap: read token")
		}

		switch t := tok.(type) {
		case xml.StartElement:
			name := strings.ToLower(t.Name.Local)
			if !rootSet {
				rootSet = true
				switch name {
				case "urlset":
					doc.kind = kindURLSet
				case "sitemapindex":
					doc.kind = kindIndex
				}
			}
			if name != "loc" {
				stack = append(stack, name)
				continue
			}

			var loc string
			if err := decoder.DecodeElement(&loc, &t); err != nil {
				return nil, eris.Wrap(err, "sitemap: decode loc")
			}
			loc = strings.TrimSpace(loc)
			if loc == "" {
				continue
			}
			parent := ""
			if len(stack) > 0 {
				parent = stack[len(stack)-1]
			}
			if wanted(doc.kind, parent) {
				doc.locs = append(doc.locs, loc)
			}
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}
	if !rootSet {
		return nil, eris.New("sitemap: empty document")
	}
	return doc, nil
}

func wanted(kind docKind, parent string) bool {
	switch kind {
	case kindURLSet:
		return parent == "url"
	case kindIndex:
		return parent == "sitemap"
	default:
		return true
	}
}

// looksLikeXML reports whether body is plausibly a sitemap rather than an
// HTML error page served with status 200.
func looksLikeXML(body []byte) bool {
	trimmed := bytes.TrimSpace(bytes.TrimPrefix(body, []byte("\xef\xbb\xbf")))
	if len(trimmed) == 0 || trimmed[0] != '<' {
		return false
	}
	head := strings.ToLower(string(trimmed[:min(len(trimmed), 512)]))
	if strings.HasPrefix(head, "<!doctype html") || strings.HasPrefix(head, "<html") {
		return false
	}
	return strings.HasPrefix(head, "<?xml") ||
		strings.Contains(head, "<urlset") ||
		strings.Contains(head, "<sitemapindex")
}
