package scanner

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/cockroachdb/errors"
)

const (
	RelImport     = "import"
	RelLazyImport = "lazy-import"
)

// HTMLExtractor finds <link rel="import"> and <link rel="lazy-import"> elements
// anywhere in a document.
type HTMLExtractor struct{}

func (HTMLExtractor) Extract(path string, content []byte) ([]Import, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", path)
	}
	return LinkImports(doc.Selection), nil
}

// LinkImports collects import links below sel in document order.
func LinkImports(sel *goquery.Selection) []Import {
	var imports []Import
	sel.Find("link").Each(func(_ int, link *goquery.Selection) {
		lazy, ok := ImportRel(link)
		if !ok {
			return
		}
		href := strings.TrimSpace(link.AttrOr("href", ""))
		if href == "" {
			return
		}
		imports = append(imports, Import{Href: href, Lazy: lazy})
	})
	return imports
}

// ImportRel reports whether link is an import link and whether it is lazy.
func ImportRel(link *goquery.Selection) (lazy bool, ok bool) {
	rel, exists := link.Attr("rel")
	if !exists {
		return false, false
	}
	switch strings.ToLower(strings.TrimSpace(rel)) {
	case RelImport:
		return false, true
	case RelLazyImport:
		return true, true
	}
	return false, false
}
