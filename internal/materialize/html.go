package materialize

import (
	"bytes"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"shards/internal/graph"
	"shards/internal/scanner"
	"shards/internal/shards"
)

const emptyDocument = "<!DOCTYPE html><html><head></head><body></body></html>"

// mediaSelector lists elements whose src is copied as an asset rather than
// inlined.
const mediaSelector = "img[src], source[src], video[src], audio[src], track[src]"

// inlineHTML merges the head and body of every member, then the root, into
// the root document. Eager import links are dropped since their targets are
// inlined here or in an enclosing bundle. Lazy import links are re-pointed
// relative to the bundle's directory. Local scripts and stylesheets are
// inlined, other local assets are copied and re-pointed, comments are
// stripped.
func (r *run) inlineHTML(b *shards.Bundle) ([]byte, error) {
	bundleDir := filepath.Dir(b.Root)
	files := append(b.Paths(), b.Root)

	var (
		heads, bodies strings.Builder
		skeleton      *goquery.Document
	)
	for i, path := range files {
		raw, ok := readMember(path)
		if !ok {
			continue
		}
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse %s", path)
		}
		r.rewriteDocument(doc, filepath.Dir(path), bundleDir)

		for _, part := range []struct {
			sel string
			sb  *strings.Builder
		}{{"head", &heads}, {"body", &bodies}} {
			inner, err := doc.Find(part.sel).Html()
			if err != nil {
				return nil, errors.Wrapf(err, "failed to render %s", path)
			}
			if inner = strings.TrimSpace(inner); inner != "" {
				part.sb.WriteString(inner)
				part.sb.WriteString("\n")
			}
		}
		if i == len(files)-1 {
			skeleton = doc
		}
	}

	if skeleton == nil {
		var err error
		if skeleton, err = goquery.NewDocumentFromReader(strings.NewReader(emptyDocument)); err != nil {
			return nil, errors.Wrap(err, "failed to create document")
		}
	}
	skeleton.Find("head").SetHtml(heads.String())
	skeleton.Find("body").SetHtml(bodies.String())

	out, err := skeleton.Html()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to render bundle %s", b.Root)
	}
	if !hasDoctype(skeleton) {
		out = "<!DOCTYPE html>\n" + out
	}
	return []byte(out + "\n"), nil
}

// rewriteDocument prepares doc, located in dir, for inclusion in a bundle
// written for bundleDir.
func (r *run) rewriteDocument(doc *goquery.Document, dir, bundleDir string) {
	doc.Find("*").AddSelection(doc.Selection).Contents().Each(func(_ int, s *goquery.Selection) {
		if goquery.NodeName(s) == "#comment" {
			s.Remove()
		}
	})

	doc.Find("link").Each(func(_ int, link *goquery.Selection) {
		if lazy, isImport := scanner.ImportRel(link); isImport {
			if !lazy {
				link.Remove()
				return
			}
			r.repoint(link, "href", dir, bundleDir)
			return
		}
		if hasToken(link.AttrOr("rel", ""), "stylesheet") {
			r.inlineStylesheet(link, dir, bundleDir)
		}
	})

	doc.Find("script[src]").Each(func(_ int, script *goquery.Selection) {
		target, ok := r.localTarget(script.AttrOr("src", ""), dir)
		if !ok {
			return
		}
		raw, ok := readMember(target)
		if !ok {
			r.repoint(script, "src", dir, bundleDir)
			return
		}
		script.RemoveAttr("src")
		script.Empty()
		script.AppendNodes(&html.Node{Type: html.TextNode, Data: string(raw)})
	})

	doc.Find(mediaSelector).Each(func(_ int, el *goquery.Selection) {
		if target, ok := r.repoint(el, "src", dir, bundleDir); ok {
			r.copyAsset(target)
		}
	})
}

func (r *run) inlineStylesheet(link *goquery.Selection, dir, bundleDir string) {
	target, ok := r.localTarget(link.AttrOr("href", ""), dir)
	if !ok {
		return
	}
	raw, ok := readMember(target)
	if !ok {
		r.repoint(link, "href", dir, bundleDir)
		return
	}
	style := &html.Node{Type: html.ElementNode, Data: "style", DataAtom: atom.Style}
	if media, ok := link.Attr("media"); ok {
		style.Attr = append(style.Attr, html.Attribute{Key: "media", Val: media})
	}
	style.AppendChild(&html.Node{Type: html.TextNode, Data: string(raw)})
	link.ReplaceWithNodes(style)
}

// repoint rewrites the URL in attr, written relative to dir, so it resolves
// from bundleDir. It returns the absolute target for local URLs.
func (r *run) repoint(s *goquery.Selection, attr, dir, bundleDir string) (string, bool) {
	raw := s.AttrOr(attr, "")
	target, ok := r.localTarget(raw, dir)
	if !ok {
		return "", false
	}
	u, _ := url.Parse(raw)
	rel, err := filepath.Rel(bundleDir, target)
	if err != nil {
		log.Warn("Cannot re-point URL", "url", raw, "err", err)
		return "", false
	}
	u.Path = filepath.ToSlash(rel)
	s.SetAttr(attr, u.String())
	return target, true
}

// localTarget resolves a URL written in dir to a file path. URLs with a
// scheme or host, and empty or fragment-only URLs, are not local.
func (r *run) localTarget(raw, dir string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "" || u.Host != "" || u.Path == "" {
		return "", false
	}
	return graph.ResolveHref(r.m.root, dir, u.Path), true
}

func hasToken(list, token string) bool {
	for _, f := range strings.Fields(list) {
		if strings.EqualFold(f, token) {
			return true
		}
	}
	return false
}

func hasDoctype(doc *goquery.Document) bool {
	for n := doc.Nodes[0].FirstChild; n != nil; n = n.NextSibling {
		if n.Type == html.DoctypeNode {
			return true
		}
	}
	return false
}
