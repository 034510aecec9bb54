package graph

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"

	"shards/internal/errutil"
	"shards/internal/scanner"
)

// Builder expands an entry document into its occurrence tree.
type Builder struct {
	cache *scanner.Cache
	root  string
}

// NewBuilder creates a Builder resolving root-relative hrefs against root.
func NewBuilder(cache *scanner.Cache, root string) *Builder {
	return &Builder{cache: cache, root: root}
}

// ResolveHref turns an import href into an absolute path. Hrefs starting with
// "/" are relative to the project root, all others to the importing file's
// directory.
func ResolveHref(root, dir, href string) string {
	if strings.HasPrefix(href, "/") {
		return filepath.Join(root, href)
	}
	return filepath.Join(dir, href)
}

// Build expands entry, a path relative to the project root or absolute, into
// the full occurrence tree. Sibling subtrees are expanded concurrently; a node
// is complete only once all of its children are.
func (b *Builder) Build(ctx context.Context, entry string) (*Tree, error) {
	path := entry
	if !filepath.IsAbs(path) {
		path = filepath.Join(b.root, entry)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, errors.WithHint(
			errors.Wrapf(errutil.ErrEntryNotFound, "%s", path),
			"the entry is resolved relative to the project root",
		)
	}

	t := NewTree(path, entry)
	if err := b.expand(ctx, t, t.Root()); err != nil {
		return nil, err
	}
	log.Debug("Built dependency tree", "entry", path, "nodes", t.Len())
	return t, nil
}

func (b *Builder) expand(ctx context.Context, t *Tree, id NodeID) error {
	n := t.Node(id)
	entry, err := b.cache.Imports(ctx, n.Path)
	if err != nil {
		return err
	}

	dir := filepath.Dir(n.Path)
	kept := make([]Node, 0, len(entry.Imports))
	for _, imp := range entry.Imports {
		path := ResolveHref(b.root, dir, imp.Href)
		// Drop edges back into the current ancestor chain.
		if t.HasAncestorPath(id, path) {
			log.Debug("Skipping cyclic import", "from", n.Path, "href", imp.Href)
			continue
		}
		kept = append(kept, Node{Path: path, Endpoint: imp.Href, Lazy: imp.Lazy, Size: entry.Size})
	}
	if len(kept) == 0 {
		return nil
	}

	children := t.AddChildren(id, kept)
	g, gctx := errgroup.WithContext(ctx)
	for _, child := range children {
		g.Go(func() error {
			return b.expand(gctx, t, child)
		})
	}
	return g.Wait()
}
