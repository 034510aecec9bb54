package materialize

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/cockroachdb/errors"

	"shards/internal/graph"
	"shards/internal/scanner"
	"shards/internal/shards"
	"shards/util"
)

// concatScripts joins the members and then the root into one module. Static
// imports of files inside the bundle are removed; imports of files owned by
// other bundles, and dynamic imports of lazy bundles, are re-pointed at those
// bundles' outputs.
func (r *run) concatScripts(b *shards.Bundle) ([]byte, error) {
	files := append(b.Paths(), b.Root)
	inBundle := make(map[string]bool, len(files))
	for _, f := range files {
		inBundle[f] = true
	}
	bundleDir := filepath.Dir(b.Root)

	var buf bytes.Buffer
	for _, path := range files {
		raw, ok := readMember(path)
		if !ok {
			continue
		}
		located, err := r.m.locator.Locate(path, raw)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to locate imports in %s", path)
		}
		body := r.relink(raw, located, filepath.Dir(path), bundleDir, inBundle)

		fmt.Fprintf(&buf, "// %s\n", util.RelOrAbs(r.m.root, path))
		buf.Write(body)
		if len(body) > 0 && body[len(body)-1] != '\n' {
			buf.WriteByte('\n')
		}
	}
	return buf.Bytes(), nil
}

func (r *run) relink(raw []byte, located []scanner.Located, dir, bundleDir string, inBundle map[string]bool) []byte {
	var (
		out    bytes.Buffer
		cursor uint
	)
	for _, l := range located {
		target := graph.ResolveHref(r.m.root, dir, l.Href)

		if !l.Lazy && inBundle[target] {
			end := l.End
			if end < uint(len(raw)) && raw[end] == '\n' {
				end++
			}
			out.Write(raw[cursor:l.Start])
			cursor = end
			continue
		}

		owner, ok := r.plan.Owner(target)
		if l.Lazy {
			owner, ok = target, r.plan.Bundle(target) != nil
		}
		if !ok {
			continue
		}
		out.Write(raw[cursor:l.SpecStart])
		out.WriteString(relSpec(bundleDir, owner))
		cursor = l.SpecEnd
	}
	out.Write(raw[cursor:])
	return out.Bytes()
}
