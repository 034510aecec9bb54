// Package materialize turns a bundle plan into files on disk.
package materialize

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"

	"shards/internal/errutil"
	"shards/internal/scanner"
	"shards/internal/shards"
	"shards/util"
)

// Materializer writes each bundle to Dest, mirroring the bundle root's
// location below Root.
type Materializer struct {
	root    string
	dest    string
	locator scanner.Locator
}

func New(root, dest string) *Materializer {
	return &Materializer{root: root, dest: dest, locator: scanner.DefaultDispatch()}
}

// OutputPath returns where the file at src (a bundle root or an asset) is
// written.
func (m *Materializer) OutputPath(src string) (string, error) {
	rel, ok := util.Within(m.root, src)
	if !ok {
		return "", errors.Newf("%s is outside the project root %s", src, m.root)
	}
	return filepath.Join(m.dest, rel), nil
}

// run is the state of one Write call.
type run struct {
	m    *Materializer
	plan *shards.Plan

	mu      sync.Mutex
	written []string
	assets  map[string]bool
}

func (r *run) record(path string) {
	r.mu.Lock()
	r.written = append(r.written, path)
	r.mu.Unlock()
}

// Write materializes every bundle of plan concurrently and returns the output
// paths in bundle order. Assets referenced by inlined documents are copied
// alongside. If any bundle fails, everything already written is removed and
// the error is returned.
func (m *Materializer) Write(ctx context.Context, plan *shards.Plan) ([]string, error) {
	r := &run{m: m, plan: plan, assets: map[string]bool{}}
	outputs := make([]string, len(plan.Bundles))

	g, gctx := errgroup.WithContext(ctx)
	for i, b := range plan.Bundles {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := r.writeBundle(b)
			if err != nil {
				return err
			}
			r.record(out)
			outputs[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, out := range r.written {
			if rmErr := os.Remove(out); rmErr != nil && !os.IsNotExist(rmErr) {
				log.Warn("Failed to clean up bundle", "path", out, "err", rmErr)
			}
		}
		return nil, errors.Mark(err, errutil.ErrMaterialize)
	}
	return outputs, nil
}

func (r *run) writeBundle(b *shards.Bundle) (string, error) {
	out, err := r.m.OutputPath(b.Root)
	if err != nil {
		return "", err
	}

	var content []byte
	if isHTML(b.Root) {
		content, err = r.inlineHTML(b)
	} else {
		content, err = r.concatScripts(b)
	}
	if err != nil {
		return "", errors.Wrapf(err, "failed to render bundle %s", b.Root)
	}

	if err := writeFile(out, content); err != nil {
		return "", err
	}
	log.Debug("Wrote bundle", "bundle", b.Root, "output", out, "members", len(b.Members))
	return out, nil
}

// copyAsset copies src to its mirrored location under dest, once per Write.
// Failures are logged; the bundle still references the asset.
func (r *run) copyAsset(src string) {
	r.mu.Lock()
	if r.assets[src] {
		r.mu.Unlock()
		return
	}
	r.assets[src] = true
	r.mu.Unlock()

	out, err := r.m.OutputPath(src)
	if err != nil {
		log.Warn("Not copying asset", "path", src, "err", err)
		return
	}
	raw, err := os.ReadFile(src)
	if err != nil {
		log.Warn("Skipping unreadable asset", "path", src, "err", err)
		return
	}
	if err := writeFile(out, raw); err != nil {
		log.Warn("Failed to copy asset", "path", src, "err", err)
		return
	}
	r.record(out)
}

func writeFile(path string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "failed to create directory for %s", path)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return nil
}

// readMember reads a bundle file. Files that were unreadable while building the
// tree are skipped here too.
func readMember(path string) ([]byte, bool) {
	raw, err := os.ReadFile(path)
	if err != nil {
		log.Warn("Skipping unreadable bundle file", "path", path, "err", err)
		return nil, false
	}
	return raw, true
}

// relSpec is the relative URL from dir to target, always starting with "./"
// or "../".
func relSpec(dir, target string) string {
	rel, err := filepath.Rel(dir, target)
	if err != nil {
		return filepath.ToSlash(target)
	}
	rel = filepath.ToSlash(rel)
	if !strings.HasPrefix(rel, "../") {
		rel = "./" + rel
	}
	return rel
}

func isHTML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return true
	}
	return false
}
