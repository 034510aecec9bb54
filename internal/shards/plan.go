// Package shards decides which output bundle owns each file of an import tree.
package shards

import (
	"fmt"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"

	"shards/internal/errutil"
	"shards/util"
)

// Member is a file assigned to a bundle. Size is the byte length of the file
// that imported it.
type Member struct {
	Path string `json:"path"`
	Size int    `json:"size"`
}

// Bundle is one output unit, keyed by the path of its root file. Members never
// include the root file itself.
type Bundle struct {
	Root    string   `json:"root"`
	Lazy    bool     `json:"lazy"`
	Members []Member `json:"members"`
}

// Has reports whether path is already a member.
func (b *Bundle) Has(path string) bool {
	return slices.ContainsFunc(b.Members, func(m Member) bool { return m.Path == path })
}

// add appends m unless a member with the same path exists.
func (b *Bundle) add(m Member) bool {
	if b.Has(m.Path) {
		return false
	}
	b.Members = append(b.Members, m)
	return true
}

// Paths returns the member paths in order.
func (b *Bundle) Paths() []string {
	out := make([]string, len(b.Members))
	for i, m := range b.Members {
		out[i] = m.Path
	}
	return out
}

// Plan is the result of bundle assignment: the entry bundle first, then one
// bundle per distinct lazy import in discovery order.
type Plan struct {
	Entry   string    `json:"entry"`
	Bundles []*Bundle `json:"bundles"`
}

func newPlan(entry string) *Plan {
	p := &Plan{Entry: entry}
	p.register(entry, false)
	return p
}

func (p *Plan) register(root string, lazy bool) *Bundle {
	if b := p.Bundle(root); b != nil {
		return b
	}
	b := &Bundle{Root: root, Lazy: lazy, Members: []Member{}}
	p.Bundles = append(p.Bundles, b)
	return b
}

// Bundle returns the bundle rooted at root, or nil.
func (p *Plan) Bundle(root string) *Bundle {
	for _, b := range p.Bundles {
		if b.Root == root {
			return b
		}
	}
	return nil
}

// Owner returns the root of the bundle that materializes path: the bundle it
// is a member of, or the bundle it is the root of.
func (p *Plan) Owner(path string) (string, bool) {
	for _, b := range p.Bundles {
		if b.Has(path) {
			return b.Root, true
		}
	}
	if b := p.Bundle(path); b != nil {
		return b.Root, true
	}
	return "", false
}

// Files returns every file the plan materializes, bundle roots included.
func (p *Plan) Files() []string {
	var out []string
	seen := map[string]bool{}
	for _, b := range p.Bundles {
		for _, path := range append([]string{b.Root}, b.Paths()...) {
			if !seen[path] {
				seen[path] = true
				out = append(out, path)
			}
		}
	}
	return out
}

// Validate checks that no file is a member of two bundles and that no bundle
// lists a file twice.
func (p *Plan) Validate() error {
	owner := map[string]string{}
	for _, b := range p.Bundles {
		for _, m := range b.Members {
			if prev, ok := owner[m.Path]; ok {
				return errors.Mark(
					errors.Newf("%s is assigned to both %s and %s", m.Path, prev, b.Root),
					errutil.ErrInconsistent,
				)
			}
			owner[m.Path] = b.Root
		}
	}
	return nil
}

// Describe lists each bundle and its members, paths relative to base.
func (p *Plan) Describe(base string) string {
	var sb strings.Builder
	for _, b := range p.Bundles {
		sb.WriteString(util.RelOrAbs(base, b.Root))
		if b.Lazy {
			sb.WriteString(" (lazy)")
		}
		sb.WriteString("\n")
		for _, m := range b.Members {
			fmt.Fprintf(&sb, "\t|%s\n", util.RelOrAbs(base, m.Path))
		}
	}
	return sb.String()
}
