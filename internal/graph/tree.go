package graph

import (
	"slices"

	"github.com/cockroachdb/errors"
)

// Detach removes child from parent's children and clears its parent link.
// Detaching a node that is not a child of parent is an invariant violation.
func (t *Tree) Detach(parent, child NodeID) error {
	p, c := t.Node(parent), t.Node(child)
	if p == nil || c == nil {
		return errors.AssertionFailedf("detach: unknown node (parent=%d child=%d)", parent, child)
	}
	idx := slices.Index(p.Children, child)
	if idx < 0 || c.Parent != parent {
		return errors.AssertionFailedf("detach: node %d (%s) is not a child of %d (%s)", child, c.Path, parent, p.Path)
	}
	p.Children = slices.Delete(p.Children, idx, idx+1)
	c.Parent = NoParent
	c.Detached = true
	return nil
}

// DetachFromParent detaches id from whatever node currently holds it. Nodes
// without a parent are left alone.
func (t *Tree) DetachFromParent(id NodeID) error {
	n := t.Node(id)
	if n == nil {
		return errors.AssertionFailedf("detach: unknown node %d", id)
	}
	if n.Parent == NoParent {
		return nil
	}
	return t.Detach(n.Parent, id)
}

// Walk visits every node reachable from id, depth first, parents before
// children, in child order.
func (t *Tree) Walk(id NodeID, fn func(*Node)) {
	n := t.Node(id)
	if n == nil {
		return
	}
	fn(n)
	for _, c := range n.Children {
		t.Walk(c, fn)
	}
}

// FindLeaves returns the nodes reachable from root that have no children and
// have not been moved. It is a point-in-time query.
func (t *Tree) FindLeaves(root NodeID) []NodeID {
	var leaves []NodeID
	t.Walk(root, func(n *Node) {
		if len(n.Children) == 0 && !n.Moved {
			leaves = append(leaves, n.ID)
		}
	})
	return leaves
}

// NearestBundleRoot returns the node whose bundle currently owns id's content:
// the closest lazy ancestor, or the root. With includeSelfLazy the walk passes
// through lazy ancestors and always ends at the root.
func (t *Tree) NearestBundleRoot(id NodeID, includeSelfLazy bool) NodeID {
	n := t.Node(id)
	if n.Parent == NoParent {
		return id
	}
	cur := t.Node(n.Parent)
	for cur.Parent != NoParent && (!cur.Lazy || includeSelfLazy) {
		cur = t.Node(cur.Parent)
	}
	return cur.ID
}

// BundleChain lists the bundle boundaries above id, root first. The node's
// own laziness never makes it its own first entry.
func (t *Tree) BundleChain(id NodeID) []NodeID {
	var chain []NodeID
	p := id
	for {
		p = t.NearestBundleRoot(p, false)
		chain = append(chain, p)
		if t.Node(p).Parent == NoParent {
			break
		}
	}
	slices.Reverse(chain)
	return chain
}

// AllByPath returns every node reachable from root whose path is path.
func (t *Tree) AllByPath(root NodeID, path string) []NodeID {
	var out []NodeID
	t.Walk(root, func(n *Node) {
		if n.Path == path {
			out = append(out, n.ID)
		}
	})
	return out
}

// LazyEndpoints returns the first lazy node reachable from root for each
// distinct path, in discovery order.
func (t *Tree) LazyEndpoints(root NodeID) []NodeID {
	var out []NodeID
	seen := map[string]bool{}
	t.Walk(root, func(n *Node) {
		if n.Lazy && !seen[n.Path] {
			seen[n.Path] = true
			out = append(out, n.ID)
		}
	})
	return out
}

// Paths returns the distinct paths reachable from root in discovery order.
func (t *Tree) Paths(root NodeID) []string {
	var out []string
	seen := map[string]bool{}
	t.Walk(root, func(n *Node) {
		if !seen[n.Path] {
			seen[n.Path] = true
			out = append(out, n.Path)
		}
	})
	return out
}
