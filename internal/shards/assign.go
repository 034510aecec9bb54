package shards

import (
	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"

	"shards/internal/graph"
)

type assigner struct {
	tree *graph.Tree
	root graph.NodeID
	plan *Plan
}

// Assign consumes tree leaf by leaf and returns the bundle each file belongs
// to. The tree is left holding only its root.
//
// Every occurrence of a leaf's file is gathered, each occurrence's chain of
// enclosing bundle boundaries is computed, and the file goes to the deepest
// boundary all chains agree on. All occurrences are then detached. Lazy nodes
// that become leaves are detached without being assigned: their bundle was
// registered up front and already received its content.
func Assign(tree *graph.Tree) (*Plan, error) {
	root := tree.Root()
	a := &assigner{
		tree: tree,
		root: root,
		plan: newPlan(tree.Node(root).Path),
	}
	for _, id := range tree.LazyEndpoints(root) {
		a.plan.register(tree.Node(id).Path, true)
	}

	// Each step detaches at least one node, so the arena size bounds the loop.
	budget := tree.Len()
	for step := 0; ; step++ {
		if step > budget {
			return nil, errors.AssertionFailedf("bundle assignment did not converge after %d steps", step)
		}
		if err := a.pruneLazyLeaves(); err != nil {
			return nil, err
		}
		leaves := tree.FindLeaves(root)
		if len(leaves) == 0 {
			if len(tree.Node(root).Children) > 0 {
				return nil, errors.AssertionFailedf("tree has children but no processable leaves")
			}
			break
		}
		if leaves[0] == root {
			break
		}
		if err := a.assignLeaf(leaves[0]); err != nil {
			return nil, err
		}
	}

	if err := a.plan.Validate(); err != nil {
		return nil, err
	}
	return a.plan, nil
}

func (a *assigner) assignLeaf(leaf graph.NodeID) error {
	n := a.tree.Node(leaf)
	similar := a.tree.AllByPath(a.root, n.Path)

	chains := make([][]graph.NodeID, len(similar))
	for i, id := range similar {
		chains[i] = a.tree.BundleChain(id)
	}
	lca := a.lowestCommonBundle(chains)
	target := a.tree.Node(lca)

	bundle := a.plan.Bundle(target.Path)
	if bundle == nil {
		return errors.AssertionFailedf("no bundle registered for boundary %s", target.Path)
	}
	if bundle.add(Member{Path: n.Path, Size: n.Size}) {
		log.Debug("Assigned file to bundle", "file", n.Path, "bundle", target.Path, "occurrences", len(similar))
	}

	for _, id := range similar {
		a.tree.Node(id).Moved = true
		if err := a.tree.DetachFromParent(id); err != nil {
			return err
		}
	}

	// A boundary with nothing left to resolve carries no more information.
	if lca != a.root && target.Parent != graph.NoParent &&
		lo.EveryBy(target.Children, func(c graph.NodeID) bool { return a.tree.Node(c).Moved }) {
		return a.tree.Detach(target.Parent, lca)
	}
	return nil
}

// lowestCommonBundle scans chain positions from the deepest towards the root
// and returns the first position at which every chain has an entry with the
// same path. Position 0 is always the root.
func (a *assigner) lowestCommonBundle(chains [][]graph.NodeID) graph.NodeID {
	longest := lo.Max(lo.Map(chains, func(c []graph.NodeID, _ int) int { return len(c) }))
	it := longest - 1
	for it > 0 && !a.agreeAt(chains, it) {
		it--
	}
	return chains[0][it]
}

func (a *assigner) agreeAt(chains [][]graph.NodeID, it int) bool {
	if it >= len(chains[0]) {
		return false
	}
	want := a.tree.Node(chains[0][it]).Path
	return lo.EveryBy(chains, func(c []graph.NodeID) bool {
		return it < len(c) && a.tree.Node(c[it]).Path == want
	})
}

// pruneLazyLeaves detaches lazy leaves until none remain. Removing a lazy leaf
// can expose its lazy parent as a new leaf.
func (a *assigner) pruneLazyLeaves() error {
	for {
		pruned := false
		for _, id := range a.tree.FindLeaves(a.root) {
			n := a.tree.Node(id)
			if !n.Lazy || n.Parent == graph.NoParent {
				continue
			}
			if err := a.tree.Detach(n.Parent, id); err != nil {
				return err
			}
			pruned = true
		}
		if !pruned {
			return nil
		}
	}
}
