package graph

import (
	"strings"

	"shards/util"
)

// FlatNode is one file in the flattened tree dump.
type FlatNode struct {
	Name   string `json:"name"`
	Parent string `json:"parent"`
	Lazy   bool   `json:"lazy,omitempty"`
	Size   int    `json:"size"`
}

// Flatten lists each distinct file reachable from root once, with the path of
// the file that imported it. When a file occurs several times the deepest,
// last-visited occurrence wins.
func (t *Tree) Flatten(root NodeID) []FlatNode {
	index := map[string]int{}
	var out []FlatNode
	var visit func(id NodeID)
	visit = func(id NodeID) {
		n := t.Node(id)
		for _, c := range n.Children {
			visit(c)
		}
		fn := FlatNode{Name: n.Path, Lazy: n.Lazy, Size: n.Size}
		if n.Parent != NoParent {
			fn.Parent = t.Node(n.Parent).Path
		}
		if i, ok := index[n.Path]; ok {
			out[i] = fn
			return
		}
		index[n.Path] = len(out)
		out = append(out, fn)
	}
	visit(root)
	return out
}

// Render draws the tree below root, with paths shown relative to base and lazy
// imports marked.
// Example:
// index.html
// ├── elements/a.html
// └── elements/lazy-a.html (lazy)
//     └── elements/b.html
func (t *Tree) Render(root NodeID, base string) string {
	var sb strings.Builder
	n := t.Node(root)
	sb.WriteString(label(n, base))
	sb.WriteString("\n")
	t.render(&sb, root, base, "")
	return strings.TrimSpace(sb.String())
}

func (t *Tree) render(sb *strings.Builder, id NodeID, base, prefix string) {
	children := t.Node(id).Children
	for i, c := range children {
		isLast := i == len(children)-1
		sb.WriteString(prefix)
		if isLast {
			sb.WriteString("└── ")
		} else {
			sb.WriteString("├── ")
		}
		sb.WriteString(label(t.Node(c), base))
		sb.WriteString("\n")

		newPrefix := prefix
		if isLast {
			newPrefix += "    "
		} else {
			newPrefix += "│   "
		}
		t.render(sb, c, base, newPrefix)
	}
}

func label(n *Node, base string) string {
	name := util.RelOrAbs(base, n.Path)
	if n.Lazy {
		name += " (lazy)"
	}
	return name
}
