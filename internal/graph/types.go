// Package graph models the expanded import tree: one Node per import
// occurrence, held in an arena and addressed by NodeID.
package graph

import (
	"sync"
)

// NodeID addresses a Node inside its Tree.
type NodeID int

// NoParent marks the root, and any node detached from the tree.
const NoParent NodeID = -1

// Node represents one occurrence of an import edge. A file imported from N
// places yields N nodes.
type Node struct {
	ID       NodeID   `json:"id"`
	Path     string   `json:"path"`
	Endpoint string   `json:"endpoint,omitempty"`
	Lazy     bool     `json:"lazy"`
	Size     int      `json:"size"` // byte length of the importing file
	Parent   NodeID   `json:"parent"`
	Children []NodeID `json:"children,omitempty"`

	// Moved is set once the node's file has been committed to a bundle.
	Moved bool `json:"moved,omitempty"`
	// Detached is set once the node has been cut from the tree.
	Detached bool `json:"detached,omitempty"`
}

// IsRoot reports whether n has no parent and was never detached.
func (n *Node) IsRoot() bool {
	return n.Parent == NoParent && !n.Detached
}

// Tree is an arena of nodes. Node creation is safe for concurrent use; every
// other mutation belongs to a single goroutine.
type Tree struct {
	mu    sync.RWMutex
	nodes []*Node
	root  NodeID
}

// NewTree creates a tree whose root points at path.
func NewTree(path, endpoint string) *Tree {
	t := &Tree{}
	t.root = t.add(&Node{Path: path, Endpoint: endpoint, Parent: NoParent})
	return t
}

func (t *Tree) add(n *Node) NodeID {
	n.ID = NodeID(len(t.nodes))
	t.nodes = append(t.nodes, n)
	return n.ID
}

// Root returns the id of the root node.
func (t *Tree) Root() NodeID {
	return t.root
}

// Node returns the node for id, or nil if id is out of range.
func (t *Tree) Node(id NodeID) *Node {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if id < 0 || int(id) >= len(t.nodes) {
		return nil
	}
	return t.nodes[id]
}

// Len returns the number of nodes ever created, detached ones included.
func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.nodes)
}

// AddChildren appends one child per template under parent, in order, and
// returns their ids. Path, Endpoint, Lazy and Size are taken from the templates.
func (t *Tree) AddChildren(parent NodeID, templates []Node) []NodeID {
	t.mu.Lock()
	defer t.mu.Unlock()
	p := t.nodes[parent]
	ids := make([]NodeID, 0, len(templates))
	for _, tmpl := range templates {
		id := t.add(&Node{
			Path:     tmpl.Path,
			Endpoint: tmpl.Endpoint,
			Lazy:     tmpl.Lazy,
			Size:     tmpl.Size,
			Parent:   parent,
		})
		ids = append(ids, id)
	}
	p.Children = append(p.Children, ids...)
	return ids
}

// HasAncestorPath reports whether id or any node above it has the given path.
func (t *Tree) HasAncestorPath(id NodeID, path string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for cur := id; cur != NoParent; cur = t.nodes[cur].Parent {
		if t.nodes[cur].Path == path {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of t. Assignment mutates the tree it is given, so
// callers that still need the original tree hand over a clone.
func (t *Tree) Clone() *Tree {
	t.mu.RLock()
	defer t.mu.RUnlock()
	c := &Tree{root: t.root, nodes: make([]*Node, len(t.nodes))}
	for i, n := range t.nodes {
		cp := *n
		cp.Children = append([]NodeID(nil), n.Children...)
		c.nodes[i] = &cp
	}
	return c
}
