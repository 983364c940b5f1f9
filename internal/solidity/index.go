package solidity

import "github.com/1cbyc/view0x-sub000/internal/util"

// Index wraps one parsed source tree with a child->parent map and a
// type index, both built in a single pre-order pass. It exposes no
// mutation API: nodes never hold back-references, so the tree stays
// acyclic and safe to share across concurrently running detectors.
type Index struct {
	Root   *Node
	Source string

	parent map[*Node]*Node
	byType map[string][]*Node
	order  map[*Node]int
	lines  *util.LineTable
}

func NewIndex(root *Node, source string) *Index {
	idx := &Index{
		Root:   root,
		Source: source,
		parent: map[*Node]*Node{},
		byType: map[string][]*Node{},
		order:  map[*Node]int{},
		lines:  util.NewLineTable(source),
	}
	if root != nil {
		idx.walk(root, nil)
	}
	return idx
}

func (idx *Index) walk(n *Node, parent *Node) {
	idx.order[n] = len(idx.order)
	if parent != nil {
		idx.parent[n] = parent
	}
	idx.byType[n.Type] = append(idx.byType[n.Type], n)
	for _, c := range n.Children() {
		idx.walk(c, n)
	}
}

// AllOfType returns every node with the given tag in pre-order.
func (idx *Index) AllOfType(tag string) []*Node { return idx.byType[tag] }

// FirstOfType returns the first node with the given tag in pre-order,
// or nil.
func (idx *Index) FirstOfType(tag string) *Node {
	ns := idx.byType[tag]
	if len(ns) == 0 {
		return nil
	}
	return ns[0]
}

// Find returns every indexed node satisfying pred, in pre-order.
func (idx *Index) Find(pred func(*Node) bool) []*Node {
	var out []*Node
	idx.visit(idx.Root, func(n *Node) {
		if pred(n) {
			out = append(out, n)
		}
	})
	return out
}

func (idx *Index) visit(n *Node, fn func(*Node)) {
	if n == nil {
		return
	}
	fn(n)
	for _, c := range n.Children() {
		idx.visit(c, fn)
	}
}

// ParentOf returns the parent of n, or nil for the root.
func (idx *Index) ParentOf(n *Node) *Node { return idx.parent[n] }

// Ancestors returns the chain from n's parent up to the root.
func (idx *Index) Ancestors(n *Node) []*Node {
	var out []*Node
	for p := idx.parent[n]; p != nil; p = idx.parent[p] {
		out = append(out, p)
	}
	return out
}

// NearestAncestorOfType returns the closest ancestor with the given
// tag, or nil.
func (idx *Index) NearestAncestorOfType(n *Node, tag string) *Node {
	for p := idx.parent[n]; p != nil; p = idx.parent[p] {
		if p.Type == tag {
			return p
		}
	}
	return nil
}

// IsDescendantOf reports whether a sits strictly below b.
func (idx *Index) IsDescendantOf(a, b *Node) bool {
	for p := idx.parent[a]; p != nil; p = idx.parent[p] {
		if p == b {
			return true
		}
	}
	return false
}

// SiblingsOf returns the other children of n's parent.
func (idx *Index) SiblingsOf(n *Node) []*Node {
	p := idx.parent[n]
	if p == nil {
		return nil
	}
	var out []*Node
	for _, c := range p.Children() {
		if c != n {
			out = append(out, c)
		}
	}
	return out
}

// LineOf translates a node's start offset to a 1-based line number.
func (idx *Index) LineOf(n *Node) int { return idx.lines.LineAt(n.Loc.Start) }

// LineAt translates an arbitrary byte offset to a 1-based line number.
func (idx *Index) LineAt(offset int) int { return idx.lines.LineAt(offset) }
