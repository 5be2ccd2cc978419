package scheduler

import (
	"github.com/dj-ccs/negentropic-kernel/grid"
)

// QuadTree is an arena of grid.QuadNode: children and parent are indices
// into Nodes rather than pointers, so the whole tree is one contiguous
// slice safe to snapshot (§3, §4.6). Refine/Coarsen never resample or
// reallocate the underlying Grid cells — the tree is a fidelity-cadence
// and summary-statistics overlay, the cells it covers stay put.
type QuadTree struct {
	Nodes []grid.QuadNode
}

// NewQuadTree allocates a tree with a single root leaf covering bounds.
func NewQuadTree(bounds grid.Rect) *QuadTree {
	return &QuadTree{Nodes: []grid.QuadNode{grid.NewLeaf(0, bounds, -1)}}
}

// Root returns the arena index of the tree's root node.
func (t *QuadTree) Root() int { return 0 }

// Node returns a pointer to the node at arena index i.
func (t *QuadTree) Node(i int) *grid.QuadNode { return &t.Nodes[i] }

func quadrants(b grid.Rect) [4]grid.Rect {
	mx := (b.X0 + b.X1) / 2
	my := (b.Y0 + b.Y1) / 2
	return [4]grid.Rect{
		{X0: b.X0, Y0: b.Y0, X1: mx, Y1: my},
		{X0: mx, Y0: b.Y0, X1: b.X1, Y1: my},
		{X0: b.X0, Y0: my, X1: mx, Y1: b.Y1},
		{X0: mx, Y0: my, X1: b.X1, Y1: b.Y1},
	}
}

// Refine splits the leaf at arena index i into four quadrant children,
// each seeded with a copy of the parent's Stats (§3 "copy is the minimum"
// for a newly created child — it is overwritten on the child's first
// Coarsen/refresh). i's node becomes an internal node; its own Stats are
// left untouched so queries made mid-transition still see the pre-refine
// summary.
func (t *QuadTree) Refine(i int) {
	parent := &t.Nodes[i]
	if !parent.Leaf {
		return
	}
	quads := quadrants(parent.Bounds)
	var childIdx [4]int
	for q := 0; q < 4; q++ {
		child := grid.NewLeaf(parent.Level+1, quads[q], i)
		child.Stats = parent.Stats
		t.Nodes = append(t.Nodes, child)
		childIdx[q] = len(t.Nodes) - 1
	}
	parent.Children = childIdx
	parent.Leaf = false
}

// Coarsen folds the four children of the internal node at arena index i
// back into a single leaf, recomputing i's Stats fresh from the still-
// intact Grid via field (§4.6: coarsening never approximates — the
// parent summary is recomputed from the fine-scale cells it covers, not
// derived from the children's cached summaries). The children are
// detached but left resident in the arena rather than swap-removed, so
// no other node's arena index is invalidated.
func (t *QuadTree) Coarsen(g *grid.Grid, i int, field func(c *grid.Cell) float64) {
	node := &t.Nodes[i]
	if node.Leaf {
		return
	}
	node.Stats = grid.SummarizeField(g, node.Bounds, field)
	node.Children = [4]int{-1, -1, -1, -1}
	node.Leaf = true
}

// CoarsenTheta is Coarsen specialized to top-layer moisture, the field
// most often summarized at a coarsen.
func (t *QuadTree) CoarsenTheta(g *grid.Grid, i int) {
	t.Coarsen(g, i, func(c *grid.Cell) float64 { return c.Theta[0] })
}

// Leaves appends the arena index of every leaf node reachable from root
// to out, depth-first.
func (t *QuadTree) Leaves(root int, out []int) []int {
	node := &t.Nodes[root]
	if node.Leaf {
		return append(out, root)
	}
	for _, c := range node.Children {
		out = t.Leaves(c, out)
	}
	return out
}
