package grid

import "gonum.org/v1/gonum/stat"

// LoDState is the hysteresis state machine driving refine/coarsen
// transitions (§4.6): a node only changes level after sitting past a
// configured number of frames in a candidate state, to avoid thrashing.
type LoDState int

const (
	LoDStable LoDState = iota
	LoDCandidateRefine
	LoDCandidateCoarsen
)

// Rect is an axis-aligned rectangle of the base grid, in cell coordinates.
type Rect struct {
	X0, Y0, X1, Y1 int
}

// Summary holds the sub-grid statistics a coarsen writes and a refine
// reads back (§3 QuadNode): mean, variance, min, max, preserved across a
// coarsen/refine round trip so a coarsened node can still answer queries
// about the detail it folded away.
type Summary struct {
	Mean, Variance, Min, Max float64
}

// SummarizeField computes a Summary over field(c) for every active cell in
// bounds, using gonum/stat for the mean/variance pass (§4.6 "sub-grid
// summary statistics ... preserved across coarsening"). Nonlinear derived
// fields (e.g. K) should be summarized by passing an accessor that reads
// the already fine-scale-computed value, never by averaging inputs and
// recomputing the nonlinearity at the coarse level (§4.6 "computed at the
// fine scale first, then averaged").
func SummarizeField(g *Grid, bounds Rect, field func(c *Cell) float64) Summary {
	var samples []float64
	for y := bounds.Y0; y < bounds.Y1; y++ {
		for x := bounds.X0; x < bounds.X1; x++ {
			c := g.At(x, y, 0)
			if c == nil || !c.IsActive {
				continue
			}
			samples = append(samples, field(c))
		}
	}
	if len(samples) == 0 {
		return Summary{}
	}
	mean, variance := stat.MeanVariance(samples, nil)
	lo, hi := samples[0], samples[0]
	for _, s := range samples {
		if s < lo {
			lo = s
		}
		if s > hi {
			hi = s
		}
	}
	return Summary{Mean: mean, Variance: variance, Min: lo, Max: hi}
}

// SummarizeTheta is SummarizeField specialized to top-layer moisture.
func SummarizeTheta(g *Grid, bounds Rect) Summary {
	return SummarizeField(g, bounds, func(c *Cell) float64 { return c.Theta[0] })
}

// QuadNode is one node of the spatial level-of-detail tree (§3, §4.6).
// children and parent are plain indices into a QuadTree's arena rather
// than pointers, so the arena can be serialized and so child/parent
// references never dangle across a coarsen/refine cycle.
type QuadNode struct {
	Level    int
	Bounds   Rect
	Children [4]int // arena indices, -1 if leaf
	Parent   int    // arena index, -1 if root
	Leaf     bool

	Importance float64
	State      LoDState
	FramesInState int
	TransitionFrame uint64

	Stats Summary
}

// NewLeaf returns a freshly created leaf QuadNode covering bounds at the
// given level, parented to parent (-1 for a root).
func NewLeaf(level int, bounds Rect, parent int) QuadNode {
	return QuadNode{
		Level:    level,
		Bounds:   bounds,
		Children: [4]int{-1, -1, -1, -1},
		Parent:   parent,
		Leaf:     true,
	}
}
