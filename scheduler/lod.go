package scheduler

import (
	"github.com/dj-ccs/negentropic-kernel/grid"
)

// Distance and importance thresholds driving the LoD hysteresis state
// machine (§4.6). The 50/75 km and 0.5/0.3 gaps are mandatory: using the
// same threshold for both directions would thrash at the boundary.
const (
	RefineDistanceKm  = 50.0
	CoarsenDistanceKm = 75.0

	RefineImportance  = 0.5
	CoarsenImportance = 0.3

	// BlendFrames is the locked transition-blend duration (§4.6).
	BlendFrames = 30

	// RunoffImportanceWeight is alpha in importance = mean|delta| +
	// alpha*runoff; not locked by name in the source material, so it is
	// a tunable default rather than a constant borrowed verbatim.
	RunoffImportanceWeight = 0.25
)

var neighbor8 = [8][2]int{
	{-1, -1}, {0, -1}, {1, -1},
	{-1, 0}, {1, 0},
	{-1, 1}, {0, 1}, {1, 1},
}

// ImportanceTracker caches the previous tick's theta/V/SOM per cell so the
// spatial LoD controller can compute the 8-neighbor-mean delta metric
// (§4.6). One tracker is built per grid and Snapshot must be called once
// per tick, after the fields it tracks have settled for that tick.
type ImportanceTracker struct {
	prevTheta, prevV, prevSOM []float64
	hasPrev                   []bool
}

// NewImportanceTracker allocates a tracker for a grid with n linear-index
// slots.
func NewImportanceTracker(n int) *ImportanceTracker {
	return &ImportanceTracker{
		prevTheta: make([]float64, n),
		prevV:     make([]float64, n),
		prevSOM:   make([]float64, n),
		hasPrev:   make([]bool, n),
	}
}

// Snapshot records the current tick's field values for every active cell,
// to be diffed against on the next call to Importance.
func (t *ImportanceTracker) Snapshot(g *grid.Grid) {
	g.EachActive(func(idx int32, c *grid.Cell) {
		if int(idx) >= len(t.prevTheta) {
			return
		}
		t.prevTheta[idx] = c.Theta[0]
		t.prevV[idx] = c.V
		t.prevSOM[idx] = c.SOM
		t.hasPrev[idx] = true
	})
}

func absF(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// Importance computes the mean 8-neighbor |delta theta| + |delta V| +
// |delta SOM| plus alpha*runoff at (x,y), per §4.6. Neighbors without a
// recorded previous sample (first tick, or outside the grid) are skipped
// rather than treated as zero delta.
func (t *ImportanceTracker) Importance(g *grid.Grid, x, y, z int, runoff float64) float64 {
	sum := 0.0
	count := 0
	for _, off := range neighbor8 {
		nx, ny := x+off[0], y+off[1]
		if nx < 0 || ny < 0 || nx >= g.Nx || ny >= g.Ny {
			continue
		}
		c := g.At(nx, ny, z)
		if c == nil || !c.IsActive {
			continue
		}
		idx := g.Index(nx, ny, z)
		if int(idx) >= len(t.hasPrev) || !t.hasPrev[idx] {
			continue
		}
		sum += absF(c.Theta[0]-t.prevTheta[idx]) + absF(c.V-t.prevV[idx]) + absF(c.SOM-t.prevSOM[idx])
		count++
	}
	mean := 0.0
	if count > 0 {
		mean = sum / float64(count)
	}
	return mean + RunoffImportanceWeight*runoff
}

// EvaluateTransition applies the hysteresis state machine to node given
// its camera distance (km) and importance score (§4.6). A stable node
// starts REFINING or COARSENING when it crosses the wide-gap thresholds;
// a node already mid-transition counts frames and, after BlendFrames,
// commits the level change and returns to LoDStable. frame is the current
// simulation frame counter, recorded as TransitionFrame at the moment a
// transition starts.
//
// The blend itself — linearly interpolating intensive fields between the
// node's cached pre-transition Stats and its freshly recomputed Stats —
// is the caller's responsibility via BlendFactor; this function only
// drives the state and level bookkeeping.
func EvaluateTransition(node *grid.QuadNode, distanceKm, importance float64, frame uint64) {
	switch node.State {
	case grid.LoDStable:
		switch {
		case distanceKm < RefineDistanceKm && importance > RefineImportance && node.Level > 0:
			node.State = grid.LoDCandidateRefine
			node.FramesInState = 0
			node.TransitionFrame = frame
		case (distanceKm > CoarsenDistanceKm || importance < CoarsenImportance) && node.Level < 3:
			node.State = grid.LoDCandidateCoarsen
			node.FramesInState = 0
			node.TransitionFrame = frame
		}
	case grid.LoDCandidateRefine:
		node.FramesInState++
		if node.FramesInState >= BlendFrames {
			node.Level--
			node.State = grid.LoDStable
			node.FramesInState = 0
		}
	case grid.LoDCandidateCoarsen:
		node.FramesInState++
		if node.FramesInState >= BlendFrames {
			node.Level++
			node.State = grid.LoDStable
			node.FramesInState = 0
		}
	}
}

// BlendFactor returns the [0,1] interpolation weight toward the node's new
// level while it is transitioning, 1 once stable (fully settled).
func BlendFactor(node *grid.QuadNode) float64 {
	if node.State == grid.LoDStable {
		return 1
	}
	f := float64(node.FramesInState) / float64(BlendFrames)
	if f > 1 {
		f = 1
	}
	return f
}

// BlendIntensive linearly interpolates one intensive field between its
// cached pre-transition value and its freshly recomputed value, using
// node's current BlendFactor (§4.6 "linearly interpolating each intensive
// field between cached old and new values").
func BlendIntensive(node *grid.QuadNode, oldValue, newValue float64) float64 {
	w := BlendFactor(node)
	return oldValue + w*(newValue-oldValue)
}
