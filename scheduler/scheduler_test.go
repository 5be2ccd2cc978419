package scheduler

import (
	"math"
	"testing"

	"github.com/dj-ccs/negentropic-kernel/grid"
	"github.com/dj-ccs/negentropic-kernel/hyd"
	"github.com/dj-ccs/negentropic-kernel/numerics"
	"github.com/dj-ccs/negentropic-kernel/reg"
	"github.com/dj-ccs/negentropic-kernel/se3"
)

func newCascadeGrid(n int) *grid.Grid {
	g := grid.NewGrid(n, 1, 1, 0)
	soil := numerics.SoilParams{KSat: 2.5e-5, ThetaR: 0.04, ThetaS: 0.42, Alpha: 0.5, N: 1.5}
	for x := 0; x < n; x++ {
		c := grid.NewCell(soil, "loam", 0, 10, 1, se3.FacePosZ, float64(x), 0)
		g.Activate(x, 0, 0, c)
	}
	return g
}

func TestCascadeRunsHYDEveryTickAndREGOnCadence(t *testing.T) {
	g := newCascadeGrid(4)
	sub := numerics.NewSubstrate(1)
	c := NewCascade(4, hyd.DefaultStepConfig())

	params := reg.DefaultRegionParams("test")
	regionOf := func(index int32) reg.RegionParams { return params }
	precip := func(index int32) float64 { return 0.001 }

	vBefore := g.At(0, 0, 0).V

	for i := 0; i < reg.TickInterval-1; i++ {
		c.Advance(sub, g, precip, regionOf)
	}
	if g.At(0, 0, 0).V != vBefore {
		t.Error("REG should not have run before reaching TickInterval ticks")
	}

	c.Advance(sub, g, precip, regionOf)
	if c.Tick != reg.TickInterval {
		t.Fatalf("tick count = %d, want %d", c.Tick, reg.TickInterval)
	}

	theta, _, runoff := c.AccumulatedMean(0)
	if theta != 0 || runoff != 0 {
		t.Errorf("accumulators should reset after a REG advance, got theta=%v runoff=%v", theta, runoff)
	}
}

func TestAccumulatedMeanTracksRunningAverageBetweenRegTicks(t *testing.T) {
	g := newCascadeGrid(2)
	sub := numerics.NewSubstrate(1)
	c := NewCascade(2, hyd.DefaultStepConfig())

	params := reg.DefaultRegionParams("test")
	regionOf := func(index int32) reg.RegionParams { return params }
	precip := func(index int32) float64 { return 0.002 }

	c.Advance(sub, g, precip, regionOf)
	c.Advance(sub, g, precip, regionOf)

	theta, _, _ := c.AccumulatedMean(0)
	if theta <= 0 {
		t.Errorf("expected a nonzero running theta average after two ticks, got %v", theta)
	}
}

func newImportanceGrid(n int) *grid.Grid {
	return newCascadeGrid(n)
}

func TestImportanceTrackerFirstTickHasNoDelta(t *testing.T) {
	g := newImportanceGrid(3)
	tr := NewImportanceTracker(3)

	imp := tr.Importance(g, 1, 0, 0, 0)
	if imp != 0 {
		t.Errorf("importance before any Snapshot should be 0, got %v", imp)
	}
}

func TestImportanceTrackerDetectsThetaChange(t *testing.T) {
	g := newImportanceGrid(3)
	tr := NewImportanceTracker(3)
	tr.Snapshot(g)

	g.At(0, 0, 0).Theta[0] += 0.1
	g.At(2, 0, 0).Theta[0] -= 0.1

	imp := tr.Importance(g, 1, 0, 0, 0)
	if imp <= 0 {
		t.Errorf("expected positive importance after a theta perturbation, got %v", imp)
	}
}

func TestImportanceTrackerIncludesRunoffWeight(t *testing.T) {
	g := newImportanceGrid(3)
	tr := NewImportanceTracker(3)
	tr.Snapshot(g)

	withoutRunoff := tr.Importance(g, 1, 0, 0, 0)
	withRunoff := tr.Importance(g, 1, 0, 0, 1)
	if withRunoff <= withoutRunoff {
		t.Errorf("runoff term should raise importance: %v vs %v", withRunoff, withoutRunoff)
	}
}

func freshNode(level int) *grid.QuadNode {
	n := grid.NewLeaf(level, grid.Rect{X0: 0, Y0: 0, X1: 8, Y1: 8}, -1)
	return &n
}

func TestEvaluateTransitionStaysStableInsideHysteresisGap(t *testing.T) {
	node := freshNode(2)
	// Between the refine (50km, >0.5) and coarsen (75km, <0.3) bands: no
	// transition should start.
	EvaluateTransition(node, 60, 0.4, 0)
	if node.State != grid.LoDStable {
		t.Errorf("expected stable state in the hysteresis gap, got %v", node.State)
	}
}

func TestEvaluateTransitionStartsRefineAndCommitsAfterBlendFrames(t *testing.T) {
	node := freshNode(2)
	EvaluateTransition(node, 10, 0.9, 100)
	if node.State != grid.LoDCandidateRefine {
		t.Fatalf("expected candidate-refine, got %v", node.State)
	}
	if node.TransitionFrame != 100 {
		t.Errorf("TransitionFrame = %d, want 100", node.TransitionFrame)
	}

	for i := 0; i < BlendFrames-1; i++ {
		EvaluateTransition(node, 10, 0.9, uint64(101+i))
		if node.State != grid.LoDCandidateRefine {
			t.Fatalf("left candidate-refine early at frame %d", i)
		}
	}

	startLevel := node.Level
	EvaluateTransition(node, 10, 0.9, uint64(100+BlendFrames))
	if node.State != grid.LoDStable {
		t.Errorf("expected commit back to stable after BlendFrames, got %v", node.State)
	}
	if node.Level != startLevel-1 {
		t.Errorf("refine should decrease Level by 1: got %d, want %d", node.Level, startLevel-1)
	}
}

func TestEvaluateTransitionStartsCoarsenAndCommitsAfterBlendFrames(t *testing.T) {
	node := freshNode(1)
	EvaluateTransition(node, 100, 0.1, 0)
	if node.State != grid.LoDCandidateCoarsen {
		t.Fatalf("expected candidate-coarsen, got %v", node.State)
	}

	startLevel := node.Level
	for i := 0; i < BlendFrames; i++ {
		EvaluateTransition(node, 100, 0.1, uint64(i+1))
	}
	if node.State != grid.LoDStable {
		t.Errorf("expected commit back to stable, got %v", node.State)
	}
	if node.Level != startLevel+1 {
		t.Errorf("coarsen should increase Level by 1: got %d, want %d", node.Level, startLevel+1)
	}
}

func TestEvaluateTransitionBoundedTransitionCountUnderOscillation(t *testing.T) {
	node := freshNode(1)
	transitions := 0
	prevState := node.State
	// Oscillate the inputs every tick for far longer than one blend
	// window; the state machine should never commit more than once per
	// BlendFrames ticks, bounding the total number of level changes.
	for i := 0; i < 10*BlendFrames; i++ {
		if i%2 == 0 {
			EvaluateTransition(node, 10, 0.9, uint64(i))
		} else {
			EvaluateTransition(node, 100, 0.1, uint64(i))
		}
		if node.State != prevState {
			transitions++
			prevState = node.State
		}
	}
	maxExpected := (10*BlendFrames)/BlendFrames + 2
	if transitions > maxExpected {
		t.Errorf("too many state transitions under oscillating input: %d (max expected ~%d)", transitions, maxExpected)
	}
}

func TestBlendIntensiveInterpolatesAcrossTransition(t *testing.T) {
	node := freshNode(2)
	EvaluateTransition(node, 10, 0.9, 0)

	start := BlendIntensive(node, 10, 20)
	if start != 10 {
		t.Errorf("blend at frame 0 should equal the old value, got %v", start)
	}

	for i := 0; i < BlendFrames-1; i++ {
		EvaluateTransition(node, 10, 0.9, uint64(i+1))
	}
	mid := BlendIntensive(node, 10, 20)
	if mid <= 10 || mid >= 20 {
		t.Errorf("mid-transition blend should lie strictly between old and new, got %v", mid)
	}
}

func TestQuadTreeRefineSeedsChildrenFromParentStats(t *testing.T) {
	qt := NewQuadTree(grid.Rect{X0: 0, Y0: 0, X1: 8, Y1: 8})
	root := qt.Node(qt.Root())
	root.Stats = grid.Summary{Mean: 0.3, Variance: 0.01, Min: 0.1, Max: 0.5}

	qt.Refine(qt.Root())
	if root.Leaf {
		t.Fatal("refined root should no longer be a leaf")
	}
	for _, ci := range root.Children {
		child := qt.Node(ci)
		if !child.Leaf {
			t.Error("new children should be leaves")
		}
		if child.Stats != root.Stats {
			t.Errorf("child Stats should be seeded from parent, got %+v want %+v", child.Stats, root.Stats)
		}
		if child.Level != root.Level+1 {
			t.Errorf("child Level = %d, want %d", child.Level, root.Level+1)
		}
	}
}

func TestQuadTreeCoarsenPreservesMassWithinTolerance(t *testing.T) {
	g := newCascadeGrid(4)
	// give every cell a distinct theta so summary stats are non-trivial
	for x := 0; x < 4; x++ {
		g.At(x, 0, 0).Theta[0] = 0.1 + 0.05*float64(x)
	}

	var total float64
	n := 0
	g.EachActive(func(idx int32, c *grid.Cell) {
		total += c.Theta[0]
		n++
	})
	wantMean := total / float64(n)

	qt := NewQuadTree(grid.Rect{X0: 0, Y0: 0, X1: 4, Y1: 1})
	qt.Refine(qt.Root())
	root := qt.Node(qt.Root())
	for _, ci := range root.Children {
		qt.CoarsenTheta(g, ci)
	}
	qt.Coarsen(g, qt.Root(), func(c *grid.Cell) float64 { return c.Theta[0] })

	got := qt.Node(qt.Root()).Stats.Mean
	if math.Abs(got-wantMean) > 1e-6*math.Abs(wantMean) {
		t.Errorf("coarsen mean mass not preserved: got %v want %v", got, wantMean)
	}
}

func TestQuadTreeLeavesEnumeratesAllLeaves(t *testing.T) {
	qt := NewQuadTree(grid.Rect{X0: 0, Y0: 0, X1: 8, Y1: 8})
	qt.Refine(qt.Root())

	leaves := qt.Leaves(qt.Root(), nil)
	if len(leaves) != 4 {
		t.Fatalf("expected 4 leaves after one refine, got %d", len(leaves))
	}
	for _, li := range leaves {
		if !qt.Node(li).Leaf {
			t.Errorf("node %d reported by Leaves is not a leaf", li)
		}
	}
}
