package kernel

import (
	"math"

	"github.com/dj-ccs/negentropic-kernel/grid"
	"github.com/dj-ccs/negentropic-kernel/scheduler"
)

// lodTileDepth is how many scheduler.QuadTree.Refine passes the handle's
// LoD tree is split into at create time, giving up to 4^lodTileDepth
// independently tracked regions whose importance/distance can diverge
// (§4.6). Leaves start at QuadNode.Level == lodTileDepth, the middle of
// the 0..3 tier range, so a region can move toward either LOD0 (refine)
// or LOD3 (coarsen) from its first evaluation.
const lodTileDepth = 2

// newLODTree builds a QuadTree over a grid's full extent and refines it
// lodTileDepth levels deep.
func newLODTree(nx, ny int) *scheduler.QuadTree {
	tree := scheduler.NewQuadTree(grid.Rect{X0: 0, Y0: 0, X1: nx, Y1: ny})
	frontier := []int{tree.Root()}
	for depth := 0; depth < lodTileDepth; depth++ {
		var next []int
		for _, i := range frontier {
			tree.Refine(i)
			next = append(next, tree.Node(i).Children[:]...)
		}
		frontier = next
	}
	return tree
}

// SetFocus records the grid coordinate the spatial LoD controller treats
// as the camera/region of interest (§4.6's "distance" term): a host
// updates this from its own camera_move handling. Left unset, a handle
// defaults to the grid's center, so the LoD controller still exercises
// every tier without requiring a host to drive it.
func SetFocus(id uint64, x, y int) error {
	h, err := lookup(id)
	if err != nil {
		return err
	}
	h.focusX, h.focusY = x, y
	return nil
}

// PinLOD overrides the spatial LoD controller, forcing level onto every
// active cell rather than letting EvaluateTransition's importance/distance
// hysteresis commit changes on its own (§8 S3 "force every cell to LOD3
// so the Clebsch-collective step runs every tick" needs a way to hold a
// tier steady regardless of what the automatic controller would pick).
// Pass a negative level to release the pin and return to automatic
// control from the next REG cadence tick onward.
func PinLOD(id uint64, level int) error {
	h, err := lookup(id)
	if err != nil {
		return err
	}
	if level < 0 {
		h.lodPinned = false
		return nil
	}
	h.lodPinned = true
	h.lodPin = clampLODLevel(level)
	h.stampAllLOD(h.lodPin)
	return nil
}

func (h *Handle) stampAllLOD(level grid.LODLevel) {
	h.grid.EachActive(func(_ int32, c *grid.Cell) {
		c.LOD = level
	})
}

// evaluateLOD runs the spatial LoD hysteresis pass over every leaf of the
// handle's LoD tree and stamps the committed level onto every active cell
// the leaf covers (§4.6). Step calls this once per REG cadence tick, the
// same cadence reg.Update itself runs on, since the 8-neighbor delta
// metric Importance computes is only meaningful once a REG window's worth
// of change has actually accumulated. A pinned handle (PinLOD) skips the
// hysteresis machine entirely and just reasserts the pinned level.
func (h *Handle) evaluateLOD() {
	if h.lodPinned {
		h.stampAllLOD(h.lodPin)
		return
	}

	leaves := h.lodTree.Leaves(h.lodTree.Root(), h.lodLeavesBuf[:0])
	h.lodLeavesBuf = leaves

	cellKm := h.focusCellSpacingKm()
	for _, li := range leaves {
		node := h.lodTree.Node(li)
		cx := (node.Bounds.X0 + node.Bounds.X1) / 2
		cy := (node.Bounds.Y0 + node.Bounds.Y1) / 2
		distanceKm := math.Hypot(float64(cx-h.focusX), float64(cy-h.focusY)) * cellKm

		importance := h.regionImportance(node.Bounds)

		scheduler.EvaluateTransition(node, distanceKm, importance, h.tick)
		h.applyLOD(node)
	}

	h.lodImportance.Snapshot(h.grid)
}

// regionImportance averages ImportanceTracker.Importance over every
// active cell in b, pairing each cell with its own REG-window runoff
// accumulator (§4.6 "importance = ... + alpha*runoff").
func (h *Handle) regionImportance(b grid.Rect) float64 {
	sum := 0.0
	n := 0
	for y := b.Y0; y < b.Y1; y++ {
		for x := b.X0; x < b.X1; x++ {
			c := h.grid.At(x, y, 0)
			if c == nil || !c.IsActive {
				continue
			}
			_, _, runoff := h.cascade.AccumulatedMean(h.grid.Index(x, y, 0))
			sum += h.lodImportance.Importance(h.grid, x, y, 0, runoff)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// applyLOD stamps node's (clamped) committed level onto every active cell
// it covers, the write integrators.SelectMethod reads per-cell.
func (h *Handle) applyLOD(node *grid.QuadNode) {
	level := clampLODLevel(node.Level)
	for y := node.Bounds.Y0; y < node.Bounds.Y1; y++ {
		for x := node.Bounds.X0; x < node.Bounds.X1; x++ {
			c := h.grid.At(x, y, 0)
			if c == nil || !c.IsActive {
				continue
			}
			c.LOD = level
		}
	}
}

func clampLODLevel(level int) grid.LODLevel {
	switch {
	case level < int(grid.LOD0):
		return grid.LOD0
	case level > int(grid.LOD3):
		return grid.LOD3
	default:
		return grid.LODLevel(level)
	}
}

// focusCellSpacingKm returns the grid spacing at the focus cell, in
// kilometers, used to turn tile-index distance into the km units
// EvaluateTransition's thresholds are specified in. Falls back to 1 km if
// the focus cell is inactive or carries no spacing.
func (h *Handle) focusCellSpacingKm() float64 {
	c := h.grid.At(h.focusX, h.focusY, 0)
	if c == nil || c.DX <= 0 {
		return 1.0
	}
	return c.DX / 1000.0
}
