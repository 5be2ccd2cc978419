package hyd

import (
	"math"

	"github.com/dj-ccs/negentropic-kernel/grid"
)

// RoutingScheme selects the horizontal explicit surface-water transport
// rule (§4.3).
type RoutingScheme int

const (
	RoutingD8 RoutingScheme = iota
	RoutingDInf
)

// neighborOffsets enumerates the 8 von-Neumann+diagonal neighbors in a
// fixed lexicographic order, used to break ties deterministically.
var neighborOffsets = [8][2]int{
	{-1, -1}, {0, -1}, {1, -1},
	{-1, 0}, {1, 0},
	{-1, 1}, {0, 1}, {1, 1},
}

// MicrotopographyConductance returns the sigmoid C(zeta) = 1/(1+exp(-a(z-zc)))
// that suppresses effective conductivity until local depressions fill
// (§4.3 "fill-and-spill").
func MicrotopographyConductance(zeta, ac, zetaC float64) float64 {
	return 1 / (1 + math.Exp(-ac*(zeta-zetaC)))
}

// flow is one pending change to a cell's ponded water (a delivery to a
// neighbor, or a source cell's own outflow as a negative amount), queued
// during the read pass and applied after so routing within a tick
// sees only the start-of-tick state (§5 "horizontal transport observes the
// state at the start of the tick").
type flow struct {
	index  int32
	amount float64
}

// RouteSurfaceWater performs one explicit horizontal routing pass over the
// grid's ponded surface water, using either D8 (steepest single neighbor)
// or D-infinity (split between the two neighbors bracketing the steepest
// triangular facet), per §4.3. dt is the tick length in the same time unit
// as the column solve.
func RouteSurfaceWater(g *grid.Grid, scheme RoutingScheme, dt float64) {
	var pending []flow

	g.EachActive(func(index int32, c *grid.Cell) {
		if c.HSurface <= 0 {
			return
		}
		x, y := indexToXY(g, index)
		start := c.HSurface

		switch scheme {
		case RoutingDInf:
			pending = append(pending, routeDInf(g, x, y, c, dt)...)
		default:
			pending = append(pending, routeD8(g, x, y, c, dt)...)
		}

		// Defer the source's own deduction with the deliveries so cells
		// visited later still see this cell's start-of-tick depth.
		pending = append(pending, flow{index: index, amount: c.HSurface - start})
		c.HSurface = start
	})

	for _, o := range pending {
		dst := g.AtIndex(o.index)
		if dst == nil {
			continue
		}
		dst.HSurface += o.amount
	}
}

// clampSlope caps a computed slope ratio at maxSlope (the terracing
// intervention's clamp, §4.3); maxSlope == 0 means unrestricted.
func clampSlope(slope, maxSlope float64) float64 {
	if maxSlope > 0 && slope > maxSlope {
		return maxSlope
	}
	return slope
}

func indexToXY(g *grid.Grid, index int32) (int, int) {
	i := int(index)
	x := i % g.Nx
	y := (i / g.Nx) % g.Ny
	return x, y
}

// routeD8 sends the maximum-conveyable fraction of a cell's ponded water
// to the single neighbor with the steepest descending slope, breaking ties
// by lexicographic neighbor index (fixed iteration order over
// neighborOffsets).
func routeD8(g *grid.Grid, x, y int, c *grid.Cell, dt float64) []flow {
	best := -1
	bestSlope := 0.0
	var bestNeighbor int32

	elevHere := c.Z + c.HSurface
	for i, off := range neighborOffsets {
		nx, ny := x+off[0], y+off[1]
		if nx < 0 || ny < 0 || nx >= g.Nx || ny >= g.Ny {
			continue
		}
		n := g.At(nx, ny, 0)
		if n == nil {
			continue
		}
		l := math.Hypot(float64(off[0])*c.DX, float64(off[1])*c.DX)
		if l == 0 {
			continue
		}
		slope := (elevHere - (n.Z + n.HSurface)) / l
		slope = clampSlope(slope, c.MaxSlope)
		if slope > bestSlope {
			bestSlope = slope
			best = i
			bestNeighbor = g.Index(nx, ny, 0)
		}
	}
	if best < 0 {
		return nil
	}

	outAmount := math.Min(c.HSurface, bestSlope*dt)
	c.HSurface -= outAmount
	return []flow{{index: bestNeighbor, amount: outAmount}}
}

// routeDInf splits outflow between the two steepest descending neighbors,
// which bracket the steepest triangular facet, proportionally to their
// slopes.
func routeDInf(g *grid.Grid, x, y int, c *grid.Cell, dt float64) []flow {
	type candidate struct {
		idx   int32
		slope float64
	}
	var candidates []candidate

	elevHere := c.Z + c.HSurface
	for _, off := range neighborOffsets {
		nx, ny := x+off[0], y+off[1]
		if nx < 0 || ny < 0 || nx >= g.Nx || ny >= g.Ny {
			continue
		}
		n := g.At(nx, ny, 0)
		if n == nil {
			continue
		}
		l := math.Hypot(float64(off[0])*c.DX, float64(off[1])*c.DX)
		if l == 0 {
			continue
		}
		slope := clampSlope((elevHere-(n.Z+n.HSurface))/l, c.MaxSlope)
		if slope > 0 {
			candidates = append(candidates, candidate{idx: g.Index(nx, ny, 0), slope: slope})
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	best, second := candidates[0], candidate{slope: -1}
	for _, cand := range candidates[1:] {
		switch {
		case cand.slope > best.slope:
			second = best
			best = cand
		case cand.slope > second.slope:
			second = cand
		}
	}
	hasSecond := second.slope >= 0

	total := best.slope
	outflowSlope := best.slope
	if hasSecond {
		total += second.slope
		outflowSlope += second.slope
	}
	if total <= 0 {
		return nil
	}

	outAmount := math.Min(c.HSurface, outflowSlope*dt*0.5)
	c.HSurface -= outAmount

	fracBest := best.slope / total
	flows := []flow{{index: best.idx, amount: outAmount * fracBest}}
	if hasSecond {
		flows = append(flows, flow{index: second.idx, amount: outAmount * (1 - fracBest)})
	}
	return flows
}
