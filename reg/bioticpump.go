package reg

import "github.com/dj-ccs/negentropic-kernel/grid"

// BioticPumpThreshold is the vegetation fraction a cell must meet to
// count toward a contiguous vegetated patch (§4.4).
const BioticPumpThreshold = 0.6

// BioticPumpAreaM2 is the minimum contiguous patch area, in square
// meters, that triggers the condensation boost (§4.4 "100 km^2").
const BioticPumpAreaM2 = 100e6

// BetaVeg scales the condensation-rate multiplier by mean patch
// vegetation (§4.4): gamma_cond *= (1 + BetaVeg*V).
const BetaVeg = 2.0

var bioticPumpNeighbors8 = [8][2]int{
	{-1, -1}, {0, -1}, {1, -1},
	{-1, 0}, {1, 0},
	{-1, 1}, {0, 1}, {1, 1},
}

// patchOffset is a local (dx,dy) displacement; only used inside BFS.
type patchOffset = [2]int

// CondensationMultiplier runs an 8-connected breadth-first search from
// seed over cells with V >= BioticPumpThreshold. If the patch's area
// exceeds BioticPumpAreaM2, it returns the boosted condensation-rate
// multiplier (1 + BetaVeg*meanV) for the patch; otherwise it returns 1
// (no boost) and ok=false.
//
// The standard library's plain slice-queue BFS is used rather than a
// graph library: this is an 8-connected flood fill over a dense boolean
// predicate, not a general graph traversal, and the only graph-theory
// library in the retrieved corpus is not a dependency of the chosen
// teacher.
func CondensationMultiplier(g *grid.Grid, seedX, seedY int, cellAreaM2 float64) (multiplier float64, boosted bool) {
	seed := g.At(seedX, seedY, 0)
	if seed == nil || seed.V < BioticPumpThreshold {
		return 1, false
	}

	visited := make(map[int32]bool)
	queue := []patchOffset{{seedX, seedY}}
	start := g.Index(seedX, seedY, 0)
	visited[start] = true

	var sumV float64
	count := 0

	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]

		c := g.At(p[0], p[1], 0)
		if c == nil {
			continue
		}
		sumV += c.V
		count++

		for _, off := range bioticPumpNeighbors8 {
			nx, ny := p[0]+off[0], p[1]+off[1]
			if nx < 0 || ny < 0 || nx >= g.Nx || ny >= g.Ny {
				continue
			}
			idx := g.Index(nx, ny, 0)
			if visited[idx] {
				continue
			}
			n := g.At(nx, ny, 0)
			if n == nil || n.V < BioticPumpThreshold {
				continue
			}
			visited[idx] = true
			queue = append(queue, patchOffset{nx, ny})
		}
	}

	area := float64(count) * cellAreaM2
	if area <= BioticPumpAreaM2 {
		return 1, false
	}
	meanV := sumV / float64(count)
	return 1 + BetaVeg*meanV, true
}
