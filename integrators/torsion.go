package integrators

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/dj-ccs/negentropic-kernel/grid"
	"github.com/dj-ccs/negentropic-kernel/se3"
)

// Torsion coefficients, locked (§4.5): alphaTorsion feeds the vertical
// pseudo-velocity into buoyancy, epsilonMomentum and betaTemperature feed
// it into momentum and temperature respectively.
const (
	alphaTorsion    = 0.1
	epsilonMomentum = 0.05
	betaTemperature = 0.02

	// torsionScaleHeight is H in w_c = -H * laplacian(omega_z).
	torsionScaleHeight = 1000.0
)

// localMomentumCouplingTable precomputes 8e-4*(lod/3)^1.5 for the four LoD
// levels, a locked table rather than a per-call power evaluation (§4.5
// "alpha_local = 8e-4 * (lod_level/3)^1.5").
var localMomentumCouplingTable = [4]float64{0, 1.539600717839002e-4, 4.354648431614539e-4, 8e-4}

// LocalMomentumCoupling returns the per-cell momentum coupling strength at
// the given LoD level (0 finest .. 3 coarsest).
func LocalMomentumCoupling(lod int) float64 {
	if lod < 0 {
		lod = 0
	}
	if lod > 3 {
		lod = 3
	}
	return localMomentumCouplingTable[lod]
}

// windVector lifts a cell's horizontal wind into a local 3-vector with a
// zero vertical component, for cross-face transforms.
func windVector(c *grid.Cell) r3.Vec {
	return r3.Vec{X: c.WindU, Y: c.WindV, Z: 0}
}

// neighborWindInLocalFrame returns neighbor's wind velocity expressed in
// cell's face-local frame: identity when both share a face, otherwise
// transformed through ECEF (§4.5 "transforming the neighbor velocity into
// the local face frame first").
func neighborWindInLocalFrame(cellFace, neighborFace se3.Face, neighbor *grid.Cell) (u, v float64) {
	if cellFace == neighborFace {
		return neighbor.WindU, neighbor.WindV
	}
	ecef := se3.FaceLocalToECEF(neighborFace, windVector(neighbor))
	local := se3.ECEFToFaceLocal(cellFace, ecef)
	return local.X, local.Y
}

// ComputeTorsion fills c.Torsion with the discrete curl omega_z = dv/dx -
// du/dy on a 5-point stencil at (x,y), one-sided at grid edges, with
// cross-face neighbor velocities rotated into the local frame first.
func ComputeTorsion(g *grid.Grid, x, y, z int) {
	c := g.At(x, y, z)
	if c == nil {
		return
	}

	vRight, vLeft, haveRight, haveLeft := 0.0, 0.0, false, false
	if x+1 < g.Nx {
		if n := g.At(x+1, y, z); n != nil {
			_, vRight = neighborWindInLocalFrame(c.Face, n.Face, n)
			haveRight = true
		}
	}
	if x-1 >= 0 {
		if n := g.At(x-1, y, z); n != nil {
			_, vLeft = neighborWindInLocalFrame(c.Face, n.Face, n)
			haveLeft = true
		}
	}

	uUp, uDown, haveUp, haveDown := 0.0, 0.0, false, false
	if y+1 < g.Ny {
		if n := g.At(x, y+1, z); n != nil {
			uUp, _ = neighborWindInLocalFrame(c.Face, n.Face, n)
			haveUp = true
		}
	}
	if y-1 >= 0 {
		if n := g.At(x, y-1, z); n != nil {
			uDown, _ = neighborWindInLocalFrame(c.Face, n.Face, n)
			haveDown = true
		}
	}

	dvdx := centralOrOneSided(vRight, vLeft, haveRight, haveLeft, c.WindV, c.DX)
	dudy := centralOrOneSided(uUp, uDown, haveUp, haveDown, c.WindU, c.DX)

	c.Torsion = dvdx - dudy
}

// centralOrOneSided computes a derivative from whichever neighbors exist:
// central difference when both sides are available, one-sided otherwise.
func centralOrOneSided(plus, minus float64, havePlus, haveMinus bool, center, step float64) float64 {
	switch {
	case havePlus && haveMinus:
		return (plus - minus) / (2 * step)
	case havePlus:
		return (plus - center) / step
	case haveMinus:
		return (center - minus) / step
	default:
		return 0
	}
}

// ApplyTorsionFeedback applies the vertical pseudo-velocity computed from
// c.Torsion's Laplacian back into surface buoyancy, momentum, and
// temperature (§4.5). thetaAloft is the reference aloft temperature driving
// the temperature feedback; lod scales the momentum coupling.
func ApplyTorsionFeedback(g *grid.Grid, x, y, z int, thetaAloft float64, lod int) {
	c := g.At(x, y, z)
	if c == nil {
		return
	}

	lap := torsionLaplacian(g, x, y, z)
	wc := -torsionScaleHeight * lap

	// Buoyancy: b_eff = b + alpha_torsion * w_c, folded into HSurface as
	// the cell's only buoyancy-adjacent scalar.
	c.HSurface += alphaTorsion * wc

	omega := r3.Vec{X: 0, Y: 0, Z: c.Torsion}
	u := windVector(c)
	// Momentum coupling uses the LoD-scaled coefficient, not the fixed
	// epsilonMomentum constant: the spec's source material states both
	// and requires picking one for production (open-questions resolution,
	// DESIGN.md). epsilonMomentum is kept as the named locked-reference
	// value the resolution records, not as a second term to add in.
	coupling := LocalMomentumCoupling(lod)
	gain := r3.Scale(coupling, r3.Cross(omega, u))
	c.WindU += gain.X
	c.WindV += gain.Y

	c.Temperature += betaTemperature * wc * (thetaAloft - c.Temperature)
}

// torsionLaplacian evaluates the 5-point Laplacian of c.Torsion at (x,y),
// one-sided at edges, matching the stencil discipline in ComputeTorsion.
func torsionLaplacian(g *grid.Grid, x, y, z int) float64 {
	c := g.At(x, y, z)
	if c == nil {
		return 0
	}
	step := c.DX
	if step == 0 {
		return 0
	}

	sum := 0.0
	count := 0
	if n := g.At(x+1, y, z); n != nil {
		sum += n.Torsion
		count++
	}
	if n := g.At(x-1, y, z); n != nil {
		sum += n.Torsion
		count++
	}
	if n := g.At(x, y+1, z); n != nil {
		sum += n.Torsion
		count++
	}
	if n := g.At(x, y-1, z); n != nil {
		sum += n.Torsion
		count++
	}
	if count == 0 {
		return 0
	}
	return (sum - float64(count)*c.Torsion) / (step * step)
}
