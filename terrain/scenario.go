package terrain

import (
	"github.com/dj-ccs/negentropic-kernel/grid"
	"github.com/dj-ccs/negentropic-kernel/numerics"
	"github.com/dj-ccs/negentropic-kernel/se3"
)

// InitialConditions bundles the per-cell starting values §8 S1's
// canonical scenario specifies: a per-layer volumetric moisture profile,
// a uniform baseline SOM and vegetation fraction, and the seeded
// vegetation patchiness fraction to perturb that baseline by.
type InitialConditions struct {
	Theta            [grid.SoilLayers]float64
	SOMKgM3          float64
	VegetationBase   float64
	VegetationPatch  float64 // fraction, e.g. 0.025 for "2.5% patchiness"
	Soil             numerics.SoilParams
	SoilKey          string
	CellSpacingM     float64
}

// SeedFlatDomain activates every (x,y,0) cell of g on the cubed-sphere's
// +Z face with elevation and vegetation-patchiness sampled from elev/patch
// and the remaining fields from ic — the single-face, flat-domain layout
// §8 S1's 100x100-cell scenario uses (a full cubed-sphere domain is out
// of scope for the canonical scenario; see grid's other seeding call
// sites for the general case). u,v coordinates are world positions in
// meters, x and y times ic.CellSpacingM (each cell's lower corner, not its
// center), matching se3.FaceLocalToECEF's expected units.
func SeedFlatDomain(g *grid.Grid, nx, ny int, elev *ElevationGenerator, patch *PatchGenerator, ic InitialConditions) {
	for y := 0; y < ny; y++ {
		v := (float64(y) + 0.5) / float64(ny)
		for x := 0; x < nx; x++ {
			u := (float64(x) + 0.5) / float64(nx)

			z := 0.0
			if elev != nil {
				z = elev.At(u, v)
			}

			c := grid.NewCell(ic.Soil, ic.SoilKey, z, ic.CellSpacingM, 1,
				se3.FacePosZ, float64(x)*ic.CellSpacingM, float64(y)*ic.CellSpacingM)

			c.Theta = ic.Theta
			c.SOM = ic.SOMKgM3
			c.V = ic.VegetationBase
			if patch != nil {
				c.V = clamp01(ic.VegetationBase + patch.At(u, v)*ic.VegetationPatch)
			}

			g.Activate(x, y, 0, c)
		}
	}
}
