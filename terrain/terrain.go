// Package terrain implements the deterministic DEM and climate generators
// the canonical 10-year scenario (§8 S1) seeds a handle's grid from: a
// seeded elevation field and a seeded, time-varying annual-precipitation
// field, both built from tiled OpenSimplex fractal noise the same way
// the teacher's resource-potential field animates its capacity grid.
package terrain

import (
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// FBMParams shapes one fractal-noise generator: starting frequency
// (Scale), number of summed octaves, per-octave frequency multiplier
// (Lacunarity), per-octave amplitude multiplier (Gain), and a final
// power-law contrast applied to the normalized [0,1] sum — the same five
// knobs the teacher's ResourceField.fbmTiled exposes.
type FBMParams struct {
	Scale      float64
	Octaves    int
	Lacunarity float64
	Gain       float64
	Contrast   float64
}

// DefaultElevationFBM returns the FBM shape used for scenario S1's DEM:
// a handful of broad octaves producing gentle rolling terrain rather than
// jagged mountains, appropriate for a rangeland-restoration scenario.
func DefaultElevationFBM() FBMParams {
	return FBMParams{Scale: 1.5, Octaves: 4, Lacunarity: 2.0, Gain: 0.5, Contrast: 1.0}
}

// DefaultClimateFBM returns the FBM shape used for scenario S1's
// precipitation field: fewer, lower-frequency octaves, since annual
// rainfall varies smoothly across a 10 km domain rather than with
// elevation's short-wavelength detail.
func DefaultClimateFBM() FBMParams {
	return FBMParams{Scale: 0.8, Octaves: 3, Lacunarity: 2.2, Gain: 0.55, Contrast: 1.3}
}

// ElevationGenerator produces a deterministic elevation field over an
// nx×ny grid, tiling seamlessly at the domain's edges by sampling 2D
// noise on a torus embedded in 4D, exactly as the teacher's
// fbmTiled maps (u,v) to a 2-torus before evaluating 4D noise — §8 S1's
// DEM has no time axis, so the generator is evaluated once at
// construction rather than re-animated per tick.
type ElevationGenerator struct {
	noise      opensimplex.Noise
	params     FBMParams
	amplitudeM float64
	baseM      float64
}

// NewElevationGenerator builds a generator seeded by seed, producing
// elevations centered on baseM with an amplitude of amplitudeM.
func NewElevationGenerator(seed int64, params FBMParams, baseM, amplitudeM float64) *ElevationGenerator {
	return &ElevationGenerator{
		noise:      opensimplex.New(seed),
		params:     params,
		amplitudeM: amplitudeM,
		baseM:      baseM,
	}
}

// At samples the elevation at normalized grid position (u,v) in [0,1)^2.
func (g *ElevationGenerator) At(u, v float64) float64 {
	n := fbmTorus(g.noise, u, v, 0, g.params)
	return g.baseM + (n*2-1)*g.amplitudeM
}

// Grid evaluates the elevation field over every cell of an nx×ny grid,
// returning it row-major (y*nx+x), matching grid.Grid.Index's ordering.
func (g *ElevationGenerator) Grid(nx, ny int) []float64 {
	out := make([]float64, nx*ny)
	for y := 0; y < ny; y++ {
		v := (float64(y) + 0.5) / float64(ny)
		for x := 0; x < nx; x++ {
			u := (float64(x) + 0.5) / float64(nx)
			out[y*nx+x] = g.At(u, v)
		}
	}
	return out
}

// ClimateGenerator produces a deterministic, slowly-evolving annual
// precipitation field: a spatial FBM (seeded, tiled the same way as
// ElevationGenerator) modulates a fixed annual-cycle seasonal curve, so
// two cells at different locations receive different totals but every
// cell still shows the same wet/dry season timing §8 S1 expects of a
// single-climate-zone scenario.
type ClimateGenerator struct {
	noise        opensimplex.Noise
	params       FBMParams
	annualMeanMM float64
	spatialVar   float64 // fraction of annualMeanMM the spatial FBM may add/subtract
}

// NewClimateGenerator builds a generator seeded by seed, whose per-cell
// annual total is annualMeanMM plus/minus spatialVarFrac of that mean
// depending on position.
func NewClimateGenerator(seed int64, params FBMParams, annualMeanMM, spatialVarFrac float64) *ClimateGenerator {
	return &ClimateGenerator{
		noise:        opensimplex.New(seed),
		params:       params,
		annualMeanMM: annualMeanMM,
		spatialVar:   spatialVarFrac,
	}
}

// AnnualTotalMM returns the cell at (u,v)'s total annual rainfall in mm.
func (c *ClimateGenerator) AnnualTotalMM(u, v float64) float64 {
	n := fbmTorus(c.noise, u, v, 0, c.params)
	return c.annualMeanMM * (1 + (n*2-1)*c.spatialVar)
}

// AnnualTotalsGrid evaluates AnnualTotalMM over every cell of an nx×ny
// grid, row-major.
func (c *ClimateGenerator) AnnualTotalsGrid(nx, ny int) []float64 {
	out := make([]float64, nx*ny)
	for y := 0; y < ny; y++ {
		v := (float64(y) + 0.5) / float64(ny)
		for x := 0; x < nx; x++ {
			u := (float64(x) + 0.5) / float64(nx)
			out[y*nx+x] = c.AnnualTotalMM(u, v)
		}
	}
	return out
}

// seasonalWeight is a fixed unimodal wet-season curve over a 365-day
// year, peaking mid-year between days 182 and 183 (roughly a single-peak
// monsoon pattern) —
// arbitrary but fixed, since §8 S1 only constrains the annual total, not
// the within-year distribution.
func seasonalWeight(dayOfYear int) float64 {
	phase := 2 * math.Pi * float64(dayOfYear) / 365.0
	return 1 + math.Sin(phase-math.Pi/2)
}

// DailyRateMPerS returns the precipitation rate, in meters/second, that
// cell (u,v) should receive on dayOfYear (0-364) of simulated time, given
// this generator's annual total at that cell. Integrating this rate over
// 86400 seconds, summed across a 365-day year, reproduces AnnualTotalMM
// up to the seasonalWeight normalization below.
func (c *ClimateGenerator) DailyRateMPerS(u, v float64, dayOfYear int) float64 {
	const daysPerYear = 365.0
	const meanSeasonalWeight = 1.0 // seasonalWeight's average over a full year
	annualTotalM := c.AnnualTotalMM(u, v) / 1000.0
	dailyMeanM := annualTotalM / daysPerYear
	dailyM := dailyMeanM * seasonalWeight(dayOfYear) / meanSeasonalWeight
	return dailyM / 86400.0
}

// fbmTorus evaluates num octaves of 4D OpenSimplex noise sampled on a
// 2-torus parameterized by (u,v), optionally rotated by phase t (0 for a
// static field), normalizing the summed result to [0,1] and applying a
// power-law contrast — the exact construction of the teacher's
// ResourceField.fbmTiled, generalized to a free-standing function so both
// the elevation and climate generators share it.
func fbmTorus(noise opensimplex.Noise, u, v, t float64, p FBMParams) float64 {
	twoPi := 2.0 * math.Pi
	angleU := u * twoPi
	angleV := v * twoPi

	baseX := math.Cos(angleU)
	baseY := math.Sin(angleU)
	baseZ := math.Cos(angleV)
	baseW := math.Sin(angleV)

	rotXW := t * 0.7
	rotYZ := t * 0.53
	cosXW, sinXW := math.Cos(rotXW), math.Sin(rotXW)
	cosYZ, sinYZ := math.Cos(rotYZ), math.Sin(rotYZ)

	nx := baseX*cosXW - baseW*sinXW
	nw := baseX*sinXW + baseW*cosXW
	ny := baseY*cosYZ - baseZ*sinYZ
	nz := baseY*sinYZ + baseZ*cosYZ

	sum := 0.0
	amp := 0.5
	freq := p.Scale
	for o := 0; o < p.Octaves; o++ {
		n := (noise.Eval4(nx*freq, ny*freq, nz*freq, nw*freq) + 1) * 0.5
		sum += amp * n
		freq *= p.Lacunarity
		amp *= p.Gain
	}
	return clamp01(math.Pow(sum, p.Contrast))
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// PatchGenerator builds a seeded spatially-coherent [0,1] patchiness
// field, used by §8 S1 to perturb a uniform initial vegetation fraction
// by a small seeded amount ("V = 0.15 with seeded 2.5% patchiness") —
// the same tiled-noise construction as ElevationGenerator but without an
// amplitude/base rescale, since the caller applies its own patchiness
// fraction.
type PatchGenerator struct {
	noise  opensimplex.Noise
	params FBMParams
}

// NewPatchGenerator builds a patchiness generator seeded by seed.
func NewPatchGenerator(seed int64, params FBMParams) *PatchGenerator {
	return &PatchGenerator{noise: opensimplex.New(seed), params: params}
}

// At returns a value in [-1,1] at normalized position (u,v): the caller
// scales this by the desired patchiness fraction and adds it to a
// baseline field value.
func (p *PatchGenerator) At(u, v float64) float64 {
	return fbmTorus(p.noise, u, v, 0, p.params)*2 - 1
}
