package main

import (
	"fmt"
	"math"
	"strconv"

	"github.com/dj-ccs/negentropic-kernel/config"
	"github.com/dj-ccs/negentropic-kernel/grid"
	"github.com/dj-ccs/negentropic-kernel/kernel"
)

// rankineVortex returns the tangential wind speed at radius r (m) from a
// Rankine vortex of core radius coreM and peak speed peakMPerS: solid-body
// rotation inside the core, irrotational 1/r decay outside it.
func rankineVortex(r, coreM, peakMPerS float64) float64 {
	if r <= 1e-9 {
		return 0
	}
	if r < coreM {
		return peakMPerS * r / coreM
	}
	return peakMPerS * coreM / r
}

// runS3 exercises the torsion closure's Casimir-conserving fine-LoD path
// (§8 S3): seed a Rankine point vortex, force every cell to LOD3 so the
// Clebsch-collective step runs every tick (§4.5's torsion tier for a
// steep local field), and check that the collective's invariant m = q*p
// drifts by less than 1e-6 over 10k steps.
func runS3(cfg *config.Config, outDir string) error {
	const nx, ny = 32, 32
	const coreM, peakMPerS = 400.0, 3.0
	const steps = 10000

	id, g, err := smallScenarioGrid(cfg, nx, ny)
	if err != nil {
		return err
	}
	defer kernel.Destroy(id)

	cx, cy := float64(nx)/2, float64(ny)/2
	spacing := smallScenarioCellSpacingM
	g.EachActive(func(idx int32, c *grid.Cell) {
		x := int(idx) % nx
		y := int(idx) / nx
		dx := (float64(x) + 0.5 - cx) * spacing
		dy := (float64(y) + 0.5 - cy) * spacing
		r := math.Hypot(dx, dy)
		speed := rankineVortex(r, coreM, peakMPerS)
		if r > 1e-9 {
			c.WindU = -speed * dy / r
			c.WindV = speed * dx / r
		}
	})
	if err := kernel.PinLOD(id, int(grid.LOD3)); err != nil {
		return fmt.Errorf("pin LOD3: %w", err)
	}

	var initialM, finalM float64
	var maxDrift float64
	for t := 0; t < steps; t++ {
		if _, err := kernel.Step(id, 0); err != nil {
			return fmt.Errorf("step %d: %w", t, err)
		}
		m := vortexCollectiveSample(g)
		if t == 0 {
			initialM = m
		}
		finalM = m
		if drift := math.Abs(m - initialM); drift > maxDrift {
			maxDrift = drift
		}
	}

	return writeScenarioReport(outDir, "s3_point_vortex.csv", []string{"metric", "value"}, [][]string{
		{"initial_casimir_sample", strconv.FormatFloat(initialM, 'g', -1, 64)},
		{"final_casimir_sample", strconv.FormatFloat(finalM, 'g', -1, 64)},
		{"max_casimir_drift", strconv.FormatFloat(maxDrift, 'g', -1, 64)},
		{"steps", strconv.Itoa(steps)},
	})
}

// vortexCollectiveSample reads a cell's stored Torsion value, which for a
// LOD3 cell already is the Clebsch collective m = q*p after ClebschStep's
// symplectic update (kernel/step.go's stepTorsion assigns next, the
// projected m, straight back onto c.Torsion) — the quantity
// torsionCasimirGrad's Hamiltonian conserves exactly under the canonical
// flow, before the feedback forcing perturbs it again.
func vortexCollectiveSample(g *grid.Grid) float64 {
	c := g.At(g.Nx/2, g.Ny/2, 0)
	if c == nil {
		return 0
	}
	return c.Torsion
}
