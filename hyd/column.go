// Package hyd implements the Richards-Lite hydrology solver (§4.3): an
// operator-split vertical-implicit / horizontal-explicit update of each
// cell's soil-moisture column and ponded surface water.
package hyd

import (
	"fmt"
	"math"

	"github.com/dj-ccs/negentropic-kernel/grid"
	"github.com/dj-ccs/negentropic-kernel/numerics"
)

// ColumnConfig bounds the vertical Picard iteration (§4.3 "Convergence
// tolerance and max iteration count are configurable").
type ColumnConfig struct {
	Tolerance float64
	MaxIter   int
	DtHours   float64 // Delta t_HYD, default 1 hour
}

// DefaultColumnConfig matches the spec's stated tick length and a
// conservative tolerance/iteration budget.
func DefaultColumnConfig() ColumnConfig {
	return ColumnConfig{Tolerance: 1e-6, MaxIter: 50, DtHours: 1.0}
}

// SolveColumn runs one Picard iteration pass over the 4-layer column of c,
// given a surface infiltration source (m/s) and free-drainage lower
// boundary. K and psi are resampled from the cell's per-soil-type LUT at
// every iteration; a barrier gradient keeps theta strictly inside
// (theta_r, theta_s) rather than clamping post-hoc (§4.1). Returns whether
// the iteration converged within cfg.MaxIter; non-convergence is recorded
// on sub.Errors but the last iterate is kept (§4.3 "not fatal").
func SolveColumn(sub *numerics.Substrate, c *grid.Cell, infiltration float64, cfg ColumnConfig) bool {
	lut := sub.SoilLUT(c.SoilKey, c.Soil)
	dt := cfg.DtHours * 3600 // seconds, matching K_sat's m/s convention

	prev := c.Theta
	converged := false

	for iter := 0; iter < cfg.MaxIter; iter++ {
		maxDelta := 0.0
		next := c.Theta

		for layer := 0; layer < grid.SoilLayers; layer++ {
			se := c.Se(layer)
			k := lut.K(se)
			psi := lut.Psi(se)
			c.Psi[layer] = psi

			var kUp, kDown float64
			if layer == 0 {
				kUp = k
			} else {
				kUp = lut.K(c.Se(layer - 1))
			}
			if layer == grid.SoilLayers-1 {
				kDown = k // free-drainage: flux out equals unit-gradient K
			} else {
				kDown = lut.K(c.Se(layer + 1))
			}

			gradIn := 0.0
			if layer > 0 {
				gradIn = (c.Psi[layer-1] - psi) / c.DZ
			} else {
				gradIn = infiltration / math.Max(k, 1e-12)
			}
			gradOut := kDown // free-drainage lower flux = K (unit gradient)
			if layer < grid.SoilLayers-1 {
				gradOut = (psi - c.Psi[layer+1]) / c.DZ
			}

			fluxIn := kUp * gradIn
			fluxOut := kDown * gradOut

			barrier, exhausted := numerics.BoundedBarrierGradient(c.Theta[layer], c.Soil.ThetaR, c.Soil.ThetaS)
			if exhausted {
				sub.RecordBarrierExhaustion()
			}

			dTheta := (fluxIn - fluxOut) / c.DZ * dt
			updated := prev[layer] + dTheta + barrier*dt
			if updated <= c.Soil.ThetaR || updated >= c.Soil.ThetaS {
				panic(fmt.Sprintf("hyd: barrier gradient failed to hold theta in (%v,%v), got %v: tune BarrierEpsilon or DtHours, do not clamp (§9)", c.Soil.ThetaR, c.Soil.ThetaS, updated))
			}

			delta := math.Abs(updated - next[layer])
			if delta > maxDelta {
				maxDelta = delta
			}
			next[layer] = updated
		}

		c.Theta = next
		if maxDelta < cfg.Tolerance {
			converged = true
			break
		}
	}

	if !converged {
		sub.Errors.PicardNonConvergence++
		sub.Errors.Total++
	}

	for layer := 0; layer < grid.SoilLayers; layer++ {
		if math.IsNaN(c.Theta[layer]) {
			c.Theta[layer] = prev[layer] // NaN must never propagate (§4.3)
		}
	}
	c.RefreshPsi(sub)
	return converged
}
