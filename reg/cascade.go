package reg

import (
	"fmt"

	"github.com/dj-ccs/negentropic-kernel/grid"
	"github.com/dj-ccs/negentropic-kernel/numerics"
)

// TickInterval is N=128, the HYD-tick cadence REG is invoked at (§4.4
// "~5.3 simulated days").
const TickInterval = 128

// DtYears is the conceptual yearly timestep the explicit-Euler update
// integrates over (§4.4 "yearly conceptual timestep").
const DtYears = 1.0 / (365.25 / 5.3) // one REG invocation's share of a year

// Update applies one explicit-Euler REG step to c's surface layer, using
// the time-averaged HYD surface moisture thetaBar as its only accumulator
// input (§4.4):
//
//	dV/dt   = r_V*V*(1-V/K_V) + lambda1*max(thetaBar-theta*,0) + lambda2*max(SOM-SOM*,0)
//	dSOM/dt = a1*V - a2*SOM
func Update(sub *numerics.Substrate, c *grid.Cell, p RegionParams, thetaBar float64) {
	moistureSurplus := max0(thetaBar - p.ThetaStar)
	somSurplus := max0(c.SOM - p.SOMStar)

	dV := p.RV*c.V*(1-c.V/p.KV) + p.Lambda1*moistureSurplus + p.Lambda2*somSurplus
	dSOM := p.A1*c.V - p.A2*c.SOM

	vGrad, vExhausted := numerics.BoundedBarrierGradient(c.V, -1e-6, 1+1e-6)
	if vExhausted {
		sub.RecordBarrierExhaustion()
	}
	somGrad, somExhausted := numerics.NonNegativeBarrierGradient(c.SOM)
	if somExhausted {
		sub.RecordBarrierExhaustion()
	}

	v := c.V + (dV+vGrad)*DtYears
	if v < 0 || v > 1 {
		panic(fmt.Sprintf("reg: barrier gradient failed to hold V in [0,1], got %v: tune BarrierEpsilon or DtYears, do not clamp (§9)", v))
	}
	c.V = v

	som := c.SOM + (dSOM+somGrad)*DtYears
	if som < 0 {
		panic(fmt.Sprintf("reg: barrier gradient failed to hold SOM >= 0, got %v: tune BarrierEpsilon or DtYears, do not clamp (§9)", som))
	}
	c.SOM = som
}

func max0(x float64) float64 {
	if x < 0 {
		return 0
	}
	return x
}
