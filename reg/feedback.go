package reg

import (
	"github.com/dj-ccs/negentropic-kernel/grid"
	"github.com/dj-ccs/negentropic-kernel/numerics"
)

// ln115 is the natural log of 1.15, precomputed so ApplyFeedback can raise
// 1.15 to a power via the substrate's Exp LUT (1.15^x = exp(x*ln 1.15))
// instead of a library pow call, keeping REG's feedback on the same
// no-libm discipline as the rest of the simulation loop (§4.1).
const ln115 = 0.13976194188477488

// ApplyFeedback writes REG's end-of-cycle effect back into the cell's HYD
// state (§4.4 "Feedback into HYD, applied at the end of REG"):
//
//	phi_eff += eta1 * deltaSOM
//	K_zz    *= 1.15^deltaSOM
//
// deltaSOM is the change in SOM measured since the last REG invocation.
func ApplyFeedback(sub *numerics.Substrate, c *grid.Cell, eta1, deltaSOM float64) {
	c.PhiEff += eta1 * deltaSOM
	if c.PhiEff < c.Soil.ThetaS {
		c.PhiEff = c.Soil.ThetaS
	}
	c.KTensor[2] *= sub.Exp(deltaSOM * ln115)
}
