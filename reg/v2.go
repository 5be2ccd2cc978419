package reg

import (
	"github.com/dj-ccs/negentropic-kernel/grid"
	"github.com/dj-ccs/negentropic-kernel/numerics"
)

// fungalBacterialTableSize is the resolution of the fungal:bacterial ratio
// LUT (§4.4 REGv2), indexed by SOM fraction of its regional cap.
const fungalBacterialTableSize = 256

// FungalBacterialLUT multiplies SOM production by a ratio that rises with
// vegetation-driven fungal dominance, capped at the Johnson-Su compost
// ceiling (§4.4 "up to 8x, capped at 10x for Johnson-Su compost
// parameters").
type FungalBacterialLUT struct {
	table [fungalBacterialTableSize]float64
	cap   float64
}

// NewFungalBacterialLUT builds the ratio table once, in float, per the
// same "computed once" convention as the Van-Genuchten LUTs (§4.1).
// johnsonSu selects the Johnson-Su compost parameter set, raising the cap
// from 8x to 10x.
func NewFungalBacterialLUT(johnsonSu bool) *FungalBacterialLUT {
	cap := 8.0
	if johnsonSu {
		cap = 10.0
	}
	lut := &FungalBacterialLUT{cap: cap}
	for i := 0; i < fungalBacterialTableSize; i++ {
		frac := float64(i) / float64(fungalBacterialTableSize-1)
		// Monotone rise toward cap, steepest in the low-fraction range
		// where fungal colonization establishes fastest.
		ratio := 1 + (cap-1)*(1-(1-frac)*(1-frac))
		if ratio > cap {
			ratio = cap
		}
		lut.table[i] = ratio
	}
	return lut
}

// Ratio returns the fungal:bacterial multiplier for a SOM fraction in
// [0,1] of the region's compost cap.
func (l *FungalBacterialLUT) Ratio(somFraction float64) float64 {
	somFraction = numerics.Clamp(somFraction, 0, 1)
	idx := int(somFraction * float64(fungalBacterialTableSize-1))
	return l.table[idx]
}

// V2Params bundles the REGv2 fine-LoD extension constants.
type V2Params struct {
	FungalBacterial    *FungalBacterialLUT
	AggregationFactor  float64 // multiplies K via soil-aggregation enhancement
	HyphaeFactor       float64 // multiplies K via hyphal-network enhancement
	CondensationFlux   float64 // base non-rainfall water input, m/tick
	RockMulchFactor    float64 // condensation multiplier under rock mulch, 50x per spec
	HydraulicLiftDepth int     // deep reservoir layer index hydraulic lift draws from
	HydraulicLiftRate  float64 // fraction of deep moisture redistributed per night tick
}

// ApplyV2 runs the fine-LoD REGv2 extensions on top of the base cascade
// update (§4.4): fungal:bacterial-scaled SOM production, aggregation and
// hyphae K enhancement, a condensation flux (amplified under rock mulch),
// and a night-gated hydraulic-lift redistribution.
func ApplyV2(c *grid.Cell, p RegionParams, v2 V2Params, somCap float64, isNight, rockMulch bool) {
	if v2.FungalBacterial != nil && somCap > 0 {
		ratio := v2.FungalBacterial.Ratio(c.SOM / somCap)
		c.SOM += p.A1 * c.V * (ratio - 1) * DtYears
	}

	kMultiplier := 1.0
	if v2.AggregationFactor > 0 {
		kMultiplier *= v2.AggregationFactor
	}
	if v2.HyphaeFactor > 0 {
		kMultiplier *= v2.HyphaeFactor
	}
	if kMultiplier != 1.0 {
		for i := range c.KTensor {
			c.KTensor[i] *= kMultiplier
		}
	}

	condensation := v2.CondensationFlux
	if rockMulch {
		condensation *= v2.RockMulchFactor
	}
	c.HSurface += condensation

	if isNight && v2.HydraulicLiftDepth >= 0 && v2.HydraulicLiftDepth < grid.SoilLayers {
		deep := v2.HydraulicLiftDepth
		lifted := c.Theta[deep] * v2.HydraulicLiftRate
		c.Theta[deep] -= lifted
		c.Theta[0] += lifted
	}
}
