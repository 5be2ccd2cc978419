package hyd

import (
	"fmt"
	"math"

	"github.com/dj-ccs/negentropic-kernel/grid"
	"github.com/dj-ccs/negentropic-kernel/numerics"
)

// InterventionKind enumerates the external event-stream interventions
// HYD recognizes (§4.3).
type InterventionKind int

const (
	InterventionGravelMulch InterventionKind = iota
	InterventionSwale
	InterventionCheckDam
	InterventionTerracing
	InterventionTreePlanting
)

// ApplyIntervention mutates c per §4.3's fixed per-kind rules. Gravel
// mulch invalidates the cell's cached Van-Genuchten LUT so the next
// lookup rebuilds it against the new K_sat, since the LUT is keyed by
// soil type and this raises just this one cell's conductivity.
func ApplyIntervention(sub *numerics.Substrate, c *grid.Cell, kind InterventionKind) error {
	switch kind {
	case InterventionGravelMulch:
		c.Soil.KSat *= 6.0
		sub.InvalidateSoilLUT(c.SoilKey)
	case InterventionSwale:
		c.DepressionStorage += 0.5
	case InterventionCheckDam:
		c.RetentionCapacity += 1.0
	case InterventionTerracing:
		// Slope clamp is a one-off per-intervention calculation, not a
		// per-tick hot-path value, so math.Tan is acceptable here (§4.1's
		// no-libm rule scopes to the simulation loop itself).
		c.MaxSlope = math.Tan(MaxTerracedSlopeRadians)
	case InterventionTreePlanting:
		c.V = numerics.Clamp(c.V+0.15, 0, 1)
		c.SOM += 5
	default:
		return fmt.Errorf("hyd: unknown intervention kind %d", kind)
	}
	return nil
}

// MaxTerracedSlopeRadians is the clamp terracing imposes on local slope
// (§4.3 "slope clamped to 5 degrees").
const MaxTerracedSlopeRadians = 5.0 * (3.14159265358979 / 180.0)
