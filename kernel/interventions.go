package kernel

import (
	"fmt"

	"github.com/dj-ccs/negentropic-kernel/eventlog"
	"github.com/dj-ccs/negentropic-kernel/hyd"
	"github.com/dj-ccs/negentropic-kernel/kernelerr"
)

// Intervention kinds a host may place (§4.3, §4.8). Each name maps to a
// hyd.InterventionKind; the per-kind mutation rule itself lives in
// hyd.ApplyIntervention, the one place HYD's own routing/infiltration
// solve also reads MaxSlope and the DepressionStorage/RetentionCapacity
// accumulators from — duplicating §4.3's fixed rules here would risk the
// two drifting apart.
const (
	InterventionGravelMulch  = "gravel_mulch"
	InterventionSwale        = "swale"
	InterventionCheckDam     = "check_dam"
	InterventionTerracing    = "terracing"
	InterventionTreePlanting = "tree_planting"
)

var interventionKinds = map[string]hyd.InterventionKind{
	InterventionGravelMulch:  hyd.InterventionGravelMulch,
	InterventionSwale:        hyd.InterventionSwale,
	InterventionCheckDam:     hyd.InterventionCheckDam,
	InterventionTerracing:    hyd.InterventionTerracing,
	InterventionTreePlanting: hyd.InterventionTreePlanting,
}

// PlaceIntervention applies an intervention at (x,y,z) and logs it
// (§4.8 "place_intervention(handle, kind, location, params)"). §4.3's
// rules are fixed per-kind constants rather than parameterized, so params
// is recorded in the event payload for audit/replay but otherwise unused.
func PlaceIntervention(id uint64, kind string, x, y, z int, params map[string]any) error {
	h, err := lookup(id)
	if err != nil {
		return err
	}
	c := h.grid.At(x, y, z)
	if c == nil {
		return kernelerr.Errorf(kernelerr.ErrInterface, "kernel: place_intervention: no active cell at (%d,%d,%d)", x, y, z)
	}

	hydKind, ok := interventionKinds[kind]
	if !ok {
		return kernelerr.Errorf(kernelerr.ErrInterface, "kernel: place_intervention: unknown kind %q", kind)
	}

	if kind == InterventionGravelMulch {
		// Rebind to a cell-private soil key before raising K_sat, so the
		// cache invalidation inside ApplyIntervention rebuilds only this
		// cell's LUT rather than the shared baseline soil type's table
		// every other, un-mulched cell with the same key still reads.
		c.SoilKey = fmt.Sprintf("%s#mulch(%d,%d,%d)", c.SoilKey, x, y, z)
	}
	if err := hyd.ApplyIntervention(h.sub, c, hydKind); err != nil {
		return kernelerr.Wrap(kernelerr.ErrInterface, fmt.Errorf("kernel: place_intervention: %w", err))
	}

	h.append(eventlog.EventPlaceIntervention, eventlog.PlaceInterventionPayload(kind, x, y, z, params))
	return nil
}

// RemoveIntervention resets (x,y,z)'s DepressionStorage/RetentionCapacity/
// MaxSlope to an un-intervened cell's defaults (§4.8 "remove_intervention
// (handle, location)"). Gravel mulch's K_sat boost and soil-key rebinding
// are left in place: reversing a LUT rebuild would require remembering
// the pre-mulch K_sat, which §4.3's fixed rule set has no slot for.
func RemoveIntervention(id uint64, x, y, z int) error {
	h, err := lookup(id)
	if err != nil {
		return err
	}
	c := h.grid.At(x, y, z)
	if c == nil {
		return kernelerr.Errorf(kernelerr.ErrInterface, "kernel: remove_intervention: no active cell at (%d,%d,%d)", x, y, z)
	}
	c.DepressionStorage = 1
	c.RetentionCapacity = 1
	c.MaxSlope = 0

	h.append(eventlog.EventRemoveIntervention, eventlog.RemoveInterventionPayload(x, y, z))
	return nil
}
