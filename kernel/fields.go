package kernel

import (
	"encoding/binary"

	"github.com/dj-ccs/negentropic-kernel/grid"
	"github.com/dj-ccs/negentropic-kernel/kernelerr"
	"github.com/dj-ccs/negentropic-kernel/numerics"
)

// fieldSlots maps the host-facing field names (§4.8 "get_field(handle,
// name)") to the shared-state buffer's declared slots, the same order
// SharedStateHeader lists them in.
var fieldSlots = map[string]int{
	"vegetation":    grid.FieldVegetation,
	"som":           grid.FieldSOM,
	"theta":         grid.FieldTheta,
	"surface_water": grid.FieldSurfaceWater,
	"wind_velocity": grid.FieldWindVelocity,
	"temperature":   grid.FieldTemperature,
	"torsion":       grid.FieldTorsion,
	"interventions": grid.FieldInterventions,
	"cloud_density": grid.FieldCloudDensity,
	"precipitation": grid.FieldPrecipitation,
}

// rawFieldSlice returns the buffer's slice for one declared field slot.
func rawFieldSlice(b *grid.StateBuffer, slot int) []numerics.Q16 {
	switch slot {
	case grid.FieldVegetation:
		return b.Vegetation
	case grid.FieldSOM:
		return b.SOM
	case grid.FieldTheta:
		return b.Theta
	case grid.FieldSurfaceWater:
		return b.SurfaceWater
	case grid.FieldWindVelocity:
		return b.WindVelocity
	case grid.FieldTemperature:
		return b.Temperature
	case grid.FieldTorsion:
		return b.Torsion
	case grid.FieldInterventions:
		return b.Interventions
	case grid.FieldCloudDensity:
		return b.CloudDensity
	case grid.FieldPrecipitation:
		return b.Precipitation
	default:
		return nil
	}
}

// GetField copies field name's current values, Q16.16-encoded
// little-endian, into buffer, returning the number of bytes written
// (§4.8 "get_field(handle, name) -> bytes | fail(unknown field, buffer
// too small)").
func GetField(id uint64, name string, buffer []byte) (int, error) {
	h, err := lookup(id)
	if err != nil {
		return 0, err
	}
	slot, ok := fieldSlots[name]
	if !ok {
		return 0, kernelerr.Errorf(kernelerr.ErrInterface, "kernel: get_field: unknown field %q", name)
	}

	raw := rawFieldSlice(h.double.Active(), slot)
	need := len(raw) * 4
	if len(buffer) < need {
		return 0, kernelerr.Errorf(kernelerr.ErrInterface, "kernel: get_field: buffer too small for %q: need %d bytes, have %d", name, need, len(buffer))
	}

	le := binary.LittleEndian
	for i, v := range raw {
		le.PutUint32(buffer[i*4:i*4+4], uint32(int32(v)))
	}
	return need, nil
}

// FieldLen returns the number of entries field name's slice holds, i.e.
// the handle's cell count — a convenience for hosts sizing a get_field
// buffer without separately tracking grid dimensions.
func FieldLen(id uint64, name string) (int, error) {
	h, err := lookup(id)
	if err != nil {
		return 0, err
	}
	slot, ok := fieldSlots[name]
	if !ok {
		return 0, kernelerr.Errorf(kernelerr.ErrInterface, "kernel: unknown field %q", name)
	}
	return len(rawFieldSlice(h.double.Active(), slot)), nil
}
