// Package grid implements the kernel's state container (§3): the Cell
// record, the dense/sparse Grid, the QuadNode arena, the shared-memory
// double-buffer contract, and binary serialization. Layout and ownership
// rules follow the teacher's systems/spatial.go dense-array convention,
// generalized to the cubed-sphere soil-column domain.
package grid

import (
	"github.com/dj-ccs/negentropic-kernel/numerics"
	"github.com/dj-ccs/negentropic-kernel/se3"
)

// SoilLayers is the fixed soil-column depth (§3 "4-layer soil column").
const SoilLayers = 4

// LODLevel is a spatial level-of-detail tier, 0 (finest) through 3
// (coarsest), matching QuadNode.level's range.
type LODLevel int

const (
	LOD0 LODLevel = iota
	LOD1
	LOD2
	LOD3
)

// Cell is one soil column plus surface state (§3). Vegetation and SOM are
// kept as a single canonical float64 value rather than the spec's described
// fixed-point mirror kept in lock-step: the mirror is reconstructed on
// demand at serialization boundaries via numerics.FromFloat/ToFloat, so
// there is exactly one writable representation per field and no
// lock-step-divergence class of bug (§9 migration note).
type Cell struct {
	Theta    [SoilLayers]float64 // volumetric moisture per layer, theta_r <= theta <= theta_s
	HSurface float64             // ponded water depth, >= 0
	Psi      [SoilLayers]float64 // matric potential, derived, <= 0

	Soil    numerics.SoilParams
	SoilKey string // lookup key into Substrate.soilLUTs

	PhiEff  float64    // effective porosity, >= ThetaS
	KTensor [3]float64 // diagonal-biased effective conductivity (Kxx, Kyy, Kzz)

	V   float64 // vegetation fraction, in [0,1]
	SOM float64 // soil organic matter, kg/m^3, >= 0

	Z      float64 // elevation
	DX, DZ float64
	Face   se3.Face
	U, Vc  float64 // face-local coordinates (Vc to avoid clashing with vegetation V)

	IsDirty  bool // reserved for event-driven routing
	IsActive bool
	LOD      LODLevel

	DepressionStorage float64 // intervention multiplier
	RetentionCapacity float64 // intervention multiplier
	MaxSlope          float64 // terracing clamp, as a slope ratio; 0 means unrestricted

	WindU, WindV float64 // horizontal wind velocity, m/s, face-local frame
	Temperature  float64 // surface temperature, K
	Torsion      float64 // discrete curl omega_z of the wind field, 1/s
	CloudDensity float64 // diagnostic condensation proxy, >= 0

	LastPrecip float64 // infiltration forcing applied this HYD tick, m/s
}

// HasIntervention reports whether any intervention multiplier on c
// deviates from its identity default, for the shared-state Interventions
// field slot.
func (c *Cell) HasIntervention() bool {
	return c.DepressionStorage != 1 || c.RetentionCapacity != 1 || c.MaxSlope != 0
}

// NewCell returns a Cell initialized to the teacher's "empty column"
// convention: mid-range moisture, no ponding, unit intervention
// multipliers, active at the finest LoD.
func NewCell(soil numerics.SoilParams, soilKey string, z, dx, dz float64, face se3.Face, u, v float64) Cell {
	theta := soil.ThetaR + 0.5*(soil.ThetaS-soil.ThetaR)
	c := Cell{
		Soil:              soil,
		SoilKey:           soilKey,
		PhiEff:            soil.ThetaS,
		KTensor:           [3]float64{soil.KSat, soil.KSat, soil.KSat},
		Z:                 z,
		DX:                dx,
		DZ:                dz,
		Face:              face,
		U:                 u,
		Vc:                v,
		IsActive:          true,
		LOD:               LOD0,
		DepressionStorage: 1,
		RetentionCapacity: 1,
	}
	for i := range c.Theta {
		c.Theta[i] = theta
	}
	return c
}

// Se returns the effective saturation of soil layer i, clamped to (0,1)
// exclusive so LUT lookups never see a degenerate endpoint.
func (c *Cell) Se(layer int) float64 {
	se := (c.Theta[layer] - c.Soil.ThetaR) / (c.Soil.ThetaS - c.Soil.ThetaR)
	return numerics.Clamp(se, 1e-6, 1-1e-6)
}

// RefreshPsi recomputes the matric-potential mirror for every layer from
// the current moisture state, using the substrate's cached per-soil-type
// Van-Genuchten LUT (§4.1).
func (c *Cell) RefreshPsi(sub *numerics.Substrate) {
	lut := sub.SoilLUT(c.SoilKey, c.Soil)
	for i := 0; i < SoilLayers; i++ {
		c.Psi[i] = lut.Psi(c.Se(i))
	}
}
