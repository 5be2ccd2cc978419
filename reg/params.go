// Package reg implements the regeneration cascade (§4.4): the per-cell
// vegetation/SOM update, the REGv2 fine-LoD extensions, biotic-pump
// patch detection, and the feedback REG writes back into HYD.
package reg

// RegionParams holds the constants of the dV/dt, dSOM/dt update, "drawn
// from a per-region parameter record" per §4.4. One record is shared by
// every cell in a calibration region; records round-trip through CSV via
// gocsv for the calibration tooling (csv.go), the same pattern the
// teacher uses for its telemetry output (telemetry/output.go).
type RegionParams struct {
	Region string `csv:"region"`

	RV      float64 `csv:"r_v"`      // vegetation intrinsic growth rate
	KV      float64 `csv:"k_v"`      // vegetation carrying capacity
	Lambda1 float64 `csv:"lambda_1"` // moisture-surplus vegetation coupling
	Lambda2 float64 `csv:"lambda_2"` // SOM-surplus vegetation coupling
	ThetaStar float64 `csv:"theta_star"` // moisture threshold
	SOMStar float64 `csv:"som_star"`     // SOM threshold

	A1 float64 `csv:"a_1"` // vegetation-to-SOM production rate
	A2 float64 `csv:"a_2"` // SOM decay rate

	Eta1 float64 `csv:"eta_1"` // phi_eff feedback coefficient (§4.4 feedback)
}

// DefaultRegionParams returns a representative mid-range parameter set,
// used when no calibration record is supplied.
func DefaultRegionParams(region string) RegionParams {
	return RegionParams{
		Region:    region,
		RV:        0.35,
		KV:        1.0,
		Lambda1:   0.2,
		Lambda2:   0.05,
		ThetaStar: 0.2,
		SOMStar:   10,
		A1:        2.0,
		A2:        0.15,
		Eta1:      0.01,
	}
}
