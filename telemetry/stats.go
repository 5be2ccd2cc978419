package telemetry

import (
	"log/slog"
	"math"
	"sort"
)

// WindowStats holds aggregated kernel state for a time window (§C perf/
// telemetry collector): field means and spread, the water/vegetation mass
// balance, LoD distribution, and the non-fatal numeric error deltas
// accrued since the previous window.
type WindowStats struct {
	WindowStartTick uint64  `csv:"-"`
	WindowEndTick   uint64  `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	ThetaMean float64 `csv:"theta_mean"`
	ThetaP10  float64 `csv:"theta_p10"`
	ThetaP50  float64 `csv:"theta_p50"`
	ThetaP90  float64 `csv:"theta_p90"`

	VegetationMean float64 `csv:"vegetation_mean"`
	VegetationStd  float64 `csv:"vegetation_std"`

	SOMMean float64 `csv:"som_mean"`

	SurfaceWaterMean float64 `csv:"surface_water_mean"`
	RunoffTotal      float64 `csv:"runoff_total"`
	PrecipTotal      float64 `csv:"precip_total"`

	TorsionRMS float64 `csv:"torsion_rms"`

	// LoD distribution: fraction of active cells at each level, finest
	// (LoD0) first.
	LoD0Frac float64 `csv:"lod0_frac"`
	LoD1Frac float64 `csv:"lod1_frac"`
	LoD2Frac float64 `csv:"lod2_frac"`
	LoD3Frac float64 `csv:"lod3_frac"`

	// Error counter deltas accrued during this window (§4.1, §7).
	OverflowDelta            uint64 `csv:"overflow_delta"`
	DivByZeroDelta           uint64 `csv:"div_by_zero_delta"`
	PicardNonConvergenceDelta uint64 `csv:"picard_nonconv_delta"`
	NewtonFallbackDelta      uint64 `csv:"newton_fallback_delta"`
	BarrierExhaustionDelta   uint64 `csv:"barrier_exhaustion_delta"`

	InterventionCount int `csv:"intervention_count"`
}

// Percentile calculates the p-th percentile of a sorted slice. p should be
// in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// FieldStats holds the mean, standard deviation, and tail percentiles of a
// scalar field over its active cells this window.
type FieldStats struct {
	Mean, Std, P10, P50, P90 float64
}

// ComputeFieldStats calculates summary statistics over a field's values.
func ComputeFieldStats(values []float64) FieldStats {
	n := len(values)
	if n == 0 {
		return FieldStats{}
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(n)

	var sqDiffSum float64
	for _, v := range values {
		d := v - mean
		sqDiffSum += d * d
	}
	std := math.Sqrt(sqDiffSum / float64(n))

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	return FieldStats{
		Mean: mean,
		Std:  std,
		P10:  Percentile(sorted, 0.10),
		P50:  Percentile(sorted, 0.50),
		P90:  Percentile(sorted, 0.90),
	}
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("window_end", s.WindowEndTick),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Float64("theta_mean", s.ThetaMean),
		slog.Float64("vegetation_mean", s.VegetationMean),
		slog.Float64("vegetation_std", s.VegetationStd),
		slog.Float64("som_mean", s.SOMMean),
		slog.Float64("surface_water_mean", s.SurfaceWaterMean),
		slog.Float64("runoff_total", s.RunoffTotal),
		slog.Float64("precip_total", s.PrecipTotal),
		slog.Float64("torsion_rms", s.TorsionRMS),
		slog.Float64("lod0_frac", s.LoD0Frac),
		slog.Float64("lod1_frac", s.LoD1Frac),
		slog.Float64("lod2_frac", s.LoD2Frac),
		slog.Float64("lod3_frac", s.LoD3Frac),
		slog.Uint64("picard_nonconv_delta", s.PicardNonConvergenceDelta),
		slog.Uint64("newton_fallback_delta", s.NewtonFallbackDelta),
		slog.Int("intervention_count", s.InterventionCount),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndTick,
		"sim_time", s.SimTimeSec,
		"theta_mean", s.ThetaMean,
		"vegetation_mean", s.VegetationMean,
		"som_mean", s.SOMMean,
		"surface_water_mean", s.SurfaceWaterMean,
		"runoff_total", s.RunoffTotal,
		"torsion_rms", s.TorsionRMS,
		"lod0_frac", s.LoD0Frac,
		"lod3_frac", s.LoD3Frac,
		"picard_nonconv_delta", s.PicardNonConvergenceDelta,
		"newton_fallback_delta", s.NewtonFallbackDelta,
		"intervention_count", s.InterventionCount,
	)
}
