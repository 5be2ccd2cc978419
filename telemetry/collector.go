package telemetry

import (
	"math"

	"github.com/dj-ccs/negentropic-kernel/grid"
	"github.com/dj-ccs/negentropic-kernel/numerics"
)

// Collector accumulates per-tick counters within a time window and, on
// Flush, reduces the grid's active cells into a WindowStats (§C perf/
// telemetry collector).
type Collector struct {
	windowDurationSec   float64
	windowDurationTicks uint64
	dt                  float64

	windowStartTick uint64

	interventionCount int
	lastErrors        numerics.ErrorCounters
}

// NewCollector creates a new stats collector.
// windowDurationSec: how long each stats window lasts in simulation seconds.
// dt: seconds per tick (used for tick-to-time conversion).
func NewCollector(windowDurationSec, dt float64) *Collector {
	ticksPerWindow := uint64(windowDurationSec / dt)
	if ticksPerWindow < 1 {
		ticksPerWindow = 1
	}

	return &Collector{
		windowDurationSec:   windowDurationSec,
		windowDurationTicks: ticksPerWindow,
		dt:                  dt,
	}
}

// RecordIntervention counts a place_intervention or remove_intervention
// call within the current window.
func (c *Collector) RecordIntervention() {
	c.interventionCount++
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick uint64) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() uint64 {
	return c.windowDurationTicks
}

// Flush walks g's active cells, reduces them into a WindowStats, and
// resets the window's counters. errors is the substrate's current
// cumulative error snapshot; the deltas recorded reflect only what
// accrued since the previous Flush.
func (c *Collector) Flush(currentTick uint64, g *grid.Grid, errors numerics.ErrorCounters) WindowStats {
	var (
		thetaVals   []float64
		vegVals     []float64
		somSum      float64
		waterSum    float64
		runoffSum   float64
		precipSum   float64
		torsionSqSum float64
		lodCounts   [4]int
		n           int
	)

	g.EachActive(func(_ int32, cell *grid.Cell) {
		n++
		thetaVals = append(thetaVals, cell.Theta[0])
		vegVals = append(vegVals, cell.V)
		somSum += cell.SOM
		waterSum += cell.HSurface
		runoffSum += cell.DepressionStorage
		precipSum += cell.LastPrecip
		torsionSqSum += cell.Torsion * cell.Torsion

		lod := int(cell.LOD)
		if lod >= 0 && lod < len(lodCounts) {
			lodCounts[lod]++
		}
	})

	thetaStats := ComputeFieldStats(thetaVals)
	vegStats := ComputeFieldStats(vegVals)

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      float64(currentTick) * c.dt,

		ThetaMean: thetaStats.Mean,
		ThetaP10:  thetaStats.P10,
		ThetaP50:  thetaStats.P50,
		ThetaP90:  thetaStats.P90,

		VegetationMean: vegStats.Mean,
		VegetationStd:  vegStats.Std,

		InterventionCount: c.interventionCount,
	}

	if n > 0 {
		stats.SOMMean = somSum / float64(n)
		stats.SurfaceWaterMean = waterSum / float64(n)
		stats.TorsionRMS = math.Sqrt(torsionSqSum / float64(n))
		stats.LoD0Frac = float64(lodCounts[0]) / float64(n)
		stats.LoD1Frac = float64(lodCounts[1]) / float64(n)
		stats.LoD2Frac = float64(lodCounts[2]) / float64(n)
		stats.LoD3Frac = float64(lodCounts[3]) / float64(n)
	}
	stats.RunoffTotal = runoffSum
	stats.PrecipTotal = precipSum

	stats.OverflowDelta = errors.Overflow - c.lastErrors.Overflow
	stats.DivByZeroDelta = errors.DivByZero - c.lastErrors.DivByZero
	stats.PicardNonConvergenceDelta = errors.PicardNonConvergence - c.lastErrors.PicardNonConvergence
	stats.NewtonFallbackDelta = errors.NewtonFallback - c.lastErrors.NewtonFallback
	stats.BarrierExhaustionDelta = errors.BarrierExhaustion - c.lastErrors.BarrierExhaustion

	c.windowStartTick = currentTick
	c.interventionCount = 0
	c.lastErrors = errors

	return stats
}
