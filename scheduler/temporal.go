// Package scheduler implements the multi-scale simulation cascade (§4.6):
// the temporal cascade that runs HYD every tick and REG every N ticks off
// the exact same accumulators, and the quad-tree spatial LoD that trades
// fidelity for cost away from the region of interest.
package scheduler

import (
	"github.com/dj-ccs/negentropic-kernel/grid"
	"github.com/dj-ccs/negentropic-kernel/hyd"
	"github.com/dj-ccs/negentropic-kernel/numerics"
	"github.com/dj-ccs/negentropic-kernel/reg"
)

// RegionLookup resolves a cell index to the REG parameter set governing
// its region (§4.4).
type RegionLookup func(index int32) reg.RegionParams

// PrecipSource resolves a cell index to its current-tick precipitation
// input, the rate HYD's column solve treats as infiltration forcing.
type PrecipSource func(index int32) float64

// Cascade drives the temporal cascade: HYD every tick, REG every
// reg.TickInterval ticks from the accumulators HYD filled in between
// (§4.6). One Cascade is built per kernel handle and reused across ticks
// — the accumulation buffers and HYD parallel-state are never reallocated.
type Cascade struct {
	Tick uint64

	accum    *grid.AccumulationBuffers
	hydState *hyd.ParallelState
	hydCfg   hyd.StepConfig
}

// NewCascade allocates a Cascade for a grid sized to hold n cells' worth
// of accumulators.
func NewCascade(n int, hydCfg hyd.StepConfig) *Cascade {
	return &Cascade{
		accum:    grid.NewAccumulationBuffers(n),
		hydState: hyd.NewParallelState(),
		hydCfg:   hydCfg,
	}
}

// Advance runs exactly one tick of the cascade: HYD always advances and
// accumulates; every reg.TickInterval-th tick, REG advances from the
// time-averaged accumulators and they reset (§4.6 "divide accumulators by
// N, advance REG with those averages, reset accumulators" — division
// happens inside AccumulationBuffers.Mean, so the averages used here are
// exact, not an approximation of N).
func (c *Cascade) Advance(sub *numerics.Substrate, g *grid.Grid, precip PrecipSource, regionOf RegionLookup) {
	hyd.Step(sub, g, func(i int32) float64 { return precip(i) }, c.accum, c.hydState, c.hydCfg)
	c.Tick++

	if c.Tick%reg.TickInterval != 0 {
		return
	}

	g.EachActive(func(index int32, cell *grid.Cell) {
		thetaBar, _, _ := c.accum.Mean(index)
		p := regionOf(index)
		reg.Update(sub, cell, p, thetaBar)
	})
	c.accum.Reset()
}

// AccumulatedMean exposes the current running average for index without
// waiting for a REG advance — used by the spatial LoD importance metric,
// which needs a same-tick read of the accumulators (§4.6 "importance =
// mean 8-neighbor |delta theta| + ... + alpha*runoff").
func (c *Cascade) AccumulatedMean(index int32) (theta, precip, runoff float64) {
	return c.accum.Mean(index)
}
