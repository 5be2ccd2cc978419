package hyd

import (
	"runtime"
	"sync"

	"github.com/dj-ccs/negentropic-kernel/grid"
	"github.com/dj-ccs/negentropic-kernel/numerics"
)

// StepConfig bundles the per-tick knobs for one HYD advance.
type StepConfig struct {
	Column  ColumnConfig
	Routing RoutingScheme
}

// DefaultStepConfig matches the spec's default 1-hour tick and D8 routing.
func DefaultStepConfig() StepConfig {
	return StepConfig{Column: DefaultColumnConfig(), Routing: RoutingD8}
}

// chunk is one worker's share of active cells for the vertical stage.
type chunk struct {
	index        int32
	cell         *grid.Cell
	infiltration float64
}

// ParallelState holds the reusable buffers for tile-parallel vertical
// solving, adapted from the teacher's snapshot/intent worker-chunk
// pattern (game/parallel.go): built once and reused across Step calls,
// resized to the active-cell count each tick, dispatched across
// GOMAXPROCS workers with no further allocation inside the worker loop.
type ParallelState struct {
	chunks     []chunk
	numWorkers int
}

// NewParallelState allocates a ParallelState sized to GOMAXPROCS workers.
func NewParallelState() *ParallelState {
	return &ParallelState{numWorkers: runtime.GOMAXPROCS(0)}
}

// Step advances the grid by one HYD tick (§4.3): vertical implicit Picard
// solve per column (data-parallel across tiles, no inter-cell dependency
// within the vertical stage), then horizontal explicit surface-water
// routing (serial, since it redistributes mass between cells). precip
// supplies the per-cell infiltration source for this tick; accum records
// the running averages REG will later consume.
func Step(sub *numerics.Substrate, g *grid.Grid, precip func(index int32) float64, accum *grid.AccumulationBuffers, ps *ParallelState, cfg StepConfig) {
	if ps == nil {
		ps = NewParallelState()
	}
	ps.chunks = ps.chunks[:0]

	g.EachActive(func(index int32, c *grid.Cell) {
		ps.chunks = append(ps.chunks, chunk{index: index, cell: c, infiltration: precip(index)})
	})

	n := len(ps.chunks)
	if n == 0 {
		return
	}

	// Prewarm every distinct soil-type LUT serially: workers only ever
	// read the soilLUTs map below, so no worker can race another building
	// the same entry (§5 shared-resource policy: "LUTs ... kernel-private",
	// built here, never inside the parallel region).
	for i := range ps.chunks {
		c := ps.chunks[i].cell
		sub.SoilLUT(c.SoilKey, c.Soil)
	}

	numWorkers := ps.numWorkers
	if numWorkers > n {
		numWorkers = n
	}
	chunkSize := (n + numWorkers - 1) / numWorkers

	workers := make([]*numerics.Substrate, numWorkers)
	for w := range workers {
		workers[w] = sub.ForWorker()
	}

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}
		if start >= end {
			continue
		}
		wg.Add(1)
		go func(workerID, i0, i1 int) {
			defer wg.Done()
			local := workers[workerID]
			for i := i0; i < i1; i++ {
				item := &ps.chunks[i]
				item.cell.LastPrecip = item.infiltration
				SolveColumn(local, item.cell, item.infiltration, cfg.Column)
			}
		}(w, start, end)
	}
	wg.Wait()

	for _, w := range workers {
		sub.MergeErrors(w.Errors)
	}

	if accum != nil {
		for i := range ps.chunks {
			item := &ps.chunks[i]
			accum.Accumulate(item.index, item.cell.Theta[0], item.infiltration, item.cell.HSurface)
		}
	}

	RouteSurfaceWater(g, cfg.Routing, cfg.Column.DtHours)
}
