package grid

import (
	"sync/atomic"

	"github.com/dj-ccs/negentropic-kernel/numerics"
)

// StateBuffer is one of the two identical SoA blocks that follow the
// header (§3): one Q16.16 array per declared field, sized at init and
// never resized during stepping.
type StateBuffer struct {
	N int

	Vegetation    []numerics.Q16
	SOM           []numerics.Q16
	Theta         []numerics.Q16
	SurfaceWater  []numerics.Q16
	WindVelocity  []numerics.Q16
	Temperature   []numerics.Q16
	Torsion       []numerics.Q16
	Interventions []numerics.Q16
	CloudDensity  []numerics.Q16
	Precipitation []numerics.Q16
}

// NewStateBuffer allocates a StateBuffer for n entities (cells).
func NewStateBuffer(n int) *StateBuffer {
	return &StateBuffer{
		N:             n,
		Vegetation:    make([]numerics.Q16, n),
		SOM:           make([]numerics.Q16, n),
		Theta:         make([]numerics.Q16, n),
		SurfaceWater:  make([]numerics.Q16, n),
		WindVelocity:  make([]numerics.Q16, n),
		Temperature:   make([]numerics.Q16, n),
		Torsion:       make([]numerics.Q16, n),
		Interventions: make([]numerics.Q16, n),
		CloudDensity:  make([]numerics.Q16, n),
		Precipitation: make([]numerics.Q16, n),
	}
}

// field returns the slice for one of the Field* offset slots, in the same
// order the header's FieldOffsets are declared.
func (b *StateBuffer) field(slot int) []numerics.Q16 {
	switch slot {
	case FieldVegetation:
		return b.Vegetation
	case FieldSOM:
		return b.SOM
	case FieldTheta:
		return b.Theta
	case FieldSurfaceWater:
		return b.SurfaceWater
	case FieldWindVelocity:
		return b.WindVelocity
	case FieldTemperature:
		return b.Temperature
	case FieldTorsion:
		return b.Torsion
	case FieldInterventions:
		return b.Interventions
	case FieldCloudDensity:
		return b.CloudDensity
	case FieldPrecipitation:
		return b.Precipitation
	default:
		return nil
	}
}

// WriteFromCells populates the buffer's fields from the grid's current
// active cells, in linear-index order. Indices with no active cell are
// left at their previous value (never reallocated, §3 Lifecycle).
func (b *StateBuffer) WriteFromCells(g *Grid) {
	g.EachActive(func(index int32, c *Cell) {
		if int(index) >= b.N {
			return
		}
		b.Vegetation[index] = numerics.FromFloat(c.V)
		b.SOM[index] = numerics.FromFloat(c.SOM)
		b.Theta[index] = numerics.FromFloat(c.Theta[0])
		b.SurfaceWater[index] = numerics.FromFloat(c.HSurface)
		b.WindVelocity[index] = numerics.FromFloat(c.WindU)
		b.Temperature[index] = numerics.FromFloat(c.Temperature)
		b.Torsion[index] = numerics.FromFloat(c.Torsion)
		b.CloudDensity[index] = numerics.FromFloat(c.CloudDensity)
		b.Precipitation[index] = numerics.FromFloat(c.LastPrecip)
		if c.HasIntervention() {
			b.Interventions[index] = numerics.FromFloat(1)
		} else {
			b.Interventions[index] = numerics.FromFloat(0)
		}
	})
}

// published is the immutable {idx,tick,hash} triple DoubleBuffer publishes
// as one unit: a reader that loads a *published never sees activeIdx
// paired with a tick or hash from a different Publish call (§6 "publish
// active_buffer_idx and timestamp/tick/hash atomically").
type published struct {
	idx  int32
	tick uint64
	hash uint64
}

// DoubleBuffer is the single-writer/multi-reader contract (§3 Ownership,
// §5): two StateBuffers plus one atomically-published {idx,tick,hash}
// record. The core writes exclusively to the inactive buffer and
// publishes a new record only after a write completes; external readers
// only ever observe a record as a whole, never activeIdx/tick/hash as
// independently torn fields.
type DoubleBuffer struct {
	Buffers [2]*StateBuffer
	state   atomic.Pointer[published]
}

// NewDoubleBuffer allocates both blocks for n entities.
func NewDoubleBuffer(n int) *DoubleBuffer {
	d := &DoubleBuffer{
		Buffers: [2]*StateBuffer{NewStateBuffer(n), NewStateBuffer(n)},
	}
	d.state.Store(&published{})
	return d
}

// Snapshot returns the currently-published {idx,tick,hash} record as one
// consistent read — the form a shared-memory header writer should use
// rather than calling ActiveIndex/Tick/Hash separately, since three
// separate loads could each observe a different Publish.
func (d *DoubleBuffer) Snapshot() (idx int32, tick, hash uint64) {
	s := d.state.Load()
	return s.idx, s.tick, s.hash
}

// ActiveIndex returns the buffer index readers should use.
func (d *DoubleBuffer) ActiveIndex() int32 {
	return d.state.Load().idx
}

// Active returns the currently-published, read-only buffer.
func (d *DoubleBuffer) Active() *StateBuffer {
	return d.Buffers[d.ActiveIndex()]
}

// Writable returns the buffer the writer should populate this tick: the
// one currently NOT active.
func (d *DoubleBuffer) Writable() *StateBuffer {
	return d.Buffers[1-d.ActiveIndex()]
}

// Publish flips the active buffer after a write completes, publishing the
// new {idx,tick,hash} record in one atomic pointer swap. This is the only
// mutation of the published state and happens after every field in
// Writable() has been written.
func (d *DoubleBuffer) Publish(tick, hash uint64) {
	next := 1 - d.ActiveIndex()
	d.state.Store(&published{idx: next, tick: tick, hash: hash})
}

// Tick and Hash report the values accompanying the currently-active
// buffer. Prefer Snapshot when a caller needs idx, tick, and hash to all
// agree with one another.
func (d *DoubleBuffer) Tick() uint64 { return d.state.Load().tick }
func (d *DoubleBuffer) Hash() uint64 { return d.state.Load().hash }
